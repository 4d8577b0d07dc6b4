package scoring

import "slices"

// maxRecommendations bounds the improvement plan.
const maxRecommendations = 3

type Recommendation struct {
	Component       ComponentName `json:"component"`
	CurrentPoints   int           `json:"current_points"`
	TargetPoints    int           `json:"target_points"`
	PotentialPoints int           `json:"potential_points"`
	CurrentState    string        `json:"current_state"`
	TargetState     string        `json:"target_state"`
	ActionSteps     []string      `json:"action_steps"`
	ProgressPct     float64       `json:"progress_pct"`
}

var targetStates = map[ComponentName]string{
	Utilization:     "Keep utilization below 30%",
	PaymentHistory:  "Make payments within 15 days",
	CreditMix:       "Maintain 3+ different credit products",
	AccountActivity: "Keep 3+ active accounts",
	OverdueBehavior: "Eliminate all overdue amounts",
}

var actionSteps = map[ComponentName][]string{
	Utilization: {
		"Pay down credit card balances below 30% of limits",
		"Request credit limit increases on existing cards",
		"Avoid maxing out any single credit card",
	},
	PaymentHistory: {
		"Set up automatic payments for all accounts",
		"Make payments at least 15 days before due date",
		"Contact lenders immediately if you anticipate late payments",
	},
	CreditMix: {
		"Consider adding a different type of credit product",
		"Maintain a healthy mix of revolving and installment credit",
		"Don't open too many new accounts at once",
	},
	AccountActivity: {
		"Keep old accounts open to maintain credit history",
		"Use credit cards regularly but responsibly",
		"Avoid closing your oldest credit accounts",
	},
	OverdueBehavior: {
		"Pay off all overdue amounts immediately",
		"Contact lenders to negotiate payment plans if needed",
		"Set up payment reminders to avoid future late payments",
	},
}

// TargetState is the canned goal text of a component.
func TargetState(name ComponentName) string {
	if s, ok := targetStates[name]; ok {
		return s
	}
	return "Reach maximum points"
}

// ActionSteps is the canned advice for a component.
func ActionSteps(name ComponentName) []string {
	if steps, ok := actionSteps[name]; ok {
		return slices.Clone(steps)
	}
	return []string{"Consult with a financial advisor for personalized guidance"}
}

// Recommend ranks components by remaining potential (max - current), highest
// first with ties kept in component order, and returns the top three.
// Components already at their cap are left out.
func Recommend(components []Component) []Recommendation {
	recs := make([]Recommendation, 0, len(components))
	for _, c := range components {
		potential := c.MaxPoints - c.Points
		if potential <= 0 {
			continue
		}
		recs = append(recs, Recommendation{
			Component:       c.Name,
			CurrentPoints:   c.Points,
			TargetPoints:    c.MaxPoints,
			PotentialPoints: potential,
			CurrentState:    c.Description,
			TargetState:     TargetState(c.Name),
			ActionSteps:     ActionSteps(c.Name),
			ProgressPct:     Progress(c.Points, c.MaxPoints),
		})
	}
	slices.SortStableFunc(recs, func(a, b Recommendation) int {
		return b.PotentialPoints - a.PotentialPoints
	})
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// Plan is the improvement plan toward a target score.
type Plan struct {
	Target            int              `json:"target"`
	CurrentScore      int              `json:"current_score"`
	ImprovementNeeded int              `json:"improvement_needed"`
	Reached           bool             `json:"reached"`
	Recommendations   []Recommendation `json:"recommendations"`
}

// BuildPlan returns an empty recommendation list once the target is reached.
func BuildPlan(current []Component, target int) Plan {
	score := Total(current)
	p := Plan{Target: target, CurrentScore: score, ImprovementNeeded: target - score}
	if p.ImprovementNeeded <= 0 {
		p.Reached = true
		p.Recommendations = []Recommendation{}
		return p
	}
	p.Recommendations = Recommend(current)
	return p
}
