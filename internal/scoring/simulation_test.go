package scoring

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioComponents is the breakdown of a single active card at 24% utilization.
func scenarioComponents() []Component {
	return []Component{
		{Name: Utilization, Points: 35, MaxPoints: 40, Description: "Utilization: 24.0%"},
		{Name: PaymentHistory, Points: 25, MaxPoints: 25, Description: "Avg days since payment: 5"},
		{Name: CreditMix, Points: 5, MaxPoints: 20, Description: "Product types: 1"},
		{Name: AccountActivity, Points: 4, MaxPoints: 10, Description: "Active accounts: 1"},
		{Name: OverdueBehavior, Points: 5, MaxPoints: 5, Description: "Overdue ratio: 0.0%"},
	}
}

func TestSimulation_SetClampsPoints(t *testing.T) {
	sim := NewSimulation(DefaultTarget)

	require.NoError(t, sim.Set(Utilization, 100))
	require.NoError(t, sim.Set(OverdueBehavior, -3))
	assert.Equal(t, map[ComponentName]int{Utilization: 40, OverdueBehavior: 0}, sim.Overrides())

	assert.Error(t, sim.Set(ComponentName("Income"), 10))
}

func TestSimulation_ViewIsAdditive(t *testing.T) {
	current := scenarioComponents()
	sim := NewSimulation(DefaultTarget)
	require.NoError(t, sim.Set(CreditMix, 20))

	v := sim.View(current)

	assert.Equal(t, 74, v.CurrentScore)
	assert.Equal(t, 89, v.SimulatedScore)
	assert.Equal(t, 15, v.DeltaVsCurrent)
	assert.Equal(t, 9, v.DeltaVsTarget)
	assert.Equal(t, 100.0, v.ProgressPct)
	assert.Equal(t, Fair, v.CurrentCategory)
	// current components are left untouched
	assert.Equal(t, 5, current[2].Points)
	assert.Equal(t, 20, v.Components[2].Points)
}

func TestSimulation_ResetAndTarget(t *testing.T) {
	sim := NewSimulation(150)
	assert.Equal(t, 100, sim.Target())
	sim.SetTarget(-5)
	assert.Equal(t, 0, sim.Target())

	require.NoError(t, sim.Set(AccountActivity, 10))
	sim.Reset()
	v := sim.View(scenarioComponents())
	assert.Equal(t, v.CurrentScore, v.SimulatedScore)
	assert.Equal(t, 0.0, v.ProgressPct)
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Progress(50, 0))
	assert.InDelta(t, 92.5, Progress(74, 80), 1e-9)
	assert.Equal(t, 100.0, Progress(95, 80))
}

func TestRecommend_RanksByPotential(t *testing.T) {
	recs := Recommend(scenarioComponents())

	require.Len(t, recs, 3)
	assert.Equal(t, CreditMix, recs[0].Component)
	assert.Equal(t, 15, recs[0].PotentialPoints)
	assert.Equal(t, AccountActivity, recs[1].Component)
	assert.Equal(t, Utilization, recs[2].Component)
	assert.Equal(t, "Maintain 3+ different credit products", recs[0].TargetState)
	assert.Equal(t, "Product types: 1", recs[0].CurrentState)
	assert.Len(t, recs[0].ActionSteps, 3)
	assert.InDelta(t, 25.0, recs[0].ProgressPct, 1e-9)
}

func TestRecommend_TiesKeepComponentOrder(t *testing.T) {
	cs := []Component{
		{Name: Utilization, Points: 35, MaxPoints: 40},
		{Name: PaymentHistory, Points: 20, MaxPoints: 25},
		{Name: CreditMix, Points: 15, MaxPoints: 20},
		{Name: AccountActivity, Points: 5, MaxPoints: 10},
		{Name: OverdueBehavior, Points: 5, MaxPoints: 5},
	}
	recs := Recommend(cs)
	require.Len(t, recs, 3)
	assert.Equal(t, []ComponentName{Utilization, PaymentHistory, CreditMix},
		[]ComponentName{recs[0].Component, recs[1].Component, recs[2].Component})
}

func TestRecommend_SkipsMaxedComponents(t *testing.T) {
	cs := scenarioComponents()
	for i := range cs {
		cs[i].Points = cs[i].MaxPoints
	}
	cs[3].Points = 8
	recs := Recommend(cs)
	require.Len(t, recs, 1)
	assert.Equal(t, AccountActivity, recs[0].Component)
}

func TestBuildPlan(t *testing.T) {
	plan := BuildPlan(scenarioComponents(), 80)
	assert.False(t, plan.Reached)
	assert.Equal(t, 6, plan.ImprovementNeeded)
	assert.Len(t, plan.Recommendations, 3)

	reached := BuildPlan(scenarioComponents(), 70)
	assert.True(t, reached.Reached)
	assert.Empty(t, reached.Recommendations)
}

func TestActionSteps_UnknownComponent(t *testing.T) {
	assert.Equal(t, []string{"Consult with a financial advisor for personalized guidance"}, ActionSteps("Income"))
	assert.Equal(t, "Reach maximum points", TargetState("Income"))
}

func TestGenerateHistory(t *testing.T) {
	now := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	a := GenerateHistory(rand.New(rand.NewSource(7)), now, DefaultHistoryPeriods)
	b := GenerateHistory(rand.New(rand.NewSource(7)), now, DefaultHistoryPeriods)

	require.Len(t, a, 12)
	assert.Equal(t, a, b)
	assert.Equal(t, time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC), a[0].Date)
	assert.Equal(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), a[11].Date)

	prev := historyBaseScore
	for i, p := range a {
		assert.GreaterOrEqual(t, p.Score, 0)
		assert.LessOrEqual(t, p.Score, 100)
		if p.Score > 0 && p.Score < 100 {
			step := p.Score - prev
			assert.GreaterOrEqual(t, step, historyStepMin, "point %d", i)
			assert.LessOrEqual(t, step, historyStepMax, "point %d", i)
		}
		if i > 0 {
			assert.True(t, p.Date.After(a[i-1].Date))
		}
		prev = p.Score
	}
	assert.Equal(t, a[11].Score-a[10].Score, ScoreChange(a))
}

func TestGenerateHistory_MonthEndInput(t *testing.T) {
	now := time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC)
	h := GenerateHistory(rand.New(rand.NewSource(1)), now, 3)
	require.Len(t, h, 3)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), h[2].Date)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), h[0].Date)

	assert.Nil(t, GenerateHistory(rand.New(rand.NewSource(1)), now, 0))
	assert.Equal(t, 0, ScoreChange(nil))
}
