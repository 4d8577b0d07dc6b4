package scoring

import (
	"fmt"
	"maps"
	"math"
)

// DefaultTarget is the target score a new simulation starts with.
const DefaultTarget = 80

// Simulation holds hypothetical component points and a target total for one
// customer. Overrides are applied on top of the current components, so the
// simulated total is a plain sum and never re-derived from products.
type Simulation struct {
	target    int
	overrides map[ComponentName]int
}

func NewSimulation(target int) *Simulation {
	s := &Simulation{overrides: make(map[ComponentName]int)}
	s.SetTarget(target)
	return s
}

func (s *Simulation) Target() int { return s.target }

// SetTarget clamps target to [0, MaxScore].
func (s *Simulation) SetTarget(target int) {
	s.target = clamp(target, 0, MaxScore)
}

// Set overrides a component's points, clamped to [0, max_points].
func (s *Simulation) Set(name ComponentName, points int) error {
	max := name.MaxPoints()
	if max == 0 {
		return fmt.Errorf("unknown score component %q", name)
	}
	s.overrides[name] = clamp(points, 0, max)
	return nil
}

// Reset drops every override so the simulation mirrors the current score.
func (s *Simulation) Reset() {
	clear(s.overrides)
}

func (s *Simulation) Overrides() map[ComponentName]int {
	return maps.Clone(s.overrides)
}

// Apply returns a copy of current with the overrides in place.
func (s *Simulation) Apply(current []Component) []Component {
	out := make([]Component, len(current))
	copy(out, current)
	for i := range out {
		if p, ok := s.overrides[out[i].Name]; ok {
			out[i].Points = p
		}
	}
	return out
}

// SimulationView is the state rendered for the client.
type SimulationView struct {
	Target          int         `json:"target"`
	CurrentScore    int         `json:"current_score"`
	SimulatedScore  int         `json:"simulated_score"`
	DeltaVsCurrent  int         `json:"delta_vs_current"`
	DeltaVsTarget   int         `json:"delta_vs_target"`
	ProgressPct     float64     `json:"progress_pct"`
	Components      []Component `json:"components"`
	CurrentCategory Category    `json:"current_category"`
}

// View evaluates the simulation against the current components.
func (s *Simulation) View(current []Component) SimulationView {
	simulated := s.Apply(current)
	cur := Total(current)
	sim := Total(simulated)
	return SimulationView{
		Target:          s.target,
		CurrentScore:    cur,
		SimulatedScore:  sim,
		DeltaVsCurrent:  sim - cur,
		DeltaVsTarget:   sim - s.target,
		ProgressPct:     Progress(sim, s.target),
		Components:      simulated,
		CurrentCategory: CategoryFor(cur),
	}
}

// Progress is score as a percentage of target, capped at 100; 0 for a zero target.
func Progress(score, target int) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(float64(score)/float64(target)*100, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
