package goap

import (
	"time"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// Step is one planned action with the cost recorded when the search
// expanded it. Recorded costs are what plan totals and repair decisions
// reason over; they are never re-derived later.
type Step struct {
	Action action.Action `json:"-"`
	Name   string        `json:"name"`
	Cost   float64       `json:"cost"`
}

// Plan is an ordered action sequence that carries the goal it satisfies and
// its total cost. A Plan is immutable after creation: repair and replanning
// build new Plans, the executor only reads. TotalCost always equals the sum
// of the step costs.
type Plan struct {
	ID        types.ID  `json:"id"`
	Goal      Goal      `json:"goal"`
	Steps     []Step    `json:"steps"`
	TotalCost float64   `json:"total_cost"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPlan assembles a plan from finished steps, totaling their recorded
// costs. The steps slice is copied.
func NewPlan(goal Goal, steps []Step, now time.Time) *Plan {
	copied := make([]Step, len(steps))
	copy(copied, steps)

	total := 0.0
	for _, s := range copied {
		total += s.Cost
	}

	return &Plan{
		ID:        types.NewID(),
		Goal:      goal,
		Steps:     copied,
		TotalCost: total,
		CreatedAt: now,
	}
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.Steps)
}

// IsEmpty reports a zero-step plan, produced when the start state already
// satisfies the goal.
func (p *Plan) IsEmpty() bool {
	return len(p.Steps) == 0
}

// ActionNames returns the step names in order. Edit distance between plans
// is computed over these sequences.
func (p *Plan) ActionNames() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

// RemainingCost sums the recorded costs of steps[from:]. Out-of-range
// indices clamp: a cursor past the end has nothing left to pay.
func (p *Plan) RemainingCost(from int) float64 {
	if from < 0 {
		from = 0
	}
	total := 0.0
	for i := from; i < len(p.Steps); i++ {
		total += p.Steps[i].Cost
	}
	return total
}
