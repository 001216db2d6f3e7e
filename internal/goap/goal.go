// Package goap implements bounded goal-oriented action planning: an A*
// search over the action model's state space that turns an upstream subgoal
// into an ordered, costed Plan. The search is deterministic, budget-bounded,
// and backed by a per-planner cache keyed on goal and state fingerprints.
package goap

import (
	"fmt"
	"sort"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// GoalKind selects the admissible heuristic used while searching toward the
// goal. Kinds outside this set fall back to the zero heuristic.
type GoalKind string

const (
	GoalLocation GoalKind = "location"
	GoalAcquire  GoalKind = "acquire"
	GoalSurvive  GoalKind = "survive"
	GoalCustom   GoalKind = "custom"
)

// Goal is a subgoal handed down by the upstream supplier: a named set of
// comparison terms the world state must satisfy, plus the supplier's urgency
// and commitment metadata. The core pursues goals; it never derives them.
type Goal struct {
	Name  string       `json:"name" yaml:"name"`
	Kind  GoalKind     `json:"kind" yaml:"kind"`
	Terms []state.Term `json:"terms" yaml:"terms"`

	// Urgency and Commitment flow into the execution context where dynamic
	// costs can weigh them. They are intensity, not identity: two goals that
	// differ only here fingerprint identically.
	Urgency    float64 `json:"urgency,omitempty" yaml:"urgency,omitempty"`
	Commitment float64 `json:"commitment,omitempty" yaml:"commitment,omitempty"`
}

// Validate reports whether the goal is well-formed enough to plan for.
// Violations surface as MALFORMED_GOAL.
func (g Goal) Validate() error {
	if g.Name == "" {
		return types.NewError(types.MALFORMED_GOAL, "goal name cannot be empty")
	}
	if len(g.Terms) == 0 {
		return types.NewError(types.MALFORMED_GOAL, "goal has no terms").
			WithContext("goal", g.Name)
	}
	if err := state.ValidateTerms(g.Terms, false); err != nil {
		return types.WrapError(types.MALFORMED_GOAL, fmt.Sprintf("goal %q", g.Name), err)
	}
	return nil
}

// Fingerprint returns the goal's stable 64-bit identity: name, kind, and
// canonical terms in normalized order. Goals that state the same terms in a
// different order fingerprint identically.
func (g Goal) Fingerprint() uint64 {
	canon := make([]string, len(g.Terms))
	for i, t := range g.Terms {
		canon[i] = t.Canonical()
	}
	sort.Strings(canon)

	parts := make([]string, 0, len(canon)+2)
	parts = append(parts, g.Name, string(g.Kind))
	parts = append(parts, canon...)
	return state.HashStrings(parts...)
}

// SatisfiedBy reports whether the snapshot already meets every goal term.
func (g Goal) SatisfiedBy(s state.Snapshot) bool {
	return s.SatisfiesAll(g.Terms)
}
