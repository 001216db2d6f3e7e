// Package action defines the agent's action vocabulary: what it can do,
// what each action requires and changes, and what each action costs in the
// current situation. A validated Model of actions is the search space for
// the planner; the executor resolves each planned action to a gateway
// capability at dispatch time.
package action

import (
	"fmt"
	"math"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

// Canonical execution-context signal names, shared by cost expressions,
// reflex trigger expressions, and heuristics.
const (
	SignalThreatLevel      = "threat_level"
	SignalHostileCount     = "hostile_count"
	SignalDistanceToTarget = "distance_to_target"
	SignalVisibility       = "visibility"
	SignalUrgency          = "urgency"
	SignalCommitment       = "commitment"
)

// Context carries the numeric signals an action cost consults that are not
// part of the world state: threat posture, target geometry, and the goal's
// urgency and commitment strength from the upstream supplier. It is
// read-only for the duration of one planning call.
type Context struct {
	ThreatLevel      float64
	HostileCount     float64
	DistanceToTarget float64
	Visibility       float64
	Urgency          float64
	Commitment       float64

	// Extra holds host-specific signals addressed by name.
	Extra map[string]float64
}

// Signal resolves a named signal, falling back to Extra for host-specific
// names. Unknown names read as 0.
func (c Context) Signal(name string) (float64, bool) {
	switch name {
	case SignalThreatLevel:
		return c.ThreatLevel, true
	case SignalHostileCount:
		return c.HostileCount, true
	case SignalDistanceToTarget:
		return c.DistanceToTarget, true
	case SignalVisibility:
		return c.Visibility, true
	case SignalUrgency:
		return c.Urgency, true
	case SignalCommitment:
		return c.Commitment, true
	}
	v, ok := c.Extra[name]
	return v, ok
}

// CostFunc computes an action's situational cost. Implementations must be
// pure: same snapshot and context, same cost, no side effects.
type CostFunc func(s state.Snapshot, ec Context) float64

// Action is one step the agent can take. Preconditions are comparison terms
// that must hold before dispatch; effects are mutation terms the planner
// assumes and the world applies on success. An Action is immutable once
// registered in a Model.
type Action struct {
	Name          string
	Preconditions []state.Term
	Effects       []state.Term

	// BaseCost is the situation-independent cost, used whenever CostFn is nil.
	BaseCost float64

	// CostFn, when set, replaces BaseCost with a situational cost.
	CostFn CostFunc

	// Capability names the gateway handle that executes this action;
	// Params are passed through to the gateway unchanged.
	Capability string
	Params     map[string]state.Value
}

// Cost returns the action's cost in the given situation, guaranteed
// non-negative and finite. A CostFn that misbehaves (negative, NaN, Inf)
// is clamped rather than trusted.
func (a Action) Cost(s state.Snapshot, ec Context) float64 {
	if a.CostFn == nil {
		return a.BaseCost
	}
	c := a.CostFn(s, ec)
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if math.IsInf(c, 1) {
		return math.MaxFloat64
	}
	return c
}

// Validate checks structural well-formedness before registration.
func (a Action) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("action name cannot be empty")
	}
	if a.BaseCost < 0 || math.IsNaN(a.BaseCost) || math.IsInf(a.BaseCost, 0) {
		return fmt.Errorf("action %q: base cost must be finite and non-negative, got %v", a.Name, a.BaseCost)
	}
	if a.Capability == "" {
		return fmt.Errorf("action %q: capability cannot be empty", a.Name)
	}
	if len(a.Effects) == 0 {
		return fmt.Errorf("action %q: at least one effect is required", a.Name)
	}
	if err := state.ValidateTerms(a.Preconditions, false); err != nil {
		return fmt.Errorf("action %q preconditions: %w", a.Name, err)
	}
	if err := state.ValidateTerms(a.Effects, true); err != nil {
		return fmt.Errorf("action %q effects: %w", a.Name, err)
	}
	return nil
}

// clone deep-copies the action so registered actions cannot be aliased
// through the caller's slices or maps.
func (a Action) clone() Action {
	c := a
	c.Preconditions = append([]state.Term(nil), a.Preconditions...)
	c.Effects = append([]state.Term(nil), a.Effects...)
	if a.Params != nil {
		c.Params = make(map[string]state.Value, len(a.Params))
		for k, v := range a.Params {
			c.Params[k] = v
		}
	}
	return c
}
