// Package reflex implements the zero-deliberation safety layer: a fixed
// table of triggers evaluated synchronously every tick, producing at most
// one override action that preempts planning and execution entirely.
//
// Triggers fire only on observed facts. An absent predicate never trips
// a reflex, so an agent with no hazard reading does not retreat from a
// hazard at distance zero.
package reflex

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/time/rate"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// DefaultBudget is the wall-clock allowance for dispatching a fired
// reflex through the gateway.
const DefaultBudget = 5 * time.Millisecond

// Built-in reflex names.
const (
	ReflexEmergencyEat      = "emergency_eat"
	ReflexSurfaceForAir     = "surface_for_air"
	ReflexRetreatFromHazard = "retreat_from_hazard"
	ReflexEvadeSwarm        = "evade_swarm"
)

// Built-in reflex priorities. Higher wins.
const (
	PriorityEmergencyEat      = 1000
	PrioritySurfaceForAir     = 900
	PriorityRetreatFromHazard = 800
	PriorityEvadeSwarm        = 700
)

// Snapshot predicates the built-in triggers read.
const (
	FactHealth         = "health"
	FactHasFood        = "hasFood"
	FactBreath         = "breath"
	FactSubmerged      = "submerged"
	FactHazardDistance = "hazardDistance"
)

// Thresholds are the tunable firing bounds for the built-in triggers.
type Thresholds struct {
	// CriticalHealth fires emergency_eat when health drops below it
	// while a restorative item is held.
	CriticalHealth float64 `json:"critical_health" yaml:"critical_health" mapstructure:"critical_health" validate:"gte=0"`

	// CriticalBreath fires surface_for_air when breath drops below it
	// while submerged.
	CriticalBreath float64 `json:"critical_breath" yaml:"critical_breath" mapstructure:"critical_breath" validate:"gte=0"`

	// HazardDistance fires retreat_from_hazard when an observed
	// instant-death hazard is at or inside this distance.
	HazardDistance float64 `json:"hazard_distance" yaml:"hazard_distance" mapstructure:"hazard_distance" validate:"gte=0"`

	// SwarmSize and LowVisibility together fire evade_swarm when the
	// hostile count reaches SwarmSize with visibility below
	// LowVisibility.
	SwarmSize     float64 `json:"swarm_size" yaml:"swarm_size" mapstructure:"swarm_size" validate:"gte=0"`
	LowVisibility float64 `json:"low_visibility" yaml:"low_visibility" mapstructure:"low_visibility" validate:"gte=0,lte=1"`
}

// DefaultThresholds returns the stock firing bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalHealth: 20,
		CriticalBreath: 20,
		HazardDistance: 3,
		SwarmSize:      5,
		LowVisibility:  0.5,
	}
}

// SafetyAction is the override an evaluator produces: recomputed every
// tick, never cached, dispatched with no precondition check and no cost
// evaluation.
type SafetyAction struct {
	Name       string
	Priority   int
	Capability string
	Params     map[string]state.Value
}

// CustomTrigger defines a config-supplied reflex. When is a boolean
// expression over state predicates and context signals, compiled with
// the same environment cost expressions use.
type CustomTrigger struct {
	Name       string                 `json:"name" yaml:"name" mapstructure:"name"`
	Priority   int                    `json:"priority" yaml:"priority" mapstructure:"priority"`
	Capability string                 `json:"capability" yaml:"capability" mapstructure:"capability"`
	When       string                 `json:"when" yaml:"when" mapstructure:"when"`
	Params     map[string]state.Value `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params,omitempty"`
}

// Precedence ranks for equal-priority ties: built-ins in their fixed
// order first, then custom triggers in declaration order.
const (
	rankHealthCritical = iota
	rankDrowning
	rankInstantHazard
	rankHostileSwarm
	rankCustom
)

type trigger struct {
	name       string
	priority   int
	rank       int
	decl       int
	capability string
	params     map[string]state.Value
	fire       func(s state.Snapshot, ec action.Context) bool
}

// Evaluator holds the sorted trigger table. Evaluation is O(n) over a
// fixed, small n with no search and no allocation on the miss path.
type Evaluator struct {
	thresholds Thresholds
	triggers   []trigger
	decls      int
	logger     *slog.Logger
	exprWarn   rate.Sometimes
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithThresholds overrides the built-in firing bounds.
func WithThresholds(th Thresholds) Option {
	return func(e *Evaluator) {
		e.thresholds = th
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger.With("component", "safety_reflex")
		}
	}
}

// NewEvaluator builds an evaluator with the four built-in triggers
// installed.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		thresholds: DefaultThresholds(),
		logger:     slog.Default().With("component", "safety_reflex"),
		exprWarn:   rate.Sometimes{Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.installBuiltins()
	e.sortTriggers()
	return e
}

func (e *Evaluator) installBuiltins() {
	th := e.thresholds
	e.triggers = append(e.triggers,
		trigger{
			name:       ReflexEmergencyEat,
			priority:   PriorityEmergencyEat,
			rank:       rankHealthCritical,
			capability: "consume",
			fire: func(s state.Snapshot, _ action.Context) bool {
				health, ok := observed(s, FactHealth)
				return ok && health < th.CriticalHealth && s.Flag(FactHasFood)
			},
		},
		trigger{
			name:       ReflexSurfaceForAir,
			priority:   PrioritySurfaceForAir,
			rank:       rankDrowning,
			capability: "navigate",
			fire: func(s state.Snapshot, _ action.Context) bool {
				breath, ok := observed(s, FactBreath)
				return ok && breath < th.CriticalBreath && s.Flag(FactSubmerged)
			},
		},
		trigger{
			name:       ReflexRetreatFromHazard,
			priority:   PriorityRetreatFromHazard,
			rank:       rankInstantHazard,
			capability: "navigate",
			fire: func(s state.Snapshot, _ action.Context) bool {
				dist, ok := observed(s, FactHazardDistance)
				return ok && dist <= th.HazardDistance
			},
		},
		trigger{
			name:       ReflexEvadeSwarm,
			priority:   PriorityEvadeSwarm,
			rank:       rankHostileSwarm,
			capability: "navigate",
			fire: func(_ state.Snapshot, ec action.Context) bool {
				return ec.HostileCount >= th.SwarmSize && ec.Visibility < th.LowVisibility
			},
		},
	)
}

// observed reads a numeric predicate only if it is actually present.
func observed(s state.Snapshot, key string) (float64, bool) {
	v, ok := s.Get(key)
	if !ok || v.Kind != state.KindNumber {
		return 0, false
	}
	return v.Num, true
}

// AddCustom compiles and installs a config-supplied trigger.
func (e *Evaluator) AddCustom(def CustomTrigger) error {
	if def.Name == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "custom trigger requires a name")
	}
	if def.Capability == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("custom trigger %q requires a capability", def.Name))
	}
	if def.Priority < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("custom trigger %q has negative priority %d", def.Name, def.Priority))
	}
	for _, tr := range e.triggers {
		if tr.name == def.Name {
			return types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("trigger %q already defined", def.Name))
		}
	}

	prog, err := expr.Compile(def.When,
		expr.Env(action.ExprEnv(state.Snapshot{}, action.Context{})),
		expr.AsBool(),
	)
	if err != nil {
		return types.WrapError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("custom trigger %q condition", def.Name), err)
	}

	params := make(map[string]state.Value, len(def.Params))
	for k, v := range def.Params {
		params[k] = v
	}

	e.decls++
	e.triggers = append(e.triggers, trigger{
		name:       def.Name,
		priority:   def.Priority,
		rank:       rankCustom,
		decl:       e.decls,
		capability: def.Capability,
		params:     params,
		fire:       e.customFire(def.Name, prog),
	})
	e.sortTriggers()
	return nil
}

func (e *Evaluator) customFire(name string, prog *vm.Program) func(state.Snapshot, action.Context) bool {
	return func(s state.Snapshot, ec action.Context) bool {
		out, err := expr.Run(prog, action.ExprEnv(s, ec))
		if err != nil {
			e.exprWarn.Do(func() {
				e.logger.Warn("custom trigger evaluation failed, treating as not firing",
					"trigger", name, "error", err)
			})
			return false
		}
		fired, ok := out.(bool)
		return ok && fired
	}
}

func (e *Evaluator) sortTriggers() {
	sort.SliceStable(e.triggers, func(i, j int) bool {
		a, b := e.triggers[i], e.triggers[j]
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		return a.decl < b.decl
	})
}

// Evaluate runs the trigger table against the current snapshot and
// signals and returns the single highest-priority firing safety action.
// Equal priorities resolve by built-in precedence rank, then by custom
// declaration order.
func (e *Evaluator) Evaluate(s state.Snapshot, ec action.Context) (SafetyAction, bool) {
	for i := range e.triggers {
		tr := &e.triggers[i]
		if !tr.fire(s, ec) {
			continue
		}
		e.logger.Debug("reflex fired",
			"reflex", tr.name,
			"priority", tr.priority)
		return SafetyAction{
			Name:       tr.name,
			Priority:   tr.priority,
			Capability: tr.capability,
			Params:     tr.params,
		}, true
	}
	return SafetyAction{}, false
}

// Triggers returns the installed trigger names in evaluation order.
func (e *Evaluator) Triggers() []string {
	names := make([]string, len(e.triggers))
	for i, tr := range e.triggers {
		names[i] = tr.name
	}
	return names
}
