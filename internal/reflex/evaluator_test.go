package reflex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

func snap(facts map[string]state.Value) state.Snapshot {
	return state.NewSnapshot(facts)
}

func TestEvaluator_EmergencyEat(t *testing.T) {
	e := NewEvaluator()

	act, fired := e.Evaluate(snap(map[string]state.Value{
		"health":  state.Num(15),
		"hasFood": state.Bool(true),
	}), action.Context{})
	require.True(t, fired)
	assert.Equal(t, ReflexEmergencyEat, act.Name)
	assert.Equal(t, 1000, act.Priority)
	assert.Equal(t, "consume", act.Capability)
}

func TestEvaluator_BuiltinConditions(t *testing.T) {
	tests := []struct {
		name  string
		facts map[string]state.Value
		ec    action.Context
		want  string
	}{
		{
			name: "healthy agent stays quiet",
			facts: map[string]state.Value{
				"health":  state.Num(80),
				"hasFood": state.Bool(true),
			},
		},
		{
			name: "critical health without food stays quiet",
			facts: map[string]state.Value{
				"health": state.Num(10),
			},
		},
		{
			name: "unknown health never panics the agent",
			facts: map[string]state.Value{
				"hasFood": state.Bool(true),
			},
		},
		{
			name: "drowning",
			facts: map[string]state.Value{
				"breath":    state.Num(5),
				"submerged": state.Bool(true),
			},
			want: ReflexSurfaceForAir,
		},
		{
			name: "low breath on dry land stays quiet",
			facts: map[string]state.Value{
				"breath":    state.Num(5),
				"submerged": state.Bool(false),
			},
		},
		{
			name: "hazard in range",
			facts: map[string]state.Value{
				"hazardDistance": state.Num(2),
			},
			want: ReflexRetreatFromHazard,
		},
		{
			name: "hazard far away stays quiet",
			facts: map[string]state.Value{
				"hazardDistance": state.Num(10),
			},
		},
		{
			name:  "no hazard reading never reads as distance zero",
			facts: map[string]state.Value{},
		},
		{
			name: "swarm in the dark",
			ec:   action.Context{HostileCount: 8, Visibility: 0.2},
			want: ReflexEvadeSwarm,
		},
		{
			name: "swarm in daylight stays quiet",
			ec:   action.Context{HostileCount: 8, Visibility: 0.9},
		},
		{
			name: "few hostiles stay quiet",
			ec:   action.Context{HostileCount: 2, Visibility: 0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator()
			act, fired := e.Evaluate(snap(tt.facts), tt.ec)
			if tt.want == "" {
				assert.False(t, fired)
				return
			}
			require.True(t, fired)
			assert.Equal(t, tt.want, act.Name)
		})
	}
}

func TestEvaluator_HighestPriorityWins(t *testing.T) {
	e := NewEvaluator()

	// Everything is wrong at once: eat first.
	act, fired := e.Evaluate(snap(map[string]state.Value{
		"health":         state.Num(15),
		"hasFood":        state.Bool(true),
		"breath":         state.Num(5),
		"submerged":      state.Bool(true),
		"hazardDistance": state.Num(1),
	}), action.Context{HostileCount: 9, Visibility: 0.1})
	require.True(t, fired)
	assert.Equal(t, ReflexEmergencyEat, act.Name)
	assert.Equal(t, 1000, act.Priority)
}

func TestEvaluator_CustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.CriticalHealth = 50
	e := NewEvaluator(WithThresholds(th))

	_, fired := NewEvaluator().Evaluate(snap(map[string]state.Value{
		"health":  state.Num(40),
		"hasFood": state.Bool(true),
	}), action.Context{})
	assert.False(t, fired, "40 is above the stock threshold")

	act, fired := e.Evaluate(snap(map[string]state.Value{
		"health":  state.Num(40),
		"hasFood": state.Bool(true),
	}), action.Context{})
	require.True(t, fired)
	assert.Equal(t, ReflexEmergencyEat, act.Name)
}

func TestEvaluator_CustomTrigger(t *testing.T) {
	e := NewEvaluator()
	require.NoError(t, e.AddCustom(CustomTrigger{
		Name:       "flee_fire",
		Priority:   950,
		Capability: "navigate",
		When:       "num('fireDistance') > 0 and num('fireDistance') < 4 and threat_level > 10",
		Params:     map[string]state.Value{"direction": state.Str("away")},
	}))

	act, fired := e.Evaluate(snap(map[string]state.Value{
		"fireDistance": state.Num(2),
	}), action.Context{ThreatLevel: 60})
	require.True(t, fired)
	assert.Equal(t, "flee_fire", act.Name)
	assert.Equal(t, 950, act.Priority)
	assert.Equal(t, state.Str("away"), act.Params["direction"])

	_, fired = e.Evaluate(snap(map[string]state.Value{
		"fireDistance": state.Num(2),
	}), action.Context{ThreatLevel: 5})
	assert.False(t, fired, "low threat keeps the trigger quiet")
}

func TestEvaluator_EqualPriorityTieBreaks(t *testing.T) {
	// A custom trigger that always fires at a built-in's priority loses
	// the tie to the built-in.
	e := NewEvaluator()
	require.NoError(t, e.AddCustom(CustomTrigger{
		Name:       "always_on",
		Priority:   PriorityEmergencyEat,
		Capability: "wait",
		When:       "true",
	}))

	act, fired := e.Evaluate(snap(map[string]state.Value{
		"health":  state.Num(10),
		"hasFood": state.Bool(true),
	}), action.Context{})
	require.True(t, fired)
	assert.Equal(t, ReflexEmergencyEat, act.Name, "built-in precedence rank wins the tie")

	// When only the custom fires, it is selected.
	act, fired = e.Evaluate(snap(nil), action.Context{})
	require.True(t, fired)
	assert.Equal(t, "always_on", act.Name)

	// Two equal-priority customs resolve by declaration order.
	e2 := NewEvaluator()
	require.NoError(t, e2.AddCustom(CustomTrigger{
		Name: "first", Priority: 600, Capability: "wait", When: "true",
	}))
	require.NoError(t, e2.AddCustom(CustomTrigger{
		Name: "second", Priority: 600, Capability: "wait", When: "true",
	}))
	act, fired = e2.Evaluate(snap(nil), action.Context{})
	require.True(t, fired)
	assert.Equal(t, "first", act.Name)
}

func TestEvaluator_CustomOutranksBuiltins(t *testing.T) {
	e := NewEvaluator()
	require.NoError(t, e.AddCustom(CustomTrigger{
		Name:       "teleport_out",
		Priority:   1100,
		Capability: "warp",
		When:       "num('voidDistance') < 1",
	}))

	act, fired := e.Evaluate(snap(map[string]state.Value{
		"voidDistance": state.Num(0.5),
		"health":       state.Num(10),
		"hasFood":      state.Bool(true),
	}), action.Context{})
	require.True(t, fired)
	assert.Equal(t, "teleport_out", act.Name)
}

func TestEvaluator_AddCustomValidation(t *testing.T) {
	tests := []struct {
		name string
		def  CustomTrigger
	}{
		{
			name: "missing name",
			def:  CustomTrigger{Priority: 10, Capability: "wait", When: "true"},
		},
		{
			name: "missing capability",
			def:  CustomTrigger{Name: "x", Priority: 10, When: "true"},
		},
		{
			name: "negative priority",
			def:  CustomTrigger{Name: "x", Priority: -1, Capability: "wait", When: "true"},
		},
		{
			name: "duplicate of builtin",
			def:  CustomTrigger{Name: ReflexEvadeSwarm, Priority: 10, Capability: "wait", When: "true"},
		},
		{
			name: "unparsable condition",
			def:  CustomTrigger{Name: "x", Priority: 10, Capability: "wait", When: "((("},
		},
		{
			name: "unknown identifier",
			def:  CustomTrigger{Name: "x", Priority: 10, Capability: "wait", When: "lava_nearby"},
		},
		{
			name: "non-boolean condition",
			def:  CustomTrigger{Name: "x", Priority: 10, Capability: "wait", When: "1 + 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator()
			assert.Error(t, e.AddCustom(tt.def))
		})
	}
}

func TestEvaluator_Triggers(t *testing.T) {
	e := NewEvaluator()
	assert.Equal(t, []string{
		ReflexEmergencyEat,
		ReflexSurfaceForAir,
		ReflexRetreatFromHazard,
		ReflexEvadeSwarm,
	}, e.Triggers(), "built-ins in priority order")

	require.NoError(t, e.AddCustom(CustomTrigger{
		Name: "between", Priority: 850, Capability: "wait", When: "true",
	}))
	assert.Equal(t, []string{
		ReflexEmergencyEat,
		ReflexSurfaceForAir,
		"between",
		ReflexRetreatFromHazard,
		ReflexEvadeSwarm,
	}, e.Triggers())
}
