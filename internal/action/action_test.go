package action

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

func eatAction() Action {
	return Action{
		Name:       "eat_food",
		Capability: "consume",
		BaseCost:   5,
		Preconditions: []state.Term{
			state.NewTerm("hasFood", state.OpEq, state.Bool(true)),
		},
		Effects: []state.Term{
			state.NewTerm("hunger", state.OpSub, state.Num(30)),
			state.NewTerm("hasFood", state.OpSet, state.Bool(false)),
		},
	}
}

func TestAction_Cost(t *testing.T) {
	s := state.NewSnapshot(map[string]state.Value{"hunger": state.Num(85)})

	tests := []struct {
		name   string
		action Action
		ec     Context
		want   float64
	}{
		{
			name:   "nil cost function falls back to base cost",
			action: eatAction(),
			want:   5,
		},
		{
			name: "dynamic cost reads the execution context",
			action: func() Action {
				a := eatAction()
				a.CostFn = func(_ state.Snapshot, ec Context) float64 {
					return a.BaseCost + ec.ThreatLevel*3
				}
				return a
			}(),
			ec:   Context{ThreatLevel: 90},
			want: 275,
		},
		{
			name: "negative cost clamps to zero",
			action: func() Action {
				a := eatAction()
				a.CostFn = func(state.Snapshot, Context) float64 { return -4 }
				return a
			}(),
			want: 0,
		},
		{
			name: "NaN cost clamps to zero",
			action: func() Action {
				a := eatAction()
				a.CostFn = func(state.Snapshot, Context) float64 { return math.NaN() }
				return a
			}(),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.Cost(s, tt.ec))
		})
	}
}

func TestAction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Action)
		wantErr string
	}{
		{"valid", func(a *Action) {}, ""},
		{"empty name", func(a *Action) { a.Name = "" }, "name cannot be empty"},
		{"negative base cost", func(a *Action) { a.BaseCost = -1 }, "non-negative"},
		{"empty capability", func(a *Action) { a.Capability = "" }, "capability cannot be empty"},
		{"no effects", func(a *Action) { a.Effects = nil }, "at least one effect"},
		{
			"mutation op in preconditions",
			func(a *Action) { a.Preconditions = []state.Term{state.NewTerm("hunger", state.OpSub, state.Num(1))} },
			"comparison operator",
		},
		{
			"comparison op in effects",
			func(a *Action) { a.Effects = []state.Term{state.NewTerm("hunger", state.OpGte, state.Num(1))} },
			"mutation operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := eatAction()
			tt.mutate(&a)
			err := a.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestModel_Register(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Register(eatAction()))

	err := m.Register(eatAction())
	require.Error(t, err, "duplicate names must be rejected")
	assert.Contains(t, err.Error(), "duplicate action name")

	invalid := eatAction()
	invalid.Capability = ""
	invalid.Name = "broken"
	require.Error(t, m.Register(invalid))

	assert.Equal(t, 1, m.Len())
}

func TestModel_RegistrationOrder(t *testing.T) {
	m := NewModel()

	names := []string{"move_to_food", "eat_food", "flee"}
	for _, n := range names {
		a := eatAction()
		a.Name = n
		require.NoError(t, m.Register(a))
	}

	assert.Equal(t, names, m.Names())

	got := make([]string, 0, m.Len())
	for _, a := range m.Actions() {
		got = append(got, a.Name)
	}
	assert.Equal(t, names, got)
}

func TestModel_GetReturnsCopy(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Register(eatAction()))

	a, ok := m.Get("eat_food")
	require.True(t, ok)

	// Mutating the copy must not reach the registry.
	a.Effects[0] = state.NewTerm("hunger", state.OpAdd, state.Num(999))
	a.BaseCost = 999

	fresh, ok := m.Get("eat_food")
	require.True(t, ok)
	assert.Equal(t, 5.0, fresh.BaseCost)
	assert.Equal(t, state.OpSub, fresh.Effects[0].Op)

	_, ok = m.Get("dig")
	assert.False(t, ok)
}
