package goap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

func TestDistanceHeuristic(t *testing.T) {
	goal := Goal{
		Name:  "reach_shelter",
		Kind:  GoalLocation,
		Terms: []state.Term{state.NewTerm("distance", state.OpLte, state.Num(2), "shelter")},
	}

	tests := []struct {
		name     string
		snap     state.Snapshot
		want     float64
		computed bool
	}{
		{
			name:     "far from target",
			snap:     state.NewSnapshot(map[string]state.Value{"distance(shelter)": state.Num(10)}),
			want:     8,
			computed: true,
		},
		{
			name:     "inside the radius",
			snap:     state.NewSnapshot(map[string]state.Value{"distance(shelter)": state.Num(1)}),
			want:     0,
			computed: true,
		},
		{
			name:     "absent binding reads zero under the closed world",
			snap:     state.NewSnapshot(nil),
			want:     0,
			computed: true,
		},
		{
			name:     "non-numeric binding cannot be measured",
			snap:     state.NewSnapshot(map[string]state.Value{"distance(shelter)": state.Str("far")}),
			computed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DistanceHeuristic(tt.snap, goal, action.Context{})
			assert.Equal(t, tt.computed, ok)
			if tt.computed {
				assert.Equal(t, tt.want, got)
			}
		})
	}

	// A location goal with no numeric term has no distance to measure.
	flagOnly := Goal{
		Name:  "at_shelter",
		Kind:  GoalLocation,
		Terms: []state.Term{state.NewTerm("atShelter", state.OpEq, state.Bool(true))},
	}
	_, ok := DistanceHeuristic(state.NewSnapshot(nil), flagOnly, action.Context{})
	assert.False(t, ok)
}

func TestDeficitHeuristic(t *testing.T) {
	goal := Goal{
		Name: "stock_up",
		Kind: GoalAcquire,
		Terms: []state.Term{
			state.NewTerm("wood", state.OpGte, state.Num(5)),
			state.NewTerm("hasAxe", state.OpEq, state.Bool(true)),
		},
	}

	tests := []struct {
		name string
		snap state.Snapshot
		want float64
	}{
		{
			name: "quantity shortfall plus missing flag",
			snap: state.NewSnapshot(map[string]state.Value{"wood": state.Num(2)}),
			want: 4, // 3 wood missing + 1 for the axe
		},
		{
			name: "flag already held",
			snap: state.NewSnapshot(map[string]state.Value{
				"wood":   state.Num(2),
				"hasAxe": state.Bool(true),
			}),
			want: 3,
		},
		{
			name: "fully satisfied",
			snap: state.NewSnapshot(map[string]state.Value{
				"wood":   state.Num(7),
				"hasAxe": state.Bool(true),
			}),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DeficitHeuristic(tt.snap, goal, action.Context{})
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestThreatHeuristic(t *testing.T) {
	goal := Goal{
		Name:  "get_safe",
		Kind:  GoalSurvive,
		Terms: []state.Term{state.NewTerm("safe", state.OpEq, state.Bool(true))},
	}

	unsafe := state.NewSnapshot(nil)
	safe := state.NewSnapshot(map[string]state.Value{"safe": state.Bool(true)})

	got, ok := ThreatHeuristic(unsafe, goal, action.Context{ThreatLevel: 42})
	assert.True(t, ok)
	assert.Equal(t, 42.0, got)

	got, ok = ThreatHeuristic(safe, goal, action.Context{ThreatLevel: 42})
	assert.True(t, ok)
	assert.Equal(t, 0.0, got, "satisfied survive goals cost nothing more")

	got, ok = ThreatHeuristic(unsafe, goal, action.Context{ThreatLevel: -3})
	assert.True(t, ok)
	assert.Equal(t, 0.0, got, "negative threat clamps to zero to stay admissible")
}

func TestHeuristicFor(t *testing.T) {
	snap := state.NewSnapshot(map[string]state.Value{"wood": state.Num(1)})
	goal := Goal{
		Name:  "g",
		Terms: []state.Term{state.NewTerm("wood", state.OpGte, state.Num(3))},
	}

	cases := []struct {
		kind GoalKind
		want float64
	}{
		{GoalAcquire, 2},
		{GoalLocation, 2},
		{GoalCustom, 0},
		{GoalKind("unknown"), 0},
	}
	for _, tc := range cases {
		goal.Kind = tc.kind
		h := HeuristicFor(tc.kind)
		got, ok := h(snap, goal, action.Context{})
		assert.True(t, ok, "kind %s", tc.kind)
		assert.Equal(t, tc.want, got, "kind %s", tc.kind)
	}
}
