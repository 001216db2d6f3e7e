package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

func TestCompileCost(t *testing.T) {
	s := state.NewSnapshot(map[string]state.Value{
		"hunger":  state.Num(85),
		"hasFood": state.Bool(true),
	})

	tests := []struct {
		name string
		src  string
		ec   Context
		want float64
	}{
		{
			name: "threat scales the cost",
			src:  "5 + threat_level * 3",
			ec:   Context{ThreatLevel: 90},
			want: 275,
		},
		{
			name: "calm situation keeps the base",
			src:  "5 + threat_level * 3",
			ec:   Context{ThreatLevel: 0},
			want: 5,
		},
		{
			name: "snapshot accessors",
			src:  "num('hunger') / 10",
			want: 8.5,
		},
		{
			name: "boolean flag steers a branch",
			src:  "flag('hasFood') ? 1.0 : 50.0",
			want: 1,
		},
		{
			name: "missing predicate reads zero",
			src:  "num('arrows') + 2",
			want: 2,
		},
		{
			name: "extra signals by name",
			src:  "signal('lava_proximity') * 2",
			ec:   Context{Extra: map[string]float64{"lava_proximity": 7}},
			want: 14,
		},
		{
			name: "integer expression coerces to float",
			src:  "2 + 3",
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := CompileCost(tt.src)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, fn(s, tt.ec), 1e-9)
		})
	}
}

func TestCompileCost_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown identifier", "5 + mana_level"},
		{"syntax error", "5 +"},
		{"non-numeric result", `"high"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileCost(tt.src)
			assert.Error(t, err)
		})
	}
}

func TestCompileCost_Purity(t *testing.T) {
	fn, err := CompileCost("num('hunger') + threat_level")
	require.NoError(t, err)

	s := state.NewSnapshot(map[string]state.Value{"hunger": state.Num(40)})
	ec := Context{ThreatLevel: 2}

	first := fn(s, ec)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, fn(s, ec))
	}
}
