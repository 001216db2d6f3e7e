package action

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

const survivalSet = `
actions:
  - name: eat_food
    capability: consume
    base_cost: 5
    cost: "5 + threat_level * 3"
    params:
      item: any_food
    preconditions:
      - {predicate: hasFood, op: "==", value: true}
    effects:
      - {predicate: hunger, op: "-=", value: 30}
      - {predicate: hasFood, op: "=", value: false}
  - name: hunt_animal
    capability: hunt
    base_cost: 12
    preconditions:
      - {predicate: animalsNearby, op: "==", value: true}
    effects:
      - {predicate: hasFood, op: "=", value: true}
`

func TestParseSet(t *testing.T) {
	model, err := ParseSet([]byte(survivalSet))
	require.NoError(t, err)
	require.Equal(t, 2, model.Len())
	assert.Equal(t, []string{"eat_food", "hunt_animal"}, model.Names())

	eat, ok := model.Get("eat_food")
	require.True(t, ok)
	assert.Equal(t, "consume", eat.Capability)
	require.NotNil(t, eat.CostFn, "cost expression should compile into CostFn")

	cost := eat.Cost(state.Snapshot{}, Context{ThreatLevel: 90})
	assert.InDelta(t, 275, cost, 1e-9)

	require.Len(t, eat.Params, 1)
	assert.True(t, state.Str("any_food").Equal(eat.Params["item"]))

	hunt, ok := model.Get("hunt_animal")
	require.True(t, ok)
	assert.Nil(t, hunt.CostFn)
	assert.Equal(t, 12.0, hunt.Cost(state.Snapshot{}, Context{}))
}

func TestParseSet_Errors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantCode types.ErrorCode
	}{
		{
			name:     "unknown field rejected",
			yaml:     "actions:\n  - name: a\n    capability: c\n    cooldown: 3\n    effects:\n      - {predicate: p, op: \"=\", value: 1}\n",
			wantCode: types.CONFIG_PARSE_FAILED,
		},
		{
			name:     "empty set rejected",
			yaml:     "actions: []\n",
			wantCode: types.MODEL_INVALID,
		},
		{
			name:     "bad cost expression",
			yaml:     "actions:\n  - name: a\n    capability: c\n    cost: \"5 +\"\n    effects:\n      - {predicate: p, op: \"=\", value: 1}\n",
			wantCode: types.MODEL_INVALID,
		},
		{
			name:     "duplicate action names",
			yaml:     "actions:\n  - name: a\n    capability: c\n    effects:\n      - {predicate: p, op: \"=\", value: 1}\n  - name: a\n    capability: c\n    effects:\n      - {predicate: p, op: \"=\", value: 1}\n",
			wantCode: types.MODEL_INVALID,
		},
		{
			name:     "invalid action in set",
			yaml:     "actions:\n  - name: a\n    capability: c\n",
			wantCode: types.MODEL_INVALID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSet([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.NewError(tt.wantCode, "")),
				"want code %s, got %v", tt.wantCode, err)
		})
	}
}

func TestLoadSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survival.yaml")
	require.NoError(t, os.WriteFile(path, []byte(survivalSet), 0o644))

	model, err := LoadSet(path)
	require.NoError(t, err)
	assert.Equal(t, 2, model.Len())

	_, err = LoadSet(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.CONFIG_LOAD_FAILED, "")))
}
