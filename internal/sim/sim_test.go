package sim

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/executor"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/goap"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

const scenarioYAML = `
name: breakfast
seed: 11
ticks: 40
tick_interval: 20ms
facts:
  hunger: 15
  hasFood: true
signals:
  threat_level: 0.4
  torch_count: 3
capabilities:
  - name: consume
    latency: 2ms
faults:
  - action: eat_food
    failures: 1
    rate: 0.25
goals:
  - name: stay_fed
    kind: survive
    terms:
      - predicate: hunger
        op: ">="
        value: 80
events:
  - tick: 5
    set:
      hasFood: false
    signals:
      urgency: 0.9
`

func TestScenario_Parse(t *testing.T) {
	sc, err := ParseScenario(strings.NewReader(scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "breakfast", sc.Name)
	assert.Equal(t, int64(11), sc.Seed)
	assert.Equal(t, 40, sc.Ticks)
	assert.Equal(t, Duration(20*time.Millisecond), sc.TickInterval)

	assert.Equal(t, state.Num(15), sc.Facts["hunger"])
	assert.Equal(t, state.Bool(true), sc.Facts["hasFood"])
	assert.Equal(t, 0.4, sc.Signals[action.SignalThreatLevel])
	assert.Equal(t, 3.0, sc.Signals["torch_count"])

	require.Len(t, sc.Capabilities, 1)
	assert.Equal(t, Duration(2*time.Millisecond), sc.Capabilities[0].Latency)

	require.Len(t, sc.Faults, 1)
	assert.Equal(t, "eat_food", sc.Faults[0].Action)
	assert.Equal(t, 1, sc.Faults[0].Failures)
	assert.Equal(t, 0.25, sc.Faults[0].Rate)

	require.Len(t, sc.Goals, 1)
	assert.Equal(t, goap.GoalSurvive, sc.Goals[0].Kind)
	require.Len(t, sc.Goals[0].Terms, 1)
	assert.Equal(t, state.OpGte, sc.Goals[0].Terms[0].Op)
	assert.Equal(t, state.Num(80), sc.Goals[0].Terms[0].Value)

	require.Len(t, sc.Events, 1)
	assert.Equal(t, state.Bool(false), sc.Events[0].Set["hasFood"])
	assert.Equal(t, 0.9, sc.Events[0].Signals[action.SignalUrgency])
}

func TestScenario_Defaults(t *testing.T) {
	sc, err := ParseScenario(strings.NewReader(`
name: tiny
capabilities:
  - name: consume
goals:
  - name: stay_fed
    kind: survive
    terms:
      - predicate: hunger
        op: ">="
        value: 80
`))
	require.NoError(t, err)
	assert.Equal(t, DefaultTicks, sc.Ticks)
	assert.Equal(t, Duration(DefaultTickInterval), sc.TickInterval)
}

func TestScenario_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code types.ErrorCode
	}{
		{
			name: "unknown field",
			yaml: "name: x\ntickz: 3\n",
			code: types.CONFIG_PARSE_FAILED,
		},
		{
			name: "bad duration",
			yaml: "name: x\ntick_interval: fast\n",
			code: types.CONFIG_PARSE_FAILED,
		},
		{
			name: "missing name",
			yaml: "capabilities:\n  - name: dig\n",
			code: types.CONFIG_VALIDATION_FAILED,
		},
		{
			name: "no capabilities",
			yaml: "name: x\ngoals:\n  - name: g\n    terms:\n      - predicate: p\n        op: \"==\"\n        value: true\n",
			code: types.CONFIG_VALIDATION_FAILED,
		},
		{
			name: "no goals",
			yaml: "name: x\ncapabilities:\n  - name: dig\n",
			code: types.CONFIG_VALIDATION_FAILED,
		},
		{
			name: "goal without terms",
			yaml: "name: x\ncapabilities:\n  - name: dig\ngoals:\n  - name: g\n",
			code: types.CONFIG_VALIDATION_FAILED,
		},
		{
			name: "fault rate out of range",
			yaml: "name: x\ncapabilities:\n  - name: dig\nfaults:\n  - action: a\n    rate: 1.5\ngoals:\n  - name: g\n    terms:\n      - predicate: p\n        op: \"==\"\n        value: true\n",
			code: types.CONFIG_VALIDATION_FAILED,
		},
		{
			name: "negative event tick",
			yaml: "name: x\ncapabilities:\n  - name: dig\nevents:\n  - tick: -1\ngoals:\n  - name: g\n    terms:\n      - predicate: p\n        op: \"==\"\n        value: true\n",
			code: types.CONFIG_VALIDATION_FAILED,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario(strings.NewReader(tt.yaml))
			assert.Equal(t, tt.code, types.CodeOf(err))
		})
	}
}

func TestScenario_EventsAt(t *testing.T) {
	sc := &Scenario{Events: []Event{
		{Tick: 3, Set: map[string]state.Value{"a": state.Num(1)}},
		{Tick: 3, Signals: map[string]float64{"urgency": 1}},
		{Tick: 5, Set: map[string]state.Value{"b": state.Num(2)}},
	}}
	assert.Len(t, sc.EventsAt(3), 2)
	assert.Len(t, sc.EventsAt(5), 1)
	assert.Empty(t, sc.EventsAt(4))
}

func TestWorld_ApplyEventAndSignals(t *testing.T) {
	world := NewWorld(map[string]state.Value{"x": state.Num(1)}, action.Context{})

	world.ApplyEvent(Event{
		Set:     map[string]state.Value{"x": state.Num(2), "y": state.Bool(true)},
		Signals: map[string]float64{action.SignalThreatLevel: 0.8, "torch_count": 3},
	})

	x, _ := world.Snapshot().Number("x")
	assert.Equal(t, 2.0, x)
	assert.True(t, world.Snapshot().Flag("y"))

	ec := world.Context()
	assert.Equal(t, 0.8, ec.ThreatLevel)
	assert.Equal(t, 3.0, ec.Extra["torch_count"])

	world.Remove("y")
	_, ok := world.Snapshot().Get("y")
	assert.False(t, ok)
}

func TestSupplier_WalksScript(t *testing.T) {
	fedGoal := goap.Goal{
		Name: "stay_fed", Kind: goap.GoalSurvive,
		Terms: []state.Term{state.NewTerm("fed", state.OpEq, state.Bool(true))},
	}
	richGoal := goap.Goal{
		Name: "get_rich", Kind: goap.GoalAcquire,
		Terms: []state.Term{state.NewTerm("gold", state.OpGte, state.Num(10))},
	}

	world := NewWorld(map[string]state.Value{"fed": state.Bool(true)}, action.Context{})
	sup := NewSupplier(world, []goap.Goal{fedGoal, richGoal})

	// The already-satisfied first goal is skipped at fetch time.
	goal, ok, err := sup.Current(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "get_rich", goal.Name)
	assert.Equal(t, 1, sup.Remaining())
	assert.False(t, sup.Done())

	// An unsatisfiable report abandons the goal and advances the script.
	cause := types.NewRetryableError(types.REPAIR_EXHAUSTED, "no rescue suffix")
	sup.ReportUnsatisfiable(context.Background(), richGoal, cause)

	_, ok, err = sup.Current(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, sup.Done())

	escs := sup.Escalations()
	require.Len(t, escs, 1)
	assert.Equal(t, "get_rich", escs[0].Goal)
	assert.Equal(t, types.REPAIR_EXHAUSTED, types.CodeOf(escs[0].Cause))
}

const toolRunYAML = `
name: tool-run
seed: 7
ticks: 120
tick_interval: 10ms
facts:
  atSite: false
  hasPick: true
  ore: 0
capabilities:
  - name: navigate
    latency: 1ms
  - name: dig
    latency: 1ms
  - name: craft
    latency: 1ms
faults:
  - action: mine_ore
    failures: 1
goals:
  - name: craft_tool
    kind: acquire
    terms:
      - predicate: toolCrafted
        op: "=="
        value: true
  - name: reach_camp
    kind: location
    terms:
      - predicate: atCamp
        op: "=="
        value: true
`

func toolRunModel(t *testing.T) *action.Model {
	t.Helper()

	m := action.NewModel()
	require.NoError(t, m.RegisterAll(
		action.Action{
			Name:       "move_to_site",
			Capability: "navigate",
			BaseCost:   2,
			Preconditions: []state.Term{
				state.NewTerm("atSite", state.OpEq, state.Bool(false)),
			},
			Effects: []state.Term{
				state.NewTerm("atSite", state.OpSet, state.Bool(true)),
			},
		},
		action.Action{
			Name:       "mine_ore",
			Capability: "dig",
			BaseCost:   3,
			Preconditions: []state.Term{
				state.NewTerm("atSite", state.OpEq, state.Bool(true)),
				state.NewTerm("hasPick", state.OpEq, state.Bool(true)),
			},
			Effects: []state.Term{
				state.NewTerm("ore", state.OpAdd, state.Num(1)),
			},
		},
		action.Action{
			Name:       "craft_tool",
			Capability: "craft",
			BaseCost:   4,
			Preconditions: []state.Term{
				state.NewTerm("ore", state.OpGte, state.Num(1)),
			},
			Effects: []state.Term{
				state.NewTerm("toolCrafted", state.OpSet, state.Bool(true)),
			},
		},
		action.Action{
			Name:       "walk_home",
			Capability: "navigate",
			BaseCost:   2,
			Effects: []state.Term{
				state.NewTerm("atCamp", state.OpSet, state.Bool(true)),
			},
		},
	))
	return m
}

// TestSimulation_ExecutorWalksScenario runs the executor over a scripted
// scenario end to end: plan, fail once on the injected fault, repair in
// place, finish the first goal, then pick up and finish the second.
func TestSimulation_ExecutorWalksScenario(t *testing.T) {
	sc, err := ParseScenario(strings.NewReader(toolRunYAML))
	require.NoError(t, err)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	model := toolRunModel(t)
	world, gw, sup := sc.Build(model, quiet)

	ex, err := executor.New(model, gw, sup, world, executor.WithLogger(quiet))
	require.NoError(t, err)

	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for !sup.Done() && time.Now().Before(deadline) {
		require.NoError(t, ex.Tick(ctx))
		time.Sleep(3 * time.Millisecond)
	}
	require.True(t, sup.Done(), "scenario should finish inside the deadline")
	assert.Equal(t, executor.StateIdle, ex.State())

	snap := world.Snapshot()
	assert.True(t, snap.Flag("toolCrafted"))
	assert.True(t, snap.Flag("atCamp"))
	ore, _ := snap.Number("ore")
	assert.Equal(t, 1.0, ore)

	stats := ex.Stats()
	assert.Equal(t, uint64(2), stats.PlansGenerated)
	assert.Equal(t, uint64(2), stats.GoalsAchieved)
	assert.Equal(t, uint64(1), stats.Repaired)
	assert.Equal(t, uint64(0), stats.Replanned)
	assert.Equal(t, uint64(0), stats.BreakerTrips)
	assert.Equal(t, uint64(4), stats.ActionsCompleted)
	assert.Equal(t, uint64(1), stats.ActionsFailed)
	assert.Equal(t, uint64(0), stats.ActionsCancelled)
	assert.Empty(t, sup.Escalations())
}
