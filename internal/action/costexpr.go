package action

import (
	"github.com/expr-lang/expr"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

// ExprEnv builds the evaluation environment shared by cost expressions and
// configured trigger expressions: execution-context signals as bare
// identifiers plus accessor functions over the world snapshot.
func ExprEnv(s state.Snapshot, ec Context) map[string]any {
	return map[string]any{
		SignalThreatLevel:      ec.ThreatLevel,
		SignalHostileCount:     ec.HostileCount,
		SignalDistanceToTarget: ec.DistanceToTarget,
		SignalVisibility:       ec.Visibility,
		SignalUrgency:          ec.Urgency,
		SignalCommitment:       ec.Commitment,
		"signal": func(name string) float64 {
			v, _ := ec.Signal(name)
			return v
		},
		"num": func(key string) float64 {
			v, _ := s.Number(key)
			return v
		},
		"flag": func(key string) bool {
			return s.Flag(key)
		},
		"has": func(key string) bool {
			_, ok := s.Get(key)
			return ok
		},
	}
}

// CompileCost compiles a cost expression like "5 + threat_level * 3" into a
// CostFunc. The expression may reference context signals and the num/flag/
// has/signal accessors; anything else fails at compile time. A runtime
// evaluation error reads as cost 0.
func CompileCost(src string) (CostFunc, error) {
	program, err := expr.Compile(src,
		expr.Env(ExprEnv(state.Snapshot{}, Context{})),
		expr.AsFloat64(),
	)
	if err != nil {
		return nil, err
	}

	return func(s state.Snapshot, ec Context) float64 {
		out, err := expr.Run(program, ExprEnv(s, ec))
		if err != nil {
			return 0
		}
		f, ok := out.(float64)
		if !ok {
			return 0
		}
		return f
	}, nil
}
