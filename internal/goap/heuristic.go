package goap

import (
	"math"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

// Heuristic estimates the remaining cost from a state to a goal. The second
// result is false when the goal's terms do not carry the inputs the
// heuristic needs; the planner then degrades to the zero heuristic and
// records the degradation instead of failing the search.
//
// The built-in heuristics measure remaining deficit in predicate units.
// They are admissible for models whose actions close at most one unit of
// deficit per unit of cost, and the zero fallback is admissible always.
type Heuristic func(s state.Snapshot, g Goal, ec action.Context) (float64, bool)

// HeuristicFor returns the built-in heuristic for a goal kind.
func HeuristicFor(kind GoalKind) Heuristic {
	switch kind {
	case GoalLocation:
		return DistanceHeuristic
	case GoalAcquire:
		return DeficitHeuristic
	case GoalSurvive:
		return ThreatHeuristic
	default:
		return ZeroHeuristic
	}
}

// ZeroHeuristic estimates nothing and is trivially admissible.
func ZeroHeuristic(state.Snapshot, Goal, action.Context) (float64, bool) {
	return 0, true
}

// DistanceHeuristic sums how far each numeric goal bound still is from
// holding: distance-to-target for location goals phrased as
// `distance(target) <= r`. Goals with no numeric term cannot be measured.
func DistanceHeuristic(s state.Snapshot, g Goal, _ action.Context) (float64, bool) {
	total := 0.0
	measured := false
	for _, t := range g.Terms {
		deficit, ok, usable := numericDeficit(s, t)
		if !usable {
			return 0, false
		}
		if !ok {
			continue
		}
		measured = true
		total += deficit
	}
	if !measured {
		return 0, false
	}
	return total, true
}

// DeficitHeuristic counts what is still missing for an acquisition goal:
// quantity shortfall for numeric bounds plus one unit per unsatisfied
// non-numeric term.
func DeficitHeuristic(s state.Snapshot, g Goal, _ action.Context) (float64, bool) {
	total := 0.0
	for _, t := range g.Terms {
		deficit, ok, usable := numericDeficit(s, t)
		if !usable {
			return 0, false
		}
		if ok {
			total += deficit
			continue
		}
		if !s.Satisfies(t) {
			total++
		}
	}
	return total, true
}

// ThreatHeuristic reads the situation, not the state delta: while a survive
// goal is unsatisfied the remaining cost is at least the present threat
// magnitude.
func ThreatHeuristic(s state.Snapshot, g Goal, ec action.Context) (float64, bool) {
	if g.SatisfiedBy(s) {
		return 0, true
	}
	return math.Max(0, ec.ThreatLevel), true
}

// numericDeficit measures how many predicate units separate the current
// binding from a numeric bound term. Returns (deficit, measured, usable):
// measured is false for non-numeric terms, usable is false when the stored
// binding cannot be read as a number at all.
func numericDeficit(s state.Snapshot, t state.Term) (float64, bool, bool) {
	if t.Value.Kind != state.KindNumber {
		return 0, false, true
	}
	current, ok := s.Number(t.Key())
	if !ok {
		return 0, false, false
	}
	target := t.Value.Num

	switch t.Op {
	case state.OpLte, state.OpLt:
		return math.Max(0, current-target), true, true
	case state.OpGte, state.OpGt:
		return math.Max(0, target-current), true, true
	case state.OpEq:
		return math.Abs(current - target), true, true
	default:
		// != carries no usable gradient.
		return 0, false, true
	}
}
