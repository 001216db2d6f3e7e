// Package sim is the deterministic stand-in for an embodied agent's real
// collaborators: a mutable fact world, a gateway with configurable latency
// and scripted failure injection, and a goal supplier that walks an ordered
// script. It drives the demo binary and the executor's integration tests.
package sim

import (
	"context"
	"sync"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/reflex"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

// World holds the simulated facts and context signals. Snapshots handed out
// are immutable; mutation replaces the snapshot under the lock, so gateway
// workers and the tick loop can touch it concurrently.
type World struct {
	mu   sync.RWMutex
	snap state.Snapshot
	ec   action.Context
}

// NewWorld creates a world from initial facts and context signals.
func NewWorld(facts map[string]state.Value, ec action.Context) *World {
	return &World{snap: state.NewSnapshot(facts), ec: ec}
}

// Observe returns the current snapshot and signals. It satisfies the
// executor's world provider contract and never fails in simulation.
func (w *World) Observe(context.Context) (state.Snapshot, action.Context, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snap, w.ec, nil
}

// Snapshot returns the current fact snapshot.
func (w *World) Snapshot() state.Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snap
}

// Context returns the current signal set.
func (w *World) Context() action.Context {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ec
}

// Set writes one fact.
func (w *World) Set(key string, v state.Value) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snap = w.snap.With(key, v)
}

// Remove deletes one fact, leaving the predicate unobserved.
func (w *World) Remove(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snap = w.snap.Without(key)
}

// SetSignal writes one context signal, canonical names onto their fields
// and everything else into Extra.
func (w *World) SetSignal(name string, v float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ec = withSignal(w.ec, name, v)
}

// ApplyEffects applies action effects to the facts.
func (w *World) ApplyEffects(effects []state.Term) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next, err := w.snap.Apply(effects)
	if err != nil {
		return err
	}
	w.snap = next
	return nil
}

// ApplyEvent applies one scripted event: fact writes first, then signals.
func (w *World) ApplyEvent(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, v := range ev.Set {
		w.snap = w.snap.With(key, v)
	}
	for name, v := range ev.Signals {
		w.ec = withSignal(w.ec, name, v)
	}
}

// applyReflexOutcome mutates the world the way the embodiment would resolve
// a built-in safety override: eating restores health and consumes the food,
// surfacing ends submersion, retreating leaves the hazard unobserved, and
// evading sheds the hostiles.
func (w *World) applyReflexOutcome(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch name {
	case reflex.ReflexEmergencyEat:
		if health, ok := w.snap.Number(reflex.FactHealth); ok {
			w.snap = w.snap.With(reflex.FactHealth, state.Num(min(health+40, 100)))
		}
		w.snap = w.snap.With(reflex.FactHasFood, state.Bool(false))
	case reflex.ReflexSurfaceForAir:
		w.snap = w.snap.With(reflex.FactSubmerged, state.Bool(false))
		w.snap = w.snap.With(reflex.FactBreath, state.Num(100))
	case reflex.ReflexRetreatFromHazard:
		w.snap = w.snap.Without(reflex.FactHazardDistance)
	case reflex.ReflexEvadeSwarm:
		w.ec.HostileCount = 0
	}
}

func withSignal(ec action.Context, name string, v float64) action.Context {
	switch name {
	case action.SignalThreatLevel:
		ec.ThreatLevel = v
	case action.SignalHostileCount:
		ec.HostileCount = v
	case action.SignalDistanceToTarget:
		ec.DistanceToTarget = v
	case action.SignalVisibility:
		ec.Visibility = v
	case action.SignalUrgency:
		ec.Urgency = v
	case action.SignalCommitment:
		ec.Commitment = v
	default:
		extra := make(map[string]float64, len(ec.Extra)+1)
		for k, ev := range ec.Extra {
			extra[k] = ev
		}
		extra[name] = v
		ec.Extra = extra
	}
	return ec
}
