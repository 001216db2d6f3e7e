package telemetry

import (
	"sync"
	"time"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// Stats is a point-in-time copy of the accumulator's counters.
type Stats struct {
	PlansGenerated    uint64
	PlansFromCache    uint64
	PlansNotFound     uint64
	PlanningTime      time.Duration
	ActionsDispatched uint64
	ActionsCompleted  uint64
	ActionsFailed     uint64
	ActionsCancelled  uint64
	Repaired          uint64
	Replanned         uint64
	EditDistanceSum   uint64
	ReflexActivations map[string]uint64
	BreakerTrips      uint64
	GoalsAchieved     uint64
}

// RepairRatio returns repaired / (repaired + replanned), or 0 when no
// repair decisions have been made.
func (s Stats) RepairRatio() float64 {
	total := s.Repaired + s.Replanned
	if total == 0 {
		return 0
	}
	return float64(s.Repaired) / float64(total)
}

// ActionSuccessRate returns completed / (completed + failed), counting
// cancellations as failures. Zero when nothing finished yet.
func (s Stats) ActionSuccessRate() float64 {
	total := s.ActionsCompleted + s.ActionsFailed
	if total == 0 {
		return 0
	}
	return float64(s.ActionsCompleted) / float64(total)
}

// Accumulator aggregates executor happenings and fans each one out to
// the configured sinks. One accumulator belongs to one executor.
type Accumulator struct {
	agentID types.ID

	mu    sync.Mutex
	stats Stats
	sinks []Sink
}

// NewAccumulator creates an accumulator for one executor identity.
func NewAccumulator(agentID types.ID, sinks ...Sink) *Accumulator {
	a := &Accumulator{
		agentID: agentID,
		stats:   Stats{ReflexActivations: make(map[string]uint64)},
	}
	for _, s := range sinks {
		if s != nil {
			a.sinks = append(a.sinks, s)
		}
	}
	return a
}

// AgentID returns the executor identity events are stamped with.
func (a *Accumulator) AgentID() types.ID {
	return a.agentID
}

func (a *Accumulator) emit(eventType EventType, payload map[string]any) {
	event := NewEvent(eventType, a.agentID, payload)
	for _, s := range a.sinks {
		s.Emit(event)
	}
}

// PlanGenerated records a successful planning call.
func (a *Accumulator) PlanGenerated(goal string, steps int, cost float64, expansions int, fromCache, degraded bool, dur time.Duration) {
	a.mu.Lock()
	a.stats.PlansGenerated++
	if fromCache {
		a.stats.PlansFromCache++
	}
	a.stats.PlanningTime += dur
	a.mu.Unlock()

	a.emit(EventPlanned, map[string]any{
		"goal":        goal,
		"steps":       steps,
		"cost":        cost,
		"expansions":  expansions,
		"from_cache":  fromCache,
		"degraded":    degraded,
		"duration_ms": durationMillis(dur),
	})
}

// PlanNotFound records an exhausted planning call.
func (a *Accumulator) PlanNotFound(goal string, err error, dur time.Duration) {
	a.mu.Lock()
	a.stats.PlansNotFound++
	a.stats.PlanningTime += dur
	a.mu.Unlock()

	payload := map[string]any{
		"goal":        goal,
		"duration_ms": durationMillis(dur),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	a.emit(EventPlanNotFound, payload)
}

// ActionDispatched records an action handed to the gateway.
func (a *Accumulator) ActionDispatched(action, capability string, reflex bool) {
	a.mu.Lock()
	a.stats.ActionsDispatched++
	a.mu.Unlock()

	a.emit(EventActionDispatched, map[string]any{
		"action":     action,
		"capability": capability,
		"reflex":     reflex,
	})
}

// ActionCompleted records a successful action result.
func (a *Accumulator) ActionCompleted(action string, dur time.Duration) {
	a.mu.Lock()
	a.stats.ActionsCompleted++
	a.mu.Unlock()

	a.emit(EventActionCompleted, map[string]any{
		"action":      action,
		"duration_ms": durationMillis(dur),
	})
}

// ActionFailed records a failed, timed-out, or cancelled action.
func (a *Accumulator) ActionFailed(action string, cancelled bool, err error) {
	a.mu.Lock()
	a.stats.ActionsFailed++
	if cancelled {
		a.stats.ActionsCancelled++
	}
	a.mu.Unlock()

	payload := map[string]any{
		"action":    action,
		"cancelled": cancelled,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	a.emit(EventActionFailed, payload)
}

// RepairDecided records a repair-vs-replan decision.
func (a *Accumulator) RepairDecided(outcome string, editDistance int, candidateCost, remainingCost float64, dur time.Duration) {
	a.mu.Lock()
	if outcome == "repaired" {
		a.stats.Repaired++
	} else {
		a.stats.Replanned++
	}
	if editDistance > 0 {
		a.stats.EditDistanceSum += uint64(editDistance)
	}
	a.mu.Unlock()

	a.emit(EventRepairDecided, map[string]any{
		"outcome":        outcome,
		"edit_distance":  editDistance,
		"candidate_cost": candidateCost,
		"remaining_cost": remainingCost,
		"duration_ms":    durationMillis(dur),
	})
}

// ReflexFired records a safety reflex activation.
func (a *Accumulator) ReflexFired(name string, priority int, cancelledDispatch bool) {
	a.mu.Lock()
	a.stats.ReflexActivations[name]++
	a.mu.Unlock()

	a.emit(EventReflexFired, map[string]any{
		"reflex":             name,
		"priority":           priority,
		"cancelled_dispatch": cancelledDispatch,
	})
}

// BreakerTripped records a circuit-breaker activation.
func (a *Accumulator) BreakerTripped(consecutive int) {
	a.mu.Lock()
	a.stats.BreakerTrips++
	a.mu.Unlock()

	a.emit(EventBreakerTripped, map[string]any{
		"consecutive_failures": consecutive,
	})
}

// GoalAchieved records a plan run to completion.
func (a *Accumulator) GoalAchieved(goal string, planID types.ID) {
	a.mu.Lock()
	a.stats.GoalsAchieved++
	a.mu.Unlock()

	a.emit(EventGoalAchieved, map[string]any{
		"goal":    goal,
		"plan_id": planID.String(),
	})
}

// Transition records an executor state change.
func (a *Accumulator) Transition(from, to string) {
	a.emit(EventTransition, map[string]any{
		"from": from,
		"to":   to,
	})
}

// Stats returns a copy of the current counters.
func (a *Accumulator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.stats
	out.ReflexActivations = make(map[string]uint64, len(a.stats.ReflexActivations))
	for k, v := range a.stats.ReflexActivations {
		out.ReflexActivations[k] = v
	}
	return out
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
