// Package telemetry carries the executor's observability stream:
// fire-and-forget events fanned out to sinks, an accumulator with
// in-memory counters for the end-of-run report, and sink
// implementations for slog, Prometheus, and live subscription.
package telemetry

import (
	"time"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// EventType identifies the kind of executor event.
type EventType string

const (
	// EventPlanned indicates the planner produced a plan.
	EventPlanned EventType = "plan.generated"

	// EventPlanNotFound indicates the planner exhausted its budget or
	// search space without a plan.
	EventPlanNotFound EventType = "plan.not_found"

	// EventActionDispatched indicates an action was handed to the gateway.
	EventActionDispatched EventType = "action.dispatched"

	// EventActionCompleted indicates the gateway reported success.
	EventActionCompleted EventType = "action.completed"

	// EventActionFailed indicates the gateway reported failure,
	// timeout, or cancellation.
	EventActionFailed EventType = "action.failed"

	// EventRepairDecided indicates plan repair chose repaired or replanned.
	EventRepairDecided EventType = "repair.decided"

	// EventReflexFired indicates a safety reflex preempted the tick.
	EventReflexFired EventType = "reflex.fired"

	// EventBreakerTripped indicates consecutive failures forced a replan.
	EventBreakerTripped EventType = "breaker.tripped"

	// EventGoalAchieved indicates the active plan ran to completion.
	EventGoalAchieved EventType = "goal.achieved"

	// EventTransition indicates an executor state change.
	EventTransition EventType = "executor.transition"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event is one executor happening. Payload keys vary by type; values
// are primitives so sinks can render them without domain imports.
type Event struct {
	Type      EventType      `json:"type"`
	AgentID   types.ID       `json:"agent_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType, agentID types.ID, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		AgentID:   agentID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// Sink receives executor events. Emit must not block: the core offers
// no acknowledgement and handles no backpressure.
type Sink interface {
	Emit(event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls the function.
func (f SinkFunc) Emit(event Event) {
	f(event)
}
