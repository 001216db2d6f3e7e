package telemetry

import (
	"context"
	"log/slog"
)

// SlogSink renders events through a structured logger. Reflex firings,
// achieved goals, and breaker trips surface at info and warn; per-tick
// detail stays at debug.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink wraps a logger. A nil logger uses slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "telemetry")}
}

// Emit logs the event with its payload flattened into attributes.
func (s *SlogSink) Emit(event Event) {
	level := slog.LevelDebug
	switch event.Type {
	case EventReflexFired, EventGoalAchieved:
		level = slog.LevelInfo
	case EventBreakerTripped, EventPlanNotFound:
		level = slog.LevelWarn
	}

	attrs := make([]any, 0, 2+2*len(event.Payload))
	attrs = append(attrs, "agent", event.AgentID.String())
	for k, v := range event.Payload {
		attrs = append(attrs, k, v)
	}
	s.logger.Log(context.Background(), level, event.Type.String(), attrs...)
}

var _ Sink = (*SlogSink)(nil)
