package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exports executor events as Prometheus metrics: latency and
// edit-distance histograms plus outcome counters, scraped through the
// registry handed in at construction.
type PromSink struct {
	planningDuration prometheus.Histogram
	repairDuration   prometheus.Histogram
	editDistance     prometheus.Histogram
	plans            *prometheus.CounterVec
	repairs          *prometheus.CounterVec
	reflexes         *prometheus.CounterVec
	actions          *prometheus.CounterVec
	breakerTrips     prometheus.Counter
	goalsAchieved    prometheus.Counter
}

// NewPromSink registers the executor metrics on reg. A nil reg uses the
// default registerer. Re-registration of identical collectors is
// tolerated so multiple executors can share a process registry.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	latencyBuckets := []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25}

	s := &PromSink{
		planningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "botcore",
			Subsystem: "executor",
			Name:      "planning_duration_seconds",
			Help:      "Wall-clock duration of planning calls",
			Buckets:   latencyBuckets,
		}),
		repairDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "botcore",
			Subsystem: "executor",
			Name:      "repair_duration_seconds",
			Help:      "Wall-clock duration of repair attempts",
			Buckets:   latencyBuckets,
		}),
		editDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "botcore",
			Subsystem: "executor",
			Name:      "repair_edit_distance",
			Help:      "Edit distance between original and candidate plans",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botcore",
			Subsystem: "executor",
			Name:      "plans_total",
			Help:      "Planning calls by result",
		}, []string{"result"}),
		repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botcore",
			Subsystem: "executor",
			Name:      "repairs_total",
			Help:      "Repair decisions by outcome",
		}, []string{"outcome"}),
		reflexes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botcore",
			Subsystem: "executor",
			Name:      "reflex_activations_total",
			Help:      "Safety reflex activations by reflex",
		}, []string{"reflex"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botcore",
			Subsystem: "executor",
			Name:      "actions_total",
			Help:      "Dispatched action results",
		}, []string{"result"}),
		breakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botcore",
			Subsystem: "executor",
			Name:      "breaker_trips_total",
			Help:      "Circuit breaker activations",
		}),
		goalsAchieved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botcore",
			Subsystem: "executor",
			Name:      "goals_achieved_total",
			Help:      "Plans run to completion",
		}),
	}

	collectors := []prometheus.Collector{
		s.planningDuration, s.repairDuration, s.editDistance,
		s.plans, s.repairs, s.reflexes, s.actions,
		s.breakerTrips, s.goalsAchieved,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
		}
	}
	return s, nil
}

// Emit records the event into the matching metrics.
func (s *PromSink) Emit(event Event) {
	p := event.Payload
	switch event.Type {
	case EventPlanned:
		s.planningDuration.Observe(payloadNum(p, "duration_ms") / 1000)
		if payloadBool(p, "from_cache") {
			s.plans.WithLabelValues("cache_hit").Inc()
		} else {
			s.plans.WithLabelValues("generated").Inc()
		}
	case EventPlanNotFound:
		s.planningDuration.Observe(payloadNum(p, "duration_ms") / 1000)
		s.plans.WithLabelValues("not_found").Inc()
	case EventActionCompleted:
		s.actions.WithLabelValues("completed").Inc()
	case EventActionFailed:
		if payloadBool(p, "cancelled") {
			s.actions.WithLabelValues("cancelled").Inc()
		} else {
			s.actions.WithLabelValues("failed").Inc()
		}
	case EventRepairDecided:
		s.repairDuration.Observe(payloadNum(p, "duration_ms") / 1000)
		s.editDistance.Observe(payloadNum(p, "edit_distance"))
		s.repairs.WithLabelValues(payloadString(p, "outcome")).Inc()
	case EventReflexFired:
		s.reflexes.WithLabelValues(payloadString(p, "reflex")).Inc()
	case EventBreakerTripped:
		s.breakerTrips.Inc()
	case EventGoalAchieved:
		s.goalsAchieved.Inc()
	}
}

func payloadNum(p map[string]any, key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func payloadBool(p map[string]any, key string) bool {
	v, _ := p[key].(bool)
	return v
}

func payloadString(p map[string]any, key string) string {
	v, ok := p[key].(string)
	if !ok {
		return "unknown"
	}
	return v
}

var _ Sink = (*PromSink)(nil)
