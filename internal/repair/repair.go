// Package repair implements failure recovery for active plans. When an
// action fails mid-plan, the repairer keeps the already-executed prefix,
// replans a suffix from the post-failure snapshot toward the original
// goal, and decides between committing the merged candidate (repaired)
// and escalating for a fresh subgoal-level plan (replanned) by comparing
// edit distance and cost against the original.
package repair

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/goap"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

const (
	// DefaultBudget caps the wall-clock time of the suffix search.
	DefaultBudget = 10 * time.Millisecond

	// DefaultMaxEditDistance is the largest candidate-vs-original edit
	// distance still considered a local repair.
	DefaultMaxEditDistance = 3

	// DefaultCostRatio bounds the candidate's cost relative to the
	// unexecuted remainder of the original plan.
	DefaultCostRatio = 1.5
)

// Outcome tags a repair decision.
type Outcome string

const (
	// OutcomeRepaired means the merged candidate plan was committed and
	// execution can resume from the failed position.
	OutcomeRepaired Outcome = "repaired"

	// OutcomeReplanned means local repair was rejected; the executor
	// should clear the active plan and request a fresh subgoal.
	OutcomeReplanned Outcome = "replanned"
)

// IsValid checks if the Outcome is a recognized decision.
func (o Outcome) IsValid() bool {
	return o == OutcomeRepaired || o == OutcomeReplanned
}

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// Input carries everything the repairer needs to decide.
type Input struct {
	// Plan is the active plan whose step failed.
	Plan *goap.Plan

	// FailedIndex is the position of the failed step. An index outside
	// [0, Plan.Len()) means no step failed and repair is a no-op.
	FailedIndex int

	// State is the world snapshot observed after the failure.
	State state.Snapshot

	// Context carries the execution signals for suffix cost evaluation.
	Context action.Context

	// Budget overrides the repairer's suffix-search budget when positive.
	Budget time.Duration
}

// Result is the repair decision plus the numbers behind it.
type Result struct {
	// Outcome is repaired or replanned.
	Outcome Outcome

	// Plan is the committed plan: the merged candidate on repaired, the
	// unchanged original on a no-op, nil on replanned.
	Plan *goap.Plan

	// EditDistance between the original and candidate action sequences.
	// Zero when no candidate was formed.
	EditDistance int

	// CandidateCost is the merged candidate's total cost.
	CandidateCost float64

	// RemainingCost is the recorded cost of the original plan's
	// unexecuted steps, from the failed index on.
	RemainingCost float64

	// Reason is a short human-readable account of the decision.
	Reason string

	// Duration is the wall-clock time the repair attempt took.
	Duration time.Duration
}

// Repairer decides between local plan repair and full replanning.
// A zero Repairer is not usable; construct with NewRepairer.
type Repairer struct {
	planner         *goap.Planner
	budget          time.Duration
	maxEditDistance int
	costRatio       float64
	logger          *slog.Logger
	tracer          trace.Tracer
	clock           func() time.Time
}

// Option configures a Repairer.
type Option func(*Repairer)

// WithBudget sets the default wall-clock budget for the suffix search.
func WithBudget(d time.Duration) Option {
	return func(r *Repairer) {
		if d > 0 {
			r.budget = d
		}
	}
}

// WithMaxEditDistance sets the largest edit distance accepted as a repair.
func WithMaxEditDistance(n int) Option {
	return func(r *Repairer) {
		if n >= 0 {
			r.maxEditDistance = n
		}
	}
}

// WithCostRatio sets the candidate-to-remaining cost ratio bound.
func WithCostRatio(ratio float64) Option {
	return func(r *Repairer) {
		if ratio > 0 {
			r.costRatio = ratio
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repairer) {
		if logger != nil {
			r.logger = logger.With("component", "plan_repair")
		}
	}
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Repairer) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithClock injects the time source. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Repairer) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRepairer creates a Repairer that replans suffixes with the given
// planner. The planner must be non-nil.
func NewRepairer(planner *goap.Planner, opts ...Option) *Repairer {
	r := &Repairer{
		planner:         planner,
		budget:          DefaultBudget,
		maxEditDistance: DefaultMaxEditDistance,
		costRatio:       DefaultCostRatio,
		logger:          slog.Default().With("component", "plan_repair"),
		tracer:          otel.Tracer("botcore/repair"),
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Repair decides how to recover from a failed plan step. The original
// plan is never mutated; a repaired outcome carries a new merged plan.
// Absence of a suffix is a normal outcome, not an error: the only error
// returned is for a nil input plan.
func (r *Repairer) Repair(ctx context.Context, in Input) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "repair.handle_failure")
	defer span.End()

	start := r.clock()
	res := Result{Outcome: OutcomeReplanned}

	if in.Plan == nil {
		err := types.NewError(types.REPAIR_EXHAUSTED, "repair requires a plan")
		span.RecordError(err)
		return res, err
	}
	span.SetAttributes(
		attribute.String("plan.id", in.Plan.ID.String()),
		attribute.Int("repair.failed_index", in.FailedIndex),
	)

	// A plan with no failed step has nothing to recover from.
	if in.FailedIndex < 0 || in.FailedIndex >= in.Plan.Len() {
		res.Outcome = OutcomeRepaired
		res.Plan = in.Plan
		res.Reason = "no failed step"
		return r.finish(span, res, start), nil
	}

	res.RemainingCost = in.Plan.RemainingCost(in.FailedIndex)

	budget := in.Budget
	if budget <= 0 {
		budget = r.budget
	}

	sr, err := r.planner.Plan(ctx, goap.Request{
		Goal:    in.Plan.Goal,
		Start:   in.State,
		Context: in.Context,
		Budget:  budget,
	})
	if err != nil {
		exhausted := types.WrapError(types.REPAIR_EXHAUSTED, "no repair suffix found", err)
		res.Reason = "no suffix found"
		span.RecordError(exhausted)
		r.logger.Debug("suffix search failed, escalating",
			"plan", in.Plan.ID,
			"failed_index", in.FailedIndex,
			"error", exhausted)
		return r.finish(span, res, start), nil
	}

	prefix := in.Plan.Steps[:in.FailedIndex]
	steps := make([]goap.Step, 0, len(prefix)+sr.Plan.Len())
	steps = append(steps, prefix...)
	steps = append(steps, sr.Plan.Steps...)
	candidate := goap.NewPlan(in.Plan.Goal, steps, r.clock())

	res.EditDistance = EditDistance(in.Plan.ActionNames(), candidate.ActionNames())
	res.CandidateCost = candidate.TotalCost

	limit := res.RemainingCost * r.costRatio
	switch {
	case res.EditDistance > r.maxEditDistance:
		res.Reason = fmt.Sprintf("edit distance %d exceeds %d", res.EditDistance, r.maxEditDistance)
	case res.CandidateCost >= limit:
		res.Reason = fmt.Sprintf("candidate cost %.2f not under %.2f", res.CandidateCost, limit)
	default:
		res.Outcome = OutcomeRepaired
		res.Plan = candidate
		res.Reason = "local edit within thresholds"
	}

	return r.finish(span, res, start), nil
}

func (r *Repairer) finish(span trace.Span, res Result, start time.Time) Result {
	res.Duration = r.clock().Sub(start)
	span.SetAttributes(
		attribute.String("repair.outcome", res.Outcome.String()),
		attribute.Int("repair.edit_distance", res.EditDistance),
	)
	r.logger.Debug("repair decision",
		"outcome", res.Outcome,
		"edit_distance", res.EditDistance,
		"candidate_cost", res.CandidateCost,
		"remaining_cost", res.RemainingCost,
		"reason", res.Reason,
		"duration", res.Duration)
	return res
}
