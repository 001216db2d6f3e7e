// Package executor drives the agent's act loop. Each Tick observes the
// world once, gives safety reflexes first claim on the body, harvests the
// in-flight action if one finished, plans when the subgoal demands it, and
// dispatches the next action through the gateway.
//
// The executor is single-threaded relative to its caller: all decision
// state belongs to one instance and is touched only inside Tick. The one
// asynchronous seam is the gateway dispatch handle, polled once per tick.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/gateway"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/goap"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/reflex"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/repair"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/telemetry"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

const (
	// DefaultActionTimeout bounds how long one dispatched plan action may
	// run before the gateway context expires.
	DefaultActionTimeout = 10 * time.Second

	// DefaultBreakerThreshold is the consecutive-failure count at which
	// the circuit breaker skips repair and forces a replan.
	DefaultBreakerThreshold = 3
)

// Provider supplies the observed world for one tick.
type Provider interface {
	// Observe returns the current fact snapshot and the execution-context
	// signals. The executor calls it exactly once per tick.
	Observe(ctx context.Context) (state.Snapshot, action.Context, error)
}

// GoalSupplier hands down the subgoal the executor should pursue and hears
// back when one cannot be pursued further.
type GoalSupplier interface {
	// Current returns the active subgoal. ok is false when the supplier
	// has nothing for the executor to do.
	Current(ctx context.Context) (goal goap.Goal, ok bool, err error)

	// ReportUnsatisfiable tells the supplier that pursuing the goal was
	// abandoned so it can pick a different decomposition.
	ReportUnsatisfiable(ctx context.Context, goal goap.Goal, cause error)
}

// flight is the one in-flight dispatch and its bookkeeping. index is the
// plan position the dispatch executes; release frees the timeout context.
type flight struct {
	handle  *gateway.Dispatch
	name    string
	index   int
	release context.CancelFunc
}

// Executor owns a planner, a repairer, and a reflex evaluator, and runs
// them against one gateway on behalf of one agent.
type Executor struct {
	model    *action.Model
	gateway  gateway.Gateway
	supplier GoalSupplier
	provider Provider

	planner  *goap.Planner
	repairer *repair.Repairer
	reflexes *reflex.Evaluator
	failures *FailureMemory
	acc      *telemetry.Accumulator

	planBudget       time.Duration
	repairBudget     time.Duration
	reflexBudget     time.Duration
	actionTimeout    time.Duration
	breakerThreshold int
	cacheSize        int
	maxExpansions    int
	maxEditDistance  int
	costRatio        float64

	agentID types.ID
	sinks   []telemetry.Sink
	logger  *slog.Logger
	tracer  trace.Tracer
	clock   func() time.Time

	state               State
	plan                *goap.Plan
	cursor              int
	goal                goap.Goal
	haveGoal            bool
	flight              *flight
	consecutiveFailures int
	ticks               uint64

	planWarn rate.Sometimes
}

// Option configures an Executor.
type Option func(*Executor)

// WithPlanBudget sets the wall-clock budget per planning call.
func WithPlanBudget(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.planBudget = d
		}
	}
}

// WithRepairBudget sets the wall-clock budget per repair attempt.
func WithRepairBudget(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.repairBudget = d
		}
	}
}

// WithReflexBudget sets how long a dispatched reflex may take before it is
// judged to have failed.
func WithReflexBudget(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.reflexBudget = d
		}
	}
}

// WithActionTimeout sets the timeout applied to each plan-action dispatch.
func WithActionTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.actionTimeout = d
		}
	}
}

// WithBreakerThreshold sets the consecutive-failure count that trips the
// circuit breaker.
func WithBreakerThreshold(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.breakerThreshold = n
		}
	}
}

// WithCacheSize sets the plan cache capacity.
func WithCacheSize(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.cacheSize = n
		}
	}
}

// WithMaxExpansions caps the node expansions per planning call.
func WithMaxExpansions(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxExpansions = n
		}
	}
}

// WithMaxEditDistance sets the largest plan edit distance accepted as a
// repair. Zero forces a full replan on every divergence.
func WithMaxEditDistance(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.maxEditDistance = n
		}
	}
}

// WithCostRatio sets the repair candidate-to-remaining cost ratio bound.
func WithCostRatio(ratio float64) Option {
	return func(e *Executor) {
		if ratio > 0 {
			e.costRatio = ratio
		}
	}
}

// WithReflexes replaces the default reflex evaluator, usually to install
// custom triggers or tuned thresholds.
func WithReflexes(ev *reflex.Evaluator) Option {
	return func(e *Executor) {
		if ev != nil {
			e.reflexes = ev
		}
	}
}

// WithSinks adds telemetry sinks the accumulator fans events out to.
func WithSinks(sinks ...telemetry.Sink) Option {
	return func(e *Executor) {
		e.sinks = append(e.sinks, sinks...)
	}
}

// WithAgentID fixes the identity events are stamped with. A fresh ID is
// generated when unset.
func WithAgentID(id types.ID) Option {
	return func(e *Executor) {
		if !id.IsZero() {
			e.agentID = id
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer for tick spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithClock overrides the wall-clock source.
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// New creates an executor over the given action model, gateway, goal
// supplier, and world provider. The executor builds and owns its planner,
// repairer, plan cache, and telemetry accumulator.
func New(model *action.Model, gw gateway.Gateway, supplier GoalSupplier, provider Provider, opts ...Option) (*Executor, error) {
	if model == nil {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "executor requires an action model")
	}
	if gw == nil {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "executor requires a gateway")
	}
	if supplier == nil {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "executor requires a goal supplier")
	}
	if provider == nil {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "executor requires a world provider")
	}

	e := &Executor{
		model:            model,
		gateway:          gw,
		supplier:         supplier,
		provider:         provider,
		planBudget:       goap.DefaultBudget,
		repairBudget:     repair.DefaultBudget,
		reflexBudget:     reflex.DefaultBudget,
		actionTimeout:    DefaultActionTimeout,
		breakerThreshold: DefaultBreakerThreshold,
		cacheSize:        goap.DefaultCacheSize,
		maxExpansions:    goap.DefaultMaxExpansions,
		maxEditDistance:  repair.DefaultMaxEditDistance,
		costRatio:        repair.DefaultCostRatio,
		logger:           slog.Default(),
		tracer:           otel.Tracer("botcore/executor"),
		clock:            time.Now,
		state:            StateIdle,
		planWarn:         rate.Sometimes{Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}

	base := e.logger
	e.logger = base.With("component", "executor")
	if e.agentID.IsZero() {
		e.agentID = types.NewID()
	}
	e.acc = telemetry.NewAccumulator(e.agentID, e.sinks...)
	e.failures = NewFailureMemory()
	if e.reflexes == nil {
		e.reflexes = reflex.NewEvaluator(reflex.WithLogger(base))
	}
	e.planner = goap.NewPlanner(model,
		goap.WithBudget(e.planBudget),
		goap.WithMaxExpansions(e.maxExpansions),
		goap.WithCache(goap.NewCache(e.cacheSize)),
		goap.WithLogger(base),
		goap.WithTracer(e.tracer),
		goap.WithClock(e.clock),
	)
	e.repairer = repair.NewRepairer(e.planner,
		repair.WithBudget(e.repairBudget),
		repair.WithMaxEditDistance(e.maxEditDistance),
		repair.WithCostRatio(e.costRatio),
		repair.WithLogger(base),
		repair.WithTracer(e.tracer),
		repair.WithClock(e.clock),
	)
	return e, nil
}

// Tick runs one decision cycle. It returns an error only when the world or
// the goal supplier could not be consulted; every planning and execution
// outcome is absorbed into executor state and telemetry instead.
func (e *Executor) Tick(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "executor.tick",
		trace.WithAttributes(attribute.Int64("executor.tick_seq", int64(e.ticks))))
	defer span.End()
	e.ticks++

	snap, ec, err := e.provider.Observe(ctx)
	if err != nil {
		werr := types.WrapRetryableError(types.STATE_UNAVAILABLE, "world observation failed", err)
		span.RecordError(werr)
		e.logger.Warn("tick skipped, world unavailable", "error", err)
		return werr
	}

	// Reflexes preempt everything else in the tick.
	if act, fired := e.reflexes.Evaluate(snap, ec); fired {
		e.runReflex(ctx, act)
		return nil
	}

	// Harvest a finished dispatch before consulting the supplier, so a
	// completed final step credits its goal before the script moves on. A
	// still-pending dispatch does not block goal adoption below.
	if e.flight != nil {
		if res, done := e.flight.handle.Poll(); done {
			finished := e.clearFlight()
			if !res.Completed() {
				e.actionFailed(ctx, finished, res, snap, ec)
				return nil
			}
			e.actionSucceeded(finished, res)
			if e.plan == nil {
				// Plan ran to completion during the harvest.
				return nil
			}
		}
	}

	goal, ok, err := e.supplier.Current(ctx)
	if err != nil {
		werr := types.WrapRetryableError(types.STATE_UNAVAILABLE, "goal supplier failed", err)
		span.RecordError(werr)
		e.logger.Warn("tick skipped, goal supplier failed", "error", err)
		return werr
	}
	if !ok {
		e.standDown()
		return nil
	}
	if !e.haveGoal || goal.Fingerprint() != e.goal.Fingerprint() {
		e.adoptGoal(goal)
	}

	if e.plan == nil {
		if !e.requestPlan(ctx, snap, ec) {
			return nil
		}
	}

	if e.flight == nil && e.cursor < e.plan.Len() {
		e.dispatchNext(ctx, snap, ec)
	}
	return nil
}

// runReflex preempts the tick for a safety action: cancel whatever is in
// flight, push the reflex through the gateway, and wait out its budget.
// The interrupted plan stays suspended; a cancelled dispatch is harvested
// as a failure on a later tick.
func (e *Executor) runReflex(ctx context.Context, act reflex.SafetyAction) {
	prior := e.state
	e.setState(StateReflexActive)

	cancelled := false
	if e.flight != nil {
		e.flight.handle.Cancel()
		cancelled = true
	}
	e.acc.ReflexFired(act.Name, act.Priority, cancelled)
	e.logger.Info("reflex fired",
		"reflex", act.Name,
		"priority", act.Priority,
		"cancelled_dispatch", cancelled)

	rctx, release := context.WithTimeout(ctx, e.reflexBudget)
	defer release()

	e.acc.ActionDispatched(act.Name, act.Capability, true)
	handle, err := e.gateway.Dispatch(rctx, gateway.Request{
		Action:     act.Name,
		Capability: act.Capability,
		Params:     act.Params,
		Reflex:     true,
	})
	if err != nil {
		e.acc.ActionFailed(act.Name, false, err)
		e.logger.Warn("reflex dispatch rejected", "reflex", act.Name, "error", err)
		e.setState(prior)
		return
	}

	res, aerr := handle.Await(rctx)
	switch {
	case aerr != nil:
		handle.Cancel()
		e.acc.ActionFailed(act.Name, false,
			types.WrapRetryableError(types.GATEWAY_TIMEOUT, "reflex budget elapsed", aerr))
		e.logger.Warn("reflex timed out", "reflex", act.Name, "budget", e.reflexBudget)
	case res.Completed():
		e.acc.ActionCompleted(act.Name, res.Duration)
		e.logger.Debug("reflex completed", "reflex", act.Name, "duration", res.Duration)
	default:
		e.acc.ActionFailed(act.Name, res.Status == gateway.StatusCancelled, res.Err)
		e.logger.Warn("reflex failed", "reflex", act.Name, "status", res.Status, "error", res.Err)
	}
	e.setState(prior)
}

// standDown is the no-goal path: abandon any in-flight work and go idle.
func (e *Executor) standDown() {
	e.abandonFlight()
	e.plan = nil
	e.cursor = 0
	e.haveGoal = false
	e.setState(StateIdle)
}

// adoptGoal switches pursuit to a different subgoal. The active plan and
// any in-flight dispatch belong to the old goal and are dropped.
func (e *Executor) adoptGoal(goal goap.Goal) {
	if e.plan != nil || e.flight != nil {
		e.logger.Debug("subgoal changed, dropping plan",
			"old_goal", e.goal.Name, "new_goal", goal.Name)
	}
	e.abandonFlight()
	e.plan = nil
	e.cursor = 0
	e.goal = goal
	e.haveGoal = true
	e.consecutiveFailures = 0
}

// abandonFlight cancels and forgets the in-flight dispatch without
// harvesting it. Used when the goal it served is gone; the walked-away
// action counts as cancelled in telemetry but not against the action.
func (e *Executor) abandonFlight() {
	if e.flight == nil {
		return
	}
	f := e.flight
	e.flight = nil
	f.handle.Cancel()
	if f.release != nil {
		f.release()
	}
	e.acc.ActionFailed(f.name, true, nil)
	e.logger.Debug("in-flight action abandoned", "action", f.name, "index", f.index)
}

// clearFlight detaches the in-flight record after its result was polled.
func (e *Executor) clearFlight() *flight {
	f := e.flight
	e.flight = nil
	if f.release != nil {
		f.release()
	}
	return f
}

func (e *Executor) actionSucceeded(f *flight, res gateway.Result) {
	e.acc.ActionCompleted(f.name, res.Duration)
	e.failures.Record(f.name, true, nil, e.clock())
	e.consecutiveFailures = 0
	e.cursor = f.index + 1
	e.logger.Debug("action completed",
		"action", f.name, "index", f.index, "duration", res.Duration)

	if e.cursor >= e.plan.Len() {
		e.achieveGoal()
	}
}

// actionFailed decides between repair and replan for a failed or cancelled
// dispatch. The circuit breaker short-circuits repair once failures pile up.
func (e *Executor) actionFailed(ctx context.Context, f *flight, res gateway.Result, snap state.Snapshot, ec action.Context) {
	cancelled := res.Status == gateway.StatusCancelled
	e.acc.ActionFailed(f.name, cancelled, res.Err)
	e.failures.Record(f.name, false, res.Err, e.clock())
	e.consecutiveFailures++
	e.setState(StateActionFailed)
	e.logger.Warn("action failed",
		"action", f.name,
		"index", f.index,
		"status", res.Status,
		"error", res.Err,
		"consecutive", e.consecutiveFailures)

	if e.consecutiveFailures >= e.breakerThreshold {
		e.acc.BreakerTripped(e.consecutiveFailures)
		cause := types.NewRetryableError(types.CIRCUIT_BREAKER_TRIPPED,
			fmt.Sprintf("%d consecutive action failures", e.consecutiveFailures))
		e.logger.Warn("circuit breaker tripped",
			"consecutive", e.consecutiveFailures, "threshold", e.breakerThreshold)
		e.consecutiveFailures = 0
		e.escalate(ctx, cause)
		return
	}

	e.setState(StateRepairing)
	rres, err := e.repairer.Repair(ctx, repair.Input{
		Plan:        e.plan,
		FailedIndex: f.index,
		State:       snap,
		Context:     ec,
		Budget:      e.repairBudget,
	})
	if err != nil {
		e.escalate(ctx, err)
		return
	}
	e.acc.RepairDecided(string(rres.Outcome), rres.EditDistance, rres.CandidateCost, rres.RemainingCost, rres.Duration)

	if rres.Outcome == repair.OutcomeRepaired {
		e.plan = rres.Plan
		e.cursor = f.index
		e.setState(StateExecuting)
		e.logger.Info("plan repaired",
			"plan_id", rres.Plan.ID.Short(),
			"edit_distance", rres.EditDistance,
			"candidate_cost", rres.CandidateCost)
		if e.cursor >= e.plan.Len() {
			// The repaired suffix is empty: the goal holds already.
			e.achieveGoal()
		}
		return
	}
	e.escalate(ctx, types.NewRetryableError(types.REPAIR_EXHAUSTED, rres.Reason))
}

// escalate abandons the active plan and asks the supplier for a different
// subgoal. The goal itself is kept so an unchanged supplier answer leads
// straight back to planning.
func (e *Executor) escalate(ctx context.Context, cause error) {
	e.setState(StateReplanning)
	e.plan = nil
	e.cursor = 0
	e.supplier.ReportUnsatisfiable(ctx, e.goal, cause)
	e.logger.Warn("replanning, subgoal reported unsatisfiable",
		"goal", e.goal.Name, "cause", cause)
}

func (e *Executor) requestPlan(ctx context.Context, snap state.Snapshot, ec action.Context) bool {
	e.setState(StatePlanning)
	res, err := e.planner.Plan(ctx, goap.Request{
		Goal:    e.goal,
		Start:   snap,
		Context: ec,
		Budget:  e.planBudget,
	})
	if err != nil {
		e.acc.PlanNotFound(e.goal.Name, err, res.Duration)
		e.planWarn.Do(func() {
			e.logger.Warn("no plan found", "goal", e.goal.Name, "error", err)
		})
		e.setState(StateIdle)
		return false
	}

	e.acc.PlanGenerated(e.goal.Name, res.Plan.Len(), res.Plan.TotalCost,
		res.Expansions, res.FromCache, res.Degraded, res.Duration)
	e.plan = res.Plan
	e.cursor = 0
	e.logger.Debug("plan adopted",
		"goal", e.goal.Name,
		"plan_id", res.Plan.ID.Short(),
		"steps", res.Plan.Len(),
		"cost", res.Plan.TotalCost,
		"from_cache", res.FromCache)

	if res.Plan.IsEmpty() {
		e.achieveGoal()
		return false
	}
	e.setState(StateExecuting)
	return true
}

func (e *Executor) achieveGoal() {
	e.setState(StateGoalAchieved)
	e.acc.GoalAchieved(e.goal.Name, e.plan.ID)
	e.logger.Info("goal achieved", "goal", e.goal.Name, "plan_id", e.plan.ID.Short())
	e.plan = nil
	e.cursor = 0
	e.haveGoal = false
	e.setState(StateIdle)
}

// dispatchNext hands the next plan step to the gateway. Capability and
// precondition problems surface as immediate action failures so the repair
// machinery handles them like any mid-plan failure.
func (e *Executor) dispatchNext(ctx context.Context, snap state.Snapshot, ec action.Context) {
	step := e.plan.Steps[e.cursor]
	act := step.Action

	if !e.gateway.Supports(act.Capability) {
		err := types.NewError(types.CAPABILITY_NOT_FOUND,
			fmt.Sprintf("capability %q for action %q", act.Capability, act.Name))
		e.failBeforeDispatch(ctx, step, err, snap, ec)
		return
	}
	if !snap.SatisfiesAll(act.Preconditions) {
		err := types.NewRetryableError(types.ACTION_FAILED,
			fmt.Sprintf("preconditions for %q no longer hold", act.Name))
		e.failBeforeDispatch(ctx, step, err, snap, ec)
		return
	}

	dctx, release := context.WithTimeout(ctx, e.actionTimeout)
	e.acc.ActionDispatched(act.Name, act.Capability, false)
	handle, err := e.gateway.Dispatch(dctx, gateway.Request{
		Action:     act.Name,
		Capability: act.Capability,
		Params:     act.Params,
	})
	if err != nil {
		release()
		e.failBeforeDispatch(ctx, step, err, snap, ec)
		return
	}
	e.flight = &flight{handle: handle, name: act.Name, index: e.cursor, release: release}
	e.logger.Debug("action dispatched",
		"action", act.Name, "capability", act.Capability, "index", e.cursor)
}

// failBeforeDispatch routes a step that never reached the gateway into the
// ordinary failure path.
func (e *Executor) failBeforeDispatch(ctx context.Context, step goap.Step, err error, snap state.Snapshot, ec action.Context) {
	f := &flight{name: step.Name, index: e.cursor}
	res := gateway.Result{Status: gateway.StatusFailed, Err: err}
	e.actionFailed(ctx, f, res, snap, ec)
}

// State returns the executor's current FSM state.
func (e *Executor) State() State {
	return e.state
}

// Goal returns the subgoal being pursued, if any.
func (e *Executor) Goal() (goap.Goal, bool) {
	return e.goal, e.haveGoal
}

// Plan returns the active plan, or nil. Plans are immutable; callers may
// inspect but must not retain across ticks.
func (e *Executor) Plan() *goap.Plan {
	return e.plan
}

// Cursor returns the index of the next unexecuted plan step.
func (e *Executor) Cursor() int {
	return e.cursor
}

// Stats returns a copy of the telemetry counters.
func (e *Executor) Stats() telemetry.Stats {
	return e.acc.Stats()
}

// Report is a point-in-time picture of the executor for hosts and tools.
type Report struct {
	AgentID  types.ID                `json:"agent_id"`
	State    State                   `json:"state"`
	Ticks    uint64                  `json:"ticks"`
	Goal     string                  `json:"goal,omitempty"`
	PlanID   types.ID                `json:"plan_id,omitempty"`
	PlanSize int                     `json:"plan_size"`
	Cursor   int                     `json:"cursor"`
	Stats    telemetry.Stats         `json:"stats"`
	Cache    goap.CacheStats         `json:"cache"`
	Actions  map[string]ActionRecord `json:"actions"`
}

// Report assembles the current executor picture.
func (e *Executor) Report() Report {
	r := Report{
		AgentID: e.agentID,
		State:   e.state,
		Ticks:   e.ticks,
		Cursor:  e.cursor,
		Stats:   e.acc.Stats(),
		Actions: e.failures.Snapshot(),
	}
	if e.haveGoal {
		r.Goal = e.goal.Name
	}
	if e.plan != nil {
		r.PlanID = e.plan.ID
		r.PlanSize = e.plan.Len()
	}
	if c := e.planner.Cache(); c != nil {
		r.Cache = c.Stats()
	}
	return r
}

func (e *Executor) setState(to State) {
	if to == e.state {
		return
	}
	from := e.state
	if !from.CanTransitionTo(to) {
		e.logger.Warn("irregular state transition", "from", from, "to", to)
	}
	e.state = to
	e.acc.Transition(from.String(), to.String())
}
