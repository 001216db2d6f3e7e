package goap

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

const (
	// DefaultBudget caps one planning call's wall-clock time.
	DefaultBudget = 20 * time.Millisecond

	// DefaultMaxExpansions is the secondary bound on search effort, for
	// hosts where the wall clock is too coarse to rely on alone.
	DefaultMaxExpansions = 20000
)

// Request asks for a plan from Start to Goal under a wall-clock budget.
// A zero Budget uses the planner's configured default.
type Request struct {
	Goal    Goal
	Start   state.Snapshot
	Context action.Context
	Budget  time.Duration
}

// Result carries the plan plus search accounting for telemetry. On error
// the accounting fields are still populated.
type Result struct {
	Plan       *Plan
	FromCache  bool
	Degraded   bool
	Expansions int
	Generated  int
	Duration   time.Duration
}

// Planner runs bounded A* over the action model. Identical requests against
// an identical model produce identical plans: the open set breaks fCost ties
// by lower hCost and then by insertion sequence, and actions expand in
// registration order.
type Planner struct {
	model         *action.Model
	cache         *Cache
	budget        time.Duration
	maxExpansions int
	logger        *slog.Logger
	tracer        trace.Tracer
	clock         func() time.Time
	degradeWarn   rate.Sometimes
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithBudget sets the default wall-clock budget per planning call.
func WithBudget(d time.Duration) PlannerOption {
	return func(p *Planner) {
		if d > 0 {
			p.budget = d
		}
	}
}

// WithMaxExpansions sets the secondary search-effort bound.
func WithMaxExpansions(n int) PlannerOption {
	return func(p *Planner) {
		if n > 0 {
			p.maxExpansions = n
		}
	}
}

// WithCache replaces the planner's plan cache. Passing nil disables caching.
func WithCache(c *Cache) PlannerOption {
	return func(p *Planner) {
		p.cache = c
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) PlannerOption {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer sets the tracer for planning spans.
func WithTracer(tracer trace.Tracer) PlannerOption {
	return func(p *Planner) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithClock overrides the wall-clock source.
func WithClock(clock func() time.Time) PlannerOption {
	return func(p *Planner) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewPlanner creates a planner over the given action model.
func NewPlanner(model *action.Model, opts ...PlannerOption) *Planner {
	p := &Planner{
		model:         model,
		cache:         NewCache(DefaultCacheSize),
		budget:        DefaultBudget,
		maxExpansions: DefaultMaxExpansions,
		logger:        slog.Default(),
		tracer:        otel.Tracer("botcore/goap"),
		clock:         time.Now,
		degradeWarn:   rate.Sometimes{Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "goap_planner")
	return p
}

// Cache exposes the planner's cache for invalidation and stats. Nil when
// caching is disabled.
func (p *Planner) Cache() *Cache {
	return p.cache
}

// Plan searches for an ordered action sequence satisfying the goal.
// It returns PLAN_NOT_FOUND when the budget, the expansion bound, or the
// search space is exhausted, and never returns a partial plan.
func (p *Planner) Plan(ctx context.Context, req Request) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "goap.plan", trace.WithAttributes(
		attribute.String("goal.name", req.Goal.Name),
		attribute.String("goal.kind", string(req.Goal.Kind)),
	))
	defer span.End()

	res := Result{}
	start := p.clock()

	if err := req.Goal.Validate(); err != nil {
		res.Duration = p.clock().Sub(start)
		span.RecordError(err)
		return res, err
	}

	budget := req.Budget
	if budget <= 0 {
		budget = p.budget
	}
	deadline := start.Add(budget)

	goalFP := req.Goal.Fingerprint()
	stateFP := req.Start.Fingerprint()

	if p.cache != nil {
		if plan, ok := p.cache.Get(goalFP, stateFP, req.Start); ok {
			res.Plan = plan
			res.FromCache = true
			res.Duration = p.clock().Sub(start)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return res, nil
		}
	}

	base := HeuristicFor(req.Goal.Kind)
	estimate := func(s state.Snapshot) float64 {
		v, ok := base(s, req.Goal, req.Context)
		if !ok {
			if !res.Degraded {
				res.Degraded = true
				p.degradeWarn.Do(func() {
					p.logger.Warn("heuristic inputs unavailable, using zero heuristic",
						"goal", req.Goal.Name,
						"kind", string(req.Goal.Kind))
				})
			}
			return 0
		}
		return v
	}

	actions := p.model.Actions()

	root := &searchNode{snap: req.Start, fp: stateFP}
	root.h = estimate(req.Start)
	root.f = root.h

	open := &openSet{}
	heap.Init(open)
	heap.Push(open, root)

	bestG := map[uint64]float64{stateFP: 0}
	closed := make(map[uint64]struct{})
	seq := 0

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return p.abandon(span, &res, start, req,
				types.WrapRetryableError(types.PLAN_NOT_FOUND, "planning cancelled", err))
		}
		if p.clock().After(deadline) {
			return p.abandon(span, &res, start, req,
				types.NewRetryableError(types.PLAN_NOT_FOUND, "planning budget exhausted").
					WithContext("budget", budget.String()))
		}
		if res.Expansions >= p.maxExpansions {
			return p.abandon(span, &res, start, req,
				types.NewRetryableError(types.PLAN_NOT_FOUND, "expansion bound reached").
					WithContext("max_expansions", p.maxExpansions))
		}

		current := heap.Pop(open).(*searchNode)
		if _, done := closed[current.fp]; done {
			continue
		}
		closed[current.fp] = struct{}{}

		if req.Goal.SatisfiedBy(current.snap) {
			plan := reconstruct(req.Goal, current, p.clock())
			if p.cache != nil {
				p.cache.Put(goalFP, stateFP, plan)
			}
			res.Plan = plan
			res.Duration = p.clock().Sub(start)
			span.SetAttributes(
				attribute.Int("plan.steps", plan.Len()),
				attribute.Float64("plan.cost", plan.TotalCost),
				attribute.Int("search.expansions", res.Expansions),
			)
			p.logger.Debug("plan found",
				"goal", req.Goal.Name,
				"steps", plan.Len(),
				"cost", plan.TotalCost,
				"expansions", res.Expansions,
				"duration", res.Duration)
			return res, nil
		}

		res.Expansions++
		for _, a := range actions {
			if !current.snap.SatisfiesAll(a.Preconditions) {
				continue
			}
			next, err := current.snap.Apply(a.Effects)
			if err != nil {
				p.logger.Debug("action effects inapplicable, skipping",
					"action", a.Name, "error", err)
				continue
			}
			fp := next.Fingerprint()
			if _, done := closed[fp]; done {
				continue
			}
			cost := a.Cost(current.snap, req.Context)
			g := current.g + cost
			if prev, seen := bestG[fp]; seen && prev <= g {
				continue
			}
			bestG[fp] = g

			seq++
			child := &searchNode{
				snap:   next,
				fp:     fp,
				parent: current,
				step:   Step{Action: a, Name: a.Name, Cost: cost},
				g:      g,
				seq:    seq,
			}
			child.h = estimate(next)
			child.f = child.g + child.h
			res.Generated++
			heap.Push(open, child)
		}
	}

	return p.abandon(span, &res, start, req,
		types.NewRetryableError(types.PLAN_NOT_FOUND, "search space exhausted").
			WithContext("expansions", res.Expansions))
}

// abandon finalizes accounting for an unsuccessful search.
func (p *Planner) abandon(span trace.Span, res *Result, start time.Time, req Request, err *types.AgentError) (Result, error) {
	res.Duration = p.clock().Sub(start)
	err = err.WithContext("goal", req.Goal.Name)
	span.RecordError(err)
	span.SetAttributes(attribute.Int("search.expansions", res.Expansions))
	p.logger.Debug("planning abandoned",
		"goal", req.Goal.Name,
		"expansions", res.Expansions,
		"duration", res.Duration,
		"error", err)
	return *res, err
}

// searchNode is one reached state in the A* frontier.
type searchNode struct {
	snap    state.Snapshot
	fp      uint64
	parent  *searchNode
	step    Step
	g, h, f float64
	seq     int
}

// openSet orders the frontier by fCost, breaking ties by lower hCost and
// then by insertion sequence so runs are reproducible.
type openSet []*searchNode

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	if o[i].h != o[j].h {
		return o[i].h < o[j].h
	}
	return o[i].seq < o[j].seq
}

func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openSet) Push(x any) {
	*o = append(*o, x.(*searchNode))
}

func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return item
}

// reconstruct walks parents back to the root and builds the plan.
func reconstruct(goal Goal, n *searchNode, now time.Time) *Plan {
	var steps []Step
	for cur := n; cur.parent != nil; cur = cur.parent {
		steps = append(steps, cur.step)
	}
	slices.Reverse(steps)
	return NewPlan(goal, steps, now)
}

// Describe renders a compact one-line summary for logs and the CLI.
func Describe(p *Plan) string {
	if p == nil {
		return "<no plan>"
	}
	if p.IsEmpty() {
		return fmt.Sprintf("plan %s: goal %q already satisfied", p.ID, p.Goal.Name)
	}
	names := p.ActionNames()
	return fmt.Sprintf("plan %s: %d step(s) for %q, cost %.2f: %v",
		p.ID, p.Len(), p.Goal.Name, p.TotalCost, names)
}
