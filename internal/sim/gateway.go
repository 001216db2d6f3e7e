package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/gateway"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// Capability declares one executable capability and how long the simulated
// embodiment takes to run it.
type Capability struct {
	Name    string   `yaml:"name"`
	Latency Duration `yaml:"latency"`
}

// Fault scripts failure injection for one action: the first Failures
// dispatches fail outright, and after the counter drains each dispatch
// fails with probability Rate under the scenario's seeded source.
type Fault struct {
	Action   string   `yaml:"action"`
	Failures int      `yaml:"failures"`
	Rate     float64  `yaml:"rate,omitempty"`
	Delay    Duration `yaml:"delay,omitempty"`
}

type faultState struct {
	remaining int
	rate      float64
	delay     time.Duration
}

// operation tracks one in-flight dispatch for the busy guard. finished is
// set by the worker just before it delivers the result; a cancelled
// context also frees the slot so a reflex can dispatch in the same tick.
type operation struct {
	ctx      context.Context
	finished atomic.Bool
}

// Gateway is the simulated execution boundary. Each dispatch runs on its
// own goroutine, sleeps the capability's latency, then either reports an
// injected fault or applies the action's effects to the world. At most one
// operation runs at a time.
type Gateway struct {
	model  *action.Model
	world  *World
	caps   map[string]time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	faults  map[string]*faultState
	rng     *rand.Rand
	current *operation
}

// GatewayOption configures a simulated gateway.
type GatewayOption func(*Gateway)

// WithCapabilities registers the executable capabilities. A capability
// with zero latency completes on the next poll.
func WithCapabilities(caps ...Capability) GatewayOption {
	return func(g *Gateway) {
		for _, c := range caps {
			g.caps[c.Name] = time.Duration(c.Latency)
		}
	}
}

// WithFaults scripts failure injections.
func WithFaults(faults ...Fault) GatewayOption {
	return func(g *Gateway) {
		for _, f := range faults {
			g.faults[f.Action] = &faultState{
				remaining: f.Failures,
				rate:      f.Rate,
				delay:     time.Duration(f.Delay),
			}
		}
	}
}

// WithSeed fixes the random source used for rate-based faults.
func WithSeed(seed int64) GatewayOption {
	return func(g *Gateway) {
		g.rng = rand.New(rand.NewSource(seed))
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates a simulated gateway over the given action model and
// world. Without WithCapabilities it supports nothing.
func NewGateway(model *action.Model, world *World, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		model:  model,
		world:  world,
		caps:   make(map[string]time.Duration),
		faults: make(map[string]*faultState),
		rng:    rand.New(rand.NewSource(1)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "sim.gateway")
	return g
}

// Supports reports whether the capability is registered.
func (g *Gateway) Supports(capability string) bool {
	_, ok := g.caps[capability]
	return ok
}

// Capabilities lists the registered capability names, sorted.
func (g *Gateway) Capabilities() []string {
	names := make([]string, 0, len(g.caps))
	for name := range g.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch starts one simulated execution. It rejects unknown capabilities
// and refuses to overlap with a live operation; an operation whose context
// is already cancelled no longer occupies the slot.
func (g *Gateway) Dispatch(ctx context.Context, req gateway.Request) (*gateway.Dispatch, error) {
	latency, ok := g.caps[req.Capability]
	if !ok {
		return nil, types.NewError(types.CAPABILITY_NOT_FOUND,
			fmt.Sprintf("capability %q is not available in this embodiment", req.Capability))
	}

	g.mu.Lock()
	if cur := g.current; cur != nil && !cur.finished.Load() && cur.ctx.Err() == nil {
		g.mu.Unlock()
		return nil, types.NewRetryableError(types.GATEWAY_BUSY,
			fmt.Sprintf("cannot dispatch %q: another operation is in flight", req.Action))
	}
	opCtx, cancel := context.WithCancel(ctx)
	op := &operation{ctx: opCtx}
	g.current = op
	g.mu.Unlock()

	g.logger.Debug("dispatching action",
		"action", req.Action,
		"capability", req.Capability,
		"latency", latency,
		"reflex", req.Reflex)

	done := make(chan gateway.Result, 1)
	go g.run(op, req, latency, done)
	return gateway.NewDispatch(req, cancel, done), nil
}

func (g *Gateway) run(op *operation, req gateway.Request, latency time.Duration, done chan<- gateway.Result) {
	start := time.Now()
	if extra := g.faultDelay(req.Action); extra > 0 {
		latency += extra
	}

	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-op.ctx.Done():
		res := g.interrupted(req, op.ctx.Err(), start)
		op.finished.Store(true)
		done <- res
		return
	case <-timer.C:
	}

	res := g.land(req, start)
	op.finished.Store(true)
	done <- res
}

// interrupted maps a dead context to a terminal result: the caller's
// deadline is a gateway timeout, anything else is a deliberate cancel.
func (g *Gateway) interrupted(req gateway.Request, cause error, start time.Time) gateway.Result {
	elapsed := time.Since(start)
	if errors.Is(cause, context.DeadlineExceeded) {
		g.logger.Warn("action timed out", "action", req.Action, "elapsed", elapsed)
		return gateway.Result{
			Status:   gateway.StatusFailed,
			Err:      types.WrapRetryableError(types.GATEWAY_TIMEOUT, fmt.Sprintf("action %q exceeded its deadline", req.Action), cause),
			Duration: elapsed,
		}
	}
	g.logger.Debug("action cancelled", "action", req.Action, "elapsed", elapsed)
	return gateway.Result{
		Status:   gateway.StatusCancelled,
		Err:      types.WrapError(types.ACTION_CANCELLED, fmt.Sprintf("action %q was cancelled", req.Action), cause),
		Duration: elapsed,
	}
}

// land resolves the outcome once the latency has elapsed: injected fault,
// reflex override, or normal effect application.
func (g *Gateway) land(req gateway.Request, start time.Time) gateway.Result {
	elapsed := time.Since(start)

	if g.takeFault(req.Action) {
		g.logger.Debug("injected failure", "action", req.Action)
		return gateway.Result{
			Status:   gateway.StatusFailed,
			Err:      types.NewRetryableError(types.ACTION_FAILED, fmt.Sprintf("injected failure for action %q", req.Action)),
			Duration: elapsed,
		}
	}

	if req.Reflex {
		g.world.applyReflexOutcome(req.Action)
		return gateway.Result{Status: gateway.StatusCompleted, Duration: elapsed}
	}

	act, ok := g.model.Get(req.Action)
	if !ok {
		return gateway.Result{
			Status:   gateway.StatusFailed,
			Err:      types.NewError(types.ACTION_UNKNOWN, fmt.Sprintf("action %q is not in the model", req.Action)),
			Duration: elapsed,
		}
	}
	if err := g.world.ApplyEffects(act.Effects); err != nil {
		return gateway.Result{
			Status:   gateway.StatusFailed,
			Err:      types.WrapError(types.ACTION_FAILED, fmt.Sprintf("applying effects of %q", req.Action), err),
			Duration: elapsed,
		}
	}
	g.logger.Debug("action completed", "action", req.Action, "elapsed", elapsed)
	return gateway.Result{Status: gateway.StatusCompleted, Duration: elapsed}
}

// takeFault consumes one scripted failure for the action if any remain,
// then falls back to the rate-based coin flip.
func (g *Gateway) takeFault(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.faults[name]
	if !ok {
		return false
	}
	if f.remaining > 0 {
		f.remaining--
		return true
	}
	return f.rate > 0 && g.rng.Float64() < f.rate
}

func (g *Gateway) faultDelay(name string) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.faults[name]; ok {
		return f.delay
	}
	return 0
}
