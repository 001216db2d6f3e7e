// Package gateway defines the action execution boundary. The gateway is
// the core's sole asynchronous seam: the executor dispatches at most one
// operation at a time, owns its timeout and cancellation, and polls the
// handle once per tick for the terminal result.
package gateway

import (
	"context"
	"time"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

// Status classifies how a dispatch ended.
type Status string

const (
	// StatusCompleted means the embodiment executed the action.
	StatusCompleted Status = "completed"

	// StatusFailed means the embodiment reported failure or the
	// caller-owned timeout elapsed.
	StatusFailed Status = "failed"

	// StatusCancelled means the caller cancelled the dispatch before it
	// finished. A cancelled action is failed-not-completed.
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Request carries one action invocation: the resolved name, the
// capability to execute it with, and the bound parameters. Reflex marks
// a safety override dispatched without precondition checks.
type Request struct {
	Action     string
	Capability string
	Params     map[string]state.Value
	Reflex     bool
}

// Result is the terminal outcome of one dispatch, reported exactly once.
// Duration is measured by the gateway from dispatch to completion.
type Result struct {
	Status   Status
	Err      error
	Duration time.Duration
}

// Completed reports whether the action actually executed.
func (r Result) Completed() bool {
	return r.Status == StatusCompleted
}

// Gateway executes actions against the embodiment. Implementations must
// deliver exactly one Result per dispatch and honor context
// cancellation promptly.
type Gateway interface {
	// Supports reports whether the embodiment can execute a capability.
	Supports(capability string) bool

	// Capabilities lists the executable capability names.
	Capabilities() []string

	// Dispatch starts one asynchronous action execution. The context
	// carries the caller-owned timeout and cancellation; the returned
	// handle yields the terminal result.
	Dispatch(ctx context.Context, req Request) (*Dispatch, error)
}

// Dispatch is one in-flight operation. It is owned by a single caller
// and polled from a single goroutine.
type Dispatch struct {
	req       Request
	cancel    context.CancelFunc
	done      <-chan Result
	result    Result
	harvested bool
}

// NewDispatch wraps an in-flight operation for the caller. The done
// channel must deliver exactly one Result; cancel must be safe to call
// more than once.
func NewDispatch(req Request, cancel context.CancelFunc, done <-chan Result) *Dispatch {
	return &Dispatch{req: req, cancel: cancel, done: done}
}

// Request returns the dispatched request.
func (d *Dispatch) Request() Request {
	return d.req
}

// Cancel signals the gateway to abandon the operation. It does not
// await the result; the terminal Result still arrives on the handle.
func (d *Dispatch) Cancel() {
	if d.cancel != nil {
		d.cancel()
	}
}

// Poll returns the terminal result without blocking. Once harvested,
// the same result is returned on every subsequent call.
func (d *Dispatch) Poll() (Result, bool) {
	if d.harvested {
		return d.result, true
	}
	select {
	case r := <-d.done:
		d.result = r
		d.harvested = true
		return r, true
	default:
		return Result{}, false
	}
}

// Await blocks until the terminal result arrives or the context ends.
func (d *Dispatch) Await(ctx context.Context) (Result, error) {
	if d.harvested {
		return d.result, nil
	}
	select {
	case r := <-d.done:
		d.result = r
		d.harvested = true
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
