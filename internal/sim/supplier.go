package sim

import (
	"context"
	"log/slog"
	"sync"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/goap"
)

// Supplier walks an ordered goal script against the live world. A goal the
// world already satisfies is skipped; a goal the executor reports
// unsatisfiable is abandoned and the script advances. When the script is
// exhausted the supplier answers with no goal and the agent stands down.
type Supplier struct {
	world  *World
	logger *slog.Logger

	mu          sync.Mutex
	goals       []goap.Goal
	index       int
	escalations []Escalation
}

// Escalation records one unsatisfiable report from the executor.
type Escalation struct {
	Goal  string
	Cause error
}

// SupplierOption configures a scripted supplier.
type SupplierOption func(*Supplier)

// WithSupplierLogger sets the logger.
func WithSupplierLogger(logger *slog.Logger) SupplierOption {
	return func(s *Supplier) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSupplier creates a supplier over the script, in order.
func NewSupplier(world *World, goals []goap.Goal, opts ...SupplierOption) *Supplier {
	s := &Supplier{
		world:  world,
		goals:  append([]goap.Goal(nil), goals...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sim.supplier")
	return s
}

// Current returns the first scripted goal the world does not already
// satisfy. Skipped goals are consumed; the script never rewinds.
func (s *Supplier) Current(context.Context) (goap.Goal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.world.Snapshot()
	for s.index < len(s.goals) && s.goals[s.index].SatisfiedBy(snap) {
		s.logger.Debug("goal satisfied, advancing script", "goal", s.goals[s.index].Name)
		s.index++
	}
	if s.index >= len(s.goals) {
		return goap.Goal{}, false, nil
	}
	return s.goals[s.index], true, nil
}

// ReportUnsatisfiable records the escalation and abandons the goal so the
// script can make progress.
func (s *Supplier) ReportUnsatisfiable(_ context.Context, goal goap.Goal, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalations = append(s.escalations, Escalation{Goal: goal.Name, Cause: cause})
	s.logger.Warn("goal reported unsatisfiable", "goal", goal.Name, "error", cause)
	if s.index < len(s.goals) && s.goals[s.index].Fingerprint() == goal.Fingerprint() {
		s.index++
	}
}

// Done reports whether the script is exhausted.
func (s *Supplier) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index >= len(s.goals)
}

// Remaining returns how many scripted goals are still pending.
func (s *Supplier) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.goals) - s.index
}

// Escalations returns a copy of the recorded unsatisfiable reports.
func (s *Supplier) Escalations() []Escalation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Escalation(nil), s.escalations...)
}
