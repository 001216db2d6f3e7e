package action

import (
	"sync"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/types"
)

// Model is the registry of actions available to the planner. Registration
// validates and deep-copies each action; lookups hand out copies, so a
// registered action is never mutated through the registry. Iteration order
// is registration order, which keeps plan search deterministic.
type Model struct {
	mu      sync.RWMutex
	actions []Action
	index   map[string]int
}

// NewModel creates an empty action registry.
func NewModel() *Model {
	return &Model{
		index: make(map[string]int),
	}
}

// Register validates and adds an action. Duplicate names are rejected.
func (m *Model) Register(a Action) error {
	if err := a.Validate(); err != nil {
		return types.WrapError(types.MODEL_INVALID, "action rejected", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index[a.Name]; exists {
		return types.NewError(types.MODEL_INVALID, "duplicate action name "+a.Name)
	}

	m.index[a.Name] = len(m.actions)
	m.actions = append(m.actions, a.clone())
	return nil
}

// RegisterAll registers actions in order, stopping at the first failure.
func (m *Model) RegisterAll(actions ...Action) error {
	for _, a := range actions {
		if err := m.Register(a); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a copy of the named action.
func (m *Model) Get(name string) (Action, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[name]
	if !ok {
		return Action{}, false
	}
	return m.actions[i].clone(), true
}

// Actions returns copies of all registered actions in registration order.
func (m *Model) Actions() []Action {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Action, len(m.actions))
	for i, a := range m.actions {
		out[i] = a.clone()
	}
	return out
}

// Names returns action names in registration order.
func (m *Model) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.actions))
	for i, a := range m.actions {
		names[i] = a.Name
	}
	return names
}

// Len returns the number of registered actions.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.actions)
}
