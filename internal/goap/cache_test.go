package goap

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/action"
	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

func cachedPlan(t *testing.T, lead state.Term) *Plan {
	t.Helper()
	a := action.Action{
		Name:          "step",
		Capability:    "noop",
		BaseCost:      1,
		Preconditions: []state.Term{lead},
		Effects:       []state.Term{state.NewTerm("done", state.OpSet, state.Bool(true))},
	}
	goal := Goal{Name: "g", Terms: []state.Term{state.NewTerm("done", state.OpEq, state.Bool(true))}}
	return NewPlan(goal, []Step{{Action: a, Name: a.Name, Cost: 1}}, time.Now())
}

func TestCache_HitAndMiss(t *testing.T) {
	c := NewCache(4)
	fresh := state.NewSnapshot(map[string]state.Value{"hasFood": state.Bool(true)})
	plan := cachedPlan(t, state.NewTerm("hasFood", state.OpEq, state.Bool(true)))

	_, ok := c.Get(1, 2, fresh)
	assert.False(t, ok)

	c.Put(1, 2, plan)
	got, ok := c.Get(1, 2, fresh)
	require.True(t, ok)
	assert.Equal(t, plan.ID, got.ID)

	// Same goal from a different state is a different entry.
	_, ok = c.Get(1, 3, fresh)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_StaleLeadActionEvicted(t *testing.T) {
	c := NewCache(4)
	plan := cachedPlan(t, state.NewTerm("hasFood", state.OpEq, state.Bool(true)))
	c.Put(7, 8, plan)

	// The world moved on: the lead action's precondition no longer holds.
	noFood := state.NewSnapshot(map[string]state.Value{"hasFood": state.Bool(false)})
	_, ok := c.Get(7, 8, noFood)
	assert.False(t, ok, "stale entries must never be served")
	assert.Equal(t, 0, c.Len(), "stale entries are evicted on sight")

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Stale)
	assert.Equal(t, uint64(1), stats.Misses)

	// Same key asked again: the entry is gone.
	_, ok = c.Get(7, 8, noFood)
	assert.False(t, ok)
}

func TestCache_EmptyPlanAlwaysFresh(t *testing.T) {
	c := NewCache(4)
	goal := Goal{Name: "g", Terms: []state.Term{state.NewTerm("done", state.OpEq, state.Bool(true))}}
	empty := NewPlan(goal, nil, time.Now())
	c.Put(1, 1, empty)

	got, ok := c.Get(1, 1, state.NewSnapshot(nil))
	require.True(t, ok)
	assert.True(t, got.IsEmpty())
}

func TestCache_LRUBound(t *testing.T) {
	c := NewCache(2)
	fresh := state.NewSnapshot(map[string]state.Value{"hasFood": state.Bool(true)})
	lead := state.NewTerm("hasFood", state.OpEq, state.Bool(true))

	c.Put(1, 1, cachedPlan(t, lead))
	c.Put(2, 2, cachedPlan(t, lead))

	// Touch (1,1) so (2,2) becomes least recently used.
	_, ok := c.Get(1, 1, fresh)
	require.True(t, ok)

	c.Put(3, 3, cachedPlan(t, lead))
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get(2, 2, fresh)
	assert.False(t, ok, "least recently used entry should have been evicted")
	_, ok = c.Get(1, 1, fresh)
	assert.True(t, ok)
	_, ok = c.Get(3, 3, fresh)
	assert.True(t, ok)

	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestCache_InvalidateGoal(t *testing.T) {
	c := NewCache(8)
	lead := state.NewTerm("hasFood", state.OpEq, state.Bool(true))
	fresh := state.NewSnapshot(map[string]state.Value{"hasFood": state.Bool(true)})

	c.Put(10, 1, cachedPlan(t, lead))
	c.Put(10, 2, cachedPlan(t, lead))
	c.Put(11, 1, cachedPlan(t, lead))

	c.Invalidate(10)

	_, ok := c.Get(10, 1, fresh)
	assert.False(t, ok)
	_, ok = c.Get(10, 2, fresh)
	assert.False(t, ok)
	_, ok = c.Get(11, 1, fresh)
	assert.True(t, ok, "other goals' entries survive invalidation")
}

func TestCache_PutUpdatesExisting(t *testing.T) {
	c := NewCache(2)
	lead := state.NewTerm("hasFood", state.OpEq, state.Bool(true))
	fresh := state.NewSnapshot(map[string]state.Value{"hasFood": state.Bool(true)})

	first := cachedPlan(t, lead)
	second := cachedPlan(t, lead)
	c.Put(1, 1, first)
	c.Put(1, 1, second)

	assert.Equal(t, 1, c.Len())
	got, ok := c.Get(1, 1, fresh)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
}

func TestCache_DefaultSize(t *testing.T) {
	c := NewCache(0)
	lead := state.NewTerm("hasFood", state.OpEq, state.Bool(true))
	for i := 0; i < DefaultCacheSize+10; i++ {
		c.Put(uint64(i), uint64(i), cachedPlan(t, lead))
	}
	assert.Equal(t, DefaultCacheSize, c.Len(), fmt.Sprintf("cache must stay bounded at %d", DefaultCacheSize))
}
