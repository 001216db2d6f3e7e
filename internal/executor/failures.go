package executor

import (
	"sync"
	"time"
)

// ActionRecord aggregates the outcome history of one action name.
type ActionRecord struct {
	// Attempts counts every harvested dispatch of this action.
	Attempts int

	// Successes counts completed dispatches.
	Successes int

	// Failures counts failed, timed-out, and cancelled dispatches.
	Failures int

	// Consecutive is the current run of failures with no success in
	// between. It resets to zero on the next success.
	Consecutive int

	// LastError holds the message of the most recent failure, empty when
	// the last outcome succeeded.
	LastError string

	// LastAt is when the most recent outcome was recorded.
	LastAt time.Time
}

// FailureMemory tracks per-action outcomes across the executor's lifetime.
// The records feed the executor report so hosts can see which actions keep
// letting the agent down.
type FailureMemory struct {
	mu      sync.RWMutex
	records map[string]*ActionRecord
}

// NewFailureMemory creates an empty FailureMemory.
func NewFailureMemory() *FailureMemory {
	return &FailureMemory{
		records: make(map[string]*ActionRecord),
	}
}

// Record notes one harvested outcome for an action.
func (fm *FailureMemory) Record(action string, success bool, err error, now time.Time) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	rec, ok := fm.records[action]
	if !ok {
		rec = &ActionRecord{}
		fm.records[action] = rec
	}

	rec.Attempts++
	rec.LastAt = now
	if success {
		rec.Successes++
		rec.Consecutive = 0
		rec.LastError = ""
		return
	}

	rec.Failures++
	rec.Consecutive++
	if err != nil {
		rec.LastError = err.Error()
	} else {
		rec.LastError = ""
	}
}

// Get returns a copy of the record for one action.
func (fm *FailureMemory) Get(action string) (ActionRecord, bool) {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	rec, ok := fm.records[action]
	if !ok {
		return ActionRecord{}, false
	}
	return *rec, true
}

// Snapshot returns a copy of every record keyed by action name.
func (fm *FailureMemory) Snapshot() map[string]ActionRecord {
	fm.mu.RLock()
	defer fm.mu.RUnlock()

	out := make(map[string]ActionRecord, len(fm.records))
	for name, rec := range fm.records {
		out[name] = *rec
	}
	return out
}

// Clear resets all recorded outcomes.
func (fm *FailureMemory) Clear() {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	fm.records = make(map[string]*ActionRecord)
}
