// Package state models the agent's observed world as predicate bindings.
//
// A Snapshot is an immutable point-in-time view: applying effects yields a
// new Snapshot and never touches the source. Fingerprints give snapshots and
// term sets a stable 64-bit identity used by the plan cache and the search
// closed set, independent of map iteration order.
package state

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is a read-only set of predicate bindings keyed by Term.Key().
// Predicates absent from the snapshot evaluate under the closed-world rule:
// they compare as the zero value of the term's kind (0, false, or "").
type Snapshot struct {
	facts map[string]Value
}

// NewSnapshot copies facts into a fresh snapshot. The input map stays owned
// by the caller.
func NewSnapshot(facts map[string]Value) Snapshot {
	copied := make(map[string]Value, len(facts))
	for k, v := range facts {
		copied[k] = v
	}
	return Snapshot{facts: copied}
}

// Get returns the binding for key and whether it is present.
func (s Snapshot) Get(key string) (Value, bool) {
	v, ok := s.facts[key]
	return v, ok
}

// Number returns the numeric binding for key, or 0 when the key is absent.
// The second result is false when the key is bound to a non-number.
func (s Snapshot) Number(key string) (float64, bool) {
	v, ok := s.facts[key]
	if !ok {
		return 0, true
	}
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Flag returns the boolean binding for key, absent keys read as false.
func (s Snapshot) Flag(key string) bool {
	v, ok := s.facts[key]
	return ok && v.Kind == KindBool && v.Bool
}

// Len returns the number of bindings.
func (s Snapshot) Len() int {
	return len(s.facts)
}

// Keys returns the bound keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.facts))
	for k := range s.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Satisfies evaluates one comparison term against the snapshot.
// Kind mismatches and non-numeric ordered comparisons are unsatisfied
// rather than errors: a plan search probes many ill-fitting states.
func (s Snapshot) Satisfies(t Term) bool {
	if !t.Op.IsComparison() {
		return false
	}
	stored, ok := s.facts[t.Key()]
	if !ok {
		stored = Zero(t.Value.Kind)
	}
	ok, err := stored.Compare(t.Op, t.Value)
	if err != nil {
		return false
	}
	return ok
}

// SatisfiesAll reports whether every term holds.
func (s Snapshot) SatisfiesAll(terms []Term) bool {
	for _, t := range terms {
		if !s.Satisfies(t) {
			return false
		}
	}
	return true
}

// Apply returns a new snapshot with the effect terms applied in order.
// The receiver is never modified. Arithmetic effects on an absent predicate
// start from 0; arithmetic on a non-numeric binding is an error.
func (s Snapshot) Apply(effects []Term) (Snapshot, error) {
	next := make(map[string]Value, len(s.facts)+len(effects))
	for k, v := range s.facts {
		next[k] = v
	}

	for _, eff := range effects {
		key := eff.Key()
		switch eff.Op {
		case OpSet:
			next[key] = eff.Value
		case OpAdd, OpSub:
			if eff.Value.Kind != KindNumber {
				return Snapshot{}, fmt.Errorf("effect %s: %q requires a numeric value", key, eff.Op)
			}
			current, ok := next[key]
			if !ok {
				current = Num(0)
			}
			if current.Kind != KindNumber {
				return Snapshot{}, fmt.Errorf("effect %s: cannot apply %q to %s binding", key, eff.Op, current.Kind)
			}
			delta := eff.Value.Num
			if eff.Op == OpSub {
				delta = -delta
			}
			next[key] = Num(current.Num + delta)
		default:
			return Snapshot{}, fmt.Errorf("effect %s: operator %q is not a mutation", key, eff.Op)
		}
	}

	return Snapshot{facts: next}, nil
}

// With returns a copy of the snapshot with a single binding replaced.
func (s Snapshot) With(key string, v Value) Snapshot {
	next := make(map[string]Value, len(s.facts)+1)
	for k, val := range s.facts {
		next[k] = val
	}
	next[key] = v
	return Snapshot{facts: next}
}

// Without returns a copy of the snapshot with one binding removed.
func (s Snapshot) Without(key string) Snapshot {
	next := make(map[string]Value, len(s.facts))
	for k, val := range s.facts {
		if k != key {
			next[k] = val
		}
	}
	return Snapshot{facts: next}
}

// Fingerprint returns a 64-bit digest of the normalized bindings.
// Equal snapshots fingerprint equally on every run and platform; the sorted
// key walk removes map-order dependence.
func (s Snapshot) Fingerprint() uint64 {
	d := xxhash.New()
	for _, k := range s.Keys() {
		_, _ = d.WriteString(k)
		_, _ = d.Write(sep)
		_, _ = d.WriteString(s.facts[k].Canonical())
		_, _ = d.Write(sep)
	}
	return d.Sum64()
}

var sep = []byte{0}

// HashStrings digests an ordered list of parts into one 64-bit identity.
// Goal fingerprints are built from this over the goal's canonical fields.
func HashStrings(parts ...string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write(sep)
	}
	return d.Sum64()
}
