package state

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Op is a predicate operator. Comparison operators appear in goal terms and
// action preconditions; mutation operators appear in action effects.
type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpGte Op = ">="
	OpGt  Op = ">"
	OpLte Op = "<="
	OpLt  Op = "<"

	OpSet Op = "="
	OpAdd Op = "+="
	OpSub Op = "-="
)

// IsComparison reports whether the operator tests a value.
func (o Op) IsComparison() bool {
	switch o {
	case OpEq, OpNeq, OpGte, OpGt, OpLte, OpLt:
		return true
	}
	return false
}

// IsMutation reports whether the operator writes a value.
func (o Op) IsMutation() bool {
	switch o {
	case OpSet, OpAdd, OpSub:
		return true
	}
	return false
}

// Valid reports whether the operator is a known comparison or mutation.
func (o Op) Valid() bool {
	return o.IsComparison() || o.IsMutation()
}

// Kind discriminates the payload of a Value.
type Kind uint8

const (
	KindNumber Kind = iota
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single predicate value: a number, a boolean, or a string.
// The zero Value is the number 0.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Bool bool
}

// Num constructs a numeric Value.
func Num(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// Bool constructs a boolean Value.
func Bool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// Str constructs a string Value.
func Str(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Zero returns the closed-world default for the given kind: 0, false, or "".
// Predicates absent from a snapshot evaluate as this default.
func Zero(kind Kind) Value {
	return Value{Kind: kind}
}

// String returns the display form of the value.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindString:
		return v.Str
	default:
		return fmt.Sprintf("value(kind=%d)", uint8(v.Kind))
	}
}

// Canonical returns an unambiguous encoding used for fingerprinting.
// Distinct values always canonicalize differently: the kind prefix keeps
// the number 1 and the string "1" apart.
func (v Value) Canonical() string {
	switch v.Kind {
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return "b:" + strconv.FormatBool(v.Bool)
	case KindString:
		return "s:" + v.Str
	default:
		return "?:"
	}
}

// Equal reports strict equality: same kind and same payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindBool:
		return v.Bool == o.Bool
	case KindString:
		return v.Str == o.Str
	}
	return false
}

// Validate rejects values that would break fingerprint or cost arithmetic.
func (v Value) Validate() error {
	if v.Kind == KindNumber && (math.IsNaN(v.Num) || math.IsInf(v.Num, 0)) {
		return fmt.Errorf("numeric value must be finite, got %v", v.Num)
	}
	if v.Kind > KindString {
		return fmt.Errorf("unknown value kind %d", v.Kind)
	}
	return nil
}

// Compare evaluates `v op target` where v is the stored (or closed-world
// default) binding and target comes from a goal term or precondition.
// Ordered operators require both sides numeric; mismatched kinds under == are
// false and under != are true.
func (v Value) Compare(op Op, target Value) (bool, error) {
	switch op {
	case OpEq:
		return v.Equal(target), nil
	case OpNeq:
		return !v.Equal(target), nil
	case OpGte, OpGt, OpLte, OpLt:
		if v.Kind != KindNumber || target.Kind != KindNumber {
			return false, fmt.Errorf("operator %q requires numeric operands, got %s and %s", op, v.Kind, target.Kind)
		}
		switch op {
		case OpGte:
			return v.Num >= target.Num, nil
		case OpGt:
			return v.Num > target.Num, nil
		case OpLte:
			return v.Num <= target.Num, nil
		default:
			return v.Num < target.Num, nil
		}
	default:
		return false, fmt.Errorf("operator %q is not a comparison", op)
	}
}

// UnmarshalYAML decodes a scalar YAML node into the matching value kind,
// so action sets and scenarios write `value: 80` or `value: true` directly.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Num(f)
	case "!!str":
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*v = Str(s)
	default:
		return fmt.Errorf("value must be a number, bool, or string scalar, got %s", node.Tag)
	}
	return v.Validate()
}

// MarshalYAML emits the natural scalar for the value kind.
func (v Value) MarshalYAML() (any, error) {
	switch v.Kind {
	case KindNumber:
		return v.Num, nil
	case KindBool:
		return v.Bool, nil
	case KindString:
		return v.Str, nil
	default:
		return nil, fmt.Errorf("unknown value kind %d", uint8(v.Kind))
	}
}

// Term is one predicate clause: `predicate(args...) op value`.
// With a comparison operator it is a condition (goal term, precondition);
// with a mutation operator it is an effect.
type Term struct {
	Predicate string   `yaml:"predicate"`
	Args      []string `yaml:"args,omitempty"`
	Op        Op       `yaml:"op"`
	Value     Value    `yaml:"value"`
}

// NewTerm builds a term over predicate(args...).
func NewTerm(predicate string, op Op, value Value, args ...string) Term {
	return Term{Predicate: predicate, Args: args, Op: op, Value: value}
}

// Key returns the snapshot key for the term's predicate instance:
// "hunger" or "distance(spawn)".
func (t Term) Key() string {
	if len(t.Args) == 0 {
		return t.Predicate
	}
	return t.Predicate + "(" + strings.Join(t.Args, ",") + ")"
}

// Canonical returns the fingerprint encoding of the whole clause.
func (t Term) Canonical() string {
	return t.Key() + string(t.Op) + t.Value.Canonical()
}

// String renders the clause for logs.
func (t Term) String() string {
	return fmt.Sprintf("%s %s %s", t.Key(), t.Op, t.Value)
}

// Validate checks structural well-formedness. Whether the operator class
// (comparison vs mutation) fits the position is the caller's check.
func (t Term) Validate() error {
	if t.Predicate == "" {
		return fmt.Errorf("term predicate cannot be empty")
	}
	if strings.ContainsAny(t.Predicate, "(),") {
		return fmt.Errorf("term predicate %q contains reserved characters", t.Predicate)
	}
	for _, arg := range t.Args {
		if arg == "" {
			return fmt.Errorf("term %q has an empty argument", t.Predicate)
		}
		if strings.ContainsAny(arg, "(),") {
			return fmt.Errorf("term %q argument %q contains reserved characters", t.Predicate, arg)
		}
	}
	if !t.Op.Valid() {
		return fmt.Errorf("term %q has unknown operator %q", t.Predicate, t.Op)
	}
	if err := t.Value.Validate(); err != nil {
		return fmt.Errorf("term %q: %w", t.Predicate, err)
	}
	if (t.Op == OpAdd || t.Op == OpSub) && t.Value.Kind != KindNumber {
		return fmt.Errorf("term %q: operator %q requires a numeric value", t.Predicate, t.Op)
	}
	return nil
}

// ValidateTerms validates a slice and additionally pins the operator class.
func ValidateTerms(terms []Term, wantMutation bool) error {
	for i, t := range terms {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("term %d: %w", i, err)
		}
		if wantMutation && !t.Op.IsMutation() {
			return fmt.Errorf("term %d (%s): effects require a mutation operator, got %q", i, t.Key(), t.Op)
		}
		if !wantMutation && !t.Op.IsComparison() {
			return fmt.Errorf("term %d (%s): conditions require a comparison operator, got %q", i, t.Key(), t.Op)
		}
	}
	return nil
}
