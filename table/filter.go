package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is a column comparison operator.
type Op int

const (
	EQ Op = iota
	NE
	GT
	GE
	LT
	LE
)

var opTokens = [...]string{
	EQ: "eq",
	NE: "ne",
	GT: "gt",
	GE: "ge",
	LT: "lt",
	LE: "le",
}

// Token returns the wire token for the operator.
func (op Op) Token() string {
	if op < EQ || op > LE {
		return fmt.Sprintf("op(%d)", int(op))
	}
	return opTokens[op]
}

func (op Op) String() string {
	return strings.ToUpper(op.Token())
}

// ParseOp resolves a wire token, case-insensitively.
func ParseOp(token string) (Op, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	for i, candidate := range opTokens {
		if candidate == t {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOp, token)
}

// Predicate constrains one column.
type Predicate struct {
	Column string
	Op     Op
	Value  string
}

// Filter is an ordered list of predicates combined with AND. A nil Filter
// matches everything.
type Filter struct {
	predicates []Predicate
}

// NewFilter creates an empty Filter.
func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) add(column string, op Op, value string) *Filter {
	f.predicates = append(f.predicates, Predicate{Column: column, Op: op, Value: value})
	return f
}

func (f *Filter) EQ(column, value string) *Filter { return f.add(column, EQ, value) }
func (f *Filter) NE(column, value string) *Filter { return f.add(column, NE, value) }
func (f *Filter) GT(column, value string) *Filter { return f.add(column, GT, value) }
func (f *Filter) GE(column, value string) *Filter { return f.add(column, GE, value) }
func (f *Filter) LT(column, value string) *Filter { return f.add(column, LT, value) }
func (f *Filter) LE(column, value string) *Filter { return f.add(column, LE, value) }

// Add appends an arbitrary predicate.
func (f *Filter) Add(p Predicate) *Filter {
	return f.add(p.Column, p.Op, p.Value)
}

// Predicates returns the predicates in the order they were added.
func (f *Filter) Predicates() []Predicate {
	if f == nil {
		return nil
	}
	out := make([]Predicate, len(f.predicates))
	copy(out, f.predicates)
	return out
}

func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.predicates)
}

// Match reports whether row satisfies every predicate. A predicate on a
// column the row does not carry never matches.
func (f *Filter) Match(row *Row) bool {
	for _, p := range f.Predicates() {
		got, ok := row.Get(p.Column)
		if !ok || !p.Op.compare(got, p.Value) {
			return false
		}
	}
	return true
}

// compare orders numerically when both sides parse as numbers and
// lexicographically otherwise.
func (op Op) compare(left, right string) bool {
	var cmp int
	l, lerr := strconv.ParseFloat(left, 64)
	r, rerr := strconv.ParseFloat(right, 64)
	switch {
	case lerr == nil && rerr == nil:
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
	default:
		cmp = strings.Compare(left, right)
	}

	switch op {
	case EQ:
		return cmp == 0
	case NE:
		return cmp != 0
	case GT:
		return cmp > 0
	case GE:
		return cmp >= 0
	case LT:
		return cmp < 0
	case LE:
		return cmp <= 0
	default:
		return false
	}
}
