package syntax

import (
	"fmt"
	"strings"
)

// PredicateType is the kind of a Predicate node.
type PredicateType uint8

// Predicate kinds.
const (
	PredInvalid PredicateType = iota
	PredTrue
	PredFalse
	PredComparison
	PredAnd
	PredOr
)

var predTypeNames = [...]string{
	PredInvalid:    "invalid",
	PredTrue:       "TRUEPREDICATE",
	PredFalse:      "FALSEPREDICATE",
	PredComparison: "comparison",
	PredAnd:        "AND",
	PredOr:         "OR",
}

func (t PredicateType) String() string {
	if int(t) < len(predTypeNames) {
		return predTypeNames[t]
	}
	return fmt.Sprintf("PredicateType(%d)", uint8(t))
}

// Operator is a comparison operator.
type Operator uint8

// Comparison operators.
const (
	OpInvalid Operator = iota
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpContains
	OpBeginsWith
	OpEndsWith
)

var opNames = [...]string{
	OpInvalid:      "<invalid>",
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpContains:     "CONTAINS",
	OpBeginsWith:   "BEGINSWITH",
	OpEndsWith:     "ENDSWITH",
}

// String returns the canonical spelling of the operator.
func (o Operator) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Operator(%d)", uint8(o))
}

// A Predicate is a node of a parsed query.
//
// Comparison nodes use Op, Left and Right. And and Or nodes use Children,
// which are evaluated in order. Any node may be negated.
type Predicate struct {
	Type     PredicateType
	Negate   bool
	Op       Operator
	Left     Expression
	Right    Expression
	Children []Predicate
}

// True returns the constant true predicate.
func True() Predicate { return Predicate{Type: PredTrue} }

// False returns the constant false predicate.
func False() Predicate { return Predicate{Type: PredFalse} }

// Compare returns a comparison predicate.
func Compare(op Operator, lhs, rhs Expression) Predicate {
	return Predicate{Type: PredComparison, Op: op, Left: lhs, Right: rhs}
}

// And returns the conjunction of ps.
func And(ps ...Predicate) Predicate { return Predicate{Type: PredAnd, Children: ps} }

// Or returns the disjunction of ps.
func Or(ps ...Predicate) Predicate { return Predicate{Type: PredOr, Children: ps} }

// Not returns a copy of p with its negation flag toggled.
func Not(p Predicate) Predicate {
	p.Negate = !p.Negate
	return p
}

// IsCompound reports whether p is an And or Or node.
func (p Predicate) IsCompound() bool { return p.Type == PredAnd || p.Type == PredOr }

// Equal reports whether p and o describe the same tree.
func (p Predicate) Equal(o Predicate) bool {
	if p.Type != o.Type || p.Negate != o.Negate {
		return false
	}
	switch p.Type {
	case PredComparison:
		return p.Op == o.Op && p.Left.Equal(o.Left) && p.Right.Equal(o.Right)
	case PredAnd, PredOr:
		if len(p.Children) != len(o.Children) {
			return false
		}
		for i := range p.Children {
			if !p.Children[i].Equal(o.Children[i]) {
				return false
			}
		}
	}
	return true
}

// Walk calls f for p and each of its descendants in depth-first order,
// stopping early if f returns false.
func (p Predicate) Walk(f func(Predicate) bool) bool {
	if !f(p) {
		return false
	}
	for _, c := range p.Children {
		if !c.Walk(f) {
			return false
		}
	}
	return true
}

// String renders p in canonical query syntax. Parsing the result yields a
// tree equal to p for any tree produced by Parse.
func (p Predicate) String() string {
	var sb strings.Builder
	p.render(&sb, true)
	return sb.String()
}

func (p Predicate) render(sb *strings.Builder, top bool) {
	if p.Negate {
		sb.WriteString("NOT ")
	}
	switch p.Type {
	case PredTrue, PredFalse:
		sb.WriteString(p.Type.String())
	case PredComparison:
		fmt.Fprintf(sb, "%s %s %s", p.Left, p.Op, p.Right)
	case PredAnd, PredOr:
		// A single-element conjunction at the top level would otherwise read
		// back as its only child.
		paren := !top || p.Negate || (p.Type == PredAnd && len(p.Children) == 1)
		if paren {
			sb.WriteByte('(')
		}
		sep := " AND "
		if p.Type == PredOr {
			sep = " OR "
		}
		for i, c := range p.Children {
			if i > 0 {
				sb.WriteString(sep)
			}
			c.render(sb, false)
		}
		if paren {
			sb.WriteByte(')')
		}
	default:
		sb.WriteString("<invalid>")
	}
}
