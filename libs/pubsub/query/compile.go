package query

import (
	"fmt"
	"strings"

	"github.com/tendermint/tmquery/libs/pubsub/query/syntax"
)

type env struct {
	rec  Record
	args []interface{}
}

// A matcher evaluates a compiled predicate.
type matcher func(*env) (bool, error)

// An operand produces the value of an expression.
type operand func(*env) (interface{}, error)

func constant(v bool) matcher { return func(*env) (bool, error) { return v, nil } }

func compile(p syntax.Predicate) (matcher, error) {
	var m matcher
	switch p.Type {
	case syntax.PredTrue:
		m = constant(true)
	case syntax.PredFalse:
		m = constant(false)
	case syntax.PredComparison:
		cm, err := compileComparison(p)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", p, err)
		}
		m = cm
	case syntax.PredAnd, syntax.PredOr:
		kids := make([]matcher, len(p.Children))
		for i, c := range p.Children {
			km, err := compile(c)
			if err != nil {
				return nil, err
			}
			kids[i] = km
		}
		m = junction(kids, p.Type == syntax.PredOr)
	default:
		return nil, fmt.Errorf("unknown predicate type %v", p.Type)
	}
	if p.Negate {
		inner := m
		m = func(e *env) (bool, error) {
			ok, err := inner(e)
			return !ok && err == nil, err
		}
	}
	return m, nil
}

// junction evaluates kids in order and stops at the first child whose
// result decides the outcome: true for a disjunction, false for a
// conjunction. An empty conjunction is true and an empty disjunction false.
func junction(kids []matcher, or bool) matcher {
	return func(e *env) (bool, error) {
		for _, k := range kids {
			ok, err := k(e)
			if err != nil {
				return false, err
			}
			if ok == or {
				return or, nil
			}
		}
		return !or, nil
	}
}

func compileComparison(p syntax.Predicate) (matcher, error) {
	cmp := opTable[p.Op]
	if cmp == nil {
		return nil, fmt.Errorf("unknown operator %v", p.Op)
	}
	lhs, err := compileOperand(p.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := compileOperand(p.Right)
	if err != nil {
		return nil, err
	}

	// Reject combinations that can never succeed before evaluating anything.
	for _, x := range []syntax.Expression{p.Left, p.Right} {
		if t := literalType(x); t != "" && !opAccepts(p.Op, t) {
			return nil, fmt.Errorf("invalid operand for %v: %s: %w", p.Op, x, ErrTypeMismatch)
		}
	}

	op := p.Op
	return func(e *env) (bool, error) {
		l, err := lhs(e)
		if err != nil {
			return false, err
		}
		r, err := rhs(e)
		if err != nil {
			return false, err
		}
		ok, err := cmp(l, r)
		if err != nil {
			return false, fmt.Errorf("%v %v %v: %w", describe(l), op, describe(r), err)
		}
		return ok, nil
	}, nil
}

func compileOperand(x syntax.Expression) (operand, error) {
	switch x.Type {
	case syntax.ExprString:
		v := x.Text
		return func(*env) (interface{}, error) { return v, nil }, nil
	case syntax.ExprNumber:
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return func(*env) (interface{}, error) { return f, nil }, nil
	case syntax.ExprBool:
		v := x.Bool
		return func(*env) (interface{}, error) { return v, nil }, nil
	case syntax.ExprKeyPath:
		path := x.Path
		return func(e *env) (interface{}, error) {
			v, ok := e.rec.Lookup(path)
			if !ok {
				return nil, nil
			}
			return v, nil
		}, nil
	case syntax.ExprArgument:
		i := x.Index
		return func(e *env) (interface{}, error) {
			if i >= len(e.args) {
				return nil, fmt.Errorf("$%d (have %d): %w", i, len(e.args), ErrMissingArgument)
			}
			return e.args[i], nil
		}, nil
	}
	return nil, fmt.Errorf("unknown expression type %v", x.Type)
}

// literalType reports the value type of a constant expression, or "" if its
// value is only known at evaluation time.
func literalType(x syntax.Expression) string {
	switch x.Type {
	case syntax.ExprString:
		return "string"
	case syntax.ExprNumber:
		return "number"
	case syntax.ExprBool:
		return "bool"
	}
	return ""
}

func opAccepts(op syntax.Operator, typ string) bool {
	switch op {
	case syntax.OpEqual, syntax.OpNotEqual:
		return true
	case syntax.OpLess, syntax.OpLessEqual, syntax.OpGreater, syntax.OpGreaterEqual:
		return typ == "number"
	default:
		return typ == "string"
	}
}

// A map of operator ⇒ comparison. Values are already normalized.
var opTable = map[syntax.Operator]func(l, r interface{}) (bool, error){
	syntax.OpEqual: func(l, r interface{}) (bool, error) { return equal(l, r), nil },
	syntax.OpNotEqual: func(l, r interface{}) (bool, error) {
		return !equal(l, r), nil
	},
	syntax.OpLess:         ordered(func(a, b float64) bool { return a < b }),
	syntax.OpLessEqual:    ordered(func(a, b float64) bool { return a <= b }),
	syntax.OpGreater:      ordered(func(a, b float64) bool { return a > b }),
	syntax.OpGreaterEqual: ordered(func(a, b float64) bool { return a >= b }),
	syntax.OpContains:     textual(strings.Contains),
	syntax.OpBeginsWith:   textual(strings.HasPrefix),
	syntax.OpEndsWith:     textual(strings.HasSuffix),
}

func equal(l, r interface{}) bool {
	switch a := l.(type) {
	case nil:
		return r == nil
	case string:
		b, ok := r.(string)
		return ok && a == b
	case float64:
		b, ok := r.(float64)
		return ok && a == b
	case bool:
		b, ok := r.(bool)
		return ok && a == b
	}
	return false
}

// ordered compares numbers. A null operand never matches.
func ordered(f func(a, b float64) bool) func(l, r interface{}) (bool, error) {
	return func(l, r interface{}) (bool, error) {
		if l == nil || r == nil {
			return false, nil
		}
		a, aok := l.(float64)
		b, bok := r.(float64)
		if !aok || !bok {
			return false, ErrTypeMismatch
		}
		return f(a, b), nil
	}
}

// textual compares strings. A null operand never matches.
func textual(f func(s, t string) bool) func(l, r interface{}) (bool, error) {
	return func(l, r interface{}) (bool, error) {
		if l == nil || r == nil {
			return false, nil
		}
		s, sok := l.(string)
		t, tok := r.(string)
		if !sok || !tok {
			return false, ErrTypeMismatch
		}
		return f(s, t), nil
	}
}

func describe(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return syntax.String(t).String()
	case float64, bool:
		return fmt.Sprint(t)
	}
	return fmt.Sprintf("<%T>", v)
}
