// Package peg implements a small parsing expression grammar engine.
//
// A Grammar is a set of named rules built from the combinators in this
// package. Matching is ordered choice with backtracking: the first
// alternative of a Choice that succeeds is committed to, and a Seq that
// fails restores the input position. A Must expression turns a failure into
// a hard error at that point, which stops the parse without trying other
// alternatives.
//
// Rules defined with the Emit option record an Event when they match. Events
// produced inside an alternative that is later abandoned are discarded, so
// the event stream returned by Parse describes exactly the successful match,
// in the order the rules completed.
package peg

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Expr is a parsing expression. Values are built with the functions in this
// package and are immutable once built.
type Expr interface {
	String() string
}

type litExpr struct {
	text string
	fold bool
}

type classExpr struct {
	name  string
	match func(rune) bool
}

type anyExpr struct{}

type eofExpr struct{}

type seqExpr struct {
	exprs []Expr
}

type choiceExpr struct {
	alts []Expr
}

// repeatExpr matches expr at least min times; max < 0 means unbounded.
type repeatExpr struct {
	expr     Expr
	min, max int
}

type predExpr struct {
	expr   Expr
	negate bool
}

type mustExpr struct {
	expr     Expr
	expected string
}

type refExpr struct {
	name string
}

// Lit matches the exact text s.
func Lit(s string) Expr { return litExpr{text: s} }

// ILit matches s ignoring ASCII case.
func ILit(s string) Expr { return litExpr{text: s, fold: true} }

// Set matches any single rune contained in chars.
func Set(chars string) Expr {
	return classExpr{
		name:  "one of " + strconv.Quote(chars),
		match: func(r rune) bool { return strings.ContainsRune(chars, r) },
	}
}

// Range matches a single rune in [lo, hi].
func Range(lo, hi rune) Expr {
	return classExpr{
		name:  fmt.Sprintf("%q-%q", lo, hi),
		match: func(r rune) bool { return r >= lo && r <= hi },
	}
}

// Class matches a single rune accepted by fn. The name is used in error
// messages.
func Class(name string, fn func(rune) bool) Expr {
	return classExpr{name: name, match: fn}
}

// Any matches any single rune.
func Any() Expr { return anyExpr{} }

// EOF matches the end of input.
func EOF() Expr { return eofExpr{} }

// Seq matches each expression in turn.
func Seq(exprs ...Expr) Expr { return seqExpr{exprs: exprs} }

// Choice tries each alternative in order and commits to the first match.
func Choice(alts ...Expr) Expr { return choiceExpr{alts: alts} }

// Opt matches e zero or one time.
func Opt(e Expr) Expr { return repeatExpr{expr: e, min: 0, max: 1} }

// Star matches e zero or more times.
func Star(e Expr) Expr { return repeatExpr{expr: e, min: 0, max: -1} }

// Plus matches e one or more times.
func Plus(e Expr) Expr { return repeatExpr{expr: e, min: 1, max: -1} }

// Rep matches e exactly n times.
func Rep(n int, e Expr) Expr { return repeatExpr{expr: e, min: n, max: n} }

// Not succeeds without consuming input if e does not match here.
func Not(e Expr) Expr { return predExpr{expr: e, negate: true} }

// And succeeds without consuming input if e matches here.
func And(e Expr) Expr { return predExpr{expr: e} }

// Must matches e or aborts the parse with an error naming expected.
func Must(e Expr, expected string) Expr { return mustExpr{expr: e, expected: expected} }

// Ref refers to the rule with the given name.
func Ref(name string) Expr { return refExpr{name: name} }

func (e litExpr) String() string {
	if e.fold {
		return "i" + strconv.Quote(e.text)
	}
	return strconv.Quote(e.text)
}

func (e classExpr) String() string { return "[" + e.name + "]" }
func (anyExpr) String() string     { return "." }
func (eofExpr) String() string     { return "!." }

func (e seqExpr) String() string { return "(" + join(e.exprs, " ") + ")" }

func (e choiceExpr) String() string { return "(" + join(e.alts, " / ") + ")" }

func (e repeatExpr) String() string {
	switch {
	case e.min == 0 && e.max == 1:
		return e.expr.String() + "?"
	case e.min == 0 && e.max < 0:
		return e.expr.String() + "*"
	case e.min == 1 && e.max < 0:
		return e.expr.String() + "+"
	}
	return fmt.Sprintf("%s{%d}", e.expr, e.min)
}

func (e predExpr) String() string {
	if e.negate {
		return "!" + e.expr.String()
	}
	return "&" + e.expr.String()
}

func (e mustExpr) String() string { return "^" + e.expr.String() }
func (e refExpr) String() string  { return e.name }

func join(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}

// describe returns the expectation reported when a terminal fails.
func describe(e Expr) string {
	switch e := e.(type) {
	case litExpr:
		return strconv.Quote(e.text)
	case classExpr:
		return e.name
	case anyExpr:
		return "any character"
	case eofExpr:
		return "end of input"
	}
	return e.String()
}

// matchLit reports whether s occurs at input[pos:].
func matchLit(e litExpr, input string, pos int) bool {
	end := pos + len(e.text)
	if end > len(input) {
		return false
	}
	if e.fold {
		return strings.EqualFold(input[pos:end], e.text)
	}
	return input[pos:end] == e.text
}

func decodeRune(input string, pos int) (rune, int) {
	if pos >= len(input) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(input[pos:])
}
