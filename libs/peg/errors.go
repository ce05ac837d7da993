package peg

import (
	"fmt"
	"sort"
	"strings"
)

// Error reports a failed match. Pos is a byte offset into the input.
type Error struct {
	Pos      int
	Expected []string

	// Committed is set when the failure happened after a Must point, as
	// opposed to no alternative matching at all.
	Committed bool
}

func (e *Error) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("syntax error at offset %d", e.Pos)
	}
	return fmt.Sprintf("syntax error at offset %d: expected %s", e.Pos, strings.Join(e.Expected, " or "))
}

// DepthError reports that a nesting or recursion limit was exceeded.
type DepthError struct {
	Pos int
	Max int

	// Rule is the rule whose entry exceeded the limit.
	Rule string
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("maximum depth %d exceeded at offset %d (rule %s)", e.Max, e.Pos, e.Rule)
}

// AnalysisError lists the problems Analyze found in a grammar.
type AnalysisError struct {
	Problems []string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("invalid grammar: %s", strings.Join(e.Problems, "; "))
}

// expectations collects the terminals that failed at the farthest offset
// reached, which is where a parse error is most usefully reported.
type expectations struct {
	pos  int
	seen map[string]struct{}
}

func (x *expectations) add(pos int, what string) {
	if pos < x.pos {
		return
	}
	if pos > x.pos || x.seen == nil {
		x.pos = pos
		x.seen = make(map[string]struct{})
	}
	x.seen[what] = struct{}{}
}

func (x *expectations) list() []string {
	out := make([]string, 0, len(x.seen))
	for s := range x.seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
