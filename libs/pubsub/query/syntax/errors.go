package syntax

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every error returned by Parse wraps exactly one of them.
var (
	ErrSyntax        = errors.New("syntax error")
	ErrTrailingInput = errors.New("unexpected trailing input")
	ErrGrammar       = errors.New("invalid query grammar")
	ErrLimit         = errors.New("query limit exceeded")
)

// A SyntaxError reports input that does not match the grammar.
type SyntaxError struct {
	Pos      int      // byte offset of the failure
	Expected []string // what the parser would have accepted at Pos
	Near     string   // input text starting at Pos, abbreviated
	Msg      string   // set instead of Expected for semantic failures
}

func (e *SyntaxError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "syntax error at offset %d", e.Pos)
	switch {
	case e.Msg != "":
		sb.WriteString(": " + e.Msg)
	case len(e.Expected) != 0:
		sb.WriteString(": expected " + strings.Join(e.Expected, " or "))
	}
	if e.Near != "" {
		fmt.Fprintf(&sb, " near %q", e.Near)
	} else if e.Msg == "" {
		sb.WriteString(" at end of input")
	}
	return sb.String()
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// A TrailingInputError reports that a valid query was followed by input the
// grammar could not consume.
type TrailingInputError struct {
	Pos  int
	Rest string
}

func (e *TrailingInputError) Error() string {
	return fmt.Sprintf("unexpected input at offset %d: %q", e.Pos, abbrev(e.Rest))
}

func (e *TrailingInputError) Unwrap() error { return ErrTrailingInput }

// A GrammarBuildError reports that the query grammar failed its soundness
// checks. It indicates a defect in this package, not in the input.
type GrammarBuildError struct {
	Problems []string
	Err      error
}

func (e *GrammarBuildError) Error() string {
	if len(e.Problems) == 0 {
		return fmt.Sprintf("invalid query grammar: %v", e.Err)
	}
	return "invalid query grammar: " + strings.Join(e.Problems, "; ")
}

func (e *GrammarBuildError) Unwrap() error { return ErrGrammar }

// A LimitError reports that a query exceeded a configured bound.
type LimitError struct {
	Limit string // "length" or "depth"
	Max   int
	Pos   int
}

func (e *LimitError) Error() string {
	if e.Limit == limitLength {
		return fmt.Sprintf("query length %d exceeds the maximum of %d bytes", e.Pos, e.Max)
	}
	return fmt.Sprintf("query nesting exceeds the maximum depth of %d at offset %d", e.Max, e.Pos)
}

func (e *LimitError) Unwrap() error { return ErrLimit }

const (
	limitLength = "length"
	limitDepth  = "depth"
)

const maxNear = 24

func abbrev(s string) string {
	if len(s) <= maxNear {
		return s
	}
	return s[:maxNear] + "..."
}
