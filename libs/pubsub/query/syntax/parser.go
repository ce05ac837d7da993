package syntax

import (
	"errors"
	"fmt"

	"github.com/tendermint/tmquery/libs/peg"
)

// Default limits applied by Parse.
const (
	DefaultMaxDepth  = 64
	DefaultMaxLength = 64 << 10
)

// An Option adjusts how ParseWithOptions treats its input.
type Option func(*options)

type options struct {
	maxDepth  int
	maxLength int
}

// WithMaxDepth sets how deeply parentheses may nest. Zero or less disables
// the limit.
func WithMaxDepth(n int) Option { return func(o *options) { o.maxDepth = n } }

// WithMaxLength sets the longest accepted query in bytes. Zero or less
// disables the limit.
func WithMaxLength(n int) Option { return func(o *options) { o.maxLength = n } }

// Parse parses query with the default limits.
func Parse(query string) (Predicate, error) {
	return ParseWithOptions(query)
}

// MustParse is like Parse but panics on error. It is intended for queries
// that are known to be valid, such as constants in tests.
func MustParse(query string) Predicate {
	p, err := Parse(query)
	if err != nil {
		panic(fmt.Sprintf("parsing %q: %v", query, err))
	}
	return p
}

// ParseWithOptions parses query into a Predicate. The whole input must be
// consumed; leading and trailing whitespace is ignored.
//
// The error, if any, is a *SyntaxError, *TrailingInputError, *LimitError or
// *GrammarBuildError.
func ParseWithOptions(query string, opts ...Option) (Predicate, error) {
	o := options{maxDepth: DefaultMaxDepth, maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxLength > 0 && len(query) > o.maxLength {
		return Predicate{}, &LimitError{Limit: limitLength, Max: o.maxLength, Pos: len(query)}
	}

	g, err := loadGrammar()
	if err != nil {
		return Predicate{}, err
	}
	res, err := g.Parse(query, peg.Options{MaxDepth: o.maxDepth})
	if err != nil {
		return Predicate{}, convertError(query, err)
	}
	if res.End != len(query) {
		return Predicate{}, &TrailingInputError{Pos: res.End, Rest: query[res.End:]}
	}

	b := newBuilder()
	for _, ev := range res.Events {
		if err := b.apply(ev); err != nil {
			var serr *SyntaxError
			if errors.As(err, &serr) && serr.Near == "" && serr.Pos < len(query) {
				serr.Near = abbrev(query[serr.Pos:])
			}
			return Predicate{}, err
		}
	}
	return b.finish()
}

func convertError(query string, err error) error {
	var perr *peg.Error
	var derr *peg.DepthError
	switch {
	case errors.As(err, &perr):
		serr := &SyntaxError{Pos: perr.Pos, Expected: perr.Expected}
		if perr.Pos < len(query) {
			serr.Near = abbrev(query[perr.Pos:])
		}
		return serr
	case errors.As(err, &derr):
		return &LimitError{Limit: limitDepth, Max: derr.Max, Pos: derr.Pos}
	}
	return &GrammarBuildError{Err: err}
}
