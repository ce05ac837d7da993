// Package query implements the evaluation of parsed filter queries against
// records.
//
// A query is parsed by the syntax subpackage and compiled with Compile (or
// parsed and compiled in one step with New). A Compiled query is immutable
// and may be shared by concurrent goroutines.
//
//	q, err := query.New(`age >= $0 AND name BEGINSWITH "J"`)
//	...
//	ok, err := q.Matches(query.MapRecord(doc), 21)
package query

import (
	"errors"
	"fmt"

	"github.com/tendermint/tmquery/libs/pubsub/query/syntax"
)

var (
	// ErrMissingArgument is reported when a query refers to an argument the
	// caller did not supply.
	ErrMissingArgument = errors.New("missing argument")

	// ErrTypeMismatch is reported when an operator is applied to values it
	// does not support, such as ordering two strings.
	ErrTypeMismatch = errors.New("type mismatch")
)

// A Record is a value a query can be evaluated against.
type Record interface {
	// Lookup returns the value at the given key path. Values are nil, bool,
	// float64 or string; any other value only compares unequal. The second
	// result is false if the path does not exist.
	Lookup(path []string) (interface{}, bool)
}

// Compiled is the compiled form of a query.
type Compiled struct {
	pred  syntax.Predicate
	match matcher
}

// New parses and compiles the query s.
func New(s string) (*Compiled, error) {
	pred, err := syntax.Parse(s)
	if err != nil {
		return nil, err
	}
	return Compile(pred)
}

// MustParse is like New but panics on error.
func MustParse(s string) *Compiled {
	c, err := New(s)
	if err != nil {
		panic(fmt.Sprintf("parse %q: %v", s, err))
	}
	return c
}

// Compile compiles the given predicate so it can be used to match records.
func Compile(pred syntax.Predicate) (*Compiled, error) {
	m, err := compile(pred)
	if err != nil {
		return nil, err
	}
	return &Compiled{pred: pred, match: m}, nil
}

// Empty returns a query that matches every record.
func Empty() *Compiled { return &Compiled{pred: syntax.True(), match: constant(true)} }

// Predicate returns the tree the query was compiled from.
func (c *Compiled) Predicate() syntax.Predicate { return c.pred }

// String returns the canonical text of the query.
func (c *Compiled) String() string { return c.pred.String() }

// Matches reports whether rec satisfies the query. The values of args are
// bound to the placeholders $0, $1, ... in order.
func (c *Compiled) Matches(rec Record, args ...interface{}) (bool, error) {
	env := &env{rec: rec, args: make([]interface{}, len(args))}
	for i, a := range args {
		v, ok := normalize(a)
		if !ok {
			return false, fmt.Errorf("argument $%d: unsupported type %T", i, a)
		}
		env.args[i] = v
	}
	return c.match(env)
}
