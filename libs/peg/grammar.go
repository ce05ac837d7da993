package peg

import "fmt"

// A Rule is a named expression of a Grammar.
type Rule struct {
	Name string
	Expr Expr

	// Emit rules record an Event each time they match.
	Emit bool

	// Nesting rules count towards the MaxDepth limit while they are active.
	Nesting bool
}

// RuleOption configures a Rule at definition time.
type RuleOption func(*Rule)

// Emit marks the rule as producing match events.
func Emit() RuleOption { return func(r *Rule) { r.Emit = true } }

// Nesting marks the rule as a nesting construct bounded by MaxDepth.
func Nesting() RuleOption { return func(r *Rule) { r.Nesting = true } }

// Grammar is a set of rules with a designated start rule. A Grammar is built
// once and is safe for concurrent use by Parse afterwards.
type Grammar struct {
	start string
	rules map[string]*Rule
	order []string

	// names defined more than once; reported by Analyze
	dups []string
}

// New returns an empty grammar whose parses begin at the named rule.
func New(start string) *Grammar {
	return &Grammar{
		start: start,
		rules: make(map[string]*Rule),
	}
}

// Define adds a rule to the grammar and returns g for chaining.
func (g *Grammar) Define(name string, e Expr, opts ...RuleOption) *Grammar {
	if _, ok := g.rules[name]; ok {
		g.dups = append(g.dups, name)
		return g
	}
	r := &Rule{Name: name, Expr: e}
	for _, opt := range opts {
		opt(r)
	}
	g.rules[name] = r
	g.order = append(g.order, name)
	return g
}

// Start returns the name of the start rule.
func (g *Grammar) Start() string { return g.start }

// Rule returns the named rule, or nil.
func (g *Grammar) Rule(name string) *Rule { return g.rules[name] }

// Rules returns the rules in definition order.
func (g *Grammar) Rules() []*Rule {
	out := make([]*Rule, len(g.order))
	for i, name := range g.order {
		out[i] = g.rules[name]
	}
	return out
}

func (g *Grammar) String() string {
	s := ""
	for _, r := range g.Rules() {
		s += fmt.Sprintf("%s <- %s\n", r.Name, r.Expr)
	}
	return s
}
