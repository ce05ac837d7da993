package peg

import "fmt"

// DefaultMaxRecursion bounds the number of simultaneously active rules.
const DefaultMaxRecursion = 10000

// Event is recorded when an Emit rule matches. Text is the matched input and
// Pos its byte offset.
type Event struct {
	Rule string
	Text string
	Pos  int
}

func (ev Event) String() string {
	return fmt.Sprintf("%s@%d %q", ev.Rule, ev.Pos, ev.Text)
}

// Result is a successful match of the start rule. End is the offset just
// past the matched input; it is less than the input length when the start
// rule matched only a prefix.
type Result struct {
	Events []Event
	End    int
}

// Options bound a single parse.
type Options struct {
	// MaxDepth limits how many Nesting rules may be active at once. Zero
	// means no limit.
	MaxDepth int

	// MaxRecursion limits how many rules of any kind may be active at
	// once. Zero means DefaultMaxRecursion.
	MaxRecursion int
}

type parser struct {
	g     *Grammar
	input string
	opts  Options

	pos    int
	events []Event
	depth  int
	calls  int
	expect expectations
	quiet  int // inside a lookahead; failures are not expectations
	err    error
}

// Parse matches the start rule against input. On failure the returned error
// is an *Error or a *DepthError. Parse does not require the whole input to
// be consumed; callers compare Result.End with len(input).
func (g *Grammar) Parse(input string, opts Options) (*Result, error) {
	start, ok := g.rules[g.start]
	if !ok {
		return nil, fmt.Errorf("peg: undefined start rule %q", g.start)
	}
	if opts.MaxRecursion <= 0 {
		opts.MaxRecursion = DefaultMaxRecursion
	}

	p := &parser{g: g, input: input, opts: opts}
	ok = p.rule(start)
	if p.err != nil {
		return nil, p.err
	}
	if !ok {
		return nil, &Error{Pos: p.expect.pos, Expected: p.expect.list()}
	}
	return &Result{Events: p.events, End: p.pos}, nil
}

func (p *parser) rule(r *Rule) bool {
	if r.Nesting {
		p.depth++
		defer func() { p.depth-- }()
		if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
			p.err = &DepthError{Pos: p.pos, Max: p.opts.MaxDepth, Rule: r.Name}
			return false
		}
	}
	p.calls++
	defer func() { p.calls-- }()
	if p.calls > p.opts.MaxRecursion {
		p.err = &DepthError{Pos: p.pos, Max: p.opts.MaxRecursion, Rule: r.Name}
		return false
	}

	start := p.pos
	if !p.eval(r.Expr) {
		return false
	}
	if r.Emit {
		p.events = append(p.events, Event{Rule: r.Name, Text: p.input[start:p.pos], Pos: start})
	}
	return true
}

// eval matches e at the current position. On failure the position and the
// event buffer are restored to where they were on entry.
func (p *parser) eval(e Expr) bool {
	if p.err != nil {
		return false
	}
	switch e := e.(type) {
	case litExpr:
		if !matchLit(e, p.input, p.pos) {
			p.miss(e)
			return false
		}
		p.pos += len(e.text)
		return true

	case classExpr:
		r, n := decodeRune(p.input, p.pos)
		if n == 0 || !e.match(r) {
			p.miss(e)
			return false
		}
		p.pos += n
		return true

	case anyExpr:
		_, n := decodeRune(p.input, p.pos)
		if n == 0 {
			p.miss(e)
			return false
		}
		p.pos += n
		return true

	case eofExpr:
		if p.pos != len(p.input) {
			p.miss(e)
			return false
		}
		return true

	case seqExpr:
		pos, n := p.pos, len(p.events)
		for _, sub := range e.exprs {
			if !p.eval(sub) {
				p.restore(pos, n)
				return false
			}
		}
		return true

	case choiceExpr:
		for _, alt := range e.alts {
			if p.eval(alt) {
				return true
			}
			if p.err != nil {
				return false
			}
		}
		return false

	case repeatExpr:
		pos, n := p.pos, len(p.events)
		count := 0
		for e.max < 0 || count < e.max {
			before := p.pos
			if !p.eval(e.expr) {
				break
			}
			count++
			if p.pos == before && e.max < 0 {
				// an unbounded loop over an empty match would never end
				break
			}
		}
		if p.err != nil || count < e.min {
			p.restore(pos, n)
			return false
		}
		return true

	case predExpr:
		pos, n := p.pos, len(p.events)
		p.quiet++
		ok := p.eval(e.expr)
		p.quiet--
		p.restore(pos, n)
		if p.err != nil {
			return false
		}
		return ok != e.negate

	case mustExpr:
		start := p.pos
		if p.eval(e.expr) {
			return true
		}
		if p.err == nil {
			perr := &Error{Pos: start, Expected: []string{e.expected}, Committed: true}
			if p.expect.pos > start {
				perr.Pos = p.expect.pos
				perr.Expected = p.expect.list()
			}
			p.err = perr
		}
		return false

	case refExpr:
		r, ok := p.g.rules[e.name]
		if !ok {
			p.err = fmt.Errorf("peg: undefined rule %q", e.name)
			return false
		}
		return p.rule(r)
	}

	p.err = fmt.Errorf("peg: unknown expression %T", e)
	return false
}

func (p *parser) miss(e Expr) {
	if p.quiet == 0 {
		p.expect.add(p.pos, describe(e))
	}
}

func (p *parser) restore(pos, events int) {
	p.pos = pos
	p.events = p.events[:events]
}
