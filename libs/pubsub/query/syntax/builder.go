package syntax

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tendermint/tmquery/libs/peg"
)

// A handle identifies a node in the builder's arena.
type handle int

// node is the mutable form of a Predicate used during construction.
// Children refer to other nodes by handle so that groups can be relabeled
// and restructured in place while they are still open.
type node struct {
	typ      PredicateType
	negate   bool
	op       Operator
	left     Expression
	right    Expression
	operands int
	children []handle

	// implicit marks a conjunction the builder created while applying
	// operator precedence, as opposed to one the query spelled out with
	// parentheses. Only implicit conjunctions are extended by later ANDs.
	implicit bool
}

// builder assembles a predicate tree from the match events of the grammar.
// The top of the stack is the node that receives the next operand: either
// an open group or a comparison awaiting its right-hand side.
type builder struct {
	arena      []node
	stack      []handle
	negateNext bool
}

func newBuilder() *builder {
	b := &builder{arena: make([]node, 0, 16)}
	b.push(b.alloc(node{typ: PredAnd}))
	return b
}

func (b *builder) alloc(n node) handle {
	b.arena = append(b.arena, n)
	return handle(len(b.arena) - 1)
}

func (b *builder) push(h handle) { b.stack = append(b.stack, h) }

func (b *builder) pop() handle {
	h := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return h
}

func (b *builder) top() handle { return b.stack[len(b.stack)-1] }

func (b *builder) takeNegate() bool {
	neg := b.negateNext
	b.negateNext = false
	return neg
}

// group returns the innermost open group, or an error if a comparison is
// still waiting for an operand.
func (b *builder) group(ev peg.Event) (handle, error) {
	h := b.top()
	if b.arena[h].typ == PredComparison {
		return 0, b.fail(ev, "comparison is missing its right-hand side")
	}
	return h, nil
}

func (b *builder) fail(ev peg.Event, msg string) error {
	return &SyntaxError{Pos: ev.Pos, Msg: msg}
}

// apply dispatches one match event.
func (b *builder) apply(ev peg.Event) error {
	switch ev.Rule {
	case ruleNot:
		b.negateNext = true
	case ruleLParen:
		return b.openGroup(ev)
	case ruleGroup:
		return b.closeGroup(ev)
	case ruleTruePred:
		return b.constant(ev, PredTrue)
	case ruleFalsePred:
		return b.constant(ev, PredFalse)
	case ruleDQContent, ruleSQContent:
		s, err := unescape(ev.Text)
		if err != nil {
			return b.fail(ev, err.Error())
		}
		return b.operand(ev, String(s))
	case ruleNumber:
		return b.operand(ev, Number(ev.Text))
	case ruleArgIndex:
		i, err := strconv.Atoi(ev.Text)
		if err != nil {
			return b.fail(ev, fmt.Sprintf("argument index %s out of range", ev.Text))
		}
		return b.operand(ev, Argument(i))
	case ruleTrueValue:
		return b.operand(ev, Bool(true))
	case ruleFalseValue:
		return b.operand(ev, Bool(false))
	case ruleKeyPath:
		return b.operand(ev, KeyPath(strings.Split(ev.Text, ".")...))
	case ruleOrOp:
		return b.or(ev)
	case ruleAndExt:
		return b.and(ev)
	default:
		if op, ok := operatorRules[ev.Rule]; ok {
			return b.operator(ev, op)
		}
		return b.fail(ev, fmt.Sprintf("unhandled rule %q", ev.Rule))
	}
	return nil
}

func (b *builder) openGroup(ev peg.Event) error {
	parent, err := b.group(ev)
	if err != nil {
		return err
	}
	h := b.alloc(node{typ: PredAnd, negate: b.takeNegate()})
	b.arena[parent].children = append(b.arena[parent].children, h)
	b.push(h)
	return nil
}

func (b *builder) closeGroup(ev peg.Event) error {
	if _, err := b.group(ev); err != nil {
		return err
	}
	if len(b.stack) < 2 {
		return b.fail(ev, "unbalanced parentheses")
	}
	b.pop()
	return nil
}

func (b *builder) constant(ev peg.Event, typ PredicateType) error {
	parent, err := b.group(ev)
	if err != nil {
		return err
	}
	h := b.alloc(node{typ: typ, negate: b.takeNegate()})
	b.arena[parent].children = append(b.arena[parent].children, h)
	return nil
}

// operand adds an expression. The first operand of a comparison creates the
// comparison node; the second completes it.
func (b *builder) operand(ev peg.Event, e Expression) error {
	top := b.top()
	if n := &b.arena[top]; n.typ == PredComparison {
		if n.op == OpInvalid {
			return b.fail(ev, "comparison is missing its operator")
		}
		n.right = e
		n.operands = 2
		b.pop()
		return nil
	}
	h := b.alloc(node{typ: PredComparison, negate: b.takeNegate(), left: e, operands: 1})
	b.arena[top].children = append(b.arena[top].children, h)
	b.push(h)
	return nil
}

func (b *builder) operator(ev peg.Event, op Operator) error {
	n := &b.arena[b.top()]
	if n.typ != PredComparison || n.operands != 1 {
		return b.fail(ev, fmt.Sprintf("operator %s without a left-hand side", op))
	}
	n.op = op
	return nil
}

// or handles an OR keyword. The first OR in a group turns everything
// collected so far into the first branch of a disjunction; later ORs in
// the same group just add branches.
func (b *builder) or(ev peg.Event) error {
	g, err := b.group(ev)
	if err != nil {
		return err
	}
	n := &b.arena[g]
	if n.typ == PredOr {
		return nil
	}
	if len(n.children) == 0 {
		return b.fail(ev, "OR without a left-hand side")
	}
	first := n.children[0]
	if len(n.children) > 1 {
		kids := append([]handle(nil), n.children...)
		first = b.alloc(node{typ: PredAnd, implicit: true, children: kids})
		n = &b.arena[g] // alloc may have moved the arena
	}
	n.typ = PredOr
	n.children = []handle{first}
	return nil
}

// and handles a completed "AND atom". Inside a disjunction the new atom
// binds to the branch immediately before it.
func (b *builder) and(ev peg.Event) error {
	g, err := b.group(ev)
	if err != nil {
		return err
	}
	if b.arena[g].typ != PredOr {
		return nil
	}
	kids := b.arena[g].children
	if len(kids) < 2 {
		return b.fail(ev, "AND without a left-hand side")
	}
	last, prev := kids[len(kids)-1], kids[len(kids)-2]
	if p := &b.arena[prev]; p.implicit {
		p.children = append(p.children, last)
		b.arena[g].children = kids[:len(kids)-1]
		return nil
	}
	h := b.alloc(node{typ: PredAnd, implicit: true, children: []handle{prev, last}})
	kids = append(kids[:len(kids)-2], h)
	b.arena[g].children = kids
	return nil
}

// finish checks that every group was closed and converts the arena into a
// Predicate. A root conjunction with a single child is replaced by that
// child.
func (b *builder) finish() (Predicate, error) {
	if len(b.stack) != 1 {
		return Predicate{}, &SyntaxError{Msg: fmt.Sprintf("internal error: %d unclosed nodes", len(b.stack)-1)}
	}
	root := b.stack[0]
	if n := b.arena[root]; n.typ == PredAnd && len(n.children) == 1 {
		root = n.children[0]
	}
	return b.export(root), nil
}

func (b *builder) export(h handle) Predicate {
	n := b.arena[h]
	p := Predicate{Type: n.typ, Negate: n.negate}
	switch n.typ {
	case PredComparison:
		p.Op, p.Left, p.Right = n.op, n.left, n.right
	case PredAnd, PredOr:
		p.Children = make([]Predicate, len(n.children))
		for i, c := range n.children {
			p.Children[i] = b.export(c)
		}
	}
	return p
}

// unescape decodes the body of a string literal.
func unescape(s string) (string, error) {
	if strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("unterminated escape sequence")
		}
		switch s[i] {
		case '"', '\'', '\\', '/':
			sb.WriteByte(s[i])
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '0':
			sb.WriteByte(0)
		case 'u':
			r, err := hex4(s, i+1)
			if err != nil {
				return "", err
			}
			i += 4
			if utf16.IsSurrogate(r) {
				// A high surrogate followed by an escaped low surrogate
				// encodes a single code point.
				if i+6 < len(s) && s[i+1] == '\\' && s[i+2] == 'u' {
					if r2, err := hex4(s, i+3); err == nil {
						if d := utf16.DecodeRune(r, r2); d != utf8.RuneError {
							sb.WriteRune(d)
							i += 6
							continue
						}
					}
				}
				r = utf8.RuneError
			}
			sb.WriteRune(r)
		default:
			return "", fmt.Errorf("invalid escape sequence \\%c", s[i])
		}
	}
	return sb.String(), nil
}

func hex4(s string, at int) (rune, error) {
	if at+4 > len(s) {
		return 0, fmt.Errorf("truncated \\u escape")
	}
	v, err := strconv.ParseUint(s[at:at+4], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid \\u escape %q", s[at:at+4])
	}
	return rune(v), nil
}
