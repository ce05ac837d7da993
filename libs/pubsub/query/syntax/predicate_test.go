package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tendermint/tmquery/libs/pubsub/query/syntax"
)

func TestPredicateString(t *testing.T) {
	tests := []struct {
		pred syntax.Predicate
		want string
	}{
		{syntax.True(), "TRUEPREDICATE"},
		{syntax.Not(syntax.False()), "NOT FALSEPREDICATE"},
		{a1, "a == 1"},
		{syntax.Not(a1), "NOT a == 1"},
		{syntax.And(a1, b2), "a == 1 AND b == 2"},
		{syntax.Or(syntax.And(a1, b2), c3), "(a == 1 AND b == 2) OR c == 3"},
		{syntax.And(syntax.Or(a1, b2), c3), "(a == 1 OR b == 2) AND c == 3"},
		{syntax.And(a1), "(a == 1)"},
		{syntax.Not(syntax.And(a1, b2)), "NOT (a == 1 AND b == 2)"},
		{syntax.Or(a1, syntax.Not(syntax.Or(b2, c3))), "a == 1 OR NOT (b == 2 OR c == 3)"},
		{syntax.Compare(syntax.OpContains, syntax.KeyPath("x", "y"), syntax.String(`q"\`)), `x.y CONTAINS "q\"\\"`},
		{syntax.Compare(syntax.OpNotEqual, syntax.Argument(3), syntax.Bool(false)), "$3 != false"},
		{syntax.Compare(syntax.OpEqual, syntax.KeyPath("s"), syntax.String("a\tb\x01")), `s == "a\tb\u0001"`},
	}
	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			assert.Equal(t, test.want, test.pred.String())
		})
	}
}

func TestCanonicalForm(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{`a=1 and b='x'`, `a == 1 AND b == "x"`},
		{`!(a==1)||b>=2&&c<3`, `NOT (a == 1) OR (b >= 2 AND c < 3)`},
		{`x beginswith 'it\'s'`, `x BEGINSWITH "it's"`},
		{`truepredicate`, `TRUEPREDICATE`},
		{`flag == TRUE`, `flag == true`},
		{`n == 0x1F`, `n == 0x1F`},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			p, err := syntax.Parse(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.want, p.String())
		})
	}
}

func TestNumberValue(t *testing.T) {
	tests := []struct {
		literal string
		want    float64
	}{
		{"42", 42},
		{"-1.5", -1.5},
		{".5", 0.5},
		{"3.", 3},
		{"0xFF", 255},
		{"-0x10", -16},
	}
	for _, test := range tests {
		got, err := syntax.Number(test.literal).Float64()
		require.NoError(t, err, test.literal)
		assert.Equal(t, test.want, got, test.literal)
	}
	_, err := syntax.String("42").Float64()
	assert.Error(t, err)
}

func TestPredicateWalk(t *testing.T) {
	p := syntax.MustParse(`a == 1 OR (b == 2 AND NOT c == 3)`)
	var n int
	p.Walk(func(q syntax.Predicate) bool {
		if q.Type == syntax.PredComparison {
			n++
		}
		return true
	})
	assert.Equal(t, 3, n)
}

var (
	genIdent  = rapid.StringMatching(`k[a-z0-9_]{0,5}`)
	genNumber = rapid.SampledFrom([]string{"0", "7", "-12", "3.25", "-0.5", ".75", "10.", "0xFF", "-0x1a"})
	genOp     = rapid.IntRange(int(syntax.OpEqual), int(syntax.OpEndsWith))
)

func genExpr(t *rapid.T, label string) syntax.Expression {
	switch rapid.IntRange(0, 4).Draw(t, label+".kind").(int) {
	case 0:
		return syntax.String(rapid.String().Draw(t, label+".str").(string))
	case 1:
		n := rapid.IntRange(1, 3).Draw(t, label+".len").(int)
		path := make([]string, n)
		for i := range path {
			path[i] = genIdent.Draw(t, label+".seg").(string)
		}
		return syntax.KeyPath(path...)
	case 2:
		return syntax.Number(genNumber.Draw(t, label+".num").(string))
	case 3:
		return syntax.Bool(rapid.Bool().Draw(t, label+".bool").(bool))
	default:
		return syntax.Argument(rapid.IntRange(0, 99).Draw(t, label+".arg").(int))
	}
}

// genPred generates trees in the shape Parse produces: compound nodes have
// at least two children, except conjunctions which may have one (a
// parenthesized group).
func genPred(t *rapid.T, depth int) syntax.Predicate {
	kind := rapid.IntRange(0, 4).Draw(t, "kind").(int)
	if depth <= 0 && kind >= 3 {
		kind = 2
	}
	var p syntax.Predicate
	switch kind {
	case 0:
		p = syntax.True()
	case 1:
		p = syntax.False()
	case 2:
		op := syntax.Operator(genOp.Draw(t, "op").(int))
		p = syntax.Compare(op, genExpr(t, "lhs"), genExpr(t, "rhs"))
	case 3, 4:
		min := 2
		if kind == 3 {
			min = 1
		}
		n := rapid.IntRange(min, 4).Draw(t, "children").(int)
		kids := make([]syntax.Predicate, n)
		for i := range kids {
			kids[i] = genPred(t, depth-1)
		}
		if kind == 3 {
			p = syntax.And(kids...)
		} else {
			p = syntax.Or(kids...)
		}
	}
	if rapid.Bool().Draw(t, "negate").(bool) {
		p = syntax.Not(p)
	}
	return p
}

func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		want := genPred(t, 3)
		text := want.String()
		got, err := syntax.Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if !want.Equal(got) {
			t.Fatalf("Parse(%q) = %v, want %v", text, got, want)
		}
		if again := got.String(); again != text {
			t.Fatalf("String changed after round trip: %q != %q", again, text)
		}
	})
}
