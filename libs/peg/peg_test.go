package peg_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/tmquery/libs/peg"
)

func digits() *peg.Grammar {
	g := peg.New("list")
	g.Define("list", peg.Seq(peg.Ref("num"), peg.Star(peg.Seq(peg.Lit(","), peg.Must(peg.Ref("num"), "number")))))
	g.Define("num", peg.Plus(peg.Range('0', '9')), peg.Emit())
	return g
}

func TestParseEvents(t *testing.T) {
	res, err := digits().Parse("1,22,333", peg.Options{})
	require.NoError(t, err)
	assert.Equal(t, 8, res.End)

	var got []string
	for _, ev := range res.Events {
		got = append(got, ev.Text)
	}
	assert.Equal(t, []string{"1", "22", "333"}, got)
	assert.Equal(t, 5, res.Events[2].Pos)
}

func TestParsePrefix(t *testing.T) {
	res, err := digits().Parse("12 rest", peg.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.End)
}

func TestBacktrackDiscardsEvents(t *testing.T) {
	g := peg.New("s")
	g.Define("s", peg.Choice(
		peg.Seq(peg.Ref("a"), peg.Lit("x")),
		peg.Seq(peg.Ref("a"), peg.Lit("y")),
	))
	g.Define("a", peg.ILit("a"), peg.Emit())

	res, err := g.Parse("Ay", peg.Options{})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, peg.Event{Rule: "a", Text: "A", Pos: 0}, res.Events[0])
}

func TestPredicatesDoNotEmit(t *testing.T) {
	g := peg.New("s")
	g.Define("s", peg.Seq(peg.And(peg.Ref("a")), peg.Ref("a"), peg.Not(peg.Any())))
	g.Define("a", peg.Lit("a"), peg.Emit())

	res, err := g.Parse("a", peg.Options{})
	require.NoError(t, err)
	assert.Len(t, res.Events, 1)

	_, err = g.Parse("ab", peg.Options{})
	require.Error(t, err)
}

func TestFarthestFailure(t *testing.T) {
	g := peg.New("s")
	g.Define("s", peg.Seq(peg.Lit("a"), peg.Choice(peg.Lit("b"), peg.Lit("c"))))

	_, err := g.Parse("ax", peg.Options{})
	var perr *peg.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Pos)
	assert.Equal(t, []string{`"b"`, `"c"`}, perr.Expected)
	assert.False(t, perr.Committed)
}

func TestMustAborts(t *testing.T) {
	_, err := digits().Parse("1,x", peg.Options{})
	var perr *peg.Error
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Committed)
	assert.Equal(t, 2, perr.Pos)
	assert.Contains(t, perr.Error(), "offset 2")
}

func TestMustStopsChoice(t *testing.T) {
	g := peg.New("s")
	g.Define("s", peg.Choice(
		peg.Seq(peg.Lit("("), peg.Must(peg.Lit(")"), "')'")),
		peg.Lit("(x"),
	))

	_, err := g.Parse("(x", peg.Options{})
	var perr *peg.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Pos)
	assert.Equal(t, []string{"')'"}, perr.Expected)
}

func TestMaxDepth(t *testing.T) {
	g := peg.New("s")
	g.Define("s", peg.Choice(peg.Seq(peg.Lit("("), peg.Ref("s"), peg.Lit(")")), peg.Lit("x")), peg.Nesting())

	_, err := g.Parse("((x))", peg.Options{MaxDepth: 3})
	require.NoError(t, err)

	_, err = g.Parse("(((x)))", peg.Options{MaxDepth: 3})
	var derr *peg.DepthError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 3, derr.Max)
	assert.Equal(t, "s", derr.Rule)

	_, err = g.Parse("(((x)))", peg.Options{MaxRecursion: 2})
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 2, derr.Max)
}

func TestUndefinedStart(t *testing.T) {
	_, err := peg.New("missing").Parse("", peg.Options{})
	require.Error(t, err)
}
