package syntax

import (
	"errors"
	"sync"

	"github.com/tendermint/tmquery/libs/peg"
)

// Rule names. The ones the builder reacts to are defined with peg.Emit.
const (
	ruleQuery      = "query"
	rulePred       = "pred"
	ruleOrOp       = "or_op"
	ruleAndSeq     = "and_seq"
	ruleAndExt     = "and_ext"
	ruleAtom       = "atom"
	ruleNot        = "not"
	ruleGroup      = "group"
	ruleGroupBody  = "group_body"
	ruleLParen     = "lparen"
	ruleTruePred   = "true_pred"
	ruleFalsePred  = "false_pred"
	ruleComparison = "comparison"
	ruleSymbolOp   = "symbol_op"
	ruleKeywordOp  = "keyword_op"
	ruleEq         = "eq"
	ruleNotEq      = "noteq"
	ruleLtEq       = "lteq"
	ruleLt         = "lt"
	ruleGtEq       = "gteq"
	ruleGt         = "gt"
	ruleContains   = "contains"
	ruleBeginsWith = "beginswith"
	ruleEndsWith   = "endswith"
	ruleExpr       = "expr"
	ruleDQString   = "dq_string"
	ruleDQContent  = "dq_content"
	ruleSQString   = "sq_string"
	ruleSQContent  = "sq_content"
	ruleChar       = "char"
	ruleEscape     = "escape"
	ruleNumber     = "number"
	ruleArgument   = "argument"
	ruleArgIndex   = "argument_index"
	ruleTrueValue  = "true_value"
	ruleFalseValue = "false_value"
	ruleKeyPath    = "key_path"
	ruleIdent      = "ident"
)

var operatorRules = map[string]Operator{
	ruleEq:         OpEqual,
	ruleNotEq:      OpNotEqual,
	ruleLt:         OpLess,
	ruleLtEq:       OpLessEqual,
	ruleGt:         OpGreater,
	ruleGtEq:       OpGreaterEqual,
	ruleContains:   OpContains,
	ruleBeginsWith: OpBeginsWith,
	ruleEndsWith:   OpEndsWith,
}

func isIdentStart(r rune) bool {
	return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func isIdentChar(r rune) bool {
	return isIdentStart(r) || r == '-' || ('0' <= r && r <= '9')
}

var (
	ws        = peg.Star(peg.Set(" \t\r\n"))
	blank     = peg.Plus(peg.Set(" \t\r\n"))
	digit     = peg.Range('0', '9')
	hexDigit  = peg.Choice(digit, peg.Range('a', 'f'), peg.Range('A', 'F'))
	identChar = peg.Class("identifier character", isIdentChar)
)

// keyword matches s case-insensitively when it is not immediately followed
// by an identifier character.
func keyword(s string) peg.Expr { return peg.Seq(peg.ILit(s), peg.Not(identChar)) }

// quoted matches a string literal delimited by q whose body is the rule
// named content.
func quoted(q, content string) peg.Expr {
	return peg.Seq(peg.Lit(q), peg.Ref(content), peg.Must(peg.Lit(q), "closing "+q))
}

func newGrammar() *peg.Grammar {
	g := peg.New(ruleQuery)

	// Structure.
	g.Define(ruleQuery, peg.Seq(ws, peg.Ref(rulePred), ws))
	g.Define(rulePred, peg.Seq(
		peg.Ref(ruleAndSeq),
		peg.Star(peg.Seq(peg.Ref(ruleOrOp), peg.Must(peg.Ref(ruleAndSeq), "predicate"))),
	))
	g.Define(ruleOrOp, peg.Seq(ws, peg.Choice(keyword("OR"), peg.Lit("||")), ws), peg.Emit())
	g.Define(ruleAndSeq, peg.Seq(peg.Ref(ruleAtom), peg.Star(peg.Ref(ruleAndExt))))
	g.Define(ruleAndExt, peg.Seq(
		ws, peg.Choice(keyword("AND"), peg.Lit("&&")), ws,
		peg.Must(peg.Ref(ruleAtom), "predicate"),
	), peg.Emit())
	g.Define(ruleAtom, peg.Seq(
		peg.Opt(peg.Ref(ruleNot)),
		peg.Choice(peg.Ref(ruleGroup), peg.Ref(ruleTruePred), peg.Ref(ruleFalsePred), peg.Ref(ruleComparison)),
	))
	g.Define(ruleNot, peg.Seq(peg.Choice(keyword("NOT"), peg.Seq(peg.Lit("!"), peg.Not(peg.Lit("=")))), ws), peg.Emit())
	g.Define(ruleGroup, peg.Seq(peg.Ref(ruleLParen), peg.Ref(ruleGroupBody)), peg.Emit())

	// Only the body counts towards the depth limit, so that merely trying a
	// group at an operand position does not.
	g.Define(ruleGroupBody, peg.Seq(
		ws, peg.Must(peg.Ref(rulePred), "predicate"), ws,
		peg.Must(peg.Lit(")"), "')'"),
	), peg.Nesting())
	g.Define(ruleLParen, peg.Lit("("), peg.Emit())
	g.Define(ruleTruePred, keyword("TRUEPREDICATE"), peg.Emit())
	g.Define(ruleFalsePred, keyword("FALSEPREDICATE"), peg.Emit())

	// Comparisons.
	g.Define(ruleComparison, peg.Seq(
		peg.Ref(ruleExpr),
		peg.Choice(peg.Ref(ruleKeywordOp), peg.Ref(ruleSymbolOp)),
		peg.Ref(ruleExpr),
	))
	g.Define(ruleSymbolOp, peg.Seq(ws, peg.Choice(
		peg.Ref(ruleEq), peg.Ref(ruleNotEq),
		peg.Ref(ruleLtEq), peg.Ref(ruleLt),
		peg.Ref(ruleGtEq), peg.Ref(ruleGt),
	), ws))
	g.Define(ruleKeywordOp, peg.Seq(blank, peg.Choice(
		peg.Ref(ruleContains), peg.Ref(ruleBeginsWith), peg.Ref(ruleEndsWith),
	), blank))
	g.Define(ruleEq, peg.Choice(peg.Lit("=="), peg.Lit("=")), peg.Emit())
	g.Define(ruleNotEq, peg.Lit("!="), peg.Emit())
	g.Define(ruleLtEq, peg.Lit("<="), peg.Emit())
	g.Define(ruleLt, peg.Lit("<"), peg.Emit())
	g.Define(ruleGtEq, peg.Lit(">="), peg.Emit())
	g.Define(ruleGt, peg.Lit(">"), peg.Emit())
	g.Define(ruleContains, keyword("CONTAINS"), peg.Emit())
	g.Define(ruleBeginsWith, keyword("BEGINSWITH"), peg.Emit())
	g.Define(ruleEndsWith, keyword("ENDSWITH"), peg.Emit())

	// Operands.
	g.Define(ruleExpr, peg.Choice(
		peg.Ref(ruleDQString), peg.Ref(ruleSQString),
		peg.Ref(ruleNumber), peg.Ref(ruleArgument),
		peg.Ref(ruleTrueValue), peg.Ref(ruleFalseValue),
		peg.Ref(ruleKeyPath),
	))
	g.Define(ruleDQString, quoted(`"`, ruleDQContent))
	g.Define(ruleDQContent, peg.Star(peg.Seq(peg.Not(peg.Lit(`"`)), peg.Ref(ruleChar))), peg.Emit())
	g.Define(ruleSQString, quoted(`'`, ruleSQContent))
	g.Define(ruleSQContent, peg.Star(peg.Seq(peg.Not(peg.Lit(`'`)), peg.Ref(ruleChar))), peg.Emit())
	g.Define(ruleChar, peg.Choice(
		peg.Seq(peg.Lit(`\`), peg.Must(peg.Ref(ruleEscape), "escape sequence")),
		peg.Class("printable character", func(r rune) bool { return r >= 0x20 && r != '\\' }),
	))
	g.Define(ruleEscape, peg.Choice(
		peg.Set(`"'\/bfnrt0`),
		peg.Seq(peg.Lit("u"), peg.Rep(4, hexDigit)),
	))
	g.Define(ruleNumber, peg.Seq(
		peg.Opt(peg.Lit("-")),
		peg.Choice(
			peg.Seq(peg.Plus(digit), peg.Lit("."), peg.Star(digit)),
			peg.Seq(peg.Lit("."), peg.Plus(digit)),
			peg.Seq(peg.Lit("0"), peg.Set("xX"), peg.Plus(hexDigit)),
			peg.Plus(digit),
		),
		peg.Not(identChar),
	), peg.Emit())
	g.Define(ruleArgument, peg.Seq(peg.Lit("$"), peg.Must(peg.Ref(ruleArgIndex), "argument index")))
	g.Define(ruleArgIndex, peg.Plus(digit), peg.Emit())
	g.Define(ruleTrueValue, peg.Seq(peg.ILit("true"), peg.Not(peg.Choice(identChar, peg.Lit(".")))), peg.Emit())
	g.Define(ruleFalseValue, peg.Seq(peg.ILit("false"), peg.Not(peg.Choice(identChar, peg.Lit(".")))), peg.Emit())
	g.Define(ruleKeyPath, peg.Seq(peg.Ref(ruleIdent), peg.Star(peg.Seq(peg.Lit("."), peg.Ref(ruleIdent)))), peg.Emit())
	g.Define(ruleIdent, peg.Seq(peg.Class("identifier", isIdentStart), peg.Star(identChar)))

	return g
}

var (
	grammarOnce sync.Once
	grammar     *peg.Grammar
	grammarErr  error
)

// loadGrammar builds and analyzes the grammar once per process.
func loadGrammar() (*peg.Grammar, error) {
	grammarOnce.Do(func() {
		g := newGrammar()
		if err := g.Analyze(); err != nil {
			gerr := &GrammarBuildError{Err: err}
			var aerr *peg.AnalysisError
			if errors.As(err, &aerr) {
				gerr.Problems = aerr.Problems
			}
			grammarErr = gerr
			return
		}
		grammar = g
	})
	return grammar, grammarErr
}

// CheckGrammar reports whether the query grammar passed its soundness
// checks. Parse returns the same error.
func CheckGrammar() error {
	_, err := loadGrammar()
	return err
}

// GrammarString returns a description of the grammar rules, one per line.
func GrammarString() string { return newGrammar().String() }
