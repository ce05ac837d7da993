package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tendermint/tmquery/config"
	"github.com/tendermint/tmquery/libs/pubsub/query/syntax"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// MakeParseCommand constructs a command that parses a query and prints its
// canonical form or its tree.
func MakeParseCommand(conf *config.Config) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "parse QUERY",
		Short: "Parse a query and print it in canonical form",
		Long: `Parse a query and print it in canonical form.

With --format json the predicate tree is printed instead. A query that does
not parse is reported with the offset of the error marked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, err := parseQuery(conf, args[0])
			if err != nil {
				return err
			}

			switch format {
			case formatText:
				fmt.Fprintln(cmd.OutOrStdout(), pred.String())
				return nil
			case formatJSON:
				bz, err := json.MarshalIndent(predicateJSON(pred), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(bz))
				return nil
			}
			return fmt.Errorf("unknown format %q (must be %q or %q)", format, formatText, formatJSON)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text | json")
	return cmd
}

// parseQuery parses q with the configured limits. Positional errors are
// annotated with the query and a marker under the failing offset.
func parseQuery(conf *config.Config, q string) (syntax.Predicate, error) {
	pred, err := syntax.ParseWithOptions(q,
		syntax.WithMaxDepth(conf.Parser.MaxDepth),
		syntax.WithMaxLength(conf.Parser.MaxLength),
	)
	if err == nil {
		return pred, nil
	}

	var synErr *syntax.SyntaxError
	var trailErr *syntax.TrailingInputError
	switch {
	case errors.As(err, &synErr):
		return pred, fmt.Errorf("%w\n%s", err, markOffset(q, synErr.Pos))
	case errors.As(err, &trailErr):
		return pred, fmt.Errorf("%w\n%s", err, markOffset(q, trailErr.Pos))
	}
	return pred, err
}

// markOffset renders the line of q holding byte offset pos with a caret
// under it.
func markOffset(q string, pos int) string {
	if pos > len(q) {
		pos = len(q)
	}
	start := strings.LastIndexByte(q[:pos], '\n') + 1
	end := strings.IndexByte(q[pos:], '\n')
	if end < 0 {
		end = len(q)
	} else {
		end += pos
	}

	var pad strings.Builder
	for _, r := range q[start:pos] {
		if r == '\t' {
			pad.WriteByte('\t')
		} else {
			pad.WriteByte(' ')
		}
	}
	return fmt.Sprintf("  %s\n  %s^", q[start:end], pad.String())
}

var predicateKinds = map[syntax.PredicateType]string{
	syntax.PredTrue:       "true",
	syntax.PredFalse:      "false",
	syntax.PredComparison: "comparison",
	syntax.PredAnd:        "and",
	syntax.PredOr:         "or",
}

var expressionKinds = map[syntax.ExprType]string{
	syntax.ExprString:   "string",
	syntax.ExprKeyPath:  "keypath",
	syntax.ExprNumber:   "number",
	syntax.ExprBool:     "bool",
	syntax.ExprArgument: "argument",
}

// predicateJSON converts p to a value encoding/json renders as a tree.
func predicateJSON(p syntax.Predicate) map[string]interface{} {
	out := map[string]interface{}{"type": predicateKinds[p.Type]}
	if p.Negate {
		out["negate"] = true
	}
	switch p.Type {
	case syntax.PredComparison:
		out["op"] = p.Op.String()
		out["left"] = expressionJSON(p.Left)
		out["right"] = expressionJSON(p.Right)
	case syntax.PredAnd, syntax.PredOr:
		kids := make([]interface{}, len(p.Children))
		for i, c := range p.Children {
			kids[i] = predicateJSON(c)
		}
		out["children"] = kids
	}
	return out
}

func expressionJSON(e syntax.Expression) map[string]interface{} {
	out := map[string]interface{}{"type": expressionKinds[e.Type]}
	switch e.Type {
	case syntax.ExprString, syntax.ExprNumber:
		out["value"] = e.Text
	case syntax.ExprKeyPath:
		out["path"] = e.Path
	case syntax.ExprBool:
		out["value"] = e.Bool
	case syntax.ExprArgument:
		out["index"] = e.Index
	}
	return out
}
