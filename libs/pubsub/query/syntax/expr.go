package syntax

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ExprType is the kind of an Expression.
type ExprType uint8

// Expression kinds.
const (
	ExprInvalid ExprType = iota
	ExprString
	ExprKeyPath
	ExprNumber
	ExprBool
	ExprArgument
)

var exprTypeNames = [...]string{
	ExprInvalid:  "invalid",
	ExprString:   "string",
	ExprKeyPath:  "key path",
	ExprNumber:   "number",
	ExprBool:     "bool",
	ExprArgument: "argument",
}

func (t ExprType) String() string {
	if int(t) < len(exprTypeNames) {
		return exprTypeNames[t]
	}
	return fmt.Sprintf("ExprType(%d)", uint8(t))
}

// An Expression is one operand of a comparison.
type Expression struct {
	Type ExprType

	// Text holds the decoded content of a string, or the literal spelling of
	// a number exactly as written in the query.
	Text string

	// Path holds the segments of a key path.
	Path []string

	// Bool holds the value of a boolean constant.
	Bool bool

	// Index holds the position of an argument placeholder.
	Index int
}

// String returns a string expression with the given content.
func String(s string) Expression { return Expression{Type: ExprString, Text: s} }

// KeyPath returns a key path expression.
func KeyPath(segments ...string) Expression {
	return Expression{Type: ExprKeyPath, Path: segments}
}

// Number returns a number expression for a literal such as "42", "-1.5" or
// "0xFF". The literal is not validated.
func Number(literal string) Expression { return Expression{Type: ExprNumber, Text: literal} }

// Bool returns a boolean constant.
func Bool(v bool) Expression { return Expression{Type: ExprBool, Bool: v} }

// Argument returns a placeholder for the i'th caller-supplied argument.
func Argument(i int) Expression { return Expression{Type: ExprArgument, Index: i} }

// Float64 converts a number literal to a float64. Hexadecimal literals are
// converted exactly up to 64 bits.
func (e Expression) Float64() (float64, error) {
	if e.Type != ExprNumber {
		return 0, fmt.Errorf("%s is not a number", e.Type)
	}
	text, neg := e.Text, false
	if strings.HasPrefix(text, "-") {
		text, neg = text[1:], true
	}
	var v float64
	if len(text) > 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
		u, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", e.Text, err)
		}
		v = float64(u)
	} else {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", e.Text, err)
		}
		v = f
	}
	if neg {
		v = -v
	}
	return v, nil
}

// Equal reports whether e and o are structurally identical.
func (e Expression) Equal(o Expression) bool {
	if e.Type != o.Type {
		return false
	}
	switch e.Type {
	case ExprString, ExprNumber:
		return e.Text == o.Text
	case ExprKeyPath:
		if len(e.Path) != len(o.Path) {
			return false
		}
		for i := range e.Path {
			if e.Path[i] != o.Path[i] {
				return false
			}
		}
		return true
	case ExprBool:
		return e.Bool == o.Bool
	case ExprArgument:
		return e.Index == o.Index
	}
	return true
}

// String renders e in canonical query syntax.
func (e Expression) String() string {
	switch e.Type {
	case ExprString:
		return quote(e.Text)
	case ExprKeyPath:
		return strings.Join(e.Path, ".")
	case ExprNumber:
		return e.Text
	case ExprBool:
		return strconv.FormatBool(e.Bool)
	case ExprArgument:
		return "$" + strconv.Itoa(e.Index)
	}
	return "<invalid>"
}

// quote renders s as a double-quoted string literal using only the escapes
// the grammar accepts.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		raw := s[i : i+size]
		i += size
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case 0:
			sb.WriteString(`\0`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u%04x`, r)
				continue
			}
			sb.WriteString(raw) // invalid UTF-8 is kept as-is
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
