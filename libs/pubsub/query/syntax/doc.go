// Package syntax defines a grammar and parser for the record filter language.
//
// A query is a predicate built from comparisons joined by AND and OR, with
// optional NOT and explicit grouping. AND binds tighter than OR:
//
//	age >= 21 AND name BEGINSWITH "J" OR vip == true
//
// parses as (age >= 21 AND name BEGINSWITH "J") OR vip == true.
//
// The grammar, informally:
//
//	query      = pred
//	pred       = and_seq { ("OR" | "||") pred }
//	and_seq    = atom { ("AND" | "&&") atom }
//	atom       = [ "NOT" | "!" ] ( "(" pred ")" | "TRUEPREDICATE" | "FALSEPREDICATE" | comparison )
//	comparison = expr op expr
//	op         = "==" | "=" | "!=" | "<=" | "<" | ">=" | ">"
//	           | "CONTAINS" | "BEGINSWITH" | "ENDSWITH"
//	expr       = string | number | argument | "true" | "false" | key_path
//	string     = '"' chars '"' | "'" chars "'"
//	number     = [ "-" ] ( float | "0x" hex+ | digit+ )
//	argument   = "$" digit+
//	key_path   = ident { "." ident }
//	ident      = [A-Za-z_] [A-Za-z0-9_-]*
//
// Keywords are case-insensitive. Strings accept the escapes \" \' \\ \/ \b
// \f \n \r \t \0 and \uXXXX.
//
// Parse returns a Predicate tree. Positional arguments ($0, $1, ...) are kept
// as placeholders; substituting values for them is left to the evaluator
// (see the query package).
package syntax
