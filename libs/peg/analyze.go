package peg

import (
	"fmt"
	"strings"
)

// Analyze checks the grammar for defects that do not depend on any input:
// duplicate or undefined rules, rules unreachable from the start rule, left
// recursion, unbounded repetition of an expression that can match nothing,
// and Choice alternatives that can never be tried because an earlier
// alternative always succeeds. It returns an *AnalysisError listing every
// problem found, or nil.
func (g *Grammar) Analyze() error {
	var problems []string
	for _, name := range g.dups {
		problems = append(problems, fmt.Sprintf("rule %s defined more than once", name))
	}
	if _, ok := g.rules[g.start]; !ok {
		problems = append(problems, fmt.Sprintf("start rule %s is not defined", g.start))
	}

	for _, r := range g.Rules() {
		for _, ref := range refs(r.Expr) {
			if _, ok := g.rules[ref]; !ok {
				problems = append(problems, fmt.Sprintf("rule %s refers to undefined rule %s", r.Name, ref))
			}
		}
	}
	if len(problems) > 0 {
		// the remaining checks assume every reference resolves
		return &AnalysisError{Problems: problems}
	}

	reached := g.reachable()
	for _, name := range g.order {
		if !reached[name] {
			problems = append(problems, fmt.Sprintf("rule %s is unreachable from %s", name, g.start))
		}
	}

	a := newAnalysis(g)
	for _, r := range g.Rules() {
		if cycle := a.leftCycle(r.Name); cycle != nil {
			problems = append(problems, fmt.Sprintf("left recursion: %s", strings.Join(cycle, " -> ")))
		}
	}
	for _, r := range g.Rules() {
		problems = append(problems, a.check(r.Name, r.Expr)...)
	}

	if len(problems) > 0 {
		return &AnalysisError{Problems: problems}
	}
	return nil
}

func (g *Grammar) reachable() map[string]bool {
	seen := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if seen[name] {
			return
		}
		r, ok := g.rules[name]
		if !ok {
			return
		}
		seen[name] = true
		for _, ref := range refs(r.Expr) {
			visit(ref)
		}
	}
	visit(g.start)
	return seen
}

// refs returns the names of all rules referenced by e.
func refs(e Expr) []string {
	var out []string
	walk(e, func(sub Expr) {
		if r, ok := sub.(refExpr); ok {
			out = append(out, r.name)
		}
	})
	return out
}

func walk(e Expr, fn func(Expr)) {
	fn(e)
	switch e := e.(type) {
	case seqExpr:
		for _, sub := range e.exprs {
			walk(sub, fn)
		}
	case choiceExpr:
		for _, sub := range e.alts {
			walk(sub, fn)
		}
	case repeatExpr:
		walk(e.expr, fn)
	case predExpr:
		walk(e.expr, fn)
	case mustExpr:
		walk(e.expr, fn)
	}
}

// analysis holds per-rule fixed points: whether a rule can succeed without
// consuming input (nullable), and whether it succeeds on every input
// (total).
type analysis struct {
	g        *Grammar
	nullable map[string]bool
	total    map[string]bool
}

func newAnalysis(g *Grammar) *analysis {
	a := &analysis{
		g:        g,
		nullable: make(map[string]bool),
		total:    make(map[string]bool),
	}
	for changed := true; changed; {
		changed = false
		for _, r := range g.Rules() {
			if !a.nullable[r.Name] && a.isNullable(r.Expr) {
				a.nullable[r.Name] = true
				changed = true
			}
			if !a.total[r.Name] && a.isTotal(r.Expr) {
				a.total[r.Name] = true
				changed = true
			}
		}
	}
	return a
}

func (a *analysis) isNullable(e Expr) bool {
	switch e := e.(type) {
	case litExpr:
		return e.text == ""
	case classExpr, anyExpr:
		return false
	case eofExpr, predExpr:
		return true
	case seqExpr:
		for _, sub := range e.exprs {
			if !a.isNullable(sub) {
				return false
			}
		}
		return true
	case choiceExpr:
		for _, sub := range e.alts {
			if a.isNullable(sub) {
				return true
			}
		}
		return false
	case repeatExpr:
		return e.min == 0 || a.isNullable(e.expr)
	case mustExpr:
		return a.isNullable(e.expr)
	case refExpr:
		return a.nullable[e.name]
	}
	return false
}

// isTotal reports whether e never fails back to an enclosing Choice. A Must
// counts as total: it either matches or aborts the whole parse.
func (a *analysis) isTotal(e Expr) bool {
	switch e := e.(type) {
	case litExpr:
		return e.text == ""
	case classExpr, anyExpr, eofExpr:
		return false
	case predExpr:
		return !e.negate && a.isTotal(e.expr)
	case seqExpr:
		for _, sub := range e.exprs {
			if !a.isTotal(sub) {
				return false
			}
		}
		return true
	case choiceExpr:
		for _, sub := range e.alts {
			if a.isTotal(sub) {
				return true
			}
		}
		return false
	case repeatExpr:
		return e.min == 0 || a.isTotal(e.expr)
	case mustExpr:
		return true
	case refExpr:
		return a.total[e.name]
	}
	return false
}

// leftRefs returns the rules e may enter before consuming any input.
func (a *analysis) leftRefs(e Expr) []string {
	switch e := e.(type) {
	case refExpr:
		return []string{e.name}
	case seqExpr:
		var out []string
		for _, sub := range e.exprs {
			out = append(out, a.leftRefs(sub)...)
			if !a.isNullable(sub) {
				break
			}
		}
		return out
	case choiceExpr:
		var out []string
		for _, sub := range e.alts {
			out = append(out, a.leftRefs(sub)...)
		}
		return out
	case repeatExpr:
		return a.leftRefs(e.expr)
	case predExpr:
		return a.leftRefs(e.expr)
	case mustExpr:
		return a.leftRefs(e.expr)
	}
	return nil
}

// leftCycle returns a path from name back to itself through left
// references, or nil.
func (a *analysis) leftCycle(name string) []string {
	visited := make(map[string]bool)
	var search func(cur string, path []string) []string
	search = func(cur string, path []string) []string {
		for _, next := range a.leftRefs(a.g.rules[cur].Expr) {
			if next == name {
				return append(append([]string{}, path...), next)
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			if found := search(next, append(path, next)); found != nil {
				return found
			}
		}
		return nil
	}
	return search(name, []string{name})
}

func (a *analysis) check(rule string, e Expr) []string {
	var problems []string
	walk(e, func(sub Expr) {
		switch sub := sub.(type) {
		case repeatExpr:
			if sub.max < 0 && a.isNullable(sub.expr) {
				problems = append(problems, fmt.Sprintf("rule %s repeats %s, which can match empty input", rule, sub.expr))
			}
		case choiceExpr:
			if len(sub.alts) < 2 {
				return
			}
			for i, alt := range sub.alts[:len(sub.alts)-1] {
				if a.isTotal(alt) {
					problems = append(problems, fmt.Sprintf("rule %s: alternative %s can never be tried after %s", rule, sub.alts[i+1], alt))
					break
				}
			}
		}
	})
	return problems
}
