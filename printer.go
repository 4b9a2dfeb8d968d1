// printer.go — renders terms, goals and clauses back to surface syntax.
//
// Two term renderings exist: FormatTerm quotes strings (used for result
// bindings and serialization) and FormatTermRaw prints strings bare (used by
// the print/println built-ins). Everything else is shared.
package semlog

import (
	"math"
	"strconv"
	"strings"
)

// FormatTerm renders t with strings quoted.
func FormatTerm(t Term) string {
	return formatTerm(t, true)
}

// FormatTermRaw renders t with strings unquoted.
func FormatTermRaw(t Term) string {
	return formatTerm(t, false)
}

func formatTerm(t Term, quoted bool) string {
	switch t.Tag {
	case TermVar:
		return t.Data.(Variable).Name
	case TermAtom:
		return t.Data.(string)
	case TermStr:
		if quoted {
			return quote(t.Data.(string))
		}
		return t.Data.(string)
	case TermNum:
		return formatNum(t.Data.(float64))
	case TermList:
		cell := t.Data.(ListCell)
		parts := make([]string, len(cell.Items))
		for i, it := range cell.Items {
			parts[i] = formatTerm(it, quoted)
		}
		if cell.Tail == nil {
			return "[" + strings.Join(parts, ", ") + "]"
		}
		return "[" + strings.Join(parts, ", ") + " | " + formatTerm(*cell.Tail, quoted) + "]"
	case TermComp:
		c := t.Data.(Compound)
		if len(c.Args) == 2 && isInfixFunctor(c.Functor) {
			return formatTerm(c.Args[0], quoted) + " " + c.Functor + " " + formatTerm(c.Args[1], quoted)
		}
		parts := make([]string, len(c.Args))
		for i, a := range c.Args {
			parts[i] = formatTerm(a, quoted)
		}
		return c.Functor + "(" + strings.Join(parts, ", ") + ")"
	case TermField:
		fa := t.Data.(FieldAccess)
		return formatTerm(fa.Object, quoted) + "." + fa.Field
	}
	return "?"
}

func isInfixFunctor(f string) bool {
	switch f {
	case "+", "-", "*", "/", "mod":
		return true
	}
	return false
}

func formatNum(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatGoal renders a single goal.
func FormatGoal(g Goal) string {
	switch g.Tag {
	case GoalCall:
		if len(g.Args) == 0 {
			return g.Name
		}
		parts := make([]string, len(g.Args))
		for i, a := range g.Args {
			parts[i] = FormatTerm(a)
		}
		return g.Name + "(" + strings.Join(parts, ", ") + ")"
	case GoalMatch:
		return FormatTerm(g.Left) + " =~= " + FormatTerm(g.Right)
	case GoalUnify:
		return FormatTerm(g.Left) + " = " + FormatTerm(g.Right)
	case GoalStructEq:
		return FormatTerm(g.Left) + " == " + FormatTerm(g.Right)
	case GoalIs:
		return FormatTerm(g.Left) + " is " + FormatTerm(g.Right)
	case GoalCompare:
		return FormatTerm(g.Left) + " " + g.Name + " " + FormatTerm(g.Right)
	case GoalNot:
		return "not " + parenthesized(g.Body)
	case GoalOr:
		return "(" + FormatGoals(g.OrL) + " ; " + FormatGoals(g.OrR) + ")"
	case GoalITE:
		s := "(" + FormatGoals(g.OrL) + " -> " + FormatGoals(g.OrR)
		if g.Else != nil {
			s += " ; " + FormatGoals(g.Else)
		}
		return s + ")"
	case GoalCut:
		return "!"
	}
	return "?"
}

// FormatGoals renders a conjunction.
func FormatGoals(gs []Goal) string {
	parts := make([]string, len(gs))
	for i, g := range gs {
		parts[i] = FormatGoal(g)
	}
	return strings.Join(parts, ", ")
}

func parenthesized(gs []Goal) string {
	if len(gs) == 1 && gs[0].Tag == GoalCall {
		return FormatGoal(gs[0])
	}
	return "(" + FormatGoals(gs) + ")"
}

// FormatClause renders a fact or rule without the trailing period.
func FormatClause(cl *Clause) string {
	head := cl.Head.Name
	if len(cl.Head.Params) > 0 {
		parts := make([]string, len(cl.Head.Params))
		for i, p := range cl.Head.Params {
			parts[i] = FormatTerm(p)
		}
		head += "(" + strings.Join(parts, ", ") + ")"
	}
	if len(cl.Body) == 0 {
		return head
	}
	return head + " :- " + FormatGoals(cl.Body)
}
