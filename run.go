// run.go — the batch driver: parse a program, load declarations, run queries.
package semlog

import (
	"context"
	"fmt"
)

// RunSource parses and executes a complete program. Lex and parse errors are
// returned wrapped with a source snippet; resolution errors are reported per
// query and do not stop later queries.
func (e *Engine) RunSource(ctx context.Context, src string) error {
	prog, err := ParseProgram(src)
	if err != nil {
		return WrapErrorWithSource(err, src)
	}
	return e.RunProgram(ctx, prog)
}

// RunProgram loads every declaration, then executes the queries in program
// order against the fully loaded knowledge base.
func (e *Engine) RunProgram(ctx context.Context, prog *Program) error {
	e.KB.Load(prog)
	for _, d := range prog.Decls {
		if d.Tag != DeclQuery {
			continue
		}
		if err := e.RunQuery(ctx, d.Query); err != nil {
			if _, ok := err.(*ResolutionError); ok {
				e.printf("%s\n", err.Error())
				continue
			}
			return err
		}
	}
	return nil
}

// RunQuery executes one goal conjunction and prints its results.
//
// For every solution, the originally-free variables of the query are printed
// as a Bindings block in first-occurrence order. After the stream the verdict
// line True or False follows, unless a side-effecting built-in fired during
// the query.
func (e *Engine) RunQuery(ctx context.Context, goals []Goal) error {
	e.sideEffects = false
	names := queryVars(goals)

	found := false
	err := e.Solve(ctx, goals, nil, func(s *Bindings) bool {
		found = true
		var lines []string
		for _, n := range names {
			r := e.KB.Resolve(Var(n), s)
			if r.Tag == TermVar { // still unbound, nothing to report
				continue
			}
			lines = append(lines, fmt.Sprintf("  %s = %s\n", n, FormatTerm(r)))
		}
		if len(lines) > 0 {
			e.printf("Bindings:\n")
			for _, ln := range lines {
				e.printf("%s", ln)
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	if !e.sideEffects {
		if found {
			e.printf("True\n")
		} else {
			e.printf("False\n")
		}
	}
	return nil
}

// queryVars lists the named variables of a conjunction in first-occurrence
// order.
func queryVars(goals []Goal) []string {
	seen := map[string]bool{}
	var names []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	var walkTerm func(Term)
	walkTerm = func(t Term) {
		if t.Data == nil { // unset goal operand slot
			return
		}
		switch t.Tag {
		case TermVar:
			v := t.Data.(Variable)
			if !v.Anonymous {
				add(v.Name)
			}
		case TermComp:
			for _, a := range t.Data.(Compound).Args {
				walkTerm(a)
			}
		case TermList:
			cell := t.Data.(ListCell)
			for _, it := range cell.Items {
				walkTerm(it)
			}
			if cell.Tail != nil {
				walkTerm(*cell.Tail)
			}
		case TermField:
			walkTerm(t.Data.(FieldAccess).Object)
		}
	}
	var walkGoals func([]Goal)
	walkGoals = func(gs []Goal) {
		for _, g := range gs {
			for _, a := range g.Args {
				walkTerm(a)
			}
			walkTerm(g.Left)
			walkTerm(g.Right)
			walkGoals(g.Body)
			walkGoals(g.OrL)
			walkGoals(g.OrR)
			walkGoals(g.Else)
		}
	}
	walkGoals(goals)
	return names
}
