// builtins.go — predicates implemented in the host.
//
// The table maps name/arity to handlers producing solution streams with the
// same signal contract as the engine. Built-in names are reserved: a call to
// a reserved name with the wrong arity fails (no solutions) instead of
// falling through to user clauses, and is never an error.
package semlog

import (
	"context"

	"go.uber.org/zap"
)

type builtinFn func(e *Engine, ctx context.Context, args []Term, s *Bindings, k yieldFn) (signal, error)

type builtinKey struct {
	name  string
	arity int // -1 accepts any arity
}

var builtins map[builtinKey]builtinFn

var builtinNames map[string]bool

// init populates the tables here rather than at declaration to avoid an
// initialization cycle (handlers reach isBuiltinName via the engine).
func init() {
	builtins = map[builtinKey]builtinFn{
		{"print", -1}:      biPrint,
		{"println", -1}:    biPrintln,
		{"nl", 0}:          biNl,
		{"readln", 1}:      biReadln,
		{"member", 2}:      biMember,
		{"append", 3}:      biAppend,
		{"length", 2}:      biLength,
		{"reverse", 2}:     biReverse,
		{"is_list", 1}:     biIsList,
		{"is_atom", 1}:     biIsAtom,
		{"is_bound", 1}:    biIsBound,
		{"is_unbound", 1}:  biIsUnbound,
		{"findall", 3}:     biFindall,
		{"bagof", 3}:       biBagof,
		{"setof", 3}:       biSetof,
		{"has_attr", 2}:    biHasAttr,
		{"share_attr", 3}:  biShareAttr,
		{"differentia", 3}: biDifferentia,
		{"similar_attr", 3}: biSimilarAttr,
	}
	builtinNames = map[string]bool{}
	for k := range builtins {
		builtinNames[k.name] = true
	}
}

func isBuiltinName(name string) bool { return builtinNames[name] }

func builtinFor(name string, arity int) (builtinFn, bool) {
	if fn, ok := builtins[builtinKey{name, arity}]; ok {
		return fn, true
	}
	fn, ok := builtins[builtinKey{name, -1}]
	return fn, ok
}

// succeedOnce is the common tail of deterministic built-ins.
func succeedOnce(s *Bindings, k yieldFn) (signal, error) {
	if !k(s) {
		return sigStop, nil
	}
	return sigOK, nil
}

// ---- I/O ---------------------------------------------------------------

func biPrint(e *Engine, _ context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	e.sideEffects = true
	for _, a := range args {
		e.printf("%s", FormatTermRaw(e.KB.Resolve(a, s)))
	}
	return succeedOnce(s, k)
}

func biPrintln(e *Engine, ctx context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	e.sideEffects = true
	for _, a := range args {
		e.printf("%s", FormatTermRaw(e.KB.Resolve(a, s)))
	}
	e.printf("\n")
	return succeedOnce(s, k)
}

func biNl(e *Engine, _ context.Context, _ []Term, s *Bindings, k yieldFn) (signal, error) {
	e.sideEffects = true
	e.printf("\n")
	return succeedOnce(s, k)
}

func biReadln(e *Engine, _ context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	e.sideEffects = true
	v := e.KB.Walk(args[0], s)
	if v.Tag != TermVar {
		return sigOK, resolutionErrf("readln: argument must be an unbound variable")
	}
	line, err := e.readLine()
	if err != nil {
		return sigOK, err
	}
	if v.IsAnon() {
		return succeedOnce(s, k)
	}
	s2, ok := e.KB.Unify(v, Str(line), s)
	if !ok {
		return sigOK, nil
	}
	return succeedOnce(s2, k)
}

// ---- lists -------------------------------------------------------------

// properItems returns the elements when t resolves to a proper list.
func properItems(e *Engine, t Term, s *Bindings) ([]Term, bool) {
	r := e.KB.Resolve(t, s)
	if r.Tag != TermList {
		return nil, false
	}
	cell := r.Data.(ListCell)
	if cell.Tail != nil {
		return nil, false
	}
	return cell.Items, true
}

func biMember(e *Engine, _ context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	items, ok := properItems(e, args[1], s)
	if !ok {
		return sigOK, nil
	}
	for _, item := range items {
		if s2, ok := e.KB.Unify(args[0], item, s); ok {
			if !k(s2) {
				return sigStop, nil
			}
		}
	}
	return sigOK, nil
}

func biAppend(e *Engine, _ context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	as, ok := properItems(e, args[0], s)
	if !ok {
		return sigOK, nil
	}
	bs, ok := properItems(e, args[1], s)
	if !ok {
		return sigOK, nil
	}
	cat := ListOf(append(append([]Term{}, as...), bs...)...)
	if s2, ok := e.KB.Unify(args[2], cat, s); ok {
		return succeedOnce(s2, k)
	}
	return sigOK, nil
}

func biLength(e *Engine, _ context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	items, ok := properItems(e, args[0], s)
	if !ok {
		return sigOK, nil
	}
	if s2, ok := e.KB.Unify(args[1], Num(float64(len(items))), s); ok {
		return succeedOnce(s2, k)
	}
	return sigOK, nil
}

func biReverse(e *Engine, _ context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	items, ok := properItems(e, args[0], s)
	if !ok {
		return sigOK, nil
	}
	rev := make([]Term, len(items))
	for i, it := range items {
		rev[len(items)-1-i] = it
	}
	if s2, ok := e.KB.Unify(args[1], ListOf(rev...), s); ok {
		return succeedOnce(s2, k)
	}
	return sigOK, nil
}

// ---- type guards -------------------------------------------------------

func biIsList(e *Engine, _ context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	if _, ok := properItems(e, args[0], s); ok {
		return succeedOnce(s, k)
	}
	return sigOK, nil
}

func biIsAtom(e *Engine, _ context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	if e.KB.Walk(args[0], s).Tag == TermAtom {
		return succeedOnce(s, k)
	}
	return sigOK, nil
}

func biIsBound(e *Engine, _ context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	if e.KB.Walk(args[0], s).Tag != TermVar {
		return succeedOnce(s, k)
	}
	return sigOK, nil
}

func biIsUnbound(e *Engine, _ context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	if e.KB.Walk(args[0], s).Tag == TermVar {
		return succeedOnce(s, k)
	}
	return sigOK, nil
}

// ---- all-solutions -----------------------------------------------------

// termToGoal converts a meta-call argument to a predicate call.
func (e *Engine) termToGoal(t Term, s *Bindings) (Goal, error) {
	t = e.KB.Walk(t, s)
	switch t.Tag {
	case TermComp:
		c := t.Data.(Compound)
		return Call(c.Functor, c.Args...), nil
	case TermAtom:
		return Call(t.Data.(string)), nil
	}
	return Goal{}, resolutionErrf("meta-call target must be a compound or an atom, got %s", FormatTerm(t))
}

// collectSolutions runs the meta-call goal and gathers the resolved template
// per solution. Nested resolution starts from the surrounding substitution
// and leaks no bindings outward except through the collected terms.
func collectSolutions(e *Engine, ctx context.Context, tmpl, goalTerm Term, s *Bindings) ([]Term, error) {
	g, err := e.termToGoal(goalTerm, s)
	if err != nil {
		return nil, err
	}
	var out []Term
	_, err = e.solveSeq(ctx, []Goal{g}, s, func(s2 *Bindings) bool {
		out = append(out, e.KB.Resolve(tmpl, s2))
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func biFindall(e *Engine, ctx context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	xs, err := collectSolutions(e, ctx, args[0], args[1], s)
	if err != nil {
		return sigOK, err
	}
	if s2, ok := e.KB.Unify(args[2], ListOf(xs...), s); ok {
		return succeedOnce(s2, k)
	}
	return sigOK, nil
}

func biBagof(e *Engine, ctx context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	xs, err := collectSolutions(e, ctx, args[0], args[1], s)
	if err != nil {
		return sigOK, err
	}
	if len(xs) == 0 {
		return sigOK, nil
	}
	if s2, ok := e.KB.Unify(args[2], ListOf(xs...), s); ok {
		return succeedOnce(s2, k)
	}
	return sigOK, nil
}

func biSetof(e *Engine, ctx context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	xs, err := collectSolutions(e, ctx, args[0], args[1], s)
	if err != nil {
		return sigOK, err
	}
	var set []Term
	for _, x := range xs {
		dup := false
		for _, y := range set {
			if termEqual(x, y) {
				dup = true
				break
			}
		}
		if !dup {
			set = append(set, x)
		}
	}
	if len(set) == 0 {
		return sigOK, nil
	}
	if s2, ok := e.KB.Unify(args[2], ListOf(set...), s); ok {
		return succeedOnce(s2, k)
	}
	return sigOK, nil
}

// ---- semantic operations -----------------------------------------------

func biHasAttr(e *Engine, ctx context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	attr, ok1 := e.semText(args[0], s)
	x, ok2 := e.semText(args[1], s)
	if !ok1 || !ok2 || e.Judge == nil {
		return sigOK, nil
	}
	res, err := e.Judge.HasAttr(ctx, attr, x)
	if err != nil {
		e.Log.Warn("judge failure, treating as no", zap.Error(err))
		return sigOK, nil
	}
	if res {
		return succeedOnce(s, k)
	}
	return sigOK, nil
}

func biShareAttr(e *Engine, ctx context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	attr, ok1 := e.semText(args[0], s)
	x, ok2 := e.semText(args[1], s)
	y, ok3 := e.semText(args[2], s)
	if !ok1 || !ok2 || !ok3 || e.Judge == nil {
		return sigOK, nil
	}
	res, err := e.Judge.ShareAttr(ctx, attr, x, y)
	if err != nil {
		e.Log.Warn("judge failure, treating as no", zap.Error(err))
		return sigOK, nil
	}
	if res {
		return succeedOnce(s, k)
	}
	return sigOK, nil
}

func biDifferentia(e *Engine, ctx context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	a, ok1 := e.semText(args[0], s)
	b, ok2 := e.semText(args[1], s)
	if !ok1 || !ok2 || e.Judge == nil {
		return sigOK, nil
	}
	answer, err := e.Judge.Differentia(ctx, a, b)
	if err != nil {
		e.Log.Warn("judge failure, treating as no answer", zap.Error(err))
		return sigOK, nil
	}
	if answer == "" {
		return sigOK, nil
	}
	if s2, ok := e.KB.Unify(args[2], Str(answer), s); ok {
		return succeedOnce(s2, k)
	}
	return sigOK, nil
}

func biSimilarAttr(e *Engine, ctx context.Context, args []Term, s *Bindings, k yieldFn) (signal, error) {
	axis, ok1 := e.semText(args[0], s)
	a, ok2 := e.semText(args[1], s)
	b, ok3 := e.semText(args[2], s)
	if !ok1 || !ok2 || !ok3 || e.Judge == nil {
		return sigOK, nil
	}
	score, err := e.Judge.SimilarAxis(ctx, axis, a, b)
	if err != nil {
		e.Log.Warn("judge failure, treating as no match", zap.Error(err))
		return sigOK, nil
	}
	if clamp01(score) >= e.threshold() {
		return succeedOnce(s, k)
	}
	return sigOK, nil
}
