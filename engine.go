// engine.go — SLD resolution with chronological backtracking.
//
// OVERVIEW
// --------
// The engine produces a lazy stream of substitutions for a goal conjunction.
// The stream is a cooperative generator in continuation-passing style: every
// solve function takes a yield callback and calls it once per solution; the
// callback returns false to abandon the stream (which unwinds the whole
// search synchronously — bindings are persistent, so nothing needs undoing).
//
// Control signals travel in the return value:
//
//	sigOK   — alternatives exhausted normally
//	sigStop — the consumer abandoned the stream
//	sigCut  — a cut escaped; the receiver must stop offering alternatives
//	          and pass the signal on, until it reaches the cut barrier
//
// The cut barrier is the predicate call that selected the clause containing
// the cut: solveCall converts sigCut back to sigOK after halting its clause
// iteration, so a cut never prunes choice points outside the invoking call.
// Negation, if-then-else conditions and findall-style meta-calls are also
// barriers, matching the usual Prolog scoping.
//
// Determinism: clause selection follows program order, conjunction is
// depth-first left-to-right, disjunction left-then-right. The only suspension
// points are judge calls and readln; everything between is synchronous.
package semlog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Engine evaluates queries against a knowledge base.
type Engine struct {
	KB        *KnowledgeBase
	Judge     Judge
	Threshold float64 // semantic-match cutoff; 0 selects DefaultThreshold
	Out       io.Writer
	In        *bufio.Reader
	Log       *zap.Logger

	varSeq      int  // fresh-renaming counter
	sideEffects bool // a print/println/nl/readln fired during this query
}

// NewEngine returns an engine with an empty knowledge base, stdio wiring and
// no judge (semantic goals fail until one is configured).
func NewEngine() *Engine {
	return &Engine{
		KB:  NewKnowledgeBase(),
		Out: os.Stdout,
		In:  bufio.NewReader(os.Stdin),
		Log: zap.NewNop(),
	}
}

func (e *Engine) threshold() float64 {
	if e.Threshold > 0 {
		return e.Threshold
	}
	return DefaultThreshold
}

// signal steers backtracking; see the file header.
type signal int

const (
	sigOK signal = iota
	sigStop
	sigCut
)

// yieldFn receives one solution; returning false abandons the stream.
type yieldFn func(*Bindings) bool

// Solve streams every substitution that makes the conjunction true, starting
// from s. It returns the first ResolutionError encountered, if any.
func (e *Engine) Solve(ctx context.Context, goals []Goal, s *Bindings, yield yieldFn) error {
	_, err := e.solveSeq(ctx, goals, s, yield)
	return err
}

// solveSeq solves an ordered conjunction.
func (e *Engine) solveSeq(ctx context.Context, goals []Goal, s *Bindings, k yieldFn) (signal, error) {
	if err := ctx.Err(); err != nil {
		return sigStop, nil
	}
	if len(goals) == 0 {
		if !k(s) {
			return sigStop, nil
		}
		return sigOK, nil
	}

	first, rest := goals[0], goals[1:]
	inner := sigOK
	var innerErr error

	sig, err := e.solveGoal(ctx, first, s, func(s2 *Bindings) bool {
		s3, err2 := e.solveSeq(ctx, rest, s2, k)
		if err2 != nil {
			innerErr = err2
			return false
		}
		if s3 != sigOK {
			inner = s3
			return false
		}
		return true
	})
	if err != nil {
		return sigOK, err
	}
	if innerErr != nil {
		return sigOK, innerErr
	}
	if inner != sigOK {
		return inner, nil // sigStop or a cut escaping from the right
	}
	return sig, nil // sigCut when first itself was (or contained) a cut
}

func (e *Engine) solveGoal(ctx context.Context, g Goal, s *Bindings, k yieldFn) (signal, error) {
	switch g.Tag {
	case GoalCall:
		return e.solveCall(ctx, g, s, k)

	case GoalCut:
		if !k(s) {
			return sigStop, nil
		}
		return sigCut, nil

	case GoalUnify:
		if s2, ok := e.KB.Unify(g.Left, g.Right, s); ok {
			if !k(s2) {
				return sigStop, nil
			}
		}
		return sigOK, nil

	case GoalStructEq:
		if e.KB.StructEqual(g.Left, g.Right, s) {
			if !k(s) {
				return sigStop, nil
			}
		}
		return sigOK, nil

	case GoalMatch:
		ok, err := e.semanticMatch(ctx, g.Left, g.Right, s)
		if err != nil {
			return sigOK, err
		}
		if ok {
			if !k(s) {
				return sigStop, nil
			}
		}
		return sigOK, nil

	case GoalIs:
		v, err := e.evalArith(g.Right, s)
		if err != nil {
			return sigOK, err
		}
		if s2, ok := e.KB.Unify(g.Left, Num(v), s); ok {
			if !k(s2) {
				return sigStop, nil
			}
		}
		return sigOK, nil

	case GoalCompare:
		l, err := e.evalArith(g.Left, s)
		if err != nil {
			return sigOK, err
		}
		r, err := e.evalArith(g.Right, s)
		if err != nil {
			return sigOK, err
		}
		if compareNums(g.Name, l, r) {
			if !k(s) {
				return sigStop, nil
			}
		}
		return sigOK, nil

	case GoalNot:
		found := false
		_, err := e.solveSeq(ctx, g.Body, s, func(*Bindings) bool {
			found = true
			return false
		})
		if err != nil {
			return sigOK, err
		}
		if !found {
			if !k(s) { // negation never binds
				return sigStop, nil
			}
		}
		return sigOK, nil

	case GoalOr:
		sig, err := e.solveSeq(ctx, g.OrL, s, k)
		if err != nil || sig != sigOK {
			// a cut inside the left branch escapes to the enclosing
			// barrier and discards the right branch
			return sig, err
		}
		return e.solveSeq(ctx, g.OrR, s, k)

	case GoalITE:
		committed := false
		var first *Bindings
		_, err := e.solveSeq(ctx, g.OrL, s, func(s2 *Bindings) bool {
			committed = true
			first = s2
			return false
		})
		if err != nil {
			return sigOK, err
		}
		if committed {
			return e.solveSeq(ctx, g.OrR, first, k)
		}
		if g.Else != nil {
			return e.solveSeq(ctx, g.Else, s, k)
		}
		return sigOK, nil
	}
	return sigOK, resolutionErrf("unknown goal form")
}

// solveCall dispatches to the built-in table or iterates matching clauses.
// It is the cut barrier: a sigCut from a clause body halts the iteration but
// is not propagated outward.
func (e *Engine) solveCall(ctx context.Context, g Goal, s *Bindings, k yieldFn) (signal, error) {
	if isBuiltinName(g.Name) {
		fn, ok := builtinFor(g.Name, len(g.Args))
		if !ok {
			return sigOK, nil // arity mismatch on a reserved name: fail
		}
		return fn(e, ctx, g.Args, s, k)
	}

	for _, cl := range e.KB.Clauses {
		if cl.Head.Name != g.Name || len(cl.Head.Params) != len(g.Args) {
			continue
		}
		rc := e.renameClause(cl)

		s2 := s
		ok := true
		for i := range g.Args {
			s2, ok = e.KB.Unify(g.Args[i], rc.Head.Params[i], s2)
			if !ok {
				break
			}
		}
		if !ok {
			continue
		}

		sig, err := e.solveSeq(ctx, rc.Body, s2, k)
		if err != nil {
			return sigOK, err
		}
		if sig == sigStop {
			return sigStop, nil
		}
		if sig == sigCut {
			return sigOK, nil // barrier: commit to this clause, stop here
		}
	}
	return sigOK, nil
}

// ---- clause renaming ---------------------------------------------------

// renameClause produces a fresh copy of cl with every variable suffixed by a
// unique instantiation id. The suffix contains '#', which the lexer cannot
// produce, so renamed variables never collide with source variables.
func (e *Engine) renameClause(cl *Clause) *Clause {
	e.varSeq++
	suffix := "#" + strconv.Itoa(e.varSeq)

	out := &Clause{Head: PredicateHead{Name: cl.Head.Name}}
	out.Head.Params = renameTerms(cl.Head.Params, suffix)
	out.Body = renameGoals(cl.Body, suffix)
	return out
}

func renameTerms(ts []Term, suffix string) []Term {
	if ts == nil {
		return nil
	}
	out := make([]Term, len(ts))
	for i, t := range ts {
		out[i] = renameTerm(t, suffix)
	}
	return out
}

func renameTerm(t Term, suffix string) Term {
	if t.Data == nil { // unset goal operand slot
		return t
	}
	switch t.Tag {
	case TermVar:
		v := t.Data.(Variable)
		if v.Anonymous {
			return t
		}
		return Term{Tag: TermVar, Data: Variable{Name: v.Name + suffix}}
	case TermComp:
		c := t.Data.(Compound)
		return Comp(c.Functor, renameTerms(c.Args, suffix)...)
	case TermList:
		cell := t.Data.(ListCell)
		items := renameTerms(cell.Items, suffix)
		if cell.Tail == nil {
			return ListOf(items...)
		}
		return ListWithTail(items, renameTerm(*cell.Tail, suffix))
	case TermField:
		fa := t.Data.(FieldAccess)
		return Field(renameTerm(fa.Object, suffix), fa.Field)
	}
	return t
}

func renameGoals(gs []Goal, suffix string) []Goal {
	if gs == nil {
		return nil
	}
	out := make([]Goal, len(gs))
	for i, g := range gs {
		out[i] = renameGoal(g, suffix)
	}
	return out
}

func renameGoal(g Goal, suffix string) Goal {
	g.Args = renameTerms(g.Args, suffix)
	g.Left = renameTerm(g.Left, suffix)
	g.Right = renameTerm(g.Right, suffix)
	g.Body = renameGoals(g.Body, suffix)
	g.OrL = renameGoals(g.OrL, suffix)
	g.OrR = renameGoals(g.OrR, suffix)
	g.Else = renameGoals(g.Else, suffix)
	return g
}

// ---- semantic match ----------------------------------------------------

// semanticMatch implements L =~= R. Both sides must dereference to ground
// text; a list on the left succeeds when any element matches R.
func (e *Engine) semanticMatch(ctx context.Context, left, right Term, s *Bindings) (bool, error) {
	r, ok := e.semText(right, s)
	if !ok {
		return false, nil
	}

	l := e.KB.Resolve(left, s)
	if l.Tag == TermList {
		cell := l.Data.(ListCell)
		if cell.Tail != nil {
			return false, nil // not ground
		}
		for _, item := range cell.Items {
			li, ok := e.semText(item, s)
			if !ok {
				continue
			}
			if e.judgeSimilar(ctx, li, r) {
				return true, nil
			}
		}
		return false, nil
	}

	lt, ok := e.semText(l, s)
	if !ok {
		return false, nil
	}
	return e.judgeSimilar(ctx, lt, r), nil
}

// semText extracts the ground text of a term for judge payloads.
func (e *Engine) semText(t Term, s *Bindings) (string, bool) {
	t = e.KB.Walk(t, s)
	switch t.Tag {
	case TermStr, TermAtom:
		return t.Data.(string), true
	case TermNum:
		return formatNum(t.Data.(float64)), true
	}
	return "", false
}

// judgeSimilar applies the threshold; judge errors degrade to false.
func (e *Engine) judgeSimilar(ctx context.Context, a, b string) bool {
	if e.Judge == nil {
		e.Log.Warn("semantic goal with no judge configured")
		return false
	}
	score, err := e.Judge.Similarity(ctx, a, b)
	if err != nil {
		e.Log.Warn("judge failure, treating as no match", zap.Error(err))
		return false
	}
	return clamp01(score) >= e.threshold()
}

// ---- arithmetic --------------------------------------------------------

func (e *Engine) evalArith(t Term, s *Bindings) (float64, error) {
	t = e.KB.Walk(t, s)
	switch t.Tag {
	case TermNum:
		return t.Data.(float64), nil
	case TermComp:
		c := t.Data.(Compound)
		if len(c.Args) != 2 {
			return 0, resolutionErrf("cannot evaluate %s/%d arithmetically", c.Functor, len(c.Args))
		}
		l, err := e.evalArith(c.Args[0], s)
		if err != nil {
			return 0, err
		}
		r, err := e.evalArith(c.Args[1], s)
		if err != nil {
			return 0, err
		}
		switch c.Functor {
		case "+":
			return l + r, nil
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		case "/":
			if r == 0 {
				return 0, resolutionErrf("division by zero")
			}
			return l / r, nil
		case "mod":
			if r == 0 {
				return 0, resolutionErrf("division by zero")
			}
			return float64(int64(l) % int64(r)), nil
		}
		return 0, resolutionErrf("cannot evaluate %s/2 arithmetically", c.Functor)
	}
	return 0, resolutionErrf("arithmetic over non-numeric term %s", FormatTerm(t))
}

func compareNums(op string, l, r float64) bool {
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	case "!=":
		return l != r
	}
	return false
}

// ---- misc helpers ------------------------------------------------------

// readLine reads one line from the engine's input source for readln.
func (e *Engine) readLine() (string, error) {
	line, err := e.In.ReadString('\n')
	if err != nil && line == "" && err != io.EOF {
		return "", resolutionErrf("readln: %v", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (e *Engine) printf(format string, args ...interface{}) {
	fmt.Fprintf(e.Out, format, args...)
}
