package semlog

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- shared test helpers ----------

// fakeJudge answers from fixed tables; unknown inputs score zero / false.
type fakeJudge struct {
	sims  map[[2]string]float64
	attrs map[[2]string]bool
	diffs map[[2]string]string
}

func (f *fakeJudge) Similarity(_ context.Context, a, b string) (float64, error) {
	return f.sims[[2]string{a, b}], nil
}

func (f *fakeJudge) HasAttr(_ context.Context, attr, x string) (bool, error) {
	return f.attrs[[2]string{attr, x}], nil
}

func (f *fakeJudge) ShareAttr(ctx context.Context, attr, x, y string) (bool, error) {
	a, _ := f.HasAttr(ctx, attr, x)
	b, _ := f.HasAttr(ctx, attr, y)
	return a && b, nil
}

func (f *fakeJudge) Differentia(_ context.Context, a, b string) (string, error) {
	return f.diffs[[2]string{a, b}], nil
}

func (f *fakeJudge) SimilarAxis(_ context.Context, axis, a, b string) (float64, error) {
	return f.sims[[2]string{a, b}], nil
}

func newTestEngine() (*Engine, *bytes.Buffer) {
	e := NewEngine()
	var out bytes.Buffer
	e.Out = &out
	return e, &out
}

func runSrc(t *testing.T, e *Engine, src string) string {
	t.Helper()
	out := e.Out.(*bytes.Buffer)
	out.Reset()
	require.NoError(t, e.RunSource(context.Background(), src))
	return out.String()
}

// solutions runs a single query string and collects one rendered binding set
// per solution for the named variable.
func solutions(t *testing.T, e *Engine, query string, varName string) []string {
	t.Helper()
	prog, err := ParseProgram(query)
	require.NoError(t, err)
	require.Len(t, prog.Decls, 1)
	require.Equal(t, DeclQuery, prog.Decls[0].Tag)

	var got []string
	err = e.Solve(context.Background(), prog.Decls[0].Query, nil, func(s *Bindings) bool {
		got = append(got, FormatTerm(e.KB.Resolve(Var(varName), s)))
		return true
	})
	require.NoError(t, err)
	return got
}

// ---------- scenarios ----------

func Test_Engine_Syllogism(t *testing.T) {
	e, _ := newTestEngine()
	out := runSrc(t, e, `
		man(socrates).
		mortal(X) :- man(X).
		? mortal(socrates).
	`)
	assert.Equal(t, "True\n", out)
}

func Test_Engine_SemanticMatch_EntityDescription(t *testing.T) {
	e, _ := newTestEngine()
	e.Judge = &fakeJudge{sims: map[[2]string]float64{
		{"philosopher", "thinker"}: 1.0,
	}}
	out := runSrc(t, e, `
		entity SOCRATES: Man, description = "philosopher".
		wise(E) :- E.description =~= "thinker".
		? wise(SOCRATES).
	`)
	assert.Equal(t, "True\n", out)
}

func Test_Engine_SemanticMatch_BelowThreshold(t *testing.T) {
	e, _ := newTestEngine()
	e.Judge = &fakeJudge{sims: map[[2]string]float64{
		{"philosopher", "thinker"}: 0.5,
	}}
	out := runSrc(t, e, `
		entity SOCRATES: Man, description = "philosopher".
		wise(E) :- E.description =~= "thinker".
		? wise(SOCRATES).
	`)
	assert.Equal(t, "False\n", out)
}

func Test_Engine_SemanticMatch_NoJudgeFails(t *testing.T) {
	e, _ := newTestEngine()
	out := runSrc(t, e, `? "cat" =~= "feline".`)
	assert.Equal(t, "False\n", out)
}

func Test_Engine_MemberBacktracking(t *testing.T) {
	e, _ := newTestEngine()
	out := runSrc(t, e, `? member(C, [red, green, blue]).`)
	assert.Equal(t,
		"Bindings:\n  C = red\n"+
			"Bindings:\n  C = green\n"+
			"Bindings:\n  C = blue\n"+
			"True\n",
		out)
}

func Test_Engine_Cut_SingleSolution(t *testing.T) {
	e, _ := newTestEngine()
	runSrc(t, e, `
		max(X, Y, X) :- X == Y, !.
		max(X, Y, X) :- !.
		max(X, Y, Y).
	`)
	got := solutions(t, e, `? max(a, a, Z).`, "Z")
	assert.Equal(t, []string{"a"}, got)
}

func Test_Engine_Cut_Local(t *testing.T) {
	// the cut inside pick/1 must not prune color/1 alternatives
	e, _ := newTestEngine()
	runSrc(t, e, `
		color(red). color(green).
		pick(X) :- !.
		both(C) :- color(C), pick(C).
	`)
	got := solutions(t, e, `? both(C).`, "C")
	assert.Equal(t, []string{"red", "green"}, got)
}

func Test_Engine_NegationAsFailure(t *testing.T) {
	e, _ := newTestEngine()
	out := runSrc(t, e, `
		bird(tweety). bird(penguin). flies(tweety).
		grounded(B) :- bird(B), not flies(B).
		? grounded(X).
	`)
	assert.Equal(t, "Bindings:\n  X = penguin\nTrue\n", out)
}

func Test_Engine_Negation_NeverBinds(t *testing.T) {
	e, _ := newTestEngine()
	runSrc(t, e, `q(1).`)
	got := solutions(t, e, `? not q(2), X = ok.`, "X")
	assert.Equal(t, []string{"ok"}, got)
}

func Test_Engine_Findall(t *testing.T) {
	e, _ := newTestEngine()
	out := runSrc(t, e, `
		p(1). p(2). p(3).
		? findall(X, p(X), L).
	`)
	assert.Equal(t, "Bindings:\n  L = [1, 2, 3]\nTrue\n", out)
}

func Test_Engine_ClauseVariableFreshness(t *testing.T) {
	e, _ := newTestEngine()
	runSrc(t, e, `
		pair(X, Y) :- q(X), q(Y).
		q(1). q(2).
	`)
	got := solutions(t, e, `? pair(A, B), A != B.`, "A")
	assert.Equal(t, []string{"1", "2"}, got)
}

func Test_Engine_IfThenElse_CommitsToFirstCondition(t *testing.T) {
	e, _ := newTestEngine()
	got := solutions(t, e, `? (member(X, [1, 2]) -> Y = X ; Y = 3).`, "Y")
	assert.Equal(t, []string{"1"}, got)
}

func Test_Engine_IfThenElse_ElseBranch(t *testing.T) {
	e, _ := newTestEngine()
	got := solutions(t, e, `? (member(X, []) -> Y = hit ; Y = miss).`, "Y")
	assert.Equal(t, []string{"miss"}, got)
}

func Test_Engine_Disjunction_LeftThenRight(t *testing.T) {
	e, _ := newTestEngine()
	got := solutions(t, e, `? (X = left ; X = right).`, "X")
	assert.Equal(t, []string{"left", "right"}, got)
}

func Test_Engine_StreamAbandonment(t *testing.T) {
	e, _ := newTestEngine()
	runSrc(t, e, `n(1). n(2). n(3).`)

	prog, err := ParseProgram(`? n(X).`)
	require.NoError(t, err)

	count := 0
	err = e.Solve(context.Background(), prog.Decls[0].Query, nil, func(*Bindings) bool {
		count++
		return false // abandon after the first solution
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_Engine_Arithmetic(t *testing.T) {
	e, _ := newTestEngine()
	got := solutions(t, e, `? X is 2 + 3 * 4.`, "X")
	assert.Equal(t, []string{"14"}, got)

	got = solutions(t, e, `? X is (10 - 4) / 2.`, "X")
	assert.Equal(t, []string{"3"}, got)

	got = solutions(t, e, `? X is 7 mod 3.`, "X")
	assert.Equal(t, []string{"1"}, got)
}

func Test_Engine_Comparison(t *testing.T) {
	e, _ := newTestEngine()
	out := runSrc(t, e, `? 1 < 2, 2 <= 2, 3 > 2, 3 >= 3, 1 != 2.`)
	assert.Equal(t, "True\n", out)

	out = runSrc(t, e, `? 2 < 1.`)
	assert.Equal(t, "False\n", out)
}

func Test_Engine_DivisionByZero_IsResolutionError(t *testing.T) {
	e, _ := newTestEngine()
	prog, err := ParseProgram(`? X is 1 / 0.`)
	require.NoError(t, err)

	err = e.Solve(context.Background(), prog.Decls[0].Query, nil, func(*Bindings) bool { return true })
	require.Error(t, err)
	var re *ResolutionError
	assert.ErrorAs(t, err, &re)
}

func Test_Engine_GlobalResolution(t *testing.T) {
	e, _ := newTestEngine()
	out := runSrc(t, e, `
		threshold = 5.
		? X is threshold + 1.
	`)
	assert.Equal(t, "Bindings:\n  X = 6\nTrue\n", out)
}

func Test_Engine_MatchAgainstList_AnyElement(t *testing.T) {
	e, _ := newTestEngine()
	e.Judge = &fakeJudge{sims: map[[2]string]float64{
		{"dog", "canine"}: 0.95,
	}}
	out := runSrc(t, e, `? [cat, dog] =~= "canine".`)
	assert.Equal(t, "True\n", out)
}
