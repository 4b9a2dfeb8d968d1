package semlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FormatTerm(t *testing.T) {
	cases := []struct {
		in   Term
		want string
	}{
		{Atom("socrates"), "socrates"},
		{Str("hi"), `"hi"`},
		{Num(3), "3"},
		{Num(3.5), "3.5"},
		{Num(-2), "-2"},
		{Var("X"), "X"},
		{ListOf(), "[]"},
		{ListOf(Num(1), Atom("a")), "[1, a]"},
		{ListWithTail([]Term{Num(1)}, Var("T")), "[1 | T]"},
		{Comp("f", Var("X"), Num(2)), "f(X, 2)"},
		{Comp("+", Num(1), Comp("*", Num(2), Num(3))), "1 + 2 * 3"},
		{Field(Var("E"), "description"), "E.description"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatTerm(c.in))
	}
}

func Test_FormatTermRaw_StringsBare(t *testing.T) {
	assert.Equal(t, "hi", FormatTermRaw(Str("hi")))
	assert.Equal(t, `[hi, 1]`, FormatTermRaw(ListOf(Str("hi"), Num(1))))
}

func Test_FormatGoal(t *testing.T) {
	assert.Equal(t, "p(X, 1)", FormatGoal(Call("p", Var("X"), Num(1))))
	assert.Equal(t, "!", FormatGoal(Goal{Tag: GoalCut}))
	assert.Equal(t, `X =~= "cat"`, FormatGoal(Goal{Tag: GoalMatch, Left: Var("X"), Right: Str("cat")}))
	assert.Equal(t, "not p(X)", FormatGoal(Goal{Tag: GoalNot, Body: []Goal{Call("p", Var("X"))}}))
	assert.Equal(t, "X is 1 + 2",
		FormatGoal(Goal{Tag: GoalIs, Left: Var("X"), Right: Comp("+", Num(1), Num(2))}))
}

func Test_FormatClause(t *testing.T) {
	cl := &Clause{
		Head: PredicateHead{Name: "mortal", Params: []Term{Var("X")}},
		Body: []Goal{Call("man", Var("X"))},
	}
	assert.Equal(t, "mortal(X) :- man(X)", FormatClause(cl))

	fact := &Clause{Head: PredicateHead{Name: "man", Params: []Term{Atom("socrates")}}}
	assert.Equal(t, "man(socrates)", FormatClause(fact))
}

// Clauses survive a print → parse → print cycle unchanged.
func Test_Printer_ReparseRoundTrip(t *testing.T) {
	sources := []string{
		`man(socrates)`,
		`mortal(X) :- man(X)`,
		`max(X, Y, X) :- X >= Y, !`,
		`grounded(B) :- bird(B), not flies(B)`,
		`sum(X) :- X is 1 + 2 * 3`,
		`wise(E) :- E.description =~= "thinker"`,
		`firstof([H | T], H)`,
	}
	for _, src := range sources {
		prog, err := ParseProgram(src + ".")
		require.NoError(t, err, src)
		require.Len(t, prog.Decls, 1)
		cl := prog.Decls[0].Clause

		printed := FormatClause(cl)
		assert.Equal(t, src, printed)

		again, err := ParseProgram(printed + ".")
		require.NoError(t, err, printed)
		assert.Equal(t, printed, FormatClause(again.Decls[0].Clause))
	}
}
