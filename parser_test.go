package semlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) Decl {
	t.Helper()
	prog, err := ParseProgram(src)
	require.NoError(t, err)
	require.Len(t, prog.Decls, 1)
	return prog.Decls[0]
}

func Test_Parser_VariableClassification(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"X", true},
		{"Xs", true},
		{"Count", true},
		{"_", true},
		{"_tmp", true},
		{"socrates", false},
		{"red", false},
		{"SOCRATES", false}, // shouty constant
		{"AB", false},
		{"A", true}, // single capital is a variable
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isVariableName(c.name), c.name)
	}
}

func Test_Parser_ConceptDecl(t *testing.T) {
	d := parseOne(t, `
		concept Man: Animal,
		    description = "a rational animal",
		    attributes = ["mortal", "talks"],
		    essentials = [rationality].
	`)
	require.Equal(t, DeclConcept, d.Tag)
	c := d.Concept
	assert.Equal(t, "Man", c.Name)
	assert.Equal(t, "Animal", c.Genus)
	assert.Equal(t, "a rational animal", c.Description)
	assert.Equal(t, []string{"mortal", "talks"}, c.Attributes)
	assert.Equal(t, []string{"rationality"}, c.Essentials)
}

func Test_Parser_ConceptDecl_Minimal(t *testing.T) {
	d := parseOne(t, `concept Thing.`)
	require.Equal(t, DeclConcept, d.Tag)
	assert.Equal(t, "Thing", d.Concept.Name)
	assert.Empty(t, d.Concept.Genus)
}

func Test_Parser_EntityDecl(t *testing.T) {
	d := parseOne(t, `
		entity SOCRATES: Man,
		    description = "philosopher",
		    born = "470 BC",
		    city = "Athens".
	`)
	require.Equal(t, DeclEntity, d.Tag)
	e := d.Entity
	assert.Equal(t, "SOCRATES", e.Name)
	assert.Equal(t, "Man", e.ConceptType)
	assert.Equal(t, "philosopher", e.Description)
	assert.Equal(t, []string{"born", "city"}, e.PropKeys)
	assert.Equal(t, "470 BC", e.Properties["born"])
}

func Test_Parser_EntityDecl_RequiresConcept(t *testing.T) {
	_, err := ParseProgram(`entity SOCRATES.`)
	require.Error(t, err)
}

func Test_Parser_Fact(t *testing.T) {
	d := parseOne(t, `man(socrates).`)
	require.Equal(t, DeclClause, d.Tag)
	cl := d.Clause
	assert.Equal(t, "man", cl.Head.Name)
	require.Len(t, cl.Head.Params, 1)
	assert.Equal(t, Atom("socrates"), cl.Head.Params[0])
	assert.Empty(t, cl.Body)
}

func Test_Parser_Rule(t *testing.T) {
	d := parseOne(t, `mortal(X) :- man(X), not god(X).`)
	require.Equal(t, DeclClause, d.Tag)
	cl := d.Clause
	assert.Equal(t, "mortal", cl.Head.Name)
	require.Len(t, cl.Body, 2)
	assert.Equal(t, GoalCall, cl.Body[0].Tag)
	assert.Equal(t, GoalNot, cl.Body[1].Tag)
}

func Test_Parser_Query(t *testing.T) {
	d := parseOne(t, `? mortal(X), X = socrates.`)
	require.Equal(t, DeclQuery, d.Tag)
	require.Len(t, d.Query, 2)
	assert.Equal(t, GoalCall, d.Query[0].Tag)
	assert.Equal(t, GoalUnify, d.Query[1].Tag)
}

func Test_Parser_Global(t *testing.T) {
	d := parseOne(t, `limit = 10.`)
	require.Equal(t, DeclGlobal, d.Tag)
	assert.Equal(t, "limit", d.Name)
	assert.Equal(t, Num(10), d.Value)
}

func Test_Parser_GoalOperators(t *testing.T) {
	d := parseOne(t, `? X = a, X == a, X =~= "b", Y is 1 + 2, Y < 5.`)
	require.Len(t, d.Query, 5)
	assert.Equal(t, GoalUnify, d.Query[0].Tag)
	assert.Equal(t, GoalStructEq, d.Query[1].Tag)
	assert.Equal(t, GoalMatch, d.Query[2].Tag)
	assert.Equal(t, GoalIs, d.Query[3].Tag)
	assert.Equal(t, GoalCompare, d.Query[4].Tag)
	assert.Equal(t, "<", d.Query[4].Name)
}

func Test_Parser_ArithmeticPrecedence(t *testing.T) {
	d := parseOne(t, `? X is 2 + 3 * 4.`)
	// + at the top, * nested under its right operand
	rhs := d.Query[0].Right
	require.Equal(t, TermComp, rhs.Tag)
	add := rhs.Data.(Compound)
	assert.Equal(t, "+", add.Functor)
	assert.Equal(t, Num(2), add.Args[0])
	mul := add.Args[1].Data.(Compound)
	assert.Equal(t, "*", mul.Functor)
}

func Test_Parser_IfThenElse(t *testing.T) {
	d := parseOne(t, `? p(X) -> q(X) ; r(X).`)
	require.Len(t, d.Query, 1)
	ite := d.Query[0]
	assert.Equal(t, GoalITE, ite.Tag)
	require.Len(t, ite.OrL, 1)
	require.Len(t, ite.OrR, 1)
	require.Len(t, ite.Else, 1)
}

func Test_Parser_Disjunction(t *testing.T) {
	d := parseOne(t, `? p(X) ; q(X).`)
	require.Len(t, d.Query, 1)
	assert.Equal(t, GoalOr, d.Query[0].Tag)
}

func Test_Parser_CutAndGroup(t *testing.T) {
	d := parseOne(t, `? p(X), !, (q(X), r(X)).`)
	// the group splices into the surrounding conjunction
	require.Len(t, d.Query, 4)
	assert.Equal(t, GoalCut, d.Query[1].Tag)
	assert.Equal(t, GoalCall, d.Query[2].Tag)
	assert.Equal(t, GoalCall, d.Query[3].Tag)
}

func Test_Parser_ListTerms(t *testing.T) {
	d := parseOne(t, `? X = [1, two, "three" | T].`)
	right := d.Query[0].Right
	require.Equal(t, TermList, right.Tag)
	cell := right.Data.(ListCell)
	require.Len(t, cell.Items, 3)
	assert.Equal(t, Num(1), cell.Items[0])
	assert.Equal(t, Atom("two"), cell.Items[1])
	assert.Equal(t, Str("three"), cell.Items[2])
	require.NotNil(t, cell.Tail)
	assert.Equal(t, Var("T"), *cell.Tail)
}

func Test_Parser_FieldAccessChain(t *testing.T) {
	d := parseOne(t, `? E.concept.description =~= "x".`)
	left := d.Query[0].Left
	require.Equal(t, TermField, left.Tag)
	outer := left.Data.(FieldAccess)
	assert.Equal(t, "description", outer.Field)
	inner := outer.Object.Data.(FieldAccess)
	assert.Equal(t, "concept", inner.Field)
	assert.Equal(t, Var("E"), inner.Object)
}

func Test_Parser_BareGoalAtom(t *testing.T) {
	d := parseOne(t, `? halt_check.`)
	require.Len(t, d.Query, 1)
	assert.Equal(t, "halt_check", d.Query[0].Name)
	assert.Empty(t, d.Query[0].Args)
}

func Test_Parser_Errors(t *testing.T) {
	_, err := ParseProgram(`? X = .`)
	require.Error(t, err)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)

	_, err = ParseProgram(`concept .`)
	assert.Error(t, err)

	_, err = ParseProgram(`? 42.`)
	assert.Error(t, err) // a number is not a goal
}

func Test_Parser_Interactive_Incomplete(t *testing.T) {
	_, err := ParseProgramInteractive(`mortal(X) :-`)
	require.Error(t, err)
	assert.True(t, IsIncomplete(err))

	// same text in batch mode is a plain parse error
	_, err = ParseProgram(`mortal(X) :-`)
	require.Error(t, err)
	assert.False(t, IsIncomplete(err))

	// a genuinely wrong token is not incomplete even interactively
	_, err = ParseProgramInteractive(`? X = ] `)
	require.Error(t, err)
	assert.False(t, IsIncomplete(err))
}
