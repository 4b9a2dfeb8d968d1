// term.go — the semlog term, goal and declaration model.
//
// OVERVIEW
// --------
// Everything the parser produces and the engine manipulates is defined here:
//
//   - Term      — tagged variant: variable, atom, string, number, list,
//     compound, field access. Terms are value types and freely shareable;
//     the engine never mutates a Term in place.
//   - Goal      — tagged variant: predicate call, semantic match, equality,
//     arithmetic goals, negation, disjunction, if-then-else, cut.
//   - Clause    — Horn clause (head + conjunction body; facts have nil body).
//   - Concept   — declared abstract category with descriptive fields.
//   - Entity    — declared concrete instance of a concept.
//   - Program   — ordered sequence of declarations.
//
// Variable identity is by name within one clause-instantiation scope; the
// engine renames every clause variable with a fresh suffix on each invocation
// (see engine.go), so two invocations never share a variable.
package semlog

// TermTag discriminates the active case of a Term.
type TermTag int

const (
	TermVar   TermTag = iota // Data: Variable
	TermAtom                 // Data: string (symbol)
	TermStr                  // Data: string (literal text)
	TermNum                  // Data: float64
	TermList                 // Data: ListCell
	TermComp                 // Data: Compound
	TermField                // Data: FieldAccess
)

// Term is the universal carrier for logic terms.
//
// Invariants:
//   - Tag determines the dynamic type of Data (see TermTag).
//   - Terms are immutable after construction.
type Term struct {
	Tag  TermTag
	Data interface{}
}

// Variable is the payload of a TermVar term. Anonymous variables ("_") are
// distinct from all others and are never bound.
type Variable struct {
	Name      string
	Anonymous bool
}

// ListCell is the payload of a TermList term. A proper list has Tail == nil;
// an improper list carries a tail term (variable or another list).
type ListCell struct {
	Items []Term
	Tail  *Term
}

// Compound is the payload of a TermComp term.
type Compound struct {
	Functor string
	Args    []Term
}

// FieldAccess is the payload of a TermField term: a deferred lookup of
// Object's Field in the knowledge base, resolved at dereference time.
// Object is a variable or an atom; variables are dereferenced first.
type FieldAccess struct {
	Object Term
	Field  string
}

// ---- constructors ------------------------------------------------------

// Atom returns a symbolic constant term.
func Atom(name string) Term { return Term{Tag: TermAtom, Data: name} }

// Str returns a string literal term.
func Str(text string) Term { return Term{Tag: TermStr, Data: text} }

// Num returns a numeric term.
func Num(v float64) Term { return Term{Tag: TermNum, Data: v} }

// Var returns a variable term. The name "_" yields the anonymous variable.
func Var(name string) Term {
	return Term{Tag: TermVar, Data: Variable{Name: name, Anonymous: name == "_"}}
}

// ListOf returns a proper list of the given items.
func ListOf(items ...Term) Term {
	return Term{Tag: TermList, Data: ListCell{Items: items}}
}

// ListWithTail returns a list with explicit head items and a tail term.
func ListWithTail(items []Term, tail Term) Term {
	return Term{Tag: TermList, Data: ListCell{Items: items, Tail: &tail}}
}

// Comp returns a compound term functor(args...).
func Comp(functor string, args ...Term) Term {
	return Term{Tag: TermComp, Data: Compound{Functor: functor, Args: args}}
}

// Field returns a field-access term object.field.
func Field(object Term, field string) Term {
	return Term{Tag: TermField, Data: FieldAccess{Object: object, Field: field}}
}

// IsAnon reports whether t is the anonymous variable.
func (t Term) IsAnon() bool {
	return t.Tag == TermVar && t.Data.(Variable).Anonymous
}

// ---- goals -------------------------------------------------------------

// GoalTag discriminates the active case of a Goal.
type GoalTag int

const (
	GoalCall     GoalTag = iota // Name, Args
	GoalMatch                   // Left =~= Right
	GoalUnify                   // Left = Right
	GoalStructEq                // Left == Right
	GoalIs                      // Left is Right (arithmetic)
	GoalCompare                 // Left Op Right, Op in < <= > >= !=
	GoalNot                     // Body
	GoalOr                      // OrL ; OrR
	GoalITE                     // OrL -> OrR ; Else
	GoalCut                     // !
)

// Goal is one element of a clause body or query. Goals form ordered
// conjunctions ([]Goal); disjunction and if-then-else nest conjunctions.
type Goal struct {
	Tag  GoalTag
	Name string // GoalCall functor; GoalCompare operator
	Args []Term // GoalCall arguments

	Left  Term // binary goals
	Right Term

	Body []Goal // GoalNot
	OrL  []Goal // GoalOr left / GoalITE condition
	OrR  []Goal // GoalOr right / GoalITE then
	Else []Goal // GoalITE else (nil when absent)
}

// Call builds a predicate-call goal.
func Call(name string, args ...Term) Goal {
	return Goal{Tag: GoalCall, Name: name, Args: args}
}

// ---- declarations ------------------------------------------------------

// PredicateHead is the head of a clause.
type PredicateHead struct {
	Name   string
	Params []Term
}

// Clause is a Horn clause. Facts have an empty body.
type Clause struct {
	Head PredicateHead
	Body []Goal
}

// Concept is a declared abstract category.
type Concept struct {
	Name        string
	Genus       string // empty when absent
	Description string
	Attributes  []string
	Essentials  []string
}

// Entity is a declared instance of a concept. PropKeys preserves the
// declaration's key order for deterministic enumeration.
type Entity struct {
	Name        string
	ConceptType string
	Description string
	Properties  map[string]string
	PropKeys    []string
}

// DeclTag discriminates top-level declarations.
type DeclTag int

const (
	DeclConcept DeclTag = iota
	DeclEntity
	DeclClause
	DeclQuery
	DeclGlobal
)

// Decl is one top-level statement of a program.
type Decl struct {
	Tag     DeclTag
	Concept *Concept
	Entity  *Entity
	Clause  *Clause
	Query   []Goal // DeclQuery: the goal conjunction
	Name    string // DeclGlobal: binding name
	Value   Term   // DeclGlobal: bound term
}

// Program is an ordered sequence of declarations.
type Program struct {
	Decls []Decl
}
