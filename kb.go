// kb.go — the indexed store of concepts, entities, clauses and globals.
//
// The knowledge base is written during the declaration pass and only read
// during resolution; there is no assert/retract. Concept and entity maps keep
// a parallel insertion-order slice so enumeration and serialization are
// deterministic.
package semlog

import (
	"fmt"
	"io"
	"strings"
)

// KnowledgeBase holds a program's declarations.
type KnowledgeBase struct {
	Concepts     map[string]*Concept
	ConceptOrder []string
	Entities     map[string]*Entity
	EntityOrder  []string
	Clauses      []*Clause
	Globals      map[string]Term
	GlobalOrder  []string
}

// NewKnowledgeBase returns an empty knowledge base.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		Concepts: map[string]*Concept{},
		Entities: map[string]*Entity{},
		Globals:  map[string]Term{},
	}
}

// AddConcept stores c; redeclaring a name replaces the previous concept but
// keeps its original position.
func (kb *KnowledgeBase) AddConcept(c *Concept) {
	if _, ok := kb.Concepts[c.Name]; !ok {
		kb.ConceptOrder = append(kb.ConceptOrder, c.Name)
	}
	kb.Concepts[c.Name] = c
}

// AddEntity stores e; same replacement rule as AddConcept.
func (kb *KnowledgeBase) AddEntity(e *Entity) {
	if _, ok := kb.Entities[e.Name]; !ok {
		kb.EntityOrder = append(kb.EntityOrder, e.Name)
	}
	kb.Entities[e.Name] = e
}

// AddClause appends cl; clause order is program order and determines
// rule-selection order during resolution.
func (kb *KnowledgeBase) AddClause(cl *Clause) {
	kb.Clauses = append(kb.Clauses, cl)
}

// SetGlobal stores a top-level assignment.
func (kb *KnowledgeBase) SetGlobal(name string, t Term) {
	if _, ok := kb.Globals[name]; !ok {
		kb.GlobalOrder = append(kb.GlobalOrder, name)
	}
	kb.Globals[name] = t
}

// Reset drops all stored declarations.
func (kb *KnowledgeBase) Reset() {
	*kb = *NewKnowledgeBase()
}

// Load populates the knowledge base from a program's declarations, skipping
// queries (those are executed by the driver, not stored).
func (kb *KnowledgeBase) Load(prog *Program) {
	for _, d := range prog.Decls {
		switch d.Tag {
		case DeclConcept:
			kb.AddConcept(d.Concept)
		case DeclEntity:
			kb.AddEntity(d.Entity)
		case DeclClause:
			kb.AddClause(d.Clause)
		case DeclGlobal:
			kb.SetGlobal(d.Name, d.Value)
		}
	}
}

// ---- serialization back to source syntax -------------------------------

// WriteSource renders the knowledge base as a semlog program that re-parses
// to an equivalent knowledge base. Declarations come out grouped: concepts,
// entities, globals, clauses, each in insertion order.
func (kb *KnowledgeBase) WriteSource(w io.Writer) error {
	for _, name := range kb.ConceptOrder {
		c := kb.Concepts[name]
		fmt.Fprintf(w, "concept %s", c.Name)
		if c.Genus != "" {
			fmt.Fprintf(w, ": %s", c.Genus)
		}
		if c.Description != "" {
			fmt.Fprintf(w, ",\n    description = %s", quote(c.Description))
		}
		if len(c.Attributes) > 0 {
			fmt.Fprintf(w, ",\n    attributes = %s", quoteList(c.Attributes))
		}
		if len(c.Essentials) > 0 {
			fmt.Fprintf(w, ",\n    essentials = %s", quoteList(c.Essentials))
		}
		fmt.Fprintf(w, ".\n\n")
	}

	for _, name := range kb.EntityOrder {
		e := kb.Entities[name]
		fmt.Fprintf(w, "entity %s: %s", e.Name, e.ConceptType)
		if e.Description != "" {
			fmt.Fprintf(w, ",\n    description = %s", quote(e.Description))
		}
		for _, k := range e.PropKeys {
			fmt.Fprintf(w, ",\n    %s = %s", k, quote(e.Properties[k]))
		}
		fmt.Fprintf(w, ".\n\n")
	}

	for _, name := range kb.GlobalOrder {
		fmt.Fprintf(w, "%s = %s.\n", name, FormatTerm(kb.Globals[name]))
	}
	if len(kb.GlobalOrder) > 0 {
		fmt.Fprintln(w)
	}

	for _, cl := range kb.Clauses {
		fmt.Fprintf(w, "%s.\n", FormatClause(cl))
	}
	return nil
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

func quoteList(xs []string) string {
	parts := make([]string, len(xs))
	for i, s := range xs {
		parts[i] = quote(s)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
