// bindings.go — substitutions, dereference and unification.
//
// A Bindings value is a persistent, parent-linked extension chain: extending
// a substitution allocates one node and shares the rest, so disjoint proof
// branches never observe each other's bindings and abandoning a branch frees
// its extensions without any trail unwinding.
//
// Dereference (walk) is knowledge-base aware: besides following variable
// chains it resolves FieldAccess terms against declared concepts/entities and
// resolves atoms bound by top-level global assignments. FieldAccess terms are
// therefore never observed by unification; only their resolved values are.
package semlog

// Bindings maps variable names to terms. The zero value (nil) is the empty
// substitution.
type Bindings struct {
	parent *Bindings
	name   string
	term   Term
}

// Extend returns a new substitution with name bound to t, sharing structure
// with b. It does not perform the occurs-check; use Unify for sound binding.
func (b *Bindings) Extend(name string, t Term) *Bindings {
	return &Bindings{parent: b, name: name, term: t}
}

// Lookup returns the binding for name, if any.
func (b *Bindings) Lookup(name string) (Term, bool) {
	for cur := b; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.term, true
		}
	}
	return Term{}, false
}

// ---- dereference -------------------------------------------------------

// Walk dereferences t one level deep: variable chains are followed to an
// unbound variable or a non-variable term, FieldAccess terms are resolved
// against the knowledge base, and atoms naming globals resolve to their
// bound term. Sub-terms are not walked; see Resolve.
func (kb *KnowledgeBase) Walk(t Term, b *Bindings) Term {
	var seenGlobals map[string]bool
	for {
		switch t.Tag {
		case TermVar:
			v := t.Data.(Variable)
			if v.Anonymous {
				return t
			}
			bound, ok := b.Lookup(v.Name)
			if !ok {
				return t
			}
			t = bound

		case TermAtom:
			name := t.Data.(string)
			g, ok := kb.Globals[name]
			if !ok || seenGlobals[name] {
				return t
			}
			if seenGlobals == nil {
				seenGlobals = map[string]bool{}
			}
			seenGlobals[name] = true
			t = g

		case TermField:
			r, ok := kb.resolveField(t.Data.(FieldAccess), b)
			if !ok {
				return t
			}
			t = r

		default:
			return t
		}
	}
}

// resolveField looks up object.field per the declaration tables. Strings
// become String terms, arrays proper lists of strings, symbols atoms. An
// object that names neither a concept nor an entity, or an unknown field,
// leaves the access unresolved.
func (kb *KnowledgeBase) resolveField(fa FieldAccess, b *Bindings) (Term, bool) {
	obj := kb.Walk(fa.Object, b)
	if obj.Tag != TermAtom {
		return Term{}, false
	}
	name := obj.Data.(string)

	if c, ok := kb.Concepts[name]; ok {
		return conceptField(c, fa.Field)
	}
	if e, ok := kb.Entities[name]; ok {
		switch fa.Field {
		case "description":
			return Str(e.Description), true
		case "concept", "conceptType":
			return Atom(e.ConceptType), true
		case "attributes", "essentials", "genus":
			// fall through to the entity's concept
			if c, ok := kb.Concepts[e.ConceptType]; ok {
				return conceptField(c, fa.Field)
			}
			return Term{}, false
		default:
			if v, ok := e.Properties[fa.Field]; ok {
				return Str(v), true
			}
			return Term{}, false
		}
	}
	return Term{}, false
}

func conceptField(c *Concept, field string) (Term, bool) {
	switch field {
	case "description":
		return Str(c.Description), true
	case "genus":
		return Atom(c.Genus), true
	case "attributes":
		return strsToList(c.Attributes), true
	case "essentials":
		return strsToList(c.Essentials), true
	}
	return Term{}, false
}

func strsToList(xs []string) Term {
	items := make([]Term, len(xs))
	for i, s := range xs {
		items[i] = Str(s)
	}
	return ListOf(items...)
}

// Resolve walks t and all of its sub-terms, yielding the fully dereferenced
// form. Lists whose resolved tail is a proper list are flattened.
func (kb *KnowledgeBase) Resolve(t Term, b *Bindings) Term {
	t = kb.Walk(t, b)
	switch t.Tag {
	case TermComp:
		c := t.Data.(Compound)
		args := make([]Term, len(c.Args))
		for i, a := range c.Args {
			args[i] = kb.Resolve(a, b)
		}
		return Comp(c.Functor, args...)

	case TermList:
		cell := t.Data.(ListCell)
		items := make([]Term, len(cell.Items))
		for i, it := range cell.Items {
			items[i] = kb.Resolve(it, b)
		}
		if cell.Tail == nil {
			return ListOf(items...)
		}
		tail := kb.Resolve(*cell.Tail, b)
		if tail.Tag == TermList {
			tc := tail.Data.(ListCell)
			if tc.Tail == nil {
				return ListOf(append(items, tc.Items...)...)
			}
			return ListWithTail(append(items, tc.Items...), *tc.Tail)
		}
		return ListWithTail(items, tail)

	case TermField:
		fa := t.Data.(FieldAccess)
		return Field(kb.Resolve(fa.Object, b), fa.Field)
	}
	return t
}

// ---- occurs check ------------------------------------------------------

func (kb *KnowledgeBase) occurs(name string, t Term, b *Bindings) bool {
	t = kb.Walk(t, b)
	switch t.Tag {
	case TermVar:
		v := t.Data.(Variable)
		return !v.Anonymous && v.Name == name
	case TermComp:
		for _, a := range t.Data.(Compound).Args {
			if kb.occurs(name, a, b) {
				return true
			}
		}
	case TermList:
		cell := t.Data.(ListCell)
		for _, it := range cell.Items {
			if kb.occurs(name, it, b) {
				return true
			}
		}
		if cell.Tail != nil {
			return kb.occurs(name, *cell.Tail, b)
		}
	case TermField:
		return kb.occurs(name, t.Data.(FieldAccess).Object, b)
	}
	return false
}

// ---- unification -------------------------------------------------------

// Unify extends s to make a and b structurally equal, or reports failure.
// It is pure: the input substitution is never modified.
func (kb *KnowledgeBase) Unify(a, b Term, s *Bindings) (*Bindings, bool) {
	a = kb.Walk(a, s)
	b = kb.Walk(b, s)

	if a.IsAnon() || b.IsAnon() {
		return s, true
	}
	if a.Tag == TermVar {
		return kb.bindVar(a.Data.(Variable).Name, b, s)
	}
	if b.Tag == TermVar {
		return kb.bindVar(b.Data.(Variable).Name, a, s)
	}
	if a.Tag != b.Tag {
		return nil, false
	}

	switch a.Tag {
	case TermAtom, TermStr:
		if a.Data.(string) == b.Data.(string) {
			return s, true
		}
	case TermNum:
		if a.Data.(float64) == b.Data.(float64) {
			return s, true
		}
	case TermComp:
		ca, cb := a.Data.(Compound), b.Data.(Compound)
		if ca.Functor != cb.Functor || len(ca.Args) != len(cb.Args) {
			return nil, false
		}
		out := s
		for i := range ca.Args {
			var ok bool
			out, ok = kb.Unify(ca.Args[i], cb.Args[i], out)
			if !ok {
				return nil, false
			}
		}
		return out, true
	case TermList:
		return kb.unifyLists(a.Data.(ListCell), b.Data.(ListCell), s)
	}
	return nil, false
}

func (kb *KnowledgeBase) bindVar(name string, t Term, s *Bindings) (*Bindings, bool) {
	if t.Tag == TermVar && !t.IsAnon() && t.Data.(Variable).Name == name {
		return s, true // already the same variable
	}
	if kb.occurs(name, t, s) {
		return nil, false
	}
	return s.Extend(name, t), true
}

func (kb *KnowledgeBase) unifyLists(x, y ListCell, s *Bindings) (*Bindings, bool) {
	if len(x.Items) == 0 && len(y.Items) == 0 {
		return kb.Unify(tailOrEmpty(x), tailOrEmpty(y), s)
	}
	if len(x.Items) == 0 {
		if x.Tail == nil {
			return nil, false // empty list vs non-empty
		}
		return kb.Unify(*x.Tail, Term{Tag: TermList, Data: y}, s)
	}
	if len(y.Items) == 0 {
		if y.Tail == nil {
			return nil, false
		}
		return kb.Unify(Term{Tag: TermList, Data: x}, *y.Tail, s)
	}
	out, ok := kb.Unify(x.Items[0], y.Items[0], s)
	if !ok {
		return nil, false
	}
	return kb.unifyLists(ListCell{Items: x.Items[1:], Tail: x.Tail},
		ListCell{Items: y.Items[1:], Tail: y.Tail}, out)
}

func tailOrEmpty(c ListCell) Term {
	if c.Tail != nil {
		return *c.Tail
	}
	return ListOf()
}

// ---- structural equality ----------------------------------------------

// StructEqual reports structural identity of the fully resolved terms.
func (kb *KnowledgeBase) StructEqual(a, b Term, s *Bindings) bool {
	return termEqual(kb.Resolve(a, s), kb.Resolve(b, s))
}

func termEqual(a, b Term) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TermVar:
		va, vb := a.Data.(Variable), b.Data.(Variable)
		return !va.Anonymous && !vb.Anonymous && va.Name == vb.Name
	case TermAtom, TermStr:
		return a.Data.(string) == b.Data.(string)
	case TermNum:
		return a.Data.(float64) == b.Data.(float64)
	case TermComp:
		ca, cb := a.Data.(Compound), b.Data.(Compound)
		if ca.Functor != cb.Functor || len(ca.Args) != len(cb.Args) {
			return false
		}
		for i := range ca.Args {
			if !termEqual(ca.Args[i], cb.Args[i]) {
				return false
			}
		}
		return true
	case TermList:
		la, lb := a.Data.(ListCell), b.Data.(ListCell)
		if len(la.Items) != len(lb.Items) {
			return false
		}
		for i := range la.Items {
			if !termEqual(la.Items[i], lb.Items[i]) {
				return false
			}
		}
		if (la.Tail == nil) != (lb.Tail == nil) {
			return false
		}
		if la.Tail != nil {
			return termEqual(*la.Tail, *lb.Tail)
		}
		return true
	case TermField:
		fa, fb := a.Data.(FieldAccess), b.Data.(FieldAccess)
		return fa.Field == fb.Field && termEqual(fa.Object, fb.Object)
	}
	return false
}
