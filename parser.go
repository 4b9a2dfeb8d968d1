// parser.go — recursive-descent parser for semlog programs.
//
// GRAMMAR
// -------
// Statement dispatch is by first token:
//
//	concept NAME [: GENUS] {, description = STR | attributes = [..] | essentials = [..]} [.]
//	entity  NAME : CONCEPT {, description = STR | ident = STR} [.]
//	? GOALS [.]                  query
//	IDENT = TERM [.]             global assignment
//	HEAD [:- GOALS] [.]          clause (fact or rule)
//
// Goal expressions, lowest to highest precedence:
//
//	disjunction:   A ; B
//	if-then-else:  Cond -> Then [; Else]
//	conjunction:   A , B
//	atomic:        ! | not G | p(T, ...) | T op T   (op: = == =~= is < <= > >= !=)
//
// Terms carry infix arithmetic at two precedence levels (+ - over * / mod),
// built as compound terms and evaluated only by the arithmetic goals.
//
// IDENTIFIER CLASSIFICATION
// -------------------------
// An identifier is a variable when it starts with '_' or an uppercase letter,
// except ALL-CAPS identifiers with two or more capital letters and no
// lowercase letters, which are constants. So X, Xs, _tmp are variables;
// socrates, red, SOCRATES are atoms. "_" alone is the anonymous variable.
// The printer applies the same rule in reverse.
package semlog

// ParseProgram parses a complete semlog source string.
func ParseProgram(src string) (*Program, error) {
	return parse(src, false)
}

// ParseProgramInteractive parses in REPL-friendly mode: an unexpected EOF
// produces a ParseError with Incomplete set, so line editors can prompt for
// a continuation instead of reporting a hard error.
func ParseProgramInteractive(src string) (*Program, error) {
	return parse(src, true)
}

// IsIncomplete reports whether err is a ParseError caused by premature EOF
// in interactive mode.
func IsIncomplete(err error) bool {
	pe, ok := err.(*ParseError)
	return ok && pe.Incomplete
}

func parse(src string, interactive bool) (*Program, error) {
	lex := NewLexer(src)
	toks, err := lex.Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, interactive: interactive}
	return p.program()
}

type parser struct {
	toks        []Token
	i           int
	interactive bool
}

func (p *parser) atEnd() bool { return p.peek().Type == EOF }

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}

func (p *parser) peekNext() Token {
	if p.i+1 >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+1]
}

func (p *parser) prev() Token { return p.toks[p.i-1] }

func (p *parser) match(tt ...TokenType) bool {
	if p.atEnd() {
		return false
	}
	for _, t := range tt {
		if p.peek().Type == t {
			p.i++
			return true
		}
	}
	return false
}

func (p *parser) need(t TokenType, msg string) (Token, error) {
	if p.match(t) {
		return p.prev(), nil
	}
	return Token{}, p.errAt(p.peek(), msg)
}

func (p *parser) errAt(tok Token, msg string) error {
	return &ParseError{
		Line:       tok.Line,
		Col:        tok.Col,
		Msg:        msg,
		Incomplete: p.interactive && tok.Type == EOF,
	}
}

// ---- identifier classification ----------------------------------------

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
func isLower(b byte) bool { return b >= 'a' && b <= 'z' }

// isVariableName implements the classification documented in the file header.
func isVariableName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] == '_' {
		return true
	}
	if !isUpper(name[0]) {
		return false
	}
	uppers := 0
	for i := 0; i < len(name); i++ {
		if isLower(name[i]) {
			return true
		}
		if isUpper(name[i]) {
			uppers++
		}
	}
	// no lowercase letters at all: SHOUTY constants have >= 2 capitals
	return uppers < 2
}

func identTerm(name string) Term {
	if isVariableName(name) {
		return Var(name)
	}
	return Atom(name)
}

// ---- program -----------------------------------------------------------

func (p *parser) program() (*Program, error) {
	prog := &Program{}
	for !p.atEnd() {
		d, err := p.statement()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, d)
	}
	return prog, nil
}

func (p *parser) statement() (Decl, error) {
	switch p.peek().Type {
	case CONCEPT:
		p.i++
		return p.conceptDecl()
	case ENTITY:
		p.i++
		return p.entityDecl()
	case QUESTION:
		p.i++
		return p.queryDecl()
	case IDENT:
		if p.peekNext().Type == ASSIGN {
			return p.globalDecl()
		}
		return p.clauseDecl()
	default:
		return Decl{}, p.errAt(p.peek(), "expected a declaration, clause or query")
	}
}

func (p *parser) endStatement() {
	p.match(PERIOD) // terminator is optional
}

// ---- concept / entity --------------------------------------------------

func (p *parser) conceptDecl() (Decl, error) {
	nameTok, err := p.need(IDENT, "expected concept name")
	if err != nil {
		return Decl{}, err
	}
	c := &Concept{Name: nameTok.Lexeme}

	if p.match(COLON) {
		gTok, err := p.need(IDENT, "expected genus after ':'")
		if err != nil {
			return Decl{}, err
		}
		c.Genus = gTok.Lexeme
	}

	for p.match(COMMA) {
		switch {
		case p.match(DESCRIPTION):
			if _, err := p.need(ASSIGN, "expected '=' after description"); err != nil {
				return Decl{}, err
			}
			sTok, err := p.need(STRING, "expected string for description")
			if err != nil {
				return Decl{}, err
			}
			c.Description = sTok.Literal.(string)
		case p.match(ATTRIBUTES):
			xs, err := p.stringListProperty("attributes")
			if err != nil {
				return Decl{}, err
			}
			c.Attributes = xs
		case p.match(ESSENTIALS):
			xs, err := p.stringListProperty("essentials")
			if err != nil {
				return Decl{}, err
			}
			c.Essentials = xs
		default:
			return Decl{}, p.errAt(p.peek(), "expected concept property (description, attributes, essentials)")
		}
	}
	p.endStatement()
	return Decl{Tag: DeclConcept, Concept: c}, nil
}

// stringListProperty parses `= [ item, ... ]` where items are strings or
// bare identifiers (taken verbatim).
func (p *parser) stringListProperty(what string) ([]string, error) {
	if _, err := p.need(ASSIGN, "expected '=' after "+what); err != nil {
		return nil, err
	}
	if _, err := p.need(LBRACKET, "expected '[' to open "+what); err != nil {
		return nil, err
	}
	var out []string
	if p.match(RBRACKET) {
		return out, nil
	}
	for {
		switch {
		case p.match(STRING):
			out = append(out, p.prev().Literal.(string))
		case p.match(IDENT):
			out = append(out, p.prev().Lexeme)
		default:
			return nil, p.errAt(p.peek(), "expected string or identifier in "+what)
		}
		if p.match(RBRACKET) {
			return out, nil
		}
		if _, err := p.need(COMMA, "expected ',' or ']' in "+what); err != nil {
			return nil, err
		}
	}
}

func (p *parser) entityDecl() (Decl, error) {
	nameTok, err := p.need(IDENT, "expected entity name")
	if err != nil {
		return Decl{}, err
	}
	if _, err := p.need(COLON, "expected ':' after entity name"); err != nil {
		return Decl{}, err
	}
	cTok, err := p.need(IDENT, "expected concept name after ':'")
	if err != nil {
		return Decl{}, err
	}
	e := &Entity{
		Name:        nameTok.Lexeme,
		ConceptType: cTok.Lexeme,
		Properties:  map[string]string{},
	}

	for p.match(COMMA) {
		var key string
		switch {
		case p.match(DESCRIPTION):
			key = "description"
		case p.match(IDENT):
			key = p.prev().Lexeme
		default:
			return Decl{}, p.errAt(p.peek(), "expected entity property name")
		}
		if _, err := p.need(ASSIGN, "expected '=' after property name"); err != nil {
			return Decl{}, err
		}
		sTok, err := p.need(STRING, "expected string for entity property")
		if err != nil {
			return Decl{}, err
		}
		if key == "description" {
			e.Description = sTok.Literal.(string)
			continue
		}
		if _, dup := e.Properties[key]; !dup {
			e.PropKeys = append(e.PropKeys, key)
		}
		e.Properties[key] = sTok.Literal.(string)
	}
	p.endStatement()
	return Decl{Tag: DeclEntity, Entity: e}, nil
}

// ---- query / global / clause -------------------------------------------

func (p *parser) queryDecl() (Decl, error) {
	goals, err := p.goalExpr()
	if err != nil {
		return Decl{}, err
	}
	p.endStatement()
	return Decl{Tag: DeclQuery, Query: goals}, nil
}

func (p *parser) globalDecl() (Decl, error) {
	nameTok, _ := p.need(IDENT, "expected name")
	p.i++ // ASSIGN, guaranteed by the statement dispatch lookahead
	val, err := p.termExpr()
	if err != nil {
		return Decl{}, err
	}
	p.endStatement()
	return Decl{Tag: DeclGlobal, Name: nameTok.Lexeme, Value: val}, nil
}

func (p *parser) clauseDecl() (Decl, error) {
	head, err := p.predicateHead()
	if err != nil {
		return Decl{}, err
	}
	cl := &Clause{Head: head}
	if p.match(IMPLIES) {
		body, err := p.goalExpr()
		if err != nil {
			return Decl{}, err
		}
		cl.Body = body
	}
	p.endStatement()
	return Decl{Tag: DeclClause, Clause: cl}, nil
}

func (p *parser) predicateHead() (PredicateHead, error) {
	nameTok, err := p.need(IDENT, "expected predicate name")
	if err != nil {
		return PredicateHead{}, err
	}
	h := PredicateHead{Name: nameTok.Lexeme}
	if p.match(LPAREN) {
		if p.match(RPAREN) {
			return h, nil
		}
		for {
			t, err := p.termExpr()
			if err != nil {
				return PredicateHead{}, err
			}
			h.Params = append(h.Params, t)
			if p.match(RPAREN) {
				return h, nil
			}
			if _, err := p.need(COMMA, "expected ',' or ')' in parameter list"); err != nil {
				return PredicateHead{}, err
			}
		}
	}
	return h, nil
}

// ---- goal grammar ------------------------------------------------------

// goalExpr parses the disjunction level, including if-then-else:
//
//	Cond -> Then ; Else     commits to Cond's first solution
//	A ; B                   streams A then B
func (p *parser) goalExpr() ([]Goal, error) {
	left, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	if p.match(ARROW) {
		then, err := p.conjunction()
		if err != nil {
			return nil, err
		}
		ite := Goal{Tag: GoalITE, OrL: left, OrR: then}
		if p.match(SEMICOLON) {
			els, err := p.goalExpr()
			if err != nil {
				return nil, err
			}
			ite.Else = els
		}
		return []Goal{ite}, nil
	}
	if p.match(SEMICOLON) {
		right, err := p.goalExpr()
		if err != nil {
			return nil, err
		}
		return []Goal{{Tag: GoalOr, OrL: left, OrR: right}}, nil
	}
	return left, nil
}

func (p *parser) conjunction() ([]Goal, error) {
	goals, err := p.atomicGoal()
	if err != nil {
		return nil, err
	}
	for p.match(COMMA) {
		more, err := p.atomicGoal()
		if err != nil {
			return nil, err
		}
		goals = append(goals, more...)
	}
	return goals, nil
}

// atomicGoal returns a slice so that a parenthesized group can splice its
// conjunction into the surrounding one.
func (p *parser) atomicGoal() ([]Goal, error) {
	switch {
	case p.match(BANG):
		return []Goal{{Tag: GoalCut}}, nil

	case p.match(NOT):
		inner, err := p.atomicGoal()
		if err != nil {
			return nil, err
		}
		return []Goal{{Tag: GoalNot, Body: inner}}, nil

	case p.peek().Type == LPAREN:
		// A '(' in goal position opens a goal group; a single-goal group
		// splices through unchanged, so "(p(X))" still works.
		p.i++
		inner, err := p.goalExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RPAREN, "expected ')' to close goal group"); err != nil {
			return nil, err
		}
		return inner, nil
	}

	left, err := p.termExpr()
	if err != nil {
		return nil, err
	}

	switch {
	case p.match(ASSIGN):
		right, err := p.termExpr()
		if err != nil {
			return nil, err
		}
		return []Goal{{Tag: GoalUnify, Left: left, Right: right}}, nil
	case p.match(EQ):
		right, err := p.termExpr()
		if err != nil {
			return nil, err
		}
		return []Goal{{Tag: GoalStructEq, Left: left, Right: right}}, nil
	case p.match(MATCH):
		right, err := p.termExpr()
		if err != nil {
			return nil, err
		}
		return []Goal{{Tag: GoalMatch, Left: left, Right: right}}, nil
	case p.match(IS):
		right, err := p.termExpr()
		if err != nil {
			return nil, err
		}
		return []Goal{{Tag: GoalIs, Left: left, Right: right}}, nil
	case p.match(LESS, LESS_EQ, GREATER, GREATER_EQ, NEQ):
		op := p.prev().Lexeme
		right, err := p.termExpr()
		if err != nil {
			return nil, err
		}
		return []Goal{{Tag: GoalCompare, Name: op, Left: left, Right: right}}, nil
	}

	switch left.Tag {
	case TermComp:
		c := left.Data.(Compound)
		return []Goal{Call(c.Functor, c.Args...)}, nil
	case TermAtom:
		return []Goal{Call(left.Data.(string))}, nil
	default:
		return nil, p.errAt(p.peek(), "expected a goal")
	}
}

// ---- term grammar ------------------------------------------------------

// termExpr: additive precedence over multiplicative over primary.
func (p *parser) termExpr() (Term, error) {
	left, err := p.mulTerm()
	if err != nil {
		return Term{}, err
	}
	for {
		var op string
		switch {
		case p.match(PLUS):
			op = "+"
		case p.match(MINUS):
			op = "-"
		default:
			return left, nil
		}
		right, err := p.mulTerm()
		if err != nil {
			return Term{}, err
		}
		left = Comp(op, left, right)
	}
}

func (p *parser) mulTerm() (Term, error) {
	left, err := p.primaryTerm()
	if err != nil {
		return Term{}, err
	}
	for {
		var op string
		switch {
		case p.match(STAR):
			op = "*"
		case p.match(SLASH):
			op = "/"
		case p.match(MOD):
			op = "mod"
		default:
			return left, nil
		}
		right, err := p.primaryTerm()
		if err != nil {
			return Term{}, err
		}
		left = Comp(op, left, right)
	}
}

func (p *parser) primaryTerm() (Term, error) {
	switch {
	case p.match(STRING):
		return Str(p.prev().Literal.(string)), nil

	case p.match(NUMBER):
		return Num(p.prev().Literal.(float64)), nil

	case p.match(LBRACKET):
		return p.listTerm()

	case p.match(LPAREN):
		t, err := p.termExpr()
		if err != nil {
			return Term{}, err
		}
		if _, err := p.need(RPAREN, "expected ')'"); err != nil {
			return Term{}, err
		}
		return t, nil

	case p.match(IDENT):
		name := p.prev().Lexeme
		if p.match(LPAREN) {
			return p.compoundTerm(name)
		}
		t := identTerm(name)
		for p.match(FIELDDOT) {
			fTok, err := p.fieldName()
			if err != nil {
				return Term{}, err
			}
			t = Field(t, fTok)
		}
		return t, nil
	}
	return Term{}, p.errAt(p.peek(), "expected a term")
}

func (p *parser) fieldName() (string, error) {
	switch {
	case p.match(IDENT), p.match(DESCRIPTION), p.match(ATTRIBUTES),
		p.match(ESSENTIALS), p.match(CONCEPT), p.match(ENTITY):
		return p.prev().Lexeme, nil
	}
	return "", p.errAt(p.peek(), "expected field name after '.'")
}

func (p *parser) compoundTerm(functor string) (Term, error) {
	if p.match(RPAREN) {
		return Comp(functor), nil
	}
	var args []Term
	for {
		t, err := p.termExpr()
		if err != nil {
			return Term{}, err
		}
		args = append(args, t)
		if p.match(RPAREN) {
			return Comp(functor, args...), nil
		}
		if _, err := p.need(COMMA, "expected ',' or ')' in argument list"); err != nil {
			return Term{}, err
		}
	}
}

func (p *parser) listTerm() (Term, error) {
	if p.match(RBRACKET) {
		return ListOf(), nil
	}
	var items []Term
	for {
		t, err := p.termExpr()
		if err != nil {
			return Term{}, err
		}
		items = append(items, t)
		if p.match(RBRACKET) {
			return ListOf(items...), nil
		}
		if p.match(PIPE) {
			tail, err := p.termExpr()
			if err != nil {
				return Term{}, err
			}
			if _, err := p.need(RBRACKET, "expected ']' after list tail"); err != nil {
				return Term{}, err
			}
			return ListWithTail(items, tail), nil
		}
		if _, err := p.need(COMMA, "expected ',', '|' or ']' in list"); err != nil {
			return Term{}, err
		}
	}
}
