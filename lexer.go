// lexer.go — scans semlog source text into a token stream.
//
// The scanner is a simple byte-level machine over the source. It skips
// whitespace and line comments beginning with '#', and records the 1-based
// line and 0-based column of every token start for error reporting.
package semlog

import (
	"fmt"
	"strconv"
)

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota

	// Punctuation
	PERIOD    // "." statement terminator
	FIELDDOT  // "." in obj.field (no whitespace around, identifier on both sides)
	COMMA     // ","
	COLON     // ":"
	LPAREN    // "("
	RPAREN    // ")"
	LBRACKET  // "["
	RBRACKET  // "]"
	PIPE      // "|"
	SEMICOLON // ";"
	BANG      // "!"
	QUESTION  // "?"

	// Operators
	ASSIGN     // "="
	EQ         // "=="
	MATCH      // "=~="
	IMPLIES    // ":-"
	ARROW      // "->"
	PLUS       // "+"
	MINUS      // "-"
	STAR       // "*"
	SLASH      // "/"
	LESS       // "<"
	LESS_EQ    // "<="
	GREATER    // ">"
	GREATER_EQ // ">="
	NEQ        // "!="

	// Literals & identifiers
	IDENT
	STRING
	NUMBER

	// Keywords
	CONCEPT
	ENTITY
	DESCRIPTION
	ATTRIBUTES
	ESSENTIALS
	NOT
	IS
	MOD
)

// Token is a lexical token with an optional literal value.
type Token struct {
	Type    TokenType
	Lexeme  string      // raw text slice
	Literal interface{} // decoded string / parsed float for literals
	Line    int         // 1-based
	Col     int         // 0-based
}

var keywords = map[string]TokenType{
	"concept":     CONCEPT,
	"entity":      ENTITY,
	"description": DESCRIPTION,
	"attributes":  ATTRIBUTES,
	"essentials":  ESSENTIALS,
	"not":         NOT,
	"is":          IS,
	"mod":         MOD,
}

// Lexer scans a semlog source string into tokens.
type Lexer struct {
	src    string
	start  int // start index of current token
	cur    int // current index
	line   int // 1-based
	col    int // 0-based column within line
	tokens []Token

	whitespaceBefore bool

	tokStartLine int
	tokStartCol  int
}

// NewLexer creates a new lexer for the given source.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	return l.src[l.cur], true
}

func (l *Lexer) peekN(n int) (byte, bool) {
	idx := l.cur + n
	if idx >= len(l.src) {
		return 0, false
	}
	return l.src[idx], true
}

func (l *Lexer) advance() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch, true
}

func (l *Lexer) addToken(tt TokenType, lit interface{}) Token {
	tok := Token{
		Type:    tt,
		Lexeme:  l.src[l.start:l.cur],
		Literal: lit,
		Line:    l.tokStartLine,
		Col:     l.tokStartCol,
	}
	l.tokens = append(l.tokens, tok)
	l.start = l.cur
	l.whitespaceBefore = false
	return tok
}

// canEndFieldChain reports token types that may precede a field dot: plain
// identifiers, plus the keywords that double as field names (x.description,
// e.concept.attributes).
func canEndFieldChain(tt TokenType) bool {
	switch tt {
	case IDENT, DESCRIPTION, ATTRIBUTES, ESSENTIALS, CONCEPT, ENTITY:
		return true
	}
	return false
}

func (l *Lexer) previousToken() *Token {
	if len(l.tokens) == 0 {
		return nil
	}
	return &l.tokens[len(l.tokens)-1]
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.isAtEnd() {
		ch, _ := l.peek()
		switch ch {
		case ' ', '\r', '\n', '\t':
			l.whitespaceBefore = true
			l.advance()
		case '#':
			l.whitespaceBefore = true
			for {
				b, ok := l.peek()
				if !ok || b == '\n' {
					break
				}
				l.advance()
			}
		default:
			return
		}
		l.start = l.cur
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

func (l *Lexer) err(msg string) error {
	return &LexError{Line: l.line, Col: l.col, Msg: msg}
}

// scanString parses a double-quoted string with \n \t \" \\ escapes.
// The opening quote has already been consumed.
func (l *Lexer) scanString() (string, error) {
	var out []byte
	for !l.isAtEnd() {
		ch, _ := l.advance()
		if ch == '"' {
			return string(out), nil
		}
		if ch == '\\' {
			esc, ok := l.advance()
			if !ok {
				return "", l.err("unfinished escape sequence")
			}
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			default:
				return "", l.err(fmt.Sprintf("invalid escape sequence: \\%c", esc))
			}
			continue
		}
		if ch == '\n' {
			return "", l.err("string was not terminated")
		}
		out = append(out, ch)
	}
	return "", l.err("string was not terminated")
}

func (l *Lexer) scanIdentifier() string {
	for {
		b, ok := l.peek()
		if !ok || !isAlphaNum(b) {
			break
		}
		l.advance()
	}
	return l.src[l.start:l.cur]
}

// scanNumber parses digits with an optional fractional part. A bare '.'
// after the digits is left alone: it is the statement terminator.
func (l *Lexer) scanNumber(numStart int) (float64, error) {
	for {
		b, ok := l.peek()
		if !ok || !isDigit(b) {
			break
		}
		l.advance()
	}
	if b, ok := l.peek(); ok && b == '.' {
		if b2, ok2 := l.peekN(1); ok2 && isDigit(b2) {
			l.advance()
			for {
				b, ok := l.peek()
				if !ok || !isDigit(b) {
					break
				}
				l.advance()
			}
		}
	}
	v, convErr := strconv.ParseFloat(l.src[numStart:l.cur], 64)
	if convErr != nil {
		return 0, l.err("invalid number literal")
	}
	return v, nil
}

func (l *Lexer) scanToken() (Token, error) {
	l.skipWhitespaceAndComments()
	l.tokStartLine = l.line
	l.tokStartCol = l.col
	l.start = l.cur

	if l.isAtEnd() {
		return l.addToken(EOF, nil), nil
	}

	ch, _ := l.advance()

	switch ch {
	case '.':
		// "obj.field" only when the dot touches an identifier on both sides.
		prev := l.previousToken()
		if b, ok := l.peek(); ok && isAlpha(b) && !l.whitespaceBefore &&
			prev != nil && canEndFieldChain(prev.Type) {
			return l.addToken(FIELDDOT, nil), nil
		}
		return l.addToken(PERIOD, nil), nil
	case ',':
		return l.addToken(COMMA, nil), nil
	case '(':
		return l.addToken(LPAREN, nil), nil
	case ')':
		return l.addToken(RPAREN, nil), nil
	case '[':
		return l.addToken(LBRACKET, nil), nil
	case ']':
		return l.addToken(RBRACKET, nil), nil
	case '|':
		return l.addToken(PIPE, nil), nil
	case ';':
		return l.addToken(SEMICOLON, nil), nil
	case '?':
		return l.addToken(QUESTION, nil), nil
	case '+':
		return l.addToken(PLUS, nil), nil
	case '*':
		return l.addToken(STAR, nil), nil
	case '/':
		return l.addToken(SLASH, nil), nil
	case ':':
		if b, ok := l.peek(); ok && b == '-' {
			l.advance()
			return l.addToken(IMPLIES, nil), nil
		}
		return l.addToken(COLON, nil), nil
	case '-':
		if b, ok := l.peek(); ok && b == '>' {
			l.advance()
			return l.addToken(ARROW, nil), nil
		}
		if b, ok := l.peek(); ok && isDigit(b) {
			v, err := l.scanNumber(l.cur)
			if err != nil {
				return Token{}, err
			}
			return l.addToken(NUMBER, -v), nil
		}
		return l.addToken(MINUS, nil), nil
	case '=':
		if b, ok := l.peek(); ok && b == '=' {
			l.advance()
			return l.addToken(EQ, nil), nil
		}
		if b, ok := l.peek(); ok && b == '~' {
			if b2, ok2 := l.peekN(1); ok2 && b2 == '=' {
				l.advance()
				l.advance()
				return l.addToken(MATCH, nil), nil
			}
			return Token{}, l.err("expected '=~=' after '=~'")
		}
		return l.addToken(ASSIGN, nil), nil
	case '!':
		if b, ok := l.peek(); ok && b == '=' {
			l.advance()
			return l.addToken(NEQ, nil), nil
		}
		return l.addToken(BANG, nil), nil
	case '<':
		if b, ok := l.peek(); ok && b == '=' {
			l.advance()
			return l.addToken(LESS_EQ, nil), nil
		}
		return l.addToken(LESS, nil), nil
	case '>':
		if b, ok := l.peek(); ok && b == '=' {
			l.advance()
			return l.addToken(GREATER_EQ, nil), nil
		}
		return l.addToken(GREATER, nil), nil
	case '"':
		text, err := l.scanString()
		if err != nil {
			return Token{}, err
		}
		return l.addToken(STRING, text), nil
	}

	if isDigit(ch) {
		v, err := l.scanNumber(l.start)
		if err != nil {
			return Token{}, err
		}
		return l.addToken(NUMBER, v), nil
	}

	if isAlpha(ch) {
		lex := l.scanIdentifier()
		if tt, ok := keywords[lex]; ok {
			return l.addToken(tt, lex), nil
		}
		return l.addToken(IDENT, lex), nil
	}

	return Token{}, l.err(fmt.Sprintf("unexpected character: %q", ch))
}

// Scan tokenizes the entire source and returns tokens (EOF included).
func (l *Lexer) Scan() ([]Token, error) {
	for {
		tok, err := l.scanToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return l.tokens, nil
		}
	}
}
