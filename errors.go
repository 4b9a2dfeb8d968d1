// errors.go — error taxonomy and caret-snippet rendering.
//
// Three error classes propagate out of the core:
//
//   - LexError        — invalid character / unterminated string; fatal to the
//     current program.
//   - ParseError      — unexpected token; fatal to the current program.
//   - ResolutionError — genuinely unrecoverable mid-proof conditions (bad
//     readln argument, bad meta-call target, arithmetic over non-numbers);
//     aborts the current query only.
//
// Unification failure and predicate failure are NOT errors; they are normal
// control flow that drives backtracking. Judge failures map to goal failure
// and never surface here.
//
// WrapErrorWithSource turns a positioned error into a readable multi-line
// snippet with a caret under the offending column:
//
//	PARSE ERROR at 3:12: unexpected token ')'
//
//	   2 | wise(E) :-
//	   3 |     E.description =~= )
//	     |                       ^
package semlog

import (
	"fmt"
	"strings"
)

// LexError reports an invalid character or unterminated literal.
// Col is 0-based; Line is 1-based.
type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("LEX ERROR at %d:%d: %s", e.Line, e.Col+1, e.Msg)
}

// ParseError reports an unexpected token. Col is 0-based; Line is 1-based.
// Incomplete marks premature EOF in interactive mode, so a REPL can read a
// continuation line instead of reporting the error.
type ParseError struct {
	Line       int
	Col        int
	Msg        string
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("PARSE ERROR at %d:%d: %s", e.Line, e.Col+1, e.Msg)
}

// ResolutionError aborts the current query. It carries no position: the
// failing condition is dynamic, not lexical.
type ResolutionError struct {
	Msg string
}

func (e *ResolutionError) Error() string {
	return "RESOLUTION ERROR: " + e.Msg
}

func resolutionErrf(format string, args ...interface{}) error {
	return &ResolutionError{Msg: fmt.Sprintf(format, args...)}
}

// WrapErrorWithSource returns an error augmented with a caret-annotated
// snippet of the provided source. Lex and parse errors are recognized by
// type; anything else is returned unchanged.
func WrapErrorWithSource(err error, src string) error {
	switch e := err.(type) {
	case *LexError:
		return fmt.Errorf("%s", snippet(src, "LEX ERROR", e.Line, e.Col+1, e.Msg))
	case *ParseError:
		return fmt.Errorf("%s", snippet(src, "PARSE ERROR", e.Line, e.Col+1, e.Msg))
	default:
		return err
	}
}

// snippet builds the multi-line caret rendering. Coordinates are 1-based and
// clamped to the source bounds so malformed positions never panic.
func snippet(src, header string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
