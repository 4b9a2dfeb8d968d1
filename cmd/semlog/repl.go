package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/semlog-lang/semlog"
)

const (
	historyFile = ".semlog_history"
	promptMain  = "?- "
	promptCont  = "|  "
	banner      = "semlog REPL — Ctrl+C to cancel input, Ctrl+D to exit. Type :help for commands."
	helpText    = `
REPL commands:
  :help            Show this help
  :quit / :exit    Exit the REPL
  :load <file>     Load & execute a file into the current session
  :kb              Print the knowledge base as source
  :kb_save <file>  Write the knowledge base to a file
  :kb_load <file>  Replace the knowledge base from a file
  :clear           Drop all declarations
`
)

func runREPL(eng *semlog.Engine) error {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	ctx := context.Background()
	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		if strings.HasPrefix(strings.TrimSpace(code), ":") {
			if done := handleReplCommand(eng, ln, code); done {
				break
			}
			continue
		}

		if strings.TrimSpace(code) == "" {
			continue
		}

		if err := eng.RunSource(ctx, code); err != nil {
			fmt.Println(err)
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return nil
}

func handleReplCommand(eng *semlog.Engine, ln *liner.State, line string) (exit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch strings.ToLower(fields[0]) {
	case ":help":
		fmt.Print(helpText)

	case ":quit", ":exit":
		return true

	case ":clear":
		eng.KB.Reset()
		fmt.Println("knowledge base cleared.")

	case ":kb":
		_ = eng.KB.WriteSource(os.Stdout)

	case ":kb_save":
		if len(fields) < 2 {
			fmt.Println("usage: :kb_save <file>")
			return false
		}
		f, err := os.Create(fields[1])
		if err != nil {
			fmt.Printf("cannot write %s: %v\n", fields[1], err)
			return false
		}
		if err := eng.KB.WriteSource(f); err != nil {
			fmt.Println(err)
		}
		_ = f.Close()

	case ":kb_load":
		if len(fields) < 2 {
			fmt.Println("usage: :kb_load <file>")
			return false
		}
		src, err := os.ReadFile(fields[1])
		if err != nil {
			fmt.Printf("cannot read %s: %v\n", fields[1], err)
			return false
		}
		eng.KB.Reset()
		if err := eng.RunSource(context.Background(), string(src)); err != nil {
			fmt.Println(err)
		}
		ln.AppendHistory(fmt.Sprintf(":kb_load %s", fields[1]))

	case ":load":
		if len(fields) < 2 {
			fmt.Println("usage: :load <file>")
			return false
		}
		src, err := os.ReadFile(fields[1])
		if err != nil {
			fmt.Printf("cannot read %s: %v\n", fields[1], err)
			return false
		}
		if err := eng.RunSource(context.Background(), string(src)); err != nil {
			fmt.Println(err)
		}
		ln.AppendHistory(fmt.Sprintf(":load %s", fields[1]))

	default:
		fmt.Printf("unknown command. Type :help for help.\n")
	}
	return false
}

// readByParseProbe accumulates lines until the parser accepts the buffer as a
// complete program or reports an error that more input cannot fix.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C aborts the current input; let the user start again.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		_, perr := semlog.ParseProgramInteractive(src)
		if perr == nil {
			return src, true
		}
		if semlog.IsIncomplete(perr) {
			continue
		}
		// real error: return the buffer so the caller can print it
		return src, true
	}
}
