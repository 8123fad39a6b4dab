package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/dmitriwamback/cs-dge-library-system/internal/fs"
)

// HistoryFile is the shell history file inside the data directory.
const HistoryFile = ".history"

const historyPerm = 0o600

var errUnterminatedQuote = errors.New("unterminated quote")

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Run commands interactively",
		Long: `Start an interactive prompt that runs library commands against one open
data directory. Type 'help' for commands, 'exit' or Ctrl-D to leave.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if _, err := a.service(ctx); err != nil {
				return err
			}

			return runShell(ctx, a, o)
		},
	}
}

// lineReader is the prompt used by the shell.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

func newLineReader(a *app, out io.Writer) lineReader {
	if f, ok := a.in.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		return newTerminalReader(a.fsys, a.historyPath())
	}

	in := a.in
	if in == nil {
		in = strings.NewReader("")
	}

	return &scanReader{scanner: bufio.NewScanner(in), out: out}
}

func (a *app) historyPath() string {
	return filepath.Join(a.cfg.DataDirAbs, HistoryFile)
}

func runShell(ctx context.Context, a *app, o *IO) error {
	a.inShell = true
	defer func() { a.inShell = false }()

	r := newLineReader(a, o.out)
	defer func() { _ = r.Close() }()

	o.Println("library shell - type 'help' for commands, 'exit' to leave")

	for ctx.Err() == nil {
		line, err := r.Prompt("library> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r.AppendHistory(line)

		args, err := splitLine(line)
		if err != nil {
			o.ErrPrintln("error:", err)

			continue
		}

		switch args[0] {
		case "exit", "quit", "q":
			return nil
		case "help", "?":
			a.printCommands(o.out)

			continue
		}

		a.dispatch(ctx, NewIO(o.out, o.errOut), args)
	}

	return nil
}

// splitLine splits a shell line into words. Single and double quotes group
// words containing spaces; there are no escapes.
func splitLine(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		quote   rune
		inWord  bool
	)

	for _, r := range line {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, errUnterminatedQuote
	}

	if inWord {
		words = append(words, current.String())
	}

	return words, nil
}

// terminalReader reads lines with editing, history and tab completion.
type terminalReader struct {
	state       *liner.State
	fsys        fs.FS
	historyPath string
}

func newTerminalReader(fsys fs.FS, historyPath string) *terminalReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(complete)

	_ = loadHistory(fsys, historyPath, state)

	return &terminalReader{state: state, fsys: fsys, historyPath: historyPath}
}

func (t *terminalReader) Prompt(prompt string) (string, error) {
	return t.state.Prompt(prompt)
}

func (t *terminalReader) AppendHistory(line string) {
	t.state.AppendHistory(line)
}

func (t *terminalReader) Close() error {
	_ = saveHistory(t.fsys, t.historyPath, t.state)

	return t.state.Close()
}

// history is the part of [liner.State] that persists entered lines.
type history interface {
	ReadHistory(r io.Reader) (int, error)
	WriteHistory(w io.Writer) (int, error)
}

// loadHistory feeds the history file at path into h. A missing file is not
// an error.
func loadHistory(fsys fs.FS, path string, h history) error {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("reading history: %w", err)
	}

	_, err = h.ReadHistory(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}

	return nil
}

// saveHistory replaces the history file at path with the contents of h.
func saveHistory(fsys fs.FS, path string, h history) error {
	var buf bytes.Buffer

	_, err := h.WriteHistory(&buf)
	if err != nil {
		return fmt.Errorf("writing history: %w", err)
	}

	err = fsys.WriteFileAtomic(path, buf.Bytes(), historyPerm)
	if err != nil {
		return fmt.Errorf("writing history: %w", err)
	}

	return nil
}

var shellWords = []string{
	"student add", "student ls",
	"book add", "book ls", "book copies",
	"rent", "return", "holdings", "log",
	"check", "repair", "print-config",
	"help", "exit", "quit",
}

func complete(line string) []string {
	var completions []string

	for _, w := range shellWords {
		if strings.HasPrefix(w, line) {
			completions = append(completions, w)
		}
	}

	return completions
}

// scanReader reads lines from a non-terminal input such as a pipe.
type scanReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (s *scanReader) Prompt(prompt string) (string, error) {
	_, _ = fmt.Fprint(s.out, prompt)

	if !s.scanner.Scan() {
		_, _ = fmt.Fprintln(s.out)

		if err := s.scanner.Err(); err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return s.scanner.Text(), nil
}

func (*scanReader) AppendHistory(string) {}

func (*scanReader) Close() error { return nil }
