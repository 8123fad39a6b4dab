package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/dmitriwamback/cs-dge-library-system/internal/config"
	"github.com/dmitriwamback/cs-dge-library-system/internal/fs"
	"github.com/dmitriwamback/cs-dge-library-system/internal/library"
)

var errUnknownCommand = errors.New("unknown command")

// Run is the main entry point. Returns exit code.
//
// A signal on sigCh cancels the running command's context; rentals already
// dispatched still finish before Run returns.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("library", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	dataDir := globals.String("data-dir", "", "Override the data `dir`")
	verbose := globals.BoolP("verbose", "v", false, "Log debug output to stderr")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) > 0 {
		args = args[1:]
	}

	err := globals.Parse(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, globals)

		return 1
	}

	rest := globals.Args()
	if *help || len(rest) == 0 {
		printUsage(out, globals)

		return 0
	}

	cfg, err := config.Load(config.Input{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		DataDirOverride: *dataDir,
		Verbose:         *verbose,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	a := &app{
		cfg:    &cfg,
		logger: slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: cfg.Level})),
		in:     stdin,
		fsys:   fs.NewReal(),
	}

	code := a.dispatch(ctx, NewIO(out, errOut), rest)

	err = a.close()
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	return code
}

// app carries what every command needs. The service is opened on first use
// so that commands like print-config never touch the data directory.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	in     io.Reader
	fsys   fs.FS
	svc    *library.Service

	inShell bool
}

func (a *app) service(ctx context.Context) (*library.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}

	svc, err := library.Open(ctx, a.cfg.DataDirAbs,
		library.WithFS(a.fsys),
		library.WithLogger(a.logger),
		library.WithWorkers(a.cfg.Workers),
		library.WithLockTimeout(a.cfg.Timeout),
		library.WithLocation(a.cfg.Location),
	)
	if err != nil {
		return nil, err
	}

	a.svc = svc

	return svc, nil
}

func (a *app) close() error {
	if a.svc == nil {
		return nil
	}

	return a.svc.Close()
}

// commands returns fresh command instances; pflag sets keep state after
// Parse, so each invocation gets its own.
func (a *app) commands() []*Command {
	cmds := []*Command{
		StudentAddCmd(a),
		StudentLsCmd(a),
		BookAddCmd(a),
		BookLsCmd(a),
		BookCopiesCmd(a),
		RentCmd(a),
		ReturnCmd(a),
		HoldingsCmd(a),
		LogCmd(a),
		CheckCmd(a),
		RepairCmd(a),
		PrintConfigCmd(a.cfg),
	}

	if !a.inShell {
		cmds = append(cmds, ShellCmd(a))
	}

	return cmds
}

// lookup finds the command named by the first one or two words of args and
// returns it with the remaining arguments.
func (a *app) lookup(args []string) (*Command, []string, error) {
	cmds := a.commands()

	if len(args) >= 2 {
		for _, c := range cmds {
			if c.Name() == args[0]+" "+args[1] {
				return c, args[2:], nil
			}
		}
	}

	for _, c := range cmds {
		if c.Name() == args[0] {
			return c, args[1:], nil
		}
	}

	return nil, nil, fmt.Errorf("%w: %s", errUnknownCommand, strings.Join(args[:min(len(args), 2)], " "))
}

func (a *app) dispatch(ctx context.Context, o *IO, args []string) int {
	cmd, rest, err := a.lookup(args)
	if err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		a.printCommands(o.errOut)

		return 1
	}

	code := cmd.Run(ctx, o, rest)

	return max(code, o.Finish())
}

func (a *app) printCommands(w io.Writer) {
	fprintln(w, "Commands:")

	for _, c := range a.commands() {
		fprintln(w, c.HelpLine())
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet) {
	fprintln(w, `library - student book rentals

Usage: library [options] <command> [args]

Options:`)
	fprintln(w, strings.TrimRight(globals.FlagUsages(), "\n"))
	fprintln(w)

	(&app{cfg: &config.Config{}}).printCommands(w)
}
