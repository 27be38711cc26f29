package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/dsd/internal/config"
	"github.com/calvinalkan/dsd/internal/logging"
	"github.com/calvinalkan/dsd/internal/store"
)

// exitInterrupted is returned when a signal cancels the running command.
const exitInterrupted = 130

// app is what every command needs from the surrounding process.
type app struct {
	cfg   config.Config
	log   *logrus.Logger
	reg   *store.Registry
	stdin io.Reader
	env   map[string]string
}

// abs resolves p against the effective working directory.
func (a *app) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(a.cfg.EffectiveCwd, p)
}

// open opens the database at root. Each run has its own registry, so
// databases opened by concurrent runs in one process do not close each
// other.
func (a *app) open(root string) (*store.DB, error) {
	return store.Open(a.abs(root), store.WithLogger(a.log), store.WithRegistry(a.reg))
}

type globalFlags struct {
	cwd     string
	config  string
	verbose bool
	help    bool
}

func newGlobalFlagSet(g *globalFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("dsd", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(&strings.Builder{})

	fs.StringVarP(&g.cwd, "cwd", "C", "", "run as if started in `dir`")
	fs.StringVarP(&g.config, "config", "c", "", "use config `file` instead of .dsd.json")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "log debug output to stderr")
	fs.BoolVarP(&g.help, "help", "h", false, "show help")

	return fs
}

// Run is the main entry point. Returns exit code.
//
// A signal on sigCh cancels the command's context; commands stop between
// records and Run returns 130. sigCh may be nil.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	var g globalFlags

	globals := newGlobalFlagSet(&g)

	if len(args) > 0 {
		args = args[1:]
	}

	err := globals.Parse(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printGlobalFlags(errOut, globals)

		return 1
	}

	rest := globals.Args()

	if g.help || len(rest) == 0 {
		printUsage(out, globals, nil)

		return 0
	}

	input := config.Input{
		WorkDirOverride: g.cwd,
		ConfigPath:      g.config,
		Env:             env,
	}

	if input.WorkDirOverride != "" && !filepath.IsAbs(input.WorkDirOverride) {
		wd, err := os.Getwd()
		if err != nil {
			fprintln(errOut, "error: cannot get working directory:", err)

			return 1
		}

		input.WorkDirOverride = filepath.Join(wd, input.WorkDirOverride)
	}

	if g.verbose {
		input.LogLevelOverride = "debug"
	}

	cfg, err := config.Load(input)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	a := &app{
		cfg:   cfg,
		log:   logging.New(errOut, level),
		reg:   store.NewRegistry(),
		stdin: stdin,
		env:   env,
	}

	commands := allCommands(a)

	name := rest[0]
	if name == "help" {
		return runHelp(out, errOut, globals, commands, rest[1:])
	}

	var cmd *Command

	for _, c := range commands {
		if c.Name() == name {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error:", fmt.Errorf("%w: %s", ErrUnknownCommand, name))
		fprintln(errOut)
		printUsage(errOut, globals, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				a.log.Debug("signal received, cancelling")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	a.log.WithField("command", name).Debug("running")

	code := cmd.Run(ctx, NewIO(out, errOut), rest[1:])

	if errors.Is(ctx.Err(), context.Canceled) && code != 0 {
		return exitInterrupted
	}

	return code
}

// allCommands lists the commands in help order.
func allCommands(a *app) []*Command {
	return []*Command{
		initCmd(a),
		addCmd(a),
		checkCmd(a),
		deleteCmd(a),
		listCmd(a),
		lookupCmd(a),
		showCmd(a),
		verifyCmd(a),
		shellCmd(a),
		printConfigCmd(a),
	}
}

// interrupted returns ErrInterrupted once ctx is cancelled.
func interrupted(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrInterrupted
	}

	return nil
}

func runHelp(out, errOut io.Writer, globals *flag.FlagSet, commands []*Command, args []string) int {
	if len(args) == 0 {
		printUsage(out, globals, commands)

		return 0
	}

	for _, c := range commands {
		if c.Name() == args[0] {
			c.PrintHelp(NewIO(out, errOut))

			return 0
		}
	}

	fprintln(errOut, "error:", fmt.Errorf("%w: %s", ErrUnknownCommand, args[0]))

	return 1
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printGlobalFlags(w io.Writer, globals *flag.FlagSet) {
	fprintln(w, "Global flags:")

	var buf strings.Builder
	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(&strings.Builder{})

	_, _ = io.WriteString(w, buf.String())
}

// printUsage prints the top-level help. commands may be nil when no
// configuration could be loaded yet.
func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, `dsd - device and property documentation database

Usage: dsd [global flags] <command> <db> [args]`)
	fprintln(w)
	printGlobalFlags(w, globals)
	fprintln(w)
	fprintln(w, "Commands:")

	if commands == nil {
		commands = allCommands(&app{cfg: config.Default(nil)})
	}

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}

	_, _ = fmt.Fprintf(w, "  %-30s %s\n", "help [command]", "Show help for dsd or a command")
}
