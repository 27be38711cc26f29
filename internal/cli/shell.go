package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/dsd/internal/record"
	"github.com/calvinalkan/dsd/internal/store"
)

const shellHelp = `Commands:
  lookup <name>...          Print stored records as YAML
  show <name>...            Print records as readable text
  list [devs|props|all]     List device and property names
  verify                    Check every record in the database
  help                      Show this help
  quit                      Leave the shell (also: exit, q, Ctrl-D)`

func shellCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell <db>",
		Short: "Query a database interactively",
		Long: `Open <db> and read query commands, one per line.

On a terminal the shell has line editing, history and tab completion of
commands and record names. Otherwise commands are read from stdin until
end of input and the exit code is 1 if any of them failed.

` + shellHelp,
		MinArgs: 1,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			db, err := a.open(args[0])
			if err != nil {
				return err
			}

			defer func() { _ = db.Close() }()

			sh := &shell{a: a, db: db, out: o.out, errOut: o.errOut}

			if isTerminal(a.stdin) {
				return sh.interactive(ctx)
			}

			return sh.batch(ctx, a.stdin)
		},
	}
}

// shell runs query commands against one open database.
type shell struct {
	a      *app
	db     *store.DB
	out    io.Writer
	errOut io.Writer
	failed int
}

// errQuit ends the shell loop.
var errQuit = errors.New("quit")

// exec runs one command line with its own IO, so warnings are printed
// right after the command that caused them.
func (sh *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}

	o := NewIO(sh.out, sh.errOut)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error

	switch cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		o.Println(shellHelp)
	case "lookup", "cat":
		err = execLookup(ctx, o, sh.db, args)
	case "show":
		err = execShow(ctx, o, sh.db, args)
	case "list", "ls":
		err = execList(o, sh.db, args)
	case "verify":
		var passed bool

		passed, err = runVerify(o, sh.a, sh.db)
		if err == nil && !passed {
			err = ErrVerifyFailed
		}
	default:
		err = fmt.Errorf("%w: %s (type 'help' for commands)", ErrUnknownCommand, cmd)
	}

	if o.Finish() != 0 && err == nil {
		sh.failed++
	}

	if err != nil {
		sh.failed++

		if errors.Is(err, store.ErrClosed) {
			return err
		}

		o.ErrPrintln("error:", err)
	}

	return nil
}

// batch reads commands from r until end of input.
func (sh *shell) batch(ctx context.Context, r io.Reader) error {
	if r == nil {
		return nil
	}

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		if err := interrupted(ctx); err != nil {
			return err
		}

		err := sh.exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			break
		}

		if err != nil {
			return err
		}
	}

	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}

	if sh.failed > 0 {
		return fmt.Errorf("%w: %d", ErrShellFailed, sh.failed)
	}

	return nil
}

// interactive runs a line-editing prompt until quit, Ctrl-C or Ctrl-D.
func (sh *shell) interactive(ctx context.Context) error {
	line := liner.NewLiner()
	defer func() { _ = line.Close() }()

	line.SetCtrlCAborts(true)
	line.SetCompleter(sh.complete)

	sh.readHistory(line)
	defer sh.writeHistory(line)

	_, _ = fmt.Fprintf(sh.out, "dsd shell on %s. Type 'help' for commands.\n", sh.db.Root())

	for {
		if err := interrupted(ctx); err != nil {
			return err
		}

		input, err := line.Prompt("dsd> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			_, _ = fmt.Fprintln(sh.out)

			return nil
		}

		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		err = sh.exec(ctx, input)
		if errors.Is(err, errQuit) {
			return nil
		}

		if err != nil {
			return err
		}
	}
}

func (sh *shell) readHistory(line *liner.State) {
	path := sh.a.cfg.HistoryFile
	if path == "" {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		return
	}

	defer func() { _ = f.Close() }()

	_, err = line.ReadHistory(f)
	if err != nil {
		sh.a.log.WithError(err).WithField("path", path).Warn("cannot read shell history")
	}
}

func (sh *shell) writeHistory(line *liner.State) {
	path := sh.a.cfg.HistoryFile
	if path == "" {
		return
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		sh.a.log.WithError(err).WithField("path", path).Warn("cannot write shell history")

		return
	}

	defer func() { _ = f.Close() }()

	_, err = line.WriteHistory(f)
	if err != nil {
		sh.a.log.WithError(err).WithField("path", path).Warn("cannot write shell history")
	}
}

var shellCommands = []string{"exit", "help", "list", "lookup", "quit", "show", "verify"}

// complete completes command names in the first word and record names
// after lookup and show.
func (sh *shell) complete(line string) []string {
	fields := strings.Fields(line)
	endsWithSpace := strings.HasSuffix(line, " ")

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		prefix := ""
		if len(fields) == 1 {
			prefix = strings.ToLower(fields[0])
		}

		return withPrefix(shellCommands, prefix, "")
	}

	cmd := strings.ToLower(fields[0])

	var candidates []string

	switch cmd {
	case "lookup", "cat", "show":
		candidates = sh.names()
	case "list", "ls":
		candidates = []string{"all", "devs", "props"}
	default:
		return nil
	}

	head, prefix := line, ""
	if !endsWithSpace {
		prefix = fields[len(fields)-1]
		head = strings.TrimSuffix(line, prefix)
	}

	return withPrefix(candidates, prefix, head)
}

// names returns every record name in the database, sorted and without
// duplicates.
func (sh *shell) names() []string {
	seen := map[string]bool{}

	for _, kind := range record.Kinds() {
		names, err := sh.db.List(kind)
		if err != nil {
			sh.a.log.WithError(err).Debug("completion: cannot list records")

			continue
		}

		for _, n := range names {
			seen[n] = true
		}
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}

	sort.Strings(out)

	return out
}

func withPrefix(candidates []string, prefix, head string) []string {
	var out []string

	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, head+c)
		}
	}

	return out
}
