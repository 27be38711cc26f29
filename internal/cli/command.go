package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	Flags *flag.FlagSet

	// Usage is the usage string shown after "dsd" in help, starting with
	// the command name. Examples: "add [flags] <db> <file>...", "verify <db>".
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// MinArgs is the number of positional arguments the command needs.
	MinArgs int

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-30s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "dsd <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: dsd", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns exit code.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	if c.Flags == nil {
		c.Flags = flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	}

	c.Flags.SetOutput(&strings.Builder{})

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)

			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(errorIO(o))

		return 1
	}

	if c.Flags.NArg() < c.MinArgs {
		o.ErrPrintln("error:", fmt.Sprintf("%s: %s", c.Name(), errMissingArgs(c.MinArgs)))
		o.ErrPrintln("usage: dsd", c.Usage)

		return 1
	}

	err = c.Exec(ctx, o, c.Flags.Args())
	code := o.Finish()

	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return code
}

// errorIO returns an IO that prints everything to o's stderr.
func errorIO(o *IO) *IO {
	return NewIO(o.errOut, o.errOut)
}

func errMissingArgs(n int) error {
	if n == 1 {
		return fmt.Errorf("%w: need 1 argument", ErrUsage)
	}

	return fmt.Errorf("%w: need at least %d arguments", ErrUsage, n)
}
