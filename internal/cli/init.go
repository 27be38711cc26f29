package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/dsd/internal/store"
)

func initCmd(a *app) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("init", flag.ContinueOnError),
		Usage:   "init <dir>",
		Short:   "Create an empty database",
		Long:    "Create a new database in <dir> with empty devices/ and properties/ directories. <dir> must not exist.",
		MinArgs: 1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execInit(o, a, args)
		},
	}
}

func execInit(o *IO, a *app, args []string) error {
	if len(args) > 1 {
		o.Warn("ignoring extra arguments", strings.Join(args[1:], " "))
	}

	err := store.Init(a.abs(args[0]), store.WithLogger(a.log))
	if err != nil {
		return err
	}

	o.Println("initialized database:", args[0])

	return nil
}
