package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/dsd/internal/record"
	"github.com/calvinalkan/dsd/internal/store"
)

func listCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("list", flag.ContinueOnError),
		Usage: "list <db> [devs|props|all]",
		Short: "List device and property names",
		Long: `List the names of all devices, all properties, or both (the default).
An unknown selector is reported and both lists are printed.`,
		MinArgs: 1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			db, err := a.open(args[0])
			if err != nil {
				return err
			}

			defer func() { _ = db.Close() }()

			return execList(o, db, args[1:])
		},
	}
}

// execList lists the kinds chosen by selector (args may be empty).
func execList(o *IO, db *store.DB, args []string) error {
	kinds := record.Kinds()

	if len(args) > 0 && !strings.EqualFold(args[0], "all") {
		kind, err := record.ParseKind(args[0])
		if err != nil {
			o.Warn("unknown selector "+args[0], "listing all")
		} else {
			kinds = []record.Kind{kind}
		}
	}

	if len(args) > 1 {
		o.Warn("ignoring extra values", strings.Join(args[1:], " "))
	}

	for _, kind := range kinds {
		names, err := db.List(kind)
		if err != nil {
			return err
		}

		o.Printf("-- all %s names\n", kind)

		for _, name := range names {
			o.Println(name)
		}
	}

	return nil
}
