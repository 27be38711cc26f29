package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/dsd/internal/store"
	"github.com/calvinalkan/dsd/internal/text"
)

func lookupCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("lookup", flag.ContinueOnError),
		Usage: "lookup <db> <name>...",
		Short: "Print stored records as YAML",
		Long: `Print each named record exactly as stored, each preceded by a "---"
document marker, so the output can be fed back to add. A name is looked
up as a property first, then as a device.`,
		MinArgs: 2,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			db, err := a.open(args[0])
			if err != nil {
				return err
			}

			defer func() { _ = db.Close() }()

			return execLookup(ctx, o, db, args[1:])
		},
	}
}

func showCmd(a *app) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("show", flag.ContinueOnError),
		Usage:   "show <db> <name>...",
		Short:   "Print records as readable text",
		Long:    "Print each named record as aligned plain text.",
		MinArgs: 2,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			db, err := a.open(args[0])
			if err != nil {
				return err
			}

			defer func() { _ = db.Close() }()

			return execShow(ctx, o, db, args[1:])
		},
	}
}

func execLookup(ctx context.Context, o *IO, db *store.DB, names []string) error {
	for _, name := range names {
		if err := interrupted(ctx); err != nil {
			return err
		}

		data, _, err := db.Cat(name)
		if notFound(err) {
			o.Warn("entry not found", name)

			continue
		}

		if err != nil {
			return err
		}

		o.Println("---")

		_, err = o.Write(data)
		if err != nil {
			return err
		}
	}

	return nil
}

func execShow(ctx context.Context, o *IO, db *store.DB, names []string) error {
	shown := 0

	for _, name := range names {
		if err := interrupted(ctx); err != nil {
			return err
		}

		kind, ok, err := db.LookupAny(name)
		if notFound(err) || (err == nil && !ok) {
			o.Warn("entry not found", name)

			continue
		}

		if err != nil {
			return err
		}

		rec, err := db.Read(kind, name)
		if err != nil {
			return err
		}

		if shown > 0 {
			o.Println()
		}

		err = text.Record(o, rec)
		if err != nil {
			return err
		}

		shown++
	}

	return nil
}
