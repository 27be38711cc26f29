package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/dsd/internal/store"
)

func deleteCmd(a *app) *Command {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	noVerify := fs.Bool("no-verify", false, "skip verification after deleting")

	return &Command{
		Flags: fs,
		Usage: "delete [flags] <db> <name>...",
		Short: "Delete properties or devices by name",
		Long: `Delete each named record from <db>. A name is looked up as a property
first, then as a device.

Records that refer to a deleted record keep the reference; the
verification that runs afterwards reports them.`,
		MinArgs: 2,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execDelete(ctx, o, a, args, !*noVerify && a.cfg.VerifyAfterWrite)
		},
	}
}

func execDelete(ctx context.Context, o *IO, a *app, args []string, verifyAfter bool) error {
	db, err := a.open(args[0])
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	for _, name := range args[1:] {
		if err := interrupted(ctx); err != nil {
			return err
		}

		kind, err := db.Delete(name)
		if notFound(err) {
			o.Warn("entry not found", name)

			continue
		}

		if err != nil {
			return err
		}

		o.Printf("deleted %s %s\n", kind, name)
	}

	if !verifyAfter {
		return nil
	}

	return verifyAfterWrite(o, a, db)
}

// notFound reports whether err means the name does not exist. Names that
// cannot be file names cannot exist either.
func notFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidName)
}
