package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/dsd/internal/loader"
	"github.com/calvinalkan/dsd/internal/record"
	"github.com/calvinalkan/dsd/internal/store"
)

func addCmd(a *app) *Command {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	noVerify := fs.Bool("no-verify", false, "skip verification after adding")

	return &Command{
		Flags: fs,
		Usage: "add [flags] <db> <file>...",
		Short: "Add records from YAML files",
		Long: `Load every document in the given files as one batch and add the records
to <db>, properties first, then devices.

References between records may point forward to records defined later in
the batch. A reference that resolves neither in the batch nor in <db>
fails the whole load and nothing is added.

A record whose name is already taken is reported and skipped. The
database is verified afterwards unless --no-verify is given or
verify_after_write is false.`,
		MinArgs: 2,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execAdd(ctx, o, a, args, !*noVerify && a.cfg.VerifyAfterWrite)
		},
	}
}

func checkCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("check", flag.ContinueOnError),
		Usage: "check <db> <file>...",
		Short: "Check YAML files without adding them",
		Long: `Load the given files exactly as add would, with the same reference checks
against <db>, and report what add would do. Nothing is written.`,
		MinArgs: 2,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execCheck(ctx, o, a, args)
		},
	}
}

// loadFiles loads files in order into one batch resolved against db.
func (a *app) loadFiles(ctx context.Context, db *store.DB, files []string) (*loader.Batch, error) {
	l := loader.New(loader.WithResolver(db), loader.WithLogger(a.log))

	for _, file := range files {
		if err := interrupted(ctx); err != nil {
			return nil, err
		}

		recs, err := l.LoadFile(a.abs(file))
		if err != nil {
			return nil, err
		}

		a.log.WithFields(logrus.Fields{"file": file, "records": len(recs)}).Info("file loaded")
	}

	return l.Finish()
}

func execAdd(ctx context.Context, o *IO, a *app, args []string, verifyAfter bool) error {
	db, err := a.open(args[0])
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	batch, err := a.loadFiles(ctx, db, args[1:])
	if err != nil {
		return err
	}

	var accepted loader.Batch

	added := 0

	for _, rec := range batch.Records() {
		if err := interrupted(ctx); err != nil {
			return err
		}

		kind, name := rec.Kind(), rec.RecordName()

		err := accepted.Add(rec)
		if errors.Is(err, loader.ErrDuplicate) {
			o.Warn(fmt.Sprintf("%s %s defined more than once", kind, name), "only the first definition was added")

			continue
		}

		err = db.Add(rec)
		if errors.Is(err, store.ErrAlreadyDefined) {
			o.Warn(fmt.Sprintf("%s %s already defined", kind, name), "not added")

			continue
		}

		if err != nil {
			return err
		}

		added++

		o.Printf("added %s %s\n", kind, name)
	}

	a.log.WithFields(logrus.Fields{"added": added, "loaded": batch.Len()}).Info("add finished")

	if !verifyAfter {
		return nil
	}

	return verifyAfterWrite(o, a, db)
}

func execCheck(ctx context.Context, o *IO, a *app, args []string) error {
	db, err := a.open(args[0])
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	batch, err := a.loadFiles(ctx, db, args[1:])
	if err != nil {
		return err
	}

	var accepted loader.Batch

	for _, rec := range batch.Records() {
		kind, name := rec.Kind(), rec.RecordName()

		if err := accepted.Add(rec); errors.Is(err, loader.ErrDuplicate) {
			o.Warn(fmt.Sprintf("%s %s defined more than once", kind, name), "add would skip the later definition")

			continue
		}

		exists, err := db.Lookup(kind, name)
		if err != nil {
			return err
		}

		if exists {
			o.Warn(fmt.Sprintf("%s %s already defined", kind, name), "add would skip it")

			continue
		}

		o.Printf("ok %s %s\n", kind, name)
	}

	o.Printf("checked %d %s, %d %s\n",
		len(batch.Properties), plural(record.KindProperty, len(batch.Properties)),
		len(batch.Devices), plural(record.KindDevice, len(batch.Devices)))

	return nil
}

func plural(kind record.Kind, n int) string {
	if n == 1 {
		return kind.String()
	}

	return kind.Dir()
}
