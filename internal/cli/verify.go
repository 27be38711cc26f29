package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/dsd/internal/store"
	"github.com/calvinalkan/dsd/internal/verify"
)

func verifyCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("verify", flag.ContinueOnError),
		Usage: "verify <db>",
		Short: "Check every record in a database",
		Long: `Read every device and property in <db> and report records with missing
fields and references to records that do not exist. Exits with 1 if any
problem is found.`,
		MinArgs: 1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execVerify(o, a, args)
		},
	}
}

func execVerify(o *IO, a *app, args []string) error {
	db, err := a.open(args[0])
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	passed, err := runVerify(o, a, db)
	if err != nil {
		return err
	}

	if !passed {
		return ErrVerifyFailed
	}

	return nil
}

// verifyAfterWrite runs verification after add or delete. A failed
// verification is a warning there, since the write itself succeeded.
func verifyAfterWrite(o *IO, a *app, db *store.DB) error {
	passed, err := runVerify(o, a, db)
	if err != nil {
		return err
	}

	if !passed {
		o.Warn(ErrVerifyFailed.Error(), "run 'dsd verify' after fixing the records above")
	}

	return nil
}

// runVerify prints the report: read errors to stderr, violations and the
// summary to stdout.
func runVerify(o *IO, a *app, db *store.DB) (bool, error) {
	rep, err := verify.Run(db, verify.WithLogger(a.log))
	if err != nil {
		return false, err
	}

	for _, re := range rep.ReadErrors {
		o.ErrPrintln(re.String())
	}

	for _, v := range rep.Violations {
		o.Println(v.String())
	}

	status := "passed"
	if !rep.Passed() {
		status = fmt.Sprintf("failed with %d errors", len(rep.Violations))
	}

	o.Printf("verify: %d devices, %d properties: %s\n", rep.Devices, rep.Properties, status)

	return rep.Passed(), nil
}
