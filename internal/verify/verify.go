// Package verify checks a whole database for incomplete records and
// references that do not resolve.
//
// Problems are collected, not returned as errors: one run reports every
// violation it finds. A record whose file cannot be parsed is reported as a
// read error and left out of the checks.
package verify

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/calvinalkan/dsd/internal/logging"
	"github.com/calvinalkan/dsd/internal/record"
	"github.com/calvinalkan/dsd/internal/store"
)

// Code classifies a violation.
type Code string

// Violation codes.
const (
	MissingOwner       Code = "missing-owner"
	MissingDescription Code = "missing-description"
	MissingType        Code = "missing-type"
	MissingExample     Code = "missing-example"
	NoProperties       Code = "no-properties"
	NoDevices          Code = "no-devices"
	UndefinedProperty  Code = "undefined-property"
	UndefinedDevice    Code = "undefined-device"
)

// Violation is one problem with one record. Ref is the unresolved name for
// the undefined-* codes and empty otherwise.
type Violation struct {
	Kind record.Kind
	Name string
	Code Code
	Ref  string
}

// String renders the violation as a report line, for example
// "E: device eth0 refers to undefined property mac".
func (v Violation) String() string {
	var what string

	switch v.Code {
	case MissingOwner:
		what = "missing an owner"
	case MissingDescription:
		what = "missing a description"
	case MissingType:
		what = "missing a type"
	case MissingExample:
		what = "missing an example"
	case NoProperties:
		what = "has no properties defined"
	case NoDevices:
		what = "used in no devices"
	case UndefinedProperty:
		what = "refers to undefined property " + v.Ref
	case UndefinedDevice:
		what = "refers to undefined device " + v.Ref
	default:
		what = string(v.Code)
	}

	return fmt.Sprintf("E: %s %s %s", v.Kind, v.Name, what)
}

// ReadError is a stored record that could not be read back.
type ReadError struct {
	Kind record.Kind
	Name string
	Err  error
}

func (e ReadError) String() string {
	return fmt.Sprintf("? %s read failed: %s: %v", e.Kind, e.Name, e.Err)
}

// Report is the result of one [Run].
type Report struct {
	Devices    int
	Properties int
	ReadErrors []ReadError
	Violations []Violation
}

// Passed reports whether no violation was found. Read errors alone do not
// fail a run.
func (r *Report) Passed() bool {
	return len(r.Violations) == 0
}

type options struct {
	log logrus.FieldLogger
}

// Option configures [Run].
type Option func(*options)

// WithLogger sets the logger for debug output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// Run reads every device and property in db and checks them. The error is
// only non-nil when the database itself cannot be read, such as an
// unlistable directory.
func Run(db *store.DB, opts ...Option) (*Report, error) {
	o := options{log: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	rep := &Report{}

	devices, err := readAll(db, record.KindDevice, rep)
	if err != nil {
		return nil, err
	}

	properties, err := readAll(db, record.KindProperty, rep)
	if err != nil {
		return nil, err
	}

	rep.Devices = len(devices)
	rep.Properties = len(properties)

	for _, rec := range devices {
		err = checkDevice(db, rec.(*record.Device), rep)
		if err != nil {
			return nil, err
		}
	}

	for _, rec := range properties {
		err = checkProperty(db, rec.(*record.Property), rep)
		if err != nil {
			return nil, err
		}
	}

	o.log.WithFields(logrus.Fields{
		"devices":     rep.Devices,
		"properties":  rep.Properties,
		"read_errors": len(rep.ReadErrors),
		"violations":  len(rep.Violations),
	}).Debug("verification finished")

	return rep, nil
}

func readAll(db *store.DB, kind record.Kind, rep *Report) ([]record.Record, error) {
	names, err := db.List(kind)
	if err != nil {
		return nil, err
	}

	recs := make([]record.Record, 0, len(names))

	for _, name := range names {
		rec, err := db.Read(kind, name)
		if err != nil {
			if errors.Is(err, store.ErrClosed) {
				return nil, err
			}

			rep.ReadErrors = append(rep.ReadErrors, ReadError{Kind: kind, Name: name, Err: err})

			continue
		}

		recs = append(recs, rec)
	}

	return recs, nil
}

func checkDevice(db *store.DB, d *record.Device, rep *Report) error {
	add := func(code Code, ref string) {
		rep.Violations = append(rep.Violations, Violation{Kind: record.KindDevice, Name: d.Name, Code: code, Ref: ref})
	}

	if d.Owner == "" {
		add(MissingOwner, "")
	}

	if d.Description == "" {
		add(MissingDescription, "")
	}

	if len(d.Properties) == 0 {
		add(NoProperties, "")
	}

	for _, name := range d.Properties {
		ok, err := resolves(db, record.KindProperty, name)
		if err != nil {
			return err
		}

		if !ok {
			add(UndefinedProperty, name)
		}
	}

	return nil
}

func checkProperty(db *store.DB, p *record.Property, rep *Report) error {
	add := func(code Code, ref string) {
		rep.Violations = append(rep.Violations, Violation{Kind: record.KindProperty, Name: p.Name, Code: code, Ref: ref})
	}

	if p.Type == "" {
		add(MissingType, "")
	}

	if p.Owner == "" {
		add(MissingOwner, "")
	}

	if p.Description == "" {
		add(MissingDescription, "")
	}

	if p.Example == "" {
		add(MissingExample, "")
	}

	if len(p.Devices) == 0 {
		add(NoDevices, "")
	}

	for _, name := range p.Devices {
		ok, err := resolves(db, record.KindDevice, name)
		if err != nil {
			return err
		}

		if !ok {
			add(UndefinedDevice, name)
		}
	}

	return nil
}

// resolves looks name up in the store. A name that cannot be a file name
// does not resolve.
func resolves(db *store.DB, kind record.Kind, name string) (bool, error) {
	ok, err := db.Lookup(kind, name)
	if errors.Is(err, store.ErrInvalidName) {
		return false, nil
	}

	return ok, err
}
