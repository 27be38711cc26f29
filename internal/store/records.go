package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/calvinalkan/dsd/internal/loader"
	"github.com/calvinalkan/dsd/internal/record"
	"github.com/calvinalkan/dsd/pkg/fs"
)

// Lookup reports whether a regular file for the record exists.
func (db *DB) Lookup(kind record.Kind, name string) (bool, error) {
	if err := db.check(); err != nil {
		return false, err
	}

	if err := ValidateName(name); err != nil {
		return false, recordErr(kind, name, err)
	}

	info, err := db.fsys.Stat(db.Path(kind, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, recordErr(kind, name, err)
	}

	return info.Mode().IsRegular(), nil
}

// HasDevice reports whether the device exists.
func (db *DB) HasDevice(name string) (bool, error) {
	return db.Lookup(record.KindDevice, name)
}

// HasProperty reports whether the property exists.
func (db *DB) HasProperty(name string) (bool, error) {
	return db.Lookup(record.KindProperty, name)
}

// LookupAny looks the name up as a property, then as a device, and returns
// the kind it was found as.
func (db *DB) LookupAny(name string) (record.Kind, bool, error) {
	for _, kind := range []record.Kind{record.KindProperty, record.KindDevice} {
		ok, err := db.Lookup(kind, name)
		if err != nil {
			return record.KindInvalid, false, err
		}

		if ok {
			return kind, true, nil
		}
	}

	return record.KindInvalid, false, nil
}

// Write stores rec, replacing any existing file of the same kind and name.
func (db *DB) Write(rec record.Record) error {
	if err := db.check(); err != nil {
		return err
	}

	kind, name := rec.Kind(), rec.RecordName()

	if err := ValidateName(name); err != nil {
		return recordErr(kind, name, err)
	}

	data, err := Encode(rec)
	if err != nil {
		return recordErr(kind, name, err)
	}

	err = fs.WriteFileAtomic(db.fsys, db.Path(kind, name), bytes.NewReader(data), filePerm)
	if err != nil {
		return recordErr(kind, name, err)
	}

	db.log.WithField("kind", kind.String()).WithField("name", name).Debug("record written")

	return nil
}

// Add stores rec unless a record of the same kind and name exists, in which
// case it fails with [ErrAlreadyDefined] and leaves the database unchanged.
func (db *DB) Add(rec record.Record) error {
	ok, err := db.Lookup(rec.Kind(), rec.RecordName())
	if err != nil {
		return err
	}

	if ok {
		return recordErr(rec.Kind(), rec.RecordName(), ErrAlreadyDefined)
	}

	return db.Write(rec)
}

// List returns the names of all records of kind, in directory order.
// Hidden files, such as interrupted atomic writes, are skipped.
func (db *DB) List(kind record.Kind) ([]string, error) {
	if err := db.check(); err != nil {
		return nil, err
	}

	entries, err := db.fsys.ReadDir(db.dir(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Dir(), err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}

		names = append(names, e.Name())
	}

	return names, nil
}

// Raw returns the stored bytes of a record.
func (db *DB) Raw(kind record.Kind, name string) ([]byte, error) {
	if err := db.check(); err != nil {
		return nil, err
	}

	if err := ValidateName(name); err != nil {
		return nil, recordErr(kind, name, err)
	}

	data, err := db.fsys.ReadFile(db.Path(kind, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, recordErr(kind, name, ErrNotFound)
		}

		return nil, recordErr(kind, name, err)
	}

	return data, nil
}

// Cat returns the stored bytes of the property or, failing that, the device
// named name.
func (db *DB) Cat(name string) ([]byte, record.Kind, error) {
	kind, ok, err := db.LookupAny(name)
	if err != nil {
		return nil, record.KindInvalid, err
	}

	if !ok {
		return nil, record.KindInvalid, recordErr(record.KindInvalid, name, ErrNotFound)
	}

	data, err := db.Raw(kind, name)

	return data, kind, err
}

// Read parses the stored record back into memory.
func (db *DB) Read(kind record.Kind, name string) (record.Record, error) {
	data, err := db.Raw(kind, name)
	if err != nil {
		return nil, err
	}

	rec, err := loader.Parse(kind, data)
	if err != nil {
		return nil, recordErr(kind, name, err)
	}

	if rec.RecordName() != name {
		return nil, recordErr(kind, name, fmt.Errorf("%w: file holds %s %q", ErrCorrupt, kind, rec.RecordName()))
	}

	return rec, nil
}

// ReadDevice reads a stored device.
func (db *DB) ReadDevice(name string) (*record.Device, error) {
	rec, err := db.Read(record.KindDevice, name)
	if err != nil {
		return nil, err
	}

	return rec.(*record.Device), nil
}

// ReadProperty reads a stored property.
func (db *DB) ReadProperty(name string) (*record.Property, error) {
	rec, err := db.Read(record.KindProperty, name)
	if err != nil {
		return nil, err
	}

	return rec.(*record.Property), nil
}

// Delete removes the property named name or, if there is none, the device.
// It returns the kind that was removed. References to the removed record
// from other records are left alone.
func (db *DB) Delete(name string) (record.Kind, error) {
	kind, ok, err := db.LookupAny(name)
	if err != nil {
		return record.KindInvalid, err
	}

	if !ok {
		return record.KindInvalid, recordErr(record.KindInvalid, name, ErrNotFound)
	}

	err = db.fsys.Remove(db.Path(kind, name))
	if err != nil {
		return record.KindInvalid, recordErr(kind, name, err)
	}

	db.log.WithField("kind", kind.String()).WithField("name", name).Debug("record deleted")

	return kind, nil
}
