package loader

import (
	"fmt"

	"github.com/calvinalkan/dsd/internal/record"
)

// Batch holds the records of one load, in load order per kind.
type Batch struct {
	Devices    []*record.Device
	Properties []*record.Property
}

// Add appends rec unless a record of the same kind and name is already in
// the batch, in which case it returns an error wrapping [ErrDuplicate].
func (b *Batch) Add(rec record.Record) error {
	if b.Has(rec.Kind(), rec.RecordName()) {
		return fmt.Errorf("%w: %s %s", ErrDuplicate, rec.Kind(), rec.RecordName())
	}

	b.append(rec)

	return nil
}

// append adds rec without a duplicate check. The loader keeps duplicates so
// that they are reported when the batch is stored.
func (b *Batch) append(rec record.Record) {
	switch r := rec.(type) {
	case *record.Device:
		b.Devices = append(b.Devices, r)
	case *record.Property:
		b.Properties = append(b.Properties, r)
	}
}

// Has reports whether the batch holds a record of kind with the given name.
func (b *Batch) Has(kind record.Kind, name string) bool {
	switch kind {
	case record.KindDevice:
		for _, d := range b.Devices {
			if d.Name == name {
				return true
			}
		}
	case record.KindProperty:
		for _, p := range b.Properties {
			if p.Name == name {
				return true
			}
		}
	case record.KindInvalid:
	}

	return false
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return len(b.Devices) + len(b.Properties)
}

// Records returns properties first, then devices, each in load order. This
// is the order in which a batch is written to a database.
func (b *Batch) Records() []record.Record {
	out := make([]record.Record, 0, b.Len())

	for _, p := range b.Properties {
		out = append(out, p)
	}

	for _, d := range b.Devices {
		out = append(out, d)
	}

	return out
}
