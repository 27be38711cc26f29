// Package loader materializes device and property records from YAML
// documents.
//
// A [Loader] runs a state machine over the event stream produced by
// [yamlevents.Parse]. The first key of each document's top-level mapping
// decides its kind: "property" starts a [record.Property], "device" starts a
// [record.Device]. Anything that does not fit the grammar aborts the whole
// load call and nothing from that call is kept.
//
// Several calls on one Loader form a batch. References between records are
// resolved against a [Resolver] (normally the open database) and against the
// batch; references that are still unknown when read are re-checked by
// [Loader.Finish] once the batch is complete, so a device may name a property
// that is defined later in the same batch.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/calvinalkan/dsd/internal/logging"
	"github.com/calvinalkan/dsd/internal/record"
	"github.com/calvinalkan/dsd/internal/yamlevents"
	"github.com/calvinalkan/dsd/pkg/fs"
)

// Resolver answers whether a record exists outside the current batch.
// *store.DB implements it.
type Resolver interface {
	HasDevice(name string) (bool, error)
	HasProperty(name string) (bool, error)
}

// Loader accumulates records from one or more documents into a [Batch].
// It is not safe for concurrent use.
type Loader struct {
	resolver Resolver
	fsys     fs.FS
	log      logrus.FieldLogger

	batch   Batch
	pending []pendingRef
}

// Option configures a [Loader].
type Option func(*Loader)

// WithResolver enables reference checks against r. Without a resolver,
// reference names are recorded but never checked.
func WithResolver(r Resolver) Option {
	return func(l *Loader) { l.resolver = r }
}

// WithFS sets the filesystem used by [Loader.LoadFile].
func WithFS(fsys fs.FS) Option {
	return func(l *Loader) { l.fsys = fsys }
}

// WithLogger sets the logger for debug output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Loader) { l.log = log }
}

// New returns an empty Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		fsys: fs.NewReal(),
		log:  logging.Discard(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// pendingRef is a reference that did not resolve when it was read.
type pendingRef struct {
	Kind    record.Kind
	Name    string
	Ref     string
	RefKind record.Kind
	Source  string
	Line    int
}

// LoadEvents consumes one event stream. source names the input in errors.
//
// On success the records of every document in the stream are appended to
// the batch and returned in document order. On error nothing is appended.
func (l *Loader) LoadEvents(source string, events []yamlevents.Event) ([]record.Record, error) {
	m := newMachine(l, source)

	err := m.run(events)
	if err != nil {
		return nil, err
	}

	for _, rec := range m.committed {
		l.batch.append(rec)
	}

	l.pending = append(l.pending, m.pending...)

	return m.committed, nil
}

// Load parses r as YAML and loads every document in it.
func (l *Loader) Load(source string, r io.Reader) ([]record.Record, error) {
	events, err := yamlevents.Parse(r)
	if err != nil {
		return nil, &Error{Source: source, Err: err}
	}

	return l.LoadEvents(source, events)
}

// LoadFile reads and loads the file at path.
func (l *Loader) LoadFile(path string) ([]record.Record, error) {
	data, err := l.fsys.ReadFile(path)
	if err != nil {
		return nil, &Error{Source: path, Err: fmt.Errorf("read: %w", err)}
	}

	return l.Load(path, bytes.NewReader(data))
}

// Batch returns the records loaded so far. The batch is owned by the Loader.
func (l *Loader) Batch() *Batch {
	return &l.batch
}

// Finish re-checks every reference that was unknown when it was read against
// the complete batch. It returns the batch, or an error wrapping
// [ErrUnresolvedReference] for each reference that is still unknown.
func (l *Loader) Finish() (*Batch, error) {
	var errs []error

	for _, p := range l.pending {
		if l.batch.Has(p.RefKind, p.Ref) {
			continue
		}

		errs = append(errs, &Error{
			Source: p.Source,
			Line:   p.Line,
			Err:    fmt.Errorf("%w: %s %s refers to undefined %s %s", ErrUnresolvedReference, p.Kind, p.Name, p.RefKind, p.Ref),
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	l.log.WithFields(logrus.Fields{
		"devices":    len(l.batch.Devices),
		"properties": len(l.batch.Properties),
		"deferred":   len(l.pending),
	}).Debug("batch resolved")

	return &l.batch, nil
}

// ParseDevice decodes data holding exactly one device document. References
// are not checked.
func ParseDevice(data []byte) (*record.Device, error) {
	rec, err := parseOne(data, record.KindDevice)
	if err != nil {
		return nil, err
	}

	return rec.(*record.Device), nil
}

// ParseProperty decodes data holding exactly one property document.
// References are not checked.
func ParseProperty(data []byte) (*record.Property, error) {
	rec, err := parseOne(data, record.KindProperty)
	if err != nil {
		return nil, err
	}

	return rec.(*record.Property), nil
}

// Parse decodes data holding exactly one document of the given kind.
func Parse(kind record.Kind, data []byte) (record.Record, error) {
	return parseOne(data, kind)
}

func parseOne(data []byte, kind record.Kind) (record.Record, error) {
	recs, err := New().Load("", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if len(recs) != 1 {
		return nil, &Error{Err: fmt.Errorf("%w: want exactly one document, got %d", ErrSchema, len(recs))}
	}

	if recs[0].Kind() != kind {
		return nil, &Error{Err: fmt.Errorf("%w: got a %s document, want a %s", ErrWrongKind, recs[0].Kind(), kind)}
	}

	return recs[0], nil
}
