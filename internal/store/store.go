// Package store persists device and property records as one file per record.
//
// A database root holds two directories, devices/ and properties/. A record
// exists exactly when a regular file with its name exists in the directory
// of its kind; there is no other index. Files use the same YAML grammar the
// loader reads, so every stored record can be read back with the loader.
//
// At most one database is open per [Registry]. Opening another one closes
// the previous handle, and every later call on the stale handle fails with
// [ErrClosed]. Package-level [Open] uses a process-wide registry.
//
// Nothing here locks the directory. Two processes writing the same root can
// lose writes.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/calvinalkan/dsd/internal/logging"
	"github.com/calvinalkan/dsd/internal/record"
	"github.com/calvinalkan/dsd/pkg/fs"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644
)


// Registry tracks the one open database. The zero value is ready to use.
type Registry struct {
	mu     sync.Mutex
	active *DB
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

var defaultRegistry Registry

// Active returns the open database of the process-wide registry, or nil.
func Active() *DB {
	return defaultRegistry.Active()
}

// Active returns the open database, or nil.
func (r *Registry) Active() *DB {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active
}

// activate makes db the open database and closes the one it replaces.
func (r *Registry) activate(db *DB) {
	r.mu.Lock()
	prev := r.active
	r.active = db
	r.mu.Unlock()

	if prev != nil && prev != db {
		prev.closed.Store(true)
		prev.log.WithField("root", prev.root).Debug("database closed by open of another")
	}
}

func (r *Registry) release(db *DB) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == db {
		r.active = nil
	}
}

// DB is an open database. Methods fail with [ErrClosed] once the handle is
// closed or replaced.
type DB struct {
	root   string
	fsys   fs.FS
	log    logrus.FieldLogger
	reg    *Registry
	closed atomic.Bool
}

type options struct {
	fsys fs.FS
	log  logrus.FieldLogger
	reg  *Registry
}

// Option configures [Init] and [Open].
type Option func(*options)

// WithFS sets the filesystem. Default: [fs.NewReal].
func WithFS(fsys fs.FS) Option {
	return func(o *options) { o.fsys = fsys }
}

// WithLogger sets the logger for debug output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// WithRegistry opens the database in reg instead of the process-wide
// registry.
func WithRegistry(reg *Registry) Option {
	return func(o *options) { o.reg = reg }
}

func buildOptions(opts []Option) options {
	o := options{
		fsys: fs.NewReal(),
		log:  logging.Discard(),
		reg:  &defaultRegistry,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Init creates a new database at root: the root directory itself, then
// properties/, then devices/. It fails with [ErrExists] if root exists.
func Init(root string, opts ...Option) error {
	o := buildOptions(opts)

	if root == "" {
		return errors.New("init: root is empty")
	}

	exists, err := o.fsys.Exists(root)
	if err != nil {
		return fmt.Errorf("init %s: %w", root, err)
	}

	if exists {
		return fmt.Errorf("init %s: %w", root, ErrExists)
	}

	err = o.fsys.Mkdir(root, dirPerm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("init %s: %w", root, ErrExists)
		}

		return fmt.Errorf("init %s: %w", root, err)
	}

	for _, kind := range []record.Kind{record.KindProperty, record.KindDevice} {
		dir := filepath.Join(root, kind.Dir())

		err = o.fsys.Mkdir(dir, dirPerm)
		if err != nil {
			return fmt.Errorf("init %s: create %s directory: %w", root, kind, err)
		}
	}

	o.log.WithField("root", root).Debug("database created")

	return nil
}

// Open validates root and makes it the open database of the registry,
// closing the previously open one.
func Open(root string, opts ...Option) (*DB, error) {
	o := buildOptions(opts)

	if root == "" {
		return nil, errors.New("open: root is empty")
	}

	root = filepath.Clean(root)

	for _, dir := range []string{root, filepath.Join(root, record.DeviceDir), filepath.Join(root, record.PropertyDir)} {
		info, err := o.fsys.Stat(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("open %s: %w: %s does not exist", root, ErrNotDB, dir)
			}

			return nil, fmt.Errorf("open %s: %w", root, err)
		}

		if !info.IsDir() {
			return nil, fmt.Errorf("open %s: %w: %s is not a directory", root, ErrNotDB, dir)
		}
	}

	db := &DB{
		root: root,
		fsys: o.fsys,
		log:  o.log.WithField("root", root),
		reg:  o.reg,
	}

	o.reg.activate(db)
	db.log.Debug("database opened")

	return db, nil
}

// Close releases the handle. Closing twice is a no-op.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}

	if db.closed.Swap(true) {
		return nil
	}

	db.reg.release(db)
	db.log.Debug("database closed")

	return nil
}

// Root returns the database root directory.
func (db *DB) Root() string {
	return db.root
}

func (db *DB) check() error {
	if db == nil || db.closed.Load() {
		return ErrClosed
	}

	return nil
}
