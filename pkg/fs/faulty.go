package fs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

// Op names an [FS] or [File] operation that [Faulty] can fail.
type Op string

// Operations recognized by [Faulty.Fail].
const (
	OpOpen      Op = "open"
	OpCreate    Op = "create"
	OpOpenFile  Op = "openfile"
	OpReadFile  Op = "readfile"
	OpWriteFile Op = "writefile"
	OpReadDir   Op = "readdir"
	OpMkdirAll  Op = "mkdirall"
	OpMkdir     Op = "mkdir"
	OpChmod     Op = "chmod"
	OpStat      Op = "stat"
	OpExists    Op = "exists"
	OpRemove    Op = "remove"
	OpRemoveAll Op = "removeall"
	OpRename    Op = "rename"

	// File operations, matched against the path the file was opened with.
	OpWrite Op = "write"
	OpSync  Op = "sync"
)

// injectedError marks errors produced by [Faulty].
type injectedError struct {
	Err error
}

func (e *injectedError) Error() string { return "injected: " + e.Err.Error() }

func (e *injectedError) Unwrap() error { return e.Err }

// IsInjected reports whether err (or any wrapped error) was injected by
// [Faulty].
func IsInjected(err error) bool {
	var injected *injectedError

	return errors.As(err, &injected)
}

type faultRule struct {
	op     Op
	suffix string
	err    error
	times  int // remaining failures; <0 means unlimited
}

// Faulty wraps an [FS] and fails selected operations on selected paths.
//
// Unlike random fault injection, every failure is requested explicitly with
// [Faulty.Fail] or [Faulty.FailN], so tests can assert exactly how a caller
// reacts to one broken operation. Injected errors are [*fs.PathError] values
// (or [*os.LinkError] for rename) carrying a real [syscall.Errno], so
// errors.Is(err, os.ErrPermission) and similar checks behave as with real
// failures. [IsInjected] tells them apart.
//
// Rules match when the operation is equal and the slash-separated path ends
// with the rule's suffix. An empty suffix matches every path. For rename,
// either path may match.
type Faulty struct {
	fs FS

	mu    sync.Mutex
	rules []*faultRule
	hits  map[Op]int
}

// NewFaulty wraps underlying. Panics if underlying is nil.
func NewFaulty(underlying FS) *Faulty {
	if underlying == nil {
		panic("underlying fs is nil")
	}

	return &Faulty{fs: underlying, hits: map[Op]int{}}
}

// Fail makes every op on a path ending in suffix fail with errno.
func (f *Faulty) Fail(op Op, suffix string, errno syscall.Errno) {
	f.FailN(op, suffix, errno, -1)
}

// FailN is like [Faulty.Fail] but stops after n failures.
func (f *Faulty) FailN(op Op, suffix string, errno syscall.Errno, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rules = append(f.rules, &faultRule{op: op, suffix: filepath.ToSlash(suffix), err: errno, times: n})
}

// Reset removes all rules and clears the hit counters.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rules = nil
	f.hits = map[Op]int{}
}

// Hits returns how many failures were injected for op.
func (f *Faulty) Hits(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.hits[op]
}

// fault returns the error to inject for op on paths, or nil.
func (f *Faulty) fault(op Op, paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.rules {
		if r.op != op || r.times == 0 {
			continue
		}

		if !matchesAny(r.suffix, paths) {
			continue
		}

		if r.times > 0 {
			r.times--
		}

		f.hits[op]++

		if op == OpRename {
			return &injectedError{Err: &os.LinkError{Op: string(op), Old: paths[0], New: paths[1], Err: r.err}}
		}

		return &injectedError{Err: &fs.PathError{Op: string(op), Path: paths[0], Err: r.err}}
	}

	return nil
}

func matchesAny(suffix string, paths []string) bool {
	for _, p := range paths {
		if strings.HasSuffix(filepath.ToSlash(p), suffix) {
			return true
		}
	}

	return false
}

// Open opens a file for reading unless an [OpOpen] rule matches.
func (f *Faulty) Open(path string) (File, error) {
	if err := f.fault(OpOpen, path); err != nil {
		return nil, err
	}

	return f.wrap(f.fs.Open(path))(path)
}

// Create creates a file unless an [OpCreate] rule matches.
func (f *Faulty) Create(path string) (File, error) {
	if err := f.fault(OpCreate, path); err != nil {
		return nil, err
	}

	return f.wrap(f.fs.Create(path))(path)
}

// OpenFile opens a file unless an [OpOpenFile] rule matches.
func (f *Faulty) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if err := f.fault(OpOpenFile, path); err != nil {
		return nil, err
	}

	return f.wrap(f.fs.OpenFile(path, flag, perm))(path)
}

// ReadFile reads a file unless an [OpReadFile] rule matches.
func (f *Faulty) ReadFile(path string) ([]byte, error) {
	if err := f.fault(OpReadFile, path); err != nil {
		return nil, err
	}

	return f.fs.ReadFile(path)
}

// WriteFile writes a file unless an [OpWriteFile] rule matches.
func (f *Faulty) WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := f.fault(OpWriteFile, path); err != nil {
		return err
	}

	return f.fs.WriteFile(path, data, perm)
}

// ReadDir lists a directory unless an [OpReadDir] rule matches.
func (f *Faulty) ReadDir(path string) ([]os.DirEntry, error) {
	if err := f.fault(OpReadDir, path); err != nil {
		return nil, err
	}

	return f.fs.ReadDir(path)
}

// MkdirAll creates directories unless an [OpMkdirAll] rule matches.
func (f *Faulty) MkdirAll(path string, perm os.FileMode) error {
	if err := f.fault(OpMkdirAll, path); err != nil {
		return err
	}

	return f.fs.MkdirAll(path, perm)
}

// Mkdir creates a directory unless an [OpMkdir] rule matches.
func (f *Faulty) Mkdir(path string, perm os.FileMode) error {
	if err := f.fault(OpMkdir, path); err != nil {
		return err
	}

	return f.fs.Mkdir(path, perm)
}

// Chmod changes a mode unless an [OpChmod] rule matches.
func (f *Faulty) Chmod(path string, mode os.FileMode) error {
	if err := f.fault(OpChmod, path); err != nil {
		return err
	}

	return f.fs.Chmod(path, mode)
}

// Stat returns file info unless an [OpStat] rule matches.
func (f *Faulty) Stat(path string) (os.FileInfo, error) {
	if err := f.fault(OpStat, path); err != nil {
		return nil, err
	}

	return f.fs.Stat(path)
}

// Exists reports existence unless an [OpExists] rule matches.
func (f *Faulty) Exists(path string) (bool, error) {
	if err := f.fault(OpExists, path); err != nil {
		return false, err
	}

	return f.fs.Exists(path)
}

// Remove deletes a path unless an [OpRemove] rule matches.
func (f *Faulty) Remove(path string) error {
	if err := f.fault(OpRemove, path); err != nil {
		return err
	}

	return f.fs.Remove(path)
}

// RemoveAll deletes a tree unless an [OpRemoveAll] rule matches.
func (f *Faulty) RemoveAll(path string) error {
	if err := f.fault(OpRemoveAll, path); err != nil {
		return err
	}

	return f.fs.RemoveAll(path)
}

// Rename moves a path unless an [OpRename] rule matches either path.
func (f *Faulty) Rename(oldpath, newpath string) error {
	if err := f.fault(OpRename, oldpath, newpath); err != nil {
		return err
	}

	return f.fs.Rename(oldpath, newpath)
}

func (f *Faulty) wrap(file File, err error) func(path string) (File, error) {
	return func(path string) (File, error) {
		if err != nil {
			return nil, err
		}

		return &faultyFile{File: file, owner: f, path: path}, nil
	}
}

// faultyFile fails Write and Sync according to its owner's rules.
type faultyFile struct {
	File

	owner *Faulty
	path  string
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if err := ff.owner.fault(OpWrite, ff.path); err != nil {
		return 0, err
	}

	return ff.File.Write(p)
}

func (ff *faultyFile) Sync() error {
	if err := ff.owner.fault(OpSync, ff.path); err != nil {
		return err
	}

	return ff.File.Sync()
}

var (
	_ FS   = (*Faulty)(nil)
	_ File = (*faultyFile)(nil)
)
