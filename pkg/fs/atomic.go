package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	natomic "github.com/natefinch/atomic"
)

const atomicTempAttempts = 1000

var atomicTempCounter atomic.Uint64

// WriteFileAtomic replaces path with the contents of r so that readers see
// either the old file or the complete new one, never a partial write.
//
// On the real filesystem the work is done by github.com/natefinch/atomic.
// Any other [FS] gets the same temp-file, sync, rename sequence through its
// own methods, which lets fault-injecting filesystems observe every step.
// The final file mode is perm.
func WriteFileAtomic(fsys FS, path string, r io.Reader, perm os.FileMode) error {
	if _, ok := fsys.(*Real); ok {
		err := natomic.WriteFile(path, r)
		if err != nil {
			return fmt.Errorf("atomic write %q: %w", path, err)
		}

		return fsys.Chmod(path, perm)
	}

	return writeViaTemp(fsys, path, r, perm)
}

func writeViaTemp(fsys FS, path string, r io.Reader, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	if base == "" || base == "." {
		return fmt.Errorf("atomic write: invalid path %q", path)
	}

	if dir == "" {
		dir = "."
	}

	tmp, tmpPath, err := createTemp(fsys, filepath.Clean(dir), base, perm)
	if err != nil {
		return err
	}

	discard := func(cause error) error {
		closeErr := tmp.Close()
		if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			cause = errors.Join(cause, fmt.Errorf("close temp file %q: %w", tmpPath, closeErr))
		}

		removeErr := fsys.Remove(tmpPath)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			cause = errors.Join(cause, fmt.Errorf("remove temp file %q: %w", tmpPath, removeErr))
		}

		return cause
	}

	_, err = io.Copy(tmp, r)
	if err != nil {
		return discard(fmt.Errorf("write temp file %q: %w", tmpPath, err))
	}

	err = tmp.Sync()
	if err != nil {
		return discard(fmt.Errorf("sync temp file %q: %w", tmpPath, err))
	}

	err = tmp.Close()
	if err != nil {
		return discard(fmt.Errorf("close temp file %q: %w", tmpPath, err))
	}

	err = fsys.Rename(tmpPath, path)
	if err != nil {
		return discard(fmt.Errorf("rename: %w", err))
	}

	return nil
}

func createTemp(fsys FS, dir, base string, perm os.FileMode) (File, string, error) {
	for range atomicTempAttempts {
		seq := atomicTempCounter.Add(1)
		path := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d", base, seq))

		file, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if err == nil {
			return file, path, nil
		}

		if os.IsExist(err) {
			continue
		}

		return nil, "", fmt.Errorf("create temp file: %w", err)
	}

	return nil, "", fmt.Errorf("exhausted temp file attempts in %q", dir)
}
