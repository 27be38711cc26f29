package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/dsd/internal/record"
)

// ValidateName checks that name can be used as a record file name directly
// under a kind directory.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}

	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q is not a file name", ErrInvalidName, name)
	}

	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}

	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	}

	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidName, name)
	}

	return nil
}

// Path returns the file that holds the record of kind named name.
func (db *DB) Path(kind record.Kind, name string) string {
	return filepath.Join(db.root, kind.Dir(), name)
}

func (db *DB) dir(kind record.Kind) string {
	return filepath.Join(db.root, kind.Dir())
}
