package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/calvinalkan/dsd/pkg/fs"
)

func Test_Real_Exists_Reports_Files_Dirs_And_Missing_Paths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file")

	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	rfs := fs.NewReal()

	tests := []struct {
		path string
		want bool
	}{
		{path: file, want: true},
		{path: dir, want: true},
		{path: filepath.Join(dir, "missing"), want: false},
	}

	for _, tt := range tests {
		got, err := rfs.Exists(tt.path)
		if err != nil {
			t.Fatalf("Exists(%q): %v", tt.path, err)
		}

		if got != tt.want {
			t.Errorf("Exists(%q)=%v, want=%v", tt.path, got, tt.want)
		}
	}
}

func Test_Faulty_Fails_Matching_Operation_When_Suffix_Matches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	faulty := fs.NewFaulty(fs.NewReal())
	faulty.Fail(fs.OpReadFile, "devices/eth0", syscall.EACCES)

	target := filepath.Join(dir, "devices", "eth0")
	other := filepath.Join(dir, "devices", "eth1")

	for _, p := range []string{target, other} {
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatalf("setup: %v", err)
		}

		if err := os.WriteFile(p, []byte("device: x\n"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	_, err := faulty.ReadFile(target)
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("err=%v, want permission error", err)
	}

	if !fs.IsInjected(err) {
		t.Errorf("IsInjected(%v)=false, want true", err)
	}

	if _, err := faulty.ReadFile(other); err != nil {
		t.Errorf("other path: %v", err)
	}

	if _, err := faulty.Stat(target); err != nil {
		t.Errorf("other op: %v", err)
	}

	if got, want := faulty.Hits(fs.OpReadFile), 1; got != want {
		t.Errorf("hits=%d, want=%d", got, want)
	}
}

func Test_Faulty_Stops_After_N_Failures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	faulty := fs.NewFaulty(fs.NewReal())
	faulty.FailN(fs.OpStat, "", syscall.EIO, 1)

	if _, err := faulty.Stat(dir); !errors.Is(err, syscall.EIO) {
		t.Fatalf("first stat err=%v, want EIO", err)
	}

	if _, err := faulty.Stat(dir); err != nil {
		t.Fatalf("second stat: %v", err)
	}

	faulty.Reset()

	if got := faulty.Hits(fs.OpStat); got != 0 {
		t.Errorf("hits after reset=%d, want 0", got)
	}
}

func Test_WriteFileAtomic_Replaces_Content_On_Real_FS(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rec")
	rfs := fs.NewReal()

	for _, content := range []string{"first\n", "second\n"} {
		if err := fs.WriteFileAtomic(rfs, path, strings.NewReader(content), 0o644); err != nil {
			t.Fatalf("WriteFileAtomic: %v", err)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}

		if string(got) != content {
			t.Errorf("content=%q, want=%q", got, content)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if got, want := info.Mode().Perm(), os.FileMode(0o644); got != want {
		t.Errorf("perm=%v, want=%v", got, want)
	}
}

func Test_WriteFileAtomic_Keeps_Old_File_When_Rename_Fails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "rec")

	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	faulty := fs.NewFaulty(fs.NewReal())
	faulty.Fail(fs.OpRename, "/rec", syscall.EIO)

	err := fs.WriteFileAtomic(faulty, path, strings.NewReader("new\n"), 0o644)
	if !fs.IsInjected(err) {
		t.Fatalf("err=%v, want injected error", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != "old\n" {
		t.Errorf("content=%q, want old content", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 1 {
		t.Errorf("temp file left behind: %v", entries)
	}
}

func Test_WriteFileAtomic_Cleans_Up_When_Sync_Fails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	faulty := fs.NewFaulty(fs.NewReal())
	faulty.Fail(fs.OpSync, "", syscall.ENOSPC)

	err := fs.WriteFileAtomic(faulty, filepath.Join(dir, "rec"), strings.NewReader("x"), 0o644)
	if !errors.Is(err, syscall.ENOSPC) {
		t.Fatalf("err=%v, want ENOSPC", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("dir not empty after failed write: %v", entries)
	}
}
