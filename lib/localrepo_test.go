package cvs

import (
	"path/filepath"
	"testing"
)

func TestLocalRepositoryDirectoryIsInterned(t *testing.T) {
	top := t.TempDir()
	lr := NewLocalRepository(top, "", NewLogger(nil, 0))

	a := lr.Directory("sub")
	b := lr.Directory("sub")
	if a != b {
		t.Fatal("expected the same LocalDirectory instance for the same relative path")
	}
	if a.Path != filepath.Join(top, "sub") {
		t.Fatalf("unexpected directory path: %s", a.Path)
	}
}

func TestLocalRepositoryDefaultsLockdirToTopdir(t *testing.T) {
	top := t.TempDir()
	lr := NewLocalRepository(top, "", NewLogger(nil, 0))

	d := lr.Directory("a/b")
	if d.LockPath != filepath.Join(top, "a/b") {
		t.Fatalf("expected lock path to default to topdir, got %s", d.LockPath)
	}
}

func TestLocalRepositorySeparateLockdir(t *testing.T) {
	top := t.TempDir()
	lockroot := t.TempDir()
	lr := NewLocalRepository(top, lockroot, NewLogger(nil, 0))

	d := lr.Directory("a")
	if d.Path != filepath.Join(top, "a") {
		t.Fatalf("unexpected mirror path: %s", d.Path)
	}
	if d.LockPath != filepath.Join(lockroot, "a") {
		t.Fatalf("unexpected lock path: %s", d.LockPath)
	}
}

func TestLocalRepositoryFileSharesDirectory(t *testing.T) {
	top := t.TempDir()
	lr := NewLocalRepository(top, "", NewLogger(nil, 0))

	f := lr.File("sub", "file.c")
	if f.dir != lr.Directory("sub") {
		t.Fatal("expected File to reuse the interned LocalDirectory for its path")
	}
}

func TestLocalRepositoryTopdir(t *testing.T) {
	top := t.TempDir()
	lr := NewLocalRepository(top, "", NewLogger(nil, 0))
	if lr.Topdir() != top {
		t.Fatalf("expected Topdir() to return %s, got %s", top, lr.Topdir())
	}
}
