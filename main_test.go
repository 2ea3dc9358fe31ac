package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	cvs "gitlab.com/esr/cvssuck/lib"
)

func TestPlannerFactoryStacksSkeletonWraps(t *testing.T) {
	cfg := &runConfig{skeletonWraps: 2, introduce11: true}
	p := plannerFactory(cfg)()

	outer, ok := p.(cvs.SkeletonPlanner)
	if !ok {
		t.Fatalf("expected outer planner to be a SkeletonPlanner, got %T", p)
	}
	inner, ok := outer.Wrapped.(cvs.SkeletonPlanner)
	if !ok {
		t.Fatalf("expected two stacked SkeletonPlanners, got %T at depth 1", outer.Wrapped)
	}
	if _, ok := inner.Wrapped.(cvs.ExactPlanner); !ok {
		t.Fatalf("expected an ExactPlanner at the base, got %T", inner.Wrapped)
	}
}

func TestPlannerFactoryNoWrapsIsBareExactPlanner(t *testing.T) {
	cfg := &runConfig{}
	p := plannerFactory(cfg)()
	if _, ok := p.(cvs.ExactPlanner); !ok {
		t.Fatalf("expected a bare ExactPlanner with no -s, got %T", p)
	}
}

func TestReexecArgsEncodesConfig(t *testing.T) {
	cfg := &runConfig{
		cvsRoot:       ":pserver:anon@example.com:/cvsroot",
		debugMask:     cvs.DebugCommand,
		skeletonWraps: 1,
		introduce11:   true,
	}
	job := moduleJob{module: "mod", output: "/out", lock: "/lock"}
	args := reexecArgs(cfg, job, "/scratch")

	want := []string{
		"-internal-cvsroot=:pserver:anon@example.com:/cvsroot",
		"-internal-scratch=/scratch",
		"-internal-output=/out",
		"-internal-lock=/lock",
		"-internal-skeleton=1",
		"-internal-introduce11=true",
	}
	for _, w := range want {
		found := false
		for _, a := range args {
			if a == w {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected reexecArgs to include %q, got %v", w, args)
		}
	}
}

func TestIsInternalInvocationDetectsFlag(t *testing.T) {
	if !isInternalInvocation([]string{"-internal-process-dir=sub"}) {
		t.Fatal("expected the -internal-process-dir flag to be detected")
	}
	if isInternalInvocation([]string{"-b", "-o", "/out", "mod"}) {
		t.Fatal("expected an ordinary argv to not be treated as an internal invocation")
	}
}

func TestNewScratchWorkspaceCreatesAndCleansUp(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	logger := cvs.NewLogger(nil, 0)

	dir, cleanup, err := newScratchWorkspace(logger)
	if err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("expected scratch workspace to exist: %v", err)
	}
	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected cleanup to remove the scratch workspace, got err=%v", err)
	}
}

func TestNewScratchWorkspacePreservedUnderLeaveTmp(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	var buf strings.Builder
	logger := cvs.NewLogger(&writerFunc{&buf}, cvs.DebugLeaveTmp)

	dir, cleanup, err := newScratchWorkspace(logger)
	if err != nil {
		t.Fatal(err)
	}
	cleanup()
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected the leavetmp channel to preserve the scratch workspace: %v", err)
	}
}

// writerFunc adapts a strings.Builder to io.Writer for tests that only
// care whether logging happened, not any particular io.Writer type.
type writerFunc struct{ b *strings.Builder }

func (w *writerFunc) Write(p []byte) (int, error) { return w.b.Write(p) }

func TestRunAllCreatesOutputAndLockDirs(t *testing.T) {
	installFakeCVSNoOp(t)

	topOut := t.TempDir()
	topLock := t.TempDir()
	out := filepath.Join(topOut, "nested", "out")
	lock := filepath.Join(topLock, "nested", "lock")

	cfg := &runConfig{
		cvsRoot: ":pserver:anon@example.com:/cvsroot",
		noFork:  true,
		jobs: []moduleJob{
			{module: ".", output: out, lock: lock},
		},
	}
	logger := cvs.NewLogger(nil, 0)
	if status := runAll(cfg, logger); status != 0 {
		t.Fatalf("expected a clean run, got status %d", status)
	}
	if fi, err := os.Stat(out); err != nil || !fi.IsDir() {
		t.Fatalf("expected output dir to be created: %v", err)
	}
	if fi, err := os.Stat(lock); err != nil || !fi.IsDir() {
		t.Fatalf("expected lock dir to be created: %v", err)
	}
}

// installFakeCVSNoOp drops a fake "cvs" binary on PATH that reports no
// subdirectories and no log entries, so runAll can be exercised against a
// trivial, empty module without a real server.
func installFakeCVSNoOp(t *testing.T) {
	t.Helper()
	bindir := t.TempDir()
	script := "#!/bin/sh\nexit 0\n"
	path := filepath.Join(bindir, "cvs")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bindir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
