package cvs

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// installFakeRCSTools drops executable "rcs" and "ci" scripts on PATH that
// record their invocation to callLog and touch their target RCS file, so
// LocalFile.Commit can be exercised without a real RCS toolchain.
func installFakeRCSTools(t *testing.T, callLog string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake rcs/ci scripts require a POSIX shell")
	}
	bin := t.TempDir()
	rcsScript := fmt.Sprintf("#!/bin/sh\necho rcs \"$@\" >> %s\nfor last; do :; done\n[ -e \"$last\" ] || : > \"$last\"\n", shellQuoteForTest(callLog))
	ciScript := fmt.Sprintf("#!/bin/sh\necho ci \"$@\" >> %s\nfor last; do :; done\nprev=\"\"\nfor a; do prev_prev=\"$prev\"; prev=\"$a\"; done\n[ -e \"$prev_prev\" ] || : > \"$prev_prev\"\n", shellQuoteForTest(callLog))
	if err := os.WriteFile(filepath.Join(bin, "rcs"), []byte(rcsScript), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bin, "ci"), []byte(ciScript), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// installFakeRlog drops an executable "rlog" script on PATH that always
// prints a fixed, already-valid log record for file.c at revision 1.1,
// regardless of the real (placeholder) contents of the RCS file it is
// pointed at.
func installFakeRlog(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake rlog script requires a POSIX shell")
	}
	bin := t.TempDir()
	fixedLog := "RCS file: /repo/file.c,v\n" +
		"Working file: file.c\n" +
		"head: 1.1\n" +
		"branch:\n" +
		"symbolic names:\n" +
		"keyword substitution: kv\n" +
		"description:\n" +
		"----------------------------\n" +
		"revision 1.1\n" +
		"date: 2020/01/01 00:00:00;  author: esr;  state: Exp;\n" +
		"first revision\n" +
		"=============================================================================\n"
	script := "#!/bin/sh\ncat <<'EOF'\n" + fixedLog + "EOF\n"
	if err := os.WriteFile(filepath.Join(bin, "rlog"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestLocalFileFindRequiresLock(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Find to panic when the directory is unlocked")
		}
	}()
	dir := NewLocalDirectory(t.TempDir(), t.TempDir(), NewLogger(nil, 0))
	f := NewLocalFile(dir, "file.c", NewLogger(nil, 0))
	f.Find()
}

func TestLocalFileFindPlainAndAttic(t *testing.T) {
	top := t.TempDir()
	dir := NewLocalDirectory(top, top, NewLogger(nil, 0))
	f := NewLocalFile(dir, "file.c", NewLogger(nil, 0))

	err := dir.ReadLock(func() error {
		if _, ok := f.Find(); ok {
			t.Fatal("expected no match before any RCS file exists")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Join(top, "Attic"), 0775); err != nil {
		t.Fatal(err)
	}
	atticPath := filepath.Join(top, "Attic", "file.c,v")
	if err := os.WriteFile(atticPath, []byte("rcs placeholder"), 0664); err != nil {
		t.Fatal(err)
	}

	err = dir.ReadLock(func() error {
		path, ok := f.Find()
		if !ok {
			t.Fatal("expected Attic match")
		}
		assertEqual(t, path, atticPath)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalFileReadRCSInfoDeltasAbsent(t *testing.T) {
	top := t.TempDir()
	dir := NewLocalDirectory(top, top, NewLogger(nil, 0))
	f := NewLocalFile(dir, "file.c", NewLogger(nil, 0))

	_, deltas, revs, err := f.ReadRCSInfoDeltas()
	if err != nil {
		t.Fatal(err)
	}
	if len(deltas) != 0 {
		t.Fatalf("expected no deltas for a nonexistent file, got %d", len(deltas))
	}
	if revs.Size() != 0 {
		t.Fatalf("expected empty RevisionSet, got %d", revs.Size())
	}
}

func TestLocalFileCommitFirstTrunkRevision(t *testing.T) {
	top := t.TempDir()
	callLog := filepath.Join(t.TempDir(), "calls")
	installFakeRCSTools(t, callLog)

	dir := NewLocalDirectory(top, top, NewLogger(nil, 0))
	f := NewLocalFile(dir, "file.c", NewLogger(nil, 0))

	info := RCSInfo{WorkingFile: "file.c", Head: MustParseRevision("1.1")}
	delta := DeltaInfo{Revision: MustParseRevision("1.1"), Date: "2020/01/01 00:00:00", Author: "esr", State: "Exp", Log: "first revision"}
	notAttic := false

	contents := filepath.Join(t.TempDir(), "file.c")
	if err := os.WriteFile(contents, []byte("hello\n"), 0664); err != nil {
		t.Fatal(err)
	}

	if err := f.Commit(&notAttic, info, delta, contents); err != nil {
		t.Fatal(err)
	}

	log, err := os.ReadFile(callLog)
	if err != nil {
		t.Fatal(err)
	}
	if len(log) == 0 {
		t.Fatal("expected ci to have been invoked")
	}
	if !f.revisions.Contains(MustParseRevision("1.1")) {
		t.Fatal("expected the in-memory revision set to record 1.1 after commit")
	}
}

func TestLocalFileCommitSkipsAlreadyPresentRevision(t *testing.T) {
	top := t.TempDir()
	callLog := filepath.Join(t.TempDir(), "calls")
	installFakeRCSTools(t, callLog)
	installFakeRlog(t)

	dir := NewLocalDirectory(top, top, NewLogger(nil, 0))
	f := NewLocalFile(dir, "file.c", NewLogger(nil, 0))

	// The fake rlog always reports revision 1.1 already present, regardless
	// of this placeholder's real contents; Commit's own ReadRCSInfoDeltas
	// call (inside its write lock) is what discovers that and skips ci.
	rcsPath := filepath.Join(top, "file.c,v")
	if err := os.WriteFile(rcsPath, []byte("placeholder"), 0664); err != nil {
		t.Fatal(err)
	}

	delta := DeltaInfo{Revision: MustParseRevision("1.1"), Date: "2020/01/01 00:00:00", Author: "esr", State: "Exp"}
	notAttic := false
	if err := f.Commit(&notAttic, RCSInfo{WorkingFile: "file.c"}, delta, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := os.ReadFile(callLog); err == nil {
		t.Fatal("expected ci not to be invoked for an already-present revision")
	}
}

// installFakeRlogWithBranchPoint drops an executable "rlog" script on PATH
// that reports a file with two trunk revisions, 1.2 (head) and 1.1, so a
// branch rooted at 1.2 already has its branch point present locally.
func installFakeRlogWithBranchPoint(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake rlog script requires a POSIX shell")
	}
	bin := t.TempDir()
	fixedLog := "RCS file: /repo/file.c,v\n" +
		"Working file: file.c\n" +
		"head: 1.2\n" +
		"branch:\n" +
		"symbolic names:\n" +
		"keyword substitution: kv\n" +
		"description:\n" +
		"----------------------------\n" +
		"revision 1.2\n" +
		"date: 2020/01/02 00:00:00;  author: esr;  state: Exp;\n" +
		"second revision\n" +
		"----------------------------\n" +
		"revision 1.1\n" +
		"date: 2020/01/01 00:00:00;  author: esr;  state: Exp;\n" +
		"first revision\n" +
		"=============================================================================\n"
	script := "#!/bin/sh\ncat <<'EOF'\n" + fixedLog + "EOF\n"
	if err := os.WriteFile(filepath.Join(bin, "rlog"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// TestLocalFileCommitLocksBranchPointForFirstBranchRevision is the S3
// scenario: checking in the first revision on a new branch (1.2.2.1, off
// branch point 1.2) must rcs -l-lock the branch point before invoking ci,
// exactly as a second-or-later trunk revision locks its own predecessor.
// Without that lock, RCS strict locking refuses the branch-point insert.
func TestLocalFileCommitLocksBranchPointForFirstBranchRevision(t *testing.T) {
	top := t.TempDir()
	callLog := filepath.Join(t.TempDir(), "calls")
	installFakeRCSTools(t, callLog)
	installFakeRlogWithBranchPoint(t)

	rcsPath := filepath.Join(top, "file.c,v")
	if err := os.WriteFile(rcsPath, []byte("placeholder"), 0664); err != nil {
		t.Fatal(err)
	}

	dir := NewLocalDirectory(top, top, NewLogger(nil, 0))
	f := NewLocalFile(dir, "file.c", NewLogger(nil, 0))

	delta := DeltaInfo{Revision: MustParseRevision("1.2.2.1"), Date: "2020/01/03 00:00:00", Author: "esr", State: "Exp", Log: "branch revision"}
	notAttic := false

	contents := filepath.Join(t.TempDir(), "file.c")
	if err := os.WriteFile(contents, []byte("branch contents\n"), 0664); err != nil {
		t.Fatal(err)
	}

	if err := f.Commit(&notAttic, RCSInfo{WorkingFile: "file.c", Head: MustParseRevision("1.2")}, delta, contents); err != nil {
		t.Fatal(err)
	}

	log, err := os.ReadFile(callLog)
	if err != nil {
		t.Fatal(err)
	}
	calls := string(log)
	if !strings.Contains(calls, "rcs -q -l1.2 ") {
		t.Fatalf("expected the branch point 1.2 to be rcs -l-locked before the branch insert, got log:\n%s", calls)
	}
	if !strings.Contains(calls, "ci ") {
		t.Fatalf("expected ci to still be invoked for the branch revision, got log:\n%s", calls)
	}
	lockPos := strings.Index(calls, "rcs -q -l1.2 ")
	ciPos := strings.Index(calls, "ci ")
	if lockPos < 0 || ciPos < 0 || lockPos > ciPos {
		t.Fatalf("expected the branch point lock before ci, got log:\n%s", calls)
	}
}

func TestShellQuoteEscapesSingleQuotes(t *testing.T) {
	got := shellQuote("it's a file")
	want := `'it'\''s a file'`
	assertEqual(t, got, want)
}
