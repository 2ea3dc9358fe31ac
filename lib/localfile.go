// localfile - the local half of one RCS file: cached header/delta state,
// plus the ci/rcs calls that advance it.
//
// Grounded on reposurgeon's staged-temp-file pattern for file restoration
// (surgeon/inner.go's preserve/restore path, which shutil.Copy's a staged
// tree into place) and on its "refresh cache, compare stat, reparse on
// mismatch" idiom for VCS metadata (surgeon/vcs.go's capability probing).
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	difflib "github.com/ianbruene/go-difflib/difflib"
	shutil "github.com/termie/go-shutil"
)

const emptyLogPlaceholder = "*** empty log message ***"

// LocalFile is the cached, lock-scoped view of one RCS file: its header,
// its delta list, and the derived RevisionSet used for checkin decisions.
type LocalFile struct {
	dir    *LocalDirectory
	name   string // working-file base name, no directory component
	logger *Logger

	cacheValid bool
	cacheAge   uint64
	cachedStat os.FileInfo
	rcsPath    string // "" if absent

	info      RCSInfo
	deltas    []DeltaInfo
	revisions *RevisionSet
}

// NewLocalFile builds a LocalFile for name within dir. The file need not
// exist yet; ReadRCSInfoDeltas and Find report its absence.
func NewLocalFile(dir *LocalDirectory, name string, logger *Logger) *LocalFile {
	return &LocalFile{dir: dir, name: name, logger: logger}
}

// Find probes for name,v under the directory's plain and Attic locations.
// It requires the directory to already be locked (read or write); calling
// it unlocked is a programming error.
func (f *LocalFile) Find() (string, bool) {
	if f.dir.State() == Unlocked {
		panic("LocalFile.Find called without a lock held on its directory")
	}
	plain := filepath.Join(f.dir.Path, f.name+",v")
	if _, err := os.Stat(plain); err == nil {
		return plain, true
	}
	attic := filepath.Join(f.dir.Path, "Attic", f.name+",v")
	if _, err := os.Stat(attic); err == nil {
		return attic, true
	}
	return "", false
}

// ReadRCSInfoDeltas returns the parsed header and delta list, refreshing
// the cache (via rlog) if the directory's age has advanced or the RCS
// file's mtime/size no longer matches what was cached.
func (f *LocalFile) ReadRCSInfoDeltas() (RCSInfo, []DeltaInfo, *RevisionSet, error) {
	var outerErr error
	err := f.dir.ReadLock(func() error {
		path, present := f.Find()
		if !present {
			f.cacheValid = false
			f.cachedStat = nil
			f.rcsPath = ""
			f.info = RCSInfo{}
			f.deltas = nil
			f.revisions = NewRevisionSet()
			return nil
		}
		stat, statErr := os.Stat(path)
		if statErr != nil {
			f.cacheValid = false
			f.cachedStat = nil
			return nil
		}
		if f.cacheValid && f.cacheAge == f.dir.Age() && f.rcsPath == path &&
			f.cachedStat != nil && sameStat(f.cachedStat, stat) {
			return nil
		}
		info, deltas, err := f.reloadFromRCS(path)
		if err != nil {
			outerErr = err
			return nil
		}
		f.info = info
		f.deltas = deltas
		f.revisions = NewRevisionSet()
		for _, d := range deltas {
			f.revisions.Add(d.Revision)
		}
		f.rcsPath = path
		f.cachedStat = stat
		f.cacheAge = f.dir.Age()
		f.cacheValid = true
		return nil
	})
	if err != nil {
		return RCSInfo{}, nil, nil, err
	}
	if outerErr != nil {
		return RCSInfo{}, nil, nil, outerErr
	}
	if f.revisions == nil {
		f.revisions = NewRevisionSet()
	}
	return f.info, f.deltas, f.revisions, nil
}

func sameStat(a, b os.FileInfo) bool {
	return a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}

func (f *LocalFile) reloadFromRCS(path string) (RCSInfo, []DeltaInfo, error) {
	res, err := runRCS(f.logger, f.dir.Path, "rlog "+shellQuote(path))
	if err != nil {
		return RCSInfo{}, nil, err
	}
	parser := NewLogParser(strings.NewReader(res.Stdout), path)
	entries, err := parser.Parse()
	if err != nil {
		return RCSInfo{}, nil, err
	}
	var info RCSInfo
	var deltas []DeltaInfo
	for _, e := range entries {
		if e.RCSInfo != nil {
			info = *e.RCSInfo
		}
		if e.Delta != nil {
			deltas = append(deltas, *e.Delta)
		}
	}
	return info, deltas, nil
}

// tagTableDiff renders a unified diff of the local and remote tag tables,
// one "tag: revision" line per entry, for -D protocollog tracing of
// UpdateAttributes decisions.
func tagTableDiff(local, remote []SymbolicName) string {
	toLines := func(tags []SymbolicName) []string {
		lines := make([]string, len(tags))
		for i, t := range tags {
			lines[i] = fmt.Sprintf("%s: %s", t.Tag, t.Revision)
		}
		return lines
	}
	diff := difflib.UnifiedDiff{
		A:        toLines(local),
		B:        toLines(remote),
		FromFile: "local tags",
		ToFile:   "remote tags",
		Context:  0,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Checkinable reports whether rev can be inserted against the current
// state, checking the cached RevisionSet first and only re-confirming
// under a read-lock when the cheap check says yes. Sound only under the
// assumption that RCS files grow monotonically.
func (f *LocalFile) Checkinable(rev Revision) (Revision, bool, error) {
	if f.revisions != nil {
		if _, ok := f.revisions.Checkinable(rev); !ok {
			return Revision{}, false, nil
		}
	}
	var pred Revision
	var ok bool
	err := f.dir.ReadLock(func() error {
		if _, _, _, err := f.ReadRCSInfoDeltasLocked(); err != nil {
			return err
		}
		pred, ok = f.revisions.Checkinable(rev)
		return nil
	})
	if err != nil {
		return Revision{}, false, err
	}
	return pred, ok, nil
}

// ReadRCSInfoDeltasLocked is ReadRCSInfoDeltas under a name that marks
// call sites already holding at least a read lock; the ReadLock that
// ReadRCSInfoDeltas takes then runs inline.
func (f *LocalFile) ReadRCSInfoDeltasLocked() (RCSInfo, []DeltaInfo, *RevisionSet, error) {
	return f.ReadRCSInfoDeltas()
}

// Commit performs one check-in: locking the predecessor, staging contents,
// invoking ci, and correcting Attic placement.
func (f *LocalFile) Commit(attic *bool, info RCSInfo, delta DeltaInfo, contentsPath string) error {
	return f.dir.WriteLock(func() error {
		if _, _, _, err := f.ReadRCSInfoDeltasLocked(); err != nil {
			return err
		}
		if f.revisions.Contains(delta.Revision) {
			return nil
		}
		pred, ok := f.revisions.Checkinable(delta.Revision)
		if !ok {
			return nil
		}

		rcsPath := f.rcsPath
		if rcsPath == "" {
			placement := f.dir.Path
			if attic != nil && *attic {
				placement = filepath.Join(f.dir.Path, "Attic")
			}
			if err := EnsureDir(f.logger, placement); err != nil {
				return &RCSCommandFailure{Command: "mkdir", Err: err}
			}
			rcsPath = filepath.Join(placement, f.name+",v")
		}

		if pred.Valid() {
			if _, err := runRCS(f.logger, f.dir.Path, fmt.Sprintf("rcs -q -l%s %s", pred, shellQuote(rcsPath))); err != nil {
				return err
			}
		}

		staged, err := f.stageContents(contentsPath)
		if err != nil {
			return err
		}
		defer os.Remove(staged)

		logMsg := delta.Log
		if strings.TrimSpace(logMsg) == "" {
			logMsg = emptyLogPlaceholder
		}
		cmd := fmt.Sprintf("ci -q -r%s -f -d%s -m%s -t-%s -s%s -w%s %s %s",
			delta.Revision, shellQuote(delta.Date), shellQuote(logMsg),
			shellQuote(info.Description), delta.State, shellQuote(delta.Author),
			shellQuote(rcsPath), shellQuote(staged))
		if _, err := runRCS(f.logger, f.dir.Path, cmd); err != nil {
			return err
		}

		if attic != nil {
			if err := f.fixAtticPlacement(*attic, rcsPath); err != nil {
				return err
			}
		}

		f.deltas = append(f.deltas, delta)
		f.revisions.Add(delta.Revision)
		return nil
	})
}

func (f *LocalFile) stageContents(contentsPath string) (string, error) {
	staged := filepath.Join(f.dir.Path, f.name)
	if contentsPath == "" {
		fh, err := os.Create(staged)
		if err != nil {
			return "", err
		}
		fh.Close()
		return staged, nil
	}
	if _, err := shutil.Copy(contentsPath, staged, false); err != nil {
		return "", err
	}
	return staged, nil
}

func (f *LocalFile) fixAtticPlacement(wantAttic bool, currentPath string) error {
	inAttic := pathHasAtticElement(currentPath)
	if inAttic == wantAttic {
		f.logger.Logit(DebugAttic, "%s already placed correctly (attic=%v)", currentPath, wantAttic)
		f.rcsPath = currentPath
		return nil
	}
	var dest string
	if wantAttic {
		dest = filepath.Join(f.dir.Path, "Attic", f.name+",v")
	} else {
		dest = filepath.Join(f.dir.Path, f.name+",v")
	}
	f.logger.Logit(DebugAttic, "moving %s -> %s (attic=%v)", currentPath, dest, wantAttic)
	if err := EnsureDir(f.logger, filepath.Dir(dest)); err != nil {
		return &RCSCommandFailure{Command: "mkdir", Err: err}
	}
	if err := os.Rename(currentPath, dest); err != nil {
		return &RCSCommandFailure{Command: "rename", Err: err}
	}
	f.rcsPath = dest
	return nil
}

// UpdateAttributes reconciles default branch, keyword mode, and symbolic
// tags against the remote RCSInfo with a single bundled `rcs -q` call.
func (f *LocalFile) UpdateAttributes(remote RCSInfo) error {
	return f.dir.WriteLock(func() error {
		if _, _, _, err := f.ReadRCSInfoDeltasLocked(); err != nil {
			return err
		}
		if f.rcsPath == "" {
			return nil
		}
		var args []string
		if remote.DefaultBranch.Valid() && !remote.DefaultBranch.Equal(f.info.DefaultBranch) {
			args = append(args, "-b"+remote.DefaultBranch.String())
		}
		if remote.KeywordMode != "" && remote.KeywordMode != f.info.KeywordMode {
			args = append(args, "-k"+remote.KeywordMode)
		}

		local := make(map[string]Revision, len(f.info.Tags))
		for _, t := range f.info.Tags {
			local[t.Tag] = t.Revision
		}
		for i := len(remote.Tags) - 1; i >= 0; i-- {
			tag := remote.Tags[i]
			if existing, present := local[tag.Tag]; !present {
				args = append(args, fmt.Sprintf("-n%s:%s", tag.Tag, tag.Revision))
			} else if !existing.Equal(tag.Revision) {
				args = append(args, fmt.Sprintf("-N%s:%s", tag.Tag, tag.Revision))
			}
		}

		if len(args) == 0 {
			return nil
		}
		if f.logger.Enabled(DebugProtocolLog) {
			f.logger.Logit(DebugProtocolLog, "updating attributes on %s: %v", f.rcsPath, args)
			f.logger.Logit(DebugProtocolLog, "%s", tagTableDiff(f.info.Tags, remote.Tags))
		}
		cmd := "rcs -q " + strings.Join(args, " ") + " " + shellQuote(f.rcsPath)
		if _, err := runRCS(f.logger, f.dir.Path, cmd); err != nil {
			return err
		}
		f.info = remote
		return nil
	})
}
