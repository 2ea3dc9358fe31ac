// orchestrator - walks the remote module tree and drives the planner/writer
// pipeline for each directory.
//
// Grounded on tool/repotool.go's top-level drive loop (discover, dispatch,
// move on) and on an explicit re-exec-shaped fork boundary: Go has no
// fork(2), so the per-directory child is a real os/exec re-invocation of
// the current binary, the same substitute the Go toolchain itself uses
// for "build in a clean subprocess" steps.
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import (
	"os"
	"os/exec"
	"path/filepath"
)

// CVSSuck is the module-tree orchestrator: given a CVSWork remote reader
// and a LocalRepository to write into, it walks the module's directory
// tree and, per directory, drives ParseLogs -> Planner.Plan ->
// (GetRevision, Commit, UpdateAttributes) for every file.
type CVSSuck struct {
	Work   *CVSWork
	Repo   *LocalRepository
	Logger *Logger

	// MakePlanner returns a fresh Planner for each file; planners are
	// stateless enough to share, but a factory keeps file processing free
	// of any accidental cross-file state.
	MakePlanner func() Planner

	// NoFork processes each directory in-process instead of re-executing
	// the current binary, for environments where re-exec is undesirable
	// (tests, containers without /proc/self/exe).
	NoFork bool

	// ReexecArgs is the argv (excluding argv[0]) used to re-invoke the
	// current binary for one directory; the orchestrator appends
	// "-internal-process-dir=<path>" to it. Ignored when NoFork is set.
	ReexecArgs []string
}

// UpdateModule walks moduleRoot (a module-relative path, "." for the
// module's own root) either breadth-first or depth-first. Errors
// processing one directory are logged and that directory is abandoned;
// the walk continues so that a later run can resume it.
func (o *CVSSuck) UpdateModule(moduleRoot string, breadthFirst bool) error {
	queue := []string{moduleRoot}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		if _, err := o.Work.SetupWorkdir(path); err != nil {
			o.Logger.Croak("could not set up workspace for %s: %v", path, err)
			continue
		}
		subdirs, err := o.Work.GetSubdirs(path)
		if err != nil {
			o.Logger.Croak("could not list subdirectories of %s: %v", path, err)
			continue
		}
		for _, s := range subdirs {
			child := joinRepoPath(path, s)
			if err := EnsureDir(o.Logger, filepath.Join(o.Repo.Topdir(), filepath.FromSlash(child))); err != nil {
				o.Logger.Croak("could not create local directory for %s: %v", child, err)
			}
		}

		if breadthFirst {
			for _, s := range subdirs {
				queue = append(queue, joinRepoPath(path, s))
			}
		} else {
			prepend := make([]string, len(subdirs))
			for i, s := range subdirs {
				prepend[len(subdirs)-1-i] = joinRepoPath(path, s)
			}
			queue = append(prepend, queue...)
		}

		if err := o.runDirectory(path); err != nil {
			o.Logger.Croak("processing %s failed: %v", path, err)
		}
	}
	return nil
}

func joinRepoPath(parent, child string) string {
	if parent == "." || parent == "" {
		return child
	}
	return parent + "/" + child
}

// runDirectory processes path's files, either in-process or via a
// re-executed child, per the fork boundary described above: the
// parent waits for the child before continuing to the next queue entry.
func (o *CVSSuck) runDirectory(path string) error {
	if o.NoFork {
		return o.ProcessDirectory(path)
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	args := append(append([]string{}, o.ReexecArgs...), "-internal-process-dir="+path)
	cmd := exec.Command(exe, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// ProcessDirectory runs the planner/writer pipeline for every file cvs log
// reports under path. It is called directly when NoFork is set, and by
// main's "-internal-process-dir" handler inside the re-executed child.
func (o *CVSSuck) ProcessDirectory(path string) error {
	files, err := o.Work.ParseLogs(path, "")
	if err != nil {
		return err
	}
	for _, entries := range files {
		if err := o.processOneFile(path, entries); err != nil {
			o.Logger.Croak("file in %s failed: %v", path, err)
		}
	}
	return nil
}

// warnLocalOnlyRevisions implements the recommended policy for a
// local RCS file that has diverged ahead of the remote: revisions present
// locally but absent from the just-fetched remote delta list are left
// untouched (nothing here, or in Commit/UpdateAttributes, ever removes a
// revision), but a warning is logged so the operator notices the drift.
func (o *CVSSuck) warnLocalOnlyRevisions(lf *LocalFile, path, name string, remoteDeltas []DeltaInfo) {
	_, _, revs, err := lf.ReadRCSInfoDeltas()
	if err != nil || revs == nil {
		return
	}
	remote := make(map[string]bool, len(remoteDeltas))
	for _, d := range remoteDeltas {
		remote[d.Revision.String()] = true
	}
	for _, rev := range revs.Values() {
		if !remote[rev.String()] {
			o.Logger.Croak("warning: %s/%s: local revision %s is absent from the remote history, leaving it in place", path, name, rev)
		}
	}
}

func (o *CVSSuck) processOneFile(path string, entries []LogEntry) error {
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
	if info.WorkingFile == "" {
		return nil
	}

	planner := o.MakePlanner()
	plan, err := planner.Plan(info, deltas)
	if err != nil {
		return err
	}

	lf := o.Repo.File(path, info.WorkingFile)
	o.warnLocalOnlyRevisions(lf, path, info.WorkingFile, deltas)
	for _, entry := range plan {
		var contentsPath string
		if !entry.RemoteDelta.Dead() {
			p, err := o.Work.GetRevision(path, info.WorkingFile, entry.RemoteDelta.Revision.String())
			if err != nil {
				return err
			}
			contentsPath = p
		}
		if err := lf.Commit(entry.Attic, info, entry.LocalDelta, contentsPath); err != nil {
			return err
		}
	}
	return lf.UpdateAttributes(info)
}
