// cvswork - drives the cvs client against a scratch workspace: directory
// listing, log retrieval, per-revision checkout.
//
// Grounded on tool/repotool.go's pattern of shelling out to a VCS binary
// and scanning its captured output for recognizable markers (there: branch
///tag listings via cmd.CombinedOutput(); here: "New directory" lines on
// cvs update's stderr) and on reposurgeon's runProcess/readFromProcess
// trio for the actual process plumbing (now lib/exec.go's runCVS).
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var reNewDirectory = regexp.MustCompile("cvs (?:server|update): New directory `([^']+)' -- ignored")

const nothingKnownAbout = "nothing known about"

// CVSWork owns one scratch workspace rooted at a directory carrying a
// top-level CVS/Root and CVS/Repository = ".".
type CVSWork struct {
	cvsRoot     string
	scratchRoot string
	logger      *Logger

	seq int // next letter-sequence suffix for SetupWorkdir

	cachedFile string
	cachedRev  string
	cachedPath string
}

// NewCVSWork creates the scratch workspace under scratchRoot (which must
// already exist and be empty) and seeds its top-level CVS/ administrative
// files.
func NewCVSWork(cvsRoot, scratchRoot string, logger *Logger) (*CVSWork, error) {
	w := &CVSWork{cvsRoot: cvsRoot, scratchRoot: scratchRoot, logger: logger}
	if err := writeCVSAdminFiles(scratchRoot, cvsRoot, "."); err != nil {
		return nil, err
	}
	return w, nil
}

func writeCVSAdminFiles(workdir, cvsRoot, repository string) error {
	adminDir := filepath.Join(workdir, "CVS")
	if err := os.MkdirAll(adminDir, 0775); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(adminDir, "Root"), []byte(cvsRoot+"\n"), 0664); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(adminDir, "Repository"), []byte(repository+"\n"), 0664); err != nil {
		return err
	}
	entries := filepath.Join(adminDir, "Entries")
	if _, err := os.Stat(entries); os.IsNotExist(err) {
		if err := os.WriteFile(entries, nil, 0664); err != nil {
			return err
		}
	}
	return nil
}

// nextWorkdirName yields the base-26 letter sequence a, b, ..., z, aa, ab...
func (w *CVSWork) nextWorkdirName() string {
	n := w.seq
	w.seq++
	name := ""
	for {
		name = string(rune('a'+n%26)) + name
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return name
}

// SetupWorkdir allocates a fresh sibling subdirectory for repository (a
// module-relative path using forward slashes, "." for the module root),
// populates its CVS administrative files, and registers it as a directory
// child of the scratch root's CVS/Entries. Any cached GetRevision checkout
// is discarded, since it may belong to a workdir being superseded.
func (w *CVSWork) SetupWorkdir(repository string) (string, error) {
	name := w.nextWorkdirName()
	path := filepath.Join(w.scratchRoot, name)
	if err := os.MkdirAll(path, 0775); err != nil {
		return "", err
	}
	if err := writeCVSAdminFiles(path, w.cvsRoot, repository); err != nil {
		return "", err
	}
	if err := w.registerDirectoryChild(name); err != nil {
		return "", err
	}
	w.cachedFile, w.cachedRev, w.cachedPath = "", "", ""
	return path, nil
}

func (w *CVSWork) registerDirectoryChild(name string) error {
	entries := filepath.Join(w.scratchRoot, "CVS", "Entries")
	f, err := os.OpenFile(entries, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "D/%s////\n", name)
	return err
}

// GetSubdirs runs `cvs update -r00 -d -p <repository>` and scans its
// stderr for the "New directory" side-channel CVS uses to report immediate
// subdirectories.
func (w *CVSWork) GetSubdirs(repository string) ([]string, error) {
	res, err := runCVS(w.logger, w.scratchRoot, "cvs update -r00 -d -p "+shellQuote(repository))
	if err != nil {
		if _, ok := err.(*CVSCommandFailure); !ok {
			return nil, err
		}
	}
	var names []string
	for _, line := range strings.Split(res.Stderr, "\n") {
		m := reNewDirectory.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		full := m[1]
		name := full[strings.LastIndex(full, "/")+1:]
		if name == "." || name == ".." || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// ParseLogs runs `cvs log [-d<since>] <repository>` and streams the result
// through the log parser. An empty-directory response ("nothing known
// about" on stderr) is demoted to a logged warning, yielding no entries
// rather than an error.
func (w *CVSWork) ParseLogs(repository, since string) ([][]LogEntry, error) {
	cmd := "cvs log "
	if since != "" {
		cmd += "-d" + shellQuote(since) + " "
	}
	cmd += shellQuote(repository)

	res, err := runCVS(w.logger, w.scratchRoot, cmd)
	if err != nil {
		if cf, ok := err.(*CVSCommandFailure); ok && strings.Contains(cf.Stderr, nothingKnownAbout) {
			w.logger.Croak("warning: %s appears empty remotely (%s)", repository, nothingKnownAbout)
			return nil, nil
		}
		return nil, err
	}
	parser := NewLogParser(strings.NewReader(res.Stdout), repository)
	return parser.ParseFiles()
}

// GetRevision checks out file at rev with keyword expansion disabled
// (-ko, preserving bandwidth while the server still deltas the transfer)
// and returns its path in the workspace. A single-entry cache skips the
// checkout entirely when the same (file, rev) pair is requested twice in
// a row and the previously checked-out file is still present.
func (w *CVSWork) GetRevision(repository, file, rev string) (string, error) {
	if w.cachedFile == file && w.cachedRev == rev && w.cachedPath != "" {
		if _, err := os.Stat(w.cachedPath); err == nil {
			return w.cachedPath, nil
		}
	}
	target := repository + "/" + file
	if repository == "." || repository == "" {
		target = file
	}
	if _, err := runCVS(w.logger, w.scratchRoot, fmt.Sprintf("cvs update -ko -r%s %s", rev, shellQuote(target))); err != nil {
		return "", err
	}
	path := filepath.Join(w.scratchRoot, filepath.FromSlash(target))
	w.cachedFile, w.cachedRev, w.cachedPath = file, rev, path
	return path, nil
}
