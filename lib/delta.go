// delta - the immutable per-revision and per-file records produced by the
// log parser and consumed by the planners and the local RCS writer.
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import "strings"

// DeadState is the RCS/CVS state string meaning "this revision is a
// deletion placeholder".
const DeadState = "dead"

// DeltaInfo is one revision's worth of metadata as reported by cvs log.
type DeltaInfo struct {
	Revision Revision
	Date     string // RCS-style date string, preserved verbatim
	Author   string
	State    string // "dead" or some other state, usually "Exp"
	Branches []Revision
	Log      string
}

// Dead reports whether this delta represents a deletion.
func (d DeltaInfo) Dead() bool {
	return d.State == DeadState
}

// SymbolicName is one (tag, revision) pair from an RCS "symbolic names:"
// block.
type SymbolicName struct {
	Tag      string
	Revision Revision
}

// RCSInfo is the immutable per-file header parsed from cvs log / rlog.
type RCSInfo struct {
	RCSPath       string // path as reported by "RCS file:"
	WorkingFile   string // last path component only
	Head          Revision
	DefaultBranch Revision // zero value (Valid()==false) if absent
	Tags          []SymbolicName
	KeywordMode   string // e.g. "kv", "b" (without the -k prefix)
	Description   string
}

// Attic is a syntactic test of the rcs path: true iff the file lives under
// an Attic/ directory element.
func (r RCSInfo) Attic() bool {
	return pathHasAtticElement(r.RCSPath)
}

func pathHasAtticElement(p string) bool {
	for _, el := range strings.Split(p, "/") {
		if el == "Attic" {
			return true
		}
	}
	return false
}
