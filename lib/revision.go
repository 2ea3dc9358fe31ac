// revision - dotted-numeric RCS/CVS revision identity.
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import (
	"fmt"
	"strconv"
	"strings"
)

// Revision is an ordered sequence of non-negative integers of length >= 2,
// e.g. 1.3 (trunk), 1.2.2.1 (branch), 1.2.0.2 (magic branch tag); zero
// appears only in the next-to-last slot of a magic branch tag.
type Revision struct {
	parts []int
}

// ParseRevision parses a dotted-numeric string like "1.2.2.1".
func ParseRevision(s string) (Revision, error) {
	fields := strings.Split(s, ".")
	if len(fields) < 2 {
		return Revision{}, fmt.Errorf("revision %q: fewer than two components", s)
	}
	parts := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return Revision{}, fmt.Errorf("revision %q: component %q is not a non-negative integer", s, f)
		}
		parts[i] = n
	}
	return Revision{parts: parts}, nil
}

// MustParseRevision is ParseRevision for callers that already know the
// string is well-formed (table literals, tests).
func MustParseRevision(s string) Revision {
	r, err := ParseRevision(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String renders the dotted-numeric form.
func (r Revision) String() string {
	fields := make([]string, len(r.parts))
	for i, p := range r.parts {
		fields[i] = strconv.Itoa(p)
	}
	return strings.Join(fields, ".")
}

// Valid reports whether this Revision holds a parsed value.
func (r Revision) Valid() bool {
	return len(r.parts) >= 2
}

// Len returns the number of dotted components.
func (r Revision) Len() int {
	return len(r.parts)
}

// Trunk is true iff the revision has exactly two components, e.g. 1.3.
func (r Revision) Trunk() bool {
	return len(r.parts) == 2
}

// Branch is true iff the revision's component count is odd (1.2.1, 1.2.2.1.1).
func (r Revision) Branch() bool {
	return len(r.parts)%2 == 1
}

// MagicBranch is true iff the component count is even, >= 4, and the
// next-to-last component is 0 - CVS's notation for a branch tag whose
// revisions do not yet exist, e.g. 1.2.0.2 names the branch rooted at 1.2.
func (r Revision) MagicBranch() bool {
	n := len(r.parts)
	return n%2 == 0 && n >= 4 && r.parts[n-2] == 0
}

// BranchOf drops the last component. Valid only on non-branch revisions
// (trunk, branch-delta such as 1.2.2.1, or magic-branch revisions); it
// yields the branch identity that revision belongs to.
func (r Revision) BranchOf() Revision {
	if r.Branch() {
		panic(fmt.Sprintf("BranchOf called on branch revision %s", r))
	}
	return Revision{parts: append([]int(nil), r.parts[:len(r.parts)-1]...)}
}

// BranchPoint drops the last two components, yielding the revision a
// branch delta forked from (e.g. 1.2.2.1 -> 1.2, or 1.2.0.2 -> 1.2 for a
// magic branch tag). Callers pass non-trunk delta revisions and
// magic-branch tags (both even length >= 4); any revision of length >= 3
// is accepted, and a trunk revision panics.
func (r Revision) BranchPoint() Revision {
	if r.Trunk() || len(r.parts) < 3 {
		panic(fmt.Sprintf("BranchPoint called on trunk or malformed revision %s", r))
	}
	return Revision{parts: append([]int(nil), r.parts[:len(r.parts)-2]...)}
}

// Compare implements the total ordering: lexicographic on the integer
// sequence, with shorter sequences ordered before longer ones sharing the
// same prefix. Returns <0, 0, >0 like strings.Compare.
func (r Revision) Compare(other Revision) int {
	n := len(r.parts)
	if len(other.parts) < n {
		n = len(other.parts)
	}
	for i := 0; i < n; i++ {
		if r.parts[i] != other.parts[i] {
			if r.parts[i] < other.parts[i] {
				return -1
			}
			return 1
		}
	}
	if len(r.parts) == len(other.parts) {
		return 0
	}
	if len(r.parts) < len(other.parts) {
		return -1
	}
	return 1
}

// Less reports whether r sorts strictly before other.
func (r Revision) Less(other Revision) bool {
	return r.Compare(other) < 0
}

// Equal reports value equality of the dotted component sequence.
func (r Revision) Equal(other Revision) bool {
	if len(r.parts) != len(other.parts) {
		return false
	}
	for i := range r.parts {
		if r.parts[i] != other.parts[i] {
			return false
		}
	}
	return true
}

// SameBranch reports whether r and other name revisions on the same branch:
// same length and equal on every component but the last - with the
// exception that any two trunk revisions (length 2) are always considered
// on the same branch.
func (r Revision) SameBranch(other Revision) bool {
	if r.Trunk() && other.Trunk() {
		return true
	}
	if len(r.parts) != len(other.parts) {
		return false
	}
	for i := 0; i < len(r.parts)-1; i++ {
		if r.parts[i] != other.parts[i] {
			return false
		}
	}
	return true
}

// BranchKey is the map key used by RevisionSet to track per-branch heads.
// Trunk is keyed by TrunkKey, the distinguished "no branch" sentinel.
type BranchKey string

// TrunkKey is the sentinel BranchKey for trunk.
const TrunkKey BranchKey = ""

// Key returns the BranchKey of the branch r belongs to: TrunkKey for any
// trunk revision, else the dotted branch identifier obtained by dropping
// r's last component (e.g. 1.2.2.1 -> "1.2.2").
func (r Revision) Key() BranchKey {
	if r.Trunk() {
		return TrunkKey
	}
	return BranchKey(r.BranchOf().String())
}
