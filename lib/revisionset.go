// revisionset - the set of known revisions for one RCS file, plus the
// per-branch head bookkeeping that drives checkin ordering.
//
// Grounded on reposurgeon's fastOrderedIntSet (surgeon/inner.go), which
// wraps github.com/emirpasic/gods/sets/linkedhashset to get insertion-order
// iteration with set semantics "for free"; we do the same here, keyed by
// the revision's dotted-string form, and layer the branch-head map and the
// Checkinable decision procedure on top.
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import (
	orderedset "github.com/emirpasic/gods/sets/linkedhashset"
)

// RevisionSet tracks the revisions known to be present in an RCS file (or
// planned for insertion) and the head revision of every branch seen so far.
type RevisionSet struct {
	members *orderedset.Set         // of dotted revision strings (Revision.String())
	byKey   map[string]Revision     // dotted-string -> Revision, for lookup
	heads   map[BranchKey]Revision  // branch -> max-ordered member on that branch
}

// NewRevisionSet builds an empty RevisionSet.
func NewRevisionSet() *RevisionSet {
	return &RevisionSet{
		members: orderedset.New(),
		byKey:   make(map[string]Revision),
		heads:   make(map[BranchKey]Revision),
	}
}

// Add inserts rev, updating the branch head if rev now dominates it.
// Invariant: for every R in the set, head[branch(R)] >= R.
func (rs *RevisionSet) Add(rev Revision) {
	key := rev.String()
	if _, present := rs.byKey[key]; present {
		return
	}
	rs.members.Add(key)
	rs.byKey[key] = rev
	branch := rev.Key()
	if head, ok := rs.heads[branch]; !ok || head.Less(rev) {
		rs.heads[branch] = rev
	}
}

// Contains reports whether rev has already been recorded.
func (rs *RevisionSet) Contains(rev Revision) bool {
	_, ok := rs.byKey[rev.String()]
	return ok
}

// Head returns the maximum-ordered member of the given branch, if any.
func (rs *RevisionSet) Head(branch BranchKey) (Revision, bool) {
	h, ok := rs.heads[branch]
	return h, ok
}

// Size returns the number of distinct revisions recorded.
func (rs *RevisionSet) Size() int {
	return rs.members.Size()
}

// Values returns the recorded revisions in insertion order.
func (rs *RevisionSet) Values() []Revision {
	out := make([]Revision, 0, rs.members.Size())
	it := rs.members.Iterator()
	for it.Next() {
		out = append(out, rs.byKey[it.Value().(string)])
	}
	return out
}

// Checkinable answers the decision table: can rev be checked in
// against the current state of this set, and if so, against which
// predecessor. The zero Revision, with ok=true, means "no predecessor to
// lock" - only true for a file's very first trunk revision, which ci
// creates outright. The first revision on a new branch still returns a
// predecessor: the branch point itself, which must be rcs -l-locked
// before the branch insert, exactly as a second-or-later trunk revision
// locks its own predecessor.
func (rs *RevisionSet) Checkinable(rev Revision) (predecessor Revision, ok bool) {
	if rev.Branch() {
		// A bare branch number, not a checked-in delta: never insertable.
		return Revision{}, false
	}
	branch := rev.Key()
	if head, present := rs.heads[branch]; present {
		if head.Less(rev) {
			return head, true
		}
		return Revision{}, false
	}
	if branch == TrunkKey {
		return Revision{}, true
	}
	branchPoint := rev.BranchPoint()
	if rs.Contains(branchPoint) {
		return branchPoint, true
	}
	return Revision{}, false
}
