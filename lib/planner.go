// planner - decides which revisions to materialise locally, in what order.
//
// Grounded on reposurgeon's composable-policy shape: a small struct
// implementing a one-method interface, wrapped for decoration (see
// surgeon/vcs.go's VCS capability table and surgeon/inner.go's
// Repository.preservable()/exportStyle(), which compose orderedStringSets
// by rule in the same spirit).
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import (
	"sort"
	"time"
)

// PlanEntry is one instruction from a Planner: fetch RemoteDelta from the
// server, record it locally as LocalDelta, and (for trunk entries) place
// the file in or out of Attic per Attic.
type PlanEntry struct {
	RemoteDelta DeltaInfo
	LocalDelta  DeltaInfo
	Attic       *bool // nil for non-trunk revisions
}

// Planner transforms (RCSInfo, []DeltaInfo) into an ordered plan.
type Planner interface {
	Plan(info RCSInfo, deltas []DeltaInfo) ([]PlanEntry, error)
}

// synthetic11Author is the author recorded on a synthesized dead 1.1
// under the introduce-1.1 option.
const synthetic11Author = "cvssuck"

// epochRCSDate is the RCS-style date string for the Unix epoch, used for
// the synthesized 1.1 placeholder.
var epochRCSDate = time.Unix(0, 0).UTC().Format("2006/01/02 15:04:05")

func introduce11(deltas []DeltaInfo) []DeltaInfo {
	for _, d := range deltas {
		if d.Revision.Trunk() && d.Revision.String() == "1.1" {
			return deltas
		}
	}
	synthetic := DeltaInfo{
		Revision: MustParseRevision("1.1"),
		Date:     epochRCSDate,
		Author:   synthetic11Author,
		State:    DeadState,
	}
	return append([]DeltaInfo{synthetic}, deltas...)
}

// atticFor computes the Attic flag for a trunk plan entry: true only for
// the head revision, when that revision is dead and the remote RCS path
// is itself under Attic/.
func atticFor(info RCSInfo, delta DeltaInfo) bool {
	return delta.Dead() && delta.Revision.Equal(info.Head) && info.Attic()
}

// ExactPlanner yields every delta, sorted by revision order.
type ExactPlanner struct {
	Introduce11 bool
}

// Plan implements Planner.
func (ep ExactPlanner) Plan(info RCSInfo, deltas []DeltaInfo) ([]PlanEntry, error) {
	work := deltas
	if ep.Introduce11 {
		work = introduce11(work)
	}
	sorted := make([]DeltaInfo, len(work))
	copy(sorted, work)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Revision.Less(sorted[j].Revision) })

	plan := make([]PlanEntry, 0, len(sorted))
	for _, d := range sorted {
		entry := PlanEntry{RemoteDelta: d, LocalDelta: d}
		if d.Revision.Trunk() {
			attic := atticFor(info, d)
			entry.Attic = &attic
		}
		plan = append(plan, entry)
	}
	return plan, nil
}

// SkeletonPlanner wraps another Planner and retains only topologically
// significant revisions: the overall extremes, the last revision before
// each branch transition together with the branch point of the revision
// after it, revision 1.1, and tag targets (or their branch points, for
// magic-branch tags). Stacking SkeletonPlanner around another
// SkeletonPlanner is idempotent: the second pass keeps exactly the set the
// first pass already reduced to, since that set already contains every
// extreme, transition revision, 1.1, and tag target of itself.
type SkeletonPlanner struct {
	Wrapped     Planner
	Introduce11 bool
}

// Plan implements Planner.
func (sp SkeletonPlanner) Plan(info RCSInfo, deltas []DeltaInfo) ([]PlanEntry, error) {
	work := deltas
	if sp.Introduce11 {
		work = introduce11(work)
	}
	if len(work) == 0 {
		return sp.Wrapped.Plan(info, work)
	}

	byRev := make(map[string]DeltaInfo, len(work))
	sorted := make([]DeltaInfo, len(work))
	copy(sorted, work)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Revision.Less(sorted[j].Revision) })
	for _, d := range sorted {
		byRev[d.Revision.String()] = d
	}

	keep := newOrderedStringSet()
	keep.Add(sorted[0].Revision.String())
	keep.Add(sorted[len(sorted)-1].Revision.String())

	for i := 0; i+1 < len(sorted); i++ {
		r1, r2 := sorted[i].Revision, sorted[i+1].Revision
		if !r1.SameBranch(r2) {
			keep.Add(r1.String())
			if !r2.Trunk() {
				keep.Add(r2.BranchPoint().String())
			}
		}
	}

	if _, ok := byRev["1.1"]; ok {
		keep.Add("1.1")
	}

	for _, tag := range info.Tags {
		if tag.Revision.MagicBranch() {
			keep.Add(tag.Revision.BranchPoint().String())
		} else {
			keep.Add(tag.Revision.String())
		}
	}

	var filtered []DeltaInfo
	for _, d := range sorted {
		if keep.Contains(d.Revision.String()) {
			filtered = append(filtered, d)
		}
	}
	// Entries in keep without a matching delta (e.g. a tag's branch point
	// that never itself appears as a delta) are silently dropped.
	return sp.Wrapped.Plan(info, filtered)
}
