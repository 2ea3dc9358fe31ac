// stringset - a small ordered string-set class.
//
// Grounded on reposurgeon's orderedStringSet (gitlab.com/esr/reposurgeon,
// set.go): optimizes for small memory footprint over speed, which is the
// right tradeoff for the handful-of-tags, handful-of-requires-tools lists
// cvssuck deals with.
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import (
	"fmt"
	"strings"
)

type orderedStringSet []string

func newOrderedStringSet(elements ...string) orderedStringSet {
	set := make(orderedStringSet, 0, len(elements))
	for _, el := range elements {
		set.Add(el)
	}
	return set
}

func (s orderedStringSet) Contains(item string) bool {
	for _, el := range s {
		if item == el {
			return true
		}
	}
	return false
}

func (s *orderedStringSet) Add(item string) {
	for _, el := range *s {
		if el == item {
			return
		}
	}
	*s = append(*s, item)
}

func (s orderedStringSet) String() string {
	if len(s) == 0 {
		return "[]"
	}
	var rep strings.Builder
	rep.WriteByte('[')
	for idx, el := range s {
		if idx > 0 {
			rep.WriteString(", ")
		}
		fmt.Fprintf(&rep, "%q", el)
	}
	rep.WriteByte(']')
	return rep.String()
}
