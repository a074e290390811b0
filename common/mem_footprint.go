// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MemoryFootprint describes the memory consumption of a collection, a cache
// or a store, organized as a tree of named components.
type MemoryFootprint struct {
	value    uintptr
	children map[string]*MemoryFootprint
}

// NewMemoryFootprint creates a new MemoryFootprint for a structure consuming
// the given number of bytes, excluding its sub-components.
func NewMemoryFootprint(value uintptr) *MemoryFootprint {
	return &MemoryFootprint{
		value:    value,
		children: map[string]*MemoryFootprint{},
	}
}

// AddChild attaches the footprint of a named sub-component. Nil children are
// ignored.
func (mf *MemoryFootprint) AddChild(name string, child *MemoryFootprint) {
	if child != nil {
		mf.children[name] = child
	}
}

// Value provides the amount of bytes consumed by the structure itself.
func (mf *MemoryFootprint) Value() uintptr {
	return mf.value
}

// Total provides the amount of bytes consumed including all sub-components.
// Components shared by several parents are only counted once.
func (mf *MemoryFootprint) Total() uintptr {
	return mf.total(map[*MemoryFootprint]bool{})
}

func (mf *MemoryFootprint) total(seen map[*MemoryFootprint]bool) uintptr {
	if seen[mf] {
		return 0
	}
	seen[mf] = true
	res := mf.value
	for _, child := range mf.children {
		res += child.total(seen)
	}
	return res
}

// String renders the footprint as a tree, one line per component, children
// sorted by name.
func (mf *MemoryFootprint) String() string {
	var sb strings.Builder
	mf.print(&sb, ".")
	return sb.String()
}

func (mf *MemoryFootprint) print(sb *strings.Builder, path string) {
	fmt.Fprintf(sb, "%s %s\n", formatBytes(mf.Total()), path)
	names := maps.Keys(mf.children)
	slices.Sort(names)
	for _, name := range names {
		mf.children[name].print(sb, path+"/"+name)
	}
}

func formatBytes(bytes uintptr) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	const prefixes = "KMGTPE"
	div, exp := uint64(unit), 0
	for n := uint64(bytes) / unit; n >= unit && exp+1 < len(prefixes); n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), prefixes[exp])
}
