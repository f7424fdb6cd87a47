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
	"sort"
	"strings"
)

// MemoryFootprintProvider is implemented by all components able to report
// their memory usage.
type MemoryFootprintProvider interface {
	GetMemoryFootprint() *MemoryFootprint
}

// MemoryFootprint describes the memory consumption of a component and its
// sub-components as a tree.
type MemoryFootprint struct {
	value    uintptr
	children map[string]*MemoryFootprint
	note     string
}

// NewMemoryFootprint creates a new MemoryFootprint for a component owning the
// given number of bytes, excluding its sub-components.
func NewMemoryFootprint(value uintptr) *MemoryFootprint {
	return &MemoryFootprint{
		value:    value,
		children: make(map[string]*MemoryFootprint),
	}
}

// AddChild attaches the footprint of a sub-component. Nil children are ignored.
func (mf *MemoryFootprint) AddChild(name string, child *MemoryFootprint) {
	if child != nil {
		mf.children[name] = child
	}
}

// SetNote attaches a free-text note printed next to this component.
func (mf *MemoryFootprint) SetNote(note string) {
	mf.note = note
}

// Value provides the number of bytes consumed by the component itself.
func (mf *MemoryFootprint) Value() uintptr {
	return mf.value
}

// Total provides the number of bytes consumed by the component including all
// its sub-components. Shared sub-components are only counted once.
func (mf *MemoryFootprint) Total() uintptr {
	return mf.total(map[*MemoryFootprint]bool{})
}

func (mf *MemoryFootprint) total(seen map[*MemoryFootprint]bool) uintptr {
	if seen[mf] {
		return 0
	}
	seen[mf] = true
	total := mf.value
	for _, child := range mf.children {
		total += child.total(seen)
	}
	return total
}

// String prints the tree with sub-components before their parents, children
// ordered by name.
func (mf *MemoryFootprint) String() string {
	var sb strings.Builder
	mf.print(&sb, ".")
	return sb.String()
}

func (mf *MemoryFootprint) print(sb *strings.Builder, path string) {
	names := make([]string, 0, len(mf.children))
	for name := range mf.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mf.children[name].print(sb, path+"/"+name)
	}
	writeMemoryAmount(sb, mf.Total())
	sb.WriteRune(' ')
	sb.WriteString(path)
	if mf.note != "" {
		sb.WriteRune(' ')
		sb.WriteString(mf.note)
	}
	sb.WriteRune('\n')
}

func writeMemoryAmount(sb *strings.Builder, bytes uintptr) {
	const unit = 1024
	const prefixes = " KMGTPE"
	value := float64(bytes)
	exp := 0
	for value >= unit && exp+1 < len(prefixes) {
		value /= unit
		exp++
	}
	fmt.Fprintf(sb, "%6.1f %cB", value, prefixes[exp])
}
