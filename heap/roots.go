// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The root table: stable, host-visible handles onto relocatable blocks.

package heap

import "unsafe"

// rootTable is spec.md §3 "Root table" / §4.3: a fixed-capacity array of
// reference slots. The address of a slot (&slots[i]) is the handle handed
// to the host; only its content moves, and only the collector moves it.
//
// allocReference/freeReference are the two-segment wrapping scan
// original_source/gc.c's norlit_allocReference implements directly:
//
//	for (; refTablePtr < REF_TABLE_SIZE; refTablePtr++) { ... }
//	for (refTablePtr = 0; refTablePtr < REF_TABLE_SIZE; refTablePtr++) { ... }
//
// translated to a remembered cursor plus one wraparound pass, the same
// "resume where the last scan stopped" trick lldb.flt's get/put lookup
// tables use to avoid a full bucket scan on every call.
type rootTable struct {
	slots     []unsafe.Pointer
	nextProbe int
}

func newRootTable(capacity int) *rootTable {
	return &rootTable{slots: make([]unsafe.Pointer, capacity)}
}

// allocReference scans for an empty slot starting at nextProbe, wrapping
// once, writes p into the first empty slot found, advances nextProbe past
// it, and returns the slot's address. It returns ErrRefTableFull if the
// table has no empty slot, matching the original's assert-and-abort with
// a recoverable error instead (spec.md §7).
func (t *rootTable) allocReference(p unsafe.Pointer) (*unsafe.Pointer, error) {
	if slot, ok := t.scan(t.nextProbe, len(t.slots)); ok {
		t.slots[slot] = p
		t.nextProbe = slot + 1
		return &t.slots[slot], nil
	}

	if slot, ok := t.scan(0, t.nextProbe); ok {
		t.slots[slot] = p
		t.nextProbe = slot + 1
		return &t.slots[slot], nil
	}

	return nil, &ErrRefTableFull{Capacity: len(t.slots)}
}

func (t *rootTable) scan(from, to int) (int, bool) {
	for i := from; i < to; i++ {
		if t.slots[i] == nil {
			return i, true
		}
	}
	return 0, false
}

// freeReference writes nil into *slot. The cursor is deliberately not
// rewound to the freed slot — spec.md §9 records this as a known property
// of the original: an allocation-heavy, free-heavy pattern can still
// force a full-table scan in the worst case, a cost this port keeps
// rather than "fixes", since nothing in spec.md asks for a different
// policy and changing it would make reclaimed slots preferentially reused
// in a way no test or invariant in spec.md §8 depends on.
func (t *rootTable) freeReference(slot *unsafe.Pointer) {
	*slot = nil
}

// forEach calls fn for every non-nil root slot, in slot order.
func (t *rootTable) forEach(fn func(slot *unsafe.Pointer)) {
	for i := range t.slots {
		if t.slots[i] != nil {
			fn(&t.slots[i])
		}
	}
}
