// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

// finalizerTable is a normal, pointer-typed Go slice holding the
// finalizer descriptors attached to live blocks, indexed by the finIdx
// each blockHeader carries. Keeping it separate from the raw partition
// arena (see block.go's doc comment) is what lets *Finalizer values be
// ordinary, GC-traced Go pointers instead of bytes the runtime can't see
// into. Slot 0 is a permanent sentinel meaning "no finalizer".
type finalizerTable struct {
	entries []*Finalizer
	free    []int32
}

func newFinalizerTable() *finalizerTable {
	return &finalizerTable{entries: []*Finalizer{nil}}
}

// add registers f, returning the index to store in a blockHeader.finIdx.
// A nil f is the common case (most blocks have no finalizer) and is
// encoded as index 0 without consuming a table slot.
func (t *finalizerTable) add(f *Finalizer) int32 {
	if f == nil {
		return 0
	}

	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		t.entries[idx] = f
		return idx
	}

	t.entries = append(t.entries, f)
	return int32(len(t.entries) - 1)
}

func (t *finalizerTable) get(idx int32) *Finalizer {
	if idx == 0 {
		return nil
	}
	return t.entries[idx]
}

// release returns idx to the free list and drops the table's reference to
// the descriptor, so it can be collected by Go's own garbage collector
// once the host has no other reference to it.
func (t *finalizerTable) release(idx int32) {
	if idx == 0 {
		return
	}
	t.entries[idx] = nil
	t.free = append(t.free, idx)
}
