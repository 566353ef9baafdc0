// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Heap partition bump allocation.

package heap

import "unsafe"

// partition is spec.md §3 "Heap partition": a contiguous, fixed-capacity
// region serving bump-pointer allocations. mem is the single backing
// array; blocks are carved out of it header-then-payload, contiguously,
// from offset 0 up to endOffset, the same invariant lldb.falloc.go
// maintains for its file-backed blocks except here the "file" is a Go
// byte slice and the "offset" is a real memory address once the slice is
// allocated.
type partition struct {
	mem           []byte
	base          uintptr // uintptr(unsafe.Pointer(&mem[0]))
	capacity      int64
	endOffset     int64
	compactOffset int64 // scratch used only during compaction planning
	next          *partition
}

func newPartition(size int64) *partition {
	mem := make([]byte, size)
	return &partition{
		mem:      mem,
		base:     uintptr(unsafe.Pointer(&mem[0])),
		capacity: size,
	}
}

// contains reports whether addr names a byte inside this partition's
// backing array.
func (p *partition) contains(addr uintptr) bool {
	return addr >= p.base && addr < p.base+uintptr(p.capacity)
}

// bump returns the header address of a new block of the given payload
// size at the partition's current tail and advances endOffset past it.
// The caller (Engine.ensureCapacity) must already have verified the
// space fits.
func (p *partition) bump(payloadSize int64) *blockHeader {
	addr := p.base + uintptr(p.endOffset)
	p.endOffset += int64(headerSize) + payloadSize
	return headerAt(addr)
}

// free reports the unused tail capacity of the partition.
func (p *partition) free() int64 {
	return p.capacity - p.endOffset
}

// firstBlockOffset is the offset of the first possible block in any
// partition; block iteration (spec.md §8 property 1) starts here.
const firstBlockOffset = 0
