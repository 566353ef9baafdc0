// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "unsafe"

// markCompact implements spec.md §4.6's four phases end to end: mark,
// plan destination addresses, rewrite every reference to its forwarded
// destination, then relocate and finalize. A fifth, bookkeeping-only step
// repositions active.
func (e *Engine) markCompact() error {
	e.mark(func(h *blockHeader) bool {
		if h.gcWord != 0 {
			return false
		}
		h.gcWord = 1
		e.sink.blockMarked(payloadOf(h), int64(h.size))
		return true
	})

	finish := e.planCompaction()
	e.rewriteReferences()
	e.relocateAndFinalize()

	e.active = finish
	return nil
}

// planCompaction is Phase 2. It walks every block in age-then-address
// order and, for each reachable one, bump-allocates its destination
// header address out of a compaction cursor that starts at the oldest
// partition's first block offset, storing the result into the block's
// own gc_word in place of the reachability bit (the two never need to
// coexist: a block is either being marked or being planned, never both).
// It returns the partition the cursor finished in, the partition Phase 5
// hands to active.
func (e *Engine) planCompaction() *partition {
	for p := e.oldest; p != nil; p = p.next {
		p.compactOffset = 0
	}

	cursor := e.oldest
	offset := int64(firstBlockOffset)

	e.forEachBlock(func(p *partition, h *blockHeader) {
		if h.gcWord == 0 {
			return // unreachable; forwarding slot stays zero
		}

		need := int64(headerSize) + int64(h.size)
		for cursor.capacity-offset < need {
			cursor.compactOffset = offset
			if cursor.next == nil {
				panic("heap: mark-compact cursor exhausted the partition chain")
			}
			cursor = cursor.next
			offset = int64(firstBlockOffset)
		}

		h.gcWord = uintptr(cursor.base + uintptr(offset))
		offset += need
	})

	cursor.compactOffset = offset
	return cursor
}

// rewriteReferences is Phase 3: update every root slot and every
// reachable block's outbound references to the forwarded address stored
// in the referent's gc_word, entirely in source positions — no data has
// moved yet.
func (e *Engine) rewriteReferences() {
	var op Op
	op = func(slot unsafe.Pointer) {
		old := *(*unsafe.Pointer)(slot)
		if old == nil {
			return
		}
		if !e.ownsBlock(old) {
			panic(&ErrBadTracer{Reason: "reference does not name a block header this engine owns", Addr: uintptr(old)})
		}
		h := headerOf(old)
		if h.gcWord == 0 {
			return
		}

		updated := payloadOf(headerAt(h.gcWord))
		if updated == old {
			return
		}
		*(*unsafe.Pointer)(slot) = updated
		e.sink.referenceUpdated(slot, old, updated)
	}

	e.roots.forEach(func(slot *unsafe.Pointer) {
		op(unsafe.Pointer(slot))
	})

	e.forEachBlock(func(p *partition, h *blockHeader) {
		if h.gcWord == 0 {
			return
		}
		if fin := e.finalizers.get(h.finIdx); fin != nil && fin.Mark != nil {
			fin.Mark(payloadOf(h), op)
		}
	})
}

// relocateAndFinalize is Phase 4: finalize every unreachable block, then
// slide every reachable block down to its forwarded destination with an
// overlap-tolerant move (Go's copy, which is memmove under the hood,
// needs no help here — spec.md's "memory-move that tolerates overlap" is
// the standard library's default behavior, not a routine to write).
// Afterward every partition's end_offset collapses to the compaction
// cursor's final offset within it.
func (e *Engine) relocateAndFinalize() {
	var liveBytes, liveBlocks int64

	e.forEachBlock(func(p *partition, h *blockHeader) {
		if h.gcWord == 0 {
			e.finalize(h)
			return
		}

		dest := headerAt(h.gcWord)
		size := int64(headerSize) + int64(h.size)

		if dest != h {
			srcPayload := payloadOf(h)
			copy(unsafe.Slice((*byte)(unsafe.Pointer(dest)), size), unsafe.Slice((*byte)(unsafe.Pointer(h)), size))
			e.sink.blockRelocated(srcPayload, payloadOf(dest))
			e.metrics.blocksRelocated.Inc()
		}

		dest.gcWord = 0
		liveBytes += int64(dest.size)
		liveBlocks++
	})

	for p := e.oldest; p != nil; p = p.next {
		p.endOffset = p.compactOffset
	}

	e.metrics.liveBytes.Set(float64(liveBytes))
	e.metrics.liveBlocks.Set(float64(liveBlocks))
}
