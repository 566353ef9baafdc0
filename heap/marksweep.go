// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

// markSweep implements spec.md §4.5: mark from roots, then sweep every
// partition converting unreachable blocks into free-list entries and
// running finalizers. The free list is rebuilt from scratch on every
// sweep rather than accreted across collections, since a block left over
// from a prior sweep and never reused is, by construction, still
// unreachable and gets rediscovered and relinked here regardless. Dead
// blocks after a partition's last live block are cut off its tail instead
// of staying on the free list, so a partition with no live block left is
// empty again (endOffset back at firstBlockOffset).
func (e *Engine) markSweep() error {
	e.mark(func(h *blockHeader) bool {
		if h.gcWord != 0 {
			return false
		}
		h.gcWord = 1
		e.sink.blockMarked(payloadOf(h), int64(h.size))
		return true
	})

	e.free.reset()

	var liveBytes, liveBlocks int64

	e.forEachBlock(func(p *partition, h *blockHeader) {
		if h.gcWord != 0 {
			h.gcWord = 0
			liveBytes += int64(h.size)
			liveBlocks++
			return
		}

		e.finalize(h)
		e.free.put(h, int64(h.size))
	})

	for p := e.oldest; p != nil; p = p.next {
		liveEnd := int64(firstBlockOffset)
		var tail []*blockHeader
		for off := liveEnd; off < p.endOffset; {
			h := headerAt(p.base + uintptr(off))
			off += int64(headerSize) + int64(h.size)
			if tail = append(tail, h); !h.free {
				tail, liveEnd = tail[:0], off
			}
		}
		for _, h := range tail {
			e.free.unlink(h, floorBucket(int64(h.size)))
		}
		p.endOffset = liveEnd
	}

	e.metrics.liveBytes.Set(float64(liveBytes))
	e.metrics.liveBlocks.Set(float64(liveBlocks))

	return nil
}

// finalize runs h's finalizer, if any, and releases its finalizer-table
// slot. Shared by both collectors' dead-block handling (spec.md §4.5
// sweep step / §4.6 phase 4).
func (e *Engine) finalize(h *blockHeader) {
	if fin := e.finalizers.get(h.finIdx); fin != nil && fin.Finalize != nil {
		fin.Finalize(payloadOf(h))
		e.sink.blockFinalized(payloadOf(h))
		e.metrics.blocksFinalized.Inc()
	}
	e.finalizers.release(h.finIdx)
	h.finIdx = 0
}
