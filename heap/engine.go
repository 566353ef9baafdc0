// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Engine: the partition chain, root table, and finalizer table bound
// together into one collector instance (spec.md §5).

package heap

import (
	"time"
	"unsafe"

	"github.com/cznic/mathutil"
)

// Engine owns the entire managed heap: the partition chain, the root
// table, and the finalizer table. Like dbm.DB wrapping one *lldb.Allocator,
// an Engine is the sole owner of its state; nothing about it is safe for
// concurrent use (spec.md Non-goals: no thread safety, no locking).
type Engine struct {
	opts       Options
	oldest     *partition
	active     *partition
	roots      *rootTable
	finalizers *finalizerTable
	free       freeList
	sink       sink
	metrics    *metrics
}

// New constructs an Engine ready to serve Alloc, applying defaults to any
// zero-valued Options field. There is no on-disk or Open counterpart —
// dbm.CreateMem's in-memory constructor is the only one of dbm's three
// (Create/Open/CreateMem) this domain has a use for, since spec.md's heap
// never persists.
func New(opts Options) *Engine {
	o := opts.withDefaults()

	e := &Engine{
		opts:       o,
		roots:      newRootTable(o.RefTableCapacity),
		finalizers: newFinalizerTable(),
		sink:       newSink(o.Logger),
		metrics:    newMetrics(o.Registerer),
	}

	p := newPartition(o.PartitionSize)
	e.oldest = p
	e.active = p
	e.metrics.partitionsTotal.Inc()
	e.sink.partitionCreated(unsafe.Pointer(p.base), p.capacity)

	return e
}

// Alloc rounds size up to pointer alignment, ensures partition capacity,
// bump-allocates (or reuses a free-list entry of sufficient size), zeroes
// the payload, and returns its address (spec.md §4.1 alloc). fin may be
// nil. Alloc never triggers a collection.
func (e *Engine) Alloc(size int64, fin *Finalizer) (unsafe.Pointer, error) {
	size = alignSize(size)

	if h := e.free.take(size); h != nil {
		return e.finishAlloc(h, fin), nil
	}

	if err := e.ensureCapacity(size); err != nil {
		return nil, err
	}

	h := e.active.bump(size)
	*h = blockHeader{size: uintptr(size)}
	return e.finishAlloc(h, fin), nil
}

func (e *Engine) finishAlloc(h *blockHeader, fin *Finalizer) unsafe.Pointer {
	h.finIdx = e.finalizers.add(fin)
	payload := payloadOf(h)
	clear(unsafe.Slice((*byte)(payload), int(h.size)))

	e.metrics.blocksAllocTotal.Inc()
	e.metrics.blocksAllocBytes.Add(float64(h.size))
	e.sink.blockAllocated(payload, int64(h.size))

	return payload
}

// ensureCapacity guarantees the active partition has at least n+headerSize
// free bytes at its tail, advancing active to an already-allocated
// successor or appending a fresh partition as needed (spec.md §4.1
// ensure_capacity).
func (e *Engine) ensureCapacity(n int64) error {
	need := n + int64(headerSize)

	for e.active.free() < need {
		if e.active.next != nil {
			e.active = e.active.next
			continue
		}

		if need > e.opts.PartitionSize {
			available := mathutil.MaxInt64(0, e.opts.PartitionSize-int64(headerSize))
			return &ErrBlockTooLarge{Size: n, Available: available}
		}

		p := newPartition(e.opts.PartitionSize)
		e.active.next = p
		e.active = p
		e.metrics.partitionsTotal.Inc()
		e.sink.partitionCreated(unsafe.Pointer(p.base), p.capacity)
	}

	return nil
}

// AllocReference installs p into a free root-table slot and returns the
// slot's stable address, the handle the host holds across collections
// (spec.md §4.3).
func (e *Engine) AllocReference(p unsafe.Pointer) (*unsafe.Pointer, error) {
	return e.roots.allocReference(p)
}

// FreeReference clears a previously allocated root-table slot.
func (e *Engine) FreeReference(slot *unsafe.Pointer) {
	e.roots.freeReference(slot)
}

// Collect runs one full collection using the configured back end
// (spec.md §4.5/§4.6), explicitly invoked by the host — this version never
// triggers collection automatically (spec.md Non-goals).
func (e *Engine) Collect() error {
	start := time.Now()

	var err error
	switch e.opts.Mode {
	case ModeMarkCompact:
		err = e.markCompact()
	default:
		err = e.markSweep()
	}

	e.metrics.collectionsTotal.WithLabelValues(e.opts.Mode.String()).Inc()
	e.metrics.collectionDuration.WithLabelValues(e.opts.Mode.String()).Observe(time.Since(start).Seconds())
	return err
}

// forEachBlock walks every block of every partition in age order, the
// shared linear traversal both collectors run their phases over (spec.md
// §4.5/§4.6 "walk every partition in age order", §8 property 1 "heap
// contiguity").
func (e *Engine) forEachBlock(fn func(p *partition, h *blockHeader)) {
	for p := e.oldest; p != nil; p = p.next {
		off := int64(firstBlockOffset)
		for off < p.endOffset {
			h := headerAt(p.base + uintptr(off))
			size := int64(h.size)
			fn(p, h)
			off += int64(headerSize) + size
		}
	}
}

// mark runs a standard reachability trace from every non-nil root,
// invoking visit for every non-nil reference it reaches and relying on
// visit's own idempotence check (a zero-to-nonzero gc_word transition,
// spec.md §9) to terminate on cycles: only when visit returns true is the
// block's own Mark callback traced. Both collectors' Mark phase pass the
// same kind of visit closure, which sets gc_word to 1 on first reach;
// mark-compact only differs from Plan onward.
func (e *Engine) mark(visit func(h *blockHeader) bool) {
	var op Op
	op = func(slot unsafe.Pointer) {
		p := *(*unsafe.Pointer)(slot)
		if p == nil {
			return
		}
		if !e.ownsBlock(p) {
			panic(&ErrBadTracer{Reason: "reference does not name a block header this engine owns", Addr: uintptr(p)})
		}
		h := headerOf(p)
		if !visit(h) {
			return
		}
		if fin := e.finalizers.get(h.finIdx); fin != nil && fin.Mark != nil {
			fin.Mark(p, op)
		}
	}

	e.roots.forEach(func(slot *unsafe.Pointer) {
		op(unsafe.Pointer(slot))
	})
}

// ownsBlock is the cheap, best-effort check behind ErrBadTracer: payload
// must be pointer-aligned and its header must lie entirely inside some
// partition this engine owns. It cannot detect every way a tracer could
// violate its contract (spec.md §7 leaves the rest undefined behavior),
// only the case a bad payload pointer makes cheap to catch before
// headerOf dereferences it into unrelated memory.
func (e *Engine) ownsBlock(payload unsafe.Pointer) bool {
	addr := uintptr(payload)
	if addr%uintptr(pointerSize) != 0 {
		return false
	}
	headerAddr := addr - uintptr(headerSize)
	for p := e.oldest; p != nil; p = p.next {
		if p.contains(headerAddr) && p.contains(addr) {
			return true
		}
	}
	return false
}
