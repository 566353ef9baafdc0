// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gc is the public façade of a precise, tracing, single-threaded
// garbage collector: a fixed-capacity root table over a bump-allocated
// heap of fixed-size partitions, reclaimed by either an in-place
// mark-sweep pass or a relocating mark-compact pass.
//
// Like dbm.DB wrapping *lldb.Allocator, GC is a thin shell around the
// heap package's engine: each method passes its arguments straight
// through, and all of the actual bookkeeping and error checking lives
// there.
package gc

import (
	"unsafe"

	"github.com/nbdd0121/PreciseGC/heap"
)

// Re-exported so callers need import only this package for the common
// case.
type (
	Options   = heap.Options
	Mode      = heap.Mode
	Finalizer = heap.Finalizer
	MarkFunc  = heap.MarkFunc
	Op        = heap.Op
)

const (
	ModeMarkSweep   = heap.ModeMarkSweep
	ModeMarkCompact = heap.ModeMarkCompact
)

// GC is one collector instance. It owns its entire heap exclusively;
// nothing about it may be shared across goroutines (there is no lock to
// take, and none is permitted — callbacks run on the calling goroutine and
// must not re-enter the API).
type GC struct {
	engine *heap.Engine
}

// New constructs a GC with the given Options. A zero Options value is
// valid and selects mark-sweep with the default partition size and root
// table capacity and a disabled logging/metrics sink — the equivalent of
// dbm.CreateMem for a domain that never has an on-disk form at all.
func New(opts Options) *GC {
	return &GC{engine: heap.New(opts)}
}

// Alloc carves size bytes out of the heap, attaches fin (which may be
// nil), zeroes the payload, and returns it. The returned pointer is valid
// only until the next Collect call that relocates its block; callers that
// need a pointer to survive a collection must hold it through a reference
// obtained from AllocReference.
func (g *GC) Alloc(size int64, fin *Finalizer) (unsafe.Pointer, error) {
	return g.engine.Alloc(size, fin)
}

// AllocReference installs p (which may be nil) into the root table and
// returns the stable address of its slot. The collector treats every
// non-nil root slot as a reachability root and keeps its content current
// across relocation; it is the caller's responsibility to release the
// slot with FreeReference or it is retained (and leaked) forever.
func (g *GC) AllocReference(p unsafe.Pointer) (*unsafe.Pointer, error) {
	return g.engine.AllocReference(p)
}

// FreeReference releases a slot previously returned by AllocReference.
// Calling it with any other address is undefined behavior.
func (g *GC) FreeReference(slot *unsafe.Pointer) {
	g.engine.FreeReference(slot)
}

// Collect runs one full collection synchronously, using whichever back
// end Options.Mode selected at construction.
func (g *GC) Collect() error {
	return g.engine.Collect()
}
