// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"testing"
	"unsafe"
)

// singleChildMark treats the first pointerSize bytes of payload as one
// outbound reference slot, the same device original_source/test.c's
// singleRefMark uses: mark(payload, op) calling op(payload) directly,
// since the slot and the payload start at the same address.
func singleChildMark(payload unsafe.Pointer, op Op) {
	op(payload)
}

func setChild(payload unsafe.Pointer, child unsafe.Pointer) {
	*(*unsafe.Pointer)(payload) = child
}

func getChild(payload unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(payload)
}

func testEngine(t *testing.T, mode Mode) *Engine {
	t.Helper()
	return New(Options{Mode: mode, PartitionSize: 1 << 16, RefTableCapacity: 64})
}

// TestTrivialSweep is spec scenario S1: three unrooted, finalizer-free
// blocks are all reclaimed and the active partition collapses to empty.
func TestTrivialSweep(t *testing.T) {
	e := testEngine(t, ModeMarkSweep)

	for i := 0; i < 3; i++ {
		if _, err := e.Alloc(8, nil); err != nil {
			t.Fatal(err)
		}
	}

	if err := e.Collect(); err != nil {
		t.Fatal(err)
	}

	if e.active.endOffset != firstBlockOffset {
		t.Fatalf("active.endOffset = %d, want %d after reclaiming everything", e.active.endOffset, firstBlockOffset)
	}
}

// TestRootedRetention is spec scenario S2: only the rooted object survives
// a collection, and the root slot tracks its (possibly new) address.
func TestRootedRetention(t *testing.T) {
	e := testEngine(t, ModeMarkSweep)

	var finalized int
	fin := &Finalizer{
		Mark:     singleChildMark,
		Finalize: func(unsafe.Pointer) { finalized++ },
	}

	mustAlloc(t, e, 8, nil)
	mustAlloc(t, e, 8, fin)
	mustAlloc(t, e, 8, nil)
	d := mustAlloc(t, e, 8, fin)

	r, err := e.AllocReference(d)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Collect(); err != nil {
		t.Fatal(err)
	}

	if *r == nil {
		t.Fatal("root slot went nil across a collection that should have retained D")
	}

	var live int
	e.forEachBlock(func(p *partition, h *blockHeader) {
		if !h.free {
			live++
		}
	})
	if live != 1 {
		t.Fatalf("%d blocks live, want exactly 1 (D)", live)
	}
	if finalized != 1 {
		t.Fatalf("finalizer ran %d times, want exactly 1 (B)", finalized)
	}
}

// TestReferenceRewrite is spec scenario S3 continued on a fresh heap:
// pointing D's child reference at G keeps G alive across a collection,
// with D's child slot still holding G's address.
func TestReferenceRewrite(t *testing.T) {
	e := testEngine(t, ModeMarkSweep)

	fin := &Finalizer{Mark: singleChildMark}

	d := mustAlloc(t, e, 8, fin)
	r, err := e.AllocReference(d)
	if err != nil {
		t.Fatal(err)
	}

	mustAlloc(t, e, 8, nil)      // E, no-fin
	mustAlloc(t, e, 8, fin)      // F, single-ref-mark, unrooted
	g := mustAlloc(t, e, 8, nil) // G

	setChild(*r, g)

	if err := e.Collect(); err != nil {
		t.Fatal(err)
	}

	if getChild(*r) != g {
		t.Fatal("D's child slot does not point at G's surviving address")
	}
}

// TestRootRelease is spec scenario S4: releasing the last root reclaims
// everything and runs the finalizer exactly once.
func TestRootRelease(t *testing.T) {
	e := testEngine(t, ModeMarkSweep)

	var finalized int
	fin := &Finalizer{
		Mark:     singleChildMark,
		Finalize: func(unsafe.Pointer) { finalized++ },
	}

	d := mustAlloc(t, e, 8, fin)
	g := mustAlloc(t, e, 8, nil)
	setChild(d, g)

	r, err := e.AllocReference(d)
	if err != nil {
		t.Fatal(err)
	}

	e.FreeReference(r)

	if err := e.Collect(); err != nil {
		t.Fatal(err)
	}

	if finalized != 1 {
		t.Fatalf("finalizer ran %d times, want exactly 1", finalized)
	}

	var live int
	e.forEachBlock(func(p *partition, h *blockHeader) {
		if !h.free {
			live++
		}
	})
	if live != 0 {
		t.Fatalf("%d blocks still live after releasing the only root", live)
	}
}

// TestBadTracerPanics is spec.md §7's best-effort contract check: a Mark
// callback handing the engine a reference slot that doesn't resolve to a
// block this engine owns must panic with *ErrBadTracer rather than
// silently corrupting or crashing on an out-of-bounds header read.
func TestBadTracerPanics(t *testing.T) {
	e := testEngine(t, ModeMarkSweep)

	var bogus unsafe.Pointer = unsafe.Pointer(uintptr(0x1000))
	fin := &Finalizer{Mark: func(payload unsafe.Pointer, op Op) {
		op(unsafe.Pointer(&bogus))
	}}

	d := mustAlloc(t, e, 8, fin)
	if _, err := e.AllocReference(d); err != nil {
		t.Fatal(err)
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic from a tracer handing back a pointer outside the managed heap")
		}
		if _, ok := r.(*ErrBadTracer); !ok {
			t.Fatalf("panic value = %#v, want *ErrBadTracer", r)
		}
	}()

	e.Collect()
}

func mustAlloc(t *testing.T, e *Engine, size int64, fin *Finalizer) unsafe.Pointer {
	t.Helper()
	p, err := e.Alloc(size, fin)
	if err != nil {
		t.Fatal(err)
	}
	return p
}
