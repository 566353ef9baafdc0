// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"testing"
	"unsafe"
)

// singleRefMark mirrors original_source/test.c's singleRefMark: the
// object carries exactly one outbound reference, stored in the first
// pointerSize bytes of its own payload.
func singleRefMark(payload unsafe.Pointer, op Op) {
	op(payload)
}

func setChild(payload, child unsafe.Pointer) {
	*(*unsafe.Pointer)(payload) = child
}

func mustAlloc(t *testing.T, g *GC, size int64, fin *Finalizer) unsafe.Pointer {
	t.Helper()
	p, err := g.Alloc(size, fin)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// TestOriginalSmokeTest transcribes original_source/test.c's main almost
// line for line: large allocations forcing a second partition, a rooted
// object whose own child slot is later repointed at a fresh allocation,
// and a final free_reference followed by a last collection.
func TestOriginalSmokeTest(t *testing.T) {
	g := New(Options{Mode: ModeMarkCompact, PartitionSize: 1 << 20})

	singleRef := &Finalizer{Mark: singleRefMark}

	mustAlloc(t, g, 800000, nil)
	mustAlloc(t, g, 800000, singleRef)
	mustAlloc(t, g, 80000, nil)

	p4 := mustAlloc(t, g, 80000, singleRef)
	ref, err := g.AllocReference(p4)
	if err != nil {
		t.Fatal(err)
	}

	if err := g.Collect(); err != nil {
		t.Fatal(err)
	}

	mustAlloc(t, g, 80000, nil)
	mustAlloc(t, g, 80000, singleRef)

	p5 := mustAlloc(t, g, 80000, nil)
	setChild(*ref, p5)

	if err := g.Collect(); err != nil {
		t.Fatal(err)
	}

	g.FreeReference(ref)

	if err := g.Collect(); err != nil {
		t.Fatal(err)
	}
}

// TestCycleSafety is spec scenario S6: two objects that mark each other,
// with only one of them rooted, must both survive and marking must
// terminate instead of looping forever around the cycle.
func TestCycleSafety(t *testing.T) {
	g := New(Options{})

	type linked struct {
		other unsafe.Pointer
	}

	mark := func(payload unsafe.Pointer, op Op) {
		op(payload) // payload's first word is the "other" pointer
	}
	fin := &Finalizer{Mark: mark}

	x := mustAlloc(t, g, int64(unsafe.Sizeof(linked{})), fin)
	y := mustAlloc(t, g, int64(unsafe.Sizeof(linked{})), fin)

	setChild(x, y)
	setChild(y, x)

	r, err := g.AllocReference(x)
	if err != nil {
		t.Fatal(err)
	}

	if err := g.Collect(); err != nil {
		t.Fatal(err)
	}

	if *r == nil {
		t.Fatal("rooted X did not survive a collection through a reference cycle")
	}
	if getChild(*r) == nil {
		t.Fatal("Y did not survive despite being reachable from X")
	}
}

func getChild(payload unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(payload)
}
