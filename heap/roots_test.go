// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"testing"
	"unsafe"
)

func TestRootTableAllocFree(t *testing.T) {
	tbl := newRootTable(4)

	var x, y int
	px, py := unsafe.Pointer(&x), unsafe.Pointer(&y)

	s1, err := tbl.allocReference(px)
	if err != nil {
		t.Fatal(err)
	}
	if *s1 != px {
		t.Fatal("slot does not hold the installed pointer")
	}

	s2, err := tbl.allocReference(py)
	if err != nil {
		t.Fatal(err)
	}
	if s1 == s2 {
		t.Fatal("two live allocations returned the same slot")
	}

	tbl.freeReference(s1)
	if *s1 != nil {
		t.Fatal("freed slot should read nil")
	}

	// Root stability (spec property 7): s2's address must not move just
	// because another slot was freed.
	before := s2
	if _, err := tbl.allocReference(px); err != nil {
		t.Fatal(err)
	}
	if s2 != before {
		t.Fatal("unrelated slot address changed across an unrelated alloc")
	}
}

func TestRootTableExhaustion(t *testing.T) {
	tbl := newRootTable(2)

	var x int
	p := unsafe.Pointer(&x)

	if _, err := tbl.allocReference(p); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.allocReference(p); err != nil {
		t.Fatal(err)
	}

	if _, err := tbl.allocReference(p); err == nil {
		t.Fatal("expected ErrRefTableFull, got nil")
	} else if _, ok := err.(*ErrRefTableFull); !ok {
		t.Fatalf("expected *ErrRefTableFull, got %T", err)
	}
}

func TestRootTableForEach(t *testing.T) {
	tbl := newRootTable(8)

	var x, y int
	tbl.allocReference(unsafe.Pointer(&x))
	tbl.allocReference(unsafe.Pointer(&y))

	var n int
	tbl.forEach(func(slot *unsafe.Pointer) {
		n++
		if *slot == nil {
			t.Fatal("forEach visited a nil slot")
		}
	})
	if n != 2 {
		t.Fatalf("forEach visited %d slots, want 2", n)
	}
}
