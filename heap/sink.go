// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"unsafe"

	"go.uber.org/zap"
)

// sink is the engine's half of spec.md §6's "observability sink": one
// method per event kind the spec names, each a thin wrapper so engine
// call sites pass plain values instead of assembling zap fields
// themselves. The wrapper still builds its fields on every call; a no-op
// logger discards them.
type sink struct {
	log *zap.Logger
}

func newSink(log *zap.Logger) sink {
	return sink{log: log}
}

func addr(p unsafe.Pointer) zap.Field {
	return zap.Uintptr("addr", uintptr(p))
}

func (s sink) partitionCreated(p unsafe.Pointer, size int64) {
	s.log.Debug("partition-created", addr(p), zap.Int64("size", size))
}

func (s sink) blockAllocated(p unsafe.Pointer, size int64) {
	s.log.Debug("block-allocated", addr(p), zap.Int64("size", size))
}

func (s sink) blockMarked(p unsafe.Pointer, size int64) {
	s.log.Debug("block-marked", addr(p), zap.Int64("size", size))
}

func (s sink) blockRelocated(src, dst unsafe.Pointer) {
	s.log.Debug("block-relocated", zap.Uintptr("src", uintptr(src)), zap.Uintptr("dst", uintptr(dst)))
}

func (s sink) referenceUpdated(slot unsafe.Pointer, old, new unsafe.Pointer) {
	s.log.Debug("reference-updated",
		addr(slot),
		zap.Uintptr("old", uintptr(old)),
		zap.Uintptr("new", uintptr(new)),
	)
}

func (s sink) blockFinalized(p unsafe.Pointer) {
	s.log.Debug("block-finalized", addr(p))
}
