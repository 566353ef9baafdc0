// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "github.com/prometheus/client_golang/prometheus"

// metrics tracks the Prometheus collectors for one Engine. Like
// buildbarn-bb-storage's PartitioningBlockAllocator, the counters are
// allocated unconditionally and only registered when the caller supplies a
// prometheus.Registerer, so a nil Registerer never changes engine behavior.
type metrics struct {
	partitionsTotal     prometheus.Counter
	blocksAllocTotal    prometheus.Counter
	blocksAllocBytes    prometheus.Counter
	collectionsTotal    *prometheus.CounterVec
	collectionDuration  *prometheus.HistogramVec
	blocksRelocated     prometheus.Counter
	blocksFinalized     prometheus.Counter
	liveBytes           prometheus.Gauge
	liveBlocks          prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		partitionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precisegc",
			Name:      "partitions_total",
			Help:      "Number of heap partitions ever created.",
		}),
		blocksAllocTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precisegc",
			Name:      "blocks_allocated_total",
			Help:      "Number of blocks served by Alloc.",
		}),
		blocksAllocBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precisegc",
			Name:      "blocks_allocated_bytes_total",
			Help:      "Payload bytes served by Alloc.",
		}),
		collectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "precisegc",
			Name:      "collections_total",
			Help:      "Number of completed collections, by mode.",
		}, []string{"mode"}),
		collectionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "precisegc",
			Name:      "collection_duration_seconds",
			Help:      "Wall-clock duration of a completed collection, by mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		blocksRelocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precisegc",
			Name:      "blocks_relocated_total",
			Help:      "Number of blocks moved by mark-compact.",
		}),
		blocksFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precisegc",
			Name:      "blocks_finalized_total",
			Help:      "Number of finalizers run on reclamation.",
		}),
		liveBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precisegc",
			Name:      "live_bytes",
			Help:      "Payload bytes live after the last collection.",
		}),
		liveBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precisegc",
			Name:      "live_blocks",
			Help:      "Blocks live after the last collection.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.partitionsTotal,
			m.blocksAllocTotal,
			m.blocksAllocBytes,
			m.collectionsTotal,
			m.collectionDuration,
			m.blocksRelocated,
			m.blocksFinalized,
			m.liveBytes,
			m.liveBlocks,
		)
	}

	return m
}
