// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package triestorage

import (
	"fmt"

	"github.com/Fantom-foundation/triestore/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

// IoEvent enumerates the points of node resolution reported to an IoTracer.
type IoEvent int

const (
	ShardCacheHit IoEvent = iota
	ShardCacheMiss
	ShardCacheTooLarge
	PrefetchSuccess
	PrefetchHit
	PrefetchPending
	numIoEvents
)

func (e IoEvent) String() string {
	switch e {
	case ShardCacheHit:
		return "ShardCacheHit"
	case ShardCacheMiss:
		return "ShardCacheMiss"
	case ShardCacheTooLarge:
		return "ShardCacheTooLarge"
	case PrefetchSuccess:
		return "PrefetchSuccess"
	case PrefetchHit:
		return "PrefetchHit"
	case PrefetchPending:
		return "PrefetchPending"
	default:
		return fmt.Sprintf("IoEvent(%d)", int(e))
	}
}

// IoTracer receives the events of node resolutions. Implementations must be
// safe for concurrent use since prefetch workers report events too.
type IoTracer interface {
	Event(event IoEvent, hash common.Hash, size int)
}

var ioMeters = [numIoEvents]metrics.Meter{
	ShardCacheHit:      metrics.NewRegisteredMeter("triestore/shardcache/hit", nil),
	ShardCacheMiss:     metrics.NewRegisteredMeter("triestore/shardcache/miss", nil),
	ShardCacheTooLarge: metrics.NewRegisteredMeter("triestore/shardcache/toolarge", nil),
	PrefetchSuccess:    metrics.NewRegisteredMeter("triestore/prefetch/success", nil),
	PrefetchHit:        metrics.NewRegisteredMeter("triestore/prefetch/hit", nil),
	PrefetchPending:    metrics.NewRegisteredMeter("triestore/prefetch/pending", nil),
}

// logTracer reports events to a logger at trace level and marks the process
// wide I/O meters.
type logTracer struct {
	logger log.Logger
}

// NewLogTracer creates the tracer used by shards unless configured otherwise.
func NewLogTracer(logger log.Logger) IoTracer {
	return logTracer{logger: logger}
}

func (t logTracer) Event(event IoEvent, hash common.Hash, size int) {
	ioMeters[event].Mark(1)
	t.logger.Trace("Trie node I/O", "event", event, "hash", hash, "size", size)
}
