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
	"errors"
	"sync"

	"github.com/Fantom-foundation/triestore/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// Prefetcher resolves keys of one trie in background workers to warm the
// shard cache before the execution goroutine needs the nodes. Requests are
// fire-and-forget; their results are discarded.
type Prefetcher struct {
	root     common.Hash
	walker   Walker
	workers  int
	slots    *PrefetchSlots
	queue    []prefetchRequest
	retained []common.Hash // parked slots, dropped on Close
	closed   bool
	mutex    sync.Mutex
	cond     *sync.Cond
	group    errgroup.Group
	logger   log.Logger
}

type prefetchRequest struct {
	key  []byte
	stop bool
}

func startPrefetcher(shard *Shard, root common.Hash, walker Walker, workers int) *Prefetcher {
	if workers < 1 {
		workers = 1
	}
	res := &Prefetcher{
		root:    root,
		walker:  walker,
		workers: workers,
		slots:   shard.slots,
		logger:  shard.logger.New("root", root),
	}
	res.cond = sync.NewCond(&res.mutex)
	for i := 0; i < workers; i++ {
		view := prefetchingStorage{shard: shard, prefetcher: res}
		res.group.Go(func() error {
			return res.run(view)
		})
	}
	res.logger.Debug("Started prefetcher", "workers", workers)
	return res
}

// Prefetch enqueues the lookup of the given key. It never blocks. Requests
// issued after Close are ignored.
func (p *Prefetcher) Prefetch(key []byte) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed {
		return
	}
	p.queue = append(p.queue, prefetchRequest{key: key})
	p.cond.Signal()
}

// Pending returns the number of requests not yet taken by a worker.
func (p *Prefetcher) Pending() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.queue)
}

// Close drops all queued requests, stops the workers, and waits for them to
// finish their current lookups. Nodes parked by the workers and not consumed
// so far are dropped. The result reports the first storage failure any
// worker ran into; other walk errors are only logged. Close may be called
// multiple times.
func (p *Prefetcher) Close() error {
	p.mutex.Lock()
	if !p.closed {
		p.closed = true
		p.queue = p.queue[:0]
		for i := 0; i < p.workers; i++ {
			p.queue = append(p.queue, prefetchRequest{stop: true})
		}
		p.cond.Broadcast()
	}
	p.mutex.Unlock()
	err := p.group.Wait()

	p.mutex.Lock()
	retained := p.retained
	p.retained = nil
	p.mutex.Unlock()
	p.slots.Remove(retained...)
	return err
}

func (p *Prefetcher) parked(hash common.Hash) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.retained = append(p.retained, hash)
}

func (p *Prefetcher) next() prefetchRequest {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for len(p.queue) == 0 {
		p.cond.Wait()
	}
	req := p.queue[0]
	p.queue = p.queue[1:]
	return req
}

func (p *Prefetcher) run(view prefetchingStorage) error {
	var failure error
	for {
		req := p.next()
		if req.stop {
			return failure
		}
		if _, err := p.walker.Walk(view, p.root, req.key); err != nil {
			p.logger.Warn("Failed to prefetch key", "key", req.key, "err", err)
			if failure == nil && errors.Is(err, ErrStorageInternal) {
				failure = err
			}
		}
	}
}
