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
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Fantom-foundation/triestore/backend/kv"
	"github.com/Fantom-foundation/triestore/backend/kv/memory"
	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/immutable"
	"github.com/ethereum/go-ethereum/log"
)

var testShard = common.ShardUId{Version: 1, ShardId: 2}

// countingDatabase counts the reads reaching the wrapped database and
// optionally delays them to widen race windows.
type countingDatabase struct {
	kv.Database
	reads atomic.Int64
	delay time.Duration
}

func (d *countingDatabase) Get(key []byte) ([]byte, error) {
	d.reads.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	return d.Database.Get(key)
}

type countingTracer struct {
	events map[IoEvent]int
	mutex  sync.Mutex
}

func newCountingTracer() *countingTracer {
	return &countingTracer{events: map[IoEvent]int{}}
}

func (t *countingTracer) Event(event IoEvent, _ common.Hash, _ int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.events[event]++
}

func (t *countingTracer) get(event IoEvent) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.events[event]
}

type testEnv struct {
	db     *countingDatabase
	tries  *ShardTries
	tracer *countingTracer
}

func newTestEnv(t *testing.T, config Config) *testEnv {
	t.Helper()
	db := &countingDatabase{Database: memory.New()}
	tracer := newCountingTracer()
	tries, err := NewShardTries(kv.NewStore(db), config, tracer)
	if err != nil {
		t.Fatalf("failed to create shard tries: %v", err)
	}
	return &testEnv{db: db, tries: tries, tracer: tracer}
}

// addNodes stores the given payloads in the test shard and returns their hashes.
func (e *testEnv) addNodes(t *testing.T, payloads ...[]byte) []common.Hash {
	t.Helper()
	changes := make(TrieChanges, 0, len(payloads))
	hashes := make([]common.Hash, 0, len(payloads))
	for _, payload := range payloads {
		hash := common.Keccak256(payload)
		changes = append(changes, TrieNodeChange{Hash: hash, Payload: payload, Rc: 1})
		hashes = append(hashes, hash)
	}
	if err := e.tries.ApplyChanges(testShard, changes); err != nil {
		t.Fatalf("failed to add nodes: %v", err)
	}
	return hashes
}

func testConfig() Config {
	config := DefaultConfig
	config.Name = "Test"
	config.PrefetchPollInterval = 10 * time.Microsecond
	return config
}

func mustRetrieve(t *testing.T, storage Storage, hash common.Hash) immutable.Bytes {
	t.Helper()
	payload, err := storage.Retrieve(hash)
	if err != nil {
		t.Fatalf("failed to retrieve %v: %v", hash, err)
	}
	return payload
}

func payloadOfSize(size int, seed byte) []byte {
	res := make([]byte, size)
	for i := range res {
		res[i] = seed + byte(i)
	}
	return res
}

func newTestLogger() log.Logger {
	return log.NewLogger(log.NewTerminalHandlerWithLevel(io.Discard, log.LevelTrace, false))
}
