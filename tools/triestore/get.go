// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/interrupt"
	"github.com/Fantom-foundation/triestore/database/triestorage"
	"github.com/urfave/cli/v2"
)

var (
	prefetchFlag = cli.BoolFlag{
		Name:  "prefetch",
		Usage: "prefetch all keys in background workers before resolving them",
	}
	chunkCacheFlag = cli.BoolFlag{
		Name:  "chunk-cache",
		Usage: "retain all nodes read in the chunk cache",
	}
	footprintFlag = cli.BoolFlag{
		Name:  "footprint",
		Usage: "print the memory footprint of the storage after resolving all keys",
	}
)

var Get = cli.Command{
	Action:    get,
	Name:      "get",
	Usage:     "resolves keys in a trie through the caching storage",
	ArgsUsage: "<db-directory> <root> <key>...",
	Flags:     append([]cli.Flag{&prefetchFlag, &chunkCacheFlag, &footprintFlag}, storeFlags...),
}

func get(context *cli.Context) (err error) {
	if context.Args().Len() < 3 {
		return fmt.Errorf("expected database directory, root, and at least one key")
	}
	dir := context.Args().Get(0)
	root, err := common.HashFromString(context.Args().Get(1))
	if err != nil {
		return err
	}
	keys, err := parseHexArgs(context.Args().Slice()[2:])
	if err != nil {
		return err
	}

	tries, uid, err := openShardTries(context, dir)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, tries.Close())
	}()

	storage := tries.NewCachingStorage(uid)
	defer func() {
		err = errors.Join(err, storage.Close())
	}()
	if context.Bool(chunkCacheFlag.Name) {
		storage.SetMode(triestorage.CacheModeChunk)
	}
	if context.Bool(prefetchFlag.Name) {
		prefetcher := storage.StartPrefetcher(root, triestorage.MptWalker{})
		for _, key := range keys {
			prefetcher.Prefetch(key)
		}
	}

	ctx, cancel := interrupt.Register(context.Context)
	defer cancel()

	walker := triestorage.MptWalker{}
	for _, key := range keys {
		if interrupt.IsCancelled(ctx) {
			return interrupt.ErrCanceled
		}
		value, err := walker.Walk(storage, root, key)
		if err != nil {
			return fmt.Errorf("failed to resolve key %x: %w", key, err)
		}
		if value == nil {
			fmt.Printf("%x: -\n", key)
		} else {
			fmt.Printf("%x: %x\n", key, value)
		}
	}
	fmt.Printf("%v\n", storage.TrieNodesCount())
	if context.Bool(footprintFlag.Name) {
		fmt.Print(tries.GetMemoryFootprint())
	}
	return nil
}
