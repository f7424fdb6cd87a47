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
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/interrupt"
	"github.com/Fantom-foundation/triestore/database/triestorage"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/urfave/cli/v2"
)

var (
	rootFlag = cli.StringFlag{
		Name:  "root",
		Usage: "root of the trie to extend, the empty trie if not set",
	}
)

var Import = cli.Command{
	Action:    doImport,
	Name:      "import",
	Usage:     "adds key/value pairs listed in a file to a trie and stores its nodes",
	ArgsUsage: "<db-directory> <file>",
	Flags:     append([]cli.Flag{&rootFlag}, storeFlags...),
}

func doImport(context *cli.Context) (err error) {
	if context.Args().Len() != 2 {
		return fmt.Errorf("expected database directory and input file")
	}
	dir := context.Args().Get(0)
	entries, err := readEntries(context.Args().Get(1))
	if err != nil {
		return err
	}

	root := common.Hash(types.EmptyRootHash)
	if str := context.String(rootFlag.Name); str != "" {
		if root, err = common.HashFromString(str); err != nil {
			return err
		}
	}

	tries, uid, err := openShardTries(context, dir)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, tries.Close())
	}()

	ctx, cancel := interrupt.Register(context.Context)
	defer cancel()

	storage := tries.NewCachingStorage(uid)
	t, err := trie.New(trie.TrieID(gethcommon.Hash(root)), triestorage.NewNodeDatabase(storage))
	if err != nil {
		return fmt.Errorf("failed to open trie %v: %w", root, err)
	}
	for _, entry := range entries {
		if interrupt.IsCancelled(ctx) {
			return interrupt.ErrCanceled
		}
		if err := t.Update(entry[0], entry[1]); err != nil {
			return fmt.Errorf("failed to update key %x: %w", entry[0], err)
		}
	}
	newRoot, nodes := t.Commit(false)
	changes := triestorage.NewTrieChangesFromNodeSet(nodes)
	if err := tries.ApplyChanges(uid, changes); err != nil {
		return err
	}
	log.Info("Imported entries", "entries", len(entries), "nodes", len(changes), "shard", uid)
	fmt.Printf("%v\n", common.Hash(newRoot))
	return nil
}

// readEntries parses lines of hex encoded key/value pairs separated by white
// space. Empty lines and lines starting with # are skipped.
func readEntries(path string) ([][2][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var res [][2][]byte
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: expected key and value, got %d fields", path, line, len(fields))
		}
		pair, err := parseHexArgs(fields)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		res = append(res, [2][]byte{pair[0], pair[1]})
	}
	return res, scanner.Err()
}
