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

	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/interrupt"
	"github.com/Fantom-foundation/triestore/database/triestorage"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var Record = cli.Command{
	Action:    record,
	Name:      "record",
	Usage:     "records the nodes needed to resolve keys into a proof file",
	ArgsUsage: "<db-directory> <root> <proof-file> <key>...",
	Flags:     storeFlags,
}

func record(context *cli.Context) (err error) {
	if context.Args().Len() < 4 {
		return fmt.Errorf("expected database directory, root, proof file, and at least one key")
	}
	dir := context.Args().Get(0)
	root, err := common.HashFromString(context.Args().Get(1))
	if err != nil {
		return err
	}
	proofFile := context.Args().Get(2)
	keys, err := parseHexArgs(context.Args().Slice()[3:])
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

	storage := tries.NewRecordingStorage(uid)
	ctx, cancel := interrupt.Register(context.Context)
	defer cancel()

	walker := triestorage.MptWalker{}
	for _, key := range keys {
		if interrupt.IsCancelled(ctx) {
			return interrupt.ErrCanceled
		}
		if _, err := walker.Walk(storage, root, key); err != nil {
			return fmt.Errorf("failed to resolve key %x: %w", key, err)
		}
	}

	file, err := os.Create(proofFile)
	if err != nil {
		return err
	}
	writer := bufio.NewWriter(file)
	state := storage.RecordedStorage()
	if err := state.EncodeTo(writer); err != nil {
		return errors.Join(err, file.Close())
	}
	if err := errors.Join(writer.Flush(), file.Close()); err != nil {
		return err
	}
	log.Info("Recorded proof", "keys", len(keys), "nodes", state.Len(), "file", proofFile)
	return nil
}
