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
	"fmt"
	"os"

	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/database/triestorage"
	"github.com/urfave/cli/v2"
)

var (
	strictFlag = cli.BoolFlag{
		Name:  "strict",
		Usage: "fail if the proof contains nodes not needed for the given keys",
	}
)

var Verify = cli.Command{
	Action:    verify,
	Name:      "verify",
	Usage:     "resolves keys using nothing but the nodes of a proof file",
	ArgsUsage: "<proof-file> <root> <key>...",
	Flags: []cli.Flag{
		&strictFlag,
	},
}

func verify(context *cli.Context) error {
	if context.Args().Len() < 3 {
		return fmt.Errorf("expected proof file, root, and at least one key")
	}
	data, err := os.ReadFile(context.Args().Get(0))
	if err != nil {
		return err
	}
	state, err := triestorage.DecodePartialState(data)
	if err != nil {
		return err
	}
	root, err := common.HashFromString(context.Args().Get(1))
	if err != nil {
		return err
	}
	keys, err := parseHexArgs(context.Args().Slice()[2:])
	if err != nil {
		return err
	}

	storage := triestorage.NewPartialStorage(state)
	walker := triestorage.MptWalker{}
	for _, key := range keys {
		value, err := walker.Walk(storage, root, key)
		if err != nil {
			return fmt.Errorf("proof is insufficient for key %x: %w", key, err)
		}
		if value == nil {
			fmt.Printf("%x: -\n", key)
		} else {
			fmt.Printf("%x: %x\n", key, value)
		}
	}

	usage := storage.Usage()
	fmt.Println(usage)
	for _, hash := range storage.UnusedNodes() {
		fmt.Printf("unused: %v\n", hash)
	}
	if context.Bool(strictFlag.Name) && usage.Unused() > 0 {
		return fmt.Errorf("proof contains %d unused nodes", usage.Unused())
	}
	return nil
}
