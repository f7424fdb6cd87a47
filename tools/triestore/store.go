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
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Fantom-foundation/triestore/backend/kv"
	"github.com/Fantom-foundation/triestore/backend/kv/ldb"
	"github.com/Fantom-foundation/triestore/backend/kv/pebble"
	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/database/triestorage"
	"github.com/urfave/cli/v2"
)

var (
	backendFlag = cli.StringFlag{
		Name:  "backend",
		Usage: "key-value engine of the store, leveldb or pebble",
		Value: "leveldb",
	}
	shardVersionFlag = cli.UintFlag{
		Name:  "shard-version",
		Usage: "version of the shard layout",
		Value: 0,
	}
	shardIdFlag = cli.UintFlag{
		Name:  "shard",
		Usage: "id of the shard to operate on",
		Value: 0,
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML file overriding the default storage configuration",
	}
	configNameFlag = cli.StringFlag{
		Name:  "config-name",
		Usage: "name of a predefined storage configuration, ignored if a config file is given",
		Value: triestorage.DefaultConfig.Name,
	}
)

var storeFlags = []cli.Flag{
	&backendFlag,
	&shardVersionFlag,
	&shardIdFlag,
	&configFlag,
	&configNameFlag,
}

func openDatabase(backend, dir string) (kv.Database, error) {
	switch backend {
	case "leveldb":
		return ldb.Open(dir, nil)
	case "pebble":
		return pebble.Open(dir)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func getConfig(context *cli.Context) (triestorage.Config, error) {
	if path := context.String(configFlag.Name); path != "" {
		return triestorage.LoadConfig(path)
	}
	name := context.String(configNameFlag.Name)
	config, found := triestorage.GetConfigByName(name)
	if !found {
		return triestorage.Config{}, fmt.Errorf("unknown configuration %q", name)
	}
	return config, nil
}

// openShardTries opens the store in the given directory as configured by the
// store flags.
func openShardTries(context *cli.Context, dir string) (*triestorage.ShardTries, common.ShardUId, error) {
	uid := common.ShardUId{
		Version: uint32(context.Uint(shardVersionFlag.Name)),
		ShardId: uint32(context.Uint(shardIdFlag.Name)),
	}
	config, err := getConfig(context)
	if err != nil {
		return nil, uid, err
	}
	db, err := openDatabase(context.String(backendFlag.Name), dir)
	if err != nil {
		return nil, uid, err
	}
	tries, err := triestorage.NewShardTries(kv.NewStore(db), config, nil)
	if err != nil {
		return nil, uid, errors.Join(err, db.Close())
	}
	return tries, uid, nil
}

func parseHexArgs(args []string) ([][]byte, error) {
	res := make([][]byte, 0, len(args))
	for _, arg := range args {
		data, err := hex.DecodeString(strings.TrimPrefix(arg, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid hex argument %q: %w", arg, err)
		}
		res = append(res, data)
	}
	return res, nil
}
