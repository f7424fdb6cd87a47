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
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/naoina/toml"
)

// Config defines the sizing of the caches and the prefetching machinery of
// the storages created by a ShardTries instance.
type Config struct {
	// A descriptive name for this configuration. It has no effect except for
	// logging and debugging purposes.
	Name string

	// The maximum number of entries kept in the cache of each shard.
	ShardCacheCapacity int

	// Payloads of this size or larger are never admitted to a shard cache.
	MaxCachedValueSize int

	// The number of worker goroutines started for each prefetched trie root.
	PrefetchWorkers int

	// The interval at which a reader waiting for a fetch of another
	// goroutine checks for the result.
	PrefetchPollInterval time.Duration
}

var DefaultConfig = Config{
	Name:                 "Default",
	ShardCacheCapacity:   50_000,
	MaxCachedValueSize:   1000,
	PrefetchWorkers:      1,
	PrefetchPollInterval: 100 * time.Microsecond,
}

// NoCacheConfig keeps shard caches minimal. It is intended for tools
// and tests measuring raw store access.
var NoCacheConfig = Config{
	Name:                 "NoCache",
	ShardCacheCapacity:   1,
	MaxCachedValueSize:   DefaultConfig.MaxCachedValueSize,
	PrefetchWorkers:      DefaultConfig.PrefetchWorkers,
	PrefetchPollInterval: DefaultConfig.PrefetchPollInterval,
}

var allConfigs = []Config{DefaultConfig, NoCacheConfig}

// GetConfigByName attempts to locate a configuration with the given name.
func GetConfigByName(name string) (Config, bool) {
	for _, config := range allConfigs {
		if config.Name == name {
			return config, true
		}
	}
	return Config{}, false
}

// Validate checks that all sizes of the configuration are usable.
func (c Config) Validate() error {
	var errs []error
	if c.ShardCacheCapacity <= 0 {
		errs = append(errs, fmt.Errorf("shard cache capacity must be positive, got %d", c.ShardCacheCapacity))
	}
	if c.MaxCachedValueSize <= 0 {
		errs = append(errs, fmt.Errorf("max cached value size must be positive, got %d", c.MaxCachedValueSize))
	}
	if c.PrefetchWorkers <= 0 {
		errs = append(errs, fmt.Errorf("number of prefetch workers must be positive, got %d", c.PrefetchWorkers))
	}
	if c.PrefetchPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("prefetch poll interval must be positive, got %v", c.PrefetchPollInterval))
	}
	return errors.Join(errs...)
}

// TOML keys use the same names as the struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// LoadConfig reads a TOML file and overlays its settings on DefaultConfig.
// Durations are given in nanoseconds.
func LoadConfig(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	config := DefaultConfig
	if err := tomlSettings.NewDecoder(bufio.NewReader(file)).Decode(&config); err != nil {
		if _, ok := err.(*toml.LineError); ok {
			err = fmt.Errorf("%s, %w", path, err)
		}
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return config, nil
}
