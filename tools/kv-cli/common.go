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
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/Fantom-foundation/Stash/backend/kv"
	_ "github.com/Fantom-foundation/Stash/backend/kv/badger"
	_ "github.com/Fantom-foundation/Stash/backend/kv/file"
	_ "github.com/Fantom-foundation/Stash/backend/kv/ldb"
	_ "github.com/Fantom-foundation/Stash/backend/kv/memory"
	_ "github.com/Fantom-foundation/Stash/backend/kv/sqlite"
	"github.com/urfave/cli/v2"
)

var (
	storeVariantFlag = cli.StringFlag{
		Name:  "variant",
		Usage: "the store implementation, one of memory, ldb, sqlite, badger, file",
		Value: string(kv.LevelDbVariant),
	}
	storeDirectoryFlag = cli.StringFlag{
		Name:     "dir",
		Usage:    "the targeted directory",
		Required: true,
	}
	prefixFlag = cli.StringFlag{
		Name:  "prefix",
		Usage: "hex encoded key prefix",
	}
	cpuProfilingFlag = cli.StringFlag{
		Name:  "cpu-profile",
		Usage: "enable the recording of a CPU profile",
	}
)

// open opens the store described by the given variant and directory.
func open(variant, dir string) (kv.PersistentStore, error) {
	log.Printf("Opening %s store in %v ...", variant, dir)
	return kv.NewStore(kv.Parameters{
		Variant:   kv.Variant(variant),
		Directory: dir,
	})
}

// openFromFlags opens the store selected by the --variant and --dir flags.
func openFromFlags(ctx *cli.Context) (kv.PersistentStore, error) {
	return open(ctx.String(storeVariantFlag.Name), ctx.String(storeDirectoryFlag.Name))
}

// closeStore closes the given store, reporting the failure through err if
// no other error occurred before.
func closeStore(store kv.PersistentStore, dir string, err *error) {
	log.Printf("Closing store in %v ...", dir)
	if closeError := store.Close(); closeError != nil {
		if *err == nil {
			*err = closeError
		} else {
			log.Printf("Failure closing store: %v", closeError)
		}
	}
}

func parsePrefix(ctx *cli.Context) ([]byte, error) {
	prefix, err := hex.DecodeString(ctx.String(prefixFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid prefix: %w", err)
	}
	return prefix, nil
}

func StartCPUProfile(profileName string) error {
	f, err := os.Create(profileName)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %s", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		return fmt.Errorf("could not start CPU profile: %s", err)
	}
	return nil
}

func StopCPUProfile() {
	pprof.StopCPUProfile()
}
