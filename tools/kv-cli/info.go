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
	"log"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/urfave/cli/v2"
)

var getInfoCommand = cli.Command{
	Action: getInfo,
	Name:   "info",
	Usage:  "prints summary information about a store directory",
	Flags: []cli.Flag{
		&storeVariantFlag,
		&storeDirectoryFlag,
		&prefixFlag,
	},
}

func getInfo(ctx *cli.Context) (err error) {
	prefix, err := parsePrefix(ctx)
	if err != nil {
		return err
	}
	store, err := openFromFlags(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store, ctx.String(storeDirectoryFlag.Name), &err)

	count, err := kv.Count(store, prefix)
	if err != nil {
		return err
	}
	fmt.Printf("Number of keys: %d\n", count)

	log.Printf("Computing state hash ...")
	hash, err := kv.GetStateHash(store, prefix)
	if err != nil {
		return err
	}
	fmt.Printf("State hash: %v\n", hash)
	return nil
}
