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

	"github.com/Fantom-foundation/Stash/common/interrupt"
	"github.com/urfave/cli/v2"
)

var dumpCommand = cli.Command{
	Action: dump,
	Name:   "dump",
	Usage:  "lists all keys and values stored under a prefix",
	Flags: []cli.Flag{
		&storeVariantFlag,
		&storeDirectoryFlag,
		&prefixFlag,
	},
}

func dump(ctx *cli.Context) (err error) {
	prefix, err := parsePrefix(ctx)
	if err != nil {
		return err
	}
	store, err := openFromFlags(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store, ctx.String(storeDirectoryFlag.Name), &err)

	interruptible := interrupt.Register(ctx.Context)
	return store.ForEach(prefix, func(key, value []byte) error {
		if err := interrupt.Check(interruptible); err != nil {
			return err
		}
		fmt.Printf("%x: %x\n", key, value)
		return nil
	})
}
