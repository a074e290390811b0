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
	"log"

	"github.com/Fantom-foundation/Stash/common/interrupt"
	"github.com/urfave/cli/v2"
)

var (
	sourceVariantFlag = cli.StringFlag{
		Name:  "src-variant",
		Usage: "the implementation of the source store",
		Value: "ldb",
	}
	sourceDirFlag = cli.StringFlag{
		Name:     "src-dir",
		Usage:    "the source of the copy",
		Required: true,
	}
	targetVariantFlag = cli.StringFlag{
		Name:  "trg-variant",
		Usage: "the implementation of the target store",
		Value: "ldb",
	}
	targetDirFlag = cli.StringFlag{
		Name:     "trg-dir",
		Usage:    "the target of the copy",
		Required: true,
	}
)

var copyCommand = cli.Command{
	Action: copyStore,
	Name:   "copy",
	Usage:  "copies the entries under a prefix from one store into another, possibly of a different variant",
	Flags: []cli.Flag{
		&sourceVariantFlag,
		&sourceDirFlag,
		&targetVariantFlag,
		&targetDirFlag,
		&prefixFlag,
		&cpuProfilingFlag,
	},
}

func copyStore(ctx *cli.Context) (err error) {
	profileTarget := ctx.String(cpuProfilingFlag.Name)
	if len(profileTarget) != 0 {
		if err := StartCPUProfile(profileTarget); err != nil {
			return err
		}
		defer StopCPUProfile()
	}

	prefix, err := parsePrefix(ctx)
	if err != nil {
		return err
	}

	srcDir := ctx.String(sourceDirFlag.Name)
	source, err := open(ctx.String(sourceVariantFlag.Name), srcDir)
	if err != nil {
		return err
	}
	defer closeStore(source, srcDir, &err)

	trgDir := ctx.String(targetDirFlag.Name)
	target, err := open(ctx.String(targetVariantFlag.Name), trgDir)
	if err != nil {
		return err
	}
	defer closeStore(target, trgDir, &err)

	// Entries are staged since stores must not be modified while iterated.
	interruptible := interrupt.Register(ctx.Context)
	type entry struct{ key, value []byte }
	var entries []entry
	err = source.ForEach(prefix, func(key, value []byte) error {
		if err := interrupt.Check(interruptible); err != nil {
			return err
		}
		entries = append(entries, entry{append([]byte{}, key...), append([]byte{}, value...)})
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Copying %d entries ...", len(entries))
	for _, cur := range entries {
		if err := interrupt.Check(interruptible); err != nil {
			return err
		}
		if _, err := target.Write(cur.key, cur.value); err != nil {
			return err
		}
	}
	return target.Flush()
}
