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
	"bytes"
	"fmt"

	"github.com/Fantom-foundation/Stash/collections"
	"github.com/Fantom-foundation/Stash/common/interrupt"
	"github.com/urfave/cli/v2"
)

var vectorCommand = cli.Command{
	Action: printVector,
	Name:   "vector",
	Usage:  "prints the length and the raw elements of a persistent vector",
	Flags: []cli.Flag{
		&storeVariantFlag,
		&storeDirectoryFlag,
		&prefixFlag,
	},
}

// rawCodec passes encoded elements through unchanged.
type rawCodec struct{}

func (rawCodec) Append(dst []byte, value []byte) ([]byte, error) {
	return append(dst, value...), nil
}

func (rawCodec) Consume(data []byte) ([]byte, int, error) {
	return bytes.Clone(data), len(data), nil
}

func printVector(ctx *cli.Context) (err error) {
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
	return collections.Run(store, collections.SessionConfig{ReadOnly: true}, func(s *collections.Session) error {
		vector, err := collections.OpenVector[[]byte](s.Store(), prefix, rawCodec{})
		if err != nil {
			return err
		}
		fmt.Printf("Length: %d\n", vector.Len())
		for i := uint32(0); i < vector.Len(); i++ {
			if err := interrupt.Check(interruptible); err != nil {
				return err
			}
			element, err := vector.At(i)
			if err != nil {
				return err
			}
			fmt.Printf("%d: %x\n", i, element)
		}
		return nil
	})
}
