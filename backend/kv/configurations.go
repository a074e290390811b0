// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kv

import (
	"fmt"

	"github.com/Fantom-foundation/Stash/common"
	"golang.org/x/exp/maps"
)

// Parameters defines the configuration of a store instance.
type Parameters struct {
	Variant   Variant
	Directory string
	// CacheCapacity is the number of keys kept in a read-through cache in
	// front of the store. Zero disables the cache.
	CacheCapacity int
}

// Variant names a store implementation.
type Variant string

const (
	MemoryVariant  Variant = "memory"
	LevelDbVariant Variant = "ldb"
	SqliteVariant  Variant = "sqlite"
	BadgerVariant  Variant = "badger"
	FileVariant    Variant = "file"
)

// UnsupportedConfiguration is the error returned if unsupported configuration
// parameters have been specified.
const UnsupportedConfiguration = common.ConstError("unsupported configuration")

// NewStore creates a store instance for the given parameters. If no variant
// is specified, an in-memory store is created. If the requested variant is
// not registered, an UnsupportedConfiguration error is returned.
func NewStore(params Parameters) (PersistentStore, error) {
	if params.Variant == "" {
		params.Variant = MemoryVariant
	}
	if params.CacheCapacity < 0 {
		return nil, fmt.Errorf("%w: negative cache capacity %d", UnsupportedConfiguration, params.CacheCapacity)
	}
	factory, found := storeFactoryRegistry[params.Variant]
	if !found {
		return nil, fmt.Errorf("%w: no registered implementation for variant %q", UnsupportedConfiguration, params.Variant)
	}
	store, err := factory(params)
	if err != nil {
		return nil, err
	}
	if params.CacheCapacity > 0 {
		return NewCachedStore(store, params.CacheCapacity), nil
	}
	return store, nil
}

// StoreFactory creates a store instance for the given parameters.
type StoreFactory func(params Parameters) (PersistentStore, error)

var storeFactoryRegistry = map[Variant]StoreFactory{}

// RegisterStoreFactory registers a store implementation. It is intended to
// be called by init functions of the implementing packages.
func RegisterStoreFactory(variant Variant, factory StoreFactory) {
	if _, found := storeFactoryRegistry[variant]; found {
		panic(fmt.Sprintf("attempted to register multiple factories for %v", variant))
	}
	storeFactoryRegistry[variant] = factory
}

func GetAllRegisteredStoreFactories() map[Variant]StoreFactory {
	return maps.Clone(storeFactoryRegistry)
}
