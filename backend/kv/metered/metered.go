// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package metered

import (
	"unsafe"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Label values of the operation label.
const (
	OpRead    = "read"
	OpWrite   = "write"
	OpRemove  = "remove"
	OpIterate = "iterate"
)

// Metrics are the Prometheus collectors shared by metered stores.
type Metrics struct {
	operations *prometheus.CounterVec
	readBytes  prometheus.Counter
	writeBytes prometheus.Counter
}

// NewMetrics creates store metrics and registers them in the given registry.
// If the registry is nil, the metrics are created but not registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stash",
				Subsystem: "kv",
				Name:      "operations_total",
				Help:      "Total number of store operations",
			},
			[]string{"operation"},
		),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stash",
			Subsystem: "kv",
			Name:      "read_bytes_total",
			Help:      "Total number of value bytes read from the store",
		}),
		writeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stash",
			Subsystem: "kv",
			Name:      "written_bytes_total",
			Help:      "Total number of value bytes written to the store",
		}),
	}
	if registry != nil {
		registry.MustRegister(m.operations, m.readBytes, m.writeBytes)
	}
	return m
}

// Stats summarizes the operations a metered store has forwarded.
type Stats struct {
	Reads   int
	Writes  int
	Removes int
}

// Store forwards all operations to a wrapped store while counting them.
type Store struct {
	store   kv.PersistentStore
	metrics *Metrics
	stats   Stats
}

// NewStore wraps the given store. The metrics may be nil, in which case only
// the local statistics are maintained.
func NewStore(store kv.PersistentStore, metrics *Metrics) *Store {
	return &Store{store: store, metrics: metrics}
}

// Stats returns the number of operations forwarded since the creation of the
// store or the last reset.
func (s *Store) Stats() Stats {
	return s.stats
}

// ResetStats resets the local statistics. Prometheus counters are unaffected.
func (s *Store) ResetStats() {
	s.stats = Stats{}
}

func (s *Store) count(op string) {
	if s.metrics != nil {
		s.metrics.operations.WithLabelValues(op).Inc()
	}
}

func (s *Store) Read(key []byte) ([]byte, bool, error) {
	s.stats.Reads++
	s.count(OpRead)
	value, found, err := s.store.Read(key)
	if s.metrics != nil {
		s.metrics.readBytes.Add(float64(len(value)))
	}
	return value, found, err
}

func (s *Store) Write(key, value []byte) (bool, error) {
	s.stats.Writes++
	s.count(OpWrite)
	if s.metrics != nil {
		s.metrics.writeBytes.Add(float64(len(value)))
	}
	return s.store.Write(key, value)
}

func (s *Store) Remove(key []byte) (bool, error) {
	s.stats.Removes++
	s.count(OpRemove)
	return s.store.Remove(key)
}

func (s *Store) ForEach(prefix []byte, callback func(key, value []byte) error) error {
	s.count(OpIterate)
	return s.store.ForEach(prefix, callback)
}

func (s *Store) Flush() error {
	return s.store.Flush()
}

func (s *Store) Close() error {
	return s.store.Close()
}

func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	if provider, ok := s.store.(common.MemoryFootprintProvider); ok {
		mf.AddChild("store", provider.GetMemoryFootprint())
	}
	return mf
}
