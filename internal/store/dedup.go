// Package store provides a Bloom-fronted deduplication set for natural IDs.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// DedupStore is a thread-safe set of natural IDs with a Bloom filter front.
// The filter answers the common "never seen" case without touching the map;
// membership is always confirmed against the exact set, so deduplication is
// never lossy. Used per run to collapse duplicate artist and track-artist
// mentions across playlist pages before any database interaction.
type DedupStore struct {
	ids               map[string]struct{}
	bloom             *bloom.BloomFilter
	mutex             sync.RWMutex
	capacity          int
	falsePositiveRate float64
}

// NewDedupStore creates a deduplication store sized for the expected number of
// distinct IDs.
func NewDedupStore(capacity int, falsePositiveRate float64) *DedupStore {
	if capacity < 0 || capacity > int(^uint(0)>>1) {
		panic("capacity value out of range for uint conversion")
	}

	return &DedupStore{
		ids:               make(map[string]struct{}),
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
	}
}

// Has checks if an ID is already in the store.
func (ds *DedupStore) Has(id string) bool {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	if !ds.bloom.TestString(id) {
		return false
	}

	_, exists := ds.ids[id]
	return exists
}

// Add inserts an ID and reports whether it was new.
func (ds *DedupStore) Add(id string) bool {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if _, exists := ds.ids[id]; exists {
		return false
	}

	ds.ids[id] = struct{}{}
	ds.bloom.AddString(id)
	return true
}

// Size returns the number of distinct IDs stored.
func (ds *DedupStore) Size() int {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()
	return len(ds.ids)
}

// Clear resets the store for reuse by a subsequent run.
func (ds *DedupStore) Clear() {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	ds.ids = make(map[string]struct{})
	ds.bloom = bloom.NewWithEstimates(uint(ds.capacity), ds.falsePositiveRate)
}
