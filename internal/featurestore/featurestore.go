// Package featurestore loads and caches pre-analyzed master-call MFCC
// features (C1 in the spec): the binary .mfc file format and an
// LRU-bounded in-memory cache.
//
// The map+RWMutex cache shape is grounded on the teacher's
// internal/analysis/db.go FeatureStore; the binary encode/decode is
// grounded on the teacher's AudioFeatures.ToBytes/FromBytes in
// internal/analysis/features.go, adapted from the teacher's
// multi-field feature record to this domain's flat MFCC matrix
// format (spec §6).
package featurestore

import (
	"bufio"
	"container/list"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/huntmasteracademy/gamecalls-engine/internal/enginerr"
)

// Features is a decoded master-call MFCC matrix: NumFrames rows of
// NumCoeffs columns each, row-major.
type Features struct {
	NumFrames int
	NumCoeffs int
	Data      [][]float64
}

// Encode writes Features to w in the spec §6 wire format:
// [u32 numFrames][u32 numCoeffs][float32 x numFrames x numCoeffs],
// little-endian.
func Encode(w io.Writer, f Features) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint32(f.NumFrames)); err != nil {
		return enginerr.Wrap("featurestore.Encode", enginerr.AllocationFailure, err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(f.NumCoeffs)); err != nil {
		return enginerr.Wrap("featurestore.Encode", enginerr.AllocationFailure, err)
	}
	for _, row := range f.Data {
		for _, v := range row {
			if err := binary.Write(bw, binary.LittleEndian, float32(v)); err != nil {
				return enginerr.Wrap("featurestore.Encode", enginerr.AllocationFailure, err)
			}
		}
	}
	return bw.Flush()
}

// Decode reads a .mfc file body from r, validating the header against
// sane bounds before allocating the backing matrix.
func Decode(r io.Reader) (Features, error) {
	br := bufio.NewReader(r)

	var numFrames, numCoeffs uint32
	if err := binary.Read(br, binary.LittleEndian, &numFrames); err != nil {
		return Features{}, enginerr.Wrap("featurestore.Decode", enginerr.Malformed, err)
	}
	if err := binary.Read(br, binary.LittleEndian, &numCoeffs); err != nil {
		return Features{}, enginerr.Wrap("featurestore.Decode", enginerr.Malformed, err)
	}
	if numFrames == 0 || numCoeffs == 0 || numFrames > 1<<20 || numCoeffs > 1<<10 {
		return Features{}, enginerr.New("featurestore.Decode", enginerr.Malformed)
	}

	data := make([][]float64, numFrames)
	for i := range data {
		row := make([]float64, numCoeffs)
		for j := range row {
			var v float32
			if err := binary.Read(br, binary.LittleEndian, &v); err != nil {
				return Features{}, enginerr.Wrap("featurestore.Decode", enginerr.Malformed, err)
			}
			row[j] = float64(v)
		}
		data[i] = row
	}

	return Features{NumFrames: int(numFrames), NumCoeffs: int(numCoeffs), Data: data}, nil
}

// LoadFile reads and decodes a .mfc file from disk.
func LoadFile(path string) (Features, error) {
	f, err := os.Open(path)
	if err != nil {
		return Features{}, enginerr.Wrap("featurestore.LoadFile", enginerr.NotFound, err)
	}
	defer f.Close()
	return Decode(f)
}

// SaveFile encodes Features and writes them to path.
func SaveFile(path string, feat Features) error {
	f, err := os.Create(path)
	if err != nil {
		return enginerr.Wrap("featurestore.SaveFile", enginerr.AllocationFailure, err)
	}
	defer f.Close()
	return Encode(f, feat)
}

// Cache is an LRU-bounded, RWMutex-protected cache of loaded master
// call features, keyed by call ID. The map+mutex shell follows the
// teacher's FeatureStore; eviction uses container/list since no
// ecosystem LRU library appears anywhere in the retrieved reference
// pack (see DESIGN.md).
type Cache struct {
	mu       sync.RWMutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used
	loader   func(callID string) (Features, error)
}

type entry struct {
	key   string
	value Features
}

// NewCache builds a Cache with the given capacity (entry count) and a
// loader invoked on a cache miss.
func NewCache(capacity int, loader func(callID string) (Features, error)) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		loader:   loader,
	}
}

// Get returns the cached Features for callID, loading and inserting it
// on a miss, evicting the least-recently-used entry if at capacity.
func (c *Cache) Get(callID string) (Features, error) {
	c.mu.Lock()
	if el, ok := c.items[callID]; ok {
		c.order.MoveToFront(el)
		v := el.Value.(*entry).value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	feat, err := c.loader(callID)
	if err != nil {
		return Features{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[callID]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*entry).value, nil
	}
	el := c.order.PushFront(&entry{key: callID, value: feat})
	c.items[callID] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
	return feat, nil
}

// Invalidate evicts callID from the cache, if present.
func (c *Cache) Invalidate(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[callID]; ok {
		c.order.Remove(el)
		delete(c.items, callID)
	}
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
