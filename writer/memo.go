package writer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"

	"slotflow/models"
)

// Memo caches exported artifacts by the content hash of the slot table for
// the lifetime of the process. Nothing is evicted.
type Memo struct {
	mu      sync.RWMutex
	entries map[string][]byte

	hits   int64
	misses int64
}

// NewMemo returns an empty memo.
func NewMemo() *Memo {
	return &Memo{entries: make(map[string][]byte)}
}

// MemoKey hashes the msgpack encoding of slots.
func MemoKey(slots []models.SlotSummary) (string, error) {
	data, err := msgpack.Marshal(slots)
	if err != nil {
		return "", fmt.Errorf("encode slots: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Get returns the artifact stored under key and counts a hit or a miss.
func (m *Memo) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	data, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		atomic.AddInt64(&m.hits, 1)
	} else {
		atomic.AddInt64(&m.misses, 1)
	}
	return data, ok
}

// Put stores data under key, replacing any earlier entry.
func (m *Memo) Put(key string, data []byte) {
	m.mu.Lock()
	m.entries[key] = data
	m.mu.Unlock()
}

// Len returns the number of cached artifacts.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats returns the hit and miss counters.
func (m *Memo) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&m.hits), atomic.LoadInt64(&m.misses)
}
