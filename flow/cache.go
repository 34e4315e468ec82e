package flow

import (
	"encoding/hex"
	"strings"
	"sync"

	"golang.org/x/crypto/sha3"
)

// Cache holds the last known-good State per wallet together with a
// generation counter. Every trigger of an evaluation advances the generation;
// a write tagged with an older generation is rejected with ErrStaleGeneration,
// so a slow, superseded read can never overwrite a newer result.
type Cache interface {
	// Load returns the cached state for key.
	Load(key string) (State, bool)

	// Store records s under key if generation is still current.
	Store(key string, s State, generation uint64) error

	// Delete drops the entry for key.
	Delete(key string) error

	// Generation returns the current generation.
	Generation() uint64

	// Advance bumps the generation and returns the new value.
	Advance() uint64
}

// CacheKey derives the cache key of a wallet address: the hex keccak256 of
// the lowercased address, so checksum and lowercase forms share an entry.
func CacheKey(address string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(address))))
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryCache is an unbounded in-process Cache. Entries never expire.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]State
	generation uint64
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache returns an empty MemoryCache at generation 0.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]State)}
}

func (c *MemoryCache) Load(key string) (State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[key]
	return s, ok
}

func (c *MemoryCache) Store(key string, s State, generation uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return ErrStaleGeneration
	}
	c.entries[key] = s
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *MemoryCache) Advance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation
}

// Len returns the number of cached wallets.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
