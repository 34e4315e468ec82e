package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/speedtrackorg/libspeedtrack-go/flow"
)

// DefaultFileName is the cache database name inside the data directory.
const DefaultFileName = "flowstate.db"

var (
	bucketStates  = []byte("flow_states")
	bucketMeta    = []byte("flow_meta")
	keyGeneration = []byte("generation")
)

// BoltCache is a flow.Cache that persists last known-good states in bbolt,
// so a restarted watcher can still preserve them when the ledger is down.
// The generation lives in memory and is written alongside every stored state.
type BoltCache struct {
	db     *bbolt.DB
	logger *zap.Logger

	mu         sync.RWMutex
	generation uint64
	closed     bool
}

var _ flow.Cache = (*BoltCache)(nil)

// Option configures a BoltCache.
type Option func(*BoltCache)

// WithLogger sets the logger that reports unreadable entries; nil keeps the
// no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *BoltCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// OpenBoltCache opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltCache(dbPath string, opts ...Option) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	var generation uint64
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketStates, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %q: %w", name, err)
			}
		}
		if v := tx.Bucket(bucketMeta).Get(keyGeneration); len(v) == 8 {
			generation = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init buckets: %w", err)
	}

	c := &BoltCache{db: db, logger: zap.NewNop(), generation: generation}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the underlying database.
func (c *BoltCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// Load returns the persisted state for key. Unreadable entries are logged
// and count as misses.
func (c *BoltCache) Load(key string) (flow.State, bool) {
	s, found, err := c.load(key)
	if err != nil {
		c.logger.Warn("reading cached flow state failed", zap.String("key", key), zap.Error(err))
		return flow.State{}, false
	}
	return s, found
}

func (c *BoltCache) load(key string) (flow.State, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return flow.State{}, false, nil
	}

	var s flow.State
	found := false
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStates).Get([]byte(key))
		if data == nil {
			return nil
		}
		if err := decodeGob(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptEntry, err)
		}
		found = true
		return nil
	})
	return s, found, err
}

// Store persists s under key if generation is current.
func (c *BoltCache) Store(key string, s flow.State, generation uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if generation != c.generation {
		return flow.ErrStaleGeneration
	}

	data, err := encodeGob(s)
	if err != nil {
		return fmt.Errorf("store: encode state: %w", err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketStates).Put([]byte(key), data); err != nil {
			return fmt.Errorf("store: put state: %w", err)
		}
		if err := tx.Bucket(bucketMeta).Put(keyGeneration, generationKey(generation)); err != nil {
			return fmt.Errorf("store: put generation: %w", err)
		}
		return nil
	})
}

// Delete removes the entry for key.
func (c *BoltCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketStates).Delete([]byte(key))
	})
}

// Generation returns the current generation.
func (c *BoltCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Advance bumps the generation.
func (c *BoltCache) Advance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation
}

// Len returns the number of persisted states.
func (c *BoltCache) Len() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, ErrClosed
	}
	var n int
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketStates).Stats().KeyN
		return nil
	})
	return n, err
}

func generationKey(g uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, g)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
