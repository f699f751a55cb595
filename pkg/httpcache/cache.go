// Package httpcache provides a validating on-disk cache for HTTP responses
// in the form of a requester middleware.
package httpcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v2"
	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/exp/slog"
)

const (
	responsesBktName = "responses"
	fileName         = "http-cache.db"
)

// ErrNotFound is returned when there is no cached response for the key.
var ErrNotFound = errors.New("not found")

var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

// Entry is a stored response.
type Entry struct {
	URL        string      `json:"url"`
	StatusCode int         `json:"status_code"`
	Status     string      `json:"status"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
}

// Validated reports whether the entry carries a validator to revalidate it
// with the server.
func (e Entry) Validated() bool {
	return e.Header.Get("ETag") != "" || e.Header.Get("Last-Modified") != ""
}

// Bolt keeps responses in a bolt database with an LRU in front of it.
type Bolt struct {
	log *slog.Logger
	db  *bolt.DB
	mem cache.Cache[string, Entry]
}

// NewBolt opens the cache database in the given directory.
func NewBolt(lg *slog.Logger, dir string, memKeys int) (*Bolt, error) {
	db, err := bolt.Open(filepath.Join(dir, fileName), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to make boltdb for %s: %w", dir, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(responsesBktName)); err != nil {
			return fmt.Errorf("create top-level bucket %s: %w", responsesBktName, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("make buckets: %w", err)
	}

	return &Bolt{
		log: lg,
		db:  db,
		mem: cache.NewCache[string, Entry]().WithLRU().WithMaxKeys(memKeys),
	}, nil
}

// Put stores the entry, body is compressed on disk.
func (b *Bolt) Put(_ context.Context, e Entry) error {
	stored := e
	stored.Body = encoder.EncodeAll(e.Body, nil)

	err := b.db.Update(func(tx *bolt.Tx) error {
		bts, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}

		if err := tx.Bucket([]byte(responsesBktName)).Put([]byte(e.URL), bts); err != nil {
			return fmt.Errorf("put entry to storage: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("update storage: %w", err)
	}

	b.mem.Set(e.URL, e, 0)
	return nil
}

// Get returns the entry stored for the URL.
func (b *Bolt) Get(_ context.Context, u string) (e Entry, err error) {
	if e, ok := b.mem.Get(u); ok {
		return e, nil
	}

	err = b.db.View(func(tx *bolt.Tx) error {
		bts := tx.Bucket([]byte(responsesBktName)).Get([]byte(u))
		if bts == nil {
			return ErrNotFound
		}

		if err := json.Unmarshal(bts, &e); err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return Entry{}, fmt.Errorf("view storage: %w", err)
	}

	if e.Body, err = decoder.DecodeAll(e.Body, nil); err != nil {
		return Entry{}, fmt.Errorf("decompress body: %w", err)
	}

	b.mem.Set(u, e, 0)
	return e, nil
}

// Delete removes the entry stored for the URL.
func (b *Bolt) Delete(_ context.Context, u string) error {
	b.mem.Invalidate(u)

	err := b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(responsesBktName)).Delete([]byte(u)); err != nil {
			return fmt.Errorf("remove: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update storage: %w", err)
	}

	return nil
}

// Stat returns the stats of the in-memory part of the cache.
func (b *Bolt) Stat() cache.Stats { return b.mem.Stat() }

// Close closes the storage.
func (b *Bolt) Close() error { return b.db.Close() }
