package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Semior001/opdsnet/app/catalog"
)

const catalogsBktName = "catalogs"

// record is a stored catalog description.
type record struct {
	Link    catalog.Link `json:"link"`
	Added   time.Time    `json:"added"`
	Updated time.Time    `json:"updated"`
}

// Bolt keeps catalog descriptions in BoltDB, keyed by the lowercased
// site name.
type Bolt struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBolt opens the registry in the given directory.
func NewBolt(dir string) (*Bolt, error) {
	db, err := bolt.Open(filepath.Join(dir, "catalogs.db"), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open catalogs db in %s: %w", dir, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(catalogsBktName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", catalogsBktName, err)
	}

	return &Bolt{db: db, now: time.Now}, nil
}

// Put saves the catalog. A catalog with the same site name is replaced,
// keeping the time it was first added.
func (b *Bolt) Put(_ context.Context, l catalog.Link) error {
	k := key(l.SiteName)
	if len(k) == 0 {
		return fmt.Errorf("put catalog %q: %w", l.Title, catalog.ErrInvalidLink)
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(catalogsBktName))

		now := b.now().UTC()
		rec := record{Link: l, Added: now, Updated: now}
		if prev, err := decode(bkt.Get(k)); err == nil {
			rec.Added = prev.Added
		}

		bts, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal catalog: %w", err)
		}

		return bkt.Put(k, bts)
	})
	if err != nil {
		return fmt.Errorf("put catalog %s: %w", l.SiteName, err)
	}

	return nil
}

// List returns the catalogs ordered by title, then by site name.
func (b *Bolt) List(context.Context) ([]catalog.Link, error) {
	var recs []record
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(catalogsBktName)).ForEach(func(k, v []byte) error {
			rec, err := decode(v)
			if err != nil {
				return fmt.Errorf("catalog %s: %w", k, err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list catalogs: %w", err)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		ti, tj := strings.ToLower(recs[i].Link.Title), strings.ToLower(recs[j].Link.Title)
		if ti != tj {
			return ti < tj
		}
		return string(key(recs[i].Link.SiteName)) < string(key(recs[j].Link.SiteName))
	})

	res := make([]catalog.Link, 0, len(recs))
	for _, rec := range recs {
		res = append(res, rec.Link)
	}

	return res, nil
}

// Get returns the catalog with the site name, matched case-insensitively.
func (b *Bolt) Get(_ context.Context, siteName string) (catalog.Link, error) {
	var rec record
	err := b.db.View(func(tx *bolt.Tx) (err error) {
		bts := tx.Bucket([]byte(catalogsBktName)).Get(key(siteName))
		if bts == nil {
			return ErrNotFound
		}
		rec, err = decode(bts)
		return err
	})
	if err != nil {
		return catalog.Link{}, fmt.Errorf("get catalog %s: %w", siteName, err)
	}

	return rec.Link, nil
}

// Delete removes the catalog, ErrNotFound if there is no such catalog.
func (b *Bolt) Delete(_ context.Context, siteName string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(catalogsBktName))
		if bkt.Get(key(siteName)) == nil {
			return ErrNotFound
		}
		return bkt.Delete(key(siteName))
	})
	if err != nil {
		return fmt.Errorf("delete catalog %s: %w", siteName, err)
	}

	return nil
}

// Close closes the storage.
func (b *Bolt) Close() error { return b.db.Close() }

func key(siteName string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(siteName)))
}

func decode(bts []byte) (record, error) {
	if bts == nil {
		return record{}, ErrNotFound
	}

	var rec record
	if err := json.Unmarshal(bts, &rec); err != nil {
		return record{}, fmt.Errorf("unmarshal catalog: %w", err)
	}
	return rec, nil
}
