// Package history keeps launched queries in a bbolt database so that a
// session can go back and forward through them.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.etcd.io/bbolt"
)

var bucketQueries = []byte("queries")

const openTimeout = time.Second

// Entry is one remembered query.
type Entry struct {
	ID       uint64    `json:"-" yaml:"-"`
	Input    string    `json:"input" yaml:"input"`
	Facets   []string  `json:"facets" yaml:"facets"`
	FirstHit int       `json:"first_hit" yaml:"first_hit"`
	Time     time.Time `json:"time" yaml:"time"`
}

// Same reports whether e and o describe the same query.
func (e Entry) Same(o Entry) bool {
	return e.Input == o.Input && e.FirstHit == o.FirstHit && slices.Equal(e.Facets, o.Facets)
}

// Store is a bbolt-backed query history.
type Store struct {
	db         *bbolt.DB
	maxEntries int
}

// Open opens or creates the history database at path. At most maxEntries
// entries are kept; zero keeps everything.
func Open(path string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open history db %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketQueries); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketQueries, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, maxEntries: maxEntries}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores e unless it repeats the newest entry. It reports whether e
// was stored.
func (s *Store) Append(e Entry) (bool, error) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	stored := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketQueries)

		if _, v := b.Cursor().Last(); v != nil {
			var last Entry
			if err := json.Unmarshal(v, &last); err == nil && last.Same(e) {
				return nil
			}
		}

		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := b.Put(itob(id), data); err != nil {
			return err
		}
		stored = true
		return s.trim(b)
	})
	return stored, err
}

// trim deletes the oldest entries beyond maxEntries.
func (s *Store) trim(b *bbolt.Bucket) error {
	if s.maxEntries <= 0 {
		return nil
	}
	c := b.Cursor()
	n := 0
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	excess := n - s.maxEntries
	if excess <= 0 {
		return nil
	}
	var stale [][]byte
	for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns all entries.
func (s *Store) List(limit int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketQueries).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to decode history entry %d: %w", btoi(k), err)
			}
			e.ID = btoi(k)
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

// Clear removes all entries.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketQueries); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketQueries)
		return err
	})
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
