// Package store provides the embedded durable store backing the pipeline.
//
// Records live in per-entity tables, each keyed by an opaque string id under
// a single-byte table prefix. Values are JSON-encoded. Badger transactions
// give the atomic read-modify-write the job queue's dequeue depends on.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Table identifies one record collection.
type Table byte

const (
	TableFiles          Table = 0x01
	TableConcepts       Table = 0x02
	TableClusters       Table = 0x03
	TableAnalyses       Table = 0x04
	TableVisualizations Table = 0x05
	TableAssets         Table = 0x06
	TableProvenance     Table = 0x07
	TableJobs           Table = 0x08
	TableSettings       Table = 0x09
)

func (t Table) String() string {
	switch t {
	case TableFiles:
		return "files"
	case TableConcepts:
		return "concepts"
	case TableClusters:
		return "clusters"
	case TableAnalyses:
		return "analyses"
	case TableVisualizations:
		return "visualizations"
	case TableAssets:
		return "assets"
	case TableProvenance:
		return "provenance"
	case TableJobs:
		return "jobs"
	case TableSettings:
		return "settings"
	default:
		return fmt.Sprintf("table(0x%02x)", byte(t))
	}
}

// Store is an embedded badger database with explicit open/close lifecycle.
// It is constructed once and injected into every component that persists
// state; there are no lazily-initialized globals.
type Store struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logging is too chatty; slog covers ours
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	slog.Info("store opened", "path", path)
	return &Store{db: db}, nil
}

// OpenInMemory opens a memory-only store. Used by tests; nothing persists.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database. Further operations return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) ensureOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// key builds the storage key for a record: table prefix byte + id bytes.
func key(table Table, id string) []byte {
	k := make([]byte, 1+len(id))
	k[0] = byte(table)
	copy(k[1:], id)
	return k
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(txn *badger.Txn) error) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// Update runs fn in a read-write transaction. The whole fn commits or rolls
// back atomically with respect to concurrent callers.
func (s *Store) Update(fn func(txn *badger.Txn) error) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

// Put JSON-encodes v and writes it under (table, id), overwriting any
// existing record.
func Put[T any](s *Store, table Table, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", table, id, err)
	}
	return s.Update(func(txn *badger.Txn) error {
		return txn.Set(key(table, id), data)
	})
}

// Get reads and decodes the record at (table, id). Returns ErrNotFound if it
// does not exist.
func Get[T any](s *Store, table Table, id string) (*T, error) {
	var v T
	err := s.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(table, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s/%s: %w", table, id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(data []byte) error {
			return json.Unmarshal(data, &v)
		})
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete removes the record at (table, id). Deleting a missing record is not
// an error.
func (s *Store) Delete(table Table, id string) error {
	return s.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(table, id))
	})
}

// List decodes every record in table. Secondary-field queries are filtered
// scans over this; data volumes are personal-corpus scale.
func List[T any](s *Store, table Table) ([]*T, error) {
	var out []*T
	err := s.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{byte(table)}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(data []byte) error {
				var v T
				if err := json.Unmarshal(data, &v); err != nil {
					return fmt.Errorf("decode %s record: %w", table, err)
				}
				out = append(out, &v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRecord applies fn to the record at (table, id) inside one
// transaction: read, mutate, write, commit. Returns ErrNotFound if the
// record does not exist. The returned value is the mutated record.
func UpdateRecord[T any](s *Store, table Table, id string, fn func(*T) error) (*T, error) {
	var v T
	err := s.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(table, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%s/%s: %w", table, id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(data []byte) error {
			return json.Unmarshal(data, &v)
		}); err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		data, err := json.Marshal(&v)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", table, id, err)
		}
		return txn.Set(key(table, id), data)
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}
