// Package rowstore persists flattened tables in a Pebble database so they
// survive restarts. Keys combine a source fingerprint with a node path,
// so a changed file never serves stale rows.
package rowstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"

	"github.com/robert-malhotra/h5view/rows"
)

// ErrNotFound is returned by Get for a key with no stored table.
var ErrNotFound = errors.New("table not found")

const keyPrefix = 't'

// Store is a persistent table store.
type Store struct {
	db *pebble.DB
}

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening row store %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Key builds the key for the table of path in the source with the given
// fingerprint.
func Key(fingerprint uint64, path string) []byte {
	k := sourcePrefix(fingerprint)
	return append(k, path...)
}

func sourcePrefix(fingerprint uint64) []byte {
	k := make([]byte, 9, 9+32)
	k[0] = keyPrefix
	binary.BigEndian.PutUint64(k[1:], fingerprint)
	return k
}

// Put stores t under key, replacing any previous table.
func (s *Store) Put(key []byte, t *rows.Table) error {
	data, err := cbor.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}
	return s.db.Set(key, data, pebble.Sync)
}

// Get loads the table stored under key.
func (s *Store) Get(key []byte) (*rows.Table, error) {
	data, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var t rows.Table
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding table: %w", err)
	}
	return &t, nil
}

// Delete removes the table stored under key, if any.
func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}

// Paths lists the node paths stored for a source, in key order.
func (s *Store) Paths(fingerprint uint64) ([]string, error) {
	lower := sourcePrefix(fingerprint)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upperBound(lower),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var paths []string
	for iter.First(); iter.Valid(); iter.Next() {
		paths = append(paths, string(iter.Key()[len(lower):]))
	}
	return paths, iter.Error()
}

// DeleteSource removes every table stored for a source.
func (s *Store) DeleteSource(fingerprint uint64) error {
	lower := sourcePrefix(fingerprint)
	return s.db.DeleteRange(lower, upperBound(lower), pebble.Sync)
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// upperBound returns the smallest key greater than every key with the
// given prefix.
func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
