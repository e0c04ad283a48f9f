package store

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/perihelion-labs/neo-watch/internal/domain"
)

const objectPrefix = "obj:"

// ObjectStore persists raw observations keyed by NeoWs id.
type ObjectStore struct {
	db *badger.DB
}

func NewObjectStore(db *badger.DB) *ObjectStore {
	return &ObjectStore{db: db}
}

// Upsert stores an observation, failing with domain.ErrDuplicateObject when
// the id is already present. Miss distance is a per-approach value and is
// not retained by the stored schema.
func (s *ObjectStore) Upsert(obs domain.Observation) error {
	if obs.NeoID == "" {
		return fmt.Errorf("observation has no neo id")
	}
	obs.MissDistanceKM = 0

	value, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("serialize observation: %w", err)
	}
	key := []byte(objectPrefix + obs.NeoID)

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateObject, obs.NeoID)
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, value)
	})
}

// Ping verifies the underlying database is usable.
func (s *ObjectStore) Ping() error {
	return s.db.View(func(*badger.Txn) error { return nil })
}

// ListAll returns every stored observation in key (NeoWs id) order.
func (s *ObjectStore) ListAll() ([]domain.Observation, error) {
	var observations []domain.Observation
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, objectPrefix, func(value []byte) error {
			var obs domain.Observation
			if err := json.Unmarshal(value, &obs); err != nil {
				return fmt.Errorf("decode observation: %w", err)
			}
			observations = append(observations, obs)
			return nil
		})
	})
	return observations, err
}

// scanPrefix iterates all values under prefix in key order.
func scanPrefix(txn *badger.Txn, prefix string, fn func(value []byte) error) error {
	options := badger.DefaultIteratorOptions
	options.Prefix = []byte(prefix)
	it := txn.NewIterator(options)
	defer it.Close()

	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
