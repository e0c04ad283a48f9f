package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/perihelion-labs/neo-watch/internal/domain"
)

const riskPrefix = "risk:"

// RiskStore persists derived risk records. Records are append-only: keys
// carry a Badger sequence number, so scan order is insertion order and
// re-running classification never overwrites earlier runs.
type RiskStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewRiskStore(db *badger.DB) (*RiskStore, error) {
	seq, err := db.GetSequence([]byte("seq:risk"), 128)
	if err != nil {
		return nil, fmt.Errorf("open risk sequence: %w", err)
	}
	return &RiskStore{db: db, seq: seq}, nil
}

// Close releases the unclaimed tail of the key sequence.
func (s *RiskStore) Close() error {
	return s.seq.Release()
}

// Save appends one immutable risk record.
func (s *RiskStore) Save(rec domain.RiskRecord) error {
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next risk key: %w", err)
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serialize risk record: %w", err)
	}
	key := fmt.Sprintf("%s%012d", riskPrefix, n)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Replace drops all persisted risk records, then appends the given ones.
func (s *RiskStore) Replace(records []domain.RiskRecord) error {
	if err := s.db.DropPrefix([]byte(riskPrefix)); err != nil {
		return fmt.Errorf("drop risk records: %w", err)
	}
	for _, rec := range records {
		if err := s.Save(rec); err != nil {
			return err
		}
	}
	return nil
}

// ListAll returns every risk record in insertion order.
func (s *RiskStore) ListAll() ([]domain.RiskRecord, error) {
	var records []domain.RiskRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, riskPrefix, func(value []byte) error {
			var rec domain.RiskRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				return fmt.Errorf("decode risk record: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// ListByTier returns records matching any of the given tiers, ordered by
// descending score. The sort is stable over insertion order, so equal scores
// keep their write order.
func (s *RiskStore) ListByTier(tiers ...domain.RiskTier) ([]domain.RiskRecord, error) {
	wanted := make(map[domain.RiskTier]bool, len(tiers))
	for _, t := range tiers {
		wanted[t] = true
	}

	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}

	var records []domain.RiskRecord
	for _, rec := range all {
		if wanted[rec.Tier] {
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})
	return records, nil
}
