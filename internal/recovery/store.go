package recovery

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lojol469-cmd/Topocoin-api/internal/storage"
)

// Store persists activation records keyed by account ID.
type Store struct {
	db storage.DB
}

// NewStore creates a record store on db. Callers normally pass a
// storage.PrefixDB so records live in their own namespace.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// Get loads the record for accountID.
func (s *Store) Get(accountID string) (*Record, error) {
	data, err := s.db.Get([]byte(accountID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load activation record: %w", err)
	}
	return decodeRecord(data)
}

// Put writes rec unconditionally.
func (s *Store) Put(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode activation record: %w", err)
	}
	return s.db.Put([]byte(rec.AccountID), data)
}

// Update atomically loads, mutates and stores the record for accountID.
// Errors returned by fn are passed through unwrapped and nothing is written.
func (s *Store) Update(accountID string, fn func(rec *Record) error) error {
	return s.db.Update([]byte(accountID), func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, ErrNotFound
		}
		rec, err := decodeRecord(current)
		if err != nil {
			return nil, err
		}
		if err := fn(rec); err != nil {
			return nil, err
		}
		return json.Marshal(rec)
	})
}

// Upsert atomically creates a record, or replaces the existing one when
// replace reports true for it. Otherwise ErrExists is returned.
func (s *Store) Upsert(rec *Record, replace func(existing *Record) bool) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode activation record: %w", err)
	}
	return s.db.Update([]byte(rec.AccountID), func(current []byte) ([]byte, error) {
		if current != nil {
			existing, err := decodeRecord(current)
			if err != nil {
				return nil, err
			}
			if replace == nil || !replace(existing) {
				return nil, ErrExists
			}
		}
		return data, nil
	})
}

// Delete removes the record for accountID. Deleting a missing record is not
// an error.
func (s *Store) Delete(accountID string) error {
	return s.db.Delete([]byte(accountID))
}

// ForEach calls fn for every stored record.
func (s *Store) ForEach(fn func(rec *Record) error) error {
	return s.db.ForEach(nil, func(_, value []byte) error {
		rec, err := decodeRecord(value)
		if err != nil {
			return err
		}
		return fn(rec)
	})
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode activation record: %w", err)
	}
	return &rec, nil
}
