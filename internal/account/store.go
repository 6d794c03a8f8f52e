package account

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lojol469-cmd/Topocoin-api/internal/storage"
)

// Key prefixes inside the user namespace.
const (
	prefixID   = "id/"
	prefixName = "name/"
)

// Store persists users and the username index. The index maps the BLAKE3
// hash of a normalized username to the user ID.
type Store struct {
	db *storage.PrefixDB
}

// NewStore creates a user store. Users and their index share the "usr/"
// namespace of db.
func NewStore(db storage.DB) *Store {
	return &Store{db: storage.NewPrefixDB(db, []byte("usr/"))}
}

func idKey(id string) []byte { return []byte(prefixID + id) }

func nameKey(normalized string) []byte { return []byte(prefixName + usernameKey(normalized)) }

// Get loads a user by ID.
func (s *Store) Get(id string) (*User, error) {
	data, err := s.db.Get(idKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return decodeUser(data)
}

// GetByUsername loads a user by normalized username.
func (s *Store) GetByUsername(normalized string) (*User, error) {
	id, err := s.db.Get(nameKey(normalized))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load username index: %w", err)
	}
	return s.Get(string(id))
}

// Create claims u.Username in the index and stores u. It returns
// ErrUsernameTaken when another user holds the name.
func (s *Store) Create(u *User) error {
	key := nameKey(u.Username)
	err := s.db.Update(key, func(current []byte) ([]byte, error) {
		if current != nil {
			return nil, ErrUsernameTaken
		}
		return []byte(u.ID), nil
	})
	if err != nil {
		return err
	}
	if err := s.put(u); err != nil {
		s.db.Delete(key)
		return err
	}
	return nil
}

// Update atomically loads, mutates and stores the user with id.
func (s *Store) Update(id string, fn func(u *User) error) (*User, error) {
	var out *User
	err := s.db.Update(idKey(id), func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, ErrUserNotFound
		}
		u, err := decodeUser(current)
		if err != nil {
			return nil, err
		}
		if err := fn(u); err != nil {
			return nil, err
		}
		out = u
		return json.Marshal(u)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes u together with its username entry when the index still
// points at u.
func (s *Store) Delete(u *User) error {
	b := s.db.NewBatch()
	owner, err := s.db.Get(nameKey(u.Username))
	switch {
	case err == nil && string(owner) == u.ID:
		b.Delete(nameKey(u.Username))
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("load username index: %w", err)
	}
	b.Delete(idKey(u.ID))
	if err := b.Commit(); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ForEach calls fn for every stored user.
func (s *Store) ForEach(fn func(u *User) error) error {
	return s.db.ForEach([]byte(prefixID), func(_, value []byte) error {
		u, err := decodeUser(value)
		if err != nil {
			return err
		}
		return fn(u)
	})
}

func (s *Store) put(u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.db.Put(idKey(u.ID), data)
}

func decodeUser(data []byte) (*User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
