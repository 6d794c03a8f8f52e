package account

import (
	"errors"
	"testing"
	"time"

	"github.com/lojol469-cmd/Topocoin-api/internal/storage"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"alice", "alice", true},
		{"  Alice.B ", "alice.b", true},
		{"user_01", "user_01", true},
		{"ab", "", false},
		{"_alice", "", false},
		{"al ice", "", false},
		{"averyveryveryveryveryverylongname1", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeUsername(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("NormalizeUsername(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestStore_CreateAndLookup(t *testing.T) {
	s := NewStore(storage.NewMemory())
	u := &User{ID: "id-1", Username: "alice", Status: StatusPending, CreatedAt: time.Now()}

	if err := s.Create(u); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	got, err := s.GetByUsername("alice")
	if err != nil {
		t.Fatalf("GetByUsername() error: %v", err)
	}
	if got.ID != "id-1" {
		t.Errorf("ID = %s, want id-1", got.ID)
	}

	dup := &User{ID: "id-2", Username: "alice"}
	if err := s.Create(dup); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("Create() duplicate error = %v, want ErrUsernameTaken", err)
	}
	if _, err := s.Get("id-2"); !errors.Is(err, ErrUserNotFound) {
		t.Error("rejected duplicate must not be stored")
	}
}

func TestStore_Update(t *testing.T) {
	s := NewStore(storage.NewMemory())
	s.Create(&User{ID: "id-1", Username: "alice", Status: StatusPending})

	u, err := s.Update("id-1", func(u *User) error {
		u.Status = StatusActive
		return nil
	})
	if err != nil || u.Status != StatusActive {
		t.Fatalf("Update() = %+v, %v", u, err)
	}
	if _, err := s.Update("ghost", func(*User) error { return nil }); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update() missing error = %v, want ErrUserNotFound", err)
	}
}

func TestStore_DeleteReleasesName(t *testing.T) {
	db := storage.NewMemory()
	s := NewStore(db)
	u := &User{ID: "id-1", Username: "alice"}
	s.Create(u)

	if err := s.Delete(u); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.GetByUsername("alice"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByUsername() after delete error = %v", err)
	}
	if err := s.Create(&User{ID: "id-2", Username: "alice"}); err != nil {
		t.Errorf("Create() after delete error: %v", err)
	}

	var keys int
	db.ForEach([]byte("usr/"), func(_, _ []byte) error { keys++; return nil })
	if keys != 2 {
		t.Errorf("usr/ holds %d keys, want 2", keys)
	}
}

func TestStore_DeleteKeepsForeignIndex(t *testing.T) {
	s := NewStore(storage.NewMemory())
	s.Create(&User{ID: "id-2", Username: "alice"})

	// A stale copy of an earlier alice must not release the current owner's name.
	if err := s.Delete(&User{ID: "id-1", Username: "alice"}); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	got, err := s.GetByUsername("alice")
	if err != nil || got.ID != "id-2" {
		t.Errorf("GetByUsername() = %+v, %v", got, err)
	}
}

func TestStore_ForEach(t *testing.T) {
	s := NewStore(storage.NewMemory())
	s.Create(&User{ID: "id-1", Username: "alice"})
	s.Create(&User{ID: "id-2", Username: "bob"})

	seen := map[string]bool{}
	if err := s.ForEach(func(u *User) error { seen[u.Username] = true; return nil }); err != nil {
		t.Fatalf("ForEach() error: %v", err)
	}
	if len(seen) != 2 || !seen["alice"] || !seen["bob"] {
		t.Errorf("ForEach() saw %v", seen)
	}
}
