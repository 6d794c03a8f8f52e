package security

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestProvider(t *testing.T) *TokenProvider {
	t.Helper()
	p, err := NewTokenProvider(testSecret, "topocoind", "topocoin-api", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider() error: %v", err)
	}
	return p
}

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p := newTestProvider(t)
	tok, err := p.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if tok.Value == "" || tok.ID == "" {
		t.Fatal("token value or id empty")
	}
	if !tok.ExpiresAt.After(time.Now()) {
		t.Fatal("token already expired")
	}

	claims, err := p.Validate(tok.Value)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "alice" || claims.ID != tok.ID {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenProvider_Rejects(t *testing.T) {
	p := newTestProvider(t)
	tok, _ := p.Issue("user-1", "alice")

	other, _ := NewTokenProvider([]byte("ffffffffffffffffffffffffffffffff"), "topocoind", "topocoin-api", time.Hour)
	foreign, _ := other.Issue("user-1", "alice")

	wrongAud, _ := NewTokenProvider(testSecret, "topocoind", "someone-else", time.Hour)
	wrongAudTok, _ := wrongAud.Issue("user-1", "alice")

	wrongIss, _ := NewTokenProvider(testSecret, "impostor", "topocoin-api", time.Hour)
	wrongIssTok, _ := wrongIss.Issue("user-1", "alice")

	expired, _ := NewTokenProvider(testSecret, "topocoind", "topocoin-api", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredTok, _ := expired.Issue("user-1", "alice")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"tampered", tok.Value + "x"},
		{"foreign secret", foreign.Value},
		{"wrong audience", wrongAudTok.Value},
		{"wrong issuer", wrongIssTok.Value},
		{"expired", expiredTok.Value},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Validate(tt.token); err != ErrInvalidToken {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestNewTokenProvider_Invalid(t *testing.T) {
	if _, err := NewTokenProvider([]byte("short"), "i", "a", time.Hour); err == nil {
		t.Error("expected error for short secret")
	}
	if _, err := NewTokenProvider(testSecret, "i", "a", 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLoadOrCreateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "jwt.secret")

	first, err := LoadOrCreateSecret(path)
	if err != nil {
		t.Fatalf("LoadOrCreateSecret() error: %v", err)
	}
	if len(first) != SecretSize {
		t.Fatalf("secret length = %d, want %d", len(first), SecretSize)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat secret: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("secret mode = %v, want 0600", info.Mode().Perm())
	}

	second, err := LoadOrCreateSecret(path)
	if err != nil {
		t.Fatalf("second LoadOrCreateSecret() error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("secret changed between loads")
	}
}
