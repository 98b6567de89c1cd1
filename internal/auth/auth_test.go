package auth

import (
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"compliance-packet/backend/internal/store"
)

type fakeKeyStore struct {
	keysByHash map[string]*store.APIKey
	lookupErr  error
	touched    []uint
}

func (f *fakeKeyStore) FindActiveKeyByHash(keyHash string) (*store.APIKey, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	key, ok := f.keysByHash[keyHash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return key, nil
}

func (f *fakeKeyStore) TouchKeyUsed(keyID uint) error {
	f.touched = append(f.touched, keyID)
	return nil
}

func TestAuthenticate(t *testing.T) {
	raw, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keys := &fakeKeyStore{keysByHash: map[string]*store.APIKey{
		HashKey(raw): {ID: 7, UserID: 3, Active: true},
	}}
	gate := NewGate(keys)

	identity, err := gate.Authenticate("Bearer " + raw)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.UserID != 3 || identity.APIKeyID != 7 {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if len(keys.touched) != 1 || keys.touched[0] != 7 {
		t.Fatalf("expected last-used touch for key 7, got %v", keys.touched)
	}
}

func TestAuthenticateMissing(t *testing.T) {
	gate := NewGate(&fakeKeyStore{})
	tests := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"no scheme", "cpk_raw"},
		{"wrong scheme", "Basic dXNlcg=="},
		{"bearer without token", "Bearer "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := gate.Authenticate(tc.header); !errors.Is(err, ErrMissing) {
				t.Fatalf("expected ErrMissing, got %v", err)
			}
		})
	}
}

func TestAuthenticateInvalid(t *testing.T) {
	gate := NewGate(&fakeKeyStore{keysByHash: map[string]*store.APIKey{}})
	if _, err := gate.Authenticate("Bearer cpk_unknown"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestAuthenticateLookupFailure(t *testing.T) {
	gate := NewGate(&fakeKeyStore{lookupErr: errors.New("connection reset")})
	_, err := gate.Authenticate("Bearer cpk_any")
	if err == nil || errors.Is(err, ErrMissing) || errors.Is(err, ErrInvalid) {
		t.Fatalf("expected internal lookup error, got %v", err)
	}
}

func TestGenerateKeyShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		raw, err := GenerateKey()
		if err != nil {
			t.Fatalf("generate key: %v", err)
		}
		if !strings.HasPrefix(raw, KeyPrefix) {
			t.Fatalf("key %q missing prefix", raw)
		}
		if len(raw) != len(KeyPrefix)+2*keyRandomBytes {
			t.Fatalf("unexpected key length %d", len(raw))
		}
		if seen[raw] {
			t.Fatal("duplicate key generated")
		}
		seen[raw] = true
	}
}

func TestDisplayPrefix(t *testing.T) {
	raw := "cpk_0123456789abcdef0123456789abcdef"
	if got := DisplayPrefix(raw); got != "cpk_01234567" {
		t.Fatalf("unexpected prefix %q", got)
	}
	if got := DisplayPrefix("cpk_x"); got != "cpk_x" {
		t.Fatalf("short keys returned verbatim, got %q", got)
	}
}
