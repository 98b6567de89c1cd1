package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"compliance-packet/backend/internal/store"
)

// KeyPrefix marks every issued API key.
const KeyPrefix = "cpk_"

const keyRandomBytes = 24

// Identity is the (user, key) pair a bearer token resolves to.
type Identity struct {
	UserID   uint
	APIKeyID uint
}

// Authentication failure taxonomy. Lookup failures are wrapped separately so
// the HTTP layer can map them to 500 instead of 403.
var (
	ErrMissing = errors.New("missing or malformed authorization header")
	ErrInvalid = errors.New("no active api key matches")
)

// KeyStore is the persistence surface the gate needs.
type KeyStore interface {
	FindActiveKeyByHash(keyHash string) (*store.APIKey, error)
	TouchKeyUsed(keyID uint) error
}

// Gate authenticates bearer tokens against stored key hashes.
type Gate struct {
	keys KeyStore
}

// NewGate builds the auth gate.
func NewGate(keys KeyStore) *Gate {
	return &Gate{keys: keys}
}

// Authenticate resolves an Authorization header to an identity. It never
// mutates state beyond a best-effort last-used timestamp.
func (g *Gate) Authenticate(authorization string) (Identity, error) {
	token, err := bearerToken(authorization)
	if err != nil {
		return Identity{}, err
	}

	key, err := g.keys.FindActiveKeyByHash(HashKey(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, ErrInvalid
		}
		return Identity{}, fmt.Errorf("key lookup: %w", err)
	}

	if err := g.keys.TouchKeyUsed(key.ID); err != nil {
		logrus.WithError(err).WithField("api_key_id", key.ID).Warn("update key last-used timestamp")
	}
	return Identity{UserID: key.UserID, APIKeyID: key.ID}, nil
}

func bearerToken(authorization string) (string, error) {
	header := strings.TrimSpace(authorization)
	if header == "" {
		return "", ErrMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMissing
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissing
	}
	return token, nil
}

// GenerateKey mints a new raw API key. Only its hash is ever stored.
func GenerateKey() (string, error) {
	buf := make([]byte, keyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}

// HashKey returns the hex SHA-256 digest used as the stored credential.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// DisplayPrefix is the short key fragment safe to echo back to users.
func DisplayPrefix(raw string) string {
	const visible = len(KeyPrefix) + 8
	if len(raw) <= visible {
		return raw
	}
	return raw[:visible]
}
