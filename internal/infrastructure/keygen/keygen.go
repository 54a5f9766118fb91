// Package keygen generates and parses split-token API keys.
package keygen

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/rezkam/atelier/internal/domain"
)

const shortTokenLen = 12

// APIKeyParts represents the components of an API key.
type APIKeyParts struct {
	KeyType    string // "sk"
	Service    string // "atelier"
	Version    string // "v1"
	ShortToken string // 12 hex chars, indexed for lookup
	LongSecret string // 43 chars base64url, only its hash is stored
	FullKey    string
}

// GenerateAPIKey creates a key of the form {type}-{service}-{version}-{short_token}-{long_secret}.
// The short token is the first 48 bits of the BLAKE2b-256 hash of the long secret.
func GenerateAPIKey(keyType, service, version string) (*APIKeyParts, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	hash := blake2b.Sum256([]byte(secret))
	short := hex.EncodeToString(hash[:shortTokenLen/2])

	return &APIKeyParts{
		KeyType:    keyType,
		Service:    service,
		Version:    version,
		ShortToken: short,
		LongSecret: secret,
		FullKey:    strings.Join([]string{keyType, service, version, short, secret}, "-"),
	}, nil
}

// ParseAPIKey splits an API key into its components.
// The long secret is base64url and may itself contain '-'.
func ParseAPIKey(apiKey string) (*APIKeyParts, error) {
	parts := strings.SplitN(apiKey, "-", 5)
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: expected 5 parts, got %d", domain.ErrInvalidAPIKeyFormat, len(parts))
	}
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: part %d is empty", domain.ErrInvalidAPIKeyFormat, i)
		}
	}
	if _, err := hex.DecodeString(parts[3]); err != nil || len(parts[3]) != shortTokenLen {
		return nil, fmt.Errorf("%w: malformed short token", domain.ErrInvalidAPIKeyFormat)
	}

	return &APIKeyParts{
		KeyType:    parts[0],
		Service:    parts[1],
		Version:    parts[2],
		ShortToken: parts[3],
		LongSecret: parts[4],
		FullKey:    apiKey,
	}, nil
}

// DisplayKey returns the key with its secret masked, e.g. "sk-atelier-v1-a3f5d8c2b4e6-****".
func (k *APIKeyParts) DisplayKey() string {
	return fmt.Sprintf("%s-%s-%s-%s-****", k.KeyType, k.Service, k.Version, k.ShortToken)
}

// HashSecret returns the hex BLAKE2b-256 hash of secret.
func HashSecret(secret string) string {
	hash := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(hash[:])
}
