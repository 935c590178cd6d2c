package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	apiKeyPrefix     = "sf_"
	apiKeyRandomSize = 32
	displayPrefixLen = 10
)

// GenerateAPIKey returns a new random API key.
func GenerateAPIKey() (string, error) {
	random, errRandom := GenerateRandomString(apiKeyRandomSize)
	if errRandom != nil {
		return "", errRandom
	}
	return apiKeyPrefix + random, nil
}

// GenerateRandomString returns n random bytes encoded as unpadded base64url.
func GenerateRandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("security: read random: %w", errRead)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKey returns the hex SHA-256 digest stored in place of the key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// APIKeyDisplayPrefix returns the non-secret leading part shown in listings.
func APIKeyDisplayPrefix(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= displayPrefixLen {
		return key
	}
	return key[:displayPrefixLen]
}
