// Package sha3 pseudonymizes participant identifiers with SHA3-256.
package sha3

import (
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"

	"github.com/JakeFAU/crawlhub/internal/batch"
)

// TokenLength is the length of an owner token: a hex-encoded 32-byte digest.
const TokenLength = 64

// Hasher implements batch.Pseudonymizer using SHA3-256.
type Hasher struct {
	idLength int
}

// New returns a hasher that only accepts raw identifiers of exactly idLength
// bytes. A non-positive idLength accepts any non-empty identifier.
func New(idLength int) *Hasher {
	return &Hasher{idLength: idLength}
}

// Pseudonymize returns the lowercase hex SHA3-256 digest of rawID.
func (h *Hasher) Pseudonymize(rawID string) (string, error) {
	if rawID == "" {
		return "", fmt.Errorf("%w: user id is empty", batch.ErrInvalidInput)
	}
	if h.idLength > 0 && len(rawID) != h.idLength {
		return "", fmt.Errorf("%w: user id length %d, want %d", batch.ErrInvalidInput, len(rawID), h.idLength)
	}
	if !utf8.ValidString(rawID) {
		return "", fmt.Errorf("%w: user id is not valid UTF-8", batch.ErrInvalidInput)
	}
	sum := sha3.Sum256([]byte(rawID))
	return hex.EncodeToString(sum[:]), nil
}

// ValidToken reports whether token has the shape of an owner token: 64
// lowercase hex characters.
func ValidToken(token string) bool {
	if len(token) != TokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
