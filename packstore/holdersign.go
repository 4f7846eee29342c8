package packstore

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// HolderSigner signs the "holder" claim embedded in a distributed lock's
// content, so a stolen lock object cannot be replayed by a different holder
// than the one the object service authenticated when the lock was acquired.
// The signing key is derived from a single configured secret via HKDF rather
// than stored directly, so the same secret can serve other subsystems
// without key reuse across them.
type HolderSigner struct {
	key []byte
}

// NewHolderSigner derives a lock-signing key from secret, scoped by info so
// distinct uses of the same root secret never share a derived key.
func NewHolderSigner(secret []byte, info string) (*HolderSigner, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte("gitvault-lock-holder:"+info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("holdersign: derive key: %w", err)
	}
	return &HolderSigner{key: key}, nil
}

// Sign produces a compact JWS over the holder identity and the lock's
// resource, valid until expiresAt.
func (s *HolderSigner) Sign(holder, resource string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"holder":   holder,
		"resource": resource,
		"exp":      expiresAt.Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.key)
}

// Verify checks a token produced by Sign and returns the holder identity it
// attests to, failing if the signature, resource, or expiry do not match.
func (s *HolderSigner) Verify(token, resource string) (holder string, err error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("holdersign: invalid token")
	}
	res, _ := claims["resource"].(string)
	if res != resource {
		return "", fmt.Errorf("holdersign: token bound to resource %q, not %q", res, resource)
	}
	h, _ := claims["holder"].(string)
	return h, nil
}
