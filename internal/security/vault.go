package security

import (
	"fmt"

	"github.com/crossply/crossply/internal/domain"
)

// TokenSet holds the encrypted form of an OAuth token pair. Refresh may
// be nil for platforms that never issue one.
type TokenSet struct {
	Access  []byte
	Refresh []byte
}

// TokenCipher seals and opens OAuth token pairs for storage. Both
// tokens are handled together so a partial write can never leave one of
// them stale.
type TokenCipher struct {
	enc *Encryptor
}

// NewTokenCipher creates a token cipher around an encryptor
func NewTokenCipher(enc *Encryptor) *TokenCipher {
	return &TokenCipher{enc: enc}
}

// Seal encrypts an access/refresh token pair. An empty refresh token
// produces a nil column.
func (c *TokenCipher) Seal(access, refresh string) (TokenSet, error) {
	var set TokenSet

	ct, err := c.enc.Encrypt([]byte(access))
	if err != nil {
		return TokenSet{}, fmt.Errorf("failed to seal access token: %w", err)
	}
	set.Access = ct

	if refresh != "" {
		ct, err := c.enc.Encrypt([]byte(refresh))
		if err != nil {
			return TokenSet{}, fmt.Errorf("failed to seal refresh token: %w", err)
		}
		set.Refresh = ct
	}

	return set, nil
}

// Open decrypts a stored token pair. A decryption failure (corrupted or
// foreign-key ciphertext) surfaces as domain.ErrTokenUnavailable so the
// caller can fail that account without aborting sibling work.
func (c *TokenCipher) Open(set TokenSet) (access, refresh string, err error) {
	pt, err := c.enc.Decrypt(set.Access)
	if err != nil {
		return "", "", fmt.Errorf("%w: access token: %v", domain.ErrTokenUnavailable, err)
	}
	access = string(pt)

	if len(set.Refresh) > 0 {
		pt, err := c.enc.Decrypt(set.Refresh)
		if err != nil {
			return "", "", fmt.Errorf("%w: refresh token: %v", domain.ErrTokenUnavailable, err)
		}
		refresh = string(pt)
	}

	return access, refresh, nil
}
