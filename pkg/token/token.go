// Package token generates the opaque access tokens that grant holder-based
// access to a registration. The source is injected into the workflow so tests
// can substitute a deterministic implementation.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Length is the fixed size of a registration access token. Tokens are
// assigned exactly once, at first persistence, and never regenerated.
const Length = 40

// Source produces opaque tokens. Implementations must be safe for concurrent
// use.
type Source interface {
	Token() (string, error)
}

// CryptoSource draws from crypto/rand and hex-encodes to Length characters.
type CryptoSource struct{}

func NewCryptoSource() CryptoSource { return CryptoSource{} }

func (CryptoSource) Token() (string, error) {
	buf := make([]byte, Length/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
