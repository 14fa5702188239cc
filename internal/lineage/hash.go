package lineage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// HashLen is the number of hex characters kept from the sha256 digest.
const HashLen = 32

// Hash identifies a file revision by its content.
type Hash string

// ParseHash validates a 32 character lowercase hex string.
func ParseHash(s string) (Hash, error) {
	if len(s) != HashLen {
		return "", fmt.Errorf("invalid hash %q: want %d hex characters, got %d", s, HashLen, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return "", fmt.Errorf("invalid hash %q: non-hex character %q", s, c)
		}
	}
	return Hash(s), nil
}

// Short returns the first 8 characters, for display.
func (h Hash) Short() string {
	if len(h) < 8 {
		return string(h)
	}
	return string(h[:8])
}

// Digest accumulates a whole-file sha256 over the lines written to it.
type Digest struct {
	h hash.Hash
}

// NewDigest returns an empty Digest.
func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

// Write adds raw bytes, terminators included, to the digest.
func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum returns the digest truncated to HashLen hex characters.
func (d *Digest) Sum() Hash {
	return Hash(hex.EncodeToString(d.h.Sum(nil))[:HashLen])
}

// Of hashes a complete byte stream.
func Of(content []byte) Hash {
	sum := sha256.Sum256(content)
	return Hash(hex.EncodeToString(sum[:])[:HashLen])
}
