// Package files contains the pure identity and admission rules for stored files.
package files

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the byte length of the primary content hash (SHA-256).
const HashSize = 32

// Hash is the SHA-256 digest of a file's bytes and the file's primary key.
type Hash [HashSize]byte

// Hex renders the hash as lowercase hex.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash decodes a hex SHA-256 digest.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return HashFromBytes(b)
}

// HashFromBytes copies a raw 32-byte digest into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length %d, want %d", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// HashType names a digest algorithm usable for lookups.
type HashType string

// Supported hash types. SHA-256 is the identity; the others are auxiliary.
const (
	HashSHA256 HashType = "sha256"
	HashMD5    HashType = "md5"
	HashSHA1   HashType = "sha1"
	HashSHA512 HashType = "sha512"
)

// Size returns the digest length in bytes for the hash type.
func (t HashType) Size() int {
	switch t {
	case HashSHA256:
		return 32
	case HashMD5:
		return 16
	case HashSHA1:
		return 20
	case HashSHA512:
		return 64
	}
	return 0
}

// ParseHashType validates a hash type name.
func ParseHashType(s string) (HashType, error) {
	t := HashType(strings.ToLower(strings.TrimSpace(s)))
	if t.Size() == 0 {
		return "", fmt.Errorf("unknown hash type %q", s)
	}
	return t, nil
}

// HashSet carries every digest computed for one file in a single read pass.
type HashSet struct {
	SHA256     Hash
	MD5        []byte
	SHA1       []byte
	SHA512     []byte
	Perceptual *uint64 // still images only
}

// Metadata is the probed, mime-dependent description of a file. Every field may be
// absent when the format has no such notion or probing failed.
type Metadata struct {
	Width     *int
	Height    *int
	Duration  *int // milliseconds
	NumFrames *int
	NumWords  *int
}

// Info is the stored description of an admitted file.
type Info struct {
	Size int64
	Mime string
	Metadata
}

// IntPtr is a convenience for building optional metadata fields.
func IntPtr(v int) *int {
	return &v
}
