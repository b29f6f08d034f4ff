// SPDX-License-Identifier: Apache-2.0

// Package plumbing defines the low-level, algorithm-agnostic value types
// shared by the object database, reference store and merge core: object
// identifiers, reference names and the small set of sentinel errors
// collaborators are expected to return.
package plumbing

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
)

// Algo identifies which hash function produced a Hash.
type Algo int

const (
	// SHA1 is the historical 20-byte Git object id algorithm.
	SHA1 Algo = iota
	// SHA256 is the 32-byte Git object id algorithm (the "sha256" repository
	// format extension).
	SHA256
)

func (a Algo) Size() int {
	if a == SHA256 {
		return sha256.Size
	}
	return sha1.Size
}

func (a Algo) String() string {
	if a == SHA256 {
		return "sha256"
	}
	return "sha1"
}

// Hash is an object identifier: the content hash of a canonically encoded
// object. It is deliberately agnostic to the algorithm that produced it -
// every reference is an opaque byte string whose only observable property is
// its length (20 bytes for sha1, 32 for sha256).
type Hash []byte

// ZeroHash20 and ZeroHash32 are the zero OIDs for each supported algorithm.
var (
	ZeroHash20 = make(Hash, sha1.Size)
	ZeroHash32 = make(Hash, sha256.Size)
)

// ZeroHash returns the zero OID matching h's length, defaulting to the
// sha1-sized zero hash when h is empty.
func (h Hash) ZeroHash() Hash {
	if len(h) == sha256.Size {
		return ZeroHash32
	}
	return ZeroHash20
}

// IsZero reports whether h is the all-zero OID for its length.
func (h Hash) IsZero() bool {
	if len(h) == 0 {
		return true
	}
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// Algo returns the hash algorithm implied by h's length.
func (h Hash) Algo() Algo {
	if len(h) == sha256.Size {
		return SHA256
	}
	return SHA1
}

func (h Hash) String() string {
	return hex.EncodeToString(h)
}

// Prefix returns the first n hex characters of h, or the whole hex string
// when n is not in 1..len. It does not check the prefix for uniqueness
// against any object set.
func (h Hash) Prefix(n int) string {
	s := h.String()
	if n <= 0 || n > len(s) {
		return s
	}
	return s[:n]
}

func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h, other)
}

func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h, other)
}

// NewHash decodes a hex OID of either 40 or 64 characters. It returns nil for
// any other length - callers that need a hard failure should use NewHashEx.
func NewHash(s string) Hash {
	h, err := NewHashEx(s)
	if err != nil {
		return nil
	}
	return h
}

// NewHashEx decodes a hex OID, validating its length against the supported
// algorithms.
func NewHashEx(s string) (Hash, error) {
	if len(s) != 2*sha1.Size && len(s) != 2*sha256.Size {
		return nil, fmt.Errorf("git.plumbing: %q is not a valid object name", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("git.plumbing: %q is not a valid object name: %w", s, err)
	}
	return Hash(b), nil
}

// HashesSort sorts a slice of Hashes in increasing byte order.
func HashesSort(hs []Hash) {
	sort.Sort(HashSlice(hs))
}

// HashSlice attaches sort.Interface to []Hash.
type HashSlice []Hash

func (p HashSlice) Len() int           { return len(p) }
func (p HashSlice) Less(i, j int) bool { return bytes.Compare(p[i], p[j]) < 0 }
func (p HashSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// Hasher wraps the stdlib hash.Hash for the algorithm negotiated by a
// repository. The hash algorithm is a Git wire-format requirement, not an
// ambient concern - using anything other than crypto/sha1 or crypto/sha256
// here would break object-id compatibility with real Git tooling, so no
// third-party digest library is substituted (see DESIGN.md).
type Hasher struct {
	hash.Hash
	algo Algo
}

// NewHasher returns a Hasher for the given algorithm.
func NewHasher(algo Algo) Hasher {
	if algo == SHA256 {
		return Hasher{Hash: sha256.New(), algo: algo}
	}
	return Hasher{Hash: sha1.New(), algo: algo}
}

func (h Hasher) Sum() Hash {
	return Hash(h.Hash.Sum(nil))
}
