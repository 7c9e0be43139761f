package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Entry represents a single value held by the store.
//
// Design choices:
// - Digest is the normalized key; the caller's key text is never kept.
// - Timestamp is the last write time and drives both expiry and eviction.
// - Value is opaque to the store and shared by reference with the caller.
type Entry struct {
	Digest    string
	Timestamp time.Time
	Value     any
}

// IsExpired reports whether the entry is older than ttl at the given time.
// An entry exactly ttl old is still fresh.
func (e Entry) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) > ttl
}

// olderThan orders entries for eviction: oldest write first, ties broken
// by ascending digest.
func olderThan(a, b Entry) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(a.Digest, b.Digest)
}

// Digest normalizes a caller key into the store's lookup identifier:
// the lowercase hex SHA-256 of the key bytes.
func Digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func validDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
