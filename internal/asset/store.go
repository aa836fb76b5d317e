package asset

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashBytes returns the hex BLAKE2b-256 digest of data.
func HashBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentStore remembers which content hashes have been stored and under
// which key. It is owned by the commit stage and is not safe for
// concurrent use.
type ContentStore struct {
	keys map[string]string
}

// NewContentStore creates an empty store.
func NewContentStore() *ContentStore {
	return &ContentStore{keys: make(map[string]string)}
}

// Has reports whether content with hash was already stored.
func (s *ContentStore) Has(hash string) bool {
	_, ok := s.keys[hash]
	return ok
}

// Claim records hash as stored under key. It returns false when the hash
// was already claimed; the first claim wins.
func (s *ContentStore) Claim(hash, key string) bool {
	if s.Has(hash) {
		return false
	}
	s.keys[hash] = key
	return true
}

// Key returns the storage key of hash.
func (s *ContentStore) Key(hash string) (string, bool) {
	key, ok := s.keys[hash]
	return key, ok
}

// Len returns the number of distinct contents stored.
func (s *ContentStore) Len() int {
	return len(s.keys)
}
