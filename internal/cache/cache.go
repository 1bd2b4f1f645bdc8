// Package cache stores retrieved evidence context keyed by statement text,
// so repeated statements across records do not repeat searches and fetches.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for context caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from a statement string
func Key(statement string) string {
	hash := sha256.Sum256([]byte(statement))
	return "hallusearch:v1:" + hex.EncodeToString(hash[:])
}
