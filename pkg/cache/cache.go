// Package cache stores rendered artifacts of graph documents.
//
// Rendering a diagram through Graphviz is far slower than loading the
// document it was made from, so renders are cached under a key derived
// from the document's content hash and the render options:
//
//	key := cache.ArtifactKey(hash, cache.ArtifactOpts{Format: "svg"})
//	if data, ok, _ := c.Get(ctx, key); ok {
//		return data
//	}
//
// A changed document has a new hash, so entries never need invalidation;
// they only expire.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the entry for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// ArtifactOpts are the render options an artifact depends on.
type ArtifactOpts struct {
	Format     string `json:"format"`
	Detailed   bool   `json:"detailed,omitempty"`
	Properties bool   `json:"properties,omitempty"`
}

// ArtifactKey returns the cache key of a render of the document with the
// given content hash.
func ArtifactKey(graphHash string, opts ArtifactOpts) string {
	return hashKey("artifact", graphHash, opts)
}

// hashKey returns prefix:sha256(parts...).
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return fmt.Sprintf("%s:%s", prefix, Hash(data))
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
