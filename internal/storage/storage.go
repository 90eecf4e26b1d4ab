// Package storage abstracts the durable object store holding original
// uploads and generated variants.
package storage

import (
	"context"
	"time"
)

// ObjectStore persists image bytes and issues time-limited access URLs.
type ObjectStore interface {
	// Put writes data under bucket/key and returns the canonical key.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	// Get loads the object's bytes.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// SignedURL returns a URL granting read access to bucket/key for ttl.
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	// Delete removes the object. Missing objects are not an error.
	Delete(ctx context.Context, bucket, key string) error
}
