package ports

import "context"

// BlobStore persists avatar images and serves them from public URLs.
type BlobStore interface {
	// Put stores data under key with public-read access and returns the
	// public URL of the object.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the object behind a URL previously returned by Put.
	Delete(ctx context.Context, ref string) error
	// Owns reports whether ref points into this store. References to other
	// hosts (for example identity-provider avatars) are never deleted.
	Owns(ref string) bool
	Ping(ctx context.Context) error
}
