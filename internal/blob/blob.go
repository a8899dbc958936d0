// Package blob provides the object storage behind the storage
// capability: an in-memory provider for local hosts and tests, and an
// S3-compatible provider for real deployments.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/Makisuo/confect-plus/internal/platform"
)

// Storage is one object store. Stored objects are immutable: there is
// no overwrite operation, only store, inspect, and delete.
type Storage interface {
	// Store writes data under a freshly minted id.
	Store(ctx context.Context, data []byte, contentType string) (platform.FileID, error)

	// Exists reports whether an object is present.
	Exists(ctx context.Context, id platform.FileID) (bool, error)

	// Metadata describes a stored object. Missing objects resolve to
	// nil, not an error.
	Metadata(ctx context.Context, id platform.FileID) (*platform.FileMetadata, error)

	// URL returns a fetchable URL for the object.
	URL(ctx context.Context, id platform.FileID) (string, error)

	// Delete removes an object. Deleting a missing object is a no-op.
	Delete(ctx context.Context, id platform.FileID) error
}

// newFileID mints an object id. UUIDv7 keeps listings roughly
// chronological in S3 consoles.
func newFileID() (platform.FileID, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("mint file id: %w", err)
	}
	return platform.FileID(u.String()), nil
}

func contentSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
