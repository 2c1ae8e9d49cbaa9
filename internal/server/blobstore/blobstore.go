// Package blobstore keeps ciphertext blobs, one per storage locator, under
// the "encrypted/" namespace.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/google/uuid"
)

// Namespace prefixes every locator.
const Namespace = "encrypted/"

// BlobStore writes and deletes whole blobs atomically: a reader never sees a
// partially written blob.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Get opens the blob. A missing blob yields common.ErrStorageIO.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// NewLocator returns a fresh random locator of the form
// encrypted/YYYY/MM/DD/<uuid>.
func NewLocator(now time.Time) string {
	return fmt.Sprintf("%s%04d/%02d/%02d/%s", Namespace, now.Year(), now.Month(), now.Day(), uuid.NewString())
}

func checkKey(key string) error {
	if !strings.HasPrefix(key, Namespace) || strings.Contains(key, "..") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: invalid blob key %q", common.ErrInvalidArgument, key)
	}
	return nil
}
