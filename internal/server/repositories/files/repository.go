// Package files persists encrypted file metadata records.
package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

// Repository is the file record store. Key, IV and locator are written once
// by Create and never updated.
type Repository interface {
	Create(ctx context.Context, file *models.EncryptedFile) error
	Get(ctx context.Context, id string) (*models.EncryptedFile, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.EncryptedFile, error)
	TouchAccessed(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
}

// KeySealer wraps per-file keys before they are written to the database.
type KeySealer interface {
	Seal(key []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}
