// Package shares persists share grants between a file owner and other users.
package shares

import (
	"context"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type Repository interface {
	// Upsert creates the grant for (FileID, GranteeID) or replaces the level
	// and note of the existing one. The stored row is returned; its ID,
	// CreatedAt and Viewed are kept on update.
	Upsert(ctx context.Context, g *models.ShareGrant) (*models.ShareGrant, error)
	Get(ctx context.Context, id string) (*models.ShareGrant, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByFile(ctx context.Context, fileID string) (int64, error)
	ListByFile(ctx context.Context, fileID string) ([]*models.ShareGrant, error)
	ListForGrantee(ctx context.Context, userID string) ([]*models.SharedFile, error)
	ListByGrantor(ctx context.Context, userID string) ([]*models.SharedFile, error)
	MarkViewed(ctx context.Context, id string) (bool, error)
	LevelFor(ctx context.Context, fileID, userID string) (models.PermissionLevel, error)
}
