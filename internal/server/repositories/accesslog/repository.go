// Package accesslog stores the append-only per-file audit trail.
package accesslog

import (
	"context"

	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, e *models.AccessLogEntry) error
	// ListRecent returns at most limit entries for fileID, newest first.
	ListRecent(ctx context.Context, fileID string, limit int) ([]*models.AccessLogEntry, error)
	DeleteByFile(ctx context.Context, fileID string) (int64, error)
}
