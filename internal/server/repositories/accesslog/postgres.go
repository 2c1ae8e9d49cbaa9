package accesslog

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts e and fills in its generated ID. A row for a file that no
// longer exists yields common.ErrorNotFound.
func (r *PostgresRepository) Append(ctx context.Context, e *models.AccessLogEntry) error {
	query := `INSERT INTO access_log (file_id, user_id, action, source_address, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, e.FileID, e.UserID, string(e.Action), e.SourceAddress, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: file %s", common.ErrorNotFound, e.FileID)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, fileID string, limit int) ([]*models.AccessLogEntry, error) {
	query := `SELECT id, file_id, user_id, action, source_address, created_at FROM access_log
		WHERE file_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, fileID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select access log: %w", err)
	}
	defer rows.Close()

	var result []*models.AccessLogEntry
	for rows.Next() {
		var (
			e      models.AccessLogEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.FileID, &e.UserID, &action, &e.SourceAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = models.AccessAction(action)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteByFile(ctx context.Context, fileID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM access_log WHERE file_id = $1`, fileID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
