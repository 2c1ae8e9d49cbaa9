package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const grantColumns = `id, file_id, grantor_id, grantee_id, level, note, created_at, viewed`

func (r *PostgresRepository) Upsert(ctx context.Context, g *models.ShareGrant) (*models.ShareGrant, error) {
	query := `INSERT INTO share_grants (` + grantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
		ON CONFLICT (file_id, grantee_id)
		DO UPDATE SET level = EXCLUDED.level, note = EXCLUDED.note
		RETURNING ` + grantColumns

	stored, err := scanGrant(r.db.QueryRowContext(ctx, query,
		g.ID, g.FileID, g.GrantorID, g.GranteeID, g.Level.String(), g.Note, g.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return stored, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.ShareGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM share_grants WHERE id = $1`

	g, err := scanGrant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.exec(ctx, `DELETE FROM share_grants WHERE id = $1`, id)
	return n > 0, err
}

func (r *PostgresRepository) DeleteByFile(ctx context.Context, fileID string) (int64, error) {
	return r.exec(ctx, `DELETE FROM share_grants WHERE file_id = $1`, fileID)
}

// MarkViewed sets viewed and reports whether the grant exists.
func (r *PostgresRepository) MarkViewed(ctx context.Context, id string) (bool, error) {
	n, err := r.exec(ctx, `UPDATE share_grants SET viewed = TRUE WHERE id = $1`, id)
	return n > 0, err
}

func (r *PostgresRepository) ListByFile(ctx context.Context, fileID string) ([]*models.ShareGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM share_grants WHERE file_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to select grants: %w", err)
	}
	defer rows.Close()

	var result []*models.ShareGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

const sharedFileSelect = `SELECT g.id, g.file_id, g.grantor_id, g.grantee_id, g.level, g.note, g.created_at, g.viewed,
		f.owner_id, f.original_name, f.mime_type, f.plaintext_size, f.created_at,
		u.id, u.username
	FROM share_grants g
	JOIN files f ON f.id = g.file_id
	JOIN users u ON u.id = `

// ListForGrantee returns grants received by userID joined with the grantor.
func (r *PostgresRepository) ListForGrantee(ctx context.Context, userID string) ([]*models.SharedFile, error) {
	query := sharedFileSelect + `g.grantor_id WHERE g.grantee_id = $1 ORDER BY g.created_at DESC`
	return r.listShared(ctx, query, userID)
}

// ListByGrantor returns grants made by userID joined with the grantee.
func (r *PostgresRepository) ListByGrantor(ctx context.Context, userID string) ([]*models.SharedFile, error) {
	query := sharedFileSelect + `g.grantee_id WHERE g.grantor_id = $1 ORDER BY g.created_at DESC`
	return r.listShared(ctx, query, userID)
}

// LevelFor returns the highest level granted to userID on fileID, or
// LevelNone.
func (r *PostgresRepository) LevelFor(ctx context.Context, fileID, userID string) (models.PermissionLevel, error) {
	query := `SELECT level FROM share_grants WHERE file_id = $1 AND grantee_id = $2`

	rows, err := r.db.QueryContext(ctx, query, fileID, userID)
	if err != nil {
		return models.LevelNone, fmt.Errorf("failed to select level: %w", err)
	}
	defer rows.Close()

	best := models.LevelNone
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return models.LevelNone, err
		}
		l, err := models.ParsePermissionLevel(s)
		if err != nil {
			return models.LevelNone, err
		}
		if l > best {
			best = l
		}
	}
	if err := rows.Err(); err != nil {
		return models.LevelNone, err
	}
	return best, nil
}

func (r *PostgresRepository) listShared(ctx context.Context, query, userID string) ([]*models.SharedFile, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select shared files: %w", err)
	}
	defer rows.Close()

	var result []*models.SharedFile
	for rows.Next() {
		var (
			sf    models.SharedFile
			level string
		)
		g := &sf.Grant
		err := rows.Scan(&g.ID, &g.FileID, &g.GrantorID, &g.GranteeID, &level, &g.Note, &g.CreatedAt, &g.Viewed,
			&sf.File.OwnerID, &sf.File.OriginalName, &sf.File.MimeType, &sf.File.PlaintextSize, &sf.File.CreatedAt,
			&sf.Counterpart.ID, &sf.Counterpart.UserName)
		if err != nil {
			return nil, err
		}
		if g.Level, err = models.ParsePermissionLevel(level); err != nil {
			return nil, err
		}
		sf.File.ID = g.FileID
		result = append(result, &sf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (*models.ShareGrant, error) {
	var (
		g     models.ShareGrant
		level string
	)
	if err := row.Scan(&g.ID, &g.FileID, &g.GrantorID, &g.GranteeID, &level, &g.Note, &g.CreatedAt, &g.Viewed); err != nil {
		return nil, err
	}
	l, err := models.ParsePermissionLevel(level)
	if err != nil {
		return nil, err
	}
	g.Level = l
	return &g, nil
}
