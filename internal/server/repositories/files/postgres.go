package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db     dbx.DBTX
	sealer KeySealer
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
// When sealer is nil, file keys are stored as given.
func NewPostgresRepository(db dbx.DBTX, sealer KeySealer) *PostgresRepository {
	return &PostgresRepository{db: db, sealer: sealer}
}

const fileColumns = `id, owner_id, original_name, mime_type, plaintext_size, stored_size, digest,
	cipher_algorithm, cipher_key, cipher_iv, storage_locator, created_at, last_accessed_at`

// Create inserts a new record. A duplicate id or locator yields common.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, f *models.EncryptedFile) error {
	key, err := r.seal(f.CipherKey)
	if err != nil {
		return err
	}

	query := `INSERT INTO files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.ExecContext(ctx, query,
		f.ID, f.OwnerID, f.OriginalName, f.MimeType, f.PlaintextSize, f.StoredSize, f.Digest,
		f.CipherAlgorithm, key, f.CipherIV, f.StorageLocator, f.CreatedAt, f.LastAccessedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: file %s already exists", common.ErrConflict, f.ID)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the record for id or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.EncryptedFile, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return f, nil
}

// ListByOwner returns the owner's files, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.EncryptedFile, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.EncryptedFile
	for rows.Next() {
		f, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// TouchAccessed moves last_accessed_at forward. It never moves it back, so
// concurrent touches may land in any order.
func (r *PostgresRepository) TouchAccessed(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE files SET last_accessed_at = $2 WHERE id = $1 AND last_accessed_at < $2`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to touch file: %w", err)
	}
	return nil
}

// Delete removes the record and reports whether it existed.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scan(row rowScanner) (*models.EncryptedFile, error) {
	f := &models.EncryptedFile{}
	var key []byte
	err := row.Scan(&f.ID, &f.OwnerID, &f.OriginalName, &f.MimeType, &f.PlaintextSize, &f.StoredSize,
		&f.Digest, &f.CipherAlgorithm, &key, &f.CipherIV, &f.StorageLocator, &f.CreatedAt, &f.LastAccessedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan file: %w", err)
	}

	if f.CipherKey, err = r.open(key); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresRepository) seal(key []byte) ([]byte, error) {
	if r.sealer == nil {
		return key, nil
	}
	sealed, err := r.sealer.Seal(key)
	if err != nil {
		return nil, fmt.Errorf("seal file key: %w", err)
	}
	return sealed, nil
}

func (r *PostgresRepository) open(stored []byte) ([]byte, error) {
	if r.sealer == nil {
		return stored, nil
	}
	key, err := r.sealer.Open(stored)
	if err != nil {
		return nil, fmt.Errorf("open file key: %w", err)
	}
	return key, nil
}
