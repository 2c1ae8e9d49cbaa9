package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/server/migrations"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/accesslog"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/shares"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type pgRepos struct {
	db     dbx.DBTX
	sealer files.KeySealer
}

func (r pgRepos) Files() files.Repository         { return files.NewPostgresRepository(r.db, r.sealer) }
func (r pgRepos) Shares() shares.Repository       { return shares.NewPostgresRepository(r.db) }
func (r pgRepos) AccessLog() accesslog.Repository { return accesslog.NewPostgresRepository(r.db) }
func (r pgRepos) Users() users.Repository         { return users.NewPostgresRepository(r.db) }

// PostgresRepositoryManager vends PostgreSQL-backed repositories and exposes
// a schema migration hook.
type PostgresRepositoryManager struct {
	pgRepos
	conn *sql.DB
}

// NewPostgresRepositoryManager wraps an open connection pool. File keys are
// sealed with sealer before they are stored.
func NewPostgresRepositoryManager(db *sql.DB, sealer files.KeySealer) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{pgRepos: pgRepos{db: db, sealer: sealer}, conn: db}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.conn, ".")
}

func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return dbx.WithTx(ctx, m.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, pgRepos{db: tx, sealer: m.sealer})
	})
}

func (m *PostgresRepositoryManager) Close() error {
	return m.conn.Close()
}
