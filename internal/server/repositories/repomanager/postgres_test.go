package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return db, mock
}

func TestPostgresManager_VendsRepositories(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	var m RepositoryManager = NewPostgresRepositoryManager(db, nil)
	assert.NotNil(t, m.Files())
	assert.NotNil(t, m.Shares())
	assert.NotNil(t, m.AccessLog())
	assert.NotNil(t, m.Users())
}

func TestPostgresManager_WithTxCommits(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM share_grants WHERE file_id`).WithArgs("f1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM files WHERE id`).WithArgs("f1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m := NewPostgresRepositoryManager(db, nil)
	err := m.WithTx(context.Background(), func(ctx context.Context, r Repositories) error {
		if _, err := r.Shares().DeleteByFile(ctx, "f1"); err != nil {
			return err
		}
		_, err := r.Files().Delete(ctx, "f1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresManager_WithTxRollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM share_grants`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	m := NewPostgresRepositoryManager(db, nil)
	err := m.WithTx(context.Background(), func(ctx context.Context, r Repositories) error {
		_, err := r.Shares().DeleteByFile(ctx, "f1")
		return err
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db, nil)
	require.NoError(t, m.RunMigrations(context.Background()))
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db, nil)
	assert.EqualError(t, m.RunMigrations(context.Background()), "boom")
}

func TestMemoryManager_WithTxIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryRepositoryManager()
	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, m.Users().Upsert(ctx, &models.User{ID: "alice"}))

	err := m.WithTx(ctx, func(ctx context.Context, r Repositories) error {
		if err := r.Files().Create(ctx, &models.EncryptedFile{ID: "f1", OwnerID: "alice", StorageLocator: "encrypted/f1"}); err != nil {
			return err
		}
		return common.ErrStorageIO
	})
	require.ErrorIs(t, err, common.ErrStorageIO)

	_, err = m.Files().Get(ctx, "f1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.NoError(t, m.Close())
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	m, err := New(ctx, StoreMemory, "", nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepositoryManager{}, m)

	_, err = New(ctx, StorePostgres, "", nil)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = New(ctx, "mongo", "x", nil)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestNew_PostgresPingFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	orig := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driver)
		return db, nil
	}
	defer func() { sqlOpen = orig }()

	_, err = New(context.Background(), StorePostgres, "postgres://localhost/db", nil)
	assert.ErrorContains(t, err, "refused")
	require.NoError(t, mock.ExpectationsWereMet())
}
