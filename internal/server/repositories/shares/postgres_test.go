package shares

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var grantCols = []string{"id", "file_id", "grantor_id", "grantee_id", "level", "note", "created_at", "viewed"}

func TestUpsert_ReturnsStoredRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows(grantCols).AddRow("g-old", "f1", "alice", "bob", "download", "now with download", created, true)

	mock.ExpectQuery(`^INSERT INTO share_grants .* ON CONFLICT \(file_id, grantee_id\) DO UPDATE SET level = EXCLUDED.level, note = EXCLUDED.note RETURNING id,`).
		WithArgs("g-new", "f1", "alice", "bob", "download", "now with download", sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := repo.Upsert(context.Background(), &models.ShareGrant{
		ID: "g-new", FileID: "f1", GrantorID: "alice", GranteeID: "bob",
		Level: models.LevelDownload, Note: "now with download", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if got.ID != "g-old" || !got.Viewed || got.Level != models.LevelDownload || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected grant: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO share_grants`).WillReturnError(errors.New("fk violation"))

	_, err := repo.Upsert(context.Background(), &models.ShareGrant{ID: "g", Level: models.LevelView})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(grantCols).AddRow("g1", "f1", "alice", "bob", "view", "", time.Now(), false)
	mock.ExpectQuery(`FROM share_grants WHERE id = \$1$`).WithArgs("g1").WillReturnRows(rows)
	mock.ExpectQuery(`FROM share_grants WHERE id = \$1$`).WithArgs("g2").WillReturnError(sql.ErrNoRows)

	g, err := repo.Get(context.Background(), "g1")
	if err != nil || g.Level != models.LevelView || g.GranteeID != "bob" {
		t.Fatalf("unexpected result: %+v, %v", g, err)
	}

	if _, err := repo.Get(context.Background(), "g2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDeleteAndMarkViewed_ReportExistence(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM share_grants WHERE id = \$1$`).WithArgs("g1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE FROM share_grants WHERE id = \$1$`).WithArgs("g1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^UPDATE share_grants SET viewed = TRUE WHERE id = \$1$`).WithArgs("g2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^UPDATE share_grants SET viewed = TRUE WHERE id = \$1$`).WithArgs("g3").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if ok, err := repo.Delete(ctx, "g1"); err != nil || !ok {
		t.Fatalf("first delete: %v %v", ok, err)
	}
	if ok, err := repo.Delete(ctx, "g1"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if ok, err := repo.MarkViewed(ctx, "g2"); err != nil || !ok {
		t.Fatalf("mark viewed: %v %v", ok, err)
	}
	if ok, err := repo.MarkViewed(ctx, "g3"); err != nil || ok {
		t.Fatalf("mark viewed missing: %v %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteByFile(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM share_grants WHERE file_id = \$1$`).WithArgs("f1").WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteByFile(context.Background(), "f1")
	if err != nil || n != 3 {
		t.Fatalf("want 3, got %d (%v)", n, err)
	}
}

func TestListForGrantee_JoinsGrantor(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	cols := append(append([]string{}, grantCols...),
		"owner_id", "original_name", "mime_type", "plaintext_size", "f_created_at", "u_id", "username")
	rows := sqlmock.NewRows(cols).
		AddRow("g1", "f1", "alice", "bob", "full", "", now, false, "alice", "report.pdf", "application/pdf", int64(10), now, "alice", "Alice")

	mock.ExpectQuery(`FROM share_grants g JOIN files f ON f.id = g.file_id JOIN users u ON u.id = g.grantor_id WHERE g.grantee_id = \$1 ORDER BY g.created_at DESC`).
		WithArgs("bob").WillReturnRows(rows)

	got, err := repo.ListForGrantee(context.Background(), "bob")
	if err != nil {
		t.Fatalf("ListForGrantee error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 row, got %d", len(got))
	}
	sf := got[0]
	if sf.File.ID != "f1" || sf.File.OriginalName != "report.pdf" || sf.Counterpart.UserName != "Alice" || sf.Grant.Level != models.LevelFull {
		t.Fatalf("unexpected shared file: %+v", sf)
	}
}

func TestListByGrantor_JoinsGrantee(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`JOIN users u ON u.id = g.grantee_id WHERE g.grantor_id = \$1`).
		WithArgs("alice").WillReturnError(errors.New("boom"))

	if _, err := repo.ListByGrantor(context.Background(), "alice"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLevelFor_Highest(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT level FROM share_grants WHERE file_id = \$1 AND grantee_id = \$2$`).
		WithArgs("f1", "bob").
		WillReturnRows(sqlmock.NewRows([]string{"level"}).AddRow("view").AddRow("download"))
	mock.ExpectQuery(`SELECT level FROM share_grants`).
		WithArgs("f1", "carol").
		WillReturnRows(sqlmock.NewRows([]string{"level"}))

	l, err := repo.LevelFor(context.Background(), "f1", "bob")
	if err != nil || l != models.LevelDownload {
		t.Fatalf("want download, got %v (%v)", l, err)
	}
	l, err = repo.LevelFor(context.Background(), "f1", "carol")
	if err != nil || l != models.LevelNone {
		t.Fatalf("want none, got %v (%v)", l, err)
	}
}

func TestListByFile(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(grantCols).
		AddRow("g1", "f1", "alice", "bob", "view", "", time.Now(), false).
		AddRow("g2", "f1", "alice", "carol", "full", "", time.Now(), true)
	mock.ExpectQuery(`FROM share_grants WHERE file_id = \$1 ORDER BY created_at DESC`).WithArgs("f1").WillReturnRows(rows)

	got, err := repo.ListByFile(context.Background(), "f1")
	if err != nil || len(got) != 2 || got[1].GranteeID != "carol" {
		t.Fatalf("unexpected result: %+v, %v", got, err)
	}
}
