package documents

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/pdfvault/pdfvault/internal/common"
	"github.com/pdfvault/pdfvault/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var docColumns = []string{"id", "owner_id", "name", "object_key", "url", "size_bytes", "created_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+documents\b`
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(q).
		WithArgs(sqlmock.AnyArg(), "u1", "report.pdf", "documents/u1/report.pdf", "http://s3/documents/u1/report.pdf", int64(1024), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	doc := &models.Document{
		OwnerID:   "u1",
		Name:      "report.pdf",
		ObjectKey: "documents/u1/report.pdf",
		URL:       "http://s3/documents/u1/report.pdf",
		SizeBytes: 1024,
		CreatedAt: created,
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("Create must assign an id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+documents\b`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.Document{OwnerID: "u1", Name: "a.pdf"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*SELECT\b.*FROM\s+documents\s+WHERE\s+owner_id=\$1\s+AND\s+id=\$2`).
		WithArgs("u1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "u1", "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestFindByName_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(docColumns).
		AddRow("d1", "u1", "report.pdf", "documents/u1/report.pdf", "http://s3/x", int64(5), created)

	mock.ExpectQuery(`(?s)^\s*SELECT\b.*FROM\s+documents\s+WHERE\s+owner_id=\$1\s+AND\s+name=\$2`).
		WithArgs("u1", "report.pdf").
		WillReturnRows(rows)

	doc, err := repo.FindByName(context.Background(), "u1", "report.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "d1" || doc.Name != "report.pdf" || !doc.CreatedAt.Equal(created) {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestFindByName_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*SELECT\b.*FROM\s+documents\s+WHERE\s+owner_id=\$1\s+AND\s+name=\$2`).
		WithArgs("u1", "nope.pdf").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByName(context.Background(), "u1", "nope.pdf")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListByOwner_OrderAndScan(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	newer := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(docColumns).
		AddRow("d2", "u1", "b.pdf", "documents/u1/b.pdf", "http://s3/b", int64(2), newer).
		AddRow("d1", "u1", "a.pdf", "documents/u1/a.pdf", "http://s3/a", int64(1), older)

	mock.ExpectQuery(`(?s)^\s*SELECT\b.*FROM\s+documents\s+WHERE\s+owner_id=\$1\s+ORDER\s+BY\s+created_at\s+DESC`).
		WithArgs("u1").
		WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "d2" || got[1].ID != "d1" {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+documents\s+WHERE\s+owner_id=\$1\s+AND\s+id=\$2$`).
		WithArgs("u1", "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "u1", "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+documents\s+WHERE\s+owner_id=\$1\s+AND\s+id=\$2$`).
		WithArgs("u1", "dX").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "u1", "dX")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
