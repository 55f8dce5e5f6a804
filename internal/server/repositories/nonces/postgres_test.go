package nonces

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/yieldvault/internal/common"
)

const addr = "0x00000000000000000000000000000000000000aa"

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestPut_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+auth_nonces\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*ON\s+CONFLICT\s+\(address\)\s+DO\s+UPDATE.*$`

	mock.ExpectExec(q).
		WithArgs(addr, "n1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Put(context.Background(), addr, "n1", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPut_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+auth_nonces`).
		WithArgs(addr, "n1", sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	err := repo.Put(context.Background(), addr, "n1", time.Minute)
	if err == nil || !regexp.MustCompile(`error performing sql request: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestConsume_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*DELETE\s+FROM\s+auth_nonces\s+WHERE\s+address\s*=\s*\$1\s+RETURNING\s+nonce,\s*expires_at\s*$`

	expires := time.Now().Add(5 * time.Minute)
	mock.ExpectQuery(q).
		WithArgs(addr).
		WillReturnRows(sqlmock.NewRows([]string{"nonce", "expires_at"}).AddRow("n1", expires))

	got, err := repo.Consume(context.Background(), addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value != "n1" || got.Address != addr || !got.Expires.Equal(expires) {
		t.Fatalf("unexpected nonce: %+v", got)
	}
}

func TestConsume_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)DELETE\s+FROM\s+auth_nonces`).
		WithArgs(addr).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Consume(context.Background(), addr)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestConsume_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)DELETE\s+FROM\s+auth_nonces`).
		WithArgs(addr).
		WillReturnError(errors.New("db down"))

	_, err := repo.Consume(context.Background(), addr)
	if err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected db error, got %v", err)
	}
}

func TestMemoryRepository_SingleUse(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	if err := repo.Put(ctx, addr, "first", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := repo.Put(ctx, addr, "second", time.Minute); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Consume(ctx, addr)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got.Value != "second" || !got.Expires.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected nonce: %+v", got)
	}
	if _, err := repo.Consume(ctx, addr); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("second consume should be not found, got %v", err)
	}
}
