package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/yieldvault/internal/server/repositories/nonces"
	"github.com/dmitrijs2005/yieldvault/internal/server/repositories/records"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresFactories_ReturnConcreteRepos(t *testing.T) {
	db := newDB(t)
	m := NewPostgresRepositoryManager()

	assert.IsType(t, &records.PostgresRepository{}, m.Records(db))
	assert.IsType(t, &nonces.PostgresRepository{}, m.Nonces(db))
}

func TestRunMigrations(t *testing.T) {
	db := newDB(t)
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	t.Run("success", func(t *testing.T) {
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			if dir != "." {
				return errors.New("unexpected dir")
			}
			return nil
		}
		require.NoError(t, (&PostgresRepositoryManager{}).RunMigrations(context.Background(), db))
	})

	t.Run("error", func(t *testing.T) {
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			return errors.New("boom")
		}
		err := (&PostgresRepositoryManager{}).RunMigrations(context.Background(), db)
		require.EqualError(t, err, "boom")
	})
}

func TestMemoryManager_SharesState(t *testing.T) {
	m := NewMemoryRepositoryManager()

	require.NoError(t, m.RunMigrations(context.Background(), nil))
	assert.Same(t, m.Records(nil), m.Records(nil))
	assert.Same(t, m.Nonces(nil), m.Nonces(nil))
}
