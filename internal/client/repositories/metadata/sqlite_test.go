package metadata

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/dmitrijs2005/yieldvault/internal/client/migrations"
	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, "."))
	return db
}

func TestSetAndGet_InsertThenGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k1", []byte{0x01, 0x02}))

	v, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestGet_NotExists_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSet_UpsertBumpsVersion(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, ver, err := r.GetVersioned(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
	assert.Equal(t, int64(2), ver)
}

func TestCompareAndSet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, ver, err := r.GetVersioned(ctx, "transactions:0xabc")
	require.NoError(t, err)
	require.Zero(t, ver)

	ver, err = r.CompareAndSet(ctx, "transactions:0xabc", []byte("[1]"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)

	_, err = r.CompareAndSet(ctx, "transactions:0xabc", []byte("[x]"), 0)
	require.ErrorIs(t, err, common.ErrVersionConflict, "insert over existing key")

	ver, err = r.CompareAndSet(ctx, "transactions:0xabc", []byte("[1,2]"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)

	_, err = r.CompareAndSet(ctx, "transactions:0xabc", []byte("[stale]"), 1)
	require.ErrorIs(t, err, common.ErrVersionConflict)

	v, err := r.Get(ctx, "transactions:0xabc")
	require.NoError(t, err)
	assert.Equal(t, []byte("[1,2]"), v)
}

func TestCompareAndSet_ConcurrentWritersOneWins(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Set(ctx, "k", []byte("0")))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.CompareAndSet(ctx, "k", []byte("x"), 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, common.ErrVersionConflict) {
				conflict++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 7, conflict)
}

func TestList_Prefix(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "baseline:0xa:USDC", []byte("1")))
	require.NoError(t, r.Set(ctx, "baseline:0xb:USDC", []byte("2")))
	require.NoError(t, r.Set(ctx, "transactions:0xa", []byte("[]")))
	require.NoError(t, r.Set(ctx, "baseline_x", []byte("no")))

	m, err := r.List(ctx, "baseline:")
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Equal(t, []byte("2"), m["baseline:0xb:USDC"])

	all, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDelete_RemovesKey_AndIsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "x", []byte{0x01}))
	require.NoError(t, r.Delete(ctx, "x"))

	v, ver, err := r.GetVersioned(ctx, "x")
	require.NoError(t, err)
	require.Nil(t, v)
	require.Zero(t, ver)

	require.NoError(t, r.Delete(ctx, "x"))
}

func TestRepository_DBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get metadata[k]: failed to read metadata[k]")

	err = r.Set(ctx, "k", []byte("v"))
	require.ErrorContains(t, err, "failed to set metadata[k]")

	err = r.Delete(ctx, "k")
	require.ErrorContains(t, err, "failed to delete metadata[k]")

	_, err = r.CompareAndSet(ctx, "k", []byte("v"), 3)
	require.ErrorContains(t, err, "failed to write metadata[k]")

	_, err = r.List(ctx, "")
	require.ErrorContains(t, err, "failed to list metadata")
}
