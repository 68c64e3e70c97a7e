package idempotency

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSQLite(db))
	return NewSQLiteStore(db, zap.NewNop())
}

func TestSQLiteStore_MarkAndCheck(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "evt-1")
	assert.NoError(t, err)
	assert.False(t, processed)

	assert.NoError(t, store.MarkProcessed(ctx, "evt-1"))

	processed, err = store.IsProcessed(ctx, "evt-1")
	assert.NoError(t, err)
	assert.True(t, processed)

	// Consultas repetidas siguen devolviendo true.
	processed, err = store.IsProcessed(ctx, "evt-1")
	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestSQLiteStore_DuplicateMarkIsSilent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, store.MarkProcessed(ctx, "evt-dup"))
	// La violación de unicidad se traga: otra instancia ya lo marcó.
	assert.NoError(t, store.MarkProcessed(ctx, "evt-dup"))
}

func TestSQLiteStore_IndependentKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, store.MarkProcessed(ctx, "evt-a"))

	processed, err := store.IsProcessed(ctx, "evt-b")
	assert.NoError(t, err)
	assert.False(t, processed)
}
