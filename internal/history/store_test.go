package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"linksort/internal/errors"
	"linksort/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, types.OrganizeResult{
		SourcePath:      "@Alice.md",
		DestinationPath: "People/@Alice.md",
		Rule:            "People",
		Status:          types.StatusMoved,
		TemplateApplied: true,
		Timestamp:       base,
	}))
	require.NoError(t, store.Record(ctx, types.OrganizeResult{
		SourcePath:      "@Alice.md",
		DestinationPath: "People/@Alice.md",
		Rule:            "People",
		Status:          types.StatusSkipped,
		Reason:          "destination exists",
		Timestamp:       base.Add(time.Minute),
	}))

	entries, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, types.StatusSkipped, entries[0].Status, "newest first")
	assert.Equal(t, "destination exists", entries[0].Reason)
	assert.False(t, entries[0].TemplateApplied)

	assert.Equal(t, types.StatusMoved, entries[1].Status)
	assert.True(t, entries[1].TemplateApplied)
	assert.Equal(t, "People/@Alice.md", entries[1].Destination)
	assert.True(t, base.Equal(entries[1].Time))
	assert.NotEmpty(t, entries[1].ID)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, entries[0].ID, limited[0].ID)
}

func TestRecordDefaultsTimestamp(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	before := time.Now().Add(-time.Second)
	require.NoError(t, store.Record(ctx, types.OrganizeResult{SourcePath: "a.md", Status: types.StatusSkipped}))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Time.After(before))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Record(ctx, types.OrganizeResult{SourcePath: "a.md", Status: types.StatusMoved}))
	}

	removed, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	entries, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, types.OrganizeResult{SourcePath: "a.md", Status: types.StatusMoved}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, path, store.Path())

	entries, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.db.Exec("UPDATE schema_version SET version = 99")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.True(t, errors.IsDatabaseError(err))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.ErrorContains(t, err, "delete "+path)
	assert.NotContains(t, err.Error(), "--clear", "clearing needs a readable journal")
}

func TestIsSQLiteBusy(t *testing.T) {
	assert.False(t, isSQLiteBusy(nil))
	assert.True(t, isSQLiteBusy(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, isSQLiteBusy(errors.New("no such table")))
}

func TestRetryOnBusy(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := retryOnBusy(ctx, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryOnBusy(ctx, func() error {
		calls++
		return errors.New("syntax error")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "non-busy errors are not retried")
}
