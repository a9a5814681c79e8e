package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/service"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store
}

func testMatch(name string) *service.CachedMatch {
	return &service.CachedMatch{
		Name:       name,
		LabelsKey:  "Воздуховоды\x1fСтены",
		Label:      "Стены",
		Method:     "ai",
		Confidence: 0.87,
	}
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t)

	// Second run has nothing to apply and must not fail.
	require.NoError(t, store.Migrate(context.Background()))

	var version int
	err := store.db.QueryRow("PRAGMA user_version").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestMatchCache_SaveAndGet(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	saved := testMatch("Кладка кирпичная")
	require.NoError(t, store.SaveCachedMatch(ctx, saved))

	got, err := store.GetCachedMatch(ctx, "Кладка кирпичная", saved.LabelsKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.Label, got.Label)
	assert.Equal(t, saved.Method, got.Method)
	assert.InDelta(t, saved.Confidence, got.Confidence, 0.0001)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestMatchCache_MissReturnsNil(t *testing.T) {
	store := createTestStorage(t)

	got, err := store.GetCachedMatch(context.Background(), "никогда не видел", "labels")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatchCache_SameNameDifferentLabels(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first := testMatch("Кладка")
	require.NoError(t, store.SaveCachedMatch(ctx, first))
	second := testMatch("Кладка")
	second.LabelsKey = "Перегородки"
	second.Label = "Перегородки"
	require.NoError(t, store.SaveCachedMatch(ctx, second))

	got, err := store.GetCachedMatch(ctx, "Кладка", "Перегородки")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Перегородки", got.Label)
}

func TestMatchCache_UpsertReplacesExisting(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	match := testMatch("Кладка")
	require.NoError(t, store.SaveCachedMatch(ctx, match))

	match.Label = "Воздуховоды"
	match.Method = "semantic"
	require.NoError(t, store.SaveCachedMatch(ctx, match))

	got, err := store.GetCachedMatch(ctx, "Кладка", match.LabelsKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Воздуховоды", got.Label)
	assert.Equal(t, "semantic", got.Method)

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM match_cache").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMatchCache_Prune(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	old := testMatch("старая запись")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, store.SaveCachedMatch(ctx, old))

	fresh := testMatch("свежая запись")
	fresh.CreatedAt = time.Now().UTC()
	require.NoError(t, store.SaveCachedMatch(ctx, fresh))

	deleted, err := store.PruneMatchCache(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := store.GetCachedMatch(ctx, "старая запись", old.LabelsKey)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.GetCachedMatch(ctx, "свежая запись", fresh.LabelsKey)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestSaveCachedMatch_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	assert.Error(t, store.SaveCachedMatch(ctx, nil))
	assert.Error(t, store.SaveCachedMatch(ctx, &service.CachedMatch{Label: "Стены"}))
	assert.Error(t, store.SaveCachedMatch(ctx, &service.CachedMatch{Name: "Кладка"}))
}

func TestRuns_SaveAssignsIDAndTime(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	run := &model.RunRecord{TolerancePct: 3.0, OK: 5, RedFlags: 2, NoMatch: 1, Missing: 3, ReportJSON: `{"matches":[]}`}
	require.NoError(t, store.SaveRun(ctx, run))
	require.NotEmpty(t, run.ID)
	assert.False(t, run.StartedAt.IsZero())

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, 5, got.OK)
	assert.Equal(t, 2, got.RedFlags)
	assert.Equal(t, 1, got.NoMatch)
	assert.Equal(t, 3, got.Missing)
	assert.Equal(t, `{"matches":[]}`, got.ReportJSON)
	assert.InDelta(t, 3.0, got.TolerancePct, 0.0001)
}

func TestRuns_GetUnknownID(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetRun(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRuns_ListNewestFirst(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-3 * time.Hour)
	for i := 0; i < 3; i++ {
		run := &model.RunRecord{
			StartedAt:    base.Add(time.Duration(i) * time.Hour),
			TolerancePct: 3.0,
			OK:           i,
		}
		require.NoError(t, store.SaveRun(ctx, run))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].OK)
	assert.Equal(t, 1, runs[1].OK)

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTransaction_CommitPersists(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveCachedMatch(ctx, testMatch("в транзакции")))
	require.NoError(t, tx.Commit())

	got, err := store.GetCachedMatch(ctx, "в транзакции", testMatch("").LabelsKey)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestTransaction_RollbackDiscards(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveCachedMatch(ctx, testMatch("откат")))
	require.NoError(t, tx.Rollback())

	got, err := store.GetCachedMatch(ctx, "откат", testMatch("").LabelsKey)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransaction_RestrictedOperations(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	assert.Error(t, tx.Migrate(ctx))
	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
	assert.Error(t, tx.Close())
}
