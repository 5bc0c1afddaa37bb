package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/cache"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage/storagetest"
)

func TestDialect_Placeholder(t *testing.T) {
	assert.Equal(t, "?", storage.DialectSQLite.Placeholder(3))
	assert.Equal(t, "$3", storage.DialectPostgres.Placeholder(3))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := storage.Open("oracle", "x", storage.PoolOptions{})
	assert.ErrorIs(t, err, storage.ErrUnsupportedDriver)
}

func TestSQLite_UnicodeUpper(t *testing.T) {
	store := storagetest.OpenSQLite(t)
	var got string
	err := store.DB().QueryRowContext(context.Background(), "SELECT UPPER('рко фрк4')").Scan(&got)
	require.NoError(t, err)
	assert.Equal(t, "РКО ФРК4", got)
}

func TestExecutor_Run(t *testing.T) {
	store := storagetest.OpenSQLite(t)
	exec := storage.NewExecutor(store, observability.NopLogger())

	table, err := exec.Run(context.Background(),
		"SELECT campaign_name, SUM(clicks) AS clicks FROM campaign_metrics WHERE UPPER(campaign_name) LIKE ? GROUP BY campaign_name",
		"%ALPHA4%")
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"campaign_name", "clicks"}, table.Columns)
	assert.Equal(t, "ALPHA4 (YANDEX)", table.String(0, "campaign_name"))

	clicks, ok := table.Float(0, "clicks")
	require.True(t, ok)
	assert.Equal(t, 500.0, clicks)
}

func TestExecutor_RunFailureReturnsEmptyTable(t *testing.T) {
	store := storagetest.OpenSQLite(t)
	exec := storage.NewExecutor(store, observability.NopLogger())

	table, err := exec.Run(context.Background(), "SELECT nope FROM missing_table")
	assert.Error(t, err)
	require.NotNil(t, table)
	assert.True(t, table.Empty())
}

func TestExecutor_ReleasesConnection(t *testing.T) {
	store := storagetest.OpenSQLite(t)
	exec := storage.NewExecutor(store, observability.NopLogger())

	// The pool holds a single connection, so a leaked checkout would block.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		_, err := exec.Run(ctx, "SELECT COUNT(*) FROM campaign_metrics")
		require.NoError(t, err)
	}
	assert.Equal(t, 0, store.DB().Stats().InUse)
}

func TestResultTable_Accessors(t *testing.T) {
	table := &storage.ResultTable{
		Columns: []string{"total_clicks", "Platform", "empty"},
		Rows:    [][]interface{}{{float64(10), "VK", nil}},
	}

	assert.True(t, table.HasPrefix("total_"))
	assert.True(t, table.Has("platform"))
	assert.False(t, table.Has("visits"))
	assert.Equal(t, 10.0, table.FloatOr(0, "total_clicks"))
	assert.Equal(t, "VK", table.String(0, "platform"))

	_, ok := table.Float(0, "empty")
	assert.False(t, ok)
	_, ok = table.Float(5, "total_clicks")
	assert.False(t, ok)
	assert.Equal(t, "", table.String(0, "missing"))

	var nilTable *storage.ResultTable
	assert.True(t, nilTable.Empty())
	assert.Equal(t, -1, nilTable.Index("x"))
}

func TestCampaignRepository_DistinctNames(t *testing.T) {
	store := storagetest.OpenSQLite(t)
	repos := storage.NewRepositories(store.DB())

	names, err := repos.Campaigns.DistinctNames(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, len(storagetest.Metrics)-1)
	assert.Contains(t, names, "ALPHA4 (YANDEX)")
	assert.IsIncreasing(t, names)

	utm, err := repos.Funnel.DistinctUTMCampaigns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"frk4_cards", "rko_spring"}, utm)
}

func TestCampaignCatalog_CachesNames(t *testing.T) {
	ctx := context.Background()
	store := storagetest.OpenSQLite(t)
	mem := cache.NewMemoryClient(10)
	defer mem.Close()

	catalog := storage.NewCampaignCatalog(storage.NewCampaignRepository(store.DB()), mem, time.Minute)

	first, err := catalog.Names(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, 1, mem.Len())

	// Rows added after the first call stay invisible until invalidation.
	_, err = store.DB().ExecContext(ctx,
		"INSERT INTO campaign_metrics (campaign_name, platform) VALUES ('DELTA (VK)', 'VK')")
	require.NoError(t, err)

	cached, err := catalog.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	// Unrelated entries survive invalidation.
	require.NoError(t, mem.Set(ctx, cache.CacheKey("lexicon", "version"), []byte("1"), time.Minute))

	require.NoError(t, catalog.Invalidate(ctx))
	assert.Equal(t, 1, mem.Len())
	_, err = mem.Get(ctx, "campaigns:names")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	fresh, err := catalog.Names(ctx)
	require.NoError(t, err)
	assert.Contains(t, fresh, "DELTA (VK)")
}

func TestCampaignCatalog_WithoutCache(t *testing.T) {
	store := storagetest.OpenSQLite(t)
	catalog := storage.NewCampaignCatalog(storage.NewCampaignRepository(store.DB()), nil, time.Minute)

	names, err := catalog.Names(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, names)
	assert.NoError(t, catalog.Invalidate(context.Background()))
}
