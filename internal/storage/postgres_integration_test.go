package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage/storagetest"
)

func TestPostgres_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("INSIGHTS_INTEGRATION") == "" {
		t.Skip("set INSIGHTS_INTEGRATION=1 to run container-backed tests")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("insights_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := storage.Open("postgres", dsn, storage.PoolOptions{MaxOpenConns: 2})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, storagetest.CreateSchema(ctx, store.DB()))
	require.NoError(t, storagetest.Seed(ctx, store.DB(), store.Dialect()))

	exec := storage.NewExecutor(store, observability.NopLogger())
	table, err := exec.Run(ctx,
		"SELECT SUM(clicks) AS total_clicks, ROUND(CAST(SUM(clicks)*100.0/NULLIF(SUM(impressions),0) AS NUMERIC),2) AS avg_ctr FROM campaign_metrics WHERE UPPER(campaign_name) LIKE $1 ESCAPE '\\'",
		"%GAMMA%")
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, 100.0, table.FloatOr(0, "total_clicks"))
	assert.Equal(t, 1.0, table.FloatOr(0, "avg_ctr"))
}
