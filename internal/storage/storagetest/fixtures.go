// Package storagetest seeds campaign and funnel tables for tests.
package storagetest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

// Schema creates both tables. The DDL is accepted by SQLite and Postgres.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS campaign_metrics (
		date TEXT,
		campaign_id TEXT,
		campaign_name TEXT,
		campaign TEXT,
		platform TEXT,
		impressions BIGINT,
		clicks BIGINT,
		cost_before_vat DOUBLE PRECISION,
		visits BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS funnel_data (
		date TEXT,
		traffic_source TEXT,
		utm_campaign TEXT,
		utm_source TEXT,
		utm_medium TEXT,
		utm_content TEXT,
		utm_term TEXT,
		visit_id TEXT,
		submits BIGINT,
		res BIGINT,
		subs_all BIGINT,
		account_num BIGINT,
		created_flag BIGINT,
		call_answered_flag BIGINT,
		quality_flag BIGINT,
		quality BIGINT
	)`,
}

// MetricRow is one campaign_metrics row.
type MetricRow struct {
	Date        string
	CampaignID  string
	Name        string
	Platform    string
	Impressions int64
	Clicks      int64
	Cost        float64
	Visits      int64
}

// FunnelRow is one funnel_data row.
type FunnelRow struct {
	Date          string
	Source        string
	UTMCampaign   string
	UTMMedium     string
	VisitID       string
	Submits       int64
	Accounts      int64
	Created       int64
	CallsAnswered int64
	QualityLeads  int64
}

// Metrics is the seeded campaign data. Exactly one raw name contains
// ALPHA4; GAMMA spans two venues of one identity; BETA has two identities.
var Metrics = []MetricRow{
	{"2024-05-01", "c1", "ALPHA4 (YANDEX)", "Yandex", 10000, 300, 9000, 700},
	{"2024-05-02", "c1", "ALPHA4 (YANDEX)", "Yandex", 8000, 200, 7000, 500},
	{"2024-05-01", "c2", "BETA CARDS - VK", "VK", 20000, 80, 16000, 60},
	{"2024-05-01", "c3", "BETA CREDITS (YANDEX)", "Yandex", 5000, 25, 1000, 30},
	{"2024-05-01", "c4", "GAMMA (VK)", "VK", 4000, 40, 1600, 90},
	{"2024-05-02", "c5", "GAMMA (TELEGRAM)", "Telegram", 6000, 60, 2400, 100},
	{"2024-05-03", "c6", "РКО ФРК4 (VK)", "VK", 12000, 240, 12000, 300},
	{"2024-05-03", "c7", "ZERO SHOW", "VK", 0, 0, 0, 0},
}

// Funnel is the seeded funnel data.
var Funnel = []FunnelRow{
	{"2024-05-01", "yandex", "rko_spring", "cpc", "v1", 1, 1, 1, 1, 1},
	{"2024-05-01", "yandex", "rko_spring", "cpc", "v2", 1, 0, 0, 0, 0},
	{"2024-05-01", "yandex", "rko_spring", "cpc", "v3", 0, 0, 0, 0, 0},
	{"2024-05-02", "vk", "frk4_cards", "social", "v4", 1, 1, 1, 1, 0},
	{"2024-05-02", "vk", "frk4_cards", "social", "v5", 0, 0, 0, 0, 0},
	{"2024-05-02", "vk", "frk4_cards", "social", "v6", 0, 0, 0, 0, 0},
	{"2024-05-03", "telegram", "rko_spring", "cpm", "v7", 0, 0, 0, 0, 0},
	{"2024-05-03", "", "", "", "v8", 0, 0, 0, 0, 0},
}

// CreateSchema creates both tables.
func CreateSchema(ctx context.Context, db storage.DB) error {
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Seed inserts Metrics and Funnel using the dialect's placeholders.
func Seed(ctx context.Context, db storage.DB, d storage.Dialect) error {
	metricsSQL := insertSQL(d, storage.TableCampaignMetrics, []string{
		storage.ColDate, storage.ColCampaignID, storage.ColCampaignName, storage.ColCampaign,
		storage.ColPlatform, storage.ColImpressions, storage.ColClicks, storage.ColCost, storage.ColVisits,
	})
	for _, r := range Metrics {
		if _, err := db.ExecContext(ctx, metricsSQL,
			r.Date, r.CampaignID, r.Name, r.Name, r.Platform,
			r.Impressions, r.Clicks, r.Cost, r.Visits,
		); err != nil {
			return fmt.Errorf("seed campaign_metrics: %w", err)
		}
	}

	funnelSQL := insertSQL(d, storage.TableFunnel, []string{
		storage.ColFunnelDate, storage.ColTrafficSource, storage.ColUTMCampaign, storage.ColUTMSource,
		storage.ColUTMMedium, storage.ColVisitID, storage.ColSubmits, storage.ColRes, storage.ColSubsAll,
		storage.ColAccountNum, storage.ColCreatedFlag, storage.ColCallAnsweredFlag, storage.ColQualityFlag,
		storage.ColQuality,
	})
	for _, r := range Funnel {
		if _, err := db.ExecContext(ctx, funnelSQL,
			r.Date, nullable(r.Source), nullable(r.UTMCampaign), nullable(r.Source),
			nullable(r.UTMMedium), r.VisitID, r.Submits, r.Submits, r.Submits,
			r.Accounts, r.Created, r.CallsAnswered, r.QualityLeads, r.QualityLeads,
		); err != nil {
			return fmt.Errorf("seed funnel_data: %w", err)
		}
	}
	return nil
}

// OpenSQLite opens a private in-memory SQLite store with both tables
// seeded. The store is closed when the test ends.
func OpenSQLite(t testing.TB) *storage.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := storage.Open("sqlite", dsn, storage.PoolOptions{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, CreateSchema(ctx, store.DB()))
	require.NoError(t, Seed(ctx, store.DB(), store.Dialect()))
	return store
}

// OpenEmptySQLite opens a store with the schema but no rows.
func OpenEmptySQLite(t testing.TB) *storage.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := storage.Open("sqlite", dsn, storage.PoolOptions{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, CreateSchema(context.Background(), store.DB()))
	return store
}

func insertSQL(d storage.Dialect, table string, cols []string) string {
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
