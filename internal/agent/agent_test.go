package agent_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/agent"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/analysis"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/cache"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/knowledge"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/report"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage/storagetest"
)

func newAgent(t *testing.T, opts agent.Options) (*agent.Agent, *storage.Store) {
	t.Helper()
	if opts.Store == nil {
		opts.Store = storagetest.OpenSQLite(t)
	}
	a, err := agent.New(context.Background(), opts)
	require.NoError(t, err)
	return a, opts.Store
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := agent.New(context.Background(), agent.Options{})
	assert.ErrorIs(t, err, agent.ErrNoStore)
}

func TestProcessQuestion_OverallStatistics(t *testing.T) {
	a, _ := newAgent(t, agent.Options{})

	resp, err := a.ProcessQuestion(context.Background(), "show overall statistics")
	require.NoError(t, err)

	assert.Equal(t, nlq.IntentAggregate, resp.Intent)
	assert.NotContains(t, resp.Query.SQL, "GROUP BY")
	assert.NotContains(t, resp.Query.SQL, "WHERE")
	assert.Equal(t, report.KindAggregate, resp.ReportKind)
	assert.Equal(t, analysis.KindAggregate, resp.SummaryKind)

	md := resp.Report
	assert.Contains(t, md, "- **Impressions:** 65,000")
	assert.Contains(t, md, "- **Clicks:** 945")
	assert.Contains(t, md, "- **Cost:** 49,000.00 ₽")
	assert.Contains(t, md, "- **Visits:** 1,780")
	assert.Contains(t, md, "- **CTR:** 1.45%")
}

func TestProcessQuestion_DehyphenatedCampaign(t *testing.T) {
	a, _ := newAgent(t, agent.Options{})
	ctx := context.Background()
	question := "report for campaign ALPHA-4"

	ids, err := a.GetMatchingCampaigns(ctx, question)
	require.NoError(t, err)
	assert.Equal(t, []nlq.CampaignIdentity{"ALPHA4"}, ids)

	resp, err := a.ProcessQuestion(ctx, question)
	require.NoError(t, err)
	assert.Empty(t, resp.Ambiguous)
	assert.Equal(t, report.KindCampaignDetail, resp.ReportKind)

	s, ok := resp.Summary.(analysis.EntitySummary)
	require.True(t, ok)
	assert.True(t, s.Single())
	assert.Contains(t, resp.Report, "Campaign: **ALPHA4**")
	assert.Contains(t, resp.Report, "## Marketing metrics")
}

func TestProcessQuestion_TrafficSources(t *testing.T) {
	a, _ := newAgent(t, agent.Options{})

	resp, err := a.ProcessQuestion(context.Background(), "compare traffic sources")
	require.NoError(t, err)

	assert.Equal(t, nlq.IntentFunnel, resp.Intent)
	assert.Equal(t, analysis.KindFunnelSource, resp.SummaryKind)
	assert.Equal(t, report.KindFunnelSources, resp.ReportKind)
	require.Equal(t, 3, resp.Table.Len())
	assert.Equal(t, 33.33, resp.Table.FloatOr(0, nlq.ColConversionToSubmits))
	assert.Equal(t, 66.67, resp.Table.FloatOr(1, nlq.ColConversionToSubmits))
	assert.Contains(t, resp.Report, "33.33%")
}

func TestProcessQuestion_AmbiguousIsNotNarrowed(t *testing.T) {
	a, _ := newAgent(t, agent.Options{})
	ctx := context.Background()
	question := "report for campaign BETA"

	ids, err := a.GetMatchingCampaigns(ctx, question)
	require.NoError(t, err)
	assert.Equal(t, []nlq.CampaignIdentity{"BETA CARDS", "BETA CREDITS"}, ids)

	resp, err := a.ProcessQuestion(ctx, question)
	require.NoError(t, err)
	assert.Equal(t, ids, resp.Ambiguous)
	assert.Equal(t, 2, resp.Table.Len(), "report covers every match")

	narrowed, err := a.ProcessSelection(ctx, question, ids[:1])
	require.NoError(t, err)
	require.Equal(t, 1, narrowed.Table.Len())
	assert.Equal(t, "BETA CARDS - VK", narrowed.Table.String(0, storage.ColCampaignName))
	assert.Empty(t, narrowed.Ambiguous)

	both, err := a.ProcessSelection(ctx, question, ids)
	require.NoError(t, err)
	assert.Equal(t, 2, both.Table.Len())
}

func TestProcessQuestion_QueryRoundTrip(t *testing.T) {
	a, store := newAgent(t, agent.Options{})
	exec := storage.NewExecutor(store, observability.NopLogger())
	ctx := context.Background()

	for _, q := range []string{
		"show overall statistics",
		"report for campaign GAMMA",
		"campaign GAMMA by day",
		"conversion funnel utm_campaign=rko_spring",
		"top utm campaigns",
	} {
		t.Run(q, func(t *testing.T) {
			resp, err := a.ProcessQuestion(ctx, q)
			require.NoError(t, err)
			require.Empty(t, resp.QueryError)

			again, err := exec.Run(ctx, resp.Query.SQL, resp.Query.Args...)
			require.NoError(t, err)
			assert.Equal(t, resp.Table, again)
		})
	}
}

func TestProcessQuestion_NoDataSuggestsCloseNames(t *testing.T) {
	a, _ := newAgent(t, agent.Options{})

	resp, err := a.ProcessQuestion(context.Background(), "report for campaign GAMMA OMEGA")
	require.NoError(t, err)
	assert.True(t, resp.Table.Empty())
	assert.Equal(t, report.KindNoData, resp.ReportKind)
	assert.Contains(t, resp.Report, `Did you mean "GAMMA"?`)
}

func TestProcessQuestion_QueryFailureRendersNoData(t *testing.T) {
	// No schema: every query fails.
	store, err := storage.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", storage.PoolOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	a, _ := newAgent(t, agent.Options{Store: store})
	ctx := context.Background()

	resp, err := a.ProcessQuestion(ctx, "report for campaign GAMMA")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.QueryError)
	assert.Equal(t, report.KindNoData, resp.ReportKind)
	assert.NotEmpty(t, resp.Query.SQL)

	_, err = a.GetMatchingCampaigns(ctx, "report for campaign GAMMA")
	assert.Error(t, err)
}

func TestProcessQuestion_Enhancer(t *testing.T) {
	t.Run("glossary on knowledge question", func(t *testing.T) {
		a, _ := newAgent(t, agent.Options{Enhancer: knowledge.NewGlossary()})
		resp, err := a.ProcessQuestion(context.Background(), "what is CTR for campaign GAMMA")
		require.NoError(t, err)
		assert.Contains(t, resp.Report, "## Context")
		assert.Contains(t, resp.Report, "**CTR:**")
	})

	t.Run("called on empty result only", func(t *testing.T) {
		var calls int32
		e := knowledge.EnhancerFunc(func(_ context.Context, r, _ string) (string, error) {
			atomic.AddInt32(&calls, 1)
			return r + "\nextra\n", nil
		})
		a, _ := newAgent(t, agent.Options{Enhancer: e})
		ctx := context.Background()

		resp, err := a.ProcessQuestion(ctx, "report for campaign GAMMA")
		require.NoError(t, err)
		assert.NotContains(t, resp.Report, "extra")

		resp, err = a.ProcessQuestion(ctx, "report for campaign OMEGA")
		require.NoError(t, err)
		assert.Contains(t, resp.Report, "extra")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestProcessQuestion_FailingEnhancerKeepsReport(t *testing.T) {
	ctx := context.Background()
	plain, _ := newAgent(t, agent.Options{})
	want, err := plain.ProcessQuestion(ctx, "report for campaign OMEGA")
	require.NoError(t, err)

	tests := []struct {
		name     string
		enhancer knowledge.Enhancer
	}{
		{"panic", knowledge.EnhancerFunc(func(context.Context, string, string) (string, error) {
			panic("enhancer exploded")
		})},
		{"error", knowledge.EnhancerFunc(func(context.Context, string, string) (string, error) {
			return "", errors.New("glossary offline")
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newAgent(t, agent.Options{Enhancer: tt.enhancer, EnhanceTimeout: time.Second})
			resp, err := a.ProcessQuestion(ctx, "report for campaign OMEGA")
			require.NoError(t, err)
			assert.Equal(t, report.KindNoData, resp.ReportKind)
			assert.Equal(t, want.Report, resp.Report)
			assert.Len(t, a.History(), 1)
		})
	}
}

func TestProcessQuestion_BlankQuestion(t *testing.T) {
	a, _ := newAgent(t, agent.Options{})

	for _, q := range []string{"", "   \t"} {
		resp, err := a.ProcessQuestion(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, report.KindNoData, resp.ReportKind)
		assert.True(t, strings.HasPrefix(resp.Report, "# No data\n"), resp.Report)
		assert.Contains(t, resp.Report, "## Suggestions")
		assert.NotContains(t, resp.Report, "Campaign report")
		assert.Empty(t, resp.Query.SQL)
		assert.True(t, resp.Table.Empty())
	}
}

func TestProcessQuestion_Trend(t *testing.T) {
	a, _ := newAgent(t, agent.Options{})

	resp, err := a.ProcessQuestion(context.Background(), "campaign GAMMA by day")
	require.NoError(t, err)
	assert.True(t, resp.Signals.Trend)
	assert.Equal(t, report.KindTrend, resp.ReportKind)
	assert.Contains(t, resp.Report, "Trend over 2 days.")
}

func TestRefreshCatalog(t *testing.T) {
	ctx := context.Background()
	store := storagetest.OpenSQLite(t)
	mem := cache.NewMemoryClient(10)
	defer mem.Close()

	a, _ := newAgent(t, agent.Options{
		Store:   store,
		Catalog: storage.NewCampaignCatalog(storage.NewCampaignRepository(store.DB()), mem, time.Minute),
	})

	ids, err := a.GetMatchingCampaigns(ctx, "report for campaign DELTA")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = store.DB().ExecContext(ctx,
		"INSERT INTO campaign_metrics (campaign_name, platform) VALUES ('DELTA (VK)', 'VK')")
	require.NoError(t, err)

	ids, err = a.GetMatchingCampaigns(ctx, "report for campaign DELTA")
	require.NoError(t, err)
	assert.Empty(t, ids, "names are served from the cache")

	require.NoError(t, a.RefreshCatalog(ctx))
	ids, err = a.GetMatchingCampaigns(ctx, "report for campaign DELTA")
	require.NoError(t, err)
	assert.Equal(t, []nlq.CampaignIdentity{"DELTA"}, ids)
}

func TestNew_DiscoversUTMCampaigns(t *testing.T) {
	a, _ := newAgent(t, agent.Options{DiscoverUTMCampaigns: true})

	resp, err := a.ProcessQuestion(context.Background(), "funnel rko_spring")
	require.NoError(t, err)
	require.NotNil(t, resp.Funnel)
	assert.Equal(t, "rko_spring", resp.Funnel.Campaign)
	assert.Equal(t, nlq.CampaignFromKnown, resp.Funnel.CampaignSource)
	assert.Equal(t, 4.0, resp.Table.FloatOr(0, nlq.ColFunnelVisits))
}

func TestHistory(t *testing.T) {
	a, _ := newAgent(t, agent.Options{})
	ctx := context.Background()

	first, err := a.ProcessQuestion(ctx, "show overall statistics")
	require.NoError(t, err)
	second, err := a.ProcessQuestion(ctx, "compare traffic sources")
	require.NoError(t, err)

	h := a.History()
	require.Len(t, h, 2)
	assert.Equal(t, first.ID, h[0].ID)
	assert.Equal(t, second.ID, h[1].ID)
	assert.Equal(t, "compare traffic sources", h[1].Question)
	assert.Equal(t, second.Query.SQL, h[1].Query.SQL)
	assert.False(t, h[1].At.Before(h[0].At))

	h[0].Question = "changed"
	assert.Equal(t, "show overall statistics", a.History()[0].Question)
}

func TestProcessQuestion_Concurrent(t *testing.T) {
	a, _ := newAgent(t, agent.Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := a.ProcessQuestion(ctx, "report for campaign GAMMA")
			assert.NoError(t, err)
			assert.Equal(t, 2, resp.Table.Len())
		}()
	}
	wg.Wait()
	assert.Len(t, a.History(), 8)
}
