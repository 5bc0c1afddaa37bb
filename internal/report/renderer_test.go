package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/analysis"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

func defined(v float64) analysis.Ratio { return analysis.Ratio{Value: v, Defined: true} }

func entityTable() *storage.ResultTable {
	return &storage.ResultTable{
		Columns: []string{
			storage.ColCampaignName, storage.ColPlatform, nlq.ColImpressions,
			nlq.ColClicks, nlq.ColCost, nlq.ColVisits, nlq.ColCTR, nlq.ColCPC,
		},
		Rows: [][]interface{}{
			{"GAMMA (TELEGRAM)", "TELEGRAM", 6000.0, 60.0, 2400.0, 100.0, 1.0, 40.0},
			{"GAMMA (VK)", "VK", 4000.0, 40.0, 1600.0, 90.0, 1.0, 40.0},
			{"GAMMA (OK)", "OK", 0.0, 0.0, 0.0, 0.0, nil, nil},
		},
	}
}

func TestSelectKind(t *testing.T) {
	entity := analysis.EntitySummary{}
	withPlatforms := analysis.EntitySummary{Platforms: &analysis.PlatformSummary{}}
	dated := analysis.EntitySummary{Rows: []analysis.EntityRow{{Date: "2024-03-01"}}}

	tests := []struct {
		name    string
		summary analysis.Summary
		signals nlq.Signals
		want    Kind
	}{
		{"empty", analysis.EmptySummary{}, nlq.Signals{}, KindNoData},
		{"nil", nil, nlq.Signals{}, KindNoData},
		{"aggregate", analysis.AggregateSummary{}, nlq.Signals{AllCampaigns: true}, KindAggregate},
		{"detail", entity, nlq.Signals{}, KindCampaignDetail},
		{"comparison", entity, nlq.Signals{AllCampaigns: true}, KindComparison},
		{"performance wins over comparison", entity, nlq.Signals{AllCampaigns: true, Performance: true}, KindPerformance},
		{"platform needs platform rows", entity, nlq.Signals{Platform: true}, KindCampaignDetail},
		{"platform", withPlatforms, nlq.Signals{Platform: true}, KindPlatform},
		{"trend", dated, nlq.Signals{Trend: true}, KindTrend},
		{"trend needs dated rows", entity, nlq.Signals{Trend: true}, KindCampaignDetail},
		{"dated rows without trend", dated, nlq.Signals{}, KindCampaignDetail},
		{"standalone platform", analysis.PlatformSummary{}, nlq.Signals{}, KindPlatform},
		{"funnel single", analysis.FunnelSingleSummary{}, nlq.Signals{}, KindFunnelSingle},
		{"funnel sources", analysis.FunnelSourceSummary{}, nlq.Signals{}, KindFunnelSources},
		{"funnel trend", analysis.FunnelTrendSummary{}, nlq.Signals{}, KindFunnelTrend},
		{"funnel top", analysis.FunnelCampaignSummary{}, nlq.Signals{}, KindFunnelTop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectKind(tt.summary, tt.signals))
		})
	}
}

func TestRender_CampaignDetail(t *testing.T) {
	res := analysis.NewAnalyzer(analysis.Options{Goals: []analysis.Goal{{Metric: "ctr", Plan: 2}}}).Analyze(entityTable())
	rep := NewRenderer(Options{}).Render(Input{Question: "report for campaign GAMMA", Analysis: res})

	assert.Equal(t, KindCampaignDetail, rep.Kind)
	md := rep.Markdown
	assert.True(t, strings.HasPrefix(md, "# Campaign report: report for campaign GAMMA\n"))
	assert.Contains(t, md, "Campaign: **GAMMA**")
	assert.Contains(t, md, "- **Impressions:** 10,000")
	assert.Contains(t, md, "- **Cost:** 4,000.00 ₽")
	assert.Contains(t, md, "- **CTR:** 1.00%")
	assert.Contains(t, md, "## Marketing metrics")
	assert.Contains(t, md, "## Goals")
	assert.Contains(t, md, analysis.GoalNotAchieved)
	assert.Contains(t, md, "GAMMA (TELEGRAM)")
	assert.NotContains(t, md, "GAMMA (OK)", "zero-volume rows are hidden")
	assert.Contains(t, md, "|-")

	sections := []string{"# Campaign report", "## Key metrics", "## Campaigns", "## Insights", "## Recommendations"}
	last := -1
	for _, s := range sections {
		i := strings.Index(md, s)
		require.Greater(t, i, last, s)
		last = i
	}
}

func TestRender_Trend(t *testing.T) {
	table := &storage.ResultTable{
		Columns: []string{
			storage.ColDate, storage.ColCampaignName, storage.ColPlatform,
			nlq.ColImpressions, nlq.ColClicks, nlq.ColCost, nlq.ColVisits,
		},
		Rows: [][]interface{}{
			{"2024-03-03", "GAMMA (VK)", "VK", 1000.0, 10.0, 500.0, 8.0},
			{"2024-03-01", "GAMMA (TELEGRAM)", "TELEGRAM", 2000.0, 40.0, 800.0, 30.0},
			{"2024-03-03", "GAMMA (TELEGRAM)", "TELEGRAM", 3000.0, 30.0, 700.0, 20.0},
		},
	}
	res := analysis.NewAnalyzer(analysis.Options{}).Analyze(table)
	rep := NewRenderer(Options{}).Render(Input{
		Question: "campaign GAMMA by day",
		Signals:  nlq.Signals{Trend: true},
		Analysis: res,
	})

	assert.Equal(t, KindTrend, rep.Kind)
	md := rep.Markdown
	assert.True(t, strings.HasPrefix(md, "# Campaign trend: campaign GAMMA by day\n"))
	assert.Contains(t, md, "## Daily dynamics\n\nTrend over 2 days.\n")

	first := strings.Index(md, "| 2024-03-01 | 2,000")
	second := strings.Index(md, "| 2024-03-03 | 4,000")
	require.GreaterOrEqual(t, first, 0, md)
	require.Greater(t, second, first, "days are listed oldest first")
	assert.Contains(t, md, "## Campaigns")
	assert.Contains(t, md, "## Insights")
}

func TestRender_UndefinedRatios(t *testing.T) {
	s := analysis.AggregateSummary{CampaignsCount: 1}
	rep := NewRenderer(Options{Currency: "USD"}).Render(Input{
		Question: "total",
		Analysis: analysis.Result{Summary: s},
	})
	assert.Equal(t, KindAggregate, rep.Kind)
	assert.Contains(t, rep.Markdown, "- **CTR:** "+Undefined)
	assert.Contains(t, rep.Markdown, "- **CPC:** "+Undefined)
	assert.Contains(t, rep.Markdown, "- **Cost:** 0.00 USD")
	assert.Contains(t, rep.Markdown, "_No notable deviations._")
	assert.Contains(t, rep.Markdown, "_No action required._")
}

func TestRender_InsightsAreListed(t *testing.T) {
	rep := NewRenderer(Options{}).Render(Input{
		Question: "total",
		Analysis: analysis.Result{
			Summary:         analysis.AggregateSummary{CampaignsCount: 1},
			Insights:        []string{"first", "second"},
			Recommendations: []string{"do this"},
		},
	})
	assert.Contains(t, rep.Markdown, "## Insights\n\n- first\n- second\n")
	assert.Contains(t, rep.Markdown, "## Recommendations\n\n- do this\n")
}

func TestRender_Comparison(t *testing.T) {
	res := analysis.NewAnalyzer(analysis.Options{}).Analyze(entityTable())
	rep := NewRenderer(Options{}).Render(Input{
		Question: "compare all campaigns",
		Signals:  nlq.Signals{AllCampaigns: true},
		Analysis: res,
	})
	assert.Equal(t, KindComparison, rep.Kind)
	assert.Contains(t, rep.Markdown, "## Top campaigns by CTR")
}

func TestRender_TruncatesLongTables(t *testing.T) {
	table := entityTable()
	table.Rows = table.Rows[:2]
	res := analysis.NewAnalyzer(analysis.Options{}).Analyze(table)
	rep := NewRenderer(Options{MaxTableRows: 1}).Render(Input{Question: "q", Analysis: res})
	assert.Contains(t, rep.Markdown, "Showing the first 1 of 2 rows.")
}

func TestRender_FunnelSingle(t *testing.T) {
	s := analysis.FunnelSingleSummary{FunnelStages: analysis.FunnelStages{
		Visits: 1200, Submits: 3, Accounts: 2, QualityLeads: 1,
		ToSubmits: defined(0.25), ToAccounts: defined(66.67), ToQuality: defined(50),
	}}
	rep := NewRenderer(Options{}).Render(Input{Question: "conversion funnel", Analysis: analysis.Result{Summary: s}})

	assert.Equal(t, KindFunnelSingle, rep.Kind)
	assert.Contains(t, rep.Markdown, "- **Visits:** 1,200")
	assert.Contains(t, rep.Markdown, "66.67%")
	assert.Contains(t, rep.Markdown, "## Funnel")
}

func TestRender_FunnelRowsSkipZeroVolume(t *testing.T) {
	s := analysis.FunnelSourceSummary{
		Rows: []analysis.FunnelRow{
			{Key: "vk", FunnelStages: analysis.FunnelStages{Visits: 3, Submits: 1, ToSubmits: defined(33.33)}},
			{Key: "dead", FunnelStages: analysis.FunnelStages{}},
		},
		Totals: analysis.FunnelStages{Visits: 3, Submits: 1},
	}
	rep := NewRenderer(Options{}).Render(Input{Question: "sources", Analysis: analysis.Result{Summary: s}})
	assert.Equal(t, KindFunnelSources, rep.Kind)
	assert.Contains(t, rep.Markdown, "33.33%")
	assert.NotContains(t, rep.Markdown, "dead")
}

func TestRender_NoData(t *testing.T) {
	rep := NewRenderer(Options{}).Render(Input{
		Question:   "report for campaign OMEGA",
		Analysis:   analysis.Result{Summary: analysis.EmptySummary{}},
		Candidates: []nlq.CampaignIdentity{"OMEGA PRIME"},
	})
	assert.Equal(t, KindNoData, rep.Kind)
	assert.True(t, strings.HasPrefix(rep.Markdown, "# No data: report for campaign OMEGA"))
	assert.Contains(t, rep.Markdown, "## Suggestions")
	assert.Contains(t, rep.Markdown, `Did you mean "OMEGA PRIME"?`)
	assert.NotContains(t, rep.Markdown, "## Insights")
}

func TestRender_NoDataBlankQuestion(t *testing.T) {
	rep := NewRenderer(Options{}).Render(Input{
		Question: "  ",
		Analysis: analysis.Result{Summary: analysis.EmptySummary{}},
	})
	assert.Equal(t, KindNoData, rep.Kind)
	assert.True(t, strings.HasPrefix(rep.Markdown, "# No data\n\n"))
	assert.Contains(t, rep.Markdown, "## Suggestions")
}
