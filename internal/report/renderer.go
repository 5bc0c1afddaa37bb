// Package report renders analysis summaries as markdown reports.
package report

import (
	"fmt"
	"strings"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/analysis"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
)

// Kind is the template used for a report.
type Kind string

const (
	KindAggregate      Kind = "aggregate"
	KindComparison     Kind = "all_campaigns"
	KindCampaignDetail Kind = "campaign_detail"
	KindPlatform       Kind = "platform"
	KindPerformance    Kind = "performance"
	KindTrend          Kind = "trend"
	KindFunnelSingle   Kind = "funnel_single"
	KindFunnelSources  Kind = "funnel_sources"
	KindFunnelTrend    Kind = "funnel_trend"
	KindFunnelTop      Kind = "funnel_top"
	KindNoData         Kind = "no_data"
)

// Report is rendered markdown and the template that produced it.
type Report struct {
	Markdown string `json:"markdown"`
	Kind     Kind   `json:"kind"`
}

// Input is everything a template can draw on.
type Input struct {
	Question string
	Signals  nlq.Signals
	Analysis analysis.Result
	// Candidates are close catalogue names offered when there is no data.
	Candidates []nlq.CampaignIdentity
}

// Options configures a Renderer.
type Options struct {
	Currency     string
	MaxTableRows int
}

// Renderer formats analysis results. It never recomputes numbers: every
// value printed comes from the summary.
type Renderer struct {
	currency string
	maxRows  int
}

// NewRenderer creates a renderer.
func NewRenderer(opts Options) *Renderer {
	r := &Renderer{currency: opts.Currency, maxRows: opts.MaxTableRows}
	if r.currency == "" {
		r.currency = "₽"
	}
	if r.maxRows <= 0 {
		r.maxRows = 50
	}
	return r
}

// SelectKind picks the template from the summary variant and the
// question's signals.
func SelectKind(s analysis.Summary, sig nlq.Signals) Kind {
	switch v := s.(type) {
	case analysis.AggregateSummary:
		return KindAggregate
	case analysis.EntitySummary:
		switch {
		case sig.Platform && v.Platforms != nil:
			return KindPlatform
		case sig.Trend && v.HasDates():
			return KindTrend
		case sig.Performance:
			return KindPerformance
		case sig.AllCampaigns:
			return KindComparison
		}
		return KindCampaignDetail
	case analysis.PlatformSummary:
		return KindPlatform
	case analysis.FunnelSingleSummary:
		return KindFunnelSingle
	case analysis.FunnelSourceSummary:
		return KindFunnelSources
	case analysis.FunnelTrendSummary:
		return KindFunnelTrend
	case analysis.FunnelCampaignSummary:
		return KindFunnelTop
	}
	return KindNoData
}

// Render produces the report for in.
func (r *Renderer) Render(in Input) Report {
	kind := SelectKind(in.Analysis.Summary, in.Signals)
	d := &doc{}

	switch s := in.Analysis.Summary.(type) {
	case analysis.AggregateSummary:
		d.title("Overall statistics: %s", in.Question)
		r.aggregate(d, s)
	case analysis.EntitySummary:
		switch kind {
		case KindPlatform:
			d.title("Platform performance: %s", in.Question)
			r.totals(d, s.CampaignsCount, s.Totals)
			r.platforms(d, *s.Platforms)
		case KindTrend:
			d.title("Campaign trend: %s", in.Question)
			r.totals(d, s.CampaignsCount, s.Totals)
			r.days(d, s.Days)
			r.entities(d, s)
		case KindPerformance:
			d.title("Performance ranking: %s", in.Question)
			r.totals(d, s.CampaignsCount, s.Totals)
			d.section("Top campaigns by CTR")
			d.table(entityHeader(false), r.entityRows(s.Top, false))
		case KindComparison:
			d.title("Campaign comparison: %s", in.Question)
			r.totals(d, s.CampaignsCount, s.Totals)
			r.entities(d, s)
			d.section("Top campaigns by CTR")
			d.table(entityHeader(false), r.entityRows(s.Top, false))
		default:
			r.detail(d, in.Question, s)
		}
	case analysis.PlatformSummary:
		d.title("Platform performance: %s", in.Question)
		r.platforms(d, s)
	case analysis.FunnelSingleSummary:
		d.title("Conversion funnel: %s", in.Question)
		r.funnelHeadline(d, s.FunnelStages)
		r.funnelStages(d, s.FunnelStages)
	case analysis.FunnelSourceSummary:
		d.title("Traffic sources: %s", in.Question)
		r.funnelHeadline(d, s.Totals)
		r.funnelRows(d, "Source", s.Rows)
	case analysis.FunnelTrendSummary:
		d.title("Daily funnel trend: %s", in.Question)
		r.funnelHeadline(d, s.Totals)
		r.funnelRows(d, "Date", s.Rows)
	case analysis.FunnelCampaignSummary:
		d.title("Top UTM campaigns: %s", in.Question)
		r.funnelHeadline(d, s.Totals)
		r.funnelRows(d, "UTM campaign", s.Rows)
	default:
		r.noData(d, in)
		return Report{Markdown: d.String(), Kind: KindNoData}
	}

	d.section("Insights")
	d.bullets(in.Analysis.Insights, "No notable deviations.")
	d.section("Recommendations")
	d.bullets(in.Analysis.Recommendations, "No action required.")
	return Report{Markdown: d.String(), Kind: kind}
}

func (r *Renderer) aggregate(d *doc, s analysis.AggregateSummary) {
	r.totals(d, s.CampaignsCount, s.Totals)
}

func (r *Renderer) totals(d *doc, campaigns int, t analysis.Totals) {
	d.section("Key metrics")
	d.metric("Campaigns", count(float64(campaigns)))
	d.metric("Impressions", count(t.Impressions))
	d.metric("Clicks", count(t.Clicks))
	d.metric("Cost", r.money(t.Cost))
	d.metric("Visits", count(t.Visits))
	d.metric("CTR", percent(t.CTR))
	d.metric("CPC", r.moneyRatio(t.CPC))
	d.blank()
}

func (r *Renderer) detail(d *doc, question string, s analysis.EntitySummary) {
	d.title("Campaign report: %s", question)
	if s.Single() {
		d.line("Campaign: **%s**", s.Identities[0])
		d.blank()
	}
	r.totals(d, s.CampaignsCount, s.Totals)
	if len(s.Identities) > 1 {
		ids := make([]string, len(s.Identities))
		for i, id := range s.Identities {
			ids[i] = string(id)
		}
		d.line("Matched campaigns: %s", strings.Join(ids, ", "))
		d.blank()
	}

	if s.Single() {
		d.section("Marketing metrics")
		d.metric("CTR", percent(s.Metrics.CTR))
		d.metric("CPC", r.moneyRatio(s.Metrics.CPC))
		d.metric("CPM", r.moneyRatio(s.Metrics.CPM))
		d.metric("Click to visit", percent(s.Metrics.ClickToVisit))
		d.blank()
		if len(s.Goals) > 0 {
			r.goals(d, s.Goals)
		}
	}
	r.entities(d, s)
}

func (r *Renderer) goals(d *doc, goals []analysis.GoalStatus) {
	d.section("Goals")
	rows := make([][]string, 0, len(goals))
	for _, g := range goals {
		rows = append(rows, []string{
			g.Metric, plain(analysis.Ratio{Value: g.Plan, Defined: true}), plain(g.Actual), percent(g.Achievement), g.Status,
		})
	}
	d.table([]string{"Metric", "Plan", "Actual", "Achievement", "Status"}, rows)
}

func (r *Renderer) entities(d *doc, s analysis.EntitySummary) {
	d.section("Campaigns")
	rows := r.entityRows(s.Rows, s.HasDates())
	rows = r.truncate(d, rows)
	d.table(entityHeader(s.HasDates()), rows)
}

func entityHeader(dates bool) []string {
	h := []string{"Campaign", "Platform", "Impressions", "Clicks", "Cost", "Visits", "CTR", "CPC"}
	if dates {
		h = append([]string{"Date"}, h...)
	}
	return h
}

func (r *Renderer) entityRows(rows []analysis.EntityRow, dates bool) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if !row.HasVolume() {
			continue
		}
		cells := []string{
			row.Campaign, row.Platform, count(row.Impressions), count(row.Clicks),
			r.money(row.Cost), count(row.Visits), percent(row.CTR), r.moneyRatio(row.CPC),
		}
		if dates {
			cells = append([]string{row.Date}, cells...)
		}
		out = append(out, cells)
	}
	return out
}

func (r *Renderer) days(d *doc, days []analysis.DayRow) {
	d.section("Daily dynamics")
	d.line("Trend over %d days.", len(days))
	d.blank()
	rows := make([][]string, 0, len(days))
	for _, day := range days {
		rows = append(rows, []string{
			day.Date, count(day.Impressions), count(day.Clicks), r.money(day.Cost),
			count(day.Visits), percent(day.CTR), r.moneyRatio(day.CPC),
		})
	}
	rows = r.truncate(d, rows)
	d.table([]string{"Date", "Impressions", "Clicks", "Cost", "Visits", "CTR", "CPC"}, rows)
}

func (r *Renderer) platforms(d *doc, s analysis.PlatformSummary) {
	d.section("Platforms")
	rows := make([][]string, 0, len(s.Platforms))
	for _, p := range s.Platforms {
		if p.Impressions == 0 && p.Clicks == 0 {
			continue
		}
		rows = append(rows, []string{
			p.Platform, count(p.Impressions), count(p.Clicks), r.money(p.Cost),
			count(p.Visits), percent(p.AvgCTR), r.moneyRatio(p.AvgCPC),
		})
	}
	d.table([]string{"Platform", "Impressions", "Clicks", "Cost", "Visits", "Avg CTR", "Avg CPC"}, rows)
}

func (r *Renderer) funnelHeadline(d *doc, f analysis.FunnelStages) {
	d.section("Key metrics")
	d.metric("Visits", count(f.Visits))
	d.metric("Submits", count(f.Submits))
	d.metric("Accounts opened", count(f.Accounts))
	d.metric("Quality leads", count(f.QualityLeads))
	d.metric("Visit to submit", percent(f.ToSubmits))
	d.blank()
}

func (r *Renderer) funnelStages(d *doc, f analysis.FunnelStages) {
	d.section("Funnel")
	d.table([]string{"Stage", "Count", "Conversion"}, [][]string{
		{"Visits", count(f.Visits), Undefined},
		{"Submits", count(f.Submits), percent(f.ToSubmits)},
		{"Accounts opened", count(f.Accounts), percent(f.ToAccounts)},
		{"Created", count(f.Created), Undefined},
		{"Calls answered", count(f.CallsAnswered), Undefined},
		{"Quality leads", count(f.QualityLeads), percent(f.ToQuality)},
	})
}

func (r *Renderer) funnelRows(d *doc, key string, rows []analysis.FunnelRow) {
	d.section("Breakdown")
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if row.Visits == 0 && row.Submits == 0 {
			continue
		}
		out = append(out, []string{
			row.Key, count(row.Visits), count(row.Submits), count(row.Accounts),
			count(row.QualityLeads), percent(row.ToSubmits),
		})
	}
	out = r.truncate(d, out)
	d.table([]string{key, "Visits", "Submits", "Accounts opened", "Quality leads", "Visit to submit"}, out)
}

func (r *Renderer) truncate(d *doc, rows [][]string) [][]string {
	if len(rows) <= r.maxRows {
		return rows
	}
	d.line("Showing the first %d of %d rows.", r.maxRows, len(rows))
	d.blank()
	return rows[:r.maxRows]
}

func (r *Renderer) noData(d *doc, in Input) {
	if q := strings.TrimSpace(in.Question); q != "" {
		d.title("No data: %s", q)
	} else {
		d.title("No data")
	}
	d.line("No rows matched this question.")
	d.blank()
	d.section("Suggestions")
	tips := []string{
		"Check the spelling of the campaign name.",
		"Use a shorter part of the name, for example one distinctive word.",
		"Ask for overall statistics to see every campaign.",
	}
	for _, c := range in.Candidates {
		tips = append(tips, fmt.Sprintf("Did you mean %q?", string(c)))
	}
	d.bullets(tips, "")
}
