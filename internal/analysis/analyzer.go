package analysis

import (
	"sort"
	"strings"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

// topByCTR is the size of the best-CTR list in an entity summary.
const topByCTR = 5

// Options configures an Analyzer.
type Options struct {
	// Currency is the unit printed next to cost values in insights.
	Currency string
	Goals    []Goal
}

// Result is the analysis of one result table.
type Result struct {
	Summary         Summary  `json:"summary"`
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// Analyzer builds summaries from result tables.
type Analyzer struct {
	currency string
	goals    []Goal
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	currency := opts.Currency
	if currency == "" {
		currency = "₽"
	}
	return &Analyzer{currency: currency, goals: opts.Goals}
}

// Analyze picks the summary variant from the columns present in table,
// then applies the threshold rules to it. A nil or empty table yields an
// EmptySummary.
func (a *Analyzer) Analyze(table *storage.ResultTable) Result {
	if table == nil || table.Empty() {
		return Result{Summary: EmptySummary{}}
	}

	switch {
	case table.HasPrefix("total_"):
		return a.aggregate(table)
	case table.Has(storage.ColCampaignName):
		return a.entity(table)
	case isFunnel(table):
		return a.funnel(table)
	case table.Has(storage.ColPlatform):
		s := platforms(table)
		return Result{Summary: s}
	}
	return Result{Summary: EmptySummary{}}
}

func isFunnel(t *storage.ResultTable) bool {
	return t.Has(nlq.ColMetric) || t.Has(nlq.ColSubmits) || t.Has(nlq.ColConversionToSubmits)
}

func (a *Analyzer) aggregate(t *storage.ResultTable) Result {
	s := AggregateSummary{
		CampaignsCount: int(t.FloatOr(0, nlq.ColCampaignsCount)),
		Totals: newTotals(
			t.FloatOr(0, nlq.ColTotalImpressions),
			t.FloatOr(0, nlq.ColTotalClicks),
			t.FloatOr(0, nlq.ColTotalCost),
			t.FloatOr(0, nlq.ColTotalVisits),
		),
	}
	// SUM over no rows still returns one row of NULLs.
	if s.CampaignsCount == 0 && !s.HasVolume() {
		return Result{Summary: EmptySummary{}}
	}
	return Result{
		Summary:         s,
		Insights:        campaignInsights(s.Totals, a.currency),
		Recommendations: campaignRecommendations(s.Totals),
	}
}

func (a *Analyzer) entity(t *storage.ResultTable) Result {
	var (
		s         EntitySummary
		names     []string
		seen      = make(map[string]bool)
		imp, clk  float64
		cost, vis float64
	)

	for i := 0; i < t.Len(); i++ {
		name := t.String(i, storage.ColCampaignName)
		row := EntityRow{
			Date:     t.String(i, storage.ColDate),
			Campaign: name,
			Identity: nlq.CollapseIdentity(name),
			Platform: t.String(i, storage.ColPlatform),
			Totals: newTotals(
				t.FloatOr(i, nlq.ColImpressions),
				t.FloatOr(i, nlq.ColClicks),
				t.FloatOr(i, nlq.ColCost),
				t.FloatOr(i, nlq.ColVisits),
			),
		}
		row.Assessment = assess(row.Totals)
		s.Rows = append(s.Rows, row)

		imp += row.Impressions
		clk += row.Clicks
		cost += row.Cost
		vis += row.Visits
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	s.CampaignsCount = len(names)
	s.Identities = nlq.Identities(names)
	s.Totals = newTotals(imp, clk, cost, vis)
	s.Top = topRows(s.Rows, topByCTR)
	if s.HasDates() {
		s.Days = dailyTotals(s.Rows)
	}
	if t.Has(storage.ColPlatform) && (t.Has(nlq.ColCTR) || t.Has(nlq.ColCPC)) {
		p := platformsFromRows(s.Rows)
		s.Platforms = &p
	}
	s.Metrics = ComputeKeyMetrics(s.Totals)
	s.Goals = CompareGoals(s.Metrics, s.Totals, a.goals)

	if !s.Totals.HasVolume() {
		return Result{Summary: s}
	}
	return Result{
		Summary:         s,
		Insights:        campaignInsights(s.Totals, a.currency),
		Recommendations: campaignRecommendations(s.Totals),
	}
}

// dailyTotals sums rows by date. Dates are ISO formatted, so string order
// is chronological.
func dailyTotals(rows []EntityRow) []DayRow {
	type sums struct{ imp, clk, cost, vis float64 }
	idx := make(map[string]int)
	var (
		dates []string
		acc   []sums
	)
	for _, r := range rows {
		i, ok := idx[r.Date]
		if !ok {
			i = len(dates)
			idx[r.Date] = i
			dates = append(dates, r.Date)
			acc = append(acc, sums{})
		}
		acc[i].imp += r.Impressions
		acc[i].clk += r.Clicks
		acc[i].cost += r.Cost
		acc[i].vis += r.Visits
	}

	out := make([]DayRow, len(dates))
	for i, d := range dates {
		out[i] = DayRow{Date: d, Totals: newTotals(acc[i].imp, acc[i].clk, acc[i].cost, acc[i].vis)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// topRows returns up to n rows with a defined CTR, best first. Ties keep
// the table order.
func topRows(rows []EntityRow, n int) []EntityRow {
	var out []EntityRow
	for _, r := range rows {
		if r.CTR.Defined {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CTR.Value > out[j].CTR.Value })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func platforms(t *storage.ResultTable) PlatformSummary {
	rows := make([]EntityRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		rows = append(rows, EntityRow{
			Platform: t.String(i, storage.ColPlatform),
			Totals: newTotals(
				t.FloatOr(i, nlq.ColImpressions),
				t.FloatOr(i, nlq.ColClicks),
				t.FloatOr(i, nlq.ColCost),
				t.FloatOr(i, nlq.ColVisits),
			),
		})
	}
	return platformsFromRows(rows)
}

func platformsFromRows(rows []EntityRow) PlatformSummary {
	type acc struct {
		row            PlatformRow
		ctrSum, cpcSum float64
		ctrN, cpcN     int
	}
	byName := make(map[string]*acc)
	var order []string

	for _, r := range rows {
		key := strings.TrimSpace(r.Platform)
		p, ok := byName[key]
		if !ok {
			p = &acc{row: PlatformRow{Platform: key}}
			byName[key] = p
			order = append(order, key)
		}
		p.row.Rows++
		p.row.Impressions += r.Impressions
		p.row.Clicks += r.Clicks
		p.row.Cost += r.Cost
		p.row.Visits += r.Visits
		if r.CTR.Defined {
			p.ctrSum += r.CTR.Value
			p.ctrN++
		}
		if r.CPC.Defined {
			p.cpcSum += r.CPC.Value
			p.cpcN++
		}
	}

	sort.Strings(order)
	out := PlatformSummary{Platforms: make([]PlatformRow, 0, len(order))}
	for _, key := range order {
		p := byName[key]
		p.row.AvgCTR = NewRatio(p.ctrSum, float64(p.ctrN), 1)
		p.row.AvgCPC = NewRatio(p.cpcSum, float64(p.cpcN), 1)
		out.Platforms = append(out.Platforms, p.row)
	}
	return out
}

func (a *Analyzer) funnel(t *storage.ResultTable) Result {
	key := ""
	switch {
	case t.Has(nlq.ColMetric):
	case t.Has(storage.ColUTMSource):
		key = storage.ColUTMSource
	case t.Has(storage.ColFunnelDate):
		key = storage.ColFunnelDate
	case t.Has(storage.ColUTMCampaign):
		key = storage.ColUTMCampaign
	}

	var (
		rows   []FunnelRow
		totals FunnelStages
	)
	for i := 0; i < t.Len(); i++ {
		st := stagesAt(t, i)
		rows = append(rows, FunnelRow{Key: t.String(i, key), FunnelStages: st})
		totals = totals.add(st)
	}
	if totals.Visits == 0 && totals.Submits == 0 {
		return Result{Summary: EmptySummary{}}
	}

	var s Summary
	switch key {
	case storage.ColUTMSource:
		s = FunnelSourceSummary{Rows: rows, Totals: totals}
	case storage.ColFunnelDate:
		s = FunnelTrendSummary{Rows: rows, Totals: totals}
	case storage.ColUTMCampaign:
		s = FunnelCampaignSummary{Rows: rows, Totals: totals}
	default:
		// Several ungrouped rows are folded into one funnel.
		s = FunnelSingleSummary{FunnelStages: totals}
	}

	insights, recs := funnelInsights(totals)
	return Result{Summary: s, Insights: insights, Recommendations: recs}
}

func stagesAt(t *storage.ResultTable, i int) FunnelStages {
	return newStages(
		t.FloatOr(i, nlq.ColFunnelVisits),
		t.FloatOr(i, nlq.ColSubmits),
		t.FloatOr(i, nlq.ColAccountsOpened),
		t.FloatOr(i, nlq.ColCreated),
		t.FloatOr(i, nlq.ColCallsAnswered),
		t.FloatOr(i, nlq.ColQualityLeads),
	)
}
