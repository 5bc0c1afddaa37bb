// Package analysis turns a query result table into a typed summary with
// insights and recommendations.
package analysis

import (
	"encoding/json"
	"math"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
)

// Kind tags a summary variant.
type Kind string

const (
	KindEmpty          Kind = "empty"
	KindAggregate      Kind = "aggregate"
	KindEntity         Kind = "entity"
	KindPlatform       Kind = "platform"
	KindFunnelSingle   Kind = "funnel_single"
	KindFunnelSource   Kind = "funnel_source"
	KindFunnelTrend    Kind = "funnel_trend"
	KindFunnelCampaign Kind = "funnel_campaign"
)

// Summary is one of the summary variants in this package.
type Summary interface {
	Kind() Kind
	summary()
}

// Ratio is a derived metric that is defined only when its denominator was
// strictly positive.
type Ratio struct {
	Value   float64
	Defined bool
}

// NewRatio returns num/den*scale rounded to two decimals, or an undefined
// ratio when den is not positive.
func NewRatio(num, den, scale float64) Ratio {
	if den <= 0 || math.IsNaN(num) || math.IsInf(num, 0) {
		return Ratio{}
	}
	v := num / den * scale
	return Ratio{Value: math.Round(v*100) / 100, Defined: true}
}

// MarshalJSON encodes an undefined ratio as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// Totals are summed volumes with their derived ratios.
type Totals struct {
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Cost        float64 `json:"cost"`
	Visits      float64 `json:"visits"`
	CTR         Ratio   `json:"ctr"`
	CPC         Ratio   `json:"cpc"`
	CPM         Ratio   `json:"cpm"`
	// ClickToVisit is visits per click, in percent.
	ClickToVisit Ratio `json:"click_to_visit"`
}

func newTotals(impressions, clicks, cost, visits float64) Totals {
	return Totals{
		Impressions:  impressions,
		Clicks:       clicks,
		Cost:         cost,
		Visits:       visits,
		CTR:          NewRatio(clicks, impressions, 100),
		CPC:          NewRatio(cost, clicks, 1),
		CPM:          NewRatio(cost, impressions, 1000),
		ClickToVisit: NewRatio(visits, clicks, 100),
	}
}

// HasVolume reports whether anything was shown or clicked.
func (t Totals) HasVolume() bool {
	return t.Impressions > 0 || t.Clicks > 0
}

// EmptySummary is produced for a result with no rows.
type EmptySummary struct{}

// AggregateSummary is a whole-table totals row.
type AggregateSummary struct {
	CampaignsCount int `json:"campaigns_count"`
	Totals
}

// Assessment bands a row's ratios.
type Assessment struct {
	CTR string `json:"ctr,omitempty"`
	CPC string `json:"cpc,omitempty"`
}

// EntityRow is one campaign/platform (and optionally date) group.
type EntityRow struct {
	Date       string               `json:"date,omitempty"`
	Campaign   string               `json:"campaign"`
	Identity   nlq.CampaignIdentity `json:"identity"`
	Platform   string               `json:"platform"`
	Assessment Assessment           `json:"assessment"`
	Totals
}

// EntitySummary is a per-campaign breakdown.
type EntitySummary struct {
	CampaignsCount int                    `json:"campaigns_count"`
	Identities     []nlq.CampaignIdentity `json:"identities"`
	Totals         Totals                 `json:"totals"`
	Rows           []EntityRow            `json:"rows"`
	// Top holds up to five rows with the highest defined CTR.
	Top       []EntityRow      `json:"top"`
	Platforms *PlatformSummary `json:"platforms,omitempty"`
	Metrics   KeyMetrics       `json:"metrics"`
	Goals     []GoalStatus     `json:"goals,omitempty"`
	// Days sums the rows per date, oldest first. Set only when rows are
	// split by date.
	Days []DayRow `json:"days,omitempty"`
}

// DayRow is the totals of every row sharing one date.
type DayRow struct {
	Date string `json:"date"`
	Totals
}

// Single reports whether every row belongs to one campaign identity.
func (s EntitySummary) Single() bool { return len(s.Identities) == 1 }

// HasDates reports whether rows are split by date.
func (s EntitySummary) HasDates() bool {
	return len(s.Rows) > 0 && s.Rows[0].Date != ""
}

// PlatformRow aggregates one platform: volumes are summed, ratios are the
// mean of the defined per-row ratios.
type PlatformRow struct {
	Platform    string  `json:"platform"`
	Rows        int     `json:"rows"`
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Cost        float64 `json:"cost"`
	Visits      float64 `json:"visits"`
	AvgCTR      Ratio   `json:"avg_ctr"`
	AvgCPC      Ratio   `json:"avg_cpc"`
}

// PlatformSummary is a per-platform breakdown, sorted by platform.
type PlatformSummary struct {
	Platforms []PlatformRow `json:"platforms"`
}

// FunnelStages are stage counters and the conversions between them.
type FunnelStages struct {
	Visits        float64 `json:"visits"`
	Submits       float64 `json:"submits"`
	Accounts      float64 `json:"accounts_opened"`
	Created       float64 `json:"created"`
	CallsAnswered float64 `json:"calls_answered"`
	QualityLeads  float64 `json:"quality_leads"`
	ToSubmits     Ratio   `json:"conversion_to_submits"`
	ToAccounts    Ratio   `json:"conversion_to_accounts"`
	ToQuality     Ratio   `json:"conversion_to_quality"`
}

func newStages(visits, submits, accounts, created, calls, quality float64) FunnelStages {
	return FunnelStages{
		Visits:        visits,
		Submits:       submits,
		Accounts:      accounts,
		Created:       created,
		CallsAnswered: calls,
		QualityLeads:  quality,
		ToSubmits:     NewRatio(submits, visits, 100),
		ToAccounts:    NewRatio(accounts, submits, 100),
		ToQuality:     NewRatio(quality, accounts, 100),
	}
}

func (f FunnelStages) add(o FunnelStages) FunnelStages {
	return newStages(
		f.Visits+o.Visits, f.Submits+o.Submits, f.Accounts+o.Accounts,
		f.Created+o.Created, f.CallsAnswered+o.CallsAnswered, f.QualityLeads+o.QualityLeads,
	)
}

// FunnelSingleSummary is one funnel, all campaigns or one.
type FunnelSingleSummary struct {
	FunnelStages
}

// FunnelRow is one grouped funnel row. Key is the source, date or
// campaign depending on the summary.
type FunnelRow struct {
	Key string `json:"key"`
	FunnelStages
}

// FunnelSourceSummary compares traffic sources.
type FunnelSourceSummary struct {
	Rows   []FunnelRow  `json:"rows"`
	Totals FunnelStages `json:"totals"`
}

// FunnelTrendSummary is a daily funnel series, in date order.
type FunnelTrendSummary struct {
	Rows   []FunnelRow  `json:"rows"`
	Totals FunnelStages `json:"totals"`
}

// FunnelCampaignSummary ranks UTM campaigns by submissions.
type FunnelCampaignSummary struct {
	Rows   []FunnelRow  `json:"rows"`
	Totals FunnelStages `json:"totals"`
}

func (EmptySummary) Kind() Kind          { return KindEmpty }
func (AggregateSummary) Kind() Kind      { return KindAggregate }
func (EntitySummary) Kind() Kind         { return KindEntity }
func (PlatformSummary) Kind() Kind       { return KindPlatform }
func (FunnelSingleSummary) Kind() Kind   { return KindFunnelSingle }
func (FunnelSourceSummary) Kind() Kind   { return KindFunnelSource }
func (FunnelTrendSummary) Kind() Kind    { return KindFunnelTrend }
func (FunnelCampaignSummary) Kind() Kind { return KindFunnelCampaign }

func (EmptySummary) summary()          {}
func (AggregateSummary) summary()      {}
func (EntitySummary) summary()         {}
func (PlatformSummary) summary()       {}
func (FunnelSingleSummary) summary()   {}
func (FunnelSourceSummary) summary()   {}
func (FunnelTrendSummary) summary()    {}
func (FunnelCampaignSummary) summary() {}
