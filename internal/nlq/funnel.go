package nlq

import (
	"strings"
	"unicode"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

// Result column names produced by the funnel queries.
const (
	ColMetric               = "metric"
	ColFunnelVisits         = "visits"
	ColSubmits              = "submits"
	ColAccountsOpened       = "accounts_opened"
	ColCreated              = "created"
	ColCallsAnswered        = "calls_answered"
	ColQualityLeads         = "quality_leads"
	ColConversionToSubmits  = "conversion_to_submits"
	ColConversionToAccounts = "conversion_to_accounts"
	ColConversionToQuality  = "conversion_to_quality"

	// FunnelMetricLabel is the constant value of the metric column.
	FunnelMetricLabel = "conversion_funnel"
)

// Campaign filter origins.
const (
	CampaignFromParam  = "utm_param"
	CampaignFromKnown  = "known_campaign"
	CampaignFromLeadIn = "lead_in"
)

// FunnelPlan records how a funnel question was interpreted.
type FunnelPlan struct {
	Shape          FunnelShape `json:"shape"`
	Campaign       string      `json:"campaign,omitempty"`
	CampaignSource string      `json:"campaign_source,omitempty"`
	Params         []UTMValue  `json:"params,omitempty"`
}

// FunnelPlanner builds funnel/UTM query specs.
type FunnelPlanner struct {
	lex        *Lexicon
	classifier *Classifier
	known      []string
}

// NewFunnelPlanner creates a planner. known lists the utm_campaign values
// recognized by name in a question.
func NewFunnelPlanner(lex *Lexicon, classifier *Classifier, known []string) *FunnelPlanner {
	list := make([]string, 0, len(known))
	for _, k := range known {
		if k = lower(k); k != "" {
			list = append(list, k)
		}
	}
	return &FunnelPlanner{lex: lex, classifier: classifier, known: list}
}

// Plan selects the funnel shape and builds its spec. An explicit
// utm_campaign parameter takes precedence over the campaign heuristic;
// other explicit parameters filter every shape.
func (p *FunnelPlanner) Plan(question string) (FunnelPlan, QuerySpec) {
	fp := FunnelPlan{Shape: p.classifier.FunnelShape(question)}

	var filter []Clause
	for _, v := range p.lex.ExtractUTM(question) {
		if v.Param == storage.ColUTMCampaign {
			fp.Campaign, fp.CampaignSource = v.Value, CampaignFromParam
			continue
		}
		fp.Params = append(fp.Params, v)
		col, _ := utmColumn(v.Param)
		filter = append(filter, Clause{SQL: "LOWER(" + col + ") = ?", Args: []interface{}{v.Value}})
	}
	if fp.Campaign == "" {
		fp.Campaign, fp.CampaignSource = p.Campaign(question)
	}

	campaignFilter := func() []Clause {
		if fp.Campaign == "" {
			return filter
		}
		c := Clause{SQL: "LOWER(" + storage.ColUTMCampaign + ") = ?", Args: []interface{}{fp.Campaign}}
		return append([]Clause{c}, filter...)
	}

	var spec QuerySpec
	switch fp.Shape {
	case FunnelConversion:
		spec = QuerySpec{
			Table:      storage.TableFunnel,
			Projection: append([]Column{{Expr: "'" + FunnelMetricLabel + "'", Alias: ColMetric}}, funnelCounters(true)...),
			Filter:     campaignFilter(),
		}
	case FunnelSources:
		spec = QuerySpec{
			Table:      storage.TableFunnel,
			Projection: append([]Column{{Expr: storage.ColUTMSource}}, funnelCounters(false)...),
			Filter:     append(campaignFilter(), Clause{SQL: storage.ColUTMSource + " IS NOT NULL"}),
			GroupBy:    []string{storage.ColUTMSource},
			OrderBy:    []OrderKey{{Expr: ColFunnelVisits, Desc: true}, {Expr: storage.ColUTMSource}},
		}
	case FunnelTrend:
		spec = QuerySpec{
			Table:      storage.TableFunnel,
			Projection: append([]Column{{Expr: storage.ColFunnelDate}}, funnelCounters(false)...),
			Filter:     campaignFilter(),
			GroupBy:    []string{storage.ColFunnelDate},
			OrderBy:    []OrderKey{{Expr: storage.ColFunnelDate}},
		}
	case FunnelTop:
		spec = QuerySpec{
			Table:      storage.TableFunnel,
			Projection: append([]Column{{Expr: storage.ColUTMCampaign}}, funnelCounters(false)...),
			Filter:     append(filter, Clause{SQL: storage.ColUTMCampaign + " IS NOT NULL"}),
			GroupBy:    []string{storage.ColUTMCampaign},
			OrderBy:    []OrderKey{{Expr: ColSubmits, Desc: true}, {Expr: storage.ColUTMCampaign}},
			Limit:      10,
		}
	default:
		fp.Shape = FunnelTotals
		spec = QuerySpec{
			Table:      storage.TableFunnel,
			Projection: funnelCounters(true),
			Filter:     campaignFilter(),
		}
	}
	return fp, spec
}

// Campaign applies the funnel campaign heuristic: a known utm_campaign
// named in the question, otherwise the first token after a lead-in.
func (p *FunnelPlanner) Campaign(question string) (string, string) {
	q := lower(question)
	for _, k := range p.known {
		if strings.Contains(q, k) {
			return k, CampaignFromKnown
		}
	}

	tokens := strings.FieldsFunc(q, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-')
	})
	stop := make(map[string]bool, len(p.lex.UTMStopValues))
	for _, s := range p.lex.UTMStopValues {
		stop[lower(s)] = true
	}

	for _, li := range p.lex.FunnelLeadIns {
		seq := strings.Fields(lower(li))
		if len(seq) == 0 {
			continue
		}
		for i := 0; i+len(seq) < len(tokens); i++ {
			if !sameTokens(tokens[i:i+len(seq)], seq) {
				continue
			}
			next := tokens[i+len(seq)]
			if stop[next] || p.lex.isVocabulary(strings.ToUpper(next)) {
				continue
			}
			return next, CampaignFromLeadIn
		}
	}
	return "", ""
}

func sameTokens(a, b []string) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// funnelCounters is the stage projection. full adds the created and
// call-answered counters and the later-stage conversions.
func funnelCounters(full bool) []Column {
	visits := "COUNT(DISTINCT " + storage.ColVisitID + ")"
	cols := []Column{
		{Expr: visits, Alias: ColFunnelVisits},
		{Expr: sum(storage.ColSubmits), Alias: ColSubmits},
		{Expr: sum(storage.ColAccountNum), Alias: ColAccountsOpened},
	}
	if full {
		cols = append(cols,
			Column{Expr: sum(storage.ColCreatedFlag), Alias: ColCreated},
			Column{Expr: sum(storage.ColCallAnsweredFlag), Alias: ColCallsAnswered},
		)
	}
	cols = append(cols,
		Column{Expr: sum(storage.ColQualityFlag), Alias: ColQualityLeads},
		Column{Expr: pct(sum(storage.ColSubmits), visits), Alias: ColConversionToSubmits},
	)
	if full {
		cols = append(cols,
			Column{Expr: pct(sum(storage.ColAccountNum), sum(storage.ColSubmits)), Alias: ColConversionToAccounts},
			Column{Expr: pct(sum(storage.ColQualityFlag), sum(storage.ColAccountNum)), Alias: ColConversionToQuality},
		)
	}
	return cols
}
