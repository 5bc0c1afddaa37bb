package nlq

import (
	"strings"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

// Result column names produced by the campaign queries.
const (
	ColCampaignsCount   = "campaigns_count"
	ColTotalImpressions = "total_impressions"
	ColTotalClicks      = "total_clicks"
	ColTotalCost        = "total_cost"
	ColTotalVisits      = "total_visits"
	ColAvgCTR           = "avg_ctr"
	ColAvgCPC           = "avg_cpc"

	ColImpressions = "impressions"
	ColClicks      = "clicks"
	ColCost        = "cost"
	ColVisits      = "visits"
	ColCTR         = "ctr"
	ColCPC         = "cpc"
)

var orderableColumns = map[string]bool{
	ColCost:                 true,
	ColImpressions:          true,
	ColClicks:               true,
	ColVisits:               true,
	ColCTR:                  true,
	ColCPC:                  true,
	storage.ColCampaignName: true,
}

// Plan is everything derived from one question before execution.
type Plan struct {
	Question       string             `json:"question"`
	Classification Classification     `json:"classification"`
	Terms          Terms              `json:"terms,omitempty"`
	Conditions     []TermCondition    `json:"-"`
	Funnel         *FunnelPlan        `json:"funnel,omitempty"`
	Selection      []CampaignIdentity `json:"selection,omitempty"`
	Spec           QuerySpec          `json:"spec"`
}

// Intent is a shortcut for Classification.Intent.
func (p Plan) Intent() Intent { return p.Classification.Intent }

// Signals is a shortcut for Classification.Signals.
func (p Plan) Signals() Signals { return p.Classification.Signals }

// Assembler builds query plans from questions.
type Assembler struct {
	lex        *Lexicon
	extractor  *Extractor
	classifier *Classifier
	funnel     *FunnelPlanner
}

// NewAssembler wires the pipeline over a lexicon. knownUTMCampaigns feeds
// the funnel campaign heuristic.
func NewAssembler(lex *Lexicon, knownUTMCampaigns []string) *Assembler {
	if lex == nil {
		lex = DefaultLexicon()
	}
	classifier := NewClassifier(lex)
	return &Assembler{
		lex:        lex,
		extractor:  NewExtractor(lex),
		classifier: classifier,
		funnel:     NewFunnelPlanner(lex, classifier, knownUTMCampaigns),
	}
}

// Lexicon returns the vocabulary in use.
func (a *Assembler) Lexicon() *Lexicon { return a.lex }

// Extract runs the term extractor alone.
func (a *Assembler) Extract(question string) Terms { return a.extractor.Extract(question) }

// Assemble classifies the question and builds its query spec.
func (a *Assembler) Assemble(question string) Plan {
	cls := a.classifier.Classify(question)
	plan := Plan{
		Question:       question,
		Classification: cls,
		Terms:          a.extractor.Extract(question),
	}

	switch cls.Intent {
	case IntentFunnel:
		fp, spec := a.funnel.Plan(question)
		plan.Funnel = &fp
		plan.Spec = spec
	case IntentAggregate:
		plan.Spec = AggregateSpec()
	default:
		var filter []Clause
		if !cls.Signals.AllCampaigns {
			plan.Conditions = BuildConditions(plan.Terms)
			for _, c := range plan.Conditions {
				filter = append(filter, c.Clause())
			}
		}
		plan.Spec = a.entitySpec(question, cls.Signals, filter)
	}
	return plan
}

// AssembleSelection builds the per-entity spec for identities chosen after
// disambiguation. Each identity matches its exact name and every venue
// variant sharing the prefix; identities are ORed.
func (a *Assembler) AssembleSelection(question string, ids []CampaignIdentity) Plan {
	cls := a.classifier.Classify(question)
	cls.Intent = IntentEntity
	cls.Rule = "selection"
	cls.Signals.AllCampaigns = false

	plan := Plan{
		Question:       question,
		Classification: cls,
		Terms:          a.extractor.Extract(question),
		Selection:      ids,
	}

	var filter []Clause
	if len(ids) > 0 {
		parts := make([]string, 0, len(ids))
		var args []interface{}
		for _, id := range ids {
			parts = append(parts, storage.ColCampaignName+` = ? OR `+storage.ColCampaignName+` LIKE ? ESCAPE '\'`)
			args = append(args, string(id), likeEscaper.Replace(string(id))+"%")
		}
		filter = []Clause{{SQL: "(" + strings.Join(parts, " OR ") + ")", Args: args}}
	}
	plan.Spec = a.entitySpec(question, cls.Signals, filter)
	return plan
}

// AggregateSpec is the whole-table totals query. It never groups, filters
// or orders.
func AggregateSpec() QuerySpec {
	return QuerySpec{
		Table: storage.TableCampaignMetrics,
		Projection: []Column{
			{Expr: "COUNT(DISTINCT " + storage.ColCampaignID + ")", Alias: ColCampaignsCount},
			{Expr: sum(storage.ColImpressions), Alias: ColTotalImpressions},
			{Expr: sum(storage.ColClicks), Alias: ColTotalClicks},
			{Expr: sum(storage.ColCost), Alias: ColTotalCost},
			{Expr: sum(storage.ColVisits), Alias: ColTotalVisits},
			{Expr: pct(sum(storage.ColClicks), sum(storage.ColImpressions)), Alias: ColAvgCTR},
			{Expr: per(sum(storage.ColCost), sum(storage.ColClicks)), Alias: ColAvgCPC},
		},
	}
}

func (a *Assembler) entitySpec(question string, sig Signals, filter []Clause) QuerySpec {
	var projection []Column
	var group []string
	if sig.Trend {
		projection = append(projection, Column{Expr: storage.ColDate})
		group = append(group, storage.ColDate)
	}
	projection = append(projection,
		Column{Expr: storage.ColCampaignName},
		Column{Expr: storage.ColPlatform},
		Column{Expr: sum(storage.ColImpressions), Alias: ColImpressions},
		Column{Expr: sum(storage.ColClicks), Alias: ColClicks},
		Column{Expr: sum(storage.ColCost), Alias: ColCost},
		Column{Expr: sum(storage.ColVisits), Alias: ColVisits},
		Column{Expr: pct(sum(storage.ColClicks), sum(storage.ColImpressions)), Alias: ColCTR},
		Column{Expr: per(sum(storage.ColCost), sum(storage.ColClicks)), Alias: ColCPC},
	)
	group = append(group, storage.ColCampaignName, storage.ColPlatform)

	var order []OrderKey
	if rule, ok := a.classifier.Order(question); ok {
		order = append(order, OrderKey{Expr: rule.Column, Desc: rule.Desc})
	} else if sig.Trend {
		order = append(order, OrderKey{Expr: storage.ColDate})
	}
	order = append(order,
		OrderKey{Expr: storage.ColCampaignName},
		OrderKey{Expr: storage.ColPlatform},
	)

	return QuerySpec{
		Table:      storage.TableCampaignMetrics,
		Projection: projection,
		Filter:     filter,
		GroupBy:    group,
		OrderBy:    order,
		Limit:      a.classifier.Limit(question),
	}
}
