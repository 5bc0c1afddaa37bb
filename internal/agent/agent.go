// Package agent answers analytics questions end to end: it plans the
// query, runs it, analyzes the result and renders the report.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/analysis"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/knowledge"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/report"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

// ErrNoStore is returned by New when no store is configured.
var ErrNoStore = errors.New("agent: store is required")

// Options wires an Agent.
type Options struct {
	Store *storage.Store
	// Catalog serves campaign names for disambiguation. When nil an
	// uncached catalog over Store is used.
	Catalog *storage.CampaignCatalog
	// Lexicon defaults to nlq.DefaultLexicon.
	Lexicon *nlq.Lexicon

	KnownUTMCampaigns []string
	// DiscoverUTMCampaigns adds the utm_campaign values present in the
	// funnel table to KnownUTMCampaigns at construction.
	DiscoverUTMCampaigns bool

	// Enhancer is optional.
	Enhancer       knowledge.Enhancer
	EnhanceTimeout time.Duration

	Analysis analysis.Options
	Report   report.Options
	Logger   *observability.Logger
}

// Response is the outcome of one question.
type Response struct {
	ID              string                 `json:"id"`
	Question        string                 `json:"question"`
	Report          string                 `json:"report"`
	ReportKind      report.Kind            `json:"report_kind"`
	Query           nlq.Query              `json:"query"`
	Intent          nlq.Intent             `json:"intent"`
	Signals         nlq.Signals            `json:"signals"`
	Terms           nlq.Terms              `json:"terms,omitempty"`
	Funnel          *nlq.FunnelPlan        `json:"funnel,omitempty"`
	SummaryKind     analysis.Kind          `json:"summary_kind"`
	Summary         analysis.Summary       `json:"summary"`
	Insights        []string               `json:"insights"`
	Recommendations []string               `json:"recommendations"`
	Table           *storage.ResultTable   `json:"table"`
	Ambiguous       []nlq.CampaignIdentity `json:"ambiguous,omitempty"`
	// QueryError is set when execution failed and the report fell back to no data.
	QueryError      string                 `json:"query_error,omitempty"`
	Elapsed         time.Duration          `json:"elapsed_ns"`
}

// Agent is safe for concurrent use. Its only mutable state is the
// conversation history.
type Agent struct {
	store     *storage.Store
	exec      *storage.Executor
	catalog   *storage.CampaignCatalog
	assembler *nlq.Assembler
	matcher   *nlq.Matcher
	analyzer  *analysis.Analyzer
	renderer  *report.Renderer
	enhancer  knowledge.Enhancer
	timeout   time.Duration
	logger    *observability.Logger

	mu      sync.Mutex
	history []Entry
}

// New creates an agent.
func New(ctx context.Context, opts Options) (*Agent, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	lex := opts.Lexicon
	if lex == nil {
		lex = nlq.DefaultLexicon()
	}

	repos := storage.NewRepositories(opts.Store.DB())
	catalog := opts.Catalog
	if catalog == nil {
		catalog = storage.NewCampaignCatalog(repos.Campaigns, nil, 0)
	}

	known := append([]string(nil), opts.KnownUTMCampaigns...)
	if opts.DiscoverUTMCampaigns {
		found, err := repos.Funnel.DistinctUTMCampaigns(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover utm campaigns: %w", err)
		}
		known = append(known, found...)
	}

	timeout := opts.EnhanceTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Agent{
		store:     opts.Store,
		exec:      storage.NewExecutor(opts.Store, logger),
		catalog:   catalog,
		assembler: nlq.NewAssembler(lex, known),
		matcher:   nlq.NewMatcher(lex),
		analyzer:  analysis.NewAnalyzer(opts.Analysis),
		renderer:  report.NewRenderer(opts.Report),
		enhancer:  opts.Enhancer,
		timeout:   timeout,
		logger:    logger.WithComponent("agent"),
	}, nil
}

// ProcessQuestion answers question. When the terms match several campaign
// identities they are listed in Response.Ambiguous and the report still
// covers all of them. A blank question gets the no-data report without a
// query.
func (a *Agent) ProcessQuestion(ctx context.Context, question string) (*Response, error) {
	if strings.TrimSpace(question) == "" {
		return a.blank(question), nil
	}
	plan := a.assembler.Assemble(question)

	var ambiguous []nlq.CampaignIdentity
	if plan.Intent() == nlq.IntentEntity && len(plan.Terms) > 0 && !plan.Signals().AllCampaigns {
		ids, err := a.match(ctx, plan.Terms)
		if err != nil {
			a.logger.WithContext(ctx).Warn().Err(err).Msg("Campaign catalogue unavailable")
		}
		if len(ids) > 1 {
			ambiguous = ids
		}
	}

	resp := a.run(ctx, plan)
	resp.Ambiguous = ambiguous
	return resp, nil
}

// GetMatchingCampaigns returns the campaign identities the question's
// terms resolve to. No terms means no matches.
func (a *Agent) GetMatchingCampaigns(ctx context.Context, question string) ([]nlq.CampaignIdentity, error) {
	terms := a.assembler.Extract(question)
	if len(terms) == 0 {
		return nil, nil
	}
	return a.match(ctx, terms)
}

// ProcessSelection answers question restricted to the chosen identities.
func (a *Agent) ProcessSelection(ctx context.Context, question string, ids []nlq.CampaignIdentity) (*Response, error) {
	return a.run(ctx, a.assembler.AssembleSelection(question, ids)), nil
}

// History returns a copy of the conversation log, oldest first.
func (a *Agent) History() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.history))
	copy(out, a.history)
	return out
}

// RefreshCatalog drops the cached campaign names so the next lookup reads
// them from the store.
func (a *Agent) RefreshCatalog(ctx context.Context) error {
	return a.catalog.Invalidate(ctx)
}

// Ready reports whether the store answers.
func (a *Agent) Ready(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// Dialect is the dialect queries are rendered for.
func (a *Agent) Dialect() storage.Dialect { return a.store.Dialect() }

func (a *Agent) match(ctx context.Context, terms nlq.Terms) ([]nlq.CampaignIdentity, error) {
	names, err := a.catalog.Names(ctx)
	if err != nil {
		return nil, err
	}
	return a.matcher.Match(terms, names), nil
}

func (a *Agent) blank(question string) *Response {
	rep := a.renderer.Render(report.Input{Analysis: analysis.Result{Summary: analysis.EmptySummary{}}})
	resp := &Response{
		ID:          uuid.New().String(),
		Question:    question,
		Report:      rep.Markdown,
		ReportKind:  rep.Kind,
		SummaryKind: analysis.KindEmpty,
		Summary:     analysis.EmptySummary{},
		Table:       storage.EmptyTable(),
	}
	a.record(resp)
	return resp
}

func (a *Agent) run(ctx context.Context, plan nlq.Plan) *Response {
	start := time.Now()
	log := a.logger.WithContext(ctx)

	q := plan.Spec.Build(a.store.Dialect())
	log.Debug().
		Str("intent", string(plan.Intent())).
		Strs("terms", plan.Terms.Texts()).
		Str("sql", q.SQL).
		Msg("Query planned")

	resp := &Response{
		ID:       uuid.New().String(),
		Question: plan.Question,
		Query:    q,
		Intent:   plan.Intent(),
		Signals:  plan.Signals(),
		Terms:    plan.Terms,
		Funnel:   plan.Funnel,
	}

	table, err := a.exec.Run(ctx, q.SQL, q.Args...)
	if err != nil {
		resp.QueryError = err.Error()
		table = storage.EmptyTable()
	}
	resp.Table = table

	res := a.analyzer.Analyze(table)
	resp.Summary = res.Summary
	resp.SummaryKind = res.Summary.Kind()
	resp.Insights = res.Insights
	resp.Recommendations = res.Recommendations

	in := report.Input{Question: plan.Question, Signals: plan.Signals(), Analysis: res}
	empty := res.Summary.Kind() == analysis.KindEmpty
	if empty && len(plan.Terms) > 0 {
		// Close names are suggested, never substituted.
		if ids, err := a.match(ctx, plan.Terms); err == nil {
			in.Candidates = ids
		}
	}
	rep := a.renderer.Render(in)
	resp.ReportKind = rep.Kind
	resp.Report = rep.Markdown

	if a.enhancer != nil && (empty || a.assembler.Lexicon().MentionsKnowledgeTerm(plan.Question)) {
		resp.Report = knowledge.SafeEnhance(ctx, a.enhancer, a.timeout, log, resp.Report, plan.Question)
	}

	resp.Elapsed = time.Since(start)
	log.Debug().
		Int("rows", table.Len()).
		Str("summary", string(resp.SummaryKind)).
		Dur("elapsed", resp.Elapsed).
		Msg("Question answered")

	a.record(resp)
	return resp
}
