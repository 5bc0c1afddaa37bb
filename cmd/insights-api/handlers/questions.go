// Package handlers provides HTTP handlers for the insights API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/agent"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/observability"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage"
)

// Engine is the part of the agent the handlers need.
type Engine interface {
	ProcessQuestion(ctx context.Context, question string) (*agent.Response, error)
	ProcessSelection(ctx context.Context, question string, ids []nlq.CampaignIdentity) (*agent.Response, error)
	GetMatchingCampaigns(ctx context.Context, question string) ([]nlq.CampaignIdentity, error)
	History() []agent.Entry
}

// QuestionsHandler answers analytics questions.
type QuestionsHandler struct {
	logger *observability.Logger
	engine Engine
}

// NewQuestionsHandler creates a new questions handler.
func NewQuestionsHandler(logger *observability.Logger, engine Engine) *QuestionsHandler {
	return &QuestionsHandler{
		logger: logger.WithComponent("questions"),
		engine: engine,
	}
}

// QuestionRequestDTO is the body of POST /questions.
type QuestionRequestDTO struct {
	Question string `json:"question"`
}

// SelectionRequestDTO is the body of POST /questions/selection. An empty
// campaign list removes the campaign filter.
type SelectionRequestDTO struct {
	Question  string   `json:"question"`
	Campaigns []string `json:"campaigns"`
}

// QueryDTO is the issued query.
type QueryDTO struct {
	SQL    string        `json:"sql"`
	Args   []interface{} `json:"args"`
	Inline string        `json:"inline"`
}

// QuestionResponseDTO is the answer to one question.
type QuestionResponseDTO struct {
	ID              string               `json:"id"`
	Question        string               `json:"question"`
	Intent          string               `json:"intent"`
	ReportKind      string               `json:"reportKind"`
	Report          string               `json:"report"`
	Query           QueryDTO             `json:"query"`
	Funnel          *nlq.FunnelPlan      `json:"funnel,omitempty"`
	SummaryKind     string               `json:"summaryKind"`
	Summary         interface{}          `json:"summary"`
	Insights        []string             `json:"insights"`
	Recommendations []string             `json:"recommendations"`
	Table           *storage.ResultTable `json:"table"`
	Ambiguous       []string             `json:"ambiguous,omitempty"`
	QueryError      string               `json:"queryError,omitempty"`
	LatencyMs       int64                `json:"latencyMs"`
}

// MatchesResponseDTO lists the campaign identities a question resolves to.
type MatchesResponseDTO struct {
	Question  string   `json:"question"`
	Campaigns []string `json:"campaigns"`
}

// HistoryEntryDTO is one answered question.
type HistoryEntryDTO struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Intent   string    `json:"intent"`
	SQL      string    `json:"sql"`
	Report   string    `json:"report"`
	At       time.Time `json:"at"`
}

// HistoryResponseDTO is the conversation log, oldest first.
type HistoryResponseDTO struct {
	Entries []HistoryEntryDTO `json:"entries"`
}

// ErrorResponseDTO is the body of every non-2xx response.
type ErrorResponseDTO struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Ask handles POST /questions.
func (h *QuestionsHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req QuestionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		h.writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}

	resp, err := h.engine.ProcessQuestion(ctx, question)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Question failed")
		h.writeError(w, http.StatusInternalServerError, "question failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, toResponseDTO(resp))
}

// Select handles POST /questions/selection.
func (h *QuestionsHandler) Select(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SelectionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		h.writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}

	ids := make([]nlq.CampaignIdentity, 0, len(req.Campaigns))
	for _, c := range req.Campaigns {
		if c = strings.TrimSpace(c); c != "" {
			ids = append(ids, nlq.CampaignIdentity(c))
		}
	}

	resp, err := h.engine.ProcessSelection(ctx, question, ids)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Selection failed")
		h.writeError(w, http.StatusInternalServerError, "selection failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, toResponseDTO(resp))
}

// Matches handles GET /campaigns/matches?q=...
func (h *QuestionsHandler) Matches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	question := strings.TrimSpace(r.URL.Query().Get("q"))
	if question == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter q is required", "")
		return
	}

	ids, err := h.engine.GetMatchingCampaigns(ctx, question)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Msg("Campaign lookup failed")
		h.writeError(w, http.StatusServiceUnavailable, "campaign catalogue unavailable", err.Error())
		return
	}
	campaigns := identityStrings(ids)
	if campaigns == nil {
		campaigns = []string{}
	}
	h.writeJSON(w, http.StatusOK, MatchesResponseDTO{Question: question, Campaigns: campaigns})
}

// History handles GET /history.
func (h *QuestionsHandler) History(w http.ResponseWriter, r *http.Request) {
	entries := h.engine.History()
	dto := HistoryResponseDTO{Entries: make([]HistoryEntryDTO, 0, len(entries))}
	for _, e := range entries {
		dto.Entries = append(dto.Entries, HistoryEntryDTO{
			ID:       e.ID,
			Question: e.Question,
			Intent:   string(e.Intent),
			SQL:      e.Query.SQL,
			Report:   e.Report,
			At:       e.At,
		})
	}
	h.writeJSON(w, http.StatusOK, dto)
}

func toResponseDTO(resp *agent.Response) QuestionResponseDTO {
	args := resp.Query.Args
	if args == nil {
		args = []interface{}{}
	}
	insights := resp.Insights
	if insights == nil {
		insights = []string{}
	}
	recs := resp.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return QuestionResponseDTO{
		ID:              resp.ID,
		Question:        resp.Question,
		Intent:          string(resp.Intent),
		ReportKind:      string(resp.ReportKind),
		Report:          resp.Report,
		Query:           QueryDTO{SQL: resp.Query.SQL, Args: args, Inline: resp.Query.Inline},
		Funnel:          resp.Funnel,
		SummaryKind:     string(resp.SummaryKind),
		Summary:         resp.Summary,
		Insights:        insights,
		Recommendations: recs,
		Table:           resp.Table,
		Ambiguous:       identityStrings(resp.Ambiguous),
		QueryError:      resp.QueryError,
		LatencyMs:       resp.Elapsed.Milliseconds(),
	}
}

func identityStrings(ids []nlq.CampaignIdentity) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func (h *QuestionsHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	writeJSON(h.logger, w, status, v)
}

func (h *QuestionsHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(h.logger, w, status, ErrorResponseDTO{Error: message, Detail: detail})
}

func writeJSON(logger *observability.Logger, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}
