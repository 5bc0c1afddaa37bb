package agent

import (
	"time"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
)

// Entry is one answered question in the conversation log.
type Entry struct {
	ID       string     `json:"id"`
	Question string     `json:"question"`
	Report   string     `json:"report"`
	Query    nlq.Query  `json:"query"`
	Intent   nlq.Intent `json:"intent"`
	At       time.Time  `json:"at"`
}

func (a *Agent) record(resp *Response) {
	e := Entry{
		ID:       resp.ID,
		Question: resp.Question,
		Report:   resp.Report,
		Query:    resp.Query,
		Intent:   resp.Intent,
		At:       time.Now().UTC(),
	}
	a.mu.Lock()
	a.history = append(a.history, e)
	a.mu.Unlock()
}
