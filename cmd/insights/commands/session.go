package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spherical-ai/spherical/libs/campaign-insights/cmd/insights/ui"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/agent"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
)

// engine is the part of the agent the CLI drives.
type engine interface {
	ProcessQuestion(ctx context.Context, question string) (*agent.Response, error)
	ProcessSelection(ctx context.Context, question string, ids []nlq.CampaignIdentity) (*agent.Response, error)
	GetMatchingCampaigns(ctx context.Context, question string) ([]nlq.CampaignIdentity, error)
	History() []agent.Entry
}

type printOptions struct {
	showSQL  bool
	jsonMode bool
}

func ask(ctx context.Context, eng engine, u *ui.UI, question string, campaigns []string) (*agent.Response, error) {
	spin := u.NewSpinner("Thinking...")
	spin.Start()
	defer spin.Stop()

	if len(campaigns) > 0 {
		ids := make([]nlq.CampaignIdentity, 0, len(campaigns))
		for _, c := range campaigns {
			ids = append(ids, nlq.CampaignIdentity(strings.TrimSpace(c)))
		}
		return eng.ProcessSelection(ctx, question, ids)
	}
	return eng.ProcessQuestion(ctx, question)
}

func printResponse(u *ui.UI, resp *agent.Response, opts printOptions) error {
	if opts.jsonMode {
		enc := json.NewEncoder(u.Out())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.QueryError != "" {
		u.Warning("Query failed: %s", resp.QueryError)
	}
	u.Print(resp.Report)

	if opts.showSQL || u.Verbose() {
		u.Section("Query")
		u.Print(resp.Query.Inline)
	}
	u.Debug("intent=%s report=%s rows=%d elapsed=%s",
		resp.Intent, resp.ReportKind, resp.Table.Len(), resp.Elapsed)
	return nil
}

func printHistory(u *ui.UI, entries []agent.Entry) {
	if len(entries) == 0 {
		u.Info("No questions asked yet.")
		return
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.At.Local().Format("15:04:05"),
			string(e.Intent),
			e.Question,
		})
	}
	u.Table([]string{"#", "Time", "Intent", "Question"}, rows)
}

// chat runs the interactive loop until :quit or end of input.
func chat(ctx context.Context, eng engine, u *ui.UI, opts printOptions) error {
	u.Section("Campaign insights")
	u.Info("Ask a question. Commands: :history, :quit")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		question, err := u.Prompt("?")
		if err != nil {
			if errors.Is(err, io.EOF) {
				u.Newline()
				return nil
			}
			return err
		}

		switch question {
		case "":
			continue
		case ":quit", ":exit", ":q":
			return nil
		case ":history":
			printHistory(u, eng.History())
			continue
		}

		resp, err := ask(ctx, eng, u, question, nil)
		if err != nil {
			u.Error("%v", err)
			continue
		}

		if len(resp.Ambiguous) > 1 {
			chosen, err := u.SelectCampaigns(resp.Ambiguous)
			switch {
			case errors.Is(err, ui.ErrCancelled):
				u.Info("Cancelled.")
				continue
			case errors.Is(err, io.EOF):
				u.Newline()
				return nil
			case err != nil:
				return fmt.Errorf("select campaign: %w", err)
			}
			if resp, err = eng.ProcessSelection(ctx, question, chosen); err != nil {
				u.Error("%v", err)
				continue
			}
		}

		if err := printResponse(u, resp, opts); err != nil {
			return err
		}
	}
}
