package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/campaign-insights/cmd/insights/ui"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/agent"
	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/storage/storagetest"
)

func newEngine(t *testing.T) *agent.Agent {
	t.Helper()
	a, err := agent.New(context.Background(), agent.Options{Store: storagetest.OpenSQLite(t)})
	require.NoError(t, err)
	return a
}

func newUI(input string) (*ui.UI, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return ui.New(strings.NewReader(input), &out, &errOut, true, false), &out
}

func TestChat_SelectionAndHistory(t *testing.T) {
	eng := newEngine(t)
	u, out := newUI("report for campaign BETA\n2\n:history\n:quit\n")

	require.NoError(t, chat(context.Background(), eng, u, printOptions{}))

	text := out.String()
	assert.Contains(t, text, ui.AllMatchingLabel)
	assert.Contains(t, text, "# Campaign report: report for campaign BETA")
	assert.Contains(t, text, "Campaign: **BETA CREDITS**")

	h := eng.History()
	require.Len(t, h, 2, "the unnarrowed answer and the selection are both logged")
	assert.Equal(t, "report for campaign BETA", h[1].Question)
	assert.Contains(t, text, "Question")
}

func TestChat_AllMatchingCampaigns(t *testing.T) {
	eng := newEngine(t)
	u, out := newUI("report for campaign BETA\n3\n")

	require.NoError(t, chat(context.Background(), eng, u, printOptions{}))
	assert.NotContains(t, out.String(), "Campaign: **")
	assert.Contains(t, out.String(), "BETA CARDS")
	assert.Contains(t, out.String(), "BETA CREDITS")
}

func TestChat_CancelSelection(t *testing.T) {
	eng := newEngine(t)
	u, out := newUI("report for campaign BETA\n0\nshow overall statistics\n")

	require.NoError(t, chat(context.Background(), eng, u, printOptions{}))
	assert.Contains(t, out.String(), "Cancelled.")
	assert.Contains(t, out.String(), "# Overall statistics")
	assert.NotContains(t, out.String(), "# Campaign report")
}

func TestChat_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	u, _ := newUI("show overall statistics\n")
	assert.ErrorIs(t, chat(ctx, newEngine(t), u, printOptions{}), context.Canceled)
}

func TestAsk_WithCampaignFlag(t *testing.T) {
	eng := newEngine(t)
	u, _ := newUI("")

	resp, err := ask(context.Background(), eng, u, "report for campaign BETA", []string{" BETA CARDS "})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Table.Len())
	assert.Empty(t, resp.Ambiguous)
}

func TestPrintResponse(t *testing.T) {
	eng := newEngine(t)
	resp, err := eng.ProcessQuestion(context.Background(), "show overall statistics")
	require.NoError(t, err)

	t.Run("markdown with sql", func(t *testing.T) {
		u, out := newUI("")
		require.NoError(t, printResponse(u, resp, printOptions{showSQL: true}))
		assert.Contains(t, out.String(), "# Overall statistics")
		assert.Contains(t, out.String(), resp.Query.Inline)
	})

	t.Run("json", func(t *testing.T) {
		u, out := newUI("")
		require.NoError(t, printResponse(u, resp, printOptions{jsonMode: true}))
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		assert.Equal(t, "aggregate", decoded["intent"])
		assert.Equal(t, resp.Report, decoded["report"])
	})
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "insights "+Version+"\n", out.String())
}
