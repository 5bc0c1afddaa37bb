package ui

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
)

func newTestUI(input string) (*UI, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return New(strings.NewReader(input), &out, &errOut, true, false), &out, &errOut
}

func TestSelectCampaigns(t *testing.T) {
	ids := []nlq.CampaignIdentity{"BETA CARDS", "BETA CREDITS"}

	tests := []struct {
		name  string
		input string
		want  []nlq.CampaignIdentity
		err   error
	}{
		{"first", "1\n", ids[:1], nil},
		{"second", "2\n", ids[1:], nil},
		{"all", "3\n", ids, nil},
		{"cancel", "0\n", nil, ErrCancelled},
		{"retry after invalid", "x\n9\n2\n", ids[1:], nil},
		{"eof", "", nil, io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, out, _ := newTestUI(tt.input)
			got, err := u.SelectCampaigns(ids)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), AllMatchingLabel)
			assert.Contains(t, out.String(), "BETA CREDITS")
		})
	}
}

func TestSelectCampaigns_InvalidChoiceIsReported(t *testing.T) {
	u, _, errOut := newTestUI("7\n1\n")
	_, err := u.SelectCampaigns([]nlq.CampaignIdentity{"A", "B"})
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "Choice must be between 0 and 3")
}

func TestPrompt_LastLineWithoutNewline(t *testing.T) {
	u, _, _ := newTestUI("  hello  ")
	got, err := u.Prompt("Question")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = u.Prompt("Question")
	assert.ErrorIs(t, err, io.EOF)
}

func TestMessages(t *testing.T) {
	u, out, errOut := newTestUI("")
	u.Success("saved %d", 2)
	u.Warning("careful")
	u.Error("failed")
	u.Debug("hidden")
	u.Print("# Report")

	assert.Equal(t, "✓ saved 2\n⚠ careful\n# Report\n", out.String())
	assert.Equal(t, "✗ failed\n", errOut.String())
}
