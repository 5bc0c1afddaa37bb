package ui

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spherical-ai/spherical/libs/campaign-insights/internal/nlq"
)

// ErrCancelled is returned when the user backs out of a prompt.
var ErrCancelled = errors.New("cancelled")

// AllMatchingLabel is the extra entry offered after the matched campaigns.
const AllMatchingLabel = "All matching campaigns"

// Prompt asks the user for input with a prompt message. A final line
// without a newline is returned before io.EOF is reported.
func (u *UI) Prompt(message string) (string, error) {
	fmt.Fprintf(u.out, "%s: ", message)
	input, err := u.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(input) != "" {
			return strings.TrimSpace(input), nil
		}
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// PromptInt asks the user for an integer input.
func (u *UI) PromptInt(message string) (int, error) {
	input, err := u.Prompt(message)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %q", input)
	}
	return value, nil
}

// SelectCampaigns lists ids and asks for one of them or all of them.
// Invalid answers are asked again; 0 cancels.
func (u *UI) SelectCampaigns(ids []nlq.CampaignIdentity) ([]nlq.CampaignIdentity, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no campaigns to select from")
	}

	u.Newline()
	u.Info("Several campaigns match your question:")
	rows := make([][]string, 0, len(ids)+1)
	for i, id := range ids {
		rows = append(rows, []string{strconv.Itoa(i + 1), string(id)})
	}
	rows = append(rows, []string{strconv.Itoa(len(ids) + 1), AllMatchingLabel})
	u.Table([]string{"#", "Campaign"}, rows)

	for {
		choice, err := u.PromptInt(fmt.Sprintf("Select a campaign (1-%d) or '0' to go back", len(ids)+1))
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, err
			}
			u.Error("%v", err)
			continue
		}
		switch {
		case choice == 0:
			return nil, ErrCancelled
		case choice >= 1 && choice <= len(ids):
			return []nlq.CampaignIdentity{ids[choice-1]}, nil
		case choice == len(ids)+1:
			return ids, nil
		default:
			u.Error("Choice must be between 0 and %d", len(ids)+1)
		}
	}
}
