package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCommand(root *rootOptions) *cobra.Command {
	var (
		campaigns []string
		showSQL   bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print the report",
		Example: `  insights ask "show overall statistics"
  insights ask "report for campaign BETA" --campaign "BETA CARDS"
  insights ask "воронка по источникам" --sql`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rt, err := root.openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			u := root.terminal()
			resp, err := ask(ctx, rt.Agent, u, strings.Join(args, " "), campaigns)
			if err != nil {
				return err
			}
			if err := printResponse(u, resp, printOptions{showSQL: showSQL, jsonMode: root.jsonMode}); err != nil {
				return err
			}
			if len(resp.Ambiguous) > 1 && !root.jsonMode {
				u.Warning("Several campaigns matched. Narrow the report with --campaign:")
				for _, id := range resp.Ambiguous {
					u.Step("%s", id)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&campaigns, "campaign", "C", nil, "restrict to a campaign identity (repeatable)")
	cmd.Flags().BoolVar(&showSQL, "sql", false, "print the issued query")
	return cmd
}
