package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newChatCommand(root *rootOptions) *cobra.Command {
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively",
		Long: `Starts an interactive session. When a question matches several campaigns
a numbered list is offered, including an entry for all of them.
Type :history to list previous questions and :quit to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := root.openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			return chat(ctx, rt.Agent, root.terminal(), printOptions{showSQL: showSQL})
		},
	}

	cmd.Flags().BoolVar(&showSQL, "sql", false, "print the issued query after each report")
	return cmd
}
