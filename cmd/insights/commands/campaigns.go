package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newCampaignsCommand(root *rootOptions) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "campaigns <question>",
		Short: "List the campaign identities a question matches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rt, err := root.openRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if refresh {
				if err := rt.Agent.RefreshCatalog(ctx); err != nil {
					return err
				}
			}
			ids, err := rt.Agent.GetMatchingCampaigns(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			u := root.terminal()
			if root.jsonMode {
				out := make([]string, len(ids))
				for i, id := range ids {
					out[i] = string(id)
				}
				return json.NewEncoder(u.Out()).Encode(out)
			}
			if len(ids) == 0 {
				u.Warning("No campaigns match.")
				return nil
			}
			rows := make([][]string, 0, len(ids))
			for i, id := range ids {
				rows = append(rows, []string{strconv.Itoa(i + 1), string(id)})
			}
			u.Table([]string{"#", "Campaign"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "reload campaign names from the store instead of the cache")
	return cmd
}
