package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cadbridge/internal/actions"
)

// ActionInfo is one catalog entry in command output.
type ActionInfo struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// NewActionsCommand creates the actions command.
func NewActionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "actions",
		Short:         "List the action catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := actions.Catalog()
			infos := make([]ActionInfo, len(catalog))
			for i, a := range catalog {
				infos[i] = ActionInfo{Name: a.Name, Summary: a.Summary}
			}

			if rootOpts.Format == "json" {
				return rootOpts.formatter(cmd).OK(infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\n", info.Name, info.Summary)
			}
			return tw.Flush()
		},
	}
}
