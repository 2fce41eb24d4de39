package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/mailbox"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report renderer state",
		Long: `Query the renderer for its panel, current content, and schedule state.
The query is read-only, so it is retried once on a response timeout; display
and clear commands are never retried because their outcome is unknown.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(v1alpha1.NewCommand(v1alpha1.CommandQueryInfo))
			if errors.Is(err, mailbox.ErrResponseTimeout) {
				if debug {
					fmt.Println("query timed out, retrying once")
				}
				resp, err = send(v1alpha1.NewCommand(v1alpha1.CommandQueryInfo))
			}
			if err != nil {
				return err
			}
			return printPayload(resp)
		},
	}
}
