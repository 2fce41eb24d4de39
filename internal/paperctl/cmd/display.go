package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

func newDisplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "display [name]",
		Short: "Display a content item on the panel",
		Long: `Display a named content item. Without a name, the renderer shows its
current best candidate (the explicit selection, the last upload, or the
newest file). Naming an item makes it the sticky selection until cleared.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cmd := v1alpha1.NewCommand(v1alpha1.CommandDisplay)
			if len(args) == 1 {
				cmd.Target = args[0]
			}
			if _, err := send(cmd); err != nil {
				return err
			}
			if cmd.Target != "" {
				fmt.Printf("displaying %s\n", cmd.Target)
			} else {
				fmt.Println("displaying current best candidate")
			}
			return nil
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Clear and redraw the current content (anti-ghosting)",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if _, err := send(v1alpha1.NewCommand(v1alpha1.CommandRefresh)); err != nil {
				return err
			}
			fmt.Println("panel refreshed")
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Blank the panel",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cmd := v1alpha1.NewCommand(v1alpha1.CommandClear)
			cmd.Color = color
			if _, err := send(cmd); err != nil {
				return err
			}
			fmt.Println("panel cleared")
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "clear color (default white)")
	return cmd
}
