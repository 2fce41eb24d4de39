package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/internal/paperd/content"
)

// content commands work on the watched folder directly; the renderer's
// watcher reacts to any changes they make

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Manage the watched content folder",
	}

	cmd.AddCommand(
		newContentListCmd(),
		newContentRemoveCmd(),
		newContentCleanupCmd(),
	)
	return cmd
}

func newContentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List content items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			store, err := content.NewStore(cfg.ContentDir)
			if err != nil {
				return err
			}
			items, err := store.List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tSIZE\tMODIFIED")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					item.Name, item.Kind, item.Size,
					item.ModifiedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func newContentRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			store, err := content.NewStore(cfg.ContentDir)
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}

func newContentCleanupCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete all but the newest files",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			store, err := content.NewStore(cfg.ContentDir)
			if err != nil {
				return err
			}
			removed, err := store.Cleanup(keep)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d files\n", len(removed))
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 10, "number of newest files to retain")
	return cmd
}
