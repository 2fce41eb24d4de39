package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

func newPlaylistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlist",
		Short: "Manage content rotations",
	}

	cmd.AddCommand(
		newPlaylistListCmd(),
		newPlaylistCreateCmd(),
		newPlaylistDeleteCmd(),
		newPlaylistRenameCmd(),
		newPlaylistItemsCmd(),
		newPlaylistRandomizeCmd(),
		newPlaylistActivateCmd(),
		newPlaylistAdvanceCmd(),
		newPlaylistResumeCmd(),
	)
	return cmd
}

func newPlaylistListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all playlists and the active rotation",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			resp, err := send(v1alpha1.NewCommand(v1alpha1.CommandPlaylistList))
			if err != nil {
				return err
			}
			return printPayload(resp)
		},
	}
}

func newPlaylistCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistCreate)
			cmd.Playlist = &v1alpha1.PlaylistArgs{Name: args[0]}
			if _, err := send(cmd); err != nil {
				return err
			}
			fmt.Printf("playlist %q created\n", args[0])
			return nil
		},
	}
}

func newPlaylistDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a playlist (the default playlist is protected)",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistDelete)
			cmd.Playlist = &v1alpha1.PlaylistArgs{Name: args[0]}
			if _, err := send(cmd); err != nil {
				return err
			}
			fmt.Printf("playlist %q deleted\n", args[0])
			return nil
		},
	}
}

func newPlaylistRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a playlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistRename)
			cmd.Playlist = &v1alpha1.PlaylistArgs{Name: args[0], NewName: args[1]}
			if _, err := send(cmd); err != nil {
				return err
			}
			fmt.Printf("playlist %q renamed to %q\n", args[0], args[1])
			return nil
		},
	}
}

func newPlaylistItemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "items <name> [item...]",
		Short: "Replace a playlist's ordered items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistSetItems)
			cmd.Playlist = &v1alpha1.PlaylistArgs{Name: args[0], Items: args[1:]}
			if _, err := send(cmd); err != nil {
				return err
			}
			fmt.Printf("playlist %q now has %d items\n", args[0], len(args)-1)
			return nil
		},
	}
}

func newPlaylistRandomizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "randomize <name> <true|false>",
		Short: "Toggle randomized advancement",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			randomize, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid boolean %q", args[1])
			}
			cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistRandomize)
			cmd.Playlist = &v1alpha1.PlaylistArgs{Name: args[0], Randomize: randomize}
			if _, err := send(cmd); err != nil {
				return err
			}
			fmt.Printf("playlist %q randomize set to %v\n", args[0], randomize)
			return nil
		},
	}
}

func newPlaylistActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <name>",
		Short: "Make a playlist the active rotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistActivate)
			cmd.Playlist = &v1alpha1.PlaylistArgs{Name: args[0]}
			if _, err := send(cmd); err != nil {
				return err
			}
			fmt.Printf("playlist %q activated\n", args[0])
			return nil
		},
	}
}

func newPlaylistAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Step the active rotation forward",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if _, err := send(v1alpha1.NewCommand(v1alpha1.CommandPlaylistAdvance)); err != nil {
				return err
			}
			fmt.Println("rotation advanced")
			return nil
		},
	}
}

func newPlaylistResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "End a live override and resume the rotation",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if _, err := send(v1alpha1.NewCommand(v1alpha1.CommandPlaylistResume)); err != nil {
				return err
			}
			fmt.Println("rotation resumed")
			return nil
		},
	}
}
