// Package cmd implements the paperctl CLI commands
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/internal/paperctl/config"
)

var (
	cfgFile string
	cfg     *config.Config
	debug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "paperctl",
	Short: "e-paper display control tool",
	Long: `paperctl is a command line tool for controlling the paperfeed e-paper
renderer. It talks to the renderer through its command mailbox, so it works
whether or not the web front end is running.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.paperctl/config.yaml)")
	rootCmd.PersistentFlags().String("mailbox", "", "command mailbox directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose output")

	// Add commands
	rootCmd.AddCommand(newDisplayCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newPlaylistCmd())
	rootCmd.AddCommand(newContentCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	// Allow command line flags to override config file
	if mailbox, _ := rootCmd.PersistentFlags().GetString("mailbox"); mailbox != "" {
		cfg.MailboxDir = mailbox
	}
}
