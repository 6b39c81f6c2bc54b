package main

import (
	"os"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Running without a subcommand serves
// the web application.
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "studiogear",
		Short: "Studio gear catalogue server and admin tools",
		Long: `studiogear serves the studio gear catalogue and its admin API.

Subcommands run one-off jobs against the same database:
  import        - Bulk import gear from a text file
  quota         - Show today's image search allowance
  fetch-images  - Fetch images for gear that has none`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newImportCmd(&configPath))
	rootCmd.AddCommand(newQuotaCmd(&configPath))
	rootCmd.AddCommand(newFetchImagesCmd(&configPath))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
