package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trackvault",
	Short: "TrackVault is a self-hosted media acquisition manager.",
	Long:  `TrackVault resolves, downloads, transcodes, deduplicates and files audio from submitted links into a managed library.`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
