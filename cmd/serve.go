package cmd

import (
	"context"

	"TrackVault/logger"
	"TrackVault/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the acquisition worker and its trigger endpoints",
	Long:  `Starts the task runner, drains any tasks left queued from a previous shutdown, and serves the internal HTTP trigger endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		// Pick up work stranded by a previous shutdown before accepting triggers.
		a.scheduler.Drain(context.Background())

		logger.Info("trackvault serving", logger.String("addr", a.cfg.ListenAddr))
		return server.New(a.cfg, a.scheduler).Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
