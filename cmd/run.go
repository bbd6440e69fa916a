package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <taskID>",
	Short: "Run a single queued task to completion and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q: %w", args[0], err)
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		return a.manager.RunTask(context.Background(), taskID)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
