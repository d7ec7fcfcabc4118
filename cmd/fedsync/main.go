package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "fedsync",
		Short: "Federation data sync - rating site import orchestrator",
		Long: `Fedsync imports federation rating data into a local database.
It walks the source site phase by phase, checkpoints progress after
every batch, and survives pause, cancel and restart without losing work.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
