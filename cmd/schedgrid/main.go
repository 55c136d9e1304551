// Command schedgrid serves a resource timetable aggregated from pluggable
// providers (time labels, ICS calendars, SQLite-backed room bookings).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appLog "schedgrid/internal/log"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		appLog.Error("command failed", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "schedgrid",
		Short:         "Resource timetable service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			levelFlag, _ := cmd.Flags().GetString("log-level")
			if levelFlag == "" {
				return nil
			}
			lvl, err := appLog.ParseLevel(levelFlag)
			if err != nil {
				return err
			}
			appLog.SetLevel(lvl)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "/etc/schedgrid/config.yaml", "path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level override: debug, info, warn, error")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(newServeCmd(), newQueryCmd(), newCheckCmd(), newRoomsCmd(), versionCmd)
	return rootCmd
}
