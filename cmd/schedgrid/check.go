package main

import (
	"context"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the manifest and print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := a.loadSchedule(ctx)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			enc.SetIndent(2)
			return enc.Encode(cfg.Snapshot())
		},
	}
}
