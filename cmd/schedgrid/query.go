package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"schedgrid/internal/model"
	"schedgrid/internal/schedule"
	"schedgrid/internal/web"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Aggregate one window and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			t1Flag, _ := cmd.Flags().GetInt64("t1")
			t2Flag, _ := cmd.Flags().GetInt64("t2")
			incFlag, _ := cmd.Flags().GetString("inc")

			inc, err := model.ParseInc(incFlag)
			if err != nil {
				return err
			}

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

			t1, t2 := web.ResolveWindow(cfg, time.Now(),
				time.Unix(t1Flag, 0).UTC(), cmd.Flags().Changed("t1"),
				time.Unix(t2Flag, 0).UTC(), cmd.Flags().Changed("t2"))

			res, err := schedule.GetAllBlocks(ctx, cfg, t1, t2, inc)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(web.ScheduleResponse(cfg, res, web.ScheduleRequest{T1: t1, T2: t2, Inc: inc}))
		},
	}
	cmd.Flags().Int64("t1", 0, "window start (epoch seconds); default now floored to 15 minutes")
	cmd.Flags().Int64("t2", 0, "window end (epoch seconds); default t1 + visible time")
	cmd.Flags().String("inc", "", `incremental fetch side: "", "lo" or "hi"`)
	return cmd
}
