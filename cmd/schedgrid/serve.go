package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"schedgrid/internal/config"
	appLog "schedgrid/internal/log"
	"schedgrid/internal/session"
	"schedgrid/internal/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				a.cfg.Listen = listen
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, a)
		},
	}
	cmd.Flags().String("listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	appLog.Info("schedgrid starting", "version", version, "pid", os.Getpid())

	if err := a.calendar.Start(ctx); err != nil {
		return err
	}
	go a.calendar.RefreshAll(ctx)

	sessions := session.NewStore(a.catalog, session.Options{SessionTTL: a.cfg.SessionTTL()})
	go sessions.Run(ctx, session.DefaultSweepInterval)

	srv := web.NewServer(a.cfg, web.Options{
		Catalog:      a.catalog,
		ManifestPath: a.manifestPath(),
		Sessions:     sessions,
	})
	if err := srv.ReloadManifest(ctx); err != nil {
		return err
	}

	if err := config.WatchFile(ctx, a.manifestPath(), func() {
		// Errors are logged; the previous manifest stays active.
		_ = srv.ReloadManifest(ctx)
	}); err != nil {
		appLog.Warn("manifest watcher disabled", "err", err)
	}

	err := srv.ListenAndServe(ctx)
	appLog.Info("schedgrid exiting")
	return err
}
