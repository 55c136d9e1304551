package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schedgrid/internal/config"
	"schedgrid/internal/ics"
	appLog "schedgrid/internal/log"
	"schedgrid/internal/provider/calendar"
	"schedgrid/internal/provider/rooms"
	"schedgrid/internal/provider/timelabel"
	"schedgrid/internal/schedule"
)

// Provider ids manifests refer to in ResourceKinds.
const (
	ProviderTimeLabelHour = "TimeLabelHour"
	ProviderTimeLabelDay  = "TimeLabelDay"
	ProviderCalendar      = "CalendarEvent"
	ProviderMeeting       = "Meeting"
)

// app holds everything built from the config file.
type app struct {
	configPath string
	cfg        *config.Config
	loc        *time.Location

	catalog  *schedule.Catalog
	calendar *calendar.Provider
	store    *rooms.Store
}

func loadApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	// An explicit --log-level wins over the file.
	if levelFlag, _ := cmd.Flags().GetString("log-level"); levelFlag == "" {
		lvl, err := appLog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("config log_level: %w", err)
		}
		appLog.SetLevel(lvl)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("config timezone: %w", err)
	}

	a := &app{configPath: configPath, cfg: cfg, loc: loc}
	if err := a.buildCatalog(); err != nil {
		a.Close()
		return nil, err
	}

	appLog.Info("effective config",
		"config_path", configPath,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"manifest", a.manifestPath(),
		"refresh", cfg.RefreshCron,
		"ics_count", len(cfg.ICS),
		"database", cfg.Database,
		"providers", a.catalog.ProviderIDs(),
	)
	return a, nil
}

func (a *app) buildCatalog() error {
	a.catalog = schedule.NewCatalog()

	hours, err := timelabel.New(timelabel.UnitHour, a.loc)
	if err != nil {
		return err
	}
	days, err := timelabel.New(timelabel.UnitDay, a.loc)
	if err != nil {
		return err
	}
	a.catalog.RegisterProvider(ProviderTimeLabelHour, hours)
	a.catalog.RegisterProvider(ProviderTimeLabelDay, days)

	sources := make([]ics.Source, 0, len(a.cfg.ICS))
	for _, c := range a.cfg.ICS {
		sources = append(sources, ics.Source{ID: c.ID, Name: c.Name, URL: c.URL})
	}
	fetcher := ics.NewFetcher(ics.FetcherOptions{
		CacheDir:  a.cfg.CacheDir,
		PerMinute: a.cfg.FetchRatePerMinute,
	})
	a.calendar = calendar.New(fetcher, sources, calendar.Options{
		Location:    a.loc,
		RefreshSpec: a.cfg.RefreshCron,
	})
	a.catalog.RegisterProvider(ProviderCalendar, a.calendar)

	if a.cfg.Database != "" {
		store, err := rooms.Open(a.cfg.Database)
		if err != nil {
			return fmt.Errorf("open rooms database: %w", err)
		}
		a.store = store
		a.catalog.RegisterProvider(ProviderMeeting, rooms.NewProvider(store))
	}
	return nil
}

func (a *app) manifestPath() string {
	return a.cfg.ManifestPath(a.configPath)
}

// loadSchedule reads the manifest and builds a schedule configuration.
func (a *app) loadSchedule(ctx context.Context) (*schedule.Config, error) {
	m, err := schedule.ReadManifest(a.manifestPath())
	if err != nil {
		return nil, err
	}
	return schedule.Load(ctx, m, a.catalog, schedule.LoadOptions{})
}

func (a *app) Close() {
	if a.calendar != nil {
		a.calendar.Stop()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			appLog.Warn("close rooms database", "err", err)
		}
	}
}
