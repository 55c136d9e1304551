// Package calendar serves use-blocks from ICS feeds. Each configured feed is
// one resource; its sub-id is the feed id.
package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"schedgrid/internal/ics"
	appLog "schedgrid/internal/log"
	"schedgrid/internal/model"
	"schedgrid/internal/provider"
	"schedgrid/internal/resource"
)

// Fetcher is the part of ics.Fetcher the provider needs.
type Fetcher interface {
	FetchOne(ctx context.Context, src ics.Source) (ics.FetchResult, error)
}

// Options configures New.
type Options struct {
	// Location is the display zone for expanded occurrences.
	Location *time.Location
	// RefreshSpec is a cron spec for refreshing all feeds, e.g. "*/15 * * * *".
	// Empty disables periodic refresh; feeds are then fetched on first use.
	RefreshSpec string
	// MaxOccurrencesPerEvent caps RRULE expansion per event.
	MaxOccurrencesPerEvent int
}

type feedState struct {
	events    []ics.ParsedEvent
	updatedAt time.Time
}

// Provider answers queries from parsed ICS feeds kept in memory.
type Provider struct {
	fetcher Fetcher
	opts    Options
	sources map[string]ics.Source

	mu    sync.RWMutex
	feeds map[string]*feedState

	cron *cron.Cron
}

func New(fetcher Fetcher, sources []ics.Source, opts Options) *Provider {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	p := &Provider{
		fetcher: fetcher,
		opts:    opts,
		sources: make(map[string]ics.Source, len(sources)),
		feeds:   make(map[string]*feedState),
	}
	for _, s := range sources {
		p.sources[s.ID] = s
	}
	return p
}

// Start schedules periodic refresh. It returns an error for an invalid cron
// schedule; call Stop to end it.
func (p *Provider) Start(ctx context.Context) error {
	if p.opts.RefreshSpec == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(p.opts.RefreshSpec, func() { p.RefreshAll(ctx) }); err != nil {
		return fmt.Errorf("calendar: refresh spec %q: %w", p.opts.RefreshSpec, err)
	}
	p.cron = c
	c.Start()
	appLog.Info("calendar refresh scheduled", "spec", p.opts.RefreshSpec, "feeds", len(p.sources))
	return nil
}

// Stop ends the refresh schedule and waits for a running refresh.
func (p *Provider) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}

// RefreshAll re-fetches every configured feed. Failures are logged; a feed
// keeps its previous events until a refresh succeeds.
func (p *Provider) RefreshAll(ctx context.Context) {
	for id := range p.sources {
		st, err := p.refresh(ctx, id)
		if err != nil {
			if last, ok := p.UpdatedAt(id); ok {
				appLog.Error("calendar refresh failed; serving previous events", err,
					"id", id, "updated_at", last.Format(time.RFC3339), "age", time.Since(last).Round(time.Second))
			} else {
				appLog.Error("calendar refresh failed", err, "id", id)
			}
			continue
		}
		appLog.Debug("calendar feed refreshed", "id", id, "events", len(st.events))
	}
}

// UpdatedAt reports when feed id last refreshed successfully.
func (p *Provider) UpdatedAt(id string) (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.feeds[id]
	if !ok {
		return time.Time{}, false
	}
	return st.updatedAt, true
}

func (p *Provider) refresh(ctx context.Context, id string) (*feedState, error) {
	src := p.sources[id]
	res, err := p.fetcher.FetchOne(ctx, src)
	if err != nil {
		return nil, err
	}
	events, err := ics.ParseICS(src, res.Body)
	if err != nil {
		return nil, err
	}
	st := &feedState{events: events, updatedAt: time.Now()}

	p.mu.Lock()
	p.feeds[id] = st
	p.mu.Unlock()
	return st, nil
}

func (p *Provider) feed(ctx context.Context, id string) (*feedState, error) {
	p.mu.RLock()
	st, ok := p.feeds[id]
	p.mu.RUnlock()
	if ok {
		return st, nil
	}
	return p.refresh(ctx, id)
}

func (p *Provider) GetAllBlocks(ctx context.Context, subIDs []string, t1, t2 time.Time, inc model.Inc) (map[string][]*model.Block, error) {
	out := make(map[string][]*model.Block, len(subIDs))
	for _, id := range subIDs {
		if _, ok := p.sources[id]; !ok {
			appLog.Debug("calendar: no feed for sub-id", "sub_id", id)
			continue
		}
		st, err := p.feed(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("calendar: feed %q: %w", id, err)
		}
		res, err := ics.ExpandOccurrences(st.events, ics.ExpandConfig{
			DisplayLocation:        p.opts.Location,
			RangeStart:             t1,
			RangeEnd:               t2,
			MaxOccurrencesPerEvent: p.opts.MaxOccurrencesPerEvent,
		})
		if err != nil {
			return nil, fmt.Errorf("calendar: feed %q: %w", id, err)
		}
		blocks := make([]*model.Block, 0, len(res.Occurrences))
		for _, occ := range res.Occurrences {
			blocks = append(blocks, occ.Block())
		}
		out[id] = provider.Window(blocks, t1, t2, inc)
	}
	return out, nil
}

// Decorate labels a feed resource with the feed's display name.
func (p *Provider) Decorate(_ context.Context, r *resource.Resource) error {
	src, ok := p.sources[r.SubID()]
	if !ok {
		return fmt.Errorf("calendar: no feed configured for %q", r.SubID())
	}
	if src.Name != "" {
		r.SetLabel(src.Name)
		r.SetTitle(src.Name)
	}
	return nil
}
