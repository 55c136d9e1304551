// Package session keeps one schedule configuration per browser session.
//
// Each entry stores the msgpack snapshot of its configuration plus, while the
// session is active, the live *schedule.Config. Idle live configs are dropped
// and rebuilt from the snapshot on the next request; idle entries are evicted.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "schedgrid/internal/log"
	"schedgrid/internal/schedule"
)

const (
	DefaultLiveTTL       = 10 * time.Minute
	DefaultSessionTTL    = 2 * time.Hour
	DefaultSweepInterval = time.Minute
)

// Options tunes a Store. Zero values select the defaults.
type Options struct {
	LiveTTL    time.Duration
	SessionTTL time.Duration
	Now        func() time.Time
}

type entry struct {
	snapshot   []byte
	live       *schedule.Config
	generation uint64
	lastSeen   time.Time
}

// Store is safe for concurrent use.
type Store struct {
	catalog    *schedule.Catalog
	liveTTL    time.Duration
	sessionTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewStore creates a Store that restores snapshots against catalog.
func NewStore(catalog *schedule.Catalog, opts Options) *Store {
	s := &Store{
		catalog:    catalog,
		liveTTL:    opts.LiveTTL,
		sessionTTL: opts.SessionTTL,
		now:        opts.Now,
		entries:    make(map[string]*entry),
	}
	if s.liveTTL <= 0 {
		s.liveTTL = DefaultLiveTTL
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = DefaultSessionTTL
	}
	if s.liveTTL > s.sessionTTL {
		s.liveTTL = s.sessionTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like a session id issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the configuration stored for id and the manifest generation it
// was loaded from. A dropped live config is restored from its snapshot.
func (s *Store) Get(id string) (*schedule.Config, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, 0, false
	}
	e.lastSeen = s.now()
	if e.live == nil {
		cfg, err := schedule.UnmarshalSnapshot(e.snapshot, s.catalog)
		if err != nil {
			appLog.Warn("session snapshot restore failed; dropping session", "session", id, "err", err)
			delete(s.entries, id)
			return nil, 0, false
		}
		e.live = cfg
		appLog.Debug("session config restored", "session", id)
	}
	return e.live, e.generation, true
}

// Put stores cfg for id, replacing any previous entry.
func (s *Store) Put(id string, cfg *schedule.Config, generation uint64) error {
	if cfg == nil {
		return errors.New("session: nil config")
	}
	data, err := schedule.MarshalSnapshot(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &entry{
		snapshot:   data,
		live:       cfg,
		generation: generation,
		lastSeen:   s.now(),
	}
	return nil
}

// Delete removes id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops live configs idle past the live TTL and evicts entries idle past
// the session TTL. It returns the number of evicted entries.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.entries {
		idle := now.Sub(e.lastSeen)
		switch {
		case idle > s.sessionTTL:
			delete(s.entries, id)
			evicted++
		case idle > s.liveTTL:
			e.live = nil
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				appLog.Debug("sessions evicted", "count", n, "remaining", s.Len())
			}
		}
	}
}
