package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"schedgrid/internal/config"
	appLog "schedgrid/internal/log"
	"schedgrid/internal/schedule"
	"schedgrid/internal/session"
)

// SessionCookie carries the session id of a browser client.
const SessionCookie = "schedgrid_session"

// Options wires the schedule core into a Server.
type Options struct {
	Catalog      *schedule.Catalog
	ManifestPath string
	Sessions     *session.Store
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server provides the HTTP API over the schedule aggregator.
type Server struct {
	cfg          *config.Config
	catalog      *schedule.Catalog
	manifestPath string
	sessions     *session.Store
	now          func() time.Time
	mux          *http.ServeMux

	// Current manifest. generation increments on every successful reload so
	// sessions built from an older manifest are rebuilt on their next request.
	manifestMu sync.RWMutex
	manifest   *schedule.Manifest
	generation uint64
}

// NewServer constructs a new Server. Call ReloadManifest before serving.
func NewServer(cfg *config.Config, opts Options) *Server {
	s := &Server{
		cfg:          cfg,
		catalog:      opts.Catalog,
		manifestPath: opts.ManifestPath,
		sessions:     opts.Sessions,
		now:          opts.Now,
		mux:          http.NewServeMux(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sessions == nil {
		s.sessions = session.NewStore(s.catalog, session.Options{SessionTTL: cfg.SessionTTL()})
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="schedgrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ReloadManifest reads the manifest file and validates it by loading a
// configuration. On failure the previous manifest stays in effect.
func (s *Server) ReloadManifest(ctx context.Context) error {
	m, err := schedule.ReadManifest(s.manifestPath)
	if err != nil {
		appLog.Error("manifest reload failed", err, "path", s.manifestPath)
		return err
	}
	if _, err := schedule.Load(ctx, m, s.catalog, schedule.LoadOptions{Now: s.now}); err != nil {
		appLog.Error("manifest rejected", err, "path", s.manifestPath)
		return err
	}

	s.manifestMu.Lock()
	s.manifest = m
	s.generation++
	gen := s.generation
	s.manifestMu.Unlock()

	appLog.Info("manifest loaded", "path", s.manifestPath, "generation", gen, "kinds", len(m.ResourceKinds))
	return nil
}

// Generation returns the number of successful manifest loads.
func (s *Server) Generation() uint64 {
	s.manifestMu.RLock()
	defer s.manifestMu.RUnlock()
	return s.generation
}

func (s *Server) currentManifest() (*schedule.Manifest, uint64) {
	s.manifestMu.RLock()
	defer s.manifestMu.RUnlock()
	return s.manifest, s.generation
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/schedule", s.handleSchedule)
	s.mux.HandleFunc("GET /api/resources", s.handleResources)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// sessionConfig returns the configuration bound to the caller's session,
// issuing a session cookie when the request has none. The configuration is
// rebuilt from the current manifest on reset or when the manifest changed.
func (s *Server) sessionConfig(w http.ResponseWriter, r *http.Request, reset bool) (*schedule.Config, error) {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil && session.ValidID(c.Value) {
		id = c.Value
	}
	if id == "" {
		id = session.NewID()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	m, gen := s.currentManifest()
	if m == nil {
		return nil, &schedule.ConfigError{Err: errors.New("no manifest loaded")}
	}
	if reset {
		s.sessions.Delete(id)
	} else if cfg, g, ok := s.sessions.Get(id); ok && g == gen {
		return cfg, nil
	}

	cfg, err := schedule.Load(r.Context(), m, s.catalog, schedule.LoadOptions{Now: s.now})
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Put(id, cfg, gen); err != nil {
		appLog.Warn("failed to store session", "session", id, "err", err)
	}
	appLog.Debug("session config loaded", "session", id, "generation", gen, "reset", reset)
	return cfg, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeScheduleError maps core errors onto HTTP statuses.
func writeScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrProvider):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, schedule.ErrConfiguration):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
