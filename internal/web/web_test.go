package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedgrid/internal/config"
	"schedgrid/internal/model"
	"schedgrid/internal/resource"
	"schedgrid/internal/schedule"
)

var fixedNow = time.Date(2026, 10, 17, 12, 7, 0, 0, time.UTC)

const testManifest = `
ResourceKinds:
  room: Rooms
Resources:
  - room a b
visibleTime: 2 hours
timeRangeMin: now - 1 day
timeRangeMax: now + 1 day
`

type fakeRooms struct {
	fail         atomic.Bool
	failDecorate atomic.Bool
	calls atomic.Int32
	last  atomic.Value // [2]time.Time
}

func (f *fakeRooms) GetAllBlocks(_ context.Context, subIDs []string, t1, t2 time.Time, _ model.Inc) (map[string][]*model.Block, error) {
	f.calls.Add(1)
	f.last.Store([2]time.Time{t1, t2})
	if f.fail.Load() {
		return nil, errors.New("backend down")
	}
	out := map[string][]*model.Block{}
	for _, id := range subIDs {
		if id != "a" {
			continue
		}
		b := model.NewBlock(t1.Add(30*time.Minute), t1.Add(90*time.Minute))
		b.Payload["title"] = "standup"
		out[id] = []*model.Block{b}
	}
	return out, nil
}

func (f *fakeRooms) Decorate(_ context.Context, r *resource.Resource) error {
	if f.failDecorate.Load() {
		return errors.New("room directory unavailable")
	}
	r.SetLabel("Room " + r.SubID())
	return nil
}

type fixture struct {
	srv      *Server
	handler  http.Handler
	rooms    *fakeRooms
	manifest string
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.yml")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o600))

	rooms := &fakeRooms{}
	cat := schedule.NewCatalog()
	cat.RegisterProvider("Rooms", rooms)

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	srv := NewServer(cfg, Options{
		Catalog:      cat,
		ManifestPath: path,
		Now:          func() time.Time { return fixedNow },
	})
	require.NoError(t, srv.ReloadManifest(context.Background()))
	return &fixture{srv: srv, handler: srv.Handler(), rooms: rooms, manifest: path}
}

func (f *fixture) get(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookie)
	return nil
}

type scheduleBody struct {
	Meta  MetaDTO          `json:"meta"`
	RoomA []map[string]any `json:"room_a"`
	RoomB []map[string]any `json:"room_b"`
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestSchedule_DefaultWindow(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/api/schedule")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body scheduleBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	t1 := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, t1.Unix(), body.Meta.T1)
	assert.Equal(t, t1.Add(2*time.Hour).Unix(), body.Meta.T2)
	assert.Equal(t, fixedNow.Add(-24*time.Hour).Unix(), body.Meta.MinTime)
	assert.Equal(t, fixedNow.Add(24*time.Hour).Unix(), body.Meta.MaxTime)
	assert.Equal(t, "", body.Meta.Inc)

	require.Len(t, body.Meta.Resources, 2)
	assert.Equal(t, ResourceDTO{
		Tag: "room_a", Kind: "room", SubID: "a",
		Label: "Room a", Title: "room_a", CSSClass: "rsrcRow roomrow room_arow",
	}, body.Meta.Resources[0])

	require.Len(t, body.RoomA, 1)
	assert.Equal(t, "standup", body.RoomA[0]["title"])
	assert.EqualValues(t, t1.Add(30*time.Minute).Unix(), body.RoomA[0]["starttime"])
	assert.EqualValues(t, t1.Add(90*time.Minute).Unix(), body.RoomA[0]["endtime"])
	assert.Nil(t, body.RoomB)
}

func TestSchedule_ExplicitWindowAndInc(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/api/schedule?t1=1000&t2=5000&inc=hi")
	require.Equal(t, http.StatusOK, rec.Code)

	var body scheduleBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1000), body.Meta.T1)
	assert.Equal(t, int64(5000), body.Meta.T2)
	assert.Equal(t, "hi", body.Meta.Inc)

	got := f.rooms.last.Load().([2]time.Time)
	assert.Equal(t, int64(1000), got[0].Unix())
	assert.Equal(t, int64(5000), got[1].Unix())

	// Only t1: t2 follows the visible time.
	rec = f.get(t, "/api/schedule?t1=1000")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1000+7200), body.Meta.T2)

	// Only t2: t1 lies the visible time before it.
	rec = f.get(t, "/api/schedule?t2=9000")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(9000-7200), body.Meta.T1)
	assert.Equal(t, int64(9000), body.Meta.T2)
}

func TestSchedule_BadParams(t *testing.T) {
	f := newFixture(t, nil)
	for _, target := range []string{
		"/api/schedule?inc=sideways",
		"/api/schedule?t1=yesterday",
		"/api/schedule?t2=1.5",
	} {
		rec := f.get(t, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Zero(t, f.rooms.calls.Load())
}

func TestSchedule_ProviderFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.rooms.fail.Store(true)
	rec := f.get(t, "/api/schedule")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "backend down")
}

func TestSchedule_NoManifest(t *testing.T) {
	cat := schedule.NewCatalog()
	srv := NewServer(config.DefaultConfig(), Options{Catalog: cat, ManifestPath: "/nonexistent/schedule.yml"})
	assert.Error(t, srv.ReloadManifest(context.Background()))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSession_ReusedUntilManifestChanges(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get(t, "/api/schedule")
	cookie := sessionCookie(t, rec)
	first, _, ok := f.srv.sessions.Get(cookie.Value)
	require.True(t, ok)

	rec = f.get(t, "/api/schedule", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	same, _, _ := f.srv.sessions.Get(cookie.Value)
	assert.Same(t, first, same)

	// reset forces a rebuild.
	f.get(t, "/api/schedule?reset=1", cookie)
	reset, _, _ := f.srv.sessions.Get(cookie.Value)
	assert.NotSame(t, first, reset)

	// A reset whose reload fails leaves no stale entry behind.
	f.rooms.failDecorate.Store(true)
	rec = f.get(t, "/api/schedule?reset=1", cookie)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	_, _, ok = f.srv.sessions.Get(cookie.Value)
	assert.False(t, ok)
	f.rooms.failDecorate.Store(false)

	// A reloaded manifest invalidates the session config.
	require.NoError(t, os.WriteFile(f.manifest, []byte(`
ResourceKinds:
  room: Rooms
Resources:
  - room c
`), 0o600))
	require.NoError(t, f.srv.ReloadManifest(context.Background()))
	assert.Equal(t, uint64(2), f.srv.Generation())

	rec = f.get(t, "/api/schedule", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var body scheduleBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Meta.Resources, 1)
	assert.Equal(t, "room_c", body.Meta.Resources[0].Tag)
}

func TestReloadManifest_KeepsPreviousOnError(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.WriteFile(f.manifest, []byte(`
ResourceKinds:
  room: Missing
Resources:
  - room a
`), 0o600))

	err := f.srv.ReloadManifest(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, schedule.ErrConfiguration))
	assert.Equal(t, uint64(1), f.srv.Generation())

	rec := f.get(t, "/api/schedule")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResources(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/api/resources")
	require.Equal(t, http.StatusOK, rec.Code)

	var body resourcesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7200), body.VisibleTime)
	require.Len(t, body.Kinds, 1)
	assert.Equal(t, "room", body.Kinds[0].Kind)
	assert.Equal(t, "Rooms", body.Kinds[0].Provider)
	require.Len(t, body.Kinds[0].Resources, 2)
	assert.Equal(t, "room_b", body.Kinds[0].Resources[1].Tag)
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	f := newFixture(t, cfg)

	assert.Equal(t, http.StatusOK, f.get(t, "/health").Code)

	rec := f.get(t, "/api/schedule")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	req.SetBasicAuth("admin", "secret")
	ok := httptest.NewRecorder()
	f.handler.ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	req.SetBasicAuth("admin", "wrong")
	bad := httptest.NewRecorder()
	f.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "abcd"))
}
