package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	appLog "schedgrid/internal/log"
	"schedgrid/internal/model"
	"schedgrid/internal/resource"
	"schedgrid/internal/schedule"
)

// DefaultStep is the granularity the default window start is floored to.
const DefaultStep = 15 * time.Minute

// ResourceDTO describes one resource row.
type ResourceDTO struct {
	Tag      string `json:"tag"`
	Kind     string `json:"kind"`
	SubID    string `json:"sub_id"`
	Label    string `json:"label"`
	Title    string `json:"title"`
	CSSClass string `json:"css_class"`
}

// MetaDTO is the "meta" member of a schedule response.
type MetaDTO struct {
	Resources []ResourceDTO `json:"rsrcs"`
	MinTime   int64         `json:"min_time"`
	MaxTime   int64         `json:"max_time"`
	T1        int64         `json:"t1"`
	T2        int64         `json:"t2"`
	Inc       string        `json:"inc"`
}

// KindDTO is one kind section of the resources response.
type KindDTO struct {
	Kind      string        `json:"kind"`
	Provider  string        `json:"provider"`
	Resources []ResourceDTO `json:"resources"`
}

type resourcesResponse struct {
	Kinds       []KindDTO `json:"kinds"`
	VisibleTime int64     `json:"visible_time"`
	MinTime     int64     `json:"min_time"`
	MaxTime     int64     `json:"max_time"`
}

// ScheduleRequest holds the parsed query of a schedule request.
type ScheduleRequest struct {
	T1, T2 time.Time
	Inc    model.Inc
}

// DefaultWindow returns the window shown when the client gives no bounds:
// now floored to DefaultStep, spanning the configured visible time.
func DefaultWindow(cfg *schedule.Config, now time.Time) (time.Time, time.Time) {
	t1 := now.Truncate(DefaultStep)
	return t1, t1.Add(cfg.VisibleTime())
}

// ResolveWindow fills in missing bounds: with neither, the default window;
// with one, the other lies the visible time away.
func ResolveWindow(cfg *schedule.Config, now time.Time, t1 time.Time, hasT1 bool, t2 time.Time, hasT2 bool) (time.Time, time.Time) {
	switch {
	case !hasT1 && !hasT2:
		return DefaultWindow(cfg, now)
	case !hasT1:
		return t2.Add(-cfg.VisibleTime()), t2
	case !hasT2:
		return t1, t1.Add(cfg.VisibleTime())
	}
	return t1, t2
}

// ScheduleResponse shapes an aggregation result for JSON: one member per
// resource tag holding its blocks with epoch-second bounds merged into the
// payload, plus "meta".
func ScheduleResponse(cfg *schedule.Config, res schedule.Result, req ScheduleRequest) map[string]any {
	out := make(map[string]any, len(res)+1)
	for tag, blocks := range res.ByTag() {
		rows := make([]map[string]any, 0, len(blocks))
		for _, b := range blocks {
			row := make(map[string]any, len(b.Payload())+2)
			for k, v := range b.Payload() {
				row[k] = v
			}
			row["starttime"] = b.StartTime().Unix()
			row["endtime"] = b.EndTime().Unix()
			rows = append(rows, row)
		}
		out[tag] = rows
	}

	rsrcs := cfg.Resources()
	meta := MetaDTO{
		Resources: make([]ResourceDTO, 0, len(rsrcs)),
		MinTime:   cfg.TimeRangeMin().Unix(),
		MaxTime:   cfg.TimeRangeMax().Unix(),
		T1:        req.T1.Unix(),
		T2:        req.T2.Unix(),
		Inc:       string(req.Inc),
	}
	for _, r := range rsrcs {
		meta.Resources = append(meta.Resources, resourceDTO(r))
	}
	out["meta"] = meta
	return out
}

func resourceDTO(r *resource.Resource) ResourceDTO {
	return ResourceDTO{
		Tag:      r.Tag(),
		Kind:     r.Kind(),
		SubID:    r.SubID(),
		Label:    r.Label(),
		Title:    r.Title(),
		CSSClass: r.CSSClasses(),
	}
}

// parseEpoch reads an integer epoch-second query parameter.
func parseEpoch(r *http.Request, name string) (time.Time, bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: not an epoch second value: %q", name, v)
	}
	return time.Unix(n, 0).UTC(), true, nil
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// handleSchedule serves GET /api/schedule?t1=&t2=&inc=&reset=.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	inc, err := model.ParseInc(q.Get("inc"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t1, hasT1, err := parseEpoch(r, "t1")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t2, hasT2, err := parseEpoch(r, "t2")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := s.sessionConfig(w, r, parseBool(q.Get("reset")))
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	t1, t2 = ResolveWindow(cfg, s.now(), t1, hasT1, t2, hasT2)

	req := ScheduleRequest{T1: t1, T2: t2, Inc: inc}
	res, err := schedule.GetAllBlocks(r.Context(), cfg, t1, t2, inc)
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	appLog.Debug("schedule served", "t1", t1.Unix(), "t2", t2.Unix(), "inc", string(inc), "resources", len(res))
	writeJSON(w, http.StatusOK, ScheduleResponse(cfg, res, req))
}

// handleResources serves GET /api/resources.
func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.sessionConfig(w, r, parseBool(r.URL.Query().Get("reset")))
	if err != nil {
		writeScheduleError(w, err)
		return
	}

	groups := cfg.ResourcesByKind()
	resp := resourcesResponse{
		Kinds:       make([]KindDTO, 0, len(groups)),
		VisibleTime: int64(cfg.VisibleTime() / time.Second),
		MinTime:     cfg.TimeRangeMin().Unix(),
		MaxTime:     cfg.TimeRangeMax().Unix(),
	}
	for _, g := range groups {
		k := KindDTO{
			Kind:      g.Kind,
			Provider:  cfg.ProviderID(g.Kind),
			Resources: make([]ResourceDTO, 0, len(g.Resources)),
		}
		for _, rs := range g.Resources {
			k.Resources = append(k.Resources, resourceDTO(rs))
		}
		resp.Kinds = append(resp.Kinds, k)
	}
	writeJSON(w, http.StatusOK, resp)
}
