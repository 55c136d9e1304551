package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "schedgrid/internal/log"
	"schedgrid/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the zone occurrences are converted to; time.Local if nil.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the occurrences that are produced.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE expansion.
	MaxOccurrencesPerEvent int
}

// ExpandResult is the list of occurrences, sorted by start, plus the UIDs
// whose expansion hit the cap.
type ExpandResult struct {
	Occurrences     []model.Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed events into concrete occurrences inside the
// configured range. It handles single events, RRULE recurrences, EXDATE
// exclusions, RECURRENCE-ID overrides and all-day events.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	uids := make([]string, 0)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	for _, uid := range uids {
		truncated := false
		for _, ev := range bases[uid] {
			occ, hitCap := expandEvent(ev, overrides[uid], cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Warn("ics expand truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		return result.Occurrences[i].Start.Before(result.Occurrences[j].Start)
	})
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool) {
	if ev.RawRRule == "" {
		if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
			return nil, false
		}
		return []model.Occurrence{occurrenceAt(ev, overrides, ev.Start, ev.End, cfg.DisplayLocation)}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Look back by one event duration so instances that started before the
	// range but are still running are included.
	dur := ev.End.Sub(ev.Start)
	if ev.AllDay {
		dur = 24 * time.Hour
	}
	loc := ev.Start.Location()
	starts := set.Between(cfg.RangeStart.Add(-dur).In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		if ev.AllDay {
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
		}
		e := s.Add(dur)
		if !overlaps(s, e, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, occurrenceAt(ev, overrides, s, e, cfg.DisplayLocation))
	}
	return out, hitCap
}

// occurrenceAt builds the occurrence starting at start, replaced by an
// override whose RECURRENCE-ID equals start.
func occurrenceAt(ev ParsedEvent, overrides []ParsedEvent, start, end time.Time, displayLoc *time.Location) model.Occurrence {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			ev, start, end = ov, ov.Start, ov.End
			break
		}
	}

	startLocal := start.In(displayLoc)
	return model.Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: startLocal.Format(time.RFC3339Nano),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       startLocal,
		End:         end.In(displayLoc),
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
