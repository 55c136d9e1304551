// Package timelabel provides the time header rows of a grid: every sub-id
// of a time label kind gets the same sequence of hour (or day) blocks.
package timelabel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schedgrid/internal/model"
	"schedgrid/internal/provider"
	"schedgrid/internal/resource"
)

// Unit is the size of one label block.
type Unit string

const (
	UnitHour Unit = "hour"
	UnitDay  Unit = "day"
)

// maxBlocks bounds a single answer; a week of hours is 168.
const maxBlocks = 24 * 62

// ErrWindowTooLong is returned when covering the window would take more than
// maxBlocks labels.
var ErrWindowTooLong = errors.New("timelabel: window too long")

// Provider generates label blocks aligned to the unit in a display location.
type Provider struct {
	unit Unit
	loc  *time.Location
}

// New returns a Provider for unit in loc (time.Local when nil).
func New(unit Unit, loc *time.Location) (*Provider, error) {
	switch unit {
	case UnitHour, UnitDay:
	default:
		return nil, fmt.Errorf("timelabel: unknown unit %q", unit)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Provider{unit: unit, loc: loc}, nil
}

func (p *Provider) GetAllBlocks(ctx context.Context, subIDs []string, t1, t2 time.Time, inc model.Inc) (map[string][]*model.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string][]*model.Block, len(subIDs))
	for _, id := range subIDs {
		labels, err := p.labels(t1, t2)
		if err != nil {
			return nil, err
		}
		out[id] = provider.Window(labels, t1, t2, inc)
	}
	return out, nil
}

// Decorate titles the header row after its unit.
func (p *Provider) Decorate(_ context.Context, r *resource.Resource) error {
	switch p.unit {
	case UnitDay:
		r.SetTitle("Day")
	default:
		r.SetTitle("Hour")
	}
	return nil
}

func (p *Provider) labels(t1, t2 time.Time) ([]*model.Block, error) {
	var out []*model.Block
	for start := p.floor(t1); start.Before(t2); {
		if len(out) == maxBlocks {
			return nil, fmt.Errorf("%w: %s to %s needs more than %d %s labels",
				ErrWindowTooLong, t1.Format(time.RFC3339), t2.Format(time.RFC3339), maxBlocks, p.unit)
		}
		end := p.next(start)
		b := model.NewBlock(start, end)
		b.Payload["label"] = p.format(start)
		b.Payload["css_class"] = p.cssClass(start)
		out = append(out, b)
		start = end
	}
	return out, nil
}

func (p *Provider) floor(t time.Time) time.Time {
	t = t.In(p.loc)
	switch p.unit {
	case UnitDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, p.loc)
	}
}

func (p *Provider) next(t time.Time) time.Time {
	switch p.unit {
	case UnitDay:
		return t.AddDate(0, 0, 1)
	default:
		return t.Add(time.Hour)
	}
}

func (p *Provider) format(t time.Time) string {
	switch p.unit {
	case UnitDay:
		return t.Format("Mon 01/02")
	default:
		return t.Format("15:04")
	}
}

func (p *Provider) cssClass(t time.Time) string {
	switch p.unit {
	case UnitDay:
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return "ZTimeDay weekend"
		}
		return "ZTimeDay"
	default:
		if t.Hour() == 0 {
			return "ZTimeHour midnight"
		}
		return "ZTimeHour"
	}
}
