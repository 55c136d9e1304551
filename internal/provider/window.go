// Package provider holds helpers shared by the concrete use-block providers.
package provider

import (
	"sort"
	"time"

	"schedgrid/internal/model"
)

// Window applies the incremental-update policy to blocks and returns the
// survivors sorted by start time:
//
//   - every kept block overlaps [t1, t2) (start < t2 and end > t1);
//   - inc "hi": the client already has everything up to t1, so blocks that
//     start before t1 are dropped;
//   - inc "lo": the client already has everything from t2, so blocks that
//     end after t2 are dropped.
//
// Zero-length blocks at exactly t1 are kept.
func Window(blocks []*model.Block, t1, t2 time.Time, inc model.Inc) []*model.Block {
	out := make([]*model.Block, 0, len(blocks))
	for _, b := range blocks {
		if !Overlaps(b.Start, b.End, t1, t2) {
			continue
		}
		switch inc {
		case model.IncHi:
			if b.Start.Before(t1) {
				continue
			}
		case model.IncLo:
			if b.End.After(t2) {
				continue
			}
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// Overlaps reports whether [start, end) intersects [t1, t2).
func Overlaps(start, end, t1, t2 time.Time) bool {
	if start.Equal(end) {
		return !start.Before(t1) && start.Before(t2)
	}
	return start.Before(t2) && end.After(t1)
}
