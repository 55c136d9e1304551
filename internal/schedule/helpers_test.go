package schedule

import (
	"context"
	"sync"
	"time"

	"schedgrid/internal/model"
)

// stubProvider returns canned blocks per sub-id and records its calls.
type stubProvider struct {
	mu     sync.Mutex
	blocks map[string][]span
	err    error
	calls  [][]string
	incs   []model.Inc
}

type span struct{ start, end int64 }

func (s *stubProvider) GetAllBlocks(ctx context.Context, subIDs []string, t1, t2 time.Time, inc model.Inc) (map[string][]*model.Block, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), subIDs...))
	s.incs = append(s.incs, inc)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string][]*model.Block, len(subIDs))
	for _, id := range subIDs {
		spans, ok := s.blocks[id]
		if !ok {
			continue
		}
		blks := make([]*model.Block, 0, len(spans))
		for _, sp := range spans {
			b := model.NewBlock(time.Unix(sp.start, 0), time.Unix(sp.end, 0))
			b.Payload["title"] = id
			blks = append(blks, b)
		}
		out[id] = blks
	}
	return out, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
}

func mustLoad(ctx context.Context, data string, catalog *Catalog) (*Config, error) {
	m, err := ParseManifest([]byte(data), FormatYAML)
	if err != nil {
		return nil, err
	}
	return Load(ctx, m, catalog, LoadOptions{Now: fixedNow})
}
