package schedule

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "schedgrid/internal/log"
	"schedgrid/internal/model"
	"schedgrid/internal/resource"
)

// Result maps each resource handle to its use-blocks in provider order. Only
// resources with at least one block are present.
type Result map[*resource.Resource][]*UseBlock

// ByTag re-keys the result by resource tag.
func (r Result) ByTag() map[string][]*UseBlock {
	out := make(map[string][]*UseBlock, len(r))
	for rsrc, blocks := range r {
		out[rsrc.Tag()] = blocks
	}
	return out
}

type kindBlocks struct {
	kind   string
	blocks map[string][]*model.Block
}

// GetAllBlocks asks every kind's provider for the blocks in [t1, t2] and
// assembles them keyed by the handles of cfg's registry.
//
// Providers run concurrently, one per kind. The first failure cancels the
// others and the whole query fails; no partial result is returned. An
// inverted range (t1 after t2) yields an empty result.
func GetAllBlocks(ctx context.Context, cfg *Config, t1, t2 time.Time, inc model.Inc) (Result, error) {
	if t1.After(t2) {
		appLog.Debug("schedule query with inverted range", "t1", t1.Unix(), "t2", t2.Unix())
		return Result{}, nil
	}

	groups := cfg.ResourcesByKind()
	providers := make([]Provider, len(groups))
	for i, grp := range groups {
		p, err := cfg.ProviderFor(grp.Kind)
		if err != nil {
			return nil, err
		}
		providers[i] = p
	}

	collected := make([]kindBlocks, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, grp := range groups {
		p := providers[i]
		subIDs := make([]string, 0, len(grp.Resources))
		for _, r := range grp.Resources {
			subIDs = append(subIDs, r.SubID())
		}

		g.Go(func() error {
			start := time.Now()
			blocks, err := p.GetAllBlocks(gctx, subIDs, t1, t2, inc)
			if err != nil {
				return &ProviderError{Kind: grp.Kind, Provider: cfg.ProviderID(grp.Kind), Err: err}
			}
			if err := checkBlocks(blocks); err != nil {
				return &ProviderError{Kind: grp.Kind, Provider: cfg.ProviderID(grp.Kind), Err: err}
			}
			appLog.Debug("provider call done",
				"kind", grp.Kind,
				"provider", cfg.ProviderID(grp.Kind),
				"sub_ids", len(subIDs),
				"elapsed", time.Since(start),
			)
			collected[i] = kindBlocks{kind: grp.Kind, blocks: blocks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		appLog.Error("schedule query failed", err, "t1", t1.Unix(), "t2", t2.Unix(), "inc", string(inc))
		return nil, err
	}

	result := make(Result)
	for _, kb := range collected {
		addKindBlocks(cfg.Registry(), kb, result)
	}
	return result, nil
}

// checkBlocks rejects provider records the aggregator cannot wrap.
func checkBlocks(blocks map[string][]*model.Block) error {
	for subID, blks := range blocks {
		for i, blk := range blks {
			if blk == nil {
				return fmt.Errorf("nil block %d for sub-id %q", i, subID)
			}
		}
	}
	return nil
}

func addKindBlocks(reg *resource.Registry, kb kindBlocks, result Result) {
	for subID, blks := range kb.blocks {
		if len(blks) == 0 {
			continue
		}
		rsrc, ok := reg.Lookup(resource.Tag(kb.kind, subID))
		if !ok {
			appLog.Debug("provider returned unlisted sub-id", "kind", kb.kind, "sub_id", subID)
			rsrc = reg.GetOrCreate(kb.kind, subID)
		}
		ubs := make([]*UseBlock, 0, len(blks))
		for _, blk := range blks {
			ubs = append(ubs, NewUseBlock(rsrc, blk))
		}
		result[rsrc] = ubs
	}
}
