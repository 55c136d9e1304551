package rooms

import (
	"context"
	"errors"
	"time"

	"schedgrid/internal/model"
	"schedgrid/internal/provider"
	"schedgrid/internal/resource"
)

// Provider adapts a Store to the use-block provider contract.
type Provider struct {
	store *Store
}

func NewProvider(store *Store) *Provider {
	return &Provider{store: store}
}

func (p *Provider) GetAllBlocks(ctx context.Context, subIDs []string, t1, t2 time.Time, inc model.Inc) (map[string][]*model.Block, error) {
	meetings, err := p.store.MeetingsBetween(ctx, subIDs, t1, t2)
	if err != nil {
		return nil, err
	}

	byRoom := make(map[string][]*model.Block, len(subIDs))
	for _, m := range meetings {
		b := model.NewBlock(m.StartsAt, m.EndsAt)
		b.Payload["id"] = m.ID
		b.Payload["title"] = m.Title
		b.Payload["organizer"] = m.Organizer
		b.Payload["category"] = m.Category
		byRoom[m.RoomID] = append(byRoom[m.RoomID], b)
	}
	for id, blocks := range byRoom {
		byRoom[id] = provider.Window(blocks, t1, t2, inc)
	}
	return byRoom, nil
}

// Decorate labels a room resource with its name. Rooms without a row keep
// the default label.
func (p *Provider) Decorate(ctx context.Context, r *resource.Resource) error {
	room, err := p.store.GetRoom(ctx, r.SubID())
	if errors.Is(err, ErrRoomNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	r.SetLabel(room.Name)
	if room.Description != "" {
		r.SetTitle(room.Description)
	} else {
		r.SetTitle(room.Name)
	}
	return nil
}
