package schedule

import (
	"time"

	"schedgrid/internal/model"
	"schedgrid/internal/resource"
)

// UseBlock is the use of a resource for an interval of time: a shared
// resource handle paired with one provider record.
type UseBlock struct {
	resource *resource.Resource
	block    *model.Block
}

// NewUseBlock wraps blk for r. Nothing is validated.
func NewUseBlock(r *resource.Resource, blk *model.Block) *UseBlock {
	return &UseBlock{resource: r, block: blk}
}

func (u *UseBlock) Resource() *resource.Resource { return u.resource }

func (u *UseBlock) Kind() string { return u.resource.Kind() }

func (u *UseBlock) StartTime() time.Time { return u.block.Start }
func (u *UseBlock) EndTime() time.Time   { return u.block.End }

func (u *UseBlock) SetStartTime(t time.Time) { u.block.Start = t }
func (u *UseBlock) SetEndTime(t time.Time)   { u.block.End = t }

// Payload is the provider-defined data of the block.
func (u *UseBlock) Payload() map[string]any { return u.block.Payload }
