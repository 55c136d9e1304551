package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"schedgrid/internal/model"
)

func blk(start, end int64) *model.Block {
	return model.NewBlock(time.Unix(start, 0), time.Unix(end, 0))
}

func starts(blocks []*model.Block) []int64 {
	out := make([]int64, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Start.Unix())
	}
	return out
}

func TestWindow(t *testing.T) {
	// t1=100, t2=200
	input := []*model.Block{
		blk(150, 250), // crosses t2
		blk(50, 120),  // crosses t1
		blk(120, 180), // inside
		blk(0, 100),   // ends at t1
		blk(200, 300), // starts at t2
		blk(10, 400),  // covers window
	}
	t1, t2 := time.Unix(100, 0), time.Unix(200, 0)

	tests := []struct {
		name string
		inc  model.Inc
		want []int64
	}{
		{"full", model.IncNone, []int64{10, 50, 120, 150}},
		{"hi", model.IncHi, []int64{120, 150}},
		{"lo", model.IncLo, []int64{50, 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, starts(Window(input, t1, t2, tt.inc)))
		})
	}
}

func TestWindow_ZeroLength(t *testing.T) {
	t1, t2 := time.Unix(100, 0), time.Unix(200, 0)
	got := Window([]*model.Block{blk(100, 100), blk(200, 200)}, t1, t2, model.IncNone)
	assert.Equal(t, []int64{100}, starts(got))
}

func TestWindow_Empty(t *testing.T) {
	assert.Empty(t, Window(nil, time.Unix(0, 0), time.Unix(1, 0), model.IncNone))
}
