package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"schedgrid/internal/resource"
)

func groupTags(groups []KindGroup) map[string][]string {
	out := make(map[string][]string, len(groups))
	for _, g := range groups {
		for _, r := range g.Resources {
			out[g.Kind] = append(out[g.Kind], r.Tag())
		}
	}
	return out
}

func loadForSnapshot(t *testing.T) *Config {
	t.Helper()
	catalog := testCatalog()
	catalog.RegisterDecorator("Room", DecoratorFunc(func(_ context.Context, r *resource.Resource) error {
		r.SetLabel("Room " + r.SubID())
		return nil
	}))
	cfg, err := mustLoad(context.Background(), `
ResourceKinds: {Channel: Program, Room: Meeting}
Resources: ["Room b a", "Channel 1 2"]
visibleTime: 2 hours
timeRangeMin: now - 3 days
`, catalog)
	require.NoError(t, err)
	return cfg
}

func TestSnapshot_MsgpackRoundTrip(t *testing.T) {
	orig := loadForSnapshot(t)

	data, err := MarshalSnapshot(orig)
	require.NoError(t, err)

	got, err := UnmarshalSnapshot(data, testCatalog())
	require.NoError(t, err)

	assert.Equal(t, groupTags(orig.ResourcesByKind()), groupTags(got.ResourcesByKind()))
	assert.Equal(t, orig.VisibleTime(), got.VisibleTime())
	assert.True(t, orig.TimeRangeMin().Equal(got.TimeRangeMin()))
	assert.True(t, orig.TimeRangeMax().Equal(got.TimeRangeMax()))
	assert.Equal(t, "Program", got.ProviderID("Channel"))

	gotRooms := got.ResourcesByKind()[0].Resources
	assert.Equal(t, "Room b", gotRooms[0].Label())
	assert.Equal(t, "Room_b", gotRooms[0].Title())

	// Fresh registry: handles are new objects but resolve consistently.
	assert.NotSame(t, orig.Resources()[0], got.Resources()[0])
	assert.Same(t, got.Resources()[0], got.Registry().GetOrCreate("Room", "b"))
}

func TestSnapshot_YAMLRoundTrip(t *testing.T) {
	orig := loadForSnapshot(t)

	data, err := yaml.Marshal(orig.Snapshot())
	require.NoError(t, err)

	var s Snapshot
	require.NoError(t, yaml.Unmarshal(data, &s))
	got, err := Restore(s, testCatalog())
	require.NoError(t, err)

	assert.Equal(t, groupTags(orig.ResourcesByKind()), groupTags(got.ResourcesByKind()))
	assert.Equal(t, orig.VisibleTime(), got.VisibleTime())
	assert.True(t, orig.TimeRangeMin().Equal(got.TimeRangeMin()))
}

func TestRestore_Errors(t *testing.T) {
	_, err := Restore(Snapshot{Kinds: map[string]string{"Channel": "Gone"}}, testCatalog())
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Restore(Snapshot{
		Kinds:     map[string]string{"Channel": "Program"},
		Resources: []ResourceSnapshot{{Kind: "Room", SubID: "a"}},
	}, testCatalog())
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = UnmarshalSnapshot([]byte("not msgpack"), testCatalog())
	assert.ErrorIs(t, err, ErrConfiguration)
}
