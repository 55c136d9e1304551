package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSetup creates a config file and manifest in a temp dir and returns the
// config path.
func writeSetup(t *testing.T, manifest string, withDB bool) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "timezone: UTC\nmanifest: schedule.yml\nlog_level: error\ncache_dir: " + filepath.Join(dir, "cache") + "\n"
	if withDB {
		cfg += "database: " + filepath.Join(dir, "rooms.db") + "\n"
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schedule.yml"), []byte(manifest), 0o600))
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const hourManifest = `
ResourceKinds:
  hour: TimeLabelHour
Resources:
  - hour h
visibleTime: 3 hours
`

func TestCheck_PrintsSnapshot(t *testing.T) {
	cfgPath := writeSetup(t, hourManifest, false)
	out, err := run(t, "--config", cfgPath, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "hour: TimeLabelHour")
	assert.Contains(t, out, "sub_id: h")
	assert.Contains(t, out, "title: Hour")
}

func TestCheck_RejectsUnknownProvider(t *testing.T) {
	cfgPath := writeSetup(t, "ResourceKinds:\n  x: Nope\nResources:\n  - x a\n", false)
	_, err := run(t, "--config", cfgPath, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nope")
}

func TestQuery_TimeLabels(t *testing.T) {
	cfgPath := writeSetup(t, hourManifest, false)
	// 2026-10-17T12:00:00Z .. +3h
	out, err := run(t, "--config", cfgPath, "query", "--t1", "1792238400", "--t2", "1792249200")
	require.NoError(t, err)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Contains(t, body, "meta")

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(body["hour_h"], &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "12:00", rows[0]["label"])
	assert.EqualValues(t, 1792238400, rows[0]["starttime"])
}

func TestQuery_OnlyT2EndsWindowThere(t *testing.T) {
	cfgPath := writeSetup(t, hourManifest, false)
	out, err := run(t, "--config", cfgPath, "query", "--t2", "1792249200")
	require.NoError(t, err)

	var body struct {
		Meta struct {
			T1 int64 `json:"t1"`
			T2 int64 `json:"t2"`
		} `json:"meta"`
		Hours []map[string]any `json:"hour_h"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, int64(1792238400), body.Meta.T1)
	assert.Equal(t, int64(1792249200), body.Meta.T2)
	assert.Len(t, body.Hours, 3)
}

func TestQuery_BadInc(t *testing.T) {
	cfgPath := writeSetup(t, hourManifest, false)
	_, err := run(t, "--config", cfgPath, "query", "--inc", "middle")
	assert.Error(t, err)
}

func TestRooms_PutBookQuery(t *testing.T) {
	cfgPath := writeSetup(t, `
ResourceKinds:
  room: Meeting
Resources:
  - room r1
`, true)

	_, err := run(t, "--config", cfgPath, "rooms", "put", "r1", "Board Room", "--description", "3rd floor")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "rooms", "book", "r1", "Sync",
		"--start", "2026-10-17T13:00:00Z", "--end", "2026-10-17T14:00:00Z", "--organizer", "kim")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 36)

	out, err = run(t, "--config", cfgPath, "query", "--t1", "1792238400", "--t2", "1792249200")
	require.NoError(t, err)

	var body struct {
		Meta struct {
			Rsrcs []struct {
				Label string `json:"label"`
				Title string `json:"title"`
			} `json:"rsrcs"`
		} `json:"meta"`
		Room []map[string]any `json:"room_r1"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Len(t, body.Meta.Rsrcs, 1)
	assert.Equal(t, "Board Room", body.Meta.Rsrcs[0].Label)
	assert.Equal(t, "3rd floor", body.Meta.Rsrcs[0].Title)
	require.Len(t, body.Room, 1)
	assert.Equal(t, "Sync", body.Room[0]["title"])
	assert.Equal(t, "kim", body.Room[0]["organizer"])
}

func TestRooms_NoDatabase(t *testing.T) {
	cfgPath := writeSetup(t, hourManifest, false)
	_, err := run(t, "--config", cfgPath, "rooms", "put", "r1", "Board")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")
}
