package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"3 hours", 3 * time.Hour},
		{"3.hours", 3 * time.Hour},
		{"1 hour", time.Hour},
		{"90m", 90 * time.Minute},
		{"45 Minutes", 45 * time.Minute},
		{"2 days", 48 * time.Hour},
		{"1.week", 7 * 24 * time.Hour},
		{"10800", 3 * time.Hour},
		{"  30 s ", 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration_Rejects(t *testing.T) {
	for _, in := range []string{
		"",
		"hours",
		"3.5 hours",
		"-3 hours",
		"3 fortnights",
		"3.hours + 1.minute",
		"`rm -rf /`",
		"File.read('/etc/passwd')",
		"99999999999999999999 weeks",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDuration(in)
			assert.Error(t, err)
		})
	}
}

func TestParseInstant(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"now", now},
		{"NOW", now},
		{"now - 1 week", now.Add(-7 * 24 * time.Hour)},
		{"now+2.days", now.Add(48 * time.Hour)},
		{"Time.now - 1.week", now.Add(-7 * 24 * time.Hour)},
		{"now + 90 minutes", now.Add(90 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInstant(tt.in, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestParseInstant_Rejects(t *testing.T) {
	now := time.Now()
	for _, in := range []string{
		"",
		"tomorrow",
		"now -",
		"now * 2",
		"now - 1 week - 1 day",
		"2026-10-17T00:00:00Z",
		"system('date')",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseInstant(in, now)
			assert.Error(t, err)
		})
	}
}
