package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all value flags",
			args: []string{"-u", "http://api:9000", "-id", "7", "-d", "150", "-v", "0.5", "-n", "5", "-r", "3", "-p", "next-batch"},
			expected: &Config{
				BaseURL: "http://api:9000", UserID: "7", DistanceThreshold: 150, VelocityThreshold: 0.5,
				VisibleDepth: 5, RequestTimeout: 3 * time.Second, ResurfacePolicy: ResurfaceNextBatch,
			},
		},
		{
			name:     "bool flags and foreign flags",
			args:     []string{"-c", "cfg.json", "-dedup", "-sender", "-l", "debug", "-unmatch", "/x/{id}/"},
			expected: &Config{DedupEchoes: true, IncludeSenderID: true, LogLevel: "debug", UnmatchPath: "/x/{id}/"},
		},
		{name: "incorrect depth", args: []string{"-n", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg, tt.args) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestParseFlags_TimeoutKeptWhenNotGiven(t *testing.T) {
	cfg := &Config{RequestTimeout: 1500 * time.Millisecond}
	parseFlags(cfg, []string{"-u", "http://x"})
	assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)
}
