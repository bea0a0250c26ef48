package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Thresholds.NotifyConfidence)
	assert.Equal(t, 4, cfg.Thresholds.HighSeverity)
	assert.Equal(t, 120*time.Second, cfg.Pipeline.GroupWindow)
	assert.Equal(t, "detections", cfg.NATS.SubjectRoot)
}

func TestLoad_YamlOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
thresholds:
  notify_confidence: 0.8
watchlist:
  top_k: 5
http:
  addr: ":9999"
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Thresholds.NotifyConfidence)
	assert.Equal(t, 5, cfg.Watchlist.TopK)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	// Untouched keys keep their defaults.
	assert.Equal(t, 4, cfg.Thresholds.HighSeverity)
}

func TestLoad_EnvOverridesYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  notify_confidence: 0.8\n"), 0600))

	t.Setenv("NOTIFY_CONFIDENCE", "0.9")
	t.Setenv("NATS_URL", "nats://broker:4222")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Thresholds.NotifyConfidence)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds: [not a map"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"confidence zero", func(c *Config) { c.Thresholds.NotifyConfidence = 0 }, true},
		{"confidence above one", func(c *Config) { c.Thresholds.NotifyConfidence = 1.5 }, true},
		{"severity out of range", func(c *Config) { c.Thresholds.HighSeverity = 6 }, true},
		{"match threshold zero", func(c *Config) { c.Watchlist.MatchThreshold = 0 }, true},
		{"top_k zero", func(c *Config) { c.Watchlist.TopK = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
