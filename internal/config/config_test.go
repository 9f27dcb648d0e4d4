package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Dataset.Path)
	assert.Equal(t, DefaultDatasetURL, cfg.Dataset.URL)
	assert.Equal(t, 5*time.Minute, cfg.Dataset.Timeout)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.True(t, cfg.Output.Summary)
	assert.Equal(t, DefaultModelConfig(), cfg.Model)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv(EnvDatasetPath, "/data/loader.csv")
	t.Setenv(EnvDatasetURL, "http://example.com/data.csv")
	t.Setenv(EnvOutputDir, "/tmp/out")
	t.Setenv(EnvPlotDir, "/tmp/plots")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/loader.csv", cfg.Dataset.Path)
	assert.Equal(t, "http://example.com/data.csv", cfg.Dataset.URL)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.Equal(t, "/tmp/plots", cfg.Output.PlotDir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopcast.yaml")
	content := `
dataset:
  timeout: 30s
  quiet: true
output:
  dir: results
  summary: false
model:
  n_models: 3
  aggregation: median
  drift_detector: page_hinkley
  leaf_prediction: mean
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Dataset.Timeout)
	assert.True(t, cfg.Dataset.Quiet)
	assert.Equal(t, "results", cfg.Output.Dir)
	assert.False(t, cfg.Output.Summary)
	assert.Equal(t, 3, cfg.Model.NModels)
	assert.Equal(t, "median", cfg.Model.Aggregation)
	assert.Equal(t, "page_hinkley", cfg.Model.DriftDetector)
	assert.Equal(t, "mean", cfg.Model.LeafPrediction)
	// untouched keys keep their defaults
	assert.Equal(t, 0.01, cfg.Model.LearningRate)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopcast.toml")
	require.NoError(t, os.WriteFile(path, []byte("[output]\ndir = \"from-file\"\n"), 0o644))
	t.Setenv(EnvOutputDir, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Output.Dir)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"aggregation", "model:\n  aggregation: mode\n", "Config.Model.Aggregation"},
		{"leaf prediction", "model:\n  leaf_prediction: tree\n", "Config.Model.LeafPrediction"},
		{"members", "model:\n  n_models: 0\n", "Config.Model.NModels"},
		{"confidence", "model:\n  split_confidence: 2\n", "Config.Model.SplitConfidence"},
		{"log level", "log:\n  level: loud\n", "Config.Log.Level"},
		{"url", "dataset:\n  url: not a url\n", "Config.Dataset.URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.ParamName)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
