// Package config loads the stopcast configuration from defaults, an
// optional file and BUS_* environment variables.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
)

// DefaultDatasetURL is the published passenger-count dataset.
const DefaultDatasetURL = "https://huggingface.co/datasets/labiaufba/SSA_StopBusTimeSeries_5/raw/main/loader_03-05_2024.csv"

// Environment variables recognised by Load.
const (
	EnvDatasetPath = "BUS_DATASET_PATH"
	EnvDatasetURL  = "BUS_DATASET_URL"
	EnvOutputDir   = "BUS_OUTPUT_DIR"
	EnvPlotDir     = "BUS_PLOT_DIR"
	EnvLogLevel    = "BUS_LOG_LEVEL"
)

type DatasetConfig struct {
	// Path is read when set and present; otherwise URL is downloaded.
	Path    string        `mapstructure:"path"`
	URL     string        `mapstructure:"url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Quiet   bool          `mapstructure:"quiet"`
}

type OutputConfig struct {
	Dir     string `mapstructure:"dir" validate:"required"`
	PlotDir string `mapstructure:"plot_dir"`
	Summary bool   `mapstructure:"summary"`
}

type ModelConfig struct {
	NModels         int     `mapstructure:"n_models" validate:"gte=1"`
	MaxFeatures     int     `mapstructure:"max_features" validate:"gte=0"`
	Lambda          float64 `mapstructure:"lambda" validate:"gt=0"`
	Aggregation     string  `mapstructure:"aggregation" validate:"oneof=mean median"`
	DriftDetector   string  `mapstructure:"drift_detector" validate:"oneof=adwin page_hinkley ddm none"`
	GracePeriod     float64 `mapstructure:"grace_period" validate:"gt=0"`
	SplitConfidence float64 `mapstructure:"split_confidence" validate:"gt=0,lt=1"`
	TieThreshold    float64 `mapstructure:"tie_threshold" validate:"gte=0"`
	MaxDepth        int     `mapstructure:"max_depth" validate:"gte=0"`
	LeafPrediction  string  `mapstructure:"leaf_prediction" validate:"oneof=mean model adaptive"`
	LearningRate    float64 `mapstructure:"learning_rate" validate:"gt=0"`
	Seed            uint64  `mapstructure:"seed"`
	MaxInstances    int     `mapstructure:"max_instances" validate:"gte=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// Config is the complete application configuration.
type Config struct {
	Dataset DatasetConfig `mapstructure:"dataset"`
	Output  OutputConfig  `mapstructure:"output"`
	Model   ModelConfig   `mapstructure:"model"`
	Log     LogConfig     `mapstructure:"log"`
}

// DefaultModelConfig returns the model settings used when nothing is
// configured.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		NModels:         10,
		Lambda:          6,
		Aggregation:     "mean",
		DriftDetector:   "adwin",
		GracePeriod:     200,
		SplitConfidence: 1e-7,
		TieThreshold:    0.05,
		LeafPrediction:  "adaptive",
		LearningRate:    0.01,
		Seed:            42,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataset.path", "")
	v.SetDefault("dataset.url", DefaultDatasetURL)
	v.SetDefault("dataset.timeout", 5*time.Minute)
	v.SetDefault("dataset.quiet", false)

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.plot_dir", "")
	v.SetDefault("output.summary", true)

	m := DefaultModelConfig()
	v.SetDefault("model.n_models", m.NModels)
	v.SetDefault("model.max_features", m.MaxFeatures)
	v.SetDefault("model.lambda", m.Lambda)
	v.SetDefault("model.aggregation", m.Aggregation)
	v.SetDefault("model.drift_detector", m.DriftDetector)
	v.SetDefault("model.grace_period", m.GracePeriod)
	v.SetDefault("model.split_confidence", m.SplitConfidence)
	v.SetDefault("model.tie_threshold", m.TieThreshold)
	v.SetDefault("model.max_depth", m.MaxDepth)
	v.SetDefault("model.leaf_prediction", m.LeafPrediction)
	v.SetDefault("model.learning_rate", m.LearningRate)
	v.SetDefault("model.seed", m.Seed)
	v.SetDefault("model.max_instances", m.MaxInstances)

	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"dataset.path":    EnvDatasetPath,
		"dataset.url":     EnvDatasetURL,
		"output.dir":      EnvOutputDir,
		"output.plot_dir": EnvPlotDir,
		"log.level":       EnvLogLevel,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return errors.Wrapf(err, "bind %s", env)
		}
	}
	return nil
}

// Load builds the configuration. Precedence: environment, then the file at
// path (skipped when empty), then defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field constraint and reports the first violation as
// a ValidationError.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.NewValidationError(fe.Namespace(), "failed '"+fe.ActualTag()+"' constraint", fe.Value())
	}
	return errors.Wrap(err, "validate config")
}
