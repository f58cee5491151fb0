// Package config loads the run configuration: built-in defaults, then an
// optional YAML file, then HOUSECAST_* environment variables.
package config

import (
	"io"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/housecast/artifact"
	"github.com/YuminosukeSato/housecast/housing"
	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
	"github.com/YuminosukeSato/housecast/sklearn/model_selection"
	"github.com/YuminosukeSato/housecast/training"
)

// EnvPrefix prefixes every environment override, e.g. HOUSECAST_SPLIT_SEED.
const EnvPrefix = "HOUSECAST"

// Logging backends.
const (
	BackendZerolog = "zerolog"
	BackendSlog    = "slog"
)

type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Split     SplitConfig     `mapstructure:"split"`
	Search    SearchConfig    `mapstructure:"search"`
	Serve     ServeConfig     `mapstructure:"serve"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Schema    SchemaConfig    `mapstructure:"schema"`
}

type DataConfig struct {
	Path string `mapstructure:"path"`
}

type ArtifactsConfig struct {
	Dir     string `mapstructure:"dir"`
	Model   string `mapstructure:"model"`
	Encoder string `mapstructure:"encoder"`
	Metrics string `mapstructure:"metrics"`
}

type SplitConfig struct {
	TestSize float64 `mapstructure:"test_size"`
	Seed     uint64  `mapstructure:"seed"`
}

// SearchConfig configures the grid search. An empty Grid means
// training.DefaultGrid.
type SearchConfig struct {
	CVFolds int                      `mapstructure:"cv_folds"`
	Scoring string                   `mapstructure:"scoring"`
	Workers int                      `mapstructure:"workers"`
	Grid    map[string][]interface{} `mapstructure:"grid"`
	Scale   bool                     `mapstructure:"scale"`
}

type ServeConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Backend string `mapstructure:"backend"`
}

// SchemaConfig optionally replaces the embedded schema document.
type SchemaConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.path", "data/NY-House-Dataset.csv")

	v.SetDefault("artifacts.dir", "artifacts")
	v.SetDefault("artifacts.model", artifact.DefaultModelFile)
	v.SetDefault("artifacts.encoder", artifact.DefaultEncoderFile)
	v.SetDefault("artifacts.metrics", artifact.DefaultMetricsFile)

	v.SetDefault("split.test_size", 0.2)
	v.SetDefault("split.seed", 42)

	v.SetDefault("search.cv_folds", 5)
	v.SetDefault("search.scoring", model_selection.ScoringNegMSE)
	v.SetDefault("search.workers", 1)
	v.SetDefault("search.scale", false)

	v.SetDefault("serve.addr", ":8000")
	v.SetDefault("serve.read_timeout", 5*time.Second)
	v.SetDefault("serve.write_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", log.FormatConsole)
	v.SetDefault("logging.backend", BackendZerolog)

	v.SetDefault("schema.path", "")
}

// Default returns the built-in configuration, ignoring files and the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads the configuration. path may be empty, in which case only
// defaults and environment variables apply. A named file that cannot be read
// is a ConfigError, as is a configuration that fails Validate.
func Load(fsys afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fsys)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError(path, "cannot read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError(path, "cannot decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	switch {
	case c.Artifacts.Dir == "":
		return errors.NewConfigError("artifacts.dir", "must not be empty", nil)
	case c.Artifacts.Model == "" || c.Artifacts.Encoder == "" || c.Artifacts.Metrics == "":
		return errors.NewConfigError("artifacts", "file names must not be empty", nil)
	case c.Split.TestSize <= 0 || c.Split.TestSize >= 1:
		return errors.NewConfigError("split.test_size", "must be in (0, 1)", nil)
	case c.Search.CVFolds < 2:
		return errors.NewConfigError("search.cv_folds", "must be at least 2", nil)
	case c.Search.Workers < 1:
		return errors.NewConfigError("search.workers", "must be at least 1", nil)
	case c.Serve.Addr == "":
		return errors.NewConfigError("serve.addr", "must not be empty", nil)
	case c.Serve.ReadTimeout <= 0 || c.Serve.WriteTimeout <= 0:
		return errors.NewConfigError("serve", "timeouts must be positive", nil)
	}
	if _, err := model_selection.GetScorer(c.Search.Scoring); err != nil {
		return errors.NewConfigError("search.scoring", "unknown scoring", err)
	}
	for key, values := range c.Search.Grid {
		if len(values) == 0 {
			return errors.NewConfigError("search.grid."+key, "must list at least one value", nil)
		}
	}
	if _, err := log.ToLogLevel(c.Logging.Level); err != nil {
		return errors.NewConfigError("logging.level", "unknown level", err)
	}
	if c.Logging.Format != log.FormatConsole && c.Logging.Format != log.FormatJSON {
		return errors.NewConfigError("logging.format", "must be console or json", nil)
	}
	if c.Logging.Backend != BackendZerolog && c.Logging.Backend != BackendSlog {
		return errors.NewConfigError("logging.backend", "must be zerolog or slog", nil)
	}
	return nil
}

// SearchOptions converts the search section for the trainer.
func (c *Config) SearchOptions() training.SearchOptions {
	grid := training.DefaultGrid()
	if len(c.Search.Grid) > 0 {
		grid = model_selection.ParamGrid(c.Search.Grid)
	}
	return training.SearchOptions{
		Grid:    grid,
		Folds:   c.Search.CVFolds,
		Scoring: c.Search.Scoring,
		Workers: c.Search.Workers,
		Scale:   c.Search.Scale,
	}
}

// TrainingOptions converts the data, split and search sections.
func (c *Config) TrainingOptions() training.Options {
	opts := training.DefaultOptions(c.Data.Path)
	opts.TestSize = c.Split.TestSize
	opts.Seed = c.Split.Seed
	opts.Search = c.SearchOptions()
	return opts
}

// Store returns the artifact store described by the artifacts section.
func (c *Config) Store(fsys afero.Fs, logger log.Logger) *artifact.Store {
	s := artifact.NewStore(fsys, c.Artifacts.Dir, logger)
	s.ModelFile = c.Artifacts.Model
	s.EncoderFile = c.Artifacts.Encoder
	s.MetricsFile = c.Artifacts.Metrics
	return s
}

// LoadSchema returns the schema override when one is configured and the
// embedded schema otherwise.
func (c *Config) LoadSchema(fsys afero.Fs) (*housing.Schema, error) {
	if c.Schema.Path == "" {
		return housing.DefaultSchema()
	}
	return housing.LoadSchema(fsys, c.Schema.Path)
}

// Provider builds the logger provider selected by the logging section.
func (c LoggingConfig) Provider(w io.Writer) (log.LoggerProvider, error) {
	level, err := log.ToLogLevel(c.Level)
	if err != nil {
		return nil, errors.NewConfigError("logging.level", "unknown level", err)
	}
	switch c.Backend {
	case BackendSlog:
		return log.NewSlogProvider(w, level), nil
	case BackendZerolog, "":
		return log.NewZerologProvider(w, level, c.Format), nil
	default:
		return nil, errors.NewConfigError("logging.backend", "must be zerolog or slog", nil)
	}
}
