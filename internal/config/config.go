package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	soilmap "github.com/dthill196/syracuse-soil-metal-biomarker-study"
)

// Config holds the full application configuration.
type Config struct {
	Input   InputConfig       `yaml:"input" mapstructure:"input"`
	Grid    GridConfig        `yaml:"grid" mapstructure:"grid"`
	CRS     soilmap.CRSConfig `yaml:"crs" mapstructure:"crs"`
	Skew    SkewConfig        `yaml:"skew" mapstructure:"skew"`
	Kriging KrigingConfig     `yaml:"kriging" mapstructure:"kriging"`
	Score   ScoreConfig       `yaml:"score" mapstructure:"score"`
	Output  OutputConfig      `yaml:"output" mapstructure:"output"`
	Log     LogConfig         `yaml:"log" mapstructure:"log"`
}

// InputConfig names the input files and the columns read from them.
type InputConfig struct {
	Samples         string `yaml:"samples" mapstructure:"samples"`
	Participants    string `yaml:"participants" mapstructure:"participants"`
	Boundary        string `yaml:"boundary" mapstructure:"boundary"`
	IDColumn        string `yaml:"id_column" mapstructure:"id_column"`
	LongitudeColumn string `yaml:"longitude_column" mapstructure:"longitude_column"`
	LatitudeColumn  string `yaml:"latitude_column" mapstructure:"latitude_column"`
	ValueColumn     string `yaml:"value_column" mapstructure:"value_column"`
	OutcomeColumn   string `yaml:"outcome_column" mapstructure:"outcome_column"`
}

// GridConfig sets the lattice spacing in source coordinates.
type GridConfig struct {
	Resolution float64 `yaml:"resolution" mapstructure:"resolution"`
}

// SkewConfig configures the IQR fence of the skew split.
type SkewConfig struct {
	Fence float64 `yaml:"fence" mapstructure:"fence"`
}

// KrigingConfig configures variogram fitting and the solver pool.
type KrigingConfig struct {
	Model   string `yaml:"model" mapstructure:"model"`
	Workers int    `yaml:"workers" mapstructure:"workers"`
}

// ScoreConfig orders methods for RMSE ties.
type ScoreConfig struct {
	Preference []string `yaml:"preference" mapstructure:"preference"`
}

// OutputConfig configures what a run writes.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Method string `yaml:"method" mapstructure:"method"`
	Plots  bool   `yaml:"plots" mapstructure:"plots"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from the file at path, or from soilmap.yaml in
// the working directory when path is empty, then from the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("soilmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SOILMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("input.samples", "samples.csv")
	v.SetDefault("input.participants", "")
	v.SetDefault("input.boundary", "")
	v.SetDefault("input.id_column", "id")
	v.SetDefault("input.longitude_column", "longitude")
	v.SetDefault("input.latitude_column", "latitude")
	v.SetDefault("input.value_column", "value")
	v.SetDefault("input.outcome_column", "outcome")
	v.SetDefault("grid.resolution", soilmap.DefaultResolution)
	v.SetDefault("crs.source", soilmap.EPSG4326)
	v.SetDefault("crs.target", "EPSG:32618")
	v.SetDefault("crs.unit", string(soilmap.Meters))
	v.SetDefault("skew.fence", soilmap.DefaultFenceMultiplier)
	v.SetDefault("kriging.model", string(soilmap.Auto))
	v.SetDefault("kriging.workers", 4)
	v.SetDefault("score.preference", []string{"tin", "ok", "combined"})
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.method", "")
	v.SetDefault("output.plots", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if path != "" || !notFound {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if !(c.Grid.Resolution > 0) {
		return eris.Errorf("config: grid.resolution must be positive, got %v", c.Grid.Resolution)
	}
	if c.Skew.Fence < 0 {
		return eris.Errorf("config: skew.fence must not be negative, got %v", c.Skew.Fence)
	}
	switch soilmap.ModelType(strings.ToLower(c.Kriging.Model)) {
	case soilmap.Auto, soilmap.Spherical, soilmap.Exponential, soilmap.Gaussian:
	default:
		return eris.Errorf("config: unknown kriging.model %q", c.Kriging.Model)
	}
	for _, m := range c.Score.Preference {
		if _, err := ParseMethod(m); err != nil {
			return err
		}
	}
	if c.Output.Method != "" {
		if _, err := ParseMethod(c.Output.Method); err != nil {
			return err
		}
	}
	return nil
}

// ParseMethod maps a configured method name to its soilmap.Method.
func ParseMethod(s string) (soilmap.Method, error) {
	switch m := soilmap.Method(strings.ToLower(strings.TrimSpace(s))); m {
	case soilmap.MethodOK, soilmap.MethodTIN, soilmap.MethodCombined:
		return m, nil
	}
	return "", eris.Errorf("config: unknown method %q", s)
}

// PipelineOptions converts the configuration into pipeline options. Call
// Validate first.
func (c *Config) PipelineOptions() soilmap.Options {
	fence := c.Skew.Fence
	model := soilmap.ModelType(strings.ToLower(c.Kriging.Model))
	crs := c.CRS

	opts := soilmap.Options{
		Resolution:      c.Grid.Resolution,
		CRS:             &crs,
		FenceMultiplier: &fence,
		Model:           &model,
		Workers:         c.Kriging.Workers,
	}
	for _, s := range c.Score.Preference {
		if m, err := ParseMethod(s); err == nil {
			opts.Preference = append(opts.Preference, m)
		}
	}
	return opts
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
