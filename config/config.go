// Package config loads the YAML configuration shared by the server and the
// command-line tools.
package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"gamepredict/logging"
	"gamepredict/ml"

	"gopkg.in/yaml.v2"
)

const DefaultFile = "config.yaml"

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log logging.Config `yaml:"log"`
	ML  MLConfig       `yaml:"ml"`
}

// MLConfig seeds are pointers so that an explicit 0 is kept; only an absent
// seed falls back to the default.
type MLConfig struct {
	ModelPath       string `yaml:"model_path"`
	NEstimators     int    `yaml:"n_estimators"`
	MaxDepth        int    `yaml:"max_depth"`
	MinSamplesSplit int    `yaml:"min_samples_split"`
	Seed            *int64 `yaml:"seed"`
	Workers         int    `yaml:"workers"`
	CacheSize       int    `yaml:"cache_size"`
	Training        struct {
		TestRatio float64 `yaml:"test_ratio"`
		SplitSeed *int64  `yaml:"split_seed"`
	} `yaml:"training"`
}

func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

// Load reads path and fills unset fields with defaults. An empty path yields
// the defaults alone.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}

// Resolve returns the config file to use: explicit if set, otherwise
// config.yaml in the working directory or its parent (so commands run from
// cmd/ still find the root file). Empty means none was found.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, candidate := range []string{DefaultFile, filepath.Join("..", DefaultFile)} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/gamepredict.db"
	}
	if c.Http.Port == 0 {
		c.Http.Port = 8080
	}
	if c.Http.Timeout == 0 {
		c.Http.Timeout = 30 * time.Second
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	defaults := ml.DefaultPipelineConfig()
	if c.ML.ModelPath == "" {
		c.ML.ModelPath = ml.DefaultModelPath
	}
	if c.ML.NEstimators <= 0 {
		c.ML.NEstimators = defaults.NEstimators
	}
	if c.ML.MinSamplesSplit < 2 {
		c.ML.MinSamplesSplit = defaults.MinSamplesSplit
	}
	if c.ML.Seed == nil {
		seed := defaults.Seed
		c.ML.Seed = &seed
	}
	if c.ML.CacheSize <= 0 {
		c.ML.CacheSize = 1024
	}
	if c.ML.Training.TestRatio <= 0 || c.ML.Training.TestRatio >= 1 {
		c.ML.Training.TestRatio = 0.2
	}
	if c.ML.Training.SplitSeed == nil {
		seed := int64(42)
		c.ML.Training.SplitSeed = &seed
	}
}

func (m MLConfig) PipelineConfig() ml.PipelineConfig {
	return ml.PipelineConfig{
		NEstimators:     m.NEstimators,
		MaxDepth:        m.MaxDepth,
		MinSamplesSplit: m.MinSamplesSplit,
		Seed:            derefSeed(m.Seed, ml.DefaultPipelineConfig().Seed),
		Workers:         m.Workers,
	}
}

// ModelOptions are the ml options implied by this configuration.
func (m MLConfig) ModelOptions() []ml.Option {
	return []ml.Option{
		ml.WithPipelineConfig(m.PipelineConfig()),
		ml.WithTestRatio(m.Training.TestRatio),
		ml.WithSplitSeed(derefSeed(m.Training.SplitSeed, 42)),
	}
}

func derefSeed(seed *int64, fallback int64) int64 {
	if seed == nil {
		return fallback
	}
	return *seed
}
