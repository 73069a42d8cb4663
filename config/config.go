// Package config loads the configuration of the nodestat driver.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sarchlab/nodestat"
	"gopkg.in/yaml.v3"
)

// Config is the top-level driver configuration.
type Config struct {
	// Network names the demo graph to profile.
	Network string `yaml:"network"`

	// InputShape is the shape of one input sample, without the batch
	// dimension.
	InputShape []int `yaml:"input_shape"`

	BatchSize int    `yaml:"batch_size"`
	DType     string `yaml:"dtype"`
	Seed      int64  `yaml:"seed"`

	Output  OutputConfig  `yaml:"output"`
	Replay  ReplayConfig  `yaml:"replay"`
	Metrics MetricsConfig `yaml:"metrics"`

	LogLevel string `yaml:"log_level"`
}

// OutputConfig controls how the report is written.
type OutputConfig struct {
	// CSV is the file the report is written to. Empty disables it.
	CSV string `yaml:"csv"`

	// Table prints the report as a table to stdout.
	Table bool `yaml:"table"`

	// RollupDepth additionally prints a table merged at this path depth.
	// Zero disables it.
	RollupDepth int `yaml:"rollup_depth"`
}

// ReplayConfig controls the latency replay of the report.
type ReplayConfig struct {
	Enabled bool `yaml:"enabled"`

	// Estimator is one of "recorded", "roofline" or "one".
	Estimator string `yaml:"estimator"`

	PeakGFlops       float64 `yaml:"peak_gflops"`
	BandwidthGBps    float64 `yaml:"bandwidth_gbps"`
	LaunchOverheadUs float64 `yaml:"launch_overhead_us"`

	// Monitor starts the akita monitoring server for the replay engine.
	Monitor bool `yaml:"monitor"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint. Empty disables
	// it.
	Addr string `yaml:"addr"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Network:    "espcn",
		InputShape: []int{3, 32, 32},
		BatchSize:  1,
		DType:      "float32",
		Seed:       1,
		Output: OutputConfig{
			Table: true,
		},
		Replay: ReplayConfig{
			Enabled:          true,
			Estimator:        "recorded",
			PeakGFlops:       1000,
			BandwidthGBps:    100,
			LaunchOverheadUs: 5,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file on top of the default configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error

	if c.Network == "" {
		errs = append(errs, errors.New("network must be set"))
	}

	if len(c.InputShape) == 0 {
		errs = append(errs, errors.New("input_shape must be set"))
	}

	for _, d := range c.InputShape {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("input_shape %v has a non-positive dimension", c.InputShape))
			break
		}
	}

	if c.BatchSize <= 0 {
		errs = append(errs, errors.New("batch_size must be positive"))
	}

	if _, err := nodestat.ParseDType(c.DType); err != nil {
		errs = append(errs, err)
	}

	if c.Output.RollupDepth < 0 {
		errs = append(errs, errors.New("output.rollup_depth must not be negative"))
	}

	switch c.Replay.Estimator {
	case "recorded", "one":
	case "roofline":
		if c.Replay.PeakGFlops <= 0 || c.Replay.BandwidthGBps <= 0 {
			errs = append(errs, errors.New(
				"replay.peak_gflops and replay.bandwidth_gbps must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown replay estimator %q", c.Replay.Estimator))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLogLevel converts a level name into a slog.Level.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}

	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}
