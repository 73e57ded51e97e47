// Package config loads chemsim configuration from YAML files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/daniacca/chemsim/internal/simulation"
)

// MaxTimeStep is the longest allowed step, in seconds.
const MaxTimeStep = 60.0

// Config contains all chemsim settings.
type Config struct {
	// Reactions is the path of the reactions CSV file.
	Reactions string `json:"reactions" yaml:"reactions" env:"CHEMSIM_REACTIONS"`

	// Chemicals is the path of the initial chemicals CSV file.
	Chemicals string `json:"chemicals" yaml:"chemicals" env:"CHEMSIM_CHEMICALS"`

	// Seed seeds the run's random stream. Zero picks a time-based seed.
	Seed int64 `json:"seed" yaml:"seed" env:"CHEMSIM_SEED"`

	// RunTill is the number of time steps to run.
	RunTill int `json:"run_till" yaml:"run_till" env:"CHEMSIM_RUN_TILL"`

	// MaxMolecules is the molecule budget the initial chemicals are scaled
	// to fill.
	MaxMolecules int64 `json:"max_molecules" yaml:"max_molecules" env:"CHEMSIM_MAX_MOLECULES"`

	Model     ModelConfig     `json:"model" yaml:"model"`
	Output    OutputConfig    `json:"output" yaml:"output"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Notifiers NotifiersConfig `json:"notifiers" yaml:"notifiers"`
}

// ModelConfig holds the physical and numerical model parameters.
type ModelConfig struct {
	GridSize   int     `json:"grid_size" yaml:"grid_size" env:"CHEMSIM_GRID_SIZE"`
	CellVolume float64 `json:"cell_volume" yaml:"cell_volume" env:"CHEMSIM_CELL_VOLUME"`

	// TimeStep is the simulated length of one step in seconds.
	TimeStep    float64 `json:"time_step" yaml:"time_step" env:"CHEMSIM_TIME_STEP"`
	UVIntensity float64 `json:"uv_intensity" yaml:"uv_intensity" env:"CHEMSIM_UV_INTENSITY"`

	// TerminateOn lists groups of formulas; the run stops once every formula
	// of one group is used up.
	TerminateOn [][]string `json:"terminate_on,omitempty" yaml:"terminate_on,omitempty"`

	ClampTransfers          bool `json:"clamp_transfers" yaml:"clamp_transfers" env:"CHEMSIM_CLAMP_TRANSFERS"`
	MaxEntities             int  `json:"max_entities" yaml:"max_entities" env:"CHEMSIM_MAX_ENTITIES"`
	DisproportionationDelay int  `json:"disproportionation_delay" yaml:"disproportionation_delay" env:"CHEMSIM_DISPROPORTIONATION_DELAY"`
	ReportInterval          int  `json:"report_interval" yaml:"report_interval" env:"CHEMSIM_REPORT_INTERVAL"`
}

// OutputConfig says where results go.
type OutputConfig struct {
	// Database is the SQLite results file. Empty disables persistence.
	Database string `json:"database" yaml:"database" env:"CHEMSIM_DATABASE"`
	// Census is an optional JSON file written with the final census.
	Census string `json:"census,omitempty" yaml:"census,omitempty" env:"CHEMSIM_CENSUS"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level is one of "trace", "debug", "info", "warn" or "error".
	Level string `json:"level" yaml:"level" env:"CHEMSIM_LOG_LEVEL"`
}

// NotifiersConfig configures live step notifications.
type NotifiersConfig struct {
	Webhooks []string `json:"webhooks,omitempty" yaml:"webhooks,omitempty" env:"CHEMSIM_WEBHOOKS" envSeparator:","`
	// WebSocketAddr serves a /ws step feed when set, e.g. ":8080".
	WebSocketAddr string `json:"websocket_addr,omitempty" yaml:"websocket_addr,omitempty" env:"CHEMSIM_WS_ADDR"`
}

// Default returns a Config with the stock model parameters.
func Default() *Config {
	props := simulation.DefaultProperties()
	return &Config{
		Reactions:    "reactions.csv",
		Chemicals:    "chemicals.csv",
		RunTill:      1000,
		MaxMolecules: 1_000_000,
		Model: ModelConfig{
			GridSize:                props.GridSize,
			CellVolume:              props.CellVolume,
			TimeStep:                props.TimeStep,
			UVIntensity:             props.UVIntensity,
			DisproportionationDelay: props.DisproportionationDelay,
			ReportInterval:          props.ReportInterval,
		},
		Output: OutputConfig{
			Database: "chemsim.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration.
// Order: defaults -> YAML file (when path is not empty) -> environment variables
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable for a run.
func (c *Config) Validate() error {
	var errs []error
	if c.RunTill <= 0 {
		errs = append(errs, fmt.Errorf("run_till must be positive, got %d", c.RunTill))
	}
	if c.MaxMolecules <= 0 {
		errs = append(errs, fmt.Errorf("max_molecules must be positive, got %d", c.MaxMolecules))
	}
	if c.Model.TimeStep <= 0 || c.Model.TimeStep > MaxTimeStep {
		errs = append(errs, fmt.Errorf("time_step must be in (0, %g] seconds, got %g", MaxTimeStep, c.Model.TimeStep))
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid log level: %s (valid: trace, debug, info, warn, error, or empty for default)", c.Logging.Level))
	}

	if err := c.Properties().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Properties returns the model parameters of a run.
func (c *Config) Properties() simulation.Properties {
	return simulation.Properties{
		TimeStep:                c.Model.TimeStep,
		UVIntensity:             c.Model.UVIntensity,
		DisproportionationDelay: c.Model.DisproportionationDelay,
		TerminateOn:             c.Model.TerminateOn,
		ReportInterval:          c.Model.ReportInterval,
		ClampTransfers:          c.Model.ClampTransfers,
		MaxEntities:             c.Model.MaxEntities,
		GridSize:                c.Model.GridSize,
		CellVolume:              c.Model.CellVolume,
	}
}

// ResolveSeed returns Seed, or a time-based seed when Seed is zero.
func (c *Config) ResolveSeed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return time.Now().UnixNano()
}
