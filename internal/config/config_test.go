package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.Model.UVIntensity != 0.025 {
		t.Errorf("expected UVIntensity 0.025, got %g", config.Model.UVIntensity)
	}
	if config.Model.TimeStep != 1 {
		t.Errorf("expected TimeStep 1, got %g", config.Model.TimeStep)
	}
	if config.Model.MaxEntities != 0 {
		t.Errorf("expected entity tier off by default, got %d", config.Model.MaxEntities)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "chemsim.yaml")

	configContent := `
reactions: data/reactions.csv
seed: 42
run_till: 500
model:
  grid_size: 4
  time_step: 0.5
  terminate_on:
    - [H2O2, "HO*"]
    - [CH3COCH3]
  clamp_transfers: true
notifiers:
  webhooks: [http://localhost:9000/hook]
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Reactions != "data/reactions.csv" {
		t.Errorf("expected reactions path, got '%s'", config.Reactions)
	}
	if config.Seed != 42 || config.RunTill != 500 {
		t.Errorf("expected seed 42 and run_till 500, got %d and %d", config.Seed, config.RunTill)
	}
	if config.Model.GridSize != 4 || config.Model.TimeStep != 0.5 || !config.Model.ClampTransfers {
		t.Errorf("unexpected model config: %+v", config.Model)
	}
	want := [][]string{{"H2O2", "HO*"}, {"CH3COCH3"}}
	if !reflect.DeepEqual(config.Model.TerminateOn, want) {
		t.Errorf("expected terminate_on %v, got %v", want, config.Model.TerminateOn)
	}
	// unset keys keep their defaults
	if config.Chemicals != "chemicals.csv" {
		t.Errorf("expected default chemicals path, got '%s'", config.Chemicals)
	}
	if config.Model.UVIntensity != 0.025 {
		t.Errorf("expected default UVIntensity, got %g", config.Model.UVIntensity)
	}
	if len(config.Notifiers.Webhooks) != 1 {
		t.Errorf("expected one webhook, got %v", config.Notifiers.Webhooks)
	}

	props := config.Properties()
	if props.GridSize != 4 || !props.ClampTransfers || len(props.TerminateOn) != 2 {
		t.Errorf("expected properties to mirror model config, got %+v", props)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("model: [not, a, map"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chemsim.yaml")
	if err := os.WriteFile(path, []byte("seed: 1\nrun_till: 10\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("CHEMSIM_SEED", "99")
	t.Setenv("CHEMSIM_GRID_SIZE", "7")
	t.Setenv("CHEMSIM_LOG_LEVEL", "debug")
	t.Setenv("CHEMSIM_WEBHOOKS", "http://a,http://b")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Seed != 99 {
		t.Errorf("expected env seed 99, got %d", config.Seed)
	}
	if config.RunTill != 10 {
		t.Errorf("expected file run_till 10 to survive, got %d", config.RunTill)
	}
	if config.Model.GridSize != 7 {
		t.Errorf("expected env grid size 7, got %d", config.Model.GridSize)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected env log level, got %s", config.Logging.Level)
	}
	if !reflect.DeepEqual(config.Notifiers.Webhooks, []string{"http://a", "http://b"}) {
		t.Errorf("expected two webhooks, got %v", config.Notifiers.Webhooks)
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("CHEMSIM_RUN_TILL", "lots")
	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric CHEMSIM_RUN_TILL")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero time step", func(c *Config) { c.Model.TimeStep = 0 }, "time_step"},
		{"time step above limit", func(c *Config) { c.Model.TimeStep = 61 }, "time_step"},
		{"time step at limit", func(c *Config) { c.Model.TimeStep = 60 }, ""},
		{"zero run till", func(c *Config) { c.RunTill = 0 }, "run_till"},
		{"zero molecules", func(c *Config) { c.MaxMolecules = 0 }, "max_molecules"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
		{"bad grid", func(c *Config) { c.Model.GridSize = 0 }, "grid_size"},
		{"empty termination group", func(c *Config) { c.Model.TerminateOn = [][]string{{}} }, "terminate_on"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveSeed(t *testing.T) {
	c := Default()
	c.Seed = 5
	if c.ResolveSeed() != 5 {
		t.Errorf("expected explicit seed, got %d", c.ResolveSeed())
	}
	c.Seed = 0
	if c.ResolveSeed() == 0 {
		t.Error("expected time-based seed")
	}
}
