package simulation

import (
	"fmt"

	"github.com/daniacca/chemsim/internal/chem"
)

// Properties are the model parameters of a run.
type Properties struct {
	// TimeStep is the simulated length of one step in seconds.
	TimeStep    float64 `json:"time_step"`
	UVIntensity float64 `json:"uv_intensity"`
	// DisproportionationDelay is how many steps an intermediate waits before
	// it emits products.
	DisproportionationDelay int `json:"disproportionation_delay"`
	// TerminateOn lists groups of formulas. The run stops once every formula
	// of any one group has a count of zero or less.
	TerminateOn [][]string `json:"terminate_on,omitempty"`
	// ReportInterval is the number of steps between recorded samples. The
	// final step is always recorded.
	ReportInterval int     `json:"report_interval"`
	ClampTransfers bool    `json:"clamp_transfers"`
	MaxEntities    int     `json:"max_entities"`
	GridSize       int     `json:"grid_size"`
	CellVolume     float64 `json:"cell_volume"`
}

// DefaultProperties returns the stock model parameters.
func DefaultProperties() Properties {
	return Properties{
		TimeStep:                1,
		UVIntensity:             0.025,
		DisproportionationDelay: 1,
		ReportInterval:          1,
		GridSize:                10,
		CellVolume:              1,
	}
}

// Validate reports every invalid parameter at once.
func (p Properties) Validate() error {
	err := &chem.ValidationError{}
	if p.TimeStep <= 0 {
		err.Add(fmt.Sprintf("time_step must be positive, got %g", p.TimeStep))
	}
	if p.UVIntensity < 0 {
		err.Add(fmt.Sprintf("uv_intensity cannot be negative, got %g", p.UVIntensity))
	}
	if p.DisproportionationDelay < 1 {
		err.Add(fmt.Sprintf("disproportionation_delay must be at least 1, got %d", p.DisproportionationDelay))
	}
	if p.ReportInterval < 1 {
		err.Add(fmt.Sprintf("report_interval must be at least 1, got %d", p.ReportInterval))
	}
	if p.MaxEntities < 0 {
		err.Add(fmt.Sprintf("max_entities cannot be negative, got %d", p.MaxEntities))
	}
	if p.GridSize <= 0 {
		err.Add(fmt.Sprintf("grid_size must be positive, got %d", p.GridSize))
	}
	if p.CellVolume <= 0 {
		err.Add(fmt.Sprintf("cell_volume must be positive, got %g", p.CellVolume))
	}
	for i, group := range p.TerminateOn {
		if len(group) == 0 {
			err.Add(fmt.Sprintf("terminate_on group %d is empty", i))
		}
	}
	if err.HasIssues() {
		return err
	}
	return nil
}

func (p Properties) options() chem.Options {
	return chem.Options{
		GridSize:                p.GridSize,
		CellVolume:              p.CellVolume,
		ClampTransfers:          p.ClampTransfers,
		MaxEntities:             p.MaxEntities,
		DisproportionationDelay: p.DisproportionationDelay,
	}
}
