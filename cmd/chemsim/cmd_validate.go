package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/daniacca/chemsim/internal/chem"
	"github.com/daniacca/chemsim/internal/parser"
	"github.com/daniacca/chemsim/internal/simulation"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check reactions, chemicals and configuration without running",
		Long: `Check reactions, chemicals and configuration without running.

This command reports:
  - Every invalid reaction (bad arity, lone UV, duplicate photolysis, bad odds)
  - How the reactions classify (photolysis, unimolecular, bimolecular)
  - Which species are terminal (never react)
  - The molecule-to-mol scalar the chemicals scale to

Examples:
  chemsim validate --reactions reactions.csv --chemicals chemicals.csv
  chemsim validate --config chemsim.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg)
			jsonOut, _ := cmd.Flags().GetBool("json")

			report := validationReport{}
			var problems []error
			if err := cfg.Validate(); err != nil {
				problems = append(problems, err)
			}

			reactions, err := parser.ReadReactionsFile(cfg.Reactions)
			if err != nil {
				problems = append(problems, err)
			} else {
				report.Reactions = len(reactions)
				if err := chem.ValidateReactions(reactions); err != nil {
					problems = append(problems, err)
				} else {
					describeReactions(&report, reactions)
				}
			}

			chemicals, err := parser.ReadChemicalsFile(cfg.Chemicals)
			if err != nil {
				problems = append(problems, err)
			} else {
				report.Chemicals = len(chemicals)
				_, scalar, err := simulation.ScaleInventory(chemicals, cfg.MaxMolecules, max(cfg.Model.GridSize, 1), chem.NewRNG(1))
				if err != nil {
					problems = append(problems, err)
				}
				report.MoleculeToMol = scalar
			}

			for _, p := range problems {
				report.Issues = append(report.Issues, issuesOf(p)...)
			}
			report.Valid = len(report.Issues) == 0
			printValidationReport(cmd.OutOrStdout(), report, jsonOut)
			if !report.Valid {
				return fmt.Errorf("validation failed with %d issue(s)", len(report.Issues))
			}
			return nil
		},
	}

	cmd.Flags().String("reactions", "", "Reactions CSV file")
	cmd.Flags().String("chemicals", "", "Chemicals CSV file")
	cmd.Flags().Int("grid", 0, "Cells per reactor edge")
	cmd.Flags().Int64("max-molecules", 0, "Molecule budget for the initial chemicals")

	return cmd
}

type validationReport struct {
	Valid         bool           `json:"valid"`
	Reactions     int            `json:"reactions"`
	Chemicals     int            `json:"chemicals"`
	Kinds         map[string]int `json:"kinds,omitempty"`
	Species       []string       `json:"species,omitempty"`
	Terminal      []string       `json:"terminal,omitempty"`
	MoleculeToMol float64        `json:"molecule_to_mol,omitempty"`
	Issues        []string       `json:"issues,omitempty"`
}

func describeReactions(report *validationReport, reactions []chem.ReactionDescription) {
	registry := chem.NewRegistry(chem.NewNoOpLogger())
	if err := registry.Load(reactions); err != nil {
		report.Issues = append(report.Issues, err.Error())
		return
	}
	report.Kinds = make(map[string]int)
	for kind, n := range registry.Counts() {
		report.Kinds[kind.String()] = n
	}
	report.Species = registry.Entities()
	for _, f := range report.Species {
		if !registry.HasReactants(f) {
			report.Terminal = append(report.Terminal, f)
		}
	}
}

// issuesOf flattens joined errors and validation errors into lines.
func issuesOf(err error) []string {
	var verr *chem.ValidationError
	if errors.As(err, &verr) {
		return verr.Issues
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, issuesOf(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

func printValidationReport(w io.Writer, r validationReport, jsonOut bool) {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(r)
		return
	}

	if r.Valid {
		fmt.Fprintln(w, "✓ Configuration is valid")
	} else {
		fmt.Fprintf(w, "✗ Found %d issue(s):\n", len(r.Issues))
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "  - %s\n", issue)
		}
	}
	fmt.Fprintf(w, "\nReactions: %d", r.Reactions)
	if len(r.Kinds) > 0 {
		fmt.Fprintf(w, " (%d photolysis, %d unimolecular, %d bimolecular)",
			r.Kinds[chem.Photolysis.String()], r.Kinds[chem.Unimolecular.String()], r.Kinds[chem.Bimolecular.String()])
	}
	fmt.Fprintln(w)
	if len(r.Species) > 0 {
		fmt.Fprintf(w, "Species:   %d (%d terminal: %v)\n", len(r.Species), len(r.Terminal), r.Terminal)
	}
	fmt.Fprintf(w, "Chemicals: %d\n", r.Chemicals)
	if r.MoleculeToMol > 0 {
		fmt.Fprintf(w, "Molecule to mol scalar: %g\n", r.MoleculeToMol)
	}
}
