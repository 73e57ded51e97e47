package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/daniacca/chemsim/internal/store"
)

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect recorded runs",
	}
	cmd.AddCommand(
		newResultsListCmd(),
		newResultsShowCmd(),
		newResultsExportCmd(),
	)
	return cmd
}

// openResults opens the results database named by the config and --db.
func openResults(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Output.Database == "" {
		return nil, errors.New("no results database configured (use --db)")
	}
	return store.Open(cmd.Context(), cfg.Output.Database)
}

func newResultsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			st, err := openResults(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if runs == nil {
					runs = []store.Run{}
				}
				return json.NewEncoder(out).Encode(map[string]any{"runs": runs, "count": len(runs)})
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTEPS\tSTATUS\tSEED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%d\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Steps, r.RunTill, runStatus(r), r.Seed)
			}
			return tw.Flush()
		},
	}
}

func newResultsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and, optionally, one species' time series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			formula, _ := cmd.Flags().GetString("formula")
			st, err := openResults(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			run, err := st.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			formulas, err := st.Formulas(ctx, run.ID)
			if err != nil {
				return err
			}
			var series []store.Point
			if formula != "" {
				if series, err = st.SpeciesSeries(ctx, run.ID, formula); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				result := map[string]any{"run": run, "species": formulas}
				if formula != "" {
					result["formula"] = formula
					result["series"] = series
				}
				return json.NewEncoder(out).Encode(result)
			}

			fmt.Fprintf(out, "Run:      %s\n", run.ID)
			fmt.Fprintf(out, "Status:   %s\n", runStatus(run))
			fmt.Fprintf(out, "Steps:    %d of %d\n", run.Steps, run.RunTill)
			fmt.Fprintf(out, "Seed:     %d\n", run.Seed)
			fmt.Fprintf(out, "Grid:     %d^3 cells\n", run.GridSize)
			fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
			if run.FinishedAt != nil {
				fmt.Fprintf(out, "Finished: %s\n", run.FinishedAt.Local().Format(time.DateTime))
			}
			fmt.Fprintf(out, "Species:  %v\n", formulas)
			if formula != "" {
				fmt.Fprintf(out, "\n%s:\n", formula)
				for _, p := range series {
					fmt.Fprintf(out, "  %6d  %d\n", p.Step, p.Count)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("formula", "", "Print the recorded counts of this species")
	return cmd
}

func newResultsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a run's samples as CSV (one row per step)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mols, _ := cmd.Flags().GetBool("mols")
			st, err := openResults(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			return exportRun(cmd.Context(), st, args[0], mols, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("mols", false, "Convert molecule counts to mols")
	return cmd
}

func exportRun(ctx context.Context, st *store.Store, runID string, mols bool, w io.Writer) error {
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if mols && run.MoleculeToMol <= 0 {
		return fmt.Errorf("run %s has no molecule-to-mol scalar", runID)
	}
	formulas, err := st.Formulas(ctx, runID)
	if err != nil {
		return err
	}

	// step -> column -> value
	rows := map[int][]string{}
	var steps []int
	for col, f := range formulas {
		series, err := st.SpeciesSeries(ctx, runID, f)
		if err != nil {
			return err
		}
		for _, p := range series {
			row, ok := rows[p.Step]
			if !ok {
				row = make([]string, len(formulas))
				rows[p.Step] = row
				steps = append(steps, p.Step)
			}
			if mols {
				row[col] = strconv.FormatFloat(float64(p.Count)/run.MoleculeToMol, 'g', -1, 64)
			} else {
				row[col] = strconv.FormatInt(p.Count, 10)
			}
		}
	}
	slices.Sort(steps)

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Step"}, formulas...)); err != nil {
		return err
	}
	for _, step := range steps {
		if err := cw.Write(append([]string{strconv.Itoa(step)}, rows[step]...)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func runStatus(r store.Run) string {
	switch {
	case r.FinishedAt == nil:
		return "running"
	case r.Completed:
		return "completed"
	default:
		return "stopped"
	}
}
