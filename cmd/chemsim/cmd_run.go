package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/daniacca/chemsim/internal/chem"
	"github.com/daniacca/chemsim/internal/chem/notifiers"
	"github.com/daniacca/chemsim/internal/config"
	"github.com/daniacca/chemsim/internal/logging"
	"github.com/daniacca/chemsim/internal/parser"
	"github.com/daniacca/chemsim/internal/simulation"
	"github.com/daniacca/chemsim/internal/store"
	"github.com/daniacca/chemsim/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long: `Run a simulation from a reactions file and a chemicals file.

The initial chemicals (in mols) are scaled to the molecule budget and spread
over the grid. Counts are sampled into the results database every
report_interval steps. Ctrl+C stops the run at the end of the current step;
the partial results are kept.

Examples:
  chemsim run --reactions reactions.csv --chemicals chemicals.csv --steps 500
  chemsim run --config chemsim.yaml --seed 42 --census census.json
  chemsim run --config chemsim.yaml --ws-addr :8080   # live feed on ws://host:8080/ws`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg)
			jsonOut, _ := cmd.Flags().GetBool("json")

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sig := make(chan os.Signal, 1)
			notifySignals(sig)
			defer signal.Stop(sig)
			go func() {
				select {
				case <-sig:
					fmt.Fprintln(cmd.ErrOrStderr(), "Stopping at the end of the current step...")
					cancel()
				case <-ctx.Done():
				}
			}()

			return runSimulation(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), jsonOut)
		},
	}

	cmd.Flags().String("reactions", "", "Reactions CSV file")
	cmd.Flags().String("chemicals", "", "Chemicals CSV file")
	cmd.Flags().Int64("seed", 0, "Random seed (0 picks one from the clock)")
	cmd.Flags().Int("steps", 0, "Number of time steps to run")
	cmd.Flags().Int("grid", 0, "Cells per reactor edge")
	cmd.Flags().Int64("max-molecules", 0, "Molecule budget for the initial chemicals")
	cmd.Flags().String("census", "", "Write the final census as JSON to this file")
	cmd.Flags().String("ws-addr", "", "Serve a live websocket step feed on this address")
	cmd.Flags().StringSlice("webhook", nil, "POST every step event to this URL (repeatable)")

	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("reactions") {
		cfg.Reactions, _ = flags.GetString("reactions")
	}
	if flags.Changed("chemicals") {
		cfg.Chemicals, _ = flags.GetString("chemicals")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("steps") {
		cfg.RunTill, _ = flags.GetInt("steps")
	}
	if flags.Changed("grid") {
		cfg.Model.GridSize, _ = flags.GetInt("grid")
	}
	if flags.Changed("max-molecules") {
		cfg.MaxMolecules, _ = flags.GetInt64("max-molecules")
	}
	if flags.Changed("census") {
		cfg.Output.Census, _ = flags.GetString("census")
	}
	if flags.Changed("ws-addr") {
		cfg.Notifiers.WebSocketAddr, _ = flags.GetString("ws-addr")
	}
	if flags.Changed("webhook") {
		cfg.Notifiers.Webhooks, _ = flags.GetStringSlice("webhook")
	}
}

// runSummary is the printed outcome of a run.
type runSummary struct {
	RunID         string             `json:"run_id"`
	Seed          int64              `json:"seed"`
	Steps         int                `json:"steps"`
	Completed     bool               `json:"completed"`
	MoleculeToMol float64            `json:"molecule_to_mol"`
	Counts        map[string]int64   `json:"counts"`
	Mols          map[string]float64 `json:"mols,omitempty"`
	Database      string             `json:"database,omitempty"`
	Census        string             `json:"census,omitempty"`
	Duration      string             `json:"duration"`
}

func runSimulation(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, jsonOut bool) (err error) {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging.Level, stderr)
	engineLog := logging.NewFormatLogger(logger).WithTrace()

	shutdown, err := telemetry.Setup(ctx, "chemsim", version)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		if shutdownErr := shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Warn("failed to flush traces", "error", shutdownErr)
		}
	}()

	reactions, err := parser.ReadReactionsFile(cfg.Reactions)
	if err != nil {
		return err
	}
	chemicals, err := parser.ReadChemicalsFile(cfg.Chemicals)
	if err != nil {
		return err
	}

	seed := cfg.ResolveSeed()
	rng := chem.NewRNG(seed)
	inventory, scalar, err := simulation.ScaleInventory(chemicals, cfg.MaxMolecules, cfg.Model.GridSize, rng)
	if err != nil {
		return err
	}
	logger.Info("scaled inventory", "chemicals", len(chemicals), "molecule_to_mol", scalar)

	var sink simulation.ResultsSink
	if cfg.Output.Database != "" {
		st, err := store.Open(ctx, cfg.Output.Database)
		if err != nil {
			return fmt.Errorf("failed to open results database: %w", err)
		}
		defer st.Close()
		sink = st
	}

	nm, stopFeed, err := startNotifications(cfg.Notifiers, engineLog, logger)
	if err != nil {
		return err
	}
	if nm != nil {
		defer func() {
			stopFeed()
			if closeErr := nm.Close(); closeErr != nil {
				logger.Warn("failed to close notifiers", "error", closeErr)
			}
		}()
	}

	start := time.Now()
	res, runErr := simulation.Run(ctx, simulation.Config{
		Reactions:     reactions,
		Inventory:     inventory,
		Properties:    cfg.Properties(),
		Seed:          seed,
		RunTill:       cfg.RunTill,
		MoleculeToMol: scalar,
		RNG:           rng,
		Sink:          sink,
		Notifications: nm,
		Logger:        engineLog,
	})
	if res.RunID == "" {
		return runErr
	}

	if cfg.Output.Census != "" {
		if err := writeCensus(cfg.Output.Census, res.Census); err != nil {
			return errors.Join(runErr, err)
		}
	}

	summary := runSummary{
		RunID:         res.RunID,
		Seed:          seed,
		Steps:         res.Steps,
		Completed:     res.Completed,
		MoleculeToMol: scalar,
		Counts:        res.Counts,
		Mols:          res.Mols,
		Database:      cfg.Output.Database,
		Census:        cfg.Output.Census,
		Duration:      time.Since(start).Round(time.Millisecond).String(),
	}
	printRunSummary(stdout, summary, jsonOut)
	return runErr
}

// startNotifications registers the configured notifiers. It returns a nil
// manager when none are configured.
func startNotifications(cfg config.NotifiersConfig, engineLog chem.Logger, logger *slog.Logger) (*chem.NotificationManager, func(), error) {
	if len(cfg.Webhooks) == 0 && cfg.WebSocketAddr == "" {
		return nil, func() {}, nil
	}

	nm := chem.NewNotificationManager(engineLog)
	for i, url := range cfg.Webhooks {
		if err := nm.RegisterNotifier(notifiers.NewWebhookNotifier(fmt.Sprintf("webhook-%d", i), url)); err != nil {
			nm.Close()
			return nil, nil, err
		}
	}

	stop := func() {}
	if cfg.WebSocketAddr != "" {
		ws := notifiers.NewWebSocketNotifier("websocket")
		if err := nm.RegisterNotifier(ws); err != nil {
			nm.Close()
			return nil, nil, err
		}

		ln, err := net.Listen("tcp", cfg.WebSocketAddr)
		if err != nil {
			nm.Close()
			return nil, nil, fmt.Errorf("failed to listen on %s: %w", cfg.WebSocketAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/ws", ws)
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("websocket feed stopped", "error", err)
			}
		}()
		logger.Info("serving live step feed", "url", "ws://"+ln.Addr().String()+"/ws")

		stop = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}
	}
	return nm, stop, nil
}

func writeCensus(path string, census chem.Census) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create census file: %w", err)
	}
	if err := census.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write census: %w", err)
	}
	return f.Close()
}

func printRunSummary(w io.Writer, s runSummary, jsonOut bool) {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(s)
		return
	}

	status := "completed"
	if !s.Completed {
		status = "stopped early"
	}
	fmt.Fprintf(w, "Run %s %s after %d steps (%s, seed %d)\n", s.RunID, status, s.Steps, s.Duration, s.Seed)
	fmt.Fprintf(w, "Molecule to mol scalar: %g\n\n", s.MoleculeToMol)

	formulas := make([]string, 0, len(s.Counts))
	for f := range s.Counts {
		formulas = append(formulas, f)
	}
	slices.Sort(formulas)
	for _, f := range formulas {
		if mols, ok := s.Mols[f]; ok {
			fmt.Fprintf(w, "  %-12s %12d  %.6g mol\n", f, s.Counts[f], mols)
		} else {
			fmt.Fprintf(w, "  %-12s %12d\n", f, s.Counts[f])
		}
	}
	if s.Database != "" {
		fmt.Fprintf(w, "\nResults written to: %s\n", s.Database)
	}
	if s.Census != "" {
		fmt.Fprintf(w, "Census written to: %s\n", s.Census)
	}
}
