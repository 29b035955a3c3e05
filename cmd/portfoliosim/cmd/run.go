package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"portfoliosim/internal/engine"
	"portfoliosim/internal/journal"

	"github.com/spf13/cobra"
)

var runProgress bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a single session and print its report",
	Long: `Run drives one session through its horizon, then prints the performance
report. When configured, the session is recorded in the SQLite journal, a
checkpoint is written and the trades and snapshots are exported as CSV.

Example:
  portfoliosim run --config sim.yaml --progress`,
	RunE: runSimulation,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&runProgress, "progress", "p", false, "show a progress bar over trading days")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, err := openSources(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.close()

	params, err := cfg.StartParams(src.sectors)
	if err != nil {
		return err
	}
	e := engine.NewEngine(src.prices, src.signals, cfg.EngineConfig(), log, engine.WithProgressBar(runProgress))

	session, runErr := e.Start(ctx, params)
	if session == nil {
		return runErr
	}
	if runErr != nil && !errors.Is(runErr, engine.ErrCriticalAlert) {
		log.Warn().Err(runErr).Str("session", session.ID()).Msg("session did not complete")
	}

	if err := finishSession(ctx, session, cmd.OutOrStdout()); err != nil {
		return err
	}
	return runErr
}

// finishSession prints the report and persists whatever outputs are configured.
func finishSession(ctx context.Context, session *engine.Session, out io.Writer) error {
	report, err := engine.Summarize(session, cfg.Simulation.RiskFreeRate)
	if errors.Is(err, engine.ErrEmptyHistory) {
		fmt.Fprintf(out, "session %s recorded no trading days: %s\n", session.ID(), session.Reason())
		return nil
	}
	if err != nil {
		return err
	}
	engine.PrintReport(out, report)

	if cfg.Journal.Path != "" {
		j, err := journal.NewSQLite(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		if err := j.RecordSession(ctx, session, report); err != nil {
			return fmt.Errorf("record session: %w", err)
		}
		log.Info().Str("session", session.ID()).Str("journal", cfg.Journal.Path).Msg("session recorded")
	}

	if cfg.Journal.CheckpointDir != "" {
		path, err := journal.WriteCheckpoint(cfg.Journal.CheckpointDir, session)
		if err != nil {
			return fmt.Errorf("write checkpoint: %w", err)
		}
		log.Info().Str("checkpoint", path).Msg("checkpoint written")
	}

	if cfg.Journal.ReportDir != "" {
		name := session.ID()
		if err := engine.WriteReportFiles(cfg.Journal.ReportDir, name, session); err != nil {
			return err
		}
		log.Info().Str("dir", cfg.Journal.ReportDir).Msg("report files written")
	}
	return nil
}
