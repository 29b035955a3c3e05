package cmd

import (
	"context"
	"io"
	"time"

	"portfoliosim/internal/api"
	"portfoliosim/internal/engine"
	"portfoliosim/internal/journal"

	"github.com/spf13/cobra"
)

var checkpointEvery time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a session in the background behind an HTTP status API",
	Long: `Serve launches the configured session and exposes it over HTTP until
interrupted:

  GET  /sessions
  GET  /sessions/{id}
  GET  /sessions/{id}/report
  GET  /sessions/{id}/trades
  POST /sessions/{id}/stop

Sessions recorded in the journal are listed under GET /history.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().DurationVar(&checkpointEvery, "checkpoint-every", 30*time.Second, "checkpoint interval while the session runs")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, err := openSources(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.close()

	opts := []api.Option{api.WithRiskFreeRate(cfg.Simulation.RiskFreeRate)}
	if cfg.Journal.Path != "" {
		j, err := journal.NewSQLite(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, api.WithHistory(j))
	}
	server := api.NewServer(log, opts...)

	params, err := cfg.StartParams(src.sectors)
	if err != nil {
		return err
	}
	e := engine.NewEngine(src.prices, src.signals, cfg.EngineConfig(), log)
	session, err := e.Launch(ctx, params)
	if err != nil {
		return err
	}
	server.Track(session)
	log.Info().Str("session", session.ID()).Msg("session launched")

	go watchSession(ctx, session)

	return server.ListenAndServe(ctx, cfg.API.Addr)
}

// watchSession checkpoints a running session periodically and records it
// once it ends.
func watchSession(ctx context.Context, session *engine.Session) {
	var tick <-chan time.Time
	if cfg.Journal.CheckpointDir != "" && checkpointEvery > 0 {
		ticker := time.NewTicker(checkpointEvery)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			if _, err := journal.WriteCheckpoint(cfg.Journal.CheckpointDir, session); err != nil {
				log.Error().Err(err).Msg("checkpoint failed")
			}
		case <-session.Done():
			if err := finishSession(context.WithoutCancel(ctx), session, io.Discard); err != nil {
				log.Error().Err(err).Str("session", session.ID()).Msg("failed to persist session")
			}
			return
		case <-ctx.Done():
			return
		}
	}
}
