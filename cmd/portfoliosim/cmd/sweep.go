package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"portfoliosim/internal/config"
	"portfoliosim/internal/engine"
	"portfoliosim/internal/journal"

	"github.com/spf13/cobra"
)

var (
	sweepParams   []string
	sweepParallel int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one session per combination of swept parameters",
	Long: `Sweep expands every --param into its listed values and runs one
independent session per combination, in parallel. Any simulation or risk
limit setting can be swept by its config file name.

Example:
  portfoliosim sweep --config sim.yaml --param cash_reserve=0.05,0.1 --param max_drawdown=0.1,0.2`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", nil, "swept setting as key=v1,v2 (repeatable)")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 4, "sessions run at once (0 = unlimited)")
	sweepCmd.MarkFlagRequired("param")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	params := make([]config.Param, 0, len(sweepParams))
	for _, raw := range sweepParams {
		p, err := config.ParseParam(raw)
		if err != nil {
			return err
		}
		params = append(params, p)
	}
	configs, err := cfg.Expand(params)
	if err != nil {
		return err
	}

	src, err := openSources(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.close()

	jobs := make([]engine.SweepJob, 0, len(configs))
	for _, c := range configs {
		sp, err := c.StartParams(src.sectors)
		if err != nil {
			return err
		}
		jobs = append(jobs, engine.SweepJob{
			Engine: engine.NewEngine(src.prices, src.signals, c.EngineConfig(), log),
			Params: sp,
		})
	}

	log.Info().Int("sessions", len(jobs)).Int("parallel", sweepParallel).Msg("sweep started")
	sessions, err := engine.SweepJobs(ctx, jobs, sweepParallel)
	if err != nil {
		return err
	}

	reports := make([]*engine.Report, len(sessions))
	for i, s := range sessions {
		report, err := engine.Summarize(s, configs[i].Simulation.RiskFreeRate)
		if err != nil {
			log.Warn().Err(err).Str("session", s.ID()).Msg("no report")
			continue
		}
		reports[i] = report
	}
	printSweep(cmd.OutOrStdout(), reports)

	if cfg.Journal.Path != "" {
		j, err := journal.NewSQLite(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		for i, s := range sessions {
			if reports[i] == nil {
				continue
			}
			if err := j.RecordSession(ctx, s, reports[i]); err != nil {
				return fmt.Errorf("record session %s: %w", s.ID(), err)
			}
		}
		log.Info().Str("journal", cfg.Journal.Path).Msg("sweep recorded")
	}
	return nil
}

func printSweep(w io.Writer, reports []*engine.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tSTATUS\tFINAL VALUE\tRETURN %\tMAX DD %\tSHARPE\tTRADES\tALERTS")
	for _, r := range reports {
		if r == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.Label, r.Status, r.FinalValue.StringFixed(2),
			r.TotalReturn.Shift(2).StringFixed(2), r.MaxDrawdown.Shift(2).StringFixed(2),
			r.SharpeRatio.StringFixed(3), r.TradeCount, r.Alerts)
	}
	_ = tw.Flush()
}
