package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"portfoliosim/internal/config"
	"portfoliosim/internal/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	pretty   bool

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "portfoliosim",
	Short: "Risk-gated portfolio simulation",
	Long: `Portfoliosim replays daily closes and trading signals through a cash and
position ledger. Every trade passes a risk gate that enforces position and
sector weight limits, and every day is checked for drawdown, daily loss,
value at risk and concentration.

Commands:
  - run:     simulate a single session and print its report
  - sweep:   run one session per combination of swept parameters
  - serve:   run a session in the background behind an HTTP status API
  - version: print the version

Example:
  portfoliosim run --config sim.yaml
  portfoliosim sweep --config sim.yaml --param cash_reserve=0.05,0.1`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("pretty") {
			cfg.Log.Pretty = pretty
		}
		log = logger.New(cfg.Log)
		logger.SetGlobalLogger(log)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable console logs")
}
