package main

import (
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/resonance/config"
)

// options shared by every subcommand
type rootOptions struct {
	verbose    bool
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{cfg: config.Default(), logger: slog.Default()}
	cmd := &cobra.Command{
		Use:   "resonance",
		Short: "A witness finalized ledger of contributions, validations and coherence",
		Long: `Resonance records content contributions, peer validations, evolutions and
anchors in blocks finalized by a quorum of staked witnesses, and rewards
participants with tokens.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			level := cfg.SlogLevel()
			if opts.verbose {
				level = slog.LevelDebug
			}
			// Create a new slog handler with the PTerm logger
			plog := pterm.DefaultLogger.WithLevel(ptermLevel(level)).WithWriter(os.Stderr)
			opts.logger = slog.New(pterm.NewSlogHandler(plog))
			slog.SetDefault(opts.logger)
			return nil
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")

	cmd.AddCommand(
		newIdentityCmd(),
		newSignCmd(),
		newDemoCmd(opts),
		newRunCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func ptermLevel(l slog.Level) pterm.LogLevel {
	switch {
	case l <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case l <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case l <= slog.LevelWarn:
		return pterm.LogLevelWarn
	}
	return pterm.LogLevelError
}
