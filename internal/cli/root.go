package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"signal-engine/internal/config"
	"signal-engine/internal/logging"
	"signal-engine/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies shared by the commands.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Journal store.Journal
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Journal.Enabled {
		journal, err := store.NewSQLiteJournal(cfg.Journal.Path)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to open signal journal, persistence disabled")
		} else {
			app.Journal = journal
			logger.Debug().Str("path", cfg.Journal.Path).Msg("Signal journal opened")
		}
	}

	rootCmd := &cobra.Command{
		Use:   "signal-engine",
		Short: "Futures signal fusion and decision engine",
		Long: `Signal engine fuses multi-technique market analysis into trade decisions.

It scores pattern, confluence, regime, multi-timeframe, smart-money, ML
ensemble and gamma-cycle inputs into one confidence value, gates the
result through quality and risk validation, and journals every decision.

Use 'signal-engine help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/signal-engine)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newEvaluateCmd(app))
	rootCmd.AddCommand(newJournalCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Signal Engine v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage engine configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a template configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			path, err := config.WriteTemplate(dir)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Success("✓ Template written to %s", path)
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Engine Thresholds")
	output.Printf("  Pattern Long:     %.2f\n", cfg.Engine.PatternLongThreshold)
	output.Printf("  Pattern Short:    %.2f\n", cfg.Engine.PatternShortThreshold)
	output.Printf("  Min Confluence:   %.2f\n", cfg.Engine.MinConfluence)
	output.Printf("  MTF Elite:        %.2f\n", cfg.Engine.MTFEliteThreshold)
	output.Printf("  Smart Money:      %.2f\n", cfg.Engine.SmartMoneyConfidence)
	output.Printf("  Institutional:    %.2f\n", cfg.Engine.InstitutionalScore)
	output.Printf("  ML Enabled:       %v\n", cfg.Engine.MLEnabled)
	output.Printf("  ML Threshold:     %.2f\n", cfg.Engine.MLConfidenceThreshold)
	output.Println()

	output.Bold("Risk Limits")
	output.Printf("  Min Risk/Reward:  %.1f\n", cfg.Engine.MinRiskReward)
	output.Printf("  Max Stop Ticks:   %.0f\n", cfg.Engine.MaxStopTicks)
	output.Printf("  Base Size:        %.2f\n", cfg.Engine.BasePositionSize)
	output.Printf("  Max Size:         %.2f\n", cfg.Engine.MaxPositionSize)
	output.Printf("  Zone Proximity:   %.1f pts\n", cfg.Engine.ZoneProximityPoints)
	output.Println()

	output.Bold("Confidence Weights")
	for _, key := range config.WeightKeys {
		output.Printf("  %-14s %.2f\n", key+":", cfg.Weights[key])
	}
	output.Println()

	output.Bold("Journal")
	output.Printf("  Enabled:          %v\n", cfg.Journal.Enabled)
	output.Printf("  Path:             %s\n", cfg.Journal.Path)

	return nil
}
