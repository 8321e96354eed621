package cli

import (
	"time"

	"github.com/spf13/cobra"

	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
	"signal-engine/internal/store"
)

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the signal journal",
		Long:  "List and summarize signals persisted by the engine.",
	}

	cmd.AddCommand(newJournalListCmd(app))
	cmd.AddCommand(newJournalStatsCmd(app))

	return cmd
}

func newJournalListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Journal == nil {
				return apperrors.ErrJournalUnavailable
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			tier, _ := cmd.Flags().GetString("tier")
			limit, _ := cmd.Flags().GetInt("limit")
			days, _ := cmd.Flags().GetInt("days")
			executableOnly, _ := cmd.Flags().GetBool("executable")

			filter := store.SignalFilter{
				Symbol: symbol,
				Tier:   models.QualityTier(tier),
				Limit:  limit,
			}
			if days > 0 {
				filter.StartDate = time.Now().AddDate(0, 0, -days)
			}
			if executableOnly {
				executable := true
				filter.Executable = &executable
			}

			signals, err := app.Journal.GetSignals(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(signals)
			}
			if len(signals) == 0 {
				output.Dim("No signals found.")
				return nil
			}

			table := NewTable(output, "TIME", "SYMBOL", "DECISION", "TIER", "CONF", "SIZE", "R:R")
			for _, s := range signals {
				table.AddRow(
					FormatDateTime(s.Timestamp),
					s.Symbol,
					output.Decision(s.Decision),
					output.Tier(s.QualityTier),
					FormatConfidence(s.Confidence),
					FormatSize(s.PositionSize),
					FormatRiskReward(s.RiskReward),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().String("tier", "", "filter by quality tier")
	cmd.Flags().Int("limit", 20, "maximum signals to show")
	cmd.Flags().Int("days", 0, "only signals from the last N days")
	cmd.Flags().Bool("executable", false, "only executable signals")

	return cmd
}

func newJournalStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the signal journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Journal == nil {
				return apperrors.ErrJournalUnavailable
			}

			days, _ := cmd.Flags().GetInt("days")
			var from time.Time
			if days > 0 {
				from = time.Now().AddDate(0, 0, -days)
			}

			stats, err := app.Journal.GetSignalStats(cmd.Context(), from, time.Time{})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(stats)
			}

			output.Bold("Journal Summary")
			output.Printf("  Signals:        %d\n", stats.Total)
			output.Printf("  Executed:       %d (%.1f%%)\n", stats.Executed, stats.ExecutionRate()*100)
			output.Printf("  Avg Confidence: %s\n", FormatConfidence(stats.AvgConfidence))
			if !stats.FirstTimestamp.IsZero() {
				output.Printf("  Range:          %s → %s\n",
					FormatDateTime(stats.FirstTimestamp), FormatDateTime(stats.LastTimestamp))
			}

			if len(stats.ByTier) > 0 {
				output.Println()
				output.Bold("By Tier")
				for tier, count := range stats.ByTier {
					output.Printf("  %-16s %d\n", tier, count)
				}
			}
			if len(stats.ByDecision) > 0 {
				output.Println()
				output.Bold("By Decision")
				for decision, count := range stats.ByDecision {
					output.Printf("  %-18s %d\n", decision, count)
				}
			}
			return nil
		},
	}

	cmd.Flags().Int("days", 0, "only signals from the last N days")

	return cmd
}
