package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"signal-engine/internal/engine"
	"signal-engine/internal/engine/techniques"
	"signal-engine/internal/models"
)

func newEvaluateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <snapshot.json>",
		Short: "Replay a market snapshot through the engine",
		Long: `Evaluate reads a JSON snapshot file containing market, order flow,
options and structure data, runs one full engine evaluation offline,
and prints the resulting decision.

The file holds one object with Market, OrderFlow, Options and
Structure keys matching the engine's snapshot types. OrderFlow,
Options and Structure may be omitted; absent techniques fall back to
their neutral defaults.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			in, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}

			gen, err := engine.NewGenerator(app.Config, engine.Options{
				Cycles:  techniques.NewExpiryCycleAnalyzer(app.Config.Gamma),
				Journal: app.Journal,
			}, app.Logger)
			if err != nil {
				return err
			}

			signal := gen.Evaluate(*in)

			if output.IsJSON() {
				return output.JSON(signal)
			}
			printSignal(output, signal)
			return nil
		},
	}
	return cmd
}

func loadSnapshot(path string) (*techniques.Inputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var in techniques.Inputs
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if in.Market.Symbol == "" {
		return nil, fmt.Errorf("snapshot missing market symbol")
	}
	return &in, nil
}

func printSignal(output *Output, s *models.FinalSignal) {
	output.Bold("%s  %s", s.Symbol, FormatDateTime(s.Timestamp))
	output.Printf("  Decision:    %s\n", output.Decision(s.Decision))
	output.Printf("  Tier:        %s\n", output.Tier(s.QualityTier))
	output.Printf("  Confidence:  %s\n", FormatConfidence(s.Confidence))
	output.Printf("  Regime:      %s\n", s.Regime)
	output.Printf("  Source:      %s\n", s.Source)

	if s.IsExecutable() {
		output.Println()
		output.Bold("Trade Plan")
		output.Printf("  Entry:       %s\n", FormatPrice(s.EntryPrice))
		output.Printf("  Stop:        %s (%s)\n", FormatPrice(s.StopLoss), FormatTicks(s.StopTicks()*models.TickSize))
		output.Printf("  Target:      %s\n", FormatPrice(s.TakeProfit))
		output.Printf("  Size:        %s\n", FormatSize(s.PositionSize))
		output.Printf("  Risk/Reward: %s\n", FormatRiskReward(s.RiskReward))
		output.Printf("  Max Risk:    %s\n", FormatDollars(s.MaxRiskDollars))
	} else if reason, ok := s.Metadata["rejection_reason"].(string); ok {
		output.Println()
		output.Warning("Rejected: %s", reason)
	}

	if s.Reasoning != "" {
		output.Println()
		output.Dim("%s", s.Reasoning)
	}
	output.Println()
	output.Dim("evaluated in %s", FormatLatency(s.GenerationTime))
}
