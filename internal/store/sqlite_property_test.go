package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"signal-engine/internal/models"
)

// Property: for any valid signal, saving it to the journal and reading
// it back should produce an equivalent signal (round-trip consistency).
func TestProperty_SignalRoundTripConsistency(t *testing.T) {
	dbPath := "test_signals_property.db"
	defer os.Remove(dbPath)
	defer os.Remove(dbPath + "-wal")
	defer os.Remove(dbPath + "-shm")

	journal, err := NewSQLiteJournal(dbPath)
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	defer journal.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	decisions := []models.Decision{
		models.ExecuteLong, models.ExecuteShort,
		models.WaitBetterSetup, models.NoTrade,
	}
	tiers := []models.QualityTier{
		models.TierUltimateElite, models.TierMLValidated, models.TierGammaOptimized,
		models.TierInstitutional, models.TierElite, models.TierPremium,
		models.TierStrong, models.TierModerate, models.TierWeak, models.TierRejected,
	}

	var seq int

	properties.Property("Signal round-trip: save then retrieve produces equivalent data", prop.ForAll(
		func(decisionIdx, tierIdx int, confidence, entry, stopOffset, size float64) bool {
			ctx := context.Background()
			seq++
			symbol := fmt.Sprintf("ES_%d", seq)
			ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC).Add(time.Duration(seq) * time.Minute)

			original := &models.FinalSignal{
				Timestamp:    ts,
				Symbol:       symbol,
				Decision:     decisions[decisionIdx%len(decisions)],
				Confidence:   confidence,
				QualityTier:  tiers[tierIdx%len(tiers)],
				EntryPrice:   entry,
				StopLoss:     entry - stopOffset,
				TakeProfit:   entry + 2*stopOffset,
				PositionSize: size,
				Source:       models.SourceTrendStrategy,
				Regime:       models.RegimeTrendBull,
				RiskReward:   2.0,
				Reasoning:    "round trip test",
				Metadata:     map[string]any{"seq": float64(seq)},
			}

			if err := journal.SaveSignal(original); err != nil {
				t.Logf("Failed to save signal: %v", err)
				return false
			}

			retrieved, err := journal.GetSignals(ctx, SignalFilter{Symbol: symbol})
			if err != nil {
				t.Logf("Failed to get signals: %v", err)
				return false
			}
			if len(retrieved) != 1 {
				t.Logf("Count mismatch: expected 1, got %d", len(retrieved))
				return false
			}

			got := retrieved[0]
			if !signalsEqual(original, &got) {
				t.Logf("Signal mismatch: original=%+v, retrieved=%+v", original, got)
				return false
			}
			return true
		},
		gen.IntRange(0, len(decisions)-1),
		gen.IntRange(0, len(tiers)-1),
		gen.Float64Range(0, 1),
		gen.Float64Range(4000, 6000),
		gen.Float64Range(0.25, 5.0),
		gen.Float64Range(0.5, 3.0),
	))

	properties.Property("Executable filter: only EXECUTE decisions come back", prop.ForAll(
		func(decisionIdx int) bool {
			ctx := context.Background()
			executable := true
			signals, err := journal.GetSignals(ctx, SignalFilter{Executable: &executable})
			if err != nil {
				t.Logf("Failed to get signals: %v", err)
				return false
			}
			for _, s := range signals {
				if !s.IsExecutable() {
					t.Logf("Non-executable signal in executable query: %s", s.Decision)
					return false
				}
			}
			return true
		},
		gen.IntRange(0, len(decisions)-1),
	))

	properties.TestingRun(t)
}

func TestSignalStatsAggregation(t *testing.T) {
	dbPath := "test_signal_stats.db"
	defer os.Remove(dbPath)
	defer os.Remove(dbPath + "-wal")
	defer os.Remove(dbPath + "-shm")

	journal, err := NewSQLiteJournal(dbPath)
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	defer journal.Close()

	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	fixtures := []struct {
		decision   models.Decision
		tier       models.QualityTier
		confidence float64
	}{
		{models.ExecuteLong, models.TierPremium, 0.90},
		{models.ExecuteShort, models.TierStrong, 0.78},
		{models.WaitBetterSetup, models.TierRejected, 0.40},
		{models.NoTrade, models.TierRejected, 0.0},
	}

	for i, f := range fixtures {
		s := &models.FinalSignal{
			Timestamp:   ts.Add(time.Duration(i) * time.Minute),
			Symbol:      "ES",
			Decision:    f.decision,
			Confidence:  f.confidence,
			QualityTier: f.tier,
			Regime:      models.RegimeRangeTight,
		}
		if err := journal.SaveSignal(s); err != nil {
			t.Fatalf("SaveSignal: %v", err)
		}
	}

	stats, err := journal.GetSignalStats(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetSignalStats: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.Executed != 2 {
		t.Errorf("Executed = %d, want 2", stats.Executed)
	}
	if got := stats.ExecutionRate(); got != 0.5 {
		t.Errorf("ExecutionRate = %v, want 0.5", got)
	}
	if stats.ByTier[string(models.TierRejected)] != 2 {
		t.Errorf("ByTier[REJECTED] = %d, want 2", stats.ByTier[string(models.TierRejected)])
	}
	if stats.ByDecision[string(models.ExecuteLong)] != 1 {
		t.Errorf("ByDecision[EXECUTE_LONG] = %d, want 1", stats.ByDecision[string(models.ExecuteLong)])
	}
	wantAvg := (0.90 + 0.78 + 0.40 + 0.0) / 4
	if diff := stats.AvgConfidence - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AvgConfidence = %v, want %v", stats.AvgConfidence, wantAvg)
	}
}

// signalsEqual compares the journaled fields with float tolerance.
func signalsEqual(a, b *models.FinalSignal) bool {
	const tolerance = 1e-9

	if !a.Timestamp.Equal(b.Timestamp) || a.Symbol != b.Symbol {
		return false
	}
	if a.Decision != b.Decision || a.QualityTier != b.QualityTier {
		return false
	}
	if a.Source != b.Source || a.Regime != b.Regime {
		return false
	}
	return floatEqual(a.Confidence, b.Confidence, tolerance) &&
		floatEqual(a.EntryPrice, b.EntryPrice, tolerance) &&
		floatEqual(a.StopLoss, b.StopLoss, tolerance) &&
		floatEqual(a.TakeProfit, b.TakeProfit, tolerance) &&
		floatEqual(a.PositionSize, b.PositionSize, tolerance) &&
		floatEqual(a.RiskReward, b.RiskReward, tolerance)
}

// floatEqual compares two floats with a tolerance.
func floatEqual(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
