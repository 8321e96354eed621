package engine

import (
	"math"
	"testing"
	"time"

	"signal-engine/internal/config"
	"signal-engine/internal/models"
)

func boolPtr(v bool) *bool { return &v }

func TestTrackFrequencyBoost(t *testing.T) {
	tracker := NewStatsTracker(config.Default().Thresholds())

	// 0.30 clears the current 0.25 threshold but not the legacy 0.35.
	mild := models.NewSignalComponents(time.Now())
	mild.PatternStrength = 0.30

	strong := models.NewSignalComponents(time.Now())
	strong.PatternStrength = 0.50

	tracker.TrackFrequency(strong)
	tracker.TrackFrequency(mild)
	tracker.TrackFrequency(mild)

	stats := tracker.Snapshot()
	if stats.LegacyThresholdSignals != 1 {
		t.Errorf("LegacyThresholdSignals = %d, want 1", stats.LegacyThresholdSignals)
	}
	if stats.CurrentThresholdSignals != 3 {
		t.Errorf("CurrentThresholdSignals = %d, want 3", stats.CurrentThresholdSignals)
	}
	if math.Abs(stats.FrequencyBoostPct-200.0) > 1e-9 {
		t.Errorf("FrequencyBoostPct = %v, want 200", stats.FrequencyBoostPct)
	}
}

func TestRecordSignalCountersAndAverage(t *testing.T) {
	tracker := NewStatsTracker(config.Default().Thresholds())

	c := models.NewSignalComponents(time.Now())
	c.PatternStrength = 0.5
	c.MTFScore = floatPtr(0.80)
	c.SmartMoneyConfidence = floatPtr(0.75)
	c.SmartMoneyInstitutional = floatPtr(0.80)
	c.MLApproved = boolPtr(true)
	c.MLConfidence = floatPtr(0.90)
	peak := models.GammaPeak
	c.GammaPhase = &peak
	c.GammaFactor = floatPtr(1.3)

	executable := &models.FinalSignal{
		Decision:    models.ExecuteLong,
		QualityTier: models.TierElite,
		Source:      models.SourceMTFElite,
		Regime:      models.RegimeTrendBull,
		Components:  c,
	}
	rejected := &models.FinalSignal{
		Decision:    models.WaitBetterSetup,
		QualityTier: models.TierRejected,
		Regime:      models.RegimeTrendBull,
	}

	tracker.RecordSignal(executable, 2*time.Millisecond)
	tracker.RecordSignal(rejected, 4*time.Millisecond)

	stats := tracker.Snapshot()
	if stats.SignalsGenerated != 2 || stats.SignalsExecuted != 1 {
		t.Errorf("generated/executed = %d/%d, want 2/1", stats.SignalsGenerated, stats.SignalsExecuted)
	}
	if math.Abs(stats.AvgGenerationMs-3.0) > 1e-9 {
		t.Errorf("AvgGenerationMs = %v, want 3.0", stats.AvgGenerationMs)
	}
	if stats.MTFEliteSignals != 1 {
		t.Errorf("MTFEliteSignals = %d, want 1", stats.MTFEliteSignals)
	}
	if stats.SmartMoneySignals != 1 || stats.InstitutionalCount != 1 {
		t.Errorf("smart money/institutional = %d/%d, want 1/1", stats.SmartMoneySignals, stats.InstitutionalCount)
	}
	if stats.MLApprovedSignals != 1 || stats.MLHighConfidence != 1 {
		t.Errorf("ml approved/high = %d/%d, want 1/1", stats.MLApprovedSignals, stats.MLHighConfidence)
	}
	if stats.GammaOptimized != 1 || stats.GammaPeakSignals != 1 || stats.GammaImpactPositive != 1 {
		t.Errorf("gamma counters = %d/%d/%d, want 1/1/1",
			stats.GammaOptimized, stats.GammaPeakSignals, stats.GammaImpactPositive)
	}
	if stats.QualityDistribution[models.TierElite] != 1 {
		t.Errorf("QualityDistribution[ELITE] = %d, want 1", stats.QualityDistribution[models.TierElite])
	}
	if stats.RegimeDistribution[models.RegimeTrendBull] != 2 {
		t.Errorf("RegimeDistribution[TREND_BULL] = %d, want 2", stats.RegimeDistribution[models.RegimeTrendBull])
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	tracker := NewStatsTracker(config.Default().Thresholds())
	tracker.RecordSignal(&models.FinalSignal{
		Decision:    models.NoTrade,
		QualityTier: models.TierRejected,
		Regime:      models.RegimeUnknown,
	}, time.Millisecond)

	snap := tracker.Snapshot()
	snap.QualityDistribution[models.TierElite] = 99

	if tracker.Snapshot().QualityDistribution[models.TierElite] != 0 {
		t.Error("mutating a snapshot must not touch the tracker")
	}
}
