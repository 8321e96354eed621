package engine

import (
	"sync"
	"time"

	"signal-engine/internal/models"
)

// Legacy directional pattern thresholds kept for the frequency
// comparison: how many more signals the current thresholds admit versus
// the old, tighter ones.
const (
	legacyPatternLong  = 0.35
	legacyPatternShort = -0.35
)

// Stats is a point-in-time copy of the tracker's counters.
type Stats struct {
	SignalsGenerated int
	SignalsExecuted  int
	AvgGenerationMs  float64

	QualityDistribution map[models.QualityTier]int
	RegimeDistribution  map[models.Regime]int
	SourceDistribution  map[models.SignalSource]int

	MTFEliteSignals     int
	MTFStandardSignals  int
	SmartMoneySignals   int
	InstitutionalCount  int
	MLApprovedSignals   int
	MLHighConfidence    int
	GammaOptimized      int
	GammaPeakSignals    int
	GammaImpactPositive int
	GammaImpactNegative int

	LegacyThresholdSignals  int
	CurrentThresholdSignals int
	FrequencyBoostPct       float64
}

// StatsTracker maintains monitoring counters across evaluations. All
// methods are safe for concurrent use and never return an error: stats
// are advisory, they must not disturb the pipeline.
type StatsTracker struct {
	mu         sync.Mutex
	stats      Stats
	thresholds models.Thresholds
}

// NewStatsTracker constructs an empty tracker.
func NewStatsTracker(thresholds models.Thresholds) *StatsTracker {
	return &StatsTracker{
		stats: Stats{
			QualityDistribution: make(map[models.QualityTier]int),
			RegimeDistribution:  make(map[models.Regime]int),
			SourceDistribution:  make(map[models.SignalSource]int),
		},
		thresholds: thresholds,
	}
}

// TrackFrequency records how the components score against the legacy
// and current pattern thresholds. Runs once per evaluation, before
// validation, so rejected cycles count too.
func (t *StatsTracker) TrackFrequency(c *models.SignalComponents) {
	if c == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if c.PatternStrength > legacyPatternLong || c.PatternStrength < legacyPatternShort {
		t.stats.LegacyThresholdSignals++
	}
	if c.MeetsPatternLong(t.thresholds.PatternLong) || c.MeetsPatternShort(t.thresholds.PatternShort) {
		t.stats.CurrentThresholdSignals++
	}
	if old := t.stats.LegacyThresholdSignals; old > 0 {
		t.stats.FrequencyBoostPct = float64(t.stats.CurrentThresholdSignals-old) / float64(old) * 100
	}
}

// RecordSignal folds an emitted signal into the counters.
func (t *StatsTracker) RecordSignal(s *models.FinalSignal, generation time.Duration) {
	if s == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.SignalsGenerated++
	count := float64(t.stats.SignalsGenerated)
	ms := float64(generation.Microseconds()) / 1000.0
	t.stats.AvgGenerationMs += (ms - t.stats.AvgGenerationMs) / count

	t.stats.QualityDistribution[s.QualityTier]++
	t.stats.RegimeDistribution[s.Regime]++
	t.stats.SourceDistribution[s.Source]++

	c := s.Components
	if c != nil {
		if c.MeetsMTFElite(t.thresholds.MTFElite) {
			t.stats.MTFEliteSignals++
		} else if c.MTFStrength() > 0 {
			t.stats.MTFStandardSignals++
		}
		if c.MeetsSmartMoney(t.thresholds.SmartMoneyConfidence) {
			t.stats.SmartMoneySignals++
		}
		if c.IsInstitutional(t.thresholds.Institutional) {
			t.stats.InstitutionalCount++
		}
		if c.MLIsApproved() {
			t.stats.MLApprovedSignals++
		}
		if c.HasMLHighConfidence(t.thresholds.MLHighConfidence) {
			t.stats.MLHighConfidence++
		}
		if c.IsGammaFavorable() {
			t.stats.GammaOptimized++
		}
		if c.IsGammaPeak() {
			t.stats.GammaPeakSignals++
		}
		if c.GammaFactor != nil {
			switch {
			case *c.GammaFactor > 1.0:
				t.stats.GammaImpactPositive++
			case *c.GammaFactor < 1.0:
				t.stats.GammaImpactNegative++
			}
		}
	}

	if s.IsExecutable() {
		t.stats.SignalsExecuted++
	}
}

// Snapshot returns a deep copy of the counters.
func (t *StatsTracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.stats
	out.QualityDistribution = make(map[models.QualityTier]int, len(t.stats.QualityDistribution))
	for k, v := range t.stats.QualityDistribution {
		out.QualityDistribution[k] = v
	}
	out.RegimeDistribution = make(map[models.Regime]int, len(t.stats.RegimeDistribution))
	for k, v := range t.stats.RegimeDistribution {
		out.RegimeDistribution[k] = v
	}
	out.SourceDistribution = make(map[models.SignalSource]int, len(t.stats.SourceDistribution))
	for k, v := range t.stats.SourceDistribution {
		out.SourceDistribution[k] = v
	}
	return out
}

// ExecutionRate returns executed/generated, 0 when nothing generated.
func (s Stats) ExecutionRate() float64 {
	if s.SignalsGenerated == 0 {
		return 0
	}
	return float64(s.SignalsExecuted) / float64(s.SignalsGenerated)
}
