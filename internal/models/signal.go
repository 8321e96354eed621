package models

import (
	"math"
	"time"
)

// Decision represents the actionable outcome of one evaluation.
type Decision string

const (
	ExecuteLong     Decision = "EXECUTE_LONG"
	ExecuteShort    Decision = "EXECUTE_SHORT"
	ExitPosition    Decision = "EXIT_POSITION"
	WaitBetterSetup Decision = "WAIT_BETTER_SETUP"
	NoTrade         Decision = "NO_TRADE"
)

// IsExecutable reports whether the decision opens a position.
func (d Decision) IsExecutable() bool {
	return d == ExecuteLong || d == ExecuteShort
}

// QualityTier classifies a signal by how many technique thresholds it
// satisfies simultaneously. Tiers are ordered; Rank gives the ordering.
type QualityTier string

const (
	TierUltimateElite  QualityTier = "ULTIMATE_ELITE"
	TierMLValidated    QualityTier = "ML_VALIDATED"
	TierGammaOptimized QualityTier = "GAMMA_OPTIMIZED"
	TierInstitutional  QualityTier = "INSTITUTIONAL"
	TierElite          QualityTier = "ELITE"
	TierPremium        QualityTier = "PREMIUM"
	TierStrong         QualityTier = "STRONG"
	TierModerate       QualityTier = "MODERATE"
	TierWeak           QualityTier = "WEAK"
	TierRejected       QualityTier = "REJECTED"
)

var tierRanks = map[QualityTier]int{
	TierRejected:       0,
	TierWeak:           1,
	TierModerate:       2,
	TierStrong:         3,
	TierPremium:        4,
	TierElite:          5,
	TierInstitutional:  6,
	TierGammaOptimized: 7,
	TierMLValidated:    8,
	TierUltimateElite:  9,
}

// Rank returns the tier's position in the quality ordering, higher is better.
func (q QualityTier) Rank() int {
	return tierRanks[q]
}

// AtLeast reports whether q ranks at or above other.
func (q QualityTier) AtLeast(other QualityTier) bool {
	return q.Rank() >= other.Rank()
}

// SignalSource names the technique family that drove the signal.
type SignalSource string

const (
	SourceGammaOptimized SignalSource = "GAMMA_OPTIMIZED"
	SourceMLValidated    SignalSource = "ML_VALIDATED"
	SourceInstitutional  SignalSource = "INSTITUTIONAL"
	SourceMTFElite       SignalSource = "MTF_ELITE"
	SourcePattern        SignalSource = "PATTERN"
	SourceTrendStrategy  SignalSource = "TREND_STRATEGY"
	SourceRangeStrategy  SignalSource = "RANGE_STRATEGY"
)

// MLPrediction is the output of the ML ensemble collaborator.
type MLPrediction struct {
	Approved   bool
	Confidence float64
}

// GammaAnalysis is the output of the options-cycle collaborator.
type GammaAnalysis struct {
	Phase                GammaPhase
	AdjustmentFactor     float64
	ConfidenceAdjustment float64
	SizeAdjustment       float64
	Reasoning            string
}

// StrategyProposal is a directional trade candidate from the strategy
// collaborator. Direction is ExecuteLong or ExecuteShort.
type StrategyProposal struct {
	Direction  Decision
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Confidence float64
	Rationale  string
}

// SignalComponents aggregates all analysis outputs for one evaluation.
// Pointer fields are optional: nil means the technique was unavailable
// for this cycle. Each field is written once by its analyzer and never
// mutated after the signal is emitted.
type SignalComponents struct {
	Timestamp time.Time

	// Required base analyses.
	PatternStrength  float64 // directional, [-1,1]
	ConfluenceScore  float64 // [0,1]
	Regime           Regime
	RegimeConfidence float64 // [0,1]
	Volatility       float64 // normalized, 1.0 = average

	// Multi-timeframe confluence.
	MTFScore *float64 // [-1,1]

	// Smart-money order flow.
	SmartMoneyConfidence    *float64 // [0,1]
	SmartMoneyInstitutional *float64 // [0,1]
	SmartMoneyScore         *float64 // directional, [-1,1]

	// ML ensemble filter.
	MLConfidence *float64 // [0,1]
	MLApproved   *bool

	// Gamma expiration cycle.
	GammaFactor *float64
	GammaPhase  *GammaPhase
	Gamma       *GammaAnalysis
}

// NewSignalComponents returns an empty bundle for one evaluation cycle.
func NewSignalComponents(ts time.Time) *SignalComponents {
	return &SignalComponents{Timestamp: ts}
}

// MeetsPatternLong reports whether the pattern signal clears the long threshold.
func (c *SignalComponents) MeetsPatternLong(threshold float64) bool {
	return c.PatternStrength > threshold
}

// MeetsPatternShort reports whether the pattern signal clears the short threshold.
func (c *SignalComponents) MeetsPatternShort(threshold float64) bool {
	return c.PatternStrength < threshold
}

// MeetsMTFElite reports whether the MTF score is beyond the elite threshold
// in either direction.
func (c *SignalComponents) MeetsMTFElite(threshold float64) bool {
	return c.MTFScore != nil && math.Abs(*c.MTFScore) > threshold
}

// MTFStrength returns |mtf score|, 0 when unavailable.
func (c *SignalComponents) MTFStrength() float64 {
	if c.MTFScore == nil {
		return 0
	}
	return math.Abs(*c.MTFScore)
}

// MeetsSmartMoney reports whether smart-money confidence clears threshold.
func (c *SignalComponents) MeetsSmartMoney(threshold float64) bool {
	return c.SmartMoneyConfidence != nil && *c.SmartMoneyConfidence > threshold
}

// IsInstitutional reports whether the institutional-flow score clears threshold.
func (c *SignalComponents) IsInstitutional(threshold float64) bool {
	return c.SmartMoneyInstitutional != nil && *c.SmartMoneyInstitutional > threshold
}

// InstitutionalScore returns the institutional-flow score, 0 when unavailable.
func (c *SignalComponents) InstitutionalScore() float64 {
	if c.SmartMoneyInstitutional == nil {
		return 0
	}
	return *c.SmartMoneyInstitutional
}

// HasSmartMoneyAlignment reports whether the directional smart-money score
// points the same way as the pattern signal with meaningful strength.
func (c *SignalComponents) HasSmartMoneyAlignment() bool {
	if c.SmartMoneyScore == nil {
		return false
	}
	score := *c.SmartMoneyScore
	aligned := (c.PatternStrength > 0 && score > 0) || (c.PatternStrength < 0 && score < 0)
	return aligned && math.Abs(score) > 0.3
}

// MLIsApproved reports whether the ML ensemble explicitly approved the signal.
func (c *SignalComponents) MLIsApproved() bool {
	return c.MLApproved != nil && *c.MLApproved
}

// MLIsVetoed reports whether the ML ensemble explicitly rejected the signal.
func (c *SignalComponents) MLIsVetoed() bool {
	return c.MLApproved != nil && !*c.MLApproved
}

// HasMLHighConfidence reports whether ML confidence exceeds threshold.
func (c *SignalComponents) HasMLHighConfidence(threshold float64) bool {
	return c.MLConfidence != nil && *c.MLConfidence > threshold
}

// GammaAdjustment returns the gamma size factor, 1.0 when unavailable.
func (c *SignalComponents) GammaAdjustment() float64 {
	if c.GammaFactor == nil {
		return 1.0
	}
	return *c.GammaFactor
}

// IsGammaPeak reports whether the current phase is the gamma peak window.
func (c *SignalComponents) IsGammaPeak() bool {
	return c.GammaPhase != nil && *c.GammaPhase == GammaPeak
}

// IsGammaFavorable reports whether the gamma phase supports size expansion.
func (c *SignalComponents) IsGammaFavorable() bool {
	if c.GammaPhase == nil {
		return false
	}
	switch *c.GammaPhase {
	case GammaPeak, GammaModerate, GammaPostExpiry:
		return true
	}
	return false
}

// Thresholds carries the technique thresholds needed by the composite
// predicates. Populated from configuration.
type Thresholds struct {
	PatternLong          float64
	PatternShort         float64
	MTFElite             float64
	SmartMoneyConfidence float64
	Institutional        float64
	MLHighConfidence     float64
}

// ValidatedTechniques lists the technique names whose thresholds the
// components satisfy for the given trade direction.
func (c *SignalComponents) ValidatedTechniques(t Thresholds, direction Decision) []string {
	var out []string
	switch direction {
	case ExecuteLong:
		if c.MeetsPatternLong(t.PatternLong) {
			out = append(out, "pattern")
		}
	case ExecuteShort:
		if c.MeetsPatternShort(t.PatternShort) {
			out = append(out, "pattern")
		}
	}
	if c.MeetsMTFElite(t.MTFElite) {
		out = append(out, "mtf_elite")
	}
	if c.MeetsSmartMoney(t.SmartMoneyConfidence) {
		out = append(out, "smart_money")
	}
	if c.MLIsApproved() {
		out = append(out, "ml_ensemble")
	}
	if c.IsGammaFavorable() {
		out = append(out, "gamma_cycle")
	}
	return out
}

// FinalSignal is the immutable output of one evaluation.
type FinalSignal struct {
	Timestamp   time.Time
	Symbol      string
	Decision    Decision
	Confidence  float64
	QualityTier QualityTier

	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	PositionSize float64

	Source     SignalSource
	Regime     Regime
	Components *SignalComponents
	Reasoning  string

	RiskReward     float64
	MaxRiskDollars float64

	GenerationTime time.Duration
	Metadata       map[string]any
}

// IsExecutable reports whether the signal opens a position.
func (s *FinalSignal) IsExecutable() bool {
	return s.Decision.IsExecutable()
}

// StopTicks returns the stop distance expressed in ticks.
func (s *FinalSignal) StopTicks() float64 {
	return math.Abs(s.EntryPrice-s.StopLoss) / TickSize
}

// NewRejectedSignal builds the terminal result for a rejected evaluation.
// Rejections carry zero size and record the reason in both Reasoning and
// Metadata for the journal.
func NewRejectedSignal(ts time.Time, symbol string, decision Decision, regime Regime, components *SignalComponents, reason string) *FinalSignal {
	if components == nil {
		components = NewSignalComponents(ts)
	}
	return &FinalSignal{
		Timestamp:   ts,
		Symbol:      symbol,
		Decision:    decision,
		Confidence:  0,
		QualityTier: TierRejected,
		Source:      SourcePattern,
		Regime:      regime,
		Components:  components,
		Reasoning:   reason,
		Metadata:    map[string]any{"rejection_reason": reason},
	}
}
