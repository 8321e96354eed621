// Package confidence turns an enriched SignalComponents bundle plus a
// strategy proposal into a bounded confidence score, a quality tier and
// a position size.
package confidence

import (
	"math"

	"github.com/rs/zerolog"

	"signal-engine/internal/config"
	"signal-engine/internal/models"
)

// Neutral contribution used when an optional technique is absent. The
// technique's weight is never dropped, so confidence stays comparable
// across configurations with different technique availability.
const neutralValue = 0.5

// Gamma factors map to confidence by dividing by this scale, capped at 1.
const gammaConfidenceScale = 1.5

// Volatility above this level halves risk appetite via the 0.75 size cut.
const highVolatilityLevel = 1.5

// Result is the calculator's output for one evaluation.
type Result struct {
	Confidence   float64
	Tier         models.QualityTier
	PositionSize float64
}

// Calculator computes confidence, tier and size. Weights are
// renormalized once at construction; the instance is immutable and safe
// for concurrent use.
type Calculator struct {
	weights    map[string]float64
	thresholds models.Thresholds
	engine     config.EngineConfig
	tierTable  []tierRule
	logger     zerolog.Logger
}

type tierRule struct {
	tier  models.QualityTier
	match func(confidence float64, c *models.SignalComponents) bool
}

// NewCalculator constructs a calculator from configuration. An invalid
// weight map (unknown component, negative weight, zero total) is a
// construction error, never a runtime one.
func NewCalculator(cfg *config.Config, logger zerolog.Logger) (*Calculator, error) {
	if err := config.ValidateWeights(cfg.Weights); err != nil {
		return nil, err
	}

	calc := &Calculator{
		weights:    cfg.NormalizedWeights(),
		thresholds: cfg.Thresholds(),
		engine:     cfg.Engine,
		logger:     logger,
	}
	calc.tierTable = calc.buildTierTable()

	logger.Debug().
		Interface("weights", calc.weights).
		Msg("Confidence calculator initialized")

	return calc, nil
}

// Evaluate computes confidence, the quality tier and the base position
// size for one components/proposal pair.
func (c *Calculator) Evaluate(comp *models.SignalComponents, proposal *models.StrategyProposal) Result {
	conf := c.Confidence(comp, proposal)
	return Result{
		Confidence:   conf,
		Tier:         c.Tier(conf, comp),
		PositionSize: c.PositionSize(conf, comp),
	}
}

// Confidence computes the weighted composite. Required components
// contribute their score directly; optional techniques that are absent
// contribute the neutral 0.5 under their weight, clamp to [0,1] last.
func (c *Calculator) Confidence(comp *models.SignalComponents, proposal *models.StrategyProposal) float64 {
	total := 0.0

	strategyConf := neutralValue
	if proposal != nil {
		strategyConf = proposal.Confidence
	}
	total += strategyConf * c.weights["strategy"]

	// Pattern contributes its magnitude so long and short setups score
	// symmetrically; direction lives in the proposal.
	total += math.Abs(comp.PatternStrength) * c.weights["pattern"]
	total += comp.ConfluenceScore * c.weights["confluence"]
	total += comp.RegimeConfidence * c.weights["regime"]

	if comp.MTFScore != nil {
		total += ((math.Abs(*comp.MTFScore) + 1) / 2) * c.weights["mtf"]
	} else {
		total += neutralValue * c.weights["mtf"]
	}

	if comp.SmartMoneyConfidence != nil {
		total += *comp.SmartMoneyConfidence * c.weights["smart_money"]
	} else {
		total += neutralValue * c.weights["smart_money"]
	}

	if comp.MLConfidence != nil {
		total += *comp.MLConfidence * c.weights["ml_ensemble"]
	} else {
		total += neutralValue * c.weights["ml_ensemble"]
	}

	if comp.GammaFactor != nil {
		total += math.Min(*comp.GammaFactor/gammaConfidenceScale, 1.0) * c.weights["gamma"]
	} else {
		total += neutralValue * c.weights["gamma"]
	}

	return clamp(total, 0, 1)
}

// Tier classifies the signal. The table is ordered most exclusive first
// and the first matching rule wins; the confidence bands close the table
// so every input maps to exactly one tier.
func (c *Calculator) Tier(confidence float64, comp *models.SignalComponents) models.QualityTier {
	for _, rule := range c.tierTable {
		if rule.match(confidence, comp) {
			return rule.tier
		}
	}
	return models.TierRejected
}

func (c *Calculator) buildTierTable() []tierRule {
	t := c.thresholds
	return []tierRule{
		{models.TierUltimateElite, func(conf float64, comp *models.SignalComponents) bool {
			return c.patternStrong(comp) &&
				comp.MLIsApproved() &&
				comp.HasMLHighConfidence(t.MLHighConfidence) &&
				conf >= 0.80 &&
				comp.MeetsMTFElite(t.MTFElite) &&
				comp.IsInstitutional(t.Institutional) &&
				comp.GammaPhase != nil &&
				(*comp.GammaPhase == models.GammaPeak || *comp.GammaPhase == models.GammaModerate)
		}},
		{models.TierMLValidated, func(conf float64, comp *models.SignalComponents) bool {
			return c.patternStrong(comp) &&
				comp.MLIsApproved() &&
				comp.HasMLHighConfidence(t.MLHighConfidence) &&
				conf >= 0.75 &&
				comp.MeetsMTFElite(t.MTFElite) &&
				comp.IsInstitutional(t.Institutional)
		}},
		{models.TierGammaOptimized, func(conf float64, comp *models.SignalComponents) bool {
			return comp.IsGammaPeak() && conf >= 0.70
		}},
		{models.TierInstitutional, func(conf float64, comp *models.SignalComponents) bool {
			return comp.IsInstitutional(t.Institutional) && conf >= 0.70
		}},
		{models.TierElite, func(conf float64, comp *models.SignalComponents) bool {
			return comp.MeetsMTFElite(t.MTFElite) && conf >= 0.80
		}},
		{models.TierPremium, band(0.85)},
		{models.TierStrong, band(0.75)},
		{models.TierModerate, band(0.65)},
		{models.TierWeak, band(0.55)},
		{models.TierRejected, func(float64, *models.SignalComponents) bool { return true }},
	}
}

func band(floor float64) func(float64, *models.SignalComponents) bool {
	return func(conf float64, _ *models.SignalComponents) bool {
		return conf >= floor
	}
}

func (c *Calculator) patternStrong(comp *models.SignalComponents) bool {
	return comp.MeetsPatternLong(c.thresholds.PatternLong) ||
		comp.MeetsPatternShort(c.thresholds.PatternShort)
}

// BandMultiplier maps confidence to the base size multiplier.
func BandMultiplier(confidence float64) float64 {
	switch {
	case confidence >= 0.85:
		return 1.5
	case confidence >= 0.75:
		return 1.0
	case confidence >= 0.65:
		return 0.75
	default:
		return 0.5
	}
}

// PositionSize computes the contract count: base size scaled by the
// confidence band, then the multiplicative bonus chain in fixed order
// (MTF elite, institutional, smart-money alignment, ML high confidence,
// gamma factor, gamma peak, high-volatility cut), clamped to
// [0.5, max_position_size] as the final step.
func (c *Calculator) PositionSize(confidence float64, comp *models.SignalComponents) float64 {
	t := c.thresholds
	mult := BandMultiplier(confidence)

	if comp.MeetsMTFElite(t.MTFElite) {
		mult *= 1.25
	}
	if comp.IsInstitutional(t.Institutional) {
		mult *= 1.20
	}
	if comp.HasSmartMoneyAlignment() {
		mult *= 1.10
	}
	if comp.HasMLHighConfidence(t.MLHighConfidence) {
		mult *= 1.15
	}
	if comp.GammaFactor != nil {
		mult *= *comp.GammaFactor
		if comp.IsGammaPeak() {
			mult *= 1.05
		}
	}
	if comp.Volatility > highVolatilityLevel {
		mult *= 0.75
	}

	size := c.engine.BasePositionSize * mult
	return clamp(size, 0.5, c.engine.MaxPositionSize)
}

// Breakdown reports each component's contribution, for diagnostics.
func (c *Calculator) Breakdown(comp *models.SignalComponents, proposal *models.StrategyProposal) map[string]float64 {
	out := make(map[string]float64, len(c.weights))

	strategyConf := neutralValue
	if proposal != nil {
		strategyConf = proposal.Confidence
	}
	out["strategy"] = strategyConf * c.weights["strategy"]
	out["pattern"] = math.Abs(comp.PatternStrength) * c.weights["pattern"]
	out["confluence"] = comp.ConfluenceScore * c.weights["confluence"]
	out["regime"] = comp.RegimeConfidence * c.weights["regime"]

	mtf := neutralValue
	if comp.MTFScore != nil {
		mtf = (math.Abs(*comp.MTFScore) + 1) / 2
	}
	out["mtf"] = mtf * c.weights["mtf"]

	sm := neutralValue
	if comp.SmartMoneyConfidence != nil {
		sm = *comp.SmartMoneyConfidence
	}
	out["smart_money"] = sm * c.weights["smart_money"]

	ml := neutralValue
	if comp.MLConfidence != nil {
		ml = *comp.MLConfidence
	}
	out["ml_ensemble"] = ml * c.weights["ml_ensemble"]

	gamma := neutralValue
	if comp.GammaFactor != nil {
		gamma = math.Min(*comp.GammaFactor/gammaConfidenceScale, 1.0)
	}
	out["gamma"] = gamma * c.weights["gamma"]

	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
