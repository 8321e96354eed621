// Package quality gates signal emission. Stage A enforces minimum
// quality before a proposal is requested, Stage B checks confluence-zone
// proximity with Elite overrides, and the risk stage vets the final
// trade parameters. Every rejection carries the first failing check as a
// human-readable reason, never a generic failure.
package quality

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"signal-engine/internal/config"
	"signal-engine/internal/logging"
	"signal-engine/internal/models"
)

// Stage names used in rejection logging and journal metadata.
const (
	StageMinimumQuality = "minimum_quality"
	StageConfluenceZone = "confluence_zone"
	StageRisk           = "risk"
)

// Validator holds the configured thresholds. Immutable after
// construction, safe for concurrent use.
type Validator struct {
	engine     config.EngineConfig
	thresholds models.Thresholds
	logger     zerolog.Logger
}

// NewValidator constructs a validator from configuration.
func NewValidator(cfg *config.Config, logger zerolog.Logger) *Validator {
	return &Validator{
		engine:     cfg.Engine,
		thresholds: cfg.Thresholds(),
		logger:     logging.WithStage(logger, "quality"),
	}
}

// ValidateMinimumQuality runs Stage A over the enriched components.
// Check order fixes the rejection priority: confluence floor, then the
// directional pattern thresholds, then the ML veto. The ML ensemble is
// a veto, not a bonus: an explicit ml_approved = false blocks execution
// regardless of every other score.
func (v *Validator) ValidateMinimumQuality(c *models.SignalComponents) (bool, string) {
	if c == nil {
		return false, "no analysis components available"
	}

	if c.ConfluenceScore < v.engine.MinConfluence {
		return false, fmt.Sprintf("insufficient confluence: %.3f < %.2f",
			c.ConfluenceScore, v.engine.MinConfluence)
	}

	validLong := c.MeetsPatternLong(v.thresholds.PatternLong)
	validShort := c.MeetsPatternShort(v.thresholds.PatternShort)
	if !validLong && !validShort {
		return false, fmt.Sprintf("pattern signal below thresholds: %.3f (long > %.2f, short < %.2f)",
			c.PatternStrength, v.thresholds.PatternLong, v.thresholds.PatternShort)
	}

	if v.engine.MLEnabled && c.MLIsVetoed() {
		conf := 0.0
		if c.MLConfidence != nil {
			conf = *c.MLConfidence
		}
		return false, fmt.Sprintf("rejected by ML ensemble: confidence %.3f below %.2f",
			conf, v.engine.MLConfidenceThreshold)
	}

	return true, ""
}

// ValidateConfluenceZone runs Stage B against the proposal's entry
// price. Traditional validation requires the entry within the
// configured distance of the nearest support or resistance zone; when
// it fails, any single Elite override rescues the signal: elite MTF
// confluence, smart-money alignment with the pattern, or gamma-peak
// timing. Overrides are OR'd.
func (v *Validator) ValidateConfluenceZone(c *models.SignalComponents, proposal *models.StrategyProposal, structure *models.StructureSnapshot) (bool, string) {
	distance, ok := v.zoneDistance(proposal, structure)
	if !ok || distance <= v.engine.ZoneProximityPoints {
		return true, ""
	}

	if c.MeetsMTFElite(v.thresholds.MTFElite) {
		v.logger.Debug().Msg("Zone proximity overridden by elite MTF confluence")
		return true, ""
	}
	if c.HasSmartMoneyAlignment() {
		v.logger.Debug().Msg("Zone proximity overridden by smart money alignment")
		return true, ""
	}
	if c.IsGammaPeak() {
		v.logger.Debug().Msg("Zone proximity overridden by gamma peak timing")
		return true, ""
	}

	return false, fmt.Sprintf("entry %.2f is %.2f points from nearest confluence zone (limit %.2f)",
		proposal.EntryPrice, distance, v.engine.ZoneProximityPoints)
}

// zoneDistance returns the distance from the proposal entry to the
// closest confluence zone. ok is false when no zone data exists, in
// which case Stage B accepts by default.
func (v *Validator) zoneDistance(proposal *models.StrategyProposal, structure *models.StructureSnapshot) (float64, bool) {
	if proposal == nil || structure == nil {
		return 0, false
	}
	if structure.NearestSupport == nil && structure.NearestResistance == nil {
		return 0, false
	}

	min := math.Inf(1)
	if z := structure.NearestSupport; z != nil {
		min = math.Min(min, math.Abs(proposal.EntryPrice-z.CenterPrice))
	}
	if z := structure.NearestResistance; z != nil {
		min = math.Min(min, math.Abs(proposal.EntryPrice-z.CenterPrice))
	}
	return min, true
}

// ValidateRisk runs Stage C over the assembled signal: risk/reward
// floor, stop distance ceiling in ticks, position size bounds.
func (v *Validator) ValidateRisk(s *models.FinalSignal) (bool, string) {
	if s.RiskReward < v.engine.MinRiskReward {
		return false, fmt.Sprintf("risk/reward too low: %.2f < %.2f",
			s.RiskReward, v.engine.MinRiskReward)
	}

	ticks := s.StopTicks()
	if ticks > v.engine.MaxStopTicks {
		return false, fmt.Sprintf("stop too wide: %.1f ticks > %.1f", ticks, v.engine.MaxStopTicks)
	}

	if s.PositionSize <= 0 || s.PositionSize > v.engine.MaxPositionSize {
		return false, fmt.Sprintf("invalid position size: %.2f (max %.2f)",
			s.PositionSize, v.engine.MaxPositionSize)
	}

	return true, ""
}
