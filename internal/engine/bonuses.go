package engine

import (
	"math"

	"signal-engine/internal/models"
)

// applyEliteBonuses runs the tiered bonus pipeline over an executable
// signal. The order is load-bearing: tier-specific bonuses run lowest
// tier first so later upgrades overwrite earlier ones, and the
// Ultimate-Elite check runs last because it re-reads the already
// boosted state. Every applied bonus is clamped and recorded in
// Metadata.
func (g *Generator) applyEliteBonuses(s *models.FinalSignal) {
	c := s.Components
	t := g.cfg.Thresholds()

	if c.MeetsMTFElite(t.MTFElite) {
		g.applyMTFEliteBonus(s)
	}

	if c.MeetsSmartMoney(t.SmartMoneyConfidence) && c.IsInstitutional(t.Institutional) {
		g.applyInstitutionalBonus(s)
	}
	if c.HasSmartMoneyAlignment() {
		g.applyAlignmentBonus(s)
	}

	if c.HasMLHighConfidence(t.MLHighConfidence) {
		g.applyMLHighConfidenceBonus(s)
	}
	if g.isMLValidated(c) {
		g.applyMLValidatedUpgrade(s)
	}

	if c.IsGammaFavorable() {
		g.applyGammaOptimization(s)
	}
	if g.isUltimateElite(c) {
		g.applyUltimateEliteUpgrade(s)
	}
}

// isMLValidated reports whether all four non-gamma techniques clear
// their thresholds simultaneously.
func (g *Generator) isMLValidated(c *models.SignalComponents) bool {
	t := g.cfg.Thresholds()
	return (c.MeetsPatternLong(t.PatternLong) || c.MeetsPatternShort(t.PatternShort)) &&
		c.MeetsMTFElite(t.MTFElite) &&
		c.MeetsSmartMoney(t.SmartMoneyConfidence) &&
		c.MLIsApproved()
}

// isUltimateElite reports whether all five techniques clear their
// thresholds simultaneously.
func (g *Generator) isUltimateElite(c *models.SignalComponents) bool {
	return g.isMLValidated(c) && c.IsGammaFavorable()
}

func (g *Generator) applyMTFEliteBonus(s *models.FinalSignal) {
	if s.QualityTier.Rank() < models.TierElite.Rank() {
		s.QualityTier = models.TierElite
	}
	before := s.Confidence
	s.Confidence = math.Min(1.0, s.Confidence*1.15)
	if s.Confidence > 0.85 {
		s.PositionSize = g.clampSize(s.PositionSize * 1.25)
	}
	s.Metadata["mtf_elite_bonus"] = s.Confidence - before
}

func (g *Generator) applyInstitutionalBonus(s *models.FinalSignal) {
	if s.QualityTier.Rank() < models.TierInstitutional.Rank() {
		s.QualityTier = models.TierInstitutional
	}
	before := s.Confidence
	score := s.Components.InstitutionalScore()
	s.Confidence = math.Min(1.0, s.Confidence*(1.0+score*0.12))
	if score > 0.8 {
		s.PositionSize = g.clampSize(s.PositionSize * 1.20)
	}
	s.Metadata["institutional_bonus"] = s.Confidence - before
}

func (g *Generator) applyAlignmentBonus(s *models.FinalSignal) {
	before := s.Confidence
	s.Confidence = math.Min(1.0, s.Confidence*1.15)
	s.PositionSize = g.clampSize(s.PositionSize * 1.10)
	s.Metadata["smart_money_alignment_bonus"] = s.Confidence - before
}

func (g *Generator) applyMLHighConfidenceBonus(s *models.FinalSignal) {
	before := s.Confidence
	s.Confidence = math.Min(1.0, s.Confidence*1.08)
	s.PositionSize = g.clampSize(s.PositionSize * 1.15)
	s.Metadata["ml_high_confidence_bonus"] = s.Confidence - before
}

func (g *Generator) applyMLValidatedUpgrade(s *models.FinalSignal) {
	s.QualityTier = models.TierMLValidated
	s.Source = models.SourceMLValidated
	before := s.Confidence
	s.Confidence = math.Min(1.0, s.Confidence*1.05)
	s.Metadata["ml_validated_upgrade"] = s.Confidence - before
}

func (g *Generator) applyGammaOptimization(s *models.FinalSignal) {
	c := s.Components

	confAdj, sizeAdj := 1.0, 1.0
	if c.Gamma != nil {
		confAdj = c.Gamma.ConfidenceAdjustment
		sizeAdj = c.Gamma.SizeAdjustment
	}

	beforeConf := s.Confidence
	beforeSize := s.PositionSize
	s.Confidence = math.Min(1.0, s.Confidence*confAdj)
	s.PositionSize = g.clampSize(s.PositionSize * sizeAdj)

	if c.IsGammaPeak() {
		switch s.QualityTier {
		case models.TierMLValidated, models.TierElite, models.TierUltimateElite:
		default:
			s.QualityTier = models.TierGammaOptimized
		}
	}

	phase := "unknown"
	if c.GammaPhase != nil {
		phase = string(*c.GammaPhase)
	}
	s.Metadata["gamma_optimization"] = map[string]any{
		"confidence_boost": s.Confidence - beforeConf,
		"position_boost":   s.PositionSize - beforeSize,
		"gamma_phase":      phase,
	}
}

func (g *Generator) applyUltimateEliteUpgrade(s *models.FinalSignal) {
	s.QualityTier = models.TierUltimateElite
	s.Source = models.SourceGammaOptimized
	before := s.Confidence
	s.Confidence = math.Min(1.0, s.Confidence*1.10)
	s.PositionSize = g.clampSize(s.PositionSize * 1.50)
	s.Metadata["ultimate_elite_upgrade"] = s.Confidence - before
}

func (g *Generator) clampSize(size float64) float64 {
	return math.Min(g.cfg.Engine.MaxPositionSize, size)
}
