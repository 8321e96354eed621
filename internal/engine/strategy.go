package engine

import (
	"fmt"
	"math"

	"signal-engine/internal/engine/techniques"
	"signal-engine/internal/models"
)

// StrategyProvider produces a directional trade candidate for the
// detected regime, or nil when no setup exists. Implementations must be
// pure over their inputs; the generator calls them synchronously inside
// an evaluation.
type StrategyProvider interface {
	Propose(regime models.Regime, in techniques.Inputs, c *models.SignalComponents) *models.StrategyProposal
}

// TrendRangeProvider is the built-in strategy: trend regimes follow the
// pattern direction with a structure-based stop, range regimes fade
// toward the opposite zone. Transition regimes produce no proposal.
type TrendRangeProvider struct{}

// NewTrendRangeProvider constructs the default provider.
func NewTrendRangeProvider() *TrendRangeProvider {
	return &TrendRangeProvider{}
}

// Propose implements StrategyProvider.
func (p *TrendRangeProvider) Propose(regime models.Regime, in techniques.Inputs, c *models.SignalComponents) *models.StrategyProposal {
	switch {
	case regime.IsTrending():
		return p.proposeTrend(in, c)
	case regime.IsRanging():
		return p.proposeRange(in, c)
	default:
		// Transition and unknown regimes sit out.
		return nil
	}
}

func (p *TrendRangeProvider) proposeTrend(in techniques.Inputs, c *models.SignalComponents) *models.StrategyProposal {
	if c.PatternStrength == 0 {
		return nil
	}

	entry := in.Market.Close
	long := c.PatternStrength > 0

	stop := p.structureStop(in, entry, long)
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return nil
	}

	target := entry + 2*risk
	direction := models.ExecuteLong
	if !long {
		target = entry - 2*risk
		direction = models.ExecuteShort
	}

	conf := clampFloat(0.55+0.30*math.Abs(c.PatternStrength)+0.10*c.RegimeConfidence, 0, 1)

	return &models.StrategyProposal{
		Direction:  direction,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: conf,
		Rationale:  fmt.Sprintf("trend continuation, pattern %.2f", c.PatternStrength),
	}
}

func (p *TrendRangeProvider) proposeRange(in techniques.Inputs, c *models.SignalComponents) *models.StrategyProposal {
	if in.Structure == nil || c.PatternStrength == 0 {
		return nil
	}

	entry := in.Market.Close
	long := c.PatternStrength > 0

	// Range trades need both edges: stop beyond the entry-side zone,
	// target at the far zone.
	support, resistance := in.Structure.NearestSupport, in.Structure.NearestResistance
	if support == nil || resistance == nil {
		return nil
	}

	var stop, target float64
	direction := models.ExecuteLong
	if long {
		stop = support.CenterPrice - support.Width
		target = resistance.CenterPrice
	} else {
		direction = models.ExecuteShort
		stop = resistance.CenterPrice + resistance.Width
		target = support.CenterPrice
	}

	if math.Abs(entry-stop) == 0 {
		return nil
	}

	conf := clampFloat(0.50+0.25*math.Abs(c.PatternStrength)+0.15*c.ConfluenceScore, 0, 1)

	return &models.StrategyProposal{
		Direction:  direction,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: conf,
		Rationale:  fmt.Sprintf("range rotation toward %.2f", target),
	}
}

// structureStop places the stop beyond the entry-side confluence zone
// when one exists, otherwise two points from entry.
func (p *TrendRangeProvider) structureStop(in techniques.Inputs, entry float64, long bool) float64 {
	const fallbackStopPoints = 2.0

	if s := in.Structure; s != nil {
		if long && s.NearestSupport != nil && s.NearestSupport.CenterPrice < entry {
			return s.NearestSupport.CenterPrice - s.NearestSupport.Width
		}
		if !long && s.NearestResistance != nil && s.NearestResistance.CenterPrice > entry {
			return s.NearestResistance.CenterPrice + s.NearestResistance.Width
		}
	}

	if long {
		return entry - fallbackStopPoints
	}
	return entry + fallbackStopPoints
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
