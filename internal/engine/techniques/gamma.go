package techniques

import (
	"time"

	"github.com/rs/zerolog"

	"signal-engine/internal/config"
	"signal-engine/internal/models"
)

// GammaCycleAnalyzer asks the expiration cycle collaborator for the
// current phase and writes the size adjustment factor into the
// components.
type GammaCycleAnalyzer struct {
	cycles  CycleAnalyzer
	enabled bool
	logger  zerolog.Logger
}

// NewGammaCycleAnalyzer constructs the analyzer. A nil collaborator
// disables the technique.
func NewGammaCycleAnalyzer(cycles CycleAnalyzer, logger zerolog.Logger) *GammaCycleAnalyzer {
	return &GammaCycleAnalyzer{
		cycles:  cycles,
		enabled: cycles != nil,
		logger:  logger,
	}
}

// Enabled reports availability.
func (g *GammaCycleAnalyzer) Enabled() bool {
	return g.enabled
}

// Enrich writes the gamma analysis into the components. On collaborator
// failure the factor falls back to the neutral 1.0 with no phase, so
// sizing is untouched and no gamma tier can trigger.
func (g *GammaCycleAnalyzer) Enrich(in Inputs, c *models.SignalComponents) {
	if !g.enabled {
		return
	}

	analysis, err := g.cycles.Analyze(in.Market.Timestamp)
	if err != nil || analysis == nil {
		warnEnrichment(g.logger, "gamma_cycles", err)
		neutral := 1.0
		c.GammaFactor = &neutral
		return
	}

	factor := analysis.AdjustmentFactor
	phase := analysis.Phase
	c.Gamma = analysis
	c.GammaFactor = &factor
	c.GammaPhase = &phase

	g.logger.Debug().
		Str("phase", string(phase)).
		Float64("factor", factor).
		Msg("Gamma cycle analyzed")
}

// ExpiryCycleAnalyzer is the built-in CycleAnalyzer. It derives the
// gamma phase from the distance to the monthly options expiration (the
// third Friday) and maps phases to the configured adjustment factors.
type ExpiryCycleAnalyzer struct {
	gamma config.GammaConfig
}

// NewExpiryCycleAnalyzer constructs the calendar-based cycle analyzer.
func NewExpiryCycleAnalyzer(gamma config.GammaConfig) *ExpiryCycleAnalyzer {
	return &ExpiryCycleAnalyzer{gamma: gamma}
}

// Analyze returns the gamma analysis for ts.
func (e *ExpiryCycleAnalyzer) Analyze(ts time.Time) (*models.GammaAnalysis, error) {
	days := daysToExpiry(ts)

	var phase models.GammaPhase
	var factor float64
	var reasoning string
	switch {
	case days >= 0 && days <= 2:
		phase = models.GammaExpiryWeek
		factor = e.gamma.ExpiryWeekFactor
		reasoning = "expiration imminent, dealer hedging compresses ranges"
	case days >= 3 && days <= 5:
		phase = models.GammaPeak
		factor = e.gamma.PeakFactor
		reasoning = "peak gamma window ahead of expiration"
	case days >= 6 && days <= 10:
		phase = models.GammaModerate
		factor = e.gamma.ModerateFactor
		reasoning = "moderate gamma build-up"
	case daysSinceExpiry(ts) <= 2:
		phase = models.GammaPostExpiry
		factor = e.gamma.PostExpiryFactor
		reasoning = "post-expiration repositioning"
	default:
		phase = models.GammaNormal
		factor = e.gamma.NormalFactor
		reasoning = "no expiration influence"
	}

	return &models.GammaAnalysis{
		Phase:                phase,
		AdjustmentFactor:     factor,
		ConfidenceAdjustment: 1.0,
		SizeAdjustment:       factor,
		Reasoning:            reasoning,
	}, nil
}

// thirdFriday returns the monthly expiration date for the given month.
func thirdFriday(year int, month time.Month, loc *time.Location) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(time.Friday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+14)
}

// daysToExpiry returns the number of days until the next expiration,
// negative when the current month's expiration already passed and the
// next one is in the following month (handled by rolling forward).
func daysToExpiry(ts time.Time) int {
	expiry := thirdFriday(ts.Year(), ts.Month(), ts.Location())
	if dayOf(ts).After(dayOf(expiry)) {
		next := ts.AddDate(0, 1, 0)
		expiry = thirdFriday(next.Year(), next.Month(), ts.Location())
	}
	return int(dayOf(expiry).Sub(dayOf(ts)).Hours() / 24)
}

// daysSinceExpiry returns the number of days since the most recent
// expiration.
func daysSinceExpiry(ts time.Time) int {
	expiry := thirdFriday(ts.Year(), ts.Month(), ts.Location())
	if dayOf(ts).Before(dayOf(expiry)) {
		prev := ts.AddDate(0, -1, 0)
		expiry = thirdFriday(prev.Year(), prev.Month(), ts.Location())
	}
	return int(dayOf(ts).Sub(dayOf(expiry)).Hours() / 24)
}

func dayOf(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}
