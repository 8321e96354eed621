package techniques

import (
	"github.com/rs/zerolog"

	"signal-engine/internal/models"
)

// Average ES bar range in points, used as the volatility denominator.
const avgBarRangePoints = 15.0

// SessionPhase classifies the trading session by hour of day.
type SessionPhase string

const (
	SessionUSOpen    SessionPhase = "US_OPEN"
	SessionUS        SessionPhase = "US_SESSION"
	SessionUSClose   SessionPhase = "US_CLOSE"
	SessionOvernight SessionPhase = "OVERNIGHT"
)

// DetectSessionPhase returns the session phase for a snapshot timestamp.
func DetectSessionPhase(in Inputs) SessionPhase {
	hour := in.Market.Timestamp.Hour()
	switch {
	case hour >= 9 && hour < 10:
		return SessionUSOpen
	case hour >= 10 && hour < 15:
		return SessionUS
	case hour >= 15 && hour < 16:
		return SessionUSClose
	default:
		return SessionOvernight
	}
}

// EstimateVolatility returns a quick volatility proxy from the bar range,
// normalized so 1.0 is an average bar, capped at 2.0.
func EstimateVolatility(m models.MarketSnapshot) float64 {
	v := m.Range() / avgBarRangePoints
	if v > 2.0 {
		return 2.0
	}
	return v
}

// MTFAnalyzer scores multi-timeframe alignment from a volatility estimate
// and the session phase. The score lands in [-1, 1]; values beyond the
// elite threshold in either direction mark elite confluence.
type MTFAnalyzer struct {
	enabled bool
	logger  zerolog.Logger
}

// NewMTFAnalyzer constructs the MTF analyzer. It has no external
// collaborator, so it is always available.
func NewMTFAnalyzer(logger zerolog.Logger) *MTFAnalyzer {
	return &MTFAnalyzer{enabled: true, logger: logger}
}

// Enabled reports availability.
func (m *MTFAnalyzer) Enabled() bool {
	return m.enabled
}

// Enrich writes the MTF confluence score into the components.
func (m *MTFAnalyzer) Enrich(in Inputs, c *models.SignalComponents) {
	if !m.enabled {
		return
	}

	score := m.score(in)
	c.MTFScore = &score

	m.logger.Debug().
		Float64("mtf_score", score).
		Str("session", string(DetectSessionPhase(in))).
		Msg("MTF confluence scored")
}

func (m *MTFAnalyzer) score(in Inputs) float64 {
	base := 0.5

	volatility := EstimateVolatility(in.Market)
	if in.Structure != nil && in.Structure.Volatility > 0 {
		volatility = in.Structure.Volatility
	}
	if volatility > 1.5 {
		base += 0.2
	} else if volatility < 0.5 {
		base -= 0.1
	}

	var sessionBonus float64
	switch DetectSessionPhase(in) {
	case SessionUSOpen:
		sessionBonus = 0.15
	case SessionUS:
		sessionBonus = 0.10
	case SessionUSClose:
		sessionBonus = 0.05
	}

	score := base + sessionBonus

	// Directional pattern alignment decides the sign: a bearish pattern
	// flips the confluence score negative so the elite check stays
	// direction-aware.
	if in.Structure != nil && in.Structure.PatternStrength < 0 {
		score = -score
	}

	return clamp(score, -1.0, 1.0)
}
