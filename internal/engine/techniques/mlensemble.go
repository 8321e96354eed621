package techniques

import (
	"github.com/rs/zerolog"

	"signal-engine/internal/models"
)

// MLEnsembleAnalyzer runs the ML ensemble filter over a feature vector
// assembled from the snapshots plus the scores written by the earlier
// analyzers. ml_approved acts as a veto downstream, so this analyzer
// must run after MTF and smart money.
type MLEnsembleAnalyzer struct {
	predictor Predictor
	enabled   bool
	logger    zerolog.Logger
}

// NewMLEnsembleAnalyzer constructs the analyzer. Availability requires
// both the config flag and a live predictor; a nil predictor (missing
// model artifacts) disables the technique for the analyzer's lifetime.
func NewMLEnsembleAnalyzer(predictor Predictor, enabled bool, logger zerolog.Logger) *MLEnsembleAnalyzer {
	return &MLEnsembleAnalyzer{
		predictor: predictor,
		enabled:   enabled && predictor != nil,
		logger:    logger,
	}
}

// Enabled reports availability.
func (m *MLEnsembleAnalyzer) Enabled() bool {
	return m.enabled
}

// Enrich calls the predictor and writes confidence and approval into the
// components. A predictor failure leaves the fields nil: the technique
// is treated as absent for the cycle, it never vetoes by accident.
func (m *MLEnsembleAnalyzer) Enrich(in Inputs, c *models.SignalComponents) {
	if !m.enabled {
		return
	}

	features := m.BuildFeatures(in, c)

	prediction, err := m.predictor.Predict(features)
	if err != nil || prediction == nil {
		warnEnrichment(m.logger, "ml_ensemble", err)
		return
	}

	confidence := clamp(prediction.Confidence, 0, 1)
	approved := prediction.Approved
	c.MLConfidence = &confidence
	c.MLApproved = &approved

	m.logger.Debug().
		Float64("confidence", confidence).
		Bool("approved", approved).
		Msg("ML ensemble prediction")
}

// BuildFeatures assembles the predictor's feature vector. Missing inputs
// fall back to the neutral 0.5 so the vector shape is stable across
// technique availability.
func (m *MLEnsembleAnalyzer) BuildFeatures(in Inputs, c *models.SignalComponents) map[string]float64 {
	features := map[string]float64{
		"momentum_flow":       0.5,
		"volume_profile":      0.5,
		"trend_alignment":     0.5,
		"support_resistance":  0.5,
		"volatility_regime":   0.5,
		"time_factor":         0.5,
		"confluence_score":    0.5,
		"market_regime_score": 0.5,
	}

	if in.Structure != nil {
		features["momentum_flow"] = clamp((in.Structure.PatternStrength+1)/2, 0, 1)
		features["trend_alignment"] = clamp(in.Structure.RegimeConfidence, 0, 1)
		features["support_resistance"] = clamp(in.Structure.ConfluenceScore, 0, 1)
		if in.Structure.VolumeConfirmation != nil {
			features["volume_profile"] = clamp(*in.Structure.VolumeConfirmation, 0, 1)
		}
		if in.Structure.Volatility > 0 {
			features["volatility_regime"] = clamp(in.Structure.Volatility/2, 0, 1)
		}
	}

	switch DetectSessionPhase(in) {
	case SessionUSOpen:
		features["time_factor"] = 0.9
	case SessionUS:
		features["time_factor"] = 0.7
	case SessionUSClose:
		features["time_factor"] = 0.6
	default:
		features["time_factor"] = 0.3
	}

	if c.MTFScore != nil {
		features["confluence_score"] = clamp((*c.MTFScore+1)/2, 0, 1)
	}
	if c.SmartMoneyConfidence != nil {
		features["market_regime_score"] = clamp(*c.SmartMoneyConfidence, 0, 1)
	}

	return features
}
