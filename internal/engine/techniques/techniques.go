// Package techniques implements the four technique analyzers that enrich
// a SignalComponents bundle: multi-timeframe confluence, smart-money flow,
// the ML ensemble filter and the gamma expiration cycle adjuster.
//
// Analyzers run in a fixed order because later analyzers consume scores
// written by earlier ones. Availability is resolved once at construction
// and never re-checked per call. An analyzer that fails mid-evaluation
// writes neutral defaults and logs at warn; enrichment never blocks the
// pipeline.
package techniques

import (
	"time"

	"github.com/rs/zerolog"

	"signal-engine/internal/config"
	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/logging"
	"signal-engine/internal/models"
)

// Predictor is the ML ensemble collaborator.
type Predictor interface {
	Predict(features map[string]float64) (*models.MLPrediction, error)
}

// CycleAnalyzer is the options expiration cycle collaborator.
type CycleAnalyzer interface {
	Analyze(ts time.Time) (*models.GammaAnalysis, error)
}

// Inputs bundles the read-only snapshots supplied per evaluation.
type Inputs struct {
	Market    models.MarketSnapshot
	OrderFlow *models.OrderFlowSnapshot
	Options   *models.OptionsSnapshot
	Structure *models.StructureSnapshot
}

// Analyzers coordinates the technique analyzers in their fixed order.
type Analyzers struct {
	mtf        *MTFAnalyzer
	smartMoney *SmartMoneyAnalyzer
	ml         *MLEnsembleAnalyzer
	gamma      *GammaCycleAnalyzer
	logger     zerolog.Logger
}

// NewAnalyzers constructs the coordinator. A nil predictor disables the
// ML filter, a nil cycle analyzer disables gamma; both are decided here,
// once, for the lifetime of the coordinator.
func NewAnalyzers(cfg *config.Config, predictor Predictor, cycles CycleAnalyzer, logger zerolog.Logger) *Analyzers {
	a := &Analyzers{
		mtf:        NewMTFAnalyzer(logging.WithTechnique(logger, "mtf")),
		smartMoney: NewSmartMoneyAnalyzer(logging.WithTechnique(logger, "smart_money")),
		ml:         NewMLEnsembleAnalyzer(predictor, cfg.Engine.MLEnabled, logging.WithTechnique(logger, "ml_ensemble")),
		gamma:      NewGammaCycleAnalyzer(cycles, logging.WithTechnique(logger, "gamma_cycles")),
		logger:     logger,
	}
	logger.Info().
		Bool("mtf", a.mtf.Enabled()).
		Bool("smart_money", a.smartMoney.Enabled()).
		Bool("ml_ensemble", a.ml.Enabled()).
		Bool("gamma_cycles", a.gamma.Enabled()).
		Msg("Technique analyzers initialized")
	return a
}

// EnrichAll runs every enabled analyzer against the components, in order:
// MTF, smart money, ML ensemble, gamma. The ML feature vector reads the
// MTF and smart-money scores, so the order is load-bearing.
func (a *Analyzers) EnrichAll(in Inputs, c *models.SignalComponents) {
	start := time.Now()

	a.mtf.Enrich(in, c)
	a.smartMoney.Enrich(in, c)
	a.ml.Enrich(in, c)
	a.gamma.Enrich(in, c)

	a.logger.Debug().
		Dur("duration", time.Since(start)).
		Msg("Technique enrichment completed")
}

// Status reports which techniques are available.
func (a *Analyzers) Status() map[string]bool {
	return map[string]bool{
		"mtf":          a.mtf.Enabled(),
		"smart_money":  a.smartMoney.Enabled(),
		"ml_ensemble":  a.ml.Enabled(),
		"gamma_cycles": a.gamma.Enabled(),
	}
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

func warnEnrichment(logger zerolog.Logger, technique string, err error) {
	logging.LogEnrichment(logger, technique, apperrors.NewTechniqueError(technique, "enrich", err))
}
