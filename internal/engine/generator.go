package engine

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signal-engine/internal/config"
	"signal-engine/internal/engine/confidence"
	"signal-engine/internal/engine/quality"
	"signal-engine/internal/engine/techniques"
	"signal-engine/internal/logging"
	"signal-engine/internal/models"
)

const historyLimit = 100

// SignalArchiver persists emitted signals. The journal store satisfies
// it; a nil archiver disables persistence.
type SignalArchiver interface {
	SaveSignal(s *models.FinalSignal) error
}

// FeatureSource supplies a structure snapshot when the caller has none,
// typically backed by a feature cache.
type FeatureSource interface {
	Structure(symbol string, ts time.Time) (*models.StructureSnapshot, error)
}

// Options carries the optional collaborators for a Generator. Nil
// fields disable the corresponding capability: no predictor means the
// ML filter sits out, no cycle analyzer disables gamma, no strategy
// falls back to the built-in trend/range provider, no journal skips
// persistence.
type Options struct {
	Predictor techniques.Predictor
	Cycles    techniques.CycleAnalyzer
	Strategy  StrategyProvider
	Journal   SignalArchiver
	Features  FeatureSource
}

// Generator orchestrates one full evaluation: enrich the component
// bundle, gate it through the quality stages, score it, and apply the
// elite bonus pipeline. Safe for concurrent use; each evaluation works
// on its own component bundle and only the signal history is shared.
type Generator struct {
	cfg        *config.Config
	analyzers  *techniques.Analyzers
	validator  *quality.Validator
	calculator *confidence.Calculator
	strategy   StrategyProvider
	journal    SignalArchiver
	features   FeatureSource
	stats      *StatsTracker
	logger     zerolog.Logger

	mu         sync.Mutex
	lastSignal *models.FinalSignal
	history    []*models.FinalSignal
}

// NewGenerator wires an engine from validated configuration.
func NewGenerator(cfg *config.Config, opts Options, logger zerolog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	calc, err := confidence.NewCalculator(cfg, logger)
	if err != nil {
		return nil, err
	}

	strategy := opts.Strategy
	if strategy == nil {
		strategy = NewTrendRangeProvider()
	}

	return &Generator{
		cfg:        cfg,
		analyzers:  techniques.NewAnalyzers(cfg, opts.Predictor, opts.Cycles, logger),
		validator:  quality.NewValidator(cfg, logger),
		calculator: calc,
		strategy:   strategy,
		journal:    opts.Journal,
		features:   opts.Features,
		stats:      NewStatsTracker(cfg.Thresholds()),
		logger:     logger.With().Str("component", "generator").Logger(),
	}, nil
}

// Evaluate runs the full pipeline over one market snapshot set and
// always returns a signal: executable, WAIT_BETTER_SETUP with the
// failing stage's reason, or NO_TRADE when no strategy fires.
func (g *Generator) Evaluate(in techniques.Inputs) *models.FinalSignal {
	started := time.Now()
	logger := logging.WithSymbol(g.logger, in.Market.Symbol)

	if in.Structure == nil && g.features != nil {
		structure, err := g.features.Structure(in.Market.Symbol, in.Market.Timestamp)
		if err != nil {
			logger.Warn().Err(err).Msg("Feature source lookup failed")
		} else {
			in.Structure = structure
		}
	}

	c := g.buildComponents(in)
	if in.Structure == nil {
		return g.finish(models.NewRejectedSignal(
			in.Market.Timestamp, in.Market.Symbol, models.NoTrade,
			c.Regime, c, "no structure analysis available",
		), started, logger)
	}

	g.analyzers.EnrichAll(in, c)
	g.stats.TrackFrequency(c)

	if ok, reason := g.validator.ValidateMinimumQuality(c); !ok {
		logging.LogRejection(logger, in.Market.Symbol, quality.StageMinimumQuality, reason)
		return g.finish(models.NewRejectedSignal(
			in.Market.Timestamp, in.Market.Symbol, models.WaitBetterSetup,
			c.Regime, c, reason,
		), started, logger)
	}

	proposal := g.strategy.Propose(c.Regime, in, c)
	if proposal == nil {
		return g.finish(models.NewRejectedSignal(
			in.Market.Timestamp, in.Market.Symbol, models.NoTrade,
			c.Regime, c, "no valid strategy proposal",
		), started, logger)
	}

	if ok, reason := g.validator.ValidateConfluenceZone(c, proposal, in.Structure); !ok {
		logging.LogRejection(logger, in.Market.Symbol, quality.StageConfluenceZone, reason)
		return g.finish(models.NewRejectedSignal(
			in.Market.Timestamp, in.Market.Symbol, models.WaitBetterSetup,
			c.Regime, c, reason,
		), started, logger)
	}

	s := g.buildSignal(in, c, proposal)

	if ok, reason := g.validator.ValidateRisk(s); !ok {
		logging.LogRejection(logger, in.Market.Symbol, quality.StageRisk, reason)
		return g.finish(models.NewRejectedSignal(
			in.Market.Timestamp, in.Market.Symbol, models.WaitBetterSetup,
			c.Regime, c, reason,
		), started, logger)
	}

	g.applyEliteBonuses(s)
	s.MaxRiskDollars = riskDollars(s.PositionSize, s.EntryPrice, s.StopLoss)
	s.Reasoning = g.buildReasoning(s, proposal)

	logging.LogSignal(logger, s.Symbol, string(s.Decision), string(s.QualityTier), s.Confidence, s.PositionSize)
	return g.finish(s, started, logger)
}

// buildComponents seeds the bundle from the structure snapshot. The
// base analyses are required; missing volatility falls back to the bar
// range estimate so downstream adjustments never divide by a dead zero.
func (g *Generator) buildComponents(in techniques.Inputs) *models.SignalComponents {
	c := models.NewSignalComponents(in.Market.Timestamp)
	c.Regime = models.RegimeUnknown

	if s := in.Structure; s != nil {
		c.PatternStrength = s.PatternStrength
		c.ConfluenceScore = s.ConfluenceScore
		c.Regime = s.Regime
		c.RegimeConfidence = s.RegimeConfidence
		c.Volatility = s.Volatility
	}
	if c.Volatility <= 0 {
		c.Volatility = techniques.EstimateVolatility(in.Market)
	}
	return c
}

func (g *Generator) buildSignal(in techniques.Inputs, c *models.SignalComponents, proposal *models.StrategyProposal) *models.FinalSignal {
	res := g.calculator.Evaluate(c, proposal)

	risk := math.Abs(proposal.EntryPrice - proposal.StopLoss)
	reward := math.Abs(proposal.TakeProfit - proposal.EntryPrice)
	rr := 0.0
	if risk > 0 {
		rr = reward / risk
	}

	s := &models.FinalSignal{
		Timestamp:      in.Market.Timestamp,
		Symbol:         in.Market.Symbol,
		Decision:       proposal.Direction,
		Confidence:     res.Confidence,
		QualityTier:    res.Tier,
		EntryPrice:     proposal.EntryPrice,
		StopLoss:       proposal.StopLoss,
		TakeProfit:     proposal.TakeProfit,
		PositionSize:   res.PositionSize,
		Source:         g.resolveSource(c),
		Regime:         c.Regime,
		Components:     c,
		RiskReward:     rr,
		MaxRiskDollars: riskDollars(res.PositionSize, proposal.EntryPrice, proposal.StopLoss),
		Metadata: map[string]any{
			"strategy_rationale":   proposal.Rationale,
			"confidence_breakdown": g.calculator.Breakdown(c, proposal),
			"techniques_available": g.analyzers.Status(),
		},
	}
	return s
}

// resolveSource picks the highest-priority technique family that
// contributed to the signal.
func (g *Generator) resolveSource(c *models.SignalComponents) models.SignalSource {
	t := g.cfg.Thresholds()
	switch {
	case g.isUltimateElite(c):
		return models.SourceGammaOptimized
	case c.MLIsApproved() && c.HasMLHighConfidence(t.MLHighConfidence):
		return models.SourceMLValidated
	case c.IsInstitutional(t.Institutional):
		return models.SourceInstitutional
	case c.MeetsMTFElite(t.MTFElite):
		return models.SourceMTFElite
	case math.Abs(c.PatternStrength) > 0.7:
		return models.SourcePattern
	case c.Regime.IsTrending():
		return models.SourceTrendStrategy
	default:
		return models.SourceRangeStrategy
	}
}

func (g *Generator) buildReasoning(s *models.FinalSignal, proposal *models.StrategyProposal) string {
	parts := []string{
		proposal.Rationale,
		fmt.Sprintf("tier %s at %.1f%% confidence", s.QualityTier, s.Confidence*100),
	}
	if names := s.Components.ValidatedTechniques(g.cfg.Thresholds(), s.Decision); len(names) > 0 {
		parts = append(parts, "confirmed by "+strings.Join(names, ", "))
	}
	if s.Components.IsGammaPeak() {
		parts = append(parts, "gamma peak window")
	}
	return strings.Join(parts, " | ")
}

// finish stamps timing, records stats, persists, and publishes the
// signal to the shared history.
func (g *Generator) finish(s *models.FinalSignal, started time.Time, logger zerolog.Logger) *models.FinalSignal {
	s.GenerationTime = time.Since(started)
	g.stats.RecordSignal(s, s.GenerationTime)

	if g.journal != nil {
		if err := g.journal.SaveSignal(s); err != nil {
			logger.Warn().Err(err).Msg("journal write failed")
		}
	}

	g.mu.Lock()
	g.lastSignal = s
	g.history = append(g.history, s)
	if len(g.history) > historyLimit {
		g.history = g.history[len(g.history)-historyLimit:]
	}
	g.mu.Unlock()

	logging.LogEvaluation(logger, s.Symbol, s.GenerationTime, string(s.Decision))
	return s
}

// LastSignal returns the most recently emitted signal, or nil.
func (g *Generator) LastSignal() *models.FinalSignal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSignal
}

// History returns a copy of the retained signal history, oldest first.
func (g *Generator) History() []*models.FinalSignal {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*models.FinalSignal, len(g.history))
	copy(out, g.history)
	return out
}

// Stats returns a snapshot of the generation counters.
func (g *Generator) Stats() Stats {
	return g.stats.Snapshot()
}

// TechniqueStatus reports which optional analyzers are active.
func (g *Generator) TechniqueStatus() map[string]bool {
	return g.analyzers.Status()
}

func riskDollars(size, entry, stop float64) float64 {
	return size * math.Abs(entry-stop) / models.TickSize * models.TickValue
}
