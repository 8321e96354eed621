package techniques

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"signal-engine/internal/config"
	"signal-engine/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func snapshotAt(hour int) Inputs {
	ts := time.Date(2026, 3, 2, hour, 30, 0, 0, time.UTC)
	return Inputs{
		Market: models.MarketSnapshot{
			Symbol:    "ES",
			Timestamp: ts,
			Open:      5000.0,
			High:      5007.5,
			Low:       4992.5,
			Close:     5005.0,
			Volume:    120000,
		},
		Structure: &models.StructureSnapshot{
			ConfluenceScore:  0.7,
			PatternStrength:  0.5,
			Volatility:       1.0,
			Regime:           models.RegimeTrendBull,
			RegimeConfidence: 0.7,
		},
	}
}

func TestDetectSessionPhase(t *testing.T) {
	cases := []struct {
		hour int
		want SessionPhase
	}{
		{9, SessionUSOpen},
		{10, SessionUS},
		{14, SessionUS},
		{15, SessionUSClose},
		{16, SessionOvernight},
		{3, SessionOvernight},
	}
	for _, c := range cases {
		if got := DetectSessionPhase(snapshotAt(c.hour)); got != c.want {
			t.Errorf("hour %d: phase = %v, want %v", c.hour, got, c.want)
		}
	}
}

func TestEstimateVolatility(t *testing.T) {
	m := models.MarketSnapshot{High: 5007.5, Low: 4992.5} // 15 point range
	if got := EstimateVolatility(m); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("EstimateVolatility = %v, want 1.0", got)
	}

	m = models.MarketSnapshot{High: 5100.0, Low: 5000.0}
	if got := EstimateVolatility(m); got != 2.0 {
		t.Errorf("EstimateVolatility = %v, want cap at 2.0", got)
	}
}

func TestMTFScore(t *testing.T) {
	analyzer := NewMTFAnalyzer(zerolog.Nop())

	cases := []struct {
		name  string
		setup func(*Inputs)
		want  float64
	}{
		{
			name:  "us open with normal volatility",
			setup: func(in *Inputs) {},
			want:  0.65, // base 0.5 + open 0.15
		},
		{
			name: "high volatility adds conviction",
			setup: func(in *Inputs) {
				in.Structure.Volatility = 1.8
			},
			want: 0.85,
		},
		{
			name: "quiet overnight tape",
			setup: func(in *Inputs) {
				in.Market.Timestamp = time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
				in.Structure.Volatility = 0.3
			},
			want: 0.4,
		},
		{
			name: "bearish pattern flips the sign",
			setup: func(in *Inputs) {
				in.Structure.PatternStrength = -0.5
			},
			want: -0.65,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := snapshotAt(9)
			tc.setup(&in)

			c := models.NewSignalComponents(in.Market.Timestamp)
			analyzer.Enrich(in, c)
			if c.MTFScore == nil {
				t.Fatal("MTFScore not written")
			}
			if math.Abs(*c.MTFScore-tc.want) > 1e-9 {
				t.Errorf("score = %v, want %v", *c.MTFScore, tc.want)
			}
		})
	}
}

func TestSmartMoneyEnrich(t *testing.T) {
	analyzer := NewSmartMoneyAnalyzer(zerolog.Nop())

	t.Run("dedicated feature drives all three scores", func(t *testing.T) {
		in := snapshotAt(10)
		in.Structure.SmartMoneyStrength = floatPtr(0.8)

		c := models.NewSignalComponents(in.Market.Timestamp)
		analyzer.Enrich(in, c)

		if c.SmartMoneyConfidence == nil || *c.SmartMoneyConfidence != 0.8 {
			t.Errorf("confidence = %v, want 0.8", c.SmartMoneyConfidence)
		}
		if c.SmartMoneyInstitutional == nil || *c.SmartMoneyInstitutional != 0.8 {
			t.Errorf("institutional = %v, want 0.8", c.SmartMoneyInstitutional)
		}
		if c.SmartMoneyScore == nil || math.Abs(*c.SmartMoneyScore-0.6) > 1e-9 {
			t.Errorf("score = %v, want 0.6", c.SmartMoneyScore)
		}
	})

	t.Run("weak feature zeroes the institutional score", func(t *testing.T) {
		in := snapshotAt(10)
		in.Structure.SmartMoneyStrength = floatPtr(0.6)

		c := models.NewSignalComponents(in.Market.Timestamp)
		analyzer.Enrich(in, c)

		if c.SmartMoneyInstitutional == nil || *c.SmartMoneyInstitutional != 0 {
			t.Errorf("institutional = %v, want 0", c.SmartMoneyInstitutional)
		}
	})

	t.Run("volume confirmation fallback is scaled and capped", func(t *testing.T) {
		in := snapshotAt(10)
		in.Structure.VolumeConfirmation = floatPtr(0.9)

		c := models.NewSignalComponents(in.Market.Timestamp)
		analyzer.Enrich(in, c)

		if c.SmartMoneyConfidence == nil || math.Abs(*c.SmartMoneyConfidence-0.72) > 1e-9 {
			t.Errorf("confidence = %v, want 0.72", c.SmartMoneyConfidence)
		}
	})

	t.Run("negative large trade bias flips the score", func(t *testing.T) {
		in := snapshotAt(10)
		in.Structure.SmartMoneyStrength = floatPtr(0.8)
		in.OrderFlow = &models.OrderFlowSnapshot{LargeTradeBias: -0.6}

		c := models.NewSignalComponents(in.Market.Timestamp)
		analyzer.Enrich(in, c)

		if c.SmartMoneyScore == nil || math.Abs(*c.SmartMoneyScore+0.6) > 1e-9 {
			t.Errorf("score = %v, want -0.6", c.SmartMoneyScore)
		}
	})

	t.Run("no feature leaves the technique absent", func(t *testing.T) {
		in := snapshotAt(10)

		c := models.NewSignalComponents(in.Market.Timestamp)
		analyzer.Enrich(in, c)

		if c.SmartMoneyConfidence != nil || c.SmartMoneyScore != nil {
			t.Error("fields should stay nil without smart money data")
		}
	})
}

type stubPredictor struct {
	prediction *models.MLPrediction
	err        error
	features   map[string]float64
}

func (p *stubPredictor) Predict(features map[string]float64) (*models.MLPrediction, error) {
	p.features = features
	return p.prediction, p.err
}

func TestMLEnsembleEnrich(t *testing.T) {
	t.Run("prediction writes confidence and approval", func(t *testing.T) {
		predictor := &stubPredictor{prediction: &models.MLPrediction{Approved: true, Confidence: 0.88}}
		analyzer := NewMLEnsembleAnalyzer(predictor, true, zerolog.Nop())

		c := models.NewSignalComponents(time.Now())
		analyzer.Enrich(snapshotAt(10), c)

		if c.MLConfidence == nil || *c.MLConfidence != 0.88 {
			t.Errorf("confidence = %v, want 0.88", c.MLConfidence)
		}
		if c.MLApproved == nil || !*c.MLApproved {
			t.Errorf("approved = %v, want true", c.MLApproved)
		}
	})

	t.Run("predictor failure leaves fields nil", func(t *testing.T) {
		predictor := &stubPredictor{err: errors.New("model file corrupt")}
		analyzer := NewMLEnsembleAnalyzer(predictor, true, zerolog.Nop())

		c := models.NewSignalComponents(time.Now())
		analyzer.Enrich(snapshotAt(10), c)

		if c.MLConfidence != nil || c.MLApproved != nil {
			t.Error("failed prediction must not write ML fields")
		}
	})

	t.Run("nil predictor disables the analyzer", func(t *testing.T) {
		analyzer := NewMLEnsembleAnalyzer(nil, true, zerolog.Nop())
		if analyzer.Enabled() {
			t.Error("analyzer should be disabled without a predictor")
		}
	})

	t.Run("feature vector consumes earlier technique scores", func(t *testing.T) {
		predictor := &stubPredictor{prediction: &models.MLPrediction{Approved: true, Confidence: 0.8}}
		analyzer := NewMLEnsembleAnalyzer(predictor, true, zerolog.Nop())

		c := models.NewSignalComponents(time.Now())
		c.MTFScore = floatPtr(0.6)
		c.SmartMoneyConfidence = floatPtr(0.7)
		analyzer.Enrich(snapshotAt(10), c)

		if got := predictor.features["confluence_score"]; math.Abs(got-0.8) > 1e-9 {
			t.Errorf("confluence_score feature = %v, want 0.8", got)
		}
		if got := predictor.features["market_regime_score"]; got != 0.7 {
			t.Errorf("market_regime_score feature = %v, want 0.7", got)
		}
	})
}

func TestEnrichAllRunsFixedOrder(t *testing.T) {
	predictor := &stubPredictor{prediction: &models.MLPrediction{Approved: true, Confidence: 0.8}}
	analyzers := NewAnalyzers(config.Default(), predictor, NewExpiryCycleAnalyzer(config.Default().Gamma), zerolog.Nop())

	in := snapshotAt(9)
	c := models.NewSignalComponents(in.Market.Timestamp)
	analyzers.EnrichAll(in, c)

	if c.MTFScore == nil {
		t.Fatal("MTF should always enrich")
	}
	// The ML feature built from the MTF score proves MTF ran first.
	want := (*c.MTFScore + 1) / 2
	if got := predictor.features["confluence_score"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("ML saw confluence_score %v, want %v from the MTF pass", got, want)
	}
	if c.GammaFactor == nil {
		t.Error("gamma should enrich with a live cycle analyzer")
	}
}

func TestAnalyzersStatus(t *testing.T) {
	analyzers := NewAnalyzers(config.Default(), nil, nil, zerolog.Nop())
	status := analyzers.Status()

	if !status["mtf"] || !status["smart_money"] {
		t.Error("built-in analyzers should always be available")
	}
	if status["ml_ensemble"] || status["gamma_cycles"] {
		t.Error("nil collaborators should report unavailable")
	}
}
