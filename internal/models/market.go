// Package models provides domain models for the signal engine.
package models

import (
	"time"
)

// ES futures contract constants used for risk math.
const (
	TickSize  = 0.25
	TickValue = 12.50
)

// Regime represents the detected market regime.
type Regime string

const (
	RegimeTrendBull  Regime = "TREND_BULL"
	RegimeTrendBear  Regime = "TREND_BEAR"
	RegimeRangeTight Regime = "RANGE_TIGHT"
	RegimeRangeWide  Regime = "RANGE_WIDE"
	RegimeTransition Regime = "TRANSITION"
	RegimeUnknown    Regime = "UNKNOWN"
)

// IsTrending reports whether the regime is a directional trend.
func (r Regime) IsTrending() bool {
	return r == RegimeTrendBull || r == RegimeTrendBear
}

// IsRanging reports whether the regime is range-bound.
func (r Regime) IsRanging() bool {
	return r == RegimeRangeTight || r == RegimeRangeWide
}

// GammaPhase represents the current phase of the options expiration cycle.
type GammaPhase string

const (
	GammaPeak       GammaPhase = "GAMMA_PEAK"
	GammaModerate   GammaPhase = "GAMMA_MODERATE"
	GammaExpiryWeek GammaPhase = "EXPIRY_WEEK"
	GammaNormal     GammaPhase = "NORMAL"
	GammaPostExpiry GammaPhase = "POST_EXPIRY"
)

// MarketSnapshot represents one bar of market data supplied per evaluation.
type MarketSnapshot struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	Bid       *float64
	Ask       *float64
}

// Range returns the high-low range of the bar.
func (m *MarketSnapshot) Range() float64 {
	return m.High - m.Low
}

// OrderFlowSnapshot represents aggregated order flow for one evaluation.
type OrderFlowSnapshot struct {
	Timestamp       time.Time
	CumulativeDelta float64
	BidVolume       int64
	AskVolume       int64
	AggressiveBuys  int64
	AggressiveSells int64
	LargeTradeBias  float64 // [-1,1], sign follows the dominant side of block trades
}

// OptionsSnapshot represents options market context for one evaluation.
type OptionsSnapshot struct {
	Timestamp     time.Time
	VIX           float64
	GammaExposure float64
	PutCallRatio  float64
	DaysToExpiry  int
}

// Zone represents a support or resistance confluence zone.
type Zone struct {
	CenterPrice float64
	Width       float64
	Strength    float64
	Source      string
}

// StructureSnapshot represents market-structure context: confluence zones
// and the precomputed feature scores the engine consumes.
type StructureSnapshot struct {
	Timestamp          time.Time
	ConfluenceScore    float64  // [0,1], required traditional multi-factor confluence
	PatternStrength    float64  // [-1,1], directional pattern signal
	SmartMoneyStrength *float64 // [0,1], absent when the order-flow detector is offline
	VolumeConfirmation *float64
	Volatility         float64 // normalized, 1.0 = average
	Regime             Regime
	RegimeConfidence   float64
	NearestSupport     *Zone
	NearestResistance  *Zone
}
