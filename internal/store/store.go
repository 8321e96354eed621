// Package store persists emitted signals to a local journal.
package store

import (
	"context"
	"time"

	"signal-engine/internal/models"
)

// Journal defines the persistence interface for emitted signals.
type Journal interface {
	// SaveSignal appends one signal. Called on the evaluation hot
	// path, so implementations must not block on anything slower
	// than a local write.
	SaveSignal(s *models.FinalSignal) error

	GetSignals(ctx context.Context, filter SignalFilter) ([]models.FinalSignal, error)
	GetSignalStats(ctx context.Context, from, to time.Time) (*SignalStats, error)

	Close() error
}

// SignalFilter represents filters for querying journaled signals.
type SignalFilter struct {
	Symbol     string
	StartDate  time.Time
	EndDate    time.Time
	Decision   models.Decision
	Tier       models.QualityTier
	Executable *bool
	Limit      int
}

// SignalStats summarizes a slice of the journal.
type SignalStats struct {
	Total          int
	Executed       int
	AvgConfidence  float64
	ByTier         map[string]int
	ByDecision     map[string]int
	FirstTimestamp time.Time
	LastTimestamp  time.Time
}

// ExecutionRate returns the executed fraction of journaled signals.
func (s *SignalStats) ExecutionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Executed) / float64(s.Total)
}
