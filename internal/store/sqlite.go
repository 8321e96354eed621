package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
	"signal-engine/pkg/utils"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the journal database at dbPath.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "failed to initialize schema")
	}
	return j, nil
}

// initSchema creates the signals table and its indexes.
func (j *SQLiteJournal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		decision TEXT NOT NULL,
		confidence REAL NOT NULL,
		quality_tier TEXT NOT NULL,
		entry_price REAL,
		stop_loss REAL,
		take_profit REAL,
		position_size REAL NOT NULL,
		source TEXT,
		regime TEXT,
		risk_reward REAL,
		max_risk_dollars REAL,
		generation_us INTEGER,
		reasoning TEXT,
		components TEXT,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
	CREATE INDEX IF NOT EXISTS idx_signals_timestamp ON signals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_signals_decision ON signals(decision);
	CREATE INDEX IF NOT EXISTS idx_signals_tier ON signals(quality_tier);
	`

	_, err := j.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// SaveSignal appends one signal to the journal. Writes retry briefly on
// transient errors (WAL busy under concurrent readers).
func (j *SQLiteJournal) SaveSignal(s *models.FinalSignal) error {
	components, _ := json.Marshal(s.Components)
	metadata, _ := json.Marshal(s.Metadata)

	err := utils.Retry(context.Background(), utils.DefaultRetryConfig(), func() error {
		_, err := j.db.Exec(`
			INSERT INTO signals (timestamp, symbol, decision, confidence, quality_tier, entry_price, stop_loss, take_profit, position_size, source, regime, risk_reward, max_risk_dollars, generation_us, reasoning, components, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, s.Timestamp, s.Symbol, string(s.Decision), s.Confidence, string(s.QualityTier), s.EntryPrice, s.StopLoss, s.TakeProfit, s.PositionSize, string(s.Source), string(s.Regime), s.RiskReward, s.MaxRiskDollars, s.GenerationTime.Microseconds(), s.Reasoning, string(components), string(metadata))
		return err
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to save signal")
	}
	return nil
}

// GetSignals retrieves journaled signals matching the filter, most
// recent first.
func (j *SQLiteJournal) GetSignals(ctx context.Context, filter SignalFilter) ([]models.FinalSignal, error) {
	query := "SELECT timestamp, symbol, decision, confidence, quality_tier, entry_price, stop_loss, take_profit, position_size, source, regime, risk_reward, max_risk_dollars, generation_us, reasoning, components, metadata FROM signals WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}
	if filter.Decision != "" {
		query += " AND decision = ?"
		args = append(args, string(filter.Decision))
	}
	if filter.Tier != "" {
		query += " AND quality_tier = ?"
		args = append(args, string(filter.Tier))
	}
	if filter.Executable != nil {
		if *filter.Executable {
			query += " AND decision IN (?, ?)"
		} else {
			query += " AND decision NOT IN (?, ?)"
		}
		args = append(args, string(models.ExecuteLong), string(models.ExecuteShort))
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	// Reads retry like writes do: a WAL checkpoint can briefly lock out
	// queries even with the busy timeout set.
	rows, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() (*sql.Rows, error) {
		return j.db.QueryContext(ctx, query, args...)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query signals")
	}
	defer rows.Close()

	var signals []models.FinalSignal
	for rows.Next() {
		var s models.FinalSignal
		var decision, tier, source, regime string
		var generationUs int64
		var componentsJSON, metadataJSON sql.NullString

		if err := rows.Scan(&s.Timestamp, &s.Symbol, &decision, &s.Confidence, &tier, &s.EntryPrice, &s.StopLoss, &s.TakeProfit, &s.PositionSize, &source, &regime, &s.RiskReward, &s.MaxRiskDollars, &generationUs, &s.Reasoning, &componentsJSON, &metadataJSON); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan signal")
		}

		s.Decision = models.Decision(decision)
		s.QualityTier = models.QualityTier(tier)
		s.Source = models.SignalSource(source)
		s.Regime = models.Regime(regime)
		s.GenerationTime = time.Duration(generationUs) * time.Microsecond

		if componentsJSON.Valid && componentsJSON.String != "" {
			var c models.SignalComponents
			if err := json.Unmarshal([]byte(componentsJSON.String), &c); err == nil {
				s.Components = &c
			}
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			_ = json.Unmarshal([]byte(metadataJSON.String), &s.Metadata)
		}

		signals = append(signals, s)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating signals")
	}
	return signals, nil
}

// GetSignalStats aggregates journal counters over [from, to]. Zero
// bounds are open-ended.
func (j *SQLiteJournal) GetSignalStats(ctx context.Context, from, to time.Time) (*SignalStats, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if !from.IsZero() {
		where += " AND timestamp >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		where += " AND timestamp <= ?"
		args = append(args, to)
	}

	stats := &SignalStats{
		ByTier:     make(map[string]int),
		ByDecision: make(map[string]int),
	}

	var avg sql.NullFloat64
	var first, last sql.NullTime
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(confidence), MIN(timestamp), MAX(timestamp) FROM signals `+where, args...,
	).Scan(&stats.Total, &avg, &first, &last)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to aggregate signals")
	}
	if avg.Valid {
		stats.AvgConfidence = avg.Float64
	}
	if first.Valid {
		stats.FirstTimestamp = first.Time
	}
	if last.Valid {
		stats.LastTimestamp = last.Time
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT decision, quality_tier, COUNT(*) FROM signals `+where+` GROUP BY decision, quality_tier`, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to group signals")
	}
	defer rows.Close()

	for rows.Next() {
		var decision, tier string
		var count int
		if err := rows.Scan(&decision, &tier, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan signal group")
		}
		stats.ByDecision[decision] += count
		stats.ByTier[tier] += count
		if models.Decision(decision).IsExecutable() {
			stats.Executed += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating signal groups")
	}

	return stats, nil
}
