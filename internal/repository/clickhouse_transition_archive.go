package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"RegimePulse/internal/domain/models"
	pkgch "RegimePulse/pkg/clickhouse"
	applogger "RegimePulse/pkg/logger"
)

const transitionsTable = "lvcop.regime_transitions"

// SchemaStatements returns the idempotent DDL for the archive.
func SchemaStatements() []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS lvcop`,
		`CREATE TABLE IF NOT EXISTS ` + transitionsTable + ` (
            id String,
            regime LowCardinality(String),
            start_time DateTime64(3),
            end_time DateTime64(3),
            trigger String,
            confidence Float64
        ) ENGINE = MergeTree()
        ORDER BY (start_time, id)`,
	}
}

// CHTransitionArchive stores closed regime intervals in ClickHouse for
// history beyond the in-memory ledger cap.
type CHTransitionArchive struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHTransitionArchive(ch *pkgch.Client) *CHTransitionArchive {
	return &CHTransitionArchive{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (a *CHTransitionArchive) SetLogger(l *applogger.Logger) { a.l = l }

// Init ensures the archive schema exists.
func (a *CHTransitionArchive) Init(ctx context.Context) error {
	return a.client.InitSchema(ctx, SchemaStatements())
}

// Archive inserts one closed interval. Entries with a nil EndTime are
// rejected: only closed intervals belong in the archive.
func (a *CHTransitionArchive) Archive(ctx context.Context, e models.RegimeHistoryEntry) error {
	if e.EndTime == nil {
		return fmt.Errorf("archive: entry %s is still open", e.ID)
	}
	const q = `INSERT INTO ` + transitionsTable + ` (id, regime, start_time, end_time, trigger, confidence) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := a.db.ExecContext(ctx, q,
		e.ID,
		string(e.Regime),
		e.StartTime,
		*e.EndTime,
		e.Trigger,
		e.Confidence,
	)
	if err != nil {
		if a.l != nil {
			a.l.Error("clickhouse archive insert error",
				applogger.String("id", e.ID),
				applogger.String("regime", string(e.Regime)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("archive transition: %w", err)
	}
	return nil
}

// Query returns closed intervals whose start falls inside [from, to],
// newest first.
func (a *CHTransitionArchive) Query(ctx context.Context, from, to time.Time, limit int) ([]models.RegimeHistoryEntry, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 200
	}
	const q = `
        SELECT id, regime, start_time, end_time, trigger, confidence
        FROM ` + transitionsTable + `
        WHERE start_time >= ? AND start_time <= ?
        ORDER BY start_time DESC
        LIMIT ?
    `
	rows, err := a.db.QueryContext(ctx, q, from, to, limit)
	if err != nil {
		if a.l != nil {
			a.l.Error("clickhouse archive query error", applogger.Error(err))
		}
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	out := make([]models.RegimeHistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e      models.RegimeHistoryEntry
			regime string
			end    time.Time
		)
		if err := rows.Scan(&e.ID, &regime, &e.StartTime, &end, &e.Trigger, &e.Confidence); err != nil {
			if a.l != nil {
				a.l.Error("clickhouse archive scan error", applogger.Error(err))
			}
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		e.Regime = models.Regime(regime)
		e.EndTime = &end
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if a.l != nil {
		a.l.Info("clickhouse archive query ok",
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// Health pings the underlying pool.
func (a *CHTransitionArchive) Health(ctx context.Context) error {
	return a.client.Health(ctx)
}
