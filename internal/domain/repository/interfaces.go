package repository

import (
	"context"
	"time"

	"RegimePulse/internal/domain/models"
)

// StateStore persists the reduced projection of the crisis aggregate.
// Load returns (nil, nil) when no projection has been saved yet.
type StateStore interface {
	Save(ctx context.Context, p *models.StateProjection) error
	Load(ctx context.Context) (*models.StateProjection, error)
	Clear(ctx context.Context) error
}

// TransitionArchive stores closed regime occupancy intervals for
// long-horizon history beyond the in-memory ledger cap.
type TransitionArchive interface {
	Archive(ctx context.Context, e models.RegimeHistoryEntry) error
	Query(ctx context.Context, from, to time.Time, limit int) ([]models.RegimeHistoryEntry, error)
	Health(ctx context.Context) error
}

// AlertPublisher fans created alerts out to downstream notification consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, ev *models.AlertEvent) error
	Close() error
}

// VolatilityStream is an inbound feed of volatility readings.
type VolatilityStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.VolatilityReading, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records operational metrics for the crisis core.
type Metrics interface {
	RecordRegimeTransition(from, to string)
	RecordAlert(kind, source string)
	RecordError(kind string)
	SetUnacknowledged(n int)
	SetVolatilityIndex(v float64)
	SetParanoiaMode(active bool)
	RecordLatency(op string, seconds float64)
}
