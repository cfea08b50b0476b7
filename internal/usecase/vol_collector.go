package usecase

import (
	"context"
	"time"

	"RegimePulse/internal/domain/models"
	drepo "RegimePulse/internal/domain/repository"
)

// VolCollector feeds the crisis store: it consumes volatility readings
// from the stream and re-evaluates the regime on a fixed tick, so the
// classifier runs on a cadence rather than per frame.
type VolCollector struct {
	stream       drepo.VolatilityStream
	store        *CrisisStore
	metrics      drepo.Metrics
	tickInterval time.Duration
}

// NewVolCollector creates a new VolCollector instance. stream may be
// nil, in which case only the tick loop runs and readings come in via
// the HTTP tick endpoint.
func NewVolCollector(stream drepo.VolatilityStream, store *CrisisStore, metrics drepo.Metrics, tickInterval time.Duration) *VolCollector {
	if tickInterval <= 0 {
		tickInterval = 30 * time.Second
	}
	return &VolCollector{stream: stream, store: store, metrics: metrics, tickInterval: tickInterval}
}

// IsConnected returns true if the volatility stream is connected.
func (c *VolCollector) IsConnected() bool {
	return c.stream != nil && c.stream.IsConnected()
}

func (c *VolCollector) Start(ctx context.Context) error {
	if c.stream != nil {
		if err := c.stream.Connect(ctx); err != nil {
			return err
		}
		rCh, errCh := c.stream.Read(ctx)
		go c.consume(ctx, rCh, errCh)
	}
	go c.tick(ctx)
	return nil
}

func (c *VolCollector) consume(ctx context.Context, rCh <-chan *models.VolatilityReading, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				if c.metrics != nil {
					c.metrics.RecordError("stream")
				}
				_ = c.stream.Reconnect(ctx)
			}
		case r := <-rCh:
			if r == nil {
				continue
			}
			c.store.UpdateVolatility(ctx, r.Index, r.Change24h)
		}
	}
}

func (c *VolCollector) tick(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.store.CheckForCrisis(ctx)
		}
	}
}

// Shutdown closes the stream.
func (c *VolCollector) Shutdown(ctx context.Context) error {
	if c.stream == nil {
		return nil
	}
	return c.stream.Close()
}
