package volfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"RegimePulse/internal/domain/models"
	drepo "RegimePulse/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a VolatilityStream backed by the upstream
// volatility index WebSocket feed.
type Client struct {
	token          string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new volatility feed stream.
func New(token, websocketURL string, reconnectDelay, pingInterval time.Duration) drepo.VolatilityStream {
	return &Client{
		token:          token,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.websocketURL
	if c.token != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("volfeed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	return nil
}

type feedFrame struct {
	Type      string  `json:"type"`
	Index     float64 `json:"index"`
	Change24h float64 `json:"change_24h"`
	T         int64   `json:"t"` // ms
}

// Read streams volatility readings and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.VolatilityReading, <-chan error) {
	readings := make(chan *models.VolatilityReading, 256)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(readings)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("volfeed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("volfeed read: %w", err)
					return
				}
				var f feedFrame
				if err := json.Unmarshal(b, &f); err != nil {
					// ignore non-data frames
					continue
				}
				if f.Type != "volatility" {
					continue
				}
				r := &models.VolatilityReading{
					Index:     f.Index,
					Change24h: f.Change24h,
					AsOf:      time.UnixMilli(f.T),
				}
				select {
				case readings <- r:
				default:
					// drop on backpressure, next frame supersedes anyway
				}
			}
		}
	}()

	return readings, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	return c.Connect(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
