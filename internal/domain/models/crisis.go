package models

import "time"

// Regime is the classified market state governing alerting severity.
type Regime string

const (
	RegimeSteady   Regime = "steady"
	RegimeVolatile Regime = "volatile"
	RegimeCrisis   Regime = "crisis"
	RegimeRecovery Regime = "recovery"
	RegimeUnknown  Regime = "unknown"
)

// Valid reports whether r is a known regime value.
func (r Regime) Valid() bool {
	switch r {
	case RegimeSteady, RegimeVolatile, RegimeCrisis, RegimeRecovery, RegimeUnknown:
		return true
	}
	return false
}

// Severity orders regimes from calm to crisis. Recovery sits between
// steady and volatile; unknown ranks lowest.
func (r Regime) Severity() int {
	switch r {
	case RegimeSteady:
		return 1
	case RegimeRecovery:
		return 2
	case RegimeVolatile:
		return 3
	case RegimeCrisis:
		return 4
	}
	return 0
}

// AlertType is the severity class of a crisis alert.
type AlertType string

const (
	AlertWarning   AlertType = "warning"
	AlertCritical  AlertType = "critical"
	AlertEmergency AlertType = "emergency"
)

// AlertAction is a suggested follow-up the UI can offer on an alert.
type AlertAction struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// CrisisAlert is a single alert record. Acknowledged transitions
// false -> true exactly once and never reverts.
type CrisisAlert struct {
	ID           string        `json:"id"`
	Type         AlertType     `json:"type"`
	Title        string        `json:"title"`
	Message      string        `json:"message"`
	Timestamp    time.Time     `json:"timestamp"`
	Acknowledged bool          `json:"acknowledged"`
	Actions      []AlertAction `json:"actions,omitempty"`
}

// RegimeHistoryEntry is one regime occupancy interval. EndTime is nil
// while the interval is still open.
type RegimeHistoryEntry struct {
	ID         string     `json:"id"`
	Regime     Regime     `json:"regime"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Trigger    string     `json:"trigger,omitempty"`
	Confidence float64    `json:"confidence"`
}

// ParanoiaMode is the derived defensive UI mode. ActivatedAt is non-nil
// iff Active is true.
type ParanoiaMode struct {
	Active      bool       `json:"active"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

// VolatilityReading is one externally supplied volatility sample.
type VolatilityReading struct {
	Index     float64   `json:"index"`
	Change24h float64   `json:"change_24h"`
	AsOf      time.Time `json:"as_of"`
}

// CrisisSnapshot is the read surface of the aggregate.
type CrisisSnapshot struct {
	MarketRegime        Regime       `json:"market_regime"`
	RegimeConfidence    float64      `json:"regime_confidence"`
	LastRegimeChange    time.Time    `json:"last_regime_change"`
	VolatilityIndex     float64      `json:"volatility_index"`
	VolatilityChange24h float64      `json:"volatility_change_24h"`
	ParanoiaMode        ParanoiaMode `json:"paranoia_mode"`
	UnacknowledgedCount int          `json:"unacknowledged_count"`
	AlertCount          int          `json:"alert_count"`
	HistoryCount        int          `json:"history_count"`
}

// StateProjection is the reduced durable projection of the aggregate.
// UnacknowledgedCount and volatility readings are deliberately absent:
// the count is recomputed from the restored alert slice on load, the
// readings are re-supplied by the next tick.
type StateProjection struct {
	ParanoiaMode     ParanoiaMode         `json:"paranoia_mode"`
	MarketRegime     Regime               `json:"market_regime"`
	RegimeConfidence float64              `json:"regime_confidence"`
	RegimeHistory    []RegimeHistoryEntry `json:"regime_history"`
	Alerts           []CrisisAlert        `json:"alerts"`
}

// AlertEvent is the payload published to the alerts topic.
type AlertEvent struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Regime    Regime    `json:"regime"`
	Timestamp time.Time `json:"timestamp"`
}
