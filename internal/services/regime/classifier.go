package regime

import "RegimePulse/internal/domain/models"

// Thresholds are the volatility bands for regime classification.
// All comparisons are strict: a reading sitting exactly on a band
// never triggers a transition, which keeps the classifier quiet when
// the index hovers at a boundary.
type Thresholds struct {
	Crisis   float64 // above this, any non-crisis regime escalates
	Elevated float64 // above this, steady escalates to volatile
	Recovery float64 // below this, volatile relaxes to steady
}

// DefaultThresholds returns the product defaults (30/20/15).
func DefaultThresholds() Thresholds {
	return Thresholds{Crisis: 30, Elevated: 20, Recovery: 15}
}

// Classifier maps a volatility index reading to a market regime.
type Classifier struct {
	t Thresholds
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{t: t}
}

// Classify returns the regime implied by the volatility index given the
// current regime. Pure and deterministic; rules are evaluated in order,
// first match wins. Entry into volatile only happens from steady, and
// crisis winds down through an explicit operator override rather than
// through this classifier. One-way hysteresis is intentional.
func (c *Classifier) Classify(volatilityIndex float64, current models.Regime) models.Regime {
	switch {
	case volatilityIndex > c.t.Crisis && current != models.RegimeCrisis:
		return models.RegimeCrisis
	case volatilityIndex > c.t.Elevated && current == models.RegimeSteady:
		return models.RegimeVolatile
	case volatilityIndex < c.t.Recovery && current == models.RegimeVolatile:
		return models.RegimeSteady
	default:
		return current
	}
}
