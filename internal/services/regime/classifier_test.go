package regime

import (
	"testing"

	"RegimePulse/internal/domain/models"
)

func TestClassifyEscalatesToCrisis(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	if got := c.Classify(35, models.RegimeSteady); got != models.RegimeCrisis {
		t.Fatalf("expected crisis, got %s", got)
	}
	if got := c.Classify(35, models.RegimeVolatile); got != models.RegimeCrisis {
		t.Fatalf("expected crisis from volatile, got %s", got)
	}
}

func TestClassifyCrisisIsSticky(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	// Already in crisis: high readings do not re-trigger, low readings do not
	// relax it either. Exit is an explicit operator action.
	if got := c.Classify(35, models.RegimeCrisis); got != models.RegimeCrisis {
		t.Fatalf("expected crisis to hold, got %s", got)
	}
	if got := c.Classify(5, models.RegimeCrisis); got != models.RegimeCrisis {
		t.Fatalf("expected crisis to hold on low vol, got %s", got)
	}
}

func TestClassifyElevatedOnlyFromSteady(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	if got := c.Classify(22, models.RegimeSteady); got != models.RegimeVolatile {
		t.Fatalf("expected volatile, got %s", got)
	}
	// One-way hysteresis: recovery does not pass through volatile via this rule.
	if got := c.Classify(22, models.RegimeRecovery); got != models.RegimeRecovery {
		t.Fatalf("expected recovery unchanged, got %s", got)
	}
	if got := c.Classify(22, models.RegimeVolatile); got != models.RegimeVolatile {
		t.Fatalf("expected volatile unchanged, got %s", got)
	}
}

func TestClassifyRelaxesToSteady(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	if got := c.Classify(14, models.RegimeVolatile); got != models.RegimeSteady {
		t.Fatalf("expected steady, got %s", got)
	}
	if got := c.Classify(14, models.RegimeSteady); got != models.RegimeSteady {
		t.Fatalf("expected steady unchanged, got %s", got)
	}
}

func TestClassifyBoundariesAreInert(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	// Thresholds are strict inequalities: a reading sitting exactly on a
	// threshold never fires that threshold's own rule.
	cases := []struct {
		vol     float64
		current models.Regime
		want    models.Regime
	}{
		{30, models.RegimeVolatile, models.RegimeVolatile}, // crisis rule needs > 30
		{20, models.RegimeSteady, models.RegimeSteady},     // elevated rule needs > 20
		{15, models.RegimeVolatile, models.RegimeVolatile}, // recovery rule needs < 15
	}
	for _, tc := range cases {
		if got := c.Classify(tc.vol, tc.current); got != tc.want {
			t.Fatalf("vol=%v current=%s: expected %s, got %s", tc.vol, tc.current, tc.want, got)
		}
	}
	// A reading of exactly 30 from steady misses the crisis rule but still
	// clears the elevated one, so evaluation falls through to volatile.
	if got := c.Classify(30, models.RegimeSteady); got != models.RegimeVolatile {
		t.Fatalf("vol=30 from steady: expected volatile, got %s", got)
	}
}

func TestClassifyHysteresisBand(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	// Readings between recovery and elevated keep whatever regime is current.
	for _, r := range []models.Regime{models.RegimeSteady, models.RegimeVolatile} {
		if got := c.Classify(17, r); got != r {
			t.Fatalf("expected %s to hold at 17, got %s", r, got)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	first := c.Classify(27.5, models.RegimeSteady)
	for i := 0; i < 100; i++ {
		if got := c.Classify(27.5, models.RegimeSteady); got != first {
			t.Fatalf("classification not deterministic: %s vs %s", got, first)
		}
	}
}
