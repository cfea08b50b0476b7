package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"RegimePulse/internal/domain/models"
	svcregime "RegimePulse/internal/services/regime"
)

type fakeStateStore struct {
	mu        sync.Mutex
	saved     *models.StateProjection
	saveCalls int
}

func (f *fakeStateStore) Save(_ context.Context, p *models.StateProjection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = p
	f.saveCalls++
	return nil
}

func (f *fakeStateStore) Load(_ context.Context) (*models.StateProjection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved, nil
}

func (f *fakeStateStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = nil
	return nil
}

func newTestStore(opts ...StoreOption) *CrisisStore {
	return NewCrisisStore(
		svcregime.NewClassifier(svcregime.DefaultThresholds()),
		nil, nil, nil, nil, nil,
		opts...,
	)
}

func openHeadCount(entries []models.RegimeHistoryEntry) int {
	n := 0
	for _, e := range entries {
		if e.EndTime == nil {
			n++
		}
	}
	return n
}

func TestCrisisEntryEscalatesOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.UpdateVolatility(ctx, 35, 4.2)
	if !s.CheckForCrisis(ctx) {
		t.Fatal("expected a regime change")
	}

	snap := s.Snapshot()
	if snap.MarketRegime != models.RegimeCrisis {
		t.Fatalf("expected crisis regime, got %s", snap.MarketRegime)
	}
	if !snap.ParanoiaMode.Active {
		t.Fatal("expected paranoia mode active")
	}
	if snap.ParanoiaMode.ActivatedAt == nil {
		t.Fatal("expected activated_at to be set")
	}

	alerts, unack := s.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert on crisis entry, got %d", len(alerts))
	}
	if alerts[0].Type != models.AlertEmergency {
		t.Fatalf("expected emergency alert, got %s", alerts[0].Type)
	}
	if alerts[0].Title != "Crisis Regime Detected" {
		t.Fatalf("unexpected alert title %q", alerts[0].Title)
	}
	if len(alerts[0].Actions) == 0 {
		t.Fatal("expected suggested actions on the crisis alert")
	}
	if unack != 1 {
		t.Fatalf("expected unacknowledged=1, got %d", unack)
	}

	history := s.History(0)
	if len(history) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(history))
	}
	if history[0].Regime != models.RegimeCrisis || history[0].EndTime != nil {
		t.Fatalf("expected open crisis head, got %+v", history[0])
	}
}

func TestRepeatedTickInCrisisIsQuiet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.UpdateVolatility(ctx, 35, 0)
	s.CheckForCrisis(ctx)

	for i := 0; i < 5; i++ {
		if s.CheckForCrisis(ctx) {
			t.Fatal("expected no regime change on repeated tick")
		}
	}

	alerts, _ := s.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("expected a single alert, got %d", len(alerts))
	}
	if got := len(s.History(0)); got != 1 {
		t.Fatalf("expected a single ledger entry, got %d", got)
	}
}

func TestVolatileEntryDoesNotAlert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.UpdateVolatility(ctx, 25, 0)
	if !s.CheckForCrisis(ctx) {
		t.Fatal("expected steady -> volatile")
	}

	snap := s.Snapshot()
	if snap.MarketRegime != models.RegimeVolatile {
		t.Fatalf("expected volatile, got %s", snap.MarketRegime)
	}
	if snap.ParanoiaMode.Active {
		t.Fatal("paranoia mode must stay off for volatile")
	}
	if alerts, _ := s.Alerts(); len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(alerts))
	}
	if got := len(s.History(0)); got != 1 {
		t.Fatalf("expected one ledger entry, got %d", got)
	}
}

func TestAcknowledgeUnknownIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.AddAlert(ctx, models.AlertWarning, "Funding gap", "Projected shortfall next week", nil)
	before, beforeUnack := s.Alerts()

	if s.AcknowledgeAlert(ctx, "does-not-exist") {
		t.Fatal("expected unknown id to be a no-op")
	}

	after, afterUnack := s.Alerts()
	if len(after) != len(before) || afterUnack != beforeUnack {
		t.Fatal("state changed on unknown acknowledgement")
	}
	if after[0].Acknowledged {
		t.Fatal("existing alert must stay unacknowledged")
	}
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	id := s.AddAlert(ctx, models.AlertCritical, "Spread widening", "Bid-ask spreads doubled", nil)
	if !s.AcknowledgeAlert(ctx, id) {
		t.Fatal("expected first acknowledgement to apply")
	}
	if s.AcknowledgeAlert(ctx, id) {
		t.Fatal("expected second acknowledgement to be a no-op")
	}

	alerts, unack := s.Alerts()
	if !alerts[0].Acknowledged {
		t.Fatal("alert should stay acknowledged")
	}
	if unack != 0 {
		t.Fatalf("expected unacknowledged=0, got %d", unack)
	}
}

func TestUnacknowledgedNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	id := s.AddAlert(ctx, models.AlertWarning, "a", "b", nil)
	s.AcknowledgeAlert(ctx, id)
	s.AcknowledgeAlert(ctx, id)

	if _, unack := s.Alerts(); unack != 0 {
		t.Fatalf("expected 0, got %d", unack)
	}
}

func TestLedgerKeepsOneOpenHead(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.SetRegime(ctx, models.RegimeVolatile, 0.9, "macro print")
	s.SetRegime(ctx, models.RegimeCrisis, 0.95, "liquidity shock")
	s.SetRegime(ctx, models.RegimeRecovery, 0.7, "operator override")

	history := s.History(0)
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	if openHeadCount(history) != 1 {
		t.Fatalf("expected exactly one open entry, got %d", openHeadCount(history))
	}
	if history[0].EndTime != nil {
		t.Fatal("head entry must be the open one")
	}
	if history[0].Regime != models.RegimeRecovery {
		t.Fatalf("head should be the latest regime, got %s", history[0].Regime)
	}
}

func TestSetRegimeSameRegimeIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if s.SetRegime(ctx, models.RegimeSteady, 0.9, "noop") {
		t.Fatal("expected unchanged regime to be rejected")
	}
	if got := len(s.History(0)); got != 0 {
		t.Fatalf("expected empty ledger, got %d entries", got)
	}
}

func TestLedgerEvictsOldestAtCap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(WithHistoryCap(3))

	regimes := []models.Regime{
		models.RegimeVolatile,
		models.RegimeSteady,
		models.RegimeVolatile,
		models.RegimeSteady,
		models.RegimeVolatile,
	}
	for _, r := range regimes {
		s.SetRegime(ctx, r, 0.8, "cycle")
	}

	history := s.History(0)
	if len(history) != 3 {
		t.Fatalf("expected ledger capped at 3, got %d", len(history))
	}
	if openHeadCount(history) != 1 {
		t.Fatalf("eviction broke the single-open-head invariant: %d open", openHeadCount(history))
	}
	if history[0].Regime != models.RegimeVolatile {
		t.Fatalf("expected newest entry kept, got %s", history[0].Regime)
	}
}

func TestCrisisEntryWithParanoiaAlreadyActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.ActivateParanoia(ctx, "manual drill")
	alertsBefore, _ := s.Alerts()

	s.UpdateVolatility(ctx, 40, 0)
	s.CheckForCrisis(ctx)

	alertsAfter, _ := s.Alerts()
	if len(alertsAfter) != len(alertsBefore) {
		t.Fatalf("expected no auto alert when paranoia already active, got %d new",
			len(alertsAfter)-len(alertsBefore))
	}
	if s.Snapshot().MarketRegime != models.RegimeCrisis {
		t.Fatal("regime should still transition to crisis")
	}
}

func TestParanoiaActivateRecordsAlert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.ActivateParanoia(ctx, "pre-earnings caution")

	snap := s.Snapshot()
	if !snap.ParanoiaMode.Active || snap.ParanoiaMode.ActivatedAt == nil {
		t.Fatal("expected paranoia active with timestamp")
	}

	alerts, _ := s.Alerts()
	if len(alerts) != 1 || alerts[0].Title != "Paranoia Mode Activated" {
		t.Fatalf("expected activation alert, got %+v", alerts)
	}
	if alerts[0].Message != "pre-earnings caution" {
		t.Fatalf("expected reason in message, got %q", alerts[0].Message)
	}
}

func TestParanoiaDeactivateKeepsAlerts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.ActivateParanoia(ctx, "")
	s.DeactivateParanoia(ctx)

	snap := s.Snapshot()
	if snap.ParanoiaMode.Active {
		t.Fatal("expected paranoia off")
	}
	if snap.ParanoiaMode.ActivatedAt != nil {
		t.Fatal("expected activated_at cleared")
	}
	if alerts, _ := s.Alerts(); len(alerts) != 1 {
		t.Fatalf("alerts recorded while active must survive, got %d", len(alerts))
	}
}

func TestParanoiaToggle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.ToggleParanoia(ctx)
	if !s.Snapshot().ParanoiaMode.Active {
		t.Fatal("expected toggle on")
	}
	s.ToggleParanoia(ctx)
	if s.Snapshot().ParanoiaMode.Active {
		t.Fatal("expected toggle off")
	}
}

func TestClearAlertsResetsCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.AddAlert(ctx, models.AlertWarning, "a", "b", nil)
	s.AddAlert(ctx, models.AlertCritical, "c", "d", nil)
	s.ClearAlerts(ctx)

	alerts, unack := s.Alerts()
	if len(alerts) != 0 || unack != 0 {
		t.Fatalf("expected empty alert list, got %d alerts / %d unack", len(alerts), unack)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	s.UpdateVolatility(ctx, 50, 0)
	s.CheckForCrisis(ctx)
	s.Reset(ctx)

	snap := s.Snapshot()
	if snap.MarketRegime != models.RegimeSteady {
		t.Fatalf("expected steady after reset, got %s", snap.MarketRegime)
	}
	if snap.ParanoiaMode.Active || snap.AlertCount != 0 || snap.HistoryCount != 0 {
		t.Fatalf("expected clean state after reset, got %+v", snap)
	}
	if snap.VolatilityIndex != 0 {
		t.Fatalf("expected volatility cleared, got %v", snap.VolatilityIndex)
	}
}

func TestHistoryLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	for _, r := range []models.Regime{
		models.RegimeVolatile, models.RegimeSteady, models.RegimeVolatile, models.RegimeCrisis,
	} {
		s.SetRegime(ctx, r, 0.8, "cycle")
	}

	if got := len(s.History(2)); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
	if got := len(s.History(0)); got != 4 {
		t.Fatalf("expected full ledger on limit<=0, got %d", got)
	}
	if got := len(s.History(50)); got != 4 {
		t.Fatalf("expected clamped limit, got %d", got)
	}
}

func TestProjectionTruncatesAndRecounts(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStateStore{}
	s := NewCrisisStore(
		svcregime.NewClassifier(svcregime.DefaultThresholds()),
		fs, nil, nil, nil, nil,
		WithPersistedSlices(2, 3),
	)

	for i := 0; i < 5; i++ {
		s.AddAlert(ctx, models.AlertWarning, "w", "m", nil)
	}
	id := s.AddAlert(ctx, models.AlertCritical, "keep", "newest", nil)
	s.AcknowledgeAlert(ctx, id)
	s.SetRegime(ctx, models.RegimeVolatile, 0.9, "projection test")

	if fs.saved == nil {
		t.Fatal("expected a saved projection")
	}
	if len(fs.saved.Alerts) != 3 {
		t.Fatalf("expected persisted alerts truncated to 3, got %d", len(fs.saved.Alerts))
	}
	if fs.saved.MarketRegime != models.RegimeVolatile {
		t.Fatalf("expected volatile persisted, got %s", fs.saved.MarketRegime)
	}

	// A fresh aggregate restoring this projection recounts unacknowledged
	// from the surviving slice rather than trusting a stored number.
	restored := NewCrisisStore(
		svcregime.NewClassifier(svcregime.DefaultThresholds()),
		fs, nil, nil, nil, nil,
	)
	restored.Load(ctx)

	alerts, unack := restored.Alerts()
	if len(alerts) != 3 {
		t.Fatalf("expected 3 restored alerts, got %d", len(alerts))
	}
	want := 0
	for _, a := range alerts {
		if !a.Acknowledged {
			want++
		}
	}
	if unack != want {
		t.Fatalf("expected recomputed unack=%d, got %d", want, unack)
	}
	if restored.Snapshot().MarketRegime != models.RegimeVolatile {
		t.Fatalf("expected volatile restored, got %s", restored.Snapshot().MarketRegime)
	}
}

func TestLoadRepairsParanoiaTimestamp(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStateStore{saved: &models.StateProjection{
		ParanoiaMode:     models.ParanoiaMode{Active: true},
		MarketRegime:     models.RegimeCrisis,
		RegimeConfidence: 0.9,
	}}
	s := NewCrisisStore(
		svcregime.NewClassifier(svcregime.DefaultThresholds()),
		fs, nil, nil, nil, nil,
	)
	s.Load(ctx)

	snap := s.Snapshot()
	if !snap.ParanoiaMode.Active || snap.ParanoiaMode.ActivatedAt == nil {
		t.Fatal("expected active paranoia to carry a timestamp after load")
	}
}

func TestInjectedClockStampsEntries(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(WithClock(func() time.Time { return fixed }))

	s.SetRegime(ctx, models.RegimeVolatile, 0.8, "clock test")

	history := s.History(0)
	if !history[0].StartTime.Equal(fixed) {
		t.Fatalf("expected start time %v, got %v", fixed, history[0].StartTime)
	}
	snap := s.Snapshot()
	if !snap.LastRegimeChange.Equal(fixed) {
		t.Fatalf("expected last change %v, got %v", fixed, snap.LastRegimeChange)
	}
}
