package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RegimePulse/internal/domain/models"
	drepo "RegimePulse/internal/domain/repository"
	svcregime "RegimePulse/internal/services/regime"
	applogger "RegimePulse/pkg/logger"

	"github.com/google/uuid"
)

const (
	alertSourceManual   = "manual"
	alertSourceAuto     = "auto"
	alertSourceParanoia = "paranoia"

	sideEffectTimeout = 3 * time.Second
)

// CrisisStore is the single process-wide aggregate owning the market
// regime, the regime history ledger, the alert list and paranoia mode.
// Every public mutation is applied atomically under one mutex, so the
// multi-step sequences (close interval -> open interval -> escalate)
// are never observable half-applied.
type CrisisStore struct {
	mu sync.Mutex

	classifier *svcregime.Classifier
	store      drepo.StateStore
	archive    drepo.TransitionArchive
	publisher  drepo.AlertPublisher
	metrics    drepo.Metrics
	log        *applogger.Logger

	historyCap        int
	persistedHistory  int
	persistedAlerts   int
	defaultConfidence float64
	now               func() time.Time

	marketRegime        models.Regime
	regimeConfidence    float64
	lastRegimeChange    time.Time
	history             []models.RegimeHistoryEntry // most-recent-first
	alerts              []models.CrisisAlert        // most-recent-first
	unacknowledged      int
	paranoia            models.ParanoiaMode
	volatilityIndex     float64
	volatilityChange24h float64
}

// StoreOption configures CrisisStore.
type StoreOption func(*CrisisStore)

// WithHistoryCap sets the in-memory ledger cap.
func WithHistoryCap(n int) StoreOption {
	return func(s *CrisisStore) {
		if n > 0 {
			s.historyCap = n
		}
	}
}

// WithPersistedSlices sets how many ledger entries and alerts the
// durable projection keeps.
func WithPersistedSlices(history, alerts int) StoreOption {
	return func(s *CrisisStore) {
		if history > 0 {
			s.persistedHistory = history
		}
		if alerts > 0 {
			s.persistedAlerts = alerts
		}
	}
}

// WithDefaultConfidence sets the confidence used when callers omit one.
func WithDefaultConfidence(c float64) StoreOption {
	return func(s *CrisisStore) {
		if c > 0 && c <= 1 {
			s.defaultConfidence = c
		}
	}
}

// WithClock injects a clock, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *CrisisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCrisisStore creates the aggregate with default steady regime and
// empty history/alerts. store, archive, publisher, metrics and log may
// each be nil; the corresponding side effect is skipped.
func NewCrisisStore(
	classifier *svcregime.Classifier,
	store drepo.StateStore,
	archive drepo.TransitionArchive,
	publisher drepo.AlertPublisher,
	metrics drepo.Metrics,
	log *applogger.Logger,
	opts ...StoreOption,
) *CrisisStore {
	s := &CrisisStore{
		classifier:        classifier,
		store:             store,
		archive:           archive,
		publisher:         publisher,
		metrics:           metrics,
		log:               log,
		historyCap:        100,
		persistedHistory:  20,
		persistedAlerts:   50,
		defaultConfidence: 0.85,
		now:               time.Now,
		marketRegime:      models.RegimeSteady,
		regimeConfidence:  1.0,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the persisted projection, if any. Unacknowledged count
// is recomputed from the restored alert slice; volatility readings are
// not persisted and stay zero until the next tick.
func (s *CrisisStore) Load(ctx context.Context) {
	if s.store == nil {
		return
	}

	p, err := s.store.Load(ctx)
	if err != nil {
		s.warn("state load failed, starting from defaults", err)
		s.recordError("persist_load")
		return
	}
	if p == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.MarketRegime.Valid() {
		s.marketRegime = p.MarketRegime
	}
	if p.RegimeConfidence > 0 && p.RegimeConfidence <= 1 {
		s.regimeConfidence = p.RegimeConfidence
	}
	s.paranoia = p.ParanoiaMode
	if s.paranoia.Active && s.paranoia.ActivatedAt == nil {
		// repair the invariant rather than trust a damaged projection
		now := s.now()
		s.paranoia.ActivatedAt = &now
	}
	s.history = truncateHistory(p.RegimeHistory, s.historyCap)
	s.alerts = truncateAlerts(p.Alerts, s.persistedAlerts)

	s.unacknowledged = 0
	for _, a := range s.alerts {
		if !a.Acknowledged {
			s.unacknowledged++
		}
	}

	s.syncGaugesLocked()
	if s.log != nil {
		s.log.Info("crisis state restored",
			applogger.String("regime", string(s.marketRegime)),
			applogger.Int("alerts", len(s.alerts)),
			applogger.Int("history", len(s.history)),
			applogger.Bool("paranoia", s.paranoia.Active),
		)
	}
}

// UpdateVolatility stores the latest externally supplied reading.
func (s *CrisisStore) UpdateVolatility(ctx context.Context, index, change24h float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volatilityIndex = index
	s.volatilityChange24h = change24h
	if s.metrics != nil {
		s.metrics.SetVolatilityIndex(index)
	}
}

// CheckForCrisis runs the current volatility reading through the
// classifier and applies the regime change if one is implied. This is
// the periodic tick entry point. Returns true when the regime changed.
func (s *CrisisStore) CheckForCrisis(ctx context.Context) bool {
	start := s.now()

	s.mu.Lock()
	next := s.classifier.Classify(s.volatilityIndex, s.marketRegime)
	if next == s.marketRegime {
		s.mu.Unlock()
		return false
	}
	trigger := fmt.Sprintf("volatility_index=%.2f", s.volatilityIndex)
	s.setRegimeLocked(ctx, next, s.defaultConfidence, trigger)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordLatency("check_for_crisis", time.Since(start).Seconds())
	}
	return true
}

// SetRegime applies a regime transition: it closes the open ledger
// interval, opens a new one, updates the current regime fields and
// auto-escalates when crisis is entered with paranoia mode inactive.
// A no-op when the regime is unchanged, so repeated ticks never record
// zero-duration intervals. Returns true when a transition was applied.
func (s *CrisisStore) SetRegime(ctx context.Context, regime models.Regime, confidence float64, trigger string) bool {
	if !regime.Valid() {
		return false
	}
	if confidence <= 0 || confidence > 1 {
		confidence = s.defaultConfidence
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if regime == s.marketRegime {
		return false
	}
	s.setRegimeLocked(ctx, regime, confidence, trigger)
	return true
}

// setRegimeLocked applies the full transition sequence. Caller holds
// the lock and has verified the regime actually changes.
func (s *CrisisStore) setRegimeLocked(ctx context.Context, regime models.Regime, confidence float64, trigger string) {
	if trigger == "" {
		trigger = alertSourceManual
	}
	from := s.marketRegime

	s.recordTransitionLocked(regime, confidence, trigger)

	now := s.now()
	s.marketRegime = regime
	s.regimeConfidence = confidence
	s.lastRegimeChange = now

	if s.metrics != nil {
		s.metrics.RecordRegimeTransition(string(from), string(regime))
	}
	if s.log != nil {
		direction := "de-escalation"
		if regime.Severity() > from.Severity() {
			direction = "escalation"
		}
		s.log.Info("regime transition",
			applogger.String("from", string(from)),
			applogger.String("to", string(regime)),
			applogger.String("direction", direction),
			applogger.String("trigger", trigger),
			applogger.Float64("confidence", confidence),
		)
	}

	if regime == models.RegimeCrisis && !s.paranoia.Active {
		s.autoEscalateLocked(trigger)
	}

	s.persistLocked(ctx)
}

// recordTransitionLocked closes the open head interval and prepends a
// fresh one, then trims the ledger to its cap (oldest dropped first).
func (s *CrisisStore) recordTransitionLocked(regime models.Regime, confidence float64, trigger string) {
	now := s.now()

	if len(s.history) > 0 && s.history[0].EndTime == nil {
		closed := s.history[0]
		closed.EndTime = &now
		s.history[0] = closed
		s.archiveAsync(closed)
	}

	entry := models.RegimeHistoryEntry{
		ID:         uuid.NewString(),
		Regime:     regime,
		StartTime:  now,
		Trigger:    trigger,
		Confidence: confidence,
	}
	s.history = append([]models.RegimeHistoryEntry{entry}, s.history...)
	if len(s.history) > s.historyCap {
		s.history = s.history[:s.historyCap]
	}
}

// autoEscalateLocked activates paranoia mode and appends the single
// crisis alert as one atomic unit. It sets the mode flag directly
// instead of going through ActivateParanoia, so exactly one alert is
// appended on crisis entry.
func (s *CrisisStore) autoEscalateLocked(trigger string) {
	now := s.now()
	s.paranoia.Active = true
	s.paranoia.ActivatedAt = &now
	if s.metrics != nil {
		s.metrics.SetParanoiaMode(true)
	}

	msg := fmt.Sprintf("Market regime entered crisis (%s). Paranoia mode engaged.", trigger)
	s.addAlertLocked(models.AlertEmergency, "Crisis Regime Detected", msg, []models.AlertAction{
		{Label: "Review Positions", Action: "/dashboard/review"},
		{Label: "Run Stress Simulation", Action: "/dashboard/simulation"},
	}, alertSourceAuto)
}

// AddAlert appends a user-supplied alert and returns its id.
func (s *CrisisStore) AddAlert(ctx context.Context, kind models.AlertType, title, message string, actions []models.AlertAction) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.addAlertLocked(kind, title, message, actions, alertSourceManual)
	s.persistLocked(ctx)
	return id
}

func (s *CrisisStore) addAlertLocked(kind models.AlertType, title, message string, actions []models.AlertAction, source string) string {
	alert := models.CrisisAlert{
		ID:        uuid.NewString(),
		Type:      kind,
		Title:     title,
		Message:   message,
		Timestamp: s.now(),
		Actions:   actions,
	}
	s.alerts = append([]models.CrisisAlert{alert}, s.alerts...)
	s.unacknowledged++

	if s.metrics != nil {
		s.metrics.RecordAlert(string(kind), source)
		s.metrics.SetUnacknowledged(s.unacknowledged)
	}
	s.publishAsync(&models.AlertEvent{
		ID:        alert.ID,
		Type:      alert.Type,
		Title:     alert.Title,
		Message:   alert.Message,
		Source:    source,
		Regime:    s.marketRegime,
		Timestamp: alert.Timestamp,
	})
	return alert.ID
}

// AcknowledgeAlert marks an alert acknowledged. Acknowledging an
// unknown or already-acknowledged id is a silent no-op. Returns true
// when the alert was newly acknowledged.
func (s *CrisisStore) AcknowledgeAlert(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		if s.alerts[i].Acknowledged {
			return false
		}
		s.alerts[i].Acknowledged = true
		if s.unacknowledged > 0 {
			s.unacknowledged--
		}
		if s.metrics != nil {
			s.metrics.SetUnacknowledged(s.unacknowledged)
		}
		s.persistLocked(ctx)
		return true
	}
	return false
}

// ClearAlerts empties the alert list.
func (s *CrisisStore) ClearAlerts(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = nil
	s.unacknowledged = 0
	if s.metrics != nil {
		s.metrics.SetUnacknowledged(0)
	}
	s.persistLocked(ctx)
}

// ActivateParanoia switches paranoia mode on and records an activation
// alert. Calling it while already active refreshes the timestamp and
// still appends an alert; auto-escalation guards on the mode flag
// before coming here, so crisis entry never double-fires.
func (s *CrisisStore) ActivateParanoia(ctx context.Context, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activateParanoiaLocked(reason)
	s.persistLocked(ctx)
}

func (s *CrisisStore) activateParanoiaLocked(reason string) {
	now := s.now()
	s.paranoia.Active = true
	s.paranoia.ActivatedAt = &now
	if s.metrics != nil {
		s.metrics.SetParanoiaMode(true)
	}

	msg := reason
	if msg == "" {
		msg = "Defensive display mode engaged."
	}
	s.addAlertLocked(models.AlertEmergency, "Paranoia Mode Activated", msg, nil, alertSourceParanoia)
}

// DeactivateParanoia switches paranoia mode off. Alerts recorded while
// active are kept.
func (s *CrisisStore) DeactivateParanoia(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paranoia.Active = false
	s.paranoia.ActivatedAt = nil
	if s.metrics != nil {
		s.metrics.SetParanoiaMode(false)
	}
	s.persistLocked(ctx)
}

// ToggleParanoia flips paranoia mode.
func (s *CrisisStore) ToggleParanoia(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paranoia.Active {
		s.paranoia.Active = false
		s.paranoia.ActivatedAt = nil
		if s.metrics != nil {
			s.metrics.SetParanoiaMode(false)
		}
	} else {
		s.activateParanoiaLocked("")
	}
	s.persistLocked(ctx)
}

// Reset restores the aggregate to its defaults and persists them.
func (s *CrisisStore) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.marketRegime = models.RegimeSteady
	s.regimeConfidence = 1.0
	s.lastRegimeChange = time.Time{}
	s.history = nil
	s.alerts = nil
	s.unacknowledged = 0
	s.paranoia = models.ParanoiaMode{}
	s.volatilityIndex = 0
	s.volatilityChange24h = 0

	s.syncGaugesLocked()
	s.persistLocked(ctx)
}

// Snapshot returns the aggregate's read surface.
func (s *CrisisStore) Snapshot() models.CrisisSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.CrisisSnapshot{
		MarketRegime:        s.marketRegime,
		RegimeConfidence:    s.regimeConfidence,
		LastRegimeChange:    s.lastRegimeChange,
		VolatilityIndex:     s.volatilityIndex,
		VolatilityChange24h: s.volatilityChange24h,
		ParanoiaMode:        s.paranoia,
		UnacknowledgedCount: s.unacknowledged,
		AlertCount:          len(s.alerts),
		HistoryCount:        len(s.history),
	}
}

// Alerts returns a copy of the alert list and the unacknowledged count.
func (s *CrisisStore) Alerts() ([]models.CrisisAlert, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CrisisAlert, len(s.alerts))
	copy(out, s.alerts)
	return out, s.unacknowledged
}

// History returns up to limit most-recent ledger entries.
func (s *CrisisStore) History(limit int) []models.RegimeHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]models.RegimeHistoryEntry, limit)
	copy(out, s.history[:limit])
	return out
}

// persistLocked writes the reduced projection. Best effort: failures
// are logged and counted, never surfaced to the caller.
func (s *CrisisStore) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}

	p := &models.StateProjection{
		ParanoiaMode:     s.paranoia,
		MarketRegime:     s.marketRegime,
		RegimeConfidence: s.regimeConfidence,
		RegimeHistory:    truncateHistory(s.history, s.persistedHistory),
		Alerts:           truncateAlerts(s.alerts, s.persistedAlerts),
	}
	if err := s.store.Save(ctx, p); err != nil {
		s.warn("state save failed", err)
		s.recordError("persist_save")
	}
}

func (s *CrisisStore) archiveAsync(e models.RegimeHistoryEntry) {
	if s.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.archive.Archive(ctx, e); err != nil {
			s.warn("transition archive failed", err)
			s.recordError("archive")
		}
	}()
}

func (s *CrisisStore) publishAsync(ev *models.AlertEvent) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.warn("alert publish failed", err)
			s.recordError("publish")
		}
	}()
}

func (s *CrisisStore) syncGaugesLocked() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetUnacknowledged(s.unacknowledged)
	s.metrics.SetVolatilityIndex(s.volatilityIndex)
	s.metrics.SetParanoiaMode(s.paranoia.Active)
}

func (s *CrisisStore) warn(msg string, err error) {
	if s.log != nil {
		s.log.Warn(msg, applogger.Error(err))
	}
}

func (s *CrisisStore) recordError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordError(kind)
	}
}

func truncateHistory(in []models.RegimeHistoryEntry, n int) []models.RegimeHistoryEntry {
	if len(in) > n {
		in = in[:n]
	}
	out := make([]models.RegimeHistoryEntry, len(in))
	copy(out, in)
	return out
}

func truncateAlerts(in []models.CrisisAlert, n int) []models.CrisisAlert {
	if len(in) > n {
		in = in[:n]
	}
	out := make([]models.CrisisAlert, len(in))
	copy(out, in)
	return out
}
