package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"RegimePulse/internal/services/regime"
	"RegimePulse/internal/usecase"
	xlogger "RegimePulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*echo.Echo, *usecase.CrisisStore) {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store := usecase.NewCrisisStore(
		regime.NewClassifier(regime.DefaultThresholds()),
		nil, nil, nil, nil, nil,
	)
	h := NewCrisisEchoHandler(l, store, nil)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, store
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestVolatilityTickDrivesRegime(t *testing.T) {
	e, store := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/crisis/volatility", `{"index": 42.5, "change_24h": 6.1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			RegimeChanged bool   `json:"regime_changed"`
			MarketRegime  string `json:"market_regime"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Data.RegimeChanged || resp.Data.MarketRegime != "crisis" {
		t.Fatalf("expected crisis transition, got %+v", resp.Data)
	}

	snap := store.Snapshot()
	if !snap.ParanoiaMode.Active {
		t.Fatal("expected paranoia active after crisis tick")
	}
}

func TestVolatilityTickRejectsNegativeIndex(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/crisis/volatility", `{"index": -1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected envelope status 200, got %d", rec.Code)
	}
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 in envelope, got %d", resp.Status)
	}
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/crisis/alerts",
		`{"type": "critical", "title": "Funding gap", "message": "Shortfall projected"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Status int `json:"status"`
		Data   struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != http.StatusCreated || created.Data.ID == "" {
		t.Fatalf("expected created alert id, got %+v", created)
	}

	rec = doJSON(e, http.MethodPost, "/api/crisis/alerts/"+created.Data.ID+"/ack", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ack: expected 200, got %d", rec.Code)
	}
	var acked struct {
		Data struct {
			Acknowledged bool `json:"acknowledged"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &acked); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !acked.Data.Acknowledged {
		t.Fatal("expected acknowledgement to apply")
	}

	// Unknown id still succeeds, reporting no change.
	rec = doJSON(e, http.MethodPost, "/api/crisis/alerts/nope/ack", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown ack: expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &acked); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if acked.Data.Acknowledged {
		t.Fatal("unknown id must not report a change")
	}

	rec = doJSON(e, http.MethodDelete, "/api/crisis/alerts", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear: expected 204, got %d", rec.Code)
	}
}

func TestAddAlertValidation(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/crisis/alerts", `{"type": "critical"}`)
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing title/message, got %d", resp.Status)
	}
}

func TestSetRegimeOverrideExitsCrisis(t *testing.T) {
	e, store := newTestHandler(t)

	doJSON(e, http.MethodPost, "/api/crisis/volatility", `{"index": 50}`)
	if store.Snapshot().MarketRegime != "crisis" {
		t.Fatal("precondition: expected crisis")
	}

	rec := doJSON(e, http.MethodPost, "/api/crisis/regime",
		`{"regime": "recovery", "trigger": "desk signoff"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.Snapshot().MarketRegime != "recovery" {
		t.Fatalf("expected recovery, got %s", store.Snapshot().MarketRegime)
	}

	rec = doJSON(e, http.MethodPost, "/api/crisis/regime", `{"regime": "hectic"}`)
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown regime, got %d", resp.Status)
	}
}

func TestParanoiaEndpoints(t *testing.T) {
	e, store := newTestHandler(t)

	doJSON(e, http.MethodPost, "/api/crisis/paranoia", `{"reason": "drill"}`)
	if !store.Snapshot().ParanoiaMode.Active {
		t.Fatal("expected paranoia active")
	}

	doJSON(e, http.MethodDelete, "/api/crisis/paranoia", "")
	if store.Snapshot().ParanoiaMode.Active {
		t.Fatal("expected paranoia off")
	}

	doJSON(e, http.MethodPost, "/api/crisis/paranoia/toggle", "")
	if !store.Snapshot().ParanoiaMode.Active {
		t.Fatal("expected toggle on")
	}
}

func TestHistoryEndpoint(t *testing.T) {
	e, _ := newTestHandler(t)

	doJSON(e, http.MethodPost, "/api/crisis/regime", `{"regime": "volatile"}`)
	doJSON(e, http.MethodPost, "/api/crisis/regime", `{"regime": "steady"}`)

	rec := doJSON(e, http.MethodGet, "/api/crisis/history?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Data struct {
			Rows  []json.RawMessage `json:"rows"`
			Total int64             `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Rows) != 1 {
		t.Fatalf("expected 1 row with limit=1, got %d", len(resp.Data.Rows))
	}
}

func TestArchiveUnconfigured(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodGet, "/api/crisis/history/archive", "")
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Fatalf("expected 404 envelope when archive missing, got %d", resp.Status)
	}
}

func TestResetEndpoint(t *testing.T) {
	e, store := newTestHandler(t)

	doJSON(e, http.MethodPost, "/api/crisis/volatility", `{"index": 45}`)
	rec := doJSON(e, http.MethodPost, "/api/crisis/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	snap := store.Snapshot()
	if snap.MarketRegime != "steady" || snap.AlertCount != 0 || snap.ParanoiaMode.Active {
		t.Fatalf("expected default state after reset, got %+v", snap)
	}
}
