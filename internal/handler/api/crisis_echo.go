package api

import (
	"time"

	models "RegimePulse/internal/domain/models"
	drepo "RegimePulse/internal/domain/repository"
	"RegimePulse/internal/usecase"
	xhttp "RegimePulse/pkg/http"
	xlogger "RegimePulse/pkg/logger"
	"RegimePulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// CrisisEchoHandler exposes the crisis store over Echo-based HTTP handlers.
type CrisisEchoHandler struct {
	logger  *xlogger.Logger
	store   *usecase.CrisisStore
	archive drepo.TransitionArchive
}

func NewCrisisEchoHandler(logger *xlogger.Logger, store *usecase.CrisisStore, archive drepo.TransitionArchive) *CrisisEchoHandler {
	return &CrisisEchoHandler{logger: logger, store: store, archive: archive}
}

func (h *CrisisEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/crisis")
	g.GET("", h.Snapshot)
	g.GET("/alerts", h.Alerts)
	g.POST("/alerts", h.AddAlert)
	g.DELETE("/alerts", h.ClearAlerts)
	g.POST("/alerts/:id/ack", h.AcknowledgeAlert)
	g.GET("/history", h.History)
	g.GET("/history/archive", h.HistoryArchive)
	g.POST("/volatility", h.VolatilityTick)
	g.POST("/paranoia", h.ActivateParanoia)
	g.DELETE("/paranoia", h.DeactivateParanoia)
	g.POST("/paranoia/toggle", h.ToggleParanoia)
	g.POST("/regime", h.SetRegime)
	g.POST("/reset", h.Reset)
}

func (h *CrisisEchoHandler) Snapshot(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

type alertsResponse struct {
	Alerts              []models.CrisisAlert `json:"alerts"`
	UnacknowledgedCount int                  `json:"unacknowledged_count"`
}

func (h *CrisisEchoHandler) Alerts(c echo.Context) error {
	alerts, unack := h.store.Alerts()
	return xhttp.SuccessResponse(c, &alertsResponse{Alerts: alerts, UnacknowledgedCount: unack})
}

type alertCreatedResponse struct {
	ID string `json:"id"`
}

func (h *CrisisEchoHandler) AddAlert(c echo.Context) error {
	req := &models.AddAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id := h.store.AddAlert(c.Request().Context(), models.AlertType(req.Type), req.Title, req.Message, nil)
	return xhttp.CreatedResponse(c, &alertCreatedResponse{ID: id})
}

func (h *CrisisEchoHandler) ClearAlerts(c echo.Context) error {
	h.store.ClearAlerts(c.Request().Context())
	return xhttp.NoContentResponse(c)
}

type ackResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// AcknowledgeAlert is a no-op for unknown or already-acknowledged ids:
// the response reports whether this call changed anything, but always
// succeeds.
func (h *CrisisEchoHandler) AcknowledgeAlert(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "alert id is required")
	}
	applied := h.store.AcknowledgeAlert(c.Request().Context(), id)
	return xhttp.SuccessResponse(c, &ackResponse{Acknowledged: applied})
}

func (h *CrisisEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	entries := h.store.History(req.Limit)
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

func (h *CrisisEchoHandler) HistoryArchive(c echo.Context) error {
	if h.archive == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("transition archive is not configured"))
	}
	req := &models.ArchiveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now()
	from := util.ParseTimeDefault(req.From, now.AddDate(0, -1, 0))
	to := util.ParseTimeDefault(req.To, now)
	if !from.Before(to) {
		return xhttp.BadRequestResponse(c, "from must be before to")
	}

	entries, err := h.archive.Query(c.Request().Context(), from, to, req.Limit)
	if err != nil {
		h.logger.Error("archive query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

type tickResponse struct {
	RegimeChanged bool          `json:"regime_changed"`
	MarketRegime  models.Regime `json:"market_regime"`
}

// VolatilityTick accepts an out-of-band volatility reading and runs a
// crisis check immediately, without waiting for the next scheduled tick.
func (h *CrisisEchoHandler) VolatilityTick(c echo.Context) error {
	req := &models.VolatilityTickRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	h.store.UpdateVolatility(ctx, req.Index, req.Change24h)
	changed := h.store.CheckForCrisis(ctx)
	return xhttp.SuccessResponse(c, &tickResponse{
		RegimeChanged: changed,
		MarketRegime:  h.store.Snapshot().MarketRegime,
	})
}

func (h *CrisisEchoHandler) ActivateParanoia(c echo.Context) error {
	req := &models.ParanoiaRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	h.store.ActivateParanoia(c.Request().Context(), req.Reason)
	return xhttp.SuccessResponse(c, h.store.Snapshot().ParanoiaMode)
}

func (h *CrisisEchoHandler) DeactivateParanoia(c echo.Context) error {
	h.store.DeactivateParanoia(c.Request().Context())
	return xhttp.SuccessResponse(c, h.store.Snapshot().ParanoiaMode)
}

func (h *CrisisEchoHandler) ToggleParanoia(c echo.Context) error {
	h.store.ToggleParanoia(c.Request().Context())
	return xhttp.SuccessResponse(c, h.store.Snapshot().ParanoiaMode)
}

type setRegimeResponse struct {
	Applied      bool          `json:"applied"`
	MarketRegime models.Regime `json:"market_regime"`
}

// SetRegime is the operator override, including the only sanctioned way
// out of crisis.
func (h *CrisisEchoHandler) SetRegime(c echo.Context) error {
	req := &models.SetRegimeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	applied := h.store.SetRegime(c.Request().Context(), models.Regime(req.Regime), req.Confidence, req.Trigger)
	return xhttp.SuccessResponse(c, &setRegimeResponse{
		Applied:      applied,
		MarketRegime: h.store.Snapshot().MarketRegime,
	})
}

func (h *CrisisEchoHandler) Reset(c echo.Context) error {
	h.store.Reset(c.Request().Context())
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}
