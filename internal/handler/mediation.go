package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"towerads/internal/adserr"
	"towerads/internal/models"
	"towerads/internal/repository"
)

// MediationHandler is the admin surface over per-placement waterfall
// configuration and provider health.
type MediationHandler struct {
	Repo   repository.MediationRepository
	Logger *zap.Logger
}

func (h *MediationHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/admin/mediation")
	g.GET("", h.list)
	g.POST("", h.upsert)
	g.POST("/status", h.setStatus)
	g.POST("/traffic", h.setTraffic)

	r.GET("/api/v1/admin/providers/availability", h.availability)
}

func (h *MediationHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, 500, "repo unavailable", nil)
		return
	}
	placementID := strings.TrimSpace(c.Query("placement_id"))
	if placementID == "" {
		Fail(c, adserr.Validationf("placement_id is required"))
		return
	}
	items, err := h.Repo.ListMediationConfigs(c.Request.Context(), placementID)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

type mediationUpsertBody struct {
	PlacementID       string `json:"placement_id"`
	Network           string `json:"network"`
	Priority          int    `json:"priority"`
	TrafficPercentage int    `json:"traffic_percentage"`
	Status            string `json:"status"`
}

func (h *MediationHandler) upsert(c *gin.Context) {
	if h.Repo == nil {
		Error(c, 500, "repo unavailable", nil)
		return
	}
	var body mediationUpsertBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	if body.PlacementID == "" || body.Network == "" {
		Fail(c, adserr.Validationf("placement_id and network are required"))
		return
	}
	if body.TrafficPercentage < 0 || body.TrafficPercentage > 100 {
		Fail(c, adserr.Validationf("traffic_percentage must be in [0,100]"))
		return
	}
	status := body.Status
	if status == "" {
		status = models.MediationActive
	}
	item := &models.MediationConfig{
		PlacementID:       body.PlacementID,
		Network:           body.Network,
		Priority:          body.Priority,
		TrafficPercentage: body.TrafficPercentage,
		Status:            status,
	}
	if err := h.Repo.UpsertMediationConfig(c.Request.Context(), item); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

type mediationToggleBody struct {
	PlacementID string `json:"placement_id"`
	Network     string `json:"network"`
	Status      string `json:"status"`
	Traffic     *int   `json:"traffic_percentage"`
}

func (h *MediationHandler) setStatus(c *gin.Context) {
	if h.Repo == nil {
		Error(c, 500, "repo unavailable", nil)
		return
	}
	var body mediationToggleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	if body.Status != models.MediationActive && body.Status != models.MediationPaused {
		Fail(c, adserr.Validationf("status must be active or paused"))
		return
	}
	n, err := h.Repo.SetMediationStatus(c.Request.Context(), body.PlacementID, body.Network, body.Status)
	if err != nil {
		Fail(c, err)
		return
	}
	if n == 0 {
		Fail(c, adserr.NotFoundf("mediation config %s/%s", body.PlacementID, body.Network))
		return
	}
	Ok(c, nil, nil)
}

func (h *MediationHandler) setTraffic(c *gin.Context) {
	if h.Repo == nil {
		Error(c, 500, "repo unavailable", nil)
		return
	}
	var body mediationToggleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	if body.Traffic == nil || *body.Traffic < 0 || *body.Traffic > 100 {
		Fail(c, adserr.Validationf("traffic_percentage must be in [0,100]"))
		return
	}
	n, err := h.Repo.SetMediationTraffic(c.Request.Context(), body.PlacementID, body.Network, *body.Traffic)
	if err != nil {
		Fail(c, err)
		return
	}
	if n == 0 {
		Fail(c, adserr.NotFoundf("mediation config %s/%s", body.PlacementID, body.Network))
		return
	}
	Ok(c, nil, nil)
}

func (h *MediationHandler) availability(c *gin.Context) {
	if h.Repo == nil {
		Error(c, 500, "repo unavailable", nil)
		return
	}
	var since time.Time
	now := time.Now().UTC()
	switch strings.TrimSpace(c.Query("period")) {
	case "", "1d":
		since = now.Add(-24 * time.Hour)
	case "7d":
		since = now.Add(-7 * 24 * time.Hour)
	case "30d":
		since = now.Add(-30 * 24 * time.Hour)
	default:
		Fail(c, adserr.Validationf("period must be 1d, 7d or 30d"))
		return
	}
	rows, err := h.Repo.ProviderAvailability(c.Request.Context(), since)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rows, map[string]any{"since": since})
}
