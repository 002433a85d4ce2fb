package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"towerads/internal/adserr"
	"towerads/internal/impression"
	"towerads/internal/inventory"
	"towerads/internal/mediation"
	"towerads/internal/metrics"
	"towerads/internal/models"
	"towerads/internal/repository"
)

// ServeHandler is the SDK-facing surface: ad request, provider results and
// the impression lifecycle callbacks.
type ServeHandler struct {
	Placements  repository.PlacementRepository
	Engine      *mediation.Engine
	Reserver    *inventory.Reserver
	Impressions *impression.Service
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

func (h *ServeHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/ads")
	g.POST("/request", h.request)
	g.POST("/provider-result", h.providerResult)
	g.POST("/impression", h.markImpression)
	g.POST("/complete", h.markCompleted)
	g.POST("/click", h.markClicked)
	g.GET("/stats", h.stats)
}

type adRequestBody struct {
	PlacementID  string `json:"placement_id"`
	PlacementKey string `json:"placement_key"`
	// Mode selects the decision path: "waterfall" (default) rotates through
	// every eligible network, "weighted" rolls a single provider by traffic
	// percentage for SDKs that cannot walk a waterfall.
	Mode            string `json:"mode"`
	SessionID       string `json:"session_id"`
	Device          string `json:"device"`
	OS              string `json:"os"`
	Referer         string `json:"referer"`
	CaptchaVerified *bool  `json:"captcha_verified"`
}

type adPayload struct {
	AdID     string `json:"ad_id"`
	AdType   string `json:"ad_type"`
	MediaURL string `json:"media_url"`
	ClickURL string `json:"click_url,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

func (h *ServeHandler) request(c *gin.Context) {
	if h.Impressions == nil || h.Engine == nil {
		Error(c, 500, "service unavailable", nil)
		return
	}
	var body adRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	mode := strings.ToLower(strings.TrimSpace(body.Mode))
	switch mode {
	case "", "waterfall", "weighted":
	default:
		Fail(c, adserr.Validationf("unknown mode %q", body.Mode))
		return
	}

	ctx := c.Request.Context()
	placement, err := h.resolvePlacement(c, body)
	if err != nil {
		h.countRequest("rejected")
		Fail(c, err)
		return
	}

	providers, err := h.decideProviders(ctx, placement.ID, mode)
	if err != nil {
		h.countRequest("error")
		Fail(c, err)
		return
	}

	var ad *models.Ad
	if len(providers) > 0 && providers[0] == mediation.ProviderInternal && h.Reserver != nil {
		ad, err = h.Reserver.PickInternalAd(ctx, placement.ID)
		if err != nil {
			h.countRequest("error")
			Fail(c, err)
			return
		}
	}

	imp, err := h.Impressions.Create(ctx, impression.CreateParams{
		Placement: placement,
		Providers: providers,
		Ad:        ad,
		Client: impression.ClientContext{
			IP:              c.ClientIP(),
			Device:          body.Device,
			OS:              body.OS,
			SessionID:       body.SessionID,
			UserAgent:       c.Request.UserAgent(),
			Referer:         body.Referer,
			CaptchaVerified: body.CaptchaVerified,
		},
	})
	if err != nil {
		h.countRequest("rejected")
		Fail(c, err)
		return
	}

	data := gin.H{
		"impression_id": imp.ID,
		"providers":     providers,
	}
	if ad != nil {
		data["ad"] = adPayload{
			AdID:     ad.ID,
			AdType:   ad.AdType,
			MediaURL: ad.MediaURL,
			ClickURL: ad.ClickURL,
			Duration: ad.Duration,
		}
		h.countRequest("internal_fill")
	} else {
		h.countRequest("waterfall")
	}
	Ok(c, data, nil)
}

func (h *ServeHandler) decideProviders(ctx context.Context, placementID, mode string) ([]string, error) {
	if mode == "weighted" {
		provider, err := h.Engine.PickWeighted(ctx, placementID)
		if err != nil {
			return nil, err
		}
		return []string{provider}, nil
	}
	return h.Engine.DecideProviders(ctx, placementID)
}

func (h *ServeHandler) resolvePlacement(c *gin.Context, body adRequestBody) (*models.Placement, error) {
	ctx := c.Request.Context()
	if id := strings.TrimSpace(body.PlacementID); id != "" {
		p, err := h.Placements.GetPlacement(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, adserr.NotFoundf("placement %s", id)
		}
		return p, nil
	}
	if key := strings.TrimSpace(body.PlacementKey); key != "" {
		p, err := h.Placements.GetPlacementByPublicKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, adserr.NotFoundf("placement key %s", key)
		}
		return p, nil
	}
	return nil, adserr.Validationf("placement_id or placement_key is required")
}

type providerResultBody struct {
	ImpressionID string `json:"impression_id"`
	WonProvider  string `json:"won_provider"`
	Attempts     []struct {
		Provider string `json:"provider"`
		Outcome  string `json:"outcome"`
		Error    string `json:"error"`
	} `json:"attempts"`
}

func (h *ServeHandler) providerResult(c *gin.Context) {
	if h.Engine == nil {
		Error(c, 500, "service unavailable", nil)
		return
	}
	var body providerResultBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	attempts := make([]mediation.Attempt, 0, len(body.Attempts))
	for _, a := range body.Attempts {
		attempts = append(attempts, mediation.Attempt{
			Provider: a.Provider,
			Outcome:  a.Outcome,
			Error:    a.Error,
		})
	}
	if err := h.Engine.RecordAttempts(c.Request.Context(), body.ImpressionID, attempts, body.WonProvider); err != nil {
		Fail(c, err)
		return
	}
	if h.Metrics != nil {
		for _, a := range attempts {
			h.Metrics.ProviderAttempts.WithLabelValues(a.Provider, mediation.NormalizeOutcome(a.Outcome)).Inc()
		}
	}
	Ok(c, nil, nil)
}

type impressionIDBody struct {
	ImpressionID string `json:"impression_id"`
}

func (h *ServeHandler) markImpression(c *gin.Context) {
	h.transition(c, h.Impressions.MarkImpression)
}

func (h *ServeHandler) markCompleted(c *gin.Context) {
	h.transition(c, h.Impressions.MarkCompleted)
}

func (h *ServeHandler) markClicked(c *gin.Context) {
	h.transition(c, h.Impressions.MarkClicked)
}

func (h *ServeHandler) transition(c *gin.Context, fn func(ctx context.Context, id string) error) {
	if h.Impressions == nil {
		Error(c, 500, "service unavailable", nil)
		return
	}
	var body impressionIDBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	if err := fn(c.Request.Context(), body.ImpressionID); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"impression_id": body.ImpressionID}, nil)
}

func (h *ServeHandler) stats(c *gin.Context) {
	if h.Impressions == nil {
		Error(c, 500, "service unavailable", nil)
		return
	}
	placementID := strings.TrimSpace(c.Query("placement_id"))
	if placementID == "" {
		Fail(c, adserr.Validationf("placement_id is required"))
		return
	}
	stats, err := h.Impressions.PlacementStats(c.Request.Context(), placementID)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, stats, nil)
}

func (h *ServeHandler) countRequest(outcome string) {
	if h.Metrics != nil {
		h.Metrics.AdRequests.WithLabelValues(outcome).Inc()
	}
}
