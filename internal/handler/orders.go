package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"towerads/internal/adserr"
	"towerads/internal/models"
	"towerads/internal/orders"
	"towerads/internal/repository"
)

// OrdersHandler covers the advertiser admin surface: creatives, pricing
// plans, orders and moderation decisions.
type OrdersHandler struct {
	Service    *orders.Service
	Inventory  repository.InventoryRepository
	Placements repository.PlacementRepository
	Logger     *zap.Logger
}

func (h *OrdersHandler) Register(r *gin.Engine) {
	admin := r.Group("/api/v1/admin")
	admin.POST("/orders", h.createOrder)
	admin.POST("/creatives", h.createCreative)
	admin.POST("/creatives/:id/moderate", h.moderateCreative)
	admin.POST("/placements", h.createPlacement)
	admin.POST("/placements/:id/moderate", h.moderatePlacement)
	admin.POST("/pricing-plans", h.createPricingPlan)
}

type createOrderBody struct {
	CreativeID    string `json:"creative_id"`
	PricingPlanID string `json:"pricing_plan_id"`
	PlacementID   string `json:"placement_id"`
}

func (h *OrdersHandler) createOrder(c *gin.Context) {
	if h.Service == nil {
		Error(c, 500, "service unavailable", nil)
		return
	}
	var body createOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	order, err := h.Service.CreateOrder(c.Request.Context(), orders.CreateOrderParams{
		CreativeID:    body.CreativeID,
		PricingPlanID: body.PricingPlanID,
		PlacementID:   body.PlacementID,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, order, nil)
}

type createCreativeBody struct {
	AdvertiserID string `json:"advertiser_id"`
	Type         string `json:"type"`
	MediaURL     string `json:"media_url"`
	ClickURL     string `json:"click_url"`
	Duration     int    `json:"duration"`
}

func (h *OrdersHandler) createCreative(c *gin.Context) {
	if h.Inventory == nil {
		Error(c, 500, "repo unavailable", nil)
		return
	}
	var body createCreativeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	if body.AdvertiserID == "" || body.Type == "" || body.MediaURL == "" {
		Fail(c, adserr.Validationf("advertiser_id, type and media_url are required"))
		return
	}
	item := &models.Creative{
		ID:           "cr_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AdvertiserID: body.AdvertiserID,
		Type:         body.Type,
		MediaURL:     body.MediaURL,
		ClickURL:     body.ClickURL,
		Duration:     body.Duration,
		Status:       models.CreativePending,
	}
	if err := h.Inventory.InsertCreative(c.Request.Context(), item); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

type moderateBody struct {
	Approve bool `json:"approve"`
}

func (h *OrdersHandler) moderateCreative(c *gin.Context) {
	if h.Service == nil {
		Error(c, 500, "service unavailable", nil)
		return
	}
	var body moderateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	if err := h.Service.ModerateCreative(c.Request.Context(), c.Param("id"), body.Approve); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, nil, nil)
}

type createPlacementBody struct {
	PublisherID string `json:"publisher_id"`
	AdType      string `json:"ad_type"`
}

func (h *OrdersHandler) createPlacement(c *gin.Context) {
	if h.Placements == nil {
		Error(c, 500, "repo unavailable", nil)
		return
	}
	var body createPlacementBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	if body.PublisherID == "" || body.AdType == "" {
		Fail(c, adserr.Validationf("publisher_id and ad_type are required"))
		return
	}
	item := &models.Placement{
		ID:               "pl_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		PublisherID:      body.PublisherID,
		PublicKey:        "pk_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AdType:           body.AdType,
		Status:           models.PlacementActive,
		ModerationStatus: models.ModerationPending,
	}
	if err := h.Placements.InsertPlacement(c.Request.Context(), item); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *OrdersHandler) moderatePlacement(c *gin.Context) {
	if h.Service == nil {
		Error(c, 500, "service unavailable", nil)
		return
	}
	var body moderateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	if err := h.Service.ModeratePlacement(c.Request.Context(), c.Param("id"), body.Approve); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, nil, nil)
}

type createPricingPlanBody struct {
	Name        string          `json:"name"`
	Impressions int64           `json:"impressions"`
	PriceUSD    decimal.Decimal `json:"price_usd"`
}

func (h *OrdersHandler) createPricingPlan(c *gin.Context) {
	if h.Inventory == nil {
		Error(c, 500, "repo unavailable", nil)
		return
	}
	var body createPricingPlanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, adserr.Validationf("invalid body: %v", err))
		return
	}
	if body.Name == "" || body.Impressions <= 0 || !body.PriceUSD.IsPositive() {
		Fail(c, adserr.Validationf("name, impressions and price_usd are required"))
		return
	}
	item := &models.PricingPlan{
		ID:          "plan_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Name:        body.Name,
		Impressions: body.Impressions,
		PriceUSD:    body.PriceUSD,
		Status:      "active",
	}
	if err := h.Inventory.InsertPricingPlan(c.Request.Context(), item); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}
