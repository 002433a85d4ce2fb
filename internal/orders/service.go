// Package orders handles the advertiser side of the internal pool:
// moderation of placements and creatives, and prepaid creative orders that
// spawn internal ads.
package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"towerads/internal/adserr"
	"towerads/internal/models"
	"towerads/internal/notify"
	"towerads/internal/repository"
)

type Service struct {
	Inventory  repository.InventoryRepository
	Placements repository.PlacementRepository
	Notify     notify.Publisher
	Logger     *zap.Logger
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateOrderParams binds an approved creative to a placement through a
// pricing plan.
type CreateOrderParams struct {
	CreativeID    string
	PricingPlanID string
	PlacementID   string
}

// CreateOrder opens a prepaid order for the creative and spawns the internal
// ad that serves it. Only approved creatives on approved placements qualify.
func (s *Service) CreateOrder(ctx context.Context, params CreateOrderParams) (*models.CreativeOrder, error) {
	if params.CreativeID == "" || params.PricingPlanID == "" || params.PlacementID == "" {
		return nil, adserr.Validationf("creative_id, pricing_plan_id and placement_id are required")
	}

	creative, err := s.Inventory.GetCreative(ctx, params.CreativeID)
	if err != nil {
		return nil, err
	}
	if creative == nil {
		return nil, adserr.NotFoundf("creative %s", params.CreativeID)
	}
	if creative.Status != models.CreativeApproved {
		return nil, adserr.InvalidStatef("creative %s is %s, want approved", creative.ID, creative.Status)
	}

	plan, err := s.Inventory.GetPricingPlan(ctx, params.PricingPlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, adserr.NotFoundf("pricing plan %s", params.PricingPlanID)
	}
	if plan.Status != "active" {
		return nil, adserr.InvalidStatef("pricing plan %s is %s", plan.ID, plan.Status)
	}
	if plan.Impressions <= 0 {
		return nil, adserr.Validationf("pricing plan %s has no impressions", plan.ID)
	}

	placement, err := s.Placements.GetPlacement(ctx, params.PlacementID)
	if err != nil {
		return nil, err
	}
	if placement == nil {
		return nil, adserr.NotFoundf("placement %s", params.PlacementID)
	}
	if placement.ModerationStatus != models.ModerationApproved {
		return nil, adserr.InvalidStatef("placement %s is not approved", placement.ID)
	}

	order := &models.CreativeOrder{
		ID:                 newID("ord_"),
		CreativeID:         creative.ID,
		ImpressionsTotal:   plan.Impressions,
		ImpressionsLeft:    plan.Impressions,
		PriceUSD:           plan.PriceUSD,
		PricePerImpression: plan.PriceUSD.DivRound(decimal.NewFromInt(plan.Impressions), 10),
		Status:             models.OrderActive,
	}
	if err := s.Inventory.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	creativeID := creative.ID
	ad := &models.Ad{
		ID:          newID("usl_"),
		PlacementID: placement.ID,
		AdType:      creative.Type,
		MediaURL:    creative.MediaURL,
		ClickURL:    creative.ClickURL,
		Duration:    creative.Duration,
		Status:      models.AdActive,
		Source:      models.SourceInternal,
		CreativeID:  &creativeID,
	}
	if err := s.Inventory.InsertAd(ctx, ad); err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Info("order created",
			zap.String("order_id", order.ID),
			zap.String("creative_id", creative.ID),
			zap.String("ad_id", ad.ID),
			zap.Int64("impressions", order.ImpressionsTotal))
	}
	return order, nil
}

// ModeratePlacement moves a pending placement to approved or rejected and
// notifies the publisher.
func (s *Service) ModeratePlacement(ctx context.Context, id string, approve bool) error {
	placement, err := s.Placements.GetPlacement(ctx, id)
	if err != nil {
		return err
	}
	if placement == nil {
		return adserr.NotFoundf("placement %s", id)
	}
	if placement.ModerationStatus != models.ModerationPending {
		return adserr.InvalidStatef("placement %s is %s, want pending", id, placement.ModerationStatus)
	}

	status := models.ModerationRejected
	kind := notify.KindPlacementRejected
	if approve {
		status = models.ModerationApproved
		kind = notify.KindPlacementApproved
	}
	n, err := s.Placements.UpdatePlacementModeration(ctx, id, status)
	if err != nil {
		return err
	}
	if n == 0 {
		return adserr.NotFoundf("placement %s", id)
	}
	s.publish(kind, map[string]string{
		"placement_id": id,
		"publisher_id": placement.PublisherID,
	})
	return nil
}

// ModerateCreative moves a pending creative to approved or rejected and
// notifies the advertiser.
func (s *Service) ModerateCreative(ctx context.Context, id string, approve bool) error {
	creative, err := s.Inventory.GetCreative(ctx, id)
	if err != nil {
		return err
	}
	if creative == nil {
		return adserr.NotFoundf("creative %s", id)
	}
	if creative.Status != models.CreativePending {
		return adserr.InvalidStatef("creative %s is %s, want pending", id, creative.Status)
	}

	status := models.CreativeRejected
	kind := notify.KindCreativeRejected
	if approve {
		status = models.CreativeApproved
		kind = notify.KindCreativeApproved
	}
	n, err := s.Inventory.UpdateCreativeStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if n == 0 {
		return adserr.NotFoundf("creative %s", id)
	}
	s.publish(kind, map[string]string{
		"creative_id":   id,
		"advertiser_id": creative.AdvertiserID,
	})
	return nil
}

func (s *Service) publish(kind string, payload map[string]string) {
	if s.Notify == nil {
		return
	}
	s.Notify.Publish(notify.Event{Kind: kind, Payload: payload})
}
