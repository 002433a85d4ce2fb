package impression

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"towerads/internal/models"
	"towerads/internal/repository"
)

// stubStore is a test-only in-memory implementation of the impression and
// inventory repositories. InTx snapshots mutable state and restores it when
// fn fails, so rollback-dependent paths behave like the real store.
type stubStore struct {
	imps          map[string]*models.Impression
	orders        map[string]*models.CreativeOrder
	ads           map[string]*models.Ad
	creatives     map[string]*models.Creative
	plans         map[string]*models.PricingPlan
	campaignSpend map[string]decimal.Decimal
	recentBySess  map[string]int64
}

func newStubStore() *stubStore {
	return &stubStore{
		imps:          map[string]*models.Impression{},
		orders:        map[string]*models.CreativeOrder{},
		ads:           map[string]*models.Ad{},
		creatives:     map[string]*models.Creative{},
		plans:         map[string]*models.PricingPlan{},
		campaignSpend: map[string]decimal.Decimal{},
		recentBySess:  map[string]int64{},
	}
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	impsBak := snapshotMap(s.imps)
	ordersBak := snapshotMap(s.orders)
	adsBak := snapshotMap(s.ads)
	creativesBak := snapshotMap(s.creatives)
	spendBak := map[string]decimal.Decimal{}
	for k, v := range s.campaignSpend {
		spendBak[k] = v
	}
	if err := fn(nil); err != nil {
		s.imps = impsBak
		s.orders = ordersBak
		s.ads = adsBak
		s.creatives = creativesBak
		s.campaignSpend = spendBak
		return err
	}
	return nil
}

func snapshotMap[T any](src map[string]*T) map[string]*T {
	out := make(map[string]*T, len(src))
	for k, v := range src {
		cp := *v
		out[k] = &cp
	}
	return out
}

// --- impressions -----------------------------------------------------------

func (s *stubStore) InsertImpression(ctx context.Context, item *models.Impression) error {
	s.imps[item.ID] = item
	return nil
}

func (s *stubStore) GetImpression(ctx context.Context, id string) (*models.Impression, error) {
	imp := s.imps[id]
	if imp == nil {
		return nil, nil
	}
	cp := *imp
	return &cp, nil
}

func (s *stubStore) CountRecentBySession(ctx context.Context, sessionID string, since time.Time) (int64, error) {
	return s.recentBySess[sessionID], nil
}

func (s *stubStore) SetServedProvider(ctx context.Context, id, provider string, at time.Time) (int64, error) {
	imp := s.imps[id]
	if imp == nil || imp.Status != string(StatusRequested) {
		return 0, nil
	}
	imp.ServedProvider = &provider
	imp.ServedAt = &at
	return 1, nil
}

func (s *stubStore) TransitionToImpressionTx(ctx context.Context, tx *gorm.DB, id string, revenue, cost decimal.Decimal) (int64, error) {
	imp := s.imps[id]
	if imp == nil || imp.Status != string(StatusRequested) {
		return 0, nil
	}
	imp.Status = string(StatusImpression)
	imp.RevenueUSD = revenue
	imp.CostUSD = cost
	return 1, nil
}

func (s *stubStore) MarkCompleted(ctx context.Context, id string, at time.Time) (int64, error) {
	imp := s.imps[id]
	if imp == nil {
		return 0, nil
	}
	imp.Status = string(StatusCompleted)
	imp.CompletedAt = &at
	return 1, nil
}

func (s *stubStore) MarkClicked(ctx context.Context, id string, at time.Time) (int64, error) {
	imp := s.imps[id]
	if imp == nil {
		return 0, nil
	}
	imp.Status = string(StatusClicked)
	imp.ClickedAt = &at
	return 1, nil
}

func (s *stubStore) PlacementStats(ctx context.Context, placementID string) (repository.PlacementStats, error) {
	out := repository.PlacementStats{RevenueUSD: decimal.Zero, CostUSD: decimal.Zero}
	for _, imp := range s.imps {
		if imp.PlacementID != placementID {
			continue
		}
		out.Requests++
		if imp.Status != string(StatusRequested) {
			out.Impressions++
		}
		if imp.ClickedAt != nil {
			out.Clicks++
		}
		out.RevenueUSD = out.RevenueUSD.Add(imp.RevenueUSD)
		out.CostUSD = out.CostUSD.Add(imp.CostUSD)
	}
	return out, nil
}

// --- inventory -------------------------------------------------------------

func (s *stubStore) PickInternalAd(ctx context.Context, placementID string) (*models.Ad, error) {
	var best *models.Ad
	for _, ad := range s.ads {
		if ad.PlacementID != placementID || ad.Status != models.AdActive || ad.Source != models.SourceInternal {
			continue
		}
		if best == nil {
			best = ad
			continue
		}
		switch {
		case ad.LastShownAt == nil && best.LastShownAt != nil:
			best = ad
		case ad.LastShownAt != nil && best.LastShownAt != nil && ad.LastShownAt.Before(*best.LastShownAt):
			best = ad
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *stubStore) StampAdShown(ctx context.Context, adID string, at time.Time) error {
	if ad := s.ads[adID]; ad != nil {
		ad.LastShownAt = &at
	}
	return nil
}

func (s *stubStore) GetAd(ctx context.Context, id string) (*models.Ad, error) {
	ad := s.ads[id]
	if ad == nil {
		return nil, nil
	}
	cp := *ad
	return &cp, nil
}

func (s *stubStore) InsertAd(ctx context.Context, item *models.Ad) error {
	s.ads[item.ID] = item
	return nil
}

func (s *stubStore) GetOrder(ctx context.Context, id string) (*models.CreativeOrder, error) {
	order := s.orders[id]
	if order == nil {
		return nil, nil
	}
	cp := *order
	return &cp, nil
}

func (s *stubStore) GetActiveOrderForCreative(ctx context.Context, creativeID string) (*models.CreativeOrder, error) {
	for _, order := range s.orders {
		if order.CreativeID == creativeID && order.Status == models.OrderActive {
			cp := *order
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) InsertOrder(ctx context.Context, item *models.CreativeOrder) error {
	s.orders[item.ID] = item
	return nil
}

func (s *stubStore) DecrementOrderBudgetTx(ctx context.Context, tx *gorm.DB, orderID string) (*repository.OrderReservation, error) {
	order := s.orders[orderID]
	if order == nil || order.Status != models.OrderActive || order.ImpressionsLeft <= 0 {
		return nil, nil
	}
	order.ImpressionsLeft--
	return &repository.OrderReservation{
		ImpressionsLeft: order.ImpressionsLeft,
		CreativeID:      order.CreativeID,
	}, nil
}

func (s *stubStore) CompleteOrderCascadeTx(ctx context.Context, tx *gorm.DB, orderID, creativeID string) error {
	if order := s.orders[orderID]; order != nil {
		order.Status = models.OrderCompleted
	}
	if creative := s.creatives[creativeID]; creative != nil {
		creative.Status = models.CreativeFrozen
	}
	for _, ad := range s.ads {
		if ad.CreativeID != nil && *ad.CreativeID == creativeID && ad.Source == models.SourceInternal {
			ad.Status = models.AdPaused
		}
	}
	return nil
}

func (s *stubStore) GetCreative(ctx context.Context, id string) (*models.Creative, error) {
	creative := s.creatives[id]
	if creative == nil {
		return nil, nil
	}
	cp := *creative
	return &cp, nil
}

func (s *stubStore) InsertCreative(ctx context.Context, item *models.Creative) error {
	s.creatives[item.ID] = item
	return nil
}

func (s *stubStore) UpdateCreativeStatus(ctx context.Context, id, status string) (int64, error) {
	creative := s.creatives[id]
	if creative == nil {
		return 0, nil
	}
	creative.Status = status
	return 1, nil
}

func (s *stubStore) GetPricingPlan(ctx context.Context, id string) (*models.PricingPlan, error) {
	plan := s.plans[id]
	if plan == nil {
		return nil, nil
	}
	cp := *plan
	return &cp, nil
}

func (s *stubStore) InsertPricingPlan(ctx context.Context, item *models.PricingPlan) error {
	s.plans[item.ID] = item
	return nil
}

func (s *stubStore) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	return nil, nil
}

func (s *stubStore) InsertCampaign(ctx context.Context, item *models.Campaign) error {
	return nil
}

func (s *stubStore) AddCampaignSpendTx(ctx context.Context, tx *gorm.DB, campaignID string, amount decimal.Decimal) error {
	s.campaignSpend[campaignID] = s.campaignSpend[campaignID].Add(amount)
	return nil
}
