package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"towerads/internal/models"
	"towerads/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- placements -------------------------------------------------------------

func (s *Store) InsertPlacement(ctx context.Context, item *models.Placement) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPlacement(ctx context.Context, id string) (*models.Placement, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Placement
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetPlacementByPublicKey(ctx context.Context, key string) (*models.Placement, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.Placement
	err := s.db.WithContext(ctx).Where("public_key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdatePlacementModeration(ctx context.Context, id string, status string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Placement{}).
		Where("id = ?", id).
		Update("moderation_status", status)
	return res.RowsAffected, res.Error
}

// --- mediation --------------------------------------------------------------

func (s *Store) ListEligibleNetworks(ctx context.Context, placementID string, now time.Time) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var networks []string
	err := s.db.WithContext(ctx).
		Table("mediation_config AS mc").
		Select("mc.network").
		Joins("LEFT JOIN mediation_provider_state ps ON ps.placement_id = mc.placement_id AND ps.network = mc.network").
		Where("mc.placement_id = ?", placementID).
		Where("mc.status = ?", "active").
		Where("mc.traffic_percentage > 0").
		Where("ps.exhausted_until IS NULL OR ps.exhausted_until <= ?", now).
		Order("mc.priority DESC, mc.id ASC").
		Scan(&networks).Error
	if err != nil {
		return nil, err
	}
	return networks, nil
}

func (s *Store) GetLastNetwork(ctx context.Context, placementID string) (string, error) {
	if s == nil || s.db == nil {
		return "", nil
	}
	var item models.MediationState
	err := s.db.WithContext(ctx).Where("placement_id = ?", placementID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return item.LastNetwork, nil
}

func (s *Store) SaveMediationState(ctx context.Context, placementID, network string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "placement_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_network",
			"last_shown_at",
		}),
	}).Create(&models.MediationState{
		PlacementID: placementID,
		LastNetwork: network,
		LastShownAt: &at,
	}).Error
}

func (s *Store) InsertAttempt(ctx context.Context, item *models.ImpressionAttempt) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) MarkProviderFilled(ctx context.Context, placementID, network string) error {
	if s == nil || s.db == nil {
		return nil
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "placement_id"}, {Name: "network"}},
		DoUpdates: clause.Assignments(map[string]any{
			"nofill_streak":   0,
			"last_result":     models.AttemptFilled,
			"last_error":      nil,
			"exhausted_until": nil,
			"updated_at":      now,
		}),
	}).Create(&models.ProviderState{
		PlacementID: placementID,
		Network:     network,
		LastResult:  models.AttemptFilled,
		UpdatedAt:   now,
	}).Error
}

func (s *Store) MarkProviderNoFill(ctx context.Context, placementID, network, errMsg string, limit int, exhaustedUntil time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	now := time.Now().UTC()
	var lastErr *string
	if strings.TrimSpace(errMsg) != "" {
		lastErr = &errMsg
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "placement_id"}, {Name: "network"}},
		DoUpdates: clause.Assignments(map[string]any{
			"nofill_streak": gorm.Expr("mediation_provider_state.nofill_streak + 1"),
			"last_result":   models.AttemptNoFill,
			"last_error":    lastErr,
			"updated_at":    now,
		}),
	}).Create(&models.ProviderState{
		PlacementID:  placementID,
		Network:      network,
		NoFillStreak: 1,
		LastResult:   models.AttemptNoFill,
		LastError:    lastErr,
		UpdatedAt:    now,
	}).Error
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.ProviderState{}).
		Where("placement_id = ? AND network = ?", placementID, network).
		Where("nofill_streak >= ?", limit).
		Update("exhausted_until", exhaustedUntil).Error
}

func (s *Store) MarkProviderError(ctx context.Context, placementID, network, errMsg string) error {
	if s == nil || s.db == nil {
		return nil
	}
	now := time.Now().UTC()
	var lastErr *string
	if strings.TrimSpace(errMsg) != "" {
		lastErr = &errMsg
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "placement_id"}, {Name: "network"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_result": models.AttemptError,
			"last_error":  lastErr,
			"updated_at":  now,
		}),
	}).Create(&models.ProviderState{
		PlacementID: placementID,
		Network:     network,
		LastResult:  models.AttemptError,
		LastError:   lastErr,
		UpdatedAt:   now,
	}).Error
}

func (s *Store) GetProviderState(ctx context.Context, placementID, network string) (*models.ProviderState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ProviderState
	err := s.db.WithContext(ctx).
		Where("placement_id = ? AND network = ?", placementID, network).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMediationConfigs(ctx context.Context, placementID string) ([]models.MediationConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.MediationConfig{})
	if strings.TrimSpace(placementID) != "" {
		query = query.Where("placement_id = ?", placementID)
	}
	var items []models.MediationConfig
	if err := query.Order("placement_id asc, network asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListWeightedNetworks(ctx context.Context, placementID string) ([]repository.WeightedNetwork, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.WeightedNetwork
	err := s.db.WithContext(ctx).
		Model(&models.MediationConfig{}).
		Select("network, traffic_percentage").
		Where("placement_id = ?", placementID).
		Where("status = ?", "active").
		Order("priority DESC, id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) UpsertMediationConfig(ctx context.Context, item *models.MediationConfig) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "placement_id"}, {Name: "network"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"priority",
			"traffic_percentage",
			"status",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) SetMediationStatus(ctx context.Context, placementID, network, status string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.MediationConfig{}).
		Where("placement_id = ? AND network = ?", placementID, network).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (s *Store) SetMediationTraffic(ctx context.Context, placementID, network string, pct int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.MediationConfig{}).
		Where("placement_id = ? AND network = ?", placementID, network).
		Update("traffic_percentage", pct)
	return res.RowsAffected, res.Error
}

func (s *Store) ProviderAvailability(ctx context.Context, since time.Time) ([]repository.ProviderAvailabilityRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.ProviderAvailabilityRow
	err := s.db.WithContext(ctx).
		Model(&models.ImpressionAttempt{}).
		Select(`provider,
			COUNT(*) FILTER (WHERE result = 'filled') AS filled,
			COUNT(*) FILTER (WHERE result = 'nofill') AS no_fill,
			COUNT(*) FILTER (WHERE result = 'error') AS error,
			MAX(created_at) AS last_attempt_at`).
		Where("created_at >= ?", since).
		Group("provider").
		Order("provider asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- impressions ------------------------------------------------------------

func (s *Store) InsertImpression(ctx context.Context, item *models.Impression) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetImpression(ctx context.Context, id string) (*models.Impression, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Impression
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CountRecentBySession(ctx context.Context, sessionID string, since time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Impression{}).
		Where("session_id = ?", sessionID).
		Where("created_at > ?", since).
		Count(&n).Error
	return n, err
}

func (s *Store) SetServedProvider(ctx context.Context, id, provider string, at time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Impression{}).
		Where("id = ? AND status = ?", id, "requested").
		Updates(map[string]any{
			"served_provider": provider,
			"served_at":       at,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) TransitionToImpressionTx(ctx context.Context, tx *gorm.DB, id string, revenue, cost decimal.Decimal) (int64, error) {
	if tx == nil {
		return 0, nil
	}
	res := tx.WithContext(ctx).Model(&models.Impression{}).
		Where("id = ? AND status = ?", id, "requested").
		Updates(map[string]any{
			"status":      "impression",
			"revenue_usd": revenue,
			"cost_usd":    cost,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) MarkCompleted(ctx context.Context, id string, at time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Impression{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       "completed",
			"completed_at": at,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) MarkClicked(ctx context.Context, id string, at time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Impression{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     "clicked",
			"clicked_at": at,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) PlacementStats(ctx context.Context, placementID string) (repository.PlacementStats, error) {
	if s == nil || s.db == nil {
		return repository.PlacementStats{}, nil
	}
	var row struct {
		Requests    int64
		Impressions int64
		Clicks      int64
		RevenueUSD  decimal.Decimal
		CostUSD     decimal.Decimal
	}
	err := s.db.WithContext(ctx).Model(&models.Impression{}).
		Select(`COUNT(*) AS requests,
			COUNT(*) FILTER (WHERE status IN ('impression','completed','clicked')) AS impressions,
			COUNT(*) FILTER (WHERE status = 'clicked') AS clicks,
			COALESCE(SUM(revenue_usd),0) AS revenue_usd,
			COALESCE(SUM(cost_usd),0) AS cost_usd`).
		Where("placement_id = ?", placementID).
		Scan(&row).Error
	if err != nil {
		return repository.PlacementStats{}, err
	}
	return repository.PlacementStats{
		Requests:    row.Requests,
		Impressions: row.Impressions,
		Clicks:      row.Clicks,
		RevenueUSD:  row.RevenueUSD,
		CostUSD:     row.CostUSD,
	}, nil
}

// --- inventory --------------------------------------------------------------

func (s *Store) PickInternalAd(ctx context.Context, placementID string) (*models.Ad, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Ad
	err := s.db.WithContext(ctx).
		Where("placement_id = ?", placementID).
		Where("status = ?", models.AdActive).
		Where("source = ?", models.SourceInternal).
		Order("last_shown_at ASC NULLS FIRST").
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) StampAdShown(ctx context.Context, adID string, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Ad{}).
		Where("id = ?", adID).
		Update("last_shown_at", at).Error
}

func (s *Store) GetAd(ctx context.Context, id string) (*models.Ad, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Ad
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertAd(ctx context.Context, item *models.Ad) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.CreativeOrder, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CreativeOrder
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetActiveOrderForCreative(ctx context.Context, creativeID string) (*models.CreativeOrder, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CreativeOrder
	err := s.db.WithContext(ctx).
		Where("creative_id = ? AND status = ?", creativeID, models.OrderActive).
		Order("created_at ASC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertOrder(ctx context.Context, item *models.CreativeOrder) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) DecrementOrderBudgetTx(ctx context.Context, tx *gorm.DB, orderID string) (*repository.OrderReservation, error) {
	if tx == nil {
		return nil, nil
	}
	var row repository.OrderReservation
	res := tx.WithContext(ctx).Raw(`
		UPDATE creative_orders
		SET impressions_left = impressions_left - 1,
		    updated_at = now()
		WHERE id = ?
		  AND status = 'active'
		  AND impressions_left > 0
		RETURNING impressions_left, creative_id`, orderID).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &row, nil
}

func (s *Store) CompleteOrderCascadeTx(ctx context.Context, tx *gorm.DB, orderID, creativeID string) error {
	if tx == nil {
		return nil
	}
	if err := tx.WithContext(ctx).Model(&models.CreativeOrder{}).
		Where("id = ?", orderID).
		Update("status", models.OrderCompleted).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Model(&models.Creative{}).
		Where("id = ?", creativeID).
		Update("status", models.CreativeFrozen).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Model(&models.Ad{}).
		Where("source = ?", models.SourceInternal).
		Where("creative_id = ?", creativeID).
		Update("status", models.AdPaused).Error
}

func (s *Store) GetCreative(ctx context.Context, id string) (*models.Creative, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Creative
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertCreative(ctx context.Context, item *models.Creative) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateCreativeStatus(ctx context.Context, id, status string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Creative{}).
		Where("id = ?", id).
		Update("status", status)
	return res.RowsAffected, res.Error
}

func (s *Store) GetPricingPlan(ctx context.Context, id string) (*models.PricingPlan, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PricingPlan
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertPricingPlan(ctx context.Context, item *models.PricingPlan) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Campaign
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertCampaign(ctx context.Context, item *models.Campaign) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) AddCampaignSpendTx(ctx context.Context, tx *gorm.DB, campaignID string, amount decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]any{
			"spent_today_usd": gorm.Expr("spent_today_usd + ?", amount),
			"spent_total_usd": gorm.Expr("spent_total_usd + ?", amount),
		}).Error
}

// --- ledger -----------------------------------------------------------------

func (s *Store) AggregateImpressionsTx(ctx context.Context, tx *gorm.DB, start, end time.Time) ([]repository.WindowAggregate, error) {
	if tx == nil {
		return nil, nil
	}
	var rows []repository.WindowAggregate
	err := tx.WithContext(ctx).
		Table("impressions AS i").
		Select(`p.publisher_id AS publisher_id,
			i.placement_id AS placement_id,
			COUNT(*) AS impressions,
			COALESCE(SUM(i.revenue_usd),0) AS gross_usd`).
		Joins("JOIN placements p ON p.id = i.placement_id").
		Where("p.moderation_status = ?", models.ModerationApproved).
		Where("i.is_fraud = ?", false).
		Where("i.status IN ?", []string{"impression", "completed"}).
		Where("i.created_at >= ? AND i.created_at < ?", start, end).
		Group("p.publisher_id, i.placement_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) InsertLedgerEntryTx(ctx context.Context, tx *gorm.DB, item *models.LedgerEntry) (bool, error) {
	if tx == nil || item == nil {
		return false, nil
	}
	res := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ledger_key"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) EnsureBalanceTx(ctx context.Context, tx *gorm.DB, publisherID string) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "publisher_id"}},
		DoNothing: true,
	}).Create(&models.PublisherBalance{PublisherID: publisherID}).Error
}

func (s *Store) AddFrozenTx(ctx context.Context, tx *gorm.DB, publisherID string, amount decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).Model(&models.PublisherBalance{}).
		Where("publisher_id = ?", publisherID).
		Update("frozen_usd", gorm.Expr("frozen_usd + ?", amount)).Error
}

func (s *Store) ListDueFrozenTx(ctx context.Context, tx *gorm.DB, now time.Time) ([]models.LedgerEntry, error) {
	if tx == nil {
		return nil, nil
	}
	var items []models.LedgerEntry
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("entry_type = ?", models.EntryEarnNetFrozen).
		Where("status = ?", models.LedgerPosted).
		Where("available_at IS NOT NULL AND available_at <= ?", now).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SettleEntriesTx(ctx context.Context, tx *gorm.DB, ids []uint64) error {
	if tx == nil || len(ids) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("id IN ?", ids).
		Update("status", models.LedgerSettled).Error
}

func (s *Store) ReleaseFrozenTx(ctx context.Context, tx *gorm.DB, publisherID string, amount decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).Model(&models.PublisherBalance{}).
		Where("publisher_id = ?", publisherID).
		Updates(map[string]any{
			"frozen_usd":    gorm.Expr("GREATEST(0, frozen_usd - ?)", amount),
			"available_usd": gorm.Expr("available_usd + ?", amount),
		}).Error
}

func (s *Store) GetBalance(ctx context.Context, publisherID string) (*models.PublisherBalance, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PublisherBalance
	err := s.db.WithContext(ctx).Where("publisher_id = ?", publisherID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SumLedger(ctx context.Context, publisherID string, statuses []string) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal
	}
	query := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount_usd),0) AS total").
		Where("publisher_id = ?", publisherID).
		Where("entry_type = ?", models.EntryEarnNetFrozen)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if err := query.Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, params repository.ListLedgerParams) ([]models.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.LedgerEntry{})
	if params.PublisherID != nil && strings.TrimSpace(*params.PublisherID) != "" {
		query = query.Where("publisher_id = ?", strings.TrimSpace(*params.PublisherID))
	}
	if params.EntryType != nil && strings.TrimSpace(*params.EntryType) != "" {
		query = query.Where("entry_type = ?", strings.TrimSpace(*params.EntryType))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	limit := params.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var items []models.LedgerEntry
	if err := query.Order("id desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
