package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"towerads/internal/models"
)

// TxRunner runs fn inside one datastore transaction. Engines that need
// several writes to commit or fail together (impression billing, accrual,
// unfreeze) compose their Tx-suffixed calls under one InTx.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type PlacementRepository interface {
	InsertPlacement(ctx context.Context, item *models.Placement) error
	GetPlacement(ctx context.Context, id string) (*models.Placement, error)
	GetPlacementByPublicKey(ctx context.Context, key string) (*models.Placement, error)
	UpdatePlacementModeration(ctx context.Context, id string, status string) (int64, error)
}

type MediationRepository interface {
	// ListEligibleNetworks returns the networks configured active with
	// traffic > 0 for the placement, priority DESC then insertion order,
	// excluding networks whose exhausted_until is still in the future.
	ListEligibleNetworks(ctx context.Context, placementID string, now time.Time) ([]string, error)
	GetLastNetwork(ctx context.Context, placementID string) (string, error)
	SaveMediationState(ctx context.Context, placementID, network string, at time.Time) error

	InsertAttempt(ctx context.Context, item *models.ImpressionAttempt) error
	MarkProviderFilled(ctx context.Context, placementID, network string) error
	// MarkProviderNoFill bumps the streak and, once it reaches limit, sets
	// exhausted_until to the supplied cooldown deadline.
	MarkProviderNoFill(ctx context.Context, placementID, network, errMsg string, limit int, exhaustedUntil time.Time) error
	MarkProviderError(ctx context.Context, placementID, network, errMsg string) error
	GetProviderState(ctx context.Context, placementID, network string) (*models.ProviderState, error)

	ListMediationConfigs(ctx context.Context, placementID string) ([]models.MediationConfig, error)
	ListWeightedNetworks(ctx context.Context, placementID string) ([]WeightedNetwork, error)
	UpsertMediationConfig(ctx context.Context, item *models.MediationConfig) error
	SetMediationStatus(ctx context.Context, placementID, network, status string) (int64, error)
	SetMediationTraffic(ctx context.Context, placementID, network string, pct int) (int64, error)

	ProviderAvailability(ctx context.Context, since time.Time) ([]ProviderAvailabilityRow, error)
}

type ImpressionRepository interface {
	TxRunner

	InsertImpression(ctx context.Context, item *models.Impression) error
	GetImpression(ctx context.Context, id string) (*models.Impression, error)
	CountRecentBySession(ctx context.Context, sessionID string, since time.Time) (int64, error)
	// SetServedProvider stamps the winner, guarded to apply only while the
	// impression is still requested. Returns affected rows.
	SetServedProvider(ctx context.Context, id, provider string, at time.Time) (int64, error)
	// TransitionToImpression is the one-way requested -> impression gate:
	// a single conditional update that writes revenue and cost exactly once.
	TransitionToImpressionTx(ctx context.Context, tx *gorm.DB, id string, revenue, cost decimal.Decimal) (int64, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) (int64, error)
	MarkClicked(ctx context.Context, id string, at time.Time) (int64, error)

	PlacementStats(ctx context.Context, placementID string) (PlacementStats, error)
}

type InventoryRepository interface {
	TxRunner

	// PickInternalAd returns the active internal ad shown least recently
	// (never-shown ads first), or nil when the pool is empty.
	PickInternalAd(ctx context.Context, placementID string) (*models.Ad, error)
	StampAdShown(ctx context.Context, adID string, at time.Time) error
	GetAd(ctx context.Context, id string) (*models.Ad, error)
	InsertAd(ctx context.Context, item *models.Ad) error

	GetOrder(ctx context.Context, id string) (*models.CreativeOrder, error)
	// GetActiveOrderForCreative returns the open order backing the creative,
	// or nil when none is active.
	GetActiveOrderForCreative(ctx context.Context, creativeID string) (*models.CreativeOrder, error)
	InsertOrder(ctx context.Context, item *models.CreativeOrder) error
	// DecrementOrderBudget atomically takes one impression from the order,
	// conditioned on it being active with budget left. Returns nil when the
	// conditional update affected zero rows (reservation rejected).
	DecrementOrderBudgetTx(ctx context.Context, tx *gorm.DB, orderID string) (*OrderReservation, error)
	// CompleteOrderCascade transitions a depleted order to completed, its
	// creative to frozen and the creative's internal ads to paused. Must run
	// in the same transaction as the final decrement.
	CompleteOrderCascadeTx(ctx context.Context, tx *gorm.DB, orderID, creativeID string) error

	GetCreative(ctx context.Context, id string) (*models.Creative, error)
	InsertCreative(ctx context.Context, item *models.Creative) error
	UpdateCreativeStatus(ctx context.Context, id, status string) (int64, error)
	GetPricingPlan(ctx context.Context, id string) (*models.PricingPlan, error)
	InsertPricingPlan(ctx context.Context, item *models.PricingPlan) error

	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	InsertCampaign(ctx context.Context, item *models.Campaign) error
	AddCampaignSpendTx(ctx context.Context, tx *gorm.DB, campaignID string, amount decimal.Decimal) error
}

type LedgerRepository interface {
	TxRunner

	// AggregateImpressions groups qualifying impressions (non-fraud,
	// impression/completed, approved placements) over the half-open window
	// [start, end) by publisher and placement.
	AggregateImpressionsTx(ctx context.Context, tx *gorm.DB, start, end time.Time) ([]WindowAggregate, error)
	// InsertLedgerEntry inserts unless the ledger_key already exists;
	// reports whether a row was written.
	InsertLedgerEntryTx(ctx context.Context, tx *gorm.DB, item *models.LedgerEntry) (bool, error)
	EnsureBalanceTx(ctx context.Context, tx *gorm.DB, publisherID string) error
	AddFrozenTx(ctx context.Context, tx *gorm.DB, publisherID string, amount decimal.Decimal) error
	// ListDueFrozen selects posted EARN_NET_FROZEN entries whose
	// available_at has passed, locking them with skip-locked semantics so
	// concurrent unfreeze runs split the work.
	ListDueFrozenTx(ctx context.Context, tx *gorm.DB, now time.Time) ([]models.LedgerEntry, error)
	SettleEntriesTx(ctx context.Context, tx *gorm.DB, ids []uint64) error
	ReleaseFrozenTx(ctx context.Context, tx *gorm.DB, publisherID string, amount decimal.Decimal) error

	GetBalance(ctx context.Context, publisherID string) (*models.PublisherBalance, error)
	// SumLedger totals the publisher's EARN_NET_FROZEN entries, optionally
	// narrowed by status. UNFREEZE_NET summary rows restate already-accrued
	// money and are excluded, so the unfiltered sum always reconciles with
	// frozen + available on the balance row.
	SumLedger(ctx context.Context, publisherID string, statuses []string) (decimal.Decimal, error)
	ListLedgerEntries(ctx context.Context, params ListLedgerParams) ([]models.LedgerEntry, error)
}

// Repository is the unified store handed to wiring code; engines depend on
// the narrow slice they use.
type Repository interface {
	TxRunner
	PlacementRepository
	MediationRepository
	ImpressionRepository
	InventoryRepository
	LedgerRepository
}

type WeightedNetwork struct {
	Network           string
	TrafficPercentage int
}

type OrderReservation struct {
	ImpressionsLeft int64
	CreativeID      string
}

type WindowAggregate struct {
	PublisherID string
	PlacementID string
	Impressions int64
	GrossUSD    decimal.Decimal
}

type ProviderAvailabilityRow struct {
	Provider      string
	Filled        int64
	NoFill        int64
	Error         int64
	LastAttemptAt *time.Time
}

type PlacementStats struct {
	Requests    int64
	Impressions int64
	Clicks      int64
	RevenueUSD  decimal.Decimal
	CostUSD     decimal.Decimal
}

type ListLedgerParams struct {
	Limit       int
	Offset      int
	PublisherID *string
	EntryType   *string
	Status      *string
}
