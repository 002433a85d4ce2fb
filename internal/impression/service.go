// Package impression owns the per-request record from requested through
// impression, completed and clicked, and guarantees every revenue and cost
// mutation happens exactly once.
package impression

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"towerads/internal/adserr"
	"towerads/internal/inventory"
	"towerads/internal/metrics"
	"towerads/internal/models"
	"towerads/internal/notify"
	"towerads/internal/repository"
)

const defaultDupWindow = 30 * time.Second

var perMille = decimal.NewFromInt(1000)

type Service struct {
	Repo      repository.ImpressionRepository
	Inventory repository.InventoryRepository
	Reserver  *inventory.Reserver
	Notify    notify.Publisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	DupWindow time.Duration
}

// ClientContext carries the correlation fields reported by the SDK.
type ClientContext struct {
	IP              string
	Device          string
	OS              string
	SessionID       string
	UserAgent       string
	Referer         string
	CaptchaVerified *bool
}

// CreateParams describes one ad request: the resolved placement, the
// decided waterfall and, when the internal pool filled immediately, the
// chosen ad.
type CreateParams struct {
	Placement *models.Placement
	Providers []string
	Ad        *models.Ad
	Client    ClientContext
}

// NewToken mints a caller-visible impression identifier.
func NewToken() string {
	return "imp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create inserts a new impression in requested status after the antifraud
// duplicate-session check.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Impression, error) {
	p := params.Placement
	if p == nil {
		return nil, adserr.NotFoundf("placement")
	}
	if p.Status != models.PlacementActive {
		return nil, adserr.Validationf("placement paused")
	}

	if sid := strings.TrimSpace(params.Client.SessionID); sid != "" {
		window := s.DupWindow
		if window <= 0 {
			window = defaultDupWindow
		}
		n, err := s.Repo.CountRecentBySession(ctx, sid, time.Now().UTC().Add(-window))
		if err != nil {
			return nil, err
		}
		if n > 0 {
			if s.Metrics != nil {
				s.Metrics.DuplicateSessions.Inc()
			}
			return nil, adserr.ErrDuplicateSession
		}
	}

	captcha := true
	if params.Client.CaptchaVerified != nil {
		captcha = *params.Client.CaptchaVerified
	}

	item := &models.Impression{
		ID:              NewToken(),
		PlacementID:     p.ID,
		Status:          string(StatusRequested),
		Source:          models.SourceExternal,
		Providers:       models.ProviderList(params.Providers),
		CaptchaVerified: captcha,
		SessionID:       optional(params.Client.SessionID),
		UserIP:          optional(params.Client.IP),
		Device:          optional(params.Client.Device),
		OS:              optional(params.Client.OS),
		UserAgent:       optional(params.Client.UserAgent),
		Referer:         optional(params.Client.Referer),
	}

	if ad := params.Ad; ad != nil && ad.Source == models.SourceInternal {
		item.Source = models.SourceInternal
		item.AdID = &ad.ID
		item.CreativeID = ad.CreativeID
		if ad.CreativeID != nil {
			order, err := s.Inventory.GetActiveOrderForCreative(ctx, *ad.CreativeID)
			if err != nil {
				return nil, err
			}
			if order != nil {
				item.OrderID = &order.ID
			}
		}
	}

	if err := s.Repo.InsertImpression(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// MarkImpression applies the one-way requested -> impression transition and
// bills it: internal fills draw down the backing order budget, external
// fills convert CPM terms and charge the owning campaign. A retried or
// duplicated call is a no-op returning ErrInvalidState, never double
// billing.
func (s *Service) MarkImpression(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return adserr.Validationf("missing impression_id")
	}
	imp, err := s.Repo.GetImpression(ctx, id)
	if err != nil {
		return err
	}
	if imp == nil {
		return adserr.NotFoundf("impression %s", id)
	}
	if Status(imp.Status) != StatusRequested {
		return adserr.InvalidStatef("impression %s is %s", id, imp.Status)
	}
	if imp.IsFraud {
		return adserr.ErrFraudRejected
	}
	if !imp.CaptchaVerified {
		return adserr.ErrCaptchaRequired
	}

	if imp.Source == models.SourceInternal {
		return s.markInternal(ctx, imp)
	}
	return s.markExternal(ctx, imp)
}

func (s *Service) markInternal(ctx context.Context, imp *models.Impression) error {
	if imp.OrderID == nil {
		return adserr.Validationf("impression %s has no backing order", imp.ID)
	}
	order, err := s.Inventory.GetOrder(ctx, *imp.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return adserr.NotFoundf("order %s", *imp.OrderID)
	}

	var left int64
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		n, err := s.Repo.TransitionToImpressionTx(ctx, tx, imp.ID, order.PricePerImpression, decimal.Zero)
		if err != nil {
			return err
		}
		if n == 0 {
			return adserr.InvalidStatef("impression %s already transitioned", imp.ID)
		}
		// Reservation failure rolls the revenue write back, leaving the
		// impression unmutated so the caller can retry against another ad.
		left, err = s.Reserver.ReserveImpressionTx(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		if s.Metrics != nil && errors.Is(err, adserr.ErrOrderDepleted) {
			s.Metrics.ReservationReject.Inc()
		}
		return err
	}
	if s.Metrics != nil {
		s.Metrics.ImpressionsBilled.WithLabelValues(models.SourceInternal).Inc()
	}
	if left == 0 && s.Notify != nil {
		s.Notify.Publish(notify.Event{
			Kind: notify.KindOrderCompleted,
			Payload: map[string]string{
				"order_id":    order.ID,
				"creative_id": order.CreativeID,
			},
		})
	}
	return nil
}

func (s *Service) markExternal(ctx context.Context, imp *models.Impression) error {
	revenue := decimal.Zero
	cost := decimal.Zero
	var campaignID *string
	if imp.AdID != nil {
		ad, err := s.Inventory.GetAd(ctx, *imp.AdID)
		if err != nil {
			return err
		}
		if ad != nil {
			revenue = ad.BidCPMUSD.Div(perMille)
			cost = ad.PayoutCPMUSD.Div(perMille)
			campaignID = ad.CampaignID
		}
	}

	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		n, err := s.Repo.TransitionToImpressionTx(ctx, tx, imp.ID, revenue, cost)
		if err != nil {
			return err
		}
		if n == 0 {
			return adserr.InvalidStatef("impression %s already transitioned", imp.ID)
		}
		if campaignID != nil && revenue.IsPositive() {
			return s.Inventory.AddCampaignSpendTx(ctx, tx, *campaignID, revenue)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.Metrics != nil {
		s.Metrics.ImpressionsBilled.WithLabelValues(models.SourceExternal).Inc()
	}
	return nil
}

// MarkCompleted records playback completion. Idempotent in effect:
// re-calling refreshes the timestamp.
func (s *Service) MarkCompleted(ctx context.Context, id string) error {
	n, err := s.Repo.MarkCompleted(ctx, strings.TrimSpace(id), time.Now().UTC())
	if err != nil {
		return err
	}
	if n == 0 {
		return adserr.NotFoundf("impression %s", id)
	}
	return nil
}

// MarkClicked records a click; reachable after completion and vice versa.
func (s *Service) MarkClicked(ctx context.Context, id string) error {
	n, err := s.Repo.MarkClicked(ctx, strings.TrimSpace(id), time.Now().UTC())
	if err != nil {
		return err
	}
	if n == 0 {
		return adserr.NotFoundf("impression %s", id)
	}
	return nil
}

// Stats is the per-placement serving report.
type Stats struct {
	Requests    int64           `json:"requests"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	RevenueUSD  decimal.Decimal `json:"revenue_usd"`
	CostUSD     decimal.Decimal `json:"cost_usd"`
	ECPM        decimal.Decimal `json:"ecpm"`
}

func (s *Service) PlacementStats(ctx context.Context, placementID string) (Stats, error) {
	row, err := s.Repo.PlacementStats(ctx, placementID)
	if err != nil {
		return Stats{}, err
	}
	out := Stats{
		Requests:    row.Requests,
		Impressions: row.Impressions,
		Clicks:      row.Clicks,
		RevenueUSD:  row.RevenueUSD,
		CostUSD:     row.CostUSD,
		ECPM:        decimal.Zero,
	}
	if row.Impressions > 0 {
		out.ECPM = row.RevenueUSD.Div(decimal.NewFromInt(row.Impressions)).Mul(perMille)
	}
	return out, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
