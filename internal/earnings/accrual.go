// Package earnings turns billed impressions into publisher ledger entries
// and balances. Accrual posts net revenue frozen for a holdback period;
// the unfreeze engine later settles it into the available balance.
package earnings

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"towerads/internal/metrics"
	"towerads/internal/models"
	"towerads/internal/repository"
)

const (
	defaultRevshare   = 0.7
	defaultFreezeDays = 5
	amountScale       = 6
)

type Accruer struct {
	Repo       repository.LedgerRepository
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	Revshare   float64
	FreezeDays int
}

// AccrualResult reports one accrual run.
type AccrualResult struct {
	Day            string          `json:"day"`
	EntriesWritten int             `json:"entries_written"`
	TotalNetUSD    decimal.Decimal `json:"total_net_usd"`
}

// Accrue aggregates the UTC day containing day and posts one frozen
// EARN_NET_FROZEN entry per (publisher, placement) group. Re-running the
// same day inserts nothing and mutates no balance: the ledger key dedups
// every group, and balances only move for rows actually written.
//
// revshare and freezeDays override the configured defaults when positive;
// out-of-range values fall back.
func (a *Accruer) Accrue(ctx context.Context, day time.Time, revshare float64, freezeDays int) (AccrualResult, error) {
	if revshare <= 0 || revshare > 1 {
		revshare = a.Revshare
	}
	if revshare <= 0 || revshare > 1 {
		revshare = defaultRevshare
	}
	if freezeDays <= 0 || freezeDays > 365 {
		freezeDays = a.FreezeDays
	}
	if freezeDays < 0 || freezeDays > 365 {
		freezeDays = defaultFreezeDays
	}

	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)
	dayKey := dayStart.Format("2006-01-02")
	availableAt := dayStart.Add(time.Duration(freezeDays) * 24 * time.Hour)
	share := decimal.NewFromFloat(revshare)

	res := AccrualResult{Day: dayKey, TotalNetUSD: decimal.Zero}

	err := a.Repo.InTx(ctx, func(tx *gorm.DB) error {
		groups, err := a.Repo.AggregateImpressionsTx(ctx, tx, dayStart, dayEnd)
		if err != nil {
			return err
		}

		perPublisher := map[string]decimal.Decimal{}
		for _, g := range groups {
			net := g.GrossUSD.Mul(share).Round(amountScale)
			if !net.IsPositive() {
				continue
			}
			placementID := g.PlacementID
			windowDay := dayKey
			availCopy := availableAt
			shareCopy := share
			entry := &models.LedgerEntry{
				PublisherID: g.PublisherID,
				PlacementID: &placementID,
				AmountUSD:   net,
				Currency:    "USD",
				EntryType:   models.EntryEarnNetFrozen,
				Status:      models.LedgerPosted,
				EarnedAt:    dayStart,
				AvailableAt: &availCopy,
				LedgerKey:   fmt.Sprintf("earn:pub=%s:pl=%s:day=%s:net", g.PublisherID, g.PlacementID, dayKey),
				WindowDay:   &windowDay,
				Impressions: g.Impressions,
				GrossUSD:    g.GrossUSD,
				Revshare:    &shareCopy,
			}
			inserted, err := a.Repo.InsertLedgerEntryTx(ctx, tx, entry)
			if err != nil {
				return err
			}
			if !inserted {
				continue
			}
			res.EntriesWritten++
			res.TotalNetUSD = res.TotalNetUSD.Add(net)
			perPublisher[g.PublisherID] = perPublisher[g.PublisherID].Add(net)
		}

		for publisherID, amount := range perPublisher {
			if err := a.Repo.EnsureBalanceTx(ctx, tx, publisherID); err != nil {
				return err
			}
			if err := a.Repo.AddFrozenTx(ctx, tx, publisherID, amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if a.Metrics != nil {
			a.Metrics.AccrualRuns.WithLabelValues("error").Inc()
		}
		return AccrualResult{}, err
	}

	if a.Metrics != nil {
		a.Metrics.AccrualRuns.WithLabelValues("ok").Inc()
		if res.EntriesWritten > 0 {
			a.Metrics.LedgerEntries.WithLabelValues(models.EntryEarnNetFrozen).Add(float64(res.EntriesWritten))
		}
	}
	if a.Logger != nil {
		a.Logger.Info("accrual run finished",
			zap.String("day", res.Day),
			zap.Int("entries", res.EntriesWritten),
			zap.String("total_net_usd", res.TotalNetUSD.String()))
	}
	return res, nil
}
