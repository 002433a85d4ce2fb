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

type Unfreezer struct {
	Repo    repository.LedgerRepository
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// UnfreezeResult reports one unfreeze run.
type UnfreezeResult struct {
	PublishersAffected int             `json:"publishers_affected"`
	EntriesSettled     int             `json:"entries_settled"`
	TotalReleasedUSD   decimal.Decimal `json:"total_released_usd"`
}

// UnfreezeDue settles every posted EARN_NET_FROZEN entry whose holdback has
// expired and moves the sums from frozen to available, writing one
// UNFREEZE_NET summary row per publisher. Due rows are taken with
// skip-locked selection, so overlapping runs divide the work instead of
// double releasing.
func (u *Unfreezer) UnfreezeDue(ctx context.Context, now time.Time) (UnfreezeResult, error) {
	now = now.UTC()
	res := UnfreezeResult{TotalReleasedUSD: decimal.Zero}

	err := u.Repo.InTx(ctx, func(tx *gorm.DB) error {
		due, err := u.Repo.ListDueFrozenTx(ctx, tx, now)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		type bucket struct {
			amount decimal.Decimal
			count  int64
			ids    []uint64
		}
		perPublisher := map[string]*bucket{}
		for _, e := range due {
			b := perPublisher[e.PublisherID]
			if b == nil {
				b = &bucket{amount: decimal.Zero}
				perPublisher[e.PublisherID] = b
			}
			b.amount = b.amount.Add(e.AmountUSD)
			b.count++
			b.ids = append(b.ids, e.ID)
		}

		for publisherID, b := range perPublisher {
			if err := u.Repo.SettleEntriesTx(ctx, tx, b.ids); err != nil {
				return err
			}
			summary := &models.LedgerEntry{
				PublisherID:  publisherID,
				AmountUSD:    b.amount,
				Currency:     "USD",
				EntryType:    models.EntryUnfreezeNet,
				Status:       models.LedgerSettled,
				EarnedAt:     now,
				LedgerKey:    fmt.Sprintf("unfreeze:pub=%s:ts=%d", publisherID, now.UnixNano()),
				UnfrozenFrom: b.count,
			}
			if _, err := u.Repo.InsertLedgerEntryTx(ctx, tx, summary); err != nil {
				return err
			}
			if err := u.Repo.EnsureBalanceTx(ctx, tx, publisherID); err != nil {
				return err
			}
			if err := u.Repo.ReleaseFrozenTx(ctx, tx, publisherID, b.amount); err != nil {
				return err
			}
			res.PublishersAffected++
			res.EntriesSettled += int(b.count)
			res.TotalReleasedUSD = res.TotalReleasedUSD.Add(b.amount)
		}
		return nil
	})
	if err != nil {
		if u.Metrics != nil {
			u.Metrics.UnfreezeRuns.WithLabelValues("error").Inc()
		}
		return UnfreezeResult{}, err
	}

	if u.Metrics != nil {
		u.Metrics.UnfreezeRuns.WithLabelValues("ok").Inc()
		if res.PublishersAffected > 0 {
			u.Metrics.LedgerEntries.WithLabelValues(models.EntryUnfreezeNet).Add(float64(res.PublishersAffected))
		}
	}
	if u.Logger != nil && res.PublishersAffected > 0 {
		u.Logger.Info("unfreeze run finished",
			zap.Int("publishers", res.PublishersAffected),
			zap.Int("entries_settled", res.EntriesSettled),
			zap.String("total_released_usd", res.TotalReleasedUSD.String()))
	}
	return res, nil
}

// Balance is the publisher-facing earnings snapshot. LifetimeEarnedUSD is
// the accrual-ledger sum and must equal FrozenUSD + AvailableUSD before any
// payout movement.
type Balance struct {
	PublisherID       string          `json:"publisher_id"`
	FrozenUSD         decimal.Decimal `json:"frozen_usd"`
	AvailableUSD      decimal.Decimal `json:"available_usd"`
	LockedUSD         decimal.Decimal `json:"locked_usd"`
	LifetimeEarnedUSD decimal.Decimal `json:"lifetime_earned_usd"`
}

// GetBalance returns a zeroed snapshot when the publisher has never accrued.
func (u *Unfreezer) GetBalance(ctx context.Context, publisherID string) (Balance, error) {
	earned, err := u.Repo.SumLedger(ctx, publisherID, nil)
	if err != nil {
		return Balance{}, err
	}
	row, err := u.Repo.GetBalance(ctx, publisherID)
	if err != nil {
		return Balance{}, err
	}
	if row == nil {
		return Balance{
			PublisherID:       publisherID,
			FrozenUSD:         decimal.Zero,
			AvailableUSD:      decimal.Zero,
			LockedUSD:         decimal.Zero,
			LifetimeEarnedUSD: earned,
		}, nil
	}
	return Balance{
		PublisherID:       row.PublisherID,
		FrozenUSD:         row.FrozenUSD,
		AvailableUSD:      row.AvailableUSD,
		LockedUSD:         row.LockedUSD,
		LifetimeEarnedUSD: earned,
	}, nil
}
