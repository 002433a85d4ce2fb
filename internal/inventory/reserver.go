// Package inventory hands out internal-pool ads and depletes prepaid order
// budgets without double-spend.
package inventory

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"towerads/internal/adserr"
	"towerads/internal/models"
	"towerads/internal/repository"
)

type Reserver struct {
	Repo   repository.InventoryRepository
	Logger *zap.Logger
}

// PickInternalAd selects the least-recently-shown active internal ad for
// the placement and stamps it as shown so concurrent requests converge
// toward round-robin fairness. The stamp is deliberately not serialized
// with the budget decrement: show-skew under load is acceptable,
// double-charging is not.
func (r *Reserver) PickInternalAd(ctx context.Context, placementID string) (*models.Ad, error) {
	ad, err := r.Repo.PickInternalAd(ctx, placementID)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, nil
	}
	if err := r.Repo.StampAdShown(ctx, ad.ID, time.Now().UTC()); err != nil {
		if r.Logger != nil {
			r.Logger.Warn("stamp ad shown failed",
				zap.String("ad_id", ad.ID),
				zap.Error(err),
			)
		}
	}
	return ad, nil
}

// ReserveImpression takes one impression from the order budget. The
// decrement only succeeds while the order is active with budget left; when
// it empties the order, the completion cascade (order completed, creative
// frozen, backing ads paused) runs in the same transaction.
func (r *Reserver) ReserveImpression(ctx context.Context, orderID string) (int64, error) {
	var left int64
	err := r.Repo.InTx(ctx, func(tx *gorm.DB) error {
		res, err := r.Repo.DecrementOrderBudgetTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if res == nil {
			return adserr.ErrOrderDepleted
		}
		left = res.ImpressionsLeft
		if res.ImpressionsLeft <= 0 {
			return r.Repo.CompleteOrderCascadeTx(ctx, tx, orderID, res.CreativeID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return left, nil
}

// ReserveImpressionTx is the same reservation exposed for callers that
// already hold a transaction (the impression billing path, which must roll
// its revenue write back when the reservation is rejected).
func (r *Reserver) ReserveImpressionTx(ctx context.Context, tx *gorm.DB, orderID string) (int64, error) {
	res, err := r.Repo.DecrementOrderBudgetTx(ctx, tx, orderID)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, adserr.ErrOrderDepleted
	}
	if res.ImpressionsLeft <= 0 {
		if err := r.Repo.CompleteOrderCascadeTx(ctx, tx, orderID, res.CreativeID); err != nil {
			return 0, err
		}
	}
	return res.ImpressionsLeft, nil
}
