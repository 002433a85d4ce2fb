package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PublisherBalance is mutated only by the accrual and unfreeze engines,
// always in the same transaction as the ledger write that justifies the
// mutation.
type PublisherBalance struct {
	PublisherID string `gorm:"primaryKey;type:varchar(64)"`

	FrozenUSD    decimal.Decimal `gorm:"column:frozen_usd;type:numeric(20,6);not null;default:0"`
	AvailableUSD decimal.Decimal `gorm:"column:available_usd;type:numeric(20,6);not null;default:0"`
	LockedUSD    decimal.Decimal `gorm:"column:locked_usd;type:numeric(20,6);not null;default:0"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (PublisherBalance) TableName() string {
	return "publisher_balances"
}
