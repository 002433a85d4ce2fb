package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EntryEarnNetFrozen = "EARN_NET_FROZEN"
	EntryUnfreezeNet   = "UNFREEZE_NET"

	LedgerPosted  = "posted"
	LedgerSettled = "settled"
)

// LedgerEntry is an append-only accounting row. The only in-place mutation
// allowed is the posted -> settled status flip performed by the unfreeze
// engine. LedgerKey is the idempotency key: a given (publisher, placement,
// window, type) accrual inserts at most one row.
type LedgerEntry struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement"`
	PublisherID string  `gorm:"type:varchar(64);not null;index"`
	PlacementID *string `gorm:"type:varchar(64);index"`

	AmountUSD decimal.Decimal `gorm:"column:amount_usd;type:numeric(20,6);not null"`
	Currency  string          `gorm:"type:varchar(10);not null;default:'USD'"`

	EntryType string `gorm:"type:varchar(30);not null;index"`
	Status    string `gorm:"type:varchar(20);not null;default:'posted';index"`

	EarnedAt    time.Time  `gorm:"type:timestamptz;not null"`
	AvailableAt *time.Time `gorm:"type:timestamptz;index"`

	LedgerKey string `gorm:"type:varchar(200);not null;uniqueIndex"`

	// Window aggregate carried as explicit columns instead of a free-form
	// meta document.
	WindowDay   *string          `gorm:"type:varchar(10);index"`
	Impressions int64            `gorm:"not null;default:0"`
	GrossUSD    decimal.Decimal  `gorm:"column:gross_usd;type:numeric(20,6);not null;default:0"`
	Revshare    *decimal.Decimal `gorm:"type:numeric(5,4)"`
	// UnfrozenFrom counts the EARN_NET_FROZEN entries an UNFREEZE_NET row
	// summarizes.
	UnfrozenFrom int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (LedgerEntry) TableName() string {
	return "publisher_ledger"
}
