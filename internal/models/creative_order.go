package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderActive    = "active"
	OrderPaused    = "paused"
	OrderCompleted = "completed"
)

// CreativeOrder is a prepaid internal campaign drawing down a fixed
// impression budget. impressions_left never goes negative: the only
// decrement is a conditional update guarded on status and remaining budget.
type CreativeOrder struct {
	ID         string `gorm:"primaryKey;type:varchar(64)"`
	CreativeID string `gorm:"type:varchar(64);not null;index"`

	ImpressionsTotal int64 `gorm:"not null"`
	ImpressionsLeft  int64 `gorm:"not null"`

	PriceUSD           decimal.Decimal `gorm:"column:price_usd;type:numeric(20,6);not null"`
	PricePerImpression decimal.Decimal `gorm:"column:price_per_impression;type:numeric(20,10);not null"`

	Status string `gorm:"type:varchar(20);not null;default:'active';index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (CreativeOrder) TableName() string {
	return "creative_orders"
}
