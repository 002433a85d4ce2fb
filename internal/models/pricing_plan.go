package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PricingPlan struct {
	ID   string `gorm:"primaryKey;type:varchar(64)"`
	Name string `gorm:"type:varchar(100);not null"`

	Impressions int64           `gorm:"not null"`
	PriceUSD    decimal.Decimal `gorm:"column:price_usd;type:numeric(20,6);not null"`

	Status string `gorm:"type:varchar(20);not null;default:'active'"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PricingPlan) TableName() string {
	return "pricing_plans"
}
