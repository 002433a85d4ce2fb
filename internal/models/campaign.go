package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Campaign struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	AdvertiserID string `gorm:"type:varchar(64);not null;index"`
	Name         string `gorm:"type:varchar(200);not null"`

	Status string `gorm:"type:varchar(20);not null;default:'active';index"`

	// Targeting is the network-specific targeting document (geo, device,
	// category lists) passed through to external demand as-is.
	Targeting datatypes.JSONMap `gorm:"type:jsonb"`

	DailyBudgetUSD decimal.Decimal `gorm:"column:daily_budget_usd;type:numeric(20,6);not null;default:0"`
	SpentTodayUSD  decimal.Decimal `gorm:"column:spent_today_usd;type:numeric(20,6);not null;default:0"`
	SpentTotalUSD  decimal.Decimal `gorm:"column:spent_total_usd;type:numeric(20,6);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Campaign) TableName() string {
	return "campaigns"
}
