package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AdActive = "active"
	AdPaused = "paused"
)

type Ad struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	PlacementID string `gorm:"type:varchar(64);not null;index"`

	AdType   string `gorm:"type:varchar(20);not null"`
	MediaURL string `gorm:"type:text;not null"`
	ClickURL string `gorm:"type:text"`
	Duration int    `gorm:"not null;default:0"`

	Status string `gorm:"type:varchar(20);not null;default:'active';index"`
	Source string `gorm:"type:varchar(20);not null;default:'internal'"`

	CreativeID *string `gorm:"type:varchar(64);index"`
	CampaignID *string `gorm:"type:varchar(64);index"`

	// CPM terms for externally sourced ads; zero for internal order fills.
	BidCPMUSD    decimal.Decimal `gorm:"column:bid_cpm_usd;type:numeric(20,6);not null;default:0"`
	PayoutCPMUSD decimal.Decimal `gorm:"column:payout_cpm_usd;type:numeric(20,6);not null;default:0"`

	// LastShownAt drives least-recently-shown rotation of the internal pool.
	LastShownAt *time.Time `gorm:"type:timestamptz;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Ad) TableName() string {
	return "ads"
}
