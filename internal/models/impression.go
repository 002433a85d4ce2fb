package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceInternal = "internal"
	SourceExternal = "external"
)

// ProviderList is the ordered waterfall decided for one request, stored as
// a typed JSON array rather than an opaque document.
type ProviderList []string

// Impression is the central audit record of one ad request. Rows are
// append-only: lifecycle transitions mutate status and the revenue/cost
// fields at most once, nothing is ever deleted.
type Impression struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	PlacementID string `gorm:"type:varchar(64);not null;index"`

	Status string `gorm:"type:varchar(20);not null;default:'requested';index"`
	// Source is the authoritative internal/external discriminant.
	Source string `gorm:"type:varchar(20);not null;default:'internal'"`

	Providers      ProviderList `gorm:"serializer:json;type:jsonb"`
	ServedProvider *string      `gorm:"type:varchar(50)"`
	ServedAt       *time.Time   `gorm:"type:timestamptz"`

	RevenueUSD decimal.Decimal `gorm:"column:revenue_usd;type:numeric(20,6);not null;default:0"`
	CostUSD    decimal.Decimal `gorm:"column:cost_usd;type:numeric(20,6);not null;default:0"`

	IsFraud         bool `gorm:"not null;default:false"`
	CaptchaVerified bool `gorm:"not null;default:true"`

	SessionID *string `gorm:"type:varchar(100);index:idx_impressions_session_created"`
	UserIP    *string `gorm:"type:varchar(64)"`
	Device    *string `gorm:"type:varchar(50)"`
	OS        *string `gorm:"type:varchar(50)"`
	UserAgent *string `gorm:"type:text"`
	Referer   *string `gorm:"type:text"`

	AdID       *string `gorm:"type:varchar(64)"`
	CreativeID *string `gorm:"type:varchar(64)"`
	OrderID    *string `gorm:"type:varchar(64);index"`

	CompletedAt *time.Time `gorm:"type:timestamptz"`
	ClickedAt   *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index:idx_impressions_session_created"`
}

func (Impression) TableName() string {
	return "impressions"
}
