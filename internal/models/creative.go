package models

import "time"

const (
	CreativePending  = "pending"
	CreativeApproved = "approved"
	CreativeRejected = "rejected"
	CreativeFrozen   = "frozen"
)

type Creative struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	AdvertiserID string `gorm:"type:varchar(64);not null;index"`

	Type     string `gorm:"type:varchar(20);not null"`
	MediaURL string `gorm:"type:text;not null"`
	ClickURL string `gorm:"type:text"`
	Duration int    `gorm:"not null;default:0"`

	Status string `gorm:"type:varchar(20);not null;default:'pending';index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Creative) TableName() string {
	return "creatives"
}
