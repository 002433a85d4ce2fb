package models

import "time"

const (
	PlacementActive = "active"
	PlacementPaused = "paused"

	ModerationDraft    = "draft"
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

type Placement struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	PublisherID string `gorm:"type:varchar(64);not null;index"`
	PublicKey   string `gorm:"type:varchar(64);uniqueIndex"`
	AdType      string `gorm:"type:varchar(20);not null"`

	Status           string `gorm:"type:varchar(20);not null;default:'active';index"`
	ModerationStatus string `gorm:"type:varchar(20);not null;default:'draft';index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Placement) TableName() string {
	return "placements"
}
