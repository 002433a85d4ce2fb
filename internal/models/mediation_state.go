package models

import "time"

// MediationState remembers which network was handed out first on the most
// recent request so consecutive requests continue the round-robin instead
// of always starting at the top priority.
type MediationState struct {
	PlacementID string     `gorm:"primaryKey;type:varchar(64)"`
	LastNetwork string     `gorm:"type:varchar(50)"`
	LastShownAt *time.Time `gorm:"type:timestamptz"`
}

func (MediationState) TableName() string {
	return "mediation_state"
}
