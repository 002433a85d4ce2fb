package models

import "time"

const (
	AttemptFilled = "filled"
	AttemptNoFill = "nofill"
	AttemptError  = "error"
)

// ProviderState tracks the per-(placement, network) no-fill streak and the
// daily exhaustion cooldown the mediation engine writes after every batch
// of attempt outcomes.
type ProviderState struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	PlacementID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_provider_state_placement_network"`
	Network     string `gorm:"type:varchar(50);not null;uniqueIndex:idx_provider_state_placement_network"`

	NoFillStreak   int        `gorm:"not null;default:0"`
	LastResult     string     `gorm:"type:varchar(20)"`
	LastError      *string    `gorm:"type:text"`
	ExhaustedUntil *time.Time `gorm:"type:timestamptz;index"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ProviderState) TableName() string {
	return "mediation_provider_state"
}
