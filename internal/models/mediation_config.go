package models

import "time"

const (
	MediationActive = "active"
	MediationPaused = "paused"
)

// MediationConfig is one (placement, network) row of the provider
// directory. The autoincrement ID doubles as the stable tie-break when
// priorities collide.
type MediationConfig struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	PlacementID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_mediation_placement_network"`
	Network     string `gorm:"type:varchar(50);not null;uniqueIndex:idx_mediation_placement_network"`

	Priority          int    `gorm:"not null;default:0"`
	TrafficPercentage int    `gorm:"not null;default:0"`
	Status            string `gorm:"type:varchar(20);not null;default:'active';index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (MediationConfig) TableName() string {
	return "mediation_config"
}
