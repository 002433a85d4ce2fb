package models

import "time"

// ImpressionAttempt is the write-only log of one provider tried for an
// impression. It feeds both mediation backoff and the availability report.
type ImpressionAttempt struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	ImpressionID string `gorm:"type:varchar(64);not null;index"`
	Provider     string `gorm:"type:varchar(50);not null;index"`

	Result string  `gorm:"type:varchar(20);not null"`
	Error  *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (ImpressionAttempt) TableName() string {
	return "impression_attempts"
}
