package models

import (
	"time"
)

// DeviceBinding maps a dispenser identifier to the account it dispenses for.
// Re-registering a bot id overwrites the previous binding (last writer wins).
// LastSeq is the highest report sequence number accepted from the device;
// reports at or below it are treated as duplicate deliveries.
type DeviceBinding struct {
	ID     string `gorm:"type:char(36);primaryKey" json:"_id"`
	BotID  string `gorm:"size:64;uniqueIndex;not null" json:"botId"`
	UserID string `gorm:"type:char(36);not null;index" json:"userId"`

	LastSeq    uint64     `gorm:"default:0" json:"lastSeq"`
	LastSeenAt *time.Time `json:"lastSeenAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name for DeviceBinding
func (DeviceBinding) TableName() string {
	return "device_bindings"
}
