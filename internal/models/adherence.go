package models

import (
	"time"

	"gorm.io/datatypes"
)

// AdherenceSummary caches computed adherence statistics for a (user, period,
// window) triple. It is always recomputable from dose_logs and is refreshed
// whenever stats are served; never a source of truth.
type AdherenceSummary struct {
	ID     string `gorm:"type:char(36);primaryKey" json:"_id"`
	UserID string `gorm:"type:char(36);not null;uniqueIndex:idx_adherence_window" json:"userId"`

	Period    string    `gorm:"size:16;not null;uniqueIndex:idx_adherence_window" json:"period"`
	StartDate time.Time `gorm:"not null;uniqueIndex:idx_adherence_window" json:"startDate"`
	EndDate   time.Time `gorm:"not null;uniqueIndex:idx_adherence_window" json:"endDate"`

	TotalScheduled int `gorm:"default:0" json:"totalScheduled"`
	Taken          int `gorm:"default:0" json:"taken"`
	Missed         int `gorm:"default:0" json:"missed"`
	Snoozed        int `gorm:"default:0" json:"snoozed"`
	Skipped        int `gorm:"default:0" json:"skipped"`
	Pending        int `gorm:"default:0" json:"pending"`

	AdherenceRate int `gorm:"default:0" json:"adherenceRate"`

	OnTime              int `gorm:"default:0" json:"onTime"`
	Late                int `gorm:"default:0" json:"late"`
	AverageDelayMinutes int `gorm:"default:0" json:"averageDelayMinutes"`

	MedicineBreakdown datatypes.JSON `json:"medicineBreakdown"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name for AdherenceSummary
func (AdherenceSummary) TableName() string {
	return "adherence_summaries"
}
