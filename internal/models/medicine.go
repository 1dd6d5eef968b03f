package models

import (
	"time"
)

// Medicine frequency categories. Free-form schedules use FrequencyCustom
// with an explicit times list.
const (
	FrequencyDaily          = "daily"
	FrequencyTwiceDaily     = "twice_daily"
	FrequencyThriceDaily    = "thrice_daily"
	FrequencyFourTimesDaily = "four_times_daily"
	FrequencyAsNeeded       = "as_needed"
	FrequencyCustom         = "custom"
)

// Medicine categories
const (
	CategoryPainRelief     = "pain_relief"
	CategoryAntibiotic     = "antibiotic"
	CategoryVitamin        = "vitamin"
	CategorySupplement     = "supplement"
	CategoryChronicDisease = "chronic_disease"
	CategoryOther          = "other"
)

// Medicine is a prescribed drug definition with its recurring schedule and
// dispenser slot. At most one active medicine may occupy a (user, slot) pair.
type Medicine struct {
	ID     string `gorm:"type:char(36);primaryKey" json:"_id"`
	UserID string `gorm:"type:char(36);not null;index:idx_medicines_user_active;index:idx_medicines_user_slot" json:"userId"`

	Name   string   `gorm:"size:255;not null" json:"name"`
	Dosage string   `gorm:"size:64;not null" json:"dosage"`
	Times  TimeList `gorm:"not null" json:"times"`

	Frequency string `gorm:"size:32;default:daily" json:"frequency"`
	Slot      string `gorm:"size:16;not null;index:idx_medicines_user_slot" json:"slot"`

	// Stock information. Remaining is clamped at zero, never negative.
	Quantity  int `gorm:"not null" json:"quantity"`
	Remaining int `gorm:"not null" json:"remaining"`

	Description  string `gorm:"size:1024" json:"description"`
	SideEffects  string `gorm:"size:1024" json:"sideEffects"`
	Instructions string `gorm:"size:1024" json:"instructions"`
	PrescribedBy string `gorm:"size:255" json:"prescribedBy"`

	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`

	Category string `gorm:"size:32;default:other" json:"category"`
	IsActive bool   `gorm:"default:true;index:idx_medicines_user_active" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name for Medicine
func (Medicine) TableName() string {
	return "medicines"
}

// IsLowStock reports whether remaining doses have fallen below the threshold.
func (m *Medicine) IsLowStock(threshold int) bool {
	return m.Remaining <= threshold
}
