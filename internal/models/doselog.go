package models

import (
	"time"
)

// Dose statuses. pending and snoozed are live; every other status is
// terminal and is never overwritten by a later report.
const (
	StatusPending   = "pending"
	StatusTaken     = "taken"
	StatusTakenLate = "taken_late"
	StatusSnoozed   = "snoozed"
	StatusSkipped   = "skipped"
	StatusMissed    = "missed"
)

// Lifecycle policy constants.
const (
	// OnTimeWindowMinutes is the window around the scheduled time within
	// which a taken dose counts as on time.
	OnTimeWindowMinutes = 30

	// SnoozeEscalationLimit is the number of snoozes tolerated on the
	// hardware path before a dose escalates to missed.
	SnoozeEscalationLimit = 2

	// DefaultSnoozeMinutes is the snooze interval when a client supplies none.
	DefaultSnoozeMinutes = 15

	// HardwareSnoozeMinutes is the snooze interval used for dispenser reports.
	HardwareSnoozeMinutes = 30
)

// LiveStatuses are the statuses a dose can still transition out of.
var LiveStatuses = []string{StatusPending, StatusSnoozed}

// DoseLog is one scheduled occurrence of a medicine. Medicine name, dosage
// and slot are snapshotted at creation so history survives later medicine
// edits and the dispenser can render entries without joins.
type DoseLog struct {
	ID         string `gorm:"type:char(36);primaryKey" json:"_id"`
	UserID     string `gorm:"type:char(36);not null;index:idx_logs_user_scheduled;index:idx_logs_user_status" json:"userId"`
	MedicineID string `gorm:"type:char(36);not null;uniqueIndex:idx_logs_medicine_scheduled" json:"medicineId"`

	MedicineName string `gorm:"size:255;not null" json:"medicineName"`
	Dosage       string `gorm:"size:64;not null" json:"dosage"`
	Slot         string `gorm:"size:16;not null" json:"slot"`

	ScheduledTime time.Time  `gorm:"not null;index:idx_logs_user_scheduled;uniqueIndex:idx_logs_medicine_scheduled" json:"scheduledTime"`
	TakenTime     *time.Time `json:"takenTime"`

	Status string `gorm:"size:16;not null;default:pending;index:idx_logs_user_status" json:"status"`
	Notes  string `gorm:"size:512" json:"notes"`

	SnoozedUntil *time.Time `json:"snoozedUntil"`
	SnoozeCount  int        `gorm:"default:0" json:"snoozeCount"`

	// IsOnTime stays null until the dose resolves.
	IsOnTime     *bool `json:"isOnTime"`
	DelayMinutes int   `gorm:"default:0" json:"delayMinutes"`

	SyncedToHardware bool       `gorm:"default:false;index" json:"syncedToHardware"`
	HardwareSyncTime *time.Time `json:"hardwareSyncTime"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name for DoseLog
func (DoseLog) TableName() string {
	return "dose_logs"
}

// IsTerminal reports whether the status admits no further transitions.
func (d *DoseLog) IsTerminal() bool {
	return IsTerminalStatus(d.Status)
}

// IsTerminalStatus reports whether status admits no further transitions.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusTaken, StatusTakenLate, StatusSkipped, StatusMissed:
		return true
	}
	return false
}

// IsDoseStatus reports whether status is a known dose status.
func IsDoseStatus(status string) bool {
	switch status {
	case StatusPending, StatusTaken, StatusTakenLate, StatusSnoozed, StatusSkipped, StatusMissed:
		return true
	}
	return false
}

// MarkTaken resolves the dose as taken at now. Doses taken more than the
// on-time window after schedule become taken_late with the delay recorded.
// Early doses never record a negative delay.
func (d *DoseLog) MarkTaken(now time.Time) {
	d.Status = StatusTaken
	d.TakenTime = &now

	diffMinutes := now.Sub(d.ScheduledTime).Minutes()

	onTime := diffMinutes >= -OnTimeWindowMinutes && diffMinutes <= OnTimeWindowMinutes
	d.IsOnTime = &onTime

	if diffMinutes > 0 {
		d.DelayMinutes = int(diffMinutes)
	} else {
		d.DelayMinutes = 0
	}

	if diffMinutes > OnTimeWindowMinutes {
		d.Status = StatusTakenLate
	}

	d.SnoozedUntil = nil
}

// MarkSnoozed postpones the dose by snoozeMinutes and bumps the counter.
// On the escalating (hardware) path a dose past the snooze limit goes to
// missed instead, with snoozedUntil cleared.
func (d *DoseLog) MarkSnoozed(now time.Time, snoozeMinutes int, escalate bool) {
	if snoozeMinutes <= 0 {
		snoozeMinutes = DefaultSnoozeMinutes
	}

	d.SnoozeCount++

	if escalate && d.SnoozeCount > SnoozeEscalationLimit {
		d.Status = StatusMissed
		d.SnoozedUntil = nil
		return
	}

	d.Status = StatusSnoozed
	until := now.Add(time.Duration(snoozeMinutes) * time.Minute)
	d.SnoozedUntil = &until
}

// MarkSkipped resolves the dose as deliberately skipped. A non-empty reason
// replaces the notes; existing notes are otherwise preserved.
func (d *DoseLog) MarkSkipped(reason string) {
	d.Status = StatusSkipped
	if reason != "" {
		d.Notes = reason
	}
	d.SnoozedUntil = nil
}

// MarkMissed resolves the dose as missed without an intake event.
func (d *DoseLog) MarkMissed() {
	d.Status = StatusMissed
	d.SnoozedUntil = nil
}
