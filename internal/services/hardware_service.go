package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/medibro/medibro-server/internal/models"
	"github.com/medibro/medibro-server/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportInput is one dose outcome reported by a dispenser.
type ReportInput struct {
	LogID       string
	Status      string
	Timestamp   *time.Time
	Seq         *uint64
	SnoozeCount *int
}

// ReportResult is the per-report outcome returned to the device.
type ReportResult struct {
	LogID     string          `json:"logId"`
	Success   bool            `json:"success"`
	Applied   bool            `json:"applied"`
	Duplicate bool            `json:"duplicate,omitempty"`
	Status    string          `json:"status,omitempty"`
	Message   string          `json:"message,omitempty"`
	Log       *models.DoseLog `json:"log,omitempty"`
}

// SlotAssignment is one dispenser compartment's current contents.
type SlotAssignment struct {
	Slot         string          `json:"slot"`
	MedicineID   string          `json:"medicineId"`
	MedicineName string          `json:"medicineName"`
	Dosage       string          `json:"dosage"`
	Times        models.TimeList `json:"times"`
	Remaining    int             `json:"remaining"`
}

// RegisterDevice binds a bot id to a user account. Re-registration
// overwrites the previous binding and resets the duplicate-detection
// sequence (a re-paired device restarts its counter).
func RegisterDevice(db *gorm.DB, botID, userID string) (*models.DeviceBinding, error) {
	if _, err := GetUser(db, userID); err != nil {
		return nil, err
	}

	binding := &models.DeviceBinding{
		ID:     uuid.New().String(),
		BotID:  botID,
		UserID: userID,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bot_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"user_id": userID, "last_seq": 0}),
	}).Create(binding).Error
	if err != nil {
		return nil, err
	}

	// Reload so the caller sees the surviving row, not the candidate insert.
	var out models.DeviceBinding
	if err := db.Where("bot_id = ?", botID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveDevice maps a bot id back to its binding.
func ResolveDevice(db *gorm.DB, botID string) (*models.DeviceBinding, error) {
	var binding models.DeviceBinding
	err := db.Where("bot_id = ?", botID).First(&binding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrDeviceNotRegistered
	}
	if err != nil {
		return nil, err
	}
	return &binding, nil
}

// PullSchedule hands the device its due doses: logs in the window that are
// still live and not yet synced. Returned rows are marked synced in the same
// call, so each dose is delivered once under normal operation. The handoff
// is at-least-once: a crash between the write and the device persisting the
// response loses the delivery, by design tradeoff.
func PullSchedule(db *gorm.DB, botID string, start, end time.Time, now time.Time) ([]models.DoseLog, error) {
	binding, err := ResolveDevice(db, botID)
	if err != nil {
		return nil, err
	}

	var logs []models.DoseLog
	err = db.Where("user_id = ? AND scheduled_time >= ? AND scheduled_time <= ? AND status IN ? AND synced_to_hardware = ?",
		binding.UserID, start, end, models.LiveStatuses, false).
		Order("scheduled_time ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return logs, nil
	}

	ids := make([]string, len(logs))
	for i := range logs {
		ids[i] = logs[i].ID
	}
	err = db.Model(&models.DoseLog{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"synced_to_hardware": true,
			"hardware_sync_time": now,
		}).Error
	if err != nil {
		return nil, err
	}

	for i := range logs {
		logs[i].SyncedToHardware = true
		t := now
		logs[i].HardwareSyncTime = &t
	}
	touchDevice(db, binding, now)
	return logs, nil
}

// SlotConfiguration returns the dispenser's current compartment layout.
func SlotConfiguration(db *gorm.DB, botID string) ([]SlotAssignment, error) {
	binding, err := ResolveDevice(db, botID)
	if err != nil {
		return nil, err
	}

	var meds []models.Medicine
	err = db.Where("user_id = ? AND is_active = ?", binding.UserID, true).
		Order("slot ASC").
		Find(&meds).Error
	if err != nil {
		return nil, err
	}

	slots := make([]SlotAssignment, 0, len(meds))
	for _, med := range meds {
		slots = append(slots, SlotAssignment{
			Slot:         med.Slot,
			MedicineID:   med.ID,
			MedicineName: med.Name,
			Dosage:       med.Dosage,
			Times:        med.Times,
			Remaining:    med.Remaining,
		})
	}
	return slots, nil
}

// ReportStatus applies one device-reported dose outcome. Reports carrying a
// sequence number at or below the device's high-water mark are absorbed as
// duplicate deliveries without re-applying side effects. A dispensed dose
// decrements stock exactly once: replays short-circuit on the terminal
// status before the decrement runs.
func ReportStatus(db *gorm.DB, botID string, in ReportInput) (*ReportResult, error) {
	binding, err := ResolveDevice(db, botID)
	if err != nil {
		return nil, err
	}
	return reportForBinding(db, binding, in)
}

func reportForBinding(db *gorm.DB, binding *models.DeviceBinding, in ReportInput) (*ReportResult, error) {
	now := time.Now()
	if in.Timestamp != nil {
		now = *in.Timestamp
	}

	if in.Seq != nil && *in.Seq <= binding.LastSeq {
		return &ReportResult{LogID: in.LogID, Success: true, Applied: false, Duplicate: true}, nil
	}

	var res *TransitionResult
	var err error

	switch in.Status {
	case models.StatusTaken, "dispensed":
		res, err = MarkTaken(db, binding.UserID, in.LogID, now)
		if err == nil && res.Applied {
			// The intake fact is already committed; a vanished medicine
			// must not roll it back, so the decrement is best effort.
			_, _ = DecrementStock(db, res.Log.MedicineID)
		}
	case models.StatusSnoozed:
		res, err = MarkSnoozed(db, binding.UserID, in.LogID, now, models.HardwareSnoozeMinutes, true, in.SnoozeCount)
	case models.StatusSkipped:
		res, err = MarkSkipped(db, binding.UserID, in.LogID, "")
	case models.StatusMissed:
		res, err = MarkMissed(db, binding.UserID, in.LogID)
	default:
		return nil, types.Validation("status must be one of taken, dispensed, snoozed, skipped, missed")
	}
	if err != nil {
		return nil, err
	}

	// Advance the mark only once the transition is committed, so a failed
	// report's seq is not absorbed on retry
	if in.Seq != nil {
		binding.LastSeq = *in.Seq
	}
	touchDevice(db, binding, time.Now())

	return &ReportResult{
		LogID:   in.LogID,
		Success: true,
		Applied: res.Applied,
		Status:  res.Log.Status,
		Log:     res.Log,
	}, nil
}

// BulkReportStatus applies each report independently; one bad report never
// aborts the batch.
func BulkReportStatus(db *gorm.DB, botID string, reports []ReportInput) ([]ReportResult, int, error) {
	binding, err := ResolveDevice(db, botID)
	if err != nil {
		return nil, 0, err
	}

	results := make([]ReportResult, 0, len(reports))
	applied := 0
	for _, in := range reports {
		res, err := reportForBinding(db, binding, in)
		if err != nil {
			msg := err.Error()
			if appErr, ok := types.AsAppError(err); ok {
				msg = appErr.Message
			}
			results = append(results, ReportResult{LogID: in.LogID, Success: false, Message: msg})
			continue
		}
		if res.Applied {
			applied++
		}
		results = append(results, *res)
	}
	return results, applied, nil
}

// touchDevice persists the device's seq high-water mark and last-seen time.
// Failures are swallowed; the next report will move the mark again.
func touchDevice(db *gorm.DB, binding *models.DeviceBinding, now time.Time) {
	db.Model(&models.DeviceBinding{}).
		Where("bot_id = ?", binding.BotID).
		Updates(map[string]interface{}{
			"last_seq":     binding.LastSeq,
			"last_seen_at": now,
		})
}
