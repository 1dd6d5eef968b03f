package services

import (
	"errors"
	"time"

	"github.com/medibro/medibro-server/internal/models"
	"github.com/medibro/medibro-server/internal/types"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// LogFilter narrows ListLogs.
type LogFilter struct {
	Start  *time.Time
	End    *time.Time
	Status string
}

// HistoryStats summarizes a medicine's dose history.
type HistoryStats struct {
	Total         int `json:"total"`
	Taken         int `json:"taken"`
	Skipped       int `json:"skipped"`
	Snoozed       int `json:"snoozed"`
	Pending       int `json:"pending"`
	Missed        int `json:"missed"`
	AdherenceRate int `json:"adherenceRate"`
}

// TransitionResult reports the outcome of a dose transition. Applied is
// false when the transition was recognized as a duplicate delivery of an
// already-recorded outcome; side effects (stock decrement) must be skipped.
type TransitionResult struct {
	Log     *models.DoseLog
	Applied bool
}

// GetLog loads a dose log owned by userID. Another user's log is
// indistinguishable from a missing one.
func GetLog(db *gorm.DB, userID, id string) (*models.DoseLog, error) {
	var log models.DoseLog
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("dose log")
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ListLogs returns the user's logs in the window, oldest first.
func ListLogs(db *gorm.DB, userID string, filter LogFilter) ([]models.DoseLog, error) {
	query := db.Clauses(hints.UseIndex("idx_logs_user_scheduled")).
		Where("user_id = ?", userID)
	if filter.Start != nil {
		query = query.Where("scheduled_time >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("scheduled_time <= ?", *filter.End)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var logs []models.DoseLog
	if err := query.Order("scheduled_time ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// TodaySchedule returns all of today's logs, oldest first.
func TodaySchedule(db *gorm.DB, userID string, now time.Time) ([]models.DoseLog, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return ListLogs(db, userID, LogFilter{Start: &start, End: &end})
}

// PendingLogs returns doses that are due (scheduled at or before now) and
// still pending.
func PendingLogs(db *gorm.DB, userID string, now time.Time) ([]models.DoseLog, error) {
	var logs []models.DoseLog
	err := db.Where("user_id = ? AND status = ? AND scheduled_time <= ?",
		userID, models.StatusPending, now).
		Order("scheduled_time ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// MedicineHistory returns up to 100 most recent logs for a medicine plus
// summary stats over them.
func MedicineHistory(db *gorm.DB, userID, medicineID string, filter LogFilter) ([]models.DoseLog, HistoryStats, error) {
	query := db.Where("user_id = ? AND medicine_id = ?", userID, medicineID)
	if filter.Start != nil {
		query = query.Where("scheduled_time >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("scheduled_time <= ?", *filter.End)
	}

	var history []models.DoseLog
	if err := query.Order("scheduled_time DESC").Limit(100).Find(&history).Error; err != nil {
		return nil, HistoryStats{}, err
	}

	stats := HistoryStats{Total: len(history)}
	for _, log := range history {
		switch log.Status {
		case models.StatusTaken, models.StatusTakenLate:
			stats.Taken++
		case models.StatusSkipped:
			stats.Skipped++
		case models.StatusSnoozed:
			stats.Snoozed++
		case models.StatusPending:
			stats.Pending++
		case models.StatusMissed:
			stats.Missed++
		}
	}
	if stats.Total > 0 {
		stats.AdherenceRate = roundRate(stats.Taken, stats.Total)
	}
	return history, stats, nil
}

// MarkTaken resolves a dose as taken at now. The caller owns the stock
// decrement side effect and must skip it when Applied is false.
func MarkTaken(db *gorm.DB, userID, logID string, now time.Time) (*TransitionResult, error) {
	log, err := GetLog(db, userID, logID)
	if err != nil {
		return nil, err
	}
	log.MarkTaken(now)
	return commitTransition(db, log)
}

// MarkSnoozed postpones a dose. overrideCount, when non-nil, replaces the
// locally tracked snooze counter with the device's (the device count wins
// because it reflects what the patient actually saw). escalate selects the
// hardware policy that converts the dose to missed past the snooze limit.
func MarkSnoozed(db *gorm.DB, userID, logID string, now time.Time, snoozeMinutes int, escalate bool, overrideCount *int) (*TransitionResult, error) {
	log, err := GetLog(db, userID, logID)
	if err != nil {
		return nil, err
	}
	if overrideCount != nil && *overrideCount > 0 {
		// Counter is pre-set to one below so MarkSnoozed's increment
		// lands exactly on the device's count.
		log.SnoozeCount = *overrideCount - 1
	}
	log.MarkSnoozed(now, snoozeMinutes, escalate)
	return commitTransition(db, log)
}

// MarkSkipped resolves a dose as deliberately skipped.
func MarkSkipped(db *gorm.DB, userID, logID, reason string) (*TransitionResult, error) {
	log, err := GetLog(db, userID, logID)
	if err != nil {
		return nil, err
	}
	log.MarkSkipped(reason)
	return commitTransition(db, log)
}

// MarkMissed resolves a dose as missed.
func MarkMissed(db *gorm.DB, userID, logID string) (*TransitionResult, error) {
	log, err := GetLog(db, userID, logID)
	if err != nil {
		return nil, err
	}
	log.MarkMissed()
	return commitTransition(db, log)
}

// SweepOverdue marks overdue live doses as missed. A dose is overdue once
// its scheduled time (or snoozed-until time, when later) is more than grace
// behind now. Races with a concurrent patient or device report are benign:
// the conditional update only converts doses still live.
func SweepOverdue(db *gorm.DB, now time.Time, grace time.Duration) (int, error) {
	cutoff := now.Add(-grace)

	var logs []models.DoseLog
	err := db.Where("status IN ? AND scheduled_time < ?", models.LiveStatuses, cutoff).
		Where("snoozed_until IS NULL OR snoozed_until < ?", cutoff).
		Find(&logs).Error
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range logs {
		log := logs[i]
		log.MarkMissed()
		res, err := commitTransition(db, &log)
		if err != nil {
			if errors.Is(err, types.ErrStateConflict) {
				continue
			}
			return swept, err
		}
		if res.Applied {
			swept++
		}
	}
	return swept, nil
}

// commitTransition persists a transition with a conditional update: the row
// is written only while still in a live status, so the first terminal
// transition wins under concurrency. A losing write replaying the same
// outcome is absorbed as a duplicate; a different outcome is a conflict.
func commitTransition(db *gorm.DB, log *models.DoseLog) (*TransitionResult, error) {
	result := db.Model(&models.DoseLog{}).
		Where("id = ? AND status IN ?", log.ID, models.LiveStatuses).
		Updates(map[string]interface{}{
			"status":        log.Status,
			"taken_time":    log.TakenTime,
			"snoozed_until": log.SnoozedUntil,
			"snooze_count":  log.SnoozeCount,
			"is_on_time":    log.IsOnTime,
			"delay_minutes": log.DelayMinutes,
			"notes":         log.Notes,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		return &TransitionResult{Log: log, Applied: true}, nil
	}

	var current models.DoseLog
	if err := db.Where("id = ?", log.ID).First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("dose log")
		}
		return nil, err
	}

	if sameOutcome(current.Status, log.Status) {
		return &TransitionResult{Log: &current, Applied: false}, nil
	}
	return nil, types.ErrStateConflict
}

// sameOutcome treats taken and taken_late as one outcome: a retried taken
// report lands later than the original and may classify as late even though
// the physical dispense already happened.
func sameOutcome(current, attempted string) bool {
	if current == attempted {
		return true
	}
	taken := func(s string) bool { return s == models.StatusTaken || s == models.StatusTakenLate }
	return taken(current) && taken(attempted)
}

// roundRate computes round(taken/total*100).
func roundRate(taken, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(taken)/float64(total)*100 + 0.5)
}
