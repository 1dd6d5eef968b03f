package services

import (
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/medibro/medibro-server/internal/models"
	"github.com/medibro/medibro-server/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var clockRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):([0-5][0-9])$`)

// ParseClock validates an "HH:MM" 24-hour time string.
func ParseClock(value string) (hour, minute int, err error) {
	m := clockRe.FindStringSubmatch(value)
	if m == nil {
		return 0, 0, types.Validation("time %q must be in HH:MM format", value)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// GenerateSchedule expands a medicine's daily times into pending dose logs
// for the next windowDays days, starting today. Slots already in the past at
// generation time are skipped, never back-filled. The unique index on
// (medicine_id, scheduled_time) plus ON CONFLICT DO NOTHING makes repeated
// runs over the same window idempotent.
//
// Returns the number of rows submitted for insertion.
func GenerateSchedule(db *gorm.DB, med *models.Medicine, now time.Time, windowDays int) (int, error) {
	if windowDays <= 0 {
		windowDays = 7
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var logs []models.DoseLog
	for day := 0; day < windowDays; day++ {
		for _, t := range med.Times {
			hour, minute, err := ParseClock(t)
			if err != nil {
				return 0, err
			}

			scheduled := startOfDay.AddDate(0, 0, day).
				Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
			if !scheduled.After(now) {
				continue
			}

			logs = append(logs, models.DoseLog{
				ID:            uuid.New().String(),
				UserID:        med.UserID,
				MedicineID:    med.ID,
				MedicineName:  med.Name,
				Dosage:        med.Dosage,
				Slot:          med.Slot,
				ScheduledTime: scheduled,
				Status:        models.StatusPending,
			})
		}
	}

	if len(logs) == 0 {
		return 0, nil
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "medicine_id"}, {Name: "scheduled_time"}},
		DoNothing: true,
	}).Create(&logs).Error
	if err != nil {
		return 0, err
	}
	return len(logs), nil
}
