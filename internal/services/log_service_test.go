package services

import (
	"testing"
	"time"

	"github.com/medibro/medibro-server/internal/models"
	"github.com/medibro/medibro-server/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkTakenTransition(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db)
	med := createMedicine(t, db, user.ID, "1", []string{"08:00"})
	scheduled := time.Now().Add(-10 * time.Minute)
	log := createLog(t, db, med, scheduled, models.StatusPending)

	res, err := MarkTaken(db, user.ID, log.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.StatusTaken, res.Log.Status)
	require.NotNil(t, res.Log.IsOnTime)
	assert.True(t, *res.Log.IsOnTime)
}

func TestDuplicateTakenIsAbsorbed(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db)
	med := createMedicine(t, db, user.ID, "1", []string{"08:00"})
	log := createLog(t, db, med, time.Now().Add(-5*time.Minute), models.StatusPending)

	first, err := MarkTaken(db, user.ID, log.ID, time.Now())
	require.NoError(t, err)
	require.True(t, first.Applied)

	// Same outcome again: absorbed, not applied
	second, err := MarkTaken(db, user.ID, log.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Contains(t, []string{models.StatusTaken, models.StatusTakenLate}, second.Log.Status)
}

func TestConflictingOutcomeRejected(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db)
	med := createMedicine(t, db, user.ID, "1", []string{"08:00"})
	log := createLog(t, db, med, time.Now().Add(-5*time.Minute), models.StatusPending)

	_, err := MarkTaken(db, user.ID, log.ID, time.Now())
	require.NoError(t, err)

	_, err = MarkSkipped(db, user.ID, log.ID, "changed my mind")
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "STATE_CONFLICT", appErr.Code)
}

func TestSnoozeThenTake(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db)
	med := createMedicine(t, db, user.ID, "1", []string{"08:00"})
	log := createLog(t, db, med, time.Now(), models.StatusPending)

	res, err := MarkSnoozed(db, user.ID, log.ID, time.Now(), 15, false, nil)
	require.NoError(t, err)
	require.True(t, res.Applied)
	assert.Equal(t, models.StatusSnoozed, res.Log.Status)
	assert.Equal(t, 1, res.Log.SnoozeCount)

	// A snoozed dose can still resolve
	res, err = MarkTaken(db, user.ID, log.ID, time.Now().Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Nil(t, res.Log.SnoozedUntil)
}

func TestSnoozeOverrideCount(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db)
	med := createMedicine(t, db, user.ID, "1", []string{"08:00"})
	log := createLog(t, db, med, time.Now(), models.StatusPending)

	// Device already counted 3 snoozes; over the limit on the escalating path
	override := 3
	res, err := MarkSnoozed(db, user.ID, log.ID, time.Now(), models.HardwareSnoozeMinutes, true, &override)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMissed, res.Log.Status)
	assert.Equal(t, 3, res.Log.SnoozeCount)
}

func TestGetLogHidesOtherUsers(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db)
	stranger := createUser(t, db)
	med := createMedicine(t, db, owner.ID, "1", []string{"08:00"})
	log := createLog(t, db, med, time.Now(), models.StatusPending)

	_, err := GetLog(db, stranger.ID, log.ID)
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestPendingLogsOnlyDue(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db)
	med := createMedicine(t, db, user.ID, "1", []string{"08:00"})
	now := time.Now()

	createLog(t, db, med, now.Add(-time.Hour), models.StatusPending)
	createLog(t, db, med, now.Add(time.Hour), models.StatusPending) // future
	createLog(t, db, med, now.Add(-2*time.Hour), models.StatusTaken)

	logs, err := PendingLogs(db, user.ID, now)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestMedicineHistoryStats(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db)
	med := createMedicine(t, db, user.ID, "1", []string{"08:00"})
	base := time.Now().AddDate(0, 0, -5)

	createLog(t, db, med, base, models.StatusTaken)
	createLog(t, db, med, base.Add(24*time.Hour), models.StatusTakenLate)
	createLog(t, db, med, base.Add(48*time.Hour), models.StatusSkipped)
	createLog(t, db, med, base.Add(72*time.Hour), models.StatusPending)

	_, stats, err := MedicineHistory(db, user.ID, med.ID, LogFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Taken)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 50, stats.AdherenceRate)
}

func TestSweepOverdue(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db)
	med := createMedicine(t, db, user.ID, "1", []string{"08:00"})
	now := time.Now()
	grace := time.Hour

	overdue := createLog(t, db, med, now.Add(-2*time.Hour), models.StatusPending)
	within := createLog(t, db, med, now.Add(-30*time.Minute), models.StatusPending)
	resolved := createLog(t, db, med, now.Add(-3*time.Hour), models.StatusTaken)

	// Snoozed past its overdue schedule but snoozedUntil is recent
	snoozed := createLog(t, db, med, now.Add(-150*time.Minute), models.StatusSnoozed)
	until := now.Add(-10 * time.Minute)
	require.NoError(t, db.Model(snoozed).Update("snoozed_until", &until).Error)

	swept, err := SweepOverdue(db, now, grace)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	// Fresh struct per lookup: a populated primary key would leak into the
	// next query's conditions
	status := func(id string) string {
		var log models.DoseLog
		require.NoError(t, db.First(&log, "id = ?", id).Error)
		return log.Status
	}
	assert.Equal(t, models.StatusMissed, status(overdue.ID))
	assert.Equal(t, models.StatusPending, status(within.ID))
	assert.Equal(t, models.StatusTaken, status(resolved.ID))
	assert.Equal(t, models.StatusSnoozed, status(snoozed.ID))
}
