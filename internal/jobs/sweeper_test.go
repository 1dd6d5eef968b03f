package jobs

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/medibro/medibro-server/internal/config"
	"github.com/medibro/medibro-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Medicine{}, &models.DoseLog{}))
	return db
}

func testSweeper(db *gorm.DB, spec string) *Sweeper {
	cfg := &config.Config{SweepGraceMinutes: 60, SweepSchedule: spec}
	return NewSweeper(cfg, db, zap.NewNop())
}

func TestRunOnceSweepsOverdueDoses(t *testing.T) {
	db := setupTestDB(t)

	overdue := models.DoseLog{
		ID:            uuid.New().String(),
		UserID:        uuid.New().String(),
		MedicineID:    uuid.New().String(),
		MedicineName:  "Aspirin",
		Dosage:        "100mg",
		Slot:          "1",
		ScheduledTime: time.Now().Add(-3 * time.Hour),
		Status:        models.StatusPending,
	}
	require.NoError(t, db.Create(&overdue).Error)

	s := testSweeper(db, "* * * * *")
	swept, err := s.RunOnce(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	var reloaded models.DoseLog
	require.NoError(t, db.First(&reloaded, "id = ?", overdue.ID).Error)
	assert.Equal(t, models.StatusMissed, reloaded.Status)

	// A second run finds nothing
	swept, err = s.RunOnce(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := testSweeper(setupTestDB(t), "not a cron expression")
	assert.Error(t, s.Start())
}

func TestStartStopLifecycle(t *testing.T) {
	s := testSweeper(setupTestDB(t), "@hourly")

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start must be rejected")

	s.Stop()
	s.Stop() // idempotent

	require.NoError(t, s.Start())
	s.Stop()
}
