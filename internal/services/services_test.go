package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/medibro/medibro-server/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory sqlite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Medicine{},
		&models.DoseLog{},
		&models.DeviceBinding{},
		&models.AdherenceSummary{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func createUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     "patient" + uuid.New().String()[:8],
		PasswordHash: "x",
		Name:         "Test Patient",
		Age:          60,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func createMedicine(t *testing.T, db *gorm.DB, userID, slot string, times []string) *models.Medicine {
	t.Helper()

	med := &models.Medicine{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      "Metformin",
		Dosage:    "500mg",
		Times:     models.TimeList(times),
		Frequency: models.FrequencyDaily,
		Slot:      slot,
		Quantity:  30,
		Remaining: 30,
		StartDate: time.Now().AddDate(0, 0, -1),
		Category:  models.CategoryChronicDisease,
		IsActive:  true,
	}
	if err := db.Create(med).Error; err != nil {
		t.Fatalf("Failed to create medicine: %v", err)
	}
	return med
}

func createLog(t *testing.T, db *gorm.DB, med *models.Medicine, scheduled time.Time, status string) *models.DoseLog {
	t.Helper()

	log := &models.DoseLog{
		ID:            uuid.New().String(),
		UserID:        med.UserID,
		MedicineID:    med.ID,
		MedicineName:  med.Name,
		Dosage:        med.Dosage,
		Slot:          med.Slot,
		ScheduledTime: scheduled,
		Status:        status,
	}
	if err := db.Create(log).Error; err != nil {
		t.Fatalf("Failed to create dose log: %v", err)
	}
	return log
}
