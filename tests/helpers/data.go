package helpers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medibro/medibro-server/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateTestUser creates a user with a known password hash
func CreateTestUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Name:         "Test User",
		Age:          40,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// CreateTestMedicine creates an active medicine in the given slot
func CreateTestMedicine(t *testing.T, db *gorm.DB, userID, name, slot string, times []string) *models.Medicine {
	t.Helper()

	medicine := &models.Medicine{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Dosage:    "100mg",
		Times:     models.TimeList(times),
		Frequency: models.FrequencyDaily,
		Slot:      slot,
		Quantity:  30,
		Remaining: 30,
		StartDate: time.Now().AddDate(0, 0, -1),
		Category:  models.CategoryOther,
		IsActive:  true,
	}
	if err := db.Create(medicine).Error; err != nil {
		t.Fatalf("Failed to create medicine: %v", err)
	}
	return medicine
}

// CreateTestDoseLog creates a dose log in the given status
func CreateTestDoseLog(t *testing.T, db *gorm.DB, med *models.Medicine, scheduled time.Time, status string) *models.DoseLog {
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
	if status == models.StatusTaken || status == models.StatusTakenLate {
		taken := scheduled.Add(5 * time.Minute)
		log.TakenTime = &taken
		onTime := status == models.StatusTaken
		log.IsOnTime = &onTime
	}
	if err := db.Create(log).Error; err != nil {
		t.Fatalf("Failed to create dose log: %v", err)
	}
	return log
}

// CreateTestDevice binds a bot id to a user
func CreateTestDevice(t *testing.T, db *gorm.DB, botID, userID string) *models.DeviceBinding {
	t.Helper()

	binding := &models.DeviceBinding{
		ID:     uuid.New().String(),
		BotID:  botID,
		UserID: userID,
	}
	if err := db.Create(binding).Error; err != nil {
		t.Fatalf("Failed to create device binding: %v", err)
	}
	return binding
}
