package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/medibro/medibro-server/internal/models"
	"github.com/medibro/medibro-server/internal/types"
	"gorm.io/gorm"
)

// MedicineInput carries a validated medicine registration.
type MedicineInput struct {
	Name         string
	Dosage       string
	Times        []string
	Frequency    string
	Slot         string
	Quantity     int
	Remaining    int
	Description  string
	SideEffects  string
	Instructions string
	PrescribedBy string
	StartDate    *time.Time
	EndDate      *time.Time
	Category     string
}

// MedicinePatch carries optional medicine updates; nil fields are untouched.
type MedicinePatch struct {
	Name         *string
	Dosage       *string
	Times        []string
	Frequency    *string
	Slot         *string
	Quantity     *int
	Remaining    *int
	Description  *string
	SideEffects  *string
	Instructions *string
	PrescribedBy *string
	EndDate      *time.Time
	Category     *string
}

// MedicineFilter narrows ListMedicines.
type MedicineFilter struct {
	IsActive *bool
	Category string
}

// CreateMedicine registers a medicine and generates its initial dose
// schedule. The dispenser has one compartment per medicine, so an active
// medicine already holding the requested slot rejects the registration.
func CreateMedicine(db *gorm.DB, userID string, in MedicineInput, windowDays int) (*models.Medicine, error) {
	for _, t := range in.Times {
		if _, _, err := ParseClock(t); err != nil {
			return nil, err
		}
	}

	var occupant models.Medicine
	err := db.Where("user_id = ? AND slot = ? AND is_active = ?", userID, in.Slot, true).
		First(&occupant).Error
	if err == nil {
		return nil, types.SlotConflict(in.Slot, occupant.Name)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	start := time.Now()
	if in.StartDate != nil {
		start = *in.StartDate
	}
	frequency := in.Frequency
	if frequency == "" {
		frequency = models.FrequencyDaily
	}
	category := in.Category
	if category == "" {
		category = models.CategoryOther
	}

	med := &models.Medicine{
		ID:           uuid.New().String(),
		UserID:       userID,
		Name:         in.Name,
		Dosage:       in.Dosage,
		Times:        models.TimeList(in.Times),
		Frequency:    frequency,
		Slot:         in.Slot,
		Quantity:     in.Quantity,
		Remaining:    in.Remaining,
		Description:  in.Description,
		SideEffects:  in.SideEffects,
		Instructions: in.Instructions,
		PrescribedBy: in.PrescribedBy,
		StartDate:    start,
		EndDate:      in.EndDate,
		Category:     category,
		IsActive:     true,
	}

	if err := db.Create(med).Error; err != nil {
		return nil, err
	}

	if _, err := GenerateSchedule(db, med, time.Now(), windowDays); err != nil {
		return nil, err
	}
	return med, nil
}

// GetMedicine loads a medicine owned by userID.
func GetMedicine(db *gorm.DB, userID, id string) (*models.Medicine, error) {
	var med models.Medicine
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&med).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("medicine")
	}
	if err != nil {
		return nil, err
	}
	return &med, nil
}

// ListMedicines returns the user's medicines, newest first.
func ListMedicines(db *gorm.DB, userID string, filter MedicineFilter) ([]models.Medicine, error) {
	query := db.Where("user_id = ?", userID)
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var meds []models.Medicine
	if err := query.Order("created_at DESC").Find(&meds).Error; err != nil {
		return nil, err
	}
	return meds, nil
}

// UpdateMedicine applies the non-nil fields of patch. A slot change is
// re-validated against every other active medicine of the user.
func UpdateMedicine(db *gorm.DB, userID, id string, patch MedicinePatch) (*models.Medicine, error) {
	med, err := GetMedicine(db, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.Slot != nil && *patch.Slot != med.Slot {
		var occupant models.Medicine
		err := db.Where("user_id = ? AND slot = ? AND is_active = ? AND id <> ?",
			userID, *patch.Slot, true, med.ID).First(&occupant).Error
		if err == nil {
			return nil, types.SlotConflict(*patch.Slot, occupant.Name)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		med.Slot = *patch.Slot
	}

	if patch.Times != nil {
		for _, t := range patch.Times {
			if _, _, err := ParseClock(t); err != nil {
				return nil, err
			}
		}
		med.Times = models.TimeList(patch.Times)
	}

	if patch.Name != nil {
		med.Name = *patch.Name
	}
	if patch.Dosage != nil {
		med.Dosage = *patch.Dosage
	}
	if patch.Frequency != nil {
		med.Frequency = *patch.Frequency
	}
	if patch.Quantity != nil {
		med.Quantity = *patch.Quantity
	}
	if patch.Remaining != nil {
		med.Remaining = *patch.Remaining
	}
	if patch.Description != nil {
		med.Description = *patch.Description
	}
	if patch.SideEffects != nil {
		med.SideEffects = *patch.SideEffects
	}
	if patch.Instructions != nil {
		med.Instructions = *patch.Instructions
	}
	if patch.PrescribedBy != nil {
		med.PrescribedBy = *patch.PrescribedBy
	}
	if patch.EndDate != nil {
		med.EndDate = patch.EndDate
	}
	if patch.Category != nil {
		med.Category = *patch.Category
	}

	if err := db.Save(med).Error; err != nil {
		return nil, err
	}
	return med, nil
}

// DeactivateMedicine soft-deletes by clearing the active flag. Existing dose
// logs are historical facts and stay untouched.
func DeactivateMedicine(db *gorm.DB, userID, id string) error {
	med, err := GetMedicine(db, userID, id)
	if err != nil {
		return err
	}
	return db.Model(med).Update("is_active", false).Error
}

// DecrementStock reduces remaining by one, floored at zero. The conditional
// update keeps concurrent decrements from racing below zero. A dose taken at
// zero stock is still a valid intake event, so exhaustion is reported, not
// an error.
func DecrementStock(db *gorm.DB, medicineID string) (decremented bool, err error) {
	result := db.Model(&models.Medicine{}).
		Where("id = ? AND remaining > 0", medicineID).
		UpdateColumn("remaining", gorm.Expr("remaining - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListLowStock returns active medicines at or below threshold doses,
// emptiest first.
func ListLowStock(db *gorm.DB, userID string, threshold int) ([]models.Medicine, error) {
	var meds []models.Medicine
	err := db.Where("user_id = ? AND is_active = ? AND remaining <= ?", userID, true, threshold).
		Order("remaining ASC").
		Find(&meds).Error
	if err != nil {
		return nil, err
	}
	return meds, nil
}
