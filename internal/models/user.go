package models

import (
	"time"
)

// User represents a patient account. PasswordHash is never serialized.
type User struct {
	ID           string `gorm:"type:char(36);primaryKey" json:"_id"`
	Username     string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"size:128;not null" json:"-"`

	// Personal information
	Name   string `gorm:"size:255;not null" json:"name"`
	Age    int    `gorm:"not null" json:"age"`
	Gender string `gorm:"size:16;default:male" json:"gender"`

	// Medical information
	MedicalConditions string `gorm:"size:1024" json:"medicalConditions"`
	EmergencyContact  string `gorm:"size:255" json:"emergencyContact"`
	DoctorName        string `gorm:"size:255" json:"doctorName"`
	DoctorPhone       string `gorm:"size:64" json:"doctorPhone"`

	// Device information
	ConnectedBotID     string `gorm:"size:64" json:"connectedBotId"`
	BluetoothConnected bool   `json:"bluetoothConnected"`
	SetupComplete      bool   `json:"setupComplete"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
