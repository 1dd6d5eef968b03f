package services

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/medibro/medibro-server/internal/models"
	"github.com/medibro/medibro-server/internal/types"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput carries a validated registration request.
type RegisterInput struct {
	Username          string
	Password          string
	Name              string
	Age               int
	Gender            string
	MedicalConditions string
	EmergencyContact  string
	DoctorName        string
	DoctorPhone       string
}

// ProfilePatch carries optional profile updates; nil fields are left untouched.
type ProfilePatch struct {
	Name              *string
	Age               *int
	Gender            *string
	MedicalConditions *string
	EmergencyContact  *string
	DoctorName        *string
	DoctorPhone       *string
}

// GenerateToken signs a bearer token for the user id.
func GenerateToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// RegisterUser creates an account and returns it. Usernames are stored
// lowercased; duplicates fail validation.
func RegisterUser(db *gorm.DB, in RegisterInput) (*models.User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))

	var existing models.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, types.Validation("username already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	gender := in.Gender
	if gender == "" {
		gender = "male"
	}

	user := &models.User{
		ID:                uuid.New().String(),
		Username:          username,
		PasswordHash:      string(hash),
		Name:              in.Name,
		Age:               in.Age,
		Gender:            gender,
		MedicalConditions: in.MedicalConditions,
		EmergencyContact:  in.EmergencyContact,
		DoctorName:        in.DoctorName,
		DoctorPhone:       in.DoctorPhone,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// AuthenticateUser checks credentials. Unknown usernames and wrong passwords
// produce the same error.
func AuthenticateUser(db *gorm.DB, username, password string) (*models.User, error) {
	var user models.User
	err := db.Where("username = ?", strings.ToLower(strings.TrimSpace(username))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrAuth
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, types.ErrAuth
	}
	return &user, nil
}

// GetUser loads a user by id.
func GetUser(db *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := db.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies the non-nil fields of patch.
func UpdateProfile(db *gorm.DB, userID string, patch ProfilePatch) (*models.User, error) {
	user, err := GetUser(db, userID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Age != nil {
		user.Age = *patch.Age
	}
	if patch.Gender != nil {
		user.Gender = *patch.Gender
	}
	if patch.MedicalConditions != nil {
		user.MedicalConditions = *patch.MedicalConditions
	}
	if patch.EmergencyContact != nil {
		user.EmergencyContact = *patch.EmergencyContact
	}
	if patch.DoctorName != nil {
		user.DoctorName = *patch.DoctorName
	}
	if patch.DoctorPhone != nil {
		user.DoctorPhone = *patch.DoctorPhone
	}

	if err := db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CompleteSetup marks the account paired with its dispenser and binds the
// bot id so hardware reports resolve back to this user. A bot id is minted
// when the client does not supply one.
func CompleteSetup(db *gorm.DB, userID, botID string) (*models.User, error) {
	user, err := GetUser(db, userID)
	if err != nil {
		return nil, err
	}

	if botID == "" {
		botID = fmt.Sprintf("MD-BOT-%02d", rand.Intn(100))
	}

	user.SetupComplete = true
	user.BluetoothConnected = true
	user.ConnectedBotID = botID

	if err := db.Save(user).Error; err != nil {
		return nil, err
	}

	if _, err := RegisterDevice(db, botID, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}
