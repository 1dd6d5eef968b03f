package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/medibro/medibro-server/internal/models"
	"github.com/medibro/medibro-server/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	db := setupTestDB(t)

	user, err := RegisterUser(db, RegisterInput{
		Username: "  Maria  ",
		Password: "secret123",
		Name:     "Maria",
		Age:      67,
	})
	require.NoError(t, err)
	assert.Equal(t, "maria", user.Username, "usernames are stored lowercased")

	// Case-insensitive login
	got, err := AuthenticateUser(db, "MARIA", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)

	_, err := RegisterUser(db, RegisterInput{Username: "maria", Password: "secret123", Name: "Maria"})
	require.NoError(t, err)

	_, err = RegisterUser(db, RegisterInput{Username: "Maria", Password: "other456", Name: "Other"})
	require.Error(t, err)
	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION", appErr.Code)
}

func TestAuthenticateFailuresIndistinguishable(t *testing.T) {
	db := setupTestDB(t)

	_, err := RegisterUser(db, RegisterInput{Username: "maria", Password: "secret123", Name: "Maria"})
	require.NoError(t, err)

	_, wrongPassword := AuthenticateUser(db, "maria", "wrong")
	_, unknownUser := AuthenticateUser(db, "nobody", "secret123")

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, wrongPassword, unknownUser)
}

func TestGenerateTokenCarriesSubject(t *testing.T) {
	token, err := GenerateToken("test-secret", "user-42", time.Hour)
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)
}

func TestCompleteSetupBindsDevice(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db)

	updated, err := CompleteSetup(db, user.ID, "MD-BOT-07")
	require.NoError(t, err)
	assert.True(t, updated.SetupComplete)
	assert.True(t, updated.BluetoothConnected)
	assert.Equal(t, "MD-BOT-07", updated.ConnectedBotID)

	var binding models.DeviceBinding
	require.NoError(t, db.First(&binding, "bot_id = ?", "MD-BOT-07").Error)
	assert.Equal(t, user.ID, binding.UserID)
}

func TestCompleteSetupMintsBotID(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db)

	updated, err := CompleteSetup(db, user.ID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, updated.ConnectedBotID)
	assert.Contains(t, updated.ConnectedBotID, "MD-BOT-")
}
