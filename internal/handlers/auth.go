package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/medibro/medibro-server/internal/config"
	"github.com/medibro/medibro-server/internal/middleware"
	"github.com/medibro/medibro-server/internal/services"
	"github.com/medibro/medibro-server/internal/utils"
	"gorm.io/gorm"
)

// AuthHandler handles account and profile routes
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

type registerRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	Name              string `json:"name"`
	Age               int    `json:"age"`
	Gender            string `json:"gender"`
	MedicalConditions string `json:"medicalConditions"`
	EmergencyContact  string `json:"emergencyContact"`
	DoctorName        string `json:"doctorName"`
	DoctorPhone       string `json:"doctorPhone"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name              *string `json:"name"`
	Age               *int    `json:"age"`
	Gender            *string `json:"gender"`
	MedicalConditions *string `json:"medicalConditions"`
	EmergencyContact  *string `json:"emergencyContact"`
	DoctorName        *string `json:"doctorName"`
	DoctorPhone       *string `json:"doctorPhone"`
}

type completeSetupRequest struct {
	ConnectedBotID string `json:"connectedBotId"`
}

func (h *AuthHandler) tokenTTL() time.Duration {
	return time.Duration(h.Cfg.TokenTTLHours) * time.Hour
}

// Register handles POST /api/auth/register
// @Summary Register a new account
// @Description Create an account and return a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "Account details"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body registerRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}

	var fieldErrors []utils.FieldError
	if body.Username == "" {
		fieldErrors = append(fieldErrors, utils.FieldError{Field: "username", Message: "username is required"})
	}
	if len(body.Password) < 6 {
		fieldErrors = append(fieldErrors, utils.FieldError{Field: "password", Message: "password must be at least 6 characters"})
	}
	if body.Name == "" {
		fieldErrors = append(fieldErrors, utils.FieldError{Field: "name", Message: "name is required"})
	}
	if len(fieldErrors) > 0 {
		return utils.ValidationErrorResponse(c, fieldErrors)
	}

	user, err := services.RegisterUser(h.DB, services.RegisterInput{
		Username:          body.Username,
		Password:          body.Password,
		Name:              body.Name,
		Age:               body.Age,
		Gender:            body.Gender,
		MedicalConditions: body.MedicalConditions,
		EmergencyContact:  body.EmergencyContact,
		DoctorName:        body.DoctorName,
		DoctorPhone:       body.DoctorPhone,
	})
	if err != nil {
		return serviceError(c, err)
	}

	token, err := services.GenerateToken(h.Cfg.JWTSecret, user.ID, h.tokenTTL())
	if err != nil {
		return serviceError(c, err)
	}

	return utils.SuccessResponse(c, fiber.StatusCreated, fiber.Map{
		"user":  user,
		"token": token,
	})
}

// Login handles POST /api/auth/login
// @Summary Authenticate
// @Description Verify credentials and return a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}
	if body.Username == "" || body.Password == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Username and password are required")
	}

	user, err := services.AuthenticateUser(h.DB, body.Username, body.Password)
	if err != nil {
		return serviceError(c, err)
	}

	token, err := services.GenerateToken(h.Cfg.JWTSecret, user.ID, h.tokenTTL())
	if err != nil {
		return serviceError(c, err)
	}

	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"user":  user,
		"token": token,
	})
}

// GetProfile handles GET /api/auth/profile
// @Summary Get the authenticated user's profile
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /auth/profile [get]
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, err := services.GetUser(h.DB, middleware.UserID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, user)
}

// UpdateProfile handles PUT /api/auth/profile
// @Summary Update the authenticated user's profile
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body profileRequest true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var body profileRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}

	user, err := services.UpdateProfile(h.DB, middleware.UserID(c), services.ProfilePatch{
		Name:              body.Name,
		Age:               body.Age,
		Gender:            body.Gender,
		MedicalConditions: body.MedicalConditions,
		EmergencyContact:  body.EmergencyContact,
		DoctorName:        body.DoctorName,
		DoctorPhone:       body.DoctorPhone,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, user)
}

// CompleteSetup handles POST /api/auth/complete-setup
// @Summary Mark first-run setup complete
// @Description Record dispenser pairing and flag the account as set up
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body completeSetupRequest false "Paired dispenser id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /auth/complete-setup [post]
func (h *AuthHandler) CompleteSetup(c *fiber.Ctx) error {
	var body completeSetupRequest
	if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}

	user, err := services.CompleteSetup(h.DB, middleware.UserID(c), body.ConnectedBotID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessMessageResponse(c, fiber.StatusOK, "Setup completed", user)
}
