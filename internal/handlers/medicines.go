package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/medibro/medibro-server/internal/config"
	"github.com/medibro/medibro-server/internal/middleware"
	"github.com/medibro/medibro-server/internal/services"
	"github.com/medibro/medibro-server/internal/types"
	"github.com/medibro/medibro-server/internal/utils"
	"gorm.io/gorm"
)

// MedicineHandler handles medicine registry routes
type MedicineHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

type medicineRequest struct {
	Name         string                `json:"name"`
	Dosage       string                `json:"dosage"`
	Times        types.FlexList[string] `json:"times"`
	Frequency    string                `json:"frequency"`
	Slot         string                `json:"slot"`
	Quantity     int                   `json:"quantity"`
	Remaining    *int                  `json:"remaining"`
	Description  string                `json:"description"`
	SideEffects  string                `json:"sideEffects"`
	Instructions string                `json:"instructions"`
	PrescribedBy string                `json:"prescribedBy"`
	StartDate    *time.Time            `json:"startDate"`
	EndDate      *time.Time            `json:"endDate"`
	Category     string                `json:"category"`
}

type medicinePatchRequest struct {
	Name         *string                `json:"name"`
	Dosage       *string                `json:"dosage"`
	Times        types.FlexList[string] `json:"times"`
	Frequency    *string                `json:"frequency"`
	Slot         *string                `json:"slot"`
	Quantity     *int                   `json:"quantity"`
	Remaining    *int                   `json:"remaining"`
	Description  *string                `json:"description"`
	SideEffects  *string                `json:"sideEffects"`
	Instructions *string                `json:"instructions"`
	PrescribedBy *string                `json:"prescribedBy"`
	EndDate      *time.Time             `json:"endDate"`
	Category     *string                `json:"category"`
}

// CreateMedicine handles POST /api/medicines
// @Summary Register a medicine
// @Description Register a medicine and generate its initial dose schedule
// @Tags Medicines
// @Accept json
// @Produce json
// @Param body body medicineRequest true "Medicine details"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /medicines [post]
func (h *MedicineHandler) CreateMedicine(c *fiber.Ctx) error {
	var body medicineRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}

	var fieldErrors []utils.FieldError
	if body.Name == "" {
		fieldErrors = append(fieldErrors, utils.FieldError{Field: "name", Message: "name is required"})
	}
	if body.Dosage == "" {
		fieldErrors = append(fieldErrors, utils.FieldError{Field: "dosage", Message: "dosage is required"})
	}
	if len(body.Times) == 0 {
		fieldErrors = append(fieldErrors, utils.FieldError{Field: "times", Message: "at least one dose time is required"})
	}
	if body.Quantity < 0 {
		fieldErrors = append(fieldErrors, utils.FieldError{Field: "quantity", Message: "quantity cannot be negative"})
	}
	if len(fieldErrors) > 0 {
		return utils.ValidationErrorResponse(c, fieldErrors)
	}

	remaining := body.Quantity
	if body.Remaining != nil {
		remaining = *body.Remaining
	}

	medicine, err := services.CreateMedicine(h.DB, middleware.UserID(c), services.MedicineInput{
		Name:         body.Name,
		Dosage:       body.Dosage,
		Times:        body.Times.Slice(),
		Frequency:    body.Frequency,
		Slot:         body.Slot,
		Quantity:     body.Quantity,
		Remaining:    remaining,
		Description:  body.Description,
		SideEffects:  body.SideEffects,
		Instructions: body.Instructions,
		PrescribedBy: body.PrescribedBy,
		StartDate:    body.StartDate,
		EndDate:      body.EndDate,
		Category:     body.Category,
	}, h.Cfg.ScheduleWindowDays)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.SuccessResponse(c, fiber.StatusCreated, medicine)
}

// ListMedicines handles GET /api/medicines
// @Summary List the user's medicines
// @Tags Medicines
// @Produce json
// @Param active query bool false "Filter by active flag"
// @Param category query string false "Filter by category"
// @Success 200 {object} map[string]interface{}
// @Router /medicines [get]
func (h *MedicineHandler) ListMedicines(c *fiber.Ctx) error {
	filter := services.MedicineFilter{Category: c.Query("category")}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.IsActive = &active
	}

	medicines, err := services.ListMedicines(h.DB, middleware.UserID(c), filter)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.ListResponse(c, len(medicines), medicines)
}

// GetMedicine handles GET /api/medicines/:id
// @Summary Get one medicine
// @Tags Medicines
// @Produce json
// @Param id path string true "Medicine ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /medicines/{id} [get]
func (h *MedicineHandler) GetMedicine(c *fiber.Ctx) error {
	medicine, err := services.GetMedicine(h.DB, middleware.UserID(c), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, medicine)
}

// UpdateMedicine handles PUT /api/medicines/:id
// @Summary Update a medicine
// @Description Update medicine fields; already-generated dose logs keep their snapshot
// @Tags Medicines
// @Accept json
// @Produce json
// @Param id path string true "Medicine ID"
// @Param body body medicinePatchRequest true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /medicines/{id} [put]
func (h *MedicineHandler) UpdateMedicine(c *fiber.Ctx) error {
	var body medicinePatchRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}

	medicine, err := services.UpdateMedicine(h.DB, middleware.UserID(c), c.Params("id"), services.MedicinePatch{
		Name:         body.Name,
		Dosage:       body.Dosage,
		Times:        body.Times.Slice(),
		Frequency:    body.Frequency,
		Slot:         body.Slot,
		Quantity:     body.Quantity,
		Remaining:    body.Remaining,
		Description:  body.Description,
		SideEffects:  body.SideEffects,
		Instructions: body.Instructions,
		PrescribedBy: body.PrescribedBy,
		EndDate:      body.EndDate,
		Category:     body.Category,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, medicine)
}

// DeleteMedicine handles DELETE /api/medicines/:id
// @Summary Deactivate a medicine
// @Description Soft-delete: the medicine is deactivated, freeing its slot; existing dose logs are kept
// @Tags Medicines
// @Produce json
// @Param id path string true "Medicine ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /medicines/{id} [delete]
func (h *MedicineHandler) DeleteMedicine(c *fiber.Ctx) error {
	if err := services.DeactivateMedicine(h.DB, middleware.UserID(c), c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessMessageResponse(c, fiber.StatusOK, "Medicine deactivated", nil)
}

// LowStock handles GET /api/medicines/alerts/low-stock
// @Summary List medicines running low
// @Tags Medicines
// @Produce json
// @Param threshold query int false "Remaining-dose threshold"
// @Success 200 {object} map[string]interface{}
// @Router /medicines/alerts/low-stock [get]
func (h *MedicineHandler) LowStock(c *fiber.Ctx) error {
	threshold := c.QueryInt("threshold", h.Cfg.LowStockThreshold)
	medicines, err := services.ListLowStock(h.DB, middleware.UserID(c), threshold)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.ListResponse(c, len(medicines), medicines)
}
