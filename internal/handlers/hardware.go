package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/medibro/medibro-server/internal/config"
	"github.com/medibro/medibro-server/internal/services"
	"github.com/medibro/medibro-server/internal/types"
	"github.com/medibro/medibro-server/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HardwareHandler handles dispenser-facing routes. Devices authenticate by
// bot id only; every route resolves the id to a registered binding first.
type HardwareHandler struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger *zap.Logger
}

type deviceReport struct {
	LogID       string            `json:"logId"`
	Status      string            `json:"status"`
	Timestamp   *time.Time        `json:"timestamp"`
	Seq         *types.FlexUint64 `json:"seq"`
	SnoozeCount *int              `json:"snoozeCount"`
}

type updateStatusRequest struct {
	BotID string `json:"botId"`
	deviceReport
}

type bulkUpdateRequest struct {
	BotID   string         `json:"botId"`
	Updates []deviceReport `json:"updates"`
}

type registerDeviceRequest struct {
	BotID  string `json:"botId"`
	UserID string `json:"userId"`
}

func (r deviceReport) toInput() services.ReportInput {
	in := services.ReportInput{
		LogID:       r.LogID,
		Status:      r.Status,
		Timestamp:   r.Timestamp,
		SnoozeCount: r.SnoozeCount,
	}
	if r.Seq != nil {
		seq := r.Seq.Uint64()
		in.Seq = &seq
	}
	return in
}

// Schedule handles GET /api/hardware/schedule
// @Summary Pull the dose schedule for a dispenser
// @Description Return unresolved doses in the window and mark them synced
// @Tags Hardware
// @Produce json
// @Param botId query string true "Dispenser bot ID"
// @Param startTime query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param endTime query string false "Window end"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /hardware/schedule [get]
func (h *HardwareHandler) Schedule(c *fiber.Ctx) error {
	botID := c.Query("botId")
	if botID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "botId is required")
	}

	now := time.Now()
	start, err := parseTimeQuery(c, "startTime")
	if err != nil {
		return serviceError(c, err)
	}
	end, err := parseTimeQuery(c, "endTime")
	if err != nil {
		return serviceError(c, err)
	}
	if start == nil {
		s := now.Truncate(24 * time.Hour)
		start = &s
	}
	if end == nil {
		e := start.AddDate(0, 0, 1)
		end = &e
	}

	logs, err := services.PullSchedule(h.DB, botID, *start, *end, now)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.ListResponse(c, len(logs), logs)
}

// Slots handles GET /api/hardware/slots
// @Summary Current compartment configuration for a dispenser
// @Tags Hardware
// @Produce json
// @Param botId query string true "Dispenser bot ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /hardware/slots [get]
func (h *HardwareHandler) Slots(c *fiber.Ctx) error {
	botID := c.Query("botId")
	if botID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "botId is required")
	}

	slots, err := services.SlotConfiguration(h.DB, botID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.ListResponse(c, len(slots), slots)
}

// UpdateStatus handles POST /api/hardware/update-status
// @Summary Report one dose outcome from a dispenser
// @Description Duplicate deliveries (by sequence number or already-recorded
// outcome) are absorbed; conflicting outcomes are rejected.
// @Tags Hardware
// @Accept json
// @Produce json
// @Param body body updateStatusRequest true "Dose outcome"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /hardware/update-status [post]
func (h *HardwareHandler) UpdateStatus(c *fiber.Ctx) error {
	var body updateStatusRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}
	if body.BotID == "" || body.LogID == "" || body.Status == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "botId, logId, and status are required")
	}

	result, err := services.ReportStatus(h.DB, body.BotID, body.toInput())
	if err != nil {
		return serviceError(c, err)
	}

	if result.Duplicate {
		h.Logger.Debug("absorbed duplicate device report",
			zap.String("botId", body.BotID),
			zap.String("logId", body.LogID))
	}
	return utils.SuccessResponse(c, fiber.StatusOK, result)
}

// BulkUpdate handles POST /api/hardware/bulk-update
// @Summary Report a batch of dose outcomes from a dispenser
// @Description Items are applied independently; one failure does not abort the batch
// @Tags Hardware
// @Accept json
// @Produce json
// @Param body body bulkUpdateRequest true "Batch of dose outcomes"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /hardware/bulk-update [post]
func (h *HardwareHandler) BulkUpdate(c *fiber.Ctx) error {
	var body bulkUpdateRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}
	if body.BotID == "" || len(body.Updates) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "botId and updates are required")
	}

	reports := make([]services.ReportInput, 0, len(body.Updates))
	for _, u := range body.Updates {
		reports = append(reports, u.toInput())
	}

	results, applied, err := services.BulkReportStatus(h.DB, body.BotID, reports)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"results": results,
		"applied": applied,
		"total":   len(results),
	})
}

// Register handles POST /api/hardware/register
// @Summary Bind a dispenser to a user account
// @Tags Hardware
// @Accept json
// @Produce json
// @Param body body registerDeviceRequest true "Binding"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /hardware/register [post]
func (h *HardwareHandler) Register(c *fiber.Ctx) error {
	var body registerDeviceRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}
	if body.BotID == "" || body.UserID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "botId and userId are required")
	}

	binding, err := services.RegisterDevice(h.DB, body.BotID, body.UserID)
	if err != nil {
		return serviceError(c, err)
	}

	h.Logger.Info("device registered",
		zap.String("botId", binding.BotID),
		zap.String("userId", binding.UserID))
	return utils.SuccessResponse(c, fiber.StatusOK, binding)
}

// Health handles GET /api/hardware/health
// @Summary Service health for dispensers and container healthchecks
// @Tags Hardware
// @Produce json
// @Param botId query string false "Also verify this bot id is registered"
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /hardware/health [get]
func (h *HardwareHandler) Health(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Cfg, h.DB, h.Logger)

	if botID := c.Query("botId"); botID != "" && result.Status == "healthy" {
		if _, err := services.ResolveDevice(h.DB, botID); err != nil {
			result.Details["device"] = "not registered"
		} else {
			result.Details["device"] = "registered"
		}
	}

	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
