package types

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// AppError is the domain error carried from services to the HTTP boundary.
// Status is the HTTP status the boundary should answer with.
type AppError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAppError builds an AppError with a formatted message.
func NewAppError(status int, code, format string, args ...interface{}) *AppError {
	return &AppError{Status: status, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Domain error taxonomy. Ownership failures are reported as NOT_FOUND so a
// caller cannot distinguish another user's resource from a missing one.
var (
	ErrNotFound            = &AppError{Status: fiber.StatusNotFound, Code: "NOT_FOUND", Message: "resource not found"}
	ErrAuth                = &AppError{Status: fiber.StatusUnauthorized, Code: "AUTH", Message: "invalid credentials"}
	ErrValidation          = &AppError{Status: fiber.StatusBadRequest, Code: "VALIDATION", Message: "invalid input"}
	ErrSlotConflict        = &AppError{Status: fiber.StatusBadRequest, Code: "SLOT_CONFLICT", Message: "hardware slot already in use"}
	ErrDeviceNotRegistered = &AppError{Status: fiber.StatusNotFound, Code: "DEVICE_NOT_REGISTERED", Message: "device is not registered"}
	ErrStateConflict       = &AppError{Status: fiber.StatusConflict, Code: "STATE_CONFLICT", Message: "dose already resolved with a different status"}
)

// NotFound returns a NOT_FOUND error naming the missing resource.
func NotFound(resource string) *AppError {
	return NewAppError(fiber.StatusNotFound, "NOT_FOUND", "%s not found", resource)
}

// Validation returns a VALIDATION error with a formatted message.
func Validation(format string, args ...interface{}) *AppError {
	return NewAppError(fiber.StatusBadRequest, "VALIDATION", format, args...)
}

// SlotConflict names the colliding slot and its occupant.
func SlotConflict(slot, occupant string) *AppError {
	return NewAppError(fiber.StatusBadRequest, "SLOT_CONFLICT", "slot %s is already in use by %s", slot, occupant)
}

// AsAppError unwraps err into an *AppError if one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
