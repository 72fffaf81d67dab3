package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrSlotUnavailable         = errors.New("slot unavailable")
	ErrNotFound                = errors.New("not found")
	ErrOrderNotEditable        = errors.New("order items can only change while pending")
	ErrIdempotencyInProgress   = errors.New("a request with this idempotency key is still in progress")
	ErrIdempotencyMismatch     = errors.New("idempotency key was used with a different payload")
	ErrDuplicateOrderNumber    = errors.New("duplicate order number")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned when input is rejected before any persistence.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// Err returns nil when no field errors were collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
