package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("no free pixels or play points")
	ErrColorLocked         = errors.New("color locked by your plan")
	ErrForbidden           = errors.New("not allowed")
	ErrNotFound            = errors.New("not found")
)

// CooldownError is returned when the user placed a pixel less than one cooldown ago.
type CooldownError struct {
	WaitMs int64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown: wait %dms", e.WaitMs)
}

// ValidationError reports malformed input. It is never worth retrying as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError is a shorthand used by services.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}
