package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
)

// Error is a business-rule failure returned to the transport layer.
// Sentinels are compared by identity, so wrap them with fmt.Errorf("%w: ...").
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var ErrValidation = New(KindValidation, "validation_failed", "validation failed")

// Validation builds a validation error with a descriptive reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first *Error in the chain, or "" for
// infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the machine-readable code of the first *Error in the chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ToFiber converts a service error into a *fiber.Error. Infrastructure
// failures get a generic message so storage details never reach the client.
func ToFiber(err error) error {
	status := HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		return fiber.NewError(status, "internal server error")
	}
	return fiber.NewError(status, err.Error())
}
