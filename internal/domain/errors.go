package domain

import (
	"errors"
	"fmt"
)

// Code - стабильный машиночитаемый код ошибки.
type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeAuthentication Code = "AUTHENTICATION_REQUIRED"
	CodePermission     Code = "PERMISSION_DENIED"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeInvalidNesting Code = "INVALID_NESTING"
)

// Error - ошибка предметной области с кодом.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Is сравнивает ошибки по коду, чтобы работал errors.Is(err, domain.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrValidation     = &Error{Code: CodeValidation, Message: "invalid input"}
	ErrAuthentication = &Error{Code: CodeAuthentication, Message: "authentication required"}
	ErrPermission     = &Error{Code: CodePermission, Message: "permission denied"}
	ErrNotFound       = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict       = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInvalidNesting = &Error{Code: CodeInvalidNesting, Message: "replies cannot be nested"}
)

func Validationf(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func Permissionf(format string, args ...any) error {
	return &Error{Code: CodePermission, Message: fmt.Sprintf(format, args...)}
}

// CodeOf возвращает код ошибки или пустую строку для чужих ошибок.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
