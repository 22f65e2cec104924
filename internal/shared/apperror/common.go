package apperror

import (
	"fmt"
	"net/http"
)

var (
	ErrNotFound = New(
		CodeNotFound,
		"Resource not found",
		http.StatusNotFound,
	)

	ErrForbidden = New(
		CodeForbidden,
		"You do not have permission to access this resource",
		http.StatusForbidden,
	)

	ErrInternal = New(
		CodeInternalError,
		"An unexpected error occurred",
		http.StatusInternalServerError,
	)

	ErrUnauthorized = New(
		CodeUnauthorized,
		"Authentication is required",
		http.StatusUnauthorized,
	)

	ErrInvalidInput = New(
		CodeInvalidInput,
		"The provided input is invalid",
		http.StatusBadRequest,
	)
)

type FieldDetails struct {
	Field string `json:"field"`
}

func RequiredField(field string) *AppError {
	return New(
		CodeMissingField,
		fmt.Sprintf("%s is required", field),
		http.StatusBadRequest,
	).WithDetails(FieldDetails{Field: field})
}

func InvalidField(field string) *AppError {
	return New(
		CodeInvalidInput,
		fmt.Sprintf("%s is invalid", field),
		http.StatusBadRequest,
	).WithDetails(FieldDetails{Field: field})
}

// Storage wraps a persistence failure. The original error is kept for logs only.
func Storage(err error) *AppError {
	return Wrap(err, CodeStorageError, "Storage error", http.StatusInternalServerError)
}
