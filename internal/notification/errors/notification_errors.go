package notificationerrors

import (
	"go-conge/internal/shared/apperror"
	"net/http"
)

var (
	ErrInvalidNotificationID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid notification ID",
		http.StatusBadRequest,
	)

	ErrInvalidUserID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid user ID",
		http.StatusBadRequest,
	)

	ErrNotificationNotFound = apperror.New(
		apperror.CodeNotFound,
		"Notification not found",
		http.StatusNotFound,
	)

	ErrInvalidEvent = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid leave status event",
		http.StatusBadRequest,
	)
)
