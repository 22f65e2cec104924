package leaveerrors

import (
	"fmt"
	"net/http"

	"go-conge/internal/shared/apperror"
)

var (
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidUserID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid user id",
		http.StatusBadRequest,
	)
	ErrInvalidLeaveID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave request id",
		http.StatusBadRequest,
	)
	ErrInvalidYear = apperror.New(
		apperror.CodeInvalidInput,
		"invalid year",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidRange = apperror.New(
		apperror.CodeInvalidRange,
		"end_date must be on or after start_date",
		http.StatusBadRequest,
	)
	ErrInvalidLeaveType = apperror.New(
		apperror.CodeInvalidInput,
		"unknown leave type",
		http.StatusBadRequest,
	)
	ErrInvalidStatus = apperror.New(
		apperror.CodeInvalidInput,
		"unknown leave status",
		http.StatusBadRequest,
	)
	ErrLeaveNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrUserNotFound = apperror.New(
		apperror.CodeNotFound,
		"user not found",
		http.StatusNotFound,
	)
	ErrForbidden = apperror.New(
		apperror.CodeForbidden,
		"you can only manage your own leave requests",
		http.StatusForbidden,
	)
	ErrStatusChangeForbidden = apperror.New(
		apperror.CodeForbidden,
		"only an administrator can change the status of a leave request",
		http.StatusForbidden,
	)
)

type TypeRuleDetails struct {
	LeaveType string `json:"leave_type"`
	Reason    string `json:"reason"`
	MaxDays   int    `json:"max_days,omitempty"`
}

func TypeRuleViolation(leaveType, reason string, maxDays int) *apperror.AppError {
	return apperror.New(
		apperror.CodeTypeRuleViolation,
		fmt.Sprintf("%s leave: %s", leaveType, reason),
		http.StatusUnprocessableEntity,
	).WithDetails(TypeRuleDetails{LeaveType: leaveType, Reason: reason, MaxDays: maxDays})
}

func MissingField(field string) *apperror.AppError {
	return apperror.RequiredField(field)
}

type QuotaDetails struct {
	Requested int `json:"requested"`
	Available int `json:"available"`
}

// QuotaExceeded reports the would-be accepted total against the annual cap.
func QuotaExceeded(requested, available int) *apperror.AppError {
	return apperror.New(
		apperror.CodeQuotaExceeded,
		fmt.Sprintf("accepting this request would bring the total to %d days, above the limit of %d days", requested, available),
		http.StatusUnprocessableEntity,
	).WithDetails(QuotaDetails{Requested: requested, Available: available})
}

var ErrExportFailed = apperror.New(
	apperror.CodeInternalError,
	"failed to generate export file",
	http.StatusInternalServerError,
)
