package leave

import (
	"context"
	"time"

	leaveerrors "go-conge/internal/leave/errors"
)

type Validator struct {
	balance                  *BalanceAggregator
	enforceTypeRulesOnUpdate bool
}

func NewValidator(balance *BalanceAggregator, enforceTypeRulesOnUpdate bool) *Validator {
	return &Validator{balance: balance, enforceTypeRulesOnUpdate: enforceTypeRulesOnUpdate}
}

// ValidateCreate returns the day count of a new request once range and type rules pass.
func (v *Validator) ValidateCreate(leaveType string, start, end time.Time, comment string) (int, error) {
	dayCount, err := CountDays(start, end)
	if err != nil {
		return 0, err
	}
	if err := ValidateTypeRules(leaveType, start, end, dayCount, comment); err != nil {
		return 0, err
	}
	return dayCount, nil
}

// ValidateUpdate recomputes the day count of an edited request. Type rules only
// apply when enforceTypeRulesOnUpdate is set; the leave type itself must stay known.
func (v *Validator) ValidateUpdate(leaveType string, start, end time.Time, comment string) (int, error) {
	dayCount, err := CountDays(start, end)
	if err != nil {
		return 0, err
	}
	if !IsValidLeaveType(leaveType) {
		return 0, leaveerrors.ErrInvalidLeaveType
	}
	if v.enforceTypeRulesOnUpdate {
		if err := ValidateTypeRules(leaveType, start, end, dayCount, comment); err != nil {
			return 0, err
		}
	}
	return dayCount, nil
}

// ValidateTransition gates a status change. Only entering accepted from another
// status is checked against the annual cap; l.DayCount must already be current.
func (v *Validator) ValidateTransition(ctx context.Context, l *LeaveRequest, proposed string) error {
	if !IsValidStatus(proposed) {
		return leaveerrors.ErrInvalidStatus
	}
	if proposed != StatusAccepted || l.Status == StatusAccepted {
		return nil
	}

	total, err := v.balance.TotalAcceptedDays(ctx, l.UserID.String(), &l.Year)
	if err != nil {
		return err
	}
	if requested := total + l.DayCount; requested > v.balance.AnnualCap() {
		return leaveerrors.QuotaExceeded(requested, v.balance.AnnualCap())
	}
	return nil
}
