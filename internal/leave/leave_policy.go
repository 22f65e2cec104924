package leave

import (
	"strings"
	"time"

	leaveerrors "go-conge/internal/leave/errors"
)

// TypeRule holds the per-type constraints checked when a request is filed.
type TypeRule struct {
	// MaxDays caps the inclusive day count; zero means uncapped.
	MaxDays int
	// WindowMonths bounds EndDate to StartDate plus this many months; zero means unbounded.
	WindowMonths    int
	RequiresComment bool
}

var typeRules = map[string]TypeRule{
	TypeMarriage:    {MaxDays: 4},
	TypeBirth:       {WindowMonths: 1},
	TypeBereavement: {MaxDays: 3},
	TypeUnpaid:      {},
	TypeRecovery:    {RequiresComment: true},
}

func RuleFor(leaveType string) (TypeRule, bool) {
	rule, ok := typeRules[leaveType]
	return rule, ok
}

func IsValidLeaveType(leaveType string) bool {
	_, ok := typeRules[leaveType]
	return ok
}

// ValidateTypeRules checks a request against the constraints of its leave type.
// Quota is not checked here.
func ValidateTypeRules(leaveType string, start, end time.Time, dayCount int, comment string) error {
	rule, ok := RuleFor(leaveType)
	if !ok {
		return leaveerrors.ErrInvalidLeaveType
	}

	if rule.MaxDays > 0 && dayCount > rule.MaxDays {
		return leaveerrors.TypeRuleViolation(leaveType, "maximum duration exceeded", rule.MaxDays)
	}

	if rule.WindowMonths > 0 {
		// AddDate normalizes overflow, so Jan 31 + 1 month lands on Mar 3 (or Mar 2 in leap years).
		limit := dateOnly(start).AddDate(0, rule.WindowMonths, 0)
		if dateOnly(end).After(limit) {
			return leaveerrors.TypeRuleViolation(leaveType, "end date must fall within one month of the start date", 0)
		}
	}

	if rule.RequiresComment && strings.TrimSpace(comment) == "" {
		return leaveerrors.MissingField("comment")
	}

	return nil
}
