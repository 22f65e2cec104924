package leave_test

import (
	"context"
	"errors"
	"testing"

	"go-conge/internal/leave"
	leaveerrors "go-conge/internal/leave/errors"
	"go-conge/internal/shared/apperror"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeBalanceReader struct {
	sumFn func(ctx context.Context, userID string, year *int) (int, error)
	calls int
}

func (f *fakeBalanceReader) SumAcceptedDays(ctx context.Context, userID string, year *int) (int, error) {
	f.calls++
	if f.sumFn != nil {
		return f.sumFn(ctx, userID, year)
	}
	return 0, nil
}

func acceptedTotal(total int) *fakeBalanceReader {
	return &fakeBalanceReader{sumFn: func(ctx context.Context, userID string, year *int) (int, error) {
		return total, nil
	}}
}

func TestBalanceAggregator(t *testing.T) {
	ctx := context.Background()

	t.Run("remaining is cap minus accepted", func(t *testing.T) {
		var gotYear *int
		reader := &fakeBalanceReader{sumFn: func(ctx context.Context, userID string, year *int) (int, error) {
			gotYear = year
			return 4, nil
		}}
		agg := leave.NewBalanceAggregator(reader, 0)

		remaining, err := agg.RemainingDays(ctx, uuid.NewString(), 2025)
		assert.NoError(t, err)
		assert.Equal(t, 14, remaining)
		assert.Equal(t, leave.DefaultAnnualCap, agg.AnnualCap())
		if assert.NotNil(t, gotYear) {
			assert.Equal(t, 2025, *gotYear)
		}
	})

	t.Run("over allocation goes negative", func(t *testing.T) {
		remaining, err := leave.NewBalanceAggregator(acceptedTotal(20), 18).RemainingDays(ctx, uuid.NewString(), 2025)
		assert.NoError(t, err)
		assert.Equal(t, -2, remaining)
	})

	t.Run("configured cap", func(t *testing.T) {
		remaining, err := leave.NewBalanceAggregator(acceptedTotal(5), 25).RemainingDays(ctx, uuid.NewString(), 2025)
		assert.NoError(t, err)
		assert.Equal(t, 20, remaining)
	})
}

func TestValidator_ValidateTransition(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		accepted  int
		current   string
		proposed  string
		dayCount  int
		wantErr   bool
		wantQuota *leaveerrors.QuotaDetails
		wantReads int
	}{
		{name: "fills the cap exactly", accepted: 15, current: leave.StatusPending, proposed: leave.StatusAccepted, dayCount: 3, wantReads: 1},
		{
			name: "one day over the cap", accepted: 15, current: leave.StatusPending, proposed: leave.StatusAccepted, dayCount: 4,
			wantErr: true, wantQuota: &leaveerrors.QuotaDetails{Requested: 19, Available: 18}, wantReads: 1,
		},
		{name: "rejecting never checks quota", accepted: 30, current: leave.StatusPending, proposed: leave.StatusRejected, dayCount: 10},
		{name: "accepted to rejected", accepted: 30, current: leave.StatusAccepted, proposed: leave.StatusRejected, dayCount: 10},
		{name: "accepted stays accepted", accepted: 30, current: leave.StatusAccepted, proposed: leave.StatusAccepted, dayCount: 10},
		{
			name: "rejected to accepted is gated", accepted: 16, current: leave.StatusRejected, proposed: leave.StatusAccepted, dayCount: 3,
			wantErr: true, wantQuota: &leaveerrors.QuotaDetails{Requested: 19, Available: 18}, wantReads: 1,
		},
		{name: "back to pending", accepted: 30, current: leave.StatusRejected, proposed: leave.StatusPending, dayCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := acceptedTotal(tt.accepted)
			v := leave.NewValidator(leave.NewBalanceAggregator(reader, 18), false)
			l := &leave.LeaveRequest{UserID: uuid.New(), Year: 2025, Status: tt.current, DayCount: tt.dayCount}

			err := v.ValidateTransition(ctx, l, tt.proposed)
			assert.Equal(t, tt.wantReads, reader.calls)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.IsCode(err, apperror.CodeQuotaExceeded))
			if diff := cmp.Diff(*tt.wantQuota, details(err)); diff != "" {
				t.Errorf("quota details mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.current, l.Status)
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		v := leave.NewValidator(leave.NewBalanceAggregator(acceptedTotal(0), 18), false)
		err := v.ValidateTransition(ctx, &leave.LeaveRequest{Status: leave.StatusPending}, "archived")
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidStatus)
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		reader := &fakeBalanceReader{sumFn: func(ctx context.Context, userID string, year *int) (int, error) {
			return 0, errors.New("db down")
		}}
		v := leave.NewValidator(leave.NewBalanceAggregator(reader, 18), false)
		err := v.ValidateTransition(ctx, &leave.LeaveRequest{Status: leave.StatusPending, DayCount: 1}, leave.StatusAccepted)
		assert.Error(t, err)
	})
}

func TestValidator_ValidateUpdate(t *testing.T) {
	agg := leave.NewBalanceAggregator(acceptedTotal(0), 18)

	t.Run("type caps skipped by default", func(t *testing.T) {
		v := leave.NewValidator(agg, false)
		dayCount, err := v.ValidateUpdate(leave.TypeMarriage, date("2025-06-02"), date("2025-06-09"), "")
		assert.NoError(t, err)
		assert.Equal(t, 8, dayCount)
	})

	t.Run("type caps enforced when enabled", func(t *testing.T) {
		v := leave.NewValidator(agg, true)
		_, err := v.ValidateUpdate(leave.TypeMarriage, date("2025-06-02"), date("2025-06-09"), "")
		assert.True(t, apperror.IsCode(err, apperror.CodeTypeRuleViolation))
	})

	t.Run("range always checked", func(t *testing.T) {
		v := leave.NewValidator(agg, false)
		_, err := v.ValidateUpdate(leave.TypeUnpaid, date("2025-06-09"), date("2025-06-02"), "")
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidRange)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		v := leave.NewValidator(agg, false)
		_, err := v.ValidateUpdate("sabbatical", date("2025-06-02"), date("2025-06-02"), "")
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidLeaveType)
	})

	t.Run("create runs type rules", func(t *testing.T) {
		v := leave.NewValidator(agg, false)
		_, err := v.ValidateCreate(leave.TypeRecovery, date("2025-06-02"), date("2025-06-02"), "")
		assert.True(t, apperror.IsCode(err, apperror.CodeMissingField))
	})
}

func TestApplyStatus(t *testing.T) {
	actor := uuid.New()
	now := date("2025-06-01")

	tests := []struct {
		name      string
		from, to  string
		wantEvent bool
	}{
		{name: "pending to accepted", from: leave.StatusPending, to: leave.StatusAccepted, wantEvent: true},
		{name: "pending to rejected", from: leave.StatusPending, to: leave.StatusRejected, wantEvent: true},
		{name: "accepted to rejected", from: leave.StatusAccepted, to: leave.StatusRejected, wantEvent: true},
		{name: "rejected to accepted", from: leave.StatusRejected, to: leave.StatusAccepted, wantEvent: true},
		{name: "unchanged", from: leave.StatusAccepted, to: leave.StatusAccepted},
		{name: "back to pending", from: leave.StatusRejected, to: leave.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &leave.LeaveRequest{
				ID: uuid.New(), UserID: uuid.New(), Status: tt.from, DayCount: 4,
				StartDate: date("2025-06-02"), EndDate: date("2025-06-05"), Comment: "c",
			}

			event := leave.ApplyStatus(l, tt.to, actor, now)
			assert.Equal(t, tt.to, l.Status)
			if tt.from == tt.to {
				assert.Nil(t, l.ValidatedBy)
			} else if assert.NotNil(t, l.ValidatedBy) {
				assert.Equal(t, actor, *l.ValidatedBy)
			}
			if !tt.wantEvent {
				assert.Nil(t, event)
				return
			}
			if assert.NotNil(t, event) {
				assert.Equal(t, l.ID.String(), event.LeaveRequestID)
				assert.Equal(t, l.UserID.String(), event.UserID)
				assert.Equal(t, tt.from, event.PreviousStatus)
				assert.Equal(t, tt.to, event.NewStatus)
				assert.Equal(t, 4, event.DayCount)
				assert.Equal(t, "c", event.Comment)
				assert.Equal(t, "2025-06-02", event.StartDate)
				assert.NotEmpty(t, event.EventID)
			}
		})
	}
}
