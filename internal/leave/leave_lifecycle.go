package leave

import (
	"time"

	"go-conge/internal/events"

	"github.com/google/uuid"
)

// ApplyStatus moves l to next and records actorID as validator. It returns an event
// only for an actual change into accepted or rejected. Callers validate first.
func ApplyStatus(l *LeaveRequest, next string, actorID uuid.UUID, now time.Time) *events.LeaveStatusChangedEvent {
	previous := l.Status
	if previous == next {
		return nil
	}

	l.Status = next
	l.ValidatedBy = &actorID

	if next != StatusAccepted && next != StatusRejected {
		return nil
	}

	return &events.LeaveStatusChangedEvent{
		EventID:        uuid.NewString(),
		EventType:      events.LeaveStatusChangedEventType,
		LeaveRequestID: l.ID.String(),
		UserID:         l.UserID.String(),
		PreviousStatus: previous,
		NewStatus:      next,
		LeaveType:      l.LeaveType,
		StartDate:      l.StartDate.Format(dateLayout),
		EndDate:        l.EndDate.Format(dateLayout),
		DayCount:       l.DayCount,
		Comment:        l.Comment,
		ValidatedBy:    actorID.String(),
		OccurredAt:     now.UTC(),
	}
}
