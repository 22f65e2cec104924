package events

import "time"

const (
	LeaveStatusChangedTopic     = "conge.leave.status_changed.v1"
	LeaveStatusChangedEventType = "leave.status_changed"
)

// LeaveStatusChangedEvent is emitted when a request enters accepted or rejected.
// EventID is unique per change and is reused as the notification id downstream.
type LeaveStatusChangedEvent struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	RequestID      string    `json:"request_id,omitempty"`
	LeaveRequestID string    `json:"leave_request_id"`
	UserID         string    `json:"user_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	LeaveType      string    `json:"leave_type"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	DayCount       int       `json:"day_count"`
	Comment        string    `json:"comment,omitempty"`
	ValidatedBy    string    `json:"validated_by"`
	OccurredAt     time.Time `json:"occurred_at"`
}
