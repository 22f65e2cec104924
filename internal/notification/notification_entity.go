package notification

import (
	"time"

	"go-conge/internal/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const TypeLeaveStatusChanged = events.LeaveStatusChangedEventType

const (
	MessageAccepted = "Votre demande de congé a été acceptée."
	MessageRejected = "Votre demande de congé a été refusée."
)

// Data is stored as JSON so the inbox can render without joining leave_requests.
type Data struct {
	Message        string `json:"message"`
	LeaveRequestID string `json:"request_id"`
	UserID         string `json:"user_id"`
	Status         string `json:"status"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	DayCount       int    `json:"day_count"`
	Comment        string `json:"comment,omitempty"`
}

type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_notifications_user_created"`
	Type      string     `gorm:"type:varchar(50);not null"`
	Data      Data       `gorm:"serializer:json;type:jsonb;not null"`
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"index:idx_notifications_user_created,sort:desc"`
	UpdatedAt time.Time
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

func (n Notification) IsRead() bool {
	return n.ReadAt != nil
}
