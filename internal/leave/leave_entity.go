package leave

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

const (
	TypeMarriage    = "marriage"
	TypeBirth       = "birth"
	TypeBereavement = "bereavement"
	TypeUnpaid      = "unpaid"
	TypeRecovery    = "recovery"
)

type LeaveRequest struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_user_year_status"`
	RequestDate time.Time `gorm:"type:date;not null"`
	StartDate   time.Time `gorm:"type:date;not null"`
	EndDate     time.Time `gorm:"type:date;not null"`
	DayCount    int       `gorm:"not null"`
	// Year is the calendar year the request was filed in, not the year of StartDate.
	Year        int        `gorm:"not null;index:idx_leave_requests_user_year_status"`
	LeaveType   string     `gorm:"type:varchar(20);not null"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_leave_requests_user_year_status"`
	Comment     string     `gorm:"type:text"`
	ValidatedBy *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	User *Owner `gorm:"foreignKey:UserID;references:ID"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

func (l *LeaveRequest) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Owner is the minimal slice of users joined into listings and exports.
type Owner struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name  string
	Email string
}

func (Owner) TableName() string {
	return "users"
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}
