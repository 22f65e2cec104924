package leave

import "time"

// CreateLeaveRequest omits UserID to file for the caller. Status other than
// pending is reserved to admins.
type CreateLeaveRequest struct {
	UserID      string `json:"user_id" binding:"omitempty,uuid"`
	RequestDate string `json:"request_date"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	LeaveType   string `json:"leave_type" binding:"required,oneof=marriage birth bereavement unpaid recovery"`
	Comment     string `json:"comment"`
	Status      string `json:"status" binding:"omitempty,oneof=pending accepted rejected"`
}

// UpdateLeaveRequest is a partial update; nil fields keep their stored value.
type UpdateLeaveRequest struct {
	RequestDate *string `json:"request_date"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	LeaveType   *string `json:"leave_type" binding:"omitempty,oneof=marriage birth bereavement unpaid recovery"`
	Comment     *string `json:"comment"`
	Status      *string `json:"status" binding:"omitempty,oneof=pending accepted rejected"`
}

type LeaveResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name,omitempty"`
	UserEmail     string    `json:"user_email,omitempty"`
	RequestDate   string    `json:"request_date"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	DayCount      int       `json:"day_count"`
	Year          int       `json:"year"`
	LeaveType     string    `json:"leave_type"`
	Status        string    `json:"status"`
	Comment       string    `json:"comment,omitempty"`
	ValidatedBy   *string   `json:"validated_by,omitempty"`
	RemainingDays *int      `json:"remaining_days,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type BalanceResponse struct {
	UserID        string `json:"user_id"`
	Year          int    `json:"year"`
	AnnualCap     int    `json:"annual_cap"`
	AcceptedDays  int    `json:"accepted_days"`
	RemainingDays int    `json:"remaining_days"`
}

type DashboardResponse struct {
	Year          int             `json:"year"`
	AnnualCap     int             `json:"annual_cap"`
	RemainingDays int             `json:"remaining_days"`
	Requests      []LeaveResponse `json:"requests"`
}

func mapToResponse(l LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:          l.ID.String(),
		UserID:      l.UserID.String(),
		RequestDate: l.RequestDate.Format(dateLayout),
		StartDate:   l.StartDate.Format(dateLayout),
		EndDate:     l.EndDate.Format(dateLayout),
		DayCount:    l.DayCount,
		Year:        l.Year,
		LeaveType:   l.LeaveType,
		Status:      l.Status,
		Comment:     l.Comment,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if l.User != nil {
		resp.UserName = l.User.Name
		resp.UserEmail = l.User.Email
	}
	if l.ValidatedBy != nil {
		v := l.ValidatedBy.String()
		resp.ValidatedBy = &v
	}
	return resp
}

func mapToListResponse(leaves []LeaveRequest) []LeaveResponse {
	out := make([]LeaveResponse, len(leaves))
	for i, l := range leaves {
		out[i] = mapToResponse(l)
	}
	return out
}
