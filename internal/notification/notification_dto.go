package notification

import "time"

type NotificationResponse struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Data      Data       `json:"data"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type MarkAllResponse struct {
	Updated int64 `json:"updated"`
}

func mapToResponse(n Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.String(),
		Type:      n.Type,
		Data:      n.Data,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func mapToListResponse(items []Notification) []NotificationResponse {
	out := make([]NotificationResponse, len(items))
	for i, n := range items {
		out[i] = mapToResponse(n)
	}
	return out
}
