package notification

import (
	"context"
	"errors"
	"time"

	"go-conge/internal/events"
	notificationerrors "go-conge/internal/notification/errors"
	"go-conge/internal/shared/apperror"
	"go-conge/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=notification_service.go -destination=mock/notification_service_mock.go -package=mock
type Service interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]NotificationResponse, error)
	MarkAsRead(ctx context.Context, userID, id string) (NotificationResponse, error)
	MarkAllAsRead(ctx context.Context, userID string) (MarkAllResponse, error)
	RecordStatusChange(ctx context.Context, event events.LeaveStatusChangedEvent) error
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

type service struct {
	repo   Repository
	now    func() time.Time
	logger *zap.Logger
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("notification.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.service")
	}
	return &service{repo: repo, now: time.Now, logger: l}
}

func (s *service) List(ctx context.Context, userID string, unreadOnly bool) ([]NotificationResponse, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, notificationerrors.ErrInvalidUserID
	}

	items, err := s.repo.FindAllByUser(ctx, userID, unreadOnly)
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("list notifications failed", zap.Error(err))
		return nil, apperror.Storage(err)
	}
	return mapToListResponse(items), nil
}

func (s *service) MarkAsRead(ctx context.Context, userID, id string) (NotificationResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	if _, err := uuid.Parse(id); err != nil {
		return NotificationResponse{}, notificationerrors.ErrInvalidNotificationID
	}

	n, err := s.repo.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return NotificationResponse{}, mapRepositoryError(err)
	}
	if n.IsRead() {
		return mapToResponse(*n), nil
	}

	at := s.now().UTC()
	if err := s.repo.MarkAsRead(ctx, id, userID, at); err != nil {
		log.Error("mark notification read failed", zap.String("notification_id", id), zap.Error(err))
		return NotificationResponse{}, apperror.Storage(err)
	}
	n.ReadAt = &at
	return mapToResponse(*n), nil
}

func (s *service) MarkAllAsRead(ctx context.Context, userID string) (MarkAllResponse, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return MarkAllResponse{}, notificationerrors.ErrInvalidUserID
	}

	updated, err := s.repo.MarkAllAsRead(ctx, userID, s.now().UTC())
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("mark all notifications read failed", zap.Error(err))
		return MarkAllResponse{}, apperror.Storage(err)
	}
	return MarkAllResponse{Updated: updated}, nil
}

// RecordStatusChange stores the inbox entry for event. The event id becomes the
// notification id, so replaying the same event is a no-op.
func (s *service) RecordStatusChange(ctx context.Context, event events.LeaveStatusChangedEvent) error {
	n, err := BuildFromEvent(event)
	if err != nil {
		return err
	}

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		s.logger.Error("record notification failed",
			zap.String("event_id", event.EventID),
			zap.String("leave_request_id", event.LeaveRequestID),
			zap.Error(err),
		)
		return apperror.Storage(err)
	}
	if !created {
		s.logger.Info("notification already recorded, skipping", zap.String("event_id", event.EventID))
		return nil
	}

	s.logger.Info("notification recorded",
		zap.String("notification_id", n.ID.String()),
		zap.String("user_id", event.UserID),
		zap.String("status", event.NewStatus),
	)
	return nil
}

func (s *service) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-olderThan)
	deleted, err := s.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("prune notifications failed", zap.Error(err))
		return 0, apperror.Storage(err)
	}
	s.logger.Info("prune notifications done", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	return deleted, nil
}

// BuildFromEvent maps a status change onto an unread inbox entry.
func BuildFromEvent(event events.LeaveStatusChangedEvent) (*Notification, error) {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return nil, notificationerrors.ErrInvalidEvent
	}

	id := uuid.New()
	if event.EventID != "" {
		if id, err = uuid.Parse(event.EventID); err != nil {
			return nil, notificationerrors.ErrInvalidEvent
		}
	}

	message := MessageRejected
	if event.NewStatus == "accepted" {
		message = MessageAccepted
	}

	return &Notification{
		ID:     id,
		UserID: userID,
		Type:   TypeLeaveStatusChanged,
		Data: Data{
			Message:        message,
			LeaveRequestID: event.LeaveRequestID,
			UserID:         event.UserID,
			Status:         event.NewStatus,
			StartDate:      event.StartDate,
			EndDate:        event.EndDate,
			DayCount:       event.DayCount,
			Comment:        event.Comment,
		},
		CreatedAt: event.OccurredAt,
	}, nil
}

func mapRepositoryError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notificationerrors.ErrNotificationNotFound
	}
	return apperror.Storage(err)
}
