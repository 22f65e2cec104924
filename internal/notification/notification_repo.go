package notification

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=notification_repo.go -destination=mock/notification_repo_mock.go -package=mock
type Repository interface {
	// Create ignores a row whose id already exists, so redelivered events stay single.
	Create(ctx context.Context, n *Notification) (bool, error)
	FindByIDAndUser(ctx context.Context, id, userID string) (*Notification, error)
	FindAllByUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
	MarkAsRead(ctx context.Context, id, userID string, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, n *Notification) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(n)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) FindByIDAndUser(ctx context.Context, id, userID string) (*Notification, error) {
	var n Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&n).Error
	return &n, err
}

func (r *repository) FindAllByUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	var items []Notification
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		db = db.Where("read_at IS NULL")
	}
	err := db.Order("created_at DESC").Find(&items).Error
	return items, err
}

func (r *repository) MarkAsRead(ctx context.Context, id, userID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Updates(map[string]any{"read_at": at, "updated_at": at}).Error
}

func (r *repository) MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Updates(map[string]any{"read_at": at, "updated_at": at})
	return res.RowsAffected, res.Error
}

// DeleteReadBefore only removes notifications the user has already seen.
func (r *repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&Notification{})
	return res.RowsAffected, res.Error
}
