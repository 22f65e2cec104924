package leave

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	FindAll(ctx context.Context, year *int) ([]LeaveRequest, error)
	FindAllByUser(ctx context.Context, userID string, year *int) ([]LeaveRequest, error)
	Update(ctx context.Context, l *LeaveRequest) error
	Delete(ctx context.Context, id string) error
	SumAcceptedDays(ctx context.Context, userID string, year *int) (int, error)
	LockUserYear(ctx context.Context, userID string, year int) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx binds the repository to tx so reads and writes share the service transaction.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	if tx == nil {
		return r
	}
	db := r.db.Session(&gorm.Session{
		NewDB:                  true,
		Context:                context.Background(),
		SkipDefaultTransaction: true,
	})
	db.Statement.ConnPool = tx
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).
		Preload("User").
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) FindAll(ctx context.Context, year *int) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	db := r.db.WithContext(ctx).Preload("User")
	if year != nil {
		db = db.Where("year = ?", *year)
	}
	err := db.Order("created_at DESC").Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindAllByUser(ctx context.Context, userID string, year *int) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	db := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID)
	if year != nil {
		db = db.Where("year = ?", *year)
	}
	err := db.Order("created_at DESC").Find(&leaves).Error
	return leaves, err
}

func (r *repository) Update(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(l).Error
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&LeaveRequest{}, "id = ?", id).Error
}

// SumAcceptedDays ignores soft-deleted rows through the default gorm scope.
func (r *repository) SumAcceptedDays(ctx context.Context, userID string, year *int) (int, error) {
	var total int64
	db := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Select("COALESCE(SUM(day_count), 0)").
		Where("user_id = ?", userID).
		Where("status = ?", StatusAccepted)
	if year != nil {
		db = db.Where("year = ?", *year)
	}
	err := db.Scan(&total).Error
	return int(total), err
}

// LockUserYear takes a transaction-scoped advisory lock so acceptance decisions for
// one user and year run one at a time. Other dialects are left to their own locking.
func (r *repository) LockUserYear(ctx context.Context, userID string, year int) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	key := fmt.Sprintf("leave:%s:%d", userID, year)
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error
}
