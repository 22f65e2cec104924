package leave_test

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go-conge/internal/domain"
	"go-conge/internal/events"
	"go-conge/internal/leave"
	leaveerrors "go-conge/internal/leave/errors"
	"go-conge/internal/rbac"
	"go-conge/internal/shared/apperror"
	"go-conge/internal/user"
	usererrors "go-conge/internal/user/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// memoryLeaveRepository keeps committed rows in a map and hands out copies,
// so a request is only changed in the store through Create/Update/Delete.
type memoryLeaveRepository struct {
	mu       sync.Mutex
	items    map[uuid.UUID]leave.LeaveRequest
	seq      int
	locks    []string
	updateFn func(ctx context.Context, l *leave.LeaveRequest) error
}

func newMemoryLeaveRepository() *memoryLeaveRepository {
	return &memoryLeaveRepository{items: map[uuid.UUID]leave.LeaveRequest{}}
}

func (r *memoryLeaveRepository) WithTx(tx *sql.Tx) leave.Repository { return r }

func (r *memoryLeaveRepository) Create(ctx context.Context, l *leave.LeaveRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	l.CreatedAt = time.Unix(int64(r.seq), 0)
	r.items[l.ID] = *l
	return nil
}

func (r *memoryLeaveRepository) FindByID(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	l, ok := r.items[uid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &l, nil
}

func (r *memoryLeaveRepository) list(match func(leave.LeaveRequest) bool) []leave.LeaveRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []leave.LeaveRequest{}
	for _, l := range r.items {
		if match(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryLeaveRepository) FindAll(ctx context.Context, year *int) ([]leave.LeaveRequest, error) {
	return r.list(func(l leave.LeaveRequest) bool { return year == nil || l.Year == *year }), nil
}

func (r *memoryLeaveRepository) FindAllByUser(ctx context.Context, userID string, year *int) ([]leave.LeaveRequest, error) {
	return r.list(func(l leave.LeaveRequest) bool {
		return l.UserID.String() == userID && (year == nil || l.Year == *year)
	}), nil
}

func (r *memoryLeaveRepository) Update(ctx context.Context, l *leave.LeaveRequest) error {
	if r.updateFn != nil {
		if err := r.updateFn(ctx, l); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[l.ID] = *l
	return nil
}

func (r *memoryLeaveRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, uuid.MustParse(id))
	return nil
}

func (r *memoryLeaveRepository) SumAcceptedDays(ctx context.Context, userID string, year *int) (int, error) {
	total := 0
	for _, l := range r.list(func(l leave.LeaveRequest) bool {
		return l.UserID.String() == userID && l.Status == leave.StatusAccepted && (year == nil || l.Year == *year)
	}) {
		total += l.DayCount
	}
	return total, nil
}

func (r *memoryLeaveRepository) LockUserYear(ctx context.Context, userID string, year int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks = append(r.locks, userID)
	return nil
}

func (r *memoryLeaveRepository) seed(l leave.LeaveRequest) leave.LeaveRequest {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Year == 0 {
		l.Year = 2025
	}
	_ = r.Create(context.Background(), &l)
	return l
}

type fakeUserDirectory struct {
	users map[string]user.UserResponse
}

func (f *fakeUserDirectory) GetByID(ctx context.Context, id string) (user.UserResponse, error) {
	u, ok := f.users[id]
	if !ok {
		return user.UserResponse{}, usererrors.ErrUserNotFound
	}
	return u, nil
}

type fakeAuthorizer struct {
	allowed bool
	err     error
}

func (f fakeAuthorizer) Enforce(req domain.EnforceRequest) (bool, error) {
	return f.allowed, f.err
}

type fakeNotifier struct {
	events []events.LeaveStatusChangedEvent
	err    error
}

func (f *fakeNotifier) Notify(ctx context.Context, event *events.LeaveStatusChangedEvent) error {
	f.events = append(f.events, *event)
	return f.err
}

type leaveServiceDeps struct {
	db       *sql.DB
	sqlMock  sqlmock.Sqlmock
	service  leave.Service
	users    *fakeUserDirectory
	authz    leave.Authorizer
	repo     *memoryLeaveRepository
	notifier *fakeNotifier
	adminID  string
	userID   string
	otherID  string
}

func setupLeaveServiceTest(t *testing.T) *leaveServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adminID, userID, otherID := uuid.NewString(), uuid.NewString(), uuid.NewString()
	users := &fakeUserDirectory{users: map[string]user.UserResponse{
		adminID: {ID: adminID, Name: "Admin", Role: user.RoleAdmin},
		userID:  {ID: userID, Name: "Salma", Role: user.RoleUser},
		otherID: {ID: otherID, Name: "Yanis", Role: user.RoleUser},
	}}

	authz, err := rbac.NewDefaultService()
	assert.NoError(t, err)

	repo := newMemoryLeaveRepository()
	notifier := &fakeNotifier{}
	svc := leave.NewService(db, repo, users, authz, notifier, nil, leave.Config{
		AnnualCap: 18,
		Clock:     leave.ClockFunc(func() time.Time { return date("2025-06-01") }),
	})

	return &leaveServiceDeps{
		db:       db,
		sqlMock:  sqlMock,
		service:  svc,
		users:    users,
		authz:    authz,
		repo:     repo,
		notifier: notifier,
		adminID:  adminID,
		userID:   userID,
		otherID:  otherID,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func strPtr(s string) *string { return &s }

func remaining(t *testing.T, deps *leaveServiceDeps, userID string) int {
	t.Helper()
	n, err := deps.service.GetRemainingDays(context.Background(), userID, 2025)
	assert.NoError(t, err)
	return n
}

func TestLeaveService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success defaults", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Create(ctx, deps.userID, leave.CreateLeaveRequest{
			StartDate: "2025-06-02",
			EndDate:   "2025-06-05",
			LeaveType: leave.TypeMarriage,
		})

		assert.NoError(t, err)
		assert.Equal(t, deps.userID, resp.UserID)
		assert.Equal(t, leave.StatusPending, resp.Status)
		assert.Equal(t, 4, resp.DayCount)
		assert.Equal(t, 2025, resp.Year)
		assert.Equal(t, "2025-06-01", resp.RequestDate)
		assert.Nil(t, resp.ValidatedBy)
		assert.Empty(t, deps.repo.locks)
		assert.Empty(t, deps.notifier.events)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("year comes from the clock, not the start date", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Create(ctx, deps.userID, leave.CreateLeaveRequest{
			RequestDate: "2025-05-30",
			StartDate:   "2026-01-05",
			EndDate:     "2026-01-06",
			LeaveType:   leave.TypeUnpaid,
		})

		assert.NoError(t, err)
		assert.Equal(t, 2025, resp.Year)
		assert.Equal(t, "2025-05-30", resp.RequestDate)
	})

	t.Run("type rule violation stops before the transaction", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.Create(ctx, deps.userID, leave.CreateLeaveRequest{
			StartDate: "2025-06-02",
			EndDate:   "2025-06-06",
			LeaveType: leave.TypeMarriage,
		})

		assert.True(t, apperror.IsCode(err, apperror.CodeTypeRuleViolation))
		assert.Empty(t, deps.repo.items)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("invalid range", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.Create(ctx, deps.userID, leave.CreateLeaveRequest{
			StartDate: "2025-06-06",
			EndDate:   "2025-06-02",
			LeaveType: leave.TypeUnpaid,
		})

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidRange)
	})

	t.Run("bad date format", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.Create(ctx, deps.userID, leave.CreateLeaveRequest{
			StartDate: "02/06/2025",
			EndDate:   "2025-06-02",
			LeaveType: leave.TypeUnpaid,
		})

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidDateFormat)
	})

	t.Run("user cannot file for someone else", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.Create(ctx, deps.userID, leave.CreateLeaveRequest{
			UserID:    deps.otherID,
			StartDate: "2025-06-02",
			EndDate:   "2025-06-02",
			LeaveType: leave.TypeUnpaid,
		})

		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
	})

	t.Run("user cannot file a decided request", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.Create(ctx, deps.userID, leave.CreateLeaveRequest{
			StartDate: "2025-06-02",
			EndDate:   "2025-06-02",
			LeaveType: leave.TypeUnpaid,
			Status:    leave.StatusAccepted,
		})

		assert.ErrorIs(t, err, leaveerrors.ErrStatusChangeForbidden)
	})

	t.Run("admin files accepted request for a user without notifying", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Create(ctx, deps.adminID, leave.CreateLeaveRequest{
			UserID:    deps.userID,
			StartDate: "2025-06-02",
			EndDate:   "2025-06-04",
			LeaveType: leave.TypeBereavement,
			Status:    leave.StatusAccepted,
		})

		assert.NoError(t, err)
		assert.Equal(t, deps.userID, resp.UserID)
		assert.Equal(t, leave.StatusAccepted, resp.Status)
		if assert.NotNil(t, resp.ValidatedBy) {
			assert.Equal(t, deps.adminID, *resp.ValidatedBy)
		}
		assert.Equal(t, []string{deps.userID}, deps.repo.locks)
		assert.Empty(t, deps.notifier.events)
		assert.Equal(t, 15, remaining(t, deps, deps.userID))
	})

	t.Run("admin accepted request still honours the quota", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusAccepted, DayCount: 16})
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Create(ctx, deps.adminID, leave.CreateLeaveRequest{
			UserID:    deps.userID,
			StartDate: "2025-06-02",
			EndDate:   "2025-06-04",
			LeaveType: leave.TypeUnpaid,
			Status:    leave.StatusAccepted,
		})

		assert.True(t, apperror.IsCode(err, apperror.CodeQuotaExceeded))
		assert.Len(t, deps.repo.items, 1)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("unknown target user", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.Create(ctx, deps.adminID, leave.CreateLeaveRequest{
			UserID:    uuid.NewString(),
			StartDate: "2025-06-02",
			EndDate:   "2025-06-02",
			LeaveType: leave.TypeUnpaid,
		})

		assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
	})
}

func TestLeaveService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("marriage scenario: accept, balance drops, one notification", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, true)
		created, err := deps.service.Create(ctx, deps.userID, leave.CreateLeaveRequest{
			StartDate: "2025-06-02",
			EndDate:   "2025-06-05",
			LeaveType: leave.TypeMarriage,
		})
		assert.NoError(t, err)
		assert.Equal(t, 18, remaining(t, deps, deps.userID))

		expectTx(t, deps.sqlMock, true)
		resp, err := deps.service.Update(ctx, deps.adminID, created.ID, leave.UpdateLeaveRequest{
			Status: strPtr(leave.StatusAccepted),
		})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusAccepted, resp.Status)
		assert.Equal(t, 14, remaining(t, deps, deps.userID))
		if assert.Len(t, deps.notifier.events, 1) {
			event := deps.notifier.events[0]
			assert.Equal(t, leave.StatusAccepted, event.NewStatus)
			assert.Equal(t, created.ID, event.LeaveRequestID)
			assert.Equal(t, deps.userID, event.UserID)
			assert.Equal(t, 4, event.DayCount)
		}
		assert.Equal(t, []string{deps.userID}, deps.repo.locks)

		expectTx(t, deps.sqlMock, true)
		_, err = deps.service.Update(ctx, deps.adminID, created.ID, leave.UpdateLeaveRequest{
			Status: strPtr(leave.StatusAccepted),
		})
		assert.NoError(t, err)
		assert.Len(t, deps.notifier.events, 1, "no event when status is unchanged")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("accepted to rejected restores the days", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		l := deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusAccepted, DayCount: 3, LeaveType: leave.TypeUnpaid, StartDate: date("2025-06-02"), EndDate: date("2025-06-04")})
		assert.Equal(t, 15, remaining(t, deps, deps.userID))
		expectTx(t, deps.sqlMock, true)

		_, err := deps.service.Update(ctx, deps.adminID, l.ID.String(), leave.UpdateLeaveRequest{
			Status: strPtr(leave.StatusRejected),
		})

		assert.NoError(t, err)
		assert.Equal(t, 18, remaining(t, deps, deps.userID))
		if assert.Len(t, deps.notifier.events, 1) {
			assert.Equal(t, leave.StatusRejected, deps.notifier.events[0].NewStatus)
		}
		assert.Empty(t, deps.repo.locks)
	})

	t.Run("quota exceeded leaves the request untouched", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		owner := uuid.MustParse(deps.userID)
		deps.repo.seed(leave.LeaveRequest{UserID: owner, Status: leave.StatusAccepted, DayCount: 15})
		l := deps.repo.seed(leave.LeaveRequest{UserID: owner, Status: leave.StatusPending, DayCount: 4, LeaveType: leave.TypeUnpaid, StartDate: date("2025-06-02"), EndDate: date("2025-06-05")})
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Update(ctx, deps.adminID, l.ID.String(), leave.UpdateLeaveRequest{
			Status: strPtr(leave.StatusAccepted),
		})

		var appErr *apperror.AppError
		if assert.True(t, errors.As(err, &appErr)) {
			assert.Equal(t, apperror.CodeQuotaExceeded, appErr.Code)
			assert.Equal(t, leaveerrors.QuotaDetails{Requested: 19, Available: 18}, appErr.Details)
		}
		stored, _ := deps.repo.FindByID(ctx, l.ID.String())
		assert.Equal(t, leave.StatusPending, stored.Status)
		assert.Empty(t, deps.notifier.events)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("three days on fifteen fills the cap", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		owner := uuid.MustParse(deps.userID)
		deps.repo.seed(leave.LeaveRequest{UserID: owner, Status: leave.StatusAccepted, DayCount: 15})
		l := deps.repo.seed(leave.LeaveRequest{UserID: owner, Status: leave.StatusPending, DayCount: 3, LeaveType: leave.TypeUnpaid, StartDate: date("2025-06-02"), EndDate: date("2025-06-04")})
		expectTx(t, deps.sqlMock, true)

		_, err := deps.service.Update(ctx, deps.adminID, l.ID.String(), leave.UpdateLeaveRequest{
			Status: strPtr(leave.StatusAccepted),
		})

		assert.NoError(t, err)
		assert.Equal(t, 0, remaining(t, deps, deps.userID))
	})

	t.Run("pending to rejected ignores the balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		owner := uuid.MustParse(deps.userID)
		deps.repo.seed(leave.LeaveRequest{UserID: owner, Status: leave.StatusAccepted, DayCount: 25})
		l := deps.repo.seed(leave.LeaveRequest{UserID: owner, Status: leave.StatusPending, DayCount: 4, LeaveType: leave.TypeUnpaid, StartDate: date("2025-06-02"), EndDate: date("2025-06-05")})
		expectTx(t, deps.sqlMock, true)

		_, err := deps.service.Update(ctx, deps.adminID, l.ID.String(), leave.UpdateLeaveRequest{
			Status: strPtr(leave.StatusRejected),
		})

		assert.NoError(t, err)
	})

	t.Run("owner cannot change status", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		l := deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending, DayCount: 1})
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Update(ctx, deps.userID, l.ID.String(), leave.UpdateLeaveRequest{
			Status: strPtr(leave.StatusAccepted),
		})

		assert.ErrorIs(t, err, leaveerrors.ErrStatusChangeForbidden)
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})

	t.Run("other user cannot edit", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		l := deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending, DayCount: 1})
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Update(ctx, deps.otherID, l.ID.String(), leave.UpdateLeaveRequest{
			Comment: strPtr("mine now"),
		})

		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
	})

	t.Run("date edit recomputes day count and keeps year", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		l := deps.repo.seed(leave.LeaveRequest{
			UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending, Year: 2024,
			LeaveType: leave.TypeMarriage, StartDate: date("2025-06-02"), EndDate: date("2025-06-03"), DayCount: 2,
		})
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Update(ctx, deps.userID, l.ID.String(), leave.UpdateLeaveRequest{
			EndDate: strPtr("2025-06-10"),
		})

		assert.NoError(t, err)
		assert.Equal(t, 9, resp.DayCount, "type caps are not re-checked on update")
		assert.Equal(t, 2024, resp.Year)
		assert.Empty(t, deps.notifier.events)
	})

	t.Run("date edit with inverted range fails", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		l := deps.repo.seed(leave.LeaveRequest{
			UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending,
			LeaveType: leave.TypeUnpaid, StartDate: date("2025-06-02"), EndDate: date("2025-06-03"), DayCount: 2,
		})
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Update(ctx, deps.userID, l.ID.String(), leave.UpdateLeaveRequest{
			StartDate: strPtr("2025-06-09"),
		})

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidRange)
	})

	t.Run("notifier failure does not fail the update", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.notifier.err = errors.New("outbox down")
		l := deps.repo.seed(leave.LeaveRequest{
			UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending,
			LeaveType: leave.TypeUnpaid, StartDate: date("2025-06-02"), EndDate: date("2025-06-03"), DayCount: 2,
		})
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Update(ctx, deps.adminID, l.ID.String(), leave.UpdateLeaveRequest{
			Status: strPtr(leave.StatusAccepted),
		})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusAccepted, resp.Status)
		assert.Len(t, deps.notifier.events, 1)
	})

	t.Run("storage failure rolls back", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.repo.updateFn = func(ctx context.Context, l *leave.LeaveRequest) error {
			return errors.New("connection reset")
		}
		l := deps.repo.seed(leave.LeaveRequest{
			UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending,
			LeaveType: leave.TypeUnpaid, StartDate: date("2025-06-02"), EndDate: date("2025-06-03"), DayCount: 2,
		})
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Update(ctx, deps.adminID, l.ID.String(), leave.UpdateLeaveRequest{
			Status: strPtr(leave.StatusAccepted),
		})

		assert.True(t, apperror.IsCode(err, apperror.CodeStorageError))
		assert.Empty(t, deps.notifier.events)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Update(ctx, deps.adminID, uuid.NewString(), leave.UpdateLeaveRequest{})

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.Update(ctx, deps.adminID, "42", leave.UpdateLeaveRequest{})

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidLeaveID)
	})
}

func TestLeaveService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting an accepted request restores its days", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		l := deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusAccepted, DayCount: 5})
		assert.Equal(t, 13, remaining(t, deps, deps.userID))
		expectTx(t, deps.sqlMock, true)

		err := deps.service.Delete(ctx, deps.userID, l.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, 18, remaining(t, deps, deps.userID))
		assert.Empty(t, deps.notifier.events)
	})

	t.Run("admin may delete any request", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		l := deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending, DayCount: 1})
		expectTx(t, deps.sqlMock, true)

		assert.NoError(t, deps.service.Delete(ctx, deps.adminID, l.ID.String()))
		assert.Empty(t, deps.repo.items)
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		l := deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending, DayCount: 1})
		expectTx(t, deps.sqlMock, false)

		err := deps.service.Delete(ctx, deps.otherID, l.ID.String())

		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
		assert.Len(t, deps.repo.items, 1)
	})
}

func TestLeaveService_Listing(t *testing.T) {
	ctx := context.Background()

	t.Run("admin sees everyone with current-year remaining days", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusAccepted, DayCount: 4})
		deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.otherID), Status: leave.StatusPending, DayCount: 2})

		resp, err := deps.service.GetAll(ctx, deps.adminID, nil)

		assert.NoError(t, err)
		assert.Len(t, resp, 2)
		got := map[string]int{}
		for _, r := range resp {
			if assert.NotNil(t, r.RemainingDays) {
				got[r.UserID] = *r.RemainingDays
			}
		}
		assert.Equal(t, map[string]int{deps.userID: 14, deps.otherID: 18}, got)
	})

	t.Run("user sees own requests only", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending, DayCount: 1})
		deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.otherID), Status: leave.StatusPending, DayCount: 1})

		resp, err := deps.service.GetAll(ctx, deps.userID, nil)

		assert.NoError(t, err)
		if assert.Len(t, resp, 1) {
			assert.Equal(t, deps.userID, resp[0].UserID)
			assert.Nil(t, resp[0].RemainingDays)
		}
	})

	t.Run("get by id is owner or admin", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		l := deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending, DayCount: 1})

		_, err := deps.service.GetByID(ctx, deps.userID, l.ID.String())
		assert.NoError(t, err)
		_, err = deps.service.GetByID(ctx, deps.adminID, l.ID.String())
		assert.NoError(t, err)
		_, err = deps.service.GetByID(ctx, deps.otherID, l.ID.String())
		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
	})

	t.Run("dashboard lists newest first with balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		owner := uuid.MustParse(deps.userID)
		first := deps.repo.seed(leave.LeaveRequest{UserID: owner, Status: leave.StatusAccepted, DayCount: 3})
		second := deps.repo.seed(leave.LeaveRequest{UserID: owner, Status: leave.StatusPending, DayCount: 2})

		resp, err := deps.service.Dashboard(ctx, deps.userID)

		assert.NoError(t, err)
		assert.Equal(t, 2025, resp.Year)
		assert.Equal(t, 18, resp.AnnualCap)
		assert.Equal(t, 15, resp.RemainingDays)
		if assert.Len(t, resp.Requests, 2) {
			assert.Equal(t, second.ID.String(), resp.Requests[0].ID)
			assert.Equal(t, first.ID.String(), resp.Requests[1].ID)
		}
	})

	t.Run("balance defaults to current year", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusAccepted, DayCount: 6})
		deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusAccepted, DayCount: 6, Year: 2024})

		resp, err := deps.service.GetBalance(ctx, deps.userID, "", nil)

		assert.NoError(t, err)
		assert.Equal(t, leave.BalanceResponse{UserID: deps.userID, Year: 2025, AnnualCap: 18, AcceptedDays: 6, RemainingDays: 12}, resp)
	})

	t.Run("remaining days rejects bad input", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.GetRemainingDays(ctx, "nope", 2025)
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidUserID)
		_, err = deps.service.GetRemainingDays(ctx, deps.userID, 0)
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidYear)
	})
}

func TestLeaveService_DirectoryRole(t *testing.T) {
	ctx := context.Background()

	// demoted keeps the admin's id but stores role user in the directory.
	demoted := func(t *testing.T) *leaveServiceDeps {
		deps := setupLeaveServiceTest(t)
		deps.users.users[deps.adminID] = user.UserResponse{ID: deps.adminID, Name: "Admin", Role: user.RoleUser}
		return deps
	}

	t.Run("demoted admin lists own requests only", func(t *testing.T) {
		deps := demoted(t)
		deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending, DayCount: 1})

		resp, err := deps.service.GetAll(ctx, deps.adminID, nil)

		assert.NoError(t, err)
		assert.Empty(t, resp)
	})

	t.Run("demoted admin cannot read another balance", func(t *testing.T) {
		deps := demoted(t)

		_, err := deps.service.GetBalance(ctx, deps.adminID, deps.userID, nil)

		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
	})

	t.Run("demoted admin cannot read another request", func(t *testing.T) {
		deps := demoted(t)
		l := deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusPending, DayCount: 1})

		_, err := deps.service.GetByID(ctx, deps.adminID, l.ID.String())

		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
	})

	t.Run("demoted admin cannot export", func(t *testing.T) {
		deps := demoted(t)

		_, err := deps.service.Export(ctx, deps.adminID, nil)

		assert.ErrorIs(t, err, leaveerrors.ErrForbidden)
	})

	t.Run("demoted admin cannot decide", func(t *testing.T) {
		deps := demoted(t)
		l := deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.adminID), Status: leave.StatusPending, DayCount: 1})
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Update(ctx, deps.adminID, l.ID.String(), leave.UpdateLeaveRequest{
			Status: strPtr(leave.StatusAccepted),
		})

		assert.ErrorIs(t, err, leaveerrors.ErrStatusChangeForbidden)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("directory admin reads another balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.repo.seed(leave.LeaveRequest{UserID: uuid.MustParse(deps.userID), Status: leave.StatusAccepted, DayCount: 5})

		resp, err := deps.service.GetBalance(ctx, deps.adminID, deps.userID, nil)

		assert.NoError(t, err)
		assert.Equal(t, deps.userID, resp.UserID)
		assert.Equal(t, 13, resp.RemainingDays)
	})

	t.Run("user reads own balance by id", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		resp, err := deps.service.GetBalance(ctx, deps.userID, deps.userID, nil)

		assert.NoError(t, err)
		assert.Equal(t, 18, resp.RemainingDays)
	})

	t.Run("authorizer failure is returned", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		boom := errors.New("enforcer down")
		svc := leave.NewService(deps.db, deps.repo, deps.users, fakeAuthorizer{err: boom}, deps.notifier, nil, leave.Config{AnnualCap: 18})

		_, err := svc.GetAll(ctx, deps.userID, nil)

		assert.ErrorIs(t, err, boom)
	})
}
