package leave

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go-conge/internal/domain"
	"go-conge/internal/events"
	leaveerrors "go-conge/internal/leave/errors"
	"go-conge/internal/rbac"
	"go-conge/internal/shared/contextutil"
	"go-conge/internal/user"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// UserDirectory resolves actors and request owners.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (user.UserResponse, error)
}

// Authorizer decides what a role may do. The role passed in always comes from
// the UserDirectory, never from the caller's token.
type Authorizer interface {
	Enforce(req domain.EnforceRequest) (bool, error)
}

// Notifier receives status changes after they are committed.
type Notifier interface {
	Notify(ctx context.Context, event *events.LeaveStatusChangedEvent) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, *events.LeaveStatusChangedEvent) error { return nil }

const notifyTimeout = 5 * time.Second

type Config struct {
	AnnualCap                int
	EnforceTypeRulesOnUpdate bool
	BalanceCacheTTL          time.Duration
	Clock                    Clock
}

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, actorID string, req CreateLeaveRequest) (LeaveResponse, error)
	Update(ctx context.Context, actorID, id string, req UpdateLeaveRequest) (LeaveResponse, error)
	Delete(ctx context.Context, actorID, id string) error
	GetRemainingDays(ctx context.Context, userID string, year int) (int, error)
	GetBalance(ctx context.Context, actorID, userID string, year *int) (BalanceResponse, error)
	GetAll(ctx context.Context, actorID string, year *int) ([]LeaveResponse, error)
	GetByID(ctx context.Context, actorID, id string) (LeaveResponse, error)
	Dashboard(ctx context.Context, actorID string) (DashboardResponse, error)
	Export(ctx context.Context, actorID string, year *int) (ExportFile, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	users    UserDirectory
	authz    Authorizer
	notifier Notifier
	rdb      *redis.Client
	sf       *singleflight.Group
	cfg      Config
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	users UserDirectory,
	authz Authorizer,
	notifier Notifier,
	rdb *redis.Client,
	cfg Config,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if cfg.AnnualCap <= 0 {
		cfg.AnnualCap = DefaultAnnualCap
	}
	if cfg.BalanceCacheTTL <= 0 {
		cfg.BalanceCacheTTL = 10 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}

	return &service{
		db:       db,
		repo:     repo,
		users:    users,
		authz:    authz,
		notifier: notifier,
		rdb:      rdb,
		sf:       &singleflight.Group{},
		cfg:      cfg,
		logger:   l,
	}
}

func (s *service) validatorFor(r Repository) *Validator {
	return NewValidator(NewBalanceAggregator(r, s.cfg.AnnualCap), s.cfg.EnforceTypeRulesOnUpdate)
}

// actor loads the acting user so roles come from the directory, not the token.
func (s *service) actor(ctx context.Context, actorID string) (user.UserResponse, uuid.UUID, error) {
	id, err := uuid.Parse(actorID)
	if err != nil {
		return user.UserResponse{}, uuid.Nil, leaveerrors.ErrInvalidActorID
	}
	u, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return user.UserResponse{}, uuid.Nil, err
	}
	return u, id, nil
}

// allowed asks the authorizer whether actor's directory role grants action on resource.
func (s *service) allowed(ctx context.Context, actor user.UserResponse, resource, action string) (bool, error) {
	ok, err := s.authz.Enforce(domain.EnforceRequest{
		Subject:  actor.ID,
		Role:     actor.Role,
		Resource: resource,
		Action:   action,
	})
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("leave authorization failed",
			zap.String("actor_id", actor.ID),
			zap.String("resource", resource),
			zap.String("action", action),
			zap.Error(err),
		)
		return false, err
	}
	return ok, nil
}

// ownerOr lets the owner through and otherwise requires action on leave requests.
func (s *service) ownerOr(ctx context.Context, actor user.UserResponse, actorID, ownerID uuid.UUID, action string) error {
	if actorID == ownerID {
		return nil
	}
	ok, err := s.allowed(ctx, actor, rbac.ResourceLeave, action)
	if err != nil {
		return err
	}
	if !ok {
		return leaveerrors.ErrForbidden
	}
	return nil
}

func (s *service) canValidate(ctx context.Context, actor user.UserResponse) error {
	ok, err := s.allowed(ctx, actor, rbac.ResourceLeave, rbac.ActionValidate)
	if err != nil {
		return err
	}
	if !ok {
		return leaveerrors.ErrStatusChangeForbidden
	}
	return nil
}

func (s *service) Create(ctx context.Context, actorID string, req CreateLeaveRequest) (LeaveResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("create leave requested",
		zap.String("actor_id", actorID),
		zap.String("user_id", req.UserID),
		zap.String("leave_type", req.LeaveType),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	actor, actorUUID, err := s.actor(ctx, actorID)
	if err != nil {
		return LeaveResponse{}, err
	}

	ownerID := actorUUID
	if req.UserID != "" && req.UserID != actorID {
		if ownerID, err = uuid.Parse(req.UserID); err != nil {
			return LeaveResponse{}, leaveerrors.ErrInvalidUserID
		}
		if err := s.ownerOr(ctx, actor, actorUUID, ownerID, rbac.ActionManage); err != nil {
			return LeaveResponse{}, err
		}
		if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
			return LeaveResponse{}, err
		}
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}
	if !IsValidStatus(status) {
		return LeaveResponse{}, leaveerrors.ErrInvalidStatus
	}
	if status != StatusPending {
		if err := s.canValidate(ctx, actor); err != nil {
			return LeaveResponse{}, err
		}
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	today := s.cfg.Clock.Today()
	requestDate := today
	if req.RequestDate != "" {
		if requestDate, err = parseDate(req.RequestDate); err != nil {
			return LeaveResponse{}, err
		}
	}

	dayCount, err := s.validatorFor(s.repo).ValidateCreate(req.LeaveType, startDate, endDate, req.Comment)
	if err != nil {
		log.Warn("create leave validation failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	l := &LeaveRequest{
		ID:          uuid.New(),
		UserID:      ownerID,
		RequestDate: requestDate,
		StartDate:   startDate,
		EndDate:     endDate,
		DayCount:    dayCount,
		Year:        today.Year(),
		LeaveType:   req.LeaveType,
		Status:      StatusPending,
		Comment:     strings.TrimSpace(req.Comment),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("create leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, mapRepositoryError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if status == StatusAccepted {
		if err := qtx.LockUserYear(ctx, ownerID.String(), l.Year); err != nil {
			log.Error("create leave lock balance failed", zap.Error(err))
			return LeaveResponse{}, mapRepositoryError(err)
		}
	}
	if err := s.validatorFor(qtx).ValidateTransition(ctx, l, status); err != nil {
		log.Warn("create leave transition rejected", zap.String("status", status), zap.Error(err))
		return LeaveResponse{}, err
	}
	// Requests filed directly with a decision do not notify the owner.
	_ = ApplyStatus(l, status, actorUUID, time.Now())

	if err := qtx.Create(ctx, l); err != nil {
		log.Error("create leave persist failed", zap.Error(err))
		return LeaveResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("create leave commit failed", zap.Error(err))
		return LeaveResponse{}, mapRepositoryError(err)
	}

	s.invalidateRemainingDays(ctx, l.UserID.String(), l.Year)
	log.Info("create leave success",
		zap.String("leave_id", l.ID.String()),
		zap.String("user_id", l.UserID.String()),
		zap.Int("day_count", l.DayCount),
		zap.String("status", l.Status),
	)

	return mapToResponse(*l), nil
}

func (s *service) Update(ctx context.Context, actorID, id string, req UpdateLeaveRequest) (LeaveResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("update leave requested", zap.String("leave_id", id), zap.String("actor_id", actorID))

	if _, err := uuid.Parse(id); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidLeaveID
	}
	actor, actorUUID, err := s.actor(ctx, actorID)
	if err != nil {
		return LeaveResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("update leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, mapRepositoryError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		return LeaveResponse{}, mapRepositoryError(err)
	}
	if err := s.ownerOr(ctx, actor, actorUUID, l.UserID, rbac.ActionManage); err != nil {
		return LeaveResponse{}, err
	}

	next := l.Status
	if req.Status != nil {
		next = *req.Status
		if !IsValidStatus(next) {
			return LeaveResponse{}, leaveerrors.ErrInvalidStatus
		}
		if next != l.Status {
			if err := s.canValidate(ctx, actor); err != nil {
				return LeaveResponse{}, err
			}
		}
	}

	if next == StatusAccepted && l.Status != StatusAccepted {
		if err := qtx.LockUserYear(ctx, l.UserID.String(), l.Year); err != nil {
			log.Error("update leave lock balance failed", zap.Error(err))
			return LeaveResponse{}, mapRepositoryError(err)
		}
		// Re-read under the lock; a concurrent decision may have committed meanwhile.
		if l, err = qtx.FindByID(ctx, id); err != nil {
			return LeaveResponse{}, mapRepositoryError(err)
		}
	}

	if err := applyFieldChanges(l, req); err != nil {
		return LeaveResponse{}, err
	}

	validator := s.validatorFor(qtx)
	dayCount, err := validator.ValidateUpdate(l.LeaveType, l.StartDate, l.EndDate, l.Comment)
	if err != nil {
		log.Warn("update leave validation failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	l.DayCount = dayCount

	if err := validator.ValidateTransition(ctx, l, next); err != nil {
		log.Warn("update leave transition rejected",
			zap.String("leave_id", id),
			zap.String("from", l.Status),
			zap.String("to", next),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}
	event := ApplyStatus(l, next, actorUUID, time.Now())

	if err := qtx.Update(ctx, l); err != nil {
		log.Error("update leave persist failed", zap.Error(err))
		return LeaveResponse{}, mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("update leave commit failed", zap.Error(err))
		return LeaveResponse{}, mapRepositoryError(err)
	}

	s.invalidateRemainingDays(ctx, l.UserID.String(), l.Year)
	if event != nil {
		s.notify(ctx, event)
	}

	log.Info("update leave success",
		zap.String("leave_id", id),
		zap.String("status", l.Status),
		zap.Int("day_count", l.DayCount),
	)
	return mapToResponse(*l), nil
}

// applyFieldChanges merges the editable fields of req into l. Year never changes.
func applyFieldChanges(l *LeaveRequest, req UpdateLeaveRequest) error {
	if req.RequestDate != nil {
		d, err := parseDate(*req.RequestDate)
		if err != nil {
			return err
		}
		l.RequestDate = d
	}
	if req.StartDate != nil {
		d, err := parseDate(*req.StartDate)
		if err != nil {
			return err
		}
		l.StartDate = d
	}
	if req.EndDate != nil {
		d, err := parseDate(*req.EndDate)
		if err != nil {
			return err
		}
		l.EndDate = d
	}
	if req.LeaveType != nil {
		l.LeaveType = *req.LeaveType
	}
	if req.Comment != nil {
		l.Comment = strings.TrimSpace(*req.Comment)
	}
	return nil
}

// notify hands event to the notifier. Failures never reach the caller: the
// status change is already committed.
func (s *service) notify(ctx context.Context, event *events.LeaveStatusChangedEvent) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(nctx, event); err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("notify leave status change failed",
			zap.String("leave_id", event.LeaveRequestID),
			zap.String("status", event.NewStatus),
			zap.Error(err),
		)
	}
}

func (s *service) Delete(ctx context.Context, actorID, id string) error {
	log := contextutil.GetLogger(ctx, s.logger)

	if _, err := uuid.Parse(id); err != nil {
		return leaveerrors.ErrInvalidLeaveID
	}
	actor, actorUUID, err := s.actor(ctx, actorID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("delete leave begin tx failed", zap.Error(err))
		return mapRepositoryError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		return mapRepositoryError(err)
	}
	if err := s.ownerOr(ctx, actor, actorUUID, l.UserID, rbac.ActionManage); err != nil {
		return err
	}

	if err := qtx.Delete(ctx, id); err != nil {
		log.Error("delete leave persist failed", zap.Error(err))
		return mapRepositoryError(err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("delete leave commit failed", zap.Error(err))
		return mapRepositoryError(err)
	}

	s.invalidateRemainingDays(ctx, l.UserID.String(), l.Year)
	log.Info("delete leave success", zap.String("leave_id", id), zap.String("status", l.Status))
	return nil
}

// GetBalance reads userID's balance, or the actor's own when userID is empty.
// Another user's balance needs balance:read_all.
func (s *service) GetBalance(ctx context.Context, actorID, userID string, year *int) (BalanceResponse, error) {
	if userID == "" {
		userID = actorID
	}
	if userID != actorID {
		actor, _, err := s.actor(ctx, actorID)
		if err != nil {
			return BalanceResponse{}, err
		}
		ok, err := s.allowed(ctx, actor, rbac.ResourceBalance, rbac.ActionReadAll)
		if err != nil {
			return BalanceResponse{}, err
		}
		if !ok {
			return BalanceResponse{}, leaveerrors.ErrForbidden
		}
	}

	y := s.cfg.Clock.Today().Year()
	if year != nil {
		y = *year
	}

	remaining, err := s.GetRemainingDays(ctx, userID, y)
	if err != nil {
		return BalanceResponse{}, err
	}

	return BalanceResponse{
		UserID:        userID,
		Year:          y,
		AnnualCap:     s.cfg.AnnualCap,
		AcceptedDays:  s.cfg.AnnualCap - remaining,
		RemainingDays: remaining,
	}, nil
}

// GetAll lists every request when the actor holds leave:read_all, otherwise only their own.
func (s *service) GetAll(ctx context.Context, actorID string, year *int) ([]LeaveResponse, error) {
	actor, _, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	canReadAll, err := s.allowed(ctx, actor, rbac.ResourceLeave, rbac.ActionReadAll)
	if err != nil {
		return nil, err
	}

	if !canReadAll {
		leaves, err := s.repo.FindAllByUser(ctx, actorID, year)
		if err != nil {
			contextutil.GetLogger(ctx, s.logger).Error("get own leaves failed", zap.Error(err))
			return nil, mapRepositoryError(err)
		}
		return mapToListResponse(leaves), nil
	}

	leaves, err := s.repo.FindAll(ctx, year)
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("get all leaves failed", zap.Error(err))
		return nil, mapRepositoryError(err)
	}

	currentYear := s.cfg.Clock.Today().Year()
	remainingByUser := make(map[uuid.UUID]int)
	resp := mapToListResponse(leaves)
	for i, l := range leaves {
		remaining, ok := remainingByUser[l.UserID]
		if !ok {
			if remaining, err = s.GetRemainingDays(ctx, l.UserID.String(), currentYear); err != nil {
				return nil, err
			}
			remainingByUser[l.UserID] = remaining
		}
		r := remaining
		resp[i].RemainingDays = &r
	}
	return resp, nil
}

func (s *service) GetByID(ctx context.Context, actorID, id string) (LeaveResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidLeaveID
	}
	actor, actorUUID, err := s.actor(ctx, actorID)
	if err != nil {
		return LeaveResponse{}, err
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return LeaveResponse{}, mapRepositoryError(err)
	}
	if err := s.ownerOr(ctx, actor, actorUUID, l.UserID, rbac.ActionReadAll); err != nil {
		return LeaveResponse{}, err
	}
	return mapToResponse(*l), nil
}

func (s *service) Dashboard(ctx context.Context, actorID string) (DashboardResponse, error) {
	if _, err := uuid.Parse(actorID); err != nil {
		return DashboardResponse{}, leaveerrors.ErrInvalidActorID
	}

	leaves, err := s.repo.FindAllByUser(ctx, actorID, nil)
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("dashboard leaves failed", zap.Error(err))
		return DashboardResponse{}, mapRepositoryError(err)
	}

	year := s.cfg.Clock.Today().Year()
	remaining, err := s.GetRemainingDays(ctx, actorID, year)
	if err != nil {
		return DashboardResponse{}, err
	}

	return DashboardResponse{
		Year:          year,
		AnnualCap:     s.cfg.AnnualCap,
		RemainingDays: remaining,
		Requests:      mapToListResponse(leaves),
	}, nil
}
