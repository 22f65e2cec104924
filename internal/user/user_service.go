package user

import (
	"context"
	"strings"
	"time"

	"go-conge/internal/shared/contextutil"
	usererrors "go-conge/internal/user/errors"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	directoryTTL     = 5 * time.Minute
	directoryCleanup = 10 * time.Minute
)

//go:generate mockgen -source=user_service.go -destination=mock/user_service_mock.go -package=mock
type Service interface {
	GetAll(ctx context.Context) ([]UserResponse, error)
	GetByID(ctx context.Context, id string) (UserResponse, error)
	Create(ctx context.Context, req CreateUserRequest) (UserResponse, error)
	Update(ctx context.Context, id string, req UpdateUserRequest) (UserResponse, error)
	ResetPassword(ctx context.Context, id, newPassword string) error
}

type service struct {
	repo  Repository
	cache *gocache.Cache
}

// NewService returns a user service whose GetByID answers from an in-process
// directory cache. Writes through this service evict the cached entry.
func NewService(repo Repository) Service {
	return &service{
		repo:  repo,
		cache: gocache.New(directoryTTL, directoryCleanup),
	}
}

func (s *service) GetAll(ctx context.Context) ([]UserResponse, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = mapToResponse(u)
	}
	return resp, nil
}

func (s *service) GetByID(ctx context.Context, id string) (UserResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return UserResponse{}, usererrors.ErrInvalidUserID
	}
	if cached, ok := s.cache.Get(id); ok {
		return cached.(UserResponse), nil
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return UserResponse{}, mapRepositoryError(err)
	}

	resp := mapToResponse(*u)
	s.cache.SetDefault(id, resp)
	return resp, nil
}

func (s *service) Create(ctx context.Context, req CreateUserRequest) (UserResponse, error) {
	l := contextutil.GetLogger(ctx, nil)

	role, err := normalizeRole(req.Role)
	if err != nil {
		return UserResponse{}, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		l.Error("failed to hash password", zap.Error(err))
		return UserResponse{}, err
	}

	u := &User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hashed,
		Role:     role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		l.Error("failed to create user", zap.String("email", u.Email), zap.Error(err))
		return UserResponse{}, mapRepositoryError(err)
	}

	l.Info("user created", zap.String("user_id", u.ID.String()), zap.String("role", u.Role))
	return mapToResponse(*u), nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateUserRequest) (UserResponse, error) {
	l := contextutil.GetLogger(ctx, nil)

	if _, err := uuid.Parse(id); err != nil {
		return UserResponse{}, usererrors.ErrInvalidUserID
	}
	role, err := normalizeRole(req.Role)
	if err != nil {
		return UserResponse{}, err
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return UserResponse{}, mapRepositoryError(err)
	}

	u.Name = strings.TrimSpace(req.Name)
	u.Email = strings.ToLower(strings.TrimSpace(req.Email))
	u.Role = role
	if req.Password != nil && *req.Password != "" {
		hashed, err := hashPassword(*req.Password)
		if err != nil {
			return UserResponse{}, err
		}
		u.Password = hashed
	}

	if err := s.repo.Update(ctx, u); err != nil {
		l.Error("failed to update user", zap.String("user_id", id), zap.Error(err))
		return UserResponse{}, mapRepositoryError(err)
	}
	s.cache.Delete(id)

	return mapToResponse(*u), nil
}

func (s *service) ResetPassword(ctx context.Context, id, newPassword string) error {
	if _, err := uuid.Parse(id); err != nil {
		return usererrors.ErrInvalidUserID
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapRepositoryError(err)
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.Password = hashed

	if err := s.repo.Update(ctx, u); err != nil {
		return mapRepositoryError(err)
	}
	return nil
}

func normalizeRole(role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != RoleAdmin && role != RoleUser {
		return "", usererrors.ErrInvalidRole
	}
	return role, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", usererrors.ErrInvalidPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func mapToResponse(u User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
