package services

import (
	"context"
	stderrors "errors"
	"log/slog"

	"alumni-server/models"
	"alumni-server/utils/errors"
)

type UserService struct {
	store   UserStore
	hasher  *PasswordHasher
	tokens  *TokenService
	photos  PhotoStore
	limiter LoginLimiter
	logger  *slog.Logger
}

// UserServiceDeps groups the collaborators of UserService. Photos and Limiter
// are optional.
type UserServiceDeps struct {
	Store   UserStore
	Hasher  *PasswordHasher
	Tokens  *TokenService
	Photos  PhotoStore
	Limiter LoginLimiter
	Logger  *slog.Logger
}

func NewUserService(deps UserServiceDeps) *UserService {
	s := &UserService{
		store:   deps.Store,
		hasher:  deps.Hasher,
		tokens:  deps.Tokens,
		photos:  deps.Photos,
		limiter: deps.Limiter,
		logger:  deps.Logger,
	}
	if s.limiter == nil {
		s.limiter = NoopLoginLimiter{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// GetUser returns the user with id or errors.ErrNotFound.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, ErrUserNotFound) {
			return nil, errors.ErrNotFound.WithMessage("User not found")
		}
		return nil, errors.StoreFailure(err, "find user")
	}
	return user, nil
}

// Search returns users whose name contains name, ignoring case.
func (s *UserService) Search(ctx context.Context, name string) ([]models.User, error) {
	users, err := s.store.SearchByName(ctx, name)
	if err != nil {
		return nil, errors.StoreFailure(err, "search users")
	}
	return users, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.StoreFailure(err, "list users")
	}
	return users, nil
}

// Connections resolves the confirmed connections of id into user records.
func (s *UserService) Connections(ctx context.Context, id string) ([]models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, user.Connections)
}

// PendingRequests resolves the users waiting for id to accept them.
func (s *UserService) PendingRequests(ctx context.Context, id string) ([]models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, user.PendingConnections)
}

func (s *UserService) resolve(ctx context.Context, ids []string) ([]models.User, error) {
	users, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.StoreFailure(err, "resolve users")
	}
	if len(users) != len(ids) {
		s.logger.WarnContext(ctx, "dangling user references", slog.Int("wanted", len(ids)), slog.Int("found", len(users)))
	}
	return users, nil
}

// Ping checks the store is reachable.
func (s *UserService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return errors.StoreFailure(err, "ping")
	}
	return nil
}
