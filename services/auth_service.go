package services

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"alumni-server/models"
	"alumni-server/utils/errors"

	"github.com/google/uuid"
)

type RegisterInput struct {
	Name           string       `json:"name" validate:"required"`
	Email          string       `json:"email" validate:"required,email"`
	GraduationYear int          `json:"graduationYear" validate:"required,min=1900,max=2100"`
	Password       string       `json:"password" validate:"min=6,max=72"`
	Photo          *PhotoUpload `json:"-" validate:"-"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is what register and login hand back to the client.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user and issues a token for it
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if len(input.Password) > maxPasswordBytes {
		return nil, errors.ErrValidation.WithMessage("password must be 72 bytes or fewer")
	}

	_, err := s.store.FindByEmail(ctx, input.Email)
	switch {
	case err == nil:
		return nil, errors.ErrDuplicateEmail
	case !stderrors.Is(err, ErrUserNotFound):
		return nil, errors.StoreFailure(err, "check email")
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "HASH_ERROR", "Failed to hash password", http.StatusInternalServerError)
	}

	var photoPath string
	if input.Photo != nil && s.photos != nil {
		photoPath, err = s.photos.Save(ctx, *input.Photo)
		if err != nil {
			return nil, errors.Wrap(err, "UPLOAD_ERROR", "Failed to store photo", http.StatusInternalServerError)
		}
	}

	user := &models.User{
		ID:                 uuid.NewString(),
		Name:               input.Name,
		Email:              input.Email,
		GraduationYear:     input.GraduationYear,
		Photo:              photoPath,
		PasswordHash:       passwordHash,
		Connections:        []string{},
		PendingConnections: []string{},
	}
	if err := s.store.Create(ctx, user); err != nil {
		s.discardPhoto(ctx, photoPath)
		if stderrors.Is(err, ErrEmailTaken) {
			return nil, errors.ErrDuplicateEmail
		}
		return nil, errors.StoreFailure(err, "create user")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID), slog.Bool("photo", photoPath != ""))
	return &AuthResult{Token: token, User: user}, nil
}

// Login authenticates a user by email and password and returns a fresh token
func (s *UserService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, input.Email)
	if err != nil {
		// Limiter errors fail open.
		s.logger.WarnContext(ctx, "login limiter unavailable", slog.Any("error", err))
		allowed = true
	}
	if !allowed {
		return nil, errors.ErrTooManyAttempts
	}

	user, err := s.store.FindByEmail(ctx, input.Email)
	if err != nil {
		if stderrors.Is(err, ErrUserNotFound) {
			s.recordFailure(ctx, input.Email)
			return nil, errors.ErrInvalidCredentials
		}
		return nil, errors.StoreFailure(err, "find user by email")
	}

	if err := s.hasher.Verify(user.PasswordHash, input.Password); err != nil {
		if !stderrors.Is(err, errPasswordMismatch) {
			s.logger.WarnContext(ctx, "stored password hash unreadable", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		s.recordFailure(ctx, input.Email)
		return nil, errors.ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, input.Email); err != nil {
		s.logger.WarnContext(ctx, "failed to reset login failures", slog.Any("error", err))
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// discardPhoto removes a photo saved for a registration that did not complete.
func (s *UserService) discardPhoto(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.photos.Delete(ctx, ref); err != nil {
		s.logger.WarnContext(ctx, "failed to remove orphaned photo", slog.String("photo", ref), slog.Any("error", err))
	}
}

func (s *UserService) recordFailure(ctx context.Context, email string) {
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure", slog.Any("error", err))
	}
}
