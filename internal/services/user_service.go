package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/auth"
	"github.com/swapbnb/exchange-coordinator/internal/models"
	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
)

type UserService struct {
	r             repo.Users
	tm            *auth.TokenManager
	signupCredits int
}

func NewUserService(r repo.Users, tm *auth.TokenManager, signupCredits int) *UserService {
	return &UserService{r: r, tm: tm, signupCredits: signupCredits}
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Register creates a user holding the signup credit allowance.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	u := models.User{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Role:     models.UserRoleUser,
		Credits:  s.signupCredits,
	}
	if err := u.Validate(); err != nil {
		return models.User{}, apperr.Wrap(apperr.Validation, err, err.Error())
	}
	hash, err := auth.HashPassword(in.Password)
	if errors.Is(err, auth.ErrPasswordLength) {
		return models.User{}, apperr.Invalid(apperr.FieldError{Field: "password", Msg: "must be 8 to 72 characters"})
	}
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u, err = s.r.Create(ctx, u)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return models.User{}, apperr.New(apperr.Conflict, "an account with this email already exists")
		}
		return models.User{}, fromRepo(err, "user")
	}
	slog.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (auth.Pair, error) {
	u, err := s.r.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return auth.Pair{}, ErrInvalidCredentials
		}
		return auth.Pair{}, err
	}
	if auth.VerifyPassword(password, u.PasswordHash) != nil {
		return auth.Pair{}, ErrInvalidCredentials
	}
	return s.tm.GeneratePair(u.ID, u.Role)
}

// Refresh issues a new pair for a valid refresh token whose user still
// exists. The role is read from the store, not the old token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (auth.Pair, error) {
	claims, err := s.tm.ParseRefresh(refreshToken)
	if err != nil {
		return auth.Pair{}, ErrInvalidCredentials
	}
	u, err := s.r.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return auth.Pair{}, ErrInvalidCredentials
		}
		return auth.Pair{}, err
	}
	return s.tm.GeneratePair(u.ID, u.Role)
}

func (s *UserService) Me(ctx context.Context, userID string) (models.User, error) {
	u, err := s.r.GetByID(ctx, userID)
	return u, fromRepo(err, "user")
}
