package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/haatbazar/marketplace/apperrors"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/notifier"
	"github.com/haatbazar/marketplace/repository"
)

const resetTokenTTL = 15 * time.Minute

// RegisterInput is the validated payload for account creation.
type RegisterInput struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=buyer seller"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
	Address  string `json:"address" binding:"omitempty,max=500"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResult bundles the authenticated user with their token pair.
type AuthResult struct {
	User   models.PublicUser `json:"user"`
	Tokens *TokenPair        `json:"-"`
}

type AuthService struct {
	users      repository.UserRepository
	tokens     *TokenService
	dispatcher *notifier.Dispatcher
	baseURL    string
	log        *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens *TokenService, dispatcher *notifier.Dispatcher, baseURL string, log *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, dispatcher: dispatcher, baseURL: baseURL, log: log}
}

// Register creates a buyer or seller account. Admin accounts are never
// created through this path.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	role := in.Role
	if role == "" {
		role = models.RoleBuyer
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Password:  string(hashed),
		Role:      role,
		Phone:     in.Phone,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("an account with this email already exists")
		}
		return nil, apperrors.Internal(err)
	}

	tokens, err := s.tokens.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &AuthResult{User: user.Public(), Tokens: tokens}, nil
}

// Login verifies credentials and issues a fresh token pair. Banned
// accounts are rejected even with a correct password.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, apperrors.Internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if user.IsBanned {
		return nil, apperrors.Forbidden("this account has been suspended")
	}

	tokens, err := s.tokens.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &AuthResult{User: user.Public(), Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The user is
// re-read so bans and role changes take effect on rotation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("account no longer exists")
	}
	if user.IsBanned {
		return nil, apperrors.Forbidden("this account has been suspended")
	}

	tokens, err := s.tokens.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &AuthResult{User: user.Public(), Tokens: tokens}, nil
}

// Me returns the public profile for an authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("account not found")
		}
		return nil, apperrors.Internal(err)
	}
	public := user.Public()
	return &public, nil
}

// ForgotPassword issues a single-use reset token. Only its sha256 digest is
// stored; the raw token goes out by email. Unknown emails succeed silently
// so the endpoint cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperrors.Internal(err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return apperrors.Internal(err)
	}
	token := hex.EncodeToString(raw)
	digest := sha256.Sum256([]byte(token))

	user.ResetPasswordToken = hex.EncodeToString(digest[:])
	user.ResetPasswordExpire = time.Now().UTC().Add(resetTokenTTL)
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.Internal(err)
	}

	task := notifier.PasswordReset(user.Name, fmt.Sprintf("%s/reset-password/%s", s.baseURL, token))
	task.To = user.Email
	s.dispatcher.Enqueue(task)
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.BadRequest("password must be at least 8 characters")
	}

	digest := sha256.Sum256([]byte(token))
	user, err := s.users.FindByResetToken(ctx, hex.EncodeToString(digest[:]), time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.BadRequest("invalid or expired reset token")
		}
		return apperrors.Internal(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal(err)
	}
	user.Password = string(hashed)
	user.ResetPasswordToken = ""
	user.ResetPasswordExpire = time.Time{}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.Internal(err)
	}
	s.log.Info("password reset completed", zap.String("user_id", user.ID))
	return nil
}
