package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/apperrors"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/repository"
)

// UserPage is a paginated account listing for the admin console.
type UserPage struct {
	Users []models.PublicUser `json:"users"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
	Pages int64               `json:"pages"`
}

// AdminService covers account administration: listing users and toggling
// the ban flag that the access gateway enforces on every request.
type AdminService struct {
	users repository.UserRepository
	log   *zap.Logger
}

func NewAdminService(users repository.UserRepository, log *zap.Logger) *AdminService {
	return &AdminService{users: users, log: log}
}

// ListUsers returns accounts, optionally filtered by role.
func (s *AdminService) ListUsers(ctx context.Context, role string, page, limit int) (*UserPage, error) {
	if role != "" && role != models.RoleBuyer && role != models.RoleSeller && role != models.RoleAdmin {
		return nil, apperrors.BadRequest("unknown role")
	}
	page, limit = clampPage(page, limit)

	users, total, err := s.users.List(ctx, role, page, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	public := make([]models.PublicUser, len(users))
	for i := range users {
		public[i] = users[i].Public()
	}
	return &UserPage{
		Users: public,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages(total, limit),
	}, nil
}

// SetBanned flips an account's ban flag. Admin accounts cannot be banned.
func (s *AdminService) SetBanned(ctx context.Context, userID string, banned bool) (*models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal(err)
	}
	if user.Role == models.RoleAdmin {
		return nil, apperrors.Forbidden("admin accounts cannot be banned")
	}

	user.IsBanned = banned
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.log.Info("user ban flag updated",
		zap.String("user_id", userID),
		zap.Bool("banned", banned))
	pub := user.Public()
	return &pub, nil
}
