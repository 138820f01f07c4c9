package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/apperrors"
	"github.com/haatbazar/marketplace/cache"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/repository"
)

const maxSlugAttempts = 10

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

type CategoryInput struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
	Image       string `json:"image"`
	IsActive    *bool  `json:"isActive"`
}

type CategoryService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	cache      *cache.Cache
	log        *zap.Logger
}

func NewCategoryService(categories repository.CategoryRepository, products repository.ProductRepository, c *cache.Cache, log *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, products: products, cache: c, log: log}
}

// List returns categories, optionally restricted to active ones. The active
// set is what the storefront renders, so it is served cache-aside.
func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	var isActive *bool
	if activeOnly {
		t := true
		isActive = &t

		var cached []models.Category
		if err := s.cache.Get(ctx, cache.CategoriesKey(), &cached); err == nil {
			return cached, nil
		}
	}

	categories, err := s.categories.List(ctx, "", isActive)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if activeOnly {
		if err := s.cache.Set(ctx, cache.CategoriesKey(), categories); err != nil {
			s.log.Warn("category cache write failed", zap.Error(err))
		}
	}
	return categories, nil
}

// ListByOwner returns the categories a seller created, active or not.
func (s *CategoryService) ListByOwner(ctx context.Context, ownerID string) ([]models.Category, error) {
	categories, err := s.categories.List(ctx, ownerID, nil)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return categories, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("category not found")
		}
		return nil, apperrors.Internal(err)
	}
	return category, nil
}

// ownedCategory resolves a category and checks the caller created it.
func (s *CategoryService) ownedCategory(ctx context.Context, ownerID, id string) (*models.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if category.CreatedBy != ownerID {
		return nil, apperrors.Forbidden("you do not own this category")
	}
	return category, nil
}

// Create adds a category. Names are unique case-insensitively; the slug is
// derived from the name and suffixed on collision.
func (s *CategoryService) Create(ctx context.Context, createdBy string, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)

	now := time.Now().UTC()
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	category := &models.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        Slugify(name),
		Description: in.Description,
		Image:       in.Image,
		IsActive:    isActive,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The slug carries a numeric suffix when the bare form is taken. The
	// unique index is the arbiter, so collisions under concurrency just
	// surface as another retry.
	base := category.Slug
	for attempt := 2; attempt <= maxSlugAttempts; attempt++ {
		err := s.categories.Create(ctx, category)
		if err == nil {
			s.invalidate(ctx)
			s.log.Info("category created",
				zap.String("category_id", category.ID),
				zap.String("slug", category.Slug))
			return category, nil
		}
		if errors.Is(err, repository.ErrDuplicateSlug) {
			category.Slug = fmt.Sprintf("%s-%d", base, attempt)
			continue
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("a category with this name already exists")
		}
		return nil, apperrors.Internal(err)
	}
	return nil, apperrors.Conflict("could not allocate a unique slug for this category")
}

// Update modifies a category owned by the caller. Renames regenerate the slug.
func (s *CategoryService) Update(ctx context.Context, ownerID, id string, in CategoryInput) (*models.Category, error) {
	category, err := s.ownedCategory(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if !strings.EqualFold(name, category.Name) {
		category.Slug = Slugify(name)
	}
	category.Name = name
	category.Description = in.Description
	if in.Image != "" {
		category.Image = in.Image
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	category.UpdatedAt = time.Now().UTC()

	if err := s.categories.Save(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) || errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("a category with this name already exists")
		}
		return nil, apperrors.Internal(err)
	}
	s.invalidate(ctx)
	return category, nil
}

// Delete removes a category owned by the caller that no product references.
func (s *CategoryService) Delete(ctx context.Context, ownerID, id string) error {
	category, err := s.ownedCategory(ctx, ownerID, id)
	if err != nil {
		return err
	}

	count, err := s.products.CountByCategory(ctx, category.Name)
	if err != nil {
		return apperrors.Internal(err)
	}
	if count > 0 {
		return apperrors.Conflict(fmt.Sprintf("category is in use by %d products", count))
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return apperrors.Internal(err)
	}
	s.invalidate(ctx)
	s.log.Info("category deleted", zap.String("category_id", id))
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.CategoriesKey()); err != nil {
		s.log.Warn("category cache invalidation failed", zap.Error(err))
	}
}

// Slugify lowercases a name and collapses every non-alphanumeric run into a
// single hyphen. Names with no usable characters get a time-based placeholder.
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = fmt.Sprintf("category-%d", time.Now().UnixMilli())
	}
	return slug
}
