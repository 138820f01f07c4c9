package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/apperrors"
	"github.com/haatbazar/marketplace/cache"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/repository"
)

// ProductInput is the payload for creating or updating a listing. Pointer
// fields distinguish "not sent" from zero values on update.
type ProductInput struct {
	Title           string     `json:"title" binding:"required,min=2,max=200"`
	Description     string     `json:"description" binding:"required"`
	Category        string     `json:"category" binding:"required"`
	Price           float64    `json:"price" binding:"required,gt=0"`
	DiscountPrice   *float64   `json:"discountPrice" binding:"omitempty,gt=0"`
	DiscountEndDate *time.Time `json:"discountEndDate"`
	Stock           int        `json:"stock" binding:"gte=0"`
	Images          []string   `json:"images"`
	Video           string     `json:"video"`
	Features        []string   `json:"features"`
	IsHotCollection bool       `json:"isHotCollection"`
	Tags            []string   `json:"tags"`
	Brand           string     `json:"brand"`
	Weight          *float64   `json:"weight" binding:"omitempty,gt=0"`
	Dimensions      string     `json:"dimensions"`
	Warranty        string     `json:"warranty"`
	IsActive        *bool      `json:"isActive"`
}

// ProductPage is a paginated product listing.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Pages    int64            `json:"pages"`
}

type ProductService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      *cache.Cache
	log        *zap.Logger
}

func NewProductService(products repository.ProductRepository, categories repository.CategoryRepository, c *cache.Cache, log *zap.Logger) *ProductService {
	return &ProductService{products: products, categories: categories, cache: c, log: log}
}

// List returns active products for the public catalog.
func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	active := true
	filter.IsActive = &active
	return s.list(ctx, filter)
}

// ListBySeller returns a seller's own products, active or not.
func (s *ProductService) ListBySeller(ctx context.Context, sellerID string, page, limit int) (*ProductPage, error) {
	return s.list(ctx, repository.ProductFilter{SellerID: sellerID, Page: page, Limit: limit})
}

func (s *ProductService) list(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)

	products, total, err := s.products.Find(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &ProductPage{
		Products: products,
		Total:    total,
		Page:     filter.Page,
		Limit:    filter.Limit,
		Pages:    pages(total, filter.Limit),
	}, nil
}

// Get returns a single product by id. Details are served cache-aside; a
// stale entry is bounded by the cache TTL and invalidated on every write.
func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	var cached models.Product
	if err := s.cache.Get(ctx, cache.ProductKey(id), &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("product cache read failed", zap.String("product_id", id), zap.Error(err))
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("product not found")
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.cache.Set(ctx, cache.ProductKey(id), product); err != nil {
		s.log.Warn("product cache write failed", zap.String("product_id", id), zap.Error(err))
	}
	return product, nil
}

// Create adds a listing owned by the seller. The category must exist and be
// active, and any discount must undercut the base price.
func (s *ProductService) Create(ctx context.Context, sellerID string, in ProductInput) (*models.Product, error) {
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	product := &models.Product{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		Price:           in.Price,
		DiscountPrice:   in.DiscountPrice,
		DiscountEndDate: in.DiscountEndDate,
		Images:          in.Images,
		Video:           in.Video,
		SellerID:        sellerID,
		Stock:           in.Stock,
		IsActive:        isActive,
		Features:        in.Features,
		IsHotCollection: in.IsHotCollection,
		Tags:            in.Tags,
		Brand:           in.Brand,
		Weight:          in.Weight,
		Dimensions:      in.Dimensions,
		Warranty:        in.Warranty,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.log.Info("product created",
		zap.String("product_id", product.ID),
		zap.String("seller_id", sellerID))
	return product, nil
}

// Update replaces a listing's mutable fields. Only the owning seller may
// update it.
func (s *ProductService) Update(ctx context.Context, sellerID, productID string, in ProductInput) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(ctx, in); err != nil {
		return nil, err
	}

	product.Title = in.Title
	product.Description = in.Description
	product.Category = in.Category
	product.Price = in.Price
	product.DiscountPrice = in.DiscountPrice
	product.DiscountEndDate = in.DiscountEndDate
	product.Stock = in.Stock
	if len(in.Images) > 0 {
		product.Images = in.Images
	}
	product.Video = in.Video
	product.Features = in.Features
	product.IsHotCollection = in.IsHotCollection
	product.Tags = in.Tags
	product.Brand = in.Brand
	product.Weight = in.Weight
	product.Dimensions = in.Dimensions
	product.Warranty = in.Warranty
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.Save(ctx, product); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.invalidate(ctx, productID)
	return product, nil
}

// Delete removes a listing owned by the seller.
func (s *ProductService) Delete(ctx context.Context, sellerID, productID string) error {
	if _, err := s.ownedProduct(ctx, sellerID, productID); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return apperrors.Internal(err)
	}
	s.invalidate(ctx, productID)
	s.log.Info("product deleted",
		zap.String("product_id", productID),
		zap.String("seller_id", sellerID))
	return nil
}

// AppendImages adds uploaded media URLs to a listing.
func (s *ProductService) AppendImages(ctx context.Context, sellerID, productID string, urls []string) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}
	product.Images = append(product.Images, urls...)
	product.UpdatedAt = time.Now().UTC()
	if err := s.products.Save(ctx, product); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.invalidate(ctx, productID)
	return product, nil
}

func (s *ProductService) ownedProduct(ctx context.Context, sellerID, productID string) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("product not found")
		}
		return nil, apperrors.Internal(err)
	}
	if product.SellerID != sellerID {
		return nil, apperrors.Forbidden("you do not own this product")
	}
	return product, nil
}

func (s *ProductService) validateInput(ctx context.Context, in ProductInput) error {
	if in.DiscountPrice != nil && *in.DiscountPrice >= in.Price {
		return apperrors.BadRequest("discount price must be below the base price")
	}
	category, err := s.categories.FindByName(ctx, in.Category)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.BadRequest("unknown category")
		}
		return apperrors.Internal(err)
	}
	if !category.IsActive {
		return apperrors.BadRequest("category is not accepting new products")
	}
	return nil
}

func (s *ProductService) invalidate(ctx context.Context, productID string) {
	if err := s.cache.Delete(ctx, cache.ProductKey(productID)); err != nil {
		s.log.Warn("product cache invalidation failed", zap.String("product_id", productID), zap.Error(err))
	}
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func pages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
