package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/apperrors"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/repository"
)

type ReviewInput struct {
	Rating  int    `json:"rating" binding:"required,gte=1,lte=5"`
	Comment string `json:"comment" binding:"omitempty,max=500"`
}

type ReviewService struct {
	reviews repository.ReviewRepository
	orders  repository.OrderRepository
	log     *zap.Logger
}

func NewReviewService(reviews repository.ReviewRepository, orders repository.OrderRepository, log *zap.Logger) *ReviewService {
	return &ReviewService{reviews: reviews, orders: orders, log: log}
}

// Create records the buyer's single review for a completed order. The
// preconditions are checked in a fixed order so each failure mode maps to
// one distinct error: missing order, wrong buyer, order not completed,
// review already present. The unique index on the order id closes the race
// between the duplicate check and the insert.
func (s *ReviewService) Create(ctx context.Context, buyerID, orderID string, in ReviewInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperrors.BadRequest("rating must be between 1 and 5")
	}
	if len(in.Comment) > 500 {
		return nil, apperrors.BadRequest("comment must be at most 500 characters")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, apperrors.Internal(err)
	}
	if order.BuyerID != buyerID {
		return nil, apperrors.Forbidden("you can only review your own orders")
	}
	if order.Status != models.OrderCompleted {
		return nil, apperrors.BadRequest("order must be completed before it can be reviewed")
	}
	if _, err := s.reviews.FindByOrderID(ctx, orderID); err == nil {
		return nil, apperrors.Conflict("this order has already been reviewed")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	if len(order.Items) == 0 {
		return nil, apperrors.BadRequest("order has no items to review")
	}

	now := time.Now().UTC()
	review := &models.Review{
		ID:        uuid.NewString(),
		ProductID: order.Items[0].ProductID,
		BuyerID:   buyerID,
		OrderID:   orderID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("this order has already been reviewed")
		}
		return nil, apperrors.Internal(err)
	}
	s.log.Info("review created",
		zap.String("review_id", review.ID),
		zap.String("order_id", orderID),
		zap.Int("rating", in.Rating))
	return review, nil
}

// ListByProduct returns a product's reviews.
func (s *ReviewService) ListByProduct(ctx context.Context, productID string) ([]models.Review, error) {
	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return reviews, nil
}
