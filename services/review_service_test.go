package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haatbazar/marketplace/apperrors"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/services"
)

func reviewFixture(t *testing.T, status models.OrderStatus) (*services.ReviewService, *models.Order) {
	t.Helper()
	products := newFakeProductRepo()
	users := newFakeUserRepo()
	orders := newFakeOrderRepo()
	orderSvc := newOrderService(orders, products, users, newTestDispatcher(newCaptureSender()))

	seedUser(users, "buyer1", models.RoleBuyer)
	seedProduct(products, "p1", "seller1", 100, 5)
	order, err := orderSvc.Create(context.Background(), "buyer1", orderInput(
		services.OrderItemInput{ProductID: "p1", Quantity: 1},
	))
	require.NoError(t, err)

	if status != models.OrderPending {
		require.NoError(t, orders.UpdateStatus(context.Background(), order.ID, status, ""))
		order.Status = status
	}
	return services.NewReviewService(newFakeReviewRepo(), orders, testLogger()), order
}

func TestReviewService_Create_Success(t *testing.T) {
	svc, order := reviewFixture(t, models.OrderCompleted)

	review, err := svc.Create(context.Background(), "buyer1", order.ID, services.ReviewInput{
		Rating:  5,
		Comment: "arrived fast, works great",
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", review.ProductID, "review binds to the first line item")
	assert.Equal(t, order.ID, review.OrderID)
	assert.Equal(t, 5, review.Rating)
}

func TestReviewService_Create_OrderNotFound(t *testing.T) {
	svc, _ := reviewFixture(t, models.OrderCompleted)

	_, err := svc.Create(context.Background(), "buyer1", "no-such-order", services.ReviewInput{Rating: 4})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.From(err).Code)
}

func TestReviewService_Create_WrongBuyer(t *testing.T) {
	svc, order := reviewFixture(t, models.OrderCompleted)

	_, err := svc.Create(context.Background(), "buyer2", order.ID, services.ReviewInput{Rating: 4})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperrors.From(err).Code)
}

func TestReviewService_Create_OrderNotCompleted(t *testing.T) {
	svc, order := reviewFixture(t, models.OrderPending)

	_, err := svc.Create(context.Background(), "buyer1", order.ID, services.ReviewInput{Rating: 4})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.From(err).Code)
}

func TestReviewService_Create_DuplicateReview(t *testing.T) {
	svc, order := reviewFixture(t, models.OrderCompleted)

	_, err := svc.Create(context.Background(), "buyer1", order.ID, services.ReviewInput{Rating: 4})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "buyer1", order.ID, services.ReviewInput{Rating: 2})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperrors.From(err).Code)
}

func TestReviewService_Create_RatingBounds(t *testing.T) {
	svc, order := reviewFixture(t, models.OrderCompleted)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Create(context.Background(), "buyer1", order.ID, services.ReviewInput{Rating: rating})
		require.Error(t, err, "rating %d", rating)
		assert.Equal(t, http.StatusBadRequest, apperrors.From(err).Code)
	}
}

func TestReviewService_ListByProduct(t *testing.T) {
	svc, order := reviewFixture(t, models.OrderCompleted)

	_, err := svc.Create(context.Background(), "buyer1", order.ID, services.ReviewInput{Rating: 5})
	require.NoError(t, err)

	reviews, err := svc.ListByProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	none, err := svc.ListByProduct(context.Background(), "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}
