package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/apperrors"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/notifier"
	"github.com/haatbazar/marketplace/repository"
)

const orderNumberAttempts = 3

type OrderItemInput struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
}

type CreateOrderInput struct {
	Items           []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	ShippingAddress string           `json:"shippingAddress" binding:"required,max=500"`
	PaymentMethod   string           `json:"paymentMethod" binding:"required,oneof=cash-on-delivery bkash"`
}

type UpdateOrderStatusInput struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// OrderPage is a paginated order listing.
type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
	Pages  int64          `json:"pages"`
}

// OrderService drives an order from creation through its status lifecycle.
type OrderService struct {
	orders     repository.OrderRepository
	products   repository.ProductRepository
	users      repository.UserRepository
	reviews    repository.ReviewRepository
	dispatcher *notifier.Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, users repository.UserRepository, reviews repository.ReviewRepository, dispatcher *notifier.Dispatcher, log *zap.Logger) *OrderService {
	return &OrderService{
		orders:     orders,
		products:   products,
		users:      users,
		reviews:    reviews,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// Create validates the cart, snapshots pricing, decrements stock and
// persists the order. All line items must belong to one seller. Stock is
// taken with atomic conditional decrements; if a later item cannot be
// covered, the earlier decrements are reversed before the error is
// returned, so a failed order never leaves stock partially taken.
func (s *OrderService) Create(ctx context.Context, buyerID string, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, apperrors.BadRequest("order must contain at least one item")
	}

	now := s.now().UTC()
	sellerID := ""
	items := make([]models.OrderItem, 0, len(in.Items))
	summaries := make([]models.ProductSummary, 0, len(in.Items))
	total := 0.0

	for _, line := range in.Items {
		if line.Quantity < 1 {
			return nil, apperrors.BadRequest("item quantity must be at least 1")
		}
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NotFound(fmt.Sprintf("product %s not found", line.ProductID))
			}
			return nil, apperrors.Internal(err)
		}
		if !product.IsActive {
			return nil, apperrors.BadRequest(fmt.Sprintf("product %q is not available", product.Title))
		}
		if product.Stock < line.Quantity {
			return nil, apperrors.BadRequest(fmt.Sprintf("insufficient stock for %q", product.Title))
		}
		if sellerID == "" {
			sellerID = product.SellerID
		} else if product.SellerID != sellerID {
			return nil, apperrors.BadRequest("all items in an order must come from the same seller")
		}

		price := product.EffectivePrice(now)
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			Price:     price,
		})
		summaries = append(summaries, product.Summary())
		total += price * float64(line.Quantity)
	}
	if sellerID == "" {
		return nil, apperrors.BadRequest("order must contain at least one item")
	}

	// Take stock item by item. The conditional decrement is the authority on
	// availability; the pre-check above only shortcuts the obvious cases.
	taken := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.releaseStock(ctx, taken)
			if errors.Is(err, repository.ErrInsufficientStock) {
				return nil, apperrors.BadRequest("insufficient stock for one of the items")
			}
			return nil, apperrors.Internal(err)
		}
		taken = append(taken, item)
	}

	order := &models.Order{
		ID:              uuid.NewString(),
		BuyerID:         buyerID,
		SellerID:        sellerID,
		Items:           items,
		TotalAmount:     total,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		Status:          models.OrderPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// The order number's unique index is the arbiter; on collision a fresh
	// number is generated and the insert retried.
	var insertErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = generateOrderNumber(now)
		insertErr = s.orders.Insert(ctx, order)
		if insertErr == nil {
			break
		}
		if !errors.Is(insertErr, repository.ErrDuplicate) {
			break
		}
	}
	if insertErr != nil {
		s.releaseStock(ctx, taken)
		return nil, apperrors.Internal(insertErr)
	}

	for i := range order.Items {
		order.Items[i].Product = &summaries[i]
	}
	s.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("buyer_id", buyerID),
		zap.String("seller_id", sellerID),
		zap.Float64("total", total))

	s.notifyBuyer(ctx, buyerID, func(buyer *models.User) notifier.Task {
		return notifier.OrderConfirmation(buyer.Name, emailData(order, summaries))
	})
	return order, nil
}

// UpdateStatus moves an order along its lifecycle. Only the order's seller
// may call it, and only transitions the state machine allows are accepted.
func (s *OrderService) UpdateStatus(ctx context.Context, sellerID, orderID string, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown order status %q", next))
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, apperrors.Internal(err)
	}
	if order.SellerID != sellerID {
		return nil, apperrors.Forbidden("you do not own this order")
	}
	if order.Status.Terminal() {
		return nil, apperrors.BadRequest(fmt.Sprintf("order is already %s", order.Status))
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, apperrors.BadRequest(fmt.Sprintf("cannot move order from %s to %s", order.Status, next))
	}

	// Cash-on-delivery settles on completion; the paid flag goes out in the
	// same write as the status change.
	paymentStatus := ""
	if next == models.OrderCompleted && order.PaymentMethod == models.PaymentCashOnDelivery {
		paymentStatus = models.PaymentStatusPaid
	}

	if err := s.orders.UpdateStatus(ctx, orderID, next, paymentStatus); err != nil {
		return nil, apperrors.Internal(err)
	}
	order.Status = next
	order.UpdatedAt = s.now().UTC()
	if paymentStatus != "" {
		order.PaymentStatus = paymentStatus
	}

	s.log.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("status", string(next)))

	s.join(ctx, order)
	s.notifyBuyer(ctx, order.BuyerID, func(buyer *models.User) notifier.Task {
		if next == models.OrderCompleted {
			return notifier.Delivered(buyer.Name, emailData(order, nil))
		}
		message := notifier.StatusMessage(order.OrderNumber, string(next))
		return notifier.StatusUpdate(buyer.Name, order.OrderNumber, string(next), message)
	})
	return order, nil
}

// Get returns one order with its product, buyer, seller and review details
// joined. Buyers and sellers see only their own orders; admins see all.
func (s *OrderService) Get(ctx context.Context, requesterID, requesterRole, orderID string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, apperrors.Internal(err)
	}
	if requesterRole != models.RoleAdmin && order.BuyerID != requesterID && order.SellerID != requesterID {
		return nil, apperrors.Forbidden("you do not have access to this order")
	}
	s.join(ctx, order)
	if review, err := s.reviews.FindByOrderID(ctx, orderID); err == nil {
		order.Review = review
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("failed to load review for order",
			zap.String("order_id", orderID), zap.Error(err))
	}
	return order, nil
}

// ListForBuyer returns the buyer's own orders, newest first.
func (s *OrderService) ListForBuyer(ctx context.Context, buyerID string, status models.OrderStatus, page, limit int) (*OrderPage, error) {
	return s.list(ctx, repository.OrderFilter{BuyerID: buyerID, Status: status, Page: page, Limit: limit})
}

// ListForSeller returns orders placed against the seller's products.
func (s *OrderService) ListForSeller(ctx context.Context, sellerID string, status models.OrderStatus, page, limit int) (*OrderPage, error) {
	return s.list(ctx, repository.OrderFilter{SellerID: sellerID, Status: status, Page: page, Limit: limit})
}

// ListAll returns every order; admin only.
func (s *OrderService) ListAll(ctx context.Context, status models.OrderStatus, page, limit int) (*OrderPage, error) {
	return s.list(ctx, repository.OrderFilter{Status: status, Page: page, Limit: limit})
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter) (*OrderPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown order status %q", filter.Status))
	}
	filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	for i := range orders {
		s.join(ctx, &orders[i])
	}
	return &OrderPage{
		Orders: orders,
		Total:  total,
		Page:   filter.Page,
		Limit:  filter.Limit,
		Pages:  pages(total, filter.Limit),
	}, nil
}

// join resolves the product, buyer and seller snapshots for a response.
// Join failures degrade the response rather than failing it.
func (s *OrderService) join(ctx context.Context, order *models.Order) {
	for i := range order.Items {
		product, err := s.products.FindByID(ctx, order.Items[i].ProductID)
		if err != nil {
			continue
		}
		summary := product.Summary()
		order.Items[i].Product = &summary
	}
	if buyer, err := s.users.FindByID(ctx, order.BuyerID); err == nil {
		pub := buyer.Public()
		order.Buyer = &pub
	}
	if seller, err := s.users.FindByID(ctx, order.SellerID); err == nil {
		pub := seller.Public()
		order.Seller = &pub
	}
}

// releaseStock reverses conditional decrements after a failed creation.
func (s *OrderService) releaseStock(ctx context.Context, taken []models.OrderItem) {
	for _, item := range taken {
		if err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Error("failed to release stock after aborted order",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}

// notifyBuyer enqueues one best-effort email for the order's buyer. Lookup
// or queue failures are logged and never surface to the caller.
func (s *OrderService) notifyBuyer(ctx context.Context, buyerID string, build func(*models.User) notifier.Task) {
	buyer, err := s.users.FindByID(ctx, buyerID)
	if err != nil {
		s.log.Warn("skipping order notification, buyer lookup failed",
			zap.String("buyer_id", buyerID), zap.Error(err))
		return
	}
	task := build(buyer)
	task.To = buyer.Email
	s.dispatcher.Enqueue(task)
}

func emailData(order *models.Order, summaries []models.ProductSummary) notifier.OrderEmailData {
	items := make([]notifier.OrderEmailItem, 0, len(order.Items))
	for i, item := range order.Items {
		title := item.ProductID
		if summaries != nil && i < len(summaries) {
			title = summaries[i].Title
		} else if item.Product != nil {
			title = item.Product.Title
		}
		items = append(items, notifier.OrderEmailItem{
			Title:    title,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return notifier.OrderEmailData{
		OrderNumber:     order.OrderNumber,
		Items:           items,
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
	}
}

// generateOrderNumber derives a human-quotable token from the creation time
// plus a random suffix. The unique index on it catches the rare collision.
func generateOrderNumber(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := make([]byte, 6)
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			n = big.NewInt(int64(i))
		}
		suffix[i] = alphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%s-%s", ts, suffix)
}
