package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/middleware"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/notifier"
	"github.com/haatbazar/marketplace/repository"
	"github.com/haatbazar/marketplace/services"
)

// --- In-memory stores ---

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) FindByResetToken(_ context.Context, _ string, _ time.Time) (*models.User, error) {
	return nil, repository.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) List(_ context.Context, _ string, _, _ int) ([]models.User, int64, error) {
	return nil, 0, nil
}

func (m *memUsers) CountByRole(_ context.Context, _ string) (int64, error) { return 0, nil }

type memProducts struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func (m *memProducts) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

func (m *memProducts) FindByID(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memProducts) Find(_ context.Context, _ repository.ProductFilter) ([]models.Product, int64, error) {
	return nil, 0, nil
}

func (m *memProducts) Save(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

func (m *memProducts) DecrementStock(_ context.Context, id string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

func (m *memProducts) IncrementStock(_ context.Context, id string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.Stock += quantity
	}
	return nil
}

func (m *memProducts) CountByCategory(_ context.Context, _ string) (int64, error) { return 0, nil }

func (m *memProducts) CountBySeller(_ context.Context, _ string, _ *bool) (int64, error) {
	return 0, nil
}

type memOrders struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func (m *memOrders) Insert(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *o
	m.orders[o.ID] = &clone
	return nil
}

func (m *memOrders) FindByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *memOrders) List(_ context.Context, _ repository.OrderFilter) ([]models.Order, int64, error) {
	return nil, 0, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, status models.OrderStatus, paymentStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	if paymentStatus != "" {
		o.PaymentStatus = paymentStatus
	}
	return nil
}

func (m *memOrders) Count(_ context.Context, _ string) (int64, error) { return 0, nil }

func (m *memOrders) StatusStats(_ context.Context, _ string) ([]repository.StatusStat, error) {
	return nil, nil
}

func (m *memOrders) Revenue(_ context.Context, _ string) (*repository.RevenueStats, error) {
	return &repository.RevenueStats{}, nil
}

func (m *memOrders) DailyOrders(_ context.Context, _ string, _ time.Time) ([]repository.DailyStat, error) {
	return nil, nil
}

func (m *memOrders) TopProducts(_ context.Context, _ string, _ int) ([]repository.TopProduct, error) {
	return nil, nil
}

func (m *memOrders) TopSellers(_ context.Context, _ int) ([]repository.TopSeller, error) {
	return nil, nil
}

type memReviews struct {
	mu      sync.Mutex
	reviews map[string]*models.Review
}

func (m *memReviews) Create(_ context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[r.OrderID]; ok {
		return repository.ErrDuplicate
	}
	clone := *r
	m.reviews[r.OrderID] = &clone
	return nil
}

func (m *memReviews) FindByOrderID(_ context.Context, orderID string) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *memReviews) ListByProduct(_ context.Context, _ string) ([]models.Review, error) {
	return nil, nil
}

// --- Test harness ---

type harness struct {
	router   *gin.Engine
	tokens   *services.TokenService
	users    *memUsers
	products *memProducts
	orders   *memOrders
	reviews  *memReviews
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	users := &memUsers{users: make(map[string]*models.User)}
	products := &memProducts{products: make(map[string]*models.Product)}
	orders := &memOrders{orders: make(map[string]*models.Order)}
	reviews := &memReviews{reviews: make(map[string]*models.Review)}

	dispatcher := notifier.NewDispatcher(nil, log, notifier.DefaultDispatcherConfig())
	dispatcher.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dispatcher.Stop(ctx)
	})

	tokens := services.NewTokenService("access-secret", "refresh-secret")
	orderSvc := services.NewOrderService(orders, products, users, reviews, dispatcher, log)
	orderCtl := NewOrderController(orderSvc, log)
	sellerCtl := NewSellerController(nil, orderSvc, nil, nil, log)

	r := gin.New()
	authenticated := middleware.Authenticate(tokens, users)
	r.POST("/orders", authenticated, middleware.Authorize(models.RoleBuyer), orderCtl.Create)
	r.GET("/orders/:id", authenticated, orderCtl.Get)
	r.PATCH("/seller/orders/:id/status", authenticated, middleware.Authorize(models.RoleSeller), sellerCtl.UpdateOrderStatus)

	return &harness{router: r, tokens: tokens, users: users, products: products, orders: orders, reviews: reviews}
}

func (h *harness) addUser(t *testing.T, id, role string) string {
	t.Helper()
	err := h.users.Create(context.Background(), &models.User{
		ID:    id,
		Name:  "User " + id,
		Email: id + "@example.com",
		Role:  role,
	})
	require.NoError(t, err)

	pair, err := h.tokens.GenerateTokenPair(id, id+"@example.com", role)
	require.NoError(t, err)
	return pair.AccessToken
}

func (h *harness) addProduct(t *testing.T, id, sellerID string, price float64, stock int) {
	t.Helper()
	err := h.products.Create(context.Background(), &models.Product{
		ID:       id,
		Title:    "Product " + id,
		Price:    price,
		SellerID: sellerID,
		Stock:    stock,
		IsActive: true,
	})
	require.NoError(t, err)
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func createOrderBody(productID string, qty int) gin.H {
	return gin.H{
		"items":           []gin.H{{"productId": productID, "quantity": qty}},
		"shippingAddress": "12 Gulshan Avenue, Dhaka",
		"paymentMethod":   "cash-on-delivery",
	}
}

// --- Tests ---

func TestOrderEndpoint_CreateSuccess(t *testing.T) {
	h := newHarness(t)
	buyerToken := h.addUser(t, "buyer1", models.RoleBuyer)
	h.addProduct(t, "p1", "seller1", 100, 5)

	w := h.do(http.MethodPost, "/orders", buyerToken, createOrderBody("p1", 2))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)

	var data struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 200.0, data.Order.TotalAmount)
	assert.Equal(t, models.OrderPending, data.Order.Status)
	assert.NotEmpty(t, data.Order.OrderNumber)
}

func TestOrderEndpoint_CreateRequiresAuth(t *testing.T) {
	h := newHarness(t)
	h.addProduct(t, "p1", "seller1", 100, 5)

	w := h.do(http.MethodPost, "/orders", "", createOrderBody("p1", 1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)
}

func TestOrderEndpoint_CreateRejectsSellers(t *testing.T) {
	h := newHarness(t)
	sellerToken := h.addUser(t, "seller1", models.RoleSeller)
	h.addProduct(t, "p1", "seller1", 100, 5)

	w := h.do(http.MethodPost, "/orders", sellerToken, createOrderBody("p1", 1))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrderEndpoint_CreateInsufficientStock(t *testing.T) {
	h := newHarness(t)
	buyerToken := h.addUser(t, "buyer1", models.RoleBuyer)
	h.addProduct(t, "p1", "seller1", 100, 1)

	w := h.do(http.MethodPost, "/orders", buyerToken, createOrderBody("p1", 3))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)
}

func TestOrderEndpoint_CreateValidatesBody(t *testing.T) {
	h := newHarness(t)
	buyerToken := h.addUser(t, "buyer1", models.RoleBuyer)

	w := h.do(http.MethodPost, "/orders", buyerToken, gin.H{
		"items":           []gin.H{},
		"shippingAddress": "somewhere",
		"paymentMethod":   "cash-on-delivery",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/orders", buyerToken, gin.H{
		"items":           []gin.H{{"productId": "p1", "quantity": 1}},
		"shippingAddress": "somewhere",
		"paymentMethod":   "wire-transfer",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown payment method rejected")
}

func TestOrderEndpoint_BannedUserRejected(t *testing.T) {
	h := newHarness(t)
	buyerToken := h.addUser(t, "buyer1", models.RoleBuyer)
	h.addProduct(t, "p1", "seller1", 100, 5)

	user, err := h.users.FindByID(context.Background(), "buyer1")
	require.NoError(t, err)
	user.IsBanned = true
	require.NoError(t, h.users.Update(context.Background(), user))

	w := h.do(http.MethodPost, "/orders", buyerToken, createOrderBody("p1", 1))
	assert.Equal(t, http.StatusForbidden, w.Code, "valid token but banned account")
}

func TestOrderEndpoint_StatusUpdateFlow(t *testing.T) {
	h := newHarness(t)
	buyerToken := h.addUser(t, "buyer1", models.RoleBuyer)
	sellerToken := h.addUser(t, "seller1", models.RoleSeller)
	h.addProduct(t, "p1", "seller1", 100, 5)

	w := h.do(http.MethodPost, "/orders", buyerToken, createOrderBody("p1", 1))
	require.Equal(t, http.StatusCreated, w.Code)

	var data struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	orderID := data.Order.ID

	statusPath := fmt.Sprintf("/seller/orders/%s/status", orderID)

	w = h.do(http.MethodPatch, statusPath, sellerToken, gin.H{"status": "approved"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Skipping straight to completed from approved is not a legal move.
	w = h.do(http.MethodPatch, statusPath, sellerToken, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The buyer has no seller role, so the route itself is closed.
	w = h.do(http.MethodPatch, statusPath, buyerToken, gin.H{"status": "processing"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrderEndpoint_GetAccessControl(t *testing.T) {
	h := newHarness(t)
	buyerToken := h.addUser(t, "buyer1", models.RoleBuyer)
	strangerToken := h.addUser(t, "buyer2", models.RoleBuyer)
	h.addProduct(t, "p1", "seller1", 100, 5)

	w := h.do(http.MethodPost, "/orders", buyerToken, createOrderBody("p1", 1))
	require.Equal(t, http.StatusCreated, w.Code)
	var data struct {
		Order models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))

	w = h.do(http.MethodGet, "/orders/"+data.Order.ID, buyerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/orders/"+data.Order.ID, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
