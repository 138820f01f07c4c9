package services_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/notifier"
	"github.com/haatbazar/marketplace/repository"
	"github.com/haatbazar/marketplace/services"
)

// --- In-memory repositories ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ResetPasswordToken == tokenHash && u.ResetPasswordExpire.After(now) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, role string, _, _ int) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if role == "" || u.Role == role {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]*models.Product

	// failDecrement makes DecrementStock report insufficient stock for the
	// listed ids even when the read shows enough, simulating a concurrent
	// order winning the race between validation and decrement.
	failDecrement map[string]bool
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products:      make(map[string]*models.Product),
		failDecrement: make(map[string]bool),
	}
}

func (f *fakeProductRepo) Create(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *p
	f.products[p.ID] = &clone
	return nil
}

func (f *fakeProductRepo) FindByID(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeProductRepo) Find(_ context.Context, filter repository.ProductFilter) ([]models.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, p := range f.products {
		if filter.SellerID != "" && p.SellerID != filter.SellerID {
			continue
		}
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProductRepo) Save(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *p
	f.products[p.ID] = &clone
	return nil
}

func (f *fakeProductRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

// DecrementStock mirrors the store-level conditional update: it only
// succeeds when the remaining stock covers the quantity.
func (f *fakeProductRepo) DecrementStock(_ context.Context, id string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if f.failDecrement[id] || p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

func (f *fakeProductRepo) IncrementStock(_ context.Context, id string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += quantity
	return nil
}

func (f *fakeProductRepo) CountByCategory(_ context.Context, categoryName string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.products {
		if p.Category == categoryName {
			n++
		}
	}
	return n, nil
}

func (f *fakeProductRepo) CountBySeller(_ context.Context, sellerID string, isActive *bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.products {
		if p.SellerID != sellerID {
			continue
		}
		if isActive != nil && p.IsActive != *isActive {
			continue
		}
		n++
	}
	return n, nil
}

func (f *fakeProductRepo) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

type fakeOrderRepo struct {
	mu         sync.Mutex
	orders     map[string]*models.Order
	numbers    map[string]bool
	insertErr  error
	duplicates int // number of leading inserts to reject as duplicates
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:  make(map[string]*models.Order),
		numbers: make(map[string]bool),
	}
}

func (f *fakeOrderRepo) Insert(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if f.duplicates > 0 {
		f.duplicates--
		return repository.ErrDuplicate
	}
	if f.numbers[order.OrderNumber] {
		return repository.ErrDuplicate
	}
	f.numbers[order.OrderNumber] = true
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (f *fakeOrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if filter.BuyerID != "" && o.BuyerID != filter.BuyerID {
			continue
		}
		if filter.SellerID != "" && o.SellerID != filter.SellerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id string, status models.OrderStatus, paymentStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	if paymentStatus != "" {
		o.PaymentStatus = paymentStatus
	}
	return nil
}

func (f *fakeOrderRepo) Count(_ context.Context, sellerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, o := range f.orders {
		if sellerID == "" || o.SellerID == sellerID {
			n++
		}
	}
	return n, nil
}

func (f *fakeOrderRepo) StatusStats(_ context.Context, _ string) ([]repository.StatusStat, error) {
	return nil, nil
}

func (f *fakeOrderRepo) Revenue(_ context.Context, _ string) (*repository.RevenueStats, error) {
	return &repository.RevenueStats{}, nil
}

func (f *fakeOrderRepo) DailyOrders(_ context.Context, _ string, _ time.Time) ([]repository.DailyStat, error) {
	return nil, nil
}

func (f *fakeOrderRepo) TopProducts(_ context.Context, _ string, _ int) ([]repository.TopProduct, error) {
	return nil, nil
}

func (f *fakeOrderRepo) TopSellers(_ context.Context, _ int) ([]repository.TopSeller, error) {
	return nil, nil
}

type fakeReviewRepo struct {
	mu      sync.Mutex
	byOrder map[string]*models.Review
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{byOrder: make(map[string]*models.Review)}
}

func (f *fakeReviewRepo) Create(_ context.Context, review *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byOrder[review.OrderID]; ok {
		return repository.ErrDuplicate
	}
	clone := *review
	f.byOrder[review.OrderID] = &clone
	return nil
}

func (f *fakeReviewRepo) FindByOrderID(_ context.Context, orderID string) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byOrder[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (f *fakeReviewRepo) ListByProduct(_ context.Context, productID string) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Review
	for _, r := range f.byOrder {
		if r.ProductID == productID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories map[string]*models.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[string]*models.Category)}
}

func (f *fakeCategoryRepo) Create(_ context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.categories {
		if existing.Slug == c.Slug {
			return repository.ErrDuplicateSlug
		}
	}
	for _, existing := range f.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return repository.ErrDuplicate
		}
	}
	clone := *c
	f.categories[c.ID] = &clone
	return nil
}

func (f *fakeCategoryRepo) FindByID(_ context.Context, id string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (f *fakeCategoryRepo) FindByName(_ context.Context, name string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if strings.EqualFold(c.Name, name) {
			clone := *c
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategoryRepo) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Slug == slug {
			clone := *c
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategoryRepo) List(_ context.Context, _ string, isActive *bool) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Category
	for _, c := range f.categories {
		if isActive != nil && c.IsActive != *isActive {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCategoryRepo) Save(_ context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[c.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *c
	f.categories[c.ID] = &clone
	return nil
}

func (f *fakeCategoryRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.categories, id)
	return nil
}

// --- Email capture ---

type captureSender struct {
	mu   sync.Mutex
	sent []notifier.Task
	fail bool
	seen chan struct{}
}

func newCaptureSender() *captureSender {
	return &captureSender{seen: make(chan struct{}, 64)}
}

func (s *captureSender) SendEmail(_ context.Context, to, subject, body string) (notifier.SendResult, error) {
	s.mu.Lock()
	s.sent = append(s.sent, notifier.Task{To: to, Subject: subject, Body: body})
	s.mu.Unlock()
	s.seen <- struct{}{}
	if s.fail {
		return notifier.SendResult{}, context.DeadlineExceeded
	}
	return notifier.SendResult{MessageID: "test"}, nil
}

func (s *captureSender) wait(t testingT, n int) {
	for i := 0; i < n; i++ {
		select {
		case <-s.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d notifications", n)
		}
	}
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type testingT interface {
	Fatalf(format string, args ...interface{})
}

// --- Shared helpers ---

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestDispatcher(sender notifier.EmailSender) *notifier.Dispatcher {
	d := notifier.NewDispatcher(sender, testLogger(), notifier.DispatcherConfig{
		Workers:     1,
		QueueSize:   16,
		SendTimeout: time.Second,
	})
	d.Start()
	return d
}

func seedProduct(repo *fakeProductRepo, id, sellerID string, price float64, stock int) *models.Product {
	p := &models.Product{
		ID:       id,
		Title:    "Product " + id,
		Category: "gadgets",
		Price:    price,
		SellerID: sellerID,
		Stock:    stock,
		IsActive: true,
	}
	_ = repo.Create(context.Background(), p)
	return p
}

func seedUser(repo *fakeUserRepo, id, role string) *models.User {
	u := &models.User{
		ID:    id,
		Name:  "User " + id,
		Email: id + "@example.com",
		Role:  role,
	}
	_ = repo.Create(context.Background(), u)
	return u
}

func newOrderService(orders *fakeOrderRepo, products *fakeProductRepo, users *fakeUserRepo, dispatcher *notifier.Dispatcher) *services.OrderService {
	return services.NewOrderService(orders, products, users, newFakeReviewRepo(), dispatcher, testLogger())
}
