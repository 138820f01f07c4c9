package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/haatbazar/marketplace/apperrors"
	"github.com/haatbazar/marketplace/models"
	"github.com/haatbazar/marketplace/repository"
)

// SellerDashboard aggregates a seller's sales picture in one response.
type SellerDashboard struct {
	TotalOrders    int64                    `json:"totalOrders"`
	ActiveProducts int64                    `json:"activeProducts"`
	TotalProducts  int64                    `json:"totalProducts"`
	Revenue        *repository.RevenueStats `json:"revenue"`
	OrdersByStatus []repository.StatusStat  `json:"ordersByStatus"`
	DailyOrders    []repository.DailyStat   `json:"dailyOrders"`
	TopProducts    []repository.TopProduct  `json:"topProducts"`
}

// AdminDashboard is the platform-wide view.
type AdminDashboard struct {
	TotalBuyers    int64                    `json:"totalBuyers"`
	TotalSellers   int64                    `json:"totalSellers"`
	TotalOrders    int64                    `json:"totalOrders"`
	Revenue        *repository.RevenueStats `json:"revenue"`
	OrdersByStatus []repository.StatusStat  `json:"ordersByStatus"`
	DailyOrders    []repository.DailyStat   `json:"dailyOrders"`
	TopSellers     []repository.TopSeller   `json:"topSellers"`
}

type DashboardService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	users    repository.UserRepository
	log      *zap.Logger
}

func NewDashboardService(orders repository.OrderRepository, products repository.ProductRepository, users repository.UserRepository, log *zap.Logger) *DashboardService {
	return &DashboardService{orders: orders, products: products, users: users, log: log}
}

// Seller builds the seller dashboard over the trailing 30 days of volume.
func (s *DashboardService) Seller(ctx context.Context, sellerID string) (*SellerDashboard, error) {
	totalOrders, err := s.orders.Count(ctx, sellerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	active := true
	activeProducts, err := s.products.CountBySeller(ctx, sellerID, &active)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	totalProducts, err := s.products.CountBySeller(ctx, sellerID, nil)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	revenue, err := s.orders.Revenue(ctx, sellerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	byStatus, err := s.orders.StatusStats(ctx, sellerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	daily, err := s.orders.DailyOrders(ctx, sellerID, time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	topProducts, err := s.orders.TopProducts(ctx, sellerID, 5)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &SellerDashboard{
		TotalOrders:    totalOrders,
		ActiveProducts: activeProducts,
		TotalProducts:  totalProducts,
		Revenue:        revenue,
		OrdersByStatus: byStatus,
		DailyOrders:    daily,
		TopProducts:    topProducts,
	}, nil
}

// Admin builds the platform dashboard: account totals, revenue over all
// sellers and the top sellers by completed revenue.
func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	buyers, err := s.users.CountByRole(ctx, models.RoleBuyer)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	sellers, err := s.users.CountByRole(ctx, models.RoleSeller)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	totalOrders, err := s.orders.Count(ctx, "")
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	revenue, err := s.orders.Revenue(ctx, "")
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	byStatus, err := s.orders.StatusStats(ctx, "")
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	daily, err := s.orders.DailyOrders(ctx, "", time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	topSellers, err := s.orders.TopSellers(ctx, 5)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &AdminDashboard{
		TotalBuyers:    buyers,
		TotalSellers:   sellers,
		TotalOrders:    totalOrders,
		Revenue:        revenue,
		OrdersByStatus: byStatus,
		DailyOrders:    daily,
		TopSellers:     topSellers,
	}, nil
}
