package services

import (
	"context"
	"sort"
	"time"

	"marketplace/internal/apperrors"
	"marketplace/internal/models"
	"marketplace/internal/repositories"

	"github.com/shopspring/decimal"
)

// RecentWindow is how far back platform stats count recent activity.
const RecentWindow = 7 * 24 * time.Hour

const topProductsLimit = 5

// StatsService computes dashboard aggregates.
// Revenue counts every order except cancelled ones.
type StatsService struct {
	users    repositories.UserRepository
	products repositories.ProductRepository
	orders   repositories.OrderRepository
}

// NewStatsService creates a new StatsService.
func NewStatsService(users repositories.UserRepository, products repositories.ProductRepository, orders repositories.OrderRepository) *StatsService {
	return &StatsService{users: users, products: products, orders: orders}
}

type UserStats struct {
	Total     int                 `json:"total"`
	Active    int                 `json:"active"`
	Recent    int                 `json:"recent"`
	ByRole    map[models.Role]int `json:"by_role"`
	Sellers   int                 `json:"sellers"`
	Customers int                 `json:"customers"`
}

type ProductStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Recent int `json:"recent"`
}

type OrderStats struct {
	Total    int                        `json:"total"`
	Recent   int                        `json:"recent"`
	ByStatus map[models.OrderStatus]int `json:"by_status"`
}

// PlatformStats is the admin dashboard.
type PlatformStats struct {
	Users    UserStats       `json:"users"`
	Products ProductStats    `json:"products"`
	Orders   OrderStats      `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// TopProduct is a best seller ranked by units sold.
type TopProduct struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// SellerStats is the seller dashboard. Order totals only count the seller's
// own items.
type SellerStats struct {
	TotalProducts  int                        `json:"total_products"`
	ActiveProducts int                        `json:"active_products"`
	TotalOrders    int                        `json:"total_orders"`
	Revenue        decimal.Decimal            `json:"revenue"`
	OrdersByStatus map[models.OrderStatus]int `json:"orders_by_status"`
	TopProducts    []TopProduct               `json:"top_products"`
}

// Platform aggregates every account, product and order. Records created at or
// after since count as recent.
func (s *StatsService) Platform(ctx context.Context, since time.Time) (*PlatformStats, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load users")
	}
	products, err := s.products.List(ctx, repositories.ProductFilter{})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load products")
	}
	orders, err := s.orders.List(ctx, repositories.OrderFilter{})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load orders")
	}

	stats := &PlatformStats{
		Users:   UserStats{Total: len(users), ByRole: map[models.Role]int{}},
		Orders:  OrderStats{Total: len(orders), ByStatus: map[models.OrderStatus]int{}},
		Revenue: decimal.Zero,
	}
	for _, u := range users {
		stats.Users.ByRole[u.Role]++
		if u.IsActive {
			stats.Users.Active++
		}
		if !u.CreatedAt.Before(since) {
			stats.Users.Recent++
		}
	}
	stats.Users.Sellers = stats.Users.ByRole[models.RoleSeller]
	stats.Users.Customers = stats.Users.ByRole[models.RoleCustomer]

	stats.Products.Total = len(products)
	for _, p := range products {
		if p.IsActive {
			stats.Products.Active++
		}
		if !p.CreatedAt.Before(since) {
			stats.Products.Recent++
		}
	}

	for _, o := range orders {
		stats.Orders.ByStatus[o.Status]++
		if !o.CreatedAt.Before(since) {
			stats.Orders.Recent++
		}
		if o.Status != models.OrderStatusCancelled {
			stats.Revenue = stats.Revenue.Add(o.TotalAmount)
		}
	}
	return stats, nil
}

// Seller aggregates the products and order lines of one seller.
func (s *StatsService) Seller(ctx context.Context, sellerID string) (*SellerStats, error) {
	products, err := s.products.List(ctx, repositories.ProductFilter{SellerID: sellerID})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load products")
	}
	orders, err := s.orders.List(ctx, repositories.OrderFilter{})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load orders")
	}

	stats := &SellerStats{
		TotalProducts:  len(products),
		Revenue:        decimal.Zero,
		OrdersByStatus: map[models.OrderStatus]int{},
		TopProducts:    []TopProduct{},
	}
	for _, p := range products {
		if p.IsActive {
			stats.ActiveProducts++
		}
	}

	sold := map[string]*TopProduct{}
	for _, o := range orders {
		if !o.HasSeller(sellerID) {
			continue
		}
		stats.TotalOrders++
		stats.OrdersByStatus[o.Status]++
		for _, it := range o.Items {
			if it.SellerID != sellerID {
				continue
			}
			if o.Status != models.OrderStatusCancelled {
				stats.Revenue = stats.Revenue.Add(it.Subtotal())
			}
			tp, ok := sold[it.ProductID]
			if !ok {
				tp = &TopProduct{ProductID: it.ProductID, Name: it.ProductName}
				sold[it.ProductID] = tp
			}
			tp.Quantity += it.Quantity
		}
	}

	for _, tp := range sold {
		stats.TopProducts = append(stats.TopProducts, *tp)
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		a, b := stats.TopProducts[i], stats.TopProducts[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.Name < b.Name
	})
	if len(stats.TopProducts) > topProductsLimit {
		stats.TopProducts = stats.TopProducts[:topProductsLimit]
	}
	return stats, nil
}
