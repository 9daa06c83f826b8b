// Package seed loads demo accounts and a small tiered catalog into an empty
// store.
package seed

import (
	"context"
	"fmt"

	"marketplace/internal/models"
	"marketplace/internal/policy"
	"marketplace/internal/services"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Account is a demo login.
type Account struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.Role
}

// DemoAccounts are created in order; the seller owns every demo product.
var DemoAccounts = []Account{
	{Email: "admin@marketplace.local", Password: "admin123", FirstName: "Platform", LastName: "Admin", Role: models.RoleAdmin},
	{Email: "seller@marketplace.local", Password: "seller123", FirstName: "Moussa", LastName: "Bah", Role: models.RoleSeller},
	{Email: "customer@marketplace.local", Password: "customer123", FirstName: "Awa", LastName: "Diallo", Role: models.RoleCustomer},
}

// Result summarizes a seeding run.
type Result struct {
	Skipped  bool
	Users    int
	Products int
}

// Run seeds the store through the services. A store that already has
// accounts is left untouched.
func Run(ctx context.Context, users *services.UserService, products *services.ProductService, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	existing, err := users.List(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(existing) > 0 {
		logger.Info("store already has accounts, skipping seed", zap.Int("users", len(existing)))
		return Result{Skipped: true}, nil
	}

	var res Result
	var seller *models.User
	for _, a := range DemoAccounts {
		u, err := users.Create(ctx, services.CreateUserInput{
			Email:     a.Email,
			Password:  a.Password,
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Role:      a.Role,
		})
		if err != nil {
			return res, fmt.Errorf("seed account %s: %w", a.Email, err)
		}
		res.Users++
		if u.Role == models.RoleSeller && seller == nil {
			seller = u
		}
	}

	owner := policy.Principal{ID: seller.ID, Email: seller.Email, Role: seller.Role}
	for _, in := range demoProducts() {
		if _, err := products.Create(ctx, owner, in); err != nil {
			return res, fmt.Errorf("seed product %s: %w", in.Name, err)
		}
		res.Products++
	}

	logger.Info("demo data seeded", zap.Int("users", res.Users), zap.Int("products", res.Products))
	return res, nil
}

func tiers(bounds []int, prices ...int64) []models.PriceTier {
	out := make([]models.PriceTier, len(prices))
	for i, p := range prices {
		out[i] = models.PriceTier{MinQuantity: bounds[i], Price: decimal.NewFromInt(p)}
		if i+1 < len(bounds) {
			upper := bounds[i+1] - 1
			out[i].MaxQuantity = &upper
		}
	}
	return out
}

func demoProducts() []services.ProductInput {
	return []services.ProductInput{
		{
			Name:        "Leather dress shoes",
			Description: "Genuine leather shoes for formal occasions",
			Category:    "Shoes",
			Stock:       500,
			PriceTiers:  tiers([]int{1, 10, 50, 300}, 80000, 70000, 60000, 50000),
			Images:      []string{"/formal-leather-shoes.png"},
		},
		{
			Name:        "Leather handbag",
			Description: "High quality leather handbag",
			Category:    "Accessories",
			Stock:       200,
			PriceTiers:  tiers([]int{1, 5, 20, 100}, 120000, 100000, 85000, 75000),
			Images:      []string{"/elegant-leather-handbag.png"},
		},
		{
			Name:        "Classic watch",
			Description: "Water resistant watch with a stainless steel strap",
			Category:    "Watches",
			Stock:       200,
			PriceTiers:  tiers([]int{1, 5, 20, 100}, 120000, 100000, 85000, 75000),
			Images:      []string{"/classic-watch.png"},
		},
		{
			Name:        "Office shoes",
			Description: "Leather shoes for the office and special events",
			Category:    "Shoes",
			Stock:       300,
			PriceTiers:  tiers([]int{1, 5, 20, 100}, 150000, 130000, 110000, 95000),
			Images:      []string{"/formal-leather-shoes.png"},
		},
		{
			Name:        "Modern backpack",
			Description: "Roomy backpack for work and travel",
			Category:    "Accessories",
			Stock:       250,
			PriceTiers:  tiers([]int{1, 10, 30, 100}, 95000, 85000, 75000, 65000),
			Images:      []string{"/modern-backpack.png"},
		},
	}
}
