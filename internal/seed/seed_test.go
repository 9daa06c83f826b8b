package seed

import (
	"context"
	"testing"

	"marketplace/internal/pricing"
	"marketplace/internal/repositories"
	"marketplace/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRunSeedsOnce(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	users := services.NewUserService(store.Users, bcrypt.MinCost, nil)
	products := services.NewProductService(store.Products, store.Users, nil)

	res, err := Run(ctx, users, products, nil)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, len(DemoAccounts), res.Users)
	assert.Equal(t, 5, res.Products)

	catalog, err := products.ListActive(ctx, services.CatalogQuery{Category: "Shoes"})
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	for _, p := range catalog {
		require.NotNil(t, p.Seller)
		assert.Equal(t, "Moussa", p.Seller.FirstName)
	}

	again, err := Run(ctx, users, products, nil)
	require.NoError(t, err)
	assert.True(t, again.Skipped)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(DemoAccounts))
}

func TestDemoTiersAreContiguous(t *testing.T) {
	for _, p := range demoProducts() {
		require.NoError(t, pricing.Validate(p.PriceTiers), p.Name)
		last := p.PriceTiers[len(p.PriceTiers)-1]
		assert.Nil(t, last.MaxQuantity, p.Name)
	}

	shoes := demoProducts()[0]
	cases := map[int]int64{1: 80000, 9: 80000, 10: 70000, 49: 70000, 50: 60000, 299: 60000, 300: 50000}
	for qty, want := range cases {
		price, matched, err := pricing.Resolve(shoes.PriceTiers, qty)
		require.NoError(t, err)
		assert.True(t, matched, "qty %d", qty)
		assert.True(t, price.Equal(decimal.NewFromInt(want)), "qty %d", qty)
	}
}

