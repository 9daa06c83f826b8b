package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *repositories.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repositories.OpenGORM("sqlite", dsn)
	require.NoError(t, err)
	store := repositories.NewGORMStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestGORMProductRepository_RoundTripTiers(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	max9 := 9
	p := newProduct("Rice 5kg", 50)
	p.PriceTiers = []models.PriceTier{
		{MinQuantity: 1, MaxQuantity: &max9, Price: decimal.NewFromInt(80000)},
		{MinQuantity: 10, Price: decimal.NewFromInt(70000)},
	}
	p.Images = []string{"/uploads/rice.png"}
	require.NoError(t, store.Products.Create(ctx, p))

	got, err := store.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.PriceTiers, 2)
	require.NotNil(t, got.PriceTiers[0].MaxQuantity)
	assert.Equal(t, 9, *got.PriceTiers[0].MaxQuantity)
	assert.Nil(t, got.PriceTiers[1].MaxQuantity)
	assert.True(t, got.PriceTiers[1].Price.Equal(decimal.NewFromInt(70000)))
	assert.Equal(t, []string{"/uploads/rice.png"}, []string(got.Images))
}

func TestGORMProductRepository_UpdateAndDeactivate(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	p := newProduct("Flour", 4)
	require.NoError(t, store.Products.Create(ctx, p))

	p.IsActive = false
	p.Name = "Flour 1kg"
	require.NoError(t, store.Products.Update(ctx, p))

	got, err := store.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "Flour 1kg", got.Name)

	active, err := store.Products.List(ctx, repositories.ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)

	missing := newProduct("Ghost", 1)
	missing.ID = uuid.NewString()
	assert.ErrorIs(t, store.Products.Update(ctx, missing), repositories.ErrNotFound)
}

func TestGORMProductRepository_ConditionalDecrement(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	p := newProduct("Salt", 2)
	require.NoError(t, store.Products.Create(ctx, p))

	ok, err := store.Products.DecrementStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Products.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Products.IncrementStock(ctx, p.ID, 1))
	got, _ := store.Products.GetByID(ctx, p.ID)
	assert.Equal(t, 1, got.Stock)
}

func TestGORMProductRepository_UpdateLeavesStockAlone(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	p := newProduct("Sugar", 10)
	require.NoError(t, store.Products.Create(ctx, p))

	stale, err := store.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	ok, err := store.Products.DecrementStock(ctx, p.ID, 5)
	require.NoError(t, err)
	require.True(t, ok)

	stale.Name = "Cane sugar"
	stale.IsActive = false
	require.NoError(t, store.Products.Update(ctx, stale))

	got, err := store.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cane sugar", got.Name)
	assert.False(t, got.IsActive)
	assert.Equal(t, 5, got.Stock)

	ok, err = store.Products.SetStock(ctx, p.ID, 10, 40)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = store.Products.SetStock(ctx, p.ID, 5, 40)
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ = store.Products.GetByID(ctx, p.ID)
	assert.Equal(t, 40, got.Stock)

	_, err = store.Products.SetStock(ctx, uuid.NewString(), 0, 1)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestGORMOrderRepository_UpdateStatusComparesFirst(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	o := &models.Order{CustomerID: "c1", Status: models.OrderStatusShipped, TotalAmount: decimal.NewFromInt(10)}
	require.NoError(t, store.Orders.Create(ctx, o))

	delivered := time.Now().UTC().Truncate(time.Second)
	ok, err := store.Orders.UpdateStatus(ctx, &models.Order{ID: o.ID, Status: models.OrderStatusDelivered, DeliveredAt: &delivered}, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Orders.UpdateStatus(ctx, &models.Order{ID: o.ID, Status: models.OrderStatusCancelled}, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, got.DeliveredAt.Equal(delivered))
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(10)))

	_, err = store.Orders.UpdateStatus(ctx, &models.Order{ID: uuid.NewString()}, models.OrderStatusPending)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestGORMUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	require.NoError(t, store.Users.Create(ctx, &models.User{Email: "dup@example.com", PasswordHash: "x", Role: models.RoleCustomer, IsActive: true}))

	err := store.Users.Create(ctx, &models.User{Email: "dup@example.com", PasswordHash: "y", Role: models.RoleCustomer, IsActive: true})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	_, err = store.Users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestGORMTxManager_RollsBack(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	p := newProduct("Oil", 5)
	require.NoError(t, store.Products.Create(ctx, p))

	boom := errors.New("boom")
	err := store.Tx.WithinTx(ctx, func(r repositories.TxRepos) error {
		if _, err := r.Products().DecrementStock(ctx, p.ID, 4); err != nil {
			return err
		}
		if err := r.Orders().Create(ctx, &models.Order{
			CustomerID:  "c1",
			Status:      models.OrderStatusPending,
			TotalAmount: decimal.NewFromInt(4000),
			Items:       []models.OrderItem{{ProductID: p.ID, Quantity: 4, UnitPrice: decimal.NewFromInt(1000)}},
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := store.Products.GetByID(ctx, p.ID)
	assert.Equal(t, 5, got.Stock)
	orders, err := store.Orders.List(ctx, repositories.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGORMOrderRepository_TotalAmountKeepsDecimals(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	o := &models.Order{
		CustomerID:  "c1",
		Status:      models.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("1234.50"),
	}
	require.NoError(t, store.Orders.Create(ctx, o))

	got, err := store.Orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("1234.5")))
	assert.Empty(t, got.Items)
}
