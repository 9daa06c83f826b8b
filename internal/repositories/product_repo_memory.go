package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"marketplace/internal/models"

	"github.com/google/uuid"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]models.Product),
	}
}

// List returns the products matching filter, newest first.
func (r *MemoryProductRepository) List(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.SellerID != "" && p.SellerID != filter.SellerID {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		productList = append(productList, cloneProduct(p))
	}
	sort.Slice(productList, func(i, j int) bool {
		return productList[i].CreatedAt.After(productList[j].CreatedAt)
	})
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	product = cloneProduct(product)
	return &product, nil
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if _, exists := r.products[product.ID]; exists {
		return fmt.Errorf("product %s: %w", product.ID, ErrDuplicate)
	}
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

// Update replaces an existing product, keeping its live stock.
func (r *MemoryProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product %s: %w", product.ID, ErrNotFound)
	}
	product.Stock = existing.Stock
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

// SetStock replaces the stock if nobody changed it since it was read as from.
func (r *MemoryProductRepository) SetStock(_ context.Context, id string, from, to int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return false, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if product.Stock != from {
		return false, nil
	}
	product.Stock = to
	product.UpdatedAt = time.Now()
	r.products[id] = product
	return true, nil
}

// DecrementStock takes qty units if they are available.
func (r *MemoryProductRepository) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return false, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if product.Stock < qty {
		return false, nil
	}
	product.Stock -= qty
	product.UpdatedAt = time.Now()
	r.products[id] = product
	return true, nil
}

// IncrementStock returns qty units to stock.
func (r *MemoryProductRepository) IncrementStock(_ context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	product.Stock += qty
	product.UpdatedAt = time.Now()
	r.products[id] = product
	return nil
}

func cloneProduct(p models.Product) models.Product {
	p.PriceTiers = append(p.PriceTiers[:0:0], p.PriceTiers...)
	for i, t := range p.PriceTiers {
		if t.MaxQuantity != nil {
			upper := *t.MaxQuantity
			p.PriceTiers[i].MaxQuantity = &upper
		}
	}
	p.Images = append(p.Images[:0:0], p.Images...)
	return p
}
