package services

import (
	"context"
	"errors"
	"strings"

	"marketplace/internal/apperrors"
	"marketplace/internal/models"
	"marketplace/internal/policy"
	"marketplace/internal/pricing"
	"marketplace/internal/repositories"

	"go.uber.org/zap"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo   repositories.ProductRepository
	users  repositories.UserRepository
	logger *zap.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, users repositories.UserRepository, logger *zap.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		users:  users,
		logger: orNop(logger),
	}
}

// CatalogQuery narrows the public catalog.
type CatalogQuery struct {
	Category string
	Search   string
}

// ProductInput is the payload for creating a product.
type ProductInput struct {
	Name        string
	Description string
	Category    string
	PriceTiers  []models.PriceTier
	Stock       int
	Images      []string
}

// ProductPatch lists the product fields a seller may change. Nil fields are kept.
type ProductPatch struct {
	Name        *string
	Description *string
	Category    *string
	PriceTiers  []models.PriceTier
	Stock       *int
	Images      []string
	IsActive    *bool
}

// ListActive returns the public catalog with seller summaries.
func (s *ProductService) ListActive(ctx context.Context, q CatalogQuery) ([]models.ProductWithSeller, error) {
	products, err := s.repo.List(ctx, repositories.ProductFilter{
		ActiveOnly: true,
		Category:   q.Category,
		Search:     q.Search,
	})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list products")
	}
	return s.withSellers(ctx, products), nil
}

// GetActive returns an active product with its seller. Inactive products are
// reported as not found.
func (s *ProductService) GetActive(ctx context.Context, id string) (*models.ProductWithSeller, error) {
	product, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperrors.NotFound("product not found")
	}
	return &s.withSellers(ctx, []models.Product{*product})[0], nil
}

// ListForSeller returns every product of a seller, inactive ones included.
func (s *ProductService) ListForSeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	products, err := s.repo.List(ctx, repositories.ProductFilter{SellerID: sellerID})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list seller products")
	}
	return products, nil
}

// ListAll returns every product with its seller, for admins.
func (s *ProductService) ListAll(ctx context.Context) ([]models.ProductWithSeller, error) {
	products, err := s.repo.List(ctx, repositories.ProductFilter{})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list products")
	}
	return s.withSellers(ctx, products), nil
}

// Create adds a product owned by the caller.
func (s *ProductService) Create(ctx context.Context, owner policy.Principal, in ProductInput) (*models.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.Validation("name is required")
	}
	if in.Stock < 0 {
		return nil, apperrors.Validation("stock cannot be negative")
	}
	if err := pricing.Validate(in.PriceTiers); err != nil {
		return nil, apperrors.ValidationFields("invalid price tiers", map[string]string{"price_tiers": err.Error()})
	}

	product := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    in.Category,
		PriceTiers:  in.PriceTiers,
		Stock:       in.Stock,
		SellerID:    owner.ID,
		IsActive:    true,
		Images:      in.Images,
	}
	if product.Images == nil {
		product.Images = []string{}
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, apperrors.Internal(err, "failed to create product")
	}
	s.logger.Info("product created", zap.String("product_id", product.ID), zap.String("seller_id", owner.ID))
	return product, nil
}

// Update applies patch to a product the caller owns, or any product for admins.
func (s *ProductService) Update(ctx context.Context, caller policy.Principal, id string, patch ProductPatch) (*models.Product, error) {
	product, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.Validation("name cannot be empty")
		}
		product.Name = name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.PriceTiers != nil {
		if err := pricing.Validate(patch.PriceTiers); err != nil {
			return nil, apperrors.ValidationFields("invalid price tiers", map[string]string{"price_tiers": err.Error()})
		}
		product.PriceTiers = patch.PriceTiers
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, apperrors.Validation("stock cannot be negative")
	}
	if patch.Images != nil {
		product.Images = patch.Images
	}
	if patch.IsActive != nil {
		product.IsActive = *patch.IsActive
	}

	// Stock is set against the value read, so units sold since then are
	// never silently restored.
	if patch.Stock != nil && *patch.Stock != product.Stock {
		set, err := s.repo.SetStock(ctx, id, product.Stock, *patch.Stock)
		if err != nil {
			return nil, apperrors.Internal(err, "failed to update stock")
		}
		if !set {
			return nil, apperrors.Conflict("stock of product %s changed while editing, reload and retry", id)
		}
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, apperrors.Internal(err, "failed to update product")
	}
	return s.get(ctx, id)
}

// Deactivate soft-deletes a product. Existing orders keep their snapshots.
func (s *ProductService) Deactivate(ctx context.Context, caller policy.Principal, id string) error {
	product, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return nil
	}
	product.IsActive = false
	if err := s.repo.Update(ctx, product); err != nil {
		return apperrors.Internal(err, "failed to deactivate product")
	}
	s.logger.Info("product deactivated", zap.String("product_id", id), zap.String("by", caller.ID))
	return nil
}

func (s *ProductService) get(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("product not found")
		}
		return nil, apperrors.Internal(err, "failed to load product")
	}
	return product, nil
}

func (s *ProductService) owned(ctx context.Context, caller policy.Principal, id string) (*models.Product, error) {
	product, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.OwnsOrAdmin(caller, product.SellerID) {
		return nil, apperrors.Forbidden("you do not own this product")
	}
	return product, nil
}

// withSellers attaches seller summaries. A seller that cannot be loaded is
// left nil rather than failing the listing.
func (s *ProductService) withSellers(ctx context.Context, products []models.Product) []models.ProductWithSeller {
	sellers := make(map[string]*models.SellerSummary)
	out := make([]models.ProductWithSeller, 0, len(products))
	for _, p := range products {
		summary, seen := sellers[p.SellerID]
		if !seen {
			if u, err := s.users.GetByID(ctx, p.SellerID); err == nil {
				summary = u.Summary()
			} else if !errors.Is(err, repositories.ErrNotFound) {
				s.logger.Warn("failed to load seller", zap.String("seller_id", p.SellerID), zap.Error(err))
			}
			sellers[p.SellerID] = summary
		}
		out = append(out, models.ProductWithSeller{Product: p, Seller: summary})
	}
	return out
}
