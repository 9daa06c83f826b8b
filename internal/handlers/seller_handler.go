package handlers

import (
	"io"

	"marketplace/internal/apperrors"
	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/policy"
	"marketplace/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SellerHandler serves the seller workspace: own products, orders, stats and
// image uploads.
type SellerHandler struct {
	products *services.ProductService
	orders   *services.OrderService
	stats    *services.StatsService
	uploads  *services.UploadService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSellerHandler creates a new SellerHandler.
func NewSellerHandler(
	products *services.ProductService,
	orders *services.OrderService,
	stats *services.StatsService,
	uploads *services.UploadService,
	logger *zap.Logger,
) *SellerHandler {
	return &SellerHandler{
		products: products,
		orders:   orders,
		stats:    stats,
		uploads:  uploads,
		validate: newValidator(),
		logger:   orNop(logger),
	}
}

// RegisterRoutes registers the seller routes with the Fiber app.
func (h *SellerHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	seller := router.Group("/seller", authRequired)

	manage := middleware.Authorize(policy.ActionManageProducts)
	seller.Get("/products", manage, h.HandleListProducts)
	seller.Post("/products", manage, h.HandleCreateProduct)
	seller.Put("/products/:id", manage, h.HandleUpdateProduct)
	seller.Delete("/products/:id", manage, h.HandleDeleteProduct)

	seller.Get("/orders", middleware.Authorize(policy.ActionViewSellerOrders), h.HandleListOrders)
	seller.Get("/stats", middleware.Authorize(policy.ActionViewSellerStats), h.HandleStats)
	seller.Post("/uploads", middleware.Authorize(policy.ActionUploadImages), h.HandleUpload)
}

// CreateProductRequest represents the request body for a new product.
type CreateProductRequest struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Description string             `json:"description"`
	Category    string             `json:"category" validate:"max=100"`
	PriceTiers  []models.PriceTier `json:"price_tiers" validate:"required,min=1,dive"`
	Stock       int                `json:"stock" validate:"gte=0"`
	Images      []string           `json:"images" validate:"omitempty,dive,required"`
}

// UpdateProductRequest represents a partial product update. Omitted fields
// are left unchanged.
type UpdateProductRequest struct {
	Name        *string            `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string            `json:"description"`
	Category    *string            `json:"category" validate:"omitempty,max=100"`
	PriceTiers  []models.PriceTier `json:"price_tiers" validate:"omitempty,min=1,dive"`
	Stock       *int               `json:"stock" validate:"omitempty,gte=0"`
	Images      []string           `json:"images" validate:"omitempty,dive,required"`
	IsActive    *bool              `json:"is_active"`
}

// HandleListProducts lists the caller's products, inactive ones included.
func (h *SellerHandler) HandleListProducts(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	products, err := h.products.ListForSeller(c.UserContext(), p.ID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"products": products,
		"total":    len(products),
	})
}

// HandleCreateProduct adds a product owned by the caller.
func (h *SellerHandler) HandleCreateProduct(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	var req CreateProductRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.logger, err)
	}

	product, err := h.products.Create(c.UserContext(), p, services.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceTiers:  req.PriceTiers,
		Stock:       req.Stock,
		Images:      req.Images,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product created successfully",
		"product": product,
	})
}

// HandleUpdateProduct applies a partial update to one of the caller's products.
func (h *SellerHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	var req UpdateProductRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.logger, err)
	}

	product, err := h.products.Update(c.UserContext(), p, c.Params("id"), services.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceTiers:  req.PriceTiers,
		Stock:       req.Stock,
		Images:      req.Images,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product updated successfully",
		"product": product,
	})
}

// HandleDeleteProduct deactivates one of the caller's products.
func (h *SellerHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if err := h.products.Deactivate(c.UserContext(), p, c.Params("id")); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Product deactivated successfully"})
}

// HandleListOrders lists orders that contain the caller's products.
func (h *SellerHandler) HandleListOrders(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	orders, err := h.orders.ListForSeller(c.UserContext(), p)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
		"total":  len(orders),
	})
}

// HandleStats returns the caller's sales dashboard.
func (h *SellerHandler) HandleStats(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	stats, err := h.stats.Seller(c.UserContext(), p.ID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"stats": stats})
}

// HandleUpload stores the multipart "file" field as a product image.
func (h *SellerHandler) HandleUpload(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, h.logger, apperrors.Validation("no file uploaded"))
	}
	if fh.Size > h.uploads.MaxBytes() {
		return writeError(c, h.logger, apperrors.Validation("file is too large (max %d MB)", h.uploads.MaxBytes()>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, h.logger, apperrors.Internal(err, "failed to open upload"))
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.uploads.MaxBytes()+1))
	if err != nil {
		return writeError(c, h.logger, apperrors.Internal(err, "failed to read upload"))
	}

	url, err := h.uploads.UploadImage(c.UserContext(), p, fh.Filename, data)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Image uploaded successfully",
		"url":     url,
	})
}
