package handlers

import (
	"time"

	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/policy"
	"marketplace/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler serves platform administration.
type AdminHandler struct {
	users    *services.UserService
	products *services.ProductService
	orders   *services.OrderService
	stats    *services.StatsService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	users *services.UserService,
	products *services.ProductService,
	orders *services.OrderService,
	stats *services.StatsService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		users:    users,
		products: products,
		orders:   orders,
		stats:    stats,
		validate: newValidator(),
		logger:   orNop(logger),
	}
}

// RegisterRoutes registers the admin routes with the Fiber app.
func (h *AdminHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	admin := router.Group("/admin", authRequired)

	manageUsers := middleware.Authorize(policy.ActionManageUsers)
	admin.Get("/users", manageUsers, h.HandleListUsers)
	admin.Post("/users", manageUsers, h.HandleCreateUser)
	admin.Put("/users/:id", manageUsers, h.HandleUpdateUser)
	admin.Delete("/users/:id", manageUsers, h.HandleDeleteUser)

	admin.Get("/products", middleware.Authorize(policy.ActionViewAllProducts), h.HandleListProducts)
	admin.Get("/orders", middleware.Authorize(policy.ActionViewAllOrders), h.HandleListOrders)
	admin.Get("/stats", middleware.Authorize(policy.ActionViewPlatformStats), h.HandleStats)
}

// CreateUserRequest represents an account created by an admin.
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=customer seller admin"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// UpdateUserRequest represents a partial account update.
type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1"`
	Role      *string `json:"role" validate:"omitempty,oneof=customer seller admin"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	IsActive  *bool   `json:"is_active"`
}

func (h *AdminHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"users": users,
		"total": len(users),
	})
}

func (h *AdminHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.logger, err)
	}
	user, err := h.users.Create(c.UserContext(), services.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.Role(req.Role),
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    user,
	})
}

func (h *AdminHandler) HandleUpdateUser(c *fiber.Ctx) error {
	var req UpdateUserRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.logger, err)
	}
	patch := services.UserPatch{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		IsActive:  req.IsActive,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		patch.Role = &role
	}

	user, err := h.users.Update(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"user":    user,
	})
}

// HandleDeleteUser deactivates an account; records are never removed.
func (h *AdminHandler) HandleDeleteUser(c *fiber.Ctx) error {
	if err := h.users.Deactivate(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "User deactivated successfully"})
}

func (h *AdminHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.products.ListAll(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"products": products,
		"total":    len(products),
	})
}

func (h *AdminHandler) HandleListOrders(c *fiber.Ctx) error {
	orders, err := h.orders.ListAll(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
		"total":  len(orders),
	})
}

// HandleStats returns the platform dashboard; "recent" covers the last seven days.
func (h *AdminHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.stats.Platform(c.UserContext(), time.Now().Add(-services.RecentWindow))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"stats": stats})
}
