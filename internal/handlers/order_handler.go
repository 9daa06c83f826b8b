package handlers

import (
	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/policy"
	"marketplace/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
		logger:   orNop(logger),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	orderRoutes := router.Group("/orders", authRequired)
	orderRoutes.Post("/", middleware.Authorize(policy.ActionPlaceOrder), h.HandleCreateOrder)
	orderRoutes.Get("/", middleware.Authorize(policy.ActionViewOwnOrders), h.HandleGetOrders)
	orderRoutes.Get("/:id", middleware.Authorize(policy.ActionViewOrder), h.HandleGetOrderByID)
	orderRoutes.Put("/:id/status", middleware.Authorize(policy.ActionUpdateOrderStatus), h.HandleUpdateOrderStatus)
}

// OrderItemRequest is one cart line.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CreateOrderRequest represents the checkout request body.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string             `json:"shipping_address" validate:"required"`
	Phone           string             `json:"phone"`
	Notes           string             `json:"notes"`
}

// HandleCreateOrder places an order for the caller.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	var req CreateOrderRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.logger, err)
	}

	lines := make([]services.OrderLine, len(req.Items))
	for i, it := range req.Items {
		lines[i] = services.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	order, err := h.service.CreateOrder(c.UserContext(), p, services.PlaceOrderInput{
		Items:           lines,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		Notes:           req.Notes,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order created successfully",
		"order":   order,
	})
}

// HandleGetOrders lists the caller's own orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	orders, err := h.service.ListForCustomer(c.UserContext(), p)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
		"total":  len(orders),
	})
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	order, err := h.service.Get(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"order": order})
}

// UpdateStatusRequest represents the status change request body.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus moves an order to the requested status.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	p, err := caller(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	var req UpdateStatusRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.logger, err)
	}

	order, err := h.service.UpdateStatus(c.UserContext(), p, c.Params("id"), models.OrderStatus(req.Status))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message": "Order status updated",
		"order":   order,
	})
}
