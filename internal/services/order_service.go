package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"marketplace/internal/apperrors"
	"marketplace/internal/models"
	"marketplace/internal/policy"
	"marketplace/internal/pricing"
	"marketplace/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	tx        repositories.TxManager
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil to disable
// order events.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	tx repositories.TxManager,
	publisher EventPublisher,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		tx:        tx,
		publisher: publisher,
		logger:    orNop(logger),
	}
}

// OrderLine is one cart entry.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// PlaceOrderInput is the checkout payload.
type PlaceOrderInput struct {
	Items           []OrderLine
	ShippingAddress string
	Phone           string
	Notes           string
}

// CreateOrder prices every line at its tier, reserves stock and stores the
// order in one unit of work. If any line fails nothing is written.
func (s *OrderService) CreateOrder(ctx context.Context, customer policy.Principal, in PlaceOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, apperrors.Validation("order must contain at least one item")
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return nil, apperrors.Validation("shipping address is required")
	}
	lines, err := mergeLines(in.Items)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithinTx(ctx, func(r repositories.TxRepos) error {
		items := make([]models.OrderItem, 0, len(lines))
		total := decimal.Zero

		for _, line := range lines {
			item, err := s.reserve(ctx, r.Products(), line)
			if err != nil {
				return err
			}
			items = append(items, item)
			total = total.Add(item.Subtotal())
		}

		order = &models.Order{
			CustomerID:      customer.ID,
			Items:           items,
			TotalAmount:     total,
			Status:          models.OrderStatusPending,
			ShippingAddress: strings.TrimSpace(in.ShippingAddress),
			Phone:           in.Phone,
			Notes:           in.Notes,
		}
		if err := r.Orders().Create(ctx, order); err != nil {
			return apperrors.Internal(err, "failed to create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("customer_id", customer.ID),
		zap.String("total", order.TotalAmount.String()))
	publish(s.publisher, s.logger, newOrderEvent(EventOrderCreated, order, ""))
	return order, nil
}

// reserve prices one line and takes its stock.
func (s *OrderService) reserve(ctx context.Context, products repositories.ProductRepository, line OrderLine) (models.OrderItem, error) {
	product, err := products.GetByID(ctx, line.ProductID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.OrderItem{}, apperrors.NotFound("product %s not found", line.ProductID)
		}
		return models.OrderItem{}, apperrors.Internal(err, "failed to load product")
	}
	if !product.IsActive {
		return models.OrderItem{}, apperrors.NotFound("product %s not found", line.ProductID)
	}

	price, matched, err := pricing.Resolve(product.PriceTiers, line.Quantity)
	if err != nil {
		return models.OrderItem{}, apperrors.Validation("product %s cannot be priced: %v", product.Name, err)
	}
	if !matched {
		s.logger.Warn("no price tier covers quantity, using first tier",
			zap.String("product_id", product.ID),
			zap.Int("quantity", line.Quantity))
	}

	if product.Stock < line.Quantity {
		return models.OrderItem{}, insufficientStock(product, line.Quantity)
	}
	ok, err := products.DecrementStock(ctx, product.ID, line.Quantity)
	if err != nil {
		return models.OrderItem{}, apperrors.Internal(err, "failed to reserve stock")
	}
	if !ok {
		// Stock was taken by a concurrent order after the read above.
		return models.OrderItem{}, insufficientStock(product, line.Quantity)
	}

	return models.OrderItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		SellerID:    product.SellerID,
		Quantity:    line.Quantity,
		UnitPrice:   price,
	}, nil
}

func insufficientStock(p *models.Product, requested int) error {
	return apperrors.ValidationFields("insufficient stock for "+p.Name, map[string]string{
		"product_id": p.ID,
		"requested":  strconv.Itoa(requested),
		"available":  strconv.Itoa(p.Stock),
	})
}

// mergeLines sums quantities of repeated products, keeping first-seen order.
func mergeLines(in []OrderLine) ([]OrderLine, error) {
	index := make(map[string]int, len(in))
	out := make([]OrderLine, 0, len(in))
	for _, l := range in {
		if strings.TrimSpace(l.ProductID) == "" {
			return nil, apperrors.Validation("every item needs a product id")
		}
		if l.Quantity < 1 {
			return nil, apperrors.Validation("quantity for product %s must be at least 1", l.ProductID)
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

// ListForCustomer returns the caller's own orders, newest first.
func (s *OrderService) ListForCustomer(ctx context.Context, customer policy.Principal) ([]models.Order, error) {
	orders, err := s.orderRepo.List(ctx, repositories.OrderFilter{CustomerID: customer.ID})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list orders")
	}
	return orders, nil
}

// Get returns an order visible to the caller: its customer, a seller of one
// of its items, or an admin.
func (s *OrderService) Get(ctx context.Context, caller policy.Principal, id string) (*models.Order, error) {
	order, err := s.load(ctx, s.orderRepo, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewOrder(caller, order) {
		return nil, apperrors.Forbidden("you cannot access this order")
	}
	return order, nil
}

// ListForSeller returns orders containing at least one item sold by the caller.
func (s *OrderService) ListForSeller(ctx context.Context, seller policy.Principal) ([]models.Order, error) {
	orders, err := s.orderRepo.List(ctx, repositories.OrderFilter{})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list orders")
	}
	out := make([]models.Order, 0, len(orders))
	for i := range orders {
		if orders[i].HasSeller(seller.ID) {
			out = append(out, orders[i])
		}
	}
	return out, nil
}

// ListAll returns every order, for admins.
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orderRepo.List(ctx, repositories.OrderFilter{})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list orders")
	}
	return orders, nil
}

// UpdateStatus moves an order through its lifecycle. Requesting the current
// status is a no-op. Cancelling returns the reserved stock.
func (s *OrderService) UpdateStatus(ctx context.Context, caller policy.Principal, id string, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, apperrors.Validation("invalid order status %q", next)
	}

	var (
		order    *models.Order
		previous models.OrderStatus
	)
	err := s.tx.WithinTx(ctx, func(r repositories.TxRepos) error {
		var err error
		order, err = s.load(ctx, r.Orders(), id)
		if err != nil {
			return err
		}
		if !policy.CanManageOrder(caller, order) {
			return apperrors.Forbidden("you cannot update this order")
		}
		previous = order.Status
		if previous == next {
			return nil
		}
		if !previous.CanTransitionTo(next) {
			return apperrors.Validation("cannot change order status from %s to %s", previous, next)
		}

		if next == models.OrderStatusDelivered {
			now := time.Now().UTC()
			order.DeliveredAt = &now
		}
		order.Status = next

		// Claim the transition before touching stock so a concurrent request
		// for the same order cannot restock it a second time.
		moved, err := r.Orders().UpdateStatus(ctx, order, previous)
		if err != nil {
			return apperrors.Internal(err, "failed to update order")
		}
		if !moved {
			return apperrors.Conflict("order %s was updated by another request, reload and retry", order.ID)
		}

		if next == models.OrderStatusCancelled {
			for _, it := range order.Items {
				if err := r.Products().IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
					if errors.Is(err, repositories.ErrNotFound) {
						s.logger.Warn("cannot restock missing product",
							zap.String("order_id", order.ID),
							zap.String("product_id", it.ProductID))
						continue
					}
					return apperrors.Internal(err, "failed to restock product")
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != next {
		s.logger.Info("order status changed",
			zap.String("order_id", order.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(next)),
			zap.String("by", caller.ID))
		publish(s.publisher, s.logger, newOrderEvent(EventOrderStatusChanged, order, previous))
	}
	return order, nil
}

func (s *OrderService) load(ctx context.Context, repo repositories.OrderRepository, id string) (*models.Order, error) {
	order, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, apperrors.Internal(err, "failed to load order")
	}
	return order, nil
}
