package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// List retrieves orders matching filter, newest first.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	tx := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.CustomerID != "" {
		tx = tx.Where("customer_id = ?", filter.CustomerID)
	}
	var orders []models.Order
	if err := tx.Order("created_at desc").Order("id desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves an order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// Create inserts a new order.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// UpdateStatus is a conditional UPDATE on the current status, so only one of
// several concurrent transitions from the same status can win.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) (bool, error) {
	order.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(map[string]any{
			"status":       order.Status,
			"delivered_at": order.DeliveredAt,
			"updated_at":   order.UpdatedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update status of order %s: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, order.ID); err != nil {
		return false, err
	}
	return false, nil
}
