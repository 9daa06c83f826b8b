package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// fulfillment is the forward path of an order; cancelled sits outside it.
var fulfillment = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	return s == OrderStatusCancelled || s.step() >= 0
}

// IsTerminal reports whether no transition may leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether the order may move from s to next.
// Orders advance one step at a time; any non-terminal order may be cancelled.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return next.step() == s.step()+1
}

func (s OrderStatus) step() int {
	for i, st := range fulfillment {
		if st == s {
			return i
		}
	}
	return -1
}

// OrderItem is a snapshot of a product line taken when the order was placed.
type OrderItem struct {
	ProductID   string          `json:"product_id" bson:"product_id"`
	ProductName string          `json:"product_name" bson:"product_name"`
	SellerID    string          `json:"seller_id" bson:"seller_id"`
	Quantity    int             `json:"quantity" bson:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" bson:"unit_price"`
}

// Subtotal returns quantity times the captured unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a customer order. TotalAmount is fixed at creation time.
type Order struct {
	ID              string                         `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	CustomerID      string                         `json:"customer_id" gorm:"type:varchar(36);index;not null" bson:"customer_id"`
	Items           datatypes.JSONSlice[OrderItem] `json:"items" bson:"items"`
	TotalAmount     decimal.Decimal                `json:"total_amount" gorm:"type:numeric(18,2);not null" bson:"total_amount"`
	Status          OrderStatus                    `json:"status" gorm:"type:varchar(20);index;not null" bson:"status"`
	ShippingAddress string                         `json:"shipping_address" gorm:"type:text" bson:"shipping_address"`
	Phone           string                         `json:"phone" gorm:"type:varchar(50)" bson:"phone"`
	Notes           string                         `json:"notes,omitempty" gorm:"type:text" bson:"notes,omitempty"`
	CreatedAt       time.Time                      `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time                      `json:"updated_at" bson:"updated_at"`
	DeliveredAt     *time.Time                     `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
}

// HasSeller reports whether any item of the order belongs to sellerID.
func (o *Order) HasSeller(sellerID string) bool {
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			return true
		}
	}
	return false
}
