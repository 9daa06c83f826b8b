package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PriceTier maps an inclusive quantity range to a unit price.
// A nil MaxQuantity means the range is open-ended.
type PriceTier struct {
	MinQuantity int             `json:"min_quantity" bson:"min_quantity" validate:"gte=1"`
	MaxQuantity *int            `json:"max_quantity,omitempty" bson:"max_quantity,omitempty" validate:"omitempty,gte=1"`
	Price       decimal.Decimal `json:"price" bson:"price"`
}

// Contains reports whether qty falls inside the tier range.
func (t PriceTier) Contains(qty int) bool {
	if qty < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || qty <= *t.MaxQuantity
}

// Product represents a product in the store. Tiers are embedded by value.
type Product struct {
	ID          string                         `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name        string                         `json:"name" gorm:"type:varchar(200);not null" bson:"name"`
	Description string                         `json:"description" gorm:"type:text" bson:"description"`
	Category    string                         `json:"category" gorm:"type:varchar(100);index" bson:"category"`
	PriceTiers  datatypes.JSONSlice[PriceTier] `json:"price_tiers" bson:"price_tiers"`
	Stock       int                            `json:"stock" gorm:"not null" bson:"stock"`
	SellerID    string                         `json:"seller_id" gorm:"type:varchar(36);index;not null" bson:"seller_id"`
	IsActive    bool                           `json:"is_active" gorm:"index;not null" bson:"is_active"`
	Images      datatypes.JSONSlice[string]    `json:"images" bson:"images"`
	CreatedAt   time.Time                      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time                      `json:"updated_at" bson:"updated_at"`
}

// ProductWithSeller is a product enriched with its seller for listings.
type ProductWithSeller struct {
	Product
	Seller *SellerSummary `json:"seller"`
}
