// Package pricing selects quantity-based unit prices from a product's tier list.
package pricing

import (
	"errors"
	"fmt"

	"marketplace/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNoTiers         = errors.New("product has no price tiers")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Resolve returns the unit price of the tier whose range contains qty.
// Tiers are scanned in ascending order and the first match wins. When no tier
// matches, the first tier's price is returned with matched set to false so the
// caller can report the malformed tier list.
func Resolve(tiers []models.PriceTier, qty int) (price decimal.Decimal, matched bool, err error) {
	if qty < 1 {
		return decimal.Zero, false, ErrInvalidQuantity
	}
	if len(tiers) == 0 {
		return decimal.Zero, false, ErrNoTiers
	}
	for _, t := range tiers {
		if t.Contains(qty) {
			return t.Price, true, nil
		}
	}
	return tiers[0].Price, false, nil
}

// Subtotal returns price * qty.
func Subtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// Validate checks that tiers form contiguous, non-overlapping ascending ranges
// starting at quantity 1, with only the last tier allowed to be open-ended.
func Validate(tiers []models.PriceTier) error {
	if len(tiers) == 0 {
		return ErrNoTiers
	}
	if tiers[0].MinQuantity != 1 {
		return fmt.Errorf("first tier must start at quantity 1, got %d", tiers[0].MinQuantity)
	}
	for i, t := range tiers {
		if !t.Price.IsPositive() {
			return fmt.Errorf("tier %d: price must be greater than 0", i+1)
		}
		last := i == len(tiers)-1
		if t.MaxQuantity == nil {
			if !last {
				return fmt.Errorf("tier %d: only the last tier may be open-ended", i+1)
			}
			continue
		}
		if *t.MaxQuantity < t.MinQuantity {
			return fmt.Errorf("tier %d: max quantity %d is below min quantity %d", i+1, *t.MaxQuantity, t.MinQuantity)
		}
		if !last && tiers[i+1].MinQuantity != *t.MaxQuantity+1 {
			return fmt.Errorf("tier %d must start at quantity %d, got %d", i+2, *t.MaxQuantity+1, tiers[i+1].MinQuantity)
		}
	}
	return nil
}
