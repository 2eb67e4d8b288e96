// Package catalog manages each merchant's product catalog, the primary
// resource counted against plan limits.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Product is a single catalog entry owned by a merchant.
type Product struct {
	ID          uuid.UUID  `json:"id"`
	MerchantID  uuid.UUID  `json:"-"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	SKU         string     `json:"sku,omitempty"`
	PriceCents  int64      `json:"priceCents"`
	Currency    string     `json:"currency"`
	Stock       int64      `json:"stock"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	GroupID     *uuid.UUID `json:"groupId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
