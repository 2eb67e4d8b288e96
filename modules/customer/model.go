// Package customer manages each merchant's customer book and the custom
// groups used to segment broadcast audiences.
package customer

import (
	"time"

	"github.com/google/uuid"
)

// Customer is one buyer in a merchant's book.
type Customer struct {
	ID         uuid.UUID  `json:"id"`
	MerchantID uuid.UUID  `json:"-"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Email      string     `json:"email,omitempty"`
	GroupID    *uuid.UUID `json:"groupId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Group is a named customer segment. Group creation is metered against
// the custom_groups plan limit.
type Group struct {
	ID         uuid.UUID `json:"id"`
	MerchantID uuid.UUID `json:"-"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
}
