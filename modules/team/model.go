// Package team manages staff accounts under a merchant. Seats are
// metered against the team_members plan limit; the owner always
// occupies the first seat.
package team

import (
	"time"

	"github.com/google/uuid"
)

// Role is a member's permission level within the merchant account.
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

// Status tracks an invitation through acceptance.
type Status string

const (
	StatusInvited  Status = "invited"
	StatusAccepted Status = "accepted"
)

// Member is one seat on a merchant's team. Only accepted members
// occupy a seat; pending invitations do not count until accepted.
type Member struct {
	ID          uuid.UUID  `json:"id"`
	MerchantID  uuid.UUID  `json:"-"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	Status      Status     `json:"status"`
	InviteToken string     `json:"-"`
	InvitedAt   time.Time  `json:"invitedAt"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
}
