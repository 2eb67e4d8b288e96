// Package broadcast sends promotional messages to a merchant's customers
// over WhatsApp or SMS. Sends are metered per calendar month.
package broadcast

import (
	"time"

	"github.com/google/uuid"
)

// Channel is the delivery transport for a broadcast.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// Status tracks a broadcast through its lifecycle.
type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Broadcast is one outbound campaign message. A row is written before
// sending starts so the monthly quota counts attempts, not successes.
type Broadcast struct {
	ID             uuid.UUID  `json:"id"`
	MerchantID     uuid.UUID  `json:"-"`
	Channel        Channel    `json:"channel"`
	Message        string     `json:"message"`
	GroupID        *uuid.UUID `json:"groupId,omitempty"`
	RecipientCount int        `json:"recipientCount"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// monthStart returns the first instant of now's calendar month in the
// same location. The monthly quota window is anchored here.
func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
