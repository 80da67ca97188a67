package models

import "time"

// Payment statuses
const (
	PaymentPending   = "PENDING"
	PaymentSucceeded = "SUCCEEDED"
	PaymentFailed    = "FAILED"
)

// Payment tracks a purchase intent for a ticket. The intent ID is
// handed to the client and presented back on confirmation.
type Payment struct {
	ID              string    `json:"id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	TicketID        string    `json:"ticket_id"`
	Email           string    `json:"email,omitempty"`
	Amount          float64   `json:"amount"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
