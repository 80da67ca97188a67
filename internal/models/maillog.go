package models

import "time"

// Mail log statuses. Dispatch writes SENT and FAILED; the remaining
// statuses are reserved for delivery feedback ingestion.
const (
	MailLogSent      = "SENT"
	MailLogDelivered = "DELIVERED"
	MailLogBounced   = "BOUNCED"
	MailLogFailed    = "FAILED"
	MailLogOpened    = "OPENED"
	MailLogClicked   = "CLICKED"
)

// MailLog records the outcome of one send attempt for one recipient
// of a campaign.
type MailLog struct {
	ID           string     `json:"id"`
	CampaignID   string     `json:"campaign_id"`
	RecipientID  string     `json:"recipient_id"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
	ClickedAt    *time.Time `json:"clicked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
