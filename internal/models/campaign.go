package models

import "time"

// Campaign statuses
const (
	CampaignDraft     = "DRAFT"
	CampaignScheduled = "SCHEDULED"
	CampaignSending   = "SENDING"
	CampaignSent      = "SENT"
	CampaignFailed    = "FAILED"
)

// Campaign is a bulk email to all active recipients of a group.
// TotalRecipients is a snapshot of the group's active count taken at
// creation time; SentCount and FailedCount are written once the
// dispatch run completes.
type Campaign struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	GroupID         string     `json:"group_id"`
	Subject         string     `json:"subject"`
	Content         string     `json:"content"`
	Status          string     `json:"status"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	TotalRecipients int        `json:"total_recipients"`
	SentCount       int        `json:"sent_count"`
	FailedCount     int        `json:"failed_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CampaignWithLogs includes the campaign's delivery log entries
type CampaignWithLogs struct {
	Campaign
	Logs []MailLog `json:"logs"`
}

// CampaignFilter for listing campaigns
type CampaignFilter struct {
	UserID string
	Status string
	Limit  int
	Offset int
}

// CampaignAnalytics summarizes delivery results for a campaign
type CampaignAnalytics struct {
	CampaignID   string  `json:"campaign_id"`
	Total        int     `json:"total"`
	Sent         int     `json:"sent"`
	Failed       int     `json:"failed"`
	Opened       int     `json:"opened"`
	Clicked      int     `json:"clicked"`
	Bounced      int     `json:"bounced"`
	DeliveryRate float64 `json:"delivery_rate"`
}
