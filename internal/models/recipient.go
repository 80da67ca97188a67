package models

import "time"

// Recipient source types
const (
	SourceManual           = "MANUAL"
	SourceImportedCSV      = "IMPORTED_CSV"
	SourceImportedExcel    = "IMPORTED_EXCEL"
	SourceImportedExternal = "IMPORTED_EXTERNAL"
)

// Recipient statuses
const (
	RecipientActive       = "ACTIVE"
	RecipientInactive     = "INACTIVE"
	RecipientUnsubscribed = "UNSUBSCRIBED"
)

// Recipient is a single email address owned by a user
type Recipient struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	EmailAddress string    `json:"email_address"`
	SourceType   string    `json:"source_type"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RecipientFilter for listing recipients
type RecipientFilter struct {
	UserID     string
	SourceType string
	Status     string
	Search     string
	Limit      int
	Offset     int
}

// RecipientStats aggregates recipients by source and status
type RecipientStats struct {
	Total    int            `json:"total"`
	BySource map[string]int `json:"by_source"`
	ByStatus map[string]int `json:"by_status"`
}

// ValidRecipientStatus reports whether s is a known recipient status
func ValidRecipientStatus(s string) bool {
	switch s {
	case RecipientActive, RecipientInactive, RecipientUnsubscribed:
		return true
	}
	return false
}

// ValidSourceType reports whether s is a known source type
func ValidSourceType(s string) bool {
	switch s {
	case SourceManual, SourceImportedCSV, SourceImportedExcel, SourceImportedExternal:
		return true
	}
	return false
}
