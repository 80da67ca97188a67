package models

import "time"

// Group statuses
const (
	GroupActive   = "ACTIVE"
	GroupInactive = "INACTIVE"
)

// Group is a named set of recipients owned by a user. The recipient
// counters are denormalized and recomputed from the membership table.
type Group struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Status           string    `json:"status"`
	TotalRecipients  int       `json:"total_recipients"`
	ActiveRecipients int       `json:"active_recipients"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// GroupWithMembers includes the group's recipients
type GroupWithMembers struct {
	Group
	Members []Recipient `json:"members"`
}

// GroupFilter for listing groups
type GroupFilter struct {
	UserID string
	Status string
	Search string
	Limit  int
	Offset int
}
