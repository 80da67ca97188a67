package models

import "time"

// Ticket is a sellable event ticket type with limited stock
type Ticket struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CompanyName    string    `json:"company_name"`
	TicketType     string    `json:"ticket_type"`
	TotalTickets   int       `json:"total_tickets"`
	TotalAvailable int       `json:"total_available"`
	TicketValue    float64   `json:"ticket_value"`
	ExpiryDate     time.Time `json:"expiry_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TicketFilter for listing tickets
type TicketFilter struct {
	CompanyName   string
	AvailableOnly bool
	Limit         int
	Offset        int
}

// TicketTypeStats aggregates tickets of one type for a business
type TicketTypeStats struct {
	TicketType string  `json:"ticket_type"`
	Created    int     `json:"created"`
	Sold       int     `json:"sold"`
	Available  int     `json:"available"`
	Revenue    float64 `json:"revenue"`
}

// BusinessStats summarizes all ticket types for one company
type BusinessStats struct {
	CompanyName string            `json:"company_name"`
	Types       []TicketTypeStats `json:"types"`
}
