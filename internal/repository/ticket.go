package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gigpost/gigpost/internal/models"
)

// ErrSoldOut is returned when a ticket has no remaining availability
var ErrSoldOut = fmt.Errorf("ticket sold out")

type TicketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create creates a new ticket. Availability starts at the full stock.
func (r *TicketRepository) Create(t *models.Ticket) error {
	t.ID = uuid.New().String()
	t.TotalAvailable = t.TotalTickets
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO tickets (id, name, company_name, ticket_type, total_tickets, total_available, ticket_value, expiry_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.CompanyName, t.TicketType, t.TotalTickets, t.TotalAvailable, t.TicketValue, t.ExpiryDate, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// GetByID returns a ticket by ID
func (r *TicketRepository) GetByID(id string) (*models.Ticket, error) {
	t := &models.Ticket{}
	err := r.db.QueryRow(`
		SELECT id, name, company_name, ticket_type, total_tickets, total_available, ticket_value, expiry_date, created_at, updated_at
		FROM tickets WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.CompanyName, &t.TicketType, &t.TotalTickets, &t.TotalAvailable, &t.TicketValue, &t.ExpiryDate, &t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns tickets with filtering and the total match count
func (r *TicketRepository) List(filter models.TicketFilter) ([]models.Ticket, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	if filter.CompanyName != "" {
		where += " AND company_name = ?"
		args = append(args, filter.CompanyName)
	}
	if filter.AvailableOnly {
		where += " AND total_available > 0 AND expiry_date > ?"
		args = append(args, time.Now())
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tickets"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, name, company_name, ticket_type, total_tickets, total_available, ticket_value, expiry_date, created_at, updated_at
		FROM tickets` + where + " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		var t models.Ticket
		err := rows.Scan(&t.ID, &t.Name, &t.CompanyName, &t.TicketType, &t.TotalTickets, &t.TotalAvailable, &t.TicketValue, &t.ExpiryDate, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, t)
	}

	return tickets, total, nil
}

// Update updates a ticket's editable fields
func (r *TicketRepository) Update(t *models.Ticket) error {
	t.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		UPDATE tickets SET name = ?, company_name = ?, ticket_type = ?, total_tickets = ?, total_available = ?, ticket_value = ?, expiry_date = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.CompanyName, t.TicketType, t.TotalTickets, t.TotalAvailable, t.TicketValue, t.ExpiryDate, t.UpdatedAt, t.ID,
	)
	return err
}

// Delete deletes a ticket
func (r *TicketRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM tickets WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DecrementAvailability takes one ticket off the shelf. The
// conditional update refuses to oversell under concurrent buyers.
func (r *TicketRepository) DecrementAvailability(id string) error {
	result, err := r.db.Exec(`
		UPDATE tickets SET total_available = total_available - 1, updated_at = ?
		WHERE id = ? AND total_available > 0`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrSoldOut
	}
	return nil
}

// BusinessStats aggregates ticket stock per type for one company
func (r *TicketRepository) BusinessStats(companyName string) (*models.BusinessStats, error) {
	rows, err := r.db.Query(`
		SELECT ticket_type,
			SUM(total_tickets),
			SUM(total_tickets - total_available),
			SUM(total_available),
			SUM((total_tickets - total_available) * ticket_value)
		FROM tickets WHERE company_name = ?
		GROUP BY ticket_type ORDER BY ticket_type`, companyName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.BusinessStats{CompanyName: companyName, Types: []models.TicketTypeStats{}}
	for rows.Next() {
		var ts models.TicketTypeStats
		if err := rows.Scan(&ts.TicketType, &ts.Created, &ts.Sold, &ts.Available, &ts.Revenue); err != nil {
			return nil, err
		}
		stats.Types = append(stats.Types, ts)
	}
	return stats, nil
}
