package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gigpost/gigpost/internal/models"
)

// ErrPaymentNotPending is returned when confirming a payment that has
// already been settled or cancelled.
var ErrPaymentNotPending = fmt.Errorf("payment is not pending")

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create records a new payment intent
func (r *PaymentRepository) Create(p *models.Payment) error {
	p.ID = uuid.New().String()
	if p.PaymentIntentID == "" {
		p.PaymentIntentID = "pi_" + uuid.New().String()
	}
	p.Status = models.PaymentPending
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO payments (id, payment_intent_id, ticket_id, email, amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PaymentIntentID, p.TicketID, p.Email, p.Amount, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByIntentID returns a payment by its intent ID
func (r *PaymentRepository) GetByIntentID(intentID string) (*models.Payment, error) {
	p := &models.Payment{}
	var email sql.NullString
	err := r.db.QueryRow(`
		SELECT id, payment_intent_id, ticket_id, email, amount, status, created_at, updated_at
		FROM payments WHERE payment_intent_id = ?`, intentID,
	).Scan(&p.ID, &p.PaymentIntentID, &p.TicketID, &email, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Email = email.String
	return p, nil
}

// MarkSucceeded settles a pending payment. The conditional update
// makes a second confirmation of the same intent fail.
func (r *PaymentRepository) MarkSucceeded(intentID string) error {
	result, err := r.db.Exec(`
		UPDATE payments SET status = ?, updated_at = ?
		WHERE payment_intent_id = ? AND status = ?`,
		models.PaymentSucceeded, time.Now(), intentID, models.PaymentPending,
	)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrPaymentNotPending
	}
	return nil
}

// MarkFailed records a failed payment. Unconditional so a payment
// already flipped to SUCCEEDED can still be rolled back when the
// ticket sale behind it falls through.
func (r *PaymentRepository) MarkFailed(intentID string) error {
	_, err := r.db.Exec(`
		UPDATE payments SET status = ?, updated_at = ?
		WHERE payment_intent_id = ?`,
		models.PaymentFailed, time.Now(), intentID,
	)
	return err
}

// DeleteStalePending removes pending payments created before the
// cutoff and returns the number deleted
func (r *PaymentRepository) DeleteStalePending(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(
		"DELETE FROM payments WHERE status = ? AND created_at < ?",
		models.PaymentPending, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
