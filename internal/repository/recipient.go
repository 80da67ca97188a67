package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigpost/gigpost/internal/models"
)

// ErrDuplicateEmail is returned when the address already exists for
// the owning user.
var ErrDuplicateEmail = fmt.Errorf("email address already exists")

type RecipientRepository struct {
	db *sql.DB
}

func NewRecipientRepository(db *sql.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// Create adds a recipient. Addresses are stored lower-cased and are
// unique per user.
func (r *RecipientRepository) Create(rec *models.Recipient) error {
	rec.ID = uuid.New().String()
	rec.EmailAddress = strings.ToLower(strings.TrimSpace(rec.EmailAddress))
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	if rec.SourceType == "" {
		rec.SourceType = models.SourceManual
	}
	if rec.Status == "" {
		rec.Status = models.RecipientActive
	}

	_, err := r.db.Exec(`
		INSERT INTO recipients (id, user_id, email_address, source_type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.EmailAddress, rec.SourceType, rec.Status, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	return nil
}

// GetByID returns a recipient owned by userID
func (r *RecipientRepository) GetByID(id, userID string) (*models.Recipient, error) {
	rec := &models.Recipient{}
	err := r.db.QueryRow(`
		SELECT id, user_id, email_address, source_type, status, created_at, updated_at
		FROM recipients WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&rec.ID, &rec.UserID, &rec.EmailAddress, &rec.SourceType, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByEmail returns a recipient by address for the owning user
func (r *RecipientRepository) GetByEmail(userID, email string) (*models.Recipient, error) {
	rec := &models.Recipient{}
	err := r.db.QueryRow(`
		SELECT id, user_id, email_address, source_type, status, created_at, updated_at
		FROM recipients WHERE user_id = ? AND email_address = ?`,
		userID, strings.ToLower(strings.TrimSpace(email)),
	).Scan(&rec.ID, &rec.UserID, &rec.EmailAddress, &rec.SourceType, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns recipients with filtering and the total match count
func (r *RecipientRepository) List(filter models.RecipientFilter) ([]models.Recipient, int, error) {
	where := " WHERE user_id = ?"
	args := []any{filter.UserID}

	if filter.SourceType != "" {
		where += " AND source_type = ?"
		args = append(args, filter.SourceType)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where += " AND email_address LIKE ?"
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM recipients"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, email_address, source_type, status, created_at, updated_at
		FROM recipients` + where + " ORDER BY created_at DESC"

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

	recipients := []models.Recipient{}
	for rows.Next() {
		var rec models.Recipient
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.EmailAddress, &rec.SourceType, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		recipients = append(recipients, rec)
	}

	return recipients, total, nil
}

// UpdateStatus changes a recipient's status
func (r *RecipientRepository) UpdateStatus(id, userID, status string) error {
	result, err := r.db.Exec(`
		UPDATE recipients SET status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		status, time.Now(), id, userID,
	)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a recipient and its group memberships
func (r *RecipientRepository) Delete(id, userID string) error {
	// Collect affected groups so counts can be recomputed after the
	// membership rows cascade away
	rows, err := r.db.Query("SELECT DISTINCT group_id FROM group_members WHERE recipient_id = ?", id)
	if err != nil {
		return err
	}
	groupIDs := []string{}
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			rows.Close()
			return err
		}
		groupIDs = append(groupIDs, gid)
	}
	rows.Close()

	result, err := r.db.Exec("DELETE FROM recipients WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}

	groups := NewGroupRepository(r.db)
	for _, gid := range groupIDs {
		if err := groups.UpdateCounts(gid); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns aggregate recipient counts for a user
func (r *RecipientRepository) Stats(userID string) (*models.RecipientStats, error) {
	stats := &models.RecipientStats{
		BySource: make(map[string]int),
		ByStatus: make(map[string]int),
	}

	if err := r.db.QueryRow("SELECT COUNT(*) FROM recipients WHERE user_id = ?", userID).Scan(&stats.Total); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(`
		SELECT source_type, COUNT(*) FROM recipients WHERE user_id = ? GROUP BY source_type`, userID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.BySource[source] = count
	}
	rows.Close()

	rows, err = r.db.Query(`
		SELECT status, COUNT(*) FROM recipients WHERE user_id = ? GROUP BY status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
	}

	return stats, nil
}
