package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gigpost/gigpost/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create creates a new campaign
func (r *CampaignRepository) Create(c *models.Campaign) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = models.CampaignDraft
	}

	_, err := r.db.Exec(`
		INSERT INTO campaigns (id, user_id, group_id, subject, content, status, scheduled_at, total_recipients, sent_count, failed_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		c.ID, c.UserID, c.GroupID, c.Subject, c.Content, c.Status, c.ScheduledAt, c.TotalRecipients, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// GetByID returns a campaign owned by userID
func (r *CampaignRepository) GetByID(id, userID string) (*models.Campaign, error) {
	c := &models.Campaign{}
	err := r.db.QueryRow(`
		SELECT id, user_id, group_id, subject, content, status, scheduled_at, sent_at, total_recipients, sent_count, failed_count, created_at, updated_at
		FROM campaigns WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&c.ID, &c.UserID, &c.GroupID, &c.Subject, &c.Content, &c.Status, &c.ScheduledAt, &c.SentAt,
		&c.TotalRecipients, &c.SentCount, &c.FailedCount, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns campaigns with filtering and the total match count
func (r *CampaignRepository) List(filter models.CampaignFilter) ([]models.Campaign, int, error) {
	where := " WHERE user_id = ?"
	args := []any{filter.UserID}

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM campaigns"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, group_id, subject, content, status, scheduled_at, sent_at, total_recipients, sent_count, failed_count, created_at, updated_at
		FROM campaigns` + where + " ORDER BY created_at DESC"

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

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		err := rows.Scan(&c.ID, &c.UserID, &c.GroupID, &c.Subject, &c.Content, &c.Status, &c.ScheduledAt, &c.SentAt,
			&c.TotalRecipients, &c.SentCount, &c.FailedCount, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	return campaigns, total, nil
}

// Update updates a campaign's editable fields
func (r *CampaignRepository) Update(c *models.Campaign) error {
	c.UpdatedAt = time.Now()
	_, err := r.db.Exec(`
		UPDATE campaigns SET group_id = ?, subject = ?, content = ?, status = ?, scheduled_at = ?, total_recipients = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		c.GroupID, c.Subject, c.Content, c.Status, c.ScheduledAt, c.TotalRecipients, c.UpdatedAt, c.ID, c.UserID,
	)
	return err
}

// Delete deletes a campaign and its logs
func (r *CampaignRepository) Delete(id, userID string) error {
	result, err := r.db.Exec("DELETE FROM campaigns WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkSending atomically claims the campaign for a dispatch run. The
// conditional update only succeeds from a non-terminal, non-running
// state, so exactly one concurrent caller wins.
func (r *CampaignRepository) MarkSending(id string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE campaigns SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?, ?)`,
		models.CampaignSending, time.Now(), id,
		models.CampaignDraft, models.CampaignScheduled, models.CampaignFailed,
	)
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// MarkSent records the terminal SENT state with final counts. The
// total_recipients snapshot taken at creation time is left untouched.
func (r *CampaignRepository) MarkSent(id string, sentCount, failedCount int) error {
	now := time.Now()
	_, err := r.db.Exec(`
		UPDATE campaigns SET status = ?, sent_at = ?, sent_count = ?, failed_count = ?, updated_at = ?
		WHERE id = ?`,
		models.CampaignSent, now, sentCount, failedCount, now, id,
	)
	return err
}

// MarkFailed records the FAILED state after a pre-dispatch error
func (r *CampaignRepository) MarkFailed(id string) error {
	_, err := r.db.Exec(`
		UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ?`,
		models.CampaignFailed, time.Now(), id,
	)
	return err
}

// GetDueScheduled returns SCHEDULED campaigns whose scheduled time
// has passed
func (r *CampaignRepository) GetDueScheduled(now time.Time) ([]models.Campaign, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, group_id, subject, content, status, scheduled_at, sent_at, total_recipients, sent_count, failed_count, created_at, updated_at
		FROM campaigns
		WHERE status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?
		ORDER BY scheduled_at`,
		models.CampaignScheduled, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		err := rows.Scan(&c.ID, &c.UserID, &c.GroupID, &c.Subject, &c.Content, &c.Status, &c.ScheduledAt, &c.SentAt,
			&c.TotalRecipients, &c.SentCount, &c.FailedCount, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

// Analytics aggregates delivery log statuses for a campaign
func (r *CampaignRepository) Analytics(id, userID string) (*models.CampaignAnalytics, error) {
	c, err := r.GetByID(id, userID)
	if err != nil || c == nil {
		return nil, err
	}

	a := &models.CampaignAnalytics{CampaignID: c.ID, Total: c.TotalRecipients}

	rows, err := r.db.Query(`
		SELECT status, COUNT(*) FROM mail_logs WHERE campaign_id = ? GROUP BY status`, id)
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
		switch status {
		case models.MailLogSent, models.MailLogDelivered:
			a.Sent += count
		case models.MailLogFailed:
			a.Failed += count
		case models.MailLogOpened:
			a.Opened = count
		case models.MailLogClicked:
			a.Clicked = count
		case models.MailLogBounced:
			a.Bounced = count
		}
	}

	if total := a.Sent + a.Failed; total > 0 {
		a.DeliveryRate = float64(a.Sent) / float64(total)
	}
	return a, nil
}
