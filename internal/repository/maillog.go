package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gigpost/gigpost/internal/models"
)

type MailLogRepository struct {
	db *sql.DB
}

func NewMailLogRepository(db *sql.DB) *MailLogRepository {
	return &MailLogRepository{db: db}
}

// Append records one send outcome. Dispatch calls this best-effort
// and ignores the returned error.
func (r *MailLogRepository) Append(log *models.MailLog) error {
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO mail_logs (id, campaign_id, recipient_id, status, error_message, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.CampaignID, log.RecipientID, log.Status, log.ErrorMessage, log.SentAt, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append mail log: %w", err)
	}
	return nil
}

// ListByCampaign returns all log entries for a campaign
func (r *MailLogRepository) ListByCampaign(campaignID string) ([]models.MailLog, error) {
	rows, err := r.db.Query(`
		SELECT id, campaign_id, recipient_id, status, error_message, sent_at, delivered_at, opened_at, clicked_at, created_at
		FROM mail_logs WHERE campaign_id = ? ORDER BY created_at`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.MailLog{}
	for rows.Next() {
		var l models.MailLog
		var errMsg sql.NullString
		err := rows.Scan(&l.ID, &l.CampaignID, &l.RecipientID, &l.Status, &errMsg,
			&l.SentAt, &l.DeliveredAt, &l.OpenedAt, &l.ClickedAt, &l.CreatedAt)
		if err != nil {
			return nil, err
		}
		l.ErrorMessage = errMsg.String
		logs = append(logs, l)
	}
	return logs, nil
}

// DeleteOlderThan removes log entries created before the cutoff and
// returns the number deleted
func (r *MailLogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM mail_logs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
