package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gigpost/gigpost/internal/config"
	"github.com/gigpost/gigpost/internal/metrics"
	"github.com/gigpost/gigpost/internal/models"
	"github.com/gigpost/gigpost/internal/repository"
	"github.com/gigpost/gigpost/internal/smtp"
)

var (
	// ErrCampaignNotFound means the campaign does not exist or belongs
	// to another user.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrAlreadySent means the campaign already reached its terminal
	// sent state.
	ErrAlreadySent = errors.New("Campaign already sent")

	// ErrSendInProgress means another dispatch run holds the campaign.
	ErrSendInProgress = errors.New("campaign send already in progress")

	// ErrNotConfigured means the mail transport could not be set up.
	ErrNotConfigured = errors.New("mail transport not configured")
)

// Transport delivers one message to one recipient.
type Transport interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// TransportFactory builds a transport for a dispatch run. Called once
// per run so configuration problems surface before any email is sent.
type TransportFactory func() (Transport, error)

// Result summarizes a finished dispatch run.
type Result struct {
	SentCount       int `json:"sent_count"`
	FailedCount     int `json:"failed_count"`
	TotalRecipients int `json:"total_recipients"`
}

// Engine sends campaigns to the active recipients of their group in
// fixed-size batches.
type Engine struct {
	campaigns    *repository.CampaignRepository
	groups       *repository.GroupRepository
	logs         *repository.MailLogRepository
	newTransport TransportFactory
	logger       *slog.Logger

	batchSize  int
	batchDelay time.Duration

	// sleep is replaceable in tests
	sleep func(time.Duration)
}

// NewEngine creates a dispatch engine.
func NewEngine(database *sql.DB, cfg config.DispatchConfig, factory TransportFactory, logger *slog.Logger) *Engine {
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 10
	}

	return &Engine{
		campaigns:    repository.NewCampaignRepository(database),
		groups:       repository.NewGroupRepository(database),
		logs:         repository.NewMailLogRepository(database),
		newTransport: factory,
		logger:       logger.With("component", "dispatch"),
		batchSize:    batchSize,
		batchDelay:   cfg.BatchDelay,
		sleep:        time.Sleep,
	}
}

// SMTPTransportFactory builds transports from static SMTP settings.
func SMTPTransportFactory(cfg config.SMTPConfig, logger *slog.Logger) TransportFactory {
	return func() (Transport, error) {
		return smtp.NewTransport(cfg, logger)
	}
}

// SendCampaign dispatches a campaign to every active recipient of its
// group and returns the delivery counts. The campaign ends in SENT
// even when individual recipients fail; it ends in FAILED only when
// the run aborts before the first batch.
func (e *Engine) SendCampaign(ctx context.Context, campaignID, userID string) (*Result, error) {
	campaign, err := e.campaigns.GetByID(campaignID, userID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if campaign.Status == models.CampaignSent {
		return nil, ErrAlreadySent
	}

	claimed, err := e.campaigns.MarkSending(campaignID)
	if err != nil {
		return nil, fmt.Errorf("claim campaign: %w", err)
	}
	if !claimed {
		// Lost the race: someone else finished or is still sending.
		current, err := e.campaigns.GetByID(campaignID, userID)
		if err == nil && current != nil && current.Status == models.CampaignSent {
			return nil, ErrAlreadySent
		}
		return nil, ErrSendInProgress
	}

	result, err := e.run(ctx, campaign)
	if err != nil {
		if markErr := e.campaigns.MarkFailed(campaignID); markErr != nil {
			e.logger.Error("failed to mark campaign failed", "campaign_id", campaignID, "error", markErr)
		}
		metrics.IncCampaignsCompleted(models.CampaignFailed)
		return nil, err
	}

	if err := e.campaigns.MarkSent(campaignID, result.SentCount, result.FailedCount); err != nil {
		return nil, fmt.Errorf("finalize campaign: %w", err)
	}
	metrics.IncCampaignsCompleted(models.CampaignSent)

	e.logger.Info("campaign dispatched",
		"campaign_id", campaignID,
		"sent", result.SentCount,
		"failed", result.FailedCount,
		"total", result.TotalRecipients,
	)

	return result, nil
}

// run performs the batch loop. Errors returned from here abort the
// campaign; per-recipient failures only increment the failed count.
func (e *Engine) run(ctx context.Context, campaign *models.Campaign) (*Result, error) {
	recipients, err := e.groups.ActiveMembers(campaign.GroupID)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}

	transport, err := e.newTransport()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	result := &Result{TotalRecipients: len(recipients)}
	var mu sync.Mutex

	batches := partition(recipients, e.batchSize)
	for i, batch := range batches {
		var wg sync.WaitGroup
		for _, rec := range batch {
			wg.Add(1)
			go func(rec models.Recipient) {
				defer wg.Done()

				sendErr := transport.Send(ctx, rec.EmailAddress, campaign.Subject, campaign.Content)

				mu.Lock()
				if sendErr != nil {
					result.FailedCount++
				} else {
					result.SentCount++
				}
				mu.Unlock()

				e.recordOutcome(campaign.ID, rec, sendErr)
			}(rec)
		}
		wg.Wait()

		if i < len(batches)-1 && e.batchDelay > 0 {
			e.sleep(e.batchDelay)
		}
	}

	return result, nil
}

// recordOutcome appends a mail log entry. Log write failures never
// fail the dispatch run.
func (e *Engine) recordOutcome(campaignID string, rec models.Recipient, sendErr error) {
	entry := &models.MailLog{
		CampaignID:  campaignID,
		RecipientID: rec.ID,
	}

	if sendErr != nil {
		entry.Status = models.MailLogFailed
		entry.ErrorMessage = sendErr.Error()
		metrics.IncEmailsFailed()
		e.logger.Debug("send failed", "campaign_id", campaignID, "email", rec.EmailAddress, "error", sendErr)
	} else {
		now := time.Now()
		entry.Status = models.MailLogSent
		entry.SentAt = &now
		metrics.IncEmailsSent()
	}

	if err := e.logs.Append(entry); err != nil {
		e.logger.Error("failed to append mail log",
			"campaign_id", campaignID,
			"recipient_id", rec.ID,
			"error", err,
		)
	}
}

// partition splits recipients into batches of at most size.
func partition(recipients []models.Recipient, size int) [][]models.Recipient {
	var batches [][]models.Recipient
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		batches = append(batches, recipients[start:end])
	}
	return batches
}
