package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gigpost/gigpost/internal/dispatch"
	"github.com/gigpost/gigpost/internal/middleware"
	"github.com/gigpost/gigpost/internal/models"
)

type campaignRequest struct {
	GroupID     string     `json:"group_id"`
	Subject     string     `json:"subject"`
	Content     string     `json:"content"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// CreateCampaign creates a campaign targeting one group. A scheduled
// time puts it in SCHEDULED; otherwise it starts as a draft.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GroupID == "" || req.Subject == "" {
		h.sendError(w, http.StatusBadRequest, "group_id and subject are required")
		return
	}
	if req.ScheduledAt != nil && req.ScheduledAt.Before(time.Now()) {
		h.sendError(w, http.StatusBadRequest, "scheduled_at must be in the future")
		return
	}

	group, err := h.groups.GetByID(req.GroupID, userID)
	if err != nil || group == nil {
		h.sendError(w, http.StatusBadRequest, "group not found")
		return
	}

	campaign := &models.Campaign{
		UserID:          userID,
		GroupID:         req.GroupID,
		Subject:         req.Subject,
		Content:         req.Content,
		ScheduledAt:     req.ScheduledAt,
		TotalRecipients: group.ActiveRecipients,
	}
	if req.ScheduledAt != nil {
		campaign.Status = models.CampaignScheduled
	}

	if err := h.campaigns.Create(campaign); err != nil {
		h.logger.Error("failed to create campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	h.sendJSON(w, http.StatusCreated, campaign)
}

// ListCampaigns returns the caller's campaigns.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	campaigns, total, err := h.campaigns.List(models.CampaignFilter{
		UserID: middleware.UserID(r),
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.logger.Error("failed to list campaigns", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	h.sendJSON(w, http.StatusOK, ListResponse{Items: campaigns, Total: total})
}

// GetCampaign returns one campaign with its delivery logs.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.campaigns.GetByID(chi.URLParam(r, "id"), middleware.UserID(r))
	if err != nil {
		h.logger.Error("failed to get campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		h.sendError(w, http.StatusNotFound, "campaign not found")
		return
	}

	logs, err := h.maillogs.ListByCampaign(campaign.ID)
	if err != nil {
		h.logger.Error("failed to list mail logs", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}

	h.sendJSON(w, http.StatusOK, models.CampaignWithLogs{Campaign: *campaign, Logs: logs})
}

// UpdateCampaign edits a campaign before it is sent. Sent campaigns
// are immutable.
func (h *Handlers) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	campaign, err := h.campaigns.GetByID(chi.URLParam(r, "id"), userID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		h.sendError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if campaign.Status == models.CampaignSent || campaign.Status == models.CampaignSending {
		h.sendError(w, http.StatusBadRequest, "campaign can no longer be edited")
		return
	}

	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.GroupID != "" && req.GroupID != campaign.GroupID {
		group, err := h.groups.GetByID(req.GroupID, userID)
		if err != nil || group == nil {
			h.sendError(w, http.StatusBadRequest, "group not found")
			return
		}
		campaign.GroupID = req.GroupID
		campaign.TotalRecipients = group.ActiveRecipients
	}
	if req.Subject != "" {
		campaign.Subject = req.Subject
	}
	if req.Content != "" {
		campaign.Content = req.Content
	}
	if req.ScheduledAt != nil {
		if req.ScheduledAt.Before(time.Now()) {
			h.sendError(w, http.StatusBadRequest, "scheduled_at must be in the future")
			return
		}
		campaign.ScheduledAt = req.ScheduledAt
		campaign.Status = models.CampaignScheduled
	}

	if err := h.campaigns.Update(campaign); err != nil {
		h.logger.Error("failed to update campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to update campaign")
		return
	}

	h.sendJSON(w, http.StatusOK, campaign)
}

// DeleteCampaign removes a campaign and its logs. Sent campaigns are
// immutable and cannot be deleted.
func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	campaign, err := h.campaigns.GetByID(chi.URLParam(r, "id"), userID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if campaign == nil {
		h.sendError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if campaign.Status == models.CampaignSent {
		h.sendError(w, http.StatusBadRequest, "cannot delete sent campaigns")
		return
	}

	err = h.campaigns.Delete(campaign.ID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		h.sendError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to delete campaign")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendCampaign dispatches a campaign immediately and returns the
// delivery counts.
func (h *Handlers) SendCampaign(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.SendCampaign(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r))
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrCampaignNotFound):
			h.sendError(w, http.StatusNotFound, "campaign not found")
		case errors.Is(err, dispatch.ErrAlreadySent):
			h.sendError(w, http.StatusBadRequest, "Campaign already sent")
		case errors.Is(err, dispatch.ErrSendInProgress):
			h.sendError(w, http.StatusBadRequest, "campaign send already in progress")
		case errors.Is(err, dispatch.ErrNotConfigured):
			h.sendError(w, http.StatusInternalServerError, "mail transport not configured")
		default:
			h.logger.Error("campaign send failed", "error", err)
			h.sendError(w, http.StatusInternalServerError, "campaign send failed")
		}
		return
	}

	h.sendJSON(w, http.StatusOK, result)
}

// CampaignAnalytics returns delivery statistics for one campaign.
func (h *Handlers) CampaignAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.campaigns.Analytics(chi.URLParam(r, "id"), middleware.UserID(r))
	if err != nil {
		h.logger.Error("failed to compute analytics", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to compute analytics")
		return
	}
	if analytics == nil {
		h.sendError(w, http.StatusNotFound, "campaign not found")
		return
	}
	h.sendJSON(w, http.StatusOK, analytics)
}
