package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gigpost/gigpost/internal/middleware"
	"github.com/gigpost/gigpost/internal/models"
)

type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

// CreateGroup creates a recipient group.
func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		h.sendError(w, http.StatusBadRequest, "name is required")
		return
	}

	group := &models.Group{
		UserID:      middleware.UserID(r),
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	}
	if err := h.groups.Create(group); err != nil {
		h.logger.Error("failed to create group", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to create group")
		return
	}

	h.sendJSON(w, http.StatusCreated, group)
}

// ListGroups returns the caller's groups.
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	groups, total, err := h.groups.List(models.GroupFilter{
		UserID: middleware.UserID(r),
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.logger.Error("failed to list groups", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}

	h.sendJSON(w, http.StatusOK, ListResponse{Items: groups, Total: total})
}

// GetGroup returns one group with its members.
func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.groups.GetWithMembers(chi.URLParam(r, "id"), middleware.UserID(r))
	if err != nil {
		h.logger.Error("failed to get group", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to get group")
		return
	}
	if group == nil {
		h.sendError(w, http.StatusNotFound, "group not found")
		return
	}
	h.sendJSON(w, http.StatusOK, group)
}

// UpdateGroup changes a group's name, description, or status.
func (h *Handlers) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	group, err := h.groups.GetByID(chi.URLParam(r, "id"), userID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get group")
		return
	}
	if group == nil {
		h.sendError(w, http.StatusNotFound, "group not found")
		return
	}

	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != "" {
		group.Name = req.Name
	}
	if req.Description != "" {
		group.Description = req.Description
	}
	if req.Status != "" {
		if req.Status != models.GroupActive && req.Status != models.GroupInactive {
			h.sendError(w, http.StatusBadRequest, "invalid status")
			return
		}
		group.Status = req.Status
	}

	if err := h.groups.Update(group); err != nil {
		h.logger.Error("failed to update group", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to update group")
		return
	}

	h.sendJSON(w, http.StatusOK, group)
}

// DeleteGroup removes a group. Member recipients survive.
func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	err := h.groups.Delete(chi.URLParam(r, "id"), middleware.UserID(r))
	if errors.Is(err, sql.ErrNoRows) {
		h.sendError(w, http.StatusNotFound, "group not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete group", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to delete group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type membershipRequest struct {
	RecipientID string `json:"recipient_id"`
}

// AddGroupMember adds a recipient to a group. Adding an existing
// member is reported as a conflict.
func (h *Handlers) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	groupID := chi.URLParam(r, "id")

	var req membershipRequest
	if err := decodeJSON(r, &req); err != nil || req.RecipientID == "" {
		h.sendError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}

	group, err := h.groups.GetByID(groupID, userID)
	if err != nil || group == nil {
		h.sendError(w, http.StatusNotFound, "group not found")
		return
	}
	rec, err := h.recipients.GetByID(req.RecipientID, userID)
	if err != nil || rec == nil {
		h.sendError(w, http.StatusNotFound, "recipient not found")
		return
	}

	added, err := h.groups.AddMember(groupID, req.RecipientID)
	if err != nil {
		h.logger.Error("failed to add member", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to add member")
		return
	}
	if !added {
		h.sendError(w, http.StatusBadRequest, "recipient is already a member")
		return
	}

	h.sendJSON(w, http.StatusCreated, map[string]string{"group_id": groupID, "recipient_id": req.RecipientID})
}

// RemoveGroupMember removes a recipient from a group.
func (h *Handlers) RemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	groupID := chi.URLParam(r, "id")
	recipientID := chi.URLParam(r, "recipientID")

	group, err := h.groups.GetByID(groupID, userID)
	if err != nil || group == nil {
		h.sendError(w, http.StatusNotFound, "group not found")
		return
	}

	removed, err := h.groups.RemoveMember(groupID, recipientID)
	if err != nil {
		h.logger.Error("failed to remove member", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	if !removed {
		h.sendError(w, http.StatusNotFound, "recipient is not a member")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
