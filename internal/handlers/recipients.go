package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"net/mail"

	"github.com/go-chi/chi/v5"

	"github.com/gigpost/gigpost/internal/middleware"
	"github.com/gigpost/gigpost/internal/models"
	"github.com/gigpost/gigpost/internal/repository"
)

type createRecipientRequest struct {
	EmailAddress string `json:"email_address"`
	Status       string `json:"status,omitempty"`
}

// CreateRecipient adds a single address to the caller's list.
func (h *Handlers) CreateRecipient(w http.ResponseWriter, r *http.Request) {
	var req createRecipientRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := mail.ParseAddress(req.EmailAddress); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if req.Status != "" && !models.ValidRecipientStatus(req.Status) {
		h.sendError(w, http.StatusBadRequest, "invalid status")
		return
	}

	rec := &models.Recipient{
		UserID:       middleware.UserID(r),
		EmailAddress: req.EmailAddress,
		Status:       req.Status,
	}
	if err := h.recipients.Create(rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			h.sendError(w, http.StatusConflict, "email address already exists")
			return
		}
		h.logger.Error("failed to create recipient", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to create recipient")
		return
	}

	h.sendJSON(w, http.StatusCreated, rec)
}

// ListRecipients returns the caller's recipients with filtering.
func (h *Handlers) ListRecipients(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filter := models.RecipientFilter{
		UserID:     middleware.UserID(r),
		SourceType: r.URL.Query().Get("source_type"),
		Status:     r.URL.Query().Get("status"),
		Search:     r.URL.Query().Get("search"),
		Limit:      limit,
		Offset:     offset,
	}

	recipients, total, err := h.recipients.List(filter)
	if err != nil {
		h.logger.Error("failed to list recipients", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to list recipients")
		return
	}

	h.sendJSON(w, http.StatusOK, ListResponse{Items: recipients, Total: total})
}

// GetRecipient returns one recipient by ID.
func (h *Handlers) GetRecipient(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recipients.GetByID(chi.URLParam(r, "id"), middleware.UserID(r))
	if err != nil {
		h.logger.Error("failed to get recipient", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to get recipient")
		return
	}
	if rec == nil {
		h.sendError(w, http.StatusNotFound, "recipient not found")
		return
	}
	h.sendJSON(w, http.StatusOK, rec)
}

type updateRecipientStatusRequest struct {
	Status string `json:"status"`
}

// UpdateRecipientStatus changes a recipient's status.
func (h *Handlers) UpdateRecipientStatus(w http.ResponseWriter, r *http.Request) {
	var req updateRecipientStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidRecipientStatus(req.Status) {
		h.sendError(w, http.StatusBadRequest, "invalid status")
		return
	}

	err := h.recipients.UpdateStatus(chi.URLParam(r, "id"), middleware.UserID(r), req.Status)
	if errors.Is(err, sql.ErrNoRows) {
		h.sendError(w, http.StatusNotFound, "recipient not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to update recipient", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to update recipient")
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// DeleteRecipient removes a recipient and its group memberships.
func (h *Handlers) DeleteRecipient(w http.ResponseWriter, r *http.Request) {
	err := h.recipients.Delete(chi.URLParam(r, "id"), middleware.UserID(r))
	if errors.Is(err, sql.ErrNoRows) {
		h.sendError(w, http.StatusNotFound, "recipient not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete recipient", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to delete recipient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecipientStats returns counts grouped by source and status.
func (h *Handlers) RecipientStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.recipients.Stats(middleware.UserID(r))
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	h.sendJSON(w, http.StatusOK, stats)
}

// ImportCSV imports recipients from an uploaded CSV file. An optional
// group_id form field adds every imported address to that group.
func (h *Handlers) ImportCSV(w http.ResponseWriter, r *http.Request) {
	h.importUpload(w, r, "csv")
}

// ImportExcel imports recipients from an uploaded XLSX file.
func (h *Handlers) ImportExcel(w http.ResponseWriter, r *http.Request) {
	h.importUpload(w, r, "excel")
}

func (h *Handlers) importUpload(w http.ResponseWriter, r *http.Request, kind string) {
	userID := middleware.UserID(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid upload")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	groupID := r.FormValue("group_id")
	if groupID != "" {
		group, err := h.groups.GetByID(groupID, userID)
		if err != nil || group == nil {
			h.sendError(w, http.StatusBadRequest, "group not found")
			return
		}
	}

	var result any
	switch kind {
	case "csv":
		result, err = h.importer.ImportCSV(userID, groupID, file)
	case "excel":
		result, err = h.importer.ImportExcel(userID, groupID, file)
	}
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, result)
}

type importExternalRequest struct {
	GroupID   string   `json:"group_id,omitempty"`
	Addresses []string `json:"addresses"`
}

// ImportExternal imports a plain list of addresses submitted by an
// external system.
func (h *Handlers) ImportExternal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req importExternalRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Addresses) == 0 {
		h.sendError(w, http.StatusBadRequest, "addresses are required")
		return
	}

	if req.GroupID != "" {
		group, err := h.groups.GetByID(req.GroupID, userID)
		if err != nil || group == nil {
			h.sendError(w, http.StatusBadRequest, "group not found")
			return
		}
	}

	result, err := h.importer.ImportAddresses(userID, req.GroupID, req.Addresses)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "import failed")
		return
	}

	h.sendJSON(w, http.StatusOK, result)
}
