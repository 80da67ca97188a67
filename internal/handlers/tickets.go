package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gigpost/gigpost/internal/metrics"
	"github.com/gigpost/gigpost/internal/models"
	"github.com/gigpost/gigpost/internal/repository"
)

type ticketRequest struct {
	Name         string    `json:"name"`
	CompanyName  string    `json:"company_name"`
	TicketType   string    `json:"ticket_type"`
	TotalTickets int       `json:"total_tickets"`
	TicketValue  float64   `json:"ticket_value"`
	ExpiryDate   time.Time `json:"expiry_date"`
}

// ticketResponse embeds the QR code alongside the ticket fields.
type ticketResponse struct {
	models.Ticket
	QRCode string `json:"qr_code,omitempty"`
}

func (h *Handlers) ticketWithQR(t *models.Ticket) ticketResponse {
	resp := ticketResponse{Ticket: *t}

	code, err := h.qr.TicketCode(t)
	if err != nil {
		h.logger.Error("failed to render qr code", "ticket_id", t.ID, "error", err)
		return resp
	}
	resp.QRCode = code
	return resp
}

// CreateTicket creates a ticket type with its stock.
func (h *Handlers) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.CompanyName == "" {
		h.sendError(w, http.StatusBadRequest, "name and company_name are required")
		return
	}
	if req.TicketType == "" {
		h.sendError(w, http.StatusBadRequest, "ticket_type is required")
		return
	}
	if req.TotalTickets < 1 {
		h.sendError(w, http.StatusBadRequest, "total_tickets must be positive")
		return
	}
	if req.TicketValue < 0 {
		h.sendError(w, http.StatusBadRequest, "ticket_value must not be negative")
		return
	}
	if req.ExpiryDate.IsZero() || req.ExpiryDate.Before(time.Now()) {
		h.sendError(w, http.StatusBadRequest, "expiry_date must be in the future")
		return
	}

	ticket := &models.Ticket{
		Name:         req.Name,
		CompanyName:  req.CompanyName,
		TicketType:   req.TicketType,
		TotalTickets: req.TotalTickets,
		TicketValue:  req.TicketValue,
		ExpiryDate:   req.ExpiryDate,
	}
	if err := h.tickets.Create(ticket); err != nil {
		h.logger.Error("failed to create ticket", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to create ticket")
		return
	}

	h.sendJSON(w, http.StatusCreated, h.ticketWithQR(ticket))
}

// ListTickets returns tickets, optionally only those still on sale.
func (h *Handlers) ListTickets(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	tickets, total, err := h.tickets.List(models.TicketFilter{
		CompanyName:   r.URL.Query().Get("company"),
		AvailableOnly: r.URL.Query().Get("available") == "true",
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		h.logger.Error("failed to list tickets", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}

	items := make([]ticketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.ticketWithQR(&tickets[i]))
	}

	h.sendJSON(w, http.StatusOK, ListResponse{Items: items, Total: total})
}

// GetTicket returns one ticket with its QR code.
func (h *Handlers) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get ticket", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to get ticket")
		return
	}
	if ticket == nil {
		h.sendError(w, http.StatusNotFound, "ticket not found")
		return
	}
	h.sendJSON(w, http.StatusOK, h.ticketWithQR(ticket))
}

// UpdateTicket edits a ticket and invalidates its cached QR code.
func (h *Handlers) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get ticket")
		return
	}
	if ticket == nil {
		h.sendError(w, http.StatusNotFound, "ticket not found")
		return
	}

	var req ticketRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != "" {
		ticket.Name = req.Name
	}
	if req.CompanyName != "" {
		ticket.CompanyName = req.CompanyName
	}
	if req.TicketType != "" {
		ticket.TicketType = req.TicketType
	}
	if req.TicketValue > 0 {
		ticket.TicketValue = req.TicketValue
	}
	if !req.ExpiryDate.IsZero() {
		ticket.ExpiryDate = req.ExpiryDate
	}
	if req.TotalTickets > 0 {
		sold := ticket.TotalTickets - ticket.TotalAvailable
		if req.TotalTickets < sold {
			h.sendError(w, http.StatusBadRequest, "total_tickets cannot drop below sold count")
			return
		}
		ticket.TotalTickets = req.TotalTickets
		ticket.TotalAvailable = req.TotalTickets - sold
	}

	if err := h.tickets.Update(ticket); err != nil {
		h.logger.Error("failed to update ticket", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to update ticket")
		return
	}

	if err := h.qr.Invalidate(ticket.ID); err != nil {
		h.logger.Error("failed to invalidate qr cache", "ticket_id", ticket.ID, "error", err)
	}

	h.sendJSON(w, http.StatusOK, h.ticketWithQR(ticket))
}

// DeleteTicket removes a ticket type.
func (h *Handlers) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.tickets.Delete(id)
	if errors.Is(err, sql.ErrNoRows) {
		h.sendError(w, http.StatusNotFound, "ticket not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete ticket", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to delete ticket")
		return
	}

	if err := h.qr.Invalidate(id); err != nil {
		h.logger.Error("failed to invalidate qr cache", "ticket_id", id, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// BuyTicket decrements availability directly, for sales that bypass
// the payment flow.
func (h *Handlers) BuyTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ticket, err := h.tickets.GetByID(id)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get ticket")
		return
	}
	if ticket == nil {
		h.sendError(w, http.StatusNotFound, "ticket not found")
		return
	}
	if time.Now().After(ticket.ExpiryDate) {
		h.sendError(w, http.StatusBadRequest, "ticket sales have closed")
		return
	}

	err = h.tickets.DecrementAvailability(id)
	if errors.Is(err, repository.ErrSoldOut) {
		h.sendError(w, http.StatusConflict, "ticket is sold out")
		return
	}
	if err != nil {
		h.logger.Error("failed to sell ticket", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to sell ticket")
		return
	}
	metrics.IncTicketsSold()

	ticket, err = h.tickets.GetByID(id)
	if err != nil || ticket == nil {
		h.sendError(w, http.StatusInternalServerError, "failed to reload ticket")
		return
	}

	h.sendJSON(w, http.StatusOK, h.ticketWithQR(ticket))
}

// BusinessStats aggregates sales per ticket type for one company.
func (h *Handlers) BusinessStats(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	if company == "" {
		h.sendError(w, http.StatusBadRequest, "company is required")
		return
	}

	stats, err := h.tickets.BusinessStats(company)
	if err != nil {
		h.logger.Error("failed to compute business stats", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	h.sendJSON(w, http.StatusOK, stats)
}
