package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/gigpost/gigpost/internal/metrics"
	"github.com/gigpost/gigpost/internal/models"
	"github.com/gigpost/gigpost/internal/repository"
)

type createPaymentIntentRequest struct {
	TicketID string `json:"ticket_id"`
	Email    string `json:"email,omitempty"`
}

// CreatePaymentIntent opens a pending payment for one ticket. Stock is
// only reserved on confirmation, but sold-out and expired tickets are
// rejected up front.
func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createPaymentIntentRequest
	if err := decodeJSON(r, &req); err != nil || req.TicketID == "" {
		h.sendError(w, http.StatusBadRequest, "ticket_id is required")
		return
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			h.sendError(w, http.StatusBadRequest, "invalid email address")
			return
		}
	}

	ticket, err := h.tickets.GetByID(req.TicketID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get ticket")
		return
	}
	if ticket == nil {
		h.sendError(w, http.StatusNotFound, "ticket not found")
		return
	}
	if ticket.TotalAvailable < 1 {
		h.sendError(w, http.StatusConflict, "ticket is sold out")
		return
	}
	if time.Now().After(ticket.ExpiryDate) {
		h.sendError(w, http.StatusBadRequest, "ticket sales have closed")
		return
	}

	payment := &models.Payment{
		TicketID: ticket.ID,
		Email:    req.Email,
		Amount:   ticket.TicketValue,
	}
	if err := h.payments.Create(payment); err != nil {
		h.logger.Error("failed to create payment", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to create payment")
		return
	}

	h.sendJSON(w, http.StatusCreated, payment)
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

// ConfirmPayment settles a pending payment and sells the ticket. The
// payment flips to SUCCEEDED first; if the stock ran out in the
// meantime the payment is marked FAILED instead.
func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := decodeJSON(r, &req); err != nil || req.PaymentIntentID == "" {
		h.sendError(w, http.StatusBadRequest, "payment_intent_id is required")
		return
	}

	payment, err := h.payments.GetByIntentID(req.PaymentIntentID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get payment")
		return
	}
	if payment == nil {
		h.sendError(w, http.StatusNotFound, "payment not found")
		return
	}

	err = h.payments.MarkSucceeded(req.PaymentIntentID)
	if errors.Is(err, repository.ErrPaymentNotPending) {
		h.sendError(w, http.StatusBadRequest, "payment is not pending")
		return
	}
	if err != nil {
		h.logger.Error("failed to confirm payment", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to confirm payment")
		return
	}

	if err := h.tickets.DecrementAvailability(payment.TicketID); err != nil {
		if markErr := h.payments.MarkFailed(req.PaymentIntentID); markErr != nil {
			h.logger.Error("failed to mark payment failed", "error", markErr)
		}
		metrics.IncPayments(models.PaymentFailed)
		if errors.Is(err, repository.ErrSoldOut) {
			h.sendError(w, http.StatusConflict, "ticket is sold out")
			return
		}
		h.logger.Error("failed to sell ticket", "error", err)
		h.sendError(w, http.StatusInternalServerError, "failed to sell ticket")
		return
	}

	metrics.IncPayments(models.PaymentSucceeded)
	metrics.IncTicketsSold()

	payment, err = h.payments.GetByIntentID(req.PaymentIntentID)
	if err != nil || payment == nil {
		h.sendError(w, http.StatusInternalServerError, "failed to reload payment")
		return
	}

	h.sendJSON(w, http.StatusOK, payment)
}

// PaymentStatus returns the current state of a payment intent.
func (h *Handlers) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	intentID := r.URL.Query().Get("payment_intent_id")
	if intentID == "" {
		h.sendError(w, http.StatusBadRequest, "payment_intent_id is required")
		return
	}

	payment, err := h.payments.GetByIntentID(intentID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get payment")
		return
	}
	if payment == nil {
		h.sendError(w, http.StatusNotFound, "payment not found")
		return
	}

	h.sendJSON(w, http.StatusOK, payment)
}
