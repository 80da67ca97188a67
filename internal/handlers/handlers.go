package handlers

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gigpost/gigpost/internal/auth"
	"github.com/gigpost/gigpost/internal/dispatch"
	"github.com/gigpost/gigpost/internal/importer"
	"github.com/gigpost/gigpost/internal/qr"
	"github.com/gigpost/gigpost/internal/repository"
)

// maxUploadSize caps import file uploads at 5 MB.
const maxUploadSize = 5 << 20

// Handlers carries the dependencies of all HTTP endpoints.
type Handlers struct {
	users      *repository.UserRepository
	recipients *repository.RecipientRepository
	groups     *repository.GroupRepository
	campaigns  *repository.CampaignRepository
	maillogs   *repository.MailLogRepository
	tickets    *repository.TicketRepository
	payments   *repository.PaymentRepository

	auth     *auth.Manager
	importer *importer.Importer
	qr       *qr.Generator
	engine   *dispatch.Engine
	logger   *slog.Logger
}

// New creates the handler set.
func New(database *sql.DB, authManager *auth.Manager, qrGen *qr.Generator, engine *dispatch.Engine, logger *slog.Logger) *Handlers {
	return &Handlers{
		users:      repository.NewUserRepository(database),
		recipients: repository.NewRecipientRepository(database),
		groups:     repository.NewGroupRepository(database),
		campaigns:  repository.NewCampaignRepository(database),
		maillogs:   repository.NewMailLogRepository(database),
		tickets:    repository.NewTicketRepository(database),
		payments:   repository.NewPaymentRepository(database),
		auth:       authManager,
		importer:   importer.New(database, logger),
		qr:         qrGen,
		engine:     engine,
		logger:     logger.With("component", "api"),
	}
}

// ErrorResponse is the wire shape of all error replies
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListResponse wraps paginated collections
type ListResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

func (h *Handlers) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error("failed to encode response", "error", err)
		}
	}
}

func (h *Handlers) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{Error: message})
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// decodeJSON parses a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
