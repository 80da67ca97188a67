package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/gigpost/gigpost/internal/auth"
	"github.com/gigpost/gigpost/internal/config"
	"github.com/gigpost/gigpost/internal/db"
	"github.com/gigpost/gigpost/internal/dispatch"
	"github.com/gigpost/gigpost/internal/middleware"
	"github.com/gigpost/gigpost/internal/models"
	"github.com/gigpost/gigpost/internal/qr"
	"github.com/gigpost/gigpost/internal/repository"
)

const testPassword = "correct horse battery staple"

type testTransport struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (t *testTransport) Send(ctx context.Context, to, subject, htmlBody string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail {
		return fmt.Errorf("451 try again later")
	}
	t.sent = append(t.sent, to)
	return nil
}

type testEnv struct {
	db        *sql.DB
	router    *chi.Mux
	handlers  *Handlers
	transport *testTransport
	token     string
	userID    string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	database.SetMaxOpenConns(1)

	if _, err := database.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatal(err)
	}
	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authManager := auth.NewManager("0123456789abcdef0123456789abcdef", "gigpost", time.Hour)

	qrGen, err := qr.New(filepath.Join(t.TempDir(), "qr.db"))
	if err != nil {
		t.Fatalf("Failed to open qr cache: %v", err)
	}
	t.Cleanup(func() { qrGen.Close() })

	transport := &testTransport{}
	engine := dispatch.NewEngine(database, config.DispatchConfig{BatchSize: 10}, func() (dispatch.Transport, error) {
		return transport, nil
	}, logger)

	h := New(database, authManager, qrGen, engine, logger)

	env := &testEnv{
		db:        database,
		handlers:  h,
		transport: transport,
		router:    chi.NewRouter(),
	}
	env.mountRoutes(authManager)

	// Seed a user and log in
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	users := repository.NewUserRepository(database)
	user := &models.User{Email: "owner@gigpost.io", PasswordHash: string(hash), Name: "Owner"}
	if err := users.Create(user); err != nil {
		t.Fatal(err)
	}
	env.userID = user.ID

	rec := env.do(t, "POST", "/api/auth/login", map[string]string{
		"email":    "owner@gigpost.io",
		"password": testPassword,
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var login loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatal(err)
	}
	env.token = login.Token

	return env
}

func (env *testEnv) mountRoutes(authManager *auth.Manager) {
	env.router.Post("/api/auth/login", env.handlers.Login)

	env.router.Route("/api/tickets", func(r chi.Router) {
		r.Get("/", env.handlers.ListTickets)
		r.Get("/stats", env.handlers.BusinessStats)
		r.Get("/{id}", env.handlers.GetTicket)
		r.Post("/{id}/buy", env.handlers.BuyTicket)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(authManager))
			r.Post("/", env.handlers.CreateTicket)
			r.Put("/{id}", env.handlers.UpdateTicket)
			r.Delete("/{id}", env.handlers.DeleteTicket)
		})
	})

	env.router.Route("/api/payments", func(r chi.Router) {
		r.Post("/create-payment-intent", env.handlers.CreatePaymentIntent)
		r.Post("/confirm-payment", env.handlers.ConfirmPayment)
		r.Get("/status", env.handlers.PaymentStatus)
	})

	env.router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(authManager))

		r.Route("/api/emails", func(r chi.Router) {
			r.Get("/", env.handlers.ListRecipients)
			r.Post("/", env.handlers.CreateRecipient)
			r.Get("/stats/overview", env.handlers.RecipientStats)
			r.Post("/import/csv", env.handlers.ImportCSV)
			r.Post("/import/excel", env.handlers.ImportExcel)
			r.Post("/import/external", env.handlers.ImportExternal)
			r.Get("/{id}", env.handlers.GetRecipient)
			r.Patch("/{id}/status", env.handlers.UpdateRecipientStatus)
			r.Delete("/{id}", env.handlers.DeleteRecipient)
		})

		r.Route("/api/email-groups", func(r chi.Router) {
			r.Get("/", env.handlers.ListGroups)
			r.Post("/", env.handlers.CreateGroup)
			r.Get("/{id}", env.handlers.GetGroup)
			r.Put("/{id}", env.handlers.UpdateGroup)
			r.Delete("/{id}", env.handlers.DeleteGroup)
			r.Post("/{id}/members", env.handlers.AddGroupMember)
			r.Delete("/{id}/members/{recipientID}", env.handlers.RemoveGroupMember)
		})

		r.Route("/api/campaigns", func(r chi.Router) {
			r.Get("/", env.handlers.ListCampaigns)
			r.Post("/", env.handlers.CreateCampaign)
			r.Get("/{id}", env.handlers.GetCampaign)
			r.Put("/{id}", env.handlers.UpdateCampaign)
			r.Delete("/{id}", env.handlers.DeleteCampaign)
			r.Post("/{id}/send", env.handlers.SendCampaign)
			r.Get("/{id}/analytics", env.handlers.CampaignAnalytics)
		})
	})
}

// do performs a JSON request against the test router.
func (env *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "POST", "/api/auth/login", map[string]string{
		"email":    "owner@gigpost.io",
		"password": "wrong",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "GET", "/api/emails/", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without token", rec.Code)
	}

	rec = env.do(t, "GET", "/api/emails/", nil, env.token)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with token", rec.Code)
	}
}

func TestRecipientLifecycle(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "POST", "/api/emails/", map[string]string{"email_address": "Fan@Example.org"}, env.token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[models.Recipient](t, rec)
	if created.EmailAddress != "fan@example.org" {
		t.Errorf("address = %q, want lower-cased", created.EmailAddress)
	}

	// Duplicate address conflicts
	rec = env.do(t, "POST", "/api/emails/", map[string]string{"email_address": "fan@example.org"}, env.token)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	// Invalid address rejected
	rec = env.do(t, "POST", "/api/emails/", map[string]string{"email_address": "nope"}, env.token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status = %d, want 400", rec.Code)
	}

	rec = env.do(t, "PATCH", "/api/emails/"+created.ID+"/status", map[string]string{"status": "UNSUBSCRIBED"}, env.token)
	if rec.Code != http.StatusOK {
		t.Errorf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, "DELETE", "/api/emails/"+created.ID, nil, env.token)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}

	rec = env.do(t, "GET", "/api/emails/"+created.ID, nil, env.token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestGroupMembershipEndpoints(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "POST", "/api/email-groups/", map[string]string{"name": "subscribers"}, env.token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group = %d: %s", rec.Code, rec.Body.String())
	}
	group := decodeBody[models.Group](t, rec)

	rec = env.do(t, "POST", "/api/emails/", map[string]string{"email_address": "fan@example.org"}, env.token)
	recipient := decodeBody[models.Recipient](t, rec)

	rec = env.do(t, "POST", "/api/email-groups/"+group.ID+"/members", map[string]string{"recipient_id": recipient.ID}, env.token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add member = %d: %s", rec.Code, rec.Body.String())
	}

	// Adding the same member twice is a client error
	rec = env.do(t, "POST", "/api/email-groups/"+group.ID+"/members", map[string]string{"recipient_id": recipient.ID}, env.token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate add = %d, want 400", rec.Code)
	}

	rec = env.do(t, "GET", "/api/email-groups/"+group.ID, nil, env.token)
	got := decodeBody[models.GroupWithMembers](t, rec)
	if len(got.Members) != 1 || got.TotalRecipients != 1 {
		t.Errorf("group = %+v, want one member", got)
	}

	rec = env.do(t, "DELETE", "/api/email-groups/"+group.ID+"/members/"+recipient.ID, nil, env.token)
	if rec.Code != http.StatusNoContent {
		t.Errorf("remove member = %d, want 204", rec.Code)
	}

	// Removing a non-member is not found
	rec = env.do(t, "DELETE", "/api/email-groups/"+group.ID+"/members/"+recipient.ID, nil, env.token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("remove non-member = %d, want 404", rec.Code)
	}
}

func TestGroupCRUDEndpoints(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "POST", "/api/email-groups/", map[string]string{"name": "vip"}, env.token)
	group := decodeBody[models.Group](t, rec)

	rec = env.do(t, "PUT", "/api/email-groups/"+group.ID, map[string]string{
		"name":        "vip list",
		"description": "front row",
	}, env.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("update group = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, "GET", "/api/email-groups/", nil, env.token)
	list := decodeBody[struct {
		Items []models.Group `json:"items"`
		Total int            `json:"total"`
	}](t, rec)
	if list.Total != 1 || len(list.Items) != 1 || list.Items[0].Name != "vip list" {
		t.Errorf("list = %+v, want the renamed group", list)
	}

	rec = env.do(t, "DELETE", "/api/email-groups/"+group.ID, nil, env.token)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete group = %d, want 204", rec.Code)
	}
	rec = env.do(t, "GET", "/api/email-groups/"+group.ID, nil, env.token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

// seedCampaign creates a group with n active recipients and a draft
// campaign over it, all through the API.
func (env *testEnv) seedCampaign(t *testing.T, n int) models.Campaign {
	t.Helper()

	rec := env.do(t, "POST", "/api/email-groups/", map[string]string{"name": "audience"}, env.token)
	group := decodeBody[models.Group](t, rec)

	for i := 0; i < n; i++ {
		rec = env.do(t, "POST", "/api/emails/", map[string]string{
			"email_address": fmt.Sprintf("fan%02d@example.org", i),
		}, env.token)
		recipient := decodeBody[models.Recipient](t, rec)
		env.do(t, "POST", "/api/email-groups/"+group.ID+"/members", map[string]string{"recipient_id": recipient.ID}, env.token)
	}

	rec = env.do(t, "POST", "/api/campaigns/", map[string]string{
		"group_id": group.ID,
		"subject":  "Tour dates",
		"content":  "<p>New shows</p>",
	}, env.token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create campaign = %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[models.Campaign](t, rec)
}

func TestCampaignSendEndpoint(t *testing.T) {
	env := setupEnv(t)
	campaign := env.seedCampaign(t, 3)

	rec := env.do(t, "POST", "/api/campaigns/"+campaign.ID+"/send", nil, env.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("send = %d: %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[dispatch.Result](t, rec)
	if result.SentCount != 3 || result.FailedCount != 0 || result.TotalRecipients != 3 {
		t.Errorf("result = %+v, want {3 0 3}", result)
	}

	// A second send is rejected
	rec = env.do(t, "POST", "/api/campaigns/"+campaign.ID+"/send", nil, env.token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("re-send = %d, want 400", rec.Code)
	}
	errResp := decodeBody[ErrorResponse](t, rec)
	if errResp.Error != "Campaign already sent" {
		t.Errorf("error = %q", errResp.Error)
	}

	// Analytics reflect the run
	rec = env.do(t, "GET", "/api/campaigns/"+campaign.ID+"/analytics", nil, env.token)
	analytics := decodeBody[models.CampaignAnalytics](t, rec)
	if analytics.Sent != 3 || analytics.DeliveryRate != 1.0 {
		t.Errorf("analytics = %+v", analytics)
	}
}

func TestDeleteCampaign(t *testing.T) {
	env := setupEnv(t)
	sent := env.seedCampaign(t, 1)

	// A second draft over the same group
	rec := env.do(t, "POST", "/api/campaigns/", map[string]string{
		"group_id": sent.GroupID,
		"subject":  "Second announcement",
		"content":  "<p>More shows</p>",
	}, env.token)
	draft := decodeBody[models.Campaign](t, rec)

	rec = env.do(t, "DELETE", "/api/campaigns/"+draft.ID, nil, env.token)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete draft = %d, want 204", rec.Code)
	}

	rec = env.do(t, "POST", "/api/campaigns/"+sent.ID+"/send", nil, env.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("send = %d: %s", rec.Code, rec.Body.String())
	}

	// Sent campaigns are immutable
	rec = env.do(t, "DELETE", "/api/campaigns/"+sent.ID, nil, env.token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("delete sent = %d, want 400", rec.Code)
	}
	rec = env.do(t, "GET", "/api/campaigns/"+sent.ID, nil, env.token)
	if rec.Code != http.StatusOK {
		t.Errorf("sent campaign gone after rejected delete: %d", rec.Code)
	}
}

func TestCampaignSendUnknownID(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "POST", "/api/campaigns/550e8400-e29b-41d4-a716-446655440000/send", nil, env.token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("send unknown = %d, want 404", rec.Code)
	}
}

func TestImportExternalEndpoint(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, "POST", "/api/emails/import/external", map[string]any{
		"addresses": []string{"a@example.org", "b@example.org", "bad"},
	}, env.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Imported int `json:"imported"`
		Invalid  int `json:"invalid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Imported != 2 || result.Invalid != 1 {
		t.Errorf("result = %+v, want imported=2 invalid=1", result)
	}
}

func (env *testEnv) seedTicket(t *testing.T, stock int) ticketResponse {
	t.Helper()

	rec := env.do(t, "POST", "/api/tickets/", map[string]any{
		"name":          "Standup Night",
		"company_name":  "Laugh Co",
		"ticket_type":   "GENERAL",
		"total_tickets": stock,
		"ticket_value":  25.0,
		"expiry_date":   time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}, env.token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create ticket = %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[ticketResponse](t, rec)
}

func TestCreateTicketValidation(t *testing.T) {
	env := setupEnv(t)

	valid := map[string]any{
		"name":          "Standup Night",
		"company_name":  "Laugh Co",
		"ticket_type":   "GENERAL",
		"total_tickets": 10,
		"ticket_value":  25.0,
		"expiry_date":   time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}

	tests := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"missing name", func(m map[string]any) { m["name"] = "" }},
		{"missing ticket_type", func(m map[string]any) { m["ticket_type"] = "" }},
		{"zero stock", func(m map[string]any) { m["total_tickets"] = 0 }},
		{"negative value", func(m map[string]any) { m["ticket_value"] = -1.0 }},
		{"missing expiry", func(m map[string]any) { delete(m, "expiry_date") }},
		{"past expiry", func(m map[string]any) {
			m["expiry_date"] = time.Now().Add(-time.Hour).Format(time.RFC3339)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{}
			for k, v := range valid {
				body[k] = v
			}
			tt.mutate(body)

			rec := env.do(t, "POST", "/api/tickets/", body, env.token)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTicketEndpoints(t *testing.T) {
	env := setupEnv(t)

	// Creation requires auth
	rec := env.do(t, "POST", "/api/tickets/", map[string]any{"name": "x"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated create = %d, want 401", rec.Code)
	}

	ticket := env.seedTicket(t, 2)
	if ticket.QRCode == "" {
		t.Error("created ticket missing qr code")
	}
	if ticket.TotalAvailable != 2 {
		t.Errorf("available = %d, want 2", ticket.TotalAvailable)
	}

	// Public read
	rec = env.do(t, "GET", "/api/tickets/"+ticket.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("public get = %d, want 200", rec.Code)
	}

	// Public buy until sold out
	for i := 0; i < 2; i++ {
		rec = env.do(t, "POST", "/api/tickets/"+ticket.ID+"/buy", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("buy %d = %d: %s", i, rec.Code, rec.Body.String())
		}
	}
	rec = env.do(t, "POST", "/api/tickets/"+ticket.ID+"/buy", nil, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("sold-out buy = %d, want 409", rec.Code)
	}

	// Stats for the company
	rec = env.do(t, "GET", "/api/tickets/stats?company=Laugh+Co", nil, "")
	stats := decodeBody[models.BusinessStats](t, rec)
	if len(stats.Types) != 1 || stats.Types[0].Sold != 2 {
		t.Errorf("stats = %+v, want 2 sold", stats)
	}
}

func TestPaymentFlow(t *testing.T) {
	env := setupEnv(t)
	ticket := env.seedTicket(t, 1)

	rec := env.do(t, "POST", "/api/payments/create-payment-intent", map[string]string{
		"ticket_id": ticket.ID,
		"email":     "buyer@example.org",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create intent = %d: %s", rec.Code, rec.Body.String())
	}
	payment := decodeBody[models.Payment](t, rec)
	if payment.Status != models.PaymentPending || payment.Amount != 25.0 {
		t.Errorf("payment = %+v", payment)
	}

	rec = env.do(t, "POST", "/api/payments/confirm-payment", map[string]string{
		"payment_intent_id": payment.PaymentIntentID,
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm = %d: %s", rec.Code, rec.Body.String())
	}
	confirmed := decodeBody[models.Payment](t, rec)
	if confirmed.Status != models.PaymentSucceeded {
		t.Errorf("status = %q, want SUCCEEDED", confirmed.Status)
	}

	// Stock was decremented
	rec = env.do(t, "GET", "/api/tickets/"+ticket.ID, nil, "")
	got := decodeBody[ticketResponse](t, rec)
	if got.TotalAvailable != 0 {
		t.Errorf("available = %d, want 0", got.TotalAvailable)
	}

	// Double confirmation is rejected
	rec = env.do(t, "POST", "/api/payments/confirm-payment", map[string]string{
		"payment_intent_id": payment.PaymentIntentID,
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("double confirm = %d, want 400", rec.Code)
	}

	// Status endpoint
	rec = env.do(t, "GET", "/api/payments/status?payment_intent_id="+payment.PaymentIntentID, nil, "")
	status := decodeBody[models.Payment](t, rec)
	if status.Status != models.PaymentSucceeded {
		t.Errorf("status = %q, want SUCCEEDED", status.Status)
	}
}

func TestConfirmPaymentSoldOutMarksFailed(t *testing.T) {
	env := setupEnv(t)
	ticket := env.seedTicket(t, 1)

	// Two intents race for the last ticket
	rec := env.do(t, "POST", "/api/payments/create-payment-intent", map[string]string{"ticket_id": ticket.ID}, "")
	first := decodeBody[models.Payment](t, rec)
	rec = env.do(t, "POST", "/api/payments/create-payment-intent", map[string]string{"ticket_id": ticket.ID}, "")
	second := decodeBody[models.Payment](t, rec)

	rec = env.do(t, "POST", "/api/payments/confirm-payment", map[string]string{
		"payment_intent_id": first.PaymentIntentID,
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("first confirm = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, "POST", "/api/payments/confirm-payment", map[string]string{
		"payment_intent_id": second.PaymentIntentID,
	}, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second confirm = %d, want 409", rec.Code)
	}

	// The losing payment must not stay SUCCEEDED
	rec = env.do(t, "GET", "/api/payments/status?payment_intent_id="+second.PaymentIntentID, nil, "")
	loser := decodeBody[models.Payment](t, rec)
	if loser.Status != models.PaymentFailed {
		t.Errorf("losing payment status = %q, want FAILED", loser.Status)
	}
}

func TestPaymentIntentSoldOutTicket(t *testing.T) {
	env := setupEnv(t)
	ticket := env.seedTicket(t, 1)

	rec := env.do(t, "POST", "/api/tickets/"+ticket.ID+"/buy", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatal("buy failed")
	}

	rec = env.do(t, "POST", "/api/payments/create-payment-intent", map[string]string{
		"ticket_id": ticket.ID,
	}, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("intent on sold-out = %d, want 409", rec.Code)
	}
}
