package smtp

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	gosmtp "github.com/emersion/go-smtp"

	"github.com/gigpost/gigpost/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewTransportValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SMTPConfig
		wantErr bool
	}{
		{
			name: "valid",
			cfg: config.SMTPConfig{
				Host: "smtp.example.com",
				From: "noreply@example.com",
			},
		},
		{
			name:    "missing host",
			cfg:     config.SMTPConfig{From: "noreply@example.com"},
			wantErr: true,
		},
		{
			name:    "missing sender",
			cfg:     config.SMTPConfig{Host: "smtp.example.com"},
			wantErr: true,
		},
		{
			name: "dkim key file missing",
			cfg: config.SMTPConfig{
				Host: "smtp.example.com",
				From: "noreply@example.com",
				DKIM: config.DKIMConfig{
					Enabled:  true,
					KeyFile:  "/nonexistent/dkim.key",
					Domain:   "example.com",
					Selector: "mail",
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransport(tt.cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTransport() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewTransportDefaultPort(t *testing.T) {
	tr, err := NewTransport(config.SMTPConfig{
		Host: "smtp.example.com",
		From: "noreply@example.com",
	}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if tr.port != 587 {
		t.Errorf("port = %d, want 587", tr.port)
	}
	if tr.From() != "noreply@example.com" {
		t.Errorf("From() = %q", tr.From())
	}
}

func TestBuildMessage(t *testing.T) {
	tr, err := NewTransport(config.SMTPConfig{
		Host:     "smtp.example.com",
		From:     "noreply@gigpost.io",
		FromName: "GigPost",
	}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	data := string(tr.buildMessage("fan@example.org", "Doors at 8", "<p>See you <b>tonight</b></p>"))

	for _, want := range []string{
		"From: GigPost <noreply@gigpost.io>\r\n",
		"To: fan@example.org\r\n",
		"Subject: Doors at 8\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: multipart/alternative;",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Type: text/html; charset=utf-8",
		"<p>See you <b>tonight</b></p>",
		"See you tonight",
		"@gigpost.io>",
	} {
		if !strings.Contains(data, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>Hello</p>", "Hello"},
		{"line one<br>line two", "line one\nline two"},
		{"plain text", "plain text"},
		{"<a href=\"https://example.com\">tickets</a>", "tickets"},
	}

	for _, tt := range tests {
		if got := stripTags(tt.in); got != tt.want {
			t.Errorf("stripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTemporary bool
	}{
		{
			name:          "permanent 550",
			err:           errors.New("550 mailbox unavailable"),
			wantTemporary: false,
		},
		{
			name:          "temporary 421",
			err:           errors.New("421 service not available"),
			wantTemporary: true,
		},
		{
			name:          "smtp error 554",
			err:           &gosmtp.SMTPError{Code: 554, Message: "transaction failed"},
			wantTemporary: false,
		},
		{
			name:          "smtp error 450",
			err:           &gosmtp.SMTPError{Code: 450, Message: "try again later"},
			wantTemporary: true,
		},
		{
			name:          "no code defaults to temporary",
			err:           errors.New("connection reset by peer"),
			wantTemporary: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := categorizeError(tt.err, "RCPT TO")
			if de.Temporary != tt.wantTemporary {
				t.Errorf("Temporary = %v, want %v", de.Temporary, tt.wantTemporary)
			}
			if !strings.Contains(de.Message, "RCPT TO failed") {
				t.Errorf("Message = %q, want stage prefix", de.Message)
			}
		})
	}
}

func TestIsTemporaryError(t *testing.T) {
	if IsTemporaryError(&DeliveryError{Temporary: false}) {
		t.Error("permanent error reported as temporary")
	}
	if !IsTemporaryError(&DeliveryError{Temporary: true}) {
		t.Error("temporary error reported as permanent")
	}
	if !IsTemporaryError(errors.New("unknown")) {
		t.Error("unknown error should default to temporary")
	}
}
