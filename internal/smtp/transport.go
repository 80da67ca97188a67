package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/gigpost/gigpost/internal/config"
	"github.com/gigpost/gigpost/internal/dkim"
)

// DeliveryError represents a delivery error with type information
type DeliveryError struct {
	Temporary bool
	Message   string
}

func (e *DeliveryError) Error() string {
	return e.Message
}

// Transport sends campaign emails through an authenticated SMTP relay.
type Transport struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	timeout  time.Duration
	logger   *slog.Logger
	signer   *dkim.Signer
}

// NewTransport builds a transport from SMTP settings. It fails when the
// relay host or sender address is not configured.
func NewTransport(cfg config.SMTPConfig, logger *slog.Logger) (*Transport, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is not configured")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp sender address is not configured")
	}

	t := &Transport{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		fromName: cfg.FromName,
		timeout:  30 * time.Second,
		logger:   logger,
	}
	if t.port == 0 {
		t.port = 587
	}

	if cfg.DKIM.Enabled {
		signer, err := dkim.NewSignerFromFile(cfg.DKIM.KeyFile, cfg.DKIM.Domain, cfg.DKIM.Selector)
		if err != nil {
			return nil, fmt.Errorf("load dkim key: %w", err)
		}
		t.signer = signer
	}

	return t, nil
}

// From returns the configured sender address.
func (t *Transport) From() string {
	return t.from
}

// Send delivers a single message to one recipient.
func (t *Transport) Send(ctx context.Context, to, subject, htmlBody string) error {
	data := t.buildMessage(to, subject, htmlBody)

	if t.signer != nil {
		signed, err := t.signer.Sign(data)
		if err != nil {
			t.logger.Warn("DKIM signing failed, sending unsigned",
				"domain", t.signer.Domain(),
				"error", err,
			)
		} else {
			data = signed
		}
	}

	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))

	client, err := t.dial(addr)
	if err != nil {
		return &DeliveryError{
			Temporary: true,
			Message:   fmt.Sprintf("connection failed to %s: %v", addr, err),
		}
	}
	defer client.Close()

	if deadline, ok := ctx.Deadline(); ok {
		client.CommandTimeout = time.Until(deadline)
	} else {
		client.CommandTimeout = t.timeout
	}

	if t.username != "" {
		auth := sasl.NewPlainClient("", t.username, t.password)
		if err := client.Auth(auth); err != nil {
			return categorizeError(err, "AUTH")
		}
	}

	if err := client.Mail(t.from, nil); err != nil {
		return categorizeError(err, "MAIL FROM")
	}
	if err := client.Rcpt(to, nil); err != nil {
		return categorizeError(err, fmt.Sprintf("RCPT TO %s", to))
	}

	wc, err := client.Data()
	if err != nil {
		return categorizeError(err, "DATA")
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return &DeliveryError{
			Temporary: true,
			Message:   fmt.Sprintf("failed to write message data: %v", err),
		}
	}
	if err := wc.Close(); err != nil {
		return categorizeError(err, "DATA close")
	}

	client.Quit()

	t.logger.Debug("message delivered",
		"relay", addr,
		"to", to,
	)

	return nil
}

// dial connects to the relay. Port 465 means implicit TLS, everything
// else starts plain and upgrades with STARTTLS.
func (t *Transport) dial(addr string) (*smtp.Client, error) {
	tlsConfig := &tls.Config{
		ServerName: t.host,
		MinVersion: tls.VersionTLS12,
	}
	if t.port == 465 {
		return smtp.DialTLS(addr, tlsConfig)
	}
	return smtp.DialStartTLS(addr, tlsConfig)
}

// buildMessage constructs RFC 5322 email data with a plain-text
// fallback derived from the HTML body.
func (t *Transport) buildMessage(to, subject, htmlBody string) []byte {
	var buf bytes.Buffer

	from := t.from
	if t.fromName != "" {
		from = fmt.Sprintf("%s <%s>", t.fromName, t.from)
	}

	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.New().String(), senderDomain(t.from)))

	boundary := uuid.New().String()
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(stripTags(htmlBody))
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return buf.Bytes()
}

// senderDomain extracts the domain part of an email address.
func senderDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "localhost"
	}
	return email[at+1:]
}

// tagPattern matches HTML tags for the plain-text fallback part.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags produces a crude plain-text rendering of an HTML body.
func stripTags(html string) string {
	text := strings.ReplaceAll(html, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "</p>", "\n\n")
	text = tagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// smtpCodePattern matches SMTP response codes at word boundaries
var smtpCodePattern = regexp.MustCompile(`\b(4\d{2}|5\d{2})\b`)

// categorizeError determines if an SMTP error is temporary or permanent
func categorizeError(err error, stage string) *DeliveryError {
	msg := fmt.Sprintf("%s failed: %v", stage, err)

	var se *smtp.SMTPError
	if errors.As(err, &se) {
		return &DeliveryError{
			Temporary: se.Code >= 400 && se.Code < 500,
			Message:   msg,
		}
	}

	matches := smtpCodePattern.FindStringSubmatch(err.Error())
	if len(matches) > 1 {
		code := matches[1]
		if strings.HasPrefix(code, "5") {
			return &DeliveryError{
				Temporary: false,
				Message:   msg,
			}
		}
		if strings.HasPrefix(code, "4") {
			return &DeliveryError{
				Temporary: true,
				Message:   msg,
			}
		}
	}

	// Assume temporary by default
	return &DeliveryError{
		Temporary: true,
		Message:   msg,
	}
}

// IsTemporaryError checks if the error is temporary
func IsTemporaryError(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Temporary
	}
	return true
}
