package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skip2/go-qrcode"
	bolt "go.etcd.io/bbolt"

	"github.com/gigpost/gigpost/internal/models"
)

var bucketTicketQR = []byte("ticket_qr")

// pngSize is the pixel size of generated QR images.
const pngSize = 256

// Generator produces QR code images for tickets and caches the PNG
// bytes in BoltDB so repeated lookups of the same ticket are cheap.
type Generator struct {
	db *bolt.DB
}

// payload is what a scanned ticket QR decodes to.
type payload struct {
	TicketID    string  `json:"ticket_id"`
	Name        string  `json:"name"`
	CompanyName string  `json:"company_name"`
	TicketType  string  `json:"ticket_type"`
	TicketValue float64 `json:"ticket_value"`
	ExpiryDate  string  `json:"expiry_date"`
}

// New opens (or creates) the QR cache at path.
func New(path string) (*Generator, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTicketQR)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Generator{db: db}, nil
}

// Close closes the underlying cache database.
func (g *Generator) Close() error {
	return g.db.Close()
}

// TicketCode returns the base64-encoded PNG QR code for a ticket,
// generating and caching it on first use.
func (g *Generator) TicketCode(ticket *models.Ticket) (string, error) {
	var cached []byte
	err := g.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(bucketTicketQR).Get([]byte(ticket.ID)); data != nil {
			cached = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if cached != nil {
		return base64.StdEncoding.EncodeToString(cached), nil
	}

	png, err := g.render(ticket)
	if err != nil {
		return "", err
	}

	err = g.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTicketQR).Put([]byte(ticket.ID), png)
	})
	if err != nil {
		return "", fmt.Errorf("failed to cache qr code: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}

// Invalidate drops the cached image for a ticket. Called when ticket
// details change so the next lookup re-renders.
func (g *Generator) Invalidate(ticketID string) error {
	return g.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTicketQR).Delete([]byte(ticketID))
	})
}

func (g *Generator) render(ticket *models.Ticket) ([]byte, error) {
	data, err := json.Marshal(payload{
		TicketID:    ticket.ID,
		Name:        ticket.Name,
		CompanyName: ticket.CompanyName,
		TicketType:  ticket.TicketType,
		TicketValue: ticket.TicketValue,
		ExpiryDate:  ticket.ExpiryDate.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal qr payload: %w", err)
	}

	png, err := qrcode.Encode(string(data), qrcode.Medium, pngSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}
