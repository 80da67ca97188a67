package importer

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gigpost/gigpost/internal/models"
	"github.com/gigpost/gigpost/internal/repository"
)

// maxReportedErrors caps the per-row error list in a Result.
const maxReportedErrors = 10

// Result summarizes one import run.
type Result struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Invalid  int      `json:"invalid"`
	Errors   []string `json:"errors,omitempty"`
}

// Importer loads recipient addresses from CSV, Excel, or plain lists.
type Importer struct {
	recipients *repository.RecipientRepository
	groups     *repository.GroupRepository
	logger     *slog.Logger
}

// New creates an importer.
func New(database *sql.DB, logger *slog.Logger) *Importer {
	return &Importer{
		recipients: repository.NewRecipientRepository(database),
		groups:     repository.NewGroupRepository(database),
		logger:     logger.With("component", "importer"),
	}
}

// ImportCSV reads addresses from CSV data. When the first row contains
// an email header the matching column is used; otherwise the first
// column of every row is taken as an address.
func (im *Importer) ImportCSV(userID, groupID string, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	return im.importRows(userID, groupID, models.SourceImportedCSV, rows)
}

// ImportExcel reads addresses from the first sheet of an XLSX file.
func (im *Importer) ImportExcel(userID, groupID string, r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return im.importRows(userID, groupID, models.SourceImportedExcel, rows)
}

// ImportAddresses loads a plain list of addresses, as submitted by an
// external system.
func (im *Importer) ImportAddresses(userID, groupID string, addresses []string) (*Result, error) {
	result := &Result{}
	for _, addr := range addresses {
		im.importAddress(userID, groupID, models.SourceImportedExternal, addr, result)
	}

	im.logImport(userID, models.SourceImportedExternal, result)
	return result, nil
}

// importRows runs the shared row loop for tabular sources.
func (im *Importer) importRows(userID, groupID, sourceType string, rows [][]string) (*Result, error) {
	result := &Result{}

	col := 0
	start := 0
	if len(rows) > 0 {
		if headerCol, ok := findEmailColumn(rows[0]); ok {
			col = headerCol
			start = 1
		}
	}

	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		im.importAddress(userID, groupID, sourceType, row[col], result)
	}

	im.logImport(userID, sourceType, result)
	return result, nil
}

// importAddress validates and stores one address. Duplicates are
// counted as skipped but still join the target group.
func (im *Importer) importAddress(userID, groupID, sourceType, raw string, result *Result) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" {
		return
	}
	result.Total++

	if _, err := mail.ParseAddress(addr); err != nil {
		result.Invalid++
		result.addError(fmt.Sprintf("invalid address %q", addr))
		return
	}

	rec := &models.Recipient{
		UserID:       userID,
		EmailAddress: addr,
		SourceType:   sourceType,
	}

	err := im.recipients.Create(rec)
	switch {
	case err == nil:
		result.Imported++
	case err == repository.ErrDuplicateEmail:
		result.Skipped++
		existing, lookupErr := im.recipients.GetByEmail(userID, addr)
		if lookupErr != nil || existing == nil {
			result.addError(fmt.Sprintf("duplicate %q could not be resolved", addr))
			return
		}
		rec = existing
	default:
		result.Invalid++
		result.addError(fmt.Sprintf("failed to store %q: %v", addr, err))
		return
	}

	if groupID != "" {
		if _, err := im.groups.AddMember(groupID, rec.ID); err != nil {
			result.addError(fmt.Sprintf("failed to add %q to group: %v", addr, err))
		}
	}
}

func (im *Importer) logImport(userID, sourceType string, result *Result) {
	im.logger.Info("import finished",
		"user_id", userID,
		"source", sourceType,
		"total", result.Total,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"invalid", result.Invalid,
	)
}

func (r *Result) addError(msg string) {
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, msg)
	}
}

// findEmailColumn looks for an email-ish header in the first row.
func findEmailColumn(header []string) (int, bool) {
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		switch name {
		case "email", "e-mail", "email_address", "email address", "mail":
			return i, true
		}
	}
	return 0, false
}
