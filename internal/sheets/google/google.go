package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"expenses/internal/config"
	"expenses/internal/core"
	ports "expenses/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	journalSheet  string
	summarySheet  string
}

// Ensure interface conformance
var _ ports.Exporter = (*Client)(nil)

// Options selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile.
type Options struct {
	SpreadsheetID   string
	JournalSheet    string
	SummarySheet    string
	CredentialsJSON string
	CredentialsFile string
}

// OptionsFromConfig selects the spreadsheet and service account from the
// application configuration. GOOGLE_APPLICATION_CREDENTIALS is used when no
// service account file is named explicitly.
func OptionsFromConfig(cfg *config.Config) Options {
	o := Options{
		SpreadsheetID:   strings.TrimSpace(cfg.GoogleSpreadsheetID),
		JournalSheet:    strings.TrimSpace(cfg.GoogleJournalSheetName),
		SummarySheet:    strings.TrimSpace(cfg.GoogleSummarySheetName),
		CredentialsJSON: strings.TrimSpace(cfg.GoogleServiceAccountJSON),
		CredentialsFile: strings.TrimSpace(cfg.GoogleServiceAccountFile),
	}
	if o.CredentialsFile == "" {
		o.CredentialsFile = strings.TrimSpace(cfg.GoogleApplicationCredsFile)
	}
	return o
}

func (o *Options) defaults() {
	if o.JournalSheet == "" {
		o.JournalSheet = "Journal"
	}
	if o.SummarySheet == "" {
		o.SummarySheet = "Summary"
	}
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, o Options) (*Client, error) {
	if o.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credentialsJSON, err := o.credentials(ctx)
	if err != nil {
		return nil, err
	}
	return newClient(ctx, o,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func newClient(ctx context.Context, o Options, opts ...goption.ClientOption) (*Client, error) {
	o.defaults()
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created",
		"journal_sheet", o.JournalSheet,
		"summary_sheet", o.SummarySheet)
	return &Client{
		svc:           svc,
		spreadsheetID: o.SpreadsheetID,
		journalSheet:  o.JournalSheet,
		summarySheet:  o.SummarySheet,
	}, nil
}

func (o Options) credentials(ctx context.Context) ([]byte, error) {
	switch {
	case o.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(o.CredentialsJSON), nil
	case o.CredentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", o.CredentialsFile)
		data, err := os.ReadFile(o.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendJournal appends rows after the last non-empty row of the journal tab.
func (c *Client) AppendJournal(ctx context.Context, rows []ports.JournalRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return nil
	}

	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.Values())
	}
	rng := fmt.Sprintf("%s!A:H", c.journalSheet)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.journalSheet, err)
	}
	return nil
}

// WriteSummary clears the summary tab and writes the report from A1.
func (c *Client) WriteSummary(ctx context.Context, summary core.Summary, generatedAt time.Time) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:C", c.summarySheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", c.summarySheet, err)
	}

	values := ports.SummaryValues(summary, generatedAt)
	rng := fmt.Sprintf("%s!A1:C%d", c.summarySheet, len(values))
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("update sheet %s: %w", c.summarySheet, err)
	}
	return nil
}
