// Package google appends delivered-cycle reports to the practice's Google
// spreadsheet, authenticating with an OAuth token or a service account.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/luke-anto/ledgerdesk/internal/core"
	ports "github.com/luke-anto/ledgerdesk/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base sheet name without year; rows for 2026 land on "2026 Reports".
	reportsBase string
}

var _ ports.ReportWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth, in preference order: an OAuth client plus token minted by the
// oauth-init command (GOOGLE_OAUTH_CLIENT_JSON/GOOGLE_OAUTH_CLIENT_FILE
// with GOOGLE_OAUTH_TOKEN_JSON/GOOGLE_OAUTH_TOKEN_FILE), or a service
// account (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS).
// Optional: GOOGLE_REPORT_SHEET_NAME (default "Reports").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	reportsBase := strings.TrimSpace(os.Getenv("GOOGLE_REPORT_SHEET_NAME"))
	if reportsBase == "" {
		reportsBase = "Reports"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportsBase:   reportsBase,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	if clientJSON, tokenJSON, ok := oauthCredentials(); ok {
		cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("oauth client config: %w", err)
		}
		var tok oauth2.Token
		if err := json.Unmarshal(tokenJSON, &tok); err != nil {
			return nil, fmt.Errorf("oauth token: %w", err)
		}
		service, err := gsheet.NewService(ctx,
			goption.WithHTTPClient(cfg.Client(ctx, &tok)))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing Google credentials: provide an OAuth client and token, or a service account")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// oauthCredentials resolves the OAuth client and token pair, either inline
// or from files. Both halves must be present for the OAuth path.
func oauthCredentials() (clientJSON, tokenJSON []byte, ok bool) {
	clientJSON = readEnvOrFile("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	tokenJSON = readEnvOrFile("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	return clientJSON, tokenJSON, len(clientJSON) > 0 && len(tokenJSON) > 0
}

func readEnvOrFile(jsonVar, fileVar string) []byte {
	if v := strings.TrimSpace(os.Getenv(jsonVar)); v != "" {
		return []byte(v)
	}
	if path := strings.TrimSpace(os.Getenv(fileVar)); path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			return b
		}
	}
	return nil
}

// Append writes one report row: tenant, period, money in, money out, net,
// tasks done, delivery timestamp.
func (c *Client) Append(ctx context.Context, r core.CycleReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheetName := fmt.Sprintf("%d %s", r.Year, c.reportsBase)

	// Find the next empty row from the sheet dimensions.
	rng := fmt.Sprintf("%s!A:A", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", sheetName, err)
	}
	nextRow := len(resp.Values) + 1

	net := r.TotalIn.Cents + r.TotalOut.Cents
	row := []any{
		r.TenantName,
		fmt.Sprintf("%04d-%02d", r.Year, r.Month),
		float64(r.TotalIn.Cents) / 100.0,
		float64(r.TotalOut.Cents) / 100.0,
		float64(net) / 100.0,
		r.TasksDone,
		time.Now().UTC().Format("2006-01-02"),
	}

	dataRange := fmt.Sprintf("%s!A%d:G%d", sheetName, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update sheet %s: %w", sheetName, err)
	}

	slog.InfoContext(ctx, "Report appended to spreadsheet",
		"report_id", r.ID, "sheet", sheetName, "row", nextRow)

	return dataRange, nil
}
