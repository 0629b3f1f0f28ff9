package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "github.com/gladysonss/opensheets-app-sub000/internal/sheets"
)

// lastColumn is the column letter of the last Header entry.
const lastColumn = "O"

// Client mirrors ledger rows into one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// Serializes writers so row numbers read by one call stay valid until
	// its write lands.
	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var _ ports.Mirror = (*Client)(nil)

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON []byte
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials, first match wins: an OAuth client (GOOGLE_OAUTH_CLIENT_JSON or
// GOOGLE_OAUTH_CLIENT_FILE) with its token (GOOGLE_OAUTH_TOKEN_JSON or
// GOOGLE_OAUTH_TOKEN_FILE), then GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Lancamentos").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	cfg := Config{
		SpreadsheetID: spreadsheetID,
		SheetName:     strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
	}

	ts, err := tokenSourceFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	if ts != nil {
		slog.InfoContext(ctx, "Using OAuth user credentials")
		return New(ctx, cfg, goption.WithTokenSource(ts))
	}

	if cfg.CredentialsJSON, err = credentialsFromEnv(ctx); err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// New creates a client from service account credentials. Extra options are
// appended after the credential options and replace the pooled HTTP client.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	var base []goption.ClientOption
	if len(opts) == 0 {
		base = []goption.ClientOption{goption.WithHTTPClient(newHTTPClientWithPooling())}
	}
	if len(cfg.CredentialsJSON) > 0 {
		base = []goption.ClientOption{
			goption.WithCredentialsJSON(cfg.CredentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing service. An empty sheet name defaults to
// "Lancamentos".
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if sheetName == "" {
		sheetName = "Lancamentos"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func credentialsFromEnv(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// sheetState is one read of the mirror sheet.
type sheetState struct {
	empty bool
	// rowOf maps an instance id to its 1-based sheet row number.
	rowOf map[string]int
	rows  []ports.Row
}

func (c *Client) read(ctx context.Context) (sheetState, error) {
	if c.svc == nil {
		return sheetState{}, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return sheetState{}, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseSheet(resp.Values), nil
}

// UpsertRows rewrites rows already present in place and appends the rest.
// The header is written along with the first append into an empty sheet.
func (c *Client) UpsertRows(ctx context.Context, rows []ports.Row) error {
	if len(rows) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.read(ctx)
	if err != nil {
		return err
	}

	var (
		updates []*gsheet.ValueRange
		appends [][]any
	)
	for _, r := range rows {
		if n, ok := st.rowOf[r.ID]; ok {
			updates = append(updates, &gsheet.ValueRange{
				Range:  fmt.Sprintf("%s!A%d:%s%d", c.sheetName, n, lastColumn, n),
				Values: [][]any{r.Values()},
			})
			continue
		}
		appends = append(appends, r.Values())
	}

	if len(updates) > 0 {
		req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: updates}
		if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update rows in %s: %w", c.sheetName, err)
		}
	}
	if len(appends) > 0 {
		if st.empty {
			appends = append([][]any{headerValues()}, appends...)
		}
		rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
		vr := &gsheet.ValueRange{Values: appends}
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append rows to %s: %w", c.sheetName, err)
		}
	}

	slog.DebugContext(ctx, "Mirror rows written",
		"sheet", c.sheetName,
		"updated", len(updates),
		"appended", len(rows)-len(updates))
	return nil
}

// DeleteRows removes the sheet rows holding the given ids. Rows are deleted
// bottom-up in one batch so earlier deletions do not shift later ones.
func (c *Client) DeleteRows(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.read(ctx)
	if err != nil {
		return 0, err
	}
	var rowNums []int
	for _, id := range ids {
		if n, ok := st.rowOf[id]; ok {
			rowNums = append(rowNums, n)
		}
	}
	if len(rowNums) == 0 {
		return 0, nil
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rowNums)))

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return 0, err
	}
	requests := make([]*gsheet.Request, 0, len(rowNums))
	for _, n := range rowNums {
		requests = append(requests, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(n - 1),
					EndIndex:        int64(n),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("delete rows from %s: %w", c.sheetName, err)
	}
	return len(rowNums), nil
}

// ListRows returns every mirrored row in sheet order.
func (c *Client) ListRows(ctx context.Context) ([]ports.Row, error) {
	st, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	return st.rows, nil
}

// lookupSheetID resolves the numeric id of the mirror sheet once.
func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
