// Package sheets retrieves the menu as CSV from a published Google Sheet.
//
// The client only transports bytes: it never retries and never parses.
// Recovery from failures is left to the cache and loader layers.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public spreadsheet endpoint root.
const DefaultBaseURL = "https://docs.google.com/spreadsheets/d"

// Defaults for the sheet location within the spreadsheet.
const (
	DefaultSheetName = "Sheet1"
	DefaultRange     = "A1:J"
	DefaultMaxBytes  = 5 << 20
)

// ErrResponseTooLarge is returned when the export exceeds the configured size cap.
var ErrResponseTooLarge = errors.New("sheet export too large")

// ErrMissingSheetID is returned by NewClient when no spreadsheet id is set.
var ErrMissingSheetID = errors.New("sheet id is required")

// StatusError reports a non-2xx response from the export endpoint.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sheet export returned status %d", e.StatusCode)
}

// Fetcher retrieves the raw CSV text of the menu sheet.
type Fetcher interface {
	FetchCSV(ctx context.Context) (string, error)
}

// Config describes which sheet to export and how.
type Config struct {
	BaseURL   string
	SheetID   string
	SheetName string
	Range     string
	MaxBytes  int64
	Timeout   time.Duration // 0 leaves the platform default in place
}

// Client is the HTTP Fetcher for the CSV export endpoint.
type Client struct {
	http     *http.Client
	url      string
	maxBytes int64
}

// NewClient builds a Client from cfg, filling in defaults for empty fields.
// If httpClient is nil a new client with cfg.Timeout is used.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.SheetID) == "" {
		return nil, ErrMissingSheetID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}
	if cfg.Range == "" {
		cfg.Range = DefaultRange
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		http:     httpClient,
		url:      URL(cfg.BaseURL, cfg.SheetID, cfg.SheetName, cfg.Range),
		maxBytes: cfg.MaxBytes,
	}, nil
}

// URL builds the CSV export address for one sheet and cell range.
func URL(base, sheetID, sheetName, cellRange string) string {
	return fmt.Sprintf("%s/%s/gviz/tq?tqx=out:csv&sheet=%s&range=%s",
		strings.TrimRight(base, "/"),
		url.PathEscape(sheetID),
		url.QueryEscape(sheetName),
		url.QueryEscape(cellRange),
	)
}

// URL returns the export address this client requests.
func (c *Client) URL() string {
	return c.url
}

// FetchCSV downloads the sheet export and returns its body as text.
func (c *Client) FetchCSV(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("build sheet request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: c.url}
	}

	body, err := readBody(resp.Body, c.maxBytes)
	if err != nil {
		return "", fmt.Errorf("read sheet body: %w", err)
	}
	return body, nil
}
