package web

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/bakery/internal/sheets"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"status 404", &sheets.StatusError{StatusCode: http.StatusNotFound}, "SHEET002"},
		{"status 403 wrapped", fmt.Errorf("soft refresh: %w", &sheets.StatusError{StatusCode: http.StatusForbidden}), "SHEET004"},
		{"status 500", &sheets.StatusError{StatusCode: http.StatusInternalServerError}, "SHEET001"},
		{"too large", fmt.Errorf("fetch: %w", sheets.ErrResponseTooLarge), "SHEET003"},
		{"category", fmt.Errorf("%w: %q", ErrCategoryNotFound, "soups"), "MENU001"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:443: connect: connection refused"), "NET001"},
		{"dns", errors.New("dial tcp: lookup docs.google.com: no such host"), "NET002"},
		{"client timeout", errors.New("Get \"https://x\": net/http: request canceled (Client.Timeout exceeded)"), "NET003"},
		{"deadline", errors.New("context deadline exceeded"), "NET003"},
		{"canceled", errors.New("context canceled"), "REQ001"},
		{"rate limit", errRateLimited, "RATE001"},
		{"unknown", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned an empty message")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q", got)
	}
	got := FormatUserError(sheets.ErrResponseTooLarge)
	want := "The menu sheet is larger than allowed (Code: SHEET003). Remove unused rows or raise SHEET_MAX_BYTES"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}
