package web

// error_messages.go maps technical errors to messages a bakery owner or
// kiosk operator can act on. Every message carries a code that can be quoted
// to support.
//
// # Sheet Errors (SHEET001-SHEET099)
//
//	SHEET001 - Sheet unavailable: the export endpoint answered with an error status
//	SHEET002 - Sheet not found: the spreadsheet id or tab name is wrong (HTTP 404)
//	SHEET003 - Sheet too large: the export exceeded SHEET_MAX_BYTES
//	SHEET004 - Sheet not shared: the sheet is not published to the web (HTTP 401/403)
//
// # Network Errors (NET001-NET099)
//
//	NET001 - Connection refused
//	NET002 - Host lookup failed
//	NET003 - Timed out
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled by the client
//
// # Menu Errors (MENU001-MENU099)
//
//	MENU001 - Category not found
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default (ERR000)
//
// Anything else. Check the logs for the technical error by request_id.
//
// Typed errors (sentinels and *sheets.StatusError) are matched first with
// errors.Is / errors.As. Remaining errors are matched case-insensitively by
// substring, first match wins.

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/bakery/internal/sheets"
)

// ErrCategoryNotFound is returned when a category has no items.
var ErrCategoryNotFound = errors.New("category not found")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var (
	msgSheetUnavailable = UserMessage{
		Message: "The menu sheet could not be read",
		Action:  "Please try again in a few moments",
		Code:    "SHEET001",
	}
	msgSheetNotFound = UserMessage{
		Message: "The menu sheet was not found",
		Action:  "Check SHEET_ID and SHEET_NAME",
		Code:    "SHEET002",
	}
	msgSheetTooLarge = UserMessage{
		Message: "The menu sheet is larger than allowed",
		Action:  "Remove unused rows or raise SHEET_MAX_BYTES",
		Code:    "SHEET003",
	}
	msgSheetNotShared = UserMessage{
		Message: "The menu sheet is not published",
		Action:  "Publish the sheet to the web or share it with anyone who has the link",
		Code:    "SHEET004",
	}
	msgCategoryNotFound = UserMessage{
		Message: "No items in this category",
		Action:  "Pick one of the categories listed at /api/menu/categories",
		Code:    "MENU001",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the menu sheet",
			Action:  "Please try again in a few moments",
			Code:    "NET001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "The menu sheet host could not be resolved",
			Action:  "Check the network connection and SHEET_BASE_URL",
			Code:    "NET002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Loading the menu timed out",
			Action:  "Please try again",
			Code:    "NET003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Loading the menu timed out",
			Action:  "Please try again",
			Code:    "NET003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	switch {
	case errors.Is(err, ErrCategoryNotFound):
		return msgCategoryNotFound, true
	case errors.Is(err, sheets.ErrResponseTooLarge):
		return msgSheetTooLarge, true
	}

	var statusErr *sheets.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return msgSheetNotFound, true
		case http.StatusUnauthorized, http.StatusForbidden:
			return msgSheetNotShared, true
		default:
			return msgSheetUnavailable, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
