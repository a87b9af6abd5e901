package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Sentinel errors from this package are matched with
// errors.Is first; anything else falls through to case-insensitive
// substring patterns, first match wins.
//
// Codes by category:
//
//	SES001-SES003  import session state (expired, busy, committed)
//	IMP001-IMP009  import requests and commit capacity
//	CAT001-CAT005  catalog API (unreachable, rate limited, rejected, failing)
//	FILE001-FILE004 file handling
//	DB001-DB003    history database
//	REQ001-REQ004  request cancelled, timed out or malformed
//	RATE001        inbound rate limiting
//	ERR000         anything else; check the logs for the technical error

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrSessionNotFound, UserMessage{"Import session not found", "The preview may have expired. Please start the import again", "SES001"}},
	{ErrSessionBusy, UserMessage{"This import is still being committed", "Wait for the current import to finish", "SES002"}},
	{ErrSessionCommitted, UserMessage{"This import has already been committed", "Start a new import to add more cards", "SES003"}},
	{ErrInvalidTarget, UserMessage{"Unknown import target", "Import into a collection or a wishlist", "IMP001"}},
	{ErrInvalidDuplicateMode, UserMessage{"Duplicate handling option is not valid here", "Collections accept add, skip or replace; wishlists accept skip or update", "IMP002"}},
	{ErrInvalidURL, UserMessage{"The deck link is not valid", "Paste the full http(s) address of the deck", "IMP003"}},
	{ErrNothingToImport, UserMessage{"No cards are ready to import", "Fix or match the cards marked as not found first", "IMP004"}},
	{ErrRowOutOfRange, UserMessage{"That preview row does not exist", "Refresh the preview and try again", "IMP005"}},
	{ErrRowNotOverridable, UserMessage{"That row has an error and cannot be matched", "Fix the row in your file and import again", "IMP006"}},
	{ErrNoInput, UserMessage{"Nothing to import", "Paste a decklist or card list first", "IMP007"}},
	{ErrTooManyCommits, UserMessage{"Too many imports are running", "Please wait a moment and try again", "IMP008"}},
	{ErrCommitNotStarted, UserMessage{"This import has not been started", "Confirm the preview to start the import", "IMP009"}},
}

// errorPattern maps a lowercase substring to a user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Catalog API
	{"catalog: rate limited", UserMessage{"The card catalog is busy", "Please wait a moment before trying again", "CAT002"}},
	{"catalog: bad request", UserMessage{"The card catalog rejected the request", "Check the input and try again", "CAT003"}},
	{"catalog: not found", UserMessage{"The deck or resource could not be found", "Check the link and try again", "CAT004"}},
	{"catalog: server error", UserMessage{"The card catalog is having problems", "Please try again later", "CAT005"}},
	{"connection refused", UserMessage{"Unable to reach the card catalog", "Please try again in a few moments", "CAT001"}},
	{"no such host", UserMessage{"Unable to reach the card catalog", "Please try again in a few moments", "CAT001"}},

	// Files
	{"file too large", UserMessage{"File exceeds the maximum size", "Split the file into smaller files", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to import", "FILE002"}},
	{"multipart", UserMessage{"The upload could not be read", "Try selecting the file again", "FILE003"}},
	{"encoding error", UserMessage{"File contains invalid characters", "Save the file as UTF-8", "FILE004"}},

	// History database
	{"duplicate key", UserMessage{"This import was already recorded", "No action needed", "DB001"}},
	{"deadlock", UserMessage{"The database was busy", "Please try again", "DB002"}},
	{"connection reset", UserMessage{"The connection was interrupted", "Please try again", "DB003"}},

	// Requests
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "REQ001"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller import or check your connection", "REQ002"}},
	{"timeout", UserMessage{"Request timed out", "Try a smaller import or check your connection", "REQ002"}},
	{"invalid request body", UserMessage{"The request could not be read", "Send a valid JSON body", "REQ004"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when nothing matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("commit: %w", ErrSessionBusy))
//	// msg.Code == "SES002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
