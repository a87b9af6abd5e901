package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog API calls.
var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrRateLimited = errors.New("catalog: rate limited")
	ErrBadRequest  = errors.New("catalog: bad request")
	ErrServer      = errors.New("catalog: server error")
)

// Error wraps an underlying error with the operation and HTTP status.
type Error struct {
	Op     string // Operation: "resolve-cards", "collection", "wishlist", "parse-text", "from-url"
	Status int    // HTTP status, 0 for transport failures
	Detail string // Message from the response body, if any
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("catalog %s [%d]: %v: %s", e.Op, e.Status, e.Err, e.Detail)
	default:
		return fmt.Sprintf("catalog %s [%d]: %v", e.Op, e.Status, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, status int, detail string, err error) error {
	return &Error{Op: op, Status: status, Detail: detail, Err: err}
}
