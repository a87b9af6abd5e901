package core

import "errors"

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrSessionBusy is returned when a session is locked by a running commit.
	ErrSessionBusy = errors.New("import session is busy")

	// ErrSessionCommitted is returned when a finished session is committed again.
	ErrSessionCommitted = errors.New("import session already committed")

	// ErrRowOutOfRange is returned for an override index outside the preview.
	ErrRowOutOfRange = errors.New("preview row index out of range")

	// ErrRowNotOverridable is returned when overriding a row in the error state.
	ErrRowNotOverridable = errors.New("preview row cannot be overridden")

	// ErrInvalidTarget is returned for a target other than collection or wishlist.
	ErrInvalidTarget = errors.New("invalid import target")

	// ErrInvalidDuplicateMode is returned when a mode is not valid for the target.
	ErrInvalidDuplicateMode = errors.New("invalid duplicate mode")

	// ErrInvalidURL is returned for deck URLs that are not absolute http(s).
	ErrInvalidURL = errors.New("invalid deck URL")

	// ErrNothingToImport is returned when a commit has no eligible rows.
	ErrNothingToImport = errors.New("no rows are ready to import")

	// ErrNoInput is returned when pasted text is blank.
	ErrNoInput = errors.New("no input provided")

	// ErrCommitNotStarted is returned when asking for the result of a
	// session that has not been committed.
	ErrCommitNotStarted = errors.New("import session has not been committed")
)
