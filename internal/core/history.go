package core

import (
	"context"
	"time"
)

// History listing bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// ImportRun is the history record of one finished commit.
type ImportRun struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"sessionId"`
	Target        TargetType    `json:"target"`
	Source        ImportSource  `json:"source"`
	FileName      string        `json:"fileName,omitempty"`
	DeckName      string        `json:"deckName,omitempty"`
	DuplicateMode DuplicateMode `json:"duplicateMode"`
	TotalRows     int           `json:"totalRows"`
	TotalBatches  int           `json:"totalBatches"`
	Result        ImportResult  `json:"result"`
	ClientIP      string        `json:"clientIp,omitempty"`
	UserAgent     string        `json:"userAgent,omitempty"`
	StartedAt     time.Time     `json:"startedAt"`
	FinishedAt    time.Time     `json:"finishedAt"`
}

// Duration is how long the commit ran.
func (r ImportRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// HistoryFilter narrows a history listing. A zero Target lists every target.
type HistoryFilter struct {
	Target TargetType
	Limit  int
}

// Normalize clamps Limit into [1, MaxHistoryLimit], defaulting to
// DefaultHistoryLimit.
func (f HistoryFilter) Normalize() HistoryFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultHistoryLimit
	case f.Limit > MaxHistoryLimit:
		f.Limit = MaxHistoryLimit
	}
	return f
}

// HistoryStore persists finished commits.
// Implemented by database.HistoryRepo.
type HistoryStore interface {
	RecordRun(ctx context.Context, run ImportRun) error
	ListRuns(ctx context.Context, filter HistoryFilter) ([]ImportRun, error)
}
