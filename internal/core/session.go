package core

import (
	"fmt"
	"sync"
	"time"
)

// ImportSource records where a session's rows came from.
type ImportSource string

const (
	SourceCSV  ImportSource = "csv"
	SourceText ImportSource = "text"
	SourceURL  ImportSource = "url"
)

// SessionState is the lifecycle position of an import session.
type SessionState string

const (
	StatePreviewing SessionState = "previewing"
	StateCommitting SessionState = "committing"
	StateCommitted  SessionState = "committed"
)

// DeckInfo describes a deck fetched from a deck site.
type DeckInfo struct {
	Name   string `json:"name"`
	Author string `json:"author"`
	Source string `json:"source"`
}

// session is one preview awaiting the user's decision, and later the commit
// that settles it. Exactly one of collection and wishlist is set, matching
// Target.
type session struct {
	ID             string
	Target         TargetType
	Source         ImportSource
	FileName       string
	Deck           *DeckInfo
	ParseErrors    []ParseError
	TextStats      *TextImportStats
	DetectedFormat string
	CreatedAt      time.Time

	collection *Preview[ParsedRow]
	wishlist   *Preview[WishlistRow]

	// mu guards everything below. Overrides hold it for their whole
	// duration, so they serialize with the commit state change.
	mu        sync.Mutex
	state     SessionState
	lastUsed  time.Time
	progress  *BatchProgress
	result    *ImportResult
	done      chan struct{} // closed when the commit finishes
	listeners []chan BatchProgress
}

func newSession(id string, target TargetType, source ImportSource, now time.Time) (*session, error) {
	sess := &session{
		ID:        id,
		Target:    target,
		Source:    source,
		CreatedAt: now,
		state:     StatePreviewing,
		lastUsed:  now,
		done:      make(chan struct{}),
	}

	switch target {
	case TargetCollection:
		sess.collection = NewPreview[ParsedRow](nil)
	case TargetWishlist:
		sess.wishlist = NewPreview[WishlistRow](nil)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	return sess, nil
}

func (sess *session) rowCount() int {
	if sess.wishlist != nil {
		return sess.wishlist.Len()
	}
	return sess.collection.Len()
}

func (sess *session) stats() PreviewStats {
	if sess.wishlist != nil {
		return sess.wishlist.Stats()
	}
	return sess.collection.Stats()
}

func (sess *session) rows() any {
	if sess.wishlist != nil {
		return sess.wishlist.Rows()
	}
	return sess.collection.Rows()
}

// checkIdle reports whether the session accepts changes. Caller holds mu.
func (sess *session) checkIdle() error {
	switch sess.state {
	case StateCommitting:
		return ErrSessionBusy
	case StateCommitted:
		return ErrSessionCommitted
	}
	return nil
}

// notifyProgress records p and sends it to every listener without blocking.
// A listener whose buffer is full misses the update.
func (sess *session) notifyProgress(p BatchProgress) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.progress = &p
	for _, ch := range sess.listeners {
		select {
		case ch <- p:
		default:
		}
	}
}

// subscribe returns a progress channel primed with the latest progress.
// The channel is closed when the commit finishes, or immediately if it
// already has.
func (sess *session) subscribe() <-chan BatchProgress {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	ch := make(chan BatchProgress, 10)
	if sess.progress != nil {
		ch <- *sess.progress
	}
	if sess.state == StateCommitted {
		close(ch)
		return ch
	}
	sess.listeners = append(sess.listeners, ch)
	return ch
}

// finish stores the result, releases listeners and waiters.
func (sess *session) finish(result ImportResult, at time.Time) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.result = &result
	sess.state = StateCommitted
	sess.lastUsed = at
	for _, ch := range sess.listeners {
		close(ch)
	}
	sess.listeners = nil
	close(sess.done)
}

// expired reports whether an idle session has outlived ttl. A running
// commit keeps its session alive.
func (sess *session) expired(now time.Time, ttl time.Duration) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state != StateCommitting && now.Sub(sess.lastUsed) > ttl
}

func (sess *session) touch(now time.Time) {
	sess.mu.Lock()
	sess.lastUsed = now
	sess.mu.Unlock()
}

// SessionView is the read model of a session returned to callers.
type SessionView struct {
	ID             string           `json:"id"`
	Target         TargetType       `json:"target"`
	Source         ImportSource     `json:"source"`
	State          SessionState     `json:"state"`
	FileName       string           `json:"fileName,omitempty"`
	Deck           *DeckInfo        `json:"deck,omitempty"`
	DetectedFormat string           `json:"detectedFormat,omitempty"`
	Rows           any              `json:"rows"`
	Stats          PreviewStats     `json:"stats"`
	ParseErrors    []ParseError     `json:"parseErrors"`
	TextStats      *TextImportStats `json:"textStats,omitempty"`
	Progress       *BatchProgress   `json:"progress,omitempty"`
	Result         *ImportResult    `json:"result,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	ExpiresAt      time.Time        `json:"expiresAt"`
}

// CollectionRows returns the preview rows of a collection session.
func (v *SessionView) CollectionRows() []PreviewRow[ParsedRow] {
	rows, _ := v.Rows.([]PreviewRow[ParsedRow])
	return rows
}

// WishlistRows returns the preview rows of a wishlist session.
func (v *SessionView) WishlistRows() []PreviewRow[WishlistRow] {
	rows, _ := v.Rows.([]PreviewRow[WishlistRow])
	return rows
}

func (sess *session) view(ttl time.Duration) *SessionView {
	v := &SessionView{
		ID:             sess.ID,
		Target:         sess.Target,
		Source:         sess.Source,
		FileName:       sess.FileName,
		Deck:           sess.Deck,
		DetectedFormat: sess.DetectedFormat,
		Rows:           sess.rows(),
		Stats:          sess.stats(),
		ParseErrors:    sess.ParseErrors,
		TextStats:      sess.TextStats,
		CreatedAt:      sess.CreatedAt,
	}
	if v.ParseErrors == nil {
		v.ParseErrors = []ParseError{}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	v.State = sess.state
	v.ExpiresAt = sess.lastUsed.Add(ttl)
	if sess.progress != nil {
		p := *sess.progress
		v.Progress = &p
	}
	if sess.result != nil {
		r := *sess.result
		v.Result = &r
	}
	return v
}

// OverrideResult is the row and stats after an override.
type OverrideResult struct {
	Row   any          `json:"row"`
	Stats PreviewStats `json:"stats"`
}

// CommitTicket acknowledges a started commit.
type CommitTicket struct {
	SessionID     string        `json:"sessionId"`
	DuplicateMode DuplicateMode `json:"duplicateMode"`
	TotalRows     int           `json:"totalRows"`
	TotalBatches  int           `json:"totalBatches"`
}
