package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/cardimport/internal/config"
	"github.com/JonMunkholm/cardimport/internal/logging"
	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

// DefaultResultRetention is how long a committed session stays readable.
const DefaultResultRetention = 5 * time.Minute

// historyTimeout bounds recording one run.
const historyTimeout = 5 * time.Second

// CatalogAPI is the remote catalog and inventory the pipeline talks to.
// Implemented by catalog.Client.
type CatalogAPI interface {
	CardResolver
	ImportCollection(ctx context.Context, rows []ImportRow, mode DuplicateMode) (ImportResult, error)
	ImportWishlist(ctx context.Context, rows []WishlistImportRow, mode DuplicateMode) (ImportResult, error)
	ParseText(ctx context.Context, text string, target TargetType) (TextImportResult, error)
	ImportFromURL(ctx context.Context, deckURL string, target TargetType) (URLImportResult, error)
}

// Options tunes the service. Zero values take the defaults.
type Options struct {
	Limits          ParseLimits
	MaxTextLines    int
	Batch           BatchConfig
	MaxConcurrent   int
	MaxWait         time.Duration
	SessionTTL      time.Duration
	ResultRetention time.Duration

	// RemoteTextParse sends pasted text to the catalog for parsing instead
	// of parsing it locally.
	RemoteTextParse bool
}

// OptionsFromConfig maps the import config section onto service options.
func OptionsFromConfig(c config.ImportConfig) Options {
	return Options{
		Limits:          ParseLimits{MaxFileSize: c.MaxFileSize, MaxRows: c.MaxRows},
		MaxTextLines:    c.MaxTextLines,
		Batch:           BatchConfig{SingleBatchLimit: c.SingleBatchLimit, BatchSize: c.BatchSize},
		MaxConcurrent:   c.MaxConcurrent,
		MaxWait:         c.MaxWaitTime,
		SessionTTL:      c.SessionTTL,
		RemoteTextParse: strings.EqualFold(c.TextParseMode, "remote"),
	}
}

func (o Options) withDefaults() Options {
	o.Limits = o.Limits.withDefaults()
	o.Batch = o.Batch.withDefaults()
	if o.MaxTextLines <= 0 {
		o.MaxTextLines = DefaultMaxTextLines
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = DefaultSessionTTL
	}
	if o.ResultRetention <= 0 {
		o.ResultRetention = DefaultResultRetention
	}
	return o
}

// Service runs the import pipeline: it builds preview sessions from files,
// text or deck links, applies overrides, and commits them in batches.
type Service struct {
	catalog CatalogAPI
	history HistoryStore
	opts    Options
	limiter *CommitLimiter
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session

	done     chan struct{}
	stopOnce sync.Once
}

// NewService creates a Service. history may be nil, in which case finished
// commits are not recorded. Call Close to stop the session janitor.
func NewService(catalog CatalogAPI, history HistoryStore, opts Options) *Service {
	opts = opts.withDefaults()
	s := &Service{
		catalog:  catalog,
		history:  history,
		opts:     opts,
		limiter:  NewCommitLimiter(opts.MaxConcurrent, opts.MaxWait),
		now:      time.Now,
		sessions: make(map[string]*session),
		done:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Close stops the session janitor. It does not wait for commits; use
// WaitForCommits for that.
func (s *Service) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}

// PreviewCSV parses an uploaded CSV and resolves its card names.
//
// When the file yields no rows the returned view carries only the parse
// errors, has an empty ID and no session is kept.
func (s *Service) PreviewCSV(ctx context.Context, target TargetType, fileName string, size int64, r io.Reader) (*SessionView, error) {
	sess, err := newSession(uuid.New().String(), target, SourceCSV, s.now())
	if err != nil {
		return nil, err
	}
	sess.FileName = fileName

	switch target {
	case TargetCollection:
		res := ParseCollectionCSV(fileName, size, r, s.opts.Limits)
		sess.ParseErrors = res.Errors
		logFileError(ctx, fileName, res)
		if sess.collection, err = BuildPreview(ctx, s.catalog, res.Rows, func(r ParsedRow) string { return r.Name }); err != nil {
			return nil, err
		}
	case TargetWishlist:
		res := ParseWishlistCSV(fileName, size, r, s.opts.Limits)
		sess.ParseErrors = res.Errors
		logFileError(ctx, fileName, res)
		if sess.wishlist, err = BuildPreview(ctx, s.catalog, res.Rows, func(r WishlistRow) string { return r.Name }); err != nil {
			return nil, err
		}
	}

	return s.register(ctx, sess), nil
}

func logFileError[R any](ctx context.Context, fileName string, res CSVResult[R]) {
	if fe, ok := res.fileError(); ok {
		logging.FromContext(ctx).Info("csv file problem", "file", fileName, "rows", len(res.Rows), "reason", fe.Message)
	}
}

// PreviewText parses a pasted decklist and resolves its card names, locally
// or through the catalog depending on Options.RemoteTextParse.
func (s *Service) PreviewText(ctx context.Context, target TargetType, text string) (*SessionView, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoInput
	}

	sess, err := newSession(uuid.New().String(), target, SourceText, s.now())
	if err != nil {
		return nil, err
	}

	var res TextImportResult
	if s.opts.RemoteTextParse {
		if res, err = s.catalog.ParseText(ctx, text, target); err != nil {
			return nil, fmt.Errorf("parse text: %w", err)
		}
	} else {
		res = ParseDecklist(text, s.opts.MaxTextLines)
		if err := ResolveEntries(ctx, s.catalog, &res); err != nil {
			return nil, err
		}
	}

	s.applyText(sess, res)
	return s.register(ctx, sess), nil
}

// PreviewURL imports a deck from a deck site link through the catalog.
func (s *Service) PreviewURL(ctx context.Context, target TargetType, deckURL string) (*SessionView, error) {
	deckURL = strings.TrimSpace(deckURL)
	if err := validateDeckURL(deckURL); err != nil {
		return nil, err
	}

	sess, err := newSession(uuid.New().String(), target, SourceURL, s.now())
	if err != nil {
		return nil, err
	}

	res, err := s.catalog.ImportFromURL(ctx, deckURL, target)
	if err != nil {
		return nil, fmt.Errorf("import deck url: %w", err)
	}

	sess.Deck = &DeckInfo{Name: res.DeckName, Author: res.DeckAuthor, Source: res.Source}
	s.applyText(sess, res.TextImportResult)
	return s.register(ctx, sess), nil
}

func validateDeckURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

func (s *Service) applyText(sess *session, res TextImportResult) {
	stats := res.Stats
	sess.TextStats = &stats
	sess.DetectedFormat = res.DetectedFormat
	sess.ParseErrors = res.Errors

	switch sess.Target {
	case TargetCollection:
		sess.collection = NewPreview(EntriesToCollectionRows(res.Entries))
	case TargetWishlist:
		sess.wishlist = NewPreview(EntriesToWishlistRows(res.Entries))
	}
}

// register stores sess if it has rows and returns its view.
func (s *Service) register(ctx context.Context, sess *session) *SessionView {
	stats := sess.stats()
	log := logging.WithFields(ctx, "target", sess.Target, "source", sess.Source)

	if sess.rowCount() == 0 {
		log.Info("import preview has no rows", "parse_errors", len(sess.ParseErrors))
		v := sess.view(s.opts.SessionTTL)
		v.ID = ""
		return v
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Info("import preview created",
		"session_id", sess.ID,
		"rows", stats.Total,
		"ready", stats.Ready,
		"not_found", stats.NotFound,
		"parse_errors", len(sess.ParseErrors),
	)
	return sess.view(s.opts.SessionTTL)
}

func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// GetSession returns the current view of a session.
func (s *Service) GetSession(id string) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.touch(s.now())
	return sess.view(s.opts.SessionTTL), nil
}

// ApplyOverride points a preview row at a card the user picked.
func (s *Service) ApplyOverride(id string, index int, card ResolvedCard) (*OverrideResult, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.checkIdle(); err != nil {
		return nil, err
	}
	sess.lastUsed = s.now()

	if sess.wishlist != nil {
		row, stats, err := sess.wishlist.ApplyOverride(index, card)
		if err != nil {
			return nil, err
		}
		return &OverrideResult{Row: row, Stats: stats}, nil
	}

	row, stats, err := sess.collection.ApplyOverride(index, card)
	if err != nil {
		return nil, err
	}
	return &OverrideResult{Row: row, Stats: stats}, nil
}

// commitPlan is a ready-to-run commit with its type parameters bound.
type commitPlan struct {
	rows    int
	batches int
	run     func(ctx context.Context, onProgress ProgressFunc) ImportResult
}

func newCommitPlan[T any](cfg BatchConfig, rows []T, commit CommitFunc[T], nameOf func(T) string) commitPlan {
	return commitPlan{
		rows:    len(rows),
		batches: TotalBatches(len(rows), cfg),
		run: func(ctx context.Context, onProgress ProgressFunc) ImportResult {
			return RunImport(ctx, cfg, rows, commit, nameOf, onProgress)
		},
	}
}

func (s *Service) planCommit(sess *session, mode DuplicateMode) commitPlan {
	if sess.wishlist != nil {
		return newCommitPlan(s.opts.Batch, PreviewRowsToWishlistImportRows(sess.wishlist.Rows()),
			func(ctx context.Context, rows []WishlistImportRow) (ImportResult, error) {
				return s.catalog.ImportWishlist(ctx, rows, mode)
			},
			func(r WishlistImportRow) string { return r.Name },
		)
	}
	return newCommitPlan(s.opts.Batch, PreviewRowsToImportRows(sess.collection.Rows()),
		func(ctx context.Context, rows []ImportRow) (ImportResult, error) {
			return s.catalog.ImportCollection(ctx, rows, mode)
		},
		func(r ImportRow) string { return r.Name },
	)
}

// StartCommit begins committing the session's ready rows in the background.
// An empty mode uses the target's default. The commit keeps running if ctx
// is cancelled after StartCommit returns.
//
// Returns ErrTooManyCommits if no commit slot frees up in time.
func (s *Service) StartCommit(ctx context.Context, id string, mode DuplicateMode) (CommitTicket, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return CommitTicket{}, err
	}

	if mode == "" {
		mode = sess.Target.DefaultDuplicateMode()
	}
	if !mode.ValidFor(sess.Target) {
		return CommitTicket{}, fmt.Errorf("%w: %q for %s", ErrInvalidDuplicateMode, mode, sess.Target)
	}

	sess.mu.Lock()
	if err := sess.checkIdle(); err != nil {
		sess.mu.Unlock()
		return CommitTicket{}, err
	}
	plan := s.planCommit(sess, mode)
	if plan.rows == 0 {
		sess.mu.Unlock()
		return CommitTicket{}, ErrNothingToImport
	}
	sess.state = StateCommitting
	sess.mu.Unlock()

	if err := s.limiter.Acquire(ctx); err != nil {
		sess.mu.Lock()
		sess.state = StatePreviewing
		sess.mu.Unlock()
		return CommitTicket{}, err
	}

	run := ImportRun{
		ID:            uuid.New().String(),
		SessionID:     sess.ID,
		Target:        sess.Target,
		Source:        sess.Source,
		FileName:      sess.FileName,
		DuplicateMode: mode,
		TotalRows:     plan.rows,
		TotalBatches:  plan.batches,
		ClientIP:      ClientIPFromContext(ctx),
		UserAgent:     UserAgentFromContext(ctx),
		StartedAt:     s.now(),
	}
	if sess.Deck != nil {
		run.DeckName = sess.Deck.Name
	}

	go s.runCommit(context.WithoutCancel(ctx), sess, plan, run)

	return CommitTicket{
		SessionID:     sess.ID,
		DuplicateMode: mode,
		TotalRows:     plan.rows,
		TotalBatches:  plan.batches,
	}, nil
}

func (s *Service) runCommit(ctx context.Context, sess *session, plan commitPlan, run ImportRun) {
	defer s.limiter.Release()

	log := logging.WithFields(ctx, "session_id", sess.ID, "target", sess.Target)
	log.Info("commit started",
		"rows", plan.rows,
		"batches", plan.batches,
		"duplicate_mode", run.DuplicateMode,
	)

	result := plan.run(ctx, sess.notifyProgress)

	run.Result = result
	run.FinishedAt = s.now()

	if result.Failed > 0 {
		log.Warn("commit finished with failures", "failed", result.Failed, "errors", len(result.Errors))
	}
	log.Info("commit finished",
		"imported", result.Imported,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration_ms", run.Duration().Milliseconds(),
	)

	s.recordRun(ctx, log, run)
	sess.finish(result, run.FinishedAt)
	s.cleanup(sess.ID, s.opts.ResultRetention)
}

// recordRun writes the run to history. Failures are logged and otherwise
// ignored.
func (s *Service) recordRun(ctx context.Context, log *slog.Logger, run ImportRun) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	if err := s.history.RecordRun(ctx, run); err != nil {
		log.Error("failed to record import run", "run_id", run.ID, "error", err)
	}
}

// SubscribeProgress returns a channel of batch progress for the session.
// The latest progress, if any, is delivered first. The channel is closed
// when the commit finishes.
func (s *Service) SubscribeProgress(id string) (<-chan BatchProgress, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return sess.subscribe(), nil
}

// GetCommitResult waits for the session's commit to finish and returns its
// result.
func (s *Service) GetCommitResult(ctx context.Context, id string) (*ImportResult, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	state := sess.state
	sess.mu.Unlock()
	if state == StatePreviewing {
		return nil, ErrCommitNotStarted
	}

	select {
	case <-sess.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	r := *sess.result
	return &r, nil
}

// DiscardSession drops a session. Sessions with a running commit are kept.
func (s *Service) DiscardSession(id string) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	busy := sess.state == StateCommitting
	sess.mu.Unlock()
	if busy {
		return ErrSessionBusy
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// ListHistory returns recent import runs, newest first.
func (s *Service) ListHistory(ctx context.Context, filter HistoryFilter) ([]ImportRun, error) {
	if s.history == nil {
		return []ImportRun{}, nil
	}
	runs, err := s.history.ListRuns(ctx, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	return runs, nil
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CommitStatus reports commit slot usage.
func (s *Service) CommitStatus() CommitLimiterStatus {
	return s.limiter.Status()
}

// WaitForCommits blocks until running commits finish or ctx is done.
func (s *Service) WaitForCommits(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// cleanup removes a session after delay.
func (s *Service) cleanup(id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
	})
}

// janitor expires idle sessions until Close is called.
func (s *Service) janitor() {
	interval := max(s.opts.SessionTTL/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.expireSessions(s.now()); n > 0 {
				slog.Debug("expired import sessions", "count", n)
			}
		}
	}
}

// expireSessions drops sessions idle for longer than the TTL and returns
// how many were removed.
func (s *Service) expireSessions(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.expired(now, s.opts.SessionTTL) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
