package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/cardimport/internal/catalog"
	"github.com/JonMunkholm/cardimport/internal/config"
	"github.com/JonMunkholm/cardimport/internal/core"
)

// fakeCatalog knows a fixed set of card names and accepts every import.
type fakeCatalog struct {
	mu       sync.Mutex
	known    map[string]bool
	imported int
	urlErr   error
}

func newFakeCatalog(names ...string) *fakeCatalog {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[core.NameKey(n)] = true
	}
	return &fakeCatalog{known: known}
}

func (f *fakeCatalog) ResolveCards(_ context.Context, names []string) (core.ResolveCardsResult, error) {
	res := core.ResolveCardsResult{Resolved: []core.ResolvedName{}, NotFound: []string{}}
	for _, n := range names {
		if f.known[core.NameKey(n)] {
			res.Resolved = append(res.Resolved, core.ResolvedName{
				Name: n,
				Card: core.ResolvedCard{ID: "card-" + core.NameKey(n), Name: n, SetCode: "M10"},
			})
		} else {
			res.NotFound = append(res.NotFound, n)
		}
	}
	return res, nil
}

func (f *fakeCatalog) ImportCollection(_ context.Context, rows []core.ImportRow, _ core.DuplicateMode) (core.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imported += len(rows)
	return core.ImportResult{Imported: len(rows), Errors: []core.ImportRowError{}}, nil
}

func (f *fakeCatalog) ImportWishlist(_ context.Context, rows []core.WishlistImportRow, _ core.DuplicateMode) (core.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imported += len(rows)
	return core.ImportResult{Imported: len(rows), Errors: []core.ImportRowError{}}, nil
}

func (f *fakeCatalog) ParseText(context.Context, string, core.TargetType) (core.TextImportResult, error) {
	return core.TextImportResult{}, errors.New("remote parsing disabled")
}

func (f *fakeCatalog) ImportFromURL(_ context.Context, _ string, _ core.TargetType) (core.URLImportResult, error) {
	if f.urlErr != nil {
		return core.URLImportResult{}, f.urlErr
	}
	return core.URLImportResult{
		TextImportResult: core.TextImportResult{
			Entries: []core.TextImportEntry{{
				Line: 1, Raw: "4 Lightning Bolt", Name: "Lightning Bolt", Quantity: 4,
				Status: core.EntryMatched, Card: &core.ResolvedCard{ID: "c1", Name: "Lightning Bolt"},
			}},
			Errors: []core.ParseError{},
			Stats:  core.TextImportStats{TotalLines: 1, Parsed: 1, Matched: 1, TotalCards: 4},
		},
		DeckName: "Burn", DeckAuthor: "someone", Source: "moxfield",
	}, nil
}

type fakeHistory struct {
	mu   sync.Mutex
	runs []core.ImportRun
}

func (h *fakeHistory) RecordRun(_ context.Context, run core.ImportRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	return nil
}

func (h *fakeHistory) ListRuns(_ context.Context, filter core.HistoryFilter) ([]core.ImportRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []core.ImportRun{}
	for _, r := range h.runs {
		if filter.Target == "" || r.Target == filter.Target {
			out = append(out, r)
		}
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{MaxFileSize: 1 << 20},
		Rate:   config.RateLimitConfig{Enabled: false, RequestsPerMinute: 100, ImportLimit: 10},
		Security: config.SecurityConfig{
			EnableCSP: true,
		},
	}
}

type testEnv struct {
	server  *Server
	catalog *fakeCatalog
	history *fakeHistory
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	cat := newFakeCatalog("Lightning Bolt", "Sol Ring", "Counterspell")
	hist := &fakeHistory{}
	svc := core.NewService(cat, hist, core.Options{})
	t.Cleanup(svc.Close)

	srv := NewServer(svc, cfg)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{server: srv, catalog: cat, history: hist}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) uploadCSV(t *testing.T, target, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cards.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/"+target+"/csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func (e *testEnv) previewID(t *testing.T, content string) string {
	t.Helper()
	rec := e.uploadCSV(t, "collection", content)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotEmpty(t, view.ID)
	return view.ID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

type previewBody struct {
	ID          string            `json:"id"`
	Target      string            `json:"target"`
	Source      string            `json:"source"`
	State       string            `json:"state"`
	FileName    string            `json:"fileName"`
	Rows        []map[string]any  `json:"rows"`
	Stats       core.PreviewStats `json:"stats"`
	ParseErrors []core.ParseError `json:"parseErrors"`
	Deck        *core.DeckInfo    `json:"deck"`
}

func TestPreviewCSV(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.uploadCSV(t, "collection", "name,quantity\nLightning Bolt,4\nMystery Card,1\n,2\n")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body previewBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/api/sessions/"+body.ID, rec.Header().Get("Location"))
	assert.Equal(t, "collection", body.Target)
	assert.Equal(t, "csv", body.Source)
	assert.Equal(t, "previewing", body.State)
	assert.Equal(t, "cards.csv", body.FileName)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, "Lightning Bolt", body.Rows[0]["name"])
	assert.Equal(t, "ready", body.Rows[0]["status"])
	assert.Equal(t, "not_found", body.Rows[1]["status"])
	assert.Equal(t, core.PreviewStats{Total: 2, Ready: 1, NotFound: 1}, body.Stats)
	require.Len(t, body.ParseErrors, 1)
	assert.Equal(t, 3, body.ParseErrors[0].Row)
}

func TestPreviewCSV_NoRowsKeepsNoSession(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.uploadCSV(t, "collection", "quantity\n4\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body previewBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.ID)
	assert.NotEmpty(t, body.ParseErrors)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestPreviewCSV_RequestErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("invalid target", func(t *testing.T) {
		rec := env.uploadCSV(t, "binder", "name\nSol Ring\n")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "IMP001", decodeError(t, rec).Code)
	})

	t.Run("no file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("other", "x"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/import/collection/csv", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := env.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE002", decodeError(t, rec).Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := env.postJSON("/api/import/collection/csv", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE003", decodeError(t, rec).Code)
	})
}

func TestPreviewText(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.postJSON("/api/import/collection/text", `{"text": "4 Lightning Bolt\n2 Mystery\nSideboard\n1 Counterspell\n"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		previewBody
		TextStats core.TextImportStats `json:"textStats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "text", body.Source)
	assert.Equal(t, 3, body.TextStats.Parsed)
	assert.Equal(t, 2, body.TextStats.Matched)
	assert.Equal(t, 1, body.TextStats.NotFound)
	assert.Equal(t, 1, body.TextStats.Sideboard)
	assert.Equal(t, 2, body.Stats.Ready)
}

func TestPreviewText_RequestErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing text", `{}`, http.StatusBadRequest, "REQ003"},
		{"blank text", `{"text": "  \n "}`, http.StatusBadRequest, "IMP007"},
		{"malformed json", `{"text": `, http.StatusBadRequest, "REQ004"},
		{"empty body", ``, http.StatusBadRequest, "REQ004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postJSON("/api/import/collection/text", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}

	rec := env.postJSON("/api/import/collection/text", `{}`)
	assert.Equal(t, map[string]string{"text": "is required"}, decodeError(t, rec).Fields)
}

func TestPreviewURL(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.postJSON("/api/import/wishlist/url", `{"url": "https://moxfield.com/decks/abc"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body previewBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "wishlist", body.Target)
	require.NotNil(t, body.Deck)
	assert.Equal(t, "Burn", body.Deck.Name)
	assert.Equal(t, "moxfield", body.Deck.Source)
	assert.Equal(t, 1, body.Stats.Ready)
}

func TestPreviewURL_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.postJSON("/api/import/collection/url", `{"url": "ftp://example.com/deck"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMP003", decodeError(t, rec).Code)

	env.catalog.urlErr = &catalog.Error{Op: "from-url", Status: http.StatusNotFound, Err: catalog.ErrNotFound}
	rec = env.postJSON("/api/import/collection/url", `{"url": "https://example.com/deck"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CAT004", decodeError(t, rec).Code)

	env.catalog.urlErr = &catalog.Error{Op: "from-url", Status: http.StatusTooManyRequests, Err: catalog.ErrRateLimited}
	rec = env.postJSON("/api/import/collection/url", `{"url": "https://example.com/deck"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "CAT002", decodeError(t, rec).Code)
	assert.Equal(t, retryAfterSeconds, rec.Header().Get("Retry-After"))
}

func TestOverride(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.previewID(t, "name\nMystery Card\n")

	rec := env.postJSON("/api/sessions/"+id+"/override",
		`{"rowIndex": 0, "card": {"id": "custom-1", "name": "Mystery Card", "setCode": "XYZ"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Row   map[string]any    `json:"row"`
		Stats core.PreviewStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Row["status"])
	assert.Equal(t, "custom-1", body.Row["customCardId"])
	assert.Equal(t, core.PreviewStats{Total: 1, Ready: 1}, body.Stats)
}

func TestOverride_RequestErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.previewID(t, "name\nMystery Card\n")

	t.Run("validation", func(t *testing.T) {
		rec := env.postJSON("/api/sessions/"+id+"/override", `{"card": {"name": "x"}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "REQ003", resp.Code)
		assert.Equal(t, "is required", resp.Fields["rowIndex"])
		assert.Equal(t, "is required", resp.Fields["card.id"])
	})

	t.Run("out of range", func(t *testing.T) {
		rec := env.postJSON("/api/sessions/"+id+"/override", `{"rowIndex": 5, "card": {"id": "c", "name": "x"}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "IMP005", decodeError(t, rec).Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := env.postJSON("/api/sessions/nope/override", `{"rowIndex": 0, "card": {"id": "c", "name": "x"}}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "SES001", decodeError(t, rec).Code)
	})
}

func TestCommitFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.previewID(t, "name,quantity\nLightning Bolt,4\nSol Ring,1\nMystery Card,1\n")

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/commit", strings.NewReader(`{"duplicateMode": "replace"}`))
	req.Header.Set("User-Agent", "import-test/1.0")
	req.RemoteAddr = "192.0.2.10:5555"
	rec := env.do(req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var ticket core.CommitTicket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticket))
	assert.Equal(t, id, ticket.SessionID)
	assert.Equal(t, core.DuplicateReplace, ticket.DuplicateMode)
	assert.Equal(t, 2, ticket.TotalRows)
	assert.Equal(t, 1, ticket.TotalBatches)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/result", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result core.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Imported)

	// Committed sessions reject further changes.
	rec = env.postJSON("/api/sessions/"+id+"/commit", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SES003", decodeError(t, rec).Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/history?target=collection", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Runs []core.ImportRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Runs, 1)
	assert.Equal(t, id, history.Runs[0].SessionID)
	assert.Equal(t, "192.0.2.10", history.Runs[0].ClientIP)
	assert.Equal(t, "import-test/1.0", history.Runs[0].UserAgent)
}

func TestCommit_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("mode not valid for target", func(t *testing.T) {
		id := env.previewID(t, "name\nSol Ring\n")
		rec := env.postJSON("/api/sessions/"+id+"/commit", `{"duplicateMode": "update"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "IMP002", decodeError(t, rec).Code)
	})

	t.Run("nothing ready", func(t *testing.T) {
		id := env.previewID(t, "name\nMystery Card\n")
		rec := env.postJSON("/api/sessions/"+id+"/commit", ``)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "IMP004", decodeError(t, rec).Code)
	})

	t.Run("result before commit", func(t *testing.T) {
		id := env.previewID(t, "name\nSol Ring\n")
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/result", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "IMP009", decodeError(t, rec).Code)
	})
}

func TestProgressStream(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.previewID(t, "name\nLightning Bolt\nSol Ring\n")

	rec := env.postJSON("/api/sessions/"+id+"/commit", `{}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/progress", nil).WithContext(ctx)
	rec = env.do(req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: complete\n")
	assert.Contains(t, body, `"imported":2`)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.previewID(t, "name\nSol Ring\n")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SES001", decodeError(t, rec).Code)
}

func TestHTMXResponses(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.previewID(t, "name\nSol Ring\nMystery Card\n")

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/stats", nil)
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "1 ready")
	assert.Contains(t, rec.Body.String(), "1 not found")

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil)
	req.Header.Set("HX-Request", "true")
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<tr data-index="0" data-status="ready">`)
	assert.Contains(t, rec.Body.String(), `<tr data-index="1" data-status="not_found">`)
	assert.Contains(t, rec.Body.String(), "<td>Sol Ring (M10)</td>")

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/missing/stats", nil)
	req.Header.Set("HX-Request", "true")
	rec = env.do(req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Code: SES001")
	assert.Contains(t, rec.Body.String(), `role="alert"`)
}

func TestHistory_InvalidTarget(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/history?target=binder", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMP001", decodeError(t, rec).Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["sessions"])
	assert.EqualValues(t, core.DefaultMaxConcurrentCommits, body["maxCommits"])
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestImportRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.ImportLimit = 1
	env := newTestEnv(t, cfg)

	rec := env.postJSON("/api/import/collection/text", `{"text": "1 Sol Ring"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.postJSON("/api/import/collection/text", `{"text": "1 Sol Ring"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)

	// Other routes keep their own budget.
	rec = env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedOrigins = []string{"http://localhost:5173"}
	env := newTestEnv(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/history", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := env.do(req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"session not found", core.ErrSessionNotFound, http.StatusNotFound},
		{"busy", core.ErrSessionBusy, http.StatusConflict},
		{"too many commits", core.ErrTooManyCommits, http.StatusServiceUnavailable},
		{"row not overridable", core.ErrRowNotOverridable, http.StatusUnprocessableEntity},
		{"catalog bad request", &catalog.Error{Op: "x", Status: 400, Err: catalog.ErrBadRequest}, http.StatusUnprocessableEntity},
		{"catalog server", &catalog.Error{Op: "x", Status: 502, Err: catalog.ErrServer}, http.StatusBadGateway},
		{"catalog unreachable", &catalog.Error{Op: "x", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"request error", badRequest("bad"), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
