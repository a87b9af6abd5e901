package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/JonMunkholm/cardimport/internal/logging"
	"github.com/JonMunkholm/cardimport/internal/web/templates"
)

// handleGetSession returns the preview rows and stats of a session, or the
// preview table partial for HTMX requests.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.PreviewTable(view).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render preview table", "error", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// handleDiscardSession drops a session the user abandoned.
func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DiscardSession(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOverride points one preview row at a card picked by the user.
func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.ApplyOverride(chi.URLParam(r, "id"), *req.RowIndex, req.Card.toCard())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleCommit starts committing the session's ready rows. The commit runs
// in the background; clients follow it through the progress stream or the
// result endpoint.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := s.decodeJSON(w, r, &req, true); err != nil {
		s.respondError(w, r, err)
		return
	}

	ticket, err := s.service.StartCommit(r.Context(), chi.URLParam(r, "id"), req.DuplicateMode)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/sessions/"+ticket.SessionID+"/result")
	writeJSON(w, r, http.StatusAccepted, ticket)
}

// handleProgress streams commit progress via Server-Sent Events.
// Each window sends a "progress" event; a final "complete" event carries
// the import result. Supports resumption via the Last-Event-ID header or
// lastEventId query parameter, where the event ID is the batch number.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lastEventID := -1
	last := r.Header.Get("Last-Event-ID")
	if last == "" {
		last = r.URL.Query().Get("lastEventId")
	}
	if n, err := strconv.Atoi(last); err == nil {
		lastEventID = n
	}

	progressCh, err := s.service.SubscribeProgress(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	log := logging.FromContext(r.Context())

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				s.sendComplete(w, r, rc, id)
				return
			}
			if progress.CurrentBatch <= lastEventID {
				continue
			}

			data, err := json.Marshal(progress)
			if err != nil {
				log.Error("encode progress", "error", err)
				return
			}
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", progress.CurrentBatch, data)
			if err := rc.Flush(); err != nil {
				log.Debug("progress stream closed", "error", err)
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}

// sendComplete writes the final event once the commit has finished.
func (s *Server) sendComplete(w http.ResponseWriter, r *http.Request, rc *http.ResponseController, id string) {
	data := []byte("{}")
	if result, err := s.service.GetCommitResult(r.Context(), id); err == nil {
		if b, err := json.Marshal(result); err == nil {
			data = b
		}
	}
	fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
	_ = rc.Flush()
}

// handleResult waits for the session's commit to finish and returns its
// result.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.GetCommitResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.ImportSummary(*result).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render import summary", "error", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleStats renders the stats partial polled by the preview page.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.PreviewStats(view).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render preview stats", "error", err)
	}
}

// handleHistory lists recent import runs, optionally for one target.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter := core.HistoryFilter{Limit: parseIntParam(r, "limit", core.DefaultHistoryLimit)}
	if t := r.URL.Query().Get("target"); t != "" {
		target, err := core.ParseTargetType(t)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		filter.Target = target
	}

	runs, err := s.service.ListHistory(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"runs": runs})
}

// handleHealth reports liveness with session and commit counts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.service.CommitStatus()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":        "ok",
		"sessions":      s.service.SessionCount(),
		"activeCommits": status.Active,
		"maxCommits":    status.MaxConcurrent,
	})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
