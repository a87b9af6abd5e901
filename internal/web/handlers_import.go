package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/cardimport/internal/core"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// targetParam reads and validates the {target} URL parameter.
func targetParam(r *http.Request) (core.TargetType, error) {
	return core.ParseTargetType(chi.URLParam(r, "target"))
}

// handlePreviewCSV parses an uploaded CSV file into a preview session.
// Oversized files are left to the parser so the client gets the same
// row-0 error as any other file-level problem.
func (s *Server) handlePreviewCSV(w http.ResponseWriter, r *http.Request) {
	target, err := targetParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	limit := s.cfg.Import.MaxFileSize + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r, &requestError{
				status: http.StatusRequestEntityTooLarge,
				err:    fmt.Errorf("file too large: %w", err),
			})
			return
		}
		s.respondError(w, r, badRequest("invalid multipart form: %v", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, badRequest("no file provided"))
		return
	}
	defer file.Close()

	view, err := s.service.PreviewCSV(r.Context(), target, header.Filename, header.Size, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondPreview(w, r, view)
}

// handlePreviewText parses a pasted decklist into a preview session.
func (s *Server) handlePreviewText(w http.ResponseWriter, r *http.Request) {
	target, err := targetParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req textRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}

	view, err := s.service.PreviewText(r.Context(), target, req.Text)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondPreview(w, r, view)
}

// handlePreviewURL imports a deck from a deck site link into a preview
// session.
func (s *Server) handlePreviewURL(w http.ResponseWriter, r *http.Request) {
	target, err := targetParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req urlRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.respondError(w, r, err)
		return
	}

	view, err := s.service.PreviewURL(r.Context(), target, req.URL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondPreview(w, r, view)
}

// respondPreview writes a new preview. A view without an ID means nothing
// could be parsed and no session was kept.
func (s *Server) respondPreview(w http.ResponseWriter, r *http.Request, view *core.SessionView) {
	status := http.StatusCreated
	if view.ID == "" {
		status = http.StatusOK
	} else {
		w.Header().Set("Location", "/api/sessions/"+view.ID)
	}
	writeJSON(w, r, status, view)
}
