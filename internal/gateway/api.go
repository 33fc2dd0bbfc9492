package gateway

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/basket/textlens/internal/analysis"
	"github.com/basket/textlens/internal/render"
	"github.com/basket/textlens/internal/session"
)

type analyzeRequest struct {
	Text    string   `json:"text"`
	Methods []string `json:"methods"`
}

type textRequest struct {
	Text string `json:"text"`
}

type methodsRequest struct {
	Methods []string `json:"methods"`
}

func (s *Server) handleMethods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"methods": analysis.Catalogue()})
}

// handleAnalyze runs a stateless analysis that does not touch the session.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := analyzeValidator.decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	methods, err := analysis.ParseMethods(req.Methods)
	if err != nil {
		writeErr(w, err)
		return
	}
	res, err := s.cfg.Analyzer.Run(r.Context(), req.Text, methods)
	s.countRun(err)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Session.Snapshot())
}

func (s *Server) handleSessionText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := textValidator.decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.cfg.Session.SetText(req.Text); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Session.Snapshot())
}

func (s *Server) handleSessionMethods(w http.ResponseWriter, r *http.Request) {
	var req methodsRequest
	if err := methodsValidator.decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	methods, err := analysis.ParseMethods(req.Methods)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.cfg.Session.SetMethods(methods); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Session.Snapshot())
}

func (s *Server) handleSessionToggle(w http.ResponseWriter, r *http.Request) {
	m, err := analysis.ParseMethod(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if _, err := s.cfg.Session.ToggleMethod(m); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Session.Snapshot())
}

// handleSessionUpload accepts a multipart upload in the "file" field.
func (s *Server) handleSessionUpload(w http.ResponseWriter, r *http.Request) {
	s.uploads.Add(1)
	if err := r.ParseMultipartForm(s.cfg.Session.MaxUploadBytes()); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			writeError(w, http.StatusBadRequest, "expected multipart/form-data")
			return
		}
		writeError(w, http.StatusBadRequest, "parse upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.rejects.Add(1)
		writeErr(w, s.cfg.Session.LoadFile(r.Context(), "", nil))
		return
	}
	defer file.Close()

	if err := s.cfg.Session.LoadFile(r.Context(), header.Filename, file); err != nil {
		var warn *session.Warning
		if errors.As(err, &warn) {
			s.rejects.Add(1)
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Session.Snapshot())
}

func (s *Server) handleSessionAnalyze(w http.ResponseWriter, r *http.Request) {
	res, err := s.cfg.Session.Analyze(r.Context())
	if !errors.Is(err, session.ErrBusy) {
		s.countRun(err)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSessionChart serves /api/session/charts/<kind>.<format>.
func (s *Server) handleSessionChart(w http.ResponseWriter, r *http.Request) {
	name, ext, ok := strings.Cut(r.PathValue("file"), ".")
	if !ok {
		writeError(w, http.StatusNotFound, "chart name must be <kind>.<svg|png>")
		return
	}
	kind, err := render.ParseKind(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	format, err := render.ParseFormat(ext)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := s.cfg.Renderer.Render(r.Context(), &buf, kind, format, s.cfg.Session.Results()); err != nil {
		writeErr(w, err)
		return
	}
	s.charts.Add(1)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) countRun(err error) {
	switch {
	case err == nil:
		s.analyses.Add(1)
	case errors.Is(err, analysis.ErrNothingToAnalyze):
	default:
		s.failures.Add(1)
	}
}
