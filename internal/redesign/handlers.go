package redesign

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"roomStylerAi/internal/catalog"
	"roomStylerAi/internal/events"
	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/logger"
	"roomStylerAi/internal/media"
	"roomStylerAi/internal/session"
	"roomStylerAi/internal/vision"
)

// Sessions is the part of session.Store the handlers use.
type Sessions interface {
	Create() *session.Controller
	Get(id string) (*session.Controller, error)
	Delete(id string) error
}

// Handler bundles dependencies for the redesign endpoints.
type Handler struct {
	Sessions       Sessions
	Catalog        catalog.Catalog
	Analyzer       vision.Analyzer
	Uploader       media.Uploader
	Events         *events.Broker
	MaxUploadBytes int64
}

type styleRequest struct {
	Name string `json:"name"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error   string            `json:"error"`
	Session *session.Snapshot `json:"session,omitempty"`
}

// Styles handles GET /api/styles.
func (h Handler) Styles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.Styles())
}

// Create handles POST /api/sessions.
func (h Handler) Create(w http.ResponseWriter, _ *http.Request) {
	ctrl := h.Sessions.Create()
	writeJSON(w, http.StatusCreated, ctrl.Snapshot())
}

// Get handles GET /api/sessions/{id}.
func (h Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

// Delete handles DELETE /api/sessions/{id}.
func (h Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload handles POST /api/sessions/{id}/upload with a multipart "image" file.
func (h Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = imagecodec.DefaultMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))

	file, filename := formImage(r, limit)
	if file != nil {
		defer file.Close()
	}

	var body io.Reader
	if file != nil {
		body = file
	}
	snap, err := ctrl.Upload(body, filename)
	h.respond(w, snap, err)
}

// SelectStyle handles POST /api/sessions/{id}/style.
func (h Handler) SelectStyle(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req styleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	snap, err := ctrl.SelectStyle(detach(r), req.Name)
	h.respond(w, snap, err)
}

// Surprise handles POST /api/sessions/{id}/surprise.
func (h Handler) Surprise(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	snap, err := ctrl.SurpriseMe(detach(r))
	h.respond(w, snap, err)
}

// Chat handles POST /api/sessions/{id}/chat.
func (h Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := ctrl.Refine(detach(r), req.Message)
	h.respond(w, snap, err)
}

// Reset handles POST /api/sessions/{id}/reset.
func (h Handler) Reset(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Reset())
}

// DismissError handles POST /api/sessions/{id}/dismiss-error.
func (h Handler) DismissError(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.DismissError())
}

// Export handles POST /api/sessions/{id}/export by storing the current design.
func (h Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	snap := ctrl.Snapshot()
	if snap.GeneratedImage == "" {
		writeError(w, session.ErrNoImage, &snap)
		return
	}

	name := strings.ToLower(strings.ReplaceAll(snap.Style, " ", "-"))
	result, err := media.UploadImage(r.Context(), h.Uploader, snap.GeneratedImage, name)
	if err != nil {
		if errors.Is(err, media.ErrUploaderDisabled) {
			http.Error(w, "export not configured", http.StatusServiceUnavailable)
			return
		}
		logger.ErrorWithFields("export failed", logger.Fields{
			"session_id": snap.ID,
			"error":      err.Error(),
		})
		http.Error(w, "could not store image", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Insights handles GET /api/sessions/{id}/insights.
func (h Handler) Insights(w http.ResponseWriter, r *http.Request) {
	if h.Analyzer == nil {
		http.Error(w, "room analysis inactive", http.StatusServiceUnavailable)
		return
	}
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	snap := ctrl.Snapshot()
	if snap.OriginalImage == "" {
		writeError(w, session.ErrNoImage, &snap)
		return
	}

	insights, err := h.Analyzer.Analyze(r.Context(), snap.OriginalImage)
	if err != nil {
		logger.ErrorWithFields("room analysis failed", logger.Fields{
			"session_id": snap.ID,
			"error":      err.Error(),
		})
		http.Error(w, "could not analyze room", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (h Handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	ctrl, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, nil)
		return nil, false
	}
	return ctrl, true
}

func (h Handler) respond(w http.ResponseWriter, snap session.Snapshot, err error) {
	if err != nil {
		writeError(w, err, &snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// formImage returns the uploaded "image" part, or nil when the form is unusable.
func formImage(r *http.Request, limit int64) (multipart.File, string) {
	if err := r.ParseMultipartForm(limit + (1 << 20)); err != nil {
		logger.WarnWithFields("invalid upload form", logger.Fields{"error": err.Error()})
		return nil, ""
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, ""
	}
	return file, header.Filename
}

// detach keeps AI calls running when the client goes away; the backends
// apply their own timeouts.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// StatusFor maps controller errors to HTTP status codes.
func StatusFor(err error) int {
	var (
		conv *session.ConversionError
		gen  *session.GenerationError
		ref  *session.RefinementError
	)
	switch {
	case errors.As(err, &conv),
		errors.Is(err, session.ErrEmptyMessage),
		errors.Is(err, session.ErrUnknownStyle):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrWrongStep),
		errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNoImage),
		errors.Is(err, session.ErrNoStyles),
		session.IsStale(err):
		return http.StatusConflict
	case errors.As(err, &gen), errors.As(err, &ref):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error, snap *session.Snapshot) {
	writeJSON(w, StatusFor(err), errorResponse{Error: session.UserMessage(err), Session: snap})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.Errorf("encode response: %v", err)
	}
}
