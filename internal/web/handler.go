// Package web serves the server-rendered screens of the redesign flow.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"roomStylerAi/internal/catalog"
	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/logger"
	"roomStylerAi/internal/session"
	"roomStylerAi/internal/ui"
)

// CookieName holds the session id of the browser.
const CookieName = "roomstyler_session"

//go:embed templates/*.html
var templateFS embed.FS

// Sessions is the part of session.Store the screens use.
type Sessions interface {
	Create() *session.Controller
	Get(id string) (*session.Controller, error)
}

// Handler renders the upload, style and result screens and accepts their forms.
type Handler struct {
	sessions       Sessions
	catalog        catalog.Catalog
	maxUploadBytes int64
	tmpl           *template.Template
}

// New parses the embedded templates.
func New(sessions Sessions, styles catalog.Catalog, maxUploadBytes int64) (*Handler, error) {
	tmpl, err := template.New("page.html").Funcs(template.FuncMap{
		"imageURL": imageURL,
		// Only ui.Comparator output reaches css.
		"css": func(s string) template.CSS { return template.CSS(s) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = imagecodec.DefaultMaxBytes
	}
	return &Handler{
		sessions:       sessions,
		catalog:        styles,
		maxUploadBytes: maxUploadBytes,
		tmpl:           tmpl,
	}, nil
}

// Index handles GET / by rendering the screen of the caller's session.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctrl := h.current(w, r)
	page := ui.NewPage(ctrl.Snapshot(), h.catalog, ui.ParseReveal(r.URL.Query().Get("reveal")))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "page.html", page); err != nil {
		logger.ErrorWithFields("render page failed", logger.Fields{
			"session_id": ctrl.ID(),
			"error":      err.Error(),
		})
	}
}

// Messages handles GET /messages by rendering only the chat list, so the
// result screen can follow a refine while its POST is still running.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	ctrl := h.current(w, r)
	page := ui.NewPage(ctrl.Snapshot(), h.catalog, ui.DefaultReveal)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.tmpl.ExecuteTemplate(w, "messages", page.Chat); err != nil {
		logger.ErrorWithFields("render messages failed", logger.Fields{
			"session_id": ctrl.ID(),
			"error":      err.Error(),
		})
	}
}

// Upload handles the upload form.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctrl := h.current(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))

	var (
		body     io.Reader
		filename string
	)
	if err := r.ParseMultipartForm(h.maxUploadBytes + (1 << 20)); err == nil {
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			body, filename = file, header.Filename
		}
	}
	_, err := ctrl.Upload(body, filename)
	h.finish(w, r, ctrl, "upload", err)
}

// SelectStyle handles a style tile click.
func (h *Handler) SelectStyle(w http.ResponseWriter, r *http.Request) {
	ctrl := h.current(w, r)
	_, err := ctrl.SelectStyle(detach(r), r.FormValue("name"))
	h.finish(w, r, ctrl, "style", err)
}

// Surprise handles the "Surprise Me!" button.
func (h *Handler) Surprise(w http.ResponseWriter, r *http.Request) {
	ctrl := h.current(w, r)
	_, err := ctrl.SurpriseMe(detach(r))
	h.finish(w, r, ctrl, "surprise", err)
}

// Chat handles the refine form.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctrl := h.current(w, r)
	_, err := ctrl.Refine(detach(r), r.FormValue("message"))
	h.finish(w, r, ctrl, "chat", err)
}

// Reset handles "Start Over".
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	ctrl := h.current(w, r)
	ctrl.Reset()
	h.finish(w, r, ctrl, "reset", nil)
}

// DismissError closes the banner.
func (h *Handler) DismissError(w http.ResponseWriter, r *http.Request) {
	ctrl := h.current(w, r)
	ctrl.DismissError()
	h.finish(w, r, ctrl, "dismiss", nil)
}

// current returns the caller's session, starting a new one when the cookie
// is missing or expired.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) *session.Controller {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if ctrl, err := h.sessions.Get(cookie.Value); err == nil {
			return ctrl
		}
	}
	ctrl := h.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    ctrl.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ctrl
}

// finish redirects back to the page. Failures are already reflected in the
// session banner or chat; the rest only need logging.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, ctrl *session.Controller, op string, err error) {
	if err != nil && !errors.Is(err, session.ErrEmptyMessage) {
		logger.WarnWithFields("screen action rejected", logger.Fields{
			"session_id": ctrl.ID(),
			"operation":  op,
			"error":      err.Error(),
		})
	}
	target := "/"
	if reveal := strings.TrimSpace(r.FormValue("reveal")); reveal != "" {
		target += "?reveal=" + fmt.Sprint(ui.ParseReveal(reveal))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// imageURL trusts inline images and http(s) links. Anything else is returned
// as a plain string so html/template filters it.
func imageURL(raw string) any {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "data:image/") {
		return template.URL(s)
	}
	if u, err := url.Parse(s); err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https") {
		return template.URL(s)
	}
	return raw
}

func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
