package web

import (
	"bytes"
	"context"
	"html/template"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomStylerAi/internal/catalog"
	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/session"
	"roomStylerAi/internal/vision"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type designer struct{}

func (designer) GenerateInitialDesign(_ context.Context, _ imagecodec.DataURI, style string) (imagecodec.DataURI, error) {
	return imagecodec.FromBytes([]byte(style), "image/png"), nil
}

func (designer) RefineDesign(_ context.Context, _ imagecodec.DataURI, instruction string) (imagecodec.DataURI, error) {
	return imagecodec.FromBytes([]byte(instruction), "image/png"), nil
}

type chats struct{}

func (chats) StartChat(context.Context, []vision.Turn) (vision.ChatHandle, error) { return "c", nil }

func (chats) SendMessage(_ context.Context, _ vision.ChatHandle, msg string) (string, error) {
	return "Done: " + msg, nil
}

func (chats) EndChat(vision.ChatHandle) {}

type browser struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

// gatedDesigner holds RefineDesign until release is closed.
type gatedDesigner struct {
	designer
	started chan struct{}
	release chan struct{}
}

func (d gatedDesigner) RefineDesign(ctx context.Context, current imagecodec.DataURI, instruction string) (imagecodec.DataURI, error) {
	d.started <- struct{}{}
	select {
	case <-d.release:
		return d.designer.RefineDesign(ctx, current, instruction)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newBrowser(t *testing.T) *browser {
	return newBrowserWith(t, designer{}, catalog.Default())
}

func newBrowserWith(t *testing.T, d vision.Designer, styles catalog.Catalog) *browser {
	t.Helper()
	store := session.NewStore(session.Dependencies{
		Designer:      d,
		Conversations: chats{},
		Catalog:       styles,
	}, session.StoreOptions{})
	h, err := New(store, styles, 0)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Get("/messages", h.Messages)
	r.Post("/upload", h.Upload)
	r.Post("/style", h.SelectStyle)
	r.Post("/surprise", h.Surprise)
	r.Post("/chat", h.Chat)
	r.Post("/reset", h.Reset)
	r.Post("/dismiss-error", h.DismissError)
	return &browser{t: t, router: r}
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) get(path string) string {
	rec := b.send(httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(b.t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := b.send(req)
	require.Equal(b.t, http.StatusSeeOther, rec.Code)
	return rec
}

func (b *browser) upload(filename string, data []byte) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(b.t, err)
	_, err = part.Write(data)
	require.NoError(b.t, err)
	require.NoError(b.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := b.send(req)
	require.Equal(b.t, http.StatusSeeOther, rec.Code)
}

func TestScreensFollowTheFlow(t *testing.T) {
	b := newBrowser(t)

	page := b.get("/")
	require.NotNil(t, b.cookie)
	assert.Contains(t, page, "Transform Your Space")
	assert.Contains(t, page, `accept="image/png, image/jpeg, image/webp"`)
	assert.NotContains(t, page, "Start Over")

	b.upload("room.png", pngBytes)
	page = b.get("/")
	assert.Contains(t, page, "Choose a Style")
	assert.Contains(t, page, "Start Over")
	assert.Contains(t, page, "Surprise Me!")
	assert.Equal(t, 6, strings.Count(page, `action="/style"`))
	assert.Contains(t, page, `src="data:image/png;base64,`)

	b.post("/style", url.Values{"name": {"Bohemian"}})
	page = b.get("/")
	assert.Contains(t, page, "Refine Your Design")
	assert.Contains(t, page, "Here is your room in the Bohemian style!")
	assert.Contains(t, page, "clip-path: inset(0 50% 0 0)")

	rec := b.post("/chat", url.Values{"message": {"add a plant"}, "reveal": {"30"}})
	assert.Equal(t, "/?reveal=30", rec.Header().Get("Location"))
	page = b.get("/?reveal=30")
	assert.Contains(t, page, "Done: add a plant")
	assert.Contains(t, page, "clip-path: inset(0 70% 0 0)")

	b.post("/reset", nil)
	page = b.get("/")
	assert.Contains(t, page, "Transform Your Space")
	assert.NotContains(t, page, "Done: add a plant")
}

func TestUploadErrorShowsBanner(t *testing.T) {
	b := newBrowser(t)
	b.get("/")

	b.upload("notes.txt", []byte("hello"))
	page := b.get("/")
	assert.Contains(t, page, session.MessageConversion)
	assert.Contains(t, page, "Transform Your Space")

	b.post("/dismiss-error", nil)
	page = b.get("/")
	assert.NotContains(t, page, session.MessageConversion)
}

func TestUnknownCookieStartsNewSession(t *testing.T) {
	b := newBrowser(t)
	b.cookie = &http.Cookie{Name: CookieName, Value: "expired"}

	page := b.get("/")
	assert.Contains(t, page, "Transform Your Space")
	assert.NotEqual(t, "expired", b.cookie.Value)
}

func TestPendingRefineShowsMessageAndTypingIndicator(t *testing.T) {
	d := gatedDesigner{started: make(chan struct{}, 1), release: make(chan struct{})}
	b := newBrowserWith(t, d, catalog.Default())
	b.get("/")
	b.upload("room.png", pngBytes)
	b.post("/style", url.Values{"name": {"Bohemian"}})

	// The refine POST runs on its own request, like the page script's fetch.
	form := url.Values{"message": {"add a plant"}}
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(b.cookie)
	done := make(chan int, 1)
	go func() {
		rec := httptest.NewRecorder()
		b.router.ServeHTTP(rec, req)
		done <- rec.Code
	}()

	select {
	case <-d.started:
	case <-time.After(2 * time.Second):
		t.Fatal("refine never reached the designer")
	}

	page := b.get("/")
	assert.Contains(t, page, `<div class="msg user">add a plant</div>`)
	assert.Contains(t, page, `class="msg model typing"`)
	assert.Contains(t, page, `<input type="text" name="message" id="chat-input" placeholder="e.g., Make the walls light blue" disabled>`)

	fragment := b.get("/messages")
	assert.NotContains(t, fragment, "<html")
	assert.Contains(t, fragment, `<div class="msg user">add a plant</div>`)
	assert.Contains(t, fragment, `class="msg model typing"`)
	assert.Contains(t, fragment, `id="chat-end"`)

	close(d.release)
	select {
	case code := <-done:
		assert.Equal(t, http.StatusSeeOther, code)
	case <-time.After(2 * time.Second):
		t.Fatal("refine did not finish")
	}

	fragment = b.get("/messages")
	assert.Contains(t, fragment, "Done: add a plant")
	assert.NotContains(t, fragment, "typing")
}

func TestImageURLTrustsOnlyImagesAndHTTP(t *testing.T) {
	assert.Equal(t, template.URL("data:image/png;base64,AAAA"), imageURL("data:image/png;base64,AAAA"))
	assert.Equal(t, template.URL("https://cdn.example.com/a.jpg"), imageURL("https://cdn.example.com/a.jpg"))
	assert.Equal(t, template.URL("http://cdn.example.com/a.jpg"), imageURL("http://cdn.example.com/a.jpg"))

	for _, raw := range []string{
		"javascript:alert(1)",
		"data:text/html;base64,PHNjcmlwdD4=",
		"https:///no-host",
		"/relative.jpg",
	} {
		_, trusted := imageURL(raw).(template.URL)
		assert.False(t, trusted, raw)
	}
}

func TestStyleTilesFilterUnsafeImageURLs(t *testing.T) {
	styles := catalog.New([]catalog.DesignStyle{
		{Name: "Evil", ImageURL: "javascript:alert(1)"},
		{Name: "Coastal", ImageURL: "https://cdn.example.com/coastal.jpg"},
	})
	b := newBrowserWith(t, designer{}, styles)
	b.get("/")
	b.upload("room.png", pngBytes)

	page := b.get("/")
	assert.Contains(t, page, "Choose a Style")
	assert.NotContains(t, page, "javascript:alert")
	assert.Contains(t, page, `src="#ZgotmplZ"`)
	assert.Contains(t, page, `src="https://cdn.example.com/coastal.jpg"`)
}
