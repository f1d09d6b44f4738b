package redesign

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomStylerAi/internal/catalog"
	"roomStylerAi/internal/events"
	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/media"
	"roomStylerAi/internal/session"
	"roomStylerAi/internal/vision"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type stubDesigner struct {
	refineErr error
}

func (s *stubDesigner) GenerateInitialDesign(_ context.Context, _ imagecodec.DataURI, style string) (imagecodec.DataURI, error) {
	return imagecodec.FromBytes([]byte("design-"+style), "image/png"), nil
}

func (s *stubDesigner) RefineDesign(_ context.Context, _ imagecodec.DataURI, instruction string) (imagecodec.DataURI, error) {
	if s.refineErr != nil {
		return "", s.refineErr
	}
	return imagecodec.FromBytes([]byte("refined-"+instruction), "image/png"), nil
}

type stubChats struct{}

func (stubChats) StartChat(context.Context, []vision.Turn) (vision.ChatHandle, error) {
	return "chat", nil
}

func (stubChats) SendMessage(_ context.Context, _ vision.ChatHandle, message string) (string, error) {
	return "Sure, " + message, nil
}

func (stubChats) EndChat(vision.ChatHandle) {}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(context.Context, imagecodec.DataURI) (vision.RoomInsights, error) {
	return vision.RoomInsights{Summary: "A bright room", RoomType: "living room"}, nil
}

type fixture struct {
	handler  Handler
	designer *stubDesigner
	router   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	designer := &stubDesigner{}
	broker := events.NewBroker()
	store := session.NewStore(session.Dependencies{
		Designer:      designer,
		Conversations: stubChats{},
		Catalog:       catalog.Default(),
		Publisher:     broker,
		Upload:        imagecodec.Options{MaxBytes: 1024},
	}, session.StoreOptions{})

	uploader, err := media.NewLocalUploader(t.TempDir())
	require.NoError(t, err)

	h := Handler{
		Sessions:       store,
		Catalog:        catalog.Default(),
		Analyzer:       stubAnalyzer{},
		Uploader:       uploader,
		Events:         broker,
		MaxUploadBytes: 1024,
	}
	return &fixture{handler: h, designer: designer, router: routes(h)}
}

func routes(h Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/styles", h.Styles)
	r.Post("/api/sessions", h.Create)
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/upload", h.Upload)
		r.Post("/style", h.SelectStyle)
		r.Post("/surprise", h.Surprise)
		r.Post("/chat", h.Chat)
		r.Post("/reset", h.Reset)
		r.Post("/dismiss-error", h.DismissError)
		r.Post("/export", h.Export)
		r.Get("/insights", h.Insights)
		r.Get("/events", h.StreamEvents)
	})
	return r
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(t *testing.T, id, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) create(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decodeSnapshot(t, rec)
	assert.Equal(t, session.StepUpload, snap.Step)
	return snap.ID
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDesignFlowOverHTTP(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	rec := f.upload(t, id, "room.jpg", pngBytes)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, session.StepStyle, decodeSnapshot(t, rec).Step)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/style", styleRequest{Name: "Scandinavian"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decodeSnapshot(t, rec)
	assert.Equal(t, session.StepResult, snap.Step)
	require.Len(t, snap.ChatHistory, 1)
	assert.Contains(t, snap.ChatHistory[0].Text, "Scandinavian")

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/chat", chatRequest{Message: "make the sofa green"})
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeSnapshot(t, rec)
	require.Len(t, snap.ChatHistory, 3)
	assert.Equal(t, "Sure, make the sofa green", snap.ChatHistory[2].Text)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var exported media.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	assert.True(t, strings.HasSuffix(exported.Key, ".png"))

	rec = f.do(t, http.MethodGet, "/api/sessions/"+id+"/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A bright room")

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeSnapshot(t, rec)
	assert.Equal(t, session.StepUpload, snap.Step)
	assert.Empty(t, snap.ChatHistory)
}

func TestUploadRejectsNonImage(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	rec := f.upload(t, id, "notes.txt", []byte("plain text"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, session.MessageConversion, resp.Error)
	require.NotNil(t, resp.Session)
	assert.Equal(t, session.StepUpload, resp.Session.Step)
	assert.Equal(t, session.MessageConversion, resp.Session.Error)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/dismiss-error", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSnapshot(t, rec).Error)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{1}, 2048)...)
	rec := f.upload(t, id, "big.png", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefineFailureReturnsApology(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	require.Equal(t, http.StatusOK, f.upload(t, id, "room.png", pngBytes).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/sessions/"+id+"/surprise", nil).Code)

	f.designer.refineErr = errors.New("model overloaded")
	rec := f.do(t, http.MethodPost, "/api/sessions/"+id+"/chat", chatRequest{Message: "add a plant"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, session.MessageRefinement, resp.Error)
	require.NotNil(t, resp.Session)
	require.Len(t, resp.Session.ChatHistory, 3)
	assert.Contains(t, resp.Session.ChatHistory[2].Text, "I'm sorry")
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	rec := f.do(t, http.MethodGet, "/api/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/style", styleRequest{Name: "Scandinavian"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK, f.upload(t, id, "room.png", pngBytes).Code)
	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/style", styleRequest{Name: "Gothic"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/style", styleRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/sessions/"+id+"/style", styleRequest{Name: "industrial"}).Code)
	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/chat", chatRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/sessions/"+id+"/", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/sessions/"+id+"/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportRequiresDesign(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)

	rec := f.do(t, http.MethodPost, "/api/sessions/"+id+"/export", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.handler.Uploader = media.Disabled()
	f.router = routes(f.handler)
	require.Equal(t, http.StatusOK, f.upload(t, id, "room.png", pngBytes).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/sessions/"+id+"/style", styleRequest{Name: "Coastal"}).Code)
	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/export", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStylesEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/styles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var styles []catalog.DesignStyle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &styles))
	assert.Len(t, styles, 6)
	assert.Equal(t, "Mid-Century Modern", styles[0].Name)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(&session.ConversionError{Err: errors.New("x")}))
	assert.Equal(t, http.StatusBadRequest, StatusFor(fmt.Errorf("wrap: %w", session.ErrUnknownStyle)))
	assert.Equal(t, http.StatusConflict, StatusFor(session.ErrBusy))
	assert.Equal(t, http.StatusConflict, StatusFor(session.ErrStale))
	assert.Equal(t, http.StatusConflict, StatusFor(fmt.Errorf("session: surprise: %w", catalog.ErrEmpty)))
	assert.Equal(t, http.StatusBadGateway, StatusFor(&session.GenerationError{Err: errors.New("x")}))
	assert.Equal(t, http.StatusNotFound, StatusFor(session.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("other")))
}

func TestSurpriseWithEmptyCatalog(t *testing.T) {
	store := session.NewStore(session.Dependencies{
		Designer:      &stubDesigner{},
		Conversations: stubChats{},
		Catalog:       catalog.New(nil),
	}, session.StoreOptions{})
	f := &fixture{router: routes(Handler{Sessions: store, Catalog: catalog.New(nil), Events: events.NewBroker()})}
	id := f.create(t)
	require.Equal(t, http.StatusOK, f.upload(t, id, "room.png", pngBytes).Code)

	rec := f.do(t, http.MethodPost, "/api/sessions/"+id+"/surprise", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "No styles are available right now.", resp.Error)
	require.NotNil(t, resp.Session)
	assert.Equal(t, session.StepStyle, resp.Session.Step)
}

func TestStreamEventsSendsCurrentState(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/"+id+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() events.Event {
		t.Helper()
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "event: state\n", line)
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		var evt events.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &evt))
		_, err = reader.ReadString('\n')
		require.NoError(t, err)
		return evt
	}

	evt := readEvent()
	assert.Equal(t, id, evt.SessionID)
	assert.Equal(t, "UPLOAD", evt.Step)

	require.Eventually(t, func() bool { return f.handler.Events.Subscribers(id) == 1 }, time.Second, 10*time.Millisecond)
	require.Equal(t, http.StatusOK, f.upload(t, id, "room.png", pngBytes).Code)

	evt = readEvent()
	assert.Equal(t, "STYLE", evt.Step)
}
