package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync/internal/adapters/storage"
	"github.com/jsamuelsen/quote-sync/internal/app"
	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// discardLogger returns a logger that swallows output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// q builds a quote for fixtures.
func q(text, category string) *domain.Quote {
	return &domain.Quote{Text: text, Category: category}
}

// fakeRemote is an in-memory sync endpoint.
type fakeRemote struct {
	mu       sync.Mutex
	snapshot []*domain.Quote
	fetchErr error
	pushes   int
}

func (f *fakeRemote) FetchSnapshot(_ context.Context) ([]*domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	out := make([]*domain.Quote, len(f.snapshot))
	copy(out, f.snapshot)

	return out, nil
}

func (f *fakeRemote) PushSnapshot(_ context.Context, _ []*domain.Quote, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pushes++

	return nil
}

func (f *fakeRemote) setSnapshot(quotes []*domain.Quote) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.snapshot = quotes
}

func (f *fakeRemote) setFetchErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchErr = err
}

// handlerFixture wires the real application service over in-memory stores
// and registers every API route on a test router. local nil seeds the
// default collection.
type handlerFixture struct {
	remote  *fakeRemote
	service *app.QuoteService
	router  *gin.Engine
}

func newHandlerFixture(t *testing.T, local, remote []*domain.Quote) *handlerFixture {
	t.Helper()

	logger := discardLogger()
	ctx := context.Background()
	store := storage.NewSessionStore()

	if local != nil {
		raw, err := domain.MarshalQuotes(local)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, "quotes", raw))
	}

	collection := app.NewCollection(app.CollectionConfig{Store: store, Logger: logger})

	remoteClient := &fakeRemote{snapshot: remote}

	engine, err := app.NewEngine(app.EngineConfig{
		Collection: collection,
		Remote:     remoteClient,
		Store:      store,
		Logger:     logger,
	})
	require.NoError(t, err)

	prefs := storage.NewPrefs(store, logger)

	scheduler := app.NewScheduler(app.SchedulerConfig{
		Engine:   engine,
		Prefs:    prefs,
		Interval: time.Hour,
		Logger:   logger,
	})

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Collection: collection,
		Engine:     engine,
		Scheduler:  scheduler,
		Session:    storage.NewSessionStore(),
		Prefs:      prefs,
		Logger:     logger,
	})

	require.NoError(t, service.Start(ctx))
	t.Cleanup(service.Shutdown)

	router := gin.New()
	api := router.Group("/api/v1")
	NewQuoteHandler(service).RegisterQuoteRoutes(api)
	NewSyncHandler(service).RegisterSyncRoutes(api)
	NewTransferHandler(service).RegisterTransferRoutes(api)

	return &handlerFixture{
		remote:  remoteClient,
		service: service,
		router:  router,
	}
}

// do runs one request through the router.
func (fx *handlerFixture) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	return w
}

// getJSON runs a GET and decodes a 200 body into out.
func (fx *handlerFixture) getJSON(t *testing.T, path string, out any) *httptest.ResponseRecorder {
	t.Helper()

	w := fx.do(t, http.MethodGet, path, nil, "")
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}

	return w
}

// postJSON runs a POST with a JSON body and decodes a 200 body into out.
func (fx *handlerFixture) postJSON(t *testing.T, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()

	w := fx.do(t, http.MethodPost, path, strings.NewReader(body), "application/json")
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}

	return w
}

// errorCode decodes the error envelope and returns its machine code.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp.Error.Code
}

// errorDetails decodes the error envelope and returns its field details.
func errorDetails(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp.Error.Details
}

// multipartBody builds a multipart form with an optional file and mode field.
func multipartBody(t *testing.T, filename, mode string, content []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)

		_, err = fw.Write(content)
		require.NoError(t, err)
	}

	if mode != "" {
		require.NoError(t, w.WriteField("mode", mode))
	}

	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}
