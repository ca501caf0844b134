package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebasr/greetcard-service/internal/config"
	"github.com/sebasr/greetcard-service/internal/events"
	"github.com/sebasr/greetcard-service/internal/repository"
)

func init() {
	// Set Gin to test mode
	gin.SetMode(gin.TestMode)
}

func newTestDeps() *Dependencies {
	return &Dependencies{
		Config: &config.Config{
			Server:    config.ServerConfig{Mode: gin.TestMode},
			Storage:   config.StorageConfig{Driver: config.DriverMemory},
			RateLimit: config.RateLimitConfig{PerMinute: 100, CreatePerMinute: 10},
			Log:       config.LogConfig{Level: "info", Format: "json"},
		},
		Repo: repository.NewMemoryGreetingRepository(),
	}
}

func newTestRouter(t *testing.T, deps *Dependencies) *gin.Engine {
	t.Helper()
	router, err := New(deps)
	require.NoError(t, err)
	return router
}

func serve(router *gin.Engine, method, target, body, remoteAddr string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetEndpoints(t *testing.T) {
	deps := newTestDeps()
	rec := &events.Recorder{}
	deps.Publisher = rec
	router := newTestRouter(t, deps)

	w := serve(router, http.MethodPost, "/api/create", `{"sender":"Alice","receiver":"Bob","message":"Hi"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, true, created["success"])
	id, ok := created["id"].(string)
	require.True(t, ok)
	assert.Equal(t, "http://example.com/?id="+id, created["url"])

	w = serve(router, http.MethodGet, "/api/get?id="+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Alice", got["sender"])
	assert.Equal(t, "Bob", got["receiver"])
	assert.Equal(t, "Hi", got["message"])
	assert.Contains(t, got, "day_index")
	assert.Contains(t, got, "created_at")

	assert.Len(t, rec.Events(), 1)
}

func TestPublicBaseURL(t *testing.T) {
	deps := newTestDeps()
	deps.Config.Server.PublicBaseURL = "https://cards.example.org"
	router := newTestRouter(t, deps)

	w := serve(router, http.MethodPost, "/api/create", `{"sender":"Alice","receiver":"Bob"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created["url"].(string), "https://cards.example.org/?id="))
}

func TestCreateRateLimit(t *testing.T) {
	deps := newTestDeps()
	deps.Config.RateLimit.CreatePerMinute = 2
	router := newTestRouter(t, deps)

	const ip = "192.0.2.10:4000"
	for i := 0; i < 2; i++ {
		w := serve(router, http.MethodPost, "/api/create", `{"sender":"Alice","receiver":"Bob"}`, ip)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := serve(router, http.MethodPost, "/api/create", `{"sender":"Alice","receiver":"Bob"}`, ip)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Reads are only subject to the general limit
	w = serve(router, http.MethodGet, "/api/get?id=unknown", "", ip)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Other clients are unaffected
	w = serve(router, http.MethodPost, "/api/create", `{"sender":"Alice","receiver":"Bob"}`, "192.0.2.11:4000")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, newTestDeps())

	serve(router, http.MethodPost, "/api/create", `{"sender":"Alice","receiver":"Bob"}`, "")

	w := serve(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "greetings_created_total")
	assert.Contains(t, body, `http_requests_total{method="POST",route="/api/create",status="201"}`)
}

func TestDocsEndpoint(t *testing.T) {
	router := newTestRouter(t, newTestDeps())

	w := serve(router, http.MethodGet, "/docs/doc.json", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/create")

	w = serve(router, http.MethodGet, "/docs/index.html", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFrontendRoutes(t *testing.T) {
	router := newTestRouter(t, newTestDeps())

	w := serve(router, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `<form id="create-form"`)

	w = serve(router, http.MethodGet, "/static/app.js", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/create")
}

func TestFrontendRendersStoredGreeting(t *testing.T) {
	deps := newTestDeps()
	router := newTestRouter(t, deps)

	w := serve(router, http.MethodPost, "/api/create", `{"sender":"Alice","receiver":"Bob","message":"See you soon"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = serve(router, http.MethodGet, "/?id="+created["id"].(string), "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "A greeting for Bob from Alice")
	assert.Contains(t, w.Body.String(), "See you soon")
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, newTestDeps())

	req := httptest.NewRequest(http.MethodOptions, "/api/create", nil)
	req.Header.Set("Origin", "https://somewhere.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnhealthyStore(t *testing.T) {
	deps := newTestDeps()
	deps.HealthChecker = failingChecker{}
	router := newTestRouter(t, deps)

	w := serve(router, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInvalidTrustedProxies(t *testing.T) {
	deps := newTestDeps()
	deps.Config.Server.TrustedProxies = []string{"not-an-ip"}

	_, err := New(deps)
	assert.Error(t, err)
}

type failingChecker struct{}

func (failingChecker) HealthCheck(context.Context) error { return context.DeadlineExceeded }
