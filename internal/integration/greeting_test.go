package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sebasr/greetcard-service/internal/config"
	"github.com/sebasr/greetcard-service/internal/database"
	"github.com/sebasr/greetcard-service/internal/events"
	"github.com/sebasr/greetcard-service/internal/repository"
	"github.com/sebasr/greetcard-service/internal/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestDatabase creates a migrated test database using Testcontainers
func setupTestDatabase(t *testing.T) (*database.DB, func()) {
	t.Helper()

	ctx := context.Background()

	// Set Docker socket for Colima if not already set
	if os.Getenv("DOCKER_HOST") == "" {
		colimaSocket := os.ExpandEnv("$HOME/.colima/default/docker.sock")
		if _, err := os.Stat(colimaSocket); err == nil {
			t.Setenv("DOCKER_HOST", "unix://"+colimaSocket)
			// Disable Ryuk container for Colima (socket can't be mounted)
			t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
			t.Logf("Using Colima Docker socket: %s (Ryuk disabled)", colimaSocket)
		}
	}

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := postgres.Host(ctx)
	require.NoError(t, err)

	port, err := postgres.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:     host,
		Port:     port.Port(),
		Name:     "testdb",
		User:     "testuser",
		Password: "testpass",
		SSLMode:  "disable",
	}

	db, err := database.New(cfg)
	require.NoError(t, err)

	_, err = db.Migrate(ctx)
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Close()
		_ = postgres.Terminate(ctx)
	}

	return db, cleanup
}

func setupTestServer(t *testing.T, db *database.DB, pub events.Publisher) *gin.Engine {
	t.Helper()

	repo := repository.NewPostgresGreetingRepository(db)
	router, err := server.New(&server.Dependencies{
		Config: &config.Config{
			Server:    config.ServerConfig{Mode: gin.TestMode},
			Storage:   config.StorageConfig{Driver: config.DriverPostgres},
			RateLimit: config.RateLimitConfig{PerMinute: 1000, CreatePerMinute: 100},
			Log:       config.LogConfig{Level: "info", Format: "json"},
		},
		Repo:          repo,
		HealthChecker: repo,
		Publisher:     pub,
	})
	require.NoError(t, err)
	return router
}

func makeRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGreetingFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	rec := &events.Recorder{}
	router := setupTestServer(t, db, rec)

	var id string

	t.Run("create greeting", func(t *testing.T) {
		day := 42
		w := makeRequest(router, http.MethodPost, "/api/create", map[string]interface{}{
			"sender":    "Alice",
			"receiver":  "Bob",
			"message":   "Happy birthday!",
			"day_index": day,
			"memories":  []string{"the lake", "the rain"},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, true, response["success"])
		id = response["id"].(string)
		assert.Len(t, id, 10)
		assert.Equal(t, "http://example.com/?id="+id, response["url"])
	})

	t.Run("get greeting", func(t *testing.T) {
		w := makeRequest(router, http.MethodGet, "/api/get?id="+id, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Alice", response["sender"])
		assert.Equal(t, "Bob", response["receiver"])
		assert.Equal(t, "Happy birthday!", response["message"])
		assert.EqualValues(t, 42, response["day_index"])
		assert.Equal(t, []interface{}{"the lake", "the rain"}, response["memories"])

		createdAt, err := time.Parse(time.RFC3339Nano, response["created_at"].(string))
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), createdAt, time.Minute)
	})

	t.Run("greeting page", func(t *testing.T) {
		w := makeRequest(router, http.MethodGet, "/?id="+id, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "A greeting for Bob from Alice")
	})

	t.Run("event published", func(t *testing.T) {
		published := rec.Events()
		require.Len(t, published, 1)
		assert.Equal(t, events.KeyGreetingCreated, published[0].Key)
	})

	t.Run("501 character message rejected", func(t *testing.T) {
		w := makeRequest(router, http.MethodPost, "/api/create", map[string]interface{}{
			"sender":   "Alice",
			"receiver": "Bob",
			"message":  strings.Repeat("x", 501),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("500 character message accepted", func(t *testing.T) {
		w := makeRequest(router, http.MethodPost, "/api/create", map[string]interface{}{
			"sender":   "Alice",
			"receiver": "Bob",
			"message":  strings.Repeat("é", 500),
		})
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("missing receiver rejected", func(t *testing.T) {
		w := makeRequest(router, http.MethodPost, "/api/create", map[string]interface{}{
			"sender": "Alice",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := makeRequest(router, http.MethodGet, "/api/get?id=doesnotexist", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := makeRequest(router, http.MethodGet, "/api/get?id=a%20b", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("health", func(t *testing.T) {
		w := makeRequest(router, http.MethodGet, "/api/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHealthReportsClosedDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, cleanup := setupTestDatabase(t)
	defer cleanup()

	router := setupTestServer(t, db, nil)
	require.NoError(t, db.Close())

	w := makeRequest(router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
