package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sebasr/greetcard-service/internal/models"
)

func setupTestMongo(t *testing.T) (*MongoGreetingRepository, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	repo, err := NewMongoGreetingRepository(ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()), "test_greetings")
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(ctx))

	cleanup := func() {
		_ = repo.Close(context.Background())
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}
	return repo, cleanup
}

func TestMongoGreetingRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	repo, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("round-trip", func(t *testing.T) {
		g := sampleGreeting("mongo-1")
		require.NoError(t, repo.Create(ctx, g))
		assert.False(t, g.CreatedAt.IsZero())

		got, err := repo.GetByID(ctx, "mongo-1")
		require.NoError(t, err)
		assert.Equal(t, g.Sender, got.Sender)
		assert.Equal(t, g.Receiver, got.Receiver)
		assert.Equal(t, g.Message, got.Message)
		assert.Equal(t, *g.DayIndex, *got.DayIndex)
		assert.Equal(t, g.Extras, got.Extras)
		assert.True(t, g.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("duplicate id", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, sampleGreeting("mongo-dup")))
		assert.ErrorIs(t, repo.Create(ctx, sampleGreeting("mongo-dup")), ErrGreetingExists)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "mongo-missing")
		assert.ErrorIs(t, err, ErrGreetingNotFound)
	})

	t.Run("collection validator enforces bounds", func(t *testing.T) {
		long := sampleGreeting("mongo-long-message")
		long.Message = strings.Repeat("m", models.MaxMessageLength+1)
		assert.ErrorIs(t, repo.Create(ctx, long), ErrGreetingInvalid)

		memory := sampleGreeting("mongo-long-memory")
		memory.Extras.Memories = []string{strings.Repeat("x", models.MaxMemoryLength+1)}
		assert.ErrorIs(t, repo.Create(ctx, memory), ErrGreetingInvalid)

		blank := sampleGreeting("mongo-blank")
		blank.Sender = "   "
		assert.ErrorIs(t, repo.Create(ctx, blank), ErrGreetingInvalid)

		_, err := repo.GetByID(ctx, "mongo-long-message")
		assert.ErrorIs(t, err, ErrGreetingNotFound)
	})

	t.Run("schema setup is repeatable", func(t *testing.T) {
		assert.NoError(t, repo.EnsureSchema(ctx))
	})

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, repo.HealthCheck(ctx))
	})
}
