package repository

import (
	"context"

	"github.com/sebasr/greetcard-service/internal/models"
)

// MockGreetingRepository is a mock implementation of GreetingRepository for testing
type MockGreetingRepository struct {
	CreateFunc  func(ctx context.Context, greeting *models.Greeting) error
	GetByIDFunc func(ctx context.Context, id string) (*models.Greeting, error)
}

// NewMockGreetingRepository creates a new mock greeting repository
func NewMockGreetingRepository() *MockGreetingRepository {
	return &MockGreetingRepository{
		CreateFunc: func(_ context.Context, _ *models.Greeting) error {
			return nil
		},
		GetByIDFunc: func(_ context.Context, _ string) (*models.Greeting, error) {
			return nil, ErrGreetingNotFound
		},
	}
}

// Create implements GreetingRepository.Create
func (m *MockGreetingRepository) Create(ctx context.Context, greeting *models.Greeting) error {
	return m.CreateFunc(ctx, greeting)
}

// GetByID implements GreetingRepository.GetByID
func (m *MockGreetingRepository) GetByID(ctx context.Context, id string) (*models.Greeting, error) {
	return m.GetByIDFunc(ctx, id)
}
