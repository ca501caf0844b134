// Package repository provides data access interfaces and implementations.
package repository

import (
	"context"
	"errors"

	"github.com/sebasr/greetcard-service/internal/models"
)

var (
	// ErrGreetingNotFound is returned when no greeting has the requested identifier
	ErrGreetingNotFound = errors.New("greeting not found")

	// ErrGreetingExists is returned when the identifier is already taken
	ErrGreetingExists = errors.New("greeting already exists")

	// ErrGreetingInvalid is returned when the store's own constraints reject a greeting
	ErrGreetingInvalid = errors.New("greeting violates store constraints")
)

// GreetingRepository defines the interface for greeting data access.
// Greetings are append-only; there is no update or delete.
type GreetingRepository interface {
	// Create stores a new greeting. The store assigns CreatedAt and writes it back.
	Create(ctx context.Context, greeting *models.Greeting) error

	// GetByID retrieves a greeting by its identifier
	GetByID(ctx context.Context, id string) (*models.Greeting, error)
}

// HealthChecker is implemented by stores that can report connectivity
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
