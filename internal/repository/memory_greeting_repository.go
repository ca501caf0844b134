package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sebasr/greetcard-service/internal/models"
)

// MemoryGreetingRepository keeps greetings in process memory.
// It backs the demo mode (STORAGE_DRIVER=memory) and handler tests.
type MemoryGreetingRepository struct {
	mu        sync.RWMutex
	greetings map[string]models.Greeting
	now       func() time.Time
}

// NewMemoryGreetingRepository creates an empty in-memory repository
func NewMemoryGreetingRepository() *MemoryGreetingRepository {
	return &MemoryGreetingRepository{
		greetings: make(map[string]models.Greeting),
		now:       time.Now,
	}
}

// Create stores a copy of the greeting
func (r *MemoryGreetingRepository) Create(_ context.Context, g *models.Greeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.greetings[g.ID]; exists {
		return ErrGreetingExists
	}

	g.CreatedAt = r.now().UTC()
	r.greetings[g.ID] = clone(g)
	return nil
}

// GetByID returns a copy of the stored greeting
func (r *MemoryGreetingRepository) GetByID(_ context.Context, id string) (*models.Greeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.greetings[id]
	if !ok {
		return nil, ErrGreetingNotFound
	}
	out := clone(&g)
	return &out, nil
}

// Len returns the number of stored greetings
func (r *MemoryGreetingRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.greetings)
}

func clone(g *models.Greeting) models.Greeting {
	out := *g
	if g.DayIndex != nil {
		day := *g.DayIndex
		out.DayIndex = &day
	}
	if g.Extras.Memories != nil {
		out.Extras.Memories = append([]string(nil), g.Extras.Memories...)
	}
	return out
}
