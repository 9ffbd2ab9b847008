package memory

import (
	"context"
	"sync"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
)

type MemoryUserRepository struct {
	byName map[string]*domain.User
	nextID domain.UserID
	mu     sync.RWMutex
}

func NewMemoryUserRepository() ports.UserRepository {
	return &MemoryUserRepository{
		byName: make(map[string]*domain.User),
		nextID: 1,
	}
}

func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.byName[username]
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	out := *user
	return &out, nil
}

// Create stores the user, assigning the next id when none is set.
func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	}
	stored := *user
	r.byName[user.Username] = &stored
	return nil
}
