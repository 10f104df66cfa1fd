package db

import (
	"context"
	"sync"

	"github.com/wuwenbin0122/campus-accounts/internal/models"
)

// MemoryUsers is a process-local UserStore used by tests and the memory driver.
type MemoryUsers struct {
	mu          sync.RWMutex
	usersByID   map[string]*models.User
	usersByName map[string]*models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		usersByID:   make(map[string]*models.User),
		usersByName: make(map[string]*models.User),
	}
}

func (m *MemoryUsers) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if user.Username != "" {
		if _, exists := m.usersByName[user.Username]; exists {
			return ErrDuplicateUsername
		}
	}

	stored := user.Clone()
	m.usersByID[stored.ID] = stored
	if stored.Username != "" {
		m.usersByName[stored.Username] = stored
	}

	return nil
}

func (m *MemoryUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, ErrUserNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.usersByName[username]
	if !ok {
		return nil, ErrUserNotFound
	}

	return user.Clone(), nil
}

func (m *MemoryUsers) Save(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.usersByID[user.ID]
	if !ok {
		return ErrUserNotFound
	}

	stored.Interests = append([]string(nil), user.Interests...)
	stored.MBTIType = user.MBTIType
	stored.UpdatedAt = user.UpdatedAt

	return nil
}

// Len reports how many records are stored, including ones without a username.
func (m *MemoryUsers) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.usersByID)
}
