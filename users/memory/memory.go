// Package memory provides an in-memory UserRepository used by tests and by
// the dependency-free development mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosom/user-directory/users"
)

type repo struct {
	mu    *sync.RWMutex
	items map[string]users.User
	seq   map[string]int
	next  int
}

func New() users.UserRepository {
	return &repo{
		mu:    &sync.RWMutex{},
		items: make(map[string]users.User),
		seq:   make(map[string]int),
	}
}

func (r *repo) Select(_ context.Context) ([]users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ans := make([]users.User, 0, len(r.items))
	for _, item := range r.items {
		ans = append(ans, item)
	}

	sort.Slice(ans, func(i, j int) bool {
		if !ans[i].CreatedAt.Equal(ans[j].CreatedAt) {
			return ans[i].CreatedAt.After(ans[j].CreatedAt)
		}

		return r.seq[ans[i].ID] > r.seq[ans[j].ID]
	})

	return ans, nil
}

func (r *repo) Get(_ context.Context, id string) (users.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return users.User{}, users.ErrInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}

	return user, nil
}

func (r *repo) GetByEmail(_ context.Context, email, excludeID string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.Email == email && item.ID != excludeID {
			return item, nil
		}
	}

	return users.User{}, users.ErrNotFound
}

func (r *repo) Create(_ context.Context, user *users.User) error {
	if user.Status == "" {
		user.Status = users.StatusActive
	}

	if err := user.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.items {
		if item.Email == user.Email {
			return users.ErrDuplicateEmail
		}
	}

	now := time.Now().UTC()
	user.ID = uuid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.next++
	r.seq[user.ID] = r.next
	r.items[user.ID] = *user

	return nil
}

func (r *repo) Update(_ context.Context, user *users.User) error {
	if _, err := uuid.Parse(user.ID); err != nil {
		return users.ErrInvalidID
	}

	if err := user.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[user.ID]
	if !ok {
		return users.ErrNotFound
	}

	for _, item := range r.items {
		if item.Email == user.Email && item.ID != user.ID {
			return users.ErrDuplicateEmail
		}
	}

	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now().UTC()

	r.items[user.ID] = *user

	return nil
}

func (r *repo) Delete(_ context.Context, id string) (users.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return users.User{}, users.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.items[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}

	delete(r.items, id)
	delete(r.seq, id)

	return user, nil
}
