// Package session tracks which user is currently authenticated and keeps the
// durable session record in step with it.
package session

import (
	"context"
	"errors"

	"sync"

	"go.uber.org/zap"

	"ticketdesk/internal/adapter/store"
	"ticketdesk/internal/cache"
	"ticketdesk/internal/domain/user"
	apperrors "ticketdesk/pkg/errors"
)

// Manager owns the active-user pointer. Logging in hydrates the user's
// partition and persists a durable session record so a later process start
// can restore the same identity. Logging out clears the pointer and the
// record; ticket partitions are never touched by session changes.
type Manager struct {
	store      store.SessionStore
	partitions *cache.Partitions
	log        *zap.Logger

	mu      sync.RWMutex
	current *user.User
}

// NewManager creates a session manager with no active user.
func NewManager(s store.SessionStore, partitions *cache.Partitions, log *zap.Logger) *Manager {
	return &Manager{store: s, partitions: partitions, log: log}
}

// Restore loads the durable session record and, when present, reinstates that
// user as active. A missing or unreadable record degrades to "not logged in"
// rather than failing startup.
func (m *Manager) Restore(ctx context.Context) {
	u, err := m.store.LoadSession(ctx)
	if err != nil {
		m.log.Warn("session record unreadable, starting without a session", zap.Error(err))
		return
	}
	if u == nil {
		return
	}

	if err := m.partitions.EnsureHydrated(ctx, u.ID); err != nil {
		// Operations retry hydration themselves; restoring the identity is
		// still correct.
		m.log.Warn("failed to hydrate partition during restore", zap.String("user_id", u.ID), zap.Error(err))
	}

	m.mu.Lock()
	m.current = u
	m.mu.Unlock()
	m.log.Info("session restored", zap.String("user_id", u.ID), zap.String("email", u.Email))
}

// Login makes u the active user, hydrates their partition and persists the
// durable session record.
func (m *Manager) Login(ctx context.Context, u *user.User) error {
	if u == nil || u.ID == "" {
		return errors.New("login requires a user with an id")
	}

	if err := m.partitions.EnsureHydrated(ctx, u.ID); err != nil {
		return err
	}
	if err := m.store.SaveSession(ctx, u); err != nil {
		return err
	}

	copied := *u
	m.mu.Lock()
	m.current = &copied
	m.mu.Unlock()

	m.log.Info("user logged in", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return nil
}

// Logout clears the active-user pointer and removes the durable session
// record. Idempotent; safe to call with no active session.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.store.ClearSession(ctx); err != nil {
		return err
	}
	m.log.Info("user logged out")
	return nil
}

// Current returns a copy of the active user, or ErrNoActiveSession.
func (m *Manager) Current() (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, apperrors.ErrNoActiveSession
	}
	copied := *m.current
	return &copied, nil
}
