// Package redis implements the durable key-value substrate on Redis, for
// deployments that keep the store off the local filesystem.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ticketdesk/internal/adapter/store"
	"ticketdesk/internal/domain/ticket"
	"ticketdesk/internal/domain/user"
	apperrors "ticketdesk/pkg/errors"
)

// Store implements store.Store on a Redis client. Records never expire; Redis
// is used here as a durable substrate, not a cache.
type Store struct {
	client *redis.Client
	log    *zap.Logger
}

// New creates a Redis-backed store.
func New(client *redis.Client, log *zap.Logger) *Store {
	return &Store{client: client, log: log}
}

// Load returns the stored partition for userID, or an empty sequence when
// nothing has been saved yet.
func (s *Store) Load(ctx context.Context, userID string) ([]ticket.Ticket, error) {
	key := store.PartitionKey(userID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		// Absent partition is the new-user case, not an error
		s.log.Debug("partition not stored yet", zap.String("user_id", userID))
		return []ticket.Ticket{}, nil
	}
	if err != nil {
		s.log.Error("failed to load partition", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to load partition %s", key), err)
	}

	var tickets []ticket.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		s.log.Error("failed to decode partition", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to decode partition %s", key), err)
	}
	if err := store.VerifyOwnership(userID, tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []ticket.Ticket{}
	}
	return tickets, nil
}

// Save overwrites the entire partition for userID.
func (s *Store) Save(ctx context.Context, userID string, tickets []ticket.Ticket) error {
	if err := store.VerifyOwnership(userID, tickets); err != nil {
		return err
	}

	data, err := json.Marshal(ticket.Clone(tickets))
	if err != nil {
		return apperrors.NewInternalError("failed to encode partition", err)
	}

	key := store.PartitionKey(userID)
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		s.log.Error("failed to save partition", zap.String("user_id", userID), zap.Error(err))
		return apperrors.NewInternalError(fmt.Sprintf("failed to save partition %s", key), err)
	}

	s.log.Debug("partition saved", zap.String("user_id", userID), zap.Int("tickets", len(tickets)))
	return nil
}

// LoadSession returns the recorded user, or nil when no session is stored.
func (s *Store) LoadSession(ctx context.Context) (*user.User, error) {
	data, err := s.client.Get(ctx, store.SessionKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		s.log.Error("failed to load session record", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to load session record", err)
	}

	var u user.User
	if err := json.Unmarshal(data, &u); err != nil {
		s.log.Error("failed to decode session record", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to decode session record", err)
	}
	return &u, nil
}

// SaveSession records u as the active user.
func (s *Store) SaveSession(ctx context.Context, u *user.User) error {
	if u == nil {
		return errors.New("cannot save nil session user")
	}

	data, err := json.Marshal(u)
	if err != nil {
		return apperrors.NewInternalError("failed to encode session record", err)
	}

	if err := s.client.Set(ctx, store.SessionKey, data, 0).Err(); err != nil {
		s.log.Error("failed to save session record", zap.String("user_id", u.ID), zap.Error(err))
		return apperrors.NewInternalError("failed to save session record", err)
	}
	return nil
}

// ClearSession removes the session record.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.client.Del(ctx, store.SessionKey).Err(); err != nil {
		s.log.Error("failed to clear session record", zap.Error(err))
		return apperrors.NewInternalError("failed to clear session record", err)
	}
	return nil
}
