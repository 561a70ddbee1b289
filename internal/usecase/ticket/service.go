package ticket

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "ticketdesk/internal/domain/ticket"
	"ticketdesk/internal/domain/user"
	apperrors "ticketdesk/pkg/errors"
	"ticketdesk/pkg/latency"
)

// SessionSource resolves the currently authenticated user.
type SessionSource interface {
	Current() (*user.User, error)
}

// Partitions is the cached partition store the service reads and mutates.
type Partitions interface {
	EnsureHydrated(ctx context.Context, userID string) error
	Snapshot(userID string) []domain.Ticket
	Update(ctx context.Context, userID string, mutate func(tickets []domain.Ticket) ([]domain.Ticket, error)) error
}

// Service implements the ticket operations. Every operation resolves the
// partition key from the session exactly once at entry and never re-resolves
// it; a logout/login during the latency window therefore affects only later
// operations, never the one in flight.
type Service struct {
	sessions   SessionSource
	partitions Partitions
	delay      latency.Strategy
	log        *zap.Logger
	validate   *validator.Validate
}

// New creates a ticket service.
func New(sessions SessionSource, partitions Partitions, delay latency.Strategy, log *zap.Logger) *Service {
	return &Service{
		sessions:   sessions,
		partitions: partitions,
		delay:      delay,
		log:        log,
		validate:   validator.New(),
	}
}

// List returns a snapshot of the active user's partition in insertion order.
func (s *Service) List(ctx context.Context) ([]domain.Ticket, error) {
	u, err := s.sessions.Current()
	if err != nil {
		return nil, err
	}
	s.delay.Wait(ctx)

	if err := s.partitions.EnsureHydrated(ctx, u.ID); err != nil {
		return nil, err
	}
	return s.partitions.Snapshot(u.ID), nil
}

// Create validates the draft, assigns a fresh id, stamps the active user's
// ownership and appends the ticket to their partition. A failed validation
// performs no mutation.
func (s *Service) Create(ctx context.Context, in CreateRequest) (*domain.Ticket, error) {
	u, err := s.sessions.Current()
	if err != nil {
		return nil, err
	}
	s.delay.Wait(ctx)

	in, err = validateCreate(s.validate, in)
	if err != nil {
		s.log.Warn("ticket draft rejected", zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}

	if err := s.partitions.EnsureHydrated(ctx, u.ID); err != nil {
		return nil, err
	}

	created := domain.Ticket{
		ID:          uuid.NewString(),
		UserID:      u.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
	}
	err = s.partitions.Update(ctx, u.ID, func(tickets []domain.Ticket) ([]domain.Ticket, error) {
		return append(tickets, created), nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket created", zap.String("user_id", u.ID), zap.String("ticket_id", created.ID))
	copied := created
	return &copied, nil
}

// Update merges the present fields of in into the ticket with the given id.
// A ticket that does not exist in the active user's partition, including one
// owned by a different user, yields NotFound.
func (s *Service) Update(ctx context.Context, id string, in UpdateRequest) (*domain.Ticket, error) {
	u, err := s.sessions.Current()
	if err != nil {
		return nil, err
	}
	s.delay.Wait(ctx)

	in, err = validateUpdate(s.validate, in)
	if err != nil {
		s.log.Warn("ticket update rejected", zap.String("user_id", u.ID), zap.String("ticket_id", id), zap.Error(err))
		return nil, err
	}

	if err := s.partitions.EnsureHydrated(ctx, u.ID); err != nil {
		return nil, err
	}

	var updated domain.Ticket
	err = s.partitions.Update(ctx, u.ID, func(tickets []domain.Ticket) ([]domain.Ticket, error) {
		i := indexOwned(tickets, id, u.ID)
		if i < 0 {
			return nil, apperrors.NewNotFound("ticket", id)
		}
		if in.Title != nil {
			tickets[i].Title = *in.Title
		}
		if in.Description != nil {
			tickets[i].Description = *in.Description
		}
		if in.Status != nil {
			tickets[i].Status = *in.Status
		}
		if in.Priority != nil {
			tickets[i].Priority = *in.Priority
		}
		updated = tickets[i]
		return tickets, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket updated", zap.String("user_id", u.ID), zap.String("ticket_id", id))
	return &updated, nil
}

// Delete removes the ticket with the given id from the active user's
// partition, with the same ownership-checked lookup as Update.
func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.sessions.Current()
	if err != nil {
		return err
	}
	s.delay.Wait(ctx)

	if err := s.partitions.EnsureHydrated(ctx, u.ID); err != nil {
		return err
	}

	err = s.partitions.Update(ctx, u.ID, func(tickets []domain.Ticket) ([]domain.Ticket, error) {
		i := indexOwned(tickets, id, u.ID)
		if i < 0 {
			return nil, apperrors.NewNotFound("ticket", id)
		}
		return append(tickets[:i], tickets[i+1:]...), nil
	})
	if err != nil {
		return err
	}

	s.log.Info("ticket deleted", zap.String("user_id", u.ID), zap.String("ticket_id", id))
	return nil
}

// Stats counts the active user's tickets by status.
func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	u, err := s.sessions.Current()
	if err != nil {
		return nil, err
	}
	s.delay.Wait(ctx)

	if err := s.partitions.EnsureHydrated(ctx, u.ID); err != nil {
		return nil, err
	}

	stats := &domain.Stats{}
	for _, t := range s.partitions.Snapshot(u.ID) {
		stats.Total++
		switch t.Status {
		case domain.StatusOpen:
			stats.Open++
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusClosed:
			stats.Closed++
		}
	}
	return stats, nil
}

// indexOwned locates a ticket by id and owner. Wrong id and wrong owner are
// indistinguishable to callers.
func indexOwned(tickets []domain.Ticket, id, userID string) int {
	for i := range tickets {
		if tickets[i].ID == id && tickets[i].UserID == userID {
			return i
		}
	}
	return -1
}
