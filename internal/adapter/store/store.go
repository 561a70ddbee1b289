// Package store defines the two durable key-value contracts the core depends
// on: whole-partition ticket persistence and the single-value session record.
package store

import (
	"context"
	"fmt"

	"ticketdesk/internal/domain/ticket"
	"ticketdesk/internal/domain/user"
)

// SessionKey is the durable key holding the last-logged-in user. It is
// deliberately outside the tickets_ namespace.
const SessionKey = "ticketdesk_session"

// PartitionKey returns the durable key for a user's ticket partition.
func PartitionKey(userID string) string {
	return "tickets_" + userID
}

// PartitionAdapter persists whole ticket partitions keyed by user id.
type PartitionAdapter interface {
	// Load returns the stored partition for userID. An absent partition is
	// the new-user case and yields an empty sequence, not an error.
	Load(ctx context.Context, userID string) ([]ticket.Ticket, error)

	// Save overwrites the entire partition for userID. The write is atomic
	// from the caller's perspective; partial writes are never observable.
	Save(ctx context.Context, userID string, tickets []ticket.Ticket) error
}

// SessionStore persists the single durable session record.
type SessionStore interface {
	// LoadSession returns the recorded user, or (nil, nil) when absent.
	LoadSession(ctx context.Context) (*user.User, error)

	// SaveSession records u as the active user.
	SaveSession(ctx context.Context, u *user.User) error

	// ClearSession removes the session record. Ticket partitions are
	// untouched.
	ClearSession(ctx context.Context) error
}

// Store combines both durable contracts over one substrate.
type Store interface {
	PartitionAdapter
	SessionStore
}

// VerifyOwnership checks that every ticket's UserID matches the partition key
// it is stored under. Adapters enforce this on every read and write.
func VerifyOwnership(userID string, tickets []ticket.Ticket) error {
	for _, t := range tickets {
		if t.UserID != userID {
			return fmt.Errorf("ticket %s owned by %q cannot live in partition %q", t.ID, t.UserID, userID)
		}
	}
	return nil
}
