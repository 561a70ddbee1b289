// Package cache holds the in-memory partition store: one lazily hydrated
// ticket sequence per user, shared by every operation in the process.
package cache

import (
	"context"
	"fmt"

	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ticketdesk/internal/adapter/store"
	"ticketdesk/internal/domain/ticket"
)

// Partitions caches ticket partitions keyed by user id. Hydration is the only
// path that reads durable storage; after the first hydration the cache is
// authoritative for the rest of the process lifetime. Every mutation is
// written through to the adapter before it is visible to other operations.
type Partitions struct {
	adapter store.PartitionAdapter
	log     *zap.Logger
	group   singleflight.Group

	mu         sync.Mutex
	partitions map[string][]ticket.Ticket
	hydrated   map[string]bool
}

// New creates an empty partition cache over the given adapter.
func New(adapter store.PartitionAdapter, log *zap.Logger) *Partitions {
	return &Partitions{
		adapter:    adapter,
		log:        log,
		partitions: map[string][]ticket.Ticket{},
		hydrated:   map[string]bool{},
	}
}

// EnsureHydrated loads the partition for userID from durable storage if it is
// not cached yet. Idempotent; concurrent calls for the same user collapse
// into one load.
func (p *Partitions) EnsureHydrated(ctx context.Context, userID string) error {
	p.mu.Lock()
	done := p.hydrated[userID]
	p.mu.Unlock()
	if done {
		return nil
	}

	_, err, _ := p.group.Do(userID, func() (any, error) {
		p.mu.Lock()
		done := p.hydrated[userID]
		p.mu.Unlock()
		if done {
			return nil, nil
		}

		tickets, err := p.adapter.Load(ctx, userID)
		if err != nil {
			p.log.Error("failed to hydrate partition", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}

		p.mu.Lock()
		p.partitions[userID] = tickets
		p.hydrated[userID] = true
		p.mu.Unlock()

		p.log.Debug("partition hydrated", zap.String("user_id", userID), zap.Int("tickets", len(tickets)))
		return nil, nil
	})
	return err
}

// Snapshot returns a defensive copy of the cached partition. An unhydrated
// partition snapshots as empty.
func (p *Partitions) Snapshot(userID string) []ticket.Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ticket.Clone(p.partitions[userID])
}

// Update applies mutate to a copy of the cached partition and, on success,
// installs the result and writes it through to durable storage. The read,
// mutation and write-through happen atomically with respect to other
// operations on the same cache; a failed write-through rolls the cache back
// so cache and durable copy never diverge.
func (p *Partitions) Update(ctx context.Context, userID string, mutate func(tickets []ticket.Ticket) ([]ticket.Ticket, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hydrated[userID] {
		return fmt.Errorf("partition %q not hydrated", userID)
	}

	previous := p.partitions[userID]
	next, err := mutate(ticket.Clone(previous))
	if err != nil {
		return err
	}
	if err := store.VerifyOwnership(userID, next); err != nil {
		return err
	}

	p.partitions[userID] = next
	if err := p.adapter.Save(ctx, userID, next); err != nil {
		p.partitions[userID] = previous
		p.log.Error("write-through failed, cache rolled back", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}
