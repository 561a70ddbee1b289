package ticket

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	redisstore "ticketdesk/internal/adapter/store/redis"
	"ticketdesk/internal/cache"
	domain "ticketdesk/internal/domain/ticket"
	"ticketdesk/internal/domain/user"
	"ticketdesk/internal/session"
	apperrors "ticketdesk/pkg/errors"
	"ticketdesk/pkg/latency"
)

// env wires a full stack (service, session manager, partition cache) over a
// miniredis-backed durable store with zero latency.
type env struct {
	svc        *Service
	sessions   *session.Manager
	partitions *cache.Partitions
	store      *redisstore.Store
	client     *goredis.Client
}

func setupEnv(t *testing.T) *env {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return buildStack(t, client)
}

// buildStack assembles a fresh in-memory layer over an existing durable
// substrate, which doubles as a process restart in tests.
func buildStack(t *testing.T, client *goredis.Client) *env {
	t.Helper()

	s := redisstore.New(client, zaptest.NewLogger(t))
	partitions := cache.New(s, zaptest.NewLogger(t))
	sessions := session.NewManager(s, partitions, zaptest.NewLogger(t))
	svc := New(sessions, partitions, latency.None(), zaptest.NewLogger(t))
	return &env{svc: svc, sessions: sessions, partitions: partitions, store: s, client: client}
}

func (e *env) loginAs(t *testing.T, id string) {
	t.Helper()
	u := &user.User{ID: id, Name: "User " + id, Email: id + "@example.com"}
	require.NoError(t, e.sessions.Login(context.Background(), u))
}

func validDraft() CreateRequest {
	return CreateRequest{
		Title:       "Printer broken",
		Description: "",
		Status:      domain.StatusOpen,
		Priority:    domain.PriorityHigh,
	}
}

// ==================== SESSION REQUIREMENT ====================

func TestOperations_RequireActiveSession(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	_, err := e.svc.List(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	_, err = e.svc.Create(ctx, validDraft())
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	_, err = e.svc.Update(ctx, "t1", UpdateRequest{})
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	err = e.svc.Delete(ctx, "t1")
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	_, err = e.svc.Stats(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)
}

// ==================== CREATE / LIST ====================

func TestCreate_RoundTrip(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	created, err := e.svc.Create(ctx, validDraft())
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, "Printer broken", created.Title)
	assert.Equal(t, domain.StatusOpen, created.Status)
	assert.Equal(t, domain.PriorityHigh, created.Priority)

	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, *created, tickets[0])

	stats, err := e.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.Stats{Total: 1, Open: 1}, stats)
}

func TestCreate_AssignsDistinctIDs(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	seen := map[string]bool{}
	for i := 0; i < 25; i++ {
		created, err := e.svc.Create(ctx, CreateRequest{
			Title:    fmt.Sprintf("ticket %d", i),
			Status:   domain.StatusOpen,
			Priority: domain.PriorityLow,
		})
		require.NoError(t, err)
		assert.False(t, seen[created.ID], "duplicate id %s", created.ID)
		seen[created.ID] = true
	}

	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tickets, 25)
}

func TestCreate_TrimsTitleAndDescription(t *testing.T) {
	e := setupEnv(t)
	e.loginAs(t, "u1")

	created, err := e.svc.Create(context.Background(), CreateRequest{
		Title:       "  spaced out  ",
		Description: " d ",
		Status:      domain.StatusOpen,
		Priority:    domain.PriorityLow,
	})
	require.NoError(t, err)
	assert.Equal(t, "spaced out", created.Title)
	assert.Equal(t, "d", created.Description)
}

func TestCreate_ValidationFailurePerformsNoMutation(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	tests := []struct {
		name  string
		draft CreateRequest
		field string
	}{
		{"missing title", CreateRequest{Status: domain.StatusOpen, Priority: domain.PriorityLow}, "title"},
		{"blank title", CreateRequest{Title: "   ", Status: domain.StatusOpen, Priority: domain.PriorityLow}, "title"},
		{"bad status", CreateRequest{Title: "x", Status: "resolved", Priority: domain.PriorityLow}, "status"},
		{"missing status", CreateRequest{Title: "x", Priority: domain.PriorityLow}, "status"},
		{"bad priority", CreateRequest{Title: "x", Status: domain.StatusOpen, Priority: "urgent"}, "priority"},
		{"overlong title", CreateRequest{Title: strings.Repeat("a", 201), Status: domain.StatusOpen, Priority: domain.PriorityLow}, "title"},
		{"overlong description", CreateRequest{Title: "x", Description: strings.Repeat("a", 2001), Status: domain.StatusOpen, Priority: domain.PriorityLow}, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := e.svc.Create(ctx, tt.draft)
			assert.Nil(t, created)

			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}

	// Zero partial writes: neither cache nor durable storage changed
	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	stored, err := e.store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestList_ReturnsSnapshotCopy(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	_, err := e.svc.Create(ctx, validDraft())
	require.NoError(t, err)

	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	tickets[0].Title = "mutated"

	again, err := e.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Printer broken", again[0].Title)
}

// ==================== UPDATE ====================

func TestUpdate_MergesOnlyPresentFields(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	created, err := e.svc.Create(ctx, CreateRequest{
		Title:       "Printer broken",
		Description: "third floor",
		Status:      domain.StatusOpen,
		Priority:    domain.PriorityHigh,
	})
	require.NoError(t, err)

	closed := domain.StatusClosed
	updated, err := e.svc.Update(ctx, created.ID, UpdateRequest{Status: &closed})
	require.NoError(t, err)

	// Only status changed; everything else keeps its pre-update value
	assert.Equal(t, domain.StatusClosed, updated.Status)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.UserID, updated.UserID)
	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, created.Priority, updated.Priority)
}

func TestUpdate_UnknownID(t *testing.T) {
	e := setupEnv(t)
	e.loginAs(t, "u1")

	title := "new title"
	updated, err := e.svc.Update(context.Background(), "missing", UpdateRequest{Title: &title})
	assert.Nil(t, updated)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdate_RejectsBlankTitle(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	created, err := e.svc.Create(ctx, validDraft())
	require.NoError(t, err)

	blank := "   "
	updated, err := e.svc.Update(ctx, created.ID, UpdateRequest{Title: &blank})
	assert.Nil(t, updated)

	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")

	// Original title untouched
	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Printer broken", tickets[0].Title)
}

func TestUpdate_RejectsBadEnum(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	created, err := e.svc.Create(ctx, validDraft())
	require.NoError(t, err)

	bad := domain.Status("resolved")
	_, err = e.svc.Update(ctx, created.ID, UpdateRequest{Status: &bad})
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "status")
}

func TestUpdate_RejectsOverlongFields(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	created, err := e.svc.Create(ctx, validDraft())
	require.NoError(t, err)

	longTitle := strings.Repeat("a", 201)
	_, err = e.svc.Update(ctx, created.ID, UpdateRequest{Title: &longTitle})
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")

	longDescription := strings.Repeat("a", 2001)
	_, err = e.svc.Update(ctx, created.ID, UpdateRequest{Description: &longDescription})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "description")

	// The stored ticket is untouched by the rejected updates
	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, *created, tickets[0])
}

// ==================== DELETE ====================

func TestDelete_RemovesTicket(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	created, err := e.svc.Create(ctx, validDraft())
	require.NoError(t, err)

	require.NoError(t, e.svc.Delete(ctx, created.ID))

	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	// The id is gone for good
	closed := domain.StatusClosed
	_, err = e.svc.Update(ctx, created.ID, UpdateRequest{Status: &closed})
	assert.True(t, apperrors.IsNotFound(err))
	err = e.svc.Delete(ctx, created.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDelete_PreservesOrderOfRemaining(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	var ids []string
	for i := 0; i < 3; i++ {
		created, err := e.svc.Create(ctx, CreateRequest{
			Title:    fmt.Sprintf("ticket %d", i),
			Status:   domain.StatusOpen,
			Priority: domain.PriorityLow,
		})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	require.NoError(t, e.svc.Delete(ctx, ids[1]))

	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, ids[0], tickets[0].ID)
	assert.Equal(t, ids[2], tickets[1].ID)
}

// ==================== OWNERSHIP & ISOLATION ====================

func TestOwnership_ForeignTicketYieldsNotFound(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	e.loginAs(t, "u1")
	created, err := e.svc.Create(ctx, validDraft())
	require.NoError(t, err)

	require.NoError(t, e.sessions.Logout(ctx))
	e.loginAs(t, "u2")

	// The id exists, but in another user's partition
	closed := domain.StatusClosed
	_, err = e.svc.Update(ctx, created.ID, UpdateRequest{Status: &closed})
	assert.True(t, apperrors.IsNotFound(err))

	err = e.svc.Delete(ctx, created.ID)
	assert.True(t, apperrors.IsNotFound(err))

	// And it is still intact for its owner
	require.NoError(t, e.sessions.Logout(ctx))
	e.loginAs(t, "u1")
	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.StatusOpen, tickets[0].Status)
}

func TestIsolation_AcrossLogoutLoginCycles(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	e.loginAs(t, "u1")
	_, err := e.svc.Create(ctx, validDraft())
	require.NoError(t, err)

	require.NoError(t, e.sessions.Logout(ctx))
	e.loginAs(t, "u2")

	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	_, err = e.svc.Create(ctx, CreateRequest{
		Title:    "u2 ticket",
		Status:   domain.StatusClosed,
		Priority: domain.PriorityLow,
	})
	require.NoError(t, err)

	require.NoError(t, e.sessions.Logout(ctx))
	e.loginAs(t, "u1")

	tickets, err = e.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "Printer broken", tickets[0].Title)
	assert.Equal(t, "u1", tickets[0].UserID)
}

// gatedStrategy blocks inside the latency window until released, so a test
// can change the session while an operation is in flight.
type gatedStrategy struct {
	entered chan struct{}
	release chan struct{}
}

func newGatedStrategy() *gatedStrategy {
	return &gatedStrategy{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStrategy) Wait(_ context.Context) {
	g.entered <- struct{}{}
	<-g.release
}

func TestCreate_KeepsSessionCapturedAtEntry(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	gate := newGatedStrategy()
	gated := New(e.sessions, e.partitions, gate, zaptest.NewLogger(t))

	type result struct {
		created *domain.Ticket
		err     error
	}
	done := make(chan result, 1)
	go func() {
		created, err := gated.Create(ctx, validDraft())
		done <- result{created, err}
	}()

	// The operation resolved its user before entering the latency window;
	// switching sessions now must not redirect the in-flight write.
	<-gate.entered
	require.NoError(t, e.sessions.Logout(ctx))
	e.loginAs(t, "u2")
	close(gate.release)

	res := <-done
	require.NoError(t, res.err)
	require.NotNil(t, res.created)
	assert.Equal(t, "u1", res.created.UserID)

	// u2's partition stayed empty
	tickets, err := e.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	require.NoError(t, e.sessions.Logout(ctx))
	e.loginAs(t, "u1")
	tickets, err = e.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, res.created.ID, tickets[0].ID)
}

// ==================== STATS ====================

func TestStats_IdentityHoldsAcrossMutations(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	drafts := []CreateRequest{
		{Title: "a", Status: domain.StatusOpen, Priority: domain.PriorityLow},
		{Title: "b", Status: domain.StatusOpen, Priority: domain.PriorityMedium},
		{Title: "c", Status: domain.StatusInProgress, Priority: domain.PriorityHigh},
		{Title: "d", Status: domain.StatusClosed, Priority: domain.PriorityLow},
	}
	var ids []string
	for _, d := range drafts {
		created, err := e.svc.Create(ctx, d)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	checkIdentity := func() *domain.Stats {
		t.Helper()
		stats, err := e.svc.Stats(ctx)
		require.NoError(t, err)
		tickets, err := e.svc.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, stats.Total, stats.Open+stats.InProgress+stats.Closed)
		assert.Equal(t, stats.Total, len(tickets))
		return stats
	}

	stats := checkIdentity()
	assert.Equal(t, &domain.Stats{Total: 4, Open: 2, InProgress: 1, Closed: 1}, stats)

	closed := domain.StatusClosed
	_, err := e.svc.Update(ctx, ids[0], UpdateRequest{Status: &closed})
	require.NoError(t, err)
	stats = checkIdentity()
	assert.Equal(t, &domain.Stats{Total: 4, Open: 1, InProgress: 1, Closed: 2}, stats)

	require.NoError(t, e.svc.Delete(ctx, ids[3]))
	stats = checkIdentity()
	assert.Equal(t, &domain.Stats{Total: 3, Open: 1, InProgress: 1, Closed: 1}, stats)
}

// ==================== DURABILITY ====================

func TestPartitionSurvivesRestart(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	e.loginAs(t, "u1")

	created, err := e.svc.Create(ctx, validDraft())
	require.NoError(t, err)

	// Same durable substrate, fresh cache and session layer
	restarted := buildStack(t, e.client)
	restarted.sessions.Restore(ctx)

	current, err := restarted.sessions.Current()
	require.NoError(t, err)
	assert.Equal(t, "u1", current.ID)

	tickets, err := restarted.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, *created, tickets[0])
}
