package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"alumni-server/models"
	"alumni-server/utils/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, store UserStore, id, name string) {
	t.Helper()
	err := store.Create(context.Background(), &models.User{
		ID:             id,
		Name:           name,
		Email:          id + "@x.com",
		GraduationYear: 2015,
	})
	require.NoError(t, err)
}

func mustFind(t *testing.T, store UserStore, id string) *models.User {
	t.Helper()
	u, err := store.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func newTestConnectionService(t *testing.T) (*ConnectionService, *MemoryUserStore) {
	t.Helper()
	store := NewMemoryUserStore()
	seedUser(t, store, "a", "Anna")
	seedUser(t, store, "b", "Boris")
	return NewConnectionService(store, testLogger()), store
}

func TestSendRequest_AddsPending(t *testing.T) {
	svc, store := newTestConnectionService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendRequest(ctx, "a", "b"))

	b := mustFind(t, store, "b")
	assert.Equal(t, []string{"a"}, b.PendingConnections)
	assert.Empty(t, b.Connections)
	a := mustFind(t, store, "a")
	assert.Empty(t, a.PendingConnections, "requests are directional")
}

func TestSendRequest_TwiceIsDuplicate(t *testing.T) {
	svc, store := newTestConnectionService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendRequest(ctx, "a", "b"))
	after := mustFind(t, store, "b")

	err := svc.SendRequest(ctx, "a", "b")
	require.ErrorIs(t, err, errors.ErrDuplicateRequest)
	assert.Equal(t, after, mustFind(t, store, "b"))
}

func TestSendRequest_AlreadyConnected(t *testing.T) {
	svc, _ := newTestConnectionService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendRequest(ctx, "a", "b"))
	require.NoError(t, svc.AcceptRequest(ctx, "b", "a"))

	require.ErrorIs(t, svc.SendRequest(ctx, "a", "b"), errors.ErrDuplicateRequest)
	require.ErrorIs(t, svc.SendRequest(ctx, "b", "a"), errors.ErrDuplicateRequest)
}

func TestSendRequest_Invalid(t *testing.T) {
	svc, _ := newTestConnectionService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SendRequest(ctx, "a", "a"), errors.ErrValidation)
	assert.ErrorIs(t, svc.SendRequest(ctx, "", "b"), errors.ErrValidation)
	assert.ErrorIs(t, svc.SendRequest(ctx, "a", "ghost"), errors.ErrNotFound)
	assert.ErrorIs(t, svc.SendRequest(ctx, "ghost", "a"), errors.ErrNotFound)
}

func TestAcceptRequest_WithoutSend(t *testing.T) {
	svc, store := newTestConnectionService(t)

	err := svc.AcceptRequest(context.Background(), "b", "a")
	require.ErrorIs(t, err, errors.ErrNoSuchRequest)
	assert.Empty(t, mustFind(t, store, "a").Connections)
	assert.Empty(t, mustFind(t, store, "b").Connections)
}

func TestAcceptRequest_WrongDirection(t *testing.T) {
	svc, _ := newTestConnectionService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendRequest(ctx, "a", "b"))
	// Only the recipient can accept.
	require.ErrorIs(t, svc.AcceptRequest(ctx, "a", "b"), errors.ErrNoSuchRequest)
}

func TestAcceptRequest_Connects(t *testing.T) {
	svc, store := newTestConnectionService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendRequest(ctx, "a", "b"))
	require.NoError(t, svc.AcceptRequest(ctx, "b", "a"))

	a := mustFind(t, store, "a")
	b := mustFind(t, store, "b")
	assert.Equal(t, []string{"b"}, a.Connections)
	assert.Equal(t, []string{"a"}, b.Connections)
	assert.Empty(t, b.PendingConnections)

	require.ErrorIs(t, svc.AcceptRequest(ctx, "b", "a"), errors.ErrNoSuchRequest)
}

func TestAcceptRequest_ClearsCrossedRequest(t *testing.T) {
	svc, store := newTestConnectionService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendRequest(ctx, "a", "b"))
	require.NoError(t, svc.SendRequest(ctx, "b", "a"))
	require.NoError(t, svc.AcceptRequest(ctx, "b", "a"))

	a := mustFind(t, store, "a")
	b := mustFind(t, store, "b")
	assert.Empty(t, a.PendingConnections)
	assert.Empty(t, b.PendingConnections)
	assert.Equal(t, []string{"b"}, a.Connections)
	assert.Equal(t, []string{"a"}, b.Connections)
}

func TestAcceptRequest_Invalid(t *testing.T) {
	svc, _ := newTestConnectionService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AcceptRequest(ctx, "a", "a"), errors.ErrValidation)
	assert.ErrorIs(t, svc.AcceptRequest(ctx, "a", "ghost"), errors.ErrNotFound)
}

func TestConnectionWorkflow_Concurrent(t *testing.T) {
	svc, store := newTestConnectionService(t)
	ctx := context.Background()

	var sent, accepted atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.SendRequest(ctx, "a", "b") == nil {
				sent.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, sent.Load())

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.AcceptRequest(ctx, "b", "a") == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, accepted.Load())
	assert.Equal(t, []string{"b"}, mustFind(t, store, "a").Connections)
	assert.Equal(t, []string{"a"}, mustFind(t, store, "b").Connections)
}

type failingStore struct {
	*MemoryUserStore
}

func (failingStore) AcceptPending(context.Context, string, string) error {
	return fmt.Errorf("connection refused")
}

func TestAcceptRequest_StoreFailure(t *testing.T) {
	store := NewMemoryUserStore()
	seedUser(t, store, "a", "Anna")
	seedUser(t, store, "b", "Boris")
	svc := NewConnectionService(failingStore{store}, testLogger())

	err := svc.AcceptRequest(context.Background(), "b", "a")
	require.ErrorIs(t, err, errors.ErrStore)
}
