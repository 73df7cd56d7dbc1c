package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neosocial/internal/models"
	"neosocial/internal/storage"
)

func friendIDs(t *testing.T, svc FriendshipService, userID string) []string {
	t.Helper()
	friends, err := svc.ListFriends(context.Background(), userID)
	require.NoError(t, err)
	ids := []string{}
	for _, f := range friends {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestFriendship_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "a", "b")

	require.NoError(t, e.friends.SendRequest(ctx, "a", "b"))

	incoming, err := e.friends.ListRequests(ctx, "b")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "a", incoming[0].From.ID)

	sent, err := e.friends.ListSentRequests(ctx, "a")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "b", sent[0].To.ID)

	require.NoError(t, e.friends.AcceptRequest(ctx, "b", "a"))
	assert.Equal(t, []string{"b"}, friendIDs(t, e.friends, "a"))
	assert.Equal(t, []string{"a"}, friendIDs(t, e.friends, "b"))

	// no dangling requests in either direction
	require.NoError(t, e.store.Read(ctx, func(tx storage.GraphTx) error {
		ab, _ := tx.HasRequest(ctx, "a", "b")
		ba, _ := tx.HasRequest(ctx, "b", "a")
		assert.False(t, ab)
		assert.False(t, ba)
		return nil
	}))

	require.NoError(t, e.friends.RemoveFriend(ctx, "a", "b"))
	assert.Empty(t, friendIDs(t, e.friends, "a"))
	assert.Empty(t, friendIDs(t, e.friends, "b"))

	violations, err := e.friends.CheckSymmetry(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestFriendship_SendRequestErrors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "a", "b", "c")

	assert.ErrorIs(t, e.friends.SendRequest(ctx, "a", "a"), ErrSelfRequest)
	assert.ErrorIs(t, e.friends.SendRequest(ctx, "a", "ghost"), ErrUserNotFound)

	require.NoError(t, e.friends.SendRequest(ctx, "a", "b"))
	assert.ErrorIs(t, e.friends.SendRequest(ctx, "a", "b"), ErrAlreadyRequestedOrFriends)
	assert.ErrorIs(t, e.friends.SendRequest(ctx, "b", "a"), ErrAlreadyRequestedOrFriends)

	e.befriend(t, "a", "c")
	assert.ErrorIs(t, e.friends.SendRequest(ctx, "c", "a"), ErrAlreadyRequestedOrFriends)
	assert.Equal(t, KindConflict, KindOf(e.friends.SendRequest(ctx, "a", "c")))
}

func TestFriendship_AcceptTwiceFails(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "a", "b")

	require.NoError(t, e.friends.SendRequest(ctx, "a", "b"))
	require.NoError(t, e.friends.AcceptRequest(ctx, "b", "a"))
	assert.ErrorIs(t, e.friends.AcceptRequest(ctx, "b", "a"), ErrRequestNotFound)

	// the sender cannot accept their own request
	require.NoError(t, e.friends.RemoveFriend(ctx, "a", "b"))
	require.NoError(t, e.friends.SendRequest(ctx, "a", "b"))
	assert.ErrorIs(t, e.friends.AcceptRequest(ctx, "a", "b"), ErrRequestNotFound)
}

func TestFriendship_RejectAndCancel(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "a", "b")

	require.NoError(t, e.friends.SendRequest(ctx, "a", "b"))
	require.NoError(t, e.friends.RejectRequest(ctx, "b", "a"))
	assert.ErrorIs(t, e.friends.RejectRequest(ctx, "b", "a"), ErrRequestNotFound)

	require.NoError(t, e.friends.SendRequest(ctx, "a", "b"))
	require.NoError(t, e.friends.CancelRequest(ctx, "a", "b"))
	assert.ErrorIs(t, e.friends.CancelRequest(ctx, "a", "b"), ErrRequestNotFound)

	assert.Empty(t, friendIDs(t, e.friends, "a"))
}

func TestFriendship_RemoveNotFriends(t *testing.T) {
	e := newEnv(t, "a", "b")
	err := e.friends.RemoveFriend(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrNotFriends)
	assert.Equal(t, "not_friends", CodeOf(err))
}

func TestFriendship_RemoveAsymmetricIsConsistencyError(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "a", "b")
	e.befriend(t, "a", "b")

	store := wrappedStore{GraphStore: e.store, wrap: func(tx storage.GraphTx) storage.GraphTx { return halfFriendshipTx{tx} }}
	svc := NewFriendshipService(store, nil, nil, zap.NewNop())

	err := svc.RemoveFriend(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Equal(t, KindConsistency, KindOf(err))
}

func TestFriendship_Status(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "a", "b", "c")

	status, err := e.friends.FriendStatus(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, models.FriendStatusNone, status)

	require.NoError(t, e.friends.SendRequest(ctx, "a", "b"))
	status, _ = e.friends.FriendStatus(ctx, "a", "b")
	assert.Equal(t, models.FriendStatusRequestSent, status)
	status, _ = e.friends.FriendStatus(ctx, "b", "a")
	assert.Equal(t, models.FriendStatusRequestReceived, status)

	require.NoError(t, e.friends.AcceptRequest(ctx, "b", "a"))
	status, _ = e.friends.FriendStatus(ctx, "b", "a")
	assert.Equal(t, models.FriendStatusFriends, status)
}

func TestFriendship_EventsAndCache(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "a", "b")

	require.NoError(t, e.friends.SendRequest(ctx, "a", "b"))
	require.NoError(t, e.friends.AcceptRequest(ctx, "b", "a"))

	sent := e.notifier.ofType(models.EventFriendRequestSent)
	require.Len(t, sent, 1)
	assert.Equal(t, "a", sent[0].ActorID)
	assert.Equal(t, "b", sent[0].RecipientID)
	assert.Equal(t, models.TargetUser, sent[0].TargetType)

	accepted := e.notifier.ofType(models.EventFriendRequestAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, "b", accepted[0].ActorID)
	assert.Equal(t, "a", accepted[0].RecipientID)

	assert.Contains(t, e.cache.invalidated, "a")
	assert.Contains(t, e.cache.invalidated, "b")
}

func TestFriendship_FailedPublishDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "a", "b")
	e.notifier.err = errBroker

	require.NoError(t, e.friends.SendRequest(ctx, "a", "b"))
	status, err := e.friends.FriendStatus(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, models.FriendStatusRequestSent, status)
}
