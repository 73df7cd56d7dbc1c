package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neosocial/internal/models"
)

const racers = 8

// race runs fn on n goroutines released together and returns every result.
func race(n int, fn func(i int) error) []error {
	var (
		start sync.WaitGroup
		done  sync.WaitGroup
	)
	errs := make([]error, n)
	start.Add(1)
	for i := 0; i < n; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			start.Wait()
			errs[i] = fn(i)
		}(i)
	}
	start.Done()
	done.Wait()
	return errs
}

// requireOneWinner asserts exactly one nil error and that every other
// error is one of allowed.
func requireOneWinner(t *testing.T, errs []error, allowed ...error) {
	t.Helper()
	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		matched := false
		for _, want := range allowed {
			if errors.Is(err, want) {
				matched = true
				break
			}
		}
		assert.True(t, matched, "unexpected error: %v", err)
	}
	require.Equal(t, 1, wins)
}

func TestConcurrency_DoubleAcceptFriendRequest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "alice", "bob")
	require.NoError(t, e.friends.SendRequest(ctx, "alice", "bob"))

	errs := race(racers, func(int) error {
		return e.friends.AcceptRequest(ctx, "bob", "alice")
	})
	requireOneWinner(t, errs, ErrRequestNotFound)

	friends, err := e.friends.ListFriends(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, friends, 1)
	assert.Len(t, e.notifier.ofType(models.EventFriendRequestAccepted), 1)
}

func TestConcurrency_JoinRequestReviewedByTwoAdmins(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "admin", "co", "v")
	group := createGroup(t, e, "admin", false)

	invite, err := e.groups.SubmitJoinRequest(ctx, "co", group.ID)
	require.NoError(t, err)
	_, err = e.groups.ReviewJoinRequest(ctx, "admin", invite.Request.ID, models.JoinRequestApproved)
	require.NoError(t, err)
	_, err = e.groups.PromoteMember(ctx, "admin", group.ID, "co")
	require.NoError(t, err)

	pending, err := e.groups.SubmitJoinRequest(ctx, "v", group.ID)
	require.NoError(t, err)

	reviewers := []string{"admin", "co"}
	errs := race(racers, func(i int) error {
		_, err := e.groups.ReviewJoinRequest(ctx, reviewers[i%2], pending.Request.ID, models.JoinRequestApproved)
		return err
	})
	requireOneWinner(t, errs, ErrRequestNotFound)

	cached, actual := e.memberCount(t, group.ID)
	assert.Equal(t, 3, actual)
	assert.Equal(t, actual, cached)
}

func TestConcurrency_DuplicatePrivateJoinRequest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "admin", "v")
	group := createGroup(t, e, "admin", false)

	errs := race(racers, func(int) error {
		_, err := e.groups.SubmitJoinRequest(ctx, "v", group.ID)
		return err
	})
	requireOneWinner(t, errs, ErrJoinRequestExists)

	requests, err := e.groups.ListJoinRequests(ctx, "admin", group.ID)
	require.NoError(t, err)
	assert.Len(t, requests, 1)

	cached, actual := e.memberCount(t, group.ID)
	assert.Equal(t, 1, actual)
	assert.Equal(t, actual, cached)
}

func TestConcurrency_PublicAutoJoinOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "admin", "v")
	group := createGroup(t, e, "admin", true)

	errs := race(racers, func(int) error {
		_, err := e.groups.SubmitJoinRequest(ctx, "v", group.ID)
		return err
	})
	requireOneWinner(t, errs, ErrAlreadyMember)

	cached, actual := e.memberCount(t, group.ID)
	assert.Equal(t, 2, actual)
	assert.Equal(t, actual, cached)
}

func TestConcurrency_LeaveRacesRemoveMember(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "admin", "m")
	group := createGroup(t, e, "admin", true)
	_, err := e.groups.SubmitJoinRequest(ctx, "m", group.ID)
	require.NoError(t, err)

	errs := race(racers, func(i int) error {
		if i%2 == 0 {
			return e.groups.LeaveGroup(ctx, "m", group.ID)
		}
		return e.groups.RemoveMember(ctx, "admin", group.ID, "m")
	})
	requireOneWinner(t, errs, ErrNotAMember, ErrMemberNotFound)

	cached, actual := e.memberCount(t, group.ID)
	assert.Equal(t, 1, actual)
	assert.Equal(t, actual, cached)

	details, err := e.groups.GetGroupDetails(ctx, group.ID, "admin")
	require.NoError(t, err)
	assert.True(t, details.Group.IsActive)
}

func TestConcurrency_SoleAdminCannotBeRacedOut(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "admin", "a", "b")
	group := createGroup(t, e, "admin", true)
	for _, id := range []string{"a", "b"} {
		_, err := e.groups.SubmitJoinRequest(ctx, id, group.ID)
		require.NoError(t, err)
	}
	_, err := e.groups.PromoteMember(ctx, "admin", group.ID, "a")
	require.NoError(t, err)

	// two admins leaving at once must not strand b without an admin
	leavers := []string{"admin", "a"}
	errs := race(2, func(i int) error {
		return e.groups.LeaveGroup(ctx, leavers[i], group.ID)
	})
	requireOneWinner(t, errs, ErrSoleAdmin)

	members, err := e.groups.ListMembers(ctx, group.ID)
	require.NoError(t, err)
	admins := 0
	for _, m := range members {
		if m.Role == models.AdminRole {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
}
