package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neosocial/internal/models"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func seedUsers(t *testing.T, store GraphStore, ids ...string) {
	t.Helper()
	err := store.Write(context.Background(), func(tx GraphTx) error {
		for _, id := range ids {
			if err := tx.UpsertUser(context.Background(), models.User{ID: id, Name: "user " + id}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func befriend(t *testing.T, store GraphStore, a, b string) {
	t.Helper()
	require.NoError(t, store.Write(context.Background(), func(tx GraphTx) error {
		return tx.CreateFriendship(context.Background(), a, b, t0)
	}))
}

func TestMemoryStore_WriteRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	seedUsers(t, store, "a", "b")

	boom := errors.New("boom")
	err := store.Write(ctx, func(tx GraphTx) error {
		created, err := tx.CreateRequest(ctx, "a", "b", t0)
		require.NoError(t, err)
		require.True(t, created)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.Read(ctx, func(tx GraphTx) error {
		has, err := tx.HasRequest(ctx, "a", "b")
		assert.False(t, has)
		return err
	}))
}

func TestMemoryStore_ReadIsReadOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()

	err := store.Read(ctx, func(tx GraphTx) error {
		return tx.UpsertUser(ctx, models.User{ID: "x"})
	})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestMemoryStore_LocksRequireWriteTx(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	seedUsers(t, store, "a", "b")

	err := store.Read(ctx, func(tx GraphTx) error {
		return tx.LockGroup(ctx, "g1")
	})
	assert.ErrorIs(t, err, ErrReadOnly)

	err = store.Read(ctx, func(tx GraphTx) error {
		return tx.LockUsers(ctx, "a", "b")
	})
	assert.ErrorIs(t, err, ErrReadOnly)

	assert.NoError(t, store.Write(ctx, func(tx GraphTx) error {
		if err := tx.LockUsers(ctx, "b", "a"); err != nil {
			return err
		}
		return tx.LockGroup(ctx, "missing")
	}))
}

func TestMemoryStore_CreateRequestIsConditional(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	seedUsers(t, store, "a", "b", "c")
	befriend(t, store, "a", "c")

	require.NoError(t, store.Write(ctx, func(tx GraphTx) error {
		created, err := tx.CreateRequest(ctx, "a", "b", t0)
		require.NoError(t, err)
		assert.True(t, created)

		// reverse direction is blocked by the pending request
		created, err = tx.CreateRequest(ctx, "b", "a", t0)
		require.NoError(t, err)
		assert.False(t, created)

		// friends cannot request each other
		created, err = tx.CreateRequest(ctx, "c", "a", t0)
		require.NoError(t, err)
		assert.False(t, created)

		// unknown recipient
		created, err = tx.CreateRequest(ctx, "a", "ghost", t0)
		require.NoError(t, err)
		assert.False(t, created)
		return nil
	}))
}

func TestMemoryStore_FriendshipIsSymmetric(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	seedUsers(t, store, "a", "b")
	befriend(t, store, "a", "b")

	require.NoError(t, store.Read(ctx, func(tx GraphTx) error {
		ab, _ := tx.AreFriends(ctx, "a", "b")
		ba, _ := tx.AreFriends(ctx, "b", "a")
		assert.True(t, ab)
		assert.True(t, ba)

		violations, err := tx.AsymmetricFriendships(ctx)
		assert.Empty(t, violations)
		return err
	}))

	require.NoError(t, store.Write(ctx, func(tx GraphTx) error {
		n, err := tx.DeleteFriendship(ctx, "b", "a")
		assert.Equal(t, 2, n)
		return err
	}))
}

func TestMemoryStore_MembershipCounts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	seedUsers(t, store, "owner", "m1")

	require.NoError(t, store.Write(ctx, func(tx GraphTx) error {
		ok, err := tx.CreateGroup(ctx, models.Group{ID: "g1", Name: "Go", IsPublic: true, CreatedBy: "owner", CreatedAt: t0})
		require.NoError(t, err)
		require.True(t, ok)

		added, count, err := tx.AddMember(ctx, "m1", "g1", models.MemberRole, t0)
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, 2, count)

		added, _, err = tx.AddMember(ctx, "m1", "g1", models.MemberRole, t0)
		require.NoError(t, err)
		assert.False(t, added)

		removed, count, err := tx.RemoveMember(ctx, "owner", "g1")
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, 1, count)

		isAdmin, err := tx.IsAdmin(ctx, "owner", "g1")
		assert.False(t, isAdmin)
		return err
	}))

	require.NoError(t, store.Read(ctx, func(tx GraphTx) error {
		counts, err := tx.MemberCounts(ctx)
		require.NoError(t, err)
		require.Len(t, counts, 1)
		assert.False(t, counts[0].Drifted())
		return nil
	}))
}

func TestMemoryStore_CreateGroupRequiresCreator(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()

	require.NoError(t, store.Write(ctx, func(tx GraphTx) error {
		ok, err := tx.CreateGroup(ctx, models.Group{ID: "g1", Name: "x", CreatedBy: "ghost"})
		assert.False(t, ok)
		return err
	}))
}

func TestMemoryStore_FriendOfFriendRanking(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	seedUsers(t, store, "me", "f1", "f2", "c1", "c2")
	befriend(t, store, "me", "f1")
	befriend(t, store, "me", "f2")
	befriend(t, store, "f1", "c1")
	befriend(t, store, "f2", "c1")
	befriend(t, store, "f1", "c2")
	befriend(t, store, "f1", "f2")

	require.NoError(t, store.Read(ctx, func(tx GraphTx) error {
		got, err := tx.FriendOfFriendCandidates(ctx, "me", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c1", got[0].User.ID)
		assert.Equal(t, 2, got[0].MutualFriends)
		assert.Equal(t, "c2", got[1].User.ID)
		assert.Equal(t, 1, got[1].MutualFriends)

		limited, err := tx.FriendOfFriendCandidates(ctx, "me", 1)
		assert.Len(t, limited, 1)
		return err
	}))
}

func TestMemoryStore_ViewerFlags(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	seedUsers(t, store, "owner", "viewer", "friend")
	befriend(t, store, "viewer", "friend")

	require.NoError(t, store.Write(ctx, func(tx GraphTx) error {
		if _, err := tx.CreateGroup(ctx, models.Group{ID: "g1", Name: "Private", CreatedBy: "owner", CreatedAt: t0}); err != nil {
			return err
		}
		if _, _, err := tx.AddMember(ctx, "friend", "g1", models.MemberRole, t0); err != nil {
			return err
		}
		return tx.CreateJoinRequest(ctx, models.JoinRequest{
			ID: "jr1", UserID: "viewer", GroupID: "g1", Status: models.JoinRequestPending, CreatedAt: t0,
		})
	}))

	require.NoError(t, store.Read(ctx, func(tx GraphTx) error {
		flags, err := tx.ViewerFlags(ctx, "g1", "viewer")
		require.NoError(t, err)
		assert.False(t, flags.IsAdmin)
		assert.False(t, flags.IsMember)
		assert.True(t, flags.HasRequested)
		assert.Equal(t, "jr1", flags.PendingRequestID)
		assert.Equal(t, 2, flags.MemberCount)
		assert.Equal(t, 1, flags.FriendCount)
		return nil
	}))
}

func TestMemoryStore_RandomUsersExcludes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	seedUsers(t, store, "a", "b", "c", "d")

	require.NoError(t, store.Read(ctx, func(tx GraphTx) error {
		users, err := tx.RandomUsers(ctx, []string{"a", "b"}, 10)
		require.NoError(t, err)
		ids := []string{}
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		assert.ElementsMatch(t, []string{"c", "d"}, ids)
		return nil
	}))
}
