package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neosocial/internal/config"
	"neosocial/internal/models"
	"neosocial/internal/storage"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.DomainEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, event models.DomainEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) ofType(t models.EventType) []models.DomainEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.DomainEvent
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeCache struct {
	mu          sync.Mutex
	friends     map[string][]models.FriendSuggestion
	groups      map[string][]models.GroupSuggestion
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{friends: map[string][]models.FriendSuggestion{}, groups: map[string][]models.GroupSuggestion{}}
}

func (c *fakeCache) GetFriendSuggestions(_ context.Context, userID string, _ int) ([]models.FriendSuggestion, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.friends[userID]
	return s, ok, nil
}

func (c *fakeCache) SetFriendSuggestions(_ context.Context, userID string, _ int, s []models.FriendSuggestion) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.friends[userID] = s
	return nil
}

func (c *fakeCache) GetGroupSuggestions(_ context.Context, userID string, _ int) ([]models.GroupSuggestion, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.groups[userID]
	return s, ok, nil
}

func (c *fakeCache) SetGroupSuggestions(_ context.Context, userID string, _ int, s []models.GroupSuggestion) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups[userID] = s
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, userIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.friends, id)
		delete(c.groups, id)
	}
	c.invalidated = append(c.invalidated, userIDs...)
	return nil
}

type fakePosts struct {
	posts []models.Post
	err   error
}

func (p *fakePosts) ListByGroup(_ context.Context, groupID string, _ int) ([]models.Post, error) {
	if p.err != nil {
		return nil, p.err
	}
	var out []models.Post
	for _, post := range p.posts {
		if post.GroupID == groupID {
			out = append(out, post)
		}
	}
	return out, nil
}

// wrappedStore lets a test replace individual GraphTx methods.
type wrappedStore struct {
	storage.GraphStore
	wrap func(storage.GraphTx) storage.GraphTx
}

func (s wrappedStore) Write(ctx context.Context, fn func(tx storage.GraphTx) error) error {
	return s.GraphStore.Write(ctx, func(tx storage.GraphTx) error { return fn(s.wrap(tx)) })
}

type halfFriendshipTx struct {
	storage.GraphTx
}

func (halfFriendshipTx) DeleteFriendship(context.Context, string, string) (int, error) {
	return 1, nil
}

var errBroker = errors.New("broker unavailable")

type env struct {
	store       storage.GraphStore
	notifier    *recordingNotifier
	cache       *fakeCache
	posts       *fakePosts
	friends     FriendshipService
	groups      GroupMembershipService
	suggestions SuggestionService
}

func newEnv(t *testing.T, userIDs ...string) *env {
	t.Helper()
	e := &env{
		store:    storage.NewMemoryGraphStore(),
		notifier: &recordingNotifier{},
		cache:    newFakeCache(),
		posts:    &fakePosts{},
	}
	logger := zap.NewNop()
	e.friends = NewFriendshipService(e.store, e.notifier, e.cache, logger)
	e.groups = NewGroupMembershipService(e.store, NewAuthorizationGuard(e.store), e.posts, e.notifier, e.cache, logger)
	e.suggestions = NewSuggestionService(e.store, nil, config.SuggestionsConfig{DefaultLimit: 5, MaxLimit: 20}, logger)
	e.seed(t, userIDs...)
	return e
}

func (e *env) seed(t *testing.T, userIDs ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.Write(ctx, func(tx storage.GraphTx) error {
		for _, id := range userIDs {
			if err := tx.UpsertUser(ctx, models.User{ID: id, Name: "name-" + id}); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (e *env) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.friends.SendRequest(ctx, a, b))
	require.NoError(t, e.friends.AcceptRequest(ctx, b, a))
}

func (e *env) memberCount(t *testing.T, groupID string) (cached, actual int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.Read(ctx, func(tx storage.GraphTx) error {
		counts, err := tx.MemberCounts(ctx)
		for _, c := range counts {
			if c.GroupID == groupID {
				cached, actual = c.Cached, c.Actual
			}
		}
		return err
	}))
	return cached, actual
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }
