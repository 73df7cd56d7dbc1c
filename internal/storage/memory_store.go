package storage

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"neosocial/internal/models"
)

type edgeKey struct {
	from string
	to   string
}

type memberEdge struct {
	role     models.GroupMemberRole
	joinedAt time.Time
}

type memoryState struct {
	users        map[string]models.User
	groups       map[string]models.Group
	requests     map[edgeKey]time.Time
	friends      map[edgeKey]time.Time
	members      map[edgeKey]memberEdge // user -> group
	admins       map[edgeKey]time.Time  // user -> group
	joinRequests map[string]models.JoinRequest
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:        map[string]models.User{},
		groups:       map[string]models.Group{},
		requests:     map[edgeKey]time.Time{},
		friends:      map[edgeKey]time.Time{},
		members:      map[edgeKey]memberEdge{},
		admins:       map[edgeKey]time.Time{},
		joinRequests: map[string]models.JoinRequest{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		users:        cloneMap(s.users),
		groups:       cloneMap(s.groups),
		requests:     cloneMap(s.requests),
		friends:      cloneMap(s.friends),
		members:      cloneMap(s.members),
		admins:       cloneMap(s.admins),
		joinRequests: cloneMap(s.joinRequests),
	}
}

// memoryGraphStore is an in-process GraphStore. Writes are serialised and
// applied copy-on-write, so an error from fn leaves the committed state untouched.
type memoryGraphStore struct {
	mu    sync.RWMutex
	state *memoryState
}

// NewMemoryGraphStore returns an empty in-memory graph.
func NewMemoryGraphStore() GraphStore {
	return &memoryGraphStore{state: newMemoryState()}
}

func (s *memoryGraphStore) Read(ctx context.Context, fn func(tx GraphTx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memoryTx{state: s.state, readOnly: true})
}

func (s *memoryGraphStore) Write(ctx context.Context, fn func(tx GraphTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *memoryGraphStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *memoryGraphStore) Close(ctx context.Context) error { return nil }

type memoryTx struct {
	state    *memoryState
	readOnly bool
}

func (t *memoryTx) checkWrite() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Writers already hold the store mutex, so locking only enforces the tx mode.
func (t *memoryTx) LockGroup(ctx context.Context, groupID string) error {
	return t.checkWrite()
}

func (t *memoryTx) LockUsers(ctx context.Context, ids ...string) error {
	return t.checkWrite()
}

func (t *memoryTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, ok := t.state.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (t *memoryTx) UpsertUser(ctx context.Context, user models.User) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	t.state.users[user.ID] = user
	return nil
}

func (t *memoryTx) HasRequest(ctx context.Context, fromID, toID string) (bool, error) {
	_, ok := t.state.requests[edgeKey{fromID, toID}]
	return ok, nil
}

func (t *memoryTx) CreateRequest(ctx context.Context, fromID, toID string, at time.Time) (bool, error) {
	if err := t.checkWrite(); err != nil {
		return false, err
	}
	if !t.userExists(fromID) || !t.userExists(toID) {
		return false, nil
	}
	for _, key := range []edgeKey{{fromID, toID}, {toID, fromID}} {
		if _, ok := t.state.requests[key]; ok {
			return false, nil
		}
		if _, ok := t.state.friends[key]; ok {
			return false, nil
		}
	}
	t.state.requests[edgeKey{fromID, toID}] = at
	return true, nil
}

func (t *memoryTx) DeleteRequest(ctx context.Context, fromID, toID string) (bool, error) {
	if err := t.checkWrite(); err != nil {
		return false, err
	}
	key := edgeKey{fromID, toID}
	if _, ok := t.state.requests[key]; !ok {
		return false, nil
	}
	delete(t.state.requests, key)
	return true, nil
}

func (t *memoryTx) ListIncomingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return t.listRequests(func(key edgeKey) bool { return key.to == userID }), nil
}

func (t *memoryTx) ListOutgoingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return t.listRequests(func(key edgeKey) bool { return key.from == userID }), nil
}

func (t *memoryTx) listRequests(match func(edgeKey) bool) []models.FriendRequest {
	requests := []models.FriendRequest{}
	for key, at := range t.state.requests {
		if !match(key) {
			continue
		}
		requests = append(requests, models.FriendRequest{
			From:      t.state.users[key.from].BasicInfo(),
			To:        t.state.users[key.to].BasicInfo(),
			CreatedAt: at,
		})
	}
	slices.SortFunc(requests, func(a, b models.FriendRequest) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.From.ID, b.From.ID), cmp.Compare(a.To.ID, b.To.ID))
	})
	return requests
}

func (t *memoryTx) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	_, ok := t.state.friends[edgeKey{userID, otherID}]
	return ok, nil
}

func (t *memoryTx) CreateFriendship(ctx context.Context, userID, otherID string, at time.Time) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	if !t.userExists(userID) || !t.userExists(otherID) {
		return nil
	}
	for _, key := range []edgeKey{{userID, otherID}, {otherID, userID}} {
		if _, ok := t.state.friends[key]; !ok {
			t.state.friends[key] = at
		}
	}
	return nil
}

func (t *memoryTx) DeleteFriendship(ctx context.Context, userID, otherID string) (int, error) {
	if err := t.checkWrite(); err != nil {
		return 0, err
	}
	deleted := 0
	for _, key := range []edgeKey{{userID, otherID}, {otherID, userID}} {
		if _, ok := t.state.friends[key]; ok {
			delete(t.state.friends, key)
			deleted++
		}
	}
	return deleted, nil
}

func (t *memoryTx) ListFriends(ctx context.Context, userID string) ([]models.User, error) {
	friends := []models.User{}
	for _, id := range t.friendIDs(userID) {
		friends = append(friends, t.state.users[id])
	}
	sortUsers(friends)
	return friends, nil
}

func (t *memoryTx) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	return t.friendIDs(userID), nil
}

func (t *memoryTx) friendIDs(userID string) []string {
	ids := []string{}
	for key := range t.state.friends {
		if key.from == userID {
			ids = append(ids, key.to)
		}
	}
	slices.Sort(ids)
	return ids
}

func (t *memoryTx) AsymmetricFriendships(ctx context.Context) ([]models.SymmetryViolation, error) {
	violations := []models.SymmetryViolation{}
	for key := range t.state.friends {
		if _, ok := t.state.friends[edgeKey{key.to, key.from}]; !ok {
			violations = append(violations, models.SymmetryViolation{UserID: key.from, OtherID: key.to})
		}
	}
	slices.SortFunc(violations, func(a, b models.SymmetryViolation) int {
		return cmp.Or(cmp.Compare(a.UserID, b.UserID), cmp.Compare(a.OtherID, b.OtherID))
	})
	return violations, nil
}

func (t *memoryTx) CreateGroup(ctx context.Context, group models.Group) (bool, error) {
	if err := t.checkWrite(); err != nil {
		return false, err
	}
	if !t.userExists(group.CreatedBy) {
		return false, nil
	}
	group.IsActive = true
	group.MemberCount = 1
	t.state.groups[group.ID] = group

	key := edgeKey{group.CreatedBy, group.ID}
	t.state.members[key] = memberEdge{role: models.AdminRole, joinedAt: group.CreatedAt}
	t.state.admins[key] = group.CreatedAt
	return true, nil
}

func (t *memoryTx) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	group, ok := t.state.groups[id]
	if !ok {
		return nil, nil
	}
	return &group, nil
}

func (t *memoryTx) UpdateGroup(ctx context.Context, id string, patch models.GroupPatch) (*models.Group, error) {
	if err := t.checkWrite(); err != nil {
		return nil, err
	}
	group, ok := t.state.groups[id]
	if !ok {
		return nil, nil
	}
	if patch.Name != nil {
		group.Name = *patch.Name
	}
	if patch.Description != nil {
		group.Description = *patch.Description
	}
	if patch.Category != nil {
		group.Category = *patch.Category
	}
	if patch.CoverImage != nil {
		group.CoverImage = *patch.CoverImage
	}
	if patch.IsPublic != nil {
		group.IsPublic = *patch.IsPublic
	}
	if patch.IsActive != nil {
		group.IsActive = *patch.IsActive
	}
	t.state.groups[id] = group
	return &group, nil
}

func (t *memoryTx) GetMembership(ctx context.Context, userID, groupID string) (*models.GroupMember, error) {
	edge, ok := t.state.members[edgeKey{userID, groupID}]
	if !ok {
		return nil, nil
	}
	member := t.member(userID, groupID, edge)
	return &member, nil
}

func (t *memoryTx) member(userID, groupID string, edge memberEdge) models.GroupMember {
	return models.GroupMember{
		User:     t.state.users[userID].BasicInfo(),
		GroupID:  groupID,
		Role:     edge.role,
		JoinedAt: edge.joinedAt,
	}
}

func (t *memoryTx) IsAdmin(ctx context.Context, userID, groupID string) (bool, error) {
	_, ok := t.state.admins[edgeKey{userID, groupID}]
	return ok, nil
}

func (t *memoryTx) AddMember(ctx context.Context, userID, groupID string, role models.GroupMemberRole, at time.Time) (bool, int, error) {
	if err := t.checkWrite(); err != nil {
		return false, 0, err
	}
	group, ok := t.state.groups[groupID]
	if !ok || !t.userExists(userID) {
		return false, 0, nil
	}
	key := edgeKey{userID, groupID}
	if _, ok := t.state.members[key]; ok {
		return false, 0, nil
	}
	t.state.members[key] = memberEdge{role: role, joinedAt: at}
	group.MemberCount++
	t.state.groups[groupID] = group
	return true, group.MemberCount, nil
}

func (t *memoryTx) RemoveMember(ctx context.Context, userID, groupID string) (bool, int, error) {
	if err := t.checkWrite(); err != nil {
		return false, 0, err
	}
	key := edgeKey{userID, groupID}
	if _, ok := t.state.members[key]; !ok {
		return false, 0, nil
	}
	delete(t.state.members, key)
	delete(t.state.admins, key)
	group := t.state.groups[groupID]
	group.MemberCount--
	t.state.groups[groupID] = group
	return true, group.MemberCount, nil
}

func (t *memoryTx) PromoteMember(ctx context.Context, userID, groupID string, at time.Time) (bool, error) {
	if err := t.checkWrite(); err != nil {
		return false, err
	}
	key := edgeKey{userID, groupID}
	edge, ok := t.state.members[key]
	if !ok {
		return false, nil
	}
	edge.role = models.AdminRole
	t.state.members[key] = edge
	if _, ok := t.state.admins[key]; !ok {
		t.state.admins[key] = at
	}
	return true, nil
}

func (t *memoryTx) AdminIDs(ctx context.Context, groupID string) ([]string, error) {
	ids := []string{}
	for key := range t.state.admins {
		if key.to == groupID {
			ids = append(ids, key.from)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (t *memoryTx) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	members := []models.GroupMember{}
	for key, edge := range t.state.members {
		if key.to == groupID {
			members = append(members, t.member(key.from, groupID, edge))
		}
	}
	slices.SortFunc(members, func(a, b models.GroupMember) int {
		return cmp.Or(a.JoinedAt.Compare(b.JoinedAt), cmp.Compare(a.User.ID, b.User.ID))
	})
	return members, nil
}

func (t *memoryTx) ListUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	groups := []models.Group{}
	for key := range t.state.members {
		if key.from == userID {
			groups = append(groups, t.state.groups[key.to])
		}
	}
	sortGroups(groups)
	return groups, nil
}

func (t *memoryTx) ViewerFlags(ctx context.Context, groupID, viewerID string) (models.ViewerFlags, error) {
	group, ok := t.state.groups[groupID]
	if !ok {
		return models.ViewerFlags{}, nil
	}
	key := edgeKey{viewerID, groupID}
	_, isAdmin := t.state.admins[key]
	_, isMember := t.state.members[key]
	flags := models.ViewerFlags{
		IsAdmin:     isAdmin,
		IsMember:    isMember,
		MemberCount: group.MemberCount,
	}
	if req := t.pendingJoinRequest(viewerID, groupID); req != nil {
		flags.HasRequested = true
		flags.PendingRequestID = req.ID
	}
	for _, friendID := range t.friendIDs(viewerID) {
		if _, ok := t.state.members[edgeKey{friendID, groupID}]; ok {
			flags.FriendCount++
		}
	}
	return flags, nil
}

func (t *memoryTx) MemberCounts(ctx context.Context) ([]models.MemberCountDrift, error) {
	actual := map[string]int{}
	for key := range t.state.members {
		actual[key.to]++
	}
	counts := make([]models.MemberCountDrift, 0, len(t.state.groups))
	for id, group := range t.state.groups {
		counts = append(counts, models.MemberCountDrift{GroupID: id, Cached: group.MemberCount, Actual: actual[id]})
	}
	slices.SortFunc(counts, func(a, b models.MemberCountDrift) int { return cmp.Compare(a.GroupID, b.GroupID) })
	return counts, nil
}

func (t *memoryTx) SetMemberCount(ctx context.Context, groupID string, count int) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	group, ok := t.state.groups[groupID]
	if !ok {
		return nil
	}
	group.MemberCount = count
	t.state.groups[groupID] = group
	return nil
}

func (t *memoryTx) CreateJoinRequest(ctx context.Context, req models.JoinRequest) error {
	if err := t.checkWrite(); err != nil {
		return err
	}
	if _, ok := t.state.groups[req.GroupID]; !ok || !t.userExists(req.UserID) {
		return nil
	}
	t.state.joinRequests[req.ID] = req
	return nil
}

func (t *memoryTx) GetJoinRequest(ctx context.Context, id string) (*models.JoinRequest, error) {
	req, ok := t.state.joinRequests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (t *memoryTx) FindPendingJoinRequest(ctx context.Context, userID, groupID string) (*models.JoinRequest, error) {
	return t.pendingJoinRequest(userID, groupID), nil
}

func (t *memoryTx) pendingJoinRequest(userID, groupID string) *models.JoinRequest {
	for _, req := range t.state.joinRequests {
		if req.UserID == userID && req.GroupID == groupID && req.Status == models.JoinRequestPending {
			return &req
		}
	}
	return nil
}

func (t *memoryTx) DeleteJoinRequest(ctx context.Context, id string) (bool, error) {
	if err := t.checkWrite(); err != nil {
		return false, err
	}
	if _, ok := t.state.joinRequests[id]; !ok {
		return false, nil
	}
	delete(t.state.joinRequests, id)
	return true, nil
}

func (t *memoryTx) ListJoinRequests(ctx context.Context, groupID string) ([]models.JoinRequestWithSender, error) {
	requests := []models.JoinRequestWithSender{}
	for _, req := range t.state.joinRequests {
		if req.GroupID != groupID || req.Status != models.JoinRequestPending {
			continue
		}
		requests = append(requests, models.JoinRequestWithSender{
			JoinRequest: req,
			Sender:      t.state.users[req.UserID].BasicInfo(),
		})
	}
	slices.SortFunc(requests, func(a, b models.JoinRequestWithSender) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return requests, nil
}

func (t *memoryTx) FriendOfFriendCandidates(ctx context.Context, userID string, limit int) ([]models.FriendSuggestion, error) {
	mutual := map[string]int{}
	for _, friendID := range t.friendIDs(userID) {
		for _, candidateID := range t.friendIDs(friendID) {
			if candidateID == userID {
				continue
			}
			if _, ok := t.state.friends[edgeKey{userID, candidateID}]; ok {
				continue
			}
			mutual[candidateID]++
		}
	}

	out := make([]models.FriendSuggestion, 0, len(mutual))
	for id, n := range mutual {
		out = append(out, models.FriendSuggestion{User: t.state.users[id].BasicInfo(), MutualFriends: n})
	}
	slices.SortFunc(out, func(a, b models.FriendSuggestion) int {
		return cmp.Or(cmp.Compare(b.MutualFriends, a.MutualFriends), cmp.Compare(a.User.Name, b.User.Name), cmp.Compare(a.User.ID, b.User.ID))
	})
	return truncate(out, limit), nil
}

func (t *memoryTx) RandomUsers(ctx context.Context, excludeIDs []string, limit int) ([]models.User, error) {
	users := []models.User{}
	for id, user := range t.state.users {
		if !slices.Contains(excludeIDs, id) {
			users = append(users, user)
		}
	}
	rand.Shuffle(len(users), func(i, j int) { users[i], users[j] = users[j], users[i] })
	return truncate(users, limit), nil
}

func (t *memoryTx) FriendGroupCandidates(ctx context.Context, userID string, limit int) ([]models.GroupSuggestion, error) {
	friendsIn := map[string]int{}
	for _, friendID := range t.friendIDs(userID) {
		for key := range t.state.members {
			if key.from != friendID {
				continue
			}
			if !t.state.groups[key.to].IsActive {
				continue
			}
			if _, ok := t.state.members[edgeKey{userID, key.to}]; ok {
				continue
			}
			friendsIn[key.to]++
		}
	}

	out := make([]models.GroupSuggestion, 0, len(friendsIn))
	for id, n := range friendsIn {
		out = append(out, models.GroupSuggestion{Group: t.state.groups[id], FriendsInGroup: n})
	}
	slices.SortFunc(out, func(a, b models.GroupSuggestion) int {
		return cmp.Or(cmp.Compare(b.FriendsInGroup, a.FriendsInGroup), cmp.Compare(a.Group.Name, b.Group.Name), cmp.Compare(a.Group.ID, b.Group.ID))
	})
	return truncate(out, limit), nil
}

func (t *memoryTx) RandomGroups(ctx context.Context, excludeIDs []string, limit int) ([]models.Group, error) {
	groups := []models.Group{}
	for id, group := range t.state.groups {
		if group.IsActive && !slices.Contains(excludeIDs, id) {
			groups = append(groups, group)
		}
	}
	rand.Shuffle(len(groups), func(i, j int) { groups[i], groups[j] = groups[j], groups[i] })
	return truncate(groups, limit), nil
}

func (t *memoryTx) userExists(id string) bool {
	_, ok := t.state.users[id]
	return ok
}

func sortUsers(users []models.User) {
	slices.SortFunc(users, func(a, b models.User) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
}

func sortGroups(groups []models.Group) {
	slices.SortFunc(groups, func(a, b models.Group) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
}

func truncate[T any](items []T, limit int) []T {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

var _ GraphStore = (*memoryGraphStore)(nil)
var _ GraphTx = (*memoryTx)(nil)
