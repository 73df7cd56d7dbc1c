package storage

import (
	"context"
	"errors"
	"time"

	"neosocial/internal/models"
)

// ErrReadOnly is returned when a mutating GraphTx method is called inside GraphStore.Read.
var ErrReadOnly = errors.New("graph: write attempted in read transaction")

// GraphStore gives transactional access to the property graph.
// Every Read/Write call acquires its own session and runs fn inside a single
// transaction: a non-nil error from fn rolls back all of its mutations.
// fn may be retried on transient failures, so it must not have side effects
// outside the transaction.
type GraphStore interface {
	Read(ctx context.Context, fn func(tx GraphTx) error) error
	Write(ctx context.Context, fn func(tx GraphTx) error) error
	EnsureSchema(ctx context.Context) error
	Close(ctx context.Context) error
}

// GraphTx is the set of typed graph operations available inside a transaction.
// Lookups return nil (not an error) when the node or edge is absent.
// Every count is a plain int regardless of the backing store.
type GraphTx interface {
	// LockGroup and LockUsers take the write lock on the named nodes for the
	// rest of the transaction. Call them before any check-then-write sequence.
	// Missing nodes are not an error.
	LockGroup(ctx context.Context, groupID string) error
	LockUsers(ctx context.Context, ids ...string) error

	// Users
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpsertUser(ctx context.Context, user models.User) error

	// Friend requests and friendships
	HasRequest(ctx context.Context, fromID, toID string) (bool, error)
	// CreateRequest creates fromID-[:REQUESTED]->toID only when no REQUESTED or
	// FRIENDS_WITH edge exists between the pair in either direction.
	CreateRequest(ctx context.Context, fromID, toID string, at time.Time) (bool, error)
	DeleteRequest(ctx context.Context, fromID, toID string) (bool, error)
	ListIncomingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error)
	ListOutgoingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error)
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
	// CreateFriendship creates both FRIENDS_WITH directions.
	CreateFriendship(ctx context.Context, userID, otherID string, at time.Time) error
	// DeleteFriendship deletes FRIENDS_WITH in both directions and returns how many edges went away.
	DeleteFriendship(ctx context.Context, userID, otherID string) (int, error)
	ListFriends(ctx context.Context, userID string) ([]models.User, error)
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	AsymmetricFriendships(ctx context.Context) ([]models.SymmetryViolation, error)

	// Groups and membership
	// CreateGroup stores the group with member_count=1 plus the creator's
	// MEMBER_OF(role=admin) and ADMIN_OF edges. It returns false if the creator does not exist.
	CreateGroup(ctx context.Context, group models.Group) (bool, error)
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	UpdateGroup(ctx context.Context, id string, patch models.GroupPatch) (*models.Group, error)
	GetMembership(ctx context.Context, userID, groupID string) (*models.GroupMember, error)
	IsAdmin(ctx context.Context, userID, groupID string) (bool, error)
	// AddMember creates MEMBER_OF and increments member_count. added is false when the
	// user is already a member (or either node is missing); count is the new member_count.
	AddMember(ctx context.Context, userID, groupID string, role models.GroupMemberRole, at time.Time) (added bool, count int, err error)
	// RemoveMember deletes MEMBER_OF (and ADMIN_OF) and decrements member_count.
	RemoveMember(ctx context.Context, userID, groupID string) (removed bool, count int, err error)
	PromoteMember(ctx context.Context, userID, groupID string, at time.Time) (bool, error)
	AdminIDs(ctx context.Context, groupID string) ([]string, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	ListUserGroups(ctx context.Context, userID string) ([]models.Group, error)
	ViewerFlags(ctx context.Context, groupID, viewerID string) (models.ViewerFlags, error)
	MemberCounts(ctx context.Context) ([]models.MemberCountDrift, error)
	SetMemberCount(ctx context.Context, groupID string, count int) error

	// Join requests
	CreateJoinRequest(ctx context.Context, req models.JoinRequest) error
	GetJoinRequest(ctx context.Context, id string) (*models.JoinRequest, error)
	FindPendingJoinRequest(ctx context.Context, userID, groupID string) (*models.JoinRequest, error)
	DeleteJoinRequest(ctx context.Context, id string) (bool, error)
	ListJoinRequests(ctx context.Context, groupID string) ([]models.JoinRequestWithSender, error)

	// Suggestion candidates
	// FriendOfFriendCandidates returns 2-hop users not yet friends with userID,
	// ordered by mutual-friend count descending, then name.
	FriendOfFriendCandidates(ctx context.Context, userID string, limit int) ([]models.FriendSuggestion, error)
	RandomUsers(ctx context.Context, excludeIDs []string, limit int) ([]models.User, error)
	// FriendGroupCandidates returns active groups containing userID's friends that
	// userID is not a member of, ordered by friend count descending, then name.
	FriendGroupCandidates(ctx context.Context, userID string, limit int) ([]models.GroupSuggestion, error)
	RandomGroups(ctx context.Context, excludeIDs []string, limit int) ([]models.Group, error)
}
