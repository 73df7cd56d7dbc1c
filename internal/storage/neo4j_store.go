package storage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"

	"neosocial/internal/config"
	"neosocial/internal/models"
)

// neo4jGraphStore implements GraphStore on a pooled Neo4j driver.
// The driver is shared; sessions are not. Each Read/Write opens a session,
// runs one managed transaction and closes the session again.
type neo4jGraphStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewNeo4jGraphStore connects to Neo4j and verifies connectivity.
func NewNeo4jGraphStore(ctx context.Context, cfg config.GraphConfig, logger *zap.Logger) (GraphStore, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4jconfig.Config) {
		if cfg.MaxPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
		}
		if cfg.AcquisitionTimeout > 0 {
			c.ConnectionAcquisitionTimeout = cfg.AcquisitionTimeout
		}
	})
	if err != nil {
		return nil, fmt.Errorf("graph: failed to create driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: failed to connect to %s: %w", cfg.URI, err)
	}

	logger.Info("connected to graph store", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	return &neo4jGraphStore{driver: driver, database: cfg.Database, logger: logger}, nil
}

func (s *neo4jGraphStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// Read runs fn in a read transaction; mutating GraphTx methods fail with ErrReadOnly.
func (s *neo4jGraphStore) Read(ctx context.Context, fn func(tx GraphTx) error) error {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jTx{tx: tx, readOnly: true})
	})
	return err
}

// Write runs fn in a write transaction.
func (s *neo4jGraphStore) Write(ctx context.Context, fn func(tx GraphTx) error) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jTx{tx: tx})
	})
	return err
}

// EnsureSchema creates the uniqueness constraints. It is idempotent.
func (s *neo4jGraphStore) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("graph: schema statement failed: %w", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("graph: schema statement failed: %w", err)
		}
	}
	s.logger.Info("graph schema ensured", zap.Int("statements", len(schemaStatements)))
	return nil
}

func (s *neo4jGraphStore) Close(ctx context.Context) error {
	if err := s.driver.Close(ctx); err != nil {
		return fmt.Errorf("graph: failed to close driver: %w", err)
	}
	return nil
}

// neo4jTx implements GraphTx on a managed transaction.
type neo4jTx struct {
	tx       neo4j.ManagedTransaction
	readOnly bool
}

func (t *neo4jTx) collect(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("graph: query execution failed: %w", err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: failed to collect results: %w", err)
	}
	return records, nil
}

// single returns the first record, or nil if the query produced no rows.
func (t *neo4jTx) single(ctx context.Context, query string, params map[string]any) (*neo4j.Record, error) {
	records, err := t.collect(ctx, query, params)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

func (t *neo4jTx) write(ctx context.Context, query string, params map[string]any) (*neo4j.Record, error) {
	if t.readOnly {
		return nil, ErrReadOnly
	}
	return t.single(ctx, query, params)
}

func (t *neo4jTx) found(ctx context.Context, query string, params map[string]any) (bool, error) {
	record, err := t.single(ctx, query, params)
	if err != nil {
		return false, err
	}
	return asBool(recordValue(record, "found"), false), nil
}

func (t *neo4jTx) LockGroup(ctx context.Context, groupID string) error {
	_, err := t.write(ctx, queryLockGroup, map[string]any{"group": groupID})
	return err
}

// LockUsers locks in sorted id order so two transactions touching the same
// pair cannot deadlock on each other.
func (t *neo4jTx) LockUsers(ctx context.Context, ids ...string) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	_, err := t.write(ctx, queryLockUsers, map[string]any{"ids": slices.Compact(sorted)})
	return err
}

func (t *neo4jTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	record, err := t.single(ctx, queryGetUser, map[string]any{"id": id})
	if err != nil || record == nil {
		return nil, err
	}
	user := userFromProps(asProps(recordValue(record, "user")))
	return &user, nil
}

func (t *neo4jTx) UpsertUser(ctx context.Context, user models.User) error {
	_, err := t.write(ctx, queryUpsertUser, map[string]any{
		"id":         user.ID,
		"name":       user.Name,
		"username":   user.Username,
		"avatar_url": user.AvatarURL,
	})
	return err
}

func (t *neo4jTx) HasRequest(ctx context.Context, fromID, toID string) (bool, error) {
	return t.found(ctx, queryHasRequest, map[string]any{"from": fromID, "to": toID})
}

func (t *neo4jTx) CreateRequest(ctx context.Context, fromID, toID string, at time.Time) (bool, error) {
	record, err := t.write(ctx, queryCreateRequest, map[string]any{"from": fromID, "to": toID, "at": at})
	if err != nil {
		return false, err
	}
	return asInt(recordValue(record, "created")) > 0, nil
}

func (t *neo4jTx) DeleteRequest(ctx context.Context, fromID, toID string) (bool, error) {
	record, err := t.write(ctx, queryDeleteRequest, map[string]any{"from": fromID, "to": toID})
	if err != nil {
		return false, err
	}
	return asInt(recordValue(record, "deleted")) > 0, nil
}

func (t *neo4jTx) listRequests(ctx context.Context, query, userID string) ([]models.FriendRequest, error) {
	records, err := t.collect(ctx, query, map[string]any{"id": userID})
	if err != nil {
		return nil, err
	}
	requests := make([]models.FriendRequest, 0, len(records))
	for _, record := range records {
		requests = append(requests, models.FriendRequest{
			From:      userFromProps(asProps(recordValue(record, "from"))).BasicInfo(),
			To:        userFromProps(asProps(recordValue(record, "to"))).BasicInfo(),
			CreatedAt: asTime(recordValue(record, "created_at")),
		})
	}
	return requests, nil
}

func (t *neo4jTx) ListIncomingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return t.listRequests(ctx, queryIncomingRequests, userID)
}

func (t *neo4jTx) ListOutgoingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	return t.listRequests(ctx, queryOutgoingRequests, userID)
}

func (t *neo4jTx) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	return t.found(ctx, queryAreFriends, map[string]any{"a": userID, "b": otherID})
}

func (t *neo4jTx) CreateFriendship(ctx context.Context, userID, otherID string, at time.Time) error {
	_, err := t.write(ctx, queryCreateFriendship, map[string]any{"a": userID, "b": otherID, "at": at})
	return err
}

func (t *neo4jTx) DeleteFriendship(ctx context.Context, userID, otherID string) (int, error) {
	record, err := t.write(ctx, queryDeleteFriendship, map[string]any{"a": userID, "b": otherID})
	if err != nil {
		return 0, err
	}
	return asInt(recordValue(record, "deleted")), nil
}

func (t *neo4jTx) ListFriends(ctx context.Context, userID string) ([]models.User, error) {
	records, err := t.collect(ctx, queryListFriends, map[string]any{"id": userID})
	if err != nil {
		return nil, err
	}
	friends := make([]models.User, 0, len(records))
	for _, record := range records {
		friends = append(friends, userFromProps(asProps(recordValue(record, "user"))))
	}
	return friends, nil
}

func (t *neo4jTx) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	records, err := t.collect(ctx, queryFriendIDs, map[string]any{"id": userID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, asString(recordValue(record, "id")))
	}
	return ids, nil
}

func (t *neo4jTx) AsymmetricFriendships(ctx context.Context) ([]models.SymmetryViolation, error) {
	records, err := t.collect(ctx, queryAsymmetricFriendships, nil)
	if err != nil {
		return nil, err
	}
	violations := make([]models.SymmetryViolation, 0, len(records))
	for _, record := range records {
		violations = append(violations, models.SymmetryViolation{
			UserID:  asString(recordValue(record, "user_id")),
			OtherID: asString(recordValue(record, "other_id")),
		})
	}
	return violations, nil
}

func (t *neo4jTx) CreateGroup(ctx context.Context, group models.Group) (bool, error) {
	record, err := t.write(ctx, queryCreateGroup, map[string]any{
		"id":          group.ID,
		"name":        group.Name,
		"description": group.Description,
		"category":    group.Category,
		"cover_image": group.CoverImage,
		"is_public":   group.IsPublic,
		"created_by":  group.CreatedBy,
		"created_at":  group.CreatedAt,
	})
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

func (t *neo4jTx) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	record, err := t.single(ctx, queryGetGroup, map[string]any{"id": id})
	if err != nil || record == nil {
		return nil, err
	}
	group := groupFromProps(asProps(recordValue(record, "group")))
	return &group, nil
}

func (t *neo4jTx) UpdateGroup(ctx context.Context, id string, patch models.GroupPatch) (*models.Group, error) {
	record, err := t.write(ctx, queryUpdateGroup, map[string]any{"id": id, "props": patchProps(patch)})
	if err != nil || record == nil {
		return nil, err
	}
	group := groupFromProps(asProps(recordValue(record, "group")))
	return &group, nil
}

func (t *neo4jTx) GetMembership(ctx context.Context, userID, groupID string) (*models.GroupMember, error) {
	record, err := t.single(ctx, queryGetMembership, map[string]any{"user": userID, "group": groupID})
	if err != nil || record == nil {
		return nil, err
	}
	member := memberFromRecord(record, groupID)
	return &member, nil
}

func (t *neo4jTx) IsAdmin(ctx context.Context, userID, groupID string) (bool, error) {
	return t.found(ctx, queryIsAdmin, map[string]any{"user": userID, "group": groupID})
}

func (t *neo4jTx) AddMember(ctx context.Context, userID, groupID string, role models.GroupMemberRole, at time.Time) (bool, int, error) {
	record, err := t.write(ctx, queryAddMember, map[string]any{
		"user":  userID,
		"group": groupID,
		"role":  string(role),
		"at":    at,
	})
	if err != nil || record == nil {
		return false, 0, err
	}
	return true, asInt(recordValue(record, "member_count")), nil
}

func (t *neo4jTx) RemoveMember(ctx context.Context, userID, groupID string) (bool, int, error) {
	record, err := t.write(ctx, queryRemoveMember, map[string]any{"user": userID, "group": groupID})
	if err != nil || record == nil {
		return false, 0, err
	}
	return true, asInt(recordValue(record, "member_count")), nil
}

func (t *neo4jTx) PromoteMember(ctx context.Context, userID, groupID string, at time.Time) (bool, error) {
	record, err := t.write(ctx, queryPromoteMember, map[string]any{"user": userID, "group": groupID, "at": at})
	if err != nil {
		return false, err
	}
	return asInt(recordValue(record, "promoted")) > 0, nil
}

func (t *neo4jTx) AdminIDs(ctx context.Context, groupID string) ([]string, error) {
	records, err := t.collect(ctx, queryAdminIDs, map[string]any{"group": groupID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, asString(recordValue(record, "id")))
	}
	return ids, nil
}

func (t *neo4jTx) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	records, err := t.collect(ctx, queryListMembers, map[string]any{"group": groupID})
	if err != nil {
		return nil, err
	}
	members := make([]models.GroupMember, 0, len(records))
	for _, record := range records {
		members = append(members, memberFromRecord(record, groupID))
	}
	return members, nil
}

func (t *neo4jTx) ListUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	records, err := t.collect(ctx, queryListUserGroups, map[string]any{"user": userID})
	if err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(records))
	for _, record := range records {
		groups = append(groups, groupFromProps(asProps(recordValue(record, "group"))))
	}
	return groups, nil
}

func (t *neo4jTx) ViewerFlags(ctx context.Context, groupID, viewerID string) (models.ViewerFlags, error) {
	record, err := t.single(ctx, queryViewerFlags, map[string]any{"group": groupID, "viewer": viewerID})
	if err != nil || record == nil {
		return models.ViewerFlags{}, err
	}
	return models.ViewerFlags{
		IsAdmin:          asBool(recordValue(record, "is_admin"), false),
		IsMember:         asBool(recordValue(record, "is_member"), false),
		HasRequested:     asBool(recordValue(record, "has_requested"), false),
		PendingRequestID: asString(recordValue(record, "request_id")),
		MemberCount:      asInt(recordValue(record, "member_count")),
		FriendCount:      asInt(recordValue(record, "friend_count")),
	}, nil
}

func (t *neo4jTx) MemberCounts(ctx context.Context) ([]models.MemberCountDrift, error) {
	records, err := t.collect(ctx, queryMemberCounts, nil)
	if err != nil {
		return nil, err
	}
	counts := make([]models.MemberCountDrift, 0, len(records))
	for _, record := range records {
		counts = append(counts, models.MemberCountDrift{
			GroupID: asString(recordValue(record, "group_id")),
			Cached:  asInt(recordValue(record, "cached")),
			Actual:  asInt(recordValue(record, "actual")),
		})
	}
	return counts, nil
}

func (t *neo4jTx) SetMemberCount(ctx context.Context, groupID string, count int) error {
	_, err := t.write(ctx, querySetMemberCount, map[string]any{"group": groupID, "count": int64(count)})
	return err
}

func (t *neo4jTx) CreateJoinRequest(ctx context.Context, req models.JoinRequest) error {
	_, err := t.write(ctx, queryCreateJoinRequest, map[string]any{
		"id":         req.ID,
		"user":       req.UserID,
		"group":      req.GroupID,
		"status":     string(req.Status),
		"created_at": req.CreatedAt,
	})
	return err
}

func (t *neo4jTx) GetJoinRequest(ctx context.Context, id string) (*models.JoinRequest, error) {
	record, err := t.single(ctx, queryGetJoinRequest, map[string]any{"id": id})
	if err != nil || record == nil {
		return nil, err
	}
	req := joinRequestFromRecord(record)
	return &req, nil
}

func (t *neo4jTx) FindPendingJoinRequest(ctx context.Context, userID, groupID string) (*models.JoinRequest, error) {
	record, err := t.single(ctx, queryFindPendingJoinRequest, map[string]any{"user": userID, "group": groupID})
	if err != nil || record == nil {
		return nil, err
	}
	req := joinRequestFromRecord(record)
	return &req, nil
}

func (t *neo4jTx) DeleteJoinRequest(ctx context.Context, id string) (bool, error) {
	record, err := t.write(ctx, queryDeleteJoinRequest, map[string]any{"id": id})
	if err != nil {
		return false, err
	}
	return asInt(recordValue(record, "deleted")) > 0, nil
}

func (t *neo4jTx) ListJoinRequests(ctx context.Context, groupID string) ([]models.JoinRequestWithSender, error) {
	records, err := t.collect(ctx, queryListJoinRequests, map[string]any{"group": groupID})
	if err != nil {
		return nil, err
	}
	requests := make([]models.JoinRequestWithSender, 0, len(records))
	for _, record := range records {
		sender := userFromProps(asProps(recordValue(record, "user")))
		req := joinRequestFromRecord(record)
		req.UserID = sender.ID
		requests = append(requests, models.JoinRequestWithSender{JoinRequest: req, Sender: sender.BasicInfo()})
	}
	return requests, nil
}

func (t *neo4jTx) FriendOfFriendCandidates(ctx context.Context, userID string, limit int) ([]models.FriendSuggestion, error) {
	records, err := t.collect(ctx, queryFriendOfFriend, map[string]any{"user": userID, "limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	out := make([]models.FriendSuggestion, 0, len(records))
	for _, record := range records {
		out = append(out, models.FriendSuggestion{
			User:          userFromProps(asProps(recordValue(record, "user"))).BasicInfo(),
			MutualFriends: asInt(recordValue(record, "mutual")),
		})
	}
	return out, nil
}

func (t *neo4jTx) RandomUsers(ctx context.Context, excludeIDs []string, limit int) ([]models.User, error) {
	records, err := t.collect(ctx, queryRandomUsers, map[string]any{"exclude": nonNil(excludeIDs), "limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(records))
	for _, record := range records {
		users = append(users, userFromProps(asProps(recordValue(record, "user"))))
	}
	return users, nil
}

func (t *neo4jTx) FriendGroupCandidates(ctx context.Context, userID string, limit int) ([]models.GroupSuggestion, error) {
	records, err := t.collect(ctx, queryFriendGroups, map[string]any{"user": userID, "limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	out := make([]models.GroupSuggestion, 0, len(records))
	for _, record := range records {
		out = append(out, models.GroupSuggestion{
			Group:          groupFromProps(asProps(recordValue(record, "group"))),
			FriendsInGroup: asInt(recordValue(record, "friends")),
		})
	}
	return out, nil
}

func (t *neo4jTx) RandomGroups(ctx context.Context, excludeIDs []string, limit int) ([]models.Group, error) {
	records, err := t.collect(ctx, queryRandomGroups, map[string]any{"exclude": nonNil(excludeIDs), "limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(records))
	for _, record := range records {
		groups = append(groups, groupFromProps(asProps(recordValue(record, "group"))))
	}
	return groups, nil
}

// nonNil keeps `IN $exclude` well-defined; a nil slice is sent as null.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var _ GraphStore = (*neo4jGraphStore)(nil)
var _ GraphTx = (*neo4jTx)(nil)
