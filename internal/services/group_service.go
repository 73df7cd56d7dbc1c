package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neosocial/internal/models"
	"neosocial/internal/storage"
)

const (
	maxGroupNameLength = 100
	detailsPostLimit   = 20
)

// GroupMembershipService owns groups, roles and the join-request lifecycle.
type GroupMembershipService interface {
	CreateGroup(ctx context.Context, creatorID string, attrs models.NewGroup) (*models.Group, error)
	SubmitJoinRequest(ctx context.Context, userID, groupID string) (*models.JoinResult, error)
	ReviewJoinRequest(ctx context.Context, reviewerID, requestID string, decision models.JoinRequestStatus) (*models.JoinRequest, error)
	CancelJoinRequest(ctx context.Context, userID, requestID string) error
	LeaveGroup(ctx context.Context, userID, groupID string) error
	RemoveMember(ctx context.Context, adminID, groupID, memberID string) error
	UpdateGroup(ctx context.Context, adminID, groupID string, patch models.GroupPatch) (*models.Group, error)
	PromoteMember(ctx context.Context, adminID, groupID, memberID string) (*models.GroupMember, error)
	GetGroupDetails(ctx context.Context, groupID, viewerID string) (*models.GroupDetails, error)
	ListJoinRequests(ctx context.Context, adminID, groupID string) ([]models.JoinRequestWithSender, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	ListUserGroups(ctx context.Context, userID string) ([]models.Group, error)
	// ReconcileMemberCounts reports groups whose member_count disagrees with
	// their MEMBER_OF edges and, when repair is set, rewrites the counter.
	ReconcileMemberCounts(ctx context.Context, repair bool) ([]models.MemberCountDrift, error)
}

type groupMembershipService struct {
	store    storage.GraphStore
	guard    AuthorizationGuard
	posts    PostReader
	notifier Notifier
	cache    SuggestionCache
	logger   *zap.Logger
}

// NewGroupMembershipService creates a new GroupMembershipService. posts, notifier and cache may be nil.
func NewGroupMembershipService(
	store storage.GraphStore,
	guard AuthorizationGuard,
	posts PostReader,
	notifier Notifier,
	cache SuggestionCache,
	logger *zap.Logger,
) GroupMembershipService {
	return &groupMembershipService{
		store:    store,
		guard:    guard,
		posts:    posts,
		notifier: notifier,
		cache:    cache,
		logger:   logger.Named("groups"),
	}
}

func validateGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxGroupNameLength {
		return "", ErrInvalidGroup
	}
	return name, nil
}

func (s *groupMembershipService) CreateGroup(ctx context.Context, creatorID string, attrs models.NewGroup) (*models.Group, error) {
	name, err := validateGroupName(attrs.Name)
	if err != nil {
		return nil, err
	}

	isPublic := true
	if attrs.IsPublic != nil {
		isPublic = *attrs.IsPublic
	}

	group := models.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: attrs.Description,
		Category:    attrs.Category,
		CoverImage:  attrs.CoverImage,
		IsPublic:    isPublic,
		IsActive:    true,
		MemberCount: 1,
		CreatedBy:   creatorID,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.store.Write(ctx, func(tx storage.GraphTx) error {
		created, err := tx.CreateGroup(ctx, group)
		if err != nil {
			return err
		}
		if !created {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, fail(s.logger, "create group", err)
	}

	s.logger.Info("group created", zap.String("group_id", group.ID), zap.String("creator", creatorID), zap.Bool("public", isPublic))
	invalidateSuggestions(ctx, s.cache, s.logger, creatorID)
	return &group, nil
}

func (s *groupMembershipService) SubmitJoinRequest(ctx context.Context, userID, groupID string) (*models.JoinResult, error) {
	now := time.Now().UTC()
	var (
		result   models.JoinResult
		adminIDs []string
	)

	err := s.store.Write(ctx, func(tx storage.GraphTx) error {
		if err := tx.LockGroup(ctx, groupID); err != nil {
			return err
		}
		group, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		if !group.IsActive {
			return ErrGroupInactive
		}
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		member, err := tx.GetMembership(ctx, userID, groupID)
		if err != nil {
			return err
		}
		if member != nil {
			return ErrAlreadyMember
		}

		pending, err := tx.FindPendingJoinRequest(ctx, userID, groupID)
		if err != nil {
			return err
		}

		// Public groups skip the pending state. A request left over from when
		// the group was private is dropped along the way.
		if group.IsPublic {
			if pending != nil {
				if _, err := tx.DeleteJoinRequest(ctx, pending.ID); err != nil {
					return err
				}
			}
			joined, err := admitMember(ctx, tx, userID, groupID, now)
			if err != nil {
				return err
			}
			joined.User = user.BasicInfo()
			result = models.JoinResult{
				AutoJoined:  true,
				MemberCount: joined.count,
				Member:      &joined.GroupMember,
			}
			return nil
		}

		if pending != nil {
			return ErrJoinRequestExists
		}

		req := models.JoinRequest{
			ID:        uuid.NewString(),
			UserID:    userID,
			GroupID:   groupID,
			Status:    models.JoinRequestPending,
			CreatedAt: now,
		}
		if err := tx.CreateJoinRequest(ctx, req); err != nil {
			return err
		}
		adminIDs, err = tx.AdminIDs(ctx, groupID)
		if err != nil {
			return err
		}
		result = models.JoinResult{Request: &req, MemberCount: group.MemberCount}
		return nil
	})
	if err != nil {
		return nil, fail(s.logger, "submit join request", err)
	}

	if result.AutoJoined {
		s.logger.Info("user auto-joined public group", zap.String("user", userID), zap.String("group_id", groupID), zap.Int("member_count", result.MemberCount))
		invalidateSuggestions(ctx, s.cache, s.logger, userID)
		return &result, nil
	}

	s.logger.Info("join request submitted", zap.String("user", userID), zap.String("group_id", groupID), zap.String("request_id", result.Request.ID))
	events := make([]models.DomainEvent, 0, len(adminIDs))
	for _, adminID := range adminIDs {
		events = append(events, models.DomainEvent{
			Type:        models.EventJoinRequestSubmitted,
			ActorID:     userID,
			RecipientID: adminID,
			TargetType:  models.TargetGroup,
			TargetID:    groupID,
			OccurredAt:  now,
		})
	}
	publishAll(ctx, s.notifier, s.logger, events...)
	return &result, nil
}

type admission struct {
	models.GroupMember
	count int
}

// admitMember adds userID as a member. A group that has somehow lost every
// admin hands the role to the newcomer so it never runs unmanaged.
func admitMember(ctx context.Context, tx storage.GraphTx, userID, groupID string, at time.Time) (*admission, error) {
	added, count, err := tx.AddMember(ctx, userID, groupID, models.MemberRole, at)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, ErrAlreadyMember
	}
	joined := &admission{
		GroupMember: models.GroupMember{GroupID: groupID, Role: models.MemberRole, JoinedAt: at},
		count:       count,
	}

	admins, err := tx.AdminIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(admins) == 0 {
		if _, err := tx.PromoteMember(ctx, userID, groupID, at); err != nil {
			return nil, err
		}
		joined.Role = models.AdminRole
	}
	return joined, nil
}

func (s *groupMembershipService) ReviewJoinRequest(ctx context.Context, reviewerID, requestID string, decision models.JoinRequestStatus) (*models.JoinRequest, error) {
	if decision != models.JoinRequestApproved && decision != models.JoinRequestRejected {
		return nil, ErrInvalidDecision
	}

	var req *models.JoinRequest
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		req, err = tx.GetJoinRequest(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "review join request", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if err := s.guard.RequireAdmin(ctx, reviewerID, req.GroupID); err != nil {
		return nil, fail(s.logger, "review join request", err)
	}

	now := time.Now().UTC()
	err = s.store.Write(ctx, func(tx storage.GraphTx) error {
		if err := tx.LockGroup(ctx, req.GroupID); err != nil {
			return err
		}
		// A concurrent reviewer may have resolved it since the read above.
		deleted, err := tx.DeleteJoinRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrRequestNotFound
		}
		if decision != models.JoinRequestApproved {
			return nil
		}
		group, err := tx.GetGroup(ctx, req.GroupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		if !group.IsActive {
			return ErrGroupInactive
		}
		joined, err := admitMember(ctx, tx, req.UserID, req.GroupID, now)
		if errors.Is(err, ErrAlreadyMember) {
			s.logger.Debug("approved user already a member", zap.String("user", req.UserID), zap.String("group_id", req.GroupID))
			return nil
		}
		if err != nil {
			return err
		}
		s.logger.Debug("join request approved", zap.Int("member_count", joined.count))
		return nil
	})
	if err != nil {
		return nil, fail(s.logger, "review join request", err)
	}

	req.Status = decision
	req.ReviewedAt = &now
	req.ReviewedBy = reviewerID

	eventType := models.EventJoinRequestRejected
	if decision == models.JoinRequestApproved {
		eventType = models.EventJoinRequestApproved
		invalidateSuggestions(ctx, s.cache, s.logger, req.UserID)
	}
	s.logger.Info("join request reviewed",
		zap.String("request_id", requestID),
		zap.String("group_id", req.GroupID),
		zap.String("reviewer", reviewerID),
		zap.String("decision", string(decision)))
	publishAll(ctx, s.notifier, s.logger, models.DomainEvent{
		Type:        eventType,
		ActorID:     reviewerID,
		RecipientID: req.UserID,
		TargetType:  models.TargetGroup,
		TargetID:    req.GroupID,
		OccurredAt:  now,
	})
	return req, nil
}

func (s *groupMembershipService) CancelJoinRequest(ctx context.Context, userID, requestID string) error {
	err := s.store.Write(ctx, func(tx storage.GraphTx) error {
		req, err := tx.GetJoinRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return ErrRequestNotFound
		}
		if err := tx.LockGroup(ctx, req.GroupID); err != nil {
			return err
		}
		if req.UserID != userID {
			return ErrNotOwner
		}
		deleted, err := tx.DeleteJoinRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrRequestNotFound
		}
		return nil
	})
	if err != nil {
		return fail(s.logger, "cancel join request", err)
	}
	s.logger.Info("join request cancelled", zap.String("request_id", requestID), zap.String("user", userID))
	return nil
}

// checkSoleAdmin refuses to let the only admin go while other members remain.
func checkSoleAdmin(ctx context.Context, tx storage.GraphTx, userID string, group *models.Group) error {
	isAdmin, err := tx.IsAdmin(ctx, userID, group.ID)
	if err != nil || !isAdmin {
		return err
	}
	admins, err := tx.AdminIDs(ctx, group.ID)
	if err != nil {
		return err
	}
	if len(admins) == 1 && group.MemberCount > 1 {
		return ErrSoleAdmin
	}
	return nil
}

// dropMember removes userID and deactivates the group once nobody is left,
// since an empty group has no admin who could manage it again.
func dropMember(ctx context.Context, tx storage.GraphTx, userID, groupID string) (removed bool, remaining int, err error) {
	removed, remaining, err = tx.RemoveMember(ctx, userID, groupID)
	if err != nil || !removed || remaining > 0 {
		return removed, remaining, err
	}
	inactive := false
	if _, err := tx.UpdateGroup(ctx, groupID, models.GroupPatch{IsActive: &inactive}); err != nil {
		return false, 0, err
	}
	return true, 0, nil
}

func (s *groupMembershipService) LeaveGroup(ctx context.Context, userID, groupID string) error {
	var remaining int
	err := s.store.Write(ctx, func(tx storage.GraphTx) error {
		if err := tx.LockGroup(ctx, groupID); err != nil {
			return err
		}
		group, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		member, err := tx.GetMembership(ctx, userID, groupID)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrNotAMember
		}
		if err := checkSoleAdmin(ctx, tx, userID, group); err != nil {
			return err
		}
		removed, count, err := dropMember(ctx, tx, userID, groupID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotAMember
		}
		remaining = count
		return nil
	})
	if err != nil {
		return fail(s.logger, "leave group", err)
	}

	s.logger.Info("user left group", zap.String("user", userID), zap.String("group_id", groupID), zap.Int("member_count", remaining))
	if remaining == 0 {
		s.logger.Info("group deactivated after last member left", zap.String("group_id", groupID))
	}
	invalidateSuggestions(ctx, s.cache, s.logger, userID)
	return nil
}

// requireGroupAdmin distinguishes a missing group from a caller without admin rights.
func (s *groupMembershipService) requireGroupAdmin(ctx context.Context, userID, groupID string) (*models.Group, error) {
	var group *models.Group
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		group, err = tx.GetGroup(ctx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	if err := s.guard.RequireAdmin(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *groupMembershipService) RemoveMember(ctx context.Context, adminID, groupID, memberID string) error {
	if _, err := s.requireGroupAdmin(ctx, adminID, groupID); err != nil {
		return fail(s.logger, "remove member", err)
	}

	err := s.store.Write(ctx, func(tx storage.GraphTx) error {
		if err := tx.LockGroup(ctx, groupID); err != nil {
			return err
		}
		group, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		member, err := tx.GetMembership(ctx, memberID, groupID)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrMemberNotFound
		}
		if err := checkSoleAdmin(ctx, tx, memberID, group); err != nil {
			return err
		}
		removed, _, err := dropMember(ctx, tx, memberID, groupID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrMemberNotFound
		}
		return nil
	})
	if err != nil {
		return fail(s.logger, "remove member", err)
	}

	s.logger.Info("member removed", zap.String("admin", adminID), zap.String("member", memberID), zap.String("group_id", groupID))
	invalidateSuggestions(ctx, s.cache, s.logger, memberID)
	publishAll(ctx, s.notifier, s.logger, models.DomainEvent{
		Type:        models.EventMemberRemoved,
		ActorID:     adminID,
		RecipientID: memberID,
		TargetType:  models.TargetGroup,
		TargetID:    groupID,
		OccurredAt:  time.Now().UTC(),
	})
	return nil
}

func (s *groupMembershipService) UpdateGroup(ctx context.Context, adminID, groupID string, patch models.GroupPatch) (*models.Group, error) {
	current, err := s.requireGroupAdmin(ctx, adminID, groupID)
	if err != nil {
		return nil, fail(s.logger, "update group", err)
	}
	if patch.Name != nil {
		name, err := validateGroupName(*patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.Empty() {
		return current, nil
	}

	var updated *models.Group
	err = s.store.Write(ctx, func(tx storage.GraphTx) error {
		var err error
		updated, err = tx.UpdateGroup(ctx, groupID, patch)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrGroupNotFound
		}
		return nil
	})
	if err != nil {
		return nil, fail(s.logger, "update group", err)
	}
	s.logger.Info("group updated", zap.String("group_id", groupID), zap.String("admin", adminID))
	return updated, nil
}

func (s *groupMembershipService) PromoteMember(ctx context.Context, adminID, groupID, memberID string) (*models.GroupMember, error) {
	if _, err := s.requireGroupAdmin(ctx, adminID, groupID); err != nil {
		return nil, fail(s.logger, "promote member", err)
	}

	var member *models.GroupMember
	err := s.store.Write(ctx, func(tx storage.GraphTx) error {
		if err := tx.LockGroup(ctx, groupID); err != nil {
			return err
		}
		promoted, err := tx.PromoteMember(ctx, memberID, groupID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !promoted {
			return ErrMemberNotFound
		}
		member, err = tx.GetMembership(ctx, memberID, groupID)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "promote member", err)
	}
	s.logger.Info("member promoted to admin", zap.String("group_id", groupID), zap.String("member", memberID), zap.String("admin", adminID))
	return member, nil
}

func (s *groupMembershipService) GetGroupDetails(ctx context.Context, groupID, viewerID string) (*models.GroupDetails, error) {
	var details models.GroupDetails
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		group, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		details.Group = *group

		// One statement for every flag, so they describe the same snapshot.
		details.ViewerFlags, err = tx.ViewerFlags(ctx, groupID, viewerID)
		if err != nil {
			return err
		}
		details.Members, err = tx.ListMembers(ctx, groupID)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "get group details", err)
	}

	details.Posts = []models.Post{}
	if s.posts != nil {
		posts, err := s.posts.ListByGroup(ctx, groupID, detailsPostLimit)
		if err != nil {
			return nil, fail(s.logger, "get group posts", err)
		}
		details.Posts = posts
	}
	return &details, nil
}

func (s *groupMembershipService) ListJoinRequests(ctx context.Context, adminID, groupID string) ([]models.JoinRequestWithSender, error) {
	if _, err := s.requireGroupAdmin(ctx, adminID, groupID); err != nil {
		return nil, fail(s.logger, "list join requests", err)
	}
	var requests []models.JoinRequestWithSender
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		requests, err = tx.ListJoinRequests(ctx, groupID)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "list join requests", err)
	}
	return requests, nil
}

func (s *groupMembershipService) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		group, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		members, err = tx.ListMembers(ctx, groupID)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "list members", err)
	}
	return members, nil
}

func (s *groupMembershipService) ListUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		groups, err = tx.ListUserGroups(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "list user groups", err)
	}
	return groups, nil
}

func (s *groupMembershipService) ReconcileMemberCounts(ctx context.Context, repair bool) ([]models.MemberCountDrift, error) {
	var counts []models.MemberCountDrift
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		counts, err = tx.MemberCounts(ctx)
		return err
	})
	if err != nil {
		return nil, fail(s.logger, "reconcile member counts", err)
	}

	drifts := []models.MemberCountDrift{}
	for _, c := range counts {
		if !c.Drifted() {
			continue
		}
		s.logger.Error("member_count drift detected",
			zap.String("group_id", c.GroupID),
			zap.Int("cached", c.Cached),
			zap.Int("actual", c.Actual))
		drifts = append(drifts, c)
	}
	if !repair || len(drifts) == 0 {
		return drifts, nil
	}

	err = s.store.Write(ctx, func(tx storage.GraphTx) error {
		for _, d := range drifts {
			if err := tx.SetMemberCount(ctx, d.GroupID, d.Actual); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fail(s.logger, "repair member counts", err)
	}
	s.logger.Warn("member_count repaired", zap.Int("groups", len(drifts)))
	return drifts, nil
}
