package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"neosocial/internal/models"
	"neosocial/internal/storage"
)

// FriendshipService owns the friend-request lifecycle and the symmetric FRIENDS_WITH relation.
type FriendshipService interface {
	SendRequest(ctx context.Context, fromID, toID string) error
	AcceptRequest(ctx context.Context, recipientID, senderID string) error
	RejectRequest(ctx context.Context, recipientID, senderID string) error
	CancelRequest(ctx context.Context, senderID, recipientID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	ListFriends(ctx context.Context, userID string) ([]models.User, error)
	ListRequests(ctx context.Context, userID string) ([]models.FriendRequest, error)
	ListSentRequests(ctx context.Context, userID string) ([]models.FriendRequest, error)
	FriendStatus(ctx context.Context, userID, otherID string) (models.FriendStatus, error)
	CheckSymmetry(ctx context.Context) ([]models.SymmetryViolation, error)
}

type friendshipService struct {
	store    storage.GraphStore
	notifier Notifier
	cache    SuggestionCache
	logger   *zap.Logger
}

// NewFriendshipService creates a new FriendshipService. notifier and cache may be nil.
func NewFriendshipService(store storage.GraphStore, notifier Notifier, cache SuggestionCache, logger *zap.Logger) FriendshipService {
	return &friendshipService{
		store:    store,
		notifier: notifier,
		cache:    cache,
		logger:   logger.Named("friendship"),
	}
}

func (s *friendshipService) SendRequest(ctx context.Context, fromID, toID string) error {
	if fromID == toID {
		return ErrSelfRequest
	}

	now := time.Now().UTC()
	err := s.store.Write(ctx, func(tx storage.GraphTx) error {
		if err := tx.LockUsers(ctx, fromID, toID); err != nil {
			return err
		}
		for _, id := range []string{fromID, toID} {
			user, err := tx.GetUser(ctx, id)
			if err != nil {
				return err
			}
			if user == nil {
				return ErrUserNotFound
			}
		}

		created, err := tx.CreateRequest(ctx, fromID, toID, now)
		if err != nil {
			return err
		}
		if !created {
			return ErrAlreadyRequestedOrFriends
		}
		return nil
	})
	if err != nil {
		return fail(s.logger, "send friend request", err)
	}

	s.logger.Info("friend request sent", zap.String("from", fromID), zap.String("to", toID))
	invalidateSuggestions(ctx, s.cache, s.logger, fromID, toID)
	publishAll(ctx, s.notifier, s.logger, models.DomainEvent{
		Type:        models.EventFriendRequestSent,
		ActorID:     fromID,
		RecipientID: toID,
		TargetType:  models.TargetUser,
		TargetID:    fromID,
		OccurredAt:  now,
	})
	return nil
}

func (s *friendshipService) AcceptRequest(ctx context.Context, recipientID, senderID string) error {
	now := time.Now().UTC()
	err := s.store.Write(ctx, func(tx storage.GraphTx) error {
		if err := tx.LockUsers(ctx, recipientID, senderID); err != nil {
			return err
		}
		deleted, err := tx.DeleteRequest(ctx, senderID, recipientID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrRequestNotFound
		}
		// CreateRequest refuses a reverse request, but clear one if it slipped in.
		if _, err := tx.DeleteRequest(ctx, recipientID, senderID); err != nil {
			return err
		}
		return tx.CreateFriendship(ctx, recipientID, senderID, now)
	})
	if err != nil {
		return fail(s.logger, "accept friend request", err)
	}

	s.logger.Info("friend request accepted", zap.String("recipient", recipientID), zap.String("sender", senderID))
	invalidateSuggestions(ctx, s.cache, s.logger, recipientID, senderID)
	publishAll(ctx, s.notifier, s.logger, models.DomainEvent{
		Type:        models.EventFriendRequestAccepted,
		ActorID:     recipientID,
		RecipientID: senderID,
		TargetType:  models.TargetUser,
		TargetID:    recipientID,
		OccurredAt:  now,
	})
	return nil
}

func (s *friendshipService) RejectRequest(ctx context.Context, recipientID, senderID string) error {
	if err := s.deleteRequest(ctx, senderID, recipientID); err != nil {
		return fail(s.logger, "reject friend request", err)
	}
	s.logger.Info("friend request rejected", zap.String("recipient", recipientID), zap.String("sender", senderID))
	invalidateSuggestions(ctx, s.cache, s.logger, recipientID, senderID)
	return nil
}

func (s *friendshipService) CancelRequest(ctx context.Context, senderID, recipientID string) error {
	if err := s.deleteRequest(ctx, senderID, recipientID); err != nil {
		return fail(s.logger, "cancel friend request", err)
	}
	s.logger.Info("friend request cancelled", zap.String("sender", senderID), zap.String("recipient", recipientID))
	invalidateSuggestions(ctx, s.cache, s.logger, recipientID, senderID)
	return nil
}

func (s *friendshipService) deleteRequest(ctx context.Context, senderID, recipientID string) error {
	return s.store.Write(ctx, func(tx storage.GraphTx) error {
		if err := tx.LockUsers(ctx, senderID, recipientID); err != nil {
			return err
		}
		deleted, err := tx.DeleteRequest(ctx, senderID, recipientID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrRequestNotFound
		}
		return nil
	})
}

func (s *friendshipService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	err := s.store.Write(ctx, func(tx storage.GraphTx) error {
		if err := tx.LockUsers(ctx, userID, friendID); err != nil {
			return err
		}
		deleted, err := tx.DeleteFriendship(ctx, userID, friendID)
		if err != nil {
			return err
		}
		switch deleted {
		case 0:
			return ErrNotFriends
		case 2:
			return nil
		default:
			s.logger.Error("asymmetric friendship detected",
				zap.String("user_id", userID),
				zap.String("friend_id", friendID),
				zap.Int("edges", deleted))
			return ErrConsistency
		}
	})
	if err != nil {
		return fail(s.logger, "remove friend", err)
	}

	s.logger.Info("friend removed", zap.String("user", userID), zap.String("friend", friendID))
	invalidateSuggestions(ctx, s.cache, s.logger, userID, friendID)
	return nil
}

func (s *friendshipService) ListFriends(ctx context.Context, userID string) ([]models.User, error) {
	var friends []models.User
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		friends, err = tx.ListFriends(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

func (s *friendshipService) ListRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		requests, err = tx.ListIncomingRequests(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	return requests, nil
}

func (s *friendshipService) ListSentRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		requests, err = tx.ListOutgoingRequests(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list sent friend requests: %w", err)
	}
	return requests, nil
}

func (s *friendshipService) FriendStatus(ctx context.Context, userID, otherID string) (models.FriendStatus, error) {
	status := models.FriendStatusNone
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		friends, err := tx.AreFriends(ctx, userID, otherID)
		if err != nil || friends {
			if friends {
				status = models.FriendStatusFriends
			}
			return err
		}
		sent, err := tx.HasRequest(ctx, userID, otherID)
		if err != nil || sent {
			if sent {
				status = models.FriendStatusRequestSent
			}
			return err
		}
		received, err := tx.HasRequest(ctx, otherID, userID)
		if received {
			status = models.FriendStatusRequestReceived
		}
		return err
	})
	if err != nil {
		return models.FriendStatusNone, fmt.Errorf("friend status: %w", err)
	}
	return status, nil
}

// CheckSymmetry reports every one-directional FRIENDS_WITH edge. It never repairs them.
func (s *friendshipService) CheckSymmetry(ctx context.Context) ([]models.SymmetryViolation, error) {
	var violations []models.SymmetryViolation
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		var err error
		violations, err = tx.AsymmetricFriendships(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("check friendship symmetry: %w", err)
	}
	for _, v := range violations {
		s.logger.Error("asymmetric friendship edge",
			zap.String("user_id", v.UserID),
			zap.String("other_id", v.OtherID))
	}
	return violations, nil
}
