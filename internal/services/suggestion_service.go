package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"neosocial/internal/config"
	"neosocial/internal/models"
	"neosocial/internal/storage"
)

// SuggestionService ranks users and groups by shared connections, then fills
// the list up to the limit with random candidates.
type SuggestionService interface {
	SuggestFriends(ctx context.Context, userID string, limit int) ([]models.FriendSuggestion, error)
	SuggestGroups(ctx context.Context, userID string, limit int) ([]models.GroupSuggestion, error)
}

type suggestionService struct {
	store  storage.GraphStore
	cache  SuggestionCache
	cfg    config.SuggestionsConfig
	logger *zap.Logger
}

// NewSuggestionService creates a new SuggestionService. cache may be nil.
func NewSuggestionService(store storage.GraphStore, cache SuggestionCache, cfg config.SuggestionsConfig, logger *zap.Logger) SuggestionService {
	return &suggestionService{store: store, cache: cache, cfg: cfg, logger: logger.Named("suggestions")}
}

func (s *suggestionService) clamp(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return limit
}

func (s *suggestionService) SuggestFriends(ctx context.Context, userID string, limit int) ([]models.FriendSuggestion, error) {
	limit = s.clamp(limit)
	if limit <= 0 {
		return []models.FriendSuggestion{}, nil
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetFriendSuggestions(ctx, userID, limit)
		if err != nil {
			s.logger.Warn("suggestion cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	var suggestions []models.FriendSuggestion
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		ranked, err := tx.FriendOfFriendCandidates(ctx, userID, limit)
		if err != nil {
			return err
		}
		suggestions = ranked
		if len(suggestions) >= limit {
			return nil
		}

		friendIDs, err := tx.FriendIDs(ctx, userID)
		if err != nil {
			return err
		}
		exclude := make([]string, 0, 1+len(friendIDs)+len(ranked))
		exclude = append(exclude, userID)
		exclude = append(exclude, friendIDs...)
		for _, r := range ranked {
			exclude = append(exclude, r.User.ID)
		}

		fill, err := tx.RandomUsers(ctx, exclude, limit-len(suggestions))
		if err != nil {
			return err
		}
		for _, u := range fill {
			suggestions = append(suggestions, models.FriendSuggestion{User: u.BasicInfo()})
		}
		return nil
	})
	if err != nil {
		s.logger.Error("suggest friends failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("suggest friends: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetFriendSuggestions(ctx, userID, limit, suggestions); err != nil {
			s.logger.Warn("suggestion cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return suggestions, nil
}

func (s *suggestionService) SuggestGroups(ctx context.Context, userID string, limit int) ([]models.GroupSuggestion, error) {
	limit = s.clamp(limit)
	if limit <= 0 {
		return []models.GroupSuggestion{}, nil
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetGroupSuggestions(ctx, userID, limit)
		if err != nil {
			s.logger.Warn("suggestion cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	var suggestions []models.GroupSuggestion
	err := s.store.Read(ctx, func(tx storage.GraphTx) error {
		ranked, err := tx.FriendGroupCandidates(ctx, userID, limit)
		if err != nil {
			return err
		}
		suggestions = ranked
		if len(suggestions) >= limit {
			return nil
		}

		joined, err := tx.ListUserGroups(ctx, userID)
		if err != nil {
			return err
		}
		exclude := make([]string, 0, len(joined)+len(ranked))
		for _, g := range joined {
			exclude = append(exclude, g.ID)
		}
		for _, r := range ranked {
			exclude = append(exclude, r.Group.ID)
		}

		fill, err := tx.RandomGroups(ctx, exclude, limit-len(suggestions))
		if err != nil {
			return err
		}
		for _, g := range fill {
			suggestions = append(suggestions, models.GroupSuggestion{Group: g})
		}
		return nil
	})
	if err != nil {
		s.logger.Error("suggest groups failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("suggest groups: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetGroupSuggestions(ctx, userID, limit, suggestions); err != nil {
			s.logger.Warn("suggestion cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return suggestions, nil
}
