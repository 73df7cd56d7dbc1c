package services

import (
	"context"

	"go.uber.org/zap"

	"neosocial/internal/models"
)

// Notifier hands domain events to the notification subsystem.
type Notifier interface {
	Publish(ctx context.Context, event models.DomainEvent) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, models.DomainEvent) error { return nil }

// SuggestionCache stores computed suggestion lists per viewer. Implementations
// must treat a miss as (nil, false, nil).
type SuggestionCache interface {
	GetFriendSuggestions(ctx context.Context, userID string, limit int) ([]models.FriendSuggestion, bool, error)
	SetFriendSuggestions(ctx context.Context, userID string, limit int, suggestions []models.FriendSuggestion) error
	GetGroupSuggestions(ctx context.Context, userID string, limit int) ([]models.GroupSuggestion, bool, error)
	SetGroupSuggestions(ctx context.Context, userID string, limit int, suggestions []models.GroupSuggestion) error
	Invalidate(ctx context.Context, userIDs ...string) error
}

// PostReader is the content collaborator's read path.
type PostReader interface {
	ListByGroup(ctx context.Context, groupID string, limit int) ([]models.Post, error)
}

// publishAll is called after commit. Delivery failures are logged, never
// returned: the graph change already happened.
func publishAll(ctx context.Context, notifier Notifier, logger *zap.Logger, events ...models.DomainEvent) {
	if notifier == nil {
		return
	}
	for _, event := range events {
		if err := notifier.Publish(ctx, event); err != nil {
			logger.Warn("failed to publish domain event",
				zap.String("type", string(event.Type)),
				zap.String("actor_id", event.ActorID),
				zap.String("recipient_id", event.RecipientID),
				zap.String("target_id", event.TargetID),
				zap.Error(err))
		}
	}
}

func invalidateSuggestions(ctx context.Context, cache SuggestionCache, logger *zap.Logger, userIDs ...string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, userIDs...); err != nil {
		logger.Warn("failed to invalidate suggestion cache", zap.Strings("user_ids", userIDs), zap.Error(err))
	}
}
