package kafkahandlers

import (
	"context"
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"neosocial/internal/models"
	"neosocial/internal/services"
)

// UserEventMessage is what the identity service publishes when a user registers
// or edits their profile.
type UserEventMessage struct {
	Type      string `json:"type"` // user_registered | user_updated
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// UserEventHandler mirrors identity-service users into the graph.
type UserEventHandler struct {
	users  services.UserService
	logger *zap.Logger
}

// NewUserEventHandler creates a new UserEventHandler.
func NewUserEventHandler(users services.UserService, logger *zap.Logger) *UserEventHandler {
	return &UserEventHandler{users: users, logger: logger.Named("user_events")}
}

// Handle is passed to the Kafka consumer as its MessageHandler.
// Malformed or invalid messages are logged and skipped so they do not block
// the partition; graph errors are returned and the offset is not committed.
func (h *UserEventHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	var event UserEventMessage
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Warn("skipping malformed user event", zap.ByteString("key", msg.Key), zap.Error(err))
		return nil
	}

	user := models.User{
		ID:        event.UserID,
		Name:      event.Name,
		Username:  event.Username,
		AvatarURL: event.AvatarURL,
	}
	if err := h.users.SyncUser(ctx, user); err != nil {
		if services.KindOf(err) == services.KindValidation {
			h.logger.Warn("skipping invalid user event", zap.String("type", event.Type), zap.String("user", event.UserID), zap.Error(err))
			return nil
		}
		return err
	}

	h.logger.Debug("user synced", zap.String("type", event.Type), zap.String("user", event.UserID))
	return nil
}
