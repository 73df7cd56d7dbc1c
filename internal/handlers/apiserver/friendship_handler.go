package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"neosocial/internal/services"
)

// FriendshipHandler handles HTTP requests related to friend requests and friendships.
type FriendshipHandler struct {
	friendService services.FriendshipService
	logger        *zap.Logger
}

// NewFriendshipHandler creates a new FriendshipHandler.
func NewFriendshipHandler(fs services.FriendshipService, logger *zap.Logger) *FriendshipHandler {
	return &FriendshipHandler{friendService: fs, logger: logger.Named("friends_http")}
}

// SendFriendRequestPayload defines the expected JSON body for sending a friend request.
type SendFriendRequestPayload struct {
	RecipientID string `json:"recipientId"`
}

// SendRequest handles POST /api/v1/friends/requests
func (h *FriendshipHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload SendFriendRequestPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.RecipientID == "" {
		writeJSONError(w, "缺少接收者ID (recipientId)", http.StatusBadRequest)
		return
	}

	if err := h.friendService.SendRequest(r.Context(), requesterID, payload.RecipientID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]string{"status": "request_sent"})
}

// AcceptRequest handles POST /api/v1/friends/requests/{senderId}/accept
func (h *FriendshipHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.friendService.AcceptRequest(r.Context(), recipientID, mux.Vars(r)["senderId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// RejectRequest handles POST /api/v1/friends/requests/{senderId}/reject
func (h *FriendshipHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.friendService.RejectRequest(r.Context(), recipientID, mux.Vars(r)["senderId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// CancelRequest handles DELETE /api/v1/friends/requests/{recipientId}
func (h *FriendshipHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	senderID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.friendService.CancelRequest(r.Context(), senderID, mux.Vars(r)["recipientId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRequests handles GET /api/v1/friends/requests
func (h *FriendshipHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	requests, err := h.friendService.ListRequests(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// ListSentRequests handles GET /api/v1/friends/requests/sent
func (h *FriendshipHandler) ListSentRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	requests, err := h.friendService.ListSentRequests(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// ListFriends handles GET /api/v1/friends
func (h *FriendshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	friends, err := h.friendService.ListFriends(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, friends)
}

// RemoveFriend handles DELETE /api/v1/friends/{friendId}
func (h *FriendshipHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.friendService.RemoveFriend(r.Context(), userID, mux.Vars(r)["friendId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FriendStatus handles GET /api/v1/friends/{userId}/status
func (h *FriendshipHandler) FriendStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	status, err := h.friendService.FriendStatus(r.Context(), userID, mux.Vars(r)["userId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"status": status})
}
