package apiserver

import (
	"net/http"

	"go.uber.org/zap"

	"neosocial/internal/services"
)

// SuggestionHandler serves friend and group recommendations for the current user.
type SuggestionHandler struct {
	suggestions services.SuggestionService
	logger      *zap.Logger
}

// NewSuggestionHandler creates a new SuggestionHandler.
func NewSuggestionHandler(suggestions services.SuggestionService, logger *zap.Logger) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions, logger: logger.Named("suggestions_http")}
}

// SuggestFriends handles GET /api/v1/suggestions/friends?limit=N
func (h *SuggestionHandler) SuggestFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	suggestions, err := h.suggestions.SuggestFriends(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, suggestions)
}

// SuggestGroups handles GET /api/v1/suggestions/groups?limit=N
func (h *SuggestionHandler) SuggestGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	suggestions, err := h.suggestions.SuggestGroups(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, suggestions)
}
