package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neosocial/internal/config"
	"neosocial/internal/middleware"
	"neosocial/internal/models"
	"neosocial/internal/services"
	"neosocial/internal/storage"
)

const testUserHeader = "X-Test-User"

// newTestRouter wires the real services over the memory store. The auth
// middleware is replaced by one that trusts testUserHeader.
func newTestRouter(t *testing.T, userIDs ...string) *mux.Router {
	t.Helper()
	store := storage.NewMemoryGraphStore()
	err := store.Write(context.Background(), func(tx storage.GraphTx) error {
		for _, id := range userIDs {
			if err := tx.UpsertUser(context.Background(), models.User{ID: id, Name: "user " + id}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	logger := zap.NewNop()
	friendSvc := services.NewFriendshipService(store, nil, nil, logger)
	groupSvc := services.NewGroupMembershipService(store, services.NewAuthorizationGuard(store), nil, nil, nil, logger)
	suggestionSvc := services.NewSuggestionService(store, nil, config.SuggestionsConfig{DefaultLimit: 5, MaxLimit: 10}, logger)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(testUserHeader); id != "" {
				r = r.WithContext(middleware.WithUserID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	})
	RegisterRoutes(api,
		NewFriendshipHandler(friendSvc, logger),
		NewGroupHandler(groupSvc, logger),
		NewSuggestionHandler(suggestionSvc, logger),
	)
	return r
}

func do(t *testing.T, router http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestFriendshipEndpoints(t *testing.T) {
	router := newTestRouter(t, "u1", "u2")

	rec := do(t, router, http.MethodPost, "/api/v1/friends/requests", "u1", SendFriendRequestPayload{RecipientID: "u2"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/friends/requests", "u2", SendFriendRequestPayload{RecipientID: "u1"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_requested_or_friends", decode[ErrorResponse](t, rec).Code)

	rec = do(t, router, http.MethodGet, "/api/v1/friends/requests", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	incoming := decode[[]models.FriendRequest](t, rec)
	require.Len(t, incoming, 1)
	assert.Equal(t, "u1", incoming[0].From.ID)

	rec = do(t, router, http.MethodPost, "/api/v1/friends/requests/u1/accept", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/friends", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	friends := decode[[]models.User](t, rec)
	require.Len(t, friends, 1)
	assert.Equal(t, "u2", friends[0].ID)

	rec = do(t, router, http.MethodGet, "/api/v1/friends/u2/status", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "friends", decode[map[string]string](t, rec)["status"])

	rec = do(t, router, http.MethodDelete, "/api/v1/friends/u2", "u1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/v1/friends/u2", "u1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_friends", decode[ErrorResponse](t, rec).Code)
}

func TestFriendshipEndpoints_Validation(t *testing.T) {
	router := newTestRouter(t, "u1")

	rec := do(t, router, http.MethodPost, "/api/v1/friends/requests", "u1", SendFriendRequestPayload{RecipientID: "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "self_request", decode[ErrorResponse](t, rec).Code)

	rec = do(t, router, http.MethodPost, "/api/v1/friends/requests", "u1", SendFriendRequestPayload{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/friends/requests", "u1", SendFriendRequestPayload{RecipientID: "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/friends", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGroupEndpoints_PrivateJoinFlow(t *testing.T) {
	router := newTestRouter(t, "admin", "joiner")
	private := false

	rec := do(t, router, http.MethodPost, "/api/v1/groups", "admin", models.NewGroup{Name: "Chess", IsPublic: &private})
	require.Equal(t, http.StatusCreated, rec.Code)
	group := decode[models.Group](t, rec)
	require.NotEmpty(t, group.ID)
	assert.Equal(t, 1, group.MemberCount)

	rec = do(t, router, http.MethodPost, "/api/v1/groups/"+group.ID+"/join", "joiner", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	result := decode[models.JoinResult](t, rec)
	require.NotNil(t, result.Request)
	assert.False(t, result.AutoJoined)

	rec = do(t, router, http.MethodGet, "/api/v1/groups/"+group.ID+"/join-requests", "joiner", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/groups/"+group.ID+"/join-requests", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.JoinRequestWithSender](t, rec), 1)

	rec = do(t, router, http.MethodPost, "/api/v1/join-requests/"+result.Request.ID+"/review", "admin", ReviewJoinRequestPayload{Decision: "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/join-requests/"+result.Request.ID+"/review", "admin", ReviewJoinRequestPayload{Decision: models.JoinRequestApproved})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.JoinRequestApproved, decode[models.JoinRequest](t, rec).Status)

	rec = do(t, router, http.MethodGet, "/api/v1/groups/"+group.ID, "joiner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decode[models.GroupDetails](t, rec)
	assert.Equal(t, 2, details.Group.MemberCount)
	assert.True(t, details.IsMember)
	assert.False(t, details.IsAdmin)
	assert.NotNil(t, details.Posts)

	rec = do(t, router, http.MethodPost, "/api/v1/groups/"+group.ID+"/leave", "admin", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "sole_admin", decode[ErrorResponse](t, rec).Code)

	rec = do(t, router, http.MethodGet, "/api/v1/groups/mine", "joiner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Group](t, rec), 1)
}

func TestGroupEndpoints_AdminOperations(t *testing.T) {
	router := newTestRouter(t, "admin", "member")

	rec := do(t, router, http.MethodPost, "/api/v1/groups", "admin", models.NewGroup{Name: "Hikers"})
	require.Equal(t, http.StatusCreated, rec.Code)
	group := decode[models.Group](t, rec)

	rec = do(t, router, http.MethodPost, "/api/v1/groups/"+group.ID+"/join", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.JoinResult](t, rec).AutoJoined)

	name := "Mountain Hikers"
	rec = do(t, router, http.MethodPatch, "/api/v1/groups/"+group.ID, "member", models.GroupPatch{Name: &name})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPatch, "/api/v1/groups/"+group.ID, "admin", models.GroupPatch{Name: &name})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, name, decode[models.Group](t, rec).Name)

	rec = do(t, router, http.MethodPost, "/api/v1/groups/"+group.ID+"/members/member/promote", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AdminRole, decode[models.GroupMember](t, rec).Role)

	rec = do(t, router, http.MethodDelete, "/api/v1/groups/"+group.ID+"/members/member", "admin", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/groups/"+group.ID+"/members", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.GroupMember](t, rec), 1)

	rec = do(t, router, http.MethodGet, "/api/v1/groups/missing", "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggestionEndpoints(t *testing.T) {
	router := newTestRouter(t, "u1", "u2", "u3")

	rec := do(t, router, http.MethodGet, "/api/v1/suggestions/friends?limit=abc", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/suggestions/friends?limit=2", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	suggestions := decode[[]models.FriendSuggestion](t, rec)
	assert.Len(t, suggestions, 2)
	for _, s := range suggestions {
		assert.NotEqual(t, "u1", s.User.ID)
	}

	rec = do(t, router, http.MethodGet, "/api/v1/suggestions/groups", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.GroupSuggestion](t, rec))
}

func TestWriteServiceError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, zap.NewNop(), assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "internal", resp.Code)
	assert.NotContains(t, resp.Error, assert.AnError.Error())
}

func TestGroupEndpoints_EmptiedGroupRejectsJoins(t *testing.T) {
	router := newTestRouter(t, "owner", "late")

	rec := do(t, router, http.MethodPost, "/api/v1/groups", "owner", models.NewGroup{Name: "Ghost town"})
	require.Equal(t, http.StatusCreated, rec.Code)
	group := decode[models.Group](t, rec)

	rec = do(t, router, http.MethodPost, "/api/v1/groups/"+group.ID+"/leave", "owner", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/groups/"+group.ID+"/join", "late", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "group_inactive", decode[ErrorResponse](t, rec).Code)
}
