package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts every social-graph endpoint on api, which is expected
// to sit behind the auth middleware.
func RegisterRoutes(api *mux.Router, friends *FriendshipHandler, groups *GroupHandler, suggestions *SuggestionHandler) {
	// 好友
	api.HandleFunc("/friends", friends.ListFriends).Methods(http.MethodGet)
	api.HandleFunc("/friends/requests", friends.SendRequest).Methods(http.MethodPost)
	api.HandleFunc("/friends/requests", friends.ListRequests).Methods(http.MethodGet)
	api.HandleFunc("/friends/requests/sent", friends.ListSentRequests).Methods(http.MethodGet)
	api.HandleFunc("/friends/requests/{senderId}/accept", friends.AcceptRequest).Methods(http.MethodPost)
	api.HandleFunc("/friends/requests/{senderId}/reject", friends.RejectRequest).Methods(http.MethodPost)
	api.HandleFunc("/friends/requests/{recipientId}", friends.CancelRequest).Methods(http.MethodDelete)
	api.HandleFunc("/friends/{userId}/status", friends.FriendStatus).Methods(http.MethodGet)
	api.HandleFunc("/friends/{friendId}", friends.RemoveFriend).Methods(http.MethodDelete)

	// 群组
	api.HandleFunc("/groups", groups.CreateGroup).Methods(http.MethodPost)
	api.HandleFunc("/groups/mine", groups.ListMyGroups).Methods(http.MethodGet)
	api.HandleFunc("/groups/{groupId}", groups.GetGroup).Methods(http.MethodGet)
	api.HandleFunc("/groups/{groupId}", groups.UpdateGroup).Methods(http.MethodPatch)
	api.HandleFunc("/groups/{groupId}/join", groups.JoinGroup).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupId}/leave", groups.LeaveGroup).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupId}/members", groups.ListMembers).Methods(http.MethodGet)
	api.HandleFunc("/groups/{groupId}/members/{memberId}", groups.RemoveMember).Methods(http.MethodDelete)
	api.HandleFunc("/groups/{groupId}/members/{memberId}/promote", groups.PromoteMember).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupId}/join-requests", groups.ListJoinRequests).Methods(http.MethodGet)
	api.HandleFunc("/join-requests/{requestId}/review", groups.ReviewJoinRequest).Methods(http.MethodPost)
	api.HandleFunc("/join-requests/{requestId}", groups.CancelJoinRequest).Methods(http.MethodDelete)

	// 推荐
	api.HandleFunc("/suggestions/friends", suggestions.SuggestFriends).Methods(http.MethodGet)
	api.HandleFunc("/suggestions/groups", suggestions.SuggestGroups).Methods(http.MethodGet)
}
