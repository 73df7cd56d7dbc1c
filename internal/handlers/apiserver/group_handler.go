package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"neosocial/internal/models"
	"neosocial/internal/services"
)

// GroupHandler 封装了群组相关的 HTTP 处理器方法。
type GroupHandler struct {
	groupService services.GroupMembershipService
	logger       *zap.Logger
}

// NewGroupHandler 创建一个新的 GroupHandler 实例。
func NewGroupHandler(groupService services.GroupMembershipService, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{groupService: groupService, logger: logger.Named("groups_http")}
}

// ReviewJoinRequestPayload 是审批入群申请的请求体，decision 为 approved 或 rejected。
type ReviewJoinRequestPayload struct {
	Decision models.JoinRequestStatus `json:"decision"`
}

// CreateGroup handles POST /api/v1/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.NewGroup
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.groupService.CreateGroup(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, group)
}

// GetGroup handles GET /api/v1/groups/{groupId}
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	details, err := h.groupService.GetGroupDetails(r.Context(), mux.Vars(r)["groupId"], userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, details)
}

// UpdateGroup handles PATCH /api/v1/groups/{groupId}
func (h *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var patch models.GroupPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	group, err := h.groupService.UpdateGroup(r.Context(), userID, mux.Vars(r)["groupId"], patch)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, group)
}

// ListMyGroups handles GET /api/v1/groups/mine
func (h *GroupHandler) ListMyGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	groups, err := h.groupService.ListUserGroups(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, groups)
}

// JoinGroup handles POST /api/v1/groups/{groupId}/join.
// Public groups answer 200 with the membership, private ones 202 with the pending request.
func (h *GroupHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	result, err := h.groupService.SubmitJoinRequest(r.Context(), userID, mux.Vars(r)["groupId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	status := http.StatusAccepted
	if result.AutoJoined {
		status = http.StatusOK
	}
	writeJSONResponse(w, status, result)
}

// LeaveGroup handles POST /api/v1/groups/{groupId}/leave
func (h *GroupHandler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.groupService.LeaveGroup(r.Context(), userID, mux.Vars(r)["groupId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /api/v1/groups/{groupId}/members
func (h *GroupHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	members, err := h.groupService.ListMembers(r.Context(), mux.Vars(r)["groupId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, members)
}

// RemoveMember handles DELETE /api/v1/groups/{groupId}/members/{memberId}
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.groupService.RemoveMember(r.Context(), adminID, vars["groupId"], vars["memberId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PromoteMember handles POST /api/v1/groups/{groupId}/members/{memberId}/promote
func (h *GroupHandler) PromoteMember(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	member, err := h.groupService.PromoteMember(r.Context(), adminID, vars["groupId"], vars["memberId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, member)
}

// ListJoinRequests handles GET /api/v1/groups/{groupId}/join-requests
func (h *GroupHandler) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	requests, err := h.groupService.ListJoinRequests(r.Context(), adminID, mux.Vars(r)["groupId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// ReviewJoinRequest handles POST /api/v1/join-requests/{requestId}/review
func (h *GroupHandler) ReviewJoinRequest(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload ReviewJoinRequestPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	req, err := h.groupService.ReviewJoinRequest(r.Context(), reviewerID, mux.Vars(r)["requestId"], payload.Decision)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, req)
}

// CancelJoinRequest handles DELETE /api/v1/join-requests/{requestId}
func (h *GroupHandler) CancelJoinRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.groupService.CancelJoinRequest(r.Context(), userID, mux.Vars(r)["requestId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
