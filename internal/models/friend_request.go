package models

import "time"

// FriendRequest is a pending REQUESTED edge from one user to another.
// There is no status: accepting, rejecting or cancelling deletes the edge.
type FriendRequest struct {
	From      UserBasicInfo `json:"from"`
	To        UserBasicInfo `json:"to"`
	CreatedAt time.Time     `json:"createdAt"`
}
