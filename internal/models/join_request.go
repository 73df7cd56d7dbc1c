package models

import "time"

// JoinRequestStatus is the state of a JoinRequest node.
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestApproved JoinRequestStatus = "approved"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

// JoinRequest is a transient node linked (User)-[:SUBMITTED]->(JoinRequest)-[:FOR_GROUP]->(Group).
// Only pending requests are ever stored; ReviewedAt and ReviewedBy are filled on the
// value returned from a review, after the node itself has been deleted.
type JoinRequest struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	GroupID    string            `json:"groupId"`
	Status     JoinRequestStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	ReviewedAt *time.Time        `json:"reviewedAt,omitempty"`
	ReviewedBy string            `json:"reviewedBy,omitempty"`
}

// JoinRequestWithSender is a pending request enriched with its sender, for admin listings.
type JoinRequestWithSender struct {
	JoinRequest
	Sender UserBasicInfo `json:"sender"`
}

// JoinResult is the outcome of submitting a join request.
// Public groups are joined directly and AutoJoined is set; otherwise Request holds the pending request.
type JoinResult struct {
	AutoJoined  bool         `json:"autoJoined"`
	Request     *JoinRequest `json:"request,omitempty"`
	Member      *GroupMember `json:"member,omitempty"`
	MemberCount int          `json:"memberCount"`
}
