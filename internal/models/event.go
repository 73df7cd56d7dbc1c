package models

import "time"

// EventType names a domain event handed to the notification collaborator.
type EventType string

const (
	EventFriendRequestSent     EventType = "friend_request_sent"
	EventFriendRequestAccepted EventType = "friend_request_accepted"
	EventJoinRequestSubmitted  EventType = "join_request_submitted"
	EventJoinRequestApproved   EventType = "join_request_approved"
	EventJoinRequestRejected   EventType = "join_request_rejected"
	EventMemberRemoved         EventType = "member_removed"
)

// TargetType is the kind of entity an event refers to.
type TargetType string

const (
	TargetUser  TargetType = "user"
	TargetGroup TargetType = "group"
)

// DomainEvent is emitted after a mutation commits. The engine does not format or deliver it.
type DomainEvent struct {
	Type        EventType  `json:"type"`
	ActorID     string     `json:"actorId"`
	RecipientID string     `json:"recipientId"`
	TargetType  TargetType `json:"targetType"`
	TargetID    string     `json:"targetId"`
	OccurredAt  time.Time  `json:"occurredAt"`
}
