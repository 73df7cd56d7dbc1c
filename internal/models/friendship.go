package models

// FriendStatus describes the relationship between a viewer and another user.
type FriendStatus string

const (
	FriendStatusNone            FriendStatus = "none"
	FriendStatusFriends         FriendStatus = "friends"
	FriendStatusRequestSent     FriendStatus = "request_sent"
	FriendStatusRequestReceived FriendStatus = "request_received"
)

// SymmetryViolation is a FRIENDS_WITH edge UserID->OtherID without its reverse.
type SymmetryViolation struct {
	UserID  string `json:"userId"`
	OtherID string `json:"otherId"`
}
