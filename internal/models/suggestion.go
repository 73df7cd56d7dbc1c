package models

// FriendSuggestion is a suggested user with the number of friends shared with the viewer.
// Random fill entries carry MutualFriends == 0.
type FriendSuggestion struct {
	User          UserBasicInfo `json:"user"`
	MutualFriends int           `json:"mutualFriends"`
}

// GroupSuggestion is a suggested group with the number of the viewer's friends in it.
// Group.MemberCount is always the group's real member_count.
type GroupSuggestion struct {
	Group          Group `json:"group"`
	FriendsInGroup int   `json:"friendsInGroup"`
}
