package models

import "time"

// Group is a graph node. MemberCount is a denormalised cache of incoming
// MEMBER_OF edges and is maintained in the same transaction as every edge change.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	CoverImage  string    `json:"coverImage,omitempty"`
	IsPublic    bool      `json:"isPublic"`
	IsActive    bool      `json:"isActive"`
	MemberCount int       `json:"memberCount"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewGroup carries the attributes supplied when a group is created.
// IsPublic defaults to true when nil.
type NewGroup struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	CoverImage  string `json:"coverImage,omitempty"`
	IsPublic    *bool  `json:"isPublic,omitempty"`
}

// GroupPatch is a partial update of the mutable group attributes; nil fields are left unchanged.
type GroupPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	CoverImage  *string `json:"coverImage,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p GroupPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil &&
		p.CoverImage == nil && p.IsPublic == nil && p.IsActive == nil
}

// GroupMemberRole is the role carried on a MEMBER_OF edge.
type GroupMemberRole string

const (
	AdminRole  GroupMemberRole = "admin"
	MemberRole GroupMemberRole = "member"
)

// GroupMember is a MEMBER_OF edge together with the member.
type GroupMember struct {
	User     UserBasicInfo   `json:"user"`
	GroupID  string          `json:"groupId"`
	Role     GroupMemberRole `json:"role"`
	JoinedAt time.Time       `json:"joinedAt"`
}

// ViewerFlags are the viewer-relative facts about a group, read in one traversal.
type ViewerFlags struct {
	IsAdmin          bool   `json:"isAdmin"`
	IsMember         bool   `json:"isMember"`
	HasRequested     bool   `json:"hasRequested"`
	PendingRequestID string `json:"pendingRequestId,omitempty"`
	MemberCount      int    `json:"memberCount"`
	FriendCount      int    `json:"friendCount"`
}

// GroupDetails is the aggregate returned to a viewer of a group page.
type GroupDetails struct {
	Group   Group         `json:"group"`
	Members []GroupMember `json:"members"`
	Posts   []Post        `json:"posts"`
	ViewerFlags
}

// MemberCountDrift compares a group's cached member_count with its MEMBER_OF edges.
type MemberCountDrift struct {
	GroupID string `json:"groupId"`
	Cached  int    `json:"cached"`
	Actual  int    `json:"actual"`
}

// Drifted reports whether the cache disagrees with the edges.
func (d MemberCountDrift) Drifted() bool {
	return d.Cached != d.Actual
}
