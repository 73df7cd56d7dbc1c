package models

// User is a graph node created by the identity collaborator at registration.
// The engine only references it; AvatarURL is an opaque path passed through unmodified.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// UserBasicInfo holds minimal public information about a user.
type UserBasicInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// BasicInfo returns the public projection of u.
func (u User) BasicInfo() UserBasicInfo {
	return UserBasicInfo{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}
