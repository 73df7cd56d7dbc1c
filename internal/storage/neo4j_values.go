package storage

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"neosocial/internal/models"
)

// asInt normalises the driver's numeric types to int. Every count and
// member_count read from Neo4j passes through here.
func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case dbtype.LocalDateTime:
		return t.Time()
	case dbtype.Date:
		return t.Time()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func asProps(v any) map[string]any {
	switch p := v.(type) {
	case map[string]any:
		return p
	case dbtype.Node:
		return p.Props
	}
	return nil
}

func recordValue(record *neo4j.Record, key string) any {
	if record == nil {
		return nil
	}
	v, _ := record.Get(key)
	return v
}

func userFromProps(props map[string]any) models.User {
	return models.User{
		ID:        asString(props["id"]),
		Name:      asString(props["name"]),
		Username:  asString(props["username"]),
		AvatarURL: asString(props["avatar_url"]),
	}
}

func groupFromProps(props map[string]any) models.Group {
	return models.Group{
		ID:          asString(props["id"]),
		Name:        asString(props["name"]),
		Description: asString(props["description"]),
		Category:    asString(props["category"]),
		CoverImage:  asString(props["cover_image"]),
		IsPublic:    asBool(props["is_public"], true),
		IsActive:    asBool(props["is_active"], true),
		MemberCount: asInt(props["member_count"]),
		CreatedBy:   asString(props["created_by"]),
		CreatedAt:   asTime(props["created_at"]),
	}
}

func joinRequestFromRecord(record *neo4j.Record) models.JoinRequest {
	props := asProps(recordValue(record, "request"))
	return models.JoinRequest{
		ID:        asString(props["id"]),
		UserID:    asString(recordValue(record, "user_id")),
		GroupID:   asString(recordValue(record, "group_id")),
		Status:    models.JoinRequestStatus(asString(props["status"])),
		CreatedAt: asTime(props["created_at"]),
	}
}

func memberFromRecord(record *neo4j.Record, groupID string) models.GroupMember {
	user := userFromProps(asProps(recordValue(record, "user")))
	return models.GroupMember{
		User:     user.BasicInfo(),
		GroupID:  groupID,
		Role:     models.GroupMemberRole(asString(recordValue(record, "role"))),
		JoinedAt: asTime(recordValue(record, "joined_at")),
	}
}

// patchProps converts a GroupPatch to the property map applied with SET g += $props.
func patchProps(patch models.GroupPatch) map[string]any {
	props := map[string]any{}
	if patch.Name != nil {
		props["name"] = *patch.Name
	}
	if patch.Description != nil {
		props["description"] = *patch.Description
	}
	if patch.Category != nil {
		props["category"] = *patch.Category
	}
	if patch.CoverImage != nil {
		props["cover_image"] = *patch.CoverImage
	}
	if patch.IsPublic != nil {
		props["is_public"] = *patch.IsPublic
	}
	if patch.IsActive != nil {
		props["is_active"] = *patch.IsActive
	}
	return props
}
