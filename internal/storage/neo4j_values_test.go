package storage

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"

	"neosocial/internal/models"
)

func TestAsInt(t *testing.T) {
	assert.Equal(t, 3, asInt(int64(3)))
	assert.Equal(t, 3, asInt(3))
	assert.Equal(t, 3, asInt(int32(3)))
	assert.Equal(t, 3, asInt(float64(3)))
	assert.Equal(t, 0, asInt(nil))
	assert.Equal(t, 0, asInt("3"))
}

func TestAsTime(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, ts, asTime(ts))
	assert.True(t, ts.Equal(asTime(ts.Format(time.RFC3339Nano))))
	assert.True(t, asTime(nil).IsZero())
}

func TestGroupFromProps_Defaults(t *testing.T) {
	g := groupFromProps(map[string]any{"id": "g1", "name": "Go", "member_count": int64(4)})
	assert.Equal(t, "g1", g.ID)
	assert.True(t, g.IsPublic)
	assert.True(t, g.IsActive)
	assert.Equal(t, 4, g.MemberCount)

	g = groupFromProps(map[string]any{"id": "g2", "is_public": false, "is_active": false})
	assert.False(t, g.IsPublic)
	assert.False(t, g.IsActive)
}

func TestAsProps_Node(t *testing.T) {
	node := dbtype.Node{Props: map[string]any{"id": "u1", "name": "Ada"}}
	u := userFromProps(asProps(node))
	assert.Equal(t, models.User{ID: "u1", Name: "Ada"}, u)
}

func TestPatchProps(t *testing.T) {
	name := "Gophers"
	private := false
	props := patchProps(models.GroupPatch{Name: &name, IsPublic: &private})
	assert.Equal(t, map[string]any{"name": "Gophers", "is_public": false}, props)
	assert.Empty(t, patchProps(models.GroupPatch{}))
}
