package models

// Post is owned by the content collaborator. The engine only reads posts by group.
type Post struct {
	BaseModel
	GroupID  string `gorm:"type:varchar(64);index;not null" json:"groupId"`
	AuthorID string `gorm:"type:varchar(64);index;not null" json:"authorId"`
	Content  string `gorm:"type:text" json:"content"`
	ImageURL string `gorm:"type:varchar(255)" json:"imageUrl,omitempty"`
}

// TableName 指定 Post 模型的表名。
func (Post) TableName() string {
	return "posts"
}
