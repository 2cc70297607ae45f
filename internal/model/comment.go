package model

// CommentKind 评论所属对象，同时也是评论所在的表名
type CommentKind string

const (
	ModuleComments       CommentKind = "module_comments"
	AnnouncementComments CommentKind = "announcement_comments"
	AttendanceComments   CommentKind = "attendance_comments"
)

func CommentKinds() []CommentKind {
	return []CommentKind{ModuleComments, AnnouncementComments, AttendanceComments}
}

// swagger:model Comment
type Comment struct {
	BaseModel
	ParentID    uint   `gorm:"index;not null" json:"parentId"`
	Text        string `gorm:"type:text;not null" json:"text"`
	AuthorName  string `gorm:"size:100" json:"authorName"`
	AuthorEmail string `gorm:"size:100;index;not null" json:"authorEmail"`
}

// CanModify 作者本人或教师可以编辑/删除评论
func (c *Comment) CanModify(email string, role UserRole) bool {
	return c.AuthorEmail == email || role.IsStaff()
}
