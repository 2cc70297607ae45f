package model

import "time"

// swagger:model Module
type Module struct {
	BaseModel
	Title         string  `gorm:"size:255;not null" json:"title"`
	Description   string  `gorm:"type:text" json:"description"`
	TeacherEmail  string  `gorm:"size:100;index;not null" json:"teacherEmail"`
	DocumentPath  string  `gorm:"size:255" json:"documentPath"`
	DocumentName  string  `gorm:"size:255" json:"documentName"`
	MediaPath     string  `gorm:"size:255" json:"mediaPath"`
	MediaName     string  `gorm:"size:255" json:"mediaName"`
	MediaDuration float64 `gorm:"default:0" json:"mediaDuration"` // 秒
	MediaWidth    int     `gorm:"default:0" json:"mediaWidth"`
	MediaHeight   int     `gorm:"default:0" json:"mediaHeight"`
	URL           string  `gorm:"size:500" json:"url"`
}

func (Module) TableName() string {
	return "modules"
}

// Enrollment 学生可见某个模块的凭据，硬删除
type Enrollment struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentEmail string    `gorm:"size:100;not null;uniqueIndex:idx_enrollment_student_module" json:"studentEmail"`
	ModuleID     uint      `gorm:"not null;uniqueIndex:idx_enrollment_student_module;index" json:"moduleId"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// Submission 学生提交到模块的文件（与测验附件无关）
type Submission struct {
	BaseModel
	ModuleID     uint   `gorm:"index;not null" json:"moduleId"`
	StudentEmail string `gorm:"size:100;index;not null" json:"studentEmail"`
	FilePath     string `gorm:"size:255;not null" json:"filePath"`
	FileName     string `gorm:"size:255" json:"fileName"`
}

func (Submission) TableName() string {
	return "submissions"
}
