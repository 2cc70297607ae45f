package model

type UserRole string

const (
	Student      UserRole = "student"
	Teacher      UserRole = "teacher"
	SuperTeacher UserRole = "superteacher"
)

// IsStaff 教师与超级教师共享的权限
func (r UserRole) IsStaff() bool {
	return r == Teacher || r == SuperTeacher
}

func (r UserRole) Valid() bool {
	switch r {
	case Student, Teacher, SuperTeacher:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	Name      string   `gorm:"size:100;not null" json:"name"`
	Email     string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string   `gorm:"size:100;not null" json:"-"`
	Role      UserRole `gorm:"size:20;default:'student';index" json:"role"`
	Approved  bool     `gorm:"default:false;index" json:"approved"`
	Bio       string   `gorm:"type:text" json:"bio"`
	Picture   string   `gorm:"size:255" json:"picture"`
	StudentID string   `gorm:"size:50" json:"studentId"`
}

func (User) TableName() string {
	return "users"
}
