package model

import "time"

// swagger:model Attendance
type Attendance struct {
	BaseModel
	TeacherEmail string           `gorm:"size:100;index;not null" json:"teacherEmail"`
	Description  string           `gorm:"type:text;not null" json:"description"`
	DueDate      *time.Time       `json:"dueDate"`
	Marks        []AttendanceMark `gorm:"foreignKey:AttendanceID" json:"marks,omitempty"`
}

func (Attendance) TableName() string {
	return "attendances"
}

// AttendanceMark 学生签到记录，同一考勤每个学生只能签一次
type AttendanceMark struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	AttendanceID uint      `gorm:"not null;uniqueIndex:idx_mark_attendance_student" json:"attendanceId"`
	StudentEmail string    `gorm:"size:100;not null;uniqueIndex:idx_mark_attendance_student" json:"studentEmail"`
	StudentName  string    `gorm:"size:100" json:"studentName"`
	MarkedAt     time.Time `json:"markedAt"`
}

func (AttendanceMark) TableName() string {
	return "attendance_marks"
}
