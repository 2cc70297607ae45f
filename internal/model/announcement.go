package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// swagger:model Announcement
type Announcement struct {
	BaseModel
	TeacherEmail string `gorm:"size:100;index;not null" json:"teacherEmail"`
	Description  string `gorm:"type:text;not null" json:"description"`
	FilePath     string `gorm:"size:500" json:"filePath"`
	FileName     string `gorm:"size:255" json:"fileName"`
}

func (Announcement) TableName() string {
	return "announcements"
}

var attendanceMarkerRe = regexp.MustCompile(`\[ATTENDANCE_ID:(\d+)\]`)

// AttendanceMarker 关联考勤的公告在描述中嵌入的标记
func AttendanceMarker(id uint) string {
	return fmt.Sprintf("[ATTENDANCE_ID:%d]", id)
}

// ParseAttendanceMarker 从公告描述中提取考勤 ID
func ParseAttendanceMarker(desc string) (uint, bool) {
	m := attendanceMarkerRe.FindStringSubmatch(desc)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
