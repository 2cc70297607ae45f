package repository

import (
	"communilearn_backend/internal/model"

	"gorm.io/gorm"
)

type AttendanceRepository struct {
	DB *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) *AttendanceRepository {
	return &AttendanceRepository{DB: db}
}

func (r *AttendanceRepository) Create(a *model.Attendance) error {
	return r.DB.Omit("Marks").Create(a).Error
}

func (r *AttendanceRepository) Update(a *model.Attendance) error {
	return r.DB.Omit("Marks").Save(a).Error
}

func (r *AttendanceRepository) FindByID(id uint) (*model.Attendance, error) {
	var a model.Attendance
	err := r.DB.First(&a, id).Error
	return &a, err
}

func (r *AttendanceRepository) FindWithMarks(id uint) (*model.Attendance, error) {
	var a model.Attendance
	err := r.DB.Preload("Marks", func(db *gorm.DB) *gorm.DB {
		return db.Order("marked_at ASC")
	}).First(&a, id).Error
	return &a, err
}

func (r *AttendanceRepository) FindAll() ([]model.Attendance, error) {
	var list []model.Attendance
	err := r.DB.Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

// MarkedIDs 学生已签到的考勤 ID 集合
func (r *AttendanceRepository) MarkedIDs(email string) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.Model(&model.AttendanceMark{}).Where("student_email = ?", email).Pluck("attendance_id", &ids).Error
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, err
}

func (r *AttendanceRepository) HasMarked(attendanceID uint, email string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.AttendanceMark{}).
		Where("attendance_id = ? AND student_email = ?", attendanceID, email).
		Count(&count).Error
	return count > 0, err
}

func (r *AttendanceRepository) CreateMark(m *model.AttendanceMark) error {
	return r.DB.Create(m).Error
}

func (r *AttendanceRepository) Delete(id uint) error {
	if err := r.DB.Where("attendance_id = ?", id).Delete(&model.AttendanceMark{}).Error; err != nil {
		return err
	}
	if err := r.DB.Table(string(model.AttendanceComments)).Where("parent_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
		return err
	}
	return r.DB.Delete(&model.Attendance{}, id).Error
}
