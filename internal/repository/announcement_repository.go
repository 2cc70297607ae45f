package repository

import (
	"communilearn_backend/internal/model"

	"gorm.io/gorm"
)

type AnnouncementRepository struct {
	DB *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) *AnnouncementRepository {
	return &AnnouncementRepository{DB: db}
}

func (r *AnnouncementRepository) Create(a *model.Announcement) error {
	return r.DB.Create(a).Error
}

func (r *AnnouncementRepository) Update(a *model.Announcement) error {
	return r.DB.Save(a).Error
}

func (r *AnnouncementRepository) FindByID(id uint) (*model.Announcement, error) {
	var a model.Announcement
	err := r.DB.First(&a, id).Error
	return &a, err
}

// FindAll 最新在前，limit <= 0 表示不限
func (r *AnnouncementRepository) FindAll(limit int) ([]model.Announcement, error) {
	var list []model.Announcement
	q := r.DB.Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}

// FindByAttendanceMarker 查找通过描述标记关联到考勤的公告
func (r *AnnouncementRepository) FindByAttendanceMarker(attendanceID uint) ([]model.Announcement, error) {
	var list []model.Announcement
	err := r.DB.Where("description LIKE ?", "%"+model.AttendanceMarker(attendanceID)+"%").Find(&list).Error
	return list, err
}

func (r *AnnouncementRepository) Delete(id uint) error {
	if err := r.DB.Table(string(model.AnnouncementComments)).Where("parent_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
		return err
	}
	return r.DB.Delete(&model.Announcement{}, id).Error
}
