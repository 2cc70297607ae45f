package repository

import (
	"communilearn_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) Create(m *model.Module) error {
	return r.DB.Create(m).Error
}

func (r *ModuleRepository) Update(m *model.Module) error {
	return r.DB.Save(m).Error
}

func (r *ModuleRepository) FindByID(id uint) (*model.Module, error) {
	var m model.Module
	err := r.DB.First(&m, id).Error
	return &m, err
}

func (r *ModuleRepository) FindAll() ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.Order("created_at DESC").Find(&modules).Error
	return modules, err
}

func (r *ModuleRepository) FindByTeacher(email string) ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.Where("teacher_email = ?", email).Order("created_at DESC").Find(&modules).Error
	return modules, err
}

func (r *ModuleRepository) FindByIDs(ids []uint) ([]model.Module, error) {
	var modules []model.Module
	if len(ids) == 0 {
		return modules, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&modules).Error
	return modules, err
}

// FindEnrolled 学生已选的模块
func (r *ModuleRepository) FindEnrolled(email string) ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.
		Joins("JOIN enrollments ON enrollments.module_id = modules.id").
		Where("enrollments.student_email = ?", email).
		Order("modules.created_at DESC").
		Find(&modules).Error
	return modules, err
}

func (r *ModuleRepository) IsEnrolled(email string, moduleID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).
		Where("student_email = ? AND module_id = ?", email, moduleID).
		Count(&count).Error
	return count > 0, err
}

func (r *ModuleRepository) EnrolledModuleIDs(email string) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Enrollment{}).Where("student_email = ?", email).Pluck("module_id", &ids).Error
	return ids, err
}

// Enroll 批量选课，已存在的记录忽略，返回新增条数
func (r *ModuleRepository) Enroll(enrollments []model.Enrollment) (int64, error) {
	if len(enrollments) == 0 {
		return 0, nil
	}
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollments)
	return res.RowsAffected, res.Error
}

func (r *ModuleRepository) DeleteEnrollmentsByStudent(email string) error {
	return r.DB.Where("student_email = ?", email).Delete(&model.Enrollment{}).Error
}

// Delete 删除模块及其选课、提交和评论记录；测验由 QuizRepository.DeleteByModule 处理
func (r *ModuleRepository) Delete(id uint) error {
	if err := r.DB.Where("module_id = ?", id).Delete(&model.Enrollment{}).Error; err != nil {
		return err
	}
	if err := r.DB.Where("module_id = ?", id).Delete(&model.Submission{}).Error; err != nil {
		return err
	}
	if err := r.DB.Table(string(model.ModuleComments)).Where("parent_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
		return err
	}
	return r.DB.Delete(&model.Module{}, id).Error
}

func (r *ModuleRepository) CreateSubmission(s *model.Submission) error {
	return r.DB.Create(s).Error
}

func (r *ModuleRepository) FindSubmissions(moduleID uint) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Where("module_id = ?", moduleID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *ModuleRepository) FindSubmissionPaths(moduleID uint) ([]string, error) {
	var paths []string
	err := r.DB.Model(&model.Submission{}).Where("module_id = ?", moduleID).Pluck("file_path", &paths).Error
	return paths, err
}
