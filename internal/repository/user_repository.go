package repository

import (
	"communilearn_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.DB.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 物理删除，释放邮箱的唯一索引
func (r *UserRepository) Delete(id uint) error {
	return r.DB.Unscoped().Delete(&model.User{}, id).Error
}

// FindByApproval 按审核状态查询，roles 为空时不过滤角色
func (r *UserRepository) FindByApproval(approved bool, roles ...model.UserRole) ([]model.User, error) {
	var users []model.User
	q := r.DB.Where("approved = ?", approved)
	if len(roles) > 0 {
		q = q.Where("role IN ?", roles)
	}
	err := q.Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *UserRepository) FindApprovedStudents() ([]model.User, error) {
	return r.FindByApproval(true, model.Student)
}

func (r *UserRepository) FindTeachers() ([]model.User, error) {
	return r.FindByApproval(true, model.Teacher, model.SuperTeacher)
}
