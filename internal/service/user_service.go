package service

import (
	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"
	"communilearn_backend/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService 账号审核与管理
type UserService struct {
	UserRepo   *repository.UserRepository
	ModuleRepo *repository.ModuleRepository
	Enrollment *EnrollmentService
}

func NewUserService(userRepo *repository.UserRepository, moduleRepo *repository.ModuleRepository, enrollment *EnrollmentService) *UserService {
	return &UserService{
		UserRepo:   userRepo,
		ModuleRepo: moduleRepo,
		Enrollment: enrollment,
	}
}

// visibleRoles 教师只能管理学生，超级教师可以管理所有人
func visibleRoles(actor *util.Claims) []model.UserRole {
	if actor.IsSuperTeacher() {
		return nil
	}
	return []model.UserRole{model.Student}
}

func canManage(actor *util.Claims, target *model.User) bool {
	if actor.IsSuperTeacher() {
		return true
	}
	return actor.Role == model.Teacher && target.Role == model.Student
}

func (s *UserService) PendingUsers(actor *util.Claims) ([]model.User, error) {
	return s.UserRepo.FindByApproval(false, visibleRoles(actor)...)
}

func (s *UserService) ApprovedUsers(actor *util.Claims) ([]model.User, error) {
	return s.UserRepo.FindByApproval(true, visibleRoles(actor)...)
}

func (s *UserService) Teachers() ([]model.User, error) {
	return s.UserRepo.FindTeachers()
}

func (s *UserService) target(actor *util.Claims, id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if user.ID == actor.UserID {
		return nil, util.ErrCannotRemoveSelf
	}
	if !canManage(actor, user) {
		return nil, util.ErrPermissionDenied
	}
	return user, nil
}

// Approve 审核通过；学生同时加入所有模块
func (s *UserService) Approve(actor *util.Claims, id uint) (*model.User, error) {
	user, err := s.target(actor, id)
	if err != nil {
		return nil, err
	}
	if user.Approved {
		return user, nil
	}

	if err := s.UserRepo.UpdateFields(user.ID, map[string]interface{}{"approved": true}); err != nil {
		return nil, errors.Wrap(err, "approve user")
	}
	user.Approved = true

	if user.Role == model.Student {
		if _, err := s.Enrollment.EnrollStudent(user.Email); err != nil {
			logger.Log.Warn("Auto-enroll on approval failed", zap.String("email", user.Email), zap.Error(err))
		}
	}
	logger.Log.Info("User approved", zap.String("email", user.Email), zap.String("by", actor.Email))
	return user, nil
}

// Deny 拒绝待审核账号并删除
func (s *UserService) Deny(actor *util.Claims, id uint) error {
	user, err := s.target(actor, id)
	if err != nil {
		return err
	}
	if user.Approved {
		return errors.Wrap(util.ErrPermissionDenied, "user already approved")
	}
	return s.UserRepo.Delete(user.ID)
}

// Remove 删除已审核账号及其选课记录
func (s *UserService) Remove(actor *util.Claims, id uint) error {
	user, err := s.target(actor, id)
	if err != nil {
		return err
	}
	return s.UserRepo.DB.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewModuleRepository(tx).DeleteEnrollmentsByStudent(user.Email); err != nil {
			return err
		}
		if err := repository.NewUserRepository(tx).Delete(user.ID); err != nil {
			return err
		}
		logger.Log.Info("User removed", zap.String("email", user.Email), zap.String("by", actor.Email))
		return nil
	})
}
