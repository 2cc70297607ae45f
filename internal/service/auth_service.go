package service

import (
	"strings"

	"communilearn_backend/internal/config"
	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"
	"communilearn_backend/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo   *repository.UserRepository
	Enrollment *EnrollmentService
	Cfg        *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, enrollment *EnrollmentService, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo:   userRepo,
		Enrollment: enrollment,
		Cfg:        cfg,
	}
}

// SignupInput swagger:model SignupInput
type SignupInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup 注册的账号需要教师审核后才能登录
func (s *AuthService) Signup(in SignupInput) (*model.User, error) {
	role := model.UserRole(strings.ToLower(strings.TrimSpace(in.Role)))
	if role == "" {
		role = model.Student
	}
	if role != model.Student && role != model.Teacher {
		return nil, util.ErrInvalidRole
	}

	email := NormalizeEmail(in.Email)
	exists, err := s.UserRepo.ExistsByEmail(email)
	if err != nil {
		return nil, errors.Wrap(err, "check email")
	}
	if exists {
		return nil, util.ErrEmailRegistered
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := &model.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: string(hashed),
		Role:     role,
		Approved: false,
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	logger.Log.Info("User signed up", zap.String("email", email), zap.String("role", string(role)))
	return user, nil
}

// Login 校验密码与审核状态，学生登录时补齐选课
func (s *AuthService) Login(email, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(NormalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}
	if !user.Approved {
		return "", nil, util.ErrNotApproved
	}

	if user.Role == model.Student {
		if _, err := s.Enrollment.EnrollStudent(user.Email); err != nil {
			logger.Log.Warn("Auto-enroll on login failed", zap.String("email", user.Email), zap.Error(err))
		}
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, errors.Wrap(err, "sign token")
	}
	return token, user, nil
}
