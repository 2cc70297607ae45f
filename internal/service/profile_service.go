package service

import (
	"context"
	"mime/multipart"
	"strings"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ProfileService struct {
	UserRepo *repository.UserRepository
	Storage  *StorageService
}

func NewProfileService(userRepo *repository.UserRepository, storage *StorageService) *ProfileService {
	return &ProfileService{UserRepo: userRepo, Storage: storage}
}

// ProfileInput swagger:model ProfileInput
type ProfileInput struct {
	Name            *string `json:"name"`
	Bio             *string `json:"bio"`
	StudentID       *string `json:"studentId"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

// Profile 对外展示的用户资料
type Profile struct {
	ID        uint           `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Role      model.UserRole `json:"role"`
	Approved  bool           `json:"approved"`
	Bio       string         `json:"bio"`
	Picture   string         `json:"picture"`
	AvatarURL string         `json:"avatarUrl"`
	StudentID string         `json:"studentId"`
}

func (s *ProfileService) toProfile(u *model.User) *Profile {
	return &Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Approved:  u.Approved,
		Bio:       u.Bio,
		Picture:   u.Picture,
		AvatarURL: s.Storage.URL(u.Picture),
		StudentID: u.StudentID,
	}
}

func (s *ProfileService) find(find func() (*model.User, error)) (*model.User, error) {
	u, err := find()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return u, err
}

func (s *ProfileService) Get(userID uint) (*Profile, error) {
	u, err := s.find(func() (*model.User, error) { return s.UserRepo.FindByID(userID) })
	if err != nil {
		return nil, err
	}
	return s.toProfile(u), nil
}

func (s *ProfileService) GetByEmail(email string) (*Profile, error) {
	u, err := s.find(func() (*model.User, error) { return s.UserRepo.FindByEmail(NormalizeEmail(email)) })
	if err != nil {
		return nil, err
	}
	return s.toProfile(u), nil
}

// Update 修改资料；修改密码时必须提供当前密码
func (s *ProfileService) Update(userID uint, in ProfileInput) (*Profile, error) {
	u, err := s.find(func() (*model.User, error) { return s.UserRepo.FindByID(userID) })
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, errors.Wrap(util.ErrInvalidInput, "name cannot be empty")
		}
		u.Name = name
	}
	if in.Bio != nil {
		u.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.StudentID != nil {
		u.StudentID = strings.TrimSpace(*in.StudentID)
	}
	if in.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.CurrentPassword)); err != nil {
			return nil, util.ErrWrongPassword
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Wrap(err, "hash password")
		}
		u.Password = string(hashed)
	}

	if err := s.UserRepo.Update(u); err != nil {
		return nil, errors.Wrap(err, "update profile")
	}
	return s.toProfile(u), nil
}

// UpdateAvatar 只接受图片，旧头像在替换成功后删除
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID uint, fh *multipart.FileHeader) (*Profile, error) {
	u, err := s.find(func() (*model.User, error) { return s.UserRepo.FindByID(userID) })
	if err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	_, err = util.ValidateMimeType(f, util.AvatarMimeTypes)
	f.Close()
	if err != nil {
		return nil, err
	}

	stored, err := s.Storage.Save(ctx, util.DirAvatars, fh)
	if err != nil {
		return nil, errors.Wrap(err, "store avatar")
	}

	old := u.Picture
	if err := s.UserRepo.UpdateFields(u.ID, map[string]interface{}{"picture": stored.Path}); err != nil {
		s.Storage.Remove(ctx, stored.Path)
		return nil, errors.Wrap(err, "update avatar")
	}
	u.Picture = stored.Path
	if old != "" && !strings.HasPrefix(old, "http") {
		s.Storage.Remove(ctx, old)
	}
	return s.toProfile(u), nil
}
