package service

import (
	"context"
	"mime/multipart"
	"strings"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AnnouncementService struct {
	Repo    *repository.AnnouncementRepository
	Storage *StorageService
}

func NewAnnouncementService(repo *repository.AnnouncementRepository, storage *StorageService) *AnnouncementService {
	return &AnnouncementService{Repo: repo, Storage: storage}
}

// AnnouncementView swagger:model AnnouncementView
type AnnouncementView struct {
	model.Announcement
	FileURL      string `json:"fileUrl"`
	AttendanceID *uint  `json:"attendanceId,omitempty"`
}

func (s *AnnouncementService) view(a *model.Announcement) *AnnouncementView {
	v := &AnnouncementView{Announcement: *a, FileURL: s.Storage.URL(a.FilePath)}
	if id, ok := model.ParseAttendanceMarker(a.Description); ok {
		v.AttendanceID = &id
	}
	return v
}

func (s *AnnouncementService) find(id uint) (*model.Announcement, error) {
	a, err := s.Repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAnnouncementMissing
	}
	return a, err
}

func (s *AnnouncementService) List(limit int) ([]AnnouncementView, error) {
	list, err := s.Repo.FindAll(limit)
	if err != nil {
		return nil, err
	}
	out := make([]AnnouncementView, 0, len(list))
	for i := range list {
		out = append(out, *s.view(&list[i]))
	}
	return out, nil
}

func (s *AnnouncementService) Get(id uint) (*AnnouncementView, error) {
	a, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return s.view(a), nil
}

func (s *AnnouncementService) Create(ctx context.Context, actor *util.Claims, description string, fh *multipart.FileHeader) (*AnnouncementView, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, errors.Wrap(util.ErrInvalidInput, "description is required")
	}
	a := &model.Announcement{TeacherEmail: actor.Email, Description: description}
	if fh != nil {
		stored, err := s.Storage.Save(ctx, util.DirAnnouncements, fh)
		if err != nil {
			return nil, errors.Wrap(err, "store announcement file")
		}
		a.FilePath, a.FileName = stored.Path, stored.Name
	}
	if err := s.Repo.Create(a); err != nil {
		s.Storage.Remove(ctx, a.FilePath)
		return nil, errors.Wrap(err, "create announcement")
	}
	return s.view(a), nil
}

// Update 只有创建者或超级教师可修改；removeFile 为真时移除附件
func (s *AnnouncementService) Update(ctx context.Context, actor *util.Claims, id uint, description *string, fh *multipart.FileHeader, removeFile bool) (*AnnouncementView, error) {
	a, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(a.TeacherEmail) {
		return nil, util.ErrPermissionDenied
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if d == "" {
			return nil, errors.Wrap(util.ErrInvalidInput, "description is required")
		}
		a.Description = d
	}

	old := a.FilePath
	replaced := false
	if fh != nil {
		stored, err := s.Storage.Save(ctx, util.DirAnnouncements, fh)
		if err != nil {
			return nil, errors.Wrap(err, "store announcement file")
		}
		a.FilePath, a.FileName = stored.Path, stored.Name
		replaced = true
	} else if removeFile {
		a.FilePath, a.FileName = "", ""
		replaced = true
	}

	if err := s.Repo.Update(a); err != nil {
		return nil, errors.Wrap(err, "update announcement")
	}
	if replaced {
		s.Storage.Remove(ctx, old)
	}
	return s.view(a), nil
}

func (s *AnnouncementService) Delete(ctx context.Context, actor *util.Claims, id uint) error {
	a, err := s.find(id)
	if err != nil {
		return err
	}
	if !actor.Owns(a.TeacherEmail) {
		return util.ErrPermissionDenied
	}
	err = s.Repo.DB.Transaction(func(tx *gorm.DB) error {
		return repository.NewAnnouncementRepository(tx).Delete(id)
	})
	if err != nil {
		return errors.Wrap(err, "delete announcement")
	}
	s.Storage.Remove(ctx, a.FilePath)
	return nil
}
