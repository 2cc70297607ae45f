package service

import (
	"context"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"
	"communilearn_backend/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ModuleService struct {
	ModuleRepo *repository.ModuleRepository
	Enrollment *EnrollmentService
	Storage    *StorageService
	// ProbeMedia 可替换，便于测试时跳过 ffprobe
	ProbeMedia func(path string) (*util.MediaInfo, error)
}

func NewModuleService(moduleRepo *repository.ModuleRepository, enrollment *EnrollmentService, storage *StorageService) *ModuleService {
	return &ModuleService{
		ModuleRepo: moduleRepo,
		Enrollment: enrollment,
		Storage:    storage,
		ProbeMedia: util.ProbeMedia,
	}
}

// ModuleInput 创建/更新模块的表单
type ModuleInput struct {
	Title       *string
	Description *string
	URL         *string
	Document    *multipart.FileHeader
	Media       *multipart.FileHeader
}

// ModuleDetail swagger:model ModuleDetail
type ModuleDetail struct {
	model.Module
	DocumentURL string `json:"documentUrl"`
	MediaURL    string `json:"mediaUrl"`
}

// SubmissionDetail swagger:model SubmissionDetail
type SubmissionDetail struct {
	model.Submission
	URL string `json:"url"`
}

func (s *ModuleService) detail(m *model.Module) *ModuleDetail {
	return &ModuleDetail{
		Module:      *m,
		DocumentURL: s.Storage.URL(m.DocumentPath),
		MediaURL:    s.Storage.URL(m.MediaPath),
	}
}

func (s *ModuleService) details(modules []model.Module) []ModuleDetail {
	out := make([]ModuleDetail, 0, len(modules))
	for i := range modules {
		out = append(out, *s.detail(&modules[i]))
	}
	return out
}

func (s *ModuleService) find(id uint) (*model.Module, error) {
	m, err := s.ModuleRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrModuleNotFound
	}
	return m, err
}

// owned 创建者或超级教师才能修改
func (s *ModuleService) owned(actor *util.Claims, id uint) (*model.Module, error) {
	m, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(m.TeacherEmail) {
		return nil, util.ErrPermissionDenied
	}
	return m, nil
}

func (s *ModuleService) Create(ctx context.Context, actor *util.Claims, in ModuleInput) (*ModuleDetail, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, errors.Wrap(util.ErrInvalidInput, "title is required")
	}
	m := &model.Module{
		Title:        strings.TrimSpace(*in.Title),
		TeacherEmail: actor.Email,
	}
	if in.Description != nil {
		m.Description = strings.TrimSpace(*in.Description)
	}
	if in.URL != nil {
		m.URL = strings.TrimSpace(*in.URL)
	}
	if err := s.attachFiles(ctx, m, in); err != nil {
		return nil, err
	}

	if err := s.ModuleRepo.Create(m); err != nil {
		s.Storage.Remove(ctx, m.DocumentPath, m.MediaPath)
		return nil, errors.Wrap(err, "create module")
	}

	if n, err := s.Enrollment.EnrollAllStudents(m.ID); err != nil {
		logger.Log.Warn("Enroll students into new module failed", zap.Uint("moduleId", m.ID), zap.Error(err))
	} else {
		logger.Log.Info("Module created", zap.Uint("moduleId", m.ID), zap.Int64("enrolled", n))
	}
	return s.detail(m), nil
}

func (s *ModuleService) Update(ctx context.Context, actor *util.Claims, id uint, in ModuleInput) (*ModuleDetail, error) {
	m, err := s.owned(actor, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, errors.Wrap(util.ErrInvalidInput, "title is required")
		}
		m.Title = title
	}
	if in.Description != nil {
		m.Description = strings.TrimSpace(*in.Description)
	}
	if in.URL != nil {
		m.URL = strings.TrimSpace(*in.URL)
	}

	oldDoc, oldMedia := m.DocumentPath, m.MediaPath
	if err := s.attachFiles(ctx, m, in); err != nil {
		return nil, err
	}
	if err := s.ModuleRepo.Update(m); err != nil {
		return nil, errors.Wrap(err, "update module")
	}
	if in.Document != nil {
		s.Storage.Remove(ctx, oldDoc)
	}
	if in.Media != nil {
		s.Storage.Remove(ctx, oldMedia)
	}
	return s.detail(m), nil
}

func (s *ModuleService) attachFiles(ctx context.Context, m *model.Module, in ModuleInput) error {
	if in.Document != nil {
		stored, err := s.Storage.Save(ctx, util.DirDocuments, in.Document)
		if err != nil {
			return errors.Wrap(err, "store document")
		}
		m.DocumentPath, m.DocumentName = stored.Path, stored.Name
	}
	if in.Media != nil {
		stored, info, err := s.saveMedia(ctx, in.Media)
		if err != nil {
			return errors.Wrap(err, "store media")
		}
		m.MediaPath, m.MediaName = stored.Path, stored.Name
		if info != nil {
			m.MediaDuration, m.MediaWidth, m.MediaHeight = info.Duration, info.Width, info.Height
		}
	}
	return nil
}

// saveMedia 先落地到临时文件用 ffprobe 读取元数据，再上传到存储；探测失败不影响上传
func (s *ModuleService) saveMedia(ctx context.Context, fh *multipart.FileHeader) (*StoredFile, *util.MediaInfo, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "media-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return nil, nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, nil, err
	}
	tmp.Close()

	var info *util.MediaInfo
	if s.ProbeMedia != nil {
		if info, err = s.ProbeMedia(tmp.Name()); err != nil {
			logger.Log.Warn("Media probe failed", zap.String("file", fh.Filename), zap.Error(err))
			info = nil
		}
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = util.MimeOctetStream
	}
	stored, err := s.Storage.SaveLocalFile(ctx, util.DirMedia, fh.Filename, tmp.Name(), contentType)
	if err != nil {
		return nil, nil, err
	}
	return stored, info, nil
}

// Delete 在一个事务中删除模块及其测验、作答、选课、评论和提交
func (s *ModuleService) Delete(ctx context.Context, actor *util.Claims, id uint) error {
	m, err := s.owned(actor, id)
	if err != nil {
		return err
	}
	paths, err := s.ModuleRepo.FindSubmissionPaths(id)
	if err != nil {
		return err
	}

	err = s.ModuleRepo.DB.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewQuizRepository(tx).DeleteByModule(id); err != nil {
			return err
		}
		return repository.NewModuleRepository(tx).Delete(id)
	})
	if err != nil {
		return errors.Wrap(err, "delete module")
	}

	s.Storage.Remove(ctx, append(paths, m.DocumentPath, m.MediaPath)...)
	logger.Log.Info("Module deleted", zap.Uint("moduleId", id), zap.String("by", actor.Email))
	return nil
}

func (s *ModuleService) Get(id uint) (*ModuleDetail, error) {
	m, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return s.detail(m), nil
}

func (s *ModuleService) ListForStudent(email string) ([]ModuleDetail, error) {
	modules, err := s.ModuleRepo.FindEnrolled(email)
	if err != nil {
		return nil, err
	}
	return s.details(modules), nil
}

// GetForStudent 未选课的模块视为不存在
func (s *ModuleService) GetForStudent(email string, id uint) (*ModuleDetail, error) {
	ok, err := s.ModuleRepo.IsEnrolled(email, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrModuleNotFound
	}
	return s.Get(id)
}

// ListForTeacher 教师看自己的模块，超级教师看全部
func (s *ModuleService) ListForTeacher(actor *util.Claims) ([]ModuleDetail, error) {
	var (
		modules []model.Module
		err     error
	)
	if actor.IsSuperTeacher() {
		modules, err = s.ModuleRepo.FindAll()
	} else {
		modules, err = s.ModuleRepo.FindByTeacher(actor.Email)
	}
	if err != nil {
		return nil, err
	}
	return s.details(modules), nil
}

func (s *ModuleService) AutoEnroll(email string) (int64, error) {
	return s.Enrollment.EnrollStudent(email)
}

// Submit 学生向已选模块提交文件
func (s *ModuleService) Submit(ctx context.Context, actor *util.Claims, moduleID uint, fh *multipart.FileHeader) (*SubmissionDetail, error) {
	if _, err := s.find(moduleID); err != nil {
		return nil, err
	}
	ok, err := s.ModuleRepo.IsEnrolled(actor.Email, moduleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrNotEnrolled
	}

	stored, err := s.Storage.Save(ctx, util.DirSubmissions, fh)
	if err != nil {
		return nil, errors.Wrap(err, "store submission")
	}
	sub := &model.Submission{
		ModuleID:     moduleID,
		StudentEmail: actor.Email,
		FilePath:     stored.Path,
		FileName:     stored.Name,
	}
	if err := s.ModuleRepo.CreateSubmission(sub); err != nil {
		s.Storage.Remove(ctx, stored.Path)
		return nil, errors.Wrap(err, "create submission")
	}
	return &SubmissionDetail{Submission: *sub, URL: stored.URL}, nil
}

func (s *ModuleService) Submissions(actor *util.Claims, moduleID uint) ([]SubmissionDetail, error) {
	if _, err := s.owned(actor, moduleID); err != nil {
		return nil, err
	}
	subs, err := s.ModuleRepo.FindSubmissions(moduleID)
	if err != nil {
		return nil, err
	}
	out := make([]SubmissionDetail, 0, len(subs))
	for _, sub := range subs {
		out = append(out, SubmissionDetail{Submission: sub, URL: s.Storage.URL(sub.FilePath)})
	}
	return out, nil
}
