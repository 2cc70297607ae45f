package service

import (
	"strings"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// CommentService 模块、公告、考勤三类评论
type CommentService struct {
	Repo     *repository.CommentRepository
	UserRepo *repository.UserRepository
	parents  map[model.CommentKind]func(id uint) error
}

func NewCommentService(
	repo *repository.CommentRepository,
	userRepo *repository.UserRepository,
	moduleRepo *repository.ModuleRepository,
	announcementRepo *repository.AnnouncementRepository,
	attendanceRepo *repository.AttendanceRepository,
) *CommentService {
	exists := func(find func(uint) error, notFound error) func(uint) error {
		return func(id uint) error {
			err := find(id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound
			}
			return err
		}
	}
	return &CommentService{
		Repo:     repo,
		UserRepo: userRepo,
		parents: map[model.CommentKind]func(uint) error{
			model.ModuleComments: exists(func(id uint) error {
				_, err := moduleRepo.FindByID(id)
				return err
			}, util.ErrModuleNotFound),
			model.AnnouncementComments: exists(func(id uint) error {
				_, err := announcementRepo.FindByID(id)
				return err
			}, util.ErrAnnouncementMissing),
			model.AttendanceComments: exists(func(id uint) error {
				_, err := attendanceRepo.FindByID(id)
				return err
			}, util.ErrAttendanceNotFound),
		},
	}
}

func (s *CommentService) checkParent(kind model.CommentKind, parentID uint) error {
	if check, ok := s.parents[kind]; ok {
		return check(parentID)
	}
	return nil
}

func (s *CommentService) List(kind model.CommentKind, parentID uint) ([]model.Comment, error) {
	if err := s.checkParent(kind, parentID); err != nil {
		return nil, err
	}
	return s.Repo.FindByParent(kind, parentID)
}

func (s *CommentService) Create(actor *util.Claims, kind model.CommentKind, parentID uint, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.Wrap(util.ErrInvalidInput, "text is required")
	}
	if err := s.checkParent(kind, parentID); err != nil {
		return nil, err
	}

	name := actor.Email
	if u, err := s.UserRepo.FindByEmail(actor.Email); err == nil && u.Name != "" {
		name = u.Name
	}
	c := &model.Comment{
		ParentID:    parentID,
		Text:        text,
		AuthorName:  name,
		AuthorEmail: actor.Email,
	}
	if err := s.Repo.Create(kind, c); err != nil {
		return nil, errors.Wrap(err, "create comment")
	}
	return c, nil
}

func (s *CommentService) editable(actor *util.Claims, kind model.CommentKind, id uint) (*model.Comment, error) {
	c, err := s.Repo.FindByID(kind, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	if !c.CanModify(actor.Email, actor.Role) {
		return nil, util.ErrPermissionDenied
	}
	return c, nil
}

// Update 作者本人或教师可以修改
func (s *CommentService) Update(actor *util.Claims, kind model.CommentKind, id uint, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.Wrap(util.ErrInvalidInput, "text is required")
	}
	c, err := s.editable(actor, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateText(kind, c, text); err != nil {
		return nil, errors.Wrap(err, "update comment")
	}
	return c, nil
}

func (s *CommentService) Delete(actor *util.Claims, kind model.CommentKind, id uint) error {
	c, err := s.editable(actor, kind, id)
	if err != nil {
		return err
	}
	return s.Repo.Delete(kind, c.ID)
}
