package service

import (
	"fmt"
	"strings"
	"time"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"
	"communilearn_backend/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AttendanceService struct {
	Repo             *repository.AttendanceRepository
	AnnouncementRepo *repository.AnnouncementRepository
	UserRepo         *repository.UserRepository
	Now              func() time.Time
}

func NewAttendanceService(repo *repository.AttendanceRepository, announcementRepo *repository.AnnouncementRepository, userRepo *repository.UserRepository) *AttendanceService {
	return &AttendanceService{
		Repo:             repo,
		AnnouncementRepo: announcementRepo,
		UserRepo:         userRepo,
		Now:              time.Now,
	}
}

// AttendanceInput swagger:model AttendanceInput
type AttendanceInput struct {
	Description *string `json:"description" form:"description"`
	DueDate     string  `json:"dueDate" form:"dueDate"`
	DueDateDate string  `json:"dueDateDate" form:"dueDateDate"`
	DueTime     string  `json:"dueTime" form:"dueTime"`
}

func (in AttendanceInput) hasDue() bool {
	return strings.TrimSpace(in.DueDate+in.DueDateDate+in.DueTime) != ""
}

func (in AttendanceInput) due() (*time.Time, error) {
	if strings.TrimSpace(in.DueDate) != "" {
		return util.ParseDue(in.DueDate, time.Local)
	}
	return util.NormalizeDue(in.DueDateDate, in.DueTime, time.Local)
}

// AttendanceView swagger:model AttendanceView
type AttendanceView struct {
	model.Attendance
	util.DueInfo
	MarkCount int  `json:"markCount"`
	Marked    bool `json:"marked"`
}

func (s *AttendanceService) find(id uint, withMarks bool) (*model.Attendance, error) {
	var (
		a   *model.Attendance
		err error
	)
	if withMarks {
		a, err = s.Repo.FindWithMarks(id)
	} else {
		a, err = s.Repo.FindByID(id)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttendanceNotFound
	}
	return a, err
}

func (s *AttendanceService) view(a *model.Attendance, marked bool) AttendanceView {
	v := AttendanceView{
		Attendance: *a,
		DueInfo:    util.NewDueInfo(a.DueDate, s.Now()),
		MarkCount:  len(a.Marks),
		Marked:     marked,
	}
	return v
}

// announcementText 关联公告的描述："<描述> [ATTENDANCE_ID:n] — Due: <截止>"
func announcementText(a *model.Attendance) string {
	return fmt.Sprintf("%s %s — Due: %s", a.Description, model.AttendanceMarker(a.ID), util.DueSpecFromStored(a.DueDate))
}

func (s *AttendanceService) List(actor *util.Claims) ([]AttendanceView, error) {
	list, err := s.Repo.FindAll()
	if err != nil {
		return nil, err
	}
	marked := map[uint]bool{}
	if !actor.IsStaff() {
		if marked, err = s.Repo.MarkedIDs(actor.Email); err != nil {
			return nil, err
		}
	}
	out := make([]AttendanceView, 0, len(list))
	for i := range list {
		out = append(out, s.view(&list[i], marked[list[i].ID]))
	}
	return out, nil
}

// Get 教师可以看到签到名单，学生只看到自己是否已签到
func (s *AttendanceService) Get(actor *util.Claims, id uint) (*AttendanceView, error) {
	a, err := s.find(id, actor.IsStaff())
	if err != nil {
		return nil, err
	}
	if actor.IsStaff() {
		v := s.view(a, false)
		return &v, nil
	}
	marked, err := s.Repo.HasMarked(id, actor.Email)
	if err != nil {
		return nil, err
	}
	v := s.view(a, marked)
	return &v, nil
}

// Create 创建考勤并发布关联公告；公告失败只记录警告
func (s *AttendanceService) Create(actor *util.Claims, in AttendanceInput) (*AttendanceView, error) {
	if in.Description == nil || strings.TrimSpace(*in.Description) == "" {
		return nil, errors.Wrap(util.ErrInvalidInput, "description is required")
	}
	due, err := in.due()
	if err != nil {
		return nil, err
	}

	a := &model.Attendance{
		TeacherEmail: actor.Email,
		Description:  strings.TrimSpace(*in.Description),
		DueDate:      due,
	}
	if err := s.Repo.Create(a); err != nil {
		return nil, errors.Wrap(err, "create attendance")
	}

	ann := &model.Announcement{TeacherEmail: actor.Email, Description: announcementText(a)}
	if err := s.AnnouncementRepo.Create(ann); err != nil {
		logger.Log.Warn("Attendance created but linked announcement failed",
			zap.Uint("attendanceId", a.ID),
			zap.Error(err))
	}

	v := s.view(a, false)
	return &v, nil
}

func (s *AttendanceService) Update(actor *util.Claims, id uint, in AttendanceInput) (*AttendanceView, error) {
	a, err := s.find(id, false)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(a.TeacherEmail) {
		return nil, util.ErrPermissionDenied
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			return nil, errors.Wrap(util.ErrInvalidInput, "description is required")
		}
		a.Description = d
	}
	if in.hasDue() {
		due, err := in.due()
		if err != nil {
			return nil, err
		}
		a.DueDate = due
	}
	if err := s.Repo.Update(a); err != nil {
		return nil, errors.Wrap(err, "update attendance")
	}
	s.syncAnnouncements(a)

	v := s.view(a, false)
	return &v, nil
}

func (s *AttendanceService) syncAnnouncements(a *model.Attendance) {
	linked, err := s.AnnouncementRepo.FindByAttendanceMarker(a.ID)
	if err != nil {
		logger.Log.Warn("Load linked announcements failed", zap.Uint("attendanceId", a.ID), zap.Error(err))
		return
	}
	for i := range linked {
		linked[i].Description = announcementText(a)
		if err := s.AnnouncementRepo.Update(&linked[i]); err != nil {
			logger.Log.Warn("Update linked announcement failed", zap.Uint("announcementId", linked[i].ID), zap.Error(err))
		}
	}
}

// Delete 删除考勤、签到、评论以及关联公告
func (s *AttendanceService) Delete(actor *util.Claims, id uint) error {
	a, err := s.find(id, false)
	if err != nil {
		return err
	}
	if !actor.Owns(a.TeacherEmail) {
		return util.ErrPermissionDenied
	}
	linked, err := s.AnnouncementRepo.FindByAttendanceMarker(id)
	if err != nil {
		return err
	}
	return s.Repo.DB.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewAttendanceRepository(tx).Delete(id); err != nil {
			return err
		}
		annRepo := repository.NewAnnouncementRepository(tx)
		for _, ann := range linked {
			if err := annRepo.Delete(ann.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Mark 学生签到，截止后拒绝，重复签到返回冲突
func (s *AttendanceService) Mark(actor *util.Claims, id uint) (*model.AttendanceMark, error) {
	a, err := s.find(id, false)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if util.DueSpecFromStored(a.DueDate).Passed(now) {
		return nil, util.ErrAttendanceClosed
	}
	marked, err := s.Repo.HasMarked(id, actor.Email)
	if err != nil {
		return nil, err
	}
	if marked {
		return nil, util.ErrAlreadyMarked
	}

	name := ""
	if u, err := s.UserRepo.FindByEmail(actor.Email); err == nil {
		name = u.Name
	}
	mark := &model.AttendanceMark{
		AttendanceID: id,
		StudentEmail: actor.Email,
		StudentName:  name,
		MarkedAt:     now,
	}
	if err := s.Repo.CreateMark(mark); err != nil {
		// 唯一索引冲突说明并发请求已签到
		if again, _ := s.Repo.HasMarked(id, actor.Email); again {
			return nil, util.ErrAlreadyMarked
		}
		return nil, errors.Wrap(err, "mark attendance")
	}
	return mark, nil
}
