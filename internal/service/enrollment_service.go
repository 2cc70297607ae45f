package service

import (
	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/pkg/logger"

	"go.uber.org/zap"
)

// EnrollmentService 维护学生与模块的选课关系
type EnrollmentService struct {
	ModuleRepo *repository.ModuleRepository
	UserRepo   *repository.UserRepository
}

func NewEnrollmentService(moduleRepo *repository.ModuleRepository, userRepo *repository.UserRepository) *EnrollmentService {
	return &EnrollmentService{ModuleRepo: moduleRepo, UserRepo: userRepo}
}

// EnrollStudent 把学生加入所有尚未选的模块，返回新增数量
func (s *EnrollmentService) EnrollStudent(email string) (int64, error) {
	modules, err := s.ModuleRepo.FindAll()
	if err != nil {
		return 0, err
	}
	enrolled, err := s.ModuleRepo.EnrolledModuleIDs(email)
	if err != nil {
		return 0, err
	}
	have := make(map[uint]bool, len(enrolled))
	for _, id := range enrolled {
		have[id] = true
	}

	var rows []model.Enrollment
	for _, m := range modules {
		if !have[m.ID] {
			rows = append(rows, model.Enrollment{StudentEmail: email, ModuleID: m.ID})
		}
	}
	n, err := s.ModuleRepo.Enroll(rows)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Log.Info("Student auto-enrolled", zap.String("email", email), zap.Int64("modules", n))
	}
	return n, nil
}

// EnrollAllStudents 新模块创建后为所有已审核学生选课
func (s *EnrollmentService) EnrollAllStudents(moduleID uint) (int64, error) {
	students, err := s.UserRepo.FindApprovedStudents()
	if err != nil {
		return 0, err
	}
	rows := make([]model.Enrollment, 0, len(students))
	for _, u := range students {
		rows = append(rows, model.Enrollment{StudentEmail: u.Email, ModuleID: moduleID})
	}
	return s.ModuleRepo.Enroll(rows)
}
