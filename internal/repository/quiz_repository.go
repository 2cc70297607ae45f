package repository

import (
	"communilearn_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(q *model.Quiz) error {
	return r.DB.Create(q).Error
}

func (r *QuizRepository) Update(q *model.Quiz) error {
	return r.DB.Omit("Questions").Save(q).Error
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var q model.Quiz
	err := r.DB.First(&q, id).Error
	return &q, err
}

// FindWithQuestions 题目按保存顺序返回
func (r *QuizRepository) FindWithQuestions(id uint) (*model.Quiz, error) {
	var q model.Quiz
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC, id ASC")
	}).First(&q, id).Error
	return &q, err
}

func (r *QuizRepository) FindQuestions(quizID uint) ([]model.QuizQuestion, error) {
	var qs []model.QuizQuestion
	err := r.DB.Where("quiz_id = ?", quizID).Order("sort_order ASC, id ASC").Find(&qs).Error
	return qs, err
}

func (r *QuizRepository) FindAll() ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Order("created_at DESC").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) FindByTeacher(email string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("teacher_email = ?", email).Order("created_at DESC").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) FindByModules(moduleIDs []uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	if len(moduleIDs) == 0 {
		return quizzes, nil
	}
	err := r.DB.Where("module_id IN ?", moduleIDs).Order("created_at DESC").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) FindIDsByModule(moduleID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Quiz{}).Where("module_id = ?", moduleID).Pluck("id", &ids).Error
	return ids, err
}

// QuestionCounts quizID -> 题目数
func (r *QuizRepository) QuestionCounts(quizIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(quizIDs))
	if len(quizIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		QuizID uint
		Count  int
	}
	err := r.DB.Model(&model.QuizQuestion{}).
		Select("quiz_id, COUNT(*) AS count").
		Where("quiz_id IN ?", quizIDs).
		Group("quiz_id").
		Scan(&rows).Error
	for _, row := range rows {
		counts[row.QuizID] = row.Count
	}
	return counts, err
}

// ReplaceQuestions 删除旧题目后整体重建，调用方负责事务
func (r *QuizRepository) ReplaceQuestions(quizID uint, questions []model.QuizQuestion) error {
	if err := r.DB.Unscoped().Where("quiz_id = ?", quizID).Delete(&model.QuizQuestion{}).Error; err != nil {
		return err
	}
	if len(questions) == 0 {
		return nil
	}
	for i := range questions {
		questions[i].QuizID = quizID
	}
	return r.DB.Create(&questions).Error
}

// Delete 删除测验及其题目和作答记录
func (r *QuizRepository) Delete(id uint) error {
	if err := r.DB.Unscoped().Where("quiz_id = ?", id).Delete(&model.QuizQuestion{}).Error; err != nil {
		return err
	}
	if err := r.DB.Where("quiz_id = ?", id).Delete(&model.QuizAttempt{}).Error; err != nil {
		return err
	}
	return r.DB.Delete(&model.Quiz{}, id).Error
}

func (r *QuizRepository) DeleteByModule(moduleID uint) error {
	ids, err := r.FindIDsByModule(moduleID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := r.Delete(id); err != nil {
			return err
		}
	}
	return nil
}

func (r *QuizRepository) CreateAttempt(a *model.QuizAttempt) error {
	return r.DB.Create(a).Error
}

func (r *QuizRepository) CountAttempts(quizID uint, email string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("quiz_id = ? AND student_email = ?", quizID, email).
		Count(&count).Error
	return count, err
}

// AttemptCounts studentEmail 对应各测验的作答次数
func (r *QuizRepository) AttemptCounts(email string, quizIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(quizIDs))
	if len(quizIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		QuizID uint
		Count  int
	}
	err := r.DB.Model(&model.QuizAttempt{}).
		Select("quiz_id, COUNT(*) AS count").
		Where("student_email = ? AND quiz_id IN ?", email, quizIDs).
		Group("quiz_id").
		Scan(&rows).Error
	for _, row := range rows {
		counts[row.QuizID] = row.Count
	}
	return counts, err
}

// LatestAttempt 最近一次作答，创建时间相同时取 ID 较大者
func (r *QuizRepository) LatestAttempt(quizID uint, email string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.Where("quiz_id = ? AND student_email = ?", quizID, email).
		Order("created_at DESC, id DESC").
		First(&a).Error
	return &a, err
}

// FindAttempts 测验的全部作答，最新在前
func (r *QuizRepository) FindAttempts(quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("quiz_id = ?", quizID).Order("created_at DESC, id DESC").Find(&attempts).Error
	return attempts, err
}
