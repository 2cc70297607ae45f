package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"communilearn_backend/internal/config"
	"communilearn_backend/internal/grading"
	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"
	"communilearn_backend/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizService 测验的创建、题目保存与列表
type QuizService struct {
	QuizRepo   *repository.QuizRepository
	ModuleRepo *repository.ModuleRepository
	Storage    *StorageService
	Cfg        *config.Config
	Now        func() time.Time
}

func NewQuizService(quizRepo *repository.QuizRepository, moduleRepo *repository.ModuleRepository, storage *StorageService, cfg *config.Config) *QuizService {
	return &QuizService{
		QuizRepo:   quizRepo,
		ModuleRepo: moduleRepo,
		Storage:    storage,
		Cfg:        cfg,
		Now:        time.Now,
	}
}

// QuestionInput swagger:model QuestionInput
type QuestionInput struct {
	Type     string   `json:"type"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
	Points   *int     `json:"points"`
	// 保留的已上传文件
	Files []string `json:"files"`
}

// SaveQuestionsInput 保存题目的请求，Files 以题目下标为键
type SaveQuestionsInput struct {
	QuizID       uint
	Description  *string
	TimeLimit    *int
	AttemptLimit *int
	DueDate      string
	DueDateDate  string
	DueTime      string
	Questions    json.RawMessage
	Files        map[int][]*multipart.FileHeader
}

// QuestionView swagger:model QuestionView
type QuestionView struct {
	model.QuizQuestion
	FileURLs []string `json:"fileUrls"`
}

// QuizView swagger:model QuizView
type QuizView struct {
	model.Quiz
	util.DueInfo
	ModuleTitle   string         `json:"moduleTitle"`
	QuestionCount int            `json:"questionCount"`
	Questions     []QuestionView `json:"questions,omitempty"`
	Attempts      *AttemptStatus `json:"attempts,omitempty"`
}

// AttemptStatus swagger:model AttemptStatus
type AttemptStatus struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

func newAttemptStatus(limit, used int) AttemptStatus {
	return AttemptStatus{Limit: limit, Used: used, Remaining: limit - used}
}

func findQuiz(repo *repository.QuizRepository, id uint, withQuestions bool) (*model.Quiz, error) {
	var (
		q   *model.Quiz
		err error
	)
	if withQuestions {
		q, err = repo.FindWithQuestions(id)
	} else {
		q, err = repo.FindByID(id)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	return q, err
}

func (s *QuizService) ownedQuiz(actor *util.Claims, id uint, withQuestions bool) (*model.Quiz, error) {
	if id == 0 {
		return nil, errors.Wrap(util.ErrInvalidInput, "quizId is required")
	}
	q, err := findQuiz(s.QuizRepo, id, withQuestions)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(q.TeacherEmail) {
		return nil, util.ErrPermissionDenied
	}
	return q, nil
}

// CreateQuizShell 创建空测验，之后通过 SaveQuestions 填充题目
func (s *QuizService) CreateQuizShell(actor *util.Claims, moduleID uint, title string) (*model.Quiz, error) {
	title = strings.TrimSpace(title)
	if moduleID == 0 || title == "" {
		return nil, errors.Wrap(util.ErrInvalidInput, "moduleId and title are required")
	}

	m, err := s.ModuleRepo.FindByID(moduleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrModuleNotFound
	}
	if err != nil {
		return nil, err
	}
	if !actor.Owns(m.TeacherEmail) {
		return nil, util.ErrPermissionDenied
	}

	limit := s.Cfg.Quiz.DefaultAttemptLimit
	if limit < 1 {
		limit = 1
	}
	q := &model.Quiz{
		Title:        title,
		TeacherEmail: actor.Email,
		ModuleID:     moduleID,
		AttemptLimit: limit,
		TotalPoints:  0,
	}
	if err := s.QuizRepo.Create(q); err != nil {
		return nil, errors.Wrap(err, "create quiz")
	}
	logger.Log.Info("Quiz created", zap.Uint("quizId", q.ID), zap.Uint("moduleId", moduleID))
	return q, nil
}

// ParseQuestions 接受 JSON 数组，或内容为 JSON 数组的字符串（multipart 表单）
func ParseQuestions(raw json.RawMessage) ([]QuestionInput, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, util.ErrInvalidQuestions
		}
		raw = []byte(strings.TrimSpace(inner))
	}
	if len(raw) == 0 {
		return nil, util.ErrInvalidQuestions
	}
	var questions []QuestionInput
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, util.ErrInvalidQuestions
	}
	return questions, nil
}

func buildQuestion(i int, in QuestionInput) (model.QuizQuestion, error) {
	typ := strings.TrimSpace(in.Type)
	if !model.ValidQuestionType(typ) {
		return model.QuizQuestion{}, errors.Wrapf(util.ErrInvalidQuestion, "question %d: unknown type %q", i+1, in.Type)
	}
	text := strings.TrimSpace(in.Question)
	if text == "" {
		return model.QuizQuestion{}, errors.Wrapf(util.ErrInvalidQuestion, "question %d: text is required", i+1)
	}

	points := 1
	if in.Points != nil {
		points = *in.Points
	}
	if points < 0 {
		return model.QuizQuestion{}, errors.Wrapf(util.ErrInvalidQuestion, "question %d: points cannot be negative", i+1)
	}

	q := model.QuizQuestion{
		Type:     typ,
		Question: text,
		Answer:   strings.TrimSpace(in.Answer),
		Points:   points,
		Options:  datatypes.JSONSlice[string]{},
		Files:    datatypes.JSONSlice[string]{},
		Order:    i,
	}
	for _, f := range in.Files {
		if f = strings.TrimSpace(f); f != "" {
			q.Files = append(q.Files, f)
		}
	}

	switch typ {
	case model.QuestionMultipleChoice:
		for _, o := range in.Options {
			if o = strings.TrimSpace(o); o != "" {
				q.Options = append(q.Options, o)
			}
		}
		if len(q.Options) == 0 {
			return model.QuizQuestion{}, errors.Wrapf(util.ErrInvalidQuestion, "question %d: multiple choice requires options", i+1)
		}
	case model.QuestionActivity:
		q.Answer = ""
	}
	if typ != model.QuestionActivity && q.Answer == "" {
		return model.QuizQuestion{}, errors.Wrapf(util.ErrInvalidQuestion, "question %d: answer key is required", i+1)
	}
	return q, nil
}

func (s *QuizService) applySettings(q *model.Quiz, in SaveQuestionsInput) error {
	if in.Description != nil {
		q.Description = strings.TrimSpace(*in.Description)
	}
	if in.TimeLimit != nil {
		if *in.TimeLimit < 0 {
			return errors.Wrap(util.ErrInvalidInput, "timeLimit cannot be negative")
		}
		q.TimeLimit = *in.TimeLimit
	}
	if in.AttemptLimit != nil {
		if *in.AttemptLimit < 1 {
			return errors.Wrap(util.ErrInvalidInput, "attemptLimit must be at least 1")
		}
		q.AttemptLimit = *in.AttemptLimit
	}

	var (
		due *time.Time
		err error
	)
	if strings.TrimSpace(in.DueDate) != "" {
		due, err = util.ParseDue(in.DueDate, time.Local)
	} else {
		due, err = util.NormalizeDue(in.DueDateDate, in.DueTime, time.Local)
	}
	if err != nil {
		return err
	}
	q.DueDate = due
	return nil
}

// SaveQuestions 整体替换测验题目（先删后建），同时更新测验设置与总分
func (s *QuizService) SaveQuestions(ctx context.Context, actor *util.Claims, in SaveQuestionsInput) (*QuizView, error) {
	quiz, err := s.ownedQuiz(actor, in.QuizID, true)
	if err != nil {
		return nil, err
	}

	inputs, err := ParseQuestions(in.Questions)
	if err != nil {
		return nil, err
	}
	questions := make([]model.QuizQuestion, 0, len(inputs))
	for i, qi := range inputs {
		q, err := buildQuestion(i, qi)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := s.applySettings(quiz, in); err != nil {
		return nil, err
	}

	var uploaded []string
	for idx, files := range in.Files {
		if idx < 0 || idx >= len(questions) {
			return nil, errors.Wrapf(util.ErrInvalidFile, "files_q%d has no matching question", idx)
		}
		for _, fh := range files {
			stored, err := s.Storage.Save(ctx, util.DirQuiz, fh)
			if err != nil {
				s.Storage.Remove(ctx, uploaded...)
				return nil, errors.Wrap(err, "store question file")
			}
			uploaded = append(uploaded, stored.Path)
			questions[idx].Files = append(questions[idx].Files, stored.Path)
		}
	}

	oldFiles := questionFiles(quiz.Questions)
	quiz.TotalPoints = grading.TotalPoints(questions)

	err = s.QuizRepo.DB.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewQuizRepository(tx)
		if err := repo.ReplaceQuestions(quiz.ID, questions); err != nil {
			return err
		}
		quiz.Questions = nil
		return repo.Update(quiz)
	})
	if err != nil {
		s.Storage.Remove(ctx, uploaded...)
		return nil, errors.Wrap(err, "save questions")
	}

	kept := questionFiles(questions)
	var stale []string
	for p := range oldFiles {
		if !kept[p] {
			stale = append(stale, p)
		}
	}
	s.Storage.Remove(ctx, stale...)

	logger.Log.Info("Quiz questions saved",
		zap.Uint("quizId", quiz.ID),
		zap.Int("questions", len(questions)),
		zap.Int("totalPoints", quiz.TotalPoints))

	quiz.Questions = questions
	return s.view(quiz, true, ""), nil
}

func questionFiles(questions []model.QuizQuestion) map[string]bool {
	set := make(map[string]bool)
	for _, q := range questions {
		for _, f := range q.Files {
			set[f] = true
		}
	}
	return set
}

func (s *QuizService) view(q *model.Quiz, withAnswers bool, moduleTitle string) *QuizView {
	v := &QuizView{
		DueInfo:       util.NewDueInfo(q.DueDate, s.Now()),
		ModuleTitle:   moduleTitle,
		QuestionCount: len(q.Questions),
	}
	if len(q.Questions) > 0 {
		v.Questions = make([]QuestionView, 0, len(q.Questions))
		for _, qq := range q.Questions {
			if !withAnswers {
				qq.Answer = ""
			}
			urls := make([]string, 0, len(qq.Files))
			for _, f := range qq.Files {
				urls = append(urls, s.Storage.URL(f))
			}
			v.Questions = append(v.Questions, QuestionView{QuizQuestion: qq, FileURLs: urls})
		}
	}
	v.Quiz = *q
	v.Quiz.Questions = nil
	return v
}

func (s *QuizService) moduleTitles(quizzes []model.Quiz) map[uint]string {
	ids := make([]uint, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ModuleID)
	}
	titles := make(map[uint]string, len(ids))
	modules, err := s.ModuleRepo.FindByIDs(ids)
	if err != nil {
		logger.Log.Warn("Load module titles failed", zap.Error(err))
		return titles
	}
	for _, m := range modules {
		titles[m.ID] = m.Title
	}
	return titles
}

func (s *QuizService) summaries(quizzes []model.Quiz) ([]QuizView, error) {
	ids := make([]uint, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
	}
	counts, err := s.QuizRepo.QuestionCounts(ids)
	if err != nil {
		return nil, err
	}
	titles := s.moduleTitles(quizzes)

	out := make([]QuizView, 0, len(quizzes))
	for i := range quizzes {
		v := s.view(&quizzes[i], false, titles[quizzes[i].ModuleID])
		v.QuestionCount = counts[quizzes[i].ID]
		out = append(out, *v)
	}
	return out, nil
}

// ListForTeacher 教师看自己的测验，超级教师看全部
func (s *QuizService) ListForTeacher(actor *util.Claims) ([]QuizView, error) {
	var (
		quizzes []model.Quiz
		err     error
	)
	if actor.IsSuperTeacher() {
		quizzes, err = s.QuizRepo.FindAll()
	} else {
		quizzes, err = s.QuizRepo.FindByTeacher(actor.Email)
	}
	if err != nil {
		return nil, err
	}
	return s.summaries(quizzes)
}

// ListForStudent 已选模块中的测验，附带作答次数和截止信息
func (s *QuizService) ListForStudent(email string) ([]QuizView, error) {
	moduleIDs, err := s.ModuleRepo.EnrolledModuleIDs(email)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.QuizRepo.FindByModules(moduleIDs)
	if err != nil {
		return nil, err
	}
	out, err := s.summaries(quizzes)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
	}
	used, err := s.QuizRepo.AttemptCounts(email, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		st := newAttemptStatus(out[i].AttemptLimit, used[out[i].ID])
		out[i].Attempts = &st
	}
	return out, nil
}

// Get 学生必须已选该模块，且看不到正确答案
func (s *QuizService) Get(actor *util.Claims, id uint) (*QuizView, error) {
	q, err := findQuiz(s.QuizRepo, id, true)
	if err != nil {
		return nil, err
	}

	title := ""
	if m, err := s.ModuleRepo.FindByID(q.ModuleID); err == nil {
		title = m.Title
	}

	if actor.IsStaff() {
		return s.view(q, true, title), nil
	}

	ok, err := s.ModuleRepo.IsEnrolled(actor.Email, q.ModuleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrNotEnrolled
	}
	used, err := s.QuizRepo.CountAttempts(q.ID, actor.Email)
	if err != nil {
		return nil, err
	}
	v := s.view(q, false, title)
	st := newAttemptStatus(q.AttemptLimit, int(used))
	v.Attempts = &st
	return v, nil
}

// Delete 删除测验及其题目、作答和相关文件
func (s *QuizService) Delete(ctx context.Context, actor *util.Claims, id uint) error {
	q, err := s.ownedQuiz(actor, id, true)
	if err != nil {
		return err
	}
	attempts, err := s.QuizRepo.FindAttempts(id)
	if err != nil {
		return err
	}

	err = s.QuizRepo.DB.Transaction(func(tx *gorm.DB) error {
		return repository.NewQuizRepository(tx).Delete(id)
	})
	if err != nil {
		return errors.Wrap(err, "delete quiz")
	}

	var files []string
	for p := range questionFiles(q.Questions) {
		files = append(files, p)
	}
	for i := range attempts {
		set, err := attempts[i].AnswerSet()
		if err != nil {
			continue
		}
		for _, a := range set {
			files = append(files, a.Files...)
		}
	}
	s.Storage.Remove(ctx, files...)
	logger.Log.Info("Quiz deleted", zap.Uint("quizId", id), zap.String("by", actor.Email))
	return nil
}

func questionKey(id uint) string {
	return fmt.Sprintf("%d", id)
}
