package service

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"communilearn_backend/internal/grading"
	"communilearn_backend/internal/model"
	"communilearn_backend/internal/repository"
	"communilearn_backend/internal/util"
	"communilearn_backend/pkg/logger"
	"communilearn_backend/pkg/monitoring"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttemptService 学生作答、次数限制与评分
type AttemptService struct {
	QuizRepo   *repository.QuizRepository
	ModuleRepo *repository.ModuleRepository
	UserRepo   *repository.UserRepository
	Storage    *StorageService
}

func NewAttemptService(quizRepo *repository.QuizRepository, moduleRepo *repository.ModuleRepository, userRepo *repository.UserRepository, storage *StorageService) *AttemptService {
	return &AttemptService{
		QuizRepo:   quizRepo,
		ModuleRepo: moduleRepo,
		UserRepo:   userRepo,
		Storage:    storage,
	}
}

// SubmitInput 原始作答与同一请求中上传的文件（按表单字段名分组）
type SubmitInput struct {
	Answers map[string]json.RawMessage
	Uploads map[string][]*multipart.FileHeader
}

// ScoreResult swagger:model ScoreResult
type ScoreResult struct {
	QuizID       uint   `json:"quizId"`
	QuizTitle    string `json:"quizTitle"`
	StudentEmail string `json:"studentEmail"`
	grading.Result
	AttemptID   uint      `json:"attemptId"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// ScoreRow swagger:model ScoreRow
type ScoreRow struct {
	StudentEmail string    `json:"studentEmail"`
	StudentName  string    `json:"studentName"`
	Score        int       `json:"score"`
	Total        int       `json:"total"`
	Attempts     int       `json:"attempts"`
	AttemptedAt  time.Time `json:"attemptedAt"`
}

// AttemptRow swagger:model AttemptRow
type AttemptRow struct {
	ID            uint            `json:"id"`
	StudentEmail  string          `json:"studentEmail"`
	AttemptNumber int             `json:"attemptNumber"`
	Answers       model.AnswerSet `json:"answers"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// FileSubmission swagger:model FileSubmission
type FileSubmission struct {
	StudentEmail string                  `json:"studentEmail"`
	AttemptID    uint                    `json:"attemptId"`
	AttemptedAt  time.Time               `json:"attemptedAt"`
	Files        []grading.SubmittedFile `json:"files"`
}

func (s *AttemptService) requireEnrolled(email string, moduleID uint) error {
	ok, err := s.ModuleRepo.IsEnrolled(email, moduleID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrNotEnrolled
	}
	return nil
}

func (s *AttemptService) ownedQuiz(actor *util.Claims, id uint, withQuestions bool) (*model.Quiz, error) {
	q, err := findQuiz(s.QuizRepo, id, withQuestions)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(q.TeacherEmail) {
		return nil, util.ErrPermissionDenied
	}
	return q, nil
}

// GetAttemptStatus remaining 可能小于等于 0，此时不能再提交
func (s *AttemptService) GetAttemptStatus(quizID uint, email string) (*AttemptStatus, error) {
	q, err := findQuiz(s.QuizRepo, quizID, false)
	if err != nil {
		return nil, err
	}
	used, err := s.QuizRepo.CountAttempts(quizID, email)
	if err != nil {
		return nil, err
	}
	st := newAttemptStatus(q.AttemptLimit, int(used))
	return &st, nil
}

// parseAnswers 在 API 边界把原始 JSON 转为 AnswerSet，并收集需要替换的文件占位符
func parseAnswers(questions []model.QuizQuestion, raw map[string]json.RawMessage) (model.AnswerSet, map[string][]model.FilePlaceholder, error) {
	byID := make(map[string]*model.QuizQuestion, len(questions))
	for i := range questions {
		byID[questionKey(questions[i].ID)] = &questions[i]
	}

	set := make(model.AnswerSet, len(raw))
	pending := make(map[string][]model.FilePlaceholder)
	for key, value := range raw {
		q, ok := byID[strings.TrimSpace(key)]
		if !ok {
			return nil, nil, errors.Wrapf(util.ErrInvalidAnswers, "unknown question %s", key)
		}
		a, phs, err := model.ParseAnswer(value, q.Type)
		if err != nil {
			return nil, nil, errors.Wrapf(util.ErrInvalidAnswers, "question %s: %v", key, err)
		}
		qid := questionKey(q.ID)
		set[qid] = a
		if len(phs) > 0 {
			pending[qid] = append(pending[qid], phs...)
		}
	}
	return set, pending, nil
}

// matchUploads 按 answer_file_<questionId> 字段匹配上传文件，找不到时按原始文件名匹配；
// 每个文件只会被使用一次
func matchUploads(pending map[string][]model.FilePlaceholder, uploads map[string][]*multipart.FileHeader) map[string][]*multipart.FileHeader {
	used := make(map[*multipart.FileHeader]bool)
	matched := make(map[string][]*multipart.FileHeader)

	take := func(qid string, fh *multipart.FileHeader) {
		if !used[fh] {
			used[fh] = true
			matched[qid] = append(matched[qid], fh)
		}
	}

	qids := make([]string, 0, len(pending))
	for qid := range pending {
		qids = append(qids, qid)
	}
	sort.Strings(qids)

	for _, qid := range qids {
		for _, fh := range uploads[util.AnswerFileFieldPrefix+qid] {
			take(qid, fh)
		}
	}
	for _, qid := range qids {
		for _, ph := range pending[qid] {
			if ph.FileName == "" {
				continue
			}
			for _, files := range uploads {
				for _, fh := range files {
					if fh.Filename == ph.FileName && !used[fh] {
						take(qid, fh)
					}
				}
			}
		}
	}
	return matched
}

// Submit 提交一次作答；次数检查为尽力而为，并发提交可能多出一次
func (s *AttemptService) Submit(ctx context.Context, actor *util.Claims, quizID uint, in SubmitInput) (*model.QuizAttempt, error) {
	quiz, err := findQuiz(s.QuizRepo, quizID, true)
	if err != nil {
		return nil, err
	}
	if err := s.requireEnrolled(actor.Email, quiz.ModuleID); err != nil {
		return nil, err
	}

	answers, pending, err := parseAnswers(quiz.Questions, in.Answers)
	if err != nil {
		return nil, err
	}
	// 带有 answer_file_<questionId> 字段但答案中没有占位符的题目也接收文件
	for field := range in.Uploads {
		qid, ok := strings.CutPrefix(field, util.AnswerFileFieldPrefix)
		if !ok || !questionExists(quiz.Questions, qid) {
			continue
		}
		if _, ok := pending[qid]; !ok {
			pending[qid] = nil
		}
	}
	// 文件作答会覆盖文本，同一题同时提交文本与文件时整体拒绝
	for qid := range pending {
		if a := answers[qid]; a.Kind != model.AnswerFiles && !a.IsEmpty() {
			return nil, errors.Wrapf(util.ErrInvalidAnswers, "question %s: text answer cannot be combined with uploaded files", qid)
		}
	}

	used, err := s.QuizRepo.CountAttempts(quizID, actor.Email)
	if err != nil {
		return nil, err
	}
	if int(used) >= quiz.AttemptLimit {
		monitoring.QuizAttempts.WithLabelValues(monitoring.AttemptRejected).Inc()
		logger.Log.Info("Attempt limit reached",
			zap.Uint("quizId", quizID),
			zap.String("email", actor.Email),
			zap.Int64("used", used))
		return nil, util.ErrAttemptLimitReached
	}

	var stored []string
	for qid, files := range matchUploads(pending, in.Uploads) {
		paths := append([]string{}, answers[qid].Files...)
		for _, fh := range files {
			f, err := s.Storage.Save(ctx, util.DirSubmissions, fh)
			if err != nil {
				s.Storage.Remove(ctx, stored...)
				return nil, errors.Wrap(err, "store answer file")
			}
			stored = append(stored, f.Path)
			paths = append(paths, f.Path)
		}
		answers[qid] = model.FileAnswer(paths...)
	}

	attempt := &model.QuizAttempt{QuizID: quizID, StudentEmail: actor.Email}
	if err := attempt.SetAnswers(answers); err != nil {
		return nil, errors.Wrap(err, "encode answers")
	}
	if err := s.QuizRepo.CreateAttempt(attempt); err != nil {
		s.Storage.Remove(ctx, stored...)
		return nil, errors.Wrap(err, "save attempt")
	}

	monitoring.QuizAttempts.WithLabelValues(monitoring.AttemptAccepted).Inc()
	logger.Log.Info("Quiz attempt submitted",
		zap.Uint("quizId", quizID),
		zap.String("email", actor.Email),
		zap.Int64("attempt", used+1))
	return attempt, nil
}

func questionExists(questions []model.QuizQuestion, qid string) bool {
	for i := range questions {
		if questionKey(questions[i].ID) == qid {
			return true
		}
	}
	return false
}

func (s *AttemptService) grade(quiz *model.Quiz, attempt *model.QuizAttempt) (grading.Result, error) {
	answers, err := attempt.AnswerSet()
	if err != nil {
		return grading.Result{}, errors.Wrapf(err, "decode attempt %d", attempt.ID)
	}
	return grading.Score(quiz.Questions, answers, s.Storage.URL), nil
}

// Score 学生查看自己的最新成绩；教师可查看自己测验中任一学生的成绩
func (s *AttemptService) Score(actor *util.Claims, quizID uint, studentEmail string) (*ScoreResult, error) {
	quiz, err := findQuiz(s.QuizRepo, quizID, true)
	if err != nil {
		return nil, err
	}

	email := actor.Email
	if studentEmail = NormalizeEmail(studentEmail); studentEmail != "" && studentEmail != actor.Email {
		if !actor.IsStaff() || !actor.Owns(quiz.TeacherEmail) {
			return nil, util.ErrPermissionDenied
		}
		email = studentEmail
	}

	attempt, err := s.QuizRepo.LatestAttempt(quizID, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}

	res, err := s.grade(quiz, attempt)
	if err != nil {
		return nil, err
	}
	return &ScoreResult{
		QuizID:       quiz.ID,
		QuizTitle:    quiz.Title,
		StudentEmail: email,
		Result:       res,
		AttemptID:    attempt.ID,
		AttemptedAt:  attempt.CreatedAt,
	}, nil
}

// latestPerStudent attempts 已按最新在前排序，返回每个学生的最新作答与作答次数
func latestPerStudent(attempts []model.QuizAttempt) (map[string]*model.QuizAttempt, map[string]int) {
	latest := make(map[string]*model.QuizAttempt)
	counts := make(map[string]int)
	for i := range attempts {
		email := attempts[i].StudentEmail
		if _, ok := latest[email]; !ok {
			latest[email] = &attempts[i]
		}
		counts[email]++
	}
	return latest, counts
}

func sortedEmails(m map[string]*model.QuizAttempt) []string {
	emails := make([]string, 0, len(m))
	for e := range m {
		emails = append(emails, e)
	}
	sort.Strings(emails)
	return emails
}

// ListScores 每个学生一行，只计最新一次作答，按邮箱排序
func (s *AttemptService) ListScores(actor *util.Claims, quizID uint) ([]ScoreRow, error) {
	quiz, err := s.ownedQuiz(actor, quizID, true)
	if err != nil {
		return nil, err
	}
	attempts, err := s.QuizRepo.FindAttempts(quizID)
	if err != nil {
		return nil, err
	}
	latest, counts := latestPerStudent(attempts)
	names := s.studentNames(sortedEmails(latest))

	rows := make([]ScoreRow, 0, len(latest))
	for _, email := range sortedEmails(latest) {
		a := latest[email]
		res, err := s.grade(quiz, a)
		if err != nil {
			logger.Log.Warn("Skip undecodable attempt", zap.Uint("attemptId", a.ID), zap.Error(err))
			continue
		}
		rows = append(rows, ScoreRow{
			StudentEmail: email,
			StudentName:  names[email],
			Score:        res.Score,
			Total:        res.Total,
			Attempts:     counts[email],
			AttemptedAt:  a.CreatedAt,
		})
	}
	return rows, nil
}

func (s *AttemptService) studentNames(emails []string) map[string]string {
	names := make(map[string]string, len(emails))
	for _, e := range emails {
		if u, err := s.UserRepo.FindByEmail(e); err == nil {
			names[e] = u.Name
		}
	}
	return names
}

// ListAttempts 全部作答，最新在前，attemptNumber 从 1 开始按时间递增
func (s *AttemptService) ListAttempts(actor *util.Claims, quizID uint) ([]AttemptRow, error) {
	if _, err := s.ownedQuiz(actor, quizID, false); err != nil {
		return nil, err
	}
	attempts, err := s.QuizRepo.FindAttempts(quizID)
	if err != nil {
		return nil, err
	}
	_, remaining := latestPerStudent(attempts)

	rows := make([]AttemptRow, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		set, err := a.AnswerSet()
		if err != nil {
			logger.Log.Warn("Undecodable attempt answers", zap.Uint("attemptId", a.ID), zap.Error(err))
			set = model.AnswerSet{}
		}
		rows = append(rows, AttemptRow{
			ID:            a.ID,
			StudentEmail:  a.StudentEmail,
			AttemptNumber: remaining[a.StudentEmail],
			Answers:       set,
			CreatedAt:     a.CreatedAt,
		})
		remaining[a.StudentEmail]--
	}
	return rows, nil
}

// Submissions 每个学生最新作答中 Activity 题提交的文件
func (s *AttemptService) Submissions(actor *util.Claims, quizID uint) ([]FileSubmission, error) {
	quiz, err := s.ownedQuiz(actor, quizID, true)
	if err != nil {
		return nil, err
	}
	attempts, err := s.QuizRepo.FindAttempts(quizID)
	if err != nil {
		return nil, err
	}
	latest, _ := latestPerStudent(attempts)

	out := make([]FileSubmission, 0, len(latest))
	for _, email := range sortedEmails(latest) {
		a := latest[email]
		res, err := s.grade(quiz, a)
		if err != nil || len(res.SubmittedFiles) == 0 {
			continue
		}
		out = append(out, FileSubmission{
			StudentEmail: email,
			AttemptID:    a.ID,
			AttemptedAt:  a.CreatedAt,
			Files:        res.SubmittedFiles,
		})
	}
	return out, nil
}
