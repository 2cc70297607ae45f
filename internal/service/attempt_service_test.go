package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attemptFixture struct {
	*testEnv
	teacher, student *util.Claims
	quiz             *QuizView
	mcID, idID, actID string
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	e := newTestEnv(t)
	f := &attemptFixture{testEnv: e}
	f.teacher = e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	f.student = e.createUser(t, "Sam", "sam@school.edu", model.Student, true)
	m := e.createModule(t, f.teacher, "Geography")
	f.quiz = e.createQuiz(t, f.teacher, m.ID, sampleQuestions)
	f.mcID = questionKey(f.quiz.Questions[0].ID)
	f.idID = questionKey(f.quiz.Questions[1].ID)
	f.actID = questionKey(f.quiz.Questions[2].ID)
	return f
}

func (f *attemptFixture) setLimit(t *testing.T, limit int) {
	_, err := f.quizzes.SaveQuestions(context.Background(), f.teacher, SaveQuestionsInput{
		QuizID:       f.quiz.ID,
		AttemptLimit: &limit,
		Questions:    json.RawMessage(sampleQuestions),
	})
	require.NoError(t, err)
	// 重新保存会生成新的题目 ID
	q, err := f.quizRepo.FindWithQuestions(f.quiz.ID)
	require.NoError(t, err)
	f.mcID = questionKey(q.Questions[0].ID)
	f.idID = questionKey(q.Questions[1].ID)
	f.actID = questionKey(q.Questions[2].ID)
}

func answers(pairs ...string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = json.RawMessage(pairs[i+1])
	}
	return out
}

func TestSubmit_AttemptLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
	}{
		{"single attempt", 1},
		{"three attempts", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAttemptFixture(t)
			ctx := context.Background()
			f.setLimit(t, tt.limit)

			st, err := f.attempts.GetAttemptStatus(f.quiz.ID, f.student.Email)
			require.NoError(t, err)
			assert.Equal(t, AttemptStatus{Limit: tt.limit, Used: 0, Remaining: tt.limit}, *st)

			for i := 1; i <= tt.limit; i++ {
				_, err = f.attempts.Submit(ctx, f.student, f.quiz.ID, SubmitInput{Answers: answers(f.mcID, `"Paris"`)})
				require.NoError(t, err, "attempt %d", i)

				st, err = f.attempts.GetAttemptStatus(f.quiz.ID, f.student.Email)
				require.NoError(t, err)
				assert.Equal(t, AttemptStatus{Limit: tt.limit, Used: i, Remaining: tt.limit - i}, *st)
			}

			_, err = f.attempts.Submit(ctx, f.student, f.quiz.ID, SubmitInput{Answers: answers(f.mcID, `"Rome"`)})
			assert.ErrorIs(t, err, util.ErrAttemptLimitReached)
			assert.Equal(t, 403, util.StatusOf(err))

			attempts, err := f.quizRepo.CountAttempts(f.quiz.ID, f.student.Email)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.limit), attempts, "rejected submissions are not stored")
		})
	}
}

func TestSubmit_RejectsUnknownQuestionAndOutsiders(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	_, err := f.attempts.Submit(ctx, f.student, f.quiz.ID, SubmitInput{Answers: answers("99999", `"x"`)})
	assert.ErrorIs(t, err, util.ErrInvalidAnswers)

	_, err = f.attempts.Submit(ctx, f.student, 4242, SubmitInput{})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	// 模块创建之后才注册的学生没有选课
	late := f.createUser(t, "Lee", "lee@school.edu", model.Student, true)
	_, err = f.attempts.Submit(ctx, late, f.quiz.ID, SubmitInput{Answers: answers(f.mcID, `"Paris"`)})
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestSubmit_ResolvesPlaceholderByField(t *testing.T) {
	f := newAttemptFixture(t)

	uploads := multipartFiles(t, upload{util.AnswerFileFieldPrefix + f.actID, "essay.pdf", "essay body"})
	attempt, err := f.attempts.Submit(context.Background(), f.student, f.quiz.ID, SubmitInput{
		Answers: answers(f.actID, fmt.Sprintf(`"%s%s"`, model.FilePlaceholderPrefix, f.actID)),
		Uploads: uploads,
	})
	require.NoError(t, err)

	set, err := attempt.AnswerSet()
	require.NoError(t, err)
	a := set[f.actID]
	assert.Equal(t, model.AnswerFiles, a.Kind)
	require.Len(t, a.Files, 1)
	assert.True(t, strings.HasPrefix(a.Files[0], util.DirSubmissions+"/"))

	data, err := os.ReadFile(filepath.Join(f.cfg.Storage.LocalPath, filepath.FromSlash(a.Files[0])))
	require.NoError(t, err)
	assert.Equal(t, "essay body", string(data))
}

func TestSubmit_RejectsTextWithUploadedFiles(t *testing.T) {
	f := newAttemptFixture(t)

	uploads := multipartFiles(t, upload{util.AnswerFileFieldPrefix + f.actID, "essay.pdf", "essay body"})
	_, err := f.attempts.Submit(context.Background(), f.student, f.quiz.ID, SubmitInput{
		Answers: answers(f.actID, `"see attached"`),
		Uploads: uploads,
	})
	assert.ErrorIs(t, err, util.ErrInvalidAnswers)

	used, err := f.quizRepo.CountAttempts(f.quiz.ID, f.student.Email)
	require.NoError(t, err)
	assert.Zero(t, used)
	entries, _ := os.ReadDir(filepath.Join(f.cfg.Storage.LocalPath, util.DirSubmissions))
	assert.Empty(t, entries, "no file is stored for a rejected submission")

	_, err = f.attempts.Submit(context.Background(), f.student, f.quiz.ID, SubmitInput{
		Answers: answers(f.actID, `"see attached"`),
	})
	assert.NoError(t, err, "a text-only activity answer is accepted")
}

func TestSubmit_ResolvesPlaceholderByFilename(t *testing.T) {
	f := newAttemptFixture(t)

	uploads := multipartFiles(t,
		upload{"attachments", "report.pdf", "report"},
		upload{"attachments", "other.pdf", "other"},
	)
	placeholder := fmt.Sprintf(`["%s%s:report.pdf"]`, model.FilePlaceholderPrefix, f.actID)
	attempt, err := f.attempts.Submit(context.Background(), f.student, f.quiz.ID, SubmitInput{
		Answers: answers(f.actID, placeholder),
		Uploads: uploads,
	})
	require.NoError(t, err)

	set, err := attempt.AnswerSet()
	require.NoError(t, err)
	require.Len(t, set[f.actID].Files, 1, "only the file with the matching name is attached")

	res, err := f.attempts.Score(f.student, f.quiz.ID, "")
	require.NoError(t, err)
	require.Len(t, res.SubmittedFiles, 1)
	assert.Equal(t, "/uploads/"+set[f.actID].Files[0], res.SubmittedFiles[0].URL)
}

func TestSubmit_UnresolvedPlaceholderIsEmpty(t *testing.T) {
	f := newAttemptFixture(t)

	attempt, err := f.attempts.Submit(context.Background(), f.student, f.quiz.ID, SubmitInput{
		Answers: answers(f.actID, fmt.Sprintf(`"%s%s:missing.pdf"`, model.FilePlaceholderPrefix, f.actID)),
	})
	require.NoError(t, err)
	set, err := attempt.AnswerSet()
	require.NoError(t, err)
	assert.Equal(t, model.AnswerFiles, set[f.actID].Kind)
	assert.Empty(t, set[f.actID].Files)
}

func TestScore_LatestAttemptAndNormalization(t *testing.T) {
	f := newAttemptFixture(t)
	f.setLimit(t, 3)
	ctx := context.Background()

	_, err := f.attempts.Score(f.student, f.quiz.ID, "")
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)

	_, err = f.attempts.Submit(ctx, f.student, f.quiz.ID, SubmitInput{Answers: answers(f.mcID, `"Rome"`)})
	require.NoError(t, err)
	_, err = f.attempts.Submit(ctx, f.student, f.quiz.ID, SubmitInput{
		Answers: answers(f.mcID, `"  paris "`, f.idID, `"4"`, f.actID, `"my essay"`),
	})
	require.NoError(t, err)

	res, err := f.attempts.Score(f.student, f.quiz.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Score)
	assert.Equal(t, 5, res.Total)
	require.Len(t, res.Details, 3)
	assert.True(t, res.Details[2].Submitted)
	assert.Zero(t, res.Details[2].Awarded)

	other := f.createUser(t, "Tom", "tom@school.edu", model.Teacher, true)
	_, err = f.attempts.Score(other, f.quiz.ID, f.student.Email)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	byTeacher, err := f.attempts.Score(f.teacher, f.quiz.ID, f.student.Email)
	require.NoError(t, err)
	assert.Equal(t, res.Score, byTeacher.Score)
}

func TestListScoresAndAttempts(t *testing.T) {
	f := newAttemptFixture(t)
	f.setLimit(t, 2)
	ctx := context.Background()
	zoe := f.createUser(t, "Zoe", "zoe@school.edu", model.Student, true)
	_, err := f.enrollment.EnrollStudent(zoe.Email)
	require.NoError(t, err)

	_, err = f.attempts.Submit(ctx, zoe, f.quiz.ID, SubmitInput{Answers: answers(f.mcID, `"Paris"`)})
	require.NoError(t, err)
	_, err = f.attempts.Submit(ctx, f.student, f.quiz.ID, SubmitInput{Answers: answers(f.idID, `"5"`)})
	require.NoError(t, err)
	_, err = f.attempts.Submit(ctx, f.student, f.quiz.ID, SubmitInput{Answers: answers(f.idID, `"4"`)})
	require.NoError(t, err)

	rows, err := f.attempts.ListScores(f.teacher, f.quiz.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "sam@school.edu", rows[0].StudentEmail)
	assert.Equal(t, "Sam", rows[0].StudentName)
	assert.Equal(t, 3, rows[0].Score)
	assert.Equal(t, 2, rows[0].Attempts)
	assert.Equal(t, "zoe@school.edu", rows[1].StudentEmail)
	assert.Equal(t, 2, rows[1].Score)

	all, err := f.attempts.ListAttempts(f.teacher, f.quiz.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	numbers := map[string][]int{}
	for _, r := range all {
		numbers[r.StudentEmail] = append(numbers[r.StudentEmail], r.AttemptNumber)
	}
	assert.Equal(t, []int{2, 1}, numbers["sam@school.edu"])
	assert.Equal(t, []int{1}, numbers["zoe@school.edu"])

	_, err = f.attempts.ListScores(f.student, f.quiz.ID)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
