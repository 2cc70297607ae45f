package service

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"strings"
	"testing"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleQuestions = `[
	{"type":"Multiple Choice","question":"Capital of France?","options":["Paris","Rome"],"answer":"Paris","points":2},
	{"type":"Identification","question":"2+2","answer":"4","points":3},
	{"type":"Activity","question":"Upload your essay","answer":"ignored","points":5}
]`

func TestCreateQuizShell(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	other := e.createUser(t, "Tom", "tom@school.edu", model.Teacher, true)
	super := e.createUser(t, "Root", "root@school.edu", model.SuperTeacher, true)
	m := e.createModule(t, teacher, "Algebra")

	q, err := e.quizzes.CreateQuizShell(teacher, m.ID, "  Week 1 ")
	require.NoError(t, err)
	assert.Equal(t, "Week 1", q.Title)
	assert.Equal(t, 1, q.AttemptLimit)
	assert.Zero(t, q.TotalPoints)

	_, err = e.quizzes.CreateQuizShell(teacher, m.ID, "")
	assert.ErrorIs(t, err, util.ErrInvalidInput)
	_, err = e.quizzes.CreateQuizShell(teacher, 9999, "Lost")
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
	_, err = e.quizzes.CreateQuizShell(other, m.ID, "Not mine")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	_, err = e.quizzes.CreateQuizShell(super, m.ID, "Super")
	assert.NoError(t, err)
}

func TestSaveQuestions_TotalsAndActivity(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	m := e.createModule(t, teacher, "Algebra")

	view := e.createQuiz(t, teacher, m.ID, sampleQuestions)
	assert.Equal(t, 5, view.TotalPoints, "activity points are excluded")
	require.Len(t, view.Questions, 3)
	assert.Equal(t, "", view.Questions[2].Answer, "activity answers are blanked")
	assert.Equal(t, []string{"Paris", "Rome"}, []string(view.Questions[0].Options))

	// 再次保存会整体替换题目
	view, err := e.quizzes.SaveQuestions(context.Background(), teacher, SaveQuestionsInput{
		QuizID:    view.ID,
		Questions: json.RawMessage(`[{"type":"Identification","question":"3+3","answer":"6"}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalPoints, "points default to 1")
	questions, err := e.quizRepo.FindQuestions(view.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}

func TestSaveQuestions_Validation(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	other := e.createUser(t, "Tom", "tom@school.edu", model.Teacher, true)
	m := e.createModule(t, teacher, "Algebra")
	q, err := e.quizzes.CreateQuizShell(teacher, m.ID, "Quiz")
	require.NoError(t, err)

	tests := []struct {
		name      string
		actor     *util.Claims
		quizID    uint
		questions string
		want      error
	}{
		{"missing quiz id", teacher, 0, `[]`, util.ErrInvalidInput},
		{"unknown quiz", teacher, 9999, `[]`, util.ErrQuizNotFound},
		{"not owner", other, q.ID, `[]`, util.ErrPermissionDenied},
		{"invalid json", teacher, q.ID, `[{"type":`, util.ErrInvalidQuestions},
		{"unknown type", teacher, q.ID, `[{"type":"Essay","question":"Why?"}]`, util.ErrInvalidQuestion},
		{"choice without options", teacher, q.ID, `[{"type":"Multiple Choice","question":"Pick"}]`, util.ErrInvalidQuestion},
		{"negative points", teacher, q.ID, `[{"type":"Identification","question":"Q","answer":"A","points":-1}]`, util.ErrInvalidQuestion},
		{"identification without answer", teacher, q.ID, `[{"type":"Identification","question":"Q","answer":"  "}]`, util.ErrInvalidQuestion},
		{"choice without answer", teacher, q.ID, `[{"type":"Multiple Choice","question":"Pick","options":["A","B"]}]`, util.ErrInvalidQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.quizzes.SaveQuestions(context.Background(), tt.actor, SaveQuestionsInput{
				QuizID:    tt.quizID,
				Questions: json.RawMessage(tt.questions),
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 400, util.StatusOf(util.ErrInvalidQuestions))
}

func TestParseQuestions_AcceptsJSONString(t *testing.T) {
	raw, err := json.Marshal(`[{"type":"Identification","question":"Q","answer":"A"}]`)
	require.NoError(t, err)

	questions, err := ParseQuestions(raw)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Q", questions[0].Question)

	_, err = ParseQuestions(json.RawMessage(`"not json"`))
	assert.ErrorIs(t, err, util.ErrInvalidQuestions)
}

func TestSaveQuestions_FilesAndDue(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	m := e.createModule(t, teacher, "Algebra")
	q, err := e.quizzes.CreateQuizShell(teacher, m.ID, "Quiz")
	require.NoError(t, err)

	files := multipartFiles(t, upload{"files_q1", "diagram.png", "png-bytes"})
	limit := 3
	view, err := e.quizzes.SaveQuestions(context.Background(), teacher, SaveQuestionsInput{
		QuizID:       q.ID,
		AttemptLimit: &limit,
		DueDateDate:  "2030-01-02",
		Questions:    json.RawMessage(sampleQuestions),
		Files:        map[int][]*multipart.FileHeader{1: files["files_q1"]},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, view.AttemptLimit)
	require.NotNil(t, view.DueDate)
	assert.Equal(t, util.DueDate, view.DueKind)
	require.Len(t, view.Questions[1].Files, 1)
	assert.True(t, strings.HasPrefix(view.Questions[1].Files[0], util.DirQuiz+"/"))
	assert.Equal(t, "/uploads/"+view.Questions[1].Files[0], view.Questions[1].FileURLs[0])

	_, err = e.quizzes.SaveQuestions(context.Background(), teacher, SaveQuestionsInput{
		QuizID:    q.ID,
		Questions: json.RawMessage(sampleQuestions),
		Files:     map[int][]*multipart.FileHeader{7: files["files_q1"]},
	})
	assert.ErrorIs(t, err, util.ErrInvalidFile)

	_, err = e.quizzes.SaveQuestions(context.Background(), teacher, SaveQuestionsInput{
		QuizID:    q.ID,
		DueDate:   "next tuesday",
		Questions: json.RawMessage(sampleQuestions),
	})
	assert.ErrorIs(t, err, util.ErrInvalidDueDate)
}

func TestGetQuiz_StudentView(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	m := e.createModule(t, teacher, "Algebra")
	view := e.createQuiz(t, teacher, m.ID, sampleQuestions)

	outsider := e.createUser(t, "Olly", "olly@school.edu", model.Student, true)
	_, err := e.quizzes.Get(outsider, view.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	_, err = e.enrollment.EnrollStudent(outsider.Email)
	require.NoError(t, err)
	got, err := e.quizzes.Get(outsider, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra", got.ModuleTitle)
	for _, q := range got.Questions {
		assert.Empty(t, q.Answer)
	}
	require.NotNil(t, got.Attempts)
	assert.Equal(t, 1, got.Attempts.Remaining)

	staff, err := e.quizzes.Get(teacher, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", staff.Questions[0].Answer)

	list, err := e.quizzes.ListForStudent(outsider.Email)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].QuestionCount)
}

func TestDeleteQuiz_Cascades(t *testing.T) {
	e := newTestEnv(t)
	teacher := e.createUser(t, "Tess", "tess@school.edu", model.Teacher, true)
	student := e.createUser(t, "Sam", "sam@school.edu", model.Student, true)
	m := e.createModule(t, teacher, "Algebra")
	view := e.createQuiz(t, teacher, m.ID, sampleQuestions)

	_, err := e.attempts.Submit(context.Background(), student, view.ID, SubmitInput{
		Answers: map[string]json.RawMessage{questionKey(view.Questions[1].ID): json.RawMessage(`"4"`)},
	})
	require.NoError(t, err)

	require.NoError(t, e.quizzes.Delete(context.Background(), teacher, view.ID))
	_, err = e.quizzes.Get(teacher, view.ID)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
	attempts, err := e.quizRepo.FindAttempts(view.ID)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}
