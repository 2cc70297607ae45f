package grading

import (
	"testing"

	"communilearn_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func question(id uint, typ, answer string, points int) model.QuizQuestion {
	q := model.QuizQuestion{Type: typ, Question: "Q", Answer: answer, Points: points}
	q.ID = id
	return q
}

func TestScore_CaseAndWhitespaceInsensitive(t *testing.T) {
	qs := []model.QuizQuestion{question(1, model.QuestionMultipleChoice, "Paris", 3)}
	res := Score(qs, model.AnswerSet{"1": model.ChoiceAnswer("  paris ")}, nil)

	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 3, res.Total)
	assert.True(t, res.Details[0].Correct)
	assert.Equal(t, 3, res.Details[0].Awarded)
}

func TestScore_ActivityNeverScores(t *testing.T) {
	tests := []struct {
		name      string
		answer    model.Answer
		submitted bool
	}{
		{"files", model.FileAnswer("submissions/a.pdf"), true},
		{"text", model.TextAnswer("done"), true},
		{"blank text", model.TextAnswer("   "), false},
		{"no files", model.FileAnswer(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := []model.QuizQuestion{
				question(1, model.QuestionIdentification, "go", 2),
				question(2, model.QuestionActivity, "", 5),
			}
			res := Score(qs, model.AnswerSet{"1": model.TextAnswer("Go"), "2": tt.answer}, nil)

			assert.Equal(t, 2, res.Score)
			assert.Equal(t, 2, res.Total)
			assert.Equal(t, 0, res.Details[1].Awarded)
			assert.False(t, res.Details[1].Correct)
			assert.Equal(t, tt.submitted, res.Details[1].Submitted)
		})
	}
}

func TestScore_MissingAndWrongAnswers(t *testing.T) {
	qs := []model.QuizQuestion{
		question(1, model.QuestionMultipleChoice, "A", 1),
		question(2, model.QuestionIdentification, "mitochondria", 4),
	}
	res := Score(qs, model.AnswerSet{"1": model.ChoiceAnswer("B")}, nil)

	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 5, res.Total)
	assert.False(t, res.Details[1].Submitted)
}

func TestScore_BlankAnswerNeverMatchesBlankKey(t *testing.T) {
	qs := []model.QuizQuestion{
		question(1, model.QuestionMultipleChoice, "", 2),
		question(2, model.QuestionIdentification, "  ", 3),
	}

	for _, answers := range []model.AnswerSet{
		{},
		{"1": model.ChoiceAnswer(""), "2": model.TextAnswer("   ")},
	} {
		res := Score(qs, answers, nil)
		assert.Equal(t, 0, res.Score)
		assert.Equal(t, 5, res.Total)
		assert.False(t, res.Details[0].Correct)
		assert.False(t, res.Details[1].Correct)
	}
}

func TestScore_SubmittedFiles(t *testing.T) {
	qs := []model.QuizQuestion{question(9, model.QuestionActivity, "", 1)}
	answers := model.AnswerSet{"9": model.FileAnswer("submissions/a1.pdf", "submissions/b2.png")}

	res := Score(qs, answers, func(p string) string { return "/uploads/" + p })

	assert.Equal(t, []SubmittedFile{
		{QuestionID: 9, Name: "a1.pdf", Path: "submissions/a1.pdf", URL: "/uploads/submissions/a1.pdf"},
		{QuestionID: 9, Name: "b2.png", Path: "submissions/b2.png", URL: "/uploads/submissions/b2.png"},
	}, res.SubmittedFiles)
}

func TestTotalPoints(t *testing.T) {
	qs := []model.QuizQuestion{
		question(1, model.QuestionMultipleChoice, "a", 2),
		question(2, model.QuestionIdentification, "b", 3),
		question(3, model.QuestionActivity, "", 5),
	}
	assert.Equal(t, 5, TotalPoints(qs))
}
