package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		questionType string
		want         Answer
		placeholders []FilePlaceholder
	}{
		{"choice", `"Paris"`, QuestionMultipleChoice, ChoiceAnswer("Paris"), nil},
		{"text", `"Go"`, QuestionIdentification, TextAnswer("Go"), nil},
		{"number", `42`, QuestionIdentification, TextAnswer("42"), nil},
		{"bool", `true`, QuestionIdentification, TextAnswer("true"), nil},
		{"null activity", `null`, QuestionActivity, FileAnswer(), nil},
		{"file list", `["quiz/a.pdf","quiz/b.pdf"]`, QuestionActivity, FileAnswer("quiz/a.pdf", "quiz/b.pdf"), nil},
		{"files object", `{"files":["quiz/a.pdf"]}`, QuestionActivity, FileAnswer("quiz/a.pdf"), nil},
		{
			"placeholder", `"__FILE__:12"`, QuestionActivity, FileAnswer(),
			[]FilePlaceholder{{QuestionID: "12"}},
		},
		{
			"placeholder with name in list", `["__FILE__:12:report.docx"]`, QuestionActivity, FileAnswer(),
			[]FilePlaceholder{{QuestionID: "12", FileName: "report.docx"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, phs, err := ParseAnswer(json.RawMessage(tt.raw), tt.questionType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.placeholders, phs)
		})
	}
}

func TestParseAnswer_RejectsNonStringArray(t *testing.T) {
	_, _, err := ParseAnswer(json.RawMessage(`[1,2]`), QuestionActivity)
	assert.ErrorIs(t, err, ErrUnsupportedAnswer)
}

func TestAnswerSetJSON(t *testing.T) {
	set := AnswerSet{
		"1": ChoiceAnswer("B"),
		"2": FileAnswer("submissions/x.pdf"),
		"3": FileAnswer(),
	}
	b, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":"B","2":["submissions/x.pdf"],"3":[]}`, string(b))

	var decoded AnswerSet
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "B", decoded["1"].Value())
	assert.Equal(t, []string{"submissions/x.pdf"}, decoded["2"].Files)
	assert.True(t, decoded["3"].IsEmpty())
}

func TestQuizAttemptAnswers(t *testing.T) {
	var a QuizAttempt
	set, err := a.AnswerSet()
	require.NoError(t, err)
	assert.Empty(t, set)

	require.NoError(t, a.SetAnswers(AnswerSet{"5": TextAnswer(" hello ")}))
	set, err = a.AnswerSet()
	require.NoError(t, err)
	assert.Equal(t, " hello ", set["5"].Text)
}

func TestAttendanceMarker(t *testing.T) {
	desc := "Morning check-in " + AttendanceMarker(42) + " — Due: 10 Jan 2025 08:00"
	id, ok := ParseAttendanceMarker(desc)
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = ParseAttendanceMarker("plain announcement")
	assert.False(t, ok)
	_, ok = ParseAttendanceMarker("[ATTENDANCE_ID:0]")
	assert.False(t, ok)
}
