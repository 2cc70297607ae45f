package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	QuestionMultipleChoice = "Multiple Choice"
	QuestionIdentification = "Identification"
	QuestionActivity       = "Activity"
)

// ValidQuestionType 只接受三种题型
func ValidQuestionType(t string) bool {
	switch t {
	case QuestionMultipleChoice, QuestionIdentification, QuestionActivity:
		return true
	}
	return false
}

// swagger:model Quiz
type Quiz struct {
	BaseModel
	Title        string         `gorm:"size:255;not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	TeacherEmail string         `gorm:"size:100;index;not null" json:"teacherEmail"`
	ModuleID     uint           `gorm:"index;not null" json:"moduleId"`
	TotalPoints  int            `gorm:"default:0" json:"totalPoints"`
	AttemptLimit int            `gorm:"default:1" json:"attemptLimit"`
	TimeLimit    int            `gorm:"default:0" json:"timeLimit"` // 分钟，0 表示不限时
	DueDate      *time.Time     `json:"dueDate"`
	Questions    []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	QuizID   uint                       `gorm:"index;not null" json:"quizId"`
	Type     string                     `gorm:"size:50;not null" json:"type"`
	Question string                     `gorm:"type:text;not null" json:"question"`
	Options  datatypes.JSONSlice[string] `json:"options"`
	Answer   string                     `gorm:"type:text" json:"answer"`
	Points   int                        `gorm:"default:1" json:"points"`
	Files    datatypes.JSONSlice[string] `json:"files"`
	Order    int                        `gorm:"column:sort_order;default:0" json:"order"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

func (q *QuizQuestion) IsActivity() bool {
	return q.Type == QuestionActivity
}

// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	QuizID       uint           `gorm:"not null;index:idx_attempt_quiz_student" json:"quizId"`
	StudentEmail string         `gorm:"size:100;not null;index:idx_attempt_quiz_student" json:"studentEmail"`
	Answers      datatypes.JSON `json:"answers"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// AnswerSet 反序列化已保存的答案
func (a *QuizAttempt) AnswerSet() (AnswerSet, error) {
	set := AnswerSet{}
	if len(a.Answers) == 0 {
		return set, nil
	}
	if err := json.Unmarshal(a.Answers, &set); err != nil {
		return nil, err
	}
	return set, nil
}

func (a *QuizAttempt) SetAnswers(set AnswerSet) error {
	if set == nil {
		set = AnswerSet{}
	}
	b, err := json.Marshal(set)
	if err != nil {
		return err
	}
	a.Answers = datatypes.JSON(b)
	return nil
}
