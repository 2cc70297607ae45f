// Package grading 根据当前题目定义重新计算一次作答的得分。
package grading

import (
	"strconv"
	"strings"

	"communilearn_backend/internal/model"
	"communilearn_backend/internal/util"
)

// Detail 单题评分结果
type Detail struct {
	QuestionID    uint         `json:"questionId"`
	Type          string       `json:"type"`
	Question      string       `json:"question"`
	CorrectAnswer string       `json:"correctAnswer"`
	StudentAnswer model.Answer `json:"studentAnswer"`
	Correct       bool         `json:"correct"`
	Awarded       int          `json:"awarded"`
	Points        int          `json:"points"`
	Submitted     bool         `json:"submitted"`
}

// SubmittedFile Activity 题提交的文件
type SubmittedFile struct {
	QuestionID uint   `json:"questionId"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	URL        string `json:"url"`
}

type Result struct {
	Score          int             `json:"score"`
	Total          int             `json:"total"`
	Details        []Detail        `json:"details"`
	SubmittedFiles []SubmittedFile `json:"submittedFiles"`
}

// URLFunc 把存储路径转换为可访问的 URL
type URLFunc func(path string) string

// strategy 按题型评分，返回 (是否正确, 得分)
type strategy interface {
	grade(q *model.QuizQuestion, a model.Answer) (bool, int)
	// scored 是否计入总分
	scored() bool
}

type exactMatch struct{}

func (exactMatch) grade(q *model.QuizQuestion, a model.Answer) (bool, int) {
	if a.Kind == model.AnswerFiles {
		return false, 0
	}
	// 空作答不得分，即使题目缺少答案键
	if Normalize(a.Value()) == "" {
		return false, 0
	}
	if Normalize(q.Answer) == Normalize(a.Value()) {
		return true, q.Points
	}
	return false, 0
}

func (exactMatch) scored() bool { return true }

type activity struct{}

func (activity) grade(*model.QuizQuestion, model.Answer) (bool, int) { return false, 0 }

func (activity) scored() bool { return false }

var strategies = map[string]strategy{
	model.QuestionMultipleChoice: exactMatch{},
	model.QuestionIdentification: exactMatch{},
	model.QuestionActivity:       activity{},
}

func strategyFor(questionType string) strategy {
	if s, ok := strategies[questionType]; ok {
		return s
	}
	return exactMatch{}
}

// Normalize 比较前去除首尾空白并转小写
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TotalPoints 非 Activity 题目的分值之和
func TotalPoints(questions []model.QuizQuestion) int {
	total := 0
	for i := range questions {
		if strategyFor(questions[i].Type).scored() {
			total += questions[i].Points
		}
	}
	return total
}

// Score 对一次作答评分，题目按传入顺序输出
func Score(questions []model.QuizQuestion, answers model.AnswerSet, url URLFunc) Result {
	res := Result{
		Details:        make([]Detail, 0, len(questions)),
		SubmittedFiles: []SubmittedFile{},
	}

	for i := range questions {
		q := &questions[i]
		s := strategyFor(q.Type)
		a, ok := answers[strconv.FormatUint(uint64(q.ID), 10)]
		if !ok {
			a = model.TextAnswer("")
		}

		d := Detail{
			QuestionID:    q.ID,
			Type:          q.Type,
			Question:      q.Question,
			CorrectAnswer: q.Answer,
			StudentAnswer: a,
			Points:        q.Points,
			Submitted:     !a.IsEmpty(),
		}
		d.Correct, d.Awarded = s.grade(q, a)

		if s.scored() {
			res.Score += d.Awarded
			res.Total += q.Points
		} else {
			d.Points = 0
			for _, p := range a.Files {
				f := SubmittedFile{QuestionID: q.ID, Name: util.BaseName(p), Path: p, URL: p}
				if url != nil {
					f.URL = url(p)
				}
				res.SubmittedFiles = append(res.SubmittedFiles, f)
			}
		}
		res.Details = append(res.Details, d)
	}
	return res
}
