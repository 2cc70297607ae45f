package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type AnswerKind string

const (
	AnswerText   AnswerKind = "text"
	AnswerChoice AnswerKind = "choice"
	AnswerFiles  AnswerKind = "files"
)

// FilePlaceholderPrefix 前端在同一请求中上传文件时使用的答案占位符：
// "__FILE__:<questionId>" 或 "__FILE__:<questionId>:<原始文件名>"
const FilePlaceholderPrefix = "__FILE__:"

var ErrUnsupportedAnswer = errors.New("unsupported answer value")

// Answer 学生对单个题目的作答，三选一：文本、选项、文件列表
type Answer struct {
	Kind  AnswerKind
	Text  string
	Files []string
}

// AnswerSet 题目 ID（十进制字符串）到作答的映射
type AnswerSet map[string]Answer

type FilePlaceholder struct {
	QuestionID string
	FileName   string
}

func TextAnswer(s string) Answer {
	return Answer{Kind: AnswerText, Text: s}
}

func ChoiceAnswer(s string) Answer {
	return Answer{Kind: AnswerChoice, Text: s}
}

func FileAnswer(paths ...string) Answer {
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) != "" {
			files = append(files, p)
		}
	}
	return Answer{Kind: AnswerFiles, Files: files}
}

// Value 文本/选项类作答的原始字符串，文件作答返回空串
func (a Answer) Value() string {
	if a.Kind == AnswerFiles {
		return ""
	}
	return a.Text
}

func (a Answer) IsEmpty() bool {
	if a.Kind == AnswerFiles {
		return len(a.Files) == 0
	}
	return strings.TrimSpace(a.Text) == ""
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Kind == AnswerFiles {
		files := a.Files
		if files == nil {
			files = []string{}
		}
		return json.Marshal(files)
	}
	return json.Marshal(a.Text)
}

// UnmarshalJSON 读取已保存的作答：字符串为文本，数组或 {"files":[...]} 为文件
func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = TextAnswer("")
		return nil
	}
	switch b[0] {
	case '[':
		var files []string
		if err := json.Unmarshal(b, &files); err != nil {
			return err
		}
		*a = FileAnswer(files...)
	case '{':
		var obj struct {
			Files []string `json:"files"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*a = FileAnswer(obj.Files...)
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
	default:
		*a = TextAnswer(string(b))
	}
	return nil
}

// ParseFilePlaceholder 解析 "__FILE__:<qid>[:<filename>]"
func ParseFilePlaceholder(s string) (FilePlaceholder, bool) {
	if !strings.HasPrefix(s, FilePlaceholderPrefix) {
		return FilePlaceholder{}, false
	}
	rest := strings.TrimPrefix(s, FilePlaceholderPrefix)
	qid, name, _ := strings.Cut(rest, ":")
	if qid == "" {
		return FilePlaceholder{}, false
	}
	return FilePlaceholder{QuestionID: qid, FileName: name}, true
}

// ParseAnswer 在 API 边界把前端传来的任意 JSON 值转换为 Answer。
// 返回的占位符需要由调用方用同一请求中上传的文件替换。
func ParseAnswer(raw json.RawMessage, questionType string) (Answer, []FilePlaceholder, error) {
	return decodeAnswer(raw, questionType)
}

func decodeAnswer(raw []byte, questionType string) (Answer, []FilePlaceholder, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if questionType == QuestionActivity {
			return FileAnswer(), nil, nil
		}
		return TextAnswer(""), nil, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Answer{}, nil, err
		}
		if ph, ok := ParseFilePlaceholder(s); ok {
			return FileAnswer(), []FilePlaceholder{ph}, nil
		}
		if questionType == QuestionMultipleChoice {
			return ChoiceAnswer(s), nil, nil
		}
		return TextAnswer(s), nil, nil
	case '[':
		var items []string
		if err := json.Unmarshal(raw, &items); err != nil {
			return Answer{}, nil, fmt.Errorf("%w: %v", ErrUnsupportedAnswer, err)
		}
		return splitFileItems(items)
	case '{':
		var obj struct {
			Files []string `json:"files"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return Answer{}, nil, fmt.Errorf("%w: %v", ErrUnsupportedAnswer, err)
		}
		return splitFileItems(obj.Files)
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return Answer{}, nil, fmt.Errorf("%w: %v", ErrUnsupportedAnswer, err)
		}
		return TextAnswer(fmt.Sprint(v)), nil, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return Answer{}, nil, fmt.Errorf("%w: %v", ErrUnsupportedAnswer, err)
		}
		return TextAnswer(n.String()), nil, nil
	}
}

func splitFileItems(items []string) (Answer, []FilePlaceholder, error) {
	var paths []string
	var placeholders []FilePlaceholder
	for _, item := range items {
		if ph, ok := ParseFilePlaceholder(item); ok {
			placeholders = append(placeholders, ph)
			continue
		}
		paths = append(paths, item)
	}
	return FileAnswer(paths...), placeholders, nil
}
