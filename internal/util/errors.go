package util

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailRegistered     = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNotApproved         = errors.New("account pending approval")
	ErrInvalidRole         = errors.New("invalid role")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrCannotRemoveSelf    = errors.New("cannot remove your own account")
	ErrModuleNotFound      = errors.New("module not found")
	ErrNotEnrolled         = errors.New("not enrolled in module")
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrInvalidQuestions    = errors.New("invalid questions JSON")
	ErrInvalidQuestion     = errors.New("invalid question")
	ErrInvalidAnswers      = errors.New("invalid answers")
	ErrAttemptLimitReached = errors.New("attempt limit reached")
	ErrAttemptNotFound     = errors.New("no attempt found")
	ErrAnnouncementMissing = errors.New("announcement not found")
	ErrAttendanceNotFound  = errors.New("attendance not found")
	ErrAttendanceClosed    = errors.New("attendance closed")
	ErrAlreadyMarked       = errors.New("attendance already marked")
	ErrCommentNotFound     = errors.New("comment not found")
	ErrInvalidDueDate      = errors.New("invalid due date")
	ErrInvalidFile         = errors.New("invalid file")
	ErrWrongPassword       = errors.New("current password is incorrect")
	ErrInvalidInput        = errors.New("invalid input")
)

// 业务错误到 HTTP 状态码的映射
var errorStatus = []struct {
	err    error
	status int
	detail bool // 是否把包装后的完整信息返回给客户端
}{
	{ErrUserNotFound, http.StatusNotFound, false},
	{ErrModuleNotFound, http.StatusNotFound, false},
	{ErrQuizNotFound, http.StatusNotFound, false},
	{ErrAttemptNotFound, http.StatusNotFound, false},
	{ErrAnnouncementMissing, http.StatusNotFound, false},
	{ErrAttendanceNotFound, http.StatusNotFound, false},
	{ErrCommentNotFound, http.StatusNotFound, false},
	{ErrEmailRegistered, http.StatusConflict, false},
	{ErrAlreadyMarked, http.StatusConflict, false},
	{ErrInvalidCredentials, http.StatusUnauthorized, false},
	{ErrNotApproved, http.StatusForbidden, false},
	{ErrPermissionDenied, http.StatusForbidden, false},
	{ErrCannotRemoveSelf, http.StatusForbidden, false},
	{ErrNotEnrolled, http.StatusForbidden, false},
	{ErrAttemptLimitReached, http.StatusForbidden, false},
	{ErrWrongPassword, http.StatusBadRequest, false},
	{ErrInvalidRole, http.StatusBadRequest, false},
	{ErrInvalidQuestions, http.StatusBadRequest, false},
	{ErrInvalidQuestion, http.StatusBadRequest, true},
	{ErrInvalidAnswers, http.StatusBadRequest, true},
	{ErrAttendanceClosed, http.StatusBadRequest, false},
	{ErrInvalidDueDate, http.StatusBadRequest, true},
	{ErrInvalidFile, http.StatusBadRequest, true},
	{ErrInvalidInput, http.StatusBadRequest, true},
}

// StatusOf 返回业务错误对应的状态码，未知错误返回 0
func StatusOf(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return 0
}

// HandleError 按错误类型写入响应，未识别的错误记录日志并返回 500
func HandleError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}
		msg := e.err.Error()
		if e.detail {
			msg = err.Error()
		}
		Error(c, e.status, msg)
		return
	}
	LogInternalError(c, err)
}
