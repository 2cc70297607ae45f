package controller

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"communilearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// paramID 解析路径中的数字 ID，失败时直接写入 400
func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// currentUser 认证中间件之后总能取到，取不到时返回 401
func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return user, true
}

func isMultipart(ctx *gin.Context) bool {
	return strings.HasPrefix(ctx.ContentType(), "multipart/form-data")
}

// formValue 字段不存在时返回 nil，用于区分“未提交”和“清空”
func formValue(ctx *gin.Context, key string) *string {
	if v, ok := ctx.GetPostForm(key); ok {
		return &v
	}
	return nil
}

func formFile(ctx *gin.Context, key string) *multipart.FileHeader {
	fh, err := ctx.FormFile(key)
	if err != nil {
		return nil
	}
	return fh
}

// parseMultipart 按配置的上传上限解析表单
func parseMultipart(ctx *gin.Context, maxBytes int64) bool {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes)
	if err := ctx.Request.ParseMultipartForm(32 << 20); err != nil {
		util.BadRequest(ctx, "invalid multipart form: "+err.Error())
		return false
	}
	return true
}
