package controller

import (
	"strconv"

	"communilearn_backend/internal/service"
	"communilearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RecentController struct {
	RecentService *service.RecentService
}

func NewRecentController(recentService *service.RecentService) *RecentController {
	return &RecentController{RecentService: recentService}
}

// MarkViewedRequest swagger:model MarkViewedRequest
type MarkViewedRequest struct {
	Keys []string `json:"keys" binding:"required" example:"Quiz:7,Announcement:3"`
}

// GetRecent godoc
// @Summary 最近动态
// @Description 合并公告、模块、测验与教师，按时间倒序去重，未查看的标记 isNew
// @Tags 最近动态
// @Security ApiKeyAuth
// @Param limit query int false "数量上限"
// @Success 200 {object} util.Response{data=service.RecentFeed}
// @Router /api/recent [get]
func (c *RecentController) GetRecent(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))
	feed, err := c.RecentService.Feed(ctx.Request.Context(), actor, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, feed)
}

// MarkViewed godoc
// @Summary 标记为已查看
// @Tags 最近动态
// @Security ApiKeyAuth
// @Accept json
// @Param body body MarkViewedRequest true "条目 key"
// @Success 200 {object} util.Response
// @Router /api/recent/viewed [post]
func (c *RecentController) MarkViewed(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req MarkViewedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.RecentService.MarkViewed(ctx.Request.Context(), actor, req.Keys); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Stream godoc
// @Summary 已读事件推送
// @Description 建立 WebSocket 连接，当前用户在任意会话中标记已读时收到 {"type":"VIEWED","data":{"keys":[...]}}
// @Tags 最近动态
// @Security ApiKeyAuth
// @Param token query string false "JWT Token，浏览器无法设置请求头时使用"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/recent/ws [get]
func (c *RecentController) Stream(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := c.RecentService.ServeStream(ctx.Writer, ctx.Request, actor); err != nil {
		util.LogInternalError(ctx, err)
	}
}
