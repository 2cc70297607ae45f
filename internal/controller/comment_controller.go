package controller

import (
	"communilearn_backend/internal/model"
	"communilearn_backend/internal/service"
	"communilearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CommentController 三类评论共用一套处理函数，按 Kind 区分数据表
type CommentController struct {
	CommentService *service.CommentService
	Kind           model.CommentKind
	// 路由中父对象与评论 ID 的参数名
	ParentParam  string
	CommentParam string
}

func NewCommentController(commentService *service.CommentService, kind model.CommentKind, parentParam, commentParam string) *CommentController {
	return &CommentController{
		CommentService: commentService,
		Kind:           kind,
		ParentParam:    parentParam,
		CommentParam:   commentParam,
	}
}

// CommentRequest swagger:model CommentRequest
type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// ListComments godoc
// @Summary 评论列表
// @Tags 评论
// @Security ApiKeyAuth
// @Param id path int true "公告/考勤/模块ID"
// @Success 200 {object} util.Response{data=[]model.Comment}
// @Router /api/announcements/{id}/comments [get]
// @Router /api/attendance/{id}/comments [get]
// @Router /api/module-comments/{id} [get]
func (c *CommentController) ListComments(ctx *gin.Context) {
	parentID, ok := paramID(ctx, c.ParentParam)
	if !ok {
		return
	}
	comments, err := c.CommentService.List(c.Kind, parentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, comments)
}

// CreateComment godoc
// @Summary 发表评论
// @Tags 评论
// @Security ApiKeyAuth
// @Accept json
// @Param id path int true "公告/考勤/模块ID"
// @Param body body CommentRequest true "评论内容"
// @Success 201 {object} util.Response{data=model.Comment}
// @Router /api/announcements/{id}/comments [post]
// @Router /api/attendance/{id}/comments [post]
// @Router /api/module-comments/{id} [post]
func (c *CommentController) CreateComment(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	parentID, ok := paramID(ctx, c.ParentParam)
	if !ok {
		return
	}
	var req CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "text is required")
		return
	}
	comment, err := c.CommentService.Create(actor, c.Kind, parentID, req.Text)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, comment)
}

// UpdateComment godoc
// @Summary 修改评论
// @Description 作者本人或教师
// @Tags 评论
// @Security ApiKeyAuth
// @Accept json
// @Param cid path int true "评论ID"
// @Param body body CommentRequest true "评论内容"
// @Success 200 {object} util.Response{data=model.Comment}
// @Router /api/announcements/{id}/comments/{cid} [put]
// @Router /api/attendance/{id}/comments/{cid} [put]
// @Router /api/module-comments/{cid} [put]
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, c.CommentParam)
	if !ok {
		return
	}
	var req CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "text is required")
		return
	}
	comment, err := c.CommentService.Update(actor, c.Kind, id, req.Text)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, comment)
}

// DeleteComment godoc
// @Summary 删除评论
// @Description 作者本人或教师
// @Tags 评论
// @Security ApiKeyAuth
// @Param cid path int true "评论ID"
// @Success 200 {object} util.Response
// @Router /api/announcements/{id}/comments/{cid} [delete]
// @Router /api/attendance/{id}/comments/{cid} [delete]
// @Router /api/module-comments/delete/{cid} [delete]
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, c.CommentParam)
	if !ok {
		return
	}
	if err := c.CommentService.Delete(actor, c.Kind, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
