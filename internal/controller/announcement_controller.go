package controller

import (
	"strconv"

	"communilearn_backend/internal/config"
	"communilearn_backend/internal/service"
	"communilearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnnouncementController struct {
	AnnouncementService *service.AnnouncementService
	Cfg                 *config.Config
}

func NewAnnouncementController(announcementService *service.AnnouncementService, cfg *config.Config) *AnnouncementController {
	return &AnnouncementController{AnnouncementService: announcementService, Cfg: cfg}
}

// ListAnnouncements godoc
// @Summary 公告列表
// @Description 最新在前
// @Tags 公告
// @Security ApiKeyAuth
// @Param limit query int false "数量上限"
// @Success 200 {object} util.Response{data=[]service.AnnouncementView}
// @Router /api/announcements [get]
func (c *AnnouncementController) ListAnnouncements(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	list, err := c.AnnouncementService.List(limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// GetAnnouncement godoc
// @Summary 公告详情
// @Tags 公告
// @Security ApiKeyAuth
// @Param id path int true "公告ID"
// @Success 200 {object} util.Response{data=service.AnnouncementView}
// @Router /api/announcements/{id} [get]
func (c *AnnouncementController) GetAnnouncement(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	a, err := c.AnnouncementService.Get(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// CreateAnnouncement godoc
// @Summary 发布公告
// @Tags 公告
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Param description formData string true "内容"
// @Param file formData file false "附件"
// @Success 201 {object} util.Response{data=service.AnnouncementView}
// @Router /api/announcements [post]
func (c *AnnouncementController) CreateAnnouncement(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	if !parseMultipart(ctx, c.Cfg.MaxUploadBytes()) {
		return
	}
	a, err := c.AnnouncementService.Create(ctx.Request.Context(), actor, ctx.PostForm("description"), formFile(ctx, "file"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// UpdateAnnouncement godoc
// @Summary 修改公告
// @Tags 公告
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Param id path int true "公告ID"
// @Param description formData string false "内容"
// @Param file formData file false "新附件"
// @Param removeFile formData bool false "移除附件"
// @Success 200 {object} util.Response{data=service.AnnouncementView}
// @Router /api/announcements/{id} [put]
func (c *AnnouncementController) UpdateAnnouncement(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if !parseMultipart(ctx, c.Cfg.MaxUploadBytes()) {
		return
	}
	removeFile, _ := strconv.ParseBool(ctx.PostForm("removeFile"))
	a, err := c.AnnouncementService.Update(ctx.Request.Context(), actor, id,
		formValue(ctx, "description"), formFile(ctx, "file"), removeFile)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// DeleteAnnouncement godoc
// @Summary 删除公告
// @Tags 公告
// @Security ApiKeyAuth
// @Param id path int true "公告ID"
// @Success 200 {object} util.Response
// @Router /api/announcements/{id} [delete]
func (c *AnnouncementController) DeleteAnnouncement(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.AnnouncementService.Delete(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
