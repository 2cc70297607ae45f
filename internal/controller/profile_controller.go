package controller

import (
	"communilearn_backend/internal/config"
	"communilearn_backend/internal/service"
	"communilearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	ProfileService *service.ProfileService
	Cfg            *config.Config
}

func NewProfileController(profileService *service.ProfileService, cfg *config.Config) *ProfileController {
	return &ProfileController{ProfileService: profileService, Cfg: cfg}
}

// Get godoc
// @Summary 当前用户资料
// @Tags 个人资料
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.Profile}
// @Router /api/profile [get]
func (c *ProfileController) Get(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	p, err := c.ProfileService.Get(user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// GetByEmail godoc
// @Summary 查看他人资料
// @Tags 个人资料
// @Security ApiKeyAuth
// @Param email path string true "邮箱"
// @Success 200 {object} util.Response{data=service.Profile}
// @Router /api/profile/{email} [get]
func (c *ProfileController) GetByEmail(ctx *gin.Context) {
	p, err := c.ProfileService.GetByEmail(ctx.Param("email"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// Update godoc
// @Summary 修改资料或密码
// @Tags 个人资料
// @Security ApiKeyAuth
// @Accept json
// @Param body body service.ProfileInput true "资料"
// @Success 200 {object} util.Response{data=service.Profile}
// @Router /api/profile [put]
func (c *ProfileController) Update(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req service.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	p, err := c.ProfileService.Update(user.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Tags 个人资料
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Param avatar formData file true "头像图片"
// @Success 200 {object} util.Response{data=service.Profile}
// @Router /api/profile/avatar [post]
func (c *ProfileController) UploadAvatar(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	if !parseMultipart(ctx, c.Cfg.MaxUploadBytes()) {
		return
	}
	fh := formFile(ctx, "avatar")
	if fh == nil {
		fh = formFile(ctx, "file")
	}
	if fh == nil {
		util.BadRequest(ctx, "avatar file is required")
		return
	}
	p, err := c.ProfileService.UpdateAvatar(ctx.Request.Context(), user.UserID, fh)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, p)
}
