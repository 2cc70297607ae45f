package controller

import (
	"communilearn_backend/internal/service"
	"communilearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	UserService *service.UserService
}

func NewAuthController(authService *service.AuthService, userService *service.UserService) *AuthController {
	return &AuthController{
		AuthService: authService,
		UserService: userService,
	}
}

// LoginRequest swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup godoc
// @Summary 注册账号（需审核）
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.SignupInput true "注册信息"
// @Success 201 {object} util.Response{data=model.User}
// @Failure 400 {object} util.ErrorResponse
// @Failure 409 {object} util.ErrorResponse "邮箱已被注册"
// @Router /api/auth/signup [post]
func (c *AuthController) Signup(ctx *gin.Context) {
	var req service.SignupInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Signup(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// Login godoc
// @Summary 登录
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "登录信息"
// @Success 200 {object} util.Response{data=object}
// @Failure 401 {object} util.ErrorResponse "账号或密码错误"
// @Failure 403 {object} util.ErrorResponse "账号待审核"
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, user, err := c.AuthService.Login(req.Email, req.Password)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"token": token, "user": user})
}

// PendingUsers godoc
// @Summary 待审核账号
// @Tags 账号审核
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.User}
// @Router /api/auth/pending-users [get]
func (c *AuthController) PendingUsers(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	users, err := c.UserService.PendingUsers(actor)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// ApprovedUsers godoc
// @Summary 已审核账号
// @Tags 账号审核
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.User}
// @Router /api/auth/approved [get]
func (c *AuthController) ApprovedUsers(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	users, err := c.UserService.ApprovedUsers(actor)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// Teachers godoc
// @Summary 教师列表
// @Tags 账号审核
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.User}
// @Router /api/auth/teachers [get]
func (c *AuthController) Teachers(ctx *gin.Context) {
	users, err := c.UserService.Teachers()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// Approve godoc
// @Summary 审核通过
// @Description 教师只能审核学生，教师账号需超级教师审核
// @Tags 账号审核
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 403 {object} util.ErrorResponse
// @Failure 404 {object} util.ErrorResponse
// @Router /api/auth/approve/{id} [post]
func (c *AuthController) Approve(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	user, err := c.UserService.Approve(actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// Deny godoc
// @Summary 拒绝待审核账号
// @Tags 账号审核
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/auth/deny/{id} [post]
func (c *AuthController) Deny(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.UserService.Deny(actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Remove godoc
// @Summary 删除账号
// @Tags 账号审核
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/auth/remove/{id} [delete]
func (c *AuthController) Remove(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.UserService.Remove(actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
