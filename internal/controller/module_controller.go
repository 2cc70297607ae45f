package controller

import (
	"communilearn_backend/internal/config"
	"communilearn_backend/internal/service"
	"communilearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ModuleController struct {
	ModuleService *service.ModuleService
	Cfg           *config.Config
}

func NewModuleController(moduleService *service.ModuleService, cfg *config.Config) *ModuleController {
	return &ModuleController{ModuleService: moduleService, Cfg: cfg}
}

func (c *ModuleController) bindInput(ctx *gin.Context) (service.ModuleInput, bool) {
	if !parseMultipart(ctx, c.Cfg.MaxUploadBytes()) {
		return service.ModuleInput{}, false
	}
	return service.ModuleInput{
		Title:       formValue(ctx, "title"),
		Description: formValue(ctx, "description"),
		URL:         formValue(ctx, "url"),
		Document:    formFile(ctx, "document"),
		Media:       formFile(ctx, "media"),
	}, true
}

// CreateModule godoc
// @Summary 创建学习模块
// @Description 创建后所有已审核学生自动加入该模块
// @Tags 学习模块
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Param title formData string true "标题"
// @Param description formData string false "描述"
// @Param url formData string false "外部链接"
// @Param document formData file false "文档"
// @Param media formData file false "音视频"
// @Success 201 {object} util.Response{data=service.ModuleDetail}
// @Router /api/modules [post]
func (c *ModuleController) CreateModule(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	in, ok := c.bindInput(ctx)
	if !ok {
		return
	}
	m, err := c.ModuleService.Create(ctx.Request.Context(), actor, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, m)
}

// UpdateModule godoc
// @Summary 更新学习模块
// @Tags 学习模块
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response{data=service.ModuleDetail}
// @Router /api/modules/{id} [put]
func (c *ModuleController) UpdateModule(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	in, ok := c.bindInput(ctx)
	if !ok {
		return
	}
	m, err := c.ModuleService.Update(ctx.Request.Context(), actor, id, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// DeleteModule godoc
// @Summary 删除学习模块
// @Description 同时删除测验、作答、选课、评论与提交
// @Tags 学习模块
// @Security ApiKeyAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/modules/{id} [delete]
func (c *ModuleController) DeleteModule(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ModuleService.Delete(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// GetModule godoc
// @Summary 模块详情
// @Tags 学习模块
// @Security ApiKeyAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response{data=service.ModuleDetail}
// @Router /api/modules/{id} [get]
func (c *ModuleController) GetModule(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	var (
		m   *service.ModuleDetail
		err error
	)
	if actor.IsStaff() {
		m, err = c.ModuleService.Get(id)
	} else {
		m, err = c.ModuleService.GetForStudent(actor.Email, id)
	}
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// StudentModules godoc
// @Summary 学生已加入的模块
// @Tags 学习模块
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.ModuleDetail}
// @Router /api/modules/student [get]
func (c *ModuleController) StudentModules(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	modules, err := c.ModuleService.ListForStudent(actor.Email)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}

// StudentModule godoc
// @Summary 学生查看单个模块
// @Tags 学习模块
// @Security ApiKeyAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response{data=service.ModuleDetail}
// @Failure 404 {object} util.ErrorResponse "未加入或不存在"
// @Router /api/modules/student/{id} [get]
func (c *ModuleController) StudentModule(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	m, err := c.ModuleService.GetForStudent(actor.Email, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// TeacherModules godoc
// @Summary 教师创建的模块
// @Tags 学习模块
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.ModuleDetail}
// @Router /api/modules/teacher [get]
func (c *ModuleController) TeacherModules(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	modules, err := c.ModuleService.ListForTeacher(actor)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}

// AutoEnroll godoc
// @Summary 自动加入所有模块
// @Tags 学习模块
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/modules/auto-enroll [post]
func (c *ModuleController) AutoEnroll(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	n, err := c.ModuleService.AutoEnroll(actor.Email)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"enrolled": n})
}

// SubmitFile godoc
// @Summary 提交模块作业文件
// @Tags 学习模块
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Param id path int true "模块ID"
// @Param file formData file true "文件"
// @Success 201 {object} util.Response{data=service.SubmissionDetail}
// @Router /api/modules/{id}/submissions [post]
func (c *ModuleController) SubmitFile(ctx *gin.Context) {
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
	fh := formFile(ctx, "file")
	if fh == nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	sub, err := c.ModuleService.Submit(ctx.Request.Context(), actor, id, fh)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}

// Submissions godoc
// @Summary 模块作业提交列表
// @Tags 学习模块
// @Security ApiKeyAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response{data=[]service.SubmissionDetail}
// @Router /api/modules/{id}/submissions [get]
func (c *ModuleController) Submissions(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	subs, err := c.ModuleService.Submissions(actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subs)
}
