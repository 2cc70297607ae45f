package controller

import (
	"communilearn_backend/internal/service"
	"communilearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttendanceController struct {
	AttendanceService *service.AttendanceService
}

func NewAttendanceController(attendanceService *service.AttendanceService) *AttendanceController {
	return &AttendanceController{AttendanceService: attendanceService}
}

// bindAttendance 同时接受 JSON 与表单
func bindAttendance(ctx *gin.Context) (service.AttendanceInput, bool) {
	var in service.AttendanceInput
	if err := ctx.ShouldBind(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return in, false
	}
	return in, true
}

// ListAttendance godoc
// @Summary 考勤列表
// @Description 学生视图带 marked 标记
// @Tags 考勤
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.AttendanceView}
// @Router /api/attendance [get]
func (c *AttendanceController) ListAttendance(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	list, err := c.AttendanceService.List(actor)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// GetAttendance godoc
// @Summary 考勤详情
// @Description 教师可见签到名单
// @Tags 考勤
// @Security ApiKeyAuth
// @Param id path int true "考勤ID"
// @Success 200 {object} util.Response{data=service.AttendanceView}
// @Router /api/attendance/{id} [get]
func (c *AttendanceController) GetAttendance(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	a, err := c.AttendanceService.Get(actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// CreateAttendance godoc
// @Summary 发起考勤
// @Description 同时发布一条带 [ATTENDANCE_ID:n] 标记的公告
// @Tags 考勤
// @Security ApiKeyAuth
// @Accept json
// @Param body body service.AttendanceInput true "考勤信息"
// @Success 201 {object} util.Response{data=service.AttendanceView}
// @Router /api/attendance [post]
func (c *AttendanceController) CreateAttendance(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	in, ok := bindAttendance(ctx)
	if !ok {
		return
	}
	a, err := c.AttendanceService.Create(actor, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// UpdateAttendance godoc
// @Summary 修改考勤
// @Tags 考勤
// @Security ApiKeyAuth
// @Accept json
// @Param id path int true "考勤ID"
// @Param body body service.AttendanceInput true "考勤信息"
// @Success 200 {object} util.Response{data=service.AttendanceView}
// @Router /api/attendance/{id} [put]
func (c *AttendanceController) UpdateAttendance(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	in, ok := bindAttendance(ctx)
	if !ok {
		return
	}
	a, err := c.AttendanceService.Update(actor, id, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// DeleteAttendance godoc
// @Summary 删除考勤
// @Tags 考勤
// @Security ApiKeyAuth
// @Param id path int true "考勤ID"
// @Success 200 {object} util.Response
// @Router /api/attendance/{id} [delete]
func (c *AttendanceController) DeleteAttendance(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.AttendanceService.Delete(actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// MarkAttendance godoc
// @Summary 学生签到
// @Tags 考勤
// @Security ApiKeyAuth
// @Param id path int true "考勤ID"
// @Success 201 {object} util.Response{data=model.AttendanceMark}
// @Failure 400 {object} util.ErrorResponse "attendance closed"
// @Failure 409 {object} util.ErrorResponse "已签到"
// @Router /api/attendance/{id}/mark [post]
func (c *AttendanceController) MarkAttendance(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	mark, err := c.AttendanceService.Mark(actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, mark)
}
