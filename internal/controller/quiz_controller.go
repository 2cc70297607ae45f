package controller

import (
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"

	"communilearn_backend/internal/config"
	"communilearn_backend/internal/service"
	"communilearn_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type QuizController struct {
	QuizService    *service.QuizService
	AttemptService *service.AttemptService
	Cfg            *config.Config
}

func NewQuizController(quizService *service.QuizService, attemptService *service.AttemptService, cfg *config.Config) *QuizController {
	return &QuizController{
		QuizService:    quizService,
		AttemptService: attemptService,
		Cfg:            cfg,
	}
}

// CreateQuizRequest swagger:model CreateQuizRequest
type CreateQuizRequest struct {
	ModuleID uint   `json:"moduleId"`
	Title    string `json:"title"`
}

// SaveQuestionsRequest JSON 形式的保存题目请求
type SaveQuestionsRequest struct {
	QuizID       uint            `json:"quizId"`
	Description  *string         `json:"description"`
	TimeLimit    *int            `json:"timeLimit"`
	AttemptLimit *int            `json:"attemptLimit"`
	DueDate      string          `json:"dueDate"`
	DueDateDate  string          `json:"dueDateDate"`
	DueTime      string          `json:"dueTime"`
	Questions    json.RawMessage `json:"questions" swaggertype:"array,object"`
}

// SubmitRequest JSON 形式的作答
type SubmitRequest struct {
	Answers map[string]json.RawMessage `json:"answers" swaggertype:"object"`
}

// questionUploads 收集 files_q<下标> 字段中的题目附件
func questionUploads(form *multipart.Form) (map[int][]*multipart.FileHeader, error) {
	out := make(map[int][]*multipart.FileHeader)
	if form == nil {
		return out, nil
	}
	for field, files := range form.File {
		suffix, ok := strings.CutPrefix(field, util.QuestionFilesFieldPrefix)
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(suffix)
		if err != nil || idx < 0 {
			return nil, errors.Wrapf(util.ErrInvalidFile, "bad file field %q", field)
		}
		out[idx] = append(out[idx], files...)
	}
	return out, nil
}

func (c *QuizController) bindSaveQuestions(ctx *gin.Context) (service.SaveQuestionsInput, error) {
	if !isMultipart(ctx) {
		var req SaveQuestionsRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return service.SaveQuestionsInput{}, errors.Wrap(util.ErrInvalidInput, err.Error())
		}
		return service.SaveQuestionsInput{
			QuizID:       req.QuizID,
			Description:  req.Description,
			TimeLimit:    req.TimeLimit,
			AttemptLimit: req.AttemptLimit,
			DueDate:      req.DueDate,
			DueDateDate:  req.DueDateDate,
			DueTime:      req.DueTime,
			Questions:    req.Questions,
		}, nil
	}

	in := service.SaveQuestionsInput{
		QuizID:      util.MustParseUint(ctx.PostForm("quizId")),
		Description: formValue(ctx, "description"),
		DueDate:     ctx.PostForm("dueDate"),
		DueDateDate: ctx.PostForm("dueDateDate"),
		DueTime:     ctx.PostForm("dueTime"),
	}
	var err error
	if in.TimeLimit, err = util.ParseOptionalInt(ctx.PostForm("timeLimit")); err != nil {
		return in, errors.Wrap(util.ErrInvalidInput, "timeLimit must be a number")
	}
	if in.AttemptLimit, err = util.ParseOptionalInt(ctx.PostForm("attemptLimit")); err != nil {
		return in, errors.Wrap(util.ErrInvalidInput, "attemptLimit must be a number")
	}
	// 表单中 questions 是 JSON 字符串，原样交给 service 解析
	if raw, ok := ctx.GetPostForm("questions"); ok {
		in.Questions = json.RawMessage(raw)
	}
	in.Files, err = questionUploads(ctx.Request.MultipartForm)
	return in, err
}

// CreateQuiz godoc
// @Summary 创建空测验
// @Tags 测验
// @Security ApiKeyAuth
// @Accept json
// @Param body body CreateQuizRequest true "模块与标题"
// @Success 201 {object} util.Response{data=object}
// @Failure 400 {object} util.ErrorResponse
// @Failure 403 {object} util.ErrorResponse
// @Failure 404 {object} util.ErrorResponse
// @Router /api/quizzes/create [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q, err := c.QuizService.CreateQuizShell(actor, req.ModuleID, req.Title)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"quizId": q.ID, "quiz": q})
}

// SaveQuestions godoc
// @Summary 保存测验题目与设置
// @Description 支持 multipart（questions 为 JSON 字符串，附件字段 files_q<下标>）或 JSON
// @Tags 测验
// @Security ApiKeyAuth
// @Accept multipart/form-data,json
// @Param quizId formData int true "测验ID"
// @Param questions formData string true "题目 JSON"
// @Param description formData string false "说明"
// @Param timeLimit formData int false "时间限制（分钟）"
// @Param attemptLimit formData int false "作答次数上限"
// @Param dueDate formData string false "截止时间"
// @Param dueDateDate formData string false "截止日期"
// @Param dueTime formData string false "截止时刻"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Router /api/quizzes/save-questions [post]
func (c *QuizController) SaveQuestions(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	if isMultipart(ctx) && !parseMultipart(ctx, c.Cfg.MaxUploadBytes()) {
		return
	}
	in, err := c.bindSaveQuestions(ctx)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	view, err := c.QuizService.SaveQuestions(ctx.Request.Context(), actor, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// TeacherQuizzes godoc
// @Summary 教师的测验列表
// @Tags 测验
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.QuizView}
// @Router /api/quizzes/teacher [get]
func (c *QuizController) TeacherQuizzes(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	quizzes, err := c.QuizService.ListForTeacher(actor)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// StudentQuizzes godoc
// @Summary 学生可作答的测验
// @Tags 测验
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.QuizView}
// @Router /api/quizzes/student [get]
func (c *QuizController) StudentQuizzes(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	quizzes, err := c.QuizService.ListForStudent(actor.Email)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// GetQuiz godoc
// @Summary 测验详情
// @Description 学生看不到正确答案
// @Tags 测验
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Router /api/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	view, err := c.QuizService.Get(actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// DeleteQuiz godoc
// @Summary 删除测验
// @Tags 测验
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.QuizService.Delete(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// AttemptStatus godoc
// @Summary 作答次数
// @Tags 测验作答
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=service.AttemptStatus}
// @Router /api/quizzes/{id}/attempts [get]
func (c *QuizController) AttemptStatus(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	st, err := c.AttemptService.GetAttemptStatus(id, actor.Email)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, st)
}

func (c *QuizController) bindSubmit(ctx *gin.Context) (service.SubmitInput, error) {
	if !isMultipart(ctx) {
		var req SubmitRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return service.SubmitInput{}, errors.Wrap(util.ErrInvalidAnswers, err.Error())
		}
		return service.SubmitInput{Answers: req.Answers}, nil
	}

	in := service.SubmitInput{Answers: map[string]json.RawMessage{}}
	if raw := strings.TrimSpace(ctx.PostForm("answers")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Answers); err != nil {
			return in, errors.Wrap(util.ErrInvalidAnswers, "answers must be a JSON object")
		}
	}
	if form := ctx.Request.MultipartForm; form != nil {
		in.Uploads = form.File
	}
	return in, nil
}

// SubmitAttempt godoc
// @Summary 提交作答
// @Description multipart 时 answers 为 JSON 字符串，文件字段为 answer_file_<题目ID>；答案中的 __FILE__ 占位符会替换为上传后的路径
// @Tags 测验作答
// @Security ApiKeyAuth
// @Accept multipart/form-data,json
// @Param id path int true "测验ID"
// @Param answers formData string true "作答 JSON"
// @Success 201 {object} util.Response{data=model.QuizAttempt}
// @Failure 403 {object} util.ErrorResponse "attempt limit reached"
// @Router /api/quizzes/{id}/submit [post]
func (c *QuizController) SubmitAttempt(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if isMultipart(ctx) && !parseMultipart(ctx, c.Cfg.MaxUploadBytes()) {
		return
	}
	in, err := c.bindSubmit(ctx)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	attempt, err := c.AttemptService.Submit(ctx.Request.Context(), actor, id, in)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// Score godoc
// @Summary 最新一次作答的成绩
// @Description 教师可通过 studentEmail 查看指定学生
// @Tags 测验作答
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param studentEmail query string false "学生邮箱"
// @Success 200 {object} util.Response{data=service.ScoreResult}
// @Failure 404 {object} util.ErrorResponse "no attempt found"
// @Router /api/quizzes/{id}/score [get]
func (c *QuizController) Score(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	res, err := c.AttemptService.Score(actor, id, ctx.Query("studentEmail"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Scores godoc
// @Summary 全部学生成绩
// @Tags 测验作答
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]service.ScoreRow}
// @Router /api/quizzes/{id}/scores [get]
func (c *QuizController) Scores(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	rows, err := c.AttemptService.ListScores(actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// Attempts godoc
// @Summary 全部作答记录
// @Tags 测验作答
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]service.AttemptRow}
// @Router /api/quizzes/{id}/attempts/list [get]
func (c *QuizController) Attempts(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	rows, err := c.AttemptService.ListAttempts(actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// Submissions godoc
// @Summary Activity 题提交的文件
// @Tags 测验作答
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]service.FileSubmission}
// @Router /api/quizzes/{id}/submissions [get]
func (c *QuizController) Submissions(ctx *gin.Context) {
	actor, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	subs, err := c.AttemptService.Submissions(actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subs)
}
