package controller

import (
	"errors"
	"strconv"

	"quiz_grading_backend/internal/service"
	"quiz_grading_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// SubmitAttempt godoc
// @Summary 提交测验作答
// @Description 校验选课与次数限制后评分。含主观题时结果挂起，客观题部分不提前放出分数
// @Tags 作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Param body body service.SubmitAttemptRequest true "作答内容"
// @Success 201 {object} util.Response{data=service.AttemptView}
// @Failure 400 {object} util.Response "题型不支持或参数错误"
// @Failure 404 {object} util.Response "测验或选课不存在"
// @Failure 409 {object} util.Response "选课失效、次数用尽或重复提交"
// @Failure 500 {object} util.Response "持久化失败"
// @Router /api/quizzes/{id}/attempts [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}
	var req service.SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.AttemptService.SubmitAttempt(ctx.Request.Context(), user.UserID, uint(quizID), req)
	if err != nil {
		writeAttemptError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// GetAttempt godoc
// @Summary 查看一次作答
// @Description 挂起状态下不返回总分与通过判定
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "作答ID"
// @Success 200 {object} util.Response{data=service.AttemptView}
// @Failure 404 {object} util.Response "作答不存在"
// @Router /api/attempts/{attemptId} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID, err := strconv.Atoi(ctx.Param("attemptId"))
	if err != nil {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}
	view, err := c.AttemptService.GetAttempt(user.UserID, user.Role, uint(attemptID))
	if err != nil {
		writeAttemptError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// ListAttempts godoc
// @Summary 按选课列出历次作答
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Param enrollmentId query int true "选课ID"
// @Success 200 {object} util.Response{data=[]service.AttemptView}
// @Router /api/quizzes/{id}/attempts [get]
func (c *AttemptController) ListAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}
	enrollmentID, err := strconv.Atoi(ctx.Query("enrollmentId"))
	if err != nil {
		util.BadRequest(ctx, "invalid enrollment id")
		return
	}
	views, err := c.AttemptService.ListAttempts(user.UserID, user.Role, uint(quizID), uint(enrollmentID))
	if err != nil {
		writeAttemptError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// writeAttemptError 把领域错误翻译成 HTTP 状态码。
func writeAttemptError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrQuizNotFound),
		errors.Is(err, util.ErrQuizNotPublished),
		errors.Is(err, util.ErrEnrollmentNotFound),
		errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrEnrollmentNotActive),
		errors.Is(err, util.ErrAttemptLimitExceeded),
		errors.Is(err, util.ErrDuplicateSubmission):
		util.Error(ctx, 409, err.Error())
	case errors.Is(err, util.ErrUnsupportedQuestionType),
		errors.Is(err, util.ErrQuizHasNoQuestions),
		errors.Is(err, util.ErrInvalidGrade):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrUnknownPendingItem):
		util.Error(ctx, 409, err.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
