package controller

import (
	"strconv"

	"quiz_grading_backend/internal/service"
	"quiz_grading_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradeController struct {
	GradingService *service.GradingService
}

func NewGradeController(gradingService *service.GradingService) *GradeController {
	return &GradeController{GradingService: gradingService}
}

// ListPendingGrading godoc
// @Summary 列出待人工批改的题目
// @Description 讲师只看到自己名下课程的待批项，管理员看到全部
// @Tags 评分
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response
// @Router /api/teacher/grading/pending [get]
func (c *GradeController) ListPendingGrading(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, total, err := c.GradingService.ListPending(user.UserID, user.Role, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  items,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GradeQuestion godoc
// @Summary 给一道主观题定分
// @Description 分数必须在 [0, 满分] 之间。最后一道题批完后整次作答定稿并通知证书服务
// @Tags 评分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "作答ID"
// @Param questionId path int true "题目ID"
// @Param body body service.ManualGradeRequest true "分数与评语"
// @Success 200 {object} util.Response{data=service.AttemptView}
// @Failure 400 {object} util.Response "分数越界"
// @Failure 409 {object} util.Response "该题不存在待批记录或已被批改"
// @Router /api/teacher/attempts/{attemptId}/questions/{questionId}/grade [post]
func (c *GradeController) GradeQuestion(ctx *gin.Context) {
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
	questionID, err := strconv.Atoi(ctx.Param("questionId"))
	if err != nil {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	var req service.ManualGradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.GradingService.RecordManualGrade(ctx.Request.Context(), user.UserID, user.Role, uint(attemptID), uint(questionID), req)
	if err != nil {
		writeAttemptError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
