package controller

import (
	"errors"
	"strconv"

	"quiz_grading_backend/internal/service"
	"quiz_grading_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// Enroll godoc
// @Summary 选课
// @Tags 选课
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body object true "{courseId}"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Router /api/enrollments [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	var body struct {
		CourseID uint `json:"courseId" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	enrollment, err := c.EnrollmentService.Enroll(user.UserID, body.CourseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, enrollment)
}

// Cancel godoc
// @Summary 退课
// @Tags 选课
// @Produce json
// @Security BearerAuth
// @Param id path int true "选课ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "选课不存在"
// @Router /api/enrollments/{id} [delete]
func (c *EnrollmentController) Cancel(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	enrollmentID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid enrollment id")
		return
	}
	if err := c.EnrollmentService.Cancel(user.UserID, uint(enrollmentID)); err != nil {
		if errors.Is(err, util.ErrEnrollmentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"cancelled": true})
}
