package controller

import (
	"fmt"
	"path/filepath"
	"time"

	"quiz_grading_backend/internal/service"
	"quiz_grading_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UploadController struct {
	StorageService *service.StorageService
}

func NewUploadController(storageService *service.StorageService) *UploadController {
	return &UploadController{StorageService: storageService}
}

// UploadAttachment godoc
// @Summary 上传主观题附件
// @Description 学生在作答主观题时上传附件，返回存储地址供作答引用
// @Tags 作答
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "附件文件"
// @Success 201 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "文件类型不允许"
// @Router /api/attachments [post]
func (c *UploadController) UploadAttachment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file required")
		return
	}

	ext := filepath.Ext(fileHeader.Filename)
	allowed := false
	for _, e := range util.AllowedAttachmentExtensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		util.BadRequest(ctx, "file type not allowed: "+ext)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	contentType, err := util.ValidateMimeType(file, []string{util.MimeImage, util.MimePDF, util.MimeText, util.MimeOctetStream})
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	filename := fmt.Sprintf("attachments/%d/%s/%s%s",
		user.UserID, time.Now().Format(util.DateFormat), uuid.NewString(), ext)
	url, err := c.StorageService.Upload(ctx.Request.Context(), filename, file, fileHeader.Size, contentType)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"url": url})
}
