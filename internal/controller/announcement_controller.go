package controller

import (
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/util"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AnnouncementController struct {
	AnnouncementService *service.AnnouncementService
}

func NewAnnouncementController(announcementService *service.AnnouncementService) *AnnouncementController {
	return &AnnouncementController{AnnouncementService: announcementService}
}

// PostAnnouncement godoc
// @Summary 发布公告
// @Description 仅课堂教师；附件可选
// @Tags 公告
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Param   title formData string true "标题"
// @Param   message formData string false "内容"
// @Param   file formData file false "附件"
// @Success 201 {object} util.Response{data=model.Announcement}
// @Router /classes/{id}/announcements [post]
func (c *AnnouncementController) PostAnnouncement(ctx *gin.Context) {
	var file *multipart.FileHeader
	if f, err := ctx.FormFile("file"); err == nil {
		file = f
	} else if err != http.ErrMissingFile {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.AnnouncementService.Post(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"),
		ctx.PostForm("title"), ctx.PostForm("message"), file)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// ListAnnouncements godoc
// @Summary 课堂公告列表
// @Tags 公告
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Success 200 {object} util.Response{data=[]model.Announcement}
// @Router /classes/{id}/announcements [get]
func (c *AnnouncementController) ListAnnouncements(ctx *gin.Context) {
	list, err := c.AnnouncementService.List(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
