package controller

import (
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MaterialController struct {
	MaterialService *service.MaterialService
}

func NewMaterialController(materialService *service.MaterialService) *MaterialController {
	return &MaterialController{MaterialService: materialService}
}

// UploadMaterial godoc
// @Summary 上传学习资料
// @Description 支持文档、图片与视频；视频会尽力生成封面并探测时长
// @Tags 资料
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Param   title formData string true "标题"
// @Param   description formData string false "描述"
// @Param   tags formData string false "逗号分隔的标签"
// @Param   file formData file true "文件"
// @Success 201 {object} util.Response{data=service.MaterialView}
// @Failure 400 {object} util.Response "文件类型不支持"
// @Failure 502 {object} util.Response "上传失败"
// @Router /classes/{id}/materials [post]
func (c *MaterialController) UploadMaterial(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "请选择要上传的文件")
		return
	}

	in := service.MaterialInput{
		Title:       ctx.PostForm("title"),
		Description: ctx.PostForm("description"),
		Tags:        util.SplitTags(ctx.PostForm("tags")),
	}
	view, err := c.MaterialService.Upload(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"), in, file)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// ListMaterials godoc
// @Summary 课堂资料列表
// @Tags 资料
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Param   tag query string false "标签"
// @Param   search query string false "关键字"
// @Param   sort query string false "new | upvotes"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /classes/{id}/materials [get]
func (c *MaterialController) ListMaterials(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	list, total, err := c.MaterialService.List(ctx.Request.Context(), sessionOf(ctx), repository.MaterialFilter{
		ClassID: ctx.Param("id"),
		Tag:     ctx.Query("tag"),
		Search:  ctx.Query("search"),
		Sort:    ctx.Query("sort"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

// GetMaterial godoc
// @Summary 资料详情
// @Description 同一用户短时间内重复查看只计一次浏览
// @Tags 资料
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "资料ID"
// @Success 200 {object} util.Response{data=service.MaterialView}
// @Router /materials/{id} [get]
func (c *MaterialController) GetMaterial(ctx *gin.Context) {
	view, err := c.MaterialService.Get(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
