package controller

import (
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

type ClassController struct {
	ClassService *service.ClassService
}

func NewClassController(classService *service.ClassService) *ClassController {
	return &ClassController{ClassService: classService}
}

type CreateClassRequest struct {
	Title string `json:"title" binding:"required"`
	// 为空时自动生成
	JoinCode string `json:"joinCode"`
}

// CreateClass godoc
// @Summary 创建课堂
// @Description 仅教师可创建；创建者自动成为课堂教师成员
// @Tags 课堂
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CreateClassRequest true "课堂信息"
// @Success 201 {object} util.Response{data=model.ClassRoom}
// @Failure 403 {object} util.Response "非教师"
// @Failure 409 {object} util.Response "加入码已被占用"
// @Router /classes [post]
func (c *ClassController) CreateClass(ctx *gin.Context) {
	var req CreateClassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	class, err := c.ClassService.CreateClass(ctx.Request.Context(), sessionOf(ctx), req.Title, req.JoinCode)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, class)
}

type JoinClassRequest struct {
	JoinCode string `json:"joinCode" binding:"required"`
}

// JoinClass godoc
// @Summary 通过加入码加入课堂
// @Description 重复加入返回已有的成员记录
// @Tags 课堂
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body JoinClassRequest true "加入码"
// @Success 200 {object} util.Response{data=object}
// @Success 201 {object} util.Response{data=object}
// @Failure 404 {object} util.Response "课堂不存在"
// @Router /classes/join [post]
func (c *ClassController) JoinClass(ctx *gin.Context) {
	var req JoinClassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	class, membership, err := c.ClassService.JoinClass(ctx.Request.Context(), sessionOf(ctx), req.JoinCode)
	data := gin.H{"class": class, "membership": membership}
	if errors.Is(err, util.ErrAlreadyMember) {
		util.SuccessWithMessage(ctx, "already a member", data)
		return
	}
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, data)
}

// ListClasses godoc
// @Summary 我的课堂
// @Tags 课堂
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.ClassRoom}
// @Router /classes [get]
func (c *ClassController) ListClasses(ctx *gin.Context) {
	classes, err := c.ClassService.ListMyClasses(ctx.Request.Context(), sessionOf(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, classes)
}

// GetClass godoc
// @Summary 课堂详情
// @Tags 课堂
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Success 200 {object} util.Response{data=model.ClassRoom}
// @Failure 403 {object} util.Response "非课堂成员"
// @Router /classes/{id} [get]
func (c *ClassController) GetClass(ctx *gin.Context) {
	class, err := c.ClassService.GetClass(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, class)
}

// ListMembers godoc
// @Summary 课堂成员
// @Tags 课堂
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Success 200 {object} util.Response{data=[]model.Membership}
// @Router /classes/{id}/members [get]
func (c *ClassController) ListMembers(ctx *gin.Context) {
	members, err := c.ClassService.ListMembers(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, members)
}

// Analytics godoc
// @Summary 课堂统计
// @Description 仅课堂教师可见
// @Tags 课堂
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Success 200 {object} util.Response{data=model.ClassAnalytics}
// @Router /classes/{id}/analytics [get]
func (c *ClassController) Analytics(ctx *gin.Context) {
	stats, err := c.ClassService.Analytics(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
