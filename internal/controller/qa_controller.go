package controller

import (
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QAController struct {
	QAService *service.QAService
	Scoring   *service.ScoringService
}

func NewQAController(qaService *service.QAService, scoring *service.ScoringService) *QAController {
	return &QAController{QAService: qaService, Scoring: scoring}
}

// ListQuestions godoc
// @Summary 课堂问题列表
// @Tags 问答
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Param   tag query string false "标签"
// @Param   search query string false "标题或内容关键字"
// @Param   solved query bool false "是否已解决"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /classes/{id}/questions [get]
func (c *QAController) ListQuestions(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	filter := repository.QuestionFilter{
		ClassID: ctx.Param("id"),
		Tag:     ctx.Query("tag"),
		Search:  ctx.Query("search"),
		Page:    page,
		Limit:   limit,
	}
	if raw := ctx.Query("solved"); raw != "" {
		solved, err := strconv.ParseBool(raw)
		if err != nil {
			util.BadRequest(ctx, "solved must be true or false")
			return
		}
		filter.Solved = &solved
	}

	list, total, err := c.QAService.ListQuestions(ctx.Request.Context(), sessionOf(ctx), filter)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

type CreateQuestionRequest struct {
	Title string   `json:"title" binding:"required"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// CreateQuestion godoc
// @Summary 提问
// @Tags 问答
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Param   body body CreateQuestionRequest true "问题"
// @Success 201 {object} util.Response{data=service.QuestionView}
// @Router /classes/{id}/questions [post]
func (c *QAController) CreateQuestion(ctx *gin.Context) {
	var req CreateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.QAService.PostQuestion(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"), req.Title, req.Body, req.Tags)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// GetThread godoc
// @Summary 问题详情（含回答与回复树）
// @Tags 问答
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "问题ID"
// @Success 200 {object} util.Response{data=service.Thread}
// @Router /questions/{id} [get]
func (c *QAController) GetThread(ctx *gin.Context) {
	thread, err := c.QAService.GetThread(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, thread)
}

type CreateAnswerRequest struct {
	Body string `json:"body" binding:"required"`
}

// CreateAnswer godoc
// @Summary 回答问题
// @Tags 问答
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "问题ID"
// @Param   body body CreateAnswerRequest true "回答"
// @Success 201 {object} util.Response{data=model.Answer}
// @Router /questions/{id}/answers [post]
func (c *QAController) CreateAnswer(ctx *gin.Context) {
	var req CreateAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.QAService.PostAnswer(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"), req.Body)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

type CreateReplyRequest struct {
	Text     string  `json:"text" binding:"required"`
	ParentID *string `json:"parentId"`
}

// CreateReply godoc
// @Summary 回复讨论
// @Description parentId 为空时为顶层回复
// @Tags 问答
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "问题ID"
// @Param   body body CreateReplyRequest true "回复"
// @Success 201 {object} util.Response{data=model.Reply}
// @Router /questions/{id}/replies [post]
func (c *QAController) CreateReply(ctx *gin.Context) {
	var req CreateReplyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	r, err := c.QAService.PostReply(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"), req.ParentID, req.Text)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, r)
}

// AcceptAnswer godoc
// @Summary 采纳回答
// @Description 提问者或课堂教师可采纳；首次采纳为回答者发放奖励积分
// @Tags 问答
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "问题ID"
// @Param   answerId path string true "回答ID"
// @Success 200 {object} util.Response{data=service.AcceptResult}
// @Failure 403 {object} util.Response "无权采纳"
// @Failure 503 {object} util.Response "积分写入失败，采纳已生效"
// @Router /questions/{id}/answers/{answerId}/accept [post]
func (c *QAController) AcceptAnswer(ctx *gin.Context) {
	res, err := c.Scoring.AcceptAnswer(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"), ctx.Param("answerId"))
	if err != nil {
		respondPartial(ctx, res, err)
		return
	}
	util.Success(ctx, res)
}
