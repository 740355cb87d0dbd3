package controller

import (
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/util"
	"courseconnect_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VoteController struct {
	Scoring *service.ScoringService
}

func NewVoteController(scoring *service.ScoringService) *VoteController {
	return &VoteController{Scoring: scoring}
}

// Upvote godoc
// @Summary 切换点赞
// @Description 已点赞则取消，否则点赞；积分同步给内容作者
// @Tags 点赞
// @Produce  json
// @Security ApiKeyAuth
// @Param   kind path string true "answers | questions | replies | materials"
// @Param   id path string true "内容ID"
// @Success 200 {object} util.Response{data=service.ToggleResult}
// @Failure 400 {object} util.Response "不能给自己点赞"
// @Failure 503 {object} util.Response "积分写入失败，点赞已生效"
// @Router /{kind}/{id}/upvote [post]
func (c *VoteController) Upvote(kind model.ItemKind) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res, err := c.Scoring.ToggleUpvote(ctx.Request.Context(), sessionOf(ctx), kind, ctx.Param("id"))
		if err != nil {
			respondPartial(ctx, res, err)
			return
		}
		util.Success(ctx, res)
	}
}

// respondPartial 写入已提交但积分未同步时仍返回结果，便于客户端刷新状态
func respondPartial[T any](ctx *gin.Context, res *T, err error) {
	if res == nil || !errors.Is(err, util.ErrTransientStore) {
		util.RespondError(ctx, err)
		return
	}
	logger.Log.Warn("Request committed with degraded side effects",
		zap.String("path", ctx.FullPath()),
		zap.Error(err))
	ctx.JSON(http.StatusServiceUnavailable, util.Response{
		Code:    http.StatusServiceUnavailable,
		Message: err.Error(),
		Data:    res,
	})
}
