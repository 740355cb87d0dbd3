package controller

import (
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/util"
	"courseconnect_backend/pkg/logger"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultGlobalLimit = 50

type LeaderboardController struct {
	Scoring *service.ScoringService
}

func NewLeaderboardController(scoring *service.ScoringService) *LeaderboardController {
	return &LeaderboardController{Scoring: scoring}
}

// ClassLeaderboard godoc
// @Summary 课堂排行榜
// @Description 按积分降序、显示名升序排名；search 只过滤显示，名次不变
// @Tags 排行榜
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Param   search query string false "按显示名搜索"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=service.LeaderboardPage}
// @Router /classes/{id}/leaderboard [get]
func (c *LeaderboardController) ClassLeaderboard(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	res, err := c.Scoring.Leaderboard(ctx.Request.Context(), sessionOf(ctx), ctx.Param("id"), ctx.Query("search"), page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// ExportClassLeaderboard godoc
// @Summary 导出课堂排行榜
// @Tags 排行榜
// @Produce  text/csv
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Success 200 {file} file
// @Router /classes/{id}/leaderboard/export [get]
func (c *LeaderboardController) ExportClassLeaderboard(ctx *gin.Context) {
	classID := ctx.Param("id")
	entries, err := c.Scoring.ClassLeaderboard(ctx.Request.Context(), sessionOf(ctx), classID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=leaderboard-%s.csv", classID))

	w := csv.NewWriter(ctx.Writer)
	w.Write([]string{"Rank", "Name", "Points", "Email", "UID"})
	for _, e := range entries {
		w.Write([]string{
			strconv.Itoa(e.Rank),
			e.DisplayName,
			strconv.Itoa(e.Points),
			e.Email,
			strconv.FormatUint(uint64(e.UserID), 10),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logger.Log.Warn("Leaderboard export interrupted", zap.String("class_id", classID), zap.Error(err))
	}
}

// GlobalLeaderboard godoc
// @Summary 全局排行榜
// @Tags 排行榜
// @Produce  json
// @Security ApiKeyAuth
// @Param   limit query int false "返回数量"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /leaderboard/global [get]
func (c *LeaderboardController) GlobalLeaderboard(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultGlobalLimit)))
	if err != nil || limit < 1 {
		limit = defaultGlobalLimit
	}
	if limit > util.MaxPageSize {
		limit = util.MaxPageSize
	}

	entries, err := c.Scoring.GlobalLeaderboard(ctx.Request.Context(), limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
