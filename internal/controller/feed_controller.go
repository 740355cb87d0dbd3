package controller

import (
	"context"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/util"
	"courseconnect_backend/pkg/logger"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedSubscriber 课堂事件订阅
type FeedSubscriber interface {
	Subscribe(ctx context.Context, classID string) (<-chan model.Event, context.CancelFunc, error)
}

type FeedController struct {
	ClassService *service.ClassService
	Feed         FeedSubscriber
}

func NewFeedController(classService *service.ClassService, feed FeedSubscriber) *FeedController {
	return &FeedController{ClassService: classService, Feed: feed}
}

// Stream godoc
// @Summary 课堂实时事件
// @Description 升级为 WebSocket，推送点赞、采纳、新内容与积分变化；浏览器可用 token 查询参数认证
// @Tags 课堂
// @Security ApiKeyAuth
// @Param   id path string true "课堂ID"
// @Param   token query string false "JWT"
// @Success 101 {string} string "Switching Protocols"
// @Failure 403 {object} util.Response "非课堂成员"
// @Router /classes/{id}/feed [get]
func (c *FeedController) Stream(ctx *gin.Context) {
	classID := ctx.Param("id")
	sess := sessionOf(ctx)
	if _, err := c.ClassService.GetClass(ctx.Request.Context(), sess, classID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	if c.Feed == nil {
		util.Error(ctx, http.StatusServiceUnavailable, "live feed unavailable")
		return
	}

	events, cancel, err := c.Feed.Subscribe(ctx.Request.Context(), classID)
	if err != nil {
		util.RespondError(ctx, util.Transient(err))
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.String("class_id", classID), zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Log.Debug("Feed client connected", zap.String("class_id", classID), zap.Uint("user_id", sess.UserID))

	// 客户端只发送 pong/close，读协程用于感知断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Log.Debug("Feed client read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			logger.Log.Debug("Feed client disconnected", zap.String("class_id", classID), zap.Uint("user_id", sess.UserID))
			return
		}
	}
}
