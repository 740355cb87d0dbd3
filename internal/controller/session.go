package controller

import (
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// sessionOf 由 AuthMiddleware 写入的 claims 构造调用者会话
func sessionOf(ctx *gin.Context) service.Session {
	return service.SessionFromClaims(util.GetUserFromContext(ctx))
}
