package app

import (
	"courseconnect_backend/docs"
	"courseconnect_backend/internal/config"
	"courseconnect_backend/internal/middleware"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// votableKinds 点赞路由 /:kind/:id/upvote 中的 kind
var votableKinds = []model.ItemKind{
	model.KindAnswer,
	model.KindQuestion,
	model.KindReply,
	model.KindMaterial,
}

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerUserRoutes(authGroup, c)
		a.registerClassRoutes(authGroup, c)
		a.registerQARoutes(authGroup, c)
		a.registerVoteRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/auth/verify", c.auth.VerifyEmail)
		public.POST("/auth/resend", c.auth.ResendVerification)
	}
}

func (a *App) registerUserRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/user/profile", c.user.UpdateProfile)
	rg.POST("/user/avatar/upload", c.user.UploadAvatar)
	rg.GET("/leaderboard/global", c.leaderboard.GlobalLeaderboard)
}

func (a *App) registerClassRoutes(rg *gin.RouterGroup, c *controllers) {
	classes := rg.Group("/classes")
	{
		classes.POST("", middleware.RoleMiddleware(model.Faculty), c.class.CreateClass)
		classes.GET("", c.class.ListClasses)
		classes.POST("/join", c.class.JoinClass)
		classes.GET("/:id", c.class.GetClass)
		classes.GET("/:id/members", c.class.ListMembers)
		classes.GET("/:id/analytics", c.class.Analytics)
		classes.GET("/:id/feed", c.feed.Stream)

		// 排行榜
		classes.GET("/:id/leaderboard", c.leaderboard.ClassLeaderboard)
		classes.GET("/:id/leaderboard/export", c.leaderboard.ExportClassLeaderboard)

		// 问答
		classes.GET("/:id/questions", c.qa.ListQuestions)
		classes.POST("/:id/questions", c.qa.CreateQuestion)

		// 资料与公告
		classes.GET("/:id/materials", c.material.ListMaterials)
		classes.POST("/:id/materials", c.material.UploadMaterial)
		classes.GET("/:id/announcements", c.announcement.ListAnnouncements)
		classes.POST("/:id/announcements", c.announcement.PostAnnouncement)
	}
}

func (a *App) registerQARoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/questions/:id", c.qa.GetThread)
	rg.POST("/questions/:id/answers", c.qa.CreateAnswer)
	rg.POST("/questions/:id/replies", c.qa.CreateReply)
	rg.POST("/questions/:id/answers/:answerId/accept", c.qa.AcceptAnswer)

	rg.GET("/materials/:id", c.material.GetMaterial)
}

func (a *App) registerVoteRoutes(rg *gin.RouterGroup, c *controllers) {
	for _, kind := range votableKinds {
		rg.POST("/"+kind.Table()+"/:id/upvote", c.vote.Upvote(kind))
	}
}
